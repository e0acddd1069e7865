package cachectl_test

import (
	"context"
	"errors"
	"sort"

	"github.com/gobwas/glob"
	"github.com/redis/go-redis/v9"
)

// stubRedisClient is an in-memory RedisClient. Scan pages through keys in
// sorted order, two per call, and repeats the last key of each page on the
// next one the way a rehashing server can.
type stubRedisClient struct {
	store map[string]string

	pingErr   error
	flushErr  error
	scanErr   error
	existsErr error
	delErr    error

	scanCalls int
	delCalls  int
	closed    bool
}

func newStubRedisClient(keys ...string) *stubRedisClient {
	c := &stubRedisClient{store: make(map[string]string)}
	for _, k := range keys {
		c.store[k] = "v"
	}
	return c
}

func (c *stubRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if c.pingErr != nil {
		cmd.SetErr(c.pingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (c *stubRedisClient) FlushDB(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if c.flushErr != nil {
		cmd.SetErr(c.flushErr)
		return cmd
	}
	c.store = make(map[string]string)
	cmd.SetVal("OK")
	return cmd
}

func (c *stubRedisClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	cmd := redis.NewScanCmd(ctx, nil)
	c.scanCalls++
	if c.scanErr != nil {
		cmd.SetErr(c.scanErr)
		return cmd
	}
	matcher, err := glob.Compile(match)
	if err != nil {
		cmd.SetErr(err)
		return cmd
	}
	all := make([]string, 0, len(c.store))
	for k := range c.store {
		all = append(all, k)
	}
	sort.Strings(all)

	start := int(cursor)
	if start > 0 {
		start-- // overlap with the previous page
	}
	end := int(cursor) + 2
	if end > len(all) {
		end = len(all)
	}
	var page []string
	for _, k := range all[start:end] {
		if matcher.Match(k) {
			page = append(page, k)
		}
	}
	next := uint64(end)
	if end >= len(all) {
		next = 0
	}
	cmd.SetVal(page, next)
	return cmd
}

func (c *stubRedisClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if c.existsErr != nil {
		cmd.SetErr(c.existsErr)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := c.store[k]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (c *stubRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	c.delCalls++
	if c.delErr != nil {
		cmd.SetErr(c.delErr)
		return cmd
	}
	var removed int64
	for _, k := range keys {
		if _, ok := c.store[k]; ok {
			delete(c.store, k)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func (c *stubRedisClient) Close() error {
	if c.closed {
		return errors.New("redis: client is closed")
	}
	c.closed = true
	return nil
}

func (c *stubRedisClient) seed(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.store[k] = "v"
	}
	return nil
}
