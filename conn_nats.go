package cachectl

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSKeyValue captures the subset of nats.KeyValue used by the nats Conn.
type NATSKeyValue interface {
	Bucket() string
	Get(key string) (nats.KeyValueEntry, error)
	Purge(key string, opts ...nats.DeleteOpt) error
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
}

type natsConn struct {
	nc *nats.Conn
	kv NATSKeyValue
}

func newNATSConnFromConfig(cfg Config) (Conn, error) {
	if cfg.NATSKeyValue != nil {
		return newNATSConn(nil, cfg.NATSKeyValue), nil
	}
	opts := []nats.Option{
		nats.Name("cachectl"),
		nats.Timeout(cfg.DialTimeout),
		nats.NoReconnect(),
	}
	switch {
	case cfg.Username != "":
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	case cfg.Password != "":
		opts = append(opts, nats.Token(cfg.Password))
	}
	nc, err := nats.Connect("nats://"+cfg.Addr(), opts...)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	kv, err := js.KeyValue(cfg.NATSBucket)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bind key-value bucket %q: %w", cfg.NATSBucket, err)
	}
	return newNATSConn(nc, kv), nil
}

func newNATSConn(nc *nats.Conn, kv NATSKeyValue) Conn {
	return &natsConn{nc: nc, kv: kv}
}

func (c *natsConn) Driver() Driver { return DriverNATS }

func (c *natsConn) Ready(context.Context) error {
	if c.kv == nil {
		return errors.New("nats key-value unavailable")
	}
	if c.nc != nil && !c.nc.IsConnected() {
		return fmt.Errorf("nats connection %s", c.nc.Status())
	}
	return nil
}

// Flush purges every key in the bucket, the bucket being the namespace.
func (c *natsConn) Flush(ctx context.Context) error {
	keys, err := c.listKeys(ctx, keyMatcher{all: true})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.kv.Purge(key); err != nil && !isNATSMiss(err) {
			return err
		}
	}
	return nil
}

func (c *natsConn) Keys(ctx context.Context, pattern string) ([]string, error) {
	matcher, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return c.listKeys(ctx, matcher)
}

func (c *natsConn) Exists(_ context.Context, key string) (bool, error) {
	if c.kv == nil {
		return false, errors.New("nats key-value unavailable")
	}
	entry, err := c.kv.Get(key)
	if isNATSMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	op := entry.Operation()
	return op != nats.KeyValueDelete && op != nats.KeyValuePurge, nil
}

// DeleteMany purges keys one by one. Only keys that held a live value are counted.
func (c *natsConn) DeleteMany(ctx context.Context, keys ...string) (int64, error) {
	var removed int64
	for _, key := range keys {
		ok, err := c.Exists(ctx, key)
		if err != nil {
			return removed, err
		}
		if !ok {
			continue
		}
		if err := c.kv.Purge(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *natsConn) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

func (c *natsConn) listKeys(ctx context.Context, matcher keyMatcher) ([]string, error) {
	if c.kv == nil {
		return nil, errors.New("nats key-value unavailable")
	}
	lister, err := c.kv.ListKeys(nats.IgnoreDeletes())
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if matcher.Match(key) {
			keys = append(keys, key)
		}
	}
	for err := range lister.Error() {
		if err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func isNATSMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}
