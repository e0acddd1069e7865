package cachectl

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisScanCount = 500

// RedisClient captures the subset of redis.Client used by the redis Conn.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	FlushDB(ctx context.Context) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

type redisConn struct {
	client RedisClient
}

func newRedisConnFromConfig(cfg Config) Conn {
	if cfg.RedisClient != nil {
		return newRedisConn(cfg.RedisClient)
	}
	return newRedisConn(redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		// the tool never retries a failed command
		MaxRetries: -1,
	}))
}

func newRedisConn(client RedisClient) Conn {
	return &redisConn{client: client}
}

func (c *redisConn) Driver() Driver { return DriverRedis }

func (c *redisConn) Ready(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis client unavailable")
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisConn) Flush(ctx context.Context) error {
	if c.client == nil {
		return errors.New("redis client unavailable")
	}
	return c.client.FlushDB(ctx).Err()
}

// Keys walks SCAN to completion. SCAN may yield a key more than once, so
// results are deduplicated in first-seen order.
func (c *redisConn) Keys(ctx context.Context, pattern string) ([]string, error) {
	if c.client == nil {
		return nil, errors.New("redis client unavailable")
	}
	if pattern == "" {
		return nil, invalidArgf("pattern must not be empty")
	}
	var (
		cursor uint64
		out    []string
	)
	seen := make(map[string]struct{})
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, redisScanCount).Result()
		if err != nil {
			return nil, err
		}
		out = appendUnique(out, seen, keys...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (c *redisConn) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, errors.New("redis client unavailable")
	}
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisConn) DeleteMany(ctx context.Context, keys ...string) (int64, error) {
	if c.client == nil {
		return 0, errors.New("redis client unavailable")
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return c.client.Del(ctx, keys...).Result()
}

func (c *redisConn) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
