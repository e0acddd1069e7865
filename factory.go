package cachectl

import "context"

// DialFunc opens a ready Conn for cfg.
type DialFunc func(ctx context.Context, cfg Config) (Conn, error)

// Dial builds the Conn for cfg.Driver and verifies it is reachable.
// Any failure is wrapped in ErrConnect; a half-built Conn is closed before returning.
//
// Example: flush a local redis
//
//	conn, err := cachectl.Dial(ctx, cachectl.Config{Driver: cachectl.DriverRedis})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	_ = conn.Flush(ctx)
func Dial(ctx context.Context, cfg Config) (Conn, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := newConn(ctx, cfg)
	if err != nil {
		return nil, connectErr(cfg.Driver, err)
	}
	if err := conn.Ready(ctx); err != nil {
		_ = conn.Close()
		return nil, connectErr(cfg.Driver, err)
	}
	return conn, nil
}

// DialWith dials driver configured by functional options.
//
// Example: nats bucket
//
//	conn, err := cachectl.DialWith(ctx, cachectl.DriverNATS,
//		cachectl.WithAddress("nats.internal", 4222),
//		cachectl.WithNATSBucket("sessions"),
//	)
func DialWith(ctx context.Context, driver Driver, opts ...Option) (Conn, error) {
	cfg := Config{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return Dial(ctx, cfg)
}

func newConn(ctx context.Context, cfg Config) (Conn, error) {
	switch cfg.Driver {
	case DriverMemcached:
		return newMemcachedConn(ctx, cfg)
	case DriverNATS:
		return newNATSConnFromConfig(cfg)
	case DriverSQL:
		return newSQLConn(cfg)
	case DriverDynamo:
		return newDynamoConn(ctx, cfg)
	case DriverFile:
		return newFileConn(cfg.FileDir), nil
	case DriverMemory:
		return NewMemoryConn(cfg.MemoryCache), nil
	default:
		return newRedisConnFromConfig(cfg), nil
	}
}
