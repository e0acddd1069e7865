package cachectl

import "context"

// dryRunConn reads through to inner and turns every mutation into a no-op.
type dryRunConn struct {
	inner Conn
}

func newDryRunConn(inner Conn) Conn {
	if _, ok := inner.(*dryRunConn); ok {
		return inner
	}
	return &dryRunConn{inner: inner}
}

func (c *dryRunConn) Driver() Driver { return c.inner.Driver() }

func (c *dryRunConn) Ready(ctx context.Context) error { return c.inner.Ready(ctx) }

func (c *dryRunConn) Flush(context.Context) error { return nil }

func (c *dryRunConn) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.inner.Keys(ctx, pattern)
}

func (c *dryRunConn) Exists(ctx context.Context, key string) (bool, error) {
	return c.inner.Exists(ctx, key)
}

// DeleteMany reports every key as deleted; callers only pass keys they found.
func (c *dryRunConn) DeleteMany(_ context.Context, keys ...string) (int64, error) {
	return int64(len(keys)), nil
}

func (c *dryRunConn) Close() error { return c.inner.Close() }
