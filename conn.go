package cachectl

import "context"

// Conn is a live handle to one cache backend. It is owned by a single
// invocation and must be closed by the caller.
type Conn interface {
	Driver() Driver
	// Ready verifies the backend is reachable with the configured credential.
	Ready(ctx context.Context) error
	// Flush removes every key in the selected namespace.
	Flush(ctx context.Context) error
	// Keys returns every key matching a glob pattern, in the order the store yields them.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// DeleteMany removes keys in one bulk call and reports how many the store removed.
	DeleteMany(ctx context.Context, keys ...string) (int64, error)
	Close() error
}
