package cachectl

import (
	"context"
	"net"
	"os"
)

// SetDialMemcached swaps the memcached dialer and returns a restore func.
func SetDialMemcached(fn func(ctx context.Context, network, addr string) (net.Conn, error)) func() {
	orig := dialMemcached
	dialMemcached = fn
	return func() { dialMemcached = orig }
}

// SeedFileRecords returns a conntest seeder writing unexpiring records into dir.
func SeedFileRecords(dir string) func(context.Context, ...string) error {
	c := &fileConn{dir: dir}
	return func(_ context.Context, keys ...string) error {
		for _, key := range keys {
			record := append(append([]byte(nil), fileRecordMagic...), make([]byte, 8)...)
			if err := os.WriteFile(c.path(key), append(record, 'v'), 0o644); err != nil {
				return err
			}
		}
		return nil
	}
}
