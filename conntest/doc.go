// Package conntest provides a reusable contract suite for cachectl.Conn
// implementations.
//
// The suite cannot write values through a Conn, so callers pass a Seed
// function that stores keys with the backend's own client.
//
// Example pattern:
//
//	func TestRedisConnContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		conn, err := cachectl.DialWith(ctx, cachectl.DriverRedis, cachectl.WithRedisClient(client))
//		if err != nil {
//			t.Fatalf("dial: %v", err)
//		}
//		t.Cleanup(func() { _ = conn.Close() })
//
//		conntest.RunConnContract(t, conn, conntest.Options{
//			Seed: func(ctx context.Context, keys ...string) error {
//				for _, k := range keys {
//					if err := client.Set(ctx, k, "v", 0).Err(); err != nil {
//						return err
//					}
//				}
//				return nil
//			},
//		})
//	}
package conntest
