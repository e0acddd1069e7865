package cachectl_test

import (
	"context"
	"strings"
	"testing"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goforj/cachectl"
	"github.com/goforj/cachectl/conntest"
)

func TestMemoryConnContract(t *testing.T) {
	store := gocache.New(gocache.NoExpiration, 0)
	conn, err := cachectl.DialWith(context.Background(), cachectl.DriverMemory, cachectl.WithMemoryCache(store))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conntest.RunConnContract(t, conn, conntest.Options{
		Seed: func(_ context.Context, keys ...string) error {
			for _, k := range keys {
				store.Set(k, []byte("v"), gocache.NoExpiration)
			}
			return nil
		},
	})
}

func TestMemoryConnKeysSorted(t *testing.T) {
	store := gocache.New(gocache.NoExpiration, 0)
	for _, k := range []string{"c", "a", "b"} {
		store.Set(k, 1, gocache.NoExpiration)
	}
	keys, err := cachectl.NewMemoryConn(store).Keys(context.Background(), "*")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if got := strings.Join(keys, ","); got != "a,b,c" {
		t.Fatalf("unexpected order %q", got)
	}
}

func TestFileConnContract(t *testing.T) {
	dir := t.TempDir()
	conn, err := cachectl.DialWith(context.Background(), cachectl.DriverFile, cachectl.WithFileDir(dir))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	// Records are keyed by hash, so seeding goes through the internal writer.
	conntest.RunConnContract(t, conn, conntest.Options{
		Seed:            cachectl.SeedFileRecords(dir),
		SkipEnumeration: true,
	})
}
