package conntest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/goforj/cachectl"
)

// Options configures the shared Conn contract checks.
type Options struct {
	// CaseName namespaces keys. Defaults to t.Name().
	CaseName string
	// Seed stores keys through the backend's native client. Required.
	Seed func(ctx context.Context, keys ...string) error
	// SkipEnumeration expects Keys to report ErrEnumerationUnsupported.
	SkipEnumeration bool
	// InexactDeleteCount relaxes the DeleteMany count for backends that
	// cannot tell which keys existed.
	InexactDeleteCount bool
	// SkipFlush disables the flush assertion for shared namespaces.
	SkipFlush bool
	// Separator joins key segments. Defaults to ":"; NATS keys need ".".
	Separator string
}

// RunConnContract runs the backend-agnostic Conn contract suite.
func RunConnContract(t *testing.T, conn cachectl.Conn, opts Options) {
	t.Helper()
	if opts.Seed == nil {
		t.Fatalf("conntest: Options.Seed is required")
	}

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	sep := opts.Separator
	if sep == "" {
		sep = ":"
	}
	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + sep + strings.ReplaceAll(s, ":", sep)
	}

	if err := conn.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if err := opts.Seed(ctx, key("user:1"), key("user:2"), key("session:9")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Existence checks.
	if ok, err := conn.Exists(ctx, key("user:1")); err != nil || !ok {
		t.Fatalf("expected user:1 to exist; ok=%v err=%v", ok, err)
	}
	if ok, err := conn.Exists(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected missing key absent; ok=%v err=%v", ok, err)
	}

	// Enumeration.
	if opts.SkipEnumeration {
		if _, err := conn.Keys(ctx, key("user:*")); !errors.Is(err, cachectl.ErrEnumerationUnsupported) {
			t.Fatalf("expected ErrEnumerationUnsupported, got %v", err)
		}
	} else {
		got, err := conn.Keys(ctx, key("user:*"))
		if err != nil {
			t.Fatalf("keys failed: %v", err)
		}
		sort.Strings(got)
		want := []string{key("user:1"), key("user:2")}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("keys mismatch: got %v want %v", got, want)
		}
		all, err := conn.Keys(ctx, "*")
		if err != nil {
			t.Fatalf("keys * failed: %v", err)
		}
		for _, k := range []string{key("user:1"), key("user:2"), key("session:9")} {
			if !contains(all, k) {
				t.Fatalf("expected %q in match-all listing %v", k, all)
			}
		}
		none, err := conn.Keys(ctx, key("nothing:*"))
		if err != nil || len(none) != 0 {
			t.Fatalf("expected no matches; keys=%v err=%v", none, err)
		}
	}
	if _, err := conn.Keys(ctx, ""); !errors.Is(err, cachectl.ErrInvalidArgument) {
		t.Fatalf("expected empty pattern rejected, got %v", err)
	}

	// Bulk delete.
	if n, err := conn.DeleteMany(ctx); err != nil || n != 0 {
		t.Fatalf("expected empty delete to be a no-op; n=%d err=%v", n, err)
	}
	n, err := conn.DeleteMany(ctx, key("user:1"), key("missing"))
	if err != nil {
		t.Fatalf("delete many failed: %v", err)
	}
	if opts.InexactDeleteCount {
		if n < 1 {
			t.Fatalf("expected at least one deletion, got %d", n)
		}
	} else if n != 1 {
		t.Fatalf("expected delete count 1, got %d", n)
	}
	if ok, err := conn.Exists(ctx, key("user:1")); err != nil || ok {
		t.Fatalf("expected user:1 deleted; ok=%v err=%v", ok, err)
	}
	if ok, err := conn.Exists(ctx, key("user:2")); err != nil || !ok {
		t.Fatalf("expected user:2 untouched; ok=%v err=%v", ok, err)
	}

	// Flush.
	if !opts.SkipFlush {
		if err := conn.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		for _, k := range []string{key("user:2"), key("session:9")} {
			if ok, err := conn.Exists(ctx, k); err != nil || ok {
				t.Fatalf("expected flush to clear %q; ok=%v err=%v", k, ok, err)
			}
		}
		// Flushing an empty namespace still succeeds.
		if err := conn.Flush(ctx); err != nil {
			t.Fatalf("second flush failed: %v", err)
		}
	}
}

func contains(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
