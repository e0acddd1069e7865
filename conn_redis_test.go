package cachectl_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goforj/cachectl"
	"github.com/goforj/cachectl/conntest"
)

func dialStubRedis(t *testing.T, client *stubRedisClient) cachectl.Conn {
	t.Helper()
	conn, err := cachectl.DialWith(context.Background(), cachectl.DriverRedis, cachectl.WithRedisClient(client))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestRedisConnContract(t *testing.T) {
	client := newStubRedisClient()
	conn := dialStubRedis(t, client)
	defer conn.Close()
	conntest.RunConnContract(t, conn, conntest.Options{Seed: client.seed})
}

func TestRedisConnKeysDedupesAcrossScanPages(t *testing.T) {
	client := newStubRedisClient("a:1", "a:2", "a:3", "a:4", "a:5", "b:1")
	conn := dialStubRedis(t, client)

	keys, err := conn.Keys(context.Background(), "a:*")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if got := strings.Join(keys, ","); got != "a:1,a:2,a:3,a:4,a:5" {
		t.Fatalf("unexpected keys %q", got)
	}
	if client.scanCalls < 2 {
		t.Fatalf("expected multiple scan pages, got %d", client.scanCalls)
	}
}

func TestRedisConnDeleteManyEmptySkipsServer(t *testing.T) {
	client := newStubRedisClient("a")
	conn := dialStubRedis(t, client)
	n, err := conn.DeleteMany(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, n=%d err=%v", n, err)
	}
	if client.delCalls != 0 {
		t.Fatalf("expected DEL not sent, got %d calls", client.delCalls)
	}
}

func TestRedisConnPropagatesErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	client := newStubRedisClient("a")
	conn := dialStubRedis(t, client)
	client.pingErr = boom
	client.flushErr = boom
	client.scanErr = boom
	client.existsErr = boom
	client.delErr = boom

	if err := conn.Ready(ctx); !errors.Is(err, boom) {
		t.Fatalf("ready: expected boom, got %v", err)
	}
	if err := conn.Flush(ctx); !errors.Is(err, boom) {
		t.Fatalf("flush: expected boom, got %v", err)
	}
	if _, err := conn.Keys(ctx, "*"); !errors.Is(err, boom) {
		t.Fatalf("keys: expected boom, got %v", err)
	}
	if _, err := conn.Exists(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("exists: expected boom, got %v", err)
	}
	if _, err := conn.DeleteMany(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("delete: expected boom, got %v", err)
	}
}

func TestDialRedisUsesInjectedClient(t *testing.T) {
	client := newStubRedisClient("k")
	conn, err := cachectl.DialWith(context.Background(), cachectl.DriverRedis, cachectl.WithRedisClient(client))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if conn.Driver() != cachectl.DriverRedis {
		t.Fatalf("unexpected driver %q", conn.Driver())
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !client.closed {
		t.Fatalf("expected client closed")
	}
}

func TestDialRedisPingFailureIsConnectError(t *testing.T) {
	client := newStubRedisClient()
	client.pingErr = errors.New("connection refused")
	_, err := cachectl.DialWith(context.Background(), cachectl.DriverRedis, cachectl.WithRedisClient(client))
	if !errors.Is(err, cachectl.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if !client.closed {
		t.Fatalf("expected half-built conn closed")
	}
}
