package cachectl_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/goforj/cachectl"
	"github.com/goforj/cachectl/conntest"
)

func dialStubNATS(t *testing.T, kv *stubNATSKeyValue) cachectl.Conn {
	t.Helper()
	conn, err := cachectl.DialWith(context.Background(), cachectl.DriverNATS, cachectl.WithNATSKeyValue(kv))
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNATSConnContract(t *testing.T) {
	kv := newStubNATSKeyValue("cache")
	conn := dialStubNATS(t, kv)
	conntest.RunConnContract(t, conn, conntest.Options{
		Seed:      kv.seed,
		Separator: ".",
	})
}

func TestNATSConnSkipsTombstones(t *testing.T) {
	kv := newStubNATSKeyValue("cache")
	_ = kv.seed(context.Background(), "user.1", "user.2")
	kv.tombstone("user.2")
	conn := dialStubNATS(t, kv)
	ctx := context.Background()

	ok, err := conn.Exists(ctx, "user.2")
	if err != nil || ok {
		t.Fatalf("expected deleted key reported absent; ok=%v err=%v", ok, err)
	}
	n, err := conn.DeleteMany(ctx, "user.1", "user.2")
	if err != nil {
		t.Fatalf("delete many failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the live key counted, got %d", n)
	}
}

func TestNATSConnEmptyBucket(t *testing.T) {
	kv := newStubNATSKeyValue("cache")
	conn := dialStubNATS(t, kv)
	keys, err := conn.Keys(context.Background(), "*")
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected no keys, got %v err=%v", keys, err)
	}
	if err := conn.Flush(context.Background()); err != nil {
		t.Fatalf("flush of empty bucket failed: %v", err)
	}
}

func TestNATSConnPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	ctx := context.Background()

	kv := newStubNATSKeyValue("cache")
	_ = kv.seed(ctx, "a")
	conn := dialStubNATS(t, kv)

	kv.listErr = boom
	if _, err := conn.Keys(ctx, "*"); !errors.Is(err, boom) {
		t.Fatalf("keys: expected boom, got %v", err)
	}
	if err := conn.Flush(ctx); !errors.Is(err, boom) {
		t.Fatalf("flush: expected boom, got %v", err)
	}
	kv.listErr = nil

	kv.listerErr = boom
	if _, err := conn.Keys(ctx, "*"); !errors.Is(err, boom) {
		t.Fatalf("keys: expected lister error, got %v", err)
	}
	kv.listerErr = nil

	kv.getErr = boom
	if _, err := conn.Exists(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("exists: expected boom, got %v", err)
	}
	kv.getErr = nil

	kv.purgeErr = boom
	if _, err := conn.DeleteMany(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("delete: expected boom, got %v", err)
	}
}

type stubNATSKeyValue struct {
	bucket  string
	rev     uint64
	entries map[string]*stubNATSKeyValueEntry

	getErr    error
	purgeErr  error
	listErr   error
	listerErr error
}

func newStubNATSKeyValue(bucket string) *stubNATSKeyValue {
	return &stubNATSKeyValue{
		bucket:  bucket,
		entries: make(map[string]*stubNATSKeyValueEntry),
	}
}

func (s *stubNATSKeyValue) seed(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.rev++
		s.entries[key] = &stubNATSKeyValueEntry{
			bucket:   s.bucket,
			key:      key,
			value:    []byte("v"),
			revision: s.rev,
			created:  time.Now(),
			op:       nats.KeyValuePut,
		}
	}
	return nil
}

func (s *stubNATSKeyValue) tombstone(key string) {
	s.rev++
	s.entries[key] = &stubNATSKeyValueEntry{
		bucket:   s.bucket,
		key:      key,
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValueDelete,
	}
}

func (s *stubNATSKeyValue) Bucket() string { return s.bucket }

func (s *stubNATSKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	if entry.op == nats.KeyValueDelete || entry.op == nats.KeyValuePurge {
		return nil, nats.ErrKeyDeleted
	}
	cp := *entry
	return &cp, nil
}

func (s *stubNATSKeyValue) Purge(key string, _ ...nats.DeleteOpt) error {
	if s.purgeErr != nil {
		return s.purgeErr
	}
	delete(s.entries, key)
	return nil
}

func (s *stubNATSKeyValue) ListKeys(_ ...nats.WatchOpt) (nats.KeyLister, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.op == nats.KeyValuePut {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 && s.listerErr == nil {
		return nil, nats.ErrNoKeysFound
	}
	sort.Strings(keys)
	return newStubNATSKeyLister(keys, s.listerErr), nil
}

type stubNATSKeyValueEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
	delta    uint64
	op       nats.KeyValueOp
}

func (e *stubNATSKeyValueEntry) Bucket() string             { return e.bucket }
func (e *stubNATSKeyValueEntry) Key() string                { return e.key }
func (e *stubNATSKeyValueEntry) Value() []byte              { return append([]byte(nil), e.value...) }
func (e *stubNATSKeyValueEntry) Revision() uint64           { return e.revision }
func (e *stubNATSKeyValueEntry) Created() time.Time         { return e.created }
func (e *stubNATSKeyValueEntry) Delta() uint64              { return e.delta }
func (e *stubNATSKeyValueEntry) Operation() nats.KeyValueOp { return e.op }

type stubNATSKeyLister struct {
	keysCh chan string
	errCh  chan error
}

func newStubNATSKeyLister(keys []string, err error) *stubNATSKeyLister {
	keysCh := make(chan string, len(keys))
	errCh := make(chan error, 1)
	for _, key := range keys {
		keysCh <- key
	}
	if err != nil {
		errCh <- err
	}
	close(keysCh)
	close(errCh)
	return &stubNATSKeyLister{keysCh: keysCh, errCh: errCh}
}

func (l *stubNATSKeyLister) Keys() <-chan string { return l.keysCh }
func (l *stubNATSKeyLister) Error() <-chan error { return l.errCh }
func (l *stubNATSKeyLister) Stop() error         { return nil }

func TestNATSConnKeysGlob(t *testing.T) {
	kv := newStubNATSKeyValue("cache")
	_ = kv.seed(context.Background(), "user.1", "user.22", "session.9")
	conn := dialStubNATS(t, kv)

	keys, err := conn.Keys(context.Background(), "user.?")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if got := strings.Join(keys, ","); got != "user.1" {
		t.Fatalf("unexpected keys %q", got)
	}
}
