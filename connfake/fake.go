package connfake

import (
	"context"
	"sync"
	"testing"

	"github.com/goforj/cachectl"
	gocache "github.com/patrickmn/go-cache"
)

// Op identifies a Conn call for assertions.
type Op string

const (
	OpDial       Op = "dial"
	OpReady      Op = "ready"
	OpFlush      Op = "flush"
	OpKeys       Op = "keys"
	OpExists     Op = "exists"
	OpDeleteMany Op = "delete_many"
	OpClose      Op = "close"
)

// Fake is a deterministic in-memory store plus assertion helpers. Its Dial
// method satisfies cachectl.DialFunc so a Tool can be pointed at it.
type Fake struct {
	mu      sync.Mutex
	keys    []string
	counts  map[Op]map[string]int
	calls   map[Op]int
	fail    map[Op]error
	dialErr error
	open    int
}

// New creates a Fake seeded with keys, kept in the given order.
func New(keys ...string) *Fake {
	f := &Fake{
		counts: make(map[Op]map[string]int),
		calls:  make(map[Op]int),
		fail:   make(map[Op]error),
	}
	f.Seed(keys...)
	return f
}

// Seed adds keys not already present.
func (f *Fake) Seed(keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		if f.indexLocked(key) < 0 {
			f.keys = append(f.keys, key)
		}
	}
}

// Keys returns the keys currently stored.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// Has reports whether key is stored.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexLocked(key) >= 0
}

// FailOn makes every later call of op return err.
func (f *Fake) FailOn(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op == OpDial {
		f.dialErr = err
		return
	}
	f.fail[op] = err
}

// FailDial makes Dial return err, simulating an unreachable store.
func (f *Fake) FailDial(err error) { f.FailOn(OpDial, err) }

// Open returns the number of connections dialed and not yet closed.
func (f *Fake) Open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Dial returns a Conn over the fake's keys.
func (f *Fake) Dial(_ context.Context, cfg cachectl.Config) (cachectl.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpDial]++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	f.open++
	driver := cfg.Driver
	if driver == "" {
		driver = cachectl.DriverMemory
	}
	return &conn{fake: f, driver: driver}, nil
}

// Reset clears recorded calls and injected failures.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
	f.calls = make(map[Op]int)
	f.fail = make(map[Op]error)
	f.dialErr = nil
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures op was never invoked.
func (f *Fake) AssertNotCalled(t *testing.T, op Op) {
	t.Helper()
	if got := f.Calls(op); got != 0 {
		t.Fatalf("expected %s not called, got %d calls", op, got)
	}
}

// AssertTotal ensures op was invoked times times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Calls(op); got != times {
		t.Fatalf("expected %s calls=%d, got %d", op, times, got)
	}
}

// Count returns how often op touched key. DeleteMany counts once per key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op][key]
}

// Calls returns the number of invocations of op.
func (f *Fake) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) record(op Op, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	for _, key := range keys {
		f.counts[op][key]++
	}
	return f.fail[op]
}

func (f *Fake) indexLocked(key string) int {
	for i, k := range f.keys {
		if k == key {
			return i
		}
	}
	return -1
}

type conn struct {
	fake   *Fake
	driver cachectl.Driver
	closed bool
}

func (c *conn) Driver() cachectl.Driver { return c.driver }

func (c *conn) Ready(context.Context) error {
	return c.fake.record(OpReady)
}

func (c *conn) Flush(context.Context) error {
	if err := c.fake.record(OpFlush); err != nil {
		return err
	}
	c.fake.mu.Lock()
	c.fake.keys = nil
	c.fake.mu.Unlock()
	return nil
}

// Keys matches through the memory backend so patterns behave like the
// real client-side matcher, then restores seed order.
func (c *conn) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := c.fake.record(OpKeys, pattern); err != nil {
		return nil, err
	}
	snapshot := c.fake.Keys()
	store := gocache.New(gocache.NoExpiration, 0)
	for _, key := range snapshot {
		store.Set(key, struct{}{}, gocache.NoExpiration)
	}
	matched, err := cachectl.NewMemoryConn(store).Keys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(matched))
	for _, key := range matched {
		set[key] = struct{}{}
	}
	out := make([]string, 0, len(matched))
	for _, key := range snapshot {
		if _, ok := set[key]; ok {
			out = append(out, key)
		}
	}
	return out, nil
}

func (c *conn) Exists(_ context.Context, key string) (bool, error) {
	if err := c.fake.record(OpExists, key); err != nil {
		return false, err
	}
	return c.fake.Has(key), nil
}

func (c *conn) DeleteMany(_ context.Context, keys ...string) (int64, error) {
	if err := c.fake.record(OpDeleteMany, keys...); err != nil {
		return 0, err
	}
	c.fake.mu.Lock()
	defer c.fake.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if i := c.fake.indexLocked(key); i >= 0 {
			c.fake.keys = append(c.fake.keys[:i], c.fake.keys[i+1:]...)
			removed++
		}
	}
	return removed, nil
}

func (c *conn) Close() error {
	err := c.fake.record(OpClose)
	c.fake.mu.Lock()
	if !c.closed {
		c.closed = true
		c.fake.open--
	}
	c.fake.mu.Unlock()
	return err
}
