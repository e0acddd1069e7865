package cachectl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Tool runs one maintenance operation per call against a freshly dialed
// Conn. It holds only immutable configuration, so one Tool may serve
// concurrent callers; each call owns its Conn.
type Tool struct {
	cfg      Config
	out      io.Writer
	logger   *zap.Logger
	observer Observer
	dial     DialFunc
	dryRun   bool
}

// ToolOption configures a Tool.
type ToolOption func(*Tool)

// WithOutput sets the operator narration stream. Defaults to stdout.
func WithOutput(w io.Writer) ToolOption {
	return func(t *Tool) {
		if w != nil {
			t.out = w
		}
	}
}

// WithLogger sets the diagnostic logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) ToolOption {
	return func(t *Tool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithObserver registers an observer called after every operation.
func WithObserver(o Observer) ToolOption {
	return func(t *Tool) { t.observer = o }
}

// WithDialer replaces Dial, typically with connfake.Fake.Dial in tests.
func WithDialer(dial DialFunc) ToolOption {
	return func(t *Tool) {
		if dial != nil {
			t.dial = dial
		}
	}
}

// WithDryRun reads from the store but skips every flush and delete.
func WithDryRun(enabled bool) ToolOption {
	return func(t *Tool) { t.dryRun = enabled }
}

// NewTool builds a Tool for cfg.
func NewTool(cfg Config, opts ...ToolOption) *Tool {
	t := &Tool{
		cfg:    cfg.withDefaults(),
		out:    os.Stdout,
		logger: zap.NewNop(),
		dial:   Dial,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run dispatches op with its positional arguments: none for flush, one
// pattern for clear-pattern, one or more keys for clear-keys and an
// optional pattern for list.
func (t *Tool) Run(ctx context.Context, op Operation, args ...string) (Result, error) {
	switch op {
	case OpFlush:
		if len(args) != 0 {
			return t.reject(ctx, op, invalidArgf("%s takes no arguments", op))
		}
		return t.FlushAll(ctx)
	case OpClearPattern:
		if len(args) != 1 {
			return t.reject(ctx, op, invalidArgf("%s takes exactly one pattern", op))
		}
		return t.ClearByPattern(ctx, args[0])
	case OpClearKeys:
		return t.ClearKeys(ctx, args)
	case OpList:
		if len(args) > 1 {
			return t.reject(ctx, op, invalidArgf("%s takes at most one pattern", op))
		}
		pattern := matchAll
		if len(args) == 1 {
			pattern = args[0]
		}
		return t.ListKeys(ctx, pattern)
	default:
		return t.reject(ctx, op, invalidArgf("unknown operation %q", op))
	}
}

// FlushAll removes every key in the configured namespace. It cannot be undone.
func (t *Tool) FlushAll(ctx context.Context) (Result, error) {
	return t.withConn(ctx, OpFlush, func(conn Conn, res Result) (Result, error) {
		if t.dryRun {
			t.say("Dry run: would flush every key in %s %s", res.Driver, t.cfg.Target())
			return res, nil
		}
		t.say("Warning: flushing every key in %s %s; this cannot be undone", res.Driver, t.cfg.Target())
		if err := conn.Flush(ctx); err != nil {
			return res, commandErr("flush", err)
		}
		t.logger.Debug("flushed namespace", zap.String("driver", string(res.Driver)))
		t.say("Flushed all keys")
		return res, nil
	})
}

// ClearByPattern deletes every key matching pattern in one bulk call.
// The reported deleted count is the size of the matched set.
func (t *Tool) ClearByPattern(ctx context.Context, pattern string) (Result, error) {
	if pattern == "" {
		return t.reject(ctx, OpClearPattern, invalidArgf("pattern must not be empty"))
	}
	return t.withConn(ctx, OpClearPattern, func(conn Conn, res Result) (Result, error) {
		res.Pattern = pattern
		keys, err := conn.Keys(ctx, pattern)
		if err != nil {
			return res, commandErr("keys", err)
		}
		res.Keys = keys
		res.Matched = len(keys)
		t.say("Found %d keys matching pattern %q", len(keys), pattern)
		if len(keys) == 0 {
			t.say("No keys to delete")
			return res, nil
		}
		removed, err := conn.DeleteMany(ctx, keys...)
		if err != nil {
			return res, commandErr("delete", err)
		}
		t.logger.Debug("bulk delete",
			zap.String("pattern", pattern),
			zap.Int("matched", len(keys)),
			zap.Int64("store_removed", removed),
		)
		res.Deleted = len(keys)
		t.sayDeleted(res.Deleted, nil)
		return res, nil
	})
}

// ClearKeys checks each key in order and deletes the ones that exist in a
// single bulk call. Missing keys are skipped; duplicates are checked again.
func (t *Tool) ClearKeys(ctx context.Context, keys []string) (Result, error) {
	if len(keys) == 0 {
		return t.reject(ctx, OpClearKeys, invalidArgf("at least one key is required"))
	}
	for i, key := range keys {
		if key == "" {
			return t.reject(ctx, OpClearKeys, invalidArgf("key %d is empty", i+1))
		}
	}
	return t.withConn(ctx, OpClearKeys, func(conn Conn, res Result) (Result, error) {
		res.Requested = len(keys)
		var existing []string
		for _, key := range keys {
			ok, err := conn.Exists(ctx, key)
			if err != nil {
				return res, commandErr("exists "+key, err)
			}
			if ok {
				existing = append(existing, key)
			}
		}
		res.Keys = existing
		res.Matched = len(existing)
		t.say("Found %d/%d keys present", len(existing), len(keys))
		if len(existing) == 0 {
			t.say("No keys to delete")
			return res, nil
		}
		removed, err := conn.DeleteMany(ctx, existing...)
		if err != nil {
			return res, commandErr("delete", err)
		}
		t.logger.Debug("bulk delete",
			zap.Int("requested", len(keys)),
			zap.Int("existing", len(existing)),
			zap.Int64("store_removed", removed),
		)
		res.Deleted = len(existing)
		t.sayDeleted(res.Deleted, existing)
		return res, nil
	})
}

// ListKeys enumerates keys matching pattern, or every key when pattern is
// empty, and prints a 1-indexed listing in store order.
func (t *Tool) ListKeys(ctx context.Context, pattern string) (Result, error) {
	if pattern == "" {
		pattern = matchAll
	}
	return t.withConn(ctx, OpList, func(conn Conn, res Result) (Result, error) {
		res.Pattern = pattern
		keys, err := conn.Keys(ctx, pattern)
		if err != nil {
			return res, commandErr("keys", err)
		}
		res.Keys = keys
		res.Matched = len(keys)
		t.say("Total keys: %d", len(keys))
		if len(keys) > 0 {
			t.say("Keys:")
			for i, key := range keys {
				t.say("%d. %s", i+1, key)
			}
		}
		return res, nil
	})
}

// withConn dials, runs fn and always closes the Conn. Failures are narrated
// and returned; the disconnect line ends every invocation.
func (t *Tool) withConn(ctx context.Context, op Operation, fn func(Conn, Result) (Result, error)) (res Result, err error) {
	start := time.Now()
	res = t.newResult(op)
	defer func() { t.observe(ctx, res, err, time.Since(start)) }()

	conn, err := t.dial(ctx, t.cfg)
	if err != nil {
		if !errors.Is(err, ErrConnect) && !errors.Is(err, ErrInvalidArgument) {
			err = connectErr(res.Driver, err)
		}
		t.sayError(err)
		t.say("Disconnected from %s (no connection was open)", res.Driver)
		return res, err
	}
	t.say("Connected to %s at %s", res.Driver, t.cfg.Target())
	if t.dryRun {
		conn = newDryRunConn(conn)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			t.logger.Warn("close connection", zap.String("driver", string(res.Driver)), zap.Error(cerr))
		}
		t.say("Disconnected from %s", res.Driver)
	}()

	res, err = fn(conn, res)
	if err != nil {
		t.sayError(err)
	}
	return res, err
}

// reject narrates an argument error for an invocation that never dialed.
func (t *Tool) reject(ctx context.Context, op Operation, err error) (Result, error) {
	res := t.newResult(op)
	t.sayError(err)
	t.say("Disconnected from %s (no connection was open)", res.Driver)
	t.observe(ctx, res, err, 0)
	return res, err
}

func (t *Tool) newResult(op Operation) Result {
	return Result{Operation: op, Driver: t.cfg.Driver, DryRun: t.dryRun}
}

func (t *Tool) observe(ctx context.Context, res Result, err error, dur time.Duration) {
	if t.observer != nil {
		t.observer.OnOperation(ctx, res.Operation, res.Affected(), err, dur, res.Driver)
	}
}

func (t *Tool) sayDeleted(n int, keys []string) {
	verb := "Deleted"
	if t.dryRun {
		verb = "Dry run: would delete"
	}
	if len(keys) == 0 {
		t.say("%s %d keys", verb, n)
		return
	}
	t.say("%s %d keys: %s", verb, n, strings.Join(keys, ", "))
}

func (t *Tool) sayError(err error) {
	t.logger.Debug("operation failed", zap.Error(err))
	t.say("Error: %v", err)
}

func (t *Tool) say(format string, args ...any) {
	fmt.Fprintf(t.out, format+"\n", args...)
}
