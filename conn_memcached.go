package cachectl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const memcachedMaxKeyLen = 250

var dialMemcached = func(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

// memcachedConn speaks the memcached text protocol over a single socket.
type memcachedConn struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
}

func newMemcachedConn(ctx context.Context, cfg Config) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	addr := cfg.Addr()
	conn, err := dialMemcached(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("memcached dial %s: %w", addr, err)
	}
	return &memcachedConn{addr: addr, conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (c *memcachedConn) Driver() Driver { return DriverMemcached }

func (c *memcachedConn) Ready(ctx context.Context) error {
	line, err := c.roundTrip(ctx, "version")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(line, "VERSION") {
		return fmt.Errorf("memcached version failed: %s", line)
	}
	return nil
}

func (c *memcachedConn) Flush(ctx context.Context) error {
	line, err := c.roundTrip(ctx, "flush_all")
	if err != nil {
		return err
	}
	if line != "OK" {
		return fmt.Errorf("memcached flush failed: %s", line)
	}
	return nil
}

// Keys dumps the LRU crawler metadata (memcached >= 1.4.31) and filters it
// with the glob pattern.
func (c *memcachedConn) Keys(ctx context.Context, pattern string) ([]string, error) {
	matcher, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	line, err := c.roundTrip(ctx, "lru_crawler metadump all")
	if err != nil {
		return nil, err
	}
	var keys []string
	seen := make(map[string]struct{})
	for {
		switch {
		case line == "END":
			return keys, nil
		case line == "ERROR" || strings.HasPrefix(line, "CLIENT_ERROR"):
			return nil, fmt.Errorf("%w: memcached: %s", ErrEnumerationUnsupported, line)
		case strings.HasPrefix(line, "BUSY") || strings.HasPrefix(line, "SERVER_ERROR"):
			return nil, fmt.Errorf("memcached metadump failed: %s", line)
		case strings.HasPrefix(line, "key="):
			key, err := parseMetadumpKey(line)
			if err != nil {
				return nil, err
			}
			if matcher.Match(key) {
				keys = appendUnique(keys, seen, key)
			}
		}
		if line, err = c.readLine(); err != nil {
			return nil, err
		}
	}
}

func (c *memcachedConn) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateMemcachedKey(key); err != nil {
		return false, err
	}
	line, err := c.roundTrip(ctx, "get "+key)
	if err != nil {
		return false, err
	}
	if line == "END" {
		return false, nil
	}
	parts := strings.Fields(line)
	if len(parts) < 4 || parts[0] != "VALUE" {
		return false, fmt.Errorf("memcached get failed: %s", line)
	}
	size, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return false, fmt.Errorf("memcached get: bad length %q", parts[3])
	}
	if _, err := io.CopyN(io.Discard, c.reader, size+2); err != nil {
		return false, err
	}
	if line, err = c.readLine(); err != nil {
		return false, err
	}
	if line != "END" {
		return false, fmt.Errorf("memcached get: unexpected trailer %q", line)
	}
	return true, nil
}

// DeleteMany issues one delete per key; the text protocol has no multi-key delete.
func (c *memcachedConn) DeleteMany(ctx context.Context, keys ...string) (int64, error) {
	var removed int64
	for _, key := range keys {
		if err := validateMemcachedKey(key); err != nil {
			return removed, err
		}
		line, err := c.roundTrip(ctx, "delete "+key)
		if err != nil {
			return removed, err
		}
		switch line {
		case "DELETED":
			removed++
		case "NOT_FOUND":
		default:
			return removed, fmt.Errorf("memcached delete failed: %s", line)
		}
	}
	return removed, nil
}

func (c *memcachedConn) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *memcachedConn) roundTrip(ctx context.Context, command string) (string, error) {
	if c.conn == nil {
		return "", errors.New("memcached connection unavailable")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", command); err != nil {
		return "", err
	}
	return c.readLine()
}

func (c *memcachedConn) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseMetadumpKey(line string) (string, error) {
	field := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		field = line[:i]
	}
	key, err := url.QueryUnescape(strings.TrimPrefix(field, "key="))
	if err != nil {
		return "", fmt.Errorf("memcached metadump: bad key %q: %w", field, err)
	}
	return key, nil
}

func validateMemcachedKey(key string) error {
	if key == "" || len(key) > memcachedMaxKeyLen {
		return invalidArgf("memcached key length must be 1-%d bytes", memcachedMaxKeyLen)
	}
	for _, r := range key {
		if r <= ' ' || r == 0x7f {
			return invalidArgf("memcached key %q contains whitespace or control characters", key)
		}
	}
	return nil
}
