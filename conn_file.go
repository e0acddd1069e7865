package cachectl

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileRecordExt = ".cache"

var fileRecordMagic = []byte("CFR1")

type fileRecord struct {
	ExpiresAt int64  `json:"expires_at"`
	Value     []byte `json:"value"`
}

// fileConn administers a goforj file cache directory. Records are named by
// the sha256 of their key, so keys cannot be recovered from the directory.
type fileConn struct {
	dir string
}

func newFileConn(dir string) Conn {
	if dir == "" {
		dir = defaultFileDir()
	}
	return &fileConn{dir: dir}
}

func (c *fileConn) Driver() Driver { return DriverFile }

func (c *fileConn) Ready(context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New(c.dir + " is not a directory")
	}
	return nil
}

// Flush removes cache records and leaves unrelated files alone.
func (c *fileConn) Flush(context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileRecordExt) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (c *fileConn) Keys(_ context.Context, pattern string) ([]string, error) {
	if _, err := compilePattern(pattern); err != nil {
		return nil, err
	}
	return nil, ErrEnumerationUnsupported
}

func (c *fileConn) Exists(_ context.Context, key string) (bool, error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	expiresAt, _, err := decodeFileRecord(data)
	if err != nil {
		return false, err
	}
	return expiresAt <= 0 || time.Now().UnixNano() <= expiresAt, nil
}

func (c *fileConn) DeleteMany(_ context.Context, keys ...string) (int64, error) {
	var removed int64
	for _, key := range keys {
		err := os.Remove(c.path(key))
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, err
		}
	}
	return removed, nil
}

func (c *fileConn) Close() error { return nil }

func (c *fileConn) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+fileRecordExt)
}

func decodeFileRecord(data []byte) (int64, []byte, error) {
	if len(data) >= 12 && bytes.Equal(data[:4], fileRecordMagic) {
		expiresAt := int64(binary.BigEndian.Uint64(data[4:12]))
		return expiresAt, data[12:], nil
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, nil, err
	}
	return rec.ExpiresAt, rec.Value, nil
}
