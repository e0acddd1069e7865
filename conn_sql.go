package cachectl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqlDeleteChunk keeps IN lists below every driver's placeholder limit.
const sqlDeleteChunk = 500

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlConn administers the goforj cache table layout (k primary key, v, ea).
// Only the key column is read.
type sqlConn struct {
	db         *sql.DB
	table      string
	driverName string
}

func newSQLConn(cfg Config) (Conn, error) {
	driverName, dsn, err := sqlDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &sqlConn{db: db, table: cfg.SQLTable, driverName: driverName}, nil
}

// sqlDSN resolves the database/sql driver and DSN, building the DSN from
// host, port and credential when none is given.
func sqlDSN(cfg Config) (string, string, error) {
	switch cfg.SQLDriverName {
	case "pgx", "postgres":
		if cfg.SQLDSN != "" {
			return "pgx", cfg.SQLDSN, nil
		}
		u := url.URL{
			Scheme:   "postgres",
			Host:     cfg.Addr(),
			Path:     "/" + cfg.SQLDatabase,
			RawQuery: "connect_timeout=" + strconv.Itoa(int(cfg.DialTimeout.Seconds())),
		}
		switch {
		case cfg.Password != "":
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		case cfg.Username != "":
			u.User = url.User(cfg.Username)
		}
		return "pgx", u.String(), nil
	case "mysql":
		if cfg.SQLDSN != "" {
			return "mysql", cfg.SQLDSN, nil
		}
		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Addr()
		mc.DBName = cfg.SQLDatabase
		mc.Timeout = cfg.DialTimeout
		return "mysql", mc.FormatDSN(), nil
	case "sqlite":
		if cfg.SQLDSN == "" {
			return "", "", invalidArgf("sqlite requires a dsn")
		}
		return "sqlite", cfg.SQLDSN, nil
	default:
		return "", "", invalidArgf("unsupported sql driver %q", cfg.SQLDriverName)
	}
}

func (c *sqlConn) Driver() Driver { return DriverSQL }

func (c *sqlConn) Ready(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return err
	}
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT k FROM %s WHERE 1 = 0", c.table))
	if err != nil {
		return fmt.Errorf("cache table %s: %w", c.table, err)
	}
	return rows.Close()
}

func (c *sqlConn) Flush(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c.table))
	return err
}

// Keys narrows the scan with LIKE on the pattern's literal prefix and
// applies the full glob client side.
func (c *sqlConn) Keys(ctx context.Context, pattern string) ([]string, error) {
	matcher, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT k FROM %s", c.table)
	var args []any
	if prefix := literalPrefix(pattern); prefix != "" {
		query += " WHERE k LIKE " + c.ph(1) + " ESCAPE '!'"
		args = append(args, escapeLike(prefix)+"%")
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		if matcher.Match(key) {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}

func (c *sqlConn) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE k = %s", c.table, c.ph(1)), key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *sqlConn) DeleteMany(ctx context.Context, keys ...string) (int64, error) {
	var removed int64
	for start := 0; start < len(keys); start += sqlDeleteChunk {
		end := start + sqlDeleteChunk
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]
		placeholders := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk))
		for i, key := range chunk {
			placeholders = append(placeholders, c.ph(i+1))
			args = append(args, key)
		}
		res, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k IN (%s)", c.table, strings.Join(placeholders, ",")), args...)
		if err != nil {
			return removed, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

func (c *sqlConn) ph(i int) string {
	if c.driverName == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalidArgf("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return invalidArgf("invalid sql table name %q", name)
		}
	}
	return nil
}
