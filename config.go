package cachectl

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultHost        = "localhost"
	defaultDialTimeout = 5 * time.Second
	defaultNATSBucket  = "cache"
	defaultSQLTable    = "cache_entries"
	defaultDynamoTable = "cache_entries"
	defaultRegion      = "us-east-1"
)

var defaultPorts = map[Driver]int{
	DriverRedis:     6379,
	DriverMemcached: 11211,
	DriverNATS:      4222,
}

var defaultSQLPorts = map[string]int{
	"pgx":      5432,
	"postgres": 5432,
	"mysql":    3306,
}

func defaultFileDir() string {
	return filepath.Join(os.TempDir(), "cache-file")
}

// Config describes how to reach a cache backend.
type Config struct {
	Driver Driver

	Host string
	// Port defaults to the driver's well-known port when zero.
	Port int

	// Username and Password form the optional credential. Empty means no authentication.
	Username string
	Password string

	// DB selects the redis logical database (the namespace Flush clears).
	DB int

	DialTimeout time.Duration

	// NATSBucket names the JetStream key-value bucket.
	NATSBucket string

	// SQLDriverName is one of pgx, postgres, mysql or sqlite.
	SQLDriverName string
	// SQLDSN overrides the DSN built from Host, Port, Username, Password and SQLDatabase.
	SQLDSN      string
	SQLDatabase string
	SQLTable    string

	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// FileDir is the directory written by the goforj file cache store.
	FileDir string

	// Injected clients. When set they are used instead of dialing.
	RedisClient  RedisClient
	NATSKeyValue NATSKeyValue
	DynamoClient DynamoAPI
	MemoryCache  *gocache.Cache
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = DriverRedis
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port == 0 {
		if c.Driver == DriverSQL {
			c.Port = defaultSQLPorts[c.SQLDriverName]
		} else {
			c.Port = defaultPorts[c.Driver]
		}
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.NATSBucket == "" {
		c.NATSBucket = defaultNATSBucket
	}
	if c.SQLTable == "" {
		c.SQLTable = defaultSQLTable
	}
	if c.DynamoTable == "" {
		c.DynamoTable = defaultDynamoTable
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = defaultRegion
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	return c
}

// Validate reports configuration that no backend could dial.
func (c Config) Validate() error {
	c = c.withDefaults()
	if _, err := ParseDriver(string(c.Driver)); err != nil {
		return err
	}
	if c.Port < 0 || c.Port > 65535 {
		return invalidArgf("port %d out of range", c.Port)
	}
	if c.DB < 0 {
		return invalidArgf("redis database %d must not be negative", c.DB)
	}
	switch c.Driver {
	case DriverMemcached:
		if c.Password != "" {
			return invalidArgf("memcached text protocol does not support authentication")
		}
	case DriverSQL:
		switch c.SQLDriverName {
		case "pgx", "postgres", "mysql":
		case "sqlite":
			if c.SQLDSN == "" {
				return invalidArgf("sqlite requires a dsn")
			}
		case "":
			return invalidArgf("sql driver name is required")
		default:
			return invalidArgf("unsupported sql driver %q", c.SQLDriverName)
		}
		if err := validateSQLTableName(c.SQLTable); err != nil {
			return err
		}
	}
	return nil
}

// Addr returns host:port for network backends.
func (c Config) Addr() string {
	c = c.withDefaults()
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Target describes the configured namespace for operator output.
func (c Config) Target() string {
	c = c.withDefaults()
	switch c.Driver {
	case DriverRedis:
		if c.RedisClient != nil {
			return "injected client"
		}
		return c.Addr() + "/" + strconv.Itoa(c.DB)
	case DriverMemcached:
		return c.Addr()
	case DriverNATS:
		return c.Addr() + " bucket " + c.NATSBucket
	case DriverSQL:
		return c.SQLDriverName + " table " + c.SQLTable
	case DriverDynamo:
		if c.DynamoEndpoint != "" {
			return strings.TrimSuffix(c.DynamoEndpoint, "/") + " table " + c.DynamoTable
		}
		return c.DynamoRegion + " table " + c.DynamoTable
	case DriverFile:
		return c.FileDir
	default:
		return "in-process cache"
	}
}
