package cachectl

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Option mutates Config when dialing with DialWith.
type Option func(Config) Config

// WithAddress sets host and port. A zero port keeps the driver default.
func WithAddress(host string, port int) Option {
	return func(cfg Config) Config {
		cfg.Host = host
		cfg.Port = port
		return cfg
	}
}

// WithCredential sets the optional username and password.
func WithCredential(username, password string) Option {
	return func(cfg Config) Config {
		cfg.Username = username
		cfg.Password = password
		return cfg
	}
}

// WithDB selects the redis logical database.
func WithDB(db int) Option {
	return func(cfg Config) Config {
		cfg.DB = db
		return cfg
	}
}

// WithDialTimeout overrides the connect timeout passed to client libraries.
func WithDialTimeout(timeout time.Duration) Option {
	return func(cfg Config) Config {
		cfg.DialTimeout = timeout
		return cfg
	}
}

// WithRedisClient uses an existing redis client instead of dialing one.
func WithRedisClient(client RedisClient) Option {
	return func(cfg Config) Config {
		cfg.RedisClient = client
		return cfg
	}
}

// WithNATSBucket sets the JetStream key-value bucket.
func WithNATSBucket(bucket string) Option {
	return func(cfg Config) Config {
		cfg.NATSBucket = bucket
		return cfg
	}
}

// WithNATSKeyValue uses an existing bucket handle instead of dialing NATS.
func WithNATSKeyValue(kv NATSKeyValue) Option {
	return func(cfg Config) Config {
		cfg.NATSKeyValue = kv
		return cfg
	}
}

// WithSQL sets the database/sql driver name and DSN.
func WithSQL(driverName, dsn string) Option {
	return func(cfg Config) Config {
		cfg.SQLDriverName = driverName
		cfg.SQLDSN = dsn
		return cfg
	}
}

// WithSQLDatabase sets the database name used when the DSN is built from parts.
func WithSQLDatabase(name string) Option {
	return func(cfg Config) Config {
		cfg.SQLDatabase = name
		return cfg
	}
}

// WithSQLTable sets the cache table name.
func WithSQLTable(table string) Option {
	return func(cfg Config) Config {
		cfg.SQLTable = table
		return cfg
	}
}

// WithDynamoTable sets the DynamoDB table.
func WithDynamoTable(table string) Option {
	return func(cfg Config) Config {
		cfg.DynamoTable = table
		return cfg
	}
}

// WithDynamoRegion sets the AWS region.
func WithDynamoRegion(region string) Option {
	return func(cfg Config) Config {
		cfg.DynamoRegion = region
		return cfg
	}
}

// WithDynamoEndpoint points the DynamoDB client at a custom endpoint (e.g. dynamodb-local).
func WithDynamoEndpoint(endpoint string) Option {
	return func(cfg Config) Config {
		cfg.DynamoEndpoint = endpoint
		return cfg
	}
}

// WithDynamoClient uses an existing DynamoDB client.
func WithDynamoClient(client DynamoAPI) Option {
	return func(cfg Config) Config {
		cfg.DynamoClient = client
		return cfg
	}
}

// WithFileDir sets the file cache directory.
func WithFileDir(dir string) Option {
	return func(cfg Config) Config {
		cfg.FileDir = dir
		return cfg
	}
}

// WithMemoryCache administers an existing in-process go-cache instance.
func WithMemoryCache(c *gocache.Cache) Option {
	return func(cfg Config) Config {
		cfg.MemoryCache = c
		return cfg
	}
}
