package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/goforj/cachectl"
)

// File is the CLI configuration, read from TOML and overridden by
// CACHECTL_* variables and flags.
type File struct {
	Driver      string `toml:"driver"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	DB          int    `toml:"db"`
	DialTimeout string `toml:"dial_timeout"`
	LogLevel    string `toml:"log_level"`
	DryRun      bool   `toml:"dry_run"`

	NATS   NATSSection   `toml:"nats"`
	SQL    SQLSection    `toml:"sql"`
	Dynamo DynamoSection `toml:"dynamodb"`
	Files  FileSection   `toml:"file"`
}

type NATSSection struct {
	Bucket string `toml:"bucket"`
}

type SQLSection struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
	Table    string `toml:"table"`
}

type DynamoSection struct {
	Table    string `toml:"table"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
}

type FileSection struct {
	Dir string `toml:"dir"`
}

// Load reads a TOML config file.
func Load(path string) (File, error) {
	var f File
	if err := loadToml(path, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

func loadToml(path string, out any) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("load config %q: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, out); err != nil {
		return fmt.Errorf("load config: parse %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides f with non-empty CACHECTL_* variables read via getenv.
func ApplyEnv(f *File, getenv func(string) string) error {
	strs := map[string]*string{
		"CACHECTL_DRIVER":          &f.Driver,
		"CACHECTL_HOST":            &f.Host,
		"CACHECTL_USERNAME":        &f.Username,
		"CACHECTL_PASSWORD":        &f.Password,
		"CACHECTL_DIAL_TIMEOUT":    &f.DialTimeout,
		"CACHECTL_NATS_BUCKET":     &f.NATS.Bucket,
		"CACHECTL_SQL_DRIVER":      &f.SQL.Driver,
		"CACHECTL_SQL_DSN":         &f.SQL.DSN,
		"CACHECTL_SQL_DATABASE":    &f.SQL.Database,
		"CACHECTL_SQL_TABLE":       &f.SQL.Table,
		"CACHECTL_DYNAMO_TABLE":    &f.Dynamo.Table,
		"CACHECTL_DYNAMO_REGION":   &f.Dynamo.Region,
		"CACHECTL_DYNAMO_ENDPOINT": &f.Dynamo.Endpoint,
		"CACHECTL_FILE_DIR":        &f.Files.Dir,
	}
	for name, dst := range strs {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"CACHECTL_PORT": &f.Port,
		"CACHECTL_DB":   &f.DB,
	}
	for name, dst := range ints {
		raw := strings.TrimSpace(getenv(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	if raw := strings.TrimSpace(getenv("CACHECTL_DRY_RUN")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("CACHECTL_DRY_RUN: %w", err)
		}
		f.DryRun = v
	}
	return nil
}

// Config converts f into connection parameters.
func (f File) Config() (cachectl.Config, error) {
	cfg := cachectl.Config{
		Host:           f.Host,
		Port:           f.Port,
		Username:       f.Username,
		Password:       f.Password,
		DB:             f.DB,
		NATSBucket:     f.NATS.Bucket,
		SQLDriverName:  f.SQL.Driver,
		SQLDSN:         f.SQL.DSN,
		SQLDatabase:    f.SQL.Database,
		SQLTable:       f.SQL.Table,
		DynamoTable:    f.Dynamo.Table,
		DynamoRegion:   f.Dynamo.Region,
		DynamoEndpoint: f.Dynamo.Endpoint,
		FileDir:        f.Files.Dir,
	}
	if f.Driver != "" {
		driver, err := cachectl.ParseDriver(f.Driver)
		if err != nil {
			return cachectl.Config{}, err
		}
		cfg.Driver = driver
	}
	if f.DialTimeout != "" {
		d, err := time.ParseDuration(f.DialTimeout)
		if err != nil {
			return cachectl.Config{}, fmt.Errorf("dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}
	if err := cfg.Validate(); err != nil {
		return cachectl.Config{}, err
	}
	return cfg, nil
}
