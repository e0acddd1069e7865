package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goforj/cachectl"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cachectl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSections(t *testing.T) {
	path := writeConfig(t, `
driver = "sql"
dial_timeout = "2s"
dry_run = true

[sql]
driver = "sqlite"
dsn = "/tmp/cache.db"
table = "app_cache"

[nats]
bucket = "sessions"
`)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if f.Driver != "sql" || f.SQL.Driver != "sqlite" || f.SQL.Table != "app_cache" || !f.DryRun || f.NATS.Bucket != "sessions" {
		t.Fatalf("unexpected file %+v", f)
	}
	cfg, err := f.Config()
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if cfg.Driver != cachectl.DriverSQL || cfg.SQLDSN != "/tmp/cache.db" || cfg.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
	if _, err := Load(writeConfig(t, "driver = ")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"CACHECTL_DRIVER":   "redis",
		"CACHECTL_HOST":     "cache.internal",
		"CACHECTL_PORT":     "6380",
		"CACHECTL_PASSWORD": "pw",
		"CACHECTL_DB":       "2",
		"CACHECTL_DRY_RUN":  "true",
	}
	f := File{Driver: "memcached", Host: "old"}
	if err := ApplyEnv(&f, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if f.Driver != "redis" || f.Host != "cache.internal" || f.Port != 6380 || f.Password != "pw" || f.DB != 2 || !f.DryRun {
		t.Fatalf("env not applied: %+v", f)
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	f := File{}
	err := ApplyEnv(&f, func(k string) string {
		if k == "CACHECTL_PORT" {
			return "http"
		}
		return ""
	})
	if err == nil {
		t.Fatalf("expected error for bad port")
	}
}

func TestConfigRejectsBadValues(t *testing.T) {
	if _, err := (File{Driver: "etcd"}).Config(); !errors.Is(err, cachectl.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for driver, got %v", err)
	}
	if _, err := (File{DialTimeout: "soon"}).Config(); err == nil {
		t.Fatalf("expected dial timeout parse error")
	}
	if _, err := (File{Driver: "memcached", Password: "x"}).Config(); !errors.Is(err, cachectl.ErrInvalidArgument) {
		t.Fatalf("expected memcached password rejected, got %v", err)
	}
}
