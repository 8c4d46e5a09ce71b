package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"takeatoll/backend/services/tolls-service/internal/service"
)

func TestLoadFileWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tolls.yaml")
	content := []byte(`
http:
  port: "9000"
database:
  dsn: postgres://tolls@localhost/tolls
ledger:
  openSegmentScope: transponder
billing:
  interval: 1h
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TOLLS_HTTP_PORT", "9100")
	t.Setenv("TOLLS_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddress() != ":9100" {
		t.Fatalf("expected :9100, got %s", cfg.HTTPAddress())
	}
	if cfg.Scope() != service.ScopeTransponder {
		t.Fatalf("expected transponder scope, got %s", cfg.Scope())
	}
	if cfg.Billing.Interval != time.Hour {
		t.Fatalf("expected 1h interval, got %s", cfg.Billing.Interval)
	}
	if !cfg.RedisEnabled() || cfg.Redis.StationTTL != 10*time.Minute {
		t.Fatalf("expected redis enabled with default ttl, got %+v", cfg.Redis)
	}
	if cfg.Feed.PingInterval != 30*time.Second {
		t.Fatalf("expected default ping interval, got %s", cfg.Feed.PingInterval)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("TOLLS_POSTGRES_DSN", "")
	if _, err := LoadFile(""); err == nil {
		t.Fatalf("expected missing DSN error")
	}
}

func TestValidateRejectsUnknownScope(t *testing.T) {
	cfg := Defaults()
	cfg.Database.DSN = "postgres://localhost/tolls"
	cfg.Ledger.OpenSegmentScope = "station"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected scope error")
	}
}

func TestDefaultsUseGlobalScope(t *testing.T) {
	cfg := Defaults()
	cfg.Database.DSN = "postgres://localhost/tolls"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Scope() != service.ScopeGlobal || cfg.RedisEnabled() {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.HTTPAddress() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.HTTPAddress())
	}
}
