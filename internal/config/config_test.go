package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "")
	t.Setenv("AUTH_COOKIE_NAME", "")
	t.Setenv("POSTGRES_DSN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.SessionTTL() != 2*time.Hour {
		t.Errorf("expected 2h session ttl, got %s", cfg.Auth.SessionTTL())
	}
	if cfg.Auth.CookieName != "token" {
		t.Errorf("expected cookie name token, got %q", cfg.Auth.CookieName)
	}
	if cfg.Auth.AllowLegacyPlaintext {
		t.Error("legacy plaintext must be off by default")
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Errorf("unexpected addr %s", cfg.App.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "15")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.App.Port)
	}
	if cfg.Auth.SessionTTL() != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.Auth.SessionTTL())
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limit should be disabled")
	}
	if cfg.App.RequestTimeout() != 0 {
		t.Errorf("expected no timeout, got %s", cfg.App.RequestTimeout())
	}
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for default secret in production")
	}
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid REDIS_DB")
	}
}
