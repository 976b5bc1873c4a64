package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.DatabaseType != "sqlite" || cfg.DatabasePath != "./coinzy.db" {
		t.Errorf("database = %s %s", cfg.DatabaseType, cfg.DatabasePath)
	}
	if cfg.DailyResetCron != "0 0 0 * * *" {
		t.Errorf("DailyResetCron = %q", cfg.DailyResetCron)
	}
	if cfg.RateLimitWindow != time.Minute || cfg.RateLimitRequests != 60 {
		t.Errorf("rate limit = %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.EmailEnabled() {
		t.Error("email should be disabled without SES_FROM_EMAIL")
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("TIMEZONE", "Asia/Riyadh")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("SES_FROM_EMAIL", "bank@example.com")
	t.Setenv("DEBUG", "true")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.DatabaseType != "postgres" || !cfg.Debug || !cfg.EmailEnabled() {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %s", cfg.RateLimitWindow)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Asia/Riyadh" {
		t.Errorf("Location() = %v, %v", loc, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "bad timezone", env: map[string]string{"JWT_SECRET": "s", "TIMEZONE": "Mars/Olympus"}},
		{name: "bad window", env: map[string]string{"JWT_SECRET": "s", "RATE_LIMIT_WINDOW": "soon"}},
		{name: "zero limit", env: map[string]string{"JWT_SECRET": "s", "RATE_LIMIT_REQUESTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Parse(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
