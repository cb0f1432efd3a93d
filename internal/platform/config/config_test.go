package config

import (
	"log/slog"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:         "postgres://localhost/devcycle",
		Environment:         "development",
		MaxBodyBytes:        1048576,
		DBMaxConns:          10,
		DBMinConns:          2,
		SideEffectQueueSize: 16,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = " " }, wantErr: true},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "production with secret", mutate: func(c *Config) { c.Environment = "production"; c.JWTSecret = "s3cret" }},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "min conns above max", mutate: func(c *Config) { c.DBMinConns = 20 }, wantErr: true},
		{name: "zero queue", mutate: func(c *Config) { c.SideEffectQueueSize = 0 }, wantErr: true},
		{name: "email without smtp host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STRICT_ITEM_MATCH", "true")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "3s")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := Load()
	if cfg.DatabaseURL != "postgres://db/test" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
	if !cfg.StrictItemMatch {
		t.Fatal("expected strict item match")
	}
	if cfg.SideEffectTimeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %v", cfg.SideEffectTimeout)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("expected fallback max conns 10, got %d", cfg.DBMaxConns)
	}
	if cfg.RequireBalancedWeights {
		t.Fatal("expected balanced weights off by default")
	}
}
