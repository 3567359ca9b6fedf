package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `user_id = "alice"
timezone = "Europe/London"

[backend]
driver = "Postgres"
dsn = "postgres://localhost/agileplus"
schema_version = 1

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserID != "alice" || cfg.Timezone != "Europe/London" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Backend.Driver != "postgres" || cfg.Backend.SchemaVersion != 1 {
		t.Fatalf("backend = %+v", cfg.Backend)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Fatalf("log level = %v", cfg.LogLevel())
	}
	if cfg.Web.Addr != "127.0.0.1:8080" {
		t.Fatalf("web addr default not applied: %q", cfg.Web.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `user_id = "alice"`)
	t.Setenv("AGILEPLUS_USER_ID", "bob")
	t.Setenv("AGILEPLUS_WEB_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserID != "bob" || cfg.Web.Addr != ":9999" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("AGILEPLUS_USER_ID", "carol")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserID != "carol" || cfg.Backend.Driver != "sqlite" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Backend.DSN == "" || cfg.Cache.Path == "" {
		t.Fatal("default paths should be filled")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, `user_id = `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty user", func(c *Config) { c.UserID = "" }},
		{"unknown driver", func(c *Config) { c.Backend.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Backend.Driver = "postgres"; c.Backend.DSN = "" }},
		{"future schema", func(c *Config) { c.Backend.SchemaVersion = 99 }},
		{"bad level", func(c *Config) { c.Log.Level = "LOUD" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.UserID = "dave"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "dave" || got.Backend.DSN != cfg.Backend.DSN {
		t.Fatalf("round trip = %+v", got)
	}
}
