// Package config loads the agileplus settings from a TOML file with AGILEPLUS_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/eddielimmm/my-agile-plus/internal/store"
)

const (
	// AppName is the directory name under the user config dir.
	AppName    = "agileplus"
	ConfigFile = "config.toml"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	UserID   string  `toml:"user_id" env:"AGILEPLUS_USER_ID" env-default:"local"`
	Timezone string  `toml:"timezone" env:"AGILEPLUS_TIMEZONE" env-default:"Local"`
	Backend  Backend `toml:"backend"`
	Cache    Cache   `toml:"cache"`
	Log      Log     `toml:"log"`
	Web      Web     `toml:"web"`
}

type Backend struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver" env:"AGILEPLUS_BACKEND_DRIVER" env-default:"sqlite"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `toml:"dsn" env:"AGILEPLUS_BACKEND_DSN"`
	// SchemaVersion pins the migration target; 0 means latest.
	SchemaVersion uint `toml:"schema_version" env:"AGILEPLUS_BACKEND_SCHEMA_VERSION" env-default:"0"`
}

// Cache is the device-local store used when the backend refuses a write.
type Cache struct {
	Path string `toml:"path" env:"AGILEPLUS_CACHE_PATH"`
}

type Log struct {
	Level string `toml:"level" env:"AGILEPLUS_LOG_LEVEL" env-default:"INFO"`
	// File receives the terminal UI's logs.
	File string `toml:"file" env:"AGILEPLUS_LOG_FILE"`
}

type Web struct {
	Addr string `toml:"addr" env:"AGILEPLUS_WEB_ADDR" env-default:"127.0.0.1:8080"`
}

// Dir returns <UserConfigDir>/agileplus.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFile), nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{
		UserID:   "local",
		Timezone: "Local",
		Backend:  Backend{Driver: store.DriverSQLite},
		Log:      Log{Level: "INFO"},
		Web:      Web{Addr: "127.0.0.1:8080"},
	}
	cfg.fillPaths()
	return cfg
}

// Load reads path, or only the environment when path is empty or missing, then fills
// the default file locations.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read env: %w", err)
		}
	}
	cfg.Backend.Driver = strings.ToLower(strings.TrimSpace(cfg.Backend.Driver))
	cfg.Log.Level = strings.ToUpper(strings.TrimSpace(cfg.Log.Level))
	cfg.fillPaths()
	return cfg, nil
}

func (c *Config) fillPaths() {
	dir, err := Dir()
	if err != nil {
		return
	}
	if c.Backend.DSN == "" && c.Backend.Driver == store.DriverSQLite {
		c.Backend.DSN = filepath.Join(dir, "agileplus.db")
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(dir, "local.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, "agileplus.log")
	}
}

// Validate reports every problem that would stop the program from starting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.UserID) == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	switch c.Backend.Driver {
	case store.DriverSQLite, store.DriverPostgres:
		if c.Backend.DSN == "" {
			errs = append(errs, fmt.Errorf("backend.dsn is required for %s", c.Backend.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.driver %q must be sqlite or postgres", c.Backend.Driver))
	}
	if c.Backend.SchemaVersion > store.LatestSchemaVersion {
		errs = append(errs, fmt.Errorf("backend.schema_version %d is newer than %d", c.Backend.SchemaVersion, store.LatestSchemaVersion))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %v", c.Timezone, err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Location returns the configured timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LogLevel returns the slog level for Log.Level, INFO when unknown.
func (c Config) LogLevel() slog.Level {
	lvl, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q must be DEBUG, INFO, WARN or ERROR", s)
}

// Save writes cfg to path as TOML, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
