package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/eddielimmm/my-agile-plus/internal/app"
	"github.com/eddielimmm/my-agile-plus/internal/config"
)

// Deps holds external dependencies for CLI commands, enabling testability.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Exit   func(code int)
	// LoadConfig resolves the effective configuration.
	LoadConfig func() (config.Config, error)
	// OpenApp connects the backend and local cache described by cfg.
	OpenApp func(ctx context.Context, cfg config.Config, log *slog.Logger) (*app.App, error)
}

// DefaultDeps returns the default production dependencies.
func DefaultDeps() *Deps {
	return &Deps{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Stdin:      os.Stdin,
		Exit:       os.Exit,
		LoadConfig: loadConfig,
		OpenApp:    app.Open,
	}
}

// deps is the global dependencies instance used by commands.
// In production, this is DefaultDeps(). Tests can replace it.
var deps = DefaultDeps()

// SetDeps sets the global dependencies (for testing).
func SetDeps(d *Deps) {
	deps = d
}

// ResetDeps resets dependencies to defaults (for testing cleanup).
func ResetDeps() {
	deps = DefaultDeps()
}

// loadConfig reads --config, or the default config path when the flag is unset.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return config.Config{}, err
		}
		path = p
	}
	return config.Load(path)
}
