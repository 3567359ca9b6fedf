package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// LatestSchemaVersion is the newest migration shipped with the binary.
const LatestSchemaVersion = 2

// goalContextVersion is the migration that adds goal_points.context.
const goalContextVersion = 2

// Capabilities describes optional schema features, resolved once when the store opens.
type Capabilities struct {
	SchemaVersion uint
	GoalContext   bool
}

// Options configures Open.
type Options struct {
	Driver string
	DSN    string
	// SchemaVersion pins the migration target; 0 migrates to the latest version.
	SchemaVersion uint
	Log           *slog.Logger
}

type Store struct {
	db     *sqlx.DB
	driver string
	caps   Capabilities
	log    *slog.Logger
}

// Open connects to the backend described by opts and runs migrations.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch opts.Driver {
	case DriverSQLite:
		db, err = openSQLite(ctx, opts.DSN)
	case DriverPostgres:
		db, err = sqlx.Open("pgx", opts.DSN)
		if err == nil {
			err = db.PingContext(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown backend driver %q", opts.Driver)
	}
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, driver: opts.Driver, log: opts.Log}
	if err := s.migrate(opts.SchemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.log.Debug("store opened", "driver", s.driver, "schema_version", s.caps.SchemaVersion, "goal_context", s.caps.GoalContext)
	return s, nil
}

func openSQLite(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return db, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}
	return db, nil
}

// New opens (or creates) the SQLite database at dbPath with the latest schema.
func New(dbPath string) (*Store, error) {
	return Open(context.Background(), Options{Driver: DriverSQLite, DSN: dbPath})
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Capabilities reports the schema features available on this backend.
func (s *Store) Capabilities() Capabilities {
	return s.caps
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	dir := "migrations/" + s.driver
	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}

	switch s.driver {
	case DriverPostgres:
		driver, err := migratepgx.WithInstance(s.db.DB, &migratepgx.Config{})
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", source, "pgx5", driver)
	default:
		driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", source, "sqlite", driver)
	}
}

// migrate applies pending migrations (or moves to the pinned version) and records
// the resulting capabilities. The migrator is not closed: closing it would close s.db.
func (s *Store) migrate(target uint) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}

	if target > 0 {
		err = m.Migrate(target)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty", version)
	}

	s.caps = Capabilities{
		SchemaVersion: version,
		GoalContext:   version >= goalContextVersion,
	}
	return nil
}

// DefaultDBPath returns ~/.config/agileplus/agileplus.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "agileplus", "agileplus.db"), nil
}

func (s *Store) rebind(q string) string {
	return s.db.Rebind(q)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(*s)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
