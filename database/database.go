package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/tieubaoca/research-assistant/config"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// Open returns a pooled *sql.DB for the postgres or sqlite driver, verified
// with a ping and migrated to the latest schema. The caller owns the handle.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	driverName, dsn, dialect, err := sqlDriver(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	ConfigurePool(db, cfg)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := Migrate(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return db, nil
}

func sqlDriver(cfg config.DatabaseConfig) (driverName, dsn, dialect string, err error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return "pgx", cfg.DSN, "postgres", nil
	case config.DriverSQLite:
		dsn := cfg.DSN
		if !strings.Contains(dsn, "_pragma") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
		return "sqlite", dsn, "sqlite3", nil
	}
	return "", "", "", fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
}

// ConfigurePool applies connection pool settings. Zero values keep the
// database/sql defaults.
func ConfigurePool(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
}

// Migrate applies the embedded migrations for dialect ("postgres" or "sqlite3").
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	dir := "migrations/postgres"
	if dialect == "sqlite3" {
		dir = "migrations/sqlite"
	}
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return err
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
