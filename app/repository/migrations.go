package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

func migrationSource(driver string) (fs.FS, string, error) {
	switch driver {
	case DriverMySQL:
		sub, err := fs.Sub(migrationFS, "migrations/mysql")
		return sub, "mysql", err
	case DriverSQLite:
		sub, err := fs.Sub(migrationFS, "migrations/sqlite")
		return sub, "sqlite3", err
	default:
		return nil, "", fmt.Errorf("unsupported driver %q", driver)
	}
}

func prepareGoose(driver string) error {
	source, dialect, err := migrationSource(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(source)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect(dialect)
}

// Migrate applies all pending embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	if err := prepareGoose(driver); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the currently applied migration version.
func MigrationVersion(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	if err := prepareGoose(driver); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db)
}
