package store

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/hyperengineering/quill/migrations"
)

// RunMigrations applies all pending migrations embedded in the migrations package.
func RunMigrations(db *sql.DB) error {
	// Keep goose quiet on stdout
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
