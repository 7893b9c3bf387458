// Package migrations embeds the schema for each supported database and
// applies it with goose.
//
// Each dialect has its own directory of numbered goose SQL files. Migrations
// run at startup, before the server accepts requests, and are idempotent:
// goose records applied versions in its own table.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Up applies every pending migration for dialect and returns the number of
// migrations that ran.
func Up(ctx context.Context, db *sql.DB, dialect Dialect) (int, error) {
	var gd goose.Dialect
	switch dialect {
	case SQLite:
		gd = goose.DialectSQLite3
	case Postgres:
		gd = goose.DialectPostgres
	default:
		return 0, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	dir, err := fs.Sub(files, string(dialect))
	if err != nil {
		return 0, fmt.Errorf("migrations: opening %s directory: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gd, db, dir)
	if err != nil {
		return 0, fmt.Errorf("migrations: creating provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations: applying %s schema: %w", dialect, err)
	}
	return len(results), nil
}
