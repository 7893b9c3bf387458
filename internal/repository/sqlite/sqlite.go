// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the server builds without CGo and
// cross-compiles like any other Go program. SQLite is the default backend: a
// single file on disk, or ":memory:" in tests.
//
// TAGS:
// SQLite has no array type, so a blog's tags are stored as a JSON array in a
// TEXT column. Membership tests and the distinct-tag list use the json_each
// table-valued function, which ships with the modernc build.
//
// SEARCH:
// SQLite's built-in lower() only folds ASCII. Search goes through
// unicode_lower instead, a scalar function registered with the driver and
// backed by strings.ToLower, so both sides of the LIKE fold the same way.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/inkwell/internal/repository"
	"github.com/sakif/inkwell/internal/repository/migrations"
)

var _ repository.Store = (*DB)(nil)

func init() {
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1, unicodeLower)
}

// unicodeLower lowercases a TEXT or BLOB argument and passes NULL through.
func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath and applies the embedded schema.
//
// dbPath examples:
//   - "data/inkwell.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests; lost on close)
//
// PRAGMAS PER CONNECTION:
// foreign_keys and busy_timeout are per-connection settings, and sql.DB is a
// pool. For files they are passed in the DSN via _pragma so every pooled
// connection gets them. An in-memory database exists only inside the one
// connection that created it, so the pool is pinned to a single connection
// and the pragmas are executed directly.
func New(ctx context.Context, dbPath string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	if dbPath == ":memory:" {
		conn, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: opening database: %w", err)
		}
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	} else {
		conn, err = sql.Open("sqlite", fileDSN(dbPath))
		if err != nil {
			return nil, fmt.Errorf("sqlite: opening database: %w", err)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := migrations.Up(ctx, conn, migrations.SQLite); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// fileDSN builds a modernc DSN that applies WAL mode, foreign keys and a
// busy timeout to every connection in the pool.
func fileDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying pool for tests and health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// constraintCode returns the extended SQLite result code of a constraint
// violation, or 0 if err is not one.
func constraintCode(err error) int {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch code := sqliteErr.Code(); code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return code
		}
	}
	return 0
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// queryer is the subset of *sql.DB and *sql.Tx used by the read helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a transaction, committing if fn returns nil and
// rolling back otherwise (including on panic).
//
// Writes that must return the row they touched run the statement and the
// read-back in one transaction. SQLite holds the write lock until commit, so
// the read sees exactly this write.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}
