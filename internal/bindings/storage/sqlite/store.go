// Package sqlite provides a SQLite-backed reaction-role mapping store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/louisbranch/reactrole/internal/bindings/storage"
	sqlitemigrate "github.com/louisbranch/reactrole/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/reactrole/internal/snowflake"

	"github.com/louisbranch/reactrole/internal/bindings/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// querier is satisfied by *sql.DB and *sql.Tx, so every query can run either
// standalone or inside a transaction-scoped store.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists reaction-role mapping state in SQLite.
type Store struct {
	sqlDB *sql.DB
	q     querier
}

// Open opens a SQLite store at the provided path and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB, q: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Transact runs fn against a transaction-scoped store. An error wrapped in
// storage.HandledError rolls the transaction back silently; any other error
// rolls back and propagates.
func (s *Store) Transact(ctx context.Context, fn func(storage.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if fn == nil {
		return fmt.Errorf("transaction func is required")
	}
	if _, ok := s.q.(*sql.Tx); ok {
		return fmt.Errorf("nested transaction is not supported")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&Store{sqlDB: s.sqlDB, q: tx}); err != nil {
		var handled *storage.HandledError
		if errors.As(err, &handled) {
			log.Printf("store: suppressing handled error within transaction: %v", handled.Cause)
			return nil
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ready guards against nil receivers and cancelled contexts before any I/O.
func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.q == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func validateID(field, value string) error {
	if !snowflake.IsID(value) {
		return fmt.Errorf("%s %q: %w", field, value, storage.ErrInvalidID)
	}
	return nil
}

func validateEmojiKey(field, value string) error {
	if !snowflake.IsEmojiKey(value) {
		return fmt.Errorf("%s %q: %w", field, value, storage.ErrInvalidEmojiKey)
	}
	return nil
}

// isUniqueViolation reports whether err is a primary-key or unique-constraint
// failure. The string fallback covers errors that surface without a typed
// sqlite error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func collectStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

var _ storage.Store = (*Store)(nil)
