package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sqliteTable = "kv"

// SQLite is a store persisted in a SQLite database.
type SQLite struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// NewSQLite opens (and creates if needed) a SQLite store.
// An empty path opens a private in-memory database.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every connection to an in-memory database sees its own database.
	if strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err = sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to run %q: %w", pragma, err)
		}
	}

	_, err = sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + sqliteTable + ` (
		id         TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLite{sqlDB: sqlDB, now: time.Now}, nil
}

// Get gets a value.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args, err := sq.
		Select("value", "expires_at").
		From(sqliteTable).
		Where(sq.Eq{"id": key}).
		ToSql()
	if err != nil {
		return nil, false, err
	}

	var value []byte
	var exp int64

	err = s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&value, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	if exp != 0 && expired(s.now(), time.Unix(0, exp)) {
		return nil, false, nil
	}

	return value, true, nil
}

// Set sets a value.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int64
	if t := expiresAt(s.now(), ttl); !t.IsZero() {
		exp = t.UnixNano()
	}

	query, args, err := sq.
		Insert(sqliteTable).
		Columns("id", "value", "expires_at").
		Values(key, value, exp).
		Suffix(`ON CONFLICT(id) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`).
		ToSql()
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	return nil
}

// Delete deletes a value.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	query, args, err := sq.Delete(sqliteTable).Where(sq.Eq{"id": key}).ToSql()
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}

	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.sqlDB.Close()
}
