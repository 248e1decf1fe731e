package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps documents in a single table; the autoincrement column
// records first-write order.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		value BLOB NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, key string, value []byte) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `INSERT OR IGNORE INTO documents (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return false, fmt.Errorf("sqlite create %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO documents (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite put %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, value FROM documents WHERE substr(key, 1, ?) = ? ORDER BY seq`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite list %s: %w", prefix, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CompareAndSwap(ctx context.Context, key string, old, new []byte) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `UPDATE documents SET value = ? WHERE key = ? AND value = ?`, new, key, old)
	if err != nil {
		return false, fmt.Errorf("sqlite cas %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
