package ratelimit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteFileName is the database file created inside the store directory.
const SQLiteFileName = "ratelimit.db"

// SQLiteStore keeps all windows in one SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// OpenSQLiteStore opens or creates the database in dir.
func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbPath := filepath.Join(dir, SQLiteFileName)

	// Writers from other processes wait up to busy_timeout; _txlock=immediate
	// takes the write lock at BEGIN so read-modify-write cannot interleave.
	dsn := dbPath + "?mode=rwc&_pragma=busy_timeout(5000)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS windows (
		key TEXT PRIMARY KEY,
		ip TEXT NOT NULL DEFAULT '',
		requests TEXT NOT NULL DEFAULT '[]',
		last_request INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_windows_last_request ON windows(last_request);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, key string, fn func(*Window) bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		w            Window
		requestsJSON string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT ip, requests, last_request FROM windows WHERE key = ?`, key,
	).Scan(&w.IP, &requestsJSON, &w.LastRequest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to load window: %w", err)
	default:
		if err := json.Unmarshal([]byte(requestsJSON), &w.Requests); err != nil {
			w = Window{}
		}
	}

	if !fn(&w) {
		return nil
	}

	requests := w.Requests
	if requests == nil {
		requests = []int64{}
	}
	encoded, err := json.Marshal(requests)
	if err != nil {
		return fmt.Errorf("failed to encode requests: %w", err)
	}

	query := `
	INSERT INTO windows (key, ip, requests, last_request)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		ip = excluded.ip,
		requests = excluded.requests,
		last_request = excluded.last_request
	`
	if _, err := tx.ExecContext(ctx, query, key, w.IP, string(encoded), w.LastRequest); err != nil {
		return fmt.Errorf("failed to save window: %w", err)
	}
	return tx.Commit()
}

// DeleteIdle implements Store.
func (s *SQLiteStore) DeleteIdle(ctx context.Context, before int64) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM windows WHERE last_request < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle windows: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted windows: %w", err)
	}
	return int(n), nil
}
