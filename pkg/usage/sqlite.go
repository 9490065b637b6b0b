package usage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// SQLiteStore persists usage counters in a local SQLite database. It suits
// single-node deployments that must survive restarts without running redis.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dsn and ensures the
// schema exists. Use ":memory:" for throwaway stores in tests.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite allows a single writer; one connection serializes concurrent
	// adds instead of surfacing SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the usage schema when missing. It is safe to call on every
// startup.
func (s *SQLiteStore) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_counters (
			user_id    TEXT      NOT NULL,
			resource   TEXT      NOT NULL,
			amount     INTEGER   NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, resource)
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate usage schema: %w", err)
	}
	return nil
}

// Add upserts a counter row and returns the new total.
func (s *SQLiteStore) Add(ctx context.Context, userID, resource string, delta int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (user_id, resource, amount, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, resource)
		DO UPDATE SET amount = amount + excluded.amount, updated_at = CURRENT_TIMESTAMP
		RETURNING amount`,
		userID, resource, delta).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to add usage: %w", err)
	}
	return total, nil
}

// Snapshot returns every counter for a user.
func (s *SQLiteStore) Snapshot(ctx context.Context, userID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource, amount FROM usage_counters WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int64)
	for rows.Next() {
		var (
			resource string
			amount   int64
		)
		if err := rows.Scan(&resource, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		counters[resource] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage rows: %w", err)
	}
	return counters, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
