package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresKV keeps the key to JSON-string map in a single kv_entries table.
// It exists for deployments that already run Postgres and do not want a
// second datastore for the commerce mirror.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV opens a connection pool using the pgx stdlib driver
func NewPostgresKV(connStr string) (*PostgresKV, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresKV{db: db}, nil
}

// NewPostgresKVFromDB wraps an existing connection pool
func NewPostgresKVFromDB(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

// DB exposes the underlying pool for migrations
func (s *PostgresKV) DB() *sql.DB {
	return s.db
}

func (s *PostgresKV) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM kv_entries WHERE key = $1`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return value, nil
}

func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return &PersistenceError{Key: key, Err: err}
	}

	return nil
}

func (s *PostgresKV) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM kv_entries WHERE key = $1`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return &PersistenceError{Key: key, Err: err}
	}

	return nil
}

func (s *PostgresKV) Close() error {
	return s.db.Close()
}
