package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepository stores each record as a jsonb document.
type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool through the pgx driver and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepository wraps an already opened pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the comparisons table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS comparisons (
			id         text PRIMARY KEY,
			created_at timestamptz NOT NULL,
			body       jsonb NOT NULL
		);
		CREATE INDEX IF NOT EXISTS comparisons_created_at_idx ON comparisons (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrating comparisons table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Save(ctx context.Context, rec *Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO comparisons (id, created_at, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET created_at = EXCLUDED.created_at, body = EXCLUDED.body
	`, rec.ID, rec.CreatedAt, body)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Record, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx, `SELECT body FROM comparisons WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT body FROM comparisons ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func decodeRecord(body []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}
