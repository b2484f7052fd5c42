// Package store persists comparison results so they can be listed and
// fetched after the run that produced them.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/patientflow-sim/patientflow/sim/compare"
)

var (
	ErrNotFound = errors.New("comparison not found")
)

// Request is the input that produced a comparison.
type Request struct {
	Days         float64  `json:"days,omitempty"`
	Replications int      `json:"replications,omitempty"`
	Seed         int64    `json:"seed"`
	Parallelism  int      `json:"parallelism,omitempty"`
	Hospitals    []string `json:"hospitals,omitempty"`
}

// Record is one stored comparison.
type Record struct {
	ID         string              `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Request    Request             `json:"request"`
	Comparison *compare.Comparison `json:"comparison"`
}

// NewRecord stamps a comparison with a fresh ID and creation time.
func NewRecord(req Request, cmp *compare.Comparison) *Record {
	return &Record{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Request:    req,
		Comparison: cmp,
	}
}

// Repository stores comparison records. List returns the newest first,
// at most limit records (all when limit <= 0).
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}

// Open selects a repository by URL scheme: "" or memory:// for the
// in-memory store, postgres:// or postgresql:// for Postgres, redis:// for Redis.
func Open(ctx context.Context, rawURL string) (Repository, error) {
	if rawURL == "" {
		return NewMemoryRepository(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return NewMemoryRepository(), nil
	case "postgres", "postgresql":
		repo, err := OpenPostgres(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	case "redis", "rediss":
		return OpenRedis(ctx, rawURL)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}
