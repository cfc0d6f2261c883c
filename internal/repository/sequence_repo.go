package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository issues per-name counters from the sequences table.
type SequenceRepository struct {
	db sqlx.ExtContext
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db sqlx.ExtContext) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments the named counter and returns the new value,
// starting at 1. Concurrent callers never observe the same value.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	const q = `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`
	var v int64
	if err := sqlx.GetContext(ctx, r.db, &v, q, name); err != nil {
		return 0, err
	}
	return v, nil
}
