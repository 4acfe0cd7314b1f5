package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainlife/auth-sub000/internal/core/port"
)

// SubSequence allocates account identifiers from a database sequence, which
// stays atomic under concurrent registrations.
type SubSequence struct {
	pool *pgxpool.Pool
	exec pgExecutor
}

// NewSubSequence wires the sequence-backed allocator.
func NewSubSequence(exec pgExecutor) *SubSequence {
	seq := &SubSequence{exec: exec}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		seq.pool = pool
	}
	return seq
}

// Next returns the next account identifier.
func (s *SubSequence) Next(ctx context.Context) (int64, error) {
	var sub int64
	if err := s.exec.QueryRow(ctx, "SELECT nextval('auth.account_sub_seq')").Scan(&sub); err != nil {
		return 0, fmt.Errorf("next account sub: %w", err)
	}
	return sub, nil
}

var _ port.SubSequence = (*SubSequence)(nil)
