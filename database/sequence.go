package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceAllocator hands out consecutive inspection numbers. The counter
// lives in a one-row table advanced with a single UPDATE so the
// read-and-increment happens inside MySQL; two submissions racing here can
// never observe the same value. On any error the allocation fails closed:
// no number is returned and nothing may be persisted with a guessed one.
type SequenceAllocator struct {
	db *sql.DB
}

// NewSequenceAllocator creates a new sequence allocator instance
func NewSequenceAllocator(db *sql.DB) *SequenceAllocator {
	return &SequenceAllocator{db: db}
}

// NextSeq atomically advances the counter and returns the new value
func (a *SequenceAllocator) NextSeq(ctx context.Context) (int, error) {
	result, err := a.db.ExecContext(ctx,
		`UPDATE inspection_seq SET value = LAST_INSERT_ID(value + 1) WHERE id = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to advance inspection counter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read counter update result: %w", err)
	}
	if rows != 1 {
		return 0, fmt.Errorf("inspection counter row missing, expected 1 row, affected %d", rows)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read allocated sequence number: %w", err)
	}

	return int(seq), nil
}
