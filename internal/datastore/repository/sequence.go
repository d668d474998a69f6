package repository

import (
	"context"
)

// SequenceRepository provides access to the id_sequences table.
type SequenceRepository interface {
	// Ensure creates a zero high-water row for each kind that has none.
	Ensure(ctx context.Context, kinds []string) error

	// HighWater returns the persisted high-water mark of a kind.
	// Returns ErrSequenceNotFound if the kind has no row.
	HighWater(ctx context.Context, kind string) (uint64, error)

	// Raise sets the high-water mark of kind to value when value is higher.
	Raise(ctx context.Context, kind string, value uint64) error
}
