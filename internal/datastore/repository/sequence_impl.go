package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// sequenceRepository implements SequenceRepository.
type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// Ensure uses FirstOrCreate so concurrent openers do not race.
func (r *sequenceRepository) Ensure(ctx context.Context, kinds []string) error {
	for _, kind := range kinds {
		seq := entities.IDSequence{Kind: kind}
		if err := r.db.WithContext(ctx).FirstOrCreate(&seq, entities.IDSequence{Kind: kind}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *sequenceRepository) HighWater(ctx context.Context, kind string) (uint64, error) {
	var seq entities.IDSequence
	err := r.db.WithContext(ctx).Where("kind = ?", kind).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrSequenceNotFound
	}
	if err != nil {
		return 0, err
	}
	return seq.HighWater, nil
}

// Raise is a conditional UPDATE, which both SQLite and MySQL run without an
// upsert dialect.
func (r *sequenceRepository) Raise(ctx context.Context, kind string, value uint64) error {
	return r.db.WithContext(ctx).Model(&entities.IDSequence{}).
		Where("kind = ? AND high_water < ?", kind, value).
		Update("high_water", value).Error
}
