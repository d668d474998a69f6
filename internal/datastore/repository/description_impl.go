package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// descriptionRepository implements DescriptionRepository.
type descriptionRepository struct {
	db *gorm.DB
}

// NewDescriptionRepository creates a new DescriptionRepository.
func NewDescriptionRepository(db *gorm.DB) DescriptionRepository {
	return &descriptionRepository{db: db}
}

func (r *descriptionRepository) Create(ctx context.Context, description *entities.SceneDescription) error {
	return r.db.WithContext(ctx).Omit("Scene").Create(description).Error
}

// GetByID retrieves a description by its ID.
func (r *descriptionRepository) GetByID(ctx context.Context, id uint64) (*entities.SceneDescription, error) {
	var description entities.SceneDescription
	err := r.db.WithContext(ctx).First(&description, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &description, nil
}

func (r *descriptionRepository) ListByScene(ctx context.Context, sceneID uint64) ([]*entities.SceneDescription, error) {
	var descriptions []*entities.SceneDescription
	err := r.db.WithContext(ctx).
		Where("scene_id = ?", sceneID).
		Order("id ASC").
		Find(&descriptions).Error
	return descriptions, err
}

func (r *descriptionRepository) ListByScenes(ctx context.Context, sceneIDs []uint64) (map[uint64][]*entities.SceneDescription, error) {
	result := make(map[uint64][]*entities.SceneDescription, len(sceneIDs))
	for start := 0; start < len(sceneIDs); start += idBatchSize {
		end := min(start+idBatchSize, len(sceneIDs))
		var chunk []*entities.SceneDescription
		err := r.db.WithContext(ctx).
			Where("scene_id IN ?", sceneIDs[start:end]).
			Order("id ASC").
			Find(&chunk).Error
		if err != nil {
			return nil, err
		}
		for _, d := range chunk {
			result[d.SceneID] = append(result[d.SceneID], d)
		}
	}
	return result, nil
}

func (r *descriptionRepository) DeleteByScene(ctx context.Context, sceneID uint64) (int64, error) {
	return deleteByScene(ctx, r.db, &entities.SceneDescription{}, sceneID)
}

func (r *descriptionRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, tableDescriptions)
}

func (r *descriptionRepository) MaxID(ctx context.Context) (uint64, error) {
	return maxID(ctx, r.db, tableDescriptions)
}
