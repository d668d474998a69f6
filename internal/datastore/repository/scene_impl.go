package repository

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// sceneRepository implements SceneRepository.
type sceneRepository struct {
	db *gorm.DB
}

// NewSceneRepository creates a new SceneRepository.
func NewSceneRepository(db *gorm.DB) SceneRepository {
	return &sceneRepository{db: db}
}

func (r *sceneRepository) Create(ctx context.Context, scene *entities.Scene) error {
	return r.db.WithContext(ctx).Create(scene).Error
}

func (r *sceneRepository) CreateBatch(ctx context.Context, scenes []*entities.Scene) error {
	if len(scenes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(scenes, insertBatchSize).Error
}

// GetByID retrieves a scene by its ID.
func (r *sceneRepository) GetByID(ctx context.Context, id uint64) (*entities.Scene, error) {
	var scene entities.Scene
	err := r.db.WithContext(ctx).First(&scene, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSceneNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scene, nil
}

func (r *sceneRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Scene{}).Where("id = ?", id).Limit(1).Count(&n).Error
	return n > 0, err
}

func (r *sceneRepository) ExistingIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	found := make([]uint64, 0, len(ids))
	for start := 0; start < len(ids); start += idBatchSize {
		end := min(start+idBatchSize, len(ids))
		var chunk []uint64
		err := r.db.WithContext(ctx).Model(&entities.Scene{}).
			Where("id IN ?", ids[start:end]).
			Pluck("id", &chunk).Error
		if err != nil {
			return nil, err
		}
		found = append(found, chunk...)
	}
	slices.Sort(found)
	return slices.Compact(found), nil
}

// MarkProcessed is idempotent. MySQL reports zero affected rows when the
// value is unchanged, so a zero count is confirmed with an existence check.
func (r *sceneRepository) MarkProcessed(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Model(&entities.Scene{}).
		Where("id = ?", id).
		Update("processed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSceneNotFound
	}
	return nil
}

func (r *sceneRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&entities.Scene{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSceneNotFound
	}
	return nil
}

func (r *sceneRepository) ListPage(ctx context.Context, filter SceneFilter, after *SceneCursor, limit int) ([]*entities.Scene, error) {
	query := r.db.WithContext(ctx).Model(&entities.Scene{})

	if filter.CameraID != "" {
		query = query.Where("camera_id = ?", filter.CameraID)
	}
	if filter.From != nil {
		query = query.Where("captured_at >= ?", filter.From.UnixNano())
	}
	if filter.To != nil {
		query = query.Where("captured_at <= ?", filter.To.UnixNano())
	}
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if after != nil {
		query = query.Where("(captured_at > ? OR (captured_at = ? AND id > ?))",
			after.CapturedAt, after.CapturedAt, after.ID)
	}

	var scenes []*entities.Scene
	err := query.Order("captured_at ASC").Order("id ASC").Limit(limit).Find(&scenes).Error
	return scenes, err
}

func (r *sceneRepository) Recent(ctx context.Context, limit int) ([]*entities.Scene, error) {
	var scenes []*entities.Scene
	err := r.db.WithContext(ctx).
		Order("captured_at DESC").Order("id DESC").
		Limit(limit).
		Find(&scenes).Error
	return scenes, err
}

func (r *sceneRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, tableScenes)
}

func (r *sceneRepository) MaxID(ctx context.Context) (uint64, error) {
	return maxID(ctx, r.db, tableScenes)
}
