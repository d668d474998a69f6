package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// detectionRepository implements DetectionRepository.
type detectionRepository struct {
	db *gorm.DB
}

// NewDetectionRepository creates a new DetectionRepository.
func NewDetectionRepository(db *gorm.DB) DetectionRepository {
	return &detectionRepository{db: db}
}

func (r *detectionRepository) Create(ctx context.Context, detection *entities.Detection) error {
	return r.db.WithContext(ctx).Omit("Scene").Create(detection).Error
}

func (r *detectionRepository) CreateBatch(ctx context.Context, detections []*entities.Detection) error {
	if len(detections) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Scene").CreateInBatches(detections, insertBatchSize).Error
}

// GetByID retrieves a detection by its ID.
func (r *detectionRepository) GetByID(ctx context.Context, id uint64) (*entities.Detection, error) {
	var detection entities.Detection
	err := r.db.WithContext(ctx).First(&detection, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDetectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &detection, nil
}

func (r *detectionRepository) ListByScene(ctx context.Context, sceneID uint64) ([]*entities.Detection, error) {
	var detections []*entities.Detection
	err := r.db.WithContext(ctx).
		Where("scene_id = ?", sceneID).
		Order("id ASC").
		Find(&detections).Error
	return detections, err
}

// ListByClassPage uses the class_label index; confidence is filtered on the
// matching rows.
func (r *detectionRepository) ListByClassPage(ctx context.Context, classLabel string, minConfidence float64, afterID uint64, limit int) ([]*entities.Detection, error) {
	query := r.db.WithContext(ctx).
		Where("class_label = ?", classLabel).
		Where("id > ?", afterID)
	if minConfidence > 0 {
		query = query.Where("confidence >= ?", minConfidence)
	}

	var detections []*entities.Detection
	err := query.Order("id ASC").Limit(limit).Find(&detections).Error
	return detections, err
}

func (r *detectionRepository) DeleteByScene(ctx context.Context, sceneID uint64) (int64, error) {
	return deleteByScene(ctx, r.db, &entities.Detection{}, sceneID)
}

func (r *detectionRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, tableDetections)
}

func (r *detectionRepository) MaxID(ctx context.Context) (uint64, error) {
	return maxID(ctx, r.db, tableDetections)
}
