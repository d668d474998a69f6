package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// annotationRepository implements AnnotationRepository.
type annotationRepository struct {
	db *gorm.DB
}

// NewAnnotationRepository creates a new AnnotationRepository.
func NewAnnotationRepository(db *gorm.DB) AnnotationRepository {
	return &annotationRepository{db: db}
}

func (r *annotationRepository) Create(ctx context.Context, annotation *entities.Annotation) error {
	return r.db.WithContext(ctx).Omit("Scene").Create(annotation).Error
}

// GetByID retrieves an annotation by its ID.
func (r *annotationRepository) GetByID(ctx context.Context, id uint64) (*entities.Annotation, error) {
	var annotation entities.Annotation
	err := r.db.WithContext(ctx).First(&annotation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnnotationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &annotation, nil
}

func (r *annotationRepository) ListByScene(ctx context.Context, sceneID uint64, labelType *entities.LabelType) ([]*entities.Annotation, error) {
	query := r.db.WithContext(ctx).Where("scene_id = ?", sceneID)
	if labelType != nil {
		query = query.Where("label_type = ?", *labelType)
	}

	var annotations []*entities.Annotation
	err := query.Order("id ASC").Find(&annotations).Error
	return annotations, err
}

func (r *annotationRepository) DeleteByScene(ctx context.Context, sceneID uint64) (int64, error) {
	return deleteByScene(ctx, r.db, &entities.Annotation{}, sceneID)
}

func (r *annotationRepository) CountByType(ctx context.Context) (map[entities.LabelType]int64, error) {
	var rows []struct {
		LabelType entities.LabelType
		Total     int64
	}
	err := r.db.WithContext(ctx).Model(&entities.Annotation{}).
		Select("label_type, COUNT(*) AS total").
		Group("label_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.LabelType]int64, len(rows))
	for _, row := range rows {
		counts[row.LabelType] = row.Total
	}
	return counts, nil
}

func (r *annotationRepository) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.db, tableAnnotations)
}

func (r *annotationRepository) MaxID(ctx context.Context) (uint64, error) {
	return maxID(ctx, r.db, tableAnnotations)
}
