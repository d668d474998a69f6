package repository

import (
	"context"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// AnnotationRepository provides access to the annotations table.
// Annotations are additive: concurrent annotators each insert their own row.
type AnnotationRepository interface {
	// Create inserts an annotation. The caller assigns the ID.
	Create(ctx context.Context, annotation *entities.Annotation) error

	// GetByID retrieves an annotation by its ID.
	// Returns ErrAnnotationNotFound if not found.
	GetByID(ctx context.Context, id uint64) (*entities.Annotation, error)

	// ListByScene returns a scene's annotations ordered by ID, optionally
	// restricted to one label type.
	ListByScene(ctx context.Context, sceneID uint64, labelType *entities.LabelType) ([]*entities.Annotation, error)

	// DeleteByScene removes a scene's annotations and returns the count.
	DeleteByScene(ctx context.Context, sceneID uint64) (int64, error)

	// CountByType returns annotation counts per label type.
	CountByType(ctx context.Context) (map[entities.LabelType]int64, error)

	// Count returns the total number of annotations.
	Count(ctx context.Context) (int64, error)

	// MaxID returns the highest annotation ID, or 0 for an empty table.
	MaxID(ctx context.Context) (uint64, error)
}
