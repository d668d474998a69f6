package repository

import (
	"context"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// DetectionRepository provides access to the detections table.
// Detections are write-once; there is no update method.
type DetectionRepository interface {
	// Create inserts a detection. The caller assigns the ID.
	Create(ctx context.Context, detection *entities.Detection) error

	// CreateBatch inserts detections in batches.
	CreateBatch(ctx context.Context, detections []*entities.Detection) error

	// GetByID retrieves a detection by its ID.
	// Returns ErrDetectionNotFound if not found.
	GetByID(ctx context.Context, id uint64) (*entities.Detection, error)

	// ListByScene returns a scene's detections ordered by ID.
	ListByScene(ctx context.Context, sceneID uint64) ([]*entities.Detection, error)

	// ListByClassPage returns up to limit detections with the class label and
	// confidence >= minConfidence across all scenes, ordered by ID, after afterID.
	ListByClassPage(ctx context.Context, classLabel string, minConfidence float64, afterID uint64, limit int) ([]*entities.Detection, error)

	// DeleteByScene removes a scene's detections and returns the count.
	DeleteByScene(ctx context.Context, sceneID uint64) (int64, error)

	// Count returns the total number of detections.
	Count(ctx context.Context) (int64, error)

	// MaxID returns the highest detection ID, or 0 for an empty table.
	MaxID(ctx context.Context) (uint64, error)
}
