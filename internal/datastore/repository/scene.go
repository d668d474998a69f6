package repository

import (
	"context"
	"time"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// SceneFilter narrows scene listings. Zero fields do not filter.
type SceneFilter struct {
	CameraID  string
	From      *time.Time // inclusive lower bound on capture time
	To        *time.Time // inclusive upper bound on capture time
	Processed *bool
}

// SceneCursor is the (captured_at, id) key of the last scene on a page.
type SceneCursor struct {
	CapturedAt int64
	ID         uint64
}

// CursorOf returns the cursor positioned after s.
func CursorOf(s *entities.Scene) *SceneCursor {
	return &SceneCursor{CapturedAt: s.CapturedAt, ID: s.ID}
}

// SceneRepository provides access to the scenes table.
type SceneRepository interface {
	// Create inserts a scene. The caller assigns the ID.
	Create(ctx context.Context, scene *entities.Scene) error

	// CreateBatch inserts scenes in batches.
	CreateBatch(ctx context.Context, scenes []*entities.Scene) error

	// GetByID retrieves a scene by its ID.
	// Returns ErrSceneNotFound if not found.
	GetByID(ctx context.Context, id uint64) (*entities.Scene, error)

	// Exists checks if a scene with the given ID exists.
	Exists(ctx context.Context, id uint64) (bool, error)

	// ExistingIDs returns the subset of ids that exist, in ascending order.
	// Handles large ID sets by chunking to avoid SQL parameter limits.
	ExistingIDs(ctx context.Context, ids []uint64) ([]uint64, error)

	// MarkProcessed sets processed = true. Marking an already processed
	// scene succeeds. Returns ErrSceneNotFound if the scene does not exist.
	MarkProcessed(ctx context.Context, id uint64) error

	// Delete removes the scene row only. Dependent rows must be removed first.
	// Returns ErrSceneNotFound if no row was deleted.
	Delete(ctx context.Context, id uint64) error

	// ListPage returns up to limit scenes matching filter ordered by
	// (captured_at, id), starting after the cursor when it is non-nil.
	ListPage(ctx context.Context, filter SceneFilter, after *SceneCursor, limit int) ([]*entities.Scene, error)

	// Recent returns the newest scenes first.
	Recent(ctx context.Context, limit int) ([]*entities.Scene, error)

	// Count returns the total number of scenes.
	Count(ctx context.Context) (int64, error)

	// MaxID returns the highest scene ID, or 0 for an empty table.
	MaxID(ctx context.Context) (uint64, error)
}
