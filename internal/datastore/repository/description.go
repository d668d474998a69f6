package repository

import (
	"context"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// DescriptionRepository provides access to the scene_descriptions table.
type DescriptionRepository interface {
	// Create inserts a description. The caller assigns the ID.
	Create(ctx context.Context, description *entities.SceneDescription) error

	// GetByID retrieves a description by its ID.
	// Returns ErrDescriptionNotFound if not found.
	GetByID(ctx context.Context, id uint64) (*entities.SceneDescription, error)

	// ListByScene returns a scene's descriptions ordered by ID.
	ListByScene(ctx context.Context, sceneID uint64) ([]*entities.SceneDescription, error)

	// ListByScenes returns descriptions for many scenes keyed by scene ID.
	// Handles large ID sets by chunking to avoid SQL parameter limits.
	ListByScenes(ctx context.Context, sceneIDs []uint64) (map[uint64][]*entities.SceneDescription, error)

	// DeleteByScene removes a scene's descriptions and returns the count.
	DeleteByScene(ctx context.Context, sceneID uint64) (int64, error)

	// Count returns the total number of descriptions.
	Count(ctx context.Context) (int64, error)

	// MaxID returns the highest description ID, or 0 for an empty table.
	MaxID(ctx context.Context) (uint64, error)
}
