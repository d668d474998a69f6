package repository

import (
	"context"

	"github.com/tphakala/scenestore/internal/datastore/entities"
)

// MembershipRepository provides access to the dataset_memberships table.
type MembershipRepository interface {
	// Create inserts a membership. The unique scene_id index rejects a
	// second membership for the same scene.
	Create(ctx context.Context, membership *entities.DatasetMembership) error

	// CreateBatch inserts memberships in batches.
	CreateBatch(ctx context.Context, memberships []*entities.DatasetMembership) error

	// GetByScene retrieves the membership of a scene.
	// Returns ErrMembershipNotFound if the scene has none.
	GetByScene(ctx context.Context, sceneID uint64) (*entities.DatasetMembership, error)

	// GetByScenes returns memberships for many scenes keyed by scene ID.
	// Handles large ID sets by chunking to avoid SQL parameter limits.
	GetByScenes(ctx context.Context, sceneIDs []uint64) (map[uint64]*entities.DatasetMembership, error)

	// DeleteByScene removes a scene's membership and returns the count.
	DeleteByScene(ctx context.Context, sceneID uint64) (int64, error)

	// DeleteByScenes removes memberships for many scenes.
	DeleteByScenes(ctx context.Context, sceneIDs []uint64) (int64, error)

	// ScenesBySplitPage returns up to limit scenes of a split ordered by
	// scene ID, after afterID.
	ScenesBySplitPage(ctx context.Context, datasetType entities.DatasetType, afterID uint64, limit int) ([]*entities.Scene, error)

	// SceneIDsBySplit returns every scene ID of a split in ascending order.
	SceneIDsBySplit(ctx context.Context, datasetType entities.DatasetType) ([]uint64, error)

	// CountBySplit returns membership counts per split.
	CountBySplit(ctx context.Context) (map[entities.DatasetType]int64, error)

	// Count returns the total number of memberships.
	Count(ctx context.Context) (int64, error)

	// MaxID returns the highest membership ID, or 0 for an empty table.
	MaxID(ctx context.Context) (uint64, error)
}
