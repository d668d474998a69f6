package partition

import (
	"context"
	"iter"

	"github.com/tphakala/scenestore/internal/datastore"
	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/repository"
)

// TrainingExample is a split member paired with its captions.
type TrainingExample struct {
	Scene        *entities.Scene
	Descriptions []*entities.SceneDescription
}

func invalidSplitSeq[T any](dt entities.DatasetType) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, invalidDatasetType(dt))
	}
}

// ListBySplit returns the scenes of a split in id order as a lazy,
// restartable sequence.
func (pm *Manager) ListBySplit(ctx context.Context, dt entities.DatasetType) iter.Seq2[*entities.Scene, error] {
	if !dt.Valid() {
		return invalidSplitSeq[*entities.Scene](dt)
	}
	return datastore.Paginate(ctx, pm.store, "list_by_split",
		func(ctx context.Context, repos *repository.Set, after *uint64, limit int) ([]*entities.Scene, error) {
			return repos.Memberships.ScenesBySplitPage(ctx, dt, afterID(after), limit)
		},
		func(s *entities.Scene) *uint64 { return &s.ID })
}

// TrainingSet returns the scenes of a split with their descriptions.
func (pm *Manager) TrainingSet(ctx context.Context, dt entities.DatasetType) iter.Seq2[TrainingExample, error] {
	if !dt.Valid() {
		return invalidSplitSeq[TrainingExample](dt)
	}
	return datastore.Paginate(ctx, pm.store, "training_set",
		func(ctx context.Context, repos *repository.Set, after *uint64, limit int) ([]TrainingExample, error) {
			scenes, err := repos.Memberships.ScenesBySplitPage(ctx, dt, afterID(after), limit)
			if err != nil || len(scenes) == 0 {
				return nil, err
			}

			sceneIDs := make([]uint64, len(scenes))
			for i, s := range scenes {
				sceneIDs[i] = s.ID
			}
			descriptions, err := repos.Descriptions.ListByScenes(ctx, sceneIDs)
			if err != nil {
				return nil, err
			}

			page := make([]TrainingExample, len(scenes))
			for i, s := range scenes {
				page[i] = TrainingExample{Scene: s, Descriptions: descriptions[s.ID]}
			}
			return page, nil
		},
		func(e TrainingExample) *uint64 { return &e.Scene.ID })
}

func afterID(after *uint64) uint64 {
	if after == nil {
		return 0
	}
	return *after
}
