package partition

import (
	"context"
	"slices"
	"time"

	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore"
	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
)

// maxReportedIDs bounds the id lists attached to batch errors.
const maxReportedIDs = 20

// BatchResult describes a committed batch assignment.
type BatchResult struct {
	Plan     Plan
	Replaced int // scenes whose previous membership was replaced
}

// Counts returns the number of scenes assigned to each split.
func (r *BatchResult) Counts() map[entities.DatasetType]int {
	out := make(map[entities.DatasetType]int, len(r.Plan))
	for dt, sceneIDs := range r.Plan {
		out[dt] = len(sceneIDs)
	}
	return out
}

// AssignSplitBatch partitions sceneIDs by ratios. The same seed and id set
// always produce the same assignment. Either every scene is assigned or
// none is: an unknown id fails the batch with a not-found error, and an
// already assigned scene fails it with a conflict error unless
// WithReassign is given.
func (pm *Manager) AssignSplitBatch(ctx context.Context, sceneIDs []uint64, ratios conf.SplitRatios, seed int64, opts ...AssignOption) (*BatchResult, error) {
	if err := conf.ValidateRatios(ratios); err != nil {
		return nil, errors.New(err).
			Component("partition").
			Category(errors.CategoryValidation).
			Build()
	}

	unique := slices.Clone(sceneIDs)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	if len(unique) == 0 {
		return nil, errors.Newf("scene batch is empty").
			Component("partition").
			Category(errors.CategoryValidation).
			Build()
	}

	return pm.applyPlan(ctx, "assign_split_batch", NewPlan(unique, ratios, seed), collectOptions(opts))
}

// AssignDefault is AssignSplitBatch with the configured ratios and seed.
func (pm *Manager) AssignDefault(ctx context.Context, sceneIDs []uint64, opts ...AssignOption) (*BatchResult, error) {
	return pm.AssignSplitBatch(ctx, sceneIDs, pm.ratios, pm.seed, opts...)
}

// applyPlan writes plan in one transaction.
func (pm *Manager) applyPlan(ctx context.Context, operation string, plan Plan, o assignOptions) (*BatchResult, error) {
	start := time.Now()
	split := plan.Split()
	sceneIDs := make([]uint64, 0, len(split))
	for id := range split {
		sceneIDs = append(sceneIDs, id)
	}
	slices.Sort(sceneIDs)

	result := &BatchResult{Plan: plan}
	err := pm.store.Transaction(ctx, operation, func(tx *datastore.Tx) error {
		ctx, repos := tx.Context(), tx.Repos()
		result.Replaced = 0

		found, err := repos.Scenes.ExistingIDs(ctx, sceneIDs)
		if err != nil {
			return err
		}
		if len(found) != len(sceneIDs) {
			missing := difference(sceneIDs, found)
			return errors.Newf("%d of %d scenes do not exist", len(missing), len(sceneIDs)).
				Component("partition").
				Category(errors.CategoryNotFound).
				Context("missing_scene_ids", truncate(missing)).
				Build()
		}

		current, err := repos.Memberships.GetByScenes(ctx, sceneIDs)
		if err != nil {
			return err
		}
		if len(current) > 0 {
			if !o.reassign {
				assigned := make([]uint64, 0, len(current))
				for id := range current {
					assigned = append(assigned, id)
				}
				slices.Sort(assigned)
				first := current[assigned[0]]
				return errors.New(&SplitConflictError{SceneID: first.SceneID, Current: first.DatasetType}).
					Component("partition").
					Category(errors.CategoryConflict).
					Context("assigned_scene_ids", truncate(assigned)).
					Context("assigned_count", len(assigned)).
					Build()
			}
			removed, err := repos.Memberships.DeleteByScenes(ctx, sceneIDs)
			if err != nil {
				return err
			}
			result.Replaced = int(removed)
		}

		now := tx.Now()
		memberships := make([]*entities.DatasetMembership, 0, len(sceneIDs))
		for _, sceneID := range sceneIDs {
			id, err := tx.NextID(ids.KindMembership)
			if err != nil {
				return err
			}
			memberships = append(memberships, &entities.DatasetMembership{
				ID:          id,
				SceneID:     sceneID,
				DatasetType: split[sceneID],
				AddedDate:   now,
			})
		}
		if err := repos.Memberships.CreateBatch(ctx, memberships); err != nil {
			return err
		}

		for _, m := range memberships {
			ev := events.NewEvent(events.SplitAssigned, m.SceneID)
			ev.DatasetType = string(m.DatasetType)
			tx.Emit(ev)
		}
		return nil
	})
	if err != nil {
		if errors.IsConflict(err) {
			pm.metrics.RecordConflict()
		}
		return nil, err
	}

	counts := result.Counts()
	pm.metrics.RecordBatch(len(sceneIDs))
	for dt, n := range counts {
		pm.metrics.RecordAssignments(string(dt), n)
	}
	pm.metrics.RecordReassignments(result.Replaced)

	pm.logger.WithContext(ctx).Info("batch split assigned",
		logger.String("operation", operation),
		logger.Int("scenes", len(sceneIDs)),
		logger.Int("train", counts[entities.DatasetTrain]),
		logger.Int("val", counts[entities.DatasetVal]),
		logger.Int("test", counts[entities.DatasetTest]),
		logger.Int("replaced", result.Replaced),
		logger.Duration("duration", time.Since(start)))
	return result, nil
}

// difference returns the ids of all that are missing from found. Both are
// sorted ascending.
func difference(all, found []uint64) []uint64 {
	var missing []uint64
	j := 0
	for _, id := range all {
		for j < len(found) && found[j] < id {
			j++
		}
		if j < len(found) && found[j] == id {
			continue
		}
		missing = append(missing, id)
	}
	return missing
}

func truncate(sceneIDs []uint64) []uint64 {
	if len(sceneIDs) > maxReportedIDs {
		return sceneIDs[:maxReportedIDs]
	}
	return sceneIDs
}
