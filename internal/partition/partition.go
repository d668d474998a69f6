// Package partition assigns scenes to the train, val and test dataset splits
// and guarantees the splits never share a scene.
//
// Single assignments and seeded batch assignments both run inside one store
// transaction: an existing membership is deleted and the new one inserted
// atomically, so a scene is never observed in two splits or, during a
// reassignment, in none.
package partition

import (
	"context"
	"fmt"

	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore"
	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
	"github.com/tphakala/scenestore/internal/observability/metrics"
)

// Manager owns dataset membership.
type Manager struct {
	store   *datastore.Store
	metrics *metrics.PartitionMetrics
	logger  logger.Logger

	ratios conf.SplitRatios
	seed   int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.PartitionMetrics) Option {
	return func(pm *Manager) { pm.metrics = m }
}

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(pm *Manager) { pm.logger = l }
}

// WithDefaults sets the ratios and seed used by AssignDefault.
func WithDefaults(settings conf.PartitionSettings) Option {
	return func(pm *Manager) {
		pm.ratios = settings.Ratios
		pm.seed = settings.Seed
	}
}

// NewManager creates a partition manager over store.
func NewManager(store *datastore.Store, opts ...Option) *Manager {
	pm := &Manager{
		store: store,
		ratios: conf.SplitRatios{
			Train: conf.DefaultTrainRatio,
			Val:   conf.DefaultValRatio,
			Test:  conf.DefaultTestRatio,
		},
	}
	for _, opt := range opts {
		opt(pm)
	}
	if pm.logger == nil {
		pm.logger = logger.Global().Module("partition")
	}
	return pm
}

// SplitConflictError reports a scene that already belongs to a split.
type SplitConflictError struct {
	SceneID uint64
	Current entities.DatasetType
}

func (e *SplitConflictError) Error() string {
	return fmt.Sprintf("scene %d is already assigned to %s", e.SceneID, e.Current)
}

func conflictError(sceneID uint64, current entities.DatasetType) error {
	return errors.New(&SplitConflictError{SceneID: sceneID, Current: current}).
		Component("partition").
		Category(errors.CategoryConflict).
		Context("scene_id", sceneID).
		Context("current_split", string(current)).
		Build()
}

func sceneNotFound(sceneID uint64) error {
	return errors.New(repository.ErrSceneNotFound).
		Component("partition").
		Category(errors.CategoryNotFound).
		Context("scene_id", sceneID).
		Build()
}

func invalidDatasetType(dt entities.DatasetType) error {
	return errors.Newf("dataset type %q must be train, val or test", string(dt)).
		Component("partition").
		Category(errors.CategoryValidation).
		Context("dataset_type", string(dt)).
		Build()
}

type assignOptions struct {
	reassign bool
}

// AssignOption modifies a single or batch assignment.
type AssignOption func(*assignOptions)

// WithReassign allows replacing an existing membership. Without it an
// assigned scene fails with a conflict error.
func WithReassign() AssignOption {
	return func(o *assignOptions) { o.reassign = true }
}

func collectOptions(opts []AssignOption) assignOptions {
	var o assignOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AssignSplit places one scene into dt.
func (pm *Manager) AssignSplit(ctx context.Context, sceneID uint64, dt entities.DatasetType, opts ...AssignOption) (*entities.DatasetMembership, error) {
	if !dt.Valid() {
		return nil, invalidDatasetType(dt)
	}
	o := collectOptions(opts)

	var (
		membership *entities.DatasetMembership
		replaced   bool
	)
	err := pm.store.Transaction(ctx, "assign_split", func(tx *datastore.Tx) error {
		ctx, repos := tx.Context(), tx.Repos()

		exists, err := repos.Scenes.Exists(ctx, sceneID)
		if err != nil {
			return err
		}
		if !exists {
			return sceneNotFound(sceneID)
		}

		current, err := repos.Memberships.GetByScene(ctx, sceneID)
		switch {
		case errors.Is(err, repository.ErrMembershipNotFound):
		case err != nil:
			return err
		case !o.reassign:
			return conflictError(sceneID, current.DatasetType)
		default:
			if _, err := repos.Memberships.DeleteByScene(ctx, sceneID); err != nil {
				return err
			}
			replaced = true
		}

		id, err := tx.NextID(ids.KindMembership)
		if err != nil {
			return err
		}
		membership = &entities.DatasetMembership{
			ID:          id,
			SceneID:     sceneID,
			DatasetType: dt,
			AddedDate:   tx.Now(),
		}
		if err := repos.Memberships.Create(ctx, membership); err != nil {
			return err
		}

		ev := events.NewEvent(events.SplitAssigned, sceneID)
		ev.DatasetType = string(dt)
		tx.Emit(ev)
		return nil
	})
	if err != nil {
		if errors.IsConflict(err) {
			pm.metrics.RecordConflict()
		}
		return nil, err
	}

	pm.metrics.RecordAssignment(string(dt), replaced)
	pm.logger.WithContext(ctx).Debug("scene assigned",
		logger.Uint64("scene_id", sceneID),
		logger.String("split", string(dt)),
		logger.Bool("replaced", replaced))
	return membership, nil
}

// GetSplit returns the split of a scene. The boolean is false when the
// scene exists but is unassigned; an unknown scene is a not-found error.
func (pm *Manager) GetSplit(ctx context.Context, sceneID uint64) (entities.DatasetType, bool, error) {
	var (
		dt       entities.DatasetType
		assigned bool
	)
	err := pm.store.View(ctx, "get_split", func(ctx context.Context, repos *repository.Set) error {
		membership, err := repos.Memberships.GetByScene(ctx, sceneID)
		if err == nil {
			dt, assigned = membership.DatasetType, true
			return nil
		}
		if !errors.Is(err, repository.ErrMembershipNotFound) {
			return err
		}

		exists, err := repos.Scenes.Exists(ctx, sceneID)
		if err != nil {
			return err
		}
		if !exists {
			return sceneNotFound(sceneID)
		}
		return nil
	})
	return dt, assigned, err
}
