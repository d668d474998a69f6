package datastore

import (
	"context"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
)

// NewScene describes a captured frame being registered.
type NewScene struct {
	Timestamp  time.Time // capture instant, required
	Latitude   *float64
	Longitude  *float64
	Resolution *string
	CameraID   string
	MediaPath  string
}

// SceneFilter narrows ListScenes. Zero fields do not filter.
type SceneFilter = repository.SceneFilter

// CascadeResult counts the rows removed by DeleteScene.
type CascadeResult struct {
	SceneID      uint64
	Detections   int64
	Descriptions int64
	Annotations  int64
	Memberships  int64
}

// Dependents returns the number of child rows removed with the scene.
func (r CascadeResult) Dependents() int64 {
	return r.Detections + r.Descriptions + r.Annotations + r.Memberships
}

func (in NewScene) validate() error {
	if in.Timestamp.IsZero() {
		return validationError("scene timestamp is required", "timestamp", nil)
	}
	if in.Timestamp.Before(minTimestamp) || in.Timestamp.After(maxTimestamp) {
		return validationError("scene timestamp is outside the storable range", "timestamp", in.Timestamp)
	}
	if strings.TrimSpace(in.CameraID) == "" {
		return validationError("camera_id must not be empty", "camera_id", in.CameraID)
	}
	if len(in.CameraID) > 255 {
		return validationError("camera_id exceeds 255 bytes", "camera_id", len(in.CameraID))
	}
	if strings.TrimSpace(in.MediaPath) == "" {
		return validationError("media_path must not be empty", "media_path", in.MediaPath)
	}
	if len(in.MediaPath) > 1024 {
		return validationError("media_path exceeds 1024 bytes", "media_path", len(in.MediaPath))
	}
	if in.Latitude != nil && (!isFinite(*in.Latitude) || *in.Latitude < -90 || *in.Latitude > 90) {
		return validationError("latitude must be within [-90, 90]", "latitude", *in.Latitude)
	}
	if in.Longitude != nil && (!isFinite(*in.Longitude) || *in.Longitude < -180 || *in.Longitude > 180) {
		return validationError("longitude must be within [-180, 180]", "longitude", *in.Longitude)
	}
	if in.Resolution != nil && len(*in.Resolution) > 64 {
		return validationError("resolution exceeds 64 bytes", "resolution", *in.Resolution)
	}
	return nil
}

// Capture instants are stored as Unix nanoseconds.
var (
	minTimestamp = time.Unix(0, math.MinInt64)
	maxTimestamp = time.Unix(0, math.MaxInt64)
)

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// newSceneRecord allocates an id for a validated input.
func newSceneRecord(tx *Tx, in NewScene) (*entities.Scene, error) {
	id, err := tx.NextID(ids.KindScene)
	if err != nil {
		return nil, err
	}
	return &entities.Scene{
		ID:         id,
		CapturedAt: in.Timestamp.UnixNano(),
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		Resolution: in.Resolution,
		CameraID:   in.CameraID,
		MediaPath:  in.MediaPath,
	}, nil
}

// CreateScene registers a captured frame. The scene starts unprocessed.
func (s *Store) CreateScene(ctx context.Context, in NewScene) (*entities.Scene, error) {
	if err := in.validate(); err != nil {
		s.metrics.RecordOperation("create_scene", categoryLabel(err), 0)
		return nil, err
	}

	var scene *entities.Scene
	err := s.Transaction(ctx, "create_scene", func(tx *Tx) error {
		var err error
		if scene, err = newSceneRecord(tx, in); err != nil {
			return err
		}
		if err := tx.Repos().Scenes.Create(tx.Context(), scene); err != nil {
			return err
		}
		tx.Emit(events.NewEvent(events.SceneCreated, scene.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Debug("scene created",
		logger.Uint64("scene_id", scene.ID),
		logger.String("camera_id", scene.CameraID))
	return scene, nil
}

// GetScene returns the scene with id.
func (s *Store) GetScene(ctx context.Context, id uint64) (*entities.Scene, error) {
	var scene *entities.Scene
	err := s.Read(ctx, "get_scene", func(ctx context.Context, repos *repository.Set) error {
		var err error
		scene, err = repos.Scenes.GetByID(ctx, id)
		if err != nil {
			return sceneLookupError(err, id)
		}
		return nil
	})
	return scene, err
}

// MarkProcessed flags a scene as handled by the downstream pipelines.
// Marking an already processed scene succeeds.
func (s *Store) MarkProcessed(ctx context.Context, id uint64) error {
	err := s.Read(ctx, "mark_processed", func(ctx context.Context, repos *repository.Set) error {
		return sceneLookupError(repos.Scenes.MarkProcessed(ctx, id), id)
	})
	if err != nil {
		return err
	}

	ev := events.NewEvent(events.SceneProcessed, id)
	_, ev.TraceID = logger.EnsureTraceID(ctx)
	s.publish([]events.Event{ev})
	return nil
}

// DeleteScene removes a scene together with every record that references
// it. Children are deleted before the scene inside one transaction; a
// failure at any step rolls everything back.
func (s *Store) DeleteScene(ctx context.Context, id uint64) (*CascadeResult, error) {
	result := &CascadeResult{SceneID: id}

	err := s.Transaction(ctx, "delete_scene", func(tx *Tx) error {
		ctx, repos := tx.Context(), tx.Repos()

		exists, err := repos.Scenes.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return notFound(repository.ErrSceneNotFound, id)
		}

		if result.Detections, err = repos.Detections.DeleteByScene(ctx, id); err != nil {
			return err
		}
		if result.Descriptions, err = repos.Descriptions.DeleteByScene(ctx, id); err != nil {
			return err
		}
		if result.Annotations, err = repos.Annotations.DeleteByScene(ctx, id); err != nil {
			return err
		}
		if result.Memberships, err = repos.Memberships.DeleteByScene(ctx, id); err != nil {
			return err
		}
		if err := repos.Scenes.Delete(ctx, id); err != nil {
			return err
		}

		ev := events.NewEvent(events.SceneDeleted, id)
		ev.Counts = map[string]int64{
			"detections":   result.Detections,
			"descriptions": result.Descriptions,
			"annotations":  result.Annotations,
			"memberships":  result.Memberships,
		}
		tx.Emit(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCascade("detections", result.Detections)
	s.metrics.RecordCascade("scene_descriptions", result.Descriptions)
	s.metrics.RecordCascade("annotations", result.Annotations)
	s.metrics.RecordCascade("dataset_memberships", result.Memberships)

	s.logger.WithContext(ctx).Info("scene deleted",
		logger.Uint64("scene_id", id),
		logger.Int64("dependents", result.Dependents()))
	return result, nil
}

// ListScenes returns scenes matching filter ordered by capture time, then
// id. The sequence is lazy and restartable.
func (s *Store) ListScenes(ctx context.Context, filter SceneFilter) iter.Seq2[*entities.Scene, error] {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return failed[*entities.Scene](validationError("time range start is after its end", "from", *filter.From))
	}

	filter, empty := clampTimeRange(filter)
	if empty {
		return func(func(*entities.Scene, error) bool) {}
	}

	return Paginate(ctx, s, "list_scenes",
		func(ctx context.Context, repos *repository.Set, after *repository.SceneCursor, limit int) ([]*entities.Scene, error) {
			return repos.Scenes.ListPage(ctx, filter, after, limit)
		},
		repository.CursorOf)
}

// clampTimeRange bounds the filter to the storable range so the nanosecond
// conversion cannot overflow. It reports true when no stored scene can match.
func clampTimeRange(filter SceneFilter) (SceneFilter, bool) {
	if filter.From != nil {
		if filter.From.After(maxTimestamp) {
			return filter, true
		}
		if filter.From.Before(minTimestamp) {
			from := minTimestamp
			filter.From = &from
		}
	}
	if filter.To != nil {
		if filter.To.Before(minTimestamp) {
			return filter, true
		}
		if filter.To.After(maxTimestamp) {
			to := maxTimestamp
			filter.To = &to
		}
	}
	return filter, false
}

// RecentScenes returns up to limit scenes, newest first.
func (s *Store) RecentScenes(ctx context.Context, limit int) ([]*entities.Scene, error) {
	if limit <= 0 {
		return nil, validationError("limit must be positive", "limit", limit)
	}
	var scenes []*entities.Scene
	err := s.Read(ctx, "recent_scenes", func(ctx context.Context, repos *repository.Set) error {
		var err error
		scenes, err = repos.Scenes.Recent(ctx, limit)
		return err
	})
	return scenes, err
}

// sceneLookupError attaches the scene id to a repository not-found error.
func sceneLookupError(err error, id uint64) error {
	if errors.Is(err, repository.ErrSceneNotFound) {
		return notFound(repository.ErrSceneNotFound, id)
	}
	return err
}

// requireScene fails with a not-found error unless the scene exists.
func requireScene(tx *Tx, id uint64) error {
	exists, err := tx.Repos().Scenes.Exists(tx.Context(), id)
	if err != nil {
		return err
	}
	if !exists {
		return notFound(repository.ErrSceneNotFound, id)
	}
	return nil
}
