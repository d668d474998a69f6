package datastore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
)

// populateScene attaches n detections, m descriptions, k annotations and one
// membership to a new scene.
func populateScene(t *testing.T, s *Store, offset time.Duration, n, m, k int) *entities.Scene {
	t.Helper()
	ctx := context.Background()
	scene := mustCreateScene(t, s, offset)

	for range n {
		_, err := s.AddDetection(ctx, scene.ID, carDetection(0.7))
		require.NoError(t, err)
	}
	for range m {
		_, err := s.AddDescription(ctx, scene.ID, NewDescription{Text: "street", Confidence: 0.5, ModelVersion: "v1"})
		require.NoError(t, err)
	}
	for range k {
		_, err := s.AddAnnotation(ctx, scene.ID, NewAnnotation{LabelType: entities.LabelTypeManual})
		require.NoError(t, err)
	}

	require.NoError(t, s.WithTransaction(ctx, func(tx *Tx) error {
		id, err := tx.NextID(ids.KindMembership)
		if err != nil {
			return err
		}
		return tx.Repos().Memberships.Create(tx.Context(), &entities.DatasetMembership{
			ID: id, SceneID: scene.ID, DatasetType: entities.DatasetTrain, AddedDate: tx.Now(),
		})
	}))
	return scene
}

func TestDeleteSceneCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestStore(t, WithPublisher(pub))

	scene := populateScene(t, s, 0, 3, 2, 4)
	other := populateScene(t, s, time.Second, 1, 1, 1)

	result, err := s.DeleteScene(ctx, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Detections)
	assert.Equal(t, int64(2), result.Descriptions)
	assert.Equal(t, int64(4), result.Annotations)
	assert.Equal(t, int64(1), result.Memberships)
	assert.Equal(t, int64(10), result.Dependents())

	_, err = s.GetScene(ctx, scene.ID)
	assert.True(t, errors.IsNotFound(err))
	detections, err := s.ListDetections(ctx, scene.ID)
	require.NoError(t, err)
	assert.Empty(t, detections)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Scenes)
	assert.Equal(t, int64(1), st.Detections)
	assert.Equal(t, int64(1), st.Descriptions)
	assert.Equal(t, int64(1), st.Annotations)
	assert.Equal(t, int64(1), st.Memberships)

	_, err = s.GetScene(ctx, other.ID)
	require.NoError(t, err)

	_, err = s.DeleteScene(ctx, scene.ID)
	assert.True(t, errors.IsNotFound(err), "second delete")

	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	pub.mu.Unlock()
	assert.Equal(t, events.SceneDeleted, last.Type)
	assert.Equal(t, int64(4), last.Counts["annotations"])
	assert.NotEmpty(t, last.TraceID)
}

func TestDeleteSceneRollsBackOnFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestStore(t, WithPublisher(pub))

	scene := populateScene(t, s, 0, 2, 1, 2)
	published := len(pub.types())

	// annotations are deleted after detections and descriptions
	err := s.Manager().DB().Callback().Delete().Before("gorm:delete").
		Register("test:fail_annotations", func(db *gorm.DB) {
			if db.Statement.Table == "annotations" {
				_ = db.AddError(errors.NewStd("injected failure"))
			}
		})
	require.NoError(t, err)

	_, err = s.DeleteScene(ctx, scene.ID)
	require.Error(t, err)
	assert.True(t, errors.IsStorageUnavailable(err))

	require.NoError(t, s.Manager().DB().Callback().Delete().Remove("test:fail_annotations"))

	_, err = s.GetScene(ctx, scene.ID)
	require.NoError(t, err, "scene survives the failed cascade")
	detections, err := s.ListDetections(ctx, scene.ID)
	require.NoError(t, err)
	assert.Len(t, detections, 2)
	descriptions, err := s.ListDescriptions(ctx, scene.ID)
	require.NoError(t, err)
	assert.Len(t, descriptions, 1)

	assert.Len(t, pub.types(), published, "no event for a rolled back delete")

	_, err = s.DeleteScene(ctx, scene.ID)
	require.NoError(t, err)
}

func TestWithTransactionRollsBackEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestStore(t, WithPublisher(pub))

	boom := errors.NewStd("abort")
	err := s.WithTransaction(ctx, func(tx *Tx) error {
		scene, err := newSceneRecord(tx, newScene(0, "cam-1"))
		if err != nil {
			return err
		}
		if err := tx.Repos().Scenes.Create(tx.Context(), scene); err != nil {
			return err
		}
		tx.Emit(events.NewEvent(events.SceneCreated, scene.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Empty(t, collect(t, s.ListScenes(ctx, SceneFilter{})))
	assert.Empty(t, pub.types())
}

func TestConcurrentWritersGetUniqueIdentifiers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	const (
		writers   = 8
		perWriter = 10
	)

	var (
		mu   sync.Mutex
		seen = make(map[uint64]struct{})
	)
	var g errgroup.Group
	for w := range writers {
		g.Go(func() error {
			for i := range perWriter {
				scene, err := s.CreateScene(ctx, newScene(time.Duration(w*perWriter+i)*time.Millisecond, "cam-1"))
				if err != nil {
					return err
				}
				if _, err := s.AddDetection(ctx, scene.ID, carDetection(0.6)); err != nil {
					return err
				}
				mu.Lock()
				seen[scene.ID] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, seen, writers*perWriter)
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*perWriter), st.Scenes)
	assert.Equal(t, int64(writers*perWriter), st.Detections)
}

func TestPublisherRejectionDoesNotFailWrite(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{reject: true}
	s := newTestStore(t, WithPublisher(pub))

	scene := mustCreateScene(t, s, 0)
	_, err := s.GetScene(context.Background(), scene.ID)
	require.NoError(t, err)
	assert.Empty(t, pub.types())
}
