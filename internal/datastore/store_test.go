package datastore

import (
	"context"
	"io"
	"iter"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func openTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()

	m, err := NewSQLiteManager(SQLiteConfig{Path: path, Logger: quietLogger()})
	require.NoError(t, err)

	s, err := Open(context.Background(), m, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return s
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := openTestStore(t, filepath.Join(t.TempDir(), "scenes.db"), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newScene(offset time.Duration, camera string) NewScene {
	return NewScene{
		Timestamp: baseTime.Add(offset),
		CameraID:  camera,
		MediaPath: "/m/" + camera,
	}
}

func mustCreateScene(t *testing.T, s *Store, offset time.Duration) *entities.Scene {
	t.Helper()
	scene, err := s.CreateScene(context.Background(), newScene(offset, "cam-1"))
	require.NoError(t, err)
	return scene
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	reject bool
}

func (p *recordingPublisher) TryPublish(ev events.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false
	}
	p.events = append(p.events, ev)
	return true
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func TestCreateAndGetScene(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	lat, lon, res := 60.17, 24.94, "1920x1080"
	scene, err := s.CreateScene(ctx, NewScene{
		Timestamp:  baseTime,
		Latitude:   &lat,
		Longitude:  &lon,
		Resolution: &res,
		CameraID:   "cam-1",
		MediaPath:  "/m/1",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), scene.ID)
	assert.False(t, scene.Processed)

	got, err := s.GetScene(ctx, scene.ID)
	require.NoError(t, err)
	assert.Equal(t, baseTime.UnixNano(), got.CapturedAt)
	assert.True(t, got.Timestamp().Equal(baseTime))
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, lat, *got.Latitude, 1e-9)
	assert.Equal(t, "1920x1080", *got.Resolution)

	second := mustCreateScene(t, s, time.Second)
	assert.Greater(t, second.ID, scene.ID)
}

func TestCreateSceneRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	lat := 91.0
	lon := -181.0
	tests := []struct {
		name  string
		input NewScene
	}{
		{"missing timestamp", NewScene{CameraID: "cam", MediaPath: "/m"}},
		{"blank camera", NewScene{Timestamp: baseTime, CameraID: "  ", MediaPath: "/m"}},
		{"blank media path", NewScene{Timestamp: baseTime, CameraID: "cam"}},
		{"latitude out of range", NewScene{Timestamp: baseTime, CameraID: "cam", MediaPath: "/m", Latitude: &lat}},
		{"longitude out of range", NewScene{Timestamp: baseTime, CameraID: "cam", MediaPath: "/m", Longitude: &lon}},
		{"year beyond nanosecond range", NewScene{Timestamp: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC), CameraID: "cam", MediaPath: "/m"}},
	}

	for _, tt := range tests {
		_, err := s.CreateScene(ctx, tt.input)
		require.Error(t, err, tt.name)
		assert.True(t, errors.IsValidation(err), tt.name)
	}

	assert.Empty(t, collect(t, s.ListScenes(ctx, SceneFilter{})))
}

func TestGetSceneNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.GetScene(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsStorageUnavailable(err))
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestStore(t, WithPublisher(pub))

	scene := mustCreateScene(t, s, 0)
	require.NoError(t, s.MarkProcessed(ctx, scene.ID))
	require.NoError(t, s.MarkProcessed(ctx, scene.ID))

	got, err := s.GetScene(ctx, scene.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)

	err = s.MarkProcessed(ctx, 99)
	assert.True(t, errors.IsNotFound(err))

	assert.Equal(t, []events.EventType{events.SceneCreated, events.SceneProcessed, events.SceneProcessed}, pub.types())
}

func TestListScenesPaginatesInTimeOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, WithPageSize(3))

	// created out of timestamp order; seven scenes span three pages
	offsets := []time.Duration{5, 1, 3, 7, 2, 6, 4}
	for _, off := range offsets {
		_, err := s.CreateScene(ctx, newScene(off*time.Minute, "cam-1"))
		require.NoError(t, err)
	}
	_, err := s.CreateScene(ctx, newScene(4*time.Minute, "cam-2"))
	require.NoError(t, err)

	seq := s.ListScenes(ctx, SceneFilter{})
	first := collect(t, seq)
	require.Len(t, first, 8)
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		ordered := prev.CapturedAt < cur.CapturedAt || (prev.CapturedAt == cur.CapturedAt && prev.ID < cur.ID)
		assert.True(t, ordered, "scene %d before %d", prev.ID, cur.ID)
	}

	// ranging again restarts from the first row
	again := collect(t, seq)
	assert.Equal(t, first, again)

	from, to := baseTime.Add(2*time.Minute), baseTime.Add(4*time.Minute)
	ranged := collect(t, s.ListScenes(ctx, SceneFilter{From: &from, To: &to, CameraID: "cam-1"}))
	require.Len(t, ranged, 3)
	assert.True(t, ranged[0].Timestamp().Equal(from))
	assert.True(t, ranged[2].Timestamp().Equal(to))

	_, err = s.CreateScene(ctx, newScene(time.Hour, "cam-3"))
	require.NoError(t, err)
	recent, err := s.RecentScenes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "cam-3", recent[0].CameraID)
}

func TestListScenesStopsEarly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t, WithPageSize(2))

	for i := range 5 {
		mustCreateScene(t, s, time.Duration(i)*time.Second)
	}

	var seen int
	for _, err := range s.ListScenes(ctx, SceneFilter{}) {
		require.NoError(t, err)
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestListScenesRejectsInvertedRange(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	from, to := baseTime.Add(time.Hour), baseTime
	var errs int
	for _, err := range s.ListScenes(context.Background(), SceneFilter{From: &from, To: &to}) {
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		errs++
	}
	assert.Equal(t, 1, errs)

	_, err := s.RecentScenes(context.Background(), 0)
	assert.True(t, errors.IsValidation(err))
}

func TestListScenesRangeBeyondNanosecondLimits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for i := range 3 {
		mustCreateScene(t, s, time.Duration(i)*time.Minute)
	}

	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Len(t, collect(t, s.ListScenes(ctx, SceneFilter{From: &from, To: &to})), 3)

	ancient := time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Len(t, collect(t, s.ListScenes(ctx, SceneFilter{From: &ancient})), 3)
	assert.Empty(t, collect(t, s.ListScenes(ctx, SceneFilter{To: &ancient})))

	future := time.Date(2500, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, collect(t, s.ListScenes(ctx, SceneFilter{From: &future, To: &to})))
}

func TestIdentifiersMonotonicAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scenes.db")

	s := openTestStore(t, path)
	var last *entities.Scene
	for i := range 3 {
		last = mustCreateScene(t, s, time.Duration(i)*time.Second)
	}
	_, err := s.DeleteScene(ctx, last.ID)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	t.Cleanup(func() { _ = reopened.Close() })

	next := mustCreateScene(t, reopened, time.Minute)
	assert.Greater(t, next.ID, last.ID, "deleted identifier must not be reissued")
}

func TestCanceledContextReportsTimeout(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateScene(ctx, newScene(0, "cam-1"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))

	_, err = s.GetScene(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
}

func TestStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	scene := mustCreateScene(t, s, 0)
	mustCreateScene(t, s, time.Second)
	_, err := s.AddDetections(ctx, scene.ID, []NewDetection{
		{ClassLabel: "car", Confidence: 0.9, Box: entities.Box{XMin: 0, YMin: 0, XMax: 1, YMax: 1}},
		{ClassLabel: "bus", Confidence: 0.4, Box: entities.Box{XMin: 0, YMin: 0, XMax: 2, YMax: 2}},
	})
	require.NoError(t, err)
	_, err = s.AddAnnotation(ctx, scene.ID, NewAnnotation{LabelType: entities.LabelTypeGroundTruth})
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Scenes)
	assert.Equal(t, int64(2), st.Detections)
	assert.Equal(t, int64(1), st.Annotations)
	assert.Equal(t, int64(1), st.AnnotationsByType[entities.LabelTypeGroundTruth])
	assert.Equal(t, int64(2), st.Unassigned())
}
