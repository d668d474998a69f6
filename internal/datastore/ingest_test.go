package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
)

func TestIngestStoresCapturesTogether(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := newTestStore(t, WithPublisher(pub))

	scenes, err := s.Ingest(ctx, []Capture{
		{
			Scene:        newScene(0, "cam-1"),
			Detections:   []NewDetection{carDetection(0.9), carDetection(0.8)},
			Descriptions: []NewDescription{{Text: "two cars", Confidence: 0.7, ModelVersion: "v2"}},
		},
		{Scene: newScene(time.Second, "cam-2")},
	})
	require.NoError(t, err)
	require.Len(t, scenes, 2)

	detections, err := s.ListDetections(ctx, scenes[0].ID)
	require.NoError(t, err)
	assert.Len(t, detections, 2)
	descriptions, err := s.ListDescriptions(ctx, scenes[0].ID)
	require.NoError(t, err)
	assert.Len(t, descriptions, 1)

	assert.Equal(t, []events.EventType{
		events.SceneCreated, events.DetectionsAdded, events.DescriptionAdded, events.SceneCreated,
	}, pub.types())

	pub.mu.Lock()
	trace := pub.events[0].TraceID
	for _, ev := range pub.events {
		assert.Equal(t, trace, ev.TraceID, "one unit of work shares a trace id")
	}
	pub.mu.Unlock()
}

func TestIngestRejectsWholeBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Ingest(ctx, []Capture{
		{Scene: newScene(0, "cam-1"), Detections: []NewDetection{carDetection(0.9)}},
		{Scene: newScene(time.Second, "cam-1"), Descriptions: []NewDescription{{Text: "", Confidence: 0.5, ModelVersion: "v1"}}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 1, ee.GetContext()["capture_index"])

	assert.Empty(t, collect(t, s.ListScenes(ctx, SceneFilter{})))

	_, err = s.Ingest(ctx, nil)
	assert.True(t, errors.IsValidation(err))
}
