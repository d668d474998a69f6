// Package events provides an asynchronous event bus that carries scene
// lifecycle notifications from the store to external collaborators without
// blocking the writer.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle transition.
type EventType string

const (
	SceneCreated     EventType = "scene.created"
	SceneProcessed   EventType = "scene.processed"
	SceneDeleted     EventType = "scene.deleted"
	SplitAssigned    EventType = "split.assigned"
	AnnotationAdded  EventType = "annotation.added"
	DetectionsAdded  EventType = "detections.added"
	DescriptionAdded EventType = "description.added"
)

// Event is emitted after the transaction that caused it has committed.
type Event struct {
	ID          uuid.UUID        `json:"id"`
	Type        EventType        `json:"type"`
	SceneID     uint64           `json:"scene_id"`
	RecordIDs   []uint64         `json:"record_ids,omitempty"`
	DatasetType string           `json:"dataset_type,omitempty"`
	Counts      map[string]int64 `json:"counts,omitempty"`
	TraceID     string           `json:"trace_id,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewEvent returns an event stamped with a fresh id and the current time.
func NewEvent(eventType EventType, sceneID uint64) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		SceneID:   sceneID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher accepts events without blocking. It returns false when the
// event was not accepted.
type Publisher interface {
	TryPublish(event Event) bool
}

// EventConsumer represents a consumer that processes lifecycle events
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single event
	ProcessEvent(event Event) error
}

// EventBusStats contains runtime statistics for monitoring
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}
