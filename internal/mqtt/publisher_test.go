package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/errors"
	"github.com/tphakala/scenestore/internal/events"
	"github.com/tphakala/scenestore/internal/logger"
	"github.com/tphakala/scenestore/internal/observability/metrics"
)

// recordingClient captures publishes instead of talking to a broker.
type recordingClient struct {
	mu       sync.Mutex
	messages map[string][][]byte
	fail     bool
}

func (r *recordingClient) Connect(context.Context) error { return nil }
func (r *recordingClient) IsConnected() bool             { return true }
func (r *recordingClient) Disconnect()                   {}

func (r *recordingClient) Publish(_ context.Context, topic string, payload []byte) error {
	if r.fail {
		return fmt.Errorf("broker unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messages == nil {
		r.messages = make(map[string][][]byte)
	}
	r.messages[topic] = append(r.messages[topic], payload)
	return nil
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

func TestPublisherTopicAndPayload(t *testing.T) {
	t.Parallel()

	rc := &recordingClient{}
	p := NewPublisher(rc, "scenestore/events/", nil, quietLogger())
	assert.Equal(t, "mqtt", p.Name())
	assert.Equal(t, "scenestore/events/split.assigned", p.TopicFor(events.SplitAssigned))

	ev := events.NewEvent(events.SplitAssigned, 12)
	ev.DatasetType = "val"
	ev.TraceID = "trace-1"
	require.NoError(t, p.ProcessEvent(ev))

	msgs := rc.messages["scenestore/events/split.assigned"]
	require.Len(t, msgs, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0], &decoded))
	assert.Equal(t, "split.assigned", decoded["type"])
	assert.InDelta(t, 12, decoded["scene_id"], 0)
	assert.Equal(t, "val", decoded["dataset_type"])
	assert.Equal(t, "trace-1", decoded["trace_id"])
	assert.NotContains(t, decoded, "record_ids", "empty fields are omitted")
}

func TestPublisherReturnsClientErrors(t *testing.T) {
	t.Parallel()

	p := NewPublisher(&recordingClient{fail: true}, "base", nil, quietLogger())
	require.Error(t, p.ProcessEvent(events.NewEvent(events.SceneDeleted, 1)))
}

func TestPublisherCountsEventsByType(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := metrics.NewMQTTMetrics(registry)
	require.NoError(t, err)

	ok := NewPublisher(&recordingClient{}, "base", m, quietLogger())
	require.NoError(t, ok.ProcessEvent(events.NewEvent(events.SplitAssigned, 1)))
	require.NoError(t, ok.ProcessEvent(events.NewEvent(events.SplitAssigned, 2)))

	failing := NewPublisher(&recordingClient{fail: true}, "base", m, quietLogger())
	require.Error(t, failing.ProcessEvent(events.NewEvent(events.SceneDeleted, 3)))

	expected := `
# HELP scenestore_mqtt_events_published_total Lifecycle events acknowledged by the broker
# TYPE scenestore_mqtt_events_published_total counter
scenestore_mqtt_events_published_total{event_type="split.assigned"} 2
# HELP scenestore_mqtt_event_failures_total Lifecycle events that could not be published
# TYPE scenestore_mqtt_event_failures_total counter
scenestore_mqtt_event_failures_total{event_type="scene.deleted"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"scenestore_mqtt_events_published_total", "scenestore_mqtt_event_failures_total"))
}

func TestNewClientValidatesBroker(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	_, err = NewClient(Config{Broker: "localhost"}, nil, quietLogger())
	require.Error(t, err, "scheme and host are required")
}

func TestClientPublishRequiresConnection(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883", ClientID: "test"}, nil, quietLogger())
	require.NoError(t, err)
	assert.False(t, c.IsConnected())

	err = c.Publish(context.Background(), "t", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))

	c.Disconnect()
}

func TestClientIDGetsUniqueSuffix(t *testing.T) {
	t.Parallel()

	a, err := NewClient(Config{Broker: "tcp://broker:1883", ClientID: "scenestore"}, nil, quietLogger())
	require.NoError(t, err)
	b, err := NewClient(Config{Broker: "tcp://broker:1883", ClientID: "scenestore"}, nil, quietLogger())
	require.NoError(t, err)

	idA := a.(*client).config.ClientID
	idB := b.(*client).config.ClientID
	assert.NotEqual(t, idA, idB)
	assert.Contains(t, idA, "scenestore-")
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	cfg := ConfigFromSettings(conf.MQTTSettings{Broker: "tcp://b:1883", QoS: 2, Username: "u"})
	assert.Equal(t, "tcp://b:1883", cfg.Broker)
	assert.Equal(t, byte(2), cfg.QoS)
	assert.Equal(t, conf.DefaultMQTTTopic, cfg.Topic)
	assert.Positive(t, cfg.PublishTimeout)

	cfg = ConfigFromSettings(conf.MQTTSettings{Broker: "tcp://b:1883", Topic: "custom"})
	assert.Equal(t, "custom", cfg.Topic)
}
