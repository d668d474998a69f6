package metrics

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatastoreMetricsRecordOperation(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation("create_scene", "", 0.002)
	m.RecordOperation("create_scene", "", 0.003)
	m.RecordOperation("create_scene", "validation", 0.001)

	assert.InDelta(t, 2, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create_scene", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create_scene", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationErrorsTotal.WithLabelValues("create_scene", "validation")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestDatastoreMetricsTransactionsAndCascade(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	m.RecordTransaction("delete_scene", true, 0.01)
	m.RecordTransaction("delete_scene", false, 0.01)
	m.RecordCascade("detections", 3)
	m.UpdateTableRowCount("scenes", 7)

	assert.InDelta(t, 1, testutil.ToFloat64(m.transactionsTotal.WithLabelValues("delete_scene", TxCommitted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.transactionsTotal.WithLabelValues("delete_scene", TxRollback)), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(m.tableRowCount.WithLabelValues("scenes")), 0)

	expected := `
# HELP scenestore_datastore_table_rows Row count per table at the last stats refresh
# TYPE scenestore_datastore_table_rows gauge
scenestore_datastore_table_rows{table="scenes"} 7
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "scenestore_datastore_table_rows"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	t.Parallel()

	var ds *DatastoreMetrics
	var pm *PartitionMetrics
	var mq *MQTTMetrics

	assert.NotPanics(t, func() {
		ds.RecordOperation("x", "", 0)
		ds.RecordTransaction("x", true, 0)
		ds.RecordCascade("t", 1)
		ds.UpdateTableRowCount("t", 1)
		pm.RecordAssignment("train", false)
		pm.RecordConflict()
		pm.RecordBatch(1)
		pm.UpdateSplitSize("train", 1)
		mq.RecordConnection(true)
		mq.RecordTransportError(MQTTStagePublish)
		mq.ObservePublish(64, time.Millisecond)
		mq.RecordEvent("scene.created", nil)
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewMQTTMetrics(registry)
	require.NoError(t, err)
	_, err = NewMQTTMetrics(registry)
	require.Error(t, err)
}

func TestPartitionMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewPartitionMetrics(registry)
	require.NoError(t, err)

	m.RecordAssignment("train", false)
	m.RecordAssignment("train", true)
	m.RecordConflict()
	m.UpdateSplitSize("val", 12)

	assert.InDelta(t, 2, testutil.ToFloat64(m.assignmentsTotal.WithLabelValues("train")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.reassignments), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.conflictsTotal), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.splitScenes.WithLabelValues("val")), 0)
}

func TestEventBusMetricsReadSource(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewEventBusMetrics(registry, func() (uint64, uint64, uint64, uint64) {
		return 10, 2, 8, 1
	})
	require.NoError(t, err)

	expected := `
# HELP scenestore_events_dropped_total Events dropped because the buffer was full
# TYPE scenestore_events_dropped_total counter
scenestore_events_dropped_total 2
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "scenestore_events_dropped_total"))
}

func TestMQTTMetricsConnectionStatus(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	m.RecordConnection(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.connected), 0)
	assert.Positive(t, testutil.ToFloat64(m.connectedSince))

	m.RecordConnection(false)
	m.RecordTransportError(MQTTStageConnectionLost)
	assert.InDelta(t, 0, testutil.ToFloat64(m.connected), 0)
	assert.Positive(t, testutil.ToFloat64(m.connectedSince), "session start survives a disconnect")
	assert.InDelta(t, 1, testutil.ToFloat64(m.transportErrors.WithLabelValues(MQTTStageConnectionLost)), 0)

	m.ObservePublish(128, 5*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.payloadBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.publishDuration))
}

func TestMQTTMetricsCountEventsByType(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(registry)
	require.NoError(t, err)

	m.RecordEvent("scene.created", nil)
	m.RecordEvent("scene.created", nil)
	m.RecordEvent("split.assigned", nil)
	m.RecordEvent("scene.deleted", fmt.Errorf("broker unavailable"))

	expected := `
# HELP scenestore_mqtt_events_published_total Lifecycle events acknowledged by the broker
# TYPE scenestore_mqtt_events_published_total counter
scenestore_mqtt_events_published_total{event_type="scene.created"} 2
scenestore_mqtt_events_published_total{event_type="split.assigned"} 1
# HELP scenestore_mqtt_event_failures_total Lifecycle events that could not be published
# TYPE scenestore_mqtt_event_failures_total counter
scenestore_mqtt_event_failures_total{event_type="scene.deleted"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"scenestore_mqtt_events_published_total", "scenestore_mqtt_event_failures_total"))
}
