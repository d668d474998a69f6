package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Transport failure stages reported by the broker client.
const (
	MQTTStageConnect        = "connect"
	MQTTStagePublish        = "publish"
	MQTTStageConnectionLost = "connection_lost"
)

// MQTTMetrics covers broker connectivity and lifecycle event fan-out.
type MQTTMetrics struct {
	connected       prometheus.Gauge
	connectedSince  prometheus.Gauge
	transportErrors *prometheus.CounterVec
	reconnects      prometheus.Counter
	eventsPublished *prometheus.CounterVec
	eventFailures   *prometheus.CounterVec
	payloadBytes    prometheus.Histogram
	publishDuration prometheus.Histogram

	collectors []prometheus.Collector
}

// NewMQTTMetrics creates and registers broker metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{}

	m.connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenestore_mqtt_connected",
		Help: "1 while the broker session is up",
	})
	m.connectedSince = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scenestore_mqtt_connected_since_seconds",
		Help: "Unix time the current broker session was established",
	})
	m.transportErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_mqtt_transport_errors_total",
			Help: "Broker failures by stage",
		},
		[]string{"stage"},
	)
	m.reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scenestore_mqtt_reconnects_total",
		Help: "Automatic reconnect attempts",
	})
	m.eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_mqtt_events_published_total",
			Help: "Lifecycle events acknowledged by the broker",
		},
		[]string{"event_type"},
	)
	m.eventFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_mqtt_event_failures_total",
			Help: "Lifecycle events that could not be published",
		},
		[]string{"event_type"},
	)
	m.payloadBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenestore_mqtt_payload_bytes",
		Help:    "Encoded event payload size",
		Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
	})
	m.publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenestore_mqtt_publish_duration_seconds",
		Help:    "Time from publish to broker acknowledgement",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
	})

	m.collectors = []prometheus.Collector{
		m.connected, m.connectedSince, m.transportErrors, m.reconnects,
		m.eventsPublished, m.eventFailures, m.payloadBytes, m.publishDuration,
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordConnection flips the session gauge. The session start time is only
// moved forward on connect.
func (m *MQTTMetrics) RecordConnection(connected bool) {
	if m == nil {
		return
	}
	if !connected {
		m.connected.Set(0)
		return
	}
	m.connected.Set(1)
	m.connectedSince.SetToCurrentTime()
}

// RecordTransportError counts a broker failure at stage.
func (m *MQTTMetrics) RecordTransportError(stage string) {
	if m == nil {
		return
	}
	m.transportErrors.WithLabelValues(stage).Inc()
}

// RecordReconnect counts one reconnect attempt.
func (m *MQTTMetrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// ObservePublish records an acknowledged publish.
func (m *MQTTMetrics) ObservePublish(payloadBytes int, took time.Duration) {
	if m == nil {
		return
	}
	m.payloadBytes.Observe(float64(payloadBytes))
	m.publishDuration.Observe(took.Seconds())
}

// RecordEvent counts a lifecycle event by type, as published or failed.
func (m *MQTTMetrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.eventFailures.WithLabelValues(eventType).Inc()
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}
