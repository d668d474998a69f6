package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// EventBusMetrics exposes event bus throughput. Values are read from the
// bus at scrape time through the supplied functions.
type EventBusMetrics struct {
	published *prometheus.Desc
	dropped   *prometheus.Desc
	processed *prometheus.Desc
	failed    *prometheus.Desc

	source EventBusStatsSource
}

// EventBusStatsSource reports cumulative bus counters.
type EventBusStatsSource func() (published, dropped, processed, failed uint64)

// NewEventBusMetrics registers collectors backed by source.
func NewEventBusMetrics(registry *prometheus.Registry, source EventBusStatsSource) (*EventBusMetrics, error) {
	m := &EventBusMetrics{
		published: prometheus.NewDesc("scenestore_events_published_total", "Events accepted by the event bus", nil, nil),
		dropped:   prometheus.NewDesc("scenestore_events_dropped_total", "Events dropped because the buffer was full", nil, nil),
		processed: prometheus.NewDesc("scenestore_events_processed_total", "Event deliveries completed by consumers", nil, nil),
		failed:    prometheus.NewDesc("scenestore_events_failed_total", "Event deliveries that returned an error or panicked", nil, nil),
		source:    source,
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register event bus metrics: %w", err)
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *EventBusMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.published
	ch <- m.dropped
	ch <- m.processed
	ch <- m.failed
}

// Collect implements the Collector interface
func (m *EventBusMetrics) Collect(ch chan<- prometheus.Metric) {
	published, dropped, processed, failed := m.source()
	ch <- prometheus.MustNewConstMetric(m.published, prometheus.CounterValue, float64(published))
	ch <- prometheus.MustNewConstMetric(m.dropped, prometheus.CounterValue, float64(dropped))
	ch <- prometheus.MustNewConstMetric(m.processed, prometheus.CounterValue, float64(processed))
	ch <- prometheus.MustNewConstMetric(m.failed, prometheus.CounterValue, float64(failed))
}
