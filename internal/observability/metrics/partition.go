package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PartitionMetrics tracks split assignment activity.
type PartitionMetrics struct {
	assignmentsTotal *prometheus.CounterVec
	reassignments    prometheus.Counter
	conflictsTotal   prometheus.Counter
	splitScenes      *prometheus.GaugeVec
	batchSize        prometheus.Histogram

	collectors []prometheus.Collector
}

// NewPartitionMetrics creates and registers partition metrics.
func NewPartitionMetrics(registry *prometheus.Registry) (*PartitionMetrics, error) {
	m := &PartitionMetrics{}

	m.assignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_partition_assignments_total",
			Help: "Scenes assigned to a dataset split",
		},
		[]string{"split"},
	)
	m.reassignments = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scenestore_partition_reassignments_total",
		Help: "Assignments that replaced an existing membership",
	})
	m.conflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scenestore_partition_conflicts_total",
		Help: "Assignments rejected because the scene already had a membership",
	})
	m.splitScenes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenestore_partition_split_scenes",
			Help: "Scenes per split at the last audit",
		},
		[]string{"split"},
	)
	m.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenestore_partition_batch_size",
		Help:    "Scenes submitted per batch assignment",
		Buckets: rowCountBuckets,
	})

	m.collectors = []prometheus.Collector{
		m.assignmentsTotal, m.reassignments, m.conflictsTotal, m.splitScenes, m.batchSize,
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register partition metrics: %w", err)
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *PartitionMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PartitionMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordAssignment counts one committed assignment.
func (m *PartitionMetrics) RecordAssignment(split string, replaced bool) {
	if m == nil {
		return
	}
	m.assignmentsTotal.WithLabelValues(split).Inc()
	if replaced {
		m.reassignments.Inc()
	}
}

// RecordAssignments counts n committed assignments to split.
func (m *PartitionMetrics) RecordAssignments(split string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.assignmentsTotal.WithLabelValues(split).Add(float64(n))
}

// RecordReassignments counts memberships replaced by a batch.
func (m *PartitionMetrics) RecordReassignments(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reassignments.Add(float64(n))
}

// RecordConflict counts an assignment rejected without override.
func (m *PartitionMetrics) RecordConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

// RecordBatch records the size of a batch assignment.
func (m *PartitionMetrics) RecordBatch(n int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

// UpdateSplitSize sets the scene gauge for split.
func (m *PartitionMetrics) UpdateSplitSize(split string, scenes uint64) {
	if m == nil {
		return
	}
	m.splitScenes.WithLabelValues(split).Set(float64(scenes))
}
