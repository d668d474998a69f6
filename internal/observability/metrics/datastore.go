package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for datastore operations.
// A nil *DatastoreMetrics records nothing, so callers need no enabled check.
type DatastoreMetrics struct {
	registry *prometheus.Registry

	operationsTotal      *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
	operationErrorsTotal *prometheus.CounterVec

	transactionsTotal   *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec

	cascadeRowsDeleted *prometheus.HistogramVec
	tableRowCount      *prometheus.GaugeVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_datastore_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenestore_datastore_operation_duration_seconds",
			Help:    "Time taken for store operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.operationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_datastore_operation_errors_total",
			Help: "Total number of store operation errors by category",
		},
		[]string{"operation", "category"},
	)

	m.transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenestore_datastore_transactions_total",
			Help: "Total number of transactions by outcome",
		},
		[]string{"operation", "status"}, // status: committed, rollback
	)

	m.transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenestore_datastore_transaction_duration_seconds",
			Help:    "Time taken for transactions",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.cascadeRowsDeleted = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scenestore_datastore_cascade_rows_deleted",
			Help:    "Dependent rows removed per scene deletion",
			Buckets: rowCountBuckets,
		},
		[]string{"table"},
	)

	m.tableRowCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scenestore_datastore_table_rows",
			Help: "Row count per table at the last stats refresh",
		},
		[]string{"table"},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.operationErrorsTotal,
		m.transactionsTotal,
		m.transactionDuration,
		m.cascadeRowsDeleted,
		m.tableRowCount,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records the outcome and duration of a store operation.
// category is empty on success.
func (m *DatastoreMetrics) RecordOperation(operation, category string, seconds float64) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
	if category == "" {
		m.operationsTotal.WithLabelValues(operation, StatusSuccess).Inc()
		return
	}
	m.operationsTotal.WithLabelValues(operation, StatusError).Inc()
	m.operationErrorsTotal.WithLabelValues(operation, category).Inc()
}

// RecordTransaction records a finished transaction.
func (m *DatastoreMetrics) RecordTransaction(operation string, committed bool, seconds float64) {
	if m == nil {
		return
	}
	status := TxRollback
	if committed {
		status = TxCommitted
	}
	m.transactionsTotal.WithLabelValues(operation, status).Inc()
	m.transactionDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordCascade records the dependent rows removed from table by one scene deletion.
func (m *DatastoreMetrics) RecordCascade(table string, rows int64) {
	if m == nil {
		return
	}
	m.cascadeRowsDeleted.WithLabelValues(table).Observe(float64(rows))
}

// UpdateTableRowCount sets the row count gauge for table.
func (m *DatastoreMetrics) UpdateTableRowCount(table string, rows int64) {
	if m == nil {
		return
	}
	m.tableRowCount.WithLabelValues(table).Set(float64(rows))
}
