// Package metrics provides Prometheus collectors for scenestore components.
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	TxCommitted = "committed"
	TxRollback  = "rollback"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketFactor2 is the common exponential growth factor for histogram buckets.
	BucketFactor2 = 2
	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount15 defines 15 exponential buckets, 1ms to ~16s from BucketStart1ms.
	BucketCount15 = 15
)

// rowCountBuckets covers cascade sizes and batch sizes.
var rowCountBuckets = []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000, 10000}
