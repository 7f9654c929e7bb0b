package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsWritten counts records written by PutBatch.
	// Labels: provider
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mdsearch",
			Subsystem: "vectorstore",
			Name:      "records_written_total",
			Help:      "Total number of vector records written",
		},
		[]string{"provider"},
	)

	// OperationsTotal counts store operations.
	// Labels: provider, operation (put_batch, query, count, ensure_index, drop), result (success, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mdsearch",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"provider", "operation", "result"},
	)

	// OperationDuration tracks how long store operations take.
	// Labels: provider, operation
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mdsearch",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// QueryResults tracks how many matches a query returned.
	QueryResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mdsearch",
			Subsystem: "vectorstore",
			Name:      "query_results",
			Help:      "Number of matches returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"provider"},
	)
)

// observe records the outcome of one store operation. Use with defer:
//
//	defer observe("chromem", "query", time.Now(), &err)
func observe(provider, operation string, start time.Time, errp *error) {
	OperationDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	result := "success"
	if errp != nil && *errp != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(provider, operation, result).Inc()
}
