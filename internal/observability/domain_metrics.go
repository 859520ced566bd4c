package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	interpretationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartscan_interpretations_total",
			Help: "Total number of smart query interpretations by strategy and error type.",
		},
		[]string{"strategy", "error_type"},
	)
	interpretationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartscan_interpretation_duration_seconds",
			Help:    "End-to-end smart query latency including store round trips.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	returnedItemsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartscan_returned_items_total",
			Help: "Total number of items returned to smart query callers.",
		},
	)
	tablesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartscan_tables_created_total",
			Help: "Total number of tables created through the API.",
		},
	)
	itemsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smartscan_items_written_total",
			Help: "Total number of items written through the API and seeder.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		interpretationsTotal,
		interpretationDurationSeconds,
		returnedItemsTotal,
		tablesCreatedTotal,
		itemsWrittenTotal,
	)
}

func ObserveInterpretation(strategy, errorType string, items int, elapsed time.Duration) {
	if errorType == "" {
		errorType = "none"
	}
	interpretationsTotal.WithLabelValues(strategy, errorType).Inc()
	interpretationDurationSeconds.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if items > 0 {
		returnedItemsTotal.Add(float64(items))
	}
}

func IncrementTablesCreated() {
	tablesCreatedTotal.Inc()
}

func AddItemsWritten(count int) {
	if count > 0 {
		itemsWrittenTotal.Add(float64(count))
	}
}
