package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RUConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_ru_consumed_total",
			Help: "Total request units consumed, by container and direction",
		},
		[]string{"container", "direction"},
	)

	ThrottleEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_throttle_events_total",
			Help: "Total number of rate-limit throttle events observed, by container",
		},
		[]string{"container"},
	)

	BatchSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tablesync_batch_size",
			Help: "Current adaptive batch size, by container",
		},
		[]string{"container"},
	)

	DocsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_docs_processed_total",
			Help: "Total documents processed, by container, direction, and outcome",
		},
		[]string{"container", "direction", "outcome"},
	)

	RowsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_rows_written_total",
			Help: "Total CSV rows written, by table",
		},
		[]string{"table"},
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablesync_batch_duration_seconds",
			Help:    "Batch processing duration in seconds, by container and direction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"container", "direction"},
	)

	SchemaRewritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_schema_rewrites_total",
			Help: "Total read-merge-rewrite schema evolutions triggered, by table",
		},
		[]string{"table"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_retry_attempts_total",
			Help: "Total retry attempts, by error class",
		},
		[]string{"class"},
	)

	SerializationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_serialization_errors_total",
			Help: "Total CSV rows skipped for failing to decode, by table",
		},
		[]string{"table"},
	)

	DroppedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablesync_dropped_rows_total",
			Help: "Total child rows dropped during stitching, by table and reason",
		},
		[]string{"table", "reason"},
	)
)

func init() {
	prometheus.MustRegister(RUConsumedTotal)
	prometheus.MustRegister(ThrottleEventsTotal)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(DocsProcessedTotal)
	prometheus.MustRegister(RowsWrittenTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(SchemaRewritesTotal)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(SerializationErrorsTotal)
	prometheus.MustRegister(DroppedRowsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
