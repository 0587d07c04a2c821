/*
Package metrics provides Prometheus metrics collection and exposition for
tablesync.

The metrics package defines and registers all tablesync metrics using the
Prometheus client library, providing observability into RU consumption,
throttle behavior, batch sizing, and row-level throughput across both
pipelines. Metrics are exposed via an HTTP endpoint for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  RU accounting: consumed total, throttles   │          │
	│  │  Throughput: docs/rows processed, batch size│          │
	│  │  Latency: batch duration histograms         │          │
	│  │  Schema: rewrite counts                     │          │
	│  │  Retry: attempts by error class             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

tablesync_ru_consumed_total{container, direction}:
  - Type: Counter
  - Request units billed, accumulated per container and direction
    (export/import).

tablesync_throttle_events_total{container}:
  - Type: Counter
  - Number of times the ThrottleController observed a rate-limit response.

tablesync_batch_size{container}:
  - Type: Gauge
  - Current adaptive batch size chosen by the ThrottleController.

tablesync_docs_processed_total{container, direction, outcome}:
  - Type: Counter
  - Documents processed, labeled by outcome (succeeded/failed).

tablesync_rows_written_total{table}:
  - Type: Counter
  - CSV rows appended, labeled by table (parent or dotted child path).

tablesync_batch_duration_seconds{container, direction}:
  - Type: Histogram
  - Wall time to process one batch end to end.

tablesync_schema_rewrites_total{table}:
  - Type: Counter
  - Read-merge-rewrite operations triggered by schema drift.

tablesync_retry_attempts_total{class}:
  - Type: Counter
  - Retry attempts, labeled by apperr.Class (rate_limited/timeout/unavailable).

tablesync_serialization_errors_total{table}:
  - Type: Counter
  - CSV rows skipped for failing to decode (column-count mismatch), by table.

tablesync_dropped_rows_total{table, reason}:
  - Type: Counter
  - Child rows dropped while stitching, by table and reason. The only
    reason recorded is "orphaned"; a marker path that runs into a scalar
    is not counted, since the stitcher overwrites the scalar.

# Usage

	timer := metrics.NewTimer()
	// ... process batch ...
	timer.ObserveDurationVec(metrics.BatchDuration, container, "export")

	metrics.RUConsumedTotal.WithLabelValues(container, "import").Add(ruCharge)
	metrics.DocsProcessedTotal.WithLabelValues(container, "import", "succeeded").Inc()

	http.Handle("/metrics", metrics.Handler())

# Integration Points

This package integrates with:

  - pkg/docstore: throttle events, throttle saturation
  - pkg/retry: retry attempts
  - pkg/objectstore/csv: schema rewrites, serialization errors
  - pkg/stitch: dropped rows
  - pkg/pipeline: RU consumption, rows written, batch duration, docs
    processed, batch size

# Design Patterns

Package init registration: all metrics registered in init(), panicking on
duplicate registration so misconfiguration fails fast at process start.

Label discipline: container and table names are bounded by the request
parameters of a single run, never document IDs — cardinality stays low.
*/
package metrics
