/*
Package log provides structured logging for tablesync using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with run-scoped loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("pipeline")                │          │
	│  │  - WithRun("run-abc123")                    │          │
	│  │  - WithContainer("orders")                  │          │
	│  │  - WithTable("orders.items")                │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "run_id": "run-abc123",                  │          │
	│  │    "container": "orders",                   │          │
	│  │    "message": "batch upserted"               │          │
	│  │  }                                           │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Initializing the logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("pipeline starting")
	log.Warn("stitch fallback without marker")
	log.Error("upsert failed")

Run-scoped structured logging, narrowing one logger through the run:

	runLog := log.WithRun(runID)
	containerLog := log.WithContainer(runLog, "orders")
	containerLog.Info().Msg("export started")

	batchLog := log.WithBatch(containerLog, 3, 500)
	batchLog.Debug().Msg("batch written")

	tableLog := log.WithTable(containerLog, "orders.items")
	tableLog.Warn().Msg("schema rewrite triggered")

	ruLog := log.WithRU(containerLog, 1234.5)
	ruLog.Info().Msg("run completed")

# Integration Points

This package integrates with:

  - pkg/pipeline: logs run lifecycle, batch progress, final report
  - pkg/docstore: logs partition streaming and upsert progress
  - pkg/retry: logs each retry attempt
  - pkg/objectstore/csv: logs malformed rows skipped while parsing
  - cmd/tablesync: wires --log-level/--log-json flags into log.Init

# Best Practices

Do:
  - Use Info level for production
  - Create a WithRun logger once per pipeline invocation and thread it through
  - Log errors with .Err() for stack traces
  - Include container/table context on every log line touching data movement

Don't:
  - Log document contents (may carry customer data)
  - Use Debug level in production
  - Concatenate strings (use .Str, .Int)
*/
package log
