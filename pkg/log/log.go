package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRun creates a child logger with run_id field, identifying a single
// export or import pipeline execution. This is the root of the per-run
// logger chain: cmd/tablesync builds one of these per invocation and every
// other With* helper below narrows it further rather than starting fresh
// from the global Logger.
func WithRun(runID string) zerolog.Logger {
	return Logger.With().Str("run_id", runID).Logger()
}

// WithContainer narrows base with a container field.
func WithContainer(base zerolog.Logger, container string) zerolog.Logger {
	return base.With().Str("container", container).Logger()
}

// WithTable narrows base with a table field, naming a CSV table's dotted
// path (e.g. "orders.items"). Used at stitch and per-child-table write call
// sites, where the run/container context is already on base.
func WithTable(base zerolog.Logger, table string) zerolog.Logger {
	return base.With().Str("table", table).Logger()
}

// WithBatch narrows base with batch index and row-count fields, for
// per-batch progress and RU-accounting log lines in pkg/pipeline.
func WithBatch(base zerolog.Logger, index, size int) zerolog.Logger {
	return base.With().Int("batch", index).Int("batch_rows", size).Logger()
}

// WithRU narrows base with a cumulative request-unit field, for logging
// request-unit consumption alongside the run/batch context that produced it.
func WithRU(base zerolog.Logger, ru float64) zerolog.Logger {
	return base.With().Float64("ru_consumed", ru).Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
