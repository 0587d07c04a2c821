package docstore

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/log"
	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/retry"
	"github.com/cuemby/tablesync/pkg/throttle"
)

// WriteResult summarizes one UpsertAll call.
type WriteResult struct {
	Succeeded int
	Failed    int
	FailedIDs []string // capped at 20 samples, per §7's report shape
	RUTotal   float64
}

const failedIDSampleCap = 20

// Writer upserts documents to a container with parallelism bounded by
// MaxConcurrent, reporting each success or throttle to the adaptive
// batch-size controller (§4.5). MaxConcurrent does not change during a run.
type Writer struct {
	Store             Store
	Container         string
	PartitionKeyPath  string // dotted path, e.g. "region" or "address.region"
	MaxConcurrent     int
	Throttle          *throttle.Controller
	Retry             retry.Policy
	Log               zerolog.Logger
	ProgressEvery     int // structured progress log cadence; default 100
}

// NewWriter constructs a Writer with the engine's default progress cadence.
func NewWriter(store Store, container, partitionKeyPath string, maxConcurrent int, th *throttle.Controller, rp retry.Policy, log zerolog.Logger) *Writer {
	return &Writer{
		Store:            store,
		Container:        container,
		PartitionKeyPath: partitionKeyPath,
		MaxConcurrent:    maxConcurrent,
		Throttle:         th,
		Retry:            rp,
		Log:              log,
		ProgressEvery:    100,
	}
}

// UpsertAll coerces and upserts every document in docs, bounded by
// MaxConcurrent concurrent in-flight upserts. Per-document terminal
// failures are collected rather than aborting the batch.
func (w *Writer) UpsertAll(ctx context.Context, docs []map[string]any) WriteResult {
	sem := make(chan struct{}, maxInt(1, w.MaxConcurrent))
	var wg sync.WaitGroup
	var mu sync.Mutex
	result := WriteResult{}
	completed := 0

	for _, doc := range docs {
		doc := CoerceJSONSafe(doc).(map[string]any)
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ru, err := w.upsertOne(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				if len(result.FailedIDs) < failedIDSampleCap {
					id, _ := doc["id"].(string)
					result.FailedIDs = append(result.FailedIDs, id)
				}
			} else {
				result.Succeeded++
				result.RUTotal += ru
			}
			completed++
			if w.ProgressEvery > 0 && completed%w.ProgressEvery == 0 {
				log.WithRU(w.Log, result.RUTotal).Info().
					Int("completed", completed).
					Int("total", len(docs)).
					Msg("upsert progress")
			}
		}()
	}
	wg.Wait()
	return result
}

func (w *Writer) upsertOne(ctx context.Context, doc map[string]any) (float64, error) {
	var ru float64
	partitionKey := ExtractPartitionKey(doc, w.PartitionKeyPath)
	err := w.Retry.Execute(ctx, "upsert "+w.Container, func(ctx context.Context) error {
		res, upErr := w.Store.Upsert(ctx, w.Container, doc, partitionKey)
		if upErr != nil {
			if apperr.Classify(upErr) == apperr.ClassRateLimited && w.Throttle != nil {
				w.Throttle.OnThrottle()
				metrics.ThrottleEventsTotal.WithLabelValues(w.Container).Inc()
				metrics.SetThrottleSaturation(w.Container, w.Throttle.IsSaturated())
			}
			return upErr
		}
		ru = res.RUCharge
		if w.Throttle != nil {
			w.Throttle.OnSuccess()
			metrics.SetThrottleSaturation(w.Container, w.Throttle.IsSaturated())
		}
		return nil
	})
	return ru, err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ExtractPartitionKey walks doc along path's dotted segments, returning the
// first value encountered that is not itself a nested map (the walk stops
// there even if path has further segments) — mirroring the source's
// lenient partition-key extraction. Falls back to doc["id"] if path cannot
// be walked at all.
func ExtractPartitionKey(doc map[string]any, path string) any {
	if path == "" {
		return doc["id"]
	}
	segs := strings.Split(path, ".")
	var cur any = doc
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return cur
		}
		v, ok := m[seg]
		if !ok {
			return doc["id"]
		}
		cur = v
	}
	return cur
}

// CoerceJSONSafe recursively converts v into values safe to hand to
// encoding/json: NaN/Inf floats become nil, map keys are already strings in
// Go's decoded form, and nested structures are walked the same way.
func CoerceJSONSafe(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = CoerceJSONSafe(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = CoerceJSONSafe(e)
		}
		return out
	default:
		return v
	}
}
