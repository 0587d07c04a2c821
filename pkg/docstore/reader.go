package docstore

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/ratelimit"
	"github.com/cuemby/tablesync/pkg/retry"
)

// Batch is one chunk of documents streamed from a single partition value
// (or, for a cross-partition scan, from the unfiltered container).
type Batch struct {
	Documents      []map[string]any
	PartitionValue any // nil for a cross-partition batch
}

// Reader streams batches of documents from a container, feeding the billed
// RU cost of every page to a shared RateLimiter (§4.4).
type Reader struct {
	Store           Store
	Container       string
	PartitionPath   string
	PartitionValues []any // nil/empty ⇒ cross-partition scan
	BatchSize       int
	PageSize        int

	Limiter *ratelimit.Bucket
	Retry   retry.Policy
	Log     zerolog.Logger

	totalRU atomic.Uint64 // bits of a float64, accumulated via CompareAndSwap
}

// TotalRU returns the cumulative RU charge billed across every page this
// Reader has streamed so far, for populating a Report's total_rus_consumed.
func (r *Reader) TotalRU() float64 {
	return math.Float64frombits(r.totalRU.Load())
}

func (r *Reader) addRU(charge float64) {
	for {
		old := r.totalRU.Load()
		next := math.Float64bits(math.Float64frombits(old) + charge)
		if r.totalRU.CompareAndSwap(old, next) {
			return
		}
	}
}

// Stream returns a channel of Batches and a channel that carries at most
// one fatal error (a failure opening a query). Partition-level page
// failures are logged and end that partition's stream early without
// closing the error channel; callers should range over Batches until it
// closes, then check the error channel.
func (r *Reader) Stream(ctx context.Context) (<-chan Batch, <-chan error) {
	batches := make(chan Batch)
	errs := make(chan error, 1)

	go func() {
		defer close(batches)
		defer close(errs)

		if len(r.PartitionValues) == 0 {
			if err := r.streamPartition(ctx, nil, batches); err != nil {
				errs <- err
			}
			return
		}
		for _, v := range r.PartitionValues {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			default:
			}
			if err := r.streamPartition(ctx, v, batches); err != nil {
				errs <- err
				return
			}
		}
	}()

	return batches, errs
}

func (r *Reader) streamPartition(ctx context.Context, value any, out chan<- Batch) error {
	crossPartition := value == nil
	var iter PageIterator
	err := r.Retry.Execute(ctx, fmt.Sprintf("query open container=%s", r.Container), func(ctx context.Context) error {
		params := map[string]any{}
		sql := "SELECT * FROM c"
		if !crossPartition {
			params["partitionPath"] = r.PartitionPath
			params["partitionValue"] = value
			sql = fmt.Sprintf("SELECT * FROM c WHERE c.%s = @v", r.PartitionPath)
		}
		it, openErr := r.Store.Query(ctx, r.Container, sql, params, crossPartition, r.PageSize)
		if openErr != nil {
			return openErr
		}
		iter = it
		return nil
	})
	if err != nil {
		r.Log.Error().Err(err).Str("container", r.Container).Interface("partition_value", value).Msg("failed to open query")
		return err
	}

	var pending []map[string]any
	rowCount := 0
	for {
		page, ok, pageErr := iter.Next(ctx)
		if pageErr != nil {
			r.Log.Error().Err(pageErr).Str("container", r.Container).Interface("partition_value", value).Msg("page read failed mid-stream, aborting partition")
			break
		}
		if !ok {
			break
		}
		if page.RUCharge > 0 {
			r.addRU(page.RUCharge)
		}
		if r.Limiter != nil && page.RUCharge > 0 {
			if waitErr := r.Limiter.Consume(ctx, page.RUCharge); waitErr != nil {
				r.Log.Error().Err(waitErr).Msg("rate limiter wait canceled")
				break
			}
		}

		pending = append(pending, page.Documents...)
		rowCount += len(page.Documents)
		for len(pending) >= r.BatchSize {
			select {
			case out <- Batch{Documents: pending[:r.BatchSize], PartitionValue: value}:
			case <-ctx.Done():
				return nil
			}
			pending = pending[r.BatchSize:]
		}
		if !page.HasMore {
			break
		}
	}
	if len(pending) > 0 {
		select {
		case out <- Batch{Documents: pending, PartitionValue: value}:
		case <-ctx.Done():
			return nil
		}
	}
	if rowCount == 0 && !crossPartition {
		r.Log.Info().Str("container", r.Container).Interface("partition_value", value).Msg("partition value resolved to zero rows")
	}
	return nil
}
