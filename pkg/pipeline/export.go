package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/docstore"
	"github.com/cuemby/tablesync/pkg/log"
	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/objectstore"
	"github.com/cuemby/tablesync/pkg/objectstore/csv"
	"github.com/cuemby/tablesync/pkg/ratelimit"
	"github.com/cuemby/tablesync/pkg/retry"
	"github.com/cuemby/tablesync/pkg/shred"
	"github.com/cuemby/tablesync/pkg/types"
)

// DefaultReserveFraction is the fraction of provisioned RU held back from
// the rate limiter's capacity, per §4.1's default reserve of 20%.
const DefaultReserveFraction = 0.2

// DefaultProvisionedRU is assumed when a container reports no usable
// throughput (§4.10's "else default 400").
const DefaultProvisionedRU = 400

// readerPageSize bounds a single DocStore query page, independent of the
// CSV batch size the caller configured.
const readerPageSize = 1000

// ExportParams configures one run of ExportPipeline.
type ExportParams struct {
	DocStore    docstore.Store
	ObjectStore objectstore.Store

	Container string
	ExportDir string // ADLS directory this container's CSV family is rooted under

	PartitionKeyPath   string // optional; "" falls back to the container's path when it has exactly one; the scan is cross-partition unless PartitionKeyValues is set
	PartitionKeyValues []any  // optional; requires PartitionKeyPath

	BatchSize             int
	SeparateFilesPerBatch bool

	Log zerolog.Logger
}

// ExportPipeline streams a DocStore container into a CSV table family in
// ObjectStore, one parent table plus a child table per nested object-array
// (§4.10). It runs single-threaded: the only suspensions are DocStore/
// ObjectStore I/O and RateLimiter waits (§5).
func ExportPipeline(ctx context.Context, p ExportParams) (*Report, error) {
	start := time.Now()

	if err := docstore.Validate(ctx, p.DocStore, p.Container, p.PartitionKeyPath, p.PartitionKeyValues); err != nil {
		return nil, err
	}
	if err := objectstore.Validate(ctx, p.ObjectStore, p.ExportDir); err != nil {
		return nil, err
	}

	partitionPaths, err := p.DocStore.ListPartitionKeyPaths(ctx, p.Container)
	if err != nil {
		return nil, fmt.Errorf("listing partition key paths for %q: %w", p.Container, err)
	}
	partitionPath := p.PartitionKeyPath
	if partitionPath == "" && len(partitionPaths) == 1 {
		partitionPath = partitionPaths[0]
	}

	throughput, err := p.DocStore.ReadThroughput(ctx, p.Container)
	if err != nil {
		return nil, fmt.Errorf("reading throughput for %q: %w", p.Container, err)
	}
	provisionedRU := throughput.RUPerSec
	if provisionedRU <= 0 {
		provisionedRU = DefaultProvisionedRU
	}

	capacity := provisionedRU * (1 - DefaultReserveFraction)
	limiter := ratelimit.NewBucket(capacity, capacity)
	retryPolicy := retry.DefaultPolicy(p.Log)

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	reader := &docstore.Reader{
		Store:           p.DocStore,
		Container:       p.Container,
		PartitionPath:   partitionPath,
		PartitionValues: p.PartitionKeyValues,
		BatchSize:       batchSize,
		PageSize:        readerPageSize,
		Limiter:         limiter,
		Retry:           retryPolicy,
		Log:             p.Log,
	}

	writer := &csv.Writer{Store: p.ObjectStore, Log: p.Log}

	known := make(map[string][]string) // CSV path -> columns written so far, for append-mode schema tracking
	childTableNames := make(map[string]struct{})
	totalDocs := 0
	parentDocs := 0
	totalChildRows := 0
	numBatches := 0
	var failedDocIDs []string

	batches, errs := reader.Stream(ctx)
	for batch := range batches {
		batchTimer := metrics.NewTimer()
		totalDocs += len(batch.Documents)
		parentRows := make([]types.Row, 0, len(batch.Documents))
		children := make(map[string][]types.Row)

		for _, doc := range batch.Documents {
			result, shredErr := shred.Shred(types.FromInterface(doc))
			if shredErr != nil {
				p.Log.Error().Err(shredErr).Str("container", p.Container).Msg("skipping document: shred failed")
				if len(failedDocIDs) < 20 {
					if id, ok := doc["id"].(string); ok {
						failedDocIDs = append(failedDocIDs, id)
					}
				}
				continue
			}
			parentRows = append(parentRows, result.Parent)
			for table, rows := range result.Tables {
				children[table] = append(children[table], rows...)
				childTableNames[table] = struct{}{}
			}
		}

		mode := csv.Append
		parentPath := parentFilePath(p.ExportDir, p.Container)
		if p.SeparateFilesPerBatch {
			mode = csv.Overwrite
			parentPath = batchFilePath(p.ExportDir, p.Container, numBatches)
		} else if numBatches == 0 {
			mode = csv.Overwrite
		}

		cols, writeErr := writer.Write(ctx, parentPath, parentRows, mode, known[parentPath])
		if writeErr != nil {
			return nil, fmt.Errorf("writing parent batch for %q: %w", p.Container, writeErr)
		}
		if !p.SeparateFilesPerBatch {
			known[parentPath] = cols
		}
		metrics.RowsWrittenTotal.WithLabelValues(p.Container).Add(float64(len(parentRows)))

		for table, rows := range children {
			childPath := childFilePath(p.ExportDir, p.Container, table)
			childMode := csv.Append
			if p.SeparateFilesPerBatch {
				childMode = csv.Overwrite
				childPath = childBatchFilePath(p.ExportDir, p.Container, table, numBatches)
			} else if numBatches == 0 {
				childMode = csv.Overwrite
			}
			cols, writeErr := writer.Write(ctx, childPath, rows, childMode, known[childPath])
			if writeErr != nil {
				return nil, fmt.Errorf("writing child table %q for %q: %w", table, p.Container, writeErr)
			}
			if !p.SeparateFilesPerBatch {
				known[childPath] = cols
			}
			metrics.RowsWrittenTotal.WithLabelValues(table).Add(float64(len(rows)))
			totalChildRows += len(rows)
		}

		parentDocs += len(parentRows)
		numBatches++

		metrics.DocsProcessedTotal.WithLabelValues(p.Container, "export", "succeeded").Add(float64(len(parentRows)))
		metrics.DocsProcessedTotal.WithLabelValues(p.Container, "export", "failed").Add(float64(len(batch.Documents) - len(parentRows)))
		metrics.BatchSize.WithLabelValues(p.Container).Set(float64(batchSize))
		batchTimer.ObserveDurationVec(metrics.BatchDuration, p.Container, "export")
		log.WithBatch(p.Log, numBatches, len(parentRows)).Debug().Msg("batch exported")
	}
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("streaming %q: %w", p.Container, err)
	}
	metrics.RUConsumedTotal.WithLabelValues(p.Container, "export").Add(reader.TotalRU())
	log.WithRU(p.Log, reader.TotalRU()).Info().Int("batches", numBatches).Msg("export run completed")

	r := &Report{}
	r.CosmosConfiguration.PartitionKey = partitionPath
	r.CosmosConfiguration.ThroughputType = string(throughput.Mode)
	r.CosmosConfiguration.IsAutoscale = throughput.IsAutoscale
	r.CosmosConfiguration.IsServerless = throughput.Mode == docstore.ThroughputServerless
	r.PerformanceConfiguration.MaxConcurrentOperations = 1 // export is single-threaded, per §5
	r.PerformanceConfiguration.BatchSize = batchSize
	r.PerformanceConfiguration.NumBatchesProcessed = numBatches
	r.DataProcessing.ParentDocuments = parentDocs
	r.DataProcessing.ChildTablesProcessed = len(childTableNames)
	r.DataProcessing.TotalChildRows = totalChildRows

	r.FailedDocumentIDs = failedDocIDs

	elapsed := time.Since(start).Seconds()
	finalize(r, totalDocs, parentDocs, totalDocs-parentDocs, elapsed, reader.TotalRU())
	return r, nil
}

func parentFilePath(exportDir, container string) string {
	return path.Join(exportDir, container+".csv")
}

func batchFilePath(exportDir, container string, batchIndex int) string {
	return path.Join(exportDir, fmt.Sprintf("%s_batch_%03d.csv", container, batchIndex+1))
}

// childFilePath implements §6's layout: dots in the table path become
// slashes, and the final path segment is repeated as the file's base name
// ("orders.items" ⇒ ".../orders/items/items.csv").
func childFilePath(exportDir, container, table string) string {
	segs := strings.Split(table, ".")
	last := segs[len(segs)-1]
	dirSegs := append([]string{exportDir, container}, segs...)
	return path.Join(path.Join(dirSegs...), last+".csv")
}

func childBatchFilePath(exportDir, container, table string, batchIndex int) string {
	segs := strings.Split(table, ".")
	last := segs[len(segs)-1]
	dirSegs := append([]string{exportDir, container}, segs...)
	return path.Join(path.Join(dirSegs...), fmt.Sprintf("%s_batch_%03d.csv", last, batchIndex+1))
}
