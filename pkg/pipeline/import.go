package pipeline

import (
	"context"
	"encoding/json"
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
	"github.com/cuemby/tablesync/pkg/retry"
	"github.com/cuemby/tablesync/pkg/stitch"
	"github.com/cuemby/tablesync/pkg/throttle"
	"github.com/cuemby/tablesync/pkg/types"
)

// sampleSize is the number of leading parent rows read to estimate
// avgDocSizeKB, per §4.11's "sample the first ≤100 parent rows".
const sampleSize = 100

const failedIDReportCap = 20

// ImportParams configures one run of ImportPipeline.
type ImportParams struct {
	DocStore    docstore.Store
	ObjectStore objectstore.Store

	Container string
	ImportDir string // same layout ExportPipeline writes: <ImportDir>/<container>.csv plus child tables underneath

	PartitionKeyPath    string
	TruncateBeforeWrite bool

	// RunID and Checkpoints, if both set, make the run resumable: the
	// last committed parent-row offset is persisted after every batch and
	// cleared on successful completion.
	RunID       string
	Checkpoints *CheckpointStore

	Log zerolog.Logger
}

// ImportPipeline reads a CSV table family out of ObjectStore, stitches
// each parent batch back into nested documents, and upserts them into a
// DocStore container (§4.11).
func ImportPipeline(ctx context.Context, p ImportParams) (*Report, error) {
	start := time.Now()

	if p.TruncateBeforeWrite {
		if err := docstore.TruncateAndRecreate(ctx, p.DocStore, p.Container); err != nil {
			return nil, fmt.Errorf("truncating %q before import: %w", p.Container, err)
		}
	}

	csvReader := &csv.Reader{Store: p.ObjectStore, Log: p.Log}
	parentPath := parentFilePath(p.ImportDir, p.Container)

	totalParentRows, err := csvReader.CountRows(ctx, parentPath)
	if err != nil {
		return nil, fmt.Errorf("counting parent rows for %q: %w", p.Container, err)
	}

	childDir := path.Join(p.ImportDir, p.Container)
	childFiles, err := p.ObjectStore.ListPaths(ctx, childDir)
	if err != nil {
		return nil, fmt.Errorf("listing child tables for %q: %w", p.Container, err)
	}
	allChildTables := make(map[string][]types.Row, len(childFiles))
	for _, childPath := range childFiles {
		rows, err := csvReader.Read(ctx, childPath, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("reading child table %q: %w", childPath, err)
		}
		allChildTables[tableNameFromPath(childDir, childPath)] = rows
	}

	sampleCount := sampleSize
	if totalParentRows < sampleCount {
		sampleCount = totalParentRows
	}
	avgDocSizeKB := 0.0
	if sampleCount > 0 {
		sample, err := csvReader.Read(ctx, parentPath, 0, sampleCount)
		if err != nil {
			return nil, fmt.Errorf("sampling parent rows for %q: %w", p.Container, err)
		}
		avgDocSizeKB = estimateAvgRowSizeKB(sample)
	}

	throughput, thErr := p.DocStore.ReadThroughput(ctx, p.Container)
	var provisionedRU float64
	var policy throttle.Policy
	var maxConcurrent int
	if thErr != nil {
		maxConcurrent = throttle.FallbackConcurrency(totalParentRows)
		provisionedRU = DefaultProvisionedRU
		policy = throttle.Conservative
	} else {
		provisionedRU = throughput.RUPerSec
		if provisionedRU <= 0 {
			provisionedRU = DefaultProvisionedRU
		}
		policy = throttle.Conservative
		if throughput.IsAutoscale || throughput.Mode == docstore.ThroughputServerless {
			policy = throttle.Aggressive
		}
		maxConcurrent = throttle.FallbackConcurrency(totalParentRows)
	}
	controller := throttle.NewController(policy, provisionedRU, avgDocSizeKB)

	retryPolicy := retry.DefaultPolicy(p.Log)
	writer := docstore.NewWriter(p.DocStore, p.Container, p.PartitionKeyPath, maxConcurrent, controller, retryPolicy, p.Log)
	stitcher := &stitch.Stitcher{Log: p.Log}

	offset := 0
	if p.Checkpoints != nil && p.RunID != "" {
		offset, err = p.Checkpoints.LoadOffset(p.RunID, p.Container)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoint for %q: %w", p.Container, err)
		}
	}

	succeeded, failed, numBatches := 0, 0, 0
	var failedIDs []string
	totalRU := 0.0
	totalChildRows := 0

	for offset < totalParentRows {
		batchTimer := metrics.NewTimer()
		chunkSize := controller.BatchSize()
		parentRows, err := csvReader.Read(ctx, parentPath, offset, chunkSize)
		if err != nil {
			return nil, fmt.Errorf("reading parent batch for %q at offset %d: %w", p.Container, offset, err)
		}
		if len(parentRows) == 0 {
			break
		}

		docs, err := stitcher.Stitch(parentRows, allChildTables)
		if err != nil {
			return nil, fmt.Errorf("stitching batch for %q at offset %d: %w", p.Container, offset, err)
		}
		docMaps := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			if m, ok := types.ToInterface(d).(map[string]any); ok {
				docMaps = append(docMaps, m)
			}
		}

		result := writer.UpsertAll(ctx, docMaps)
		succeeded += result.Succeeded
		failed += result.Failed
		totalRU += result.RUTotal
		for _, id := range result.FailedIDs {
			if len(failedIDs) < failedIDReportCap {
				failedIDs = append(failedIDs, id)
			}
		}

		offset += len(parentRows)
		numBatches++

		metrics.DocsProcessedTotal.WithLabelValues(p.Container, "import", "succeeded").Add(float64(result.Succeeded))
		metrics.DocsProcessedTotal.WithLabelValues(p.Container, "import", "failed").Add(float64(result.Failed))
		metrics.BatchSize.WithLabelValues(p.Container).Set(float64(chunkSize))
		batchTimer.ObserveDurationVec(metrics.BatchDuration, p.Container, "import")
		log.WithBatch(p.Log, numBatches, len(parentRows)).Debug().Int("succeeded", result.Succeeded).Int("failed", result.Failed).Msg("batch imported")

		if p.Checkpoints != nil && p.RunID != "" {
			if err := p.Checkpoints.SaveOffset(p.RunID, p.Container, offset); err != nil {
				return nil, fmt.Errorf("saving checkpoint for %q: %w", p.Container, err)
			}
		}
	}

	if p.Checkpoints != nil && p.RunID != "" {
		if err := p.Checkpoints.ClearOffset(p.RunID, p.Container); err != nil {
			return nil, fmt.Errorf("clearing checkpoint for %q: %w", p.Container, err)
		}
	}

	for _, rows := range allChildTables {
		totalChildRows += len(rows)
	}
	metrics.RUConsumedTotal.WithLabelValues(p.Container, "import").Add(totalRU)
	log.WithRU(p.Log, totalRU).Info().Int("batches", numBatches).Msg("import run completed")

	r := &Report{}
	r.CosmosConfiguration.PartitionKey = p.PartitionKeyPath
	r.CosmosConfiguration.ThroughputType = string(throughput.Mode)
	r.CosmosConfiguration.IsAutoscale = throughput.IsAutoscale
	r.CosmosConfiguration.IsServerless = throughput.Mode == docstore.ThroughputServerless
	r.PerformanceConfiguration.MaxConcurrentOperations = maxConcurrent
	r.PerformanceConfiguration.BatchSize = controller.BatchSize()
	r.PerformanceConfiguration.NumBatchesProcessed = numBatches
	r.DataProcessing.ParentDocuments = totalParentRows
	r.DataProcessing.ChildTablesProcessed = len(allChildTables)
	r.DataProcessing.TotalChildRows = totalChildRows
	r.FailedDocumentIDs = failedIDs

	elapsed := time.Since(start).Seconds()
	finalize(r, succeeded+failed, succeeded, failed, elapsed, totalRU)
	return r, nil
}

// tableNameFromPath recovers the dot-joined table name ExportPipeline
// encoded into a child CSV's path (§6: dots become slashes, the final
// segment repeats as the file's base name).
func tableNameFromPath(childDir, fullPath string) string {
	rel := strings.TrimPrefix(fullPath, strings.TrimSuffix(childDir, "/")+"/")
	rel = strings.TrimSuffix(rel, ".csv")
	segs := strings.Split(rel, "/")
	if len(segs) > 1 {
		segs = segs[:len(segs)-1] // drop the repeated last-segment filename
	}
	return strings.Join(segs, ".")
}

// estimateAvgRowSizeKB approximates a document's serialized size from its
// flattened parent row alone, matching the ≤100-row sample the original
// pipeline used to size its initial batch.
func estimateAvgRowSizeKB(rows []types.Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	total := 0
	for _, row := range rows {
		data, err := json.Marshal(types.ToInterface(types.NewObject(row)))
		if err != nil {
			continue
		}
		total += len(data)
	}
	return float64(total) / float64(len(rows)) / 1024
}
