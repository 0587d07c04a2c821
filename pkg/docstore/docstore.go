/*
Package docstore defines the interface seam against the partitioned
document store (modeled on Azure Cosmos DB's SQL API) and the system
fields every ingest path must strip.

Real transport (an actual Cosmos SDK client) lives outside this module's
scope; pkg/docstore/fake provides an in-memory implementation satisfying
the same interface for pipeline tests.
*/
package docstore

import "context"

// SystemFields are the document-store-injected fields stripped on ingest.
var SystemFields = []string{"_rid", "_self", "_etag", "_attachments", "_ts"}

// ThroughputMode names how a container's request units were provisioned.
type ThroughputMode string

const (
	ThroughputAutoscale  ThroughputMode = "autoscale"
	ThroughputManual     ThroughputMode = "manual"
	ThroughputServerless ThroughputMode = "serverless"
)

// Throughput describes a container or database's provisioned capacity.
type Throughput struct {
	RUPerSec    float64
	IsAutoscale bool
	Mode        ThroughputMode
}

// Page is one server-returned page of query results, carrying the RU cost
// billed for producing it.
type Page struct {
	Documents []map[string]any
	RUCharge  float64
	HasMore   bool
}

// PageIterator streams Pages from an open query. Next returns io.EOF-style
// termination via (Page{}, false, nil) when exhausted.
type PageIterator interface {
	Next(ctx context.Context) (Page, bool, error)
}

// UpsertResult reports the RU cost of a single upsert.
type UpsertResult struct {
	RUCharge float64
}

// Store is the document-store contract (§6): container discovery, querying,
// upserting, and throughput introspection.
type Store interface {
	// ListPartitionKeyPaths returns the container's partition key paths. An
	// empty slice means the container has no partition key (legacy/single
	// partition).
	ListPartitionKeyPaths(ctx context.Context, container string) ([]string, error)

	// ListDistinctPartitionValues returns the distinct values observed for
	// path within container. Implementations that lack native DISTINCT
	// support must fall back to a full scan with client-side dedupe.
	ListDistinctPartitionValues(ctx context.Context, container, path string) ([]any, error)

	// Query opens a paginated query. When crossPartition is false the query
	// is scoped to a single partition value carried in params.
	Query(ctx context.Context, container, sql string, params map[string]any, crossPartition bool, pageSize int) (PageIterator, error)

	// Upsert writes doc, routed to the physical partition named by
	// partitionKey (nil when the container has no partition key). Errors
	// should be one of pkg/apperr's sentinel types so pkg/retry can
	// classify them.
	Upsert(ctx context.Context, container string, doc map[string]any, partitionKey any) (UpsertResult, error)

	// ReadThroughput reports container-level throughput, falling back to
	// database-level when the container is shared-throughput.
	ReadThroughput(ctx context.Context, container string) (Throughput, error)

	// DeleteContainer and CreateContainer back TruncateAndRecreate.
	DeleteContainer(ctx context.Context, container string) error
	CreateContainer(ctx context.Context, container string, partitionKeyPaths []string, throughput Throughput) error
}

// StripSystemFields returns a copy of doc with docstore-injected fields
// removed.
func StripSystemFields(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	skip := make(map[string]struct{}, len(SystemFields))
	for _, f := range SystemFields {
		skip[f] = struct{}{}
	}
	for k, v := range doc {
		if _, ok := skip[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}
