package docstore

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/cuemby/tablesync/pkg/docstore/fake"
	"github.com/cuemby/tablesync/pkg/throttle"
)

func TestWriterUpsertAllSucceeds(t *testing.T) {
	store := fake.New()
	store.Seed("orders", nil, nil, Throughput{RUPerSec: 400})

	th := throttle.NewController(throttle.Conservative, 400, 1)
	w := NewWriter(store, "orders", "", 4, th, testRetryPolicy(), zerolog.Nop())

	docs := []map[string]any{
		{"id": "1", "name": "a"},
		{"id": "2", "name": "b"},
		{"id": "3", "name": "c"},
	}
	result := w.UpsertAll(context.Background(), docs)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Greater(t, result.RUTotal, 0.0)
	assert.Len(t, store.Docs("orders"), 3)
}

func TestWriterCollectsFailuresWithoutAbortingBatch(t *testing.T) {
	store := fake.New()
	store.FailUpsertIDs = map[string]bool{"2": true}
	store.Seed("orders", nil, nil, Throughput{RUPerSec: 400})

	th := throttle.NewController(throttle.Conservative, 400, 1)
	w := NewWriter(store, "orders", "", 4, th, testRetryPolicy(), zerolog.Nop())

	docs := []map[string]any{
		{"id": "1"}, {"id": "2"}, {"id": "3"},
	}
	result := w.UpsertAll(context.Background(), docs)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"2"}, result.FailedIDs)
}

func TestWriterUpsertAllExtractsAndRoutesPartitionKey(t *testing.T) {
	store := fake.New()
	store.Seed("orders", nil, []string{"/region"}, Throughput{RUPerSec: 400})

	th := throttle.NewController(throttle.Conservative, 400, 1)
	w := NewWriter(store, "orders", "region", 4, th, testRetryPolicy(), zerolog.Nop())

	docs := []map[string]any{
		{"id": "1", "region": "east"},
		{"id": "2", "region": "west"},
	}
	result := w.UpsertAll(context.Background(), docs)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
}

func TestExtractPartitionKeyWalksDottedPath(t *testing.T) {
	doc := map[string]any{
		"id":      "1",
		"address": map[string]any{"region": "east"},
	}
	assert.Equal(t, "east", ExtractPartitionKey(doc, "address.region"))
}

func TestExtractPartitionKeyFallsBackToID(t *testing.T) {
	doc := map[string]any{"id": "1"}
	assert.Equal(t, "1", ExtractPartitionKey(doc, "missing.path"))
}

func TestExtractPartitionKeyEmptyPathUsesID(t *testing.T) {
	doc := map[string]any{"id": "1"}
	assert.Equal(t, "1", ExtractPartitionKey(doc, ""))
}

func TestCoerceJSONSafeHandlesNaN(t *testing.T) {
	doc := map[string]any{
		"id":    "1",
		"value": math.NaN(),
	}
	out := CoerceJSONSafe(doc).(map[string]any)
	assert.Nil(t, out["value"])
}
