package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/docstore"
)

func TestQueryCrossPartitionPagesAllDocs(t *testing.T) {
	s := New()
	s.Seed("orders", []map[string]any{
		{"id": "1"}, {"id": "2"}, {"id": "3"},
	}, nil, docstore.Throughput{RUPerSec: 400})

	it, err := s.Query(context.Background(), "orders", "SELECT * FROM c", nil, true, 2)
	assert.NoError(t, err)

	page1, ok, err := it.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, page1.Documents, 2)
	assert.True(t, page1.HasMore)
	assert.Equal(t, s.RUPerPage, page1.RUCharge)

	page2, ok, err := it.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, page2.Documents, 1)
	assert.False(t, page2.HasMore)

	_, ok, err = it.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryPartitionValueFiltersDocs(t *testing.T) {
	s := New()
	s.Seed("orders", []map[string]any{
		{"id": "1", "region": "east"},
		{"id": "2", "region": "west"},
		{"id": "3", "region": "east"},
	}, []string{"/region"}, docstore.Throughput{RUPerSec: 400})

	it, err := s.Query(context.Background(), "orders", "SELECT * FROM c WHERE c.region = @v",
		map[string]any{"partitionPath": "region", "partitionValue": "east"}, false, 10)
	assert.NoError(t, err)

	page, ok, err := it.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, page.Documents, 2)
}

func TestUpsertInsertsAndUpdates(t *testing.T) {
	s := New()
	s.Seed("orders", nil, nil, docstore.Throughput{RUPerSec: 400})

	res, err := s.Upsert(context.Background(), "orders", map[string]any{"id": "1", "name": "a"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, s.RUPerDoc, res.RUCharge)

	_, err = s.Upsert(context.Background(), "orders", map[string]any{"id": "1", "name": "b"}, nil)
	assert.NoError(t, err)

	docs := s.Docs("orders")
	assert.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0]["name"])
}

func TestUpsertFailsForMarkedID(t *testing.T) {
	s := New()
	s.FailUpsertIDs = map[string]bool{"bad": true}
	s.Seed("orders", nil, nil, docstore.Throughput{RUPerSec: 400})

	_, err := s.Upsert(context.Background(), "orders", map[string]any{"id": "bad"}, nil)
	assert.Error(t, err)
}

func TestUpsertRoutedWithCorrectPartitionKeySucceeds(t *testing.T) {
	s := New()
	s.Seed("orders", nil, []string{"/region"}, docstore.Throughput{RUPerSec: 400})

	_, err := s.Upsert(context.Background(), "orders", map[string]any{"id": "1", "region": "east"}, "east")
	assert.NoError(t, err)
}

func TestUpsertRejectsMismatchedPartitionKey(t *testing.T) {
	s := New()
	s.Seed("orders", nil, []string{"/region"}, docstore.Throughput{RUPerSec: 400})

	_, err := s.Upsert(context.Background(), "orders", map[string]any{"id": "1", "region": "east"}, "west")
	assert.Error(t, err)

	var cfgErr *apperr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestListDistinctPartitionValues(t *testing.T) {
	s := New()
	s.Seed("orders", []map[string]any{
		{"id": "1", "region": "east"},
		{"id": "2", "region": "west"},
		{"id": "3", "region": "east"},
	}, []string{"/region"}, docstore.Throughput{RUPerSec: 400})

	vals, err := s.ListDistinctPartitionValues(context.Background(), "orders", "region")
	assert.NoError(t, err)
	assert.ElementsMatch(t, []any{"east", "west"}, vals)
}
