/*
Package fake provides an in-memory docstore.Store for pipeline and
component tests, standing in for a real Cosmos-shaped SDK client.
*/
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/docstore"
)

type container struct {
	docs              []map[string]any
	partitionKeyPaths []string
	throughput        docstore.Throughput
}

// Store is an in-memory docstore.Store. Every RU charge it reports is a
// fixed per-operation cost unless overridden via RUPerDoc/RUPerPage.
type Store struct {
	mu         sync.Mutex
	containers map[string]*container

	// RUPerDoc is the RU charge reported for a single Upsert.
	RUPerDoc float64
	// RUPerPage is the RU charge reported for a single query page.
	RUPerPage float64

	// FailUpsertIDs causes Upsert to return a terminal error for matching
	// document ids, simulating an unrecoverable per-document failure.
	FailUpsertIDs map[string]bool
}

// New constructs an empty Store with reasonable default RU costs.
func New() *Store {
	return &Store{
		containers: make(map[string]*container),
		RUPerDoc:   5,
		RUPerPage:  10,
	}
}

// Seed registers a container with the given documents, partition key
// paths, and throughput, overwriting any prior contents.
func (s *Store) Seed(name string, docs []map[string]any, partitionKeyPaths []string, throughput docstore.Throughput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]map[string]any, len(docs))
	copy(cp, docs)
	s.containers[name] = &container{docs: cp, partitionKeyPaths: partitionKeyPaths, throughput: throughput}
}

// Docs returns the current documents in container, for test assertions.
func (s *Store) Docs(name string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[name]
	if !ok {
		return nil
	}
	out := make([]map[string]any, len(c.docs))
	copy(out, c.docs)
	return out
}

func (s *Store) ListPartitionKeyPaths(ctx context.Context, cname string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[cname]
	if !ok {
		return nil, &apperr.NotFoundError{Msg: fmt.Sprintf("container %q not found", cname)}
	}
	return c.partitionKeyPaths, nil
}

func (s *Store) ListDistinctPartitionValues(ctx context.Context, cname, path string) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[cname]
	if !ok {
		return nil, &apperr.NotFoundError{Msg: fmt.Sprintf("container %q not found", cname)}
	}
	seen := make(map[any]struct{})
	var out []any
	for _, d := range c.docs {
		v, ok := walkDotted(d, path)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func walkDotted(doc map[string]any, path string) (any, bool) {
	segs := strings.Split(path, ".")
	var cur any = doc
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// pageIterator walks a pre-filtered document slice in fixed-size pages.
type pageIterator struct {
	docs      []map[string]any
	pageSize  int
	offset    int
	ruPerPage float64
}

func (it *pageIterator) Next(ctx context.Context) (docstore.Page, bool, error) {
	if it.offset >= len(it.docs) {
		return docstore.Page{}, false, nil
	}
	end := it.offset + it.pageSize
	if end > len(it.docs) {
		end = len(it.docs)
	}
	page := docstore.Page{
		Documents: it.docs[it.offset:end],
		RUCharge:  it.ruPerPage,
		HasMore:   end < len(it.docs),
	}
	it.offset = end
	return page, true, nil
}

// Query ignores sql's text and instead uses params["partitionPath"] /
// params["partitionValue"] when crossPartition is false, matching the
// reader's one-point-query-per-value contract from §4.4.
func (s *Store) Query(ctx context.Context, cname, sql string, params map[string]any, crossPartition bool, pageSize int) (docstore.PageIterator, error) {
	s.mu.Lock()
	c, ok := s.containers[cname]
	s.mu.Unlock()
	if !ok {
		return nil, &apperr.NotFoundError{Msg: fmt.Sprintf("container %q not found", cname)}
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	var matched []map[string]any
	if crossPartition {
		matched = c.docs
	} else {
		path, _ := params["partitionPath"].(string)
		want := params["partitionValue"]
		for _, d := range c.docs {
			v, ok := walkDotted(d, path)
			if ok && v == want {
				matched = append(matched, d)
			}
		}
	}

	return &pageIterator{docs: matched, pageSize: pageSize, ruPerPage: s.RUPerPage}, nil
}

// Upsert routes doc by partitionKey, mirroring Cosmos's requirement that the
// caller supply the value used to pick a physical partition. A partitionKey
// that disagrees with the value actually stored at the container's
// partition key path is a routing mistake a real SDK would reject, so it
// fails the same way here rather than silently upserting to the wrong spot.
func (s *Store) Upsert(ctx context.Context, cname string, doc map[string]any, partitionKey any) (docstore.UpsertResult, error) {
	id, _ := doc["id"].(string)
	if s.FailUpsertIDs != nil && s.FailUpsertIDs[id] {
		return docstore.UpsertResult{}, fmt.Errorf("terminal failure upserting %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[cname]
	if !ok {
		return docstore.UpsertResult{}, &apperr.NotFoundError{Msg: fmt.Sprintf("container %q not found", cname)}
	}
	if len(c.partitionKeyPaths) > 0 {
		path := strings.TrimPrefix(c.partitionKeyPaths[0], "/")
		if want, ok := walkDotted(doc, path); ok && partitionKey != want {
			return docstore.UpsertResult{}, &apperr.ConfigError{
				Field: "partitionKey",
				Msg:   fmt.Sprintf("upsert for %q routed with partition key %v, document carries %v at %q", id, partitionKey, want, path),
			}
		}
	}
	for i, existing := range c.docs {
		if existing["id"] == doc["id"] {
			c.docs[i] = doc
			return docstore.UpsertResult{RUCharge: s.RUPerDoc}, nil
		}
	}
	c.docs = append(c.docs, doc)
	return docstore.UpsertResult{RUCharge: s.RUPerDoc}, nil
}

func (s *Store) ReadThroughput(ctx context.Context, cname string) (docstore.Throughput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[cname]
	if !ok {
		return docstore.Throughput{}, &apperr.NotFoundError{Msg: fmt.Sprintf("container %q not found", cname)}
	}
	return c.throughput, nil
}

func (s *Store) DeleteContainer(ctx context.Context, cname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[cname]; !ok {
		return &apperr.NotFoundError{Msg: fmt.Sprintf("container %q not found", cname)}
	}
	delete(s.containers, cname)
	return nil
}

func (s *Store) CreateContainer(ctx context.Context, cname string, partitionKeyPaths []string, throughput docstore.Throughput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[cname] = &container{partitionKeyPaths: partitionKeyPaths, throughput: throughput}
	return nil
}

// SortedContainerNames returns the names of all seeded containers, sorted,
// for deterministic test iteration.
func (s *Store) SortedContainerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.containers))
	for k := range s.containers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
