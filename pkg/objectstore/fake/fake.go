/*
Package fake provides an in-memory objectstore.Store, standing in for a
real ADLS Gen2 filesystem client in pipeline and CSV component tests.
*/
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/objectstore"
)

// Store is an in-memory objectstore.Store backed by a flat path→bytes map.
// Directories are tracked only so EnsureDirectory/ListPaths behave
// sensibly; nothing enforces that a file's parent directory was created
// first.
type Store struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (s *Store) EnsureDirectory(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[path] = true
	return nil
}

func (s *Store) GetFileProperties(ctx context.Context, path string) (objectstore.FileProperties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return objectstore.FileProperties{Exists: false}, nil
	}
	return objectstore.FileProperties{Exists: true, Size: int64(len(data))}, nil
}

func (s *Store) CreateFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = []byte{}
	return nil
}

func (s *Store) AppendData(ctx context.Context, path string, data []byte, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.files[path]
	if !ok {
		return &apperr.NotFoundError{Msg: fmt.Sprintf("file %q not found", path)}
	}
	if offset != int64(len(existing)) {
		return fmt.Errorf("append offset %d does not match current size %d for %q", offset, len(existing), path)
	}
	s.files[path] = append(existing, data...)
	return nil
}

func (s *Store) Flush(ctx context.Context, path string, totalSize int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return &apperr.NotFoundError{Msg: fmt.Sprintf("file %q not found", path)}
	}
	if int64(len(data)) != totalSize {
		return fmt.Errorf("flush size %d does not match written size %d for %q", totalSize, len(data), path)
	}
	return nil
}

func (s *Store) DeleteFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

func (s *Store) DownloadAll(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, &apperr.NotFoundError{Msg: fmt.Sprintf("file %q not found", path)}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) ListPaths(ctx context.Context, dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}
