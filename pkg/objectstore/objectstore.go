/*
Package objectstore defines the interface seam against the hierarchical
object store (modeled on Azure Data Lake Storage Gen2) that CSV tables are
written to and read from.

pkg/objectstore/fake provides an in-memory implementation for tests;
pkg/objectstore/csv implements the CSV table format on top of the Store
interface.
*/
package objectstore

import "context"

// FileProperties reports whether a path exists and, if so, its size.
type FileProperties struct {
	Exists bool
	Size   int64
}

// Store is the object-store contract (§6).
type Store interface {
	EnsureDirectory(ctx context.Context, path string) error
	GetFileProperties(ctx context.Context, path string) (FileProperties, error)
	CreateFile(ctx context.Context, path string) error
	AppendData(ctx context.Context, path string, data []byte, offset int64) error
	Flush(ctx context.Context, path string, totalSize int64) error
	DeleteFile(ctx context.Context, path string) error
	DownloadAll(ctx context.Context, path string) ([]byte, error)
	ListPaths(ctx context.Context, dir string) ([]string, error)
}
