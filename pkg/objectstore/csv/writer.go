package csv

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/objectstore"
	"github.com/cuemby/tablesync/pkg/types"
)

// Mode selects how Write treats an existing file.
type Mode int

const (
	Overwrite Mode = iota
	Append
)

// Writer appends or overwrites rows into a pipe-delimited CSV file,
// evolving its schema via read-merge-rewrite when new columns appear in
// append mode (§4.8).
type Writer struct {
	Store objectstore.Store
	Log   zerolog.Logger
}

// Write writes rows to path under mode, returning the resulting column
// set (for the caller to pass back in as `known` on the next call for the
// same file).
func (w *Writer) Write(ctx context.Context, p string, rows []types.Row, mode Mode, known []string) ([]string, error) {
	columns := unionSorted(known, columnsOf(rows))

	if mode == Overwrite {
		if err := w.deleteIfExists(ctx, p); err != nil {
			return nil, err
		}
		if err := w.writeFresh(ctx, p, columns, rows); err != nil {
			return nil, err
		}
		return columns, nil
	}

	props, err := w.Store.GetFileProperties(ctx, p)
	if err != nil {
		return nil, err
	}
	if !props.Exists {
		if err := w.writeFresh(ctx, p, columns, rows); err != nil {
			return nil, err
		}
		return columns, nil
	}

	if hasNewColumns(known, columns) {
		return w.readMergeRewrite(ctx, p, rows, columns)
	}

	if err := w.appendRows(ctx, p, columns, rows); err != nil {
		return nil, err
	}
	return columns, nil
}

func hasNewColumns(known, columns []string) bool {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := knownSet[c]; !ok {
			return true
		}
	}
	return false
}

func (w *Writer) readMergeRewrite(ctx context.Context, p string, newRows []types.Row, newColumns []string) ([]string, error) {
	metrics.SchemaRewritesTotal.WithLabelValues(strings.TrimSuffix(path.Base(p), ".csv")).Inc()

	data, err := w.Store.DownloadAll(ctx, p)
	if err != nil {
		return nil, err
	}
	existingColumns, existingRows, err := parseCSV(data, p, w.Log)
	if err != nil {
		return nil, err
	}

	allColumns := unionSorted(existingColumns, newColumns)
	merged := make([]types.Row, 0, len(existingRows)+len(newRows))
	merged = append(merged, existingRows...)
	merged = append(merged, newRows...)

	if err := w.deleteIfExists(ctx, p); err != nil {
		return nil, err
	}
	if err := w.writeFresh(ctx, p, allColumns, merged); err != nil {
		return nil, err
	}
	return allColumns, nil
}

func (w *Writer) deleteIfExists(ctx context.Context, p string) error {
	props, err := w.Store.GetFileProperties(ctx, p)
	if err != nil {
		return err
	}
	if !props.Exists {
		return nil
	}
	return w.Store.DeleteFile(ctx, p)
}

func (w *Writer) writeFresh(ctx context.Context, p string, columns []string, rows []types.Row) error {
	if err := w.Store.EnsureDirectory(ctx, path.Dir(p)); err != nil {
		return err
	}
	if err := w.Store.CreateFile(ctx, p); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(strings.Join(columns, string(delimiter)))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(encodeLine(columns, r))
		b.WriteByte('\n')
	}
	return w.appendBytes(ctx, p, []byte(b.String()))
}

func (w *Writer) appendRows(ctx context.Context, p string, columns []string, rows []types.Row) error {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(encodeLine(columns, r))
		b.WriteByte('\n')
	}
	return w.appendBytes(ctx, p, []byte(b.String()))
}

func (w *Writer) appendBytes(ctx context.Context, p string, data []byte) error {
	props, err := w.Store.GetFileProperties(ctx, p)
	if err != nil {
		return err
	}
	if err := w.Store.AppendData(ctx, p, data, props.Size); err != nil {
		return err
	}
	return w.Store.Flush(ctx, p, props.Size+int64(len(data)))
}

func columnsOf(rows []types.Row) []string {
	return types.ColumnUnion(rows)
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
