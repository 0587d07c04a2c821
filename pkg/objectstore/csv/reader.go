package csv

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/apperr"
	tslog "github.com/cuemby/tablesync/pkg/log"
	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/objectstore"
	"github.com/cuemby/tablesync/pkg/types"
)

// ChunkSize bounds are the recommended streaming window from §4.9; this
// in-memory implementation reads a file whole (the objectstore.Store
// contract has no partial-read primitive) and applies skip/limit against
// the parsed rows, but exposes the same chunk-size vocabulary so pipeline
// callers can still page through a large parent file in bounded steps.
const (
	MinChunkRows = 10_000
	MaxChunkRows = 50_000
)

// Reader reads rows back out of a pipe-delimited CSV file.
type Reader struct {
	Store objectstore.Store
	Log   zerolog.Logger
}

// CountRows returns the number of data rows in path (excluding the
// header).
func (r *Reader) CountRows(ctx context.Context, p string) (int, error) {
	data, err := r.Store.DownloadAll(ctx, p)
	if err != nil {
		return 0, err
	}
	lines := splitRows(data)
	if len(lines) == 0 {
		return 0, nil
	}
	return len(lines) - 1, nil
}

// Read returns up to limit rows starting at skipRows data rows into path.
// limit <= 0 means "no limit". A malformed row is a SerializationError
// (§7): it is logged and dropped, not treated as fatal to the read.
func (r *Reader) Read(ctx context.Context, p string, skipRows, limit int) ([]types.Row, error) {
	data, err := r.Store.DownloadAll(ctx, p)
	if err != nil {
		return nil, err
	}
	columns, rows, err := parseCSV(data, p, r.Log)
	if err != nil {
		return nil, err
	}
	if skipRows >= len(rows) {
		return nil, nil
	}
	rows = rows[skipRows:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	_ = columns
	return rows, nil
}

func splitRows(data []byte) []string {
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// parseCSV parses a full CSV blob into its header columns and data rows.
// A line that fails to decode (column-count mismatch) is a
// SerializationError per §7: it is logged and the row is skipped, not
// treated as fatal to the rest of the file.
func parseCSV(data []byte, source string, log zerolog.Logger) ([]string, []types.Row, error) {
	lines := splitRows(data)
	if len(lines) == 0 {
		return nil, nil, nil
	}
	columns := splitLine(lines[0])
	for i := range columns {
		columns[i] = unescapeCell(columns[i])
	}
	rows := make([]types.Row, 0, len(lines)-1)
	table := strings.TrimSuffix(path.Base(source), ".csv")
	tableLog := tslog.WithTable(log, table)
	for i, line := range lines[1:] {
		row, err := decodeLine(columns, line)
		if err != nil {
			serErr := &apperr.SerializationError{Source: source, Msg: err.Error()}
			tableLog.Warn().Err(serErr).Int("line", i+2).Msg("skipping malformed CSV row")
			metrics.SerializationErrorsTotal.WithLabelValues(table).Inc()
			continue
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}
