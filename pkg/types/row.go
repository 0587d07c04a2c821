package types

import "sort"

// Special column names that carry run-scoped linkage rather than document
// data. Never part of a document's own schema.
const (
	ColRID       = "_rid"
	ColParentRID = "_parent_rid"

	// ArrayMarkerPrefix precedes the dotted sub-path of an object-array that
	// existed on a row, e.g. "_has_array_items".
	ArrayMarkerPrefix = "_has_array_"
)

// ArrayMarkerField returns the synthetic marker column name for a nested
// object-array at the given path relative to its enclosing row.
func ArrayMarkerField(path string) string {
	return ArrayMarkerPrefix + path
}

// ArrayMarkerPath strips the marker prefix, returning ok=false if field is
// not a marker column.
func ArrayMarkerPath(field string) (path string, ok bool) {
	if len(field) <= len(ArrayMarkerPrefix) || field[:len(ArrayMarkerPrefix)] != ArrayMarkerPrefix {
		return "", false
	}
	return field[len(ArrayMarkerPrefix):], true
}

// Row is one flattened record: dotted-path keys mapped to leaf Values. A Row
// may carry ColRID (always) and ColParentRID (on every non-parent row), plus
// zero or more ArrayMarker fields.
type Row map[string]Value

// RID returns the row's surrogate id, or "" if absent.
func (r Row) RID() string {
	if v, ok := r[ColRID]; ok && v.Kind == KindString {
		return v.Str
	}
	return ""
}

// ParentRID returns the row's parent surrogate id, or "" if absent.
func (r Row) ParentRID() string {
	if v, ok := r[ColParentRID]; ok && v.Kind == KindString {
		return v.Str
	}
	return ""
}

// ArrayMarkers returns the dotted sub-paths for which this row carries a
// "_has_array_<path>" marker, sorted for determinism.
func (r Row) ArrayMarkers() []string {
	var paths []string
	for k := range r {
		if p, ok := ArrayMarkerPath(k); ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// WithoutSystemFields returns a copy of r with _rid, _parent_rid, and all
// array-marker columns removed.
func (r Row) WithoutSystemFields() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if k == ColRID || k == ColParentRID {
			continue
		}
		if _, ok := ArrayMarkerPath(k); ok {
			continue
		}
		out[k] = v
	}
	return out
}

// Table is a named, ordered accumulation of Rows sharing a logical schema.
// Name is the dot-joined array path ("orders", "orders.items"); the parent
// table's Name is the container name.
type Table struct {
	Name string
	Rows []Row
}

// Depth returns the nesting depth of the table's name, i.e. the number of
// "." separators. The parent table (no dots) is depth 0... actually by the
// engine's own convention depth is counted among child tables only: a
// direct child of the parent is depth 0, "a.b" is depth 1, and so on. Depth
// is computed as the dot count.
func (t Table) Depth() int {
	depth := 0
	for _, c := range t.Name {
		if c == '.' {
			depth++
		}
	}
	return depth
}

// ColumnUnion returns the sorted union of keys appearing across all of the
// table's rows — the schema-union law from the engine's invariants.
func ColumnUnion(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
