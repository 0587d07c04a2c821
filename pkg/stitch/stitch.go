/*
Package stitch implements the inverse of pkg/shred: given a batch of parent
rows and the child tables produced for them, it reconstructs the original
nested documents.
*/
package stitch

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/log"
	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/types"
)

// Stitcher reconstructs documents from a parent-row batch and its child
// tables. Log receives a warning whenever the "no matching marker" fallback
// from §9's open question #2 fires, so the behavior stays visible without
// being silently changed.
type Stitcher struct {
	Log zerolog.Logger
}

// Stitch reconstructs one Document per parent row. tables maps a dot-joined
// table path (e.g. "orders.items") to its rows. The rows need not be
// scoped to this batch: a child row whose parent rid is not among the
// batch's parents (or their already-attached children) is dropped, logged,
// and counted on DroppedRowsTotal with reason "orphaned".
func (st *Stitcher) Stitch(parents []types.Row, tables map[string][]types.Row) ([]types.Value, error) {
	byRid := make(map[string]types.Value, len(parents))
	markers := make(map[string][]string, len(parents))
	order := make([]string, 0, len(parents))

	for _, p := range parents {
		rid := p.RID()
		order = append(order, rid)
		markers[rid] = p.ArrayMarkers()
		byRid[rid] = unflattenRow(p.WithoutSystemFields())
	}

	for _, tname := range sortedByDepth(tables) {
		for _, row := range tables[tname] {
			tableLog := log.WithTable(st.Log, tname)

			parentRid := row.ParentRID()
			parentObj, ok := byRid[parentRid]
			if !ok {
				dataErr := &apperr.DataError{Table: tname, RID: row.RID(), Msg: "parent rid not found in this batch"}
				tableLog.Warn().Err(dataErr).Str("parent_rid", parentRid).Msg("dropping orphaned child row")
				metrics.DroppedRowsTotal.WithLabelValues(tname, "orphaned").Inc()
				continue
			}

			rid := row.RID()
			childObj := unflattenRow(row.WithoutSystemFields())
			markers[rid] = row.ArrayMarkers()
			byRid[rid] = childObj

			path, matched := matchingMarkerPath(markers[parentRid], tname)
			if !matched {
				path = lastSegment(tname)
				tableLog.Warn().
					Str("parent_rid", parentRid).
					Msg("no marker matched this table; attaching at top-level key equal to the last path segment")
			}

			byRid[parentRid] = appendAtPath(parentObj, path, childObj)
		}
	}

	// Finalize: any marker that never received a child array still yields
	// an empty array (§3's "an empty array is represented by the marker
	// alone").
	for rid, paths := range markers {
		obj := byRid[rid]
		for _, p := range paths {
			obj = ensureArrayPath(obj, p)
		}
		byRid[rid] = obj
	}

	docs := make([]types.Value, 0, len(order))
	for _, rid := range order {
		docs = append(docs, byRid[rid])
	}
	return docs, nil
}

// sortedByDepth orders table paths by ascending dot-count, so parent tables
// are attached before their own children can be (step 2/4's "ascending
// path depth" discipline).
func sortedByDepth(tables map[string][]types.Row) []string {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		di, dj := strings.Count(names[i], "."), strings.Count(names[j], ".")
		if di != dj {
			return di < dj
		}
		return names[i] < names[j]
	})
	return names
}

// matchingMarkerPath reports whether tableName matches one of markers
// exactly or ends with it as a dot-suffix (the suffix case handles a nested
// table's own marker, recorded relative to its row, e.g. marker "items" on
// table path "orders.items").
func matchingMarkerPath(markerList []string, tableName string) (string, bool) {
	for _, m := range markerList {
		if m == tableName || strings.HasSuffix(tableName, "."+m) {
			return m, true
		}
	}
	return "", false
}

func lastSegment(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return path
	}
	return path[i+1:]
}

// unflattenRow converts a flat dotted-path row into a nested object Value.
func unflattenRow(row types.Row) types.Value {
	root := make(map[string]types.Value)
	for key, val := range row {
		setDotted(root, strings.Split(key, "."), val)
	}
	return types.NewObject(root)
}

func setDotted(m map[string]types.Value, segs []string, val types.Value) {
	if len(segs) == 1 {
		m[segs[0]] = val
		return
	}
	seg := segs[0]
	child, ok := m[seg]
	var childMap map[string]types.Value
	if ok && child.Kind == types.KindObject {
		childMap = child.Object
	} else {
		childMap = make(map[string]types.Value)
	}
	setDotted(childMap, segs[1:], val)
	m[seg] = types.NewObject(childMap)
}

// appendAtPath navigates/creates the nested path within obj and appends
// child to the array found (or newly created) there.
func appendAtPath(obj types.Value, path string, child types.Value) types.Value {
	if obj.Kind != types.KindObject {
		obj = types.NewObject(make(map[string]types.Value))
	}
	segs := strings.Split(path, ".")
	return setArrayAppend(obj.Object, segs, child)
}

func setArrayAppend(m map[string]types.Value, segs []string, child types.Value) types.Value {
	seg := segs[0]
	if len(segs) == 1 {
		existing, ok := m[seg]
		var arr []types.Value
		if ok && existing.Kind == types.KindArray {
			arr = existing.Array
		}
		m[seg] = types.NewArray(append(arr, child))
		return types.NewObject(m)
	}
	child2, ok := m[seg]
	var childMap map[string]types.Value
	if ok && child2.Kind == types.KindObject {
		childMap = child2.Object
	} else {
		childMap = make(map[string]types.Value)
	}
	m[seg] = setArrayAppend(childMap, segs[1:], child)
	return types.NewObject(m)
}

// ensureArrayPath navigates/creates path within obj and, if nothing is
// there yet, sets it to an empty array.
func ensureArrayPath(obj types.Value, path string) types.Value {
	if obj.Kind != types.KindObject {
		obj = types.NewObject(make(map[string]types.Value))
	}
	segs := strings.Split(path, ".")
	return ensureArray(obj.Object, segs)
}

func ensureArray(m map[string]types.Value, segs []string) types.Value {
	seg := segs[0]
	if len(segs) == 1 {
		if _, ok := m[seg]; !ok {
			m[seg] = types.NewArray(nil)
		}
		return types.NewObject(m)
	}
	child, ok := m[seg]
	var childMap map[string]types.Value
	if ok && child.Kind == types.KindObject {
		childMap = child.Object
	} else {
		childMap = make(map[string]types.Value)
	}
	m[seg] = ensureArray(childMap, segs[1:])
	return types.NewObject(m)
}
