/*
Package shred implements the iterative document shredder: it walks one
JSON document and produces a flat parent row plus a family of child tables,
linked by surrogate row ids, ready to be written as CSV.
*/
package shred

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/types"
)

// ArrayBatch is the child-row buffer size before a table's buffer is
// flushed into its accumulator, per §4.6 step 4. Both the buffer and the
// accumulator are held in memory until Shred returns.
const ArrayBatch = 2000

// ScalarsSuffix names the sibling cell a mixed array's primitive elements
// are preserved under, alongside the object-array's child table. This is
// the module's redesign of the source's mixed-array behavior (which
// silently discarded primitives): see the open-question decision in
// SPEC_FULL.md §13.
const ScalarsSuffix = "__scalars"

// Result is the shredder's output: one parent row and zero or more named
// child tables, each already materialized.
type Result struct {
	Parent types.Row
	Tables map[string][]types.Row
}

type queueItem struct {
	obj       types.Value
	tableName string
	parentRid string
	rid       string
}

// Shred flattens doc into a parent row and child tables. doc must be a
// KindObject Value; every distinct object in the document (root or nested
// inside an array) receives a newly generated rid unless it already
// carries a usable id.
func Shred(doc types.Value) (Result, error) {
	if doc.Kind != types.KindObject {
		return Result{}, fmt.Errorf("shred: document must be an object, got %s", doc.Kind)
	}

	seenRids := make(map[string]struct{})
	rootRid, _ := ridFor(doc, seenRids)

	tables := make(map[string][]types.Row)
	buffers := make(map[string][]types.Row)
	var queue []queueItem
	var dupErr error

	parent := make(types.Row)
	parent[types.ColRID] = types.NewString(rootRid)

	flatRoot := flatten(doc, "")
	assignFields(flatRoot, parent, "", rootRid, seenRids, &queue, &dupErr)

	for len(queue) > 0 && dupErr == nil {
		item := queue[0]
		queue = queue[1:]

		row := make(types.Row)
		row[types.ColRID] = types.NewString(item.rid)
		row[types.ColParentRID] = types.NewString(item.parentRid)

		flat := flatten(item.obj, "")
		assignFields(flat, row, item.tableName, item.rid, seenRids, &queue, &dupErr)

		buffers[item.tableName] = append(buffers[item.tableName], row)
		if len(buffers[item.tableName]) >= ArrayBatch {
			tables[item.tableName] = append(tables[item.tableName], buffers[item.tableName]...)
			buffers[item.tableName] = nil
		}
	}
	if dupErr != nil {
		return Result{}, dupErr
	}

	for name, rows := range buffers {
		if len(rows) == 0 {
			continue
		}
		tables[name] = append(tables[name], rows...)
	}

	return Result{Parent: parent, Tables: tables}, nil
}

// ridFor returns doc's surrogate id: its own "_rid" if present, else its
// "id" field stringified, else a freshly generated uuid. dup reports
// whether the returned rid was already registered in seen (a collision
// the caller must reject as a DataError rather than silently overwrite).
func ridFor(doc types.Value, seen map[string]struct{}) (rid string, dup bool) {
	candidate := ""
	if v, ok := doc.Object[types.ColRID]; ok && v.Kind == types.KindString && v.Str != "" {
		candidate = v.Str
	} else if v, ok := doc.Object["id"]; ok {
		candidate = stringify(v)
	}
	if candidate == "" {
		candidate = uuid.NewString()
	}
	if _, exists := seen[candidate]; exists {
		return candidate, true
	}
	seen[candidate] = struct{}{}
	return candidate, false
}

func stringify(v types.Value) string {
	switch v.Kind {
	case types.KindString:
		return v.Str
	case types.KindNumber:
		return fmt.Sprintf("%v", v.Number)
	default:
		return ""
	}
}

// flatten walks v (expected KindObject) and returns a dotted-path map of
// every leaf scalar and array, without descending into arrays.
func flatten(v types.Value, prefix string) map[string]types.Value {
	out := make(map[string]types.Value)
	flattenInto(v, prefix, out)
	return out
}

func flattenInto(v types.Value, prefix string, out map[string]types.Value) {
	type frame struct {
		obj    types.Value
		prefix string
	}
	stack := []frame{{v, prefix}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.obj.Kind != types.KindObject {
			continue
		}
		for k, val := range f.obj.Object {
			key := k
			if f.prefix != "" {
				key = f.prefix + "." + k
			}
			if val.Kind == types.KindObject {
				stack = append(stack, frame{val, key})
				continue
			}
			out[key] = val
		}
	}
}

// assignFields applies step 3's per-field rule to every flattened entry,
// writing scalars/objects/primitive-arrays directly into row and enqueuing
// object-array elements as child rows under tableName.<key>.
func assignFields(flat map[string]types.Value, row types.Row, tableName, parentRid string, seenRids map[string]struct{}, queue *[]queueItem, dupErr *error) {
	for key, val := range flat {
		if *dupErr != nil {
			return
		}
		if val.Kind != types.KindArray {
			row[key] = val
			continue
		}

		var primitives, objects []types.Value
		for _, elem := range val.Array {
			if elem.Kind == types.KindObject {
				objects = append(objects, elem)
			} else {
				primitives = append(primitives, elem)
			}
		}

		if len(objects) == 0 {
			row[key] = val
			continue
		}

		row[types.ArrayMarkerField(key)] = types.NewBool(true)
		if len(primitives) > 0 {
			row[key+ScalarsSuffix] = types.NewArray(primitives)
		}

		childTable := key
		if tableName != "" {
			childTable = tableName + "." + key
		}
		for _, obj := range objects {
			rid, dup := ridFor(obj, seenRids)
			if dup {
				*dupErr = DuplicateRidError(childTable, rid)
				return
			}
			*queue = append(*queue, queueItem{obj: obj, tableName: childTable, parentRid: parentRid, rid: rid})
		}
	}
}

// DuplicateRidError builds the DataError the caller should surface if the
// same rid is assigned to two distinct objects within one run — the
// module's answer to §9's "cyclic graphs" design note.
func DuplicateRidError(table, rid string) error {
	return &apperr.DataError{Table: table, RID: rid, Msg: "duplicate rid assigned within run"}
}
