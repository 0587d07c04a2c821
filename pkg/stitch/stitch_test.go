package stitch

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/shred"
	"github.com/cuemby/tablesync/pkg/types"
)

func num(n float64) types.Value                { return types.NewNumber(n) }
func str(s string) types.Value                 { return types.NewString(s) }
func obj(m map[string]types.Value) types.Value { return types.NewObject(m) }
func arr(vs ...types.Value) types.Value        { return types.NewArray(vs) }

func roundTrip(t *testing.T, doc types.Value) types.Value {
	t.Helper()
	res, err := shred.Shred(doc)
	if err != nil {
		t.Fatalf("Shred failed: %v", err)
	}
	st := &Stitcher{Log: zerolog.Nop()}
	docs, err := st.Stitch([]types.Row{res.Parent}, res.Tables)
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 reconstructed document, got %d", len(docs))
	}
	return docs[0]
}

func TestRoundTripSimpleObjectArray(t *testing.T) {
	doc := obj(map[string]types.Value{
		"id": str("A"),
		"items": arr(
			obj(map[string]types.Value{"sku": num(1)}),
			obj(map[string]types.Value{"sku": num(2)}),
		),
	})
	got := roundTrip(t, doc)

	if got.Object["id"].Str != "A" {
		t.Errorf("id = %+v, want A", got.Object["id"])
	}
	items := got.Object["items"]
	if items.Kind != types.KindArray || len(items.Array) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	skus := map[float64]bool{}
	for _, it := range items.Array {
		skus[it.Object["sku"].Number] = true
	}
	if !skus[1] || !skus[2] {
		t.Errorf("expected sku 1 and 2, got %v", skus)
	}
}

func TestRoundTripEmptyArrayPreserved(t *testing.T) {
	doc := obj(map[string]types.Value{
		"id":   str("B"),
		"tags": arr(),
	})
	got := roundTrip(t, doc)
	tags := got.Object["tags"]
	if tags.Kind != types.KindArray || len(tags.Array) != 0 {
		t.Errorf("expected empty tags array, got %+v", tags)
	}
}

func TestRoundTripNestedObjectNoArrays(t *testing.T) {
	doc := obj(map[string]types.Value{
		"id": str("C"),
		"nested": obj(map[string]types.Value{
			"inner": obj(map[string]types.Value{"x": num(1)}),
		}),
	})
	got := roundTrip(t, doc)
	x := got.Object["nested"].Object["inner"].Object["x"]
	if x.Number != 1 {
		t.Errorf("x = %+v, want 1", x)
	}
}

func TestRoundTripDoublyNestedArrays(t *testing.T) {
	doc := obj(map[string]types.Value{
		"id": str("D"),
		"a": arr(obj(map[string]types.Value{
			"b": arr(obj(map[string]types.Value{"c": num(1)})),
		})),
	})
	got := roundTrip(t, doc)
	aArr := got.Object["a"]
	if aArr.Kind != types.KindArray || len(aArr.Array) != 1 {
		t.Fatalf("expected 1 element in a, got %+v", aArr)
	}
	bArr := aArr.Array[0].Object["b"]
	if bArr.Kind != types.KindArray || len(bArr.Array) != 1 {
		t.Fatalf("expected 1 element in a[0].b, got %+v", bArr)
	}
	c := bArr.Array[0].Object["c"]
	if c.Number != 1 {
		t.Errorf("c = %+v, want 1", c)
	}
}

func TestRoundTripEquivalentModuloOrdering(t *testing.T) {
	doc := obj(map[string]types.Value{
		"id":   str("G"),
		"name": str("widget"),
		"tags": arr(str("a"), str("b")),
		"items": arr(
			obj(map[string]types.Value{"sku": num(1), "qty": num(3)}),
		),
	})
	got := roundTrip(t, doc)

	want := map[string]any{
		"id":   "G",
		"name": "widget",
		"tags": []any{"a", "b"},
		"items": []any{
			map[string]any{"sku": 1.0, "qty": 3.0},
		},
	}
	gotPlain := types.ToInterface(got)
	if diff := cmp.Diff(want, gotPlain); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkerLawNoChildRowsYieldsEmptyArray(t *testing.T) {
	parent := types.Row{
		types.ColRID:                      str("A"),
		types.ArrayMarkerField("items"):   types.NewBool(true),
		"name":                            str("no children ever arrived"),
	}
	st := &Stitcher{Log: zerolog.Nop()}
	docs, err := st.Stitch([]types.Row{parent}, map[string][]types.Row{})
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	items := docs[0].Object["items"]
	if items.Kind != types.KindArray || len(items.Array) != 0 {
		t.Errorf("expected empty items array from marker alone, got %+v", items)
	}
}

func TestAttachFallsBackToLastSegmentWithoutMarker(t *testing.T) {
	parent := types.Row{types.ColRID: str("A")}
	child := types.Row{types.ColRID: str("C1"), types.ColParentRID: str("A"), "sku": num(1)}

	st := &Stitcher{Log: zerolog.Nop()}
	docs, err := st.Stitch([]types.Row{parent}, map[string][]types.Row{"items": {child}})
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	items := docs[0].Object["items"]
	if items.Kind != types.KindArray || len(items.Array) != 1 {
		t.Fatalf("expected fallback attach to produce 1-element items array, got %+v", items)
	}
}

func TestChildWithMissingParentIsDropped(t *testing.T) {
	parent := types.Row{types.ColRID: str("A")}
	orphan := types.Row{types.ColRID: str("C1"), types.ColParentRID: str("ghost"), "sku": num(1)}

	before := testutil.ToFloat64(metrics.DroppedRowsTotal.WithLabelValues("items", "orphaned"))

	st := &Stitcher{Log: zerolog.Nop()}
	docs, err := st.Stitch([]types.Row{parent}, map[string][]types.Row{"items": {orphan}})
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}
	if _, ok := docs[0].Object["items"]; ok {
		t.Error("expected no items key for a document with no matched children")
	}

	after := testutil.ToFloat64(metrics.DroppedRowsTotal.WithLabelValues("items", "orphaned"))
	if after != before+1 {
		t.Errorf("DroppedRowsTotal{items,orphaned} = %v, want %v", after, before+1)
	}
}

func TestUnflattenRowBuildsNestedStructure(t *testing.T) {
	row := types.Row{"a.b.c": num(1), "a.b.d": num(2), "e": str("x")}
	got := unflattenRow(row)
	want := types.NewObject(map[string]types.Value{
		"a": types.NewObject(map[string]types.Value{
			"b": types.NewObject(map[string]types.Value{
				"c": num(1), "d": num(2),
			}),
		}),
		"e": str("x"),
	})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unflattenRow = %+v, want %+v", got, want)
	}
}
