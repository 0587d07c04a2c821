package csv

import "testing"

func TestParsePythonLiteralList(t *testing.T) {
	v, ok := parsePythonLiteral(`['a', 'b', 1, True, None]`)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if len(v.Array) != 5 {
		t.Fatalf("expected 5 elements, got %d", len(v.Array))
	}
	if v.Array[0].Str != "a" || v.Array[1].Str != "b" {
		t.Errorf("unexpected string elements: %+v", v.Array[:2])
	}
	if v.Array[2].Number != 1 {
		t.Errorf("expected number 1, got %+v", v.Array[2])
	}
	if !v.Array[3].Bool {
		t.Errorf("expected True, got %+v", v.Array[3])
	}
	if !v.Array[4].IsNull() {
		t.Errorf("expected None -> null, got %+v", v.Array[4])
	}
}

func TestParsePythonLiteralDict(t *testing.T) {
	v, ok := parsePythonLiteral(`{'k': 1, 'nested': {'x': 'y'}}`)
	if !ok {
		t.Fatal("expected successful parse")
	}
	if v.Object["k"].Number != 1 {
		t.Errorf("expected k=1, got %+v", v.Object["k"])
	}
	if v.Object["nested"].Object["x"].Str != "y" {
		t.Errorf("expected nested.x=y, got %+v", v.Object["nested"])
	}
}

func TestParsePythonLiteralRejectsGarbage(t *testing.T) {
	_, ok := parsePythonLiteral(`not a literal at all {`)
	if ok {
		t.Error("expected parse failure")
	}
}

func TestParsePythonLiteralEmptyContainers(t *testing.T) {
	v, ok := parsePythonLiteral(`[]`)
	if !ok || len(v.Array) != 0 {
		t.Errorf("expected empty array, got %+v ok=%v", v, ok)
	}
	v2, ok := parsePythonLiteral(`{}`)
	if !ok || len(v2.Object) != 0 {
		t.Errorf("expected empty object, got %+v ok=%v", v2, ok)
	}
}
