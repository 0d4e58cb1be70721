package feature

import (
	"math"
	"testing"

	"github.com/rushteam/scoutkit/core"
)

func TestNewFrameColumnClassification(t *testing.T) {
	records := []core.Record{
		{"YPG": 210.5, "State": "TX", "tds": "22", "notes": "good arm"},
		{"YPG": 180.0, "State": "FL", "tds": 17.0},
	}
	f := NewFrame(records)

	if f.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", f.Rows())
	}
	// Column names are normalized to lower case.
	if !f.HasColumn("ypg") || !f.HasColumn("state") {
		t.Fatalf("columns = %v", f.Columns())
	}
	if !f.IsNumeric("ypg") {
		t.Fatal("ypg should be numeric")
	}
	// Numeric strings coerce into a numeric column.
	if !f.IsNumeric("tds") {
		t.Fatal("tds should coerce to numeric")
	}
	if f.IsNumeric("notes") {
		t.Fatal("notes should stay a string column")
	}
	// Missing cell in a string column is the empty string.
	if got := f.Str("notes")[1]; got != "" {
		t.Fatalf("missing notes = %q", got)
	}
}

func TestFrameColumnOrderDeterministic(t *testing.T) {
	a := NewFrame([]core.Record{{"b": 1.0, "a": 2.0, "c": 3.0}})
	b := NewFrame([]core.Record{{"c": 3.0, "a": 2.0, "b": 1.0}})
	colsA, colsB := a.Columns(), b.Columns()
	if len(colsA) != len(colsB) {
		t.Fatalf("column counts differ")
	}
	for i := range colsA {
		if colsA[i] != colsB[i] {
			t.Fatalf("order differs at %d: %q vs %q", i, colsA[i], colsB[i])
		}
	}
}

func TestFrameMissingNumeric(t *testing.T) {
	records := []core.Record{
		{"ypg": 100.0},
		{},
	}
	f := NewFrame(records)
	col := f.Num("ypg")
	if col[0] != 100 {
		t.Fatalf("col[0] = %v", col[0])
	}
	if !math.IsNaN(col[1]) {
		t.Fatalf("missing value should be NaN, got %v", col[1])
	}
	if _, ok := f.Value(1, "ypg"); ok {
		t.Fatal("Value must report missing for NaN")
	}
	if got := f.ValueOr(1, "ypg", 7); got != 7 {
		t.Fatalf("ValueOr default = %v", got)
	}
}

func TestFrameDedupeValues(t *testing.T) {
	records := []core.Record{
		{"a": 1.0, "b": 1.0, "c": 2.0},
		{"a": 3.0, "b": 3.0, "c": 4.0},
	}
	f := NewFrame(records)
	dropped := f.DedupeValues()
	if len(dropped) != 1 {
		t.Fatalf("dropped = %v, want exactly one duplicate", dropped)
	}
	if f.HasColumn("a") == f.HasColumn("b") {
		t.Fatal("exactly one of the duplicate columns must survive")
	}
	if !f.HasColumn("c") {
		t.Fatal("c must survive")
	}
}

func TestFrameMatrixReplacesNonFinite(t *testing.T) {
	f := NewFrame([]core.Record{{"x": 1.0}, {}})
	m := f.Matrix([]string{"x"})
	if m.Rows[1][0] != 0 {
		t.Fatalf("NaN should export as 0, got %v", m.Rows[1][0])
	}
}

func TestFrameNumRowSkipsMissing(t *testing.T) {
	f := NewFrame([]core.Record{{"x": 1.0, "y": 2.0}, {"x": 5.0}})
	row := f.NumRow(1)
	if row["x"] != 5 {
		t.Fatalf("x = %v", row["x"])
	}
	if _, ok := row["y"]; ok {
		t.Fatal("missing y must not appear in the row map")
	}
}
