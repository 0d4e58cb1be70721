package dsl

import "testing"

func TestEvaluate(t *testing.T) {
	row := map[string]float64{
		"forty_yard_dash": 4.35,
		"vertical_jump":   37.0,
		"senior_ypg":      310.0,
	}
	eval := NewEval(row, "wr")

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"empty expression matches", "", true},
		{"speed threshold hit", "row.forty_yard_dash < 4.4", true},
		{"speed threshold missed", "row.forty_yard_dash < 4.3", false},
		{"compound condition", "row.forty_yard_dash < 4.4 && row.vertical_jump > 36.0", true},
		{"position variable", `position == "wr"`, true},
		{"position mismatch", `position == "qb"`, false},
		{"arithmetic", "row.senior_ypg * 2.0 > 600.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	eval := NewEval(map[string]float64{"x": 1}, "qb")

	if _, err := eval.Evaluate("this is not a valid expression ((("); err == nil {
		t.Fatal("compile error expected")
	}
	if _, err := eval.Evaluate("row.x + 1.0"); err == nil {
		t.Fatal("non-boolean result must be rejected")
	}
	// CEL errors on missing keys instead of returning a zero value.
	if _, err := eval.Evaluate("row.does_not_exist > 0.0"); err == nil {
		t.Fatal("missing key must surface an error")
	}
}
