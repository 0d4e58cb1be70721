package conv

import "testing"

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 3.14, 3.14, true},
		{"int", 42, 42, true},
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"numeric string", "4.55", 4.55, true},
		{"padded string", "  74 ", 74, true},
		{"empty string", "", 0, false},
		{"non-numeric string", "TX", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ToFloat64(%#v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestToInt(t *testing.T) {
	if v, ok := ToInt("12"); !ok || v != 12 {
		t.Errorf("ToInt(\"12\") = (%d, %v)", v, ok)
	}
	if v, ok := ToInt(3.9); !ok || v != 3 {
		t.Errorf("ToInt(3.9) = (%d, %v)", v, ok)
	}
	if _, ok := ToInt([]int{1}); ok {
		t.Error("ToInt on a slice must fail")
	}
}

func TestMapToFloat64(t *testing.T) {
	in := map[string]any{"ypg": 300.0, "games": "12", "state": "TX"}
	out := MapToFloat64(in)
	if len(out) != 2 {
		t.Fatalf("got %d entries: %v", len(out), out)
	}
	if out["ypg"] != 300 || out["games"] != 12 {
		t.Fatalf("out = %v", out)
	}
}

func TestSliceAnyToString(t *testing.T) {
	got := SliceAnyToString([]any{"a", 2.0, struct{}{}})
	if len(got) != 2 || got[0] != "a" || got[1] != "2" {
		t.Fatalf("got %v", got)
	}
	if SliceAnyToString("not a slice") != nil {
		t.Fatal("non-slice input must return nil")
	}
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"driver": "redis", "workers": 4, "rate": 0.5}
	if v := ConfigGet(m, "driver", "memory"); v != "redis" {
		t.Errorf("driver = %q", v)
	}
	if v := ConfigGet(m, "missing", "memory"); v != "memory" {
		t.Errorf("missing = %q", v)
	}
	if v := ConfigGetFloat64(m, "workers", 0); v != 4 {
		t.Errorf("workers as float = %v", v)
	}
	if v := ConfigGetInt64(m, "rate", 7); v != 0 {
		t.Errorf("rate as int64 = %v", v)
	}
}
