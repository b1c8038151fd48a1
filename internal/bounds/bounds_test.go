package bounds

import (
	"math"
	"reflect"
	"testing"

	"github.com/vnragavan/schema-generator/internal/table"
)

// TestBounds covers spread padding, constant columns and integer rounding.
//
// Edge cases:
//   - No finite values yields the unit interval.
//   - A constant column with pad 0 stays a point interval.
//   - A constant column with pad > 0 is widened by at least 1.
func TestBounds(t *testing.T) {
	t.Parallel()

	nan, inf := math.NaN(), math.Inf(1)
	tests := []struct {
		name    string
		values  []float64
		pad     float64
		integer bool
		want    []float64
	}{
		{name: "no_pad", values: []float64{3, 1, 2}, want: []float64{1, 3}},
		{name: "spread_pad", values: []float64{0, 10}, pad: 0.1, want: []float64{-1, 11}},
		{name: "integer_rounding", values: []float64{0, 10}, pad: 0.05, integer: true, want: []float64{-1, 11}},
		{name: "continuous_not_rounded", values: []float64{0, 10}, pad: 0.05, want: []float64{-0.5, 10.5}},
		{name: "constant_no_pad", values: []float64{5, 5}, want: []float64{5, 5}},
		{name: "constant_small", values: []float64{5, 5}, pad: 0.1, want: []float64{4, 6}},
		{name: "constant_large", values: []float64{100}, pad: 0.1, want: []float64{90, 110}},
		{name: "ignores_non_finite", values: []float64{nan, 1, inf, 4}, want: []float64{1, 4}},
		{name: "empty", values: nil, want: []float64{0, 1}},
		{name: "all_nan", values: []float64{nan, nan}, pad: 0.3, want: []float64{0, 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Bounds(tt.values, tt.pad, tt.integer)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Bounds(%v, %v, %v) = %v, want %v", tt.values, tt.pad, tt.integer, got, tt.want)
			}
		})
	}
}

func TestPadFractions(t *testing.T) {
	t.Parallel()

	zero, half := 0.0, 0.5
	p := PadFractions{Global: 0.1, Integer: &zero}
	if p.ForInteger() != 0 || p.ForContinuous() != 0.1 {
		t.Fatalf("explicit integer 0 must win over global; continuous falls back")
	}
	p.Continuous = &half
	if p.For(false) != 0.5 || p.For(true) != 0 {
		t.Fatalf("For() picked the wrong fraction")
	}
}

func TestDomain(t *testing.T) {
	t.Parallel()

	col := &table.Column{Kind: table.KindString, Values: []any{"b", "a", nil, "b", "10"}}
	dom, ok := Domain(col, 3)
	if !ok || !reflect.DeepEqual(dom, []string{"10", "a", "b"}) {
		t.Fatalf("Domain = %v, %v", dom, ok)
	}
	if _, ok := Domain(col, 2); ok {
		t.Fatalf("cardinality above cap must be skipped")
	}
	if _, ok := Domain(&table.Column{Values: []any{nil}}, 5); ok {
		t.Fatalf("empty domain must be skipped")
	}
}
