package classify

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/table"
)

func strCol(vals ...any) *table.Column {
	return &table.Column{Name: "c", Kind: table.KindString, Values: vals}
}

// TestLooksLikeGUID covers every accepted UUID spelling and the version/variant
// checks.
func TestLooksLikeGUID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"123e4567-e89b-42d3-a456-426614174000", true},
		{"123E4567-E89B-42D3-A456-426614174000", true},
		{"{123e4567-e89b-42d3-a456-426614174000}", true},
		{"urn:uuid:123e4567-e89b-42d3-a456-426614174000", true},
		{"123e4567e89b42d3a456426614174000", true},
		{"  123e4567-e89b-42d3-a456-426614174000 ", true},
		{"123e4567-e89b-02d3-a456-426614174000", false}, // version 0
		{"123e4567-e89b-72d3-a456-426614174000", false}, // version 7
		{"123e4567-e89b-42d3-c456-426614174000", false}, // variant c
		{"123e4567-e89b-42d3-a456-42661417400", false},
		{"not-a-guid", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := LooksLikeGUID(tt.in); got != tt.want {
			t.Errorf("LooksLikeGUID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsGUIDLike_Threshold(t *testing.T) {
	t.Parallel()

	g := "123e4567-e89b-42d3-a456-426614174000"
	vals := make([]any, 0, 21)
	for i := 0; i < 19; i++ {
		vals = append(vals, g)
	}
	vals = append(vals, "nope", nil)

	// 19 of 20 present values match: exactly 0.95.
	if !IsGUIDLike(strCol(vals...), 0.95) {
		t.Fatalf("19/20 GUIDs should pass a 0.95 threshold")
	}
	if IsGUIDLike(strCol(vals...), 0.96) {
		t.Fatalf("19/20 GUIDs should fail a 0.96 threshold")
	}
	if IsGUIDLike(strCol(nil, nil), 0.95) {
		t.Fatalf("all-missing column must not be GUID-like")
	}
	intCol := &table.Column{Name: "n", Kind: table.KindInt, Values: []any{int64(1)}}
	if IsGUIDLike(intCol, 0.5) {
		t.Fatalf("non-string column must not be GUID-like")
	}
}

// TestClassify walks the decision order.
//
// Edge cases:
//   - Booleans are ordinal with the fixed domain even when binary collapse is on.
//   - Binary collapse never applies to temporal kinds.
//   - A string column with >= 95% numeric values is number-like.
func TestClassify(t *testing.T) {
	t.Parallel()

	guid := "123e4567-e89b-42d3-a456-426614174000"
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		col  *table.Column
		opts Options
		want Result
	}{
		{
			name: "guid",
			col:  strCol(guid, guid),
			want: Result{DType: schema.Categorical, GUIDLike: true},
		},
		{
			name: "bool",
			col:  &table.Column{Kind: table.KindBool, Values: []any{true, false, nil}},
			opts: Options{BinaryDomain: true},
			want: Result{DType: schema.Ordinal, BooleanLike: true, NumberLike: true, Domain: []string{"0", "1"}},
		},
		{
			name: "int",
			col:  &table.Column{Kind: table.KindInt, Values: []any{int64(1), int64(5)}},
			want: Result{DType: schema.Integer, NumberLike: true},
		},
		{
			name: "integral_floats",
			col:  &table.Column{Kind: table.KindFloat, Values: []any{1.0, 2.0, math.NaN()}},
			want: Result{DType: schema.Integer, NumberLike: true},
		},
		{
			name: "continuous",
			col:  &table.Column{Kind: table.KindFloat, Values: []any{1.5, 2.0}},
			want: Result{DType: schema.Continuous, NumberLike: true},
		},
		{
			name: "binary_collapse",
			col:  &table.Column{Kind: table.KindInt, Values: []any{int64(10), int64(2), int64(10)}},
			opts: Options{BinaryDomain: true},
			want: Result{DType: schema.Ordinal, NumberLike: true, Domain: []string{"2", "10"}},
		},
		{
			name: "binary_collapse_off",
			col:  &table.Column{Kind: table.KindInt, Values: []any{int64(0), int64(1)}},
			want: Result{DType: schema.Integer, NumberLike: true},
		},
		{
			name: "three_values_not_collapsed",
			col:  &table.Column{Kind: table.KindInt, Values: []any{int64(0), int64(1), int64(2)}},
			opts: Options{BinaryDomain: true},
			want: Result{DType: schema.Integer, NumberLike: true},
		},
		{
			name: "datetime_never_collapsed",
			col:  &table.Column{Kind: table.KindDatetime, Values: []any{ts, ts.Add(time.Hour)}},
			opts: Options{BinaryDomain: true},
			want: Result{DType: schema.Integer, NumberLike: true},
		},
		{
			name: "numeric_strings",
			col:  strCol("1", "2.5", "3", nil),
			want: Result{DType: schema.Continuous, NumberLike: true},
		},
		{
			name: "text",
			col:  strCol("a", "b", "1"),
			want: Result{DType: schema.Categorical},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.col, tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIntegerLike(t *testing.T) {
	t.Parallel()

	if !IntegerLike([]float64{1, 2 + 1e-9, math.NaN(), math.Inf(1)}) {
		t.Errorf("values within 1e-8 of integers should be integer-like")
	}
	if IntegerLike([]float64{1, 2.001}) {
		t.Errorf("2.001 is not integral")
	}
	if IntegerLike([]float64{math.NaN()}) {
		t.Errorf("no finite values means not integer-like")
	}
}
