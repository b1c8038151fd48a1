package table

import (
	"math"
	"reflect"
	"testing"
	"time"
)

// TestInferColumn verifies the text dtype sweep used by delimited and HTML sources.
//
// Edge cases:
//   - NA markers never influence the inferred kind.
//   - 0/1 stay integers; only true/false literals become booleans.
//   - A column with only missing cells stays a string column.
func TestInferColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cells []string
		want  Kind
		vals  []any
	}{
		{name: "ints_with_na", cells: []string{"1", "", "3", "NA"}, want: KindInt, vals: []any{int64(1), nil, int64(3), nil}},
		{name: "floats", cells: []string{"1.5", "2"}, want: KindFloat, vals: []any{1.5, 2.0}},
		{name: "bools", cells: []string{"True", "false", "null"}, want: KindBool, vals: []any{true, false, nil}},
		{name: "zero_one_is_int", cells: []string{"0", "1"}, want: KindInt, vals: []any{int64(0), int64(1)}},
		{name: "mixed_is_string", cells: []string{"a", " 2 "}, want: KindString, vals: []any{"a", "2"}},
		{name: "all_missing", cells: []string{"", "nan"}, want: KindString, vals: []any{nil, nil}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferColumn("c", tt.cells)
			if got.Kind != tt.want {
				t.Fatalf("InferColumn(%q).Kind = %v, want %v", tt.cells, got.Kind, tt.want)
			}
			if !reflect.DeepEqual(got.Values, tt.vals) {
				t.Fatalf("InferColumn(%q).Values = %#v, want %#v", tt.cells, got.Values, tt.vals)
			}
		})
	}
}

func TestDedupeNames(t *testing.T) {
	t.Parallel()

	got := DedupeNames([]string{" a", "a", "a.1", "", "a"})
	want := []string{"a", "a.1", "a.1.1", "Unnamed: 3", "a.2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DedupeNames = %q, want %q", got, want)
	}
}

func TestFromRecords_PadsShortRows(t *testing.T) {
	t.Parallel()

	tb := FromRecords("d", []string{"x", "y"}, [][]string{{"1", "a"}, {"2"}})
	if tb.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", tb.Rows())
	}
	y := tb.Column("y")
	if y == nil || y.Values[1] != nil {
		t.Fatalf("short row should yield a missing cell, got %#v", y)
	}
	if got := y.MissingRate(); got != 0.5 {
		t.Fatalf("MissingRate() = %v, want 0.5", got)
	}
}

func TestStringifyAndToFloat(t *testing.T) {
	t.Parallel()

	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		v    any
		str  string
		f    float64
		isOK bool
	}{
		{int64(7), "7", 7, true},
		{1.0, "1.0", 1, true},
		{2.5, "2.5", 2.5, true},
		{true, "True", 1, true},
		{ts, "2023-01-02 03:04:05", float64(ts.UnixNano()), true},
		{"12", "12", 12, true},
		{"x", "x", 0, false},
	}
	for _, c := range cases {
		if got := Stringify(c.v); got != c.str {
			t.Errorf("Stringify(%#v) = %q, want %q", c.v, got, c.str)
		}
		f, ok := ToFloat(c.v)
		if ok != c.isOK || (ok && f != c.f) {
			t.Errorf("ToFloat(%#v) = (%v, %v), want (%v, %v)", c.v, f, ok, c.f, c.isOK)
		}
	}

	if !IsMissing(math.NaN()) || !IsMissing(nil) || IsMissing("") {
		t.Fatalf("IsMissing: NaN and nil are missing, empty string is a value")
	}
}
