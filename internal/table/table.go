// Package table holds the in-memory column model shared by sources, the
// inference engine and the renderer.
//
// A Table is column-oriented. Every column carries its native Kind (what the
// source told us, or what text inference decided) and a slice of values where
// nil means missing. Float NaN is treated as missing as well, so callers never
// need to special-case it.
//
// Value types per Kind:
//   - KindString:   string
//   - KindInt:      int64
//   - KindFloat:    float64
//   - KindBool:     bool
//   - KindDatetime: time.Time
//   - KindDuration: time.Duration
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the native storage type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDatetime
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDatetime:
		return "datetime"
	case KindDuration:
		return "duration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Numeric reports whether the kind stores numbers natively.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// Temporal reports whether the kind stores datetimes or durations.
func (k Kind) Temporal() bool { return k == KindDatetime || k == KindDuration }

// Column is a named, typed sequence of values. nil marks a missing value.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Values) }

// MissingRate returns the fraction of missing values. An empty column has rate 0.
func (c *Column) MissingRate() float64 {
	if len(c.Values) == 0 {
		return 0
	}
	n := 0
	for _, v := range c.Values {
		if IsMissing(v) {
			n++
		}
	}
	return float64(n) / float64(len(c.Values))
}

// NonMissing returns the present values in row order.
func (c *Column) NonMissing() []any {
	out := make([]any, 0, len(c.Values))
	for _, v := range c.Values {
		if !IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// Floats coerces every value to float64. Missing and non-numeric values become
// NaN, mirroring a lenient "to numeric" conversion.
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.Values))
	for i, v := range c.Values {
		f, ok := ToFloat(v)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// Table is an ordered set of equally sized columns.
type Table struct {
	// Name is the dataset name (file stem, table name, ...).
	Name string
	// Source describes where the rows came from (path, DSN-less description).
	Source string
	// Delimiter is set by delimited-text sources; zero otherwise.
	Delimiter rune
	Columns   []*Column
}

// Rows returns the number of rows (the length of the first column).
func (t *Table) Rows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	if t == nil {
		return nil
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool { return t.Column(name) != nil }

// Names returns the column names in table order.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// IsMissing reports whether v represents a missing value.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

// ToFloat converts a value to float64 the way a lenient numeric coercion
// would: numbers as-is, booleans as 0/1, datetimes as epoch nanoseconds,
// durations as nanoseconds and strings through strconv.ParseFloat.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case time.Time:
		return float64(x.UnixNano()), true
	case time.Duration:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Stringify renders a present value as text. Integral floats keep a trailing
// ".0" so that 1 and 1.0 stay distinguishable in published domains.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case bool:
		if x {
			return "True"
		}
		return "False"
	case time.Time:
		if x.Nanosecond() == 0 {
			return x.Format("2006-01-02 15:04:05")
		}
		return x.Format("2006-01-02 15:04:05.999999999")
	case time.Duration:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
