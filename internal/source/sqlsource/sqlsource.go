// Package sqlsource holds the pieces shared by the SQL backends: building the
// SELECT, scanning driver values into columns and picking a column Kind from
// what the driver returned.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/table"
)

// QuoteFunc quotes one identifier part for a SQL dialect.
type QuoteFunc func(string) string

// DoubleQuote quotes an identifier with ANSI double quotes.
func DoubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// BracketQuote quotes an identifier the SQL Server way.
func BracketQuote(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// SplitQualifiedName splits "schema.table". Anything other than exactly one
// dot is treated as an unqualified name.
func SplitQualifiedName(name string) (schema string, tbl string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// SelectSQL returns cfg.Query, or SELECT * over cfg.Table when no query is
// given.
func SelectSQL(cfg source.Config, quote QuoteFunc) (string, error) {
	if q := strings.TrimSpace(cfg.Query); q != "" {
		return q, nil
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return "", fmt.Errorf("either a query or a table is required")
	}
	schema, tbl := SplitQualifiedName(cfg.Table)
	if schema != "" {
		return "SELECT * FROM " + quote(schema) + "." + quote(tbl), nil
	}
	return "SELECT * FROM " + quote(tbl), nil
}

// Describe names a SQL dataset without leaking the DSN.
func Describe(kind string, cfg source.Config) (name, desc string) {
	name = "query"
	if t := strings.TrimSpace(cfg.Table); t != "" {
		_, name = SplitQualifiedName(t)
	}
	return name, kind + ":" + name
}

// Normalizer maps one driver value to a table value. dbType is the driver's
// DatabaseTypeName for the column, upper-cased; it may be empty.
type Normalizer func(v any, dbType string) any

// Builder accumulates rows column by column.
type Builder struct {
	names  []string
	values [][]any
}

// NewBuilder starts a builder for the given column names.
func NewBuilder(names []string) *Builder {
	return &Builder{
		names:  table.DedupeNames(names),
		values: make([][]any, len(names)),
	}
}

// Append adds one row. Missing trailing cells are recorded as nil.
func (b *Builder) Append(row []any) {
	for i := range b.values {
		var v any
		if i < len(row) {
			v = row[i]
		}
		b.values[i] = append(b.values[i], v)
	}
}

// Table settles each column's Kind and returns the table.
func (b *Builder) Table(name, desc string) *table.Table {
	t := &table.Table{Name: name, Source: desc}
	for i, n := range b.names {
		t.Columns = append(t.Columns, settle(n, b.values[i]))
	}
	return t
}

// settle picks the narrowest Kind that fits every present value. Mixed int and
// float columns become float; any other mix falls back to text.
func settle(name string, vals []any) *table.Column {
	counts := map[table.Kind]int{}
	present := 0
	for _, v := range vals {
		if table.IsMissing(v) {
			continue
		}
		present++
		counts[kindOf(v)]++
	}

	kind := table.KindString
	switch {
	case present == 0:
	case counts[table.KindInt] == present:
		kind = table.KindInt
	case counts[table.KindInt]+counts[table.KindFloat] == present:
		kind = table.KindFloat
	case counts[table.KindBool] == present:
		kind = table.KindBool
	case counts[table.KindDatetime] == present:
		kind = table.KindDatetime
	case counts[table.KindDuration] == present:
		kind = table.KindDuration
	}

	out := make([]any, len(vals))
	for i, v := range vals {
		if table.IsMissing(v) {
			continue
		}
		switch kind {
		case table.KindFloat:
			f, _ := table.ToFloat(v)
			out[i] = f
		case table.KindString:
			out[i] = table.Stringify(v)
		default:
			out[i] = v
		}
	}
	return &table.Column{Name: name, Kind: kind, Values: out}
}

func kindOf(v any) table.Kind {
	switch v.(type) {
	case int64:
		return table.KindInt
	case float64:
		return table.KindFloat
	case bool:
		return table.KindBool
	case time.Time:
		return table.KindDatetime
	case time.Duration:
		return table.KindDuration
	default:
		return table.KindString
	}
}

// Normalize converts the value types database/sql drivers commonly return
// into the table value set. Unknown types are rendered as text.
func Normalize(v any, dbType string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, float64, bool, string, time.Time, time.Duration:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []byte:
		s := string(x)
		if isDecimalType(dbType) {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
		return s
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func isDecimalType(dbType string) bool {
	switch dbType {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// ReadAll runs query on db and collects the result into a table.
func ReadAll(ctx context.Context, db *sql.DB, query, name, desc string, norm Normalizer) (*table.Table, error) {
	if norm == nil {
		norm = Normalize
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	names := make([]string, len(cts))
	dbTypes := make([]string, len(cts))
	for i, ct := range cts {
		names[i] = ct.Name()
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	b := NewBuilder(names)
	raw := make([]any, len(cts))
	ptrs := make([]any, len(cts))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make([]any, len(raw))
		for i, v := range raw {
			row[i] = norm(v, dbTypes[i])
		}
		b.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return b.Table(name, desc), nil
}
