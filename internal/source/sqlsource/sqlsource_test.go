package sqlsource

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/table"
)

func TestSelectSQL(t *testing.T) {
	t.Parallel()

	q, err := SelectSQL(source.Config{Query: " SELECT 1 ", Table: "ignored"}, DoubleQuote)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)

	q, err = SelectSQL(source.Config{Table: "loans"}, DoubleQuote)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "loans"`, q)

	q, err = SelectSQL(source.Config{Table: "dbo.lo]ans"}, BracketQuote)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM [dbo].[lo]]ans]`, q)

	_, err = SelectSQL(source.Config{}, DoubleQuote)
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	name, desc := Describe("postgres", source.Config{DSN: "postgres://u:secret@h/db", Table: "public.loans"})
	assert.Equal(t, "loans", name)
	assert.Equal(t, "postgres:loans", desc)
	assert.NotContains(t, desc, "secret")

	name, _ = Describe("sqlite", source.Config{Query: "SELECT 1"})
	assert.Equal(t, "query", name)
}

func TestBuilder_SettlesKinds(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b := NewBuilder([]string{"i", "f", "b", "d", "s", "empty", "i"})
	b.Append([]any{int64(1), int64(2), true, ts, "x", nil, int64(7)})
	b.Append([]any{nil, 2.5, false, nil, int64(3), nil})
	tb := b.Table("t", "sqlite:t")

	assert.Equal(t, []string{"i", "f", "b", "d", "s", "empty", "i.1"}, tb.Names())
	assert.Equal(t, table.KindInt, tb.Column("i").Kind)
	assert.Equal(t, table.KindFloat, tb.Column("f").Kind)
	assert.Equal(t, []any{2.0, 2.5}, tb.Column("f").Values)
	assert.Equal(t, table.KindBool, tb.Column("b").Kind)
	assert.Equal(t, table.KindDatetime, tb.Column("d").Kind)
	assert.Equal(t, table.KindString, tb.Column("s").Kind)
	assert.Equal(t, []any{"x", "3"}, tb.Column("s").Values)
	assert.Equal(t, table.KindString, tb.Column("empty").Kind)
	assert.Equal(t, []any{int64(7), nil}, tb.Column("i.1").Values)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(5), Normalize(int32(5), ""))
	assert.Equal(t, int64(5), Normalize(uint8(5), ""))
	assert.Equal(t, float64(float32(1.5)), Normalize(float32(1.5), ""))
	assert.Equal(t, "abc", Normalize([]byte("abc"), "VARCHAR"))
	assert.Equal(t, 12.34, Normalize([]byte("12.34"), "DECIMAL"))
	assert.Equal(t, "n/a", Normalize([]byte("n/a"), "NUMERIC"))
	assert.Nil(t, Normalize(nil, ""))
	assert.True(t, math.IsNaN(Normalize(math.NaN(), "").(float64)))
}
