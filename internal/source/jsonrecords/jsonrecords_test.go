package jsonrecords

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/table"
)

func decode(t *testing.T, input string, opt config.Options) *table.Table {
	t.Helper()
	tbl, err := Decode(context.Background(), strings.NewReader(input), opt)
	require.NoError(t, err)
	return tbl
}

func TestDecode_Layouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
	}{
		{"array", `[{"id": 1, "ok": true}, null, {"id": 2, "ok": false}]`},
		{"envelope", `{"meta": {"n": 2}, "data": [{"id": 1, "ok": true}, {"id": 2, "ok": false}], "next": null}`},
		{"lines", "{\"id\": 1, \"ok\": true}\n{\"id\": 2, \"ok\": false}\n"},
	}
	for _, tc := range cases {
		tbl := decode(t, tc.input, nil)
		require.Equal(t, []string{"id", "ok"}, tbl.Names(), tc.name)
		assert.Equal(t, 2, tbl.Rows(), tc.name)
		assert.Equal(t, table.KindInt, tbl.Column("id").Kind, tc.name)
		assert.Equal(t, table.KindBool, tbl.Column("ok").Kind, tc.name)
	}
}

func TestDecode_SingleObjectAndCells(t *testing.T) {
	t.Parallel()

	tbl := decode(t, `{"name": "a", "score": 1.5, "addr": {"city": "Oslo"}, "missing": null}`, nil)
	assert.Equal(t, []string{"name", "score", "addr", "missing"}, tbl.Names())
	assert.Equal(t, 1, tbl.Rows())
	assert.Equal(t, table.KindFloat, tbl.Column("score").Kind)
	assert.Equal(t, `{"city":"Oslo"}`, tbl.Column("addr").Values[0])
	assert.Equal(t, 1.0, tbl.Column("missing").MissingRate())
}

func TestDecode_ColumnUnionAndArrays(t *testing.T) {
	t.Parallel()

	tbl := decode(t, `[{"a": 1, "tags": ["x", "y"]}, {"b": "z", "a": 2}]`, config.Options{"array_join_separator": "|"})
	assert.Equal(t, []string{"a", "tags", "b"}, tbl.Names())
	assert.Equal(t, "x|y", tbl.Column("tags").Values[0])
	assert.Equal(t, 0.5, tbl.Column("b").MissingRate())
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{``, `[]`, `[1, 2]`, `"text"`, `[{"a": 1}`} {
		_, err := Decode(context.Background(), strings.NewReader(input), nil)
		assert.Error(t, err, input)
	}
}

func TestOpen_Registered(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "loans.json")
	require.NoError(t, os.WriteFile(p, []byte(`[{"amount": 100}, {"amount": 250}]`), 0o600))

	tbl, err := source.Open(context.Background(), source.Config{Kind: Kind, Path: p})
	require.NoError(t, err)
	assert.Equal(t, "loans", tbl.Name)
	assert.Equal(t, p, tbl.Source)
	assert.Equal(t, []float64{100, 250}, tbl.Column("amount").Floats())
}
