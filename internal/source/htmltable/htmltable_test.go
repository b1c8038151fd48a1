package htmltable

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/table"
)

const page = `<html><body>
<table id="first"><tr><td>ignored</td></tr></table>
<table id="loans">
  <thead><tr><th>id</th><th>amount</th><th> grade  note </th></tr></thead>
  <tbody>
    <tr><td>1</td><td>10.5</td><td>A
      <table><tr><td>nested</td></tr></table></td></tr>
    <tr><td>2</td><td>NA</td><td>B</td></tr>
  </tbody>
</table>
</body></html>`

func TestDecode_Selector(t *testing.T) {
	t.Parallel()

	tb, err := Decode(strings.NewReader(page), config.Options{"html_selector": "#loans"})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "amount", "grade note"}, tb.Names())
	assert.Equal(t, 2, tb.Rows())
	assert.Equal(t, table.KindInt, tb.Column("id").Kind)
	assert.Equal(t, table.KindFloat, tb.Column("amount").Kind)
	assert.Nil(t, tb.Column("amount").Values[1])
	assert.Equal(t, "B", tb.Column("grade note").Values[1])
}

func TestDecode_DefaultSelectorAndErrors(t *testing.T) {
	t.Parallel()

	tb, err := Decode(strings.NewReader(page), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ignored"}, tb.Names())
	assert.Equal(t, 0, tb.Rows())

	_, err = Decode(strings.NewReader(page), config.Options{"html_selector": "#missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no table matches")
}

func TestOpen_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/loans.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	tb, err := source.Open(context.Background(), source.Config{
		Kind:    Kind,
		Path:    srv.URL + "/data/loans.html?v=1",
		Options: config.Options{"html_selector": "#loans"},
	})
	require.NoError(t, err)
	assert.Equal(t, "loans", tb.Name)
	assert.Equal(t, 2, tb.Rows())

	_, err = source.Open(context.Background(), source.Config{Kind: Kind, Path: srv.URL + "/nope.html"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 404")
}
