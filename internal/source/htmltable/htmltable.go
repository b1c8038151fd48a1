// Package htmltable loads the first HTML <table> matching a CSS selector.
//
// The path may be a local file or an http(s) URL. Header cells come from
// <th> elements when present, otherwise from the first row. Cell text is
// whitespace-collapsed and then typed the same way as delimited text.
//
// Options (config.Options keys):
//   - html_selector: CSS selector of the table; default "table"
//   - encoding:      WHATWG encoding label of the document; default utf-8
package htmltable

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/source/csvfile"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Kind is the source kind this package registers.
const Kind = "html"

// DefaultSelector picks the first table in the document.
const DefaultSelector = "table"

// FetchTimeout bounds a remote fetch.
var FetchTimeout = 30 * time.Second

func init() {
	source.Register(Kind, open)
}

func open(ctx context.Context, cfg source.Config) (*table.Table, error) {
	rc, err := load(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := Decode(rc, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	t.Name = stem(cfg.Path)
	t.Source = cfg.Path
	return t, nil
}

func load(ctx context.Context, p string) (io.ReadCloser, error) {
	if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") {
		return os.Open(p)
	}

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "schemagen/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("http get: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return cancelOnClose{resp.Body, cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

func stem(p string) string {
	base := filepath.Base(p)
	if strings.Contains(p, "://") {
		base = path.Base(strings.SplitN(p, "?", 2)[0])
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Decode parses an HTML document and extracts the selected table.
func Decode(r io.Reader, opt config.Options) (*table.Table, error) {
	data, err := csvfile.ReadAllDecoded(r, opt.String("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sel := strings.TrimSpace(opt.String("html_selector", DefaultSelector))
	if sel == "" {
		sel = DefaultSelector
	}
	tbl := doc.Find(sel).First()
	if tbl.Length() == 0 {
		return nil, fmt.Errorf("no table matches selector %q", sel)
	}

	header, rows := extract(tbl)
	if len(header) == 0 {
		return nil, fmt.Errorf("table %q has no header row", sel)
	}
	return table.FromRecords("", header, rows), nil
}

// extract returns the header and body rows of a table selection. Nested
// tables are ignored.
func extract(tbl *goquery.Selection) ([]string, [][]string) {
	var header []string
	var rows [][]string

	tbl.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.ParentsFiltered("table").First().IsSelection(tbl)
	}).Each(func(_ int, tr *goquery.Selection) {
		cells := cellTexts(tr.ChildrenFiltered("th, td"))
		if header == nil {
			header = cells
			return
		}
		rows = append(rows, cells)
	})
	return header, rows
}

func cellTexts(s *goquery.Selection) []string {
	out := make([]string, 0, s.Length())
	s.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.Join(strings.Fields(c.Text()), " "))
	})
	return out
}
