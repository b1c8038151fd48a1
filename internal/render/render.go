// Package render turns epoch-nanosecond datetime columns back into text using
// the datetime_spec entries of a schema.
package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/datetime"
	"github.com/vnragavan/schema-generator/internal/logging"
	"github.com/vnragavan/schema-generator/internal/metrics"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/source/csvfile"
)

// RenderedSuffix is appended to the column name when originals are kept.
const RenderedSuffix = "__rendered"

// Frame is a raw text table.
type Frame struct {
	Header []string
	Rows   [][]string
}

// Options controls rendering.
type Options struct {
	// KeepOriginal writes into "<col>__rendered" and leaves the column as is.
	KeepOriginal bool
}

// Report summarizes a render.
type Report struct {
	// Columns lists the rendered columns, sorted.
	Columns []string
	// Unparseable counts non-missing cells that were not epoch integers.
	Unparseable int
	// RaggedRows counts rows with more cells than the header. Their extra
	// cells are kept after every named column.
	RaggedRows int
}

// Render formats every column of f that has a datetime spec. Cells that are
// empty or not numeric become empty. f is not modified.
func Render(f Frame, specs map[string]schema.DatetimeSpec, opts Options) (Frame, Report) {
	var rep Report
	out := Frame{
		Header: append([]string(nil), f.Header...),
		Rows:   make([][]string, len(f.Rows)),
	}
	// extra holds the cells past the header, re-attached once rendered
	// columns have been appended.
	extra := make([][]string, len(f.Rows))
	for i, r := range f.Rows {
		row := make([]string, len(f.Header))
		copy(row, r)
		out.Rows[i] = row
		if len(r) > len(f.Header) {
			extra[i] = r[len(f.Header):]
			rep.RaggedRows++
		}
	}

	names := make([]string, 0, len(specs))
	for n := range specs {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		src := indexOf(f.Header, name)
		if src < 0 {
			continue
		}
		dst := src
		if opts.KeepOriginal {
			dst = len(out.Header)
			out.Header = append(out.Header, name+RenderedSuffix)
			for i := range out.Rows {
				out.Rows[i] = append(out.Rows[i], "")
			}
		}
		pattern := specs[name].OutputFormat
		for i, row := range out.Rows {
			text, ok := formatCell(row[src], pattern)
			if !ok {
				rep.Unparseable++
			}
			out.Rows[i][dst] = text
		}
		rep.Columns = append(rep.Columns, name)
	}

	if rep.RaggedRows > 0 {
		for i, e := range extra {
			out.Rows[i] = append(out.Rows[i], e...)
		}
	}
	return out, rep
}

// formatCell renders one cell. ok is false for a non-empty cell that is not
// a number.
func formatCell(cell, pattern string) (string, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || datetime.IsMissingText(s) {
		return "", true
	}
	if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
		return datetime.Format(ns, pattern), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return datetime.Format(int64(f), pattern), true
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// File renders the delimited file cfg.Data with the datetime specs of
// cfg.Schema and writes the result atomically to cfg.Out.
func File(ctx context.Context, cfg config.Render, log logrus.FieldLogger) (Report, error) {
	if log == nil {
		log = logging.Discard()
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	start := time.Now()
	rep, err := renderFile(cfg, log)
	metrics.RecordStep("render", start, err)
	return rep, err
}

func renderFile(cfg config.Render, log logrus.FieldLogger) (Report, error) {
	s, err := schema.Read(cfg.Schema)
	if err != nil {
		return Report{}, config.Errorf("schema", "%v", err)
	}

	raw, err := os.ReadFile(cfg.Data)
	if err != nil {
		return Report{}, err
	}
	delim, err := csvfile.ResolveDelimiter(cfg.Delimiter, raw)
	if err != nil {
		return Report{}, err
	}
	header, rows, err := csvfile.ReadRecords(strings.NewReader(string(raw)), delim)
	if err != nil {
		return Report{}, fmt.Errorf("%s: %w", cfg.Data, err)
	}

	out, rep := Render(Frame{Header: header, Rows: rows}, s.DatetimeSpec, Options{KeepOriginal: cfg.KeepOriginal})
	if len(rep.Columns) == 0 {
		log.Info("no datetime columns to render; copying input")
	}
	if rep.Unparseable > 0 {
		metrics.Fallback("render_unparseable")
		log.WithField("cells", rep.Unparseable).Warn("non-numeric cells in datetime columns rendered empty")
	}
	if rep.RaggedRows > 0 {
		log.WithField("rows", rep.RaggedRows).Warn("rows longer than the header; extra cells kept at the end")
	}

	var buf strings.Builder
	if err := csvfile.WriteRecords(&buf, delim, out.Header, out.Rows); err != nil {
		return rep, err
	}
	if err := schema.WriteFileAtomic(cfg.Out, []byte(buf.String()), 0o644); err != nil {
		return rep, fmt.Errorf("write %s: %w", cfg.Out, err)
	}
	log.WithFields(logrus.Fields{"out": cfg.Out, "columns": rep.Columns}).Info("rendered datetimes")
	return rep, nil
}
