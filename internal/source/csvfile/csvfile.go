// Package csvfile reads and writes delimited text tables.
//
// Reading decodes the input to UTF-8 (honouring a byte order mark, or an
// explicit encoding label such as "latin1" or "windows-1252"), sniffs the
// delimiter when asked to, and infers column kinds from the text.
//
// Options (config.Options keys):
//   - delimiter: "auto" (default) or a single character; "\t"/"tab" for tabs
//   - encoding:  any WHATWG encoding label; default utf-8
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Kind is the source kind this package registers.
const Kind = "csv"

// SniffBytes is how much of the input the delimiter sniffer looks at.
const SniffBytes = 8192

// Candidates are the delimiters the sniffer chooses from, in preference order.
var Candidates = []rune{',', ';', '\t', '|'}

func init() {
	source.Register(Kind, open)
}

func open(ctx context.Context, cfg source.Config) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Decode(f, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	t.Name = strings.TrimSuffix(filepath.Base(cfg.Path), filepath.Ext(cfg.Path))
	t.Source = cfg.Path
	return t, nil
}

// Decode reads a delimited table from r and infers column kinds.
func Decode(r io.Reader, opt config.Options) (*table.Table, error) {
	data, err := ReadAllDecoded(r, opt.String("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}
	delim, err := ResolveDelimiter(opt.String("delimiter", config.DefaultDelimiter), data)
	if err != nil {
		return nil, err
	}
	header, rows, err := ReadRecords(bytes.NewReader(data), delim)
	if err != nil {
		return nil, err
	}
	t := table.FromRecords("", header, rows)
	t.Delimiter = delim
	return t, nil
}

// ReadAllDecoded reads r fully and converts it to UTF-8 from the named
// encoding. A byte order mark always wins over the label and is stripped.
func ReadAllDecoded(r io.Reader, label string) ([]byte, error) {
	var enc encoding.Encoding = unicode.UTF8
	if l := strings.TrimSpace(label); l != "" && !strings.EqualFold(l, "utf-8") && !strings.EqualFold(l, "utf8") {
		e, err := htmlindex.Get(l)
		if err != nil {
			return nil, config.Errorf("encoding", "unknown encoding %q", label)
		}
		enc = e
	}
	tr := unicode.BOMOverride(enc.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, tr))
	if err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return data, nil
}

// ResolveDelimiter returns the explicit delimiter, or sniffs one from data
// when flag is "auto".
func ResolveDelimiter(flag string, data []byte) (rune, error) {
	if strings.EqualFold(strings.TrimSpace(flag), config.DefaultDelimiter) || flag == "" {
		return Sniff(data), nil
	}
	d, ok := config.ParseDelimiter(flag)
	if !ok {
		return 0, config.Errorf("delimiter", "must be 'auto' or a single character, got %q", flag)
	}
	return d, nil
}

// Sniff guesses the delimiter from the first SniffBytes of data.
//
// A candidate that appears the same non-zero number of times (outside quotes)
// on every sampled line wins; among several, the most frequent one, then
// the earliest in Candidates. Without a consistent candidate the most
// frequent one is used, and "," when none appears at all.
func Sniff(data []byte) rune {
	sample := data
	truncated := false
	if len(sample) > SniffBytes {
		sample, truncated = sample[:SniffBytes], true
	}
	lines := strings.Split(strings.ReplaceAll(string(sample), "\r\n", "\n"), "\n")
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	var nonEmpty []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return ','
	}

	best, bestPerLine := rune(0), 0
	fallback, fallbackTotal := rune(0), 0
	for _, c := range Candidates {
		first := countOutsideQuotes(nonEmpty[0], c)
		consistent := first > 0
		total := 0
		for _, l := range nonEmpty {
			n := countOutsideQuotes(l, c)
			total += n
			if n != first {
				consistent = false
			}
		}
		if consistent && first > bestPerLine {
			best, bestPerLine = c, first
		}
		if total > fallbackTotal {
			fallback, fallbackTotal = c, total
		}
	}
	switch {
	case best != 0:
		return best
	case fallback != 0:
		return fallback
	default:
		return ','
	}
}

func countOutsideQuotes(line string, c rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == c && !inQuotes:
			n++
		}
	}
	return n
}

// ReadRecords parses header and rows. Cells are returned untrimmed; blank
// lines are skipped and ragged rows are kept as-is.
func ReadRecords(r io.Reader, delim rune) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("empty input: no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	rows := make([][]string, 0, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// WriteRecords writes header and rows with the given delimiter.
func WriteRecords(w io.Writer, delim rune, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
