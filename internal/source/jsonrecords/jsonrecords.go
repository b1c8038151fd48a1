// Package jsonrecords reads a table from a JSON document of records.
//
// Accepted layouts:
//   - a root array of objects;
//   - a root object whose first array-valued field holds the records
//     (envelope, e.g. {"meta": {...}, "data": [{...}, ...]});
//   - a root object with no array field, read as a single record;
//   - any sequence of the above (JSON Lines).
//
// Columns appear in first-seen key order. Scalars are rendered to text and
// go through the same kind inference as delimited files; nested objects
// become compact JSON text and arrays of scalars are joined with the
// array_join_separator option (default ",").
package jsonrecords

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Kind is the source kind this package registers.
const Kind = "json"

func init() {
	source.Register(Kind, open)
}

func open(ctx context.Context, cfg source.Config) (*table.Table, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Decode(ctx, f, cfg.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	t.Name = strings.TrimSuffix(filepath.Base(cfg.Path), filepath.Ext(cfg.Path))
	t.Source = cfg.Path
	return t, nil
}

// record keeps the key order of one JSON object.
type record struct {
	keys []string
	vals map[string]any
}

// Decode reads every record from r and builds a table.
func Decode(ctx context.Context, r io.Reader, opt config.Options) (*table.Table, error) {
	sep := opt.String("array_join_separator", ",")

	var recs []record
	emit := func(rec record) error {
		recs = append(recs, rec)
		if len(recs)%1024 == 0 {
			return ctx.Err()
		}
		return nil
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("json: read root token: %w", err)
		}
		switch tok {
		case json.Delim('['):
			if err := readRecords(dec, emit); err != nil {
				return nil, err
			}
		case json.Delim('{'):
			if err := readEnvelopeOrSingle(dec, emit); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("json: unsupported root token %v (want object or array)", tok)
		}
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("json: no records")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var header []string
	index := map[string]int{}
	for _, rec := range recs {
		for _, k := range rec.keys {
			if _, ok := index[k]; !ok {
				index[k] = len(header)
				header = append(header, k)
			}
		}
	}
	rows := make([][]string, len(recs))
	for i, rec := range recs {
		row := make([]string, len(header))
		for k, v := range rec.vals {
			row[index[k]] = cell(v, sep)
		}
		rows[i] = row
	}
	return table.FromRecords("", header, rows), nil
}

// readRecords consumes the elements of an array whose '[' was already read,
// through the closing ']'. Null elements are skipped.
func readRecords(dec *json.Decoder, emit func(record) error) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read array element: %w", err)
		}
		if tok == nil {
			continue
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: array element not an object (got %v)", tok)
		}
		rec, err := readObject(dec)
		if err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

// readObject reads the fields of an object whose '{' was already read,
// through the closing '}'.
func readObject(dec *json.Decoder) (record, error) {
	rec := record{vals: map[string]any{}}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return rec, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return rec, fmt.Errorf("json: decode field %q: %w", key, err)
		}
		if _, dup := rec.vals[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.vals[key] = v
	}
	return rec, expectDelim(dec, '}')
}

// readEnvelopeOrSingle handles a root object whose '{' was already read. The
// first array-valued field is read as the record list and the remaining
// fields are skipped; without one, the object itself is a record.
func readEnvelopeOrSingle(dec *json.Decoder, emit func(record) error) error {
	single := record{vals: map[string]any{}}
	streamed := false
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("json: decode field %q: %w", key, err)
		}
		if streamed {
			continue
		}
		if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
			inner := json.NewDecoder(strings.NewReader(trimmed))
			inner.UseNumber()
			if _, err := inner.Token(); err != nil {
				return fmt.Errorf("json: envelope %q: %w", key, err)
			}
			if err := readRecords(inner, emit); err != nil {
				return fmt.Errorf("json: envelope %q: %w", key, err)
			}
			streamed = true
			continue
		}

		var v any
		d := json.NewDecoder(strings.NewReader(string(raw)))
		d.UseNumber()
		if err := d.Decode(&v); err != nil {
			return fmt.Errorf("json: decode field %q: %w", key, err)
		}
		if _, dup := single.vals[key]; !dup {
			single.keys = append(single.keys, key)
		}
		single.vals[key] = v
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	if streamed || len(single.keys) == 0 {
		return nil
	}
	return emit(single)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("json: read object key: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("json: object key not a string (got %T)", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if tok != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

// cell renders one decoded JSON value as table text.
func cell(v any, sep string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			switch e.(type) {
			case map[string]any, []any:
				return compact(x)
			}
			parts = append(parts, cell(e, sep))
		}
		return strings.Join(parts, sep)
	default:
		return compact(x)
	}
}

func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
