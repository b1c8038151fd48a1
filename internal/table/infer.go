package table

import (
	"math"
	"strconv"
	"strings"
)

// naValues are the cell texts treated as missing by delimited-text readers.
var naValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNA reports whether a raw cell should be read as a missing value.
func IsNA(cell string) bool {
	_, ok := naValues[strings.TrimSpace(cell)]
	return ok
}

// boolLiterals are the only spellings promoted to a native boolean column.
// Numeric 0/1 stay integers.
var boolLiterals = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// InferColumn builds a typed column from raw text cells.
//
// The sweep mirrors what a dataframe reader does with untyped text:
//   - missing markers (see IsNA) become nil
//   - all remaining cells parse as int64   -> KindInt
//   - all remaining cells parse as float64 -> KindFloat
//   - all remaining cells are bool literals -> KindBool
//   - otherwise                             -> KindString (trimmed text)
//
// A column with no present cells is KindString with every value missing.
// Datetimes are never inferred here; that is the datetime detector's job.
func InferColumn(name string, cells []string) *Column {
	var seen bool
	allInt, allFloat, allBool := true, true, true

	for _, raw := range cells {
		if IsNA(raw) {
			continue
		}
		v := strings.TrimSpace(raw)
		seen = true

		if allInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := boolLiterals[v]; !ok {
				allBool = false
			}
		}
		if !allInt && !allFloat && !allBool {
			break
		}
	}

	col := &Column{Name: name, Kind: KindString, Values: make([]any, len(cells))}
	switch {
	case !seen:
		return col
	case allInt:
		col.Kind = KindInt
	case allFloat:
		col.Kind = KindFloat
	case allBool:
		col.Kind = KindBool
	}

	for i, raw := range cells {
		if IsNA(raw) {
			continue
		}
		v := strings.TrimSpace(raw)
		switch col.Kind {
		case KindInt:
			n, _ := strconv.ParseInt(v, 10, 64)
			col.Values[i] = n
		case KindFloat:
			f, _ := strconv.ParseFloat(v, 64)
			if math.IsNaN(f) {
				continue
			}
			col.Values[i] = f
		case KindBool:
			col.Values[i] = boolLiterals[v]
		default:
			col.Values[i] = v
		}
	}
	return col
}

// FromRecords builds a table from a header row and data rows, inferring each
// column with InferColumn. Short rows are padded with missing cells and extra
// cells are dropped. Duplicate header names get a ".N" suffix.
func FromRecords(name string, header []string, rows [][]string) *Table {
	names := DedupeNames(header)
	t := &Table{Name: name, Columns: make([]*Column, 0, len(names))}
	for ci, n := range names {
		cells := make([]string, len(rows))
		for ri, r := range rows {
			if ci < len(r) {
				cells[ri] = r[ci]
			}
		}
		t.Columns = append(t.Columns, InferColumn(n, cells))
	}
	return t
}

// DedupeNames trims header names and renames repeats to "name.1", "name.2", ...
// Blank names become "Unnamed: <index>".
func DedupeNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		base := h
		for {
			if _, dup := seen[h]; !dup {
				break
			}
			seen[base]++
			h = base + "." + strconv.Itoa(seen[base])
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}
