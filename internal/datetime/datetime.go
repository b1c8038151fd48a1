// Package datetime decides whether a column holds dates and, if so, encodes it
// as epoch nanoseconds and guesses a display format for rendering it back.
//
// Detection is a best-effort heuristic:
//   - native datetime/duration columns are always accepted;
//   - string columns are parsed with several strategies (see Strategies) and
//     the best-scoring one is kept when it parses at least the minimum
//     fraction of all rows (missing entries count as failures);
//   - anything else is left alone (Accepted=false).
//
// Encoded values are float64 so that missing entries can be NaN; nanosecond
// timestamps of realistic dates lose precision only below the microsecond.
package datetime

import (
	"math"
	"strings"
	"time"

	strftime "github.com/ncruces/go-strftime"

	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/table"
)

// DefaultMinParseFrac is the default acceptance threshold.
const DefaultMinParseFrac = 0.95

// formatMinCoverage is the share of samples a candidate display format must
// parse to be chosen.
const formatMinCoverage = 0.8

// CandidateFormats are the display formats tried, in order, by GuessFormat.
var CandidateFormats = []string{
	"%Y-%m-%d %H:%M:%S",
	"%Y-%m-%d",
	"%d/%m/%Y %H:%M",
	"%d/%m/%Y",
	"%m-%d-%Y %H:%M",
	"%m-%d-%Y",
	"%Y/%m/%dT%H:%M:%SZ",
	"%Y/%m/%d %H:%M:%S",
	"%Y/%m/%d",
	"%Y.%m.%d %H:%M:%S",
	"%Y.%m.%d",
}

var missingMarkers = map[string]struct{}{
	"": {}, "null": {}, "NULL": {}, "none": {}, "None": {},
	"nan": {}, "NaN": {}, "nat": {}, "NaT": {},
}

// IsMissingText reports whether s is one of the textual missing markers.
func IsMissingText(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

// Detection is the outcome of Detect.
type Detection struct {
	// Accepted is true when the column was recognized as datetime-like.
	Accepted bool
	// Values holds one entry per row: nanoseconds since the Unix epoch (or
	// duration nanoseconds), NaN for missing or unparseable entries. Nil when
	// not accepted.
	Values []float64
	// Format is the guessed strftime display format.
	Format string
	// Strategy names the parse strategy that won ("native" for typed columns).
	Strategy string
	// Fraction is the winning strategy's success fraction over all rows.
	Fraction float64
}

// Column returns the encoded values as a float column named like the source.
func (d Detection) Column(name string) *table.Column {
	vals := make([]any, len(d.Values))
	for i, f := range d.Values {
		if !math.IsNaN(f) {
			vals[i] = f
		}
	}
	return &table.Column{Name: name, Kind: table.KindFloat, Values: vals}
}

// Detect inspects col and encodes it when it looks like datetimes. minFrac <= 0
// means DefaultMinParseFrac.
func Detect(col *table.Column, minFrac float64) Detection {
	if minFrac <= 0 {
		minFrac = DefaultMinParseFrac
	}

	switch col.Kind {
	case table.KindDatetime, table.KindDuration:
		return encodeNative(col)
	case table.KindString:
	default:
		return Detection{}
	}

	// Present values only; idx maps sample position back to the row.
	samples := make([]string, 0, len(col.Values))
	idx := make([]int, 0, len(col.Values))
	for i, v := range col.Values {
		s, ok := v.(string)
		if !ok || IsMissingText(s) {
			continue
		}
		samples = append(samples, strings.TrimSpace(s))
		idx = append(idx, i)
	}
	if len(samples) == 0 {
		return Detection{}
	}

	best := -1
	var bestFrac float64
	var bestTimes []time.Time
	var bestOK []bool
	for i, st := range Strategies {
		times, ok, frac := score(st.Parse, samples, len(col.Values))
		if best < 0 || frac > bestFrac {
			best, bestFrac, bestTimes, bestOK = i, frac, times, ok
		}
	}
	if bestFrac < minFrac {
		return Detection{Strategy: Strategies[best].Name, Fraction: bestFrac}
	}

	values := make([]float64, len(col.Values))
	for i := range values {
		values[i] = math.NaN()
	}
	for j, row := range idx {
		if bestOK[j] {
			values[row] = float64(bestTimes[j].UnixNano())
		}
	}
	return Detection{
		Accepted: true,
		Values:   values,
		Format:   GuessFormat(samples),
		Strategy: Strategies[best].Name,
		Fraction: bestFrac,
	}
}

func encodeNative(col *table.Column) Detection {
	values := make([]float64, len(col.Values))
	for i, v := range col.Values {
		switch x := v.(type) {
		case time.Time:
			values[i] = float64(x.UnixNano())
		case time.Duration:
			values[i] = float64(x)
		default:
			values[i] = math.NaN()
		}
	}
	return Detection{
		Accepted: true,
		Values:   values,
		Format:   schema.DefaultDatetimeFormat,
		Strategy: "native",
		Fraction: 1,
	}
}

// GuessFormat returns the first CandidateFormats entry that parses at least
// 80% of samples, or schema.DefaultDatetimeFormat.
func GuessFormat(samples []string) string {
	if len(samples) == 0 {
		return schema.DefaultDatetimeFormat
	}
	for _, f := range CandidateFormats {
		layout, err := strftime.Layout(f)
		if err != nil {
			continue
		}
		n := 0
		for _, s := range samples {
			if _, err := time.Parse(layout, s); err == nil {
				n++
			}
		}
		if float64(n)/float64(len(samples)) >= formatMinCoverage {
			return f
		}
	}
	return schema.DefaultDatetimeFormat
}

// Format renders epoch nanoseconds in UTC with a strftime pattern. An empty
// pattern means schema.DefaultDatetimeFormat.
func Format(ns int64, pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		pattern = schema.DefaultDatetimeFormat
	}
	return strftime.Format(pattern, time.Unix(0, ns).UTC())
}
