// Package classify assigns one semantic dtype to a column.
//
// Decision order (first match wins):
//  1. GUID-like string column     -> categorical, flagged as identifier
//  2. native boolean column       -> ordinal with domain ["0","1"]
//  3. number-like column          -> integer or continuous
//     (optionally collapsed to a two-value ordinal, see Options.BinaryDomain)
//  4. anything else               -> categorical
//
// Classification never fails: ambiguous input falls through to categorical.
// Datetime detection is not part of this package; callers run the datetime
// detector first and only classify columns it did not accept.
package classify

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/table"
)

// NumberMinParseFrac is the share of present values of a string column that
// must parse as numbers for the column to count as number-like.
const NumberMinParseFrac = 0.95

// integerTolerance is the absolute distance to the nearest integer under
// which a value still counts as integral.
const integerTolerance = 1e-8

// Options tunes the classifier.
type Options struct {
	// GUIDMinMatchFrac is the share of present values that must look like
	// UUIDs. Zero means 0.95.
	GUIDMinMatchFrac float64
	// BinaryDomain collapses integer columns with exactly two distinct values
	// into an ordinal column.
	BinaryDomain bool
}

// Result is the classification of one column.
type Result struct {
	DType       schema.DType
	GUIDLike    bool
	BooleanLike bool
	NumberLike  bool
	// Domain is set for boolean columns and binary-collapsed columns.
	Domain []string
}

// Classify assigns a dtype to col.
func Classify(col *table.Column, opts Options) Result {
	frac := opts.GUIDMinMatchFrac
	if frac <= 0 {
		frac = 0.95
	}
	if IsGUIDLike(col, frac) {
		return Result{DType: schema.Categorical, GUIDLike: true}
	}
	if col.Kind == table.KindBool {
		return Result{DType: schema.Ordinal, BooleanLike: true, NumberLike: true, Domain: []string{"0", "1"}}
	}
	if !IsNumberLike(col) {
		return Result{DType: schema.Categorical}
	}

	values := col.Floats()
	res := Result{DType: schema.Continuous, NumberLike: true}
	if col.Kind == table.KindInt || IntegerLike(values) {
		res.DType = schema.Integer
	}
	if opts.BinaryDomain && !col.Kind.Temporal() {
		if dom, ok := BinaryIntegerDomain(values); ok {
			res.DType = schema.Ordinal
			res.Domain = dom
		}
	}
	return res
}

// IsGUIDLike reports whether at least minFrac of the present values of a
// string column are UUIDs with a valid version (1-5) and RFC 4122 variant.
// Non-string columns and columns without present values are never GUID-like.
func IsGUIDLike(col *table.Column, minFrac float64) bool {
	if col.Kind != table.KindString {
		return false
	}
	total, hits := 0, 0
	for _, v := range col.Values {
		if table.IsMissing(v) {
			continue
		}
		total++
		if LooksLikeGUID(table.Stringify(v)) {
			hits++
		}
	}
	if total == 0 {
		return false
	}
	return float64(hits)/float64(total) >= minFrac
}

// LooksLikeGUID reports whether s is a UUID in plain 32-hex, hyphenated,
// braced or urn:uuid form with version 1-5 and variant 8/9/a/b.
func LooksLikeGUID(s string) bool {
	s = strings.TrimSpace(s)
	switch len(s) {
	case 32, 36, 38, 45:
	default:
		return false
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	if v := u.Version(); v < 1 || v > 5 {
		return false
	}
	return u.Variant() == uuid.RFC4122
}

// IsNumberLike reports whether the column holds numbers natively (numeric,
// boolean or temporal kinds) or is a string column whose present values parse
// as numbers at least NumberMinParseFrac of the time.
func IsNumberLike(col *table.Column) bool {
	switch col.Kind {
	case table.KindInt, table.KindFloat, table.KindBool, table.KindDatetime, table.KindDuration:
		return true
	}
	total, ok := 0, 0
	for _, v := range col.Values {
		if table.IsMissing(v) {
			continue
		}
		total++
		if _, parsed := table.ToFloat(v); parsed {
			ok++
		}
	}
	if total == 0 {
		return false
	}
	return float64(ok)/float64(total) >= NumberMinParseFrac
}

// IntegerLike reports whether every finite value is within 1e-8 of an
// integer. It is false when there are no finite values.
func IntegerLike(values []float64) bool {
	seen := false
	for _, f := range values {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		seen = true
		if math.Abs(f-math.Round(f)) > integerTolerance {
			return false
		}
	}
	return seen
}

// BinaryIntegerDomain returns the two distinct integral values of a column as
// strings sorted numerically. ok is false unless there are exactly two
// distinct finite values and both are integral.
func BinaryIntegerDomain(values []float64) (dom []string, ok bool) {
	distinct := map[float64]struct{}{}
	for _, f := range values {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if math.Abs(f-math.Round(f)) > integerTolerance {
			return nil, false
		}
		distinct[math.Round(f)] = struct{}{}
		if len(distinct) > 2 {
			return nil, false
		}
	}
	if len(distinct) != 2 {
		return nil, false
	}
	nums := make([]float64, 0, 2)
	for f := range distinct {
		nums = append(nums, f)
	}
	sort.Float64s(nums)
	return []string{
		strconv.FormatInt(int64(nums[0]), 10),
		strconv.FormatInt(int64(nums[1]), 10),
	}, true
}
