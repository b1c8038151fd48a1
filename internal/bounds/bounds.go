// Package bounds computes the public numeric bounds and category domains of
// columns.
package bounds

import (
	"math"
	"sort"

	"github.com/vnragavan/schema-generator/internal/table"
)

// Unit is returned when a column has no finite values.
var Unit = []float64{0, 1}

// Bounds returns [min, max] over the finite values, widened by pad.
//
// With a positive spread the padding is pad*(max-min). A constant column is
// widened by max(|min|*pad, 1) when pad > 0 and not at all otherwise. For
// integer-like columns the result is floored/ceiled after padding.
func Bounds(values []float64, pad float64, integerLike bool) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range values {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	if math.IsInf(lo, 1) {
		return []float64{Unit[0], Unit[1]}
	}

	var p float64
	switch span := hi - lo; {
	case span > 0:
		p = pad * span
	case pad > 0:
		p = math.Max(math.Abs(lo)*pad, 1)
	}
	lo, hi = lo-p, hi+p

	if integerLike {
		lo, hi = math.Floor(lo), math.Ceil(hi)
	}
	return []float64{lo, hi}
}

// PadFractions resolves per-dtype padding. Integer and Continuous fall back
// to Global when nil.
type PadFractions struct {
	Global     float64
	Integer    *float64
	Continuous *float64
}

// ForInteger returns the padding used for integer (and datetime) columns.
func (p PadFractions) ForInteger() float64 {
	if p.Integer != nil {
		return *p.Integer
	}
	return p.Global
}

// ForContinuous returns the padding used for continuous columns.
func (p PadFractions) ForContinuous() float64 {
	if p.Continuous != nil {
		return *p.Continuous
	}
	return p.Global
}

// For picks the integer or continuous fraction.
func (p PadFractions) For(integerLike bool) float64 {
	if integerLike {
		return p.ForInteger()
	}
	return p.ForContinuous()
}

// Domain returns the sorted distinct stringified present values of col.
// ok is false when there are no present values or more than maxCard
// distinct values.
func Domain(col *table.Column, maxCard int) (dom []string, ok bool) {
	seen := make(map[string]struct{})
	for _, v := range col.Values {
		if table.IsMissing(v) {
			continue
		}
		s := table.Stringify(v)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if len(seen) > maxCard {
			return nil, false
		}
	}
	if len(seen) == 0 {
		return nil, false
	}
	dom = make([]string, 0, len(seen))
	for s := range seen {
		dom = append(dom, s)
	}
	sort.Strings(dom)
	return dom, true
}
