// Package constraints derives declarative constraint records from the
// inferred schema facts and merges user-supplied rules on top of them.
//
// Rules are open key/value objects. The generated keys are:
//   - type            the column dtype
//   - allowed_values  the published domain, when one exists
//   - min, max        the published bounds, when they exist
//   - semantic_role   "identifier" for GUID-like columns
//
// A survival-pair target adds one cross-column record and tightens the event
// and time column rules.
package constraints

import (
	"sort"

	"github.com/vnragavan/schema-generator/internal/schema"
)

// SurvivalPairName is the name of the generated survival cross-column record.
const SurvivalPairName = "survival_pair_definition"

// Input is everything Build needs from the schema under construction.
type Input struct {
	ColumnTypes      map[string]schema.DType
	PublicCategories map[string][]string
	PublicBounds     map[string][]float64
	GUIDLikeColumns  []string
	TargetSpec       *schema.TargetSpec
}

// Build returns the generated constraints. It never mutates in.
func Build(in Input) schema.Constraints {
	out := schema.NewConstraints()

	guid := make(map[string]struct{}, len(in.GUIDLikeColumns))
	for _, c := range in.GUIDLikeColumns {
		guid[c] = struct{}{}
	}

	cols := make([]string, 0, len(in.ColumnTypes))
	for c := range in.ColumnTypes {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	for _, c := range cols {
		rule := schema.Rule{"type": string(in.ColumnTypes[c])}
		if dom, ok := in.PublicCategories[c]; ok {
			rule["allowed_values"] = append([]string(nil), dom...)
		}
		if b, ok := in.PublicBounds[c]; ok && len(b) == 2 {
			rule["min"] = b[0]
			rule["max"] = b[1]
		}
		if _, ok := guid[c]; ok {
			rule["semantic_role"] = "identifier"
		}
		out.ColumnConstraints[c] = rule
	}

	if in.TargetSpec.Survival() {
		ev, tm := in.TargetSpec.Targets[0], in.TargetSpec.Targets[1]
		out.CrossColumn = append(out.CrossColumn, schema.Rule{
			"name":                 SurvivalPairName,
			"type":                 schema.KindSurvivalPair,
			"event_col":            ev,
			"time_col":             tm,
			"event_allowed_values": []any{0, 1},
			"time_min_exclusive":   0,
		})
		if _, isGUID := guid[ev]; !isGUID {
			if r, ok := out.ColumnConstraints[ev]; ok {
				r["allowed_values"] = []string{"0", "1"}
			}
		}
		if r, ok := out.ColumnConstraints[tm]; ok {
			r["min_exclusive"] = 0
		}
	}
	return out
}

// Merge layers user constraints over base and returns a new value; neither
// argument is modified.
//
// Column rules are overlaid key by key (nested objects merge recursively,
// everything else is replaced). Cross-column and row-group user entries are
// appended after the generated ones.
func Merge(base, user schema.Constraints) schema.Constraints {
	out := schema.Constraints{
		ColumnConstraints: make(map[string]schema.Rule, len(base.ColumnConstraints)+len(user.ColumnConstraints)),
		CrossColumn:       make([]schema.Rule, 0, len(base.CrossColumn)+len(user.CrossColumn)),
		RowGroup:          make([]schema.Rule, 0, len(base.RowGroup)+len(user.RowGroup)),
	}
	for c, r := range base.ColumnConstraints {
		out.ColumnConstraints[c] = copyRule(r)
	}
	for c, r := range user.ColumnConstraints {
		dst, ok := out.ColumnConstraints[c]
		if !ok {
			dst = schema.Rule{}
			out.ColumnConstraints[c] = dst
		}
		overlay(dst, r)
	}
	for _, r := range base.CrossColumn {
		out.CrossColumn = append(out.CrossColumn, copyRule(r))
	}
	for _, r := range user.CrossColumn {
		out.CrossColumn = append(out.CrossColumn, copyRule(r))
	}
	for _, r := range base.RowGroup {
		out.RowGroup = append(out.RowGroup, copyRule(r))
	}
	for _, r := range user.RowGroup {
		out.RowGroup = append(out.RowGroup, copyRule(r))
	}
	return out
}

// overlay writes deep copies of src's keys into dst.
func overlay(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				overlay(dv, sv)
				continue
			}
		}
		dst[k] = deepCopy(v)
	}
}

func copyRule(r schema.Rule) schema.Rule {
	if r == nil {
		return schema.Rule{}
	}
	return deepCopy(map[string]any(r)).(map[string]any)
}

// deepCopy copies the JSON-shaped containers (maps, slices) of v. Scalars are
// returned as-is.
func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[k] = deepCopy(vv)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, vv := range x {
			s[i] = deepCopy(vv)
		}
		return s
	case []string:
		return append([]string(nil), x...)
	case []float64:
		return append([]float64(nil), x...)
	default:
		return v
	}
}
