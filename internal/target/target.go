// Package target resolves which columns are prediction targets, what kind of
// target set they form and how the primary target's label domain is
// published.
//
// Precedence, highest first:
//  1. a target-spec document;
//  2. an explicit survival event/time pair;
//  3. an explicit multi-target list;
//  4. an explicit single target, else a target inferred from well-known names.
//
// Having no target at all is not an error. Naming only one half of a survival
// pair is.
package target

import (
	"strings"

	"github.com/vnragavan/schema-generator/internal/bounds"
	"github.com/vnragavan/schema-generator/internal/classify"
	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Candidates are the column names probed, in order, when no target is given.
var Candidates = []string{"target", "income", "label", "class", "outcome"}

// Document is a user-supplied target spec.
type Document struct {
	Targets       []string
	Kind          string
	DTypes        map[string]string
	PrimaryTarget *string
}

// Request carries the target-related inputs of a run.
type Request struct {
	TargetCol        string
	TargetCols       []string
	TargetKind       string
	SurvivalEventCol string
	SurvivalTimeCol  string
	Document         *Document
}

// PrimaryColumn returns the explicit target column, or the first Candidates
// entry present in columns, or "".
func PrimaryColumn(explicit string, columns []string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, c := range Candidates {
		if _, ok := present[c]; ok {
			return c
		}
	}
	return ""
}

// lookup is one precedence level. ok=false passes to the next level.
type lookup func(req Request, primary string) (spec *schema.TargetSpec, ok bool, err error)

var lookups = []lookup{fromDocument, fromSurvivalPair, fromTargetList, fromSingle}

// Resolve returns the target spec for req, or nil when no target is
// configured. primary is the resolved primary column (see PrimaryColumn).
//
// The returned DTypes only hold canonical dtypes taken from a document; call
// NormalizeDTypes once column types are final.
func Resolve(req Request, primary string) (*schema.TargetSpec, error) {
	for _, l := range lookups {
		spec, ok, err := l(req, primary)
		if err != nil {
			return nil, err
		}
		if ok {
			return spec, nil
		}
	}
	return nil, nil
}

func fromDocument(req Request, _ string) (*schema.TargetSpec, bool, error) {
	doc := req.Document
	if doc == nil {
		return nil, false, nil
	}
	if len(doc.Targets) == 0 {
		return nil, false, config.Errorf("target-spec-file", "targets must list at least one column")
	}
	kind := strings.TrimSpace(doc.Kind)
	if kind == "" {
		kind = defaultKind(doc.Targets)
	}
	if kind == schema.KindSurvivalPair && len(doc.Targets) != 2 {
		return nil, false, config.Errorf("target-spec-file", "survival_pair needs exactly 2 targets (event, time), got %d", len(doc.Targets))
	}

	dtypes := make(map[string]schema.DType, len(doc.DTypes))
	for col, raw := range doc.DTypes {
		if d, ok := schema.ParseDType(raw); ok {
			dtypes[col] = d
		}
	}
	return &schema.TargetSpec{
		Targets:       append([]string(nil), doc.Targets...),
		Kind:          kind,
		DTypes:        dtypes,
		PrimaryTarget: doc.PrimaryTarget,
	}, true, nil
}

func fromSurvivalPair(req Request, primary string) (*schema.TargetSpec, bool, error) {
	ev, tm := strings.TrimSpace(req.SurvivalEventCol), strings.TrimSpace(req.SurvivalTimeCol)
	switch {
	case ev == "" && tm == "":
		return nil, false, nil
	case ev == "" || tm == "":
		return nil, false, config.Errorf("survival-event-col", "--survival-event-col and --survival-time-col must be provided together")
	}
	kind := req.TargetKind
	if kind == "" {
		kind = schema.KindSurvivalPair
	}
	return newSpec([]string{ev, tm}, kind, primary), true, nil
}

func fromTargetList(req Request, primary string) (*schema.TargetSpec, bool, error) {
	if len(req.TargetCols) == 0 {
		return nil, false, nil
	}
	return newSpec(req.TargetCols, req.TargetKind, primary), true, nil
}

func fromSingle(req Request, primary string) (*schema.TargetSpec, bool, error) {
	if primary == "" {
		return nil, false, nil
	}
	return newSpec([]string{primary}, req.TargetKind, primary), true, nil
}

func newSpec(targets []string, kind, primary string) *schema.TargetSpec {
	if kind == "" {
		kind = defaultKind(targets)
	}
	return &schema.TargetSpec{
		Targets:       append([]string(nil), targets...),
		Kind:          kind,
		DTypes:        map[string]schema.DType{},
		PrimaryTarget: schema.StrPtr(primary),
	}
}

func defaultKind(targets []string) string {
	if len(targets) == 1 {
		return schema.KindSingle
	}
	return schema.KindMultiTarget
}

// NormalizeDTypes fills spec.DTypes for every target: the column's inferred
// dtype wins, then a canonical dtype already in the spec, then InferDType on
// the raw column.
func NormalizeDTypes(spec *schema.TargetSpec, columnTypes map[string]schema.DType, tbl *table.Table) {
	if spec == nil {
		return
	}
	out := make(map[string]schema.DType, len(spec.Targets))
	for _, t := range spec.Targets {
		if d, ok := schema.ParseDType(string(columnTypes[t])); ok {
			out[t] = d
			continue
		}
		if d, ok := schema.ParseDType(string(spec.DTypes[t])); ok {
			out[t] = d
			continue
		}
		out[t] = InferDType(tbl.Column(t))
	}
	spec.DTypes = out
}

// InferDType classifies a target column directly: non-numeric columns are
// categorical, numeric columns are integer when every finite value is
// integral and continuous otherwise. A missing column is unknown.
func InferDType(col *table.Column) schema.DType {
	if col == nil {
		return schema.Unknown
	}
	switch col.Kind {
	case table.KindInt, table.KindFloat, table.KindBool:
	default:
		return schema.Categorical
	}
	if classify.IntegerLike(col.Floats()) {
		return schema.Integer
	}
	return schema.Continuous
}

// DomainOptions controls label-domain publication.
type DomainOptions struct {
	MaxCategories int
	// Suppress withholds the label domain entirely.
	Suppress bool
	// Classifier enumerates the domain even for integer/continuous targets.
	Classifier bool
}

// LabelDomain returns the published label domain of the primary target, or an
// empty slice. Survival targets never publish a label domain; boolean
// targets always publish ["0", "1"].
func LabelDomain(spec *schema.TargetSpec, primary string, columnTypes map[string]schema.DType, tbl *table.Table, opts DomainOptions) []string {
	col := tbl.Column(primary)
	if primary == "" || col == nil || opts.Suppress {
		return []string{}
	}
	if spec != nil && spec.Kind == schema.KindSurvivalPair {
		return []string{}
	}
	if !columnTypes[primary].Discrete() && !opts.Classifier {
		return []string{}
	}
	if col.Kind == table.KindBool {
		return []string{"0", "1"}
	}
	dom, ok := bounds.Domain(col, opts.MaxCategories)
	if !ok {
		return []string{}
	}
	return dom
}

// Scrub removes every target of spec (or primary when spec is nil) from cats.
func Scrub(spec *schema.TargetSpec, primary string, cats map[string][]string) {
	if spec != nil {
		for _, t := range spec.Targets {
			delete(cats, t)
		}
		return
	}
	if primary != "" {
		delete(cats, primary)
	}
}
