package target

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/table"
)

func sampleTable() *table.Table {
	return &table.Table{Columns: []*table.Column{
		{Name: "age", Kind: table.KindInt, Values: []any{int64(45), int64(62)}},
		{Name: "outcome", Kind: table.KindInt, Values: []any{int64(0), int64(3)}},
		{Name: "time", Kind: table.KindFloat, Values: []any{1.5, 2.0}},
		{Name: "grade", Kind: table.KindString, Values: []any{"b", "a"}},
		{Name: "churned", Kind: table.KindBool, Values: []any{true, nil}},
	}}
}

func TestPrimaryColumn(t *testing.T) {
	t.Parallel()

	cols := []string{"x", "label", "income"}
	if got := PrimaryColumn("", cols); got != "income" {
		t.Fatalf("PrimaryColumn inferred %q, want income (candidate order)", got)
	}
	if got := PrimaryColumn(" x ", cols); got != "x" {
		t.Fatalf("explicit target should win, got %q", got)
	}
	if got := PrimaryColumn("", []string{"a"}); got != "" {
		t.Fatalf("no candidate should yield empty, got %q", got)
	}
}

// TestResolve_Precedence checks each precedence level and the kind defaults.
func TestResolve_Precedence(t *testing.T) {
	t.Parallel()

	prim := "outcome"
	tests := []struct {
		name    string
		req     Request
		targets []string
		kind    string
	}{
		{
			name:    "document_wins",
			req:     Request{Document: &Document{Targets: []string{"time"}}, SurvivalEventCol: "outcome", SurvivalTimeCol: "time"},
			targets: []string{"time"},
			kind:    schema.KindSingle,
		},
		{
			name:    "survival_over_list",
			req:     Request{SurvivalEventCol: "outcome", SurvivalTimeCol: "time", TargetCols: []string{"age"}},
			targets: []string{"outcome", "time"},
			kind:    schema.KindSurvivalPair,
		},
		{
			name:    "list_over_single",
			req:     Request{TargetCols: []string{"age", "time"}},
			targets: []string{"age", "time"},
			kind:    schema.KindMultiTarget,
		},
		{
			name:    "single_from_primary",
			req:     Request{},
			targets: []string{"outcome"},
			kind:    schema.KindSingle,
		},
		{
			name:    "explicit_kind",
			req:     Request{TargetCols: []string{"age"}, TargetKind: "regression"},
			targets: []string{"age"},
			kind:    "regression",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec, err := Resolve(tt.req, prim)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !reflect.DeepEqual(spec.Targets, tt.targets) || spec.Kind != tt.kind {
				t.Fatalf("Resolve = %v/%q, want %v/%q", spec.Targets, spec.Kind, tt.targets, tt.kind)
			}
		})
	}
}

func TestResolve_NoTargetAndErrors(t *testing.T) {
	t.Parallel()

	spec, err := Resolve(Request{}, "")
	if err != nil || spec != nil {
		t.Fatalf("no target: spec=%v err=%v, want nil, nil", spec, err)
	}

	bad := []Request{
		{SurvivalEventCol: "outcome"},
		{SurvivalTimeCol: "time"},
		{Document: &Document{}},
		{Document: &Document{Targets: []string{"a"}, Kind: schema.KindSurvivalPair}},
	}
	for _, req := range bad {
		if _, err := Resolve(req, "outcome"); !errors.Is(err, config.ErrConfig) {
			t.Errorf("Resolve(%+v) err = %v, want configuration error", req, err)
		}
	}
}

// TestNormalizeDTypes verifies the dtype source order: inferred column type,
// then a canonical document dtype, then direct inference.
func TestNormalizeDTypes(t *testing.T) {
	t.Parallel()

	tbl := sampleTable()
	spec, err := Resolve(Request{Document: &Document{
		Targets: []string{"outcome", "time", "grade", "ghost"},
		DTypes:  map[string]string{"time": "Ordinal", "grade": "datetime"},
	}}, "")
	if err != nil {
		t.Fatal(err)
	}
	NormalizeDTypes(spec, map[string]schema.DType{"outcome": schema.Ordinal}, tbl)

	want := map[string]schema.DType{
		"outcome": schema.Ordinal,
		"time":    schema.Ordinal,
		"grade":   schema.Categorical,
		"ghost":   schema.Unknown,
	}
	if !reflect.DeepEqual(spec.DTypes, want) {
		t.Fatalf("DTypes = %v, want %v", spec.DTypes, want)
	}
}

func TestInferDType(t *testing.T) {
	t.Parallel()

	tbl := sampleTable()
	cases := map[string]schema.DType{"outcome": schema.Integer, "time": schema.Continuous, "grade": schema.Categorical}
	for col, want := range cases {
		if got := InferDType(tbl.Column(col)); got != want {
			t.Errorf("InferDType(%s) = %s, want %s", col, got, want)
		}
	}
	allNaN := &table.Column{Kind: table.KindFloat, Values: []any{nil}}
	if got := InferDType(allNaN); got != schema.Continuous {
		t.Errorf("InferDType(all missing numeric) = %s, want continuous", got)
	}
}

// TestLabelDomain covers publication rules and the classifier override.
func TestLabelDomain(t *testing.T) {
	t.Parallel()

	tbl := sampleTable()
	types := map[string]schema.DType{"outcome": schema.Integer, "grade": schema.Categorical, "churned": schema.Ordinal}
	single := &schema.TargetSpec{Targets: []string{"outcome"}, Kind: schema.KindSingle}
	survival := &schema.TargetSpec{Targets: []string{"outcome", "time"}, Kind: schema.KindSurvivalPair}

	tests := []struct {
		name    string
		spec    *schema.TargetSpec
		primary string
		opts    DomainOptions
		want    []string
	}{
		{name: "integer_target", spec: single, primary: "outcome", opts: DomainOptions{MaxCategories: 10}, want: []string{}},
		{name: "classifier_override", spec: single, primary: "outcome", opts: DomainOptions{MaxCategories: 10, Classifier: true}, want: []string{"0", "3"}},
		{name: "categorical", primary: "grade", opts: DomainOptions{MaxCategories: 10}, want: []string{"a", "b"}},
		{name: "suppressed", primary: "grade", opts: DomainOptions{MaxCategories: 10, Suppress: true}, want: []string{}},
		{name: "over_cap", primary: "grade", opts: DomainOptions{MaxCategories: 1}, want: []string{}},
		{name: "survival", spec: survival, primary: "outcome", opts: DomainOptions{MaxCategories: 10, Classifier: true}, want: []string{}},
		{name: "boolean", primary: "churned", opts: DomainOptions{MaxCategories: 10}, want: []string{"0", "1"}},
		{name: "absent_column", primary: "nope", opts: DomainOptions{MaxCategories: 10}, want: []string{}},
	}
	for _, tt := range tests {
		got := LabelDomain(tt.spec, tt.primary, types, tbl, tt.opts)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: LabelDomain = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScrub(t *testing.T) {
	t.Parallel()

	cats := map[string][]string{"outcome": {"0"}, "time": {"1"}, "other": {"x"}}
	Scrub(&schema.TargetSpec{Targets: []string{"outcome", "time"}}, "outcome", cats)
	if len(cats) != 1 || cats["other"] == nil {
		t.Fatalf("Scrub left %v", cats)
	}

	cats = map[string][]string{"y": {"1"}}
	Scrub(nil, "y", cats)
	if len(cats) != 0 {
		t.Fatalf("Scrub(nil spec) left %v", cats)
	}
}
