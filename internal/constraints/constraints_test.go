package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnragavan/schema-generator/internal/schema"
)

func TestBuild_ColumnRules(t *testing.T) {
	t.Parallel()

	in := Input{
		ColumnTypes: map[string]schema.DType{
			"id":    schema.Categorical,
			"age":   schema.Integer,
			"grade": schema.Ordinal,
		},
		PublicCategories: map[string][]string{"grade": {"a", "b"}},
		PublicBounds:     map[string][]float64{"age": {18, 90}},
		GUIDLikeColumns:  []string{"id"},
	}
	got := Build(in)

	assert.Equal(t, schema.Rule{"type": "categorical", "semantic_role": "identifier"}, got.ColumnConstraints["id"])
	assert.Equal(t, schema.Rule{"type": "integer", "min": 18.0, "max": 90.0}, got.ColumnConstraints["age"])
	assert.Equal(t, schema.Rule{"type": "ordinal", "allowed_values": []string{"a", "b"}}, got.ColumnConstraints["grade"])
	assert.Empty(t, got.CrossColumn)
	assert.NotNil(t, got.RowGroup)
}

// TestBuild_SurvivalPair verifies the cross-column record and the tightened
// event/time rules.
func TestBuild_SurvivalPair(t *testing.T) {
	t.Parallel()

	got := Build(Input{
		ColumnTypes:  map[string]schema.DType{"event": schema.Ordinal, "time": schema.Integer},
		PublicBounds: map[string][]float64{"time": {1, 300}},
		TargetSpec:   &schema.TargetSpec{Targets: []string{"event", "time"}, Kind: schema.KindSurvivalPair},
	})

	require.Len(t, got.CrossColumn, 1)
	cc := got.CrossColumn[0]
	assert.Equal(t, SurvivalPairName, cc["name"])
	assert.Equal(t, "survival_pair", cc["type"])
	assert.Equal(t, "event", cc["event_col"])
	assert.Equal(t, "time", cc["time_col"])
	assert.Equal(t, []any{0, 1}, cc["event_allowed_values"])
	assert.Equal(t, 0, cc["time_min_exclusive"])

	assert.Equal(t, []string{"0", "1"}, got.ColumnConstraints["event"]["allowed_values"])
	assert.Equal(t, 0, got.ColumnConstraints["time"]["min_exclusive"])
}

// TestMerge_DoesNotMutateInputs is the core guarantee of Merge: the generated
// defaults and the user document are both left untouched.
func TestMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := schema.Constraints{
		ColumnConstraints: map[string]schema.Rule{
			"x": {"min": 0, "meta": map[string]any{"a": 1}},
		},
		CrossColumn: []schema.Rule{{"name": "base"}},
		RowGroup:    []schema.Rule{},
	}
	user := schema.Constraints{
		ColumnConstraints: map[string]schema.Rule{
			"x":   {"max": 10, "meta": map[string]any{"b": 2}},
			"new": {"constraint_class": "RegexMatch", "pattern": "^[A-Z]"},
		},
		CrossColumn: []schema.Rule{{"name": "user", "cols": []any{"x", "y"}}},
		RowGroup:    []schema.Rule{{"constraint_class": "MonotonicOrdering"}},
	}

	got := Merge(base, user)

	assert.Equal(t, schema.Rule{"min": 0, "max": 10, "meta": map[string]any{"a": 1, "b": 2}}, got.ColumnConstraints["x"])
	assert.Equal(t, "RegexMatch", got.ColumnConstraints["new"]["constraint_class"])
	require.Len(t, got.CrossColumn, 2)
	assert.Equal(t, "base", got.CrossColumn[0]["name"])
	assert.Equal(t, "user", got.CrossColumn[1]["name"])
	require.Len(t, got.RowGroup, 1)

	// Inputs unchanged.
	assert.Equal(t, schema.Rule{"min": 0, "meta": map[string]any{"a": 1}}, base.ColumnConstraints["x"])
	assert.Len(t, base.CrossColumn, 1)
	assert.Empty(t, base.RowGroup)
	assert.Equal(t, schema.Rule{"max": 10, "meta": map[string]any{"b": 2}}, user.ColumnConstraints["x"])

	// Output does not alias inputs.
	got.CrossColumn[1]["cols"].([]any)[0] = "changed"
	assert.Equal(t, "x", user.CrossColumn[0]["cols"].([]any)[0])
	got.ColumnConstraints["x"]["meta"].(map[string]any)["a"] = 99
	assert.Equal(t, 1, base.ColumnConstraints["x"]["meta"].(map[string]any)["a"])
}

func TestMerge_EmptyUser(t *testing.T) {
	t.Parallel()

	base := Build(Input{ColumnTypes: map[string]schema.DType{"a": schema.Continuous}})
	got := Merge(base, schema.Constraints{})
	assert.Equal(t, base.ColumnConstraints, got.ColumnConstraints)
	assert.NotNil(t, got.CrossColumn)
	assert.NotNil(t, got.RowGroup)
}
