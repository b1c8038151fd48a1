// Package docs loads the optional user documents that steer inference:
// column-type overrides, target specs and extra constraints.
//
// Documents are JSON, or YAML when the file name ends in .yaml/.yml. Shape
// problems (wrong top-level type, non-list domain, unknown dtype) are
// configuration errors.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/target"
)

// Flag names used as the Field of configuration errors.
const (
	FlagColumnTypes = "column-types"
	FlagTargetSpec  = "target-spec-file"
	FlagConstraints = "constraints-file"
)

// ColumnOverride is one entry of a column-types document.
type ColumnOverride struct {
	Type schema.DType
	// Domain is set only when the entry carried a "domain" list.
	Domain []string
}

// LoadColumnTypes reads a column-types document.
func LoadColumnTypes(path string) (map[string]ColumnOverride, error) {
	raw, err := decodeFile(path, FlagColumnTypes)
	if err != nil {
		return nil, err
	}
	return ParseColumnTypes(raw)
}

// ParseColumnTypes validates a decoded column-types document. Each value is
// either a dtype string or an object {"type": ..., "domain": [...]}.
func ParseColumnTypes(raw any) (map[string]ColumnOverride, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, config.Errorf(FlagColumnTypes, "must be an object mapping column names to types")
	}

	out := make(map[string]ColumnOverride, len(obj))
	for _, col := range sortedKeys(obj) {
		field := fmt.Sprintf("%s[%s]", FlagColumnTypes, col)

		var typ any
		var dom any
		hasDomain := false
		switch v := obj[col].(type) {
		case string:
			typ = v
		case map[string]any:
			typ = v["type"]
			dom, hasDomain = v["domain"]
		default:
			return nil, config.Errorf(field, "must be a string or object")
		}

		s, _ := typ.(string)
		d, ok := schema.ParseDType(s)
		if !ok {
			return nil, config.Errorf(field+".type", "invalid type %v (want integer, continuous, categorical or ordinal)", typ)
		}
		ov := ColumnOverride{Type: d}
		if hasDomain && dom != nil {
			list, ok := dom.([]any)
			if !ok {
				return nil, config.Errorf(field+".domain", "must be a list")
			}
			ov.Domain = make([]string, 0, len(list))
			for _, x := range list {
				ov.Domain = append(ov.Domain, scalarString(x))
			}
		}
		out[col] = ov
	}
	return out, nil
}

// LoadTargetSpec reads a target-spec document.
func LoadTargetSpec(path string) (*target.Document, error) {
	raw, err := decodeFile(path, FlagTargetSpec)
	if err != nil {
		return nil, err
	}
	return ParseTargetSpec(raw)
}

// ParseTargetSpec validates a decoded target-spec document.
func ParseTargetSpec(raw any) (*target.Document, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, config.Errorf(FlagTargetSpec, "must contain an object")
	}

	doc := &target.Document{DTypes: map[string]string{}}
	if v, ok := obj["targets"]; ok && v != nil {
		list, ok := v.([]any)
		if !ok {
			return nil, config.Errorf(FlagTargetSpec+".targets", "must be a list of column names")
		}
		for _, x := range list {
			doc.Targets = append(doc.Targets, scalarString(x))
		}
	}
	if v, ok := obj["kind"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, config.Errorf(FlagTargetSpec+".kind", "must be a string")
		}
		doc.Kind = s
	}
	if v, ok := obj["dtypes"].(map[string]any); ok {
		for col, d := range v {
			if s, ok := d.(string); ok {
				doc.DTypes[col] = s
			}
		}
	}
	if v, ok := obj["primary_target"].(string); ok && v != "" {
		doc.PrimaryTarget = &v
	}
	return doc, nil
}

// LoadConstraints reads a constraints document.
func LoadConstraints(path string) (schema.Constraints, error) {
	raw, err := decodeFile(path, FlagConstraints)
	if err != nil {
		return schema.Constraints{}, err
	}
	return ParseConstraints(raw)
}

// ParseConstraints validates a decoded constraints document. Every section is
// optional; present sections must have the right shape and every rule must be
// an object.
func ParseConstraints(raw any) (schema.Constraints, error) {
	out := schema.NewConstraints()
	obj, ok := raw.(map[string]any)
	if !ok {
		return out, config.Errorf(FlagConstraints, "must contain an object")
	}

	if v, ok := obj["column_constraints"]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return out, config.Errorf(FlagConstraints+".column_constraints", "must be an object")
		}
		for col, r := range m {
			rule, ok := r.(map[string]any)
			if !ok {
				return out, config.Errorf(fmt.Sprintf("%s.column_constraints[%s]", FlagConstraints, col), "must be an object")
			}
			out.ColumnConstraints[col] = rule
		}
	}
	for _, sec := range []struct {
		key string
		dst *[]schema.Rule
	}{
		{"cross_column_constraints", &out.CrossColumn},
		{"row_group_constraints", &out.RowGroup},
	} {
		v, ok := obj[sec.key]
		if !ok || v == nil {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			return out, config.Errorf(FlagConstraints+"."+sec.key, "must be a list")
		}
		for i, r := range list {
			rule, ok := r.(map[string]any)
			if !ok {
				return out, config.Errorf(fmt.Sprintf("%s.%s[%d]", FlagConstraints, sec.key, i), "must be an object")
			}
			*sec.dst = append(*sec.dst, rule)
		}
	}
	return out, nil
}

// Decode parses a JSON or YAML document into generic values. YAML is used
// when yamlDoc is true.
func Decode(data []byte, yamlDoc bool) (any, error) {
	var v any
	if yamlDoc {
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return normalizeYAML(v), nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeFile(path, flag string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, config.Errorf(flag, "read %s: %v", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	v, err := Decode(data, ext == ".yaml" || ext == ".yml")
	if err != nil {
		return nil, config.Errorf(flag, "parse %s: %v", path, err)
	}
	return v, nil
}

// normalizeYAML converts map[any]any (non-string keys) into map[string]any so
// YAML and JSON documents look the same to the parsers above.
func normalizeYAML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, vv := range x {
			x[k] = normalizeYAML(vv)
		}
		return x
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return m
	case []any:
		for i, vv := range x {
			x[i] = normalizeYAML(vv)
		}
		return x
	default:
		return v
	}
}

// scalarString renders a document scalar the way it was written: 1 stays
// "1", 1.5 stays "1.5".
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
