// Package schema defines the declarative schema document produced by the
// generator and the atomic writer that persists it.
//
// The document key set is stable: features that did not fire are written as
// empty objects/arrays or null, never omitted, so downstream readers can index
// keys without existence checks.
package schema

import "strings"

// Version is written into every document as schema_version.
const Version = "1.3.0"

// RedactedSource replaces the source path in provenance when redaction is on.
const RedactedSource = "example_data_path_to_csv_file"

// DefaultDatetimeFormat is the strftime pattern used when no better display
// format could be guessed.
const DefaultDatetimeFormat = "%Y-%m-%dT%H:%M:%S"

// DType is the inferred semantic type of a column.
type DType string

const (
	Integer     DType = "integer"
	Continuous  DType = "continuous"
	Categorical DType = "categorical"
	Ordinal     DType = "ordinal"
	Unknown     DType = "unknown"
)

// ParseDType normalizes s and reports whether it names one of the four
// canonical dtypes. "unknown" is not accepted here.
func ParseDType(s string) (DType, bool) {
	d := DType(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Integer, Continuous, Categorical, Ordinal:
		return d, true
	default:
		return "", false
	}
}

// Numeric reports whether columns of this dtype carry bounds.
func (d DType) Numeric() bool { return d == Integer || d == Continuous }

// Discrete reports whether columns of this dtype carry a category domain.
func (d DType) Discrete() bool { return d == Categorical || d == Ordinal }

// DatetimeSpec records how a datetime column was encoded.
type DatetimeSpec struct {
	Storage      string `json:"storage" yaml:"storage"`
	OutputFormat string `json:"output_format" yaml:"output_format"`
	Timezone     string `json:"timezone" yaml:"timezone"`
}

// NewDatetimeSpec returns the epoch-ns/UTC spec for the given display format.
func NewDatetimeSpec(format string) DatetimeSpec {
	if strings.TrimSpace(format) == "" {
		format = DefaultDatetimeFormat
	}
	return DatetimeSpec{Storage: "epoch_ns", OutputFormat: format, Timezone: "UTC"}
}

// Target kinds assigned by the resolver. User documents may carry others.
const (
	KindSingle       = "single"
	KindMultiTarget  = "multi_target"
	KindSurvivalPair = "survival_pair"
)

// TargetSpec describes the prediction targets of the dataset.
type TargetSpec struct {
	Targets       []string         `json:"targets"`
	Kind          string           `json:"kind"`
	DTypes        map[string]DType `json:"dtypes"`
	PrimaryTarget *string          `json:"primary_target,omitempty"`
}

// Survival reports whether the spec is a well-formed survival pair.
func (s *TargetSpec) Survival() bool {
	return s != nil && s.Kind == KindSurvivalPair && len(s.Targets) == 2
}

// Rule is an open-ended constraint record.
type Rule = map[string]any

// Constraints groups per-column, cross-column and row-group rules.
type Constraints struct {
	ColumnConstraints map[string]Rule `json:"column_constraints"`
	CrossColumn       []Rule          `json:"cross_column_constraints"`
	RowGroup          []Rule          `json:"row_group_constraints"`
}

// NewConstraints returns an empty, fully initialized Constraints value.
func NewConstraints() Constraints {
	return Constraints{
		ColumnConstraints: map[string]Rule{},
		CrossColumn:       []Rule{},
		RowGroup:          []Rule{},
	}
}

// Provenance records where the schema came from and every effective
// inference setting.
type Provenance struct {
	GeneratedAtUTC       string   `json:"generated_at_utc"`
	Generator            string   `json:"generator"`
	SourceCSV            string   `json:"source_csv"`
	SourceKind           string   `json:"source_kind"`
	SourceDelimiter      string   `json:"source_delimiter"`
	RowCount             int      `json:"row_count"`
	ColumnCount          int      `json:"column_count"`
	PadFrac              float64  `json:"pad_frac"`
	PadFracInteger       float64  `json:"pad_frac_integer"`
	PadFracContinuous    float64  `json:"pad_frac_continuous"`
	InferredCategories   bool     `json:"inferred_categories"`
	MaxCategories        int      `json:"max_categories"`
	InferredDatetimes    bool     `json:"inferred_datetimes"`
	DatetimeMinParseFrac float64  `json:"datetime_min_parse_frac"`
	InferredBinaryDomain bool     `json:"inferred_binary_domain"`
	GUIDMinMatchFrac     float64  `json:"guid_min_match_frac"`
	GUIDLikeColumns      []string `json:"guid_like_columns"`
	DatetimeOutputFormat string   `json:"datetime_output_format"`
	NoPublishLabelDomain bool     `json:"no_publish_label_domain"`
	TargetIsClassifier   bool     `json:"target_is_classifier"`
	ColumnTypesOverrides *string  `json:"column_types_overrides"`
	TargetSpecFile       *string  `json:"target_spec_file"`
	ConstraintsFile      *string  `json:"constraints_file"`
}

// Schema is the full generated document.
type Schema struct {
	SchemaVersion     string                  `json:"schema_version"`
	Dataset           string                  `json:"dataset"`
	TargetCol         *string                 `json:"target_col"`
	LabelDomain       []string                `json:"label_domain"`
	MissingValueRates map[string]float64      `json:"missing_value_rates"`
	PublicBounds      map[string][]float64    `json:"public_bounds"`
	PublicCategories  map[string][]string     `json:"public_categories"`
	ColumnTypes       map[string]DType        `json:"column_types"`
	DatetimeSpec      map[string]DatetimeSpec `json:"datetime_spec"`
	Provenance        Provenance              `json:"provenance"`
	TargetSpec        *TargetSpec             `json:"target_spec"`
	Constraints       Constraints             `json:"constraints"`
}

// New returns a schema with every collection initialized so the encoded key
// set is stable.
func New(dataset string) *Schema {
	return &Schema{
		SchemaVersion:     Version,
		Dataset:           dataset,
		LabelDomain:       []string{},
		MissingValueRates: map[string]float64{},
		PublicBounds:      map[string][]float64{},
		PublicCategories:  map[string][]string{},
		ColumnTypes:       map[string]DType{},
		DatetimeSpec:      map[string]DatetimeSpec{},
		Provenance:        Provenance{GUIDLikeColumns: []string{}},
		Constraints:       NewConstraints(),
	}
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
