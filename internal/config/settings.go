// Package config resolves the effective settings of a run from flags,
// environment variables and an optional config file, and validates them.
//
// Key names match the CLI flag names ("pad-frac", "infer-categories", ...).
// The environment form is SCHEMAGEN_<KEY> with dashes turned into
// underscores, e.g. SCHEMAGEN_MAX_CATEGORIES=50.
//
// Errors:
//   - Every invalid setting is reported as an Issue; LoadPrepare and
//     LoadRender convert error-severity issues into a *Error.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Defaults shared by the CLI and the HTTP surface.
const (
	DefaultMaxCategories        = 200
	DefaultDatetimeMinParseFrac = 0.95
	DefaultGUIDMinMatchFrac     = 0.95
	PreserveFormat              = "preserve"
	DefaultDelimiter            = "auto"
)

// Inference holds the knobs of the inference engine.
type Inference struct {
	PadFrac float64
	// PadFracInteger/PadFracContinuous fall back to PadFrac when nil.
	PadFracInteger    *float64
	PadFracContinuous *float64

	InferCategories   bool
	MaxCategories     int
	InferBinaryDomain bool

	InferDatetimes       bool
	DatetimeMinParseFrac float64
	// DatetimeOutputFormat is "preserve" (use the guessed format) or an
	// explicit strftime pattern.
	DatetimeOutputFormat string

	GUIDMinMatchFrac float64

	NoPublishLabelDomain bool
	TargetIsClassifier   bool
	RedactSourcePath     bool
}

// DefaultInference returns the documented defaults.
func DefaultInference() Inference {
	return Inference{
		MaxCategories:        DefaultMaxCategories,
		DatetimeMinParseFrac: DefaultDatetimeMinParseFrac,
		DatetimeOutputFormat: PreserveFormat,
		GUIDMinMatchFrac:     DefaultGUIDMinMatchFrac,
	}
}

// Targets holds the target-related flags.
type Targets struct {
	TargetCol        string
	TargetCols       []string
	TargetKind       string
	SurvivalEventCol string
	SurvivalTimeCol  string
	SpecFile         string
}

// Source selects and configures the input backend.
type Source struct {
	Kind         string
	Path         string
	DSN          string
	Query        string
	Table        string
	Delimiter    string
	Encoding     string
	HTMLSelector string
}

// Options returns the backend option bag for this source.
func (s Source) Options() Options {
	return Options{
		"delimiter":     s.Delimiter,
		"encoding":      s.Encoding,
		"html_selector": s.HTMLSelector,
		"table":         s.Table,
	}
}

// Prepare is the full configuration of a schema generation run.
type Prepare struct {
	Source          Source
	Inference       Inference
	Targets         Targets
	DatasetName     string
	Out             string
	ColumnTypesFile string
	ConstraintsFile string
}

// Render is the configuration of a datetime render run.
type Render struct {
	Data         string
	Schema       string
	Out          string
	Delimiter    string
	KeepOriginal bool
}

// NewViper returns a viper instance with the environment binding used by all
// commands.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SCHEMAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Typed keys. viper's Get* accessors turn unparseable text into zero values,
// so ValidateTypes checks them before any Load* call reads them.
var (
	floatKeys = []string{"pad-frac", "pad-frac-integer", "pad-frac-continuous", "datetime-min-parse-frac", "guid-min-match-frac"}
	intKeys   = []string{"max-categories"}
	boolKeys  = []string{
		"infer-categories", "infer-binary-domain", "infer-datetimes",
		"no-publish-label-domain", "target-is-classifier", "redact-source-path",
		"keep-original",
	}
)

// ValidateTypes reports every set typed key of v whose value does not parse
// as its type.
func ValidateTypes(v *viper.Viper) []Issue {
	var out []Issue
	check := func(keys []string, want string, conv func(any) error) {
		for _, k := range keys {
			if !v.IsSet(k) {
				continue
			}
			raw := v.Get(k)
			if err := conv(raw); err != nil {
				out = append(out, Issue{SeverityError, k, fmt.Sprintf("%q is not a valid %s", fmt.Sprint(raw), want)})
			}
		}
	}
	check(floatKeys, "number", func(x any) error { _, err := cast.ToFloat64E(x); return err })
	check(intKeys, "integer", func(x any) error { _, err := cast.ToIntE(x); return err })
	check(boolKeys, "boolean", func(x any) error { _, err := cast.ToBoolE(x); return err })
	return out
}

// LoadInference resolves the inference knobs from v. Values are not
// validated; see ValidateInference.
func LoadInference(v *viper.Viper) Inference {
	inf := DefaultInference()
	inf.PadFrac = v.GetFloat64("pad-frac")
	if v.IsSet("pad-frac-integer") {
		f := v.GetFloat64("pad-frac-integer")
		inf.PadFracInteger = &f
	}
	if v.IsSet("pad-frac-continuous") {
		f := v.GetFloat64("pad-frac-continuous")
		inf.PadFracContinuous = &f
	}
	inf.InferCategories = v.GetBool("infer-categories")
	if v.IsSet("max-categories") {
		inf.MaxCategories = v.GetInt("max-categories")
	}
	inf.InferBinaryDomain = v.GetBool("infer-binary-domain")
	inf.InferDatetimes = v.GetBool("infer-datetimes")
	if v.IsSet("datetime-min-parse-frac") {
		inf.DatetimeMinParseFrac = v.GetFloat64("datetime-min-parse-frac")
	}
	if s := strings.TrimSpace(v.GetString("datetime-output-format")); s != "" {
		inf.DatetimeOutputFormat = s
	}
	if v.IsSet("guid-min-match-frac") {
		inf.GUIDMinMatchFrac = v.GetFloat64("guid-min-match-frac")
	}
	inf.NoPublishLabelDomain = v.GetBool("no-publish-label-domain")
	inf.TargetIsClassifier = v.GetBool("target-is-classifier")
	inf.RedactSourcePath = v.GetBool("redact-source-path")
	return inf
}

// LoadTargets resolves the target flags from v.
func LoadTargets(v *viper.Viper) Targets {
	return Targets{
		TargetCol:        strings.TrimSpace(v.GetString("target-col")),
		TargetCols:       SplitList(v.GetString("target-cols")),
		TargetKind:       strings.TrimSpace(v.GetString("target-kind")),
		SurvivalEventCol: strings.TrimSpace(v.GetString("survival-event-col")),
		SurvivalTimeCol:  strings.TrimSpace(v.GetString("survival-time-col")),
		SpecFile:         v.GetString("target-spec-file"),
	}
}

// ValidateTargets reports a survival pair given by halves.
func ValidateTargets(t Targets) []Issue {
	if (t.SurvivalEventCol == "") != (t.SurvivalTimeCol == "") {
		return []Issue{{SeverityError, "survival-event-col", "--survival-event-col and --survival-time-col must be provided together"}}
	}
	return nil
}

// LoadPrepare resolves a Prepare configuration from v and validates it.
func LoadPrepare(v *viper.Viper) (Prepare, error) {
	p := Prepare{
		Source: Source{
			Kind:         strings.ToLower(strings.TrimSpace(v.GetString("source"))),
			Path:         v.GetString("data"),
			DSN:          v.GetString("dsn"),
			Query:        v.GetString("query"),
			Table:        v.GetString("table"),
			Delimiter:    v.GetString("delimiter"),
			Encoding:     v.GetString("encoding"),
			HTMLSelector: v.GetString("html-selector"),
		},
		Inference:       LoadInference(v),
		Targets:         LoadTargets(v),
		DatasetName:     v.GetString("dataset-name"),
		Out:             v.GetString("out"),
		ColumnTypesFile: v.GetString("column-types"),
		ConstraintsFile: v.GetString("constraints-file"),
	}
	if p.Source.Kind == "" {
		p.Source.Kind = "csv"
	}
	if p.Source.Delimiter == "" {
		p.Source.Delimiter = DefaultDelimiter
	}

	if err := FirstError(ValidateTypes(v)); err != nil {
		return p, err
	}
	issues := ValidateInference(p.Inference)
	issues = append(issues, validatePrepare(p)...)
	if err := FirstError(issues); err != nil {
		return p, err
	}
	return p, nil
}

// LoadRender resolves a Render configuration from v.
func LoadRender(v *viper.Viper) (Render, error) {
	r := Render{
		Data:         v.GetString("data"),
		Schema:       v.GetString("schema"),
		Out:          v.GetString("out"),
		Delimiter:    v.GetString("delimiter"),
		KeepOriginal: v.GetBool("keep-original"),
	}
	if r.Delimiter == "" {
		r.Delimiter = DefaultDelimiter
	}
	issues := ValidateTypes(v)
	for _, kv := range [][2]string{{"data", r.Data}, {"schema", r.Schema}, {"out", r.Out}} {
		if strings.TrimSpace(kv[1]) == "" {
			issues = append(issues, Issue{SeverityError, kv[0], "is required"})
		}
	}
	if err := validDelimiter(r.Delimiter); err != nil {
		issues = append(issues, *err)
	}
	return r, FirstError(issues)
}

// ValidateInference checks value ranges of the inference knobs.
func ValidateInference(in Inference) []Issue {
	var out []Issue
	neg := func(path string, f float64) {
		if f < 0 {
			out = append(out, Issue{SeverityError, path, "must be >= 0"})
		}
	}
	neg("pad-frac", in.PadFrac)
	if in.PadFracInteger != nil {
		neg("pad-frac-integer", *in.PadFracInteger)
	}
	if in.PadFracContinuous != nil {
		neg("pad-frac-continuous", *in.PadFracContinuous)
	}
	if in.MaxCategories < 0 {
		out = append(out, Issue{SeverityError, "max-categories", "must be >= 0"})
	}
	frac := func(path string, f float64) {
		if f <= 0 || f > 1 {
			out = append(out, Issue{SeverityError, path, "must be in (0, 1]"})
		}
	}
	frac("datetime-min-parse-frac", in.DatetimeMinParseFrac)
	frac("guid-min-match-frac", in.GUIDMinMatchFrac)
	if in.MaxCategories == 0 && in.InferCategories {
		out = append(out, Issue{SeverityWarning, "max-categories", "0 disables every published domain"})
	}
	return out
}

func validatePrepare(p Prepare) []Issue {
	var out []Issue
	if strings.TrimSpace(p.Out) == "" {
		out = append(out, Issue{SeverityError, "out", "is required"})
	}
	switch p.Source.Kind {
	case "csv", "html", "json":
		if strings.TrimSpace(p.Source.Path) == "" {
			out = append(out, Issue{SeverityError, "data", "is required for source " + p.Source.Kind})
		}
	case "sqlite", "postgres", "mssql":
		if p.Source.DSN == "" && p.Source.Path == "" {
			out = append(out, Issue{SeverityError, "dsn", "is required for source " + p.Source.Kind})
		}
		if p.Source.Query == "" && p.Source.Table == "" {
			out = append(out, Issue{SeverityError, "query", "either --query or --table is required for source " + p.Source.Kind})
		}
	default:
		out = append(out, Issue{SeverityError, "source", "unsupported source kind " + p.Source.Kind})
	}
	if err := validDelimiter(p.Source.Delimiter); err != nil {
		out = append(out, *err)
	}
	return append(out, ValidateTargets(p.Targets)...)
}

func validDelimiter(s string) *Issue {
	if strings.EqualFold(strings.TrimSpace(s), DefaultDelimiter) {
		return nil
	}
	if _, ok := ParseDelimiter(s); !ok {
		return &Issue{SeverityError, "delimiter", "must be 'auto' or a single character"}
	}
	return nil
}

// SplitList splits a comma-separated flag value, trimming blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
