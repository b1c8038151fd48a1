// Package probe infers a dataset schema from a loaded table.
//
// The probe is responsible for:
//   - Classifying every column (GUID, boolean, datetime, numeric, categorical)
//   - Computing public bounds, category domains and datetime specs
//   - Resolving target columns and the published label domain
//   - Assembling and merging constraints
//   - Stamping provenance
//
// Design constraints:
//   - Inference is best-effort: uncertain columns fall back (categorical,
//     unit bounds, rejected datetime) and never fail the run.
//   - Only configuration problems are errors, and they surface before any
//     output is written.
//   - Column decisions are sequential and deterministic for a given input.
package probe

import (
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnragavan/schema-generator/internal/bounds"
	"github.com/vnragavan/schema-generator/internal/classify"
	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/constraints"
	"github.com/vnragavan/schema-generator/internal/datetime"
	"github.com/vnragavan/schema-generator/internal/docs"
	"github.com/vnragavan/schema-generator/internal/logging"
	"github.com/vnragavan/schema-generator/internal/metrics"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/table"
	"github.com/vnragavan/schema-generator/internal/target"
)

// Generator is stamped into provenance.
const Generator = "schemagen/" + schema.Version

// Options control one inference run.
//
// NOTE: every field is optional; the zero value plus DefaultInference gives
// the documented CLI defaults.
type Options struct {
	Inference config.Inference
	Targets   target.Request

	// DatasetName overrides the table name.
	DatasetName string
	// SourceKind is recorded in provenance ("csv", "postgres", ...).
	SourceKind string

	// Overrides maps column names to forced dtypes (and optional domains).
	Overrides     map[string]docs.ColumnOverride
	OverridesFile string

	// UserConstraints are merged over the generated constraints.
	UserConstraints *schema.Constraints
	ConstraintsFile string

	// TargetSpecFile is recorded in provenance when Targets.Document came
	// from a file.
	TargetSpecFile string

	// Logger receives per-column decisions at debug level. Nil discards.
	Logger logrus.FieldLogger
	// Now is the clock used for provenance. Nil means time.Now.
	Now func() time.Time
}

type engine struct {
	opts  Options
	log   logrus.FieldLogger
	pads  bounds.PadFractions
	out   *schema.Schema
	guids []string

	// guidSet mirrors guids for lookups.
	guidSet map[string]struct{}
}

// Infer builds the schema of tbl. The only errors are configuration errors
// (wrapping config.ErrConfig) from target resolution.
func Infer(tbl *table.Table, opts Options) (*schema.Schema, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	inf := opts.Inference

	dataset := strings.TrimSpace(opts.DatasetName)
	if dataset == "" {
		dataset = tbl.Name
	}
	if dataset == "" {
		dataset = "dataset"
	}

	e := &engine{
		opts: opts,
		log:  log,
		pads: bounds.PadFractions{
			Global:     inf.PadFrac,
			Integer:    inf.PadFracInteger,
			Continuous: inf.PadFracContinuous,
		},
		out:     schema.New(dataset),
		guids:   []string{},
		guidSet: map[string]struct{}{},
	}

	start := time.Now()
	for _, col := range tbl.Columns {
		e.column(col)
	}
	for col := range opts.Overrides {
		if !tbl.Has(col) {
			log.WithField("column", col).Warn("column-types entry names a column not in the data; ignored")
		}
	}
	metrics.RecordStep("classify", start, nil)

	start = time.Now()
	spec, err := e.targets(tbl)
	metrics.RecordStep("targets", start, err)
	if err != nil {
		return nil, err
	}

	e.withholdGUIDs()

	start = time.Now()
	e.constraints(spec)
	metrics.RecordStep("constraints", start, nil)

	e.provenance(tbl)
	return e.out, nil
}

// column classifies one column. Decision order: GUID, boolean, override,
// datetime, then the generic classifier.
func (e *engine) column(col *table.Column) {
	inf := e.opts.Inference
	name := col.Name
	e.out.MissingValueRates[name] = col.MissingRate()

	if classify.IsGUIDLike(col, guidFrac(inf.GUIDMinMatchFrac)) {
		e.guids = append(e.guids, name)
		e.guidSet[name] = struct{}{}
		e.set(name, schema.Categorical, "guid")
		return
	}

	if col.Kind == table.KindBool {
		if _, ok := e.opts.Overrides[name]; ok {
			e.log.WithField("column", name).Warn("column-types override ignored for boolean column")
		}
		e.out.PublicCategories[name] = []string{"0", "1"}
		e.set(name, schema.Ordinal, "boolean")
		return
	}

	var det datetime.Detection
	if col.Kind.Temporal() || (inf.InferDatetimes && col.Kind == table.KindString) {
		det = datetime.Detect(col, inf.DatetimeMinParseFrac)
		if !det.Accepted && det.Fraction > 0 {
			metrics.Fallback("datetime_rejected")
			e.log.WithFields(logrus.Fields{
				"column":   name,
				"strategy": det.Strategy,
				"fraction": det.Fraction,
			}).Debug("datetime parse below threshold")
		}
	}
	encoded := col
	if det.Accepted {
		encoded = det.Column(name)
		e.out.DatetimeSpec[name] = schema.NewDatetimeSpec(e.outputFormat(det.Format))
	}

	if ov, ok := e.opts.Overrides[name]; ok {
		e.override(name, encoded, ov)
		return
	}

	if det.Accepted {
		e.setBounds(name, det.Values, e.pads.ForInteger(), true)
		e.set(name, schema.Integer, "datetime:"+det.Strategy)
		return
	}

	res := classify.Classify(col, classify.Options{
		GUIDMinMatchFrac: inf.GUIDMinMatchFrac,
		BinaryDomain:     inf.InferBinaryDomain,
	})
	switch {
	case res.NumberLike && res.Domain != nil:
		e.out.PublicCategories[name] = res.Domain
		e.set(name, res.DType, "binary_domain")
	case res.NumberLike:
		integer := res.DType == schema.Integer
		e.setBounds(name, col.Floats(), e.pads.For(integer), integer)
		e.set(name, res.DType, "numeric")
	default:
		reason := "text"
		if inf.InferCategories {
			if dom, ok := bounds.Domain(col, inf.MaxCategories); ok {
				e.out.PublicCategories[name] = dom
			} else if len(col.NonMissing()) > 0 {
				metrics.Fallback("category_cap")
				reason = "text_over_cap"
			}
		}
		e.set(name, schema.Categorical, reason)
	}
}

func (e *engine) override(name string, col *table.Column, ov docs.ColumnOverride) {
	switch {
	case ov.Type.Discrete() && ov.Domain != nil:
		e.out.PublicCategories[name] = append([]string{}, ov.Domain...)
	case ov.Type.Numeric() && classify.IsNumberLike(col):
		integer := ov.Type == schema.Integer
		e.setBounds(name, col.Floats(), e.pads.For(integer), integer)
	}
	e.set(name, ov.Type, "override")
}

func (e *engine) set(name string, dt schema.DType, reason string) {
	e.out.ColumnTypes[name] = dt
	metrics.Column(string(dt))
	e.log.WithFields(logrus.Fields{
		"column": name,
		"dtype":  dt,
		"reason": reason,
	}).Debug("classified column")
}

func (e *engine) setBounds(name string, values []float64, pad float64, integer bool) {
	if !anyFinite(values) {
		metrics.Fallback("unit_bounds")
		e.log.WithField("column", name).Debug("no finite values; using unit bounds")
	}
	e.out.PublicBounds[name] = bounds.Bounds(values, pad, integer)
}

func (e *engine) outputFormat(guessed string) string {
	f := strings.TrimSpace(e.opts.Inference.DatetimeOutputFormat)
	if f == "" || strings.EqualFold(f, config.PreserveFormat) {
		return guessed
	}
	return f
}

// targets resolves the target spec and publishes the label domain.
func (e *engine) targets(tbl *table.Table) (*schema.TargetSpec, error) {
	inf := e.opts.Inference
	primary := target.PrimaryColumn(e.opts.Targets.TargetCol, tbl.Names())

	spec, err := target.Resolve(e.opts.Targets, primary)
	if err != nil {
		return nil, err
	}
	if spec.Survival() {
		e.forceSurvivalEvent(spec.Targets[0])
	}
	target.NormalizeDTypes(spec, e.out.ColumnTypes, tbl)

	dom := target.LabelDomain(spec, primary, e.out.ColumnTypes, tbl, target.DomainOptions{
		MaxCategories: inf.MaxCategories,
		Suppress:      inf.NoPublishLabelDomain,
		Classifier:    inf.TargetIsClassifier,
	})
	if len(dom) > 0 && e.isGUID(primary) {
		e.log.WithField("column", primary).Warn("label domain of GUID-like target withheld")
		dom = nil
	}
	if len(dom) > 0 {
		e.out.LabelDomain = dom
		e.out.PublicCategories[primary] = append([]string(nil), dom...)
	}
	if inf.NoPublishLabelDomain {
		target.Scrub(spec, primary, e.out.PublicCategories)
	}

	if primary != "" {
		e.out.TargetCol = schema.StrPtr(primary)
	}
	e.out.TargetSpec = spec
	return spec, nil
}

// forceSurvivalEvent turns the event column of a survival pair into a binary
// ordinal.
func (e *engine) forceSurvivalEvent(event string) {
	if _, ok := e.out.ColumnTypes[event]; !ok {
		e.log.WithField("column", event).Warn("survival event column not in the data")
		return
	}
	e.out.ColumnTypes[event] = schema.Ordinal
	if !e.isGUID(event) {
		e.out.PublicCategories[event] = []string{"0", "1"}
	}
	delete(e.out.PublicBounds, event)
	e.log.WithFields(logrus.Fields{
		"column": event,
		"dtype":  schema.Ordinal,
		"reason": "survival_event",
	}).Debug("classified column")
}

func (e *engine) isGUID(name string) bool {
	_, ok := e.guidSet[name]
	return ok
}

// withholdGUIDs removes every GUID-like column from public_categories,
// whatever step put it there.
func (e *engine) withholdGUIDs() {
	for _, name := range e.guids {
		delete(e.out.PublicCategories, name)
	}
}

func (e *engine) constraints(spec *schema.TargetSpec) {
	c := constraints.Build(constraints.Input{
		ColumnTypes:      e.out.ColumnTypes,
		PublicCategories: e.out.PublicCategories,
		PublicBounds:     e.out.PublicBounds,
		GUIDLikeColumns:  e.guids,
		TargetSpec:       spec,
	})
	if e.opts.UserConstraints != nil {
		c = constraints.Merge(c, *e.opts.UserConstraints)
	}
	e.out.Constraints = c
}

func (e *engine) provenance(tbl *table.Table) {
	inf := e.opts.Inference
	now := time.Now
	if e.opts.Now != nil {
		now = e.opts.Now
	}

	src := tbl.Source
	if inf.RedactSourcePath {
		src = schema.RedactedSource
	}
	delim := ""
	if tbl.Delimiter != 0 {
		delim = string(tbl.Delimiter)
	}

	e.out.Provenance = schema.Provenance{
		GeneratedAtUTC:       now().UTC().Format(time.RFC3339Nano),
		Generator:            Generator,
		SourceCSV:            src,
		SourceKind:           e.opts.SourceKind,
		SourceDelimiter:      delim,
		RowCount:             tbl.Rows(),
		ColumnCount:          len(tbl.Columns),
		PadFrac:              e.pads.Global,
		PadFracInteger:       e.pads.ForInteger(),
		PadFracContinuous:    e.pads.ForContinuous(),
		InferredCategories:   inf.InferCategories,
		MaxCategories:        inf.MaxCategories,
		InferredDatetimes:    inf.InferDatetimes,
		DatetimeMinParseFrac: inf.DatetimeMinParseFrac,
		InferredBinaryDomain: inf.InferBinaryDomain,
		GUIDMinMatchFrac:     inf.GUIDMinMatchFrac,
		GUIDLikeColumns:      e.guids,
		DatetimeOutputFormat: inf.DatetimeOutputFormat,
		NoPublishLabelDomain: inf.NoPublishLabelDomain,
		TargetIsClassifier:   inf.TargetIsClassifier,
		ColumnTypesOverrides: optPath(e.opts.OverridesFile),
		TargetSpecFile:       optPath(e.opts.TargetSpecFile),
		ConstraintsFile:      optPath(e.opts.ConstraintsFile),
	}
}

func optPath(p string) *string {
	if strings.TrimSpace(p) == "" {
		return nil
	}
	return schema.StrPtr(p)
}

func guidFrac(f float64) float64 {
	if f <= 0 {
		return config.DefaultGUIDMinMatchFrac
	}
	return f
}

func anyFinite(values []float64) bool {
	for _, f := range values {
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return true
		}
	}
	return false
}
