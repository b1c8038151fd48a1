package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/docs"
	"github.com/vnragavan/schema-generator/internal/logging"
	"github.com/vnragavan/schema-generator/internal/metrics"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/source"
	"github.com/vnragavan/schema-generator/internal/target"
)

// Documents are the optional user documents of a run.
type Documents struct {
	Overrides       map[string]docs.ColumnOverride
	TargetSpec      *target.Document
	UserConstraints *schema.Constraints
}

// LoadDocuments reads every document named in cfg. Any problem is a
// configuration error.
func LoadDocuments(cfg config.Prepare) (Documents, error) {
	var d Documents
	if cfg.ColumnTypesFile != "" {
		ov, err := docs.LoadColumnTypes(cfg.ColumnTypesFile)
		if err != nil {
			return d, err
		}
		d.Overrides = ov
	}
	if cfg.Targets.SpecFile != "" {
		doc, err := docs.LoadTargetSpec(cfg.Targets.SpecFile)
		if err != nil {
			return d, err
		}
		d.TargetSpec = doc
	}
	if cfg.ConstraintsFile != "" {
		c, err := docs.LoadConstraints(cfg.ConstraintsFile)
		if err != nil {
			return d, err
		}
		d.UserConstraints = &c
	}
	return d, nil
}

// OptionsFor assembles engine options from a resolved configuration and its
// documents.
func OptionsFor(cfg config.Prepare, d Documents, log logrus.FieldLogger) Options {
	t := cfg.Targets
	return Options{
		Inference: cfg.Inference,
		Targets: target.Request{
			TargetCol:        t.TargetCol,
			TargetCols:       t.TargetCols,
			TargetKind:       t.TargetKind,
			SurvivalEventCol: t.SurvivalEventCol,
			SurvivalTimeCol:  t.SurvivalTimeCol,
			Document:         d.TargetSpec,
		},
		DatasetName:     cfg.DatasetName,
		SourceKind:      cfg.Source.Kind,
		Overrides:       d.Overrides,
		OverridesFile:   cfg.ColumnTypesFile,
		UserConstraints: d.UserConstraints,
		ConstraintsFile: cfg.ConstraintsFile,
		TargetSpecFile:  t.SpecFile,
		Logger:          log,
	}
}

// Prepare runs a full schema generation: documents, source, inference and
// the atomic write to cfg.Out. Nothing is written when any step fails.
func Prepare(ctx context.Context, cfg config.Prepare, log logrus.FieldLogger) (*schema.Schema, error) {
	if log == nil {
		log = logging.Discard()
	}

	d, err := LoadDocuments(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tbl, err := source.Open(ctx, source.Config{
		Kind:    cfg.Source.Kind,
		Path:    cfg.Source.Path,
		DSN:     cfg.Source.DSN,
		Query:   cfg.Source.Query,
		Table:   cfg.Source.Table,
		Options: cfg.Source.Options(),
	})
	metrics.RecordStep("load", start, err)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"source":  cfg.Source.Kind,
		"rows":    tbl.Rows(),
		"columns": len(tbl.Columns),
	}).Info("loaded dataset")

	s, err := Infer(tbl, OptionsFor(cfg, d, log))
	if err != nil {
		return nil, err
	}

	start = time.Now()
	err = schema.Write(cfg.Out, s)
	metrics.RecordStep("write", start, err)
	if err != nil {
		return nil, fmt.Errorf("write schema: %w", err)
	}
	log.WithField("out", cfg.Out).Info("wrote schema")
	return s, nil
}
