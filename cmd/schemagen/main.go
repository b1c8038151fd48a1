// Command schemagen generates a privacy-aware schema document from a tabular
// dataset, renders encoded datetime columns back to text, and serves both over
// HTTP.
//
// Subcommands:
//
//   - prepare: infer column types, bounds, categories, datetime specs and the
//     target specification, then write the schema JSON atomically to --out.
//   - render:  format the epoch-nanosecond datetime columns of a delimited file
//     using the datetime_spec of a schema.
//   - serve:   expose /v1/schema and /v1/render over HTTP.
//
// Every flag can also come from the environment (SCHEMAGEN_PAD_FRAC=0.1) or
// from a --config file (YAML, JSON or TOML) using the flag names as keys.
//
// Exit codes: 0 on success, 2 for configuration errors (bad flags, malformed
// documents, partial survival pairs), 1 for everything else. No output file
// is written when a run fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnragavan/schema-generator/internal/api"
	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/logging"
	"github.com/vnragavan/schema-generator/internal/metrics"
	"github.com/vnragavan/schema-generator/internal/metrics/datadog"
	"github.com/vnragavan/schema-generator/internal/probe"
	"github.com/vnragavan/schema-generator/internal/render"
	"github.com/vnragavan/schema-generator/internal/source"
	_ "github.com/vnragavan/schema-generator/internal/source/all"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	log    *logrus.Logger
	stdout io.Writer
	stderr io.Writer

	closeMetrics func()
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{v: config.NewViper(), stdout: stdout, stderr: stderr, closeMetrics: func() {}}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	a.closeMetrics()
	if err == nil {
		return exitOK
	}

	if a.log != nil {
		a.log.WithError(err).Error("schemagen failed")
	} else {
		fmt.Fprintf(stderr, "schemagen: %v\n", err)
	}
	if errors.Is(err, config.ErrConfig) {
		return exitConfig
	}
	return exitFailed
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "schemagen",
		Short:         "Generate dataset schemas and render encoded datetimes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (yaml, json or toml) with flag names as keys")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")
	pf.String("metrics-backend", "none", "Metrics backend (none, datadog)")
	pf.String("metrics-tags", "", "Extra metric tags, comma separated (env:prod,team:data)")

	root.AddCommand(a.prepareCmd(), a.renderCmd(), a.serveCmd())
	return root
}

// setup binds flags, reads the config file and builds the logger and the
// metrics backend. Runs before every subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return config.Errorf("config", "read %s: %v", path, err)
		}
	}

	log, err := logging.New(logging.Config{
		Level:  a.v.GetString("log-level"),
		Format: a.v.GetString("log-format"),
		Output: a.stderr,
	})
	if err != nil {
		return config.Errorf("log-level", "%v", err)
	}
	a.log = log

	switch backend := strings.ToLower(strings.TrimSpace(a.v.GetString("metrics-backend"))); backend {
	case "", "none":
	case "datadog":
		b, err := datadog.NewBackend(cmd.Context(), datadog.Options{
			Tags: datadog.ParseTagsCSV(a.v.GetString("metrics-tags")),
		})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		a.closeMetrics = func() {
			if err := b.Close(); err != nil {
				a.log.WithError(err).Warn("flush metrics")
			}
			metrics.SetBackend(nil)
		}
	default:
		return config.Errorf("metrics-backend", "unknown backend %q (want none or datadog)", backend)
	}
	return nil
}

func (a *app) prepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Infer a schema from a dataset and write it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadPrepare(a.v)
			if err != nil {
				return err
			}
			s, err := probe.Prepare(cmd.Context(), cfg, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s (%d columns)\n", cfg.Out, len(s.ColumnTypes))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("data", "", "Input file (csv, json), file or URL (html), or SQLite database path")
	f.String("out", "", "Output schema JSON path")
	f.String("dataset-name", "", "Dataset name (defaults to the source name)")
	f.String("source", "csv", "Source kind ("+strings.Join(source.Kinds(), ", ")+")")
	f.String("dsn", "", "Database DSN for sql sources")
	f.String("query", "", "SQL query for sql sources (instead of --table)")
	f.String("table", "", "Table name for sql sources")
	f.String("html-selector", "", "CSS selector of the table for html sources")
	f.String("delimiter", config.DefaultDelimiter, "Field delimiter, or auto to sniff")
	f.String("encoding", "utf-8", "Input text encoding")

	f.String("target-col", "", "Primary target column")
	f.String("target-cols", "", "Comma separated target columns")
	f.String("target-kind", "", "Target kind (classification, regression, survival_pair, ...)")
	f.String("survival-event-col", "", "Survival event column (requires --survival-time-col)")
	f.String("survival-time-col", "", "Survival time column (requires --survival-event-col)")
	f.String("column-types", "", "Column type override document (json or yaml)")
	f.String("target-spec-file", "", "Target spec document (json or yaml)")
	f.String("constraints-file", "", "User constraints document (json or yaml)")

	f.Float64("pad-frac", 0, "Relative padding applied to numeric bounds")
	f.Float64("pad-frac-integer", 0, "Padding for integer columns (defaults to --pad-frac)")
	f.Float64("pad-frac-continuous", 0, "Padding for continuous columns (defaults to --pad-frac)")
	f.Bool("infer-categories", false, "Publish observed categories of categorical columns")
	f.Int("max-categories", config.DefaultMaxCategories, "Largest category domain that is published")
	f.Bool("infer-binary-domain", false, "Treat two-valued numeric columns as categorical")
	f.Bool("infer-datetimes", false, "Detect datetimes in text columns")
	f.Float64("datetime-min-parse-frac", config.DefaultDatetimeMinParseFrac, "Minimum parse fraction to accept a datetime column")
	f.String("datetime-output-format", config.PreserveFormat, "strftime output format, or preserve")
	f.Float64("guid-min-match-frac", config.DefaultGUIDMinMatchFrac, "Minimum match fraction to flag a GUID column")
	f.Bool("no-publish-label-domain", false, "Never publish the target label domain")
	f.Bool("redact-source-path", false, "Record a redacted source path in provenance")
	f.Bool("target-is-classifier", false, "Publish the label domain of a numeric primary target")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render encoded datetime columns of a delimited file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadRender(a.v)
			if err != nil {
				return err
			}
			rep, err := render.File(cmd.Context(), cfg, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s (%d datetime columns)\n", cfg.Out, len(rep.Columns))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("data", "", "Delimited input file")
	f.String("schema", "", "Schema JSON with datetime_spec")
	f.String("out", "", "Output file")
	f.String("delimiter", config.DefaultDelimiter, "Field delimiter, or auto to sniff")
	f.Bool("keep-original", false, "Write rendered values to <col>__rendered and keep the encoded column")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schema generation and rendering over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, a.v.GetString("addr"), config.SplitList(a.v.GetString("cors-origins")))
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "Listen address")
	f.String("cors-origins", "", "Allowed CORS origins, comma separated (default any)")
	return cmd
}

func (a *app) serve(ctx context.Context, addr string, origins []string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewHandler(a.log), origins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
