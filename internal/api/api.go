// Package api exposes schema generation and datetime rendering over HTTP.
//
// Routes:
//   - GET  /healthz
//   - POST /v1/schema  body: delimited text, or multipart with a "data" part
//     and optional "column_types", "target_spec" and "constraints" JSON parts.
//     Query parameters mirror the prepare flags with underscores
//     (target_col, infer_categories, pad_frac, ...).
//   - POST /v1/render  multipart with "schema" and "data" parts; query
//     parameters keep_original and delimiter.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/docs"
	"github.com/vnragavan/schema-generator/internal/logging"
	"github.com/vnragavan/schema-generator/internal/metrics"
	"github.com/vnragavan/schema-generator/internal/probe"
	"github.com/vnragavan/schema-generator/internal/render"
	"github.com/vnragavan/schema-generator/internal/schema"
	"github.com/vnragavan/schema-generator/internal/source/csvfile"
	"github.com/vnragavan/schema-generator/internal/target"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 100 * 1024 * 1024 // 100MB

// Handler serves the API routes.
type Handler struct {
	log logrus.FieldLogger
}

// NewHandler returns a Handler logging to log (nil discards).
func NewHandler(log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{log: log}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Post("/v1/schema", h.Schema)
	r.Post("/v1/render", h.Render)
}

// NewRouter builds the full router with middleware. An empty origins list
// allows any origin.
func NewRouter(h *Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h.RegisterRoutes(r)
	return r
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// Schema infers a schema from the uploaded table.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	v := queryViper(r)
	if err := config.FirstError(config.ValidateTypes(v)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inf := config.LoadInference(v)
	tcfg := config.LoadTargets(v)
	issues := append(config.ValidateInference(inf), config.ValidateTargets(tcfg)...)
	if err := config.FirstError(issues); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	up, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := probe.Options{
		Inference: inf,
		Targets: target.Request{
			TargetCol:        tcfg.TargetCol,
			TargetCols:       tcfg.TargetCols,
			TargetKind:       tcfg.TargetKind,
			SurvivalEventCol: tcfg.SurvivalEventCol,
			SurvivalTimeCol:  tcfg.SurvivalTimeCol,
		},
		DatasetName: v.GetString("dataset-name"),
		SourceKind:  csvfile.Kind,
		Logger:      h.log,
	}
	if err := up.applyDocuments(&opts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tbl, err := csvfile.Decode(bytes.NewReader(up.data), config.Options{
		"delimiter": v.GetString("delimiter"),
		"encoding":  v.GetString("encoding"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tbl.Name = "upload"
	tbl.Source = "upload"

	s, err := probe.Infer(tbl, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, config.ErrConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	body, err := schema.Marshal(s)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// Render formats the datetime columns of the uploaded table.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	q := queryViper(r)
	if err := config.FirstError(config.ValidateTypes(q)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	keep := q.GetBool("keep-original")

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("multipart form: %w", err))
		return
	}

	rawSchema, err := formPart(r, "schema")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s, err := schema.Decode(bytes.NewReader(rawSchema))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("schema: %w", err))
		return
	}
	data, err := formPart(r, "data")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	delim, err := csvfile.ResolveDelimiter(q.GetString("delimiter"), data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	header, rows, err := csvfile.ReadRecords(bytes.NewReader(data), delim)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, rep := render.Render(render.Frame{Header: header, Rows: rows}, s.DatetimeSpec, render.Options{KeepOriginal: keep})
	if rep.Unparseable > 0 {
		metrics.Fallback("render_unparseable")
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := csvfile.WriteRecords(w, delim, out.Header, out.Rows); err != nil {
		h.log.WithError(err).Warn("write render response")
	}
}

// queryViper exposes the query string under flag-style keys. Values stay
// text; callers run config.ValidateTypes before reading typed keys.
func queryViper(r *http.Request) *viper.Viper {
	v := viper.New()
	for k, vals := range r.URL.Query() {
		if len(vals) == 0 {
			continue
		}
		v.Set(strings.ReplaceAll(k, "_", "-"), vals[len(vals)-1])
	}
	return v
}

type upload struct {
	data        []byte
	columnTypes []byte
	targetSpec  []byte
	constraints []byte
}

func readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return &upload{data: b}, nil
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("multipart form: %w", err)
	}
	up := &upload{}
	var err error
	if up.data, err = formPart(r, "data"); err != nil {
		return nil, err
	}
	for name, dst := range map[string]*[]byte{
		"column_types": &up.columnTypes,
		"target_spec":  &up.targetSpec,
		"constraints":  &up.constraints,
	} {
		b, err := formPart(r, name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, err
		}
		*dst = b
	}
	return up, nil
}

func (u *upload) applyDocuments(opts *probe.Options) error {
	if u.columnTypes != nil {
		raw, err := docs.Decode(u.columnTypes, false)
		if err != nil {
			return config.Errorf(docs.FlagColumnTypes, "invalid JSON: %v", err)
		}
		if opts.Overrides, err = docs.ParseColumnTypes(raw); err != nil {
			return err
		}
	}
	if u.targetSpec != nil {
		raw, err := docs.Decode(u.targetSpec, false)
		if err != nil {
			return config.Errorf(docs.FlagTargetSpec, "invalid JSON: %v", err)
		}
		if opts.Targets.Document, err = docs.ParseTargetSpec(raw); err != nil {
			return err
		}
	}
	if u.constraints != nil {
		raw, err := docs.Decode(u.constraints, false)
		if err != nil {
			return config.Errorf(docs.FlagConstraints, "invalid JSON: %v", err)
		}
		c, err := docs.ParseConstraints(raw)
		if err != nil {
			return err
		}
		opts.UserConstraints = &c
	}
	return nil
}

// formPart returns a multipart file part, or a plain form value of the same
// name. A missing part yields http.ErrMissingFile.
func formPart(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if err == nil {
		defer f.Close()
		return io.ReadAll(f)
	}
	if r.MultipartForm != nil {
		if vals := r.MultipartForm.Value[name]; len(vals) > 0 {
			return []byte(vals[0]), nil
		}
	}
	if errors.Is(err, http.ErrMissingFile) {
		return nil, fmt.Errorf("part %q: %w", name, http.ErrMissingFile)
	}
	return nil, fmt.Errorf("part %q: %w", name, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// instrument records request counts and latencies per route.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		l := metrics.Labels{"route": route, "method": r.Method, "status": strconv.Itoa(status)}
		metrics.IncCounter(metrics.HTTPRequestsTotal, 1, l)
		metrics.ObserveHistogram(metrics.HTTPRequestDurationSeconds, time.Since(start).Seconds(), l)
	})
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
			}).Info("http request")
		})
	}
}
