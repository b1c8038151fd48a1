// Package datadog implements a Datadog backend for the internal/metrics package.
//
// Flushing:
//   - observations are buffered in memory under a mutex;
//   - a background loop calls Flush() on a ticker (default once per minute),
//     which matters for `schemagen serve`;
//   - Close() stops the loop and flushes one final time, which is all a
//     single `schemagen prepare` run needs.
//
// Flush snapshots and resets the buffers under the lock and submits
// out-of-lock, so recording never waits on the network.
//
// Unknown metric names are ignored: the set of series is an operational
// contract defined in buildSeries.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/vnragavan/schema-generator/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "schemagen".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod", "team:data"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of *datadogV2.MetricsApi the backend uses, so
// tests can submit to a fake instead of doing real HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	stepCounts      map[string]float64   // step\x00status -> count
	durationSamples map[string][]float64 // step\x00status -> seconds
	columnCounts    map[string]float64   // dtype -> count
	fallbackCounts  map[string]float64   // kind -> count

	httpReqCounts map[string]float64   // status -> count
	httpReqDur    map[string][]float64 // status -> seconds
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush().
// Close must be called once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// NewBackend constructs a Datadog backend using the official client. API keys
// and the site come from the standard DD_API_KEY / DD_SITE environment
// variables read by the client.
//
// Edge cases:
//   - If opts.FlushEvery <= 0, defaults to 60s.
//   - If opts.JobName is empty, defaults to "schemagen".
//   - Environment tag selection uses ENV then DD_ENV, otherwise env:unknown.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if parent == nil {
		return nil, wrapInitErr(fmt.Errorf("nil context"))
	}
	job := opts.JobName
	if job == "" {
		job = "schemagen"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
	}
	b.resetLocked()

	go b.loop()
	return b, nil
}

// resetLocked replaces every buffer with an empty one. Caller holds b.mu (or
// owns b exclusively).
func (b *Backend) resetLocked() {
	b.stepCounts = make(map[string]float64)
	b.durationSamples = make(map[string][]float64)
	b.columnCounts = make(map[string]float64)
	b.fallbackCounts = make(map[string]float64)
	b.httpReqCounts = make(map[string]float64)
	b.httpReqDur = make(map[string][]float64)
}

func labelOr(labels metrics.Labels, key, def string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return def
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.stepCounts[stepStatusKey(labels["step"], labels["status"])] += delta
	case metrics.ColumnsTotal:
		b.columnCounts[labelOr(labels, "dtype", "unknown")] += delta
	case metrics.FallbacksTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.fallbackCounts[kind] += delta
	case metrics.HTTPRequestsTotal:
		b.httpReqCounts[labelOr(labels, "status", "unknown")] += delta
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepDurationSeconds:
		k := stepStatusKey(labels["step"], labels["status"])
		b.durationSamples[k] = append(b.durationSamples[k], value)
	case metrics.HTTPRequestDurationSeconds:
		status := labelOr(labels, "status", "unknown")
		b.httpReqDur[status] = append(b.httpReqDur[status], value)
	}
}

// snapshot is the detached buffer state of one flush window.
type snapshot struct {
	stepCounts      map[string]float64
	durationSamples map[string][]float64
	columnCounts    map[string]float64
	fallbackCounts  map[string]float64
	httpReqCounts   map[string]float64
	httpReqDur      map[string][]float64
}

// snapshotAndReset grabs the buffered metrics and starts a new window.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		stepCounts:      b.stepCounts,
		durationSamples: b.durationSamples,
		columnCounts:    b.columnCounts,
		fallbackCounts:  b.fallbackCounts,
		httpReqCounts:   b.httpReqCounts,
		httpReqDur:      b.httpReqDur,
	}
	b.resetLocked()
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.stepCounts) == 0 &&
		len(s.durationSamples) == 0 &&
		len(s.columnCounts) == 0 &&
		len(s.fallbackCounts) == 0 &&
		len(s.httpReqCounts) == 0 &&
		len(s.httpReqDur) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// Buffers are reset even if submission fails; delivery is best effort.
// Returns nil without submitting when there is nothing buffered.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, network or clocks) and defines the series
// names and tags.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.stepCounts)+len(s.columnCounts)+32)

	for k, v := range s.stepCounts {
		step, status := splitStepStatusKey(k)
		series = append(series, countSeries("schemagen.step.total", v, withTags(b.baseTags, "step:"+step, "status:"+status), nowUnix))
	}
	for k, samples := range s.durationSamples {
		step, status := splitStepStatusKey(k)
		addPercentiles(&series, "schemagen.step.duration_seconds", samples, withTags(b.baseTags, "step:"+step, "status:"+status), nowUnix)
	}
	for dtype, v := range s.columnCounts {
		series = append(series, countSeries("schemagen.columns.total", v, withTags(b.baseTags, "dtype:"+dtype), nowUnix))
	}
	for kind, v := range s.fallbackCounts {
		series = append(series, countSeries("schemagen.fallbacks.total", v, withTags(b.baseTags, "kind:"+kind), nowUnix))
	}
	for status, v := range s.httpReqCounts {
		series = append(series, countSeries("schemagen.http.requests.total", v, withTags(b.baseTags, "status:"+status), nowUnix))
	}
	for status, samples := range s.httpReqDur {
		addPercentiles(&series, "schemagen.http.request_duration_seconds", samples, withTags(b.baseTags, "status:"+status), nowUnix)
	}
	return series
}

// addPercentiles appends p50/p90/p95/p99/max/samples gauges for samples. It
// sorts a copy; samples is not modified. Empty samples add nothing.
func addPercentiles(series *[]datadogV2.MetricSeries, metricPrefix string, samples []float64, tags []string, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series,
		gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
		gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix),
		gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix),
		gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix),
		gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix),
		gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix),
	)
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func stepStatusKey(step, status string) string {
	return step + "\x00" + status
}

func splitStepStatusKey(k string) (step, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,team:data".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("datadog metrics init: %w", err)
}
