// Package metrics is the process-wide metrics facade.
//
// Core code records through the package-level functions; the concrete backend
// (Datadog, or nothing) is chosen once at startup with SetBackend. The default
// backend discards everything, so tests and library callers need no setup.
package metrics

import (
	"sync"
	"time"
)

// Metric names recorded by the generator.
const (
	StepTotal           = "schemagen_step_total"
	StepDurationSeconds = "schemagen_step_duration_seconds"
	ColumnsTotal        = "schemagen_columns_total"
	FallbacksTotal      = "schemagen_fallbacks_total"

	HTTPRequestsTotal          = "schemagen_http_requests_total"
	HTTPRequestDurationSeconds = "schemagen_http_request_duration_seconds"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush asks the backend to submit buffered data.
func Flush() error { return current().Flush() }

// RecordStep counts one execution of step and records its duration, labelled
// with status "ok" or "error".
func RecordStep(step string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, time.Since(start).Seconds(), l)
}

// Column counts one classified column by dtype.
func Column(dtype string) {
	IncCounter(ColumnsTotal, 1, Labels{"dtype": dtype})
}

// Fallback counts one inference fallback (unit bounds, rejected datetime, ...).
func Fallback(kind string) {
	IncCounter(FallbacksTotal, 1, Labels{"kind": kind})
}
