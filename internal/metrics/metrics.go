// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the pipeline.
//
// A Recorder wraps one Backend and is injected into the pipeline; the default
// backend is a no-op so metrics are always safe to call. Concrete metric
// systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal    = "etl_step_total"
	StepDuration = "etl_step_duration_seconds"
	RecordsTotal = "etl_records_total"
	BatchesTotal = "etl_batches_total"
)

// Record kinds counted under RecordsTotal.
const (
	KindLoaded        = "loaded"
	KindDroppedDates  = "dropped_dates"
	KindFilled        = "filled"
	KindNegativeSales = "negative_sales"
	KindFutureDates   = "future_dates"
	KindInserted      = "inserted"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Nop is a Backend that discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

// Recorder records pipeline metrics for one job on one Backend. The zero
// value records nothing.
type Recorder struct {
	Backend Backend
	Job     string
}

// NewRecorder returns a Recorder for job. A nil backend is replaced by Nop.
func NewRecorder(job string, b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{Backend: b, Job: job}
}

func (r *Recorder) backend() Backend {
	if r == nil || r.Backend == nil {
		return Nop{}
	}
	return r.Backend
}

func (r *Recorder) job() string {
	if r == nil {
		return ""
	}
	return r.Job
}

// RecordStep measures latency and success/failure for one pipeline step.
func (r *Recorder) RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    r.job(),
		"step":   step,
		"status": status,
	}
	b := r.backend()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments the record counter for kind. Non-positive deltas are
// ignored.
func (r *Recorder) RecordRows(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	r.backend().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  r.job(),
		"kind": kind,
	})
}

// RecordBatches increments the batch counter.
func (r *Recorder) RecordBatches(delta int64) {
	if delta <= 0 {
		return
	}
	r.backend().IncCounter(BatchesTotal, float64(delta), Labels{"job": r.job()})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	return r.backend().Flush()
}
