// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from join jobs.
//
// It exposes a narrow interface (Backend) of counters and timings and a
// global, pluggable backend that defaults to a no-op, so instrumentation is
// always safe to call. Concrete metric systems live in subpackages
// (prompush, datadog). Core packages (codec, delimited, join) never call into
// this package; cmd/dijoin records what they report.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal           = "ditools_step_total"
	StepDurationSeconds = "ditools_step_duration_seconds"
	RowsTotal           = "ditools_rows_total"
	BatchesTotal        = "ditools_batches_total"
)

// Row kinds passed to RecordRows.
const (
	RowsRead    = "read"    // primary rows pulled by a join
	RowsSkipped = "skipped" // lines dropped for wrong field count
	RowsJoined  = "joined"  // records emitted by a join
	RowsDropped = "dropped" // primary rows without a match
	RowsWritten = "written" // records accepted by the output
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

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing
// backend. Call it before any job starts.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a job step and its duration, labelled
// with success or failure.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta to the row counter for job and kind. Non-positive
// deltas are ignored.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the batch counter for job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
