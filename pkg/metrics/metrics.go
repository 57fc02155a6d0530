// Package metrics counts grading activity on a private prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grader"

// Recorder holds the collectors for one process. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	checks     *prometheus.CounterVec
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		// Labels: kind (check kind), result (pass, fail)
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checks",
			Name:      "total",
			Help:      "Test records appended, by check kind and result",
		}, []string{"kind", "result"}),
		// Labels: role (candidate, solution), outcome (succeeded, raised_error, timed_out)
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "executions_total",
			Help:      "Sandbox runs by role and outcome",
		}, []string{"role", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock time of sandbox runs",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"role"}),
	}
	r.registry.MustRegister(r.checks, r.executions, r.duration)
	return r
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Check counts one test record.
func (r *Recorder) Check(kind string, passed bool) {
	if r == nil {
		return
	}
	result := "fail"
	if passed {
		result = "pass"
	}
	r.checks.WithLabelValues(kind, result).Inc()
}

// Execution counts one sandbox run and observes its duration.
func (r *Recorder) Execution(role, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.executions.WithLabelValues(role, outcome).Inc()
	r.duration.WithLabelValues(role).Observe(elapsed.Seconds())
}

// WriteFile dumps the registry in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
