package sandbox

import (
	"time"

	"github.com/ormasoftchile/grader/pkg/config"
	"github.com/ormasoftchile/grader/pkg/figure"
	"github.com/ormasoftchile/grader/pkg/value"
)

// WorkerRequest is written to the worker's stdin as one JSON document.
type WorkerRequest struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Source     string              `json:"source"`
	Instrument bool                `json:"instrument"`
	Capture    []string            `json:"capture"`
	CaptureAll bool                `json:"capture_all"`
	TimeoutMS  int64               `json:"timeout_ms"`
	MaxSteps   uint64              `json:"max_steps"`
	Seed       int64               `json:"seed"`
	Limits     config.WorkerConfig `json:"limits"`
}

// WorkerResponse is the worker's single JSON reply on stdout.
type WorkerResponse struct {
	ID        string                `json:"id"`
	Bindings  map[string]value.Wire `json:"bindings"`
	Stdout    string                `json:"stdout"`
	Outcome   Outcome               `json:"outcome"`
	ElapsedNS int64                 `json:"elapsed_ns"`
	Figures   []figure.Snapshot     `json:"figures"`
	Counters  map[string]int64      `json:"counters,omitempty"`
	Error     string                `json:"error,omitempty"`
}

func (o Options) request(id string, u *Unit, limits config.WorkerConfig) WorkerRequest {
	return WorkerRequest{
		ID:         id,
		Name:       u.Program.Name(),
		Source:     u.Program.Source(),
		Instrument: u.Instrumented(),
		Capture:    o.Capture,
		CaptureAll: o.Capture == nil,
		TimeoutMS:  o.Timeout.Milliseconds(),
		MaxSteps:   o.MaxSteps,
		Seed:       o.Seed,
		Limits:     limits,
	}
}

func (req WorkerRequest) options() Options {
	opts := Options{
		Capture:  req.Capture,
		Timeout:  time.Duration(req.TimeoutMS) * time.Millisecond,
		MaxSteps: req.MaxSteps,
		Seed:     req.Seed,
	}
	if req.CaptureAll {
		opts.Capture = nil
	} else if opts.Capture == nil {
		opts.Capture = []string{}
	}
	return opts
}

func encodeResult(id string, res *Result) WorkerResponse {
	return WorkerResponse{
		ID:        id,
		Bindings:  value.EncodeMap(res.Bindings),
		Stdout:    res.Stdout,
		Outcome:   res.Outcome,
		ElapsedNS: res.Elapsed.Nanoseconds(),
		Figures:   res.Figures,
		Counters:  res.Counters,
	}
}

func decodeResult(resp WorkerResponse) (*Result, error) {
	bindings, err := value.DecodeMap(resp.Bindings)
	if err != nil {
		return nil, err
	}
	if bindings == nil {
		bindings = map[string]any{}
	}
	return &Result{
		Bindings: bindings,
		Stdout:   resp.Stdout,
		Outcome:  resp.Outcome,
		Elapsed:  time.Duration(resp.ElapsedNS),
		Figures:  resp.Figures,
		Counters: resp.Counters,
	}, nil
}
