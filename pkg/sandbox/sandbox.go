// Package sandbox executes programs under a restricted environment and a
// wall-clock budget and returns an immutable snapshot of the run.
package sandbox

import (
	"context"
	"sort"
	"time"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/builtins"
	"github.com/ormasoftchile/grader/pkg/builtins/numpy"
	"github.com/ormasoftchile/grader/pkg/builtins/random"
	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/figure"
	"github.com/ormasoftchile/grader/pkg/program"
)

// TickBuiltin is the predeclared counter instrumented loops call.
const TickBuiltin = "_loop_tick"

// MaxStdout bounds captured standard output.
const MaxStdout = 1 << 20

// OutcomeKind classifies how a run ended.
type OutcomeKind string

const (
	Succeeded   OutcomeKind = "succeeded"
	RaisedError OutcomeKind = "raised_error"
	TimedOut    OutcomeKind = "timed_out"
)

// Outcome is the tagged end state of a run. Detail is empty on success.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// Unit is an executable program, optionally with its loops instrumented.
type Unit struct {
	Program *program.Program
	// Loops are the loop ids an instrumented unit reports, in id order.
	Loops     []string
	transform func(*syntax.File) *syntax.File
}

// NewUnit wraps p for plain execution.
func NewUnit(p *program.Program) *Unit {
	return &Unit{Program: p}
}

// NewInstrumentedUnit wraps p so that transform is applied to every fresh
// parse before execution. loops seeds the counters.
func NewInstrumentedUnit(p *program.Program, loops []string, transform func(*syntax.File) *syntax.File) *Unit {
	return &Unit{Program: p, Loops: append([]string(nil), loops...), transform: transform}
}

// Instrumented reports whether the unit counts loop iterations.
func (u *Unit) Instrumented() bool { return u.transform != nil }

func (u *Unit) file() (*syntax.File, error) {
	f, err := u.Program.Parse()
	if err != nil {
		return nil, err
	}
	if u.transform != nil {
		f = u.transform(f)
	}
	return f, nil
}

// Options control a single run.
type Options struct {
	// Capture names the bindings to capture; nil captures all of them.
	Capture  []string
	Timeout  time.Duration
	MaxSteps uint64
	Seed     int64
}

// Result is the snapshot of one run. It is never mutated after Run returns.
type Result struct {
	Bindings map[string]any
	Stdout   string
	Outcome  Outcome
	Elapsed  time.Duration
	Figures  []figure.Snapshot
	Counters map[string]int64
}

// Succeeded reports whether the run finished without error or timeout.
func (r *Result) Succeeded() bool {
	return r.Outcome.Kind == Succeeded
}

// Binding returns a captured binding.
func (r *Result) Binding(name string) (any, bool) {
	v, ok := r.Bindings[name]
	return v, ok
}

// Runner executes units.
type Runner interface {
	Run(ctx context.Context, u *Unit, opts Options) *Result
}

// moduleSet builds the importable modules for one run, keyed by import path.
func moduleSet(plt *chart.Session, rng *random.Source) map[string]starlark.Value {
	return map[string]starlark.Value{
		"numpy":             numpy.Module(rng),
		"matplotlib.pyplot": plt.Module(),
		"math":              starlarkmath.Module,
		"random":            rng.Module(),
		"json":              starlarkjson.Module,
	}
}

// environment is the predeclared set for p: the extra builtins plus every
// default alias and every alias p imports.
func environment(p *program.Program, plt *chart.Session, rng *random.Source) starlark.StringDict {
	modules := moduleSet(plt, rng)
	env := builtins.Extra()
	for alias, module := range program.DefaultAliases {
		env[alias] = modules[module]
	}
	for alias, module := range p.Aliases() {
		env[alias] = modules[module]
	}
	return env
}

// Capabilities lists every name a program can reach without defining it.
func Capabilities() []string {
	seen := make(map[string]bool)
	for name := range starlark.Universe {
		seen[name] = true
	}
	for name := range builtins.Extra() {
		seen[name] = true
	}
	for alias := range program.DefaultAliases {
		seen[alias] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
