// Package grader is the verification engine: it executes a candidate
// program once, then runs checks against the captured state and keeps an
// ordered log of their outcomes.
package grader

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/analyzer"
	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/config"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/metrics"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/results"
	"github.com/ormasoftchile/grader/pkg/sandbox"
	"github.com/ormasoftchile/grader/pkg/solution"
	"github.com/ormasoftchile/grader/pkg/trace"
)

// Option configures an Engine.
type Option func(*Engine)

// WithCandidate loads the candidate from path. An unreadable file is
// recorded as a failed test rather than returned.
func WithCandidate(path string) Option {
	return func(e *Engine) { e.candidatePath = path }
}

// WithSource uses in-memory text as the candidate.
func WithSource(name, src string) Option {
	return func(e *Engine) { e.prog = program.FromSource(name, src) }
}

// WithTimeout sets the execution budget of every sandbox run.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithRunner replaces the in-process runner.
func WithRunner(r sandbox.Runner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTrace emits execution and check events to tw.
func WithTrace(tw *trace.Writer) Option {
	return func(e *Engine) { e.trace = tw }
}

// WithMetrics counts checks and executions on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithSeed seeds the random module of every run.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithMaxSteps bounds the interpreter steps of every run. 0 is unlimited.
func WithMaxSteps(n uint64) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithBaseDir resolves relative solution paths against dir.
func WithBaseDir(dir string) Option {
	return func(e *Engine) { e.baseDir = dir }
}

// WithOutput echoes every record line to w as it is appended.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) { e.out = w }
}

// Engine runs checks against one candidate. Check methods are safe for
// concurrent use; they are serialized internally.
type Engine struct {
	mu sync.Mutex

	candidatePath string
	prog          *program.Program
	analyzer      *analyzer.Analyzer

	runner   sandbox.Runner
	exec     sandbox.Runner
	differ   *solution.Differ
	timeout  time.Duration
	seed     int64
	maxSteps uint64
	baseDir  string

	logger  *zap.Logger
	trace   *trace.Writer
	metrics *metrics.Recorder
	out     io.Writer

	log      results.Log
	result   *sandbox.Result
	captured map[string]bool // nil means every binding
	executed bool
	loops    map[string]int64
	err      error
	started  time.Time
}

// New builds an engine. Without WithCandidate or WithSource the engine has
// no code: execution and structural checks record failures.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{timeout: config.DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout <= 0 {
		return nil, errors.Newf(errors.InvalidParam, "timeout must be positive, got %s", e.timeout)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.runner == nil {
		e.runner = sandbox.NewInProcess(chart.NewBackend(), e.logger)
	}
	e.exec = e.observe("candidate", e.runner)
	e.differ = solution.New(e.observe("solution", e.runner), e.sandboxOptions(nil), e.logger)

	if e.candidatePath != "" && e.prog == nil {
		p, err := program.Load(e.candidatePath)
		if err != nil {
			e.logger.Warn("candidate not loaded", zap.String("path", e.candidatePath), zap.Error(err))
			e.record(newCheck("load", nil), false, err.Error(), nil, nil)
		} else {
			e.prog = p
		}
	}
	if e.prog != nil {
		e.analyzer = analyzer.New(context.Background(), e.prog)
		if perr := e.analyzer.ParseError(); perr != nil {
			e.logger.Debug("candidate does not parse as starlark",
				zap.String("program", e.prog.Identity()),
				zap.Bool("fallback", e.analyzer.Model() != nil),
				zap.Error(perr),
			)
		}
	}
	return e, nil
}

// Program is the loaded candidate, nil when none was loaded.
func (e *Engine) Program() *program.Program { return e.prog }

// Analyzer is the candidate's static analyzer, nil without a candidate.
func (e *Engine) Analyzer() *analyzer.Analyzer { return e.analyzer }

// Result is the snapshot of the last ExecuteScript, nil before it ran.
func (e *Engine) Result() *sandbox.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Err reports the last engine-usage error, such as a value check made
// before ExecuteScript.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Records returns a copy of the record log.
func (e *Engine) Records() []results.TestRecord { return e.log.Records() }

// Summary recomputes the totals over every record appended so far.
func (e *Engine) Summary() results.Summary { return e.log.Summary() }

// PrintSummary writes the fixed summary block.
func (e *Engine) PrintSummary(w io.Writer) error {
	return e.Summary().Print(w)
}

// BeginRun emits the run_start trace event for label.
func (e *Engine) BeginRun(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = time.Now()
	if e.trace == nil {
		return
	}
	var name, hash string
	if e.prog != nil {
		name, hash = e.prog.Name(), e.prog.Hash()
	}
	if err := e.trace.EmitRunStart(label, name, hash); err != nil {
		e.logger.Warn("trace write failed", zap.Error(err))
	}
}

// EndRun emits the summary and run_complete trace events and returns the
// summary.
func (e *Engine) EndRun(status string) results.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.log.Summary()
	if e.trace == nil {
		return s
	}
	if err := e.trace.EmitSummary(s.Total, s.Passed, s.Failed, s.Score); err != nil {
		e.logger.Warn("trace write failed", zap.Error(err))
	}
	var elapsed time.Duration
	if !e.started.IsZero() {
		elapsed = time.Since(e.started)
	}
	if err := e.trace.EmitRunComplete(status, elapsed); err != nil {
		e.logger.Warn("trace write failed", zap.Error(err))
	}
	return s
}

func (e *Engine) sandboxOptions(capture []string) sandbox.Options {
	return sandbox.Options{
		Capture:  capture,
		Timeout:  e.timeout,
		MaxSteps: e.maxSteps,
		Seed:     e.seed,
	}
}

// solutionPath resolves a solution file against the base directory.
func (e *Engine) solutionPath(path string) string {
	if e.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.baseDir, path)
}

// loadSolution reads a solution program, recording msg on failure.
func (e *Engine) loadSolution(c *check, path, msg string) (*program.Program, bool) {
	p, err := program.Load(e.solutionPath(path))
	if err != nil {
		e.logger.Debug("solution not loaded", zap.String("path", path), zap.Error(err))
		e.record(c, false, msg, nil, nil)
		return nil, false
	}
	return p, true
}
