package sandbox

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.starlark.net/starlark"
	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/builtins/random"
	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/value"
)

// InProcess runs units on a goroutine of the calling process. Cancellation
// of a runaway program is cooperative: after the budget elapses the thread
// is cancelled and the result is returned without waiting for it.
type InProcess struct {
	backend *chart.Backend
	logger  *zap.Logger
}

// NewInProcess returns a runner that draws figure sessions from backend.
func NewInProcess(backend *chart.Backend, logger *zap.Logger) *InProcess {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InProcess{backend: backend, logger: logger}
}

type completion struct {
	globals starlark.StringDict
	err     error
}

// Run executes u once. It never returns nil and never panics on program
// failure.
func (r *InProcess) Run(ctx context.Context, u *Unit, opts Options) *Result {
	start := time.Now()
	session := r.backend.Acquire()
	rng := random.New(opts.Seed)
	ticks := newCounters(u.Loops)
	stdout := newBoundedBuffer(MaxStdout)

	thread := &starlark.Thread{
		Name:  u.Program.Name(),
		Print: func(_ *starlark.Thread, msg string) { stdout.WriteString(msg + "\n") },
	}
	if opts.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(opts.MaxSteps)
	}
	env := environment(u.Program, session, rng)
	if u.Instrumented() {
		env[TickBuiltin] = ticks.builtin()
	}

	done := make(chan completion, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- completion{err: fmt.Errorf("internal error: %v", p)}
			}
		}()
		f, err := u.file()
		if err != nil {
			done <- completion{err: err}
			return
		}
		prog, err := starlark.FileProgram(f, env.Has)
		if err != nil {
			done <- completion{err: err}
			return
		}
		globals, err := prog.Init(thread, env)
		done <- completion{globals: globals, err: err}
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	res := &Result{}
	select {
	case c := <-done:
		res.Outcome = Outcome{Kind: Succeeded}
		if c.err != nil {
			res.Outcome = Outcome{Kind: RaisedError, Detail: describe(c.err)}
		}
		res.Bindings = value.Capture(c.globals, opts.Capture)
	case <-timeout:
		thread.Cancel("timeout")
		res.Outcome = Outcome{Kind: TimedOut, Detail: fmt.Sprintf("Execution timed out after %s", opts.Timeout)}
		res.Bindings = map[string]any{}
	case <-ctx.Done():
		thread.Cancel(ctx.Err().Error())
		res.Outcome = Outcome{Kind: RaisedError, Detail: "Cancelled: " + ctx.Err().Error()}
		res.Bindings = map[string]any{}
	}
	res.Figures = session.Release()
	res.Stdout = stdout.String()
	res.Counters = ticks.snapshot()
	res.Elapsed = time.Since(start)

	r.logger.Debug("execution finished",
		zap.String("program", u.Program.Identity()),
		zap.String("outcome", string(res.Outcome.Kind)),
		zap.Duration("elapsed", res.Elapsed),
		zap.Int("bindings", len(res.Bindings)),
		zap.Int("figures", len(res.Figures)),
	)
	return res
}

// Call invokes a captured function on a fresh thread under the same budget
// rules as Run. Chart calls made by the function are not recorded.
func Call(ctx context.Context, fn value.Function, args []any, kwargs map[string]any, opts Options) (any, Outcome) {
	if fn.Callable == nil {
		return nil, Outcome{Kind: RaisedError, Detail: fmt.Sprintf("TypeError: function %s is not callable in this process", fn.Name)}
	}
	sargs := make(starlark.Tuple, len(args))
	for i, a := range args {
		v, err := value.ToStarlark(a)
		if err != nil {
			return nil, Outcome{Kind: RaisedError, Detail: "TypeError: " + err.Error()}
		}
		sargs[i] = v
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	skwargs := make([]starlark.Tuple, 0, len(keys))
	for _, k := range keys {
		v, err := value.ToStarlark(kwargs[k])
		if err != nil {
			return nil, Outcome{Kind: RaisedError, Detail: "TypeError: " + err.Error()}
		}
		skwargs = append(skwargs, starlark.Tuple{starlark.String(k), v})
	}

	thread := &starlark.Thread{Name: fn.Name, Print: func(*starlark.Thread, string) {}}
	if opts.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(opts.MaxSteps)
	}
	type reply struct {
		v   starlark.Value
		err error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: fmt.Errorf("internal error: %v", p)}
			}
		}()
		v, err := starlark.Call(thread, fn.Callable, sargs, skwargs)
		done <- reply{v, err}
	}()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case r := <-done:
		if r.err != nil {
			return nil, Outcome{Kind: RaisedError, Detail: describe(r.err)}
		}
		return value.FromStarlark(r.v), Outcome{Kind: Succeeded}
	case <-timeout:
		thread.Cancel("timeout")
		return nil, Outcome{Kind: TimedOut, Detail: fmt.Sprintf("Execution timed out after %s", opts.Timeout)}
	case <-ctx.Done():
		thread.Cancel(ctx.Err().Error())
		return nil, Outcome{Kind: RaisedError, Detail: "Cancelled: " + ctx.Err().Error()}
	}
}
