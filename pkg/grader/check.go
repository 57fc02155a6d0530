package grader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/results"
	"github.com/ormasoftchile/grader/pkg/sandbox"
)

// CheckOption customizes the records a single check appends.
type CheckOption func(*check)

// PassFeedback replaces the default message of passing records.
func PassFeedback(msg string) CheckOption {
	return func(c *check) { c.pass = msg }
}

// FailFeedback replaces the default message of failing records.
func FailFeedback(msg string) CheckOption {
	return func(c *check) { c.fail = msg }
}

// Description labels the records of the check.
func Description(text string) CheckOption {
	return func(c *check) { c.description = text }
}

type check struct {
	kind        string
	description string
	pass        string
	fail        string
}

func newCheck(kind string, opts []CheckOption) *check {
	c := &check{kind: kind}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// record appends one TestRecord and reports passed back to the caller.
func (e *Engine) record(c *check, passed bool, msg string, expected, observed any) bool {
	r := results.TestRecord{
		Kind:           c.kind,
		Description:    c.description,
		Expected:       expected,
		Observed:       observed,
		Passed:         passed,
		DefaultMessage: msg,
	}
	switch {
	case passed && c.pass != "":
		r.Message = c.pass
	case !passed && c.fail != "":
		r.Message = c.fail
	}
	r = e.log.Add(r)

	e.metrics.Check(c.kind, passed)
	if e.trace != nil {
		if err := e.trace.EmitCheck(c.kind, passed, r.Message); err != nil {
			e.logger.Warn("trace write failed", zap.Error(err))
		}
	}
	if e.out != nil {
		fmt.Fprintln(e.out, r.Line())
	}
	e.logger.Debug("check recorded",
		zap.String("kind", c.kind),
		zap.Bool("passed", passed),
		zap.String("message", msg),
	)
	return passed
}

// requireExecution records a failure and remembers a NotExecuted error
// when ExecuteScript has not succeeded.
func (e *Engine) requireExecution(c *check, msg string) bool {
	if e.executed {
		return true
	}
	e.err = errors.Newf(errors.NotExecuted, "%s: call ExecuteScript first", c.kind).WithDetail("kind", c.kind)
	e.record(c, false, msg, nil, nil)
	return false
}

// binding looks up a captured variable. When ExecuteScript named the
// variables to capture, only those are visible.
func (e *Engine) binding(name string) (any, bool) {
	if e.result == nil {
		return nil, false
	}
	if e.captured != nil && !e.captured[name] {
		return nil, false
	}
	return e.result.Binding(name)
}

// variable combines requireExecution and binding with the standard
// messages.
func (e *Engine) variable(c *check, name string) (any, bool) {
	if !e.requireExecution(c, fmt.Sprintf("Cannot check '%s': script not executed", name)) {
		return nil, false
	}
	v, ok := e.binding(name)
	if !ok {
		e.record(c, false, fmt.Sprintf("Variable '%s' not found", name), nil, nil)
		return nil, false
	}
	return v, true
}

// observedRunner reports every run it makes to the engine's trace and
// metrics under a role.
type observedRunner struct {
	sandbox.Runner
	role string
	e    *Engine
}

func (e *Engine) observe(role string, r sandbox.Runner) sandbox.Runner {
	return &observedRunner{Runner: r, role: role, e: e}
}

func (o *observedRunner) Run(ctx context.Context, u *sandbox.Unit, opts sandbox.Options) *sandbox.Result {
	res := o.Runner.Run(ctx, u, opts)
	o.e.metrics.Execution(o.role, string(res.Outcome.Kind), res.Elapsed)
	if o.e.trace != nil {
		err := o.e.trace.EmitExecution(u.Program.Identity(), string(res.Outcome.Kind), res.Outcome.Detail, res.Elapsed, u.Instrumented())
		if err != nil {
			o.e.logger.Warn("trace write failed", zap.Error(err))
		}
	}
	o.e.logger.Info("program executed",
		zap.String("role", o.role),
		zap.String("program", u.Program.Identity()),
		zap.String("outcome", string(res.Outcome.Kind)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}
