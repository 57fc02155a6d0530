package grader

import (
	"context"
	"fmt"

	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/sandbox"
	"github.com/ormasoftchile/grader/pkg/solution"
	"github.com/ormasoftchile/grader/pkg/value"
)

// FunctionCase is one call of TestFunction. A nil Tolerance means
// compare.DefaultTolerance.
type FunctionCase struct {
	Args      []any          `json:"args" yaml:"args"`
	Kwargs    map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
	Expected  any            `json:"expected" yaml:"expected"`
	Tolerance *float64       `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// CompareWithSolution runs the solution file and compares each named
// variable against the candidate's. Every name appends its own record.
func (e *Engine) CompareWithSolution(ctx context.Context, solutionPath string, names []string, tolerance float64, requireSameType bool, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("compare_solution", opts)

	if !e.requireExecution(c, "Cannot compare: student script not executed") {
		return false
	}
	sol, ok := e.loadSolution(c, solutionPath, fmt.Sprintf("Solution file not found: %s", solutionPath))
	if !ok {
		return false
	}
	visible := make(map[string]any, len(names))
	for _, n := range names {
		if v, ok := e.binding(n); ok {
			visible[n] = v
		}
	}
	cand := &sandbox.Result{Bindings: visible}
	rep, err := e.differ.Compare(ctx, cand, sol, names, compare.Policy{Tolerance: tolerance}, requireSameType)
	if err != nil {
		return e.record(c, false, err.Error(), nil, nil)
	}
	for _, o := range rep.Outcomes {
		e.record(c, o.Passed(), o.Message, o.Name, string(o.Kind))
	}
	return rep.Passed()
}

// function looks up a callable among every top-level binding.
func (e *Engine) function(c *check, name string) (value.Function, bool) {
	if !e.requireExecution(c, fmt.Sprintf("Cannot test '%s': script not executed", name)) {
		return value.Function{}, false
	}
	v, ok := e.result.Binding(name)
	if !ok {
		e.record(c, false, fmt.Sprintf("Function '%s' not found", name), nil, nil)
		return value.Function{}, false
	}
	fn, ok := v.(value.Function)
	if !ok {
		e.record(c, false, fmt.Sprintf("'%s' is not a function", name), nil, value.TypeName(v))
		return value.Function{}, false
	}
	return fn, true
}

// TestFunction calls the candidate's function once per case. Every case
// appends its own record.
func (e *Engine) TestFunction(ctx context.Context, name string, cases []FunctionCase, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("test_function", opts)

	fn, ok := e.function(c, name)
	if !ok {
		return false
	}
	callOpts := sandbox.Options{Timeout: e.timeout, MaxSteps: e.maxSteps}
	passed := true
	for _, tc := range cases {
		call := name + value.Repr(value.Tuple(tc.Args))
		got, outcome := sandbox.Call(ctx, fn, tc.Args, tc.Kwargs, callOpts)
		if outcome.Kind != sandbox.Succeeded {
			e.record(c, false, fmt.Sprintf("%s raised %s", call, outcome.Detail), tc.Expected, nil)
			passed = false
			continue
		}
		tol := compare.DefaultTolerance
		if tc.Tolerance != nil {
			tol = *tc.Tolerance
		}
		if compare.Equal(got, tc.Expected, compare.Policy{Tolerance: tol}).Equal {
			e.record(c, true, fmt.Sprintf("%s = %s", call, value.Repr(got)), tc.Expected, got)
			continue
		}
		e.record(c, false, fmt.Sprintf("%s = %s, expected %s", call, value.Repr(got), value.Repr(tc.Expected)), tc.Expected, got)
		passed = false
	}
	return passed
}

// TestFunctionWithSolution calls the candidate's and the solution's
// function with every input and compares the results. Every input appends
// its own record.
func (e *Engine) TestFunctionWithSolution(ctx context.Context, name, solutionPath string, inputs []solution.Input, tolerance float64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("test_function_with_solution", opts)

	fn, ok := e.function(c, name)
	if !ok {
		return false
	}
	sol, ok := e.loadSolution(c, solutionPath, fmt.Sprintf("Solution file not found: %s", solutionPath))
	if !ok {
		return false
	}
	outcomes, err := e.differ.CompareFunction(ctx, fn, sol, name, inputs, compare.Policy{Tolerance: tolerance})
	if err != nil {
		return e.record(c, false, err.Error(), nil, nil)
	}
	passed := true
	for _, o := range outcomes {
		if !e.record(c, o.Passed(), o.Message(), nil, nil) {
			passed = false
		}
	}
	return passed
}
