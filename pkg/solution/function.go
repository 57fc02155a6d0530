package solution

import (
	"context"
	"fmt"

	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/sandbox"
	"github.com/ormasoftchile/grader/pkg/value"
)

// Input is one argument set for a function comparison.
type Input struct {
	Args   []any          `json:"args" yaml:"args"`
	Kwargs map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
}

// CaseOutcome is the verdict for one input. Raised is set when either
// function failed to return; Outcome is then the zero value.
type CaseOutcome struct {
	Index   int     `json:"index"`
	Raised  string  `json:"raised,omitempty"`
	Outcome Outcome `json:"outcome"`
}

// Passed reports whether both functions returned matching values.
func (c CaseOutcome) Passed() bool { return c.Raised == "" && c.Outcome.Passed() }

// Message is the record text for the case.
func (c CaseOutcome) Message() string {
	if c.Raised != "" {
		return c.Raised
	}
	return c.Outcome.Message
}

// CompareFunction runs the solution, looks up fnName in it, and calls the
// candidate's and the solution's function with every input.
func (d *Differ) CompareFunction(ctx context.Context, cand value.Function, sol *program.Program, fnName string, inputs []Input, policy compare.Policy) ([]CaseOutcome, error) {
	res, err := d.Run(ctx, sol, []string{fnName})
	if err != nil {
		return nil, err
	}
	sv, ok := res.Bindings[fnName]
	if !ok {
		return nil, errors.Newf(errors.MissingBinding, "Function '%s' not found in solution", fnName)
	}
	solFn, ok := sv.(value.Function)
	if !ok {
		return nil, errors.Newf(errors.TypeMismatch, "'%s' is not a function in the solution", fnName)
	}

	opts := sandbox.Options{Timeout: d.opts.Timeout, MaxSteps: d.opts.MaxSteps}
	out := make([]CaseOutcome, 0, len(inputs))
	for i, in := range inputs {
		c := CaseOutcome{Index: i}
		got, gotOutcome := sandbox.Call(ctx, cand, in.Args, in.Kwargs, opts)
		if gotOutcome.Kind != sandbox.Succeeded {
			c.Raised = fmt.Sprintf("%s test %d raised %s", fnName, i, gotOutcome.Detail)
			out = append(out, c)
			continue
		}
		want, wantOutcome := sandbox.Call(ctx, solFn, in.Args, in.Kwargs, opts)
		if wantOutcome.Kind != sandbox.Succeeded {
			c.Raised = fmt.Sprintf("%s test %d raised %s in solution", fnName, i, wantOutcome.Detail)
			out = append(out, c)
			continue
		}
		c.Outcome = Values(fmt.Sprintf("%s_output_%d", fnName, i), got, want, policy, false)
		out = append(out, c)
	}
	return out, nil
}
