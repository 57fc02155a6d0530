// Package solution compares a candidate run against an independent run of
// a reference solution.
package solution

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/figure"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/sandbox"
	"github.com/ormasoftchile/grader/pkg/value"
)

// Kind classifies one compared name.
type Kind string

const (
	Match              Kind = "match"
	MissingInCandidate Kind = "missing_in_candidate"
	MissingInSolution  Kind = "missing_in_solution"
	TypeMismatch       Kind = "type_mismatch"
	ValueMismatch      Kind = "value_mismatch"
)

// Outcome is the verdict for one name. Message always names it.
type Outcome struct {
	Name    string           `json:"name"`
	Kind    Kind             `json:"kind"`
	Message string           `json:"message"`
	MaxDiff float64          `json:"max_diff,omitempty"`
	Failure *compare.Failure `json:"failure,omitempty"`
}

// Passed reports whether the name matched.
func (o Outcome) Passed() bool { return o.Kind == Match }

// Report holds one outcome per compared name, in request order.
type Report struct {
	Solution string    `json:"solution"`
	Outcomes []Outcome `json:"outcomes"`
}

// Passed reports whether every name matched.
func (r *Report) Passed() bool {
	for _, o := range r.Outcomes {
		if !o.Passed() {
			return false
		}
	}
	return true
}

// Differ runs solutions through a sandbox runner.
type Differ struct {
	runner sandbox.Runner
	opts   sandbox.Options
	logger *zap.Logger
}

// New returns a Differ that runs solutions with runner under opts. Capture
// in opts is overridden per call.
func New(runner sandbox.Runner, opts sandbox.Options, logger *zap.Logger) *Differ {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Differ{runner: runner, opts: opts, logger: logger}
}

// Run executes the solution. A solution that raises or times out is an
// error carrying its outcome: CandidateRuntime or Timeout.
func (d *Differ) Run(ctx context.Context, sol *program.Program, capture []string) (*sandbox.Result, error) {
	opts := d.opts
	opts.Capture = capture
	res := d.runner.Run(ctx, sandbox.NewUnit(sol), opts)
	d.logger.Debug("solution executed",
		zap.String("solution", sol.Identity()),
		zap.String("outcome", string(res.Outcome.Kind)),
	)
	switch res.Outcome.Kind {
	case sandbox.Succeeded:
		return res, nil
	case sandbox.TimedOut:
		return res, errors.Newf(errors.Timeout, "Solution execution timed out").
			WithDetail("outcome", res.Outcome)
	}
	return res, errors.Newf(errors.CandidateRuntime, "Error executing solution: %s", res.Outcome.Detail).
		WithDetail("outcome", res.Outcome)
}

// Compare runs the solution with capture = names and compares each name
// against the candidate's bindings.
func (d *Differ) Compare(ctx context.Context, candidate *sandbox.Result, sol *program.Program, names []string, policy compare.Policy, requireSameType bool) (*Report, error) {
	res, err := d.Run(ctx, sol, names)
	if err != nil {
		return nil, err
	}
	rep := &Report{Solution: sol.Identity()}
	for _, name := range names {
		rep.Outcomes = append(rep.Outcomes, compareName(name, candidate.Bindings, res.Bindings, policy, requireSameType))
	}
	return rep, nil
}

func compareName(name string, cand, sol map[string]any, policy compare.Policy, requireSameType bool) Outcome {
	cv, ok := cand[name]
	if !ok {
		return Outcome{Name: name, Kind: MissingInCandidate, Message: fmt.Sprintf("Variable '%s' not found in student code", name)}
	}
	sv, ok := sol[name]
	if !ok {
		return Outcome{Name: name, Kind: MissingInSolution, Message: fmt.Sprintf("Variable '%s' not found in solution", name)}
	}
	return Values(name, cv, sv, policy, requireSameType)
}

// Values compares a candidate value against the solution's value for the
// same name.
func Values(name string, cand, sol any, policy compare.Policy, requireSameType bool) Outcome {
	candSeq, solSeq := arrayLike(cand), arrayLike(sol)
	if requireSameType && candSeq != "" && solSeq != "" && candSeq != solSeq {
		return Outcome{
			Name:    name,
			Kind:    TypeMismatch,
			Message: fmt.Sprintf("'%s' is %s, expected %s", name, candSeq, solSeq),
		}
	}
	out := compare.Equal(cand, sol, policy)
	if out.Equal {
		msg := fmt.Sprintf("'%s' matches solution", name)
		if candSeq != "" && solSeq != "" {
			msg = fmt.Sprintf("'%s' matches solution (max diff: %.2e)", name, out.MaxDiff)
		}
		return Outcome{Name: name, Kind: Match, Message: msg, MaxDiff: out.MaxDiff}
	}
	kind := ValueMismatch
	if out.Failure.Kind == compare.KindType {
		kind = TypeMismatch
	}
	return Outcome{
		Name:    name,
		Kind:    kind,
		Message: out.Failure.Describe(name),
		MaxDiff: out.MaxDiff,
		Failure: out.Failure,
	}
}

// arrayLike names the container kind for requireSameType: "numpy array",
// "list", or empty for anything else.
func arrayLike(v any) string {
	switch v.(type) {
	case value.Array:
		return "numpy array"
	case []any, value.Tuple:
		return "list"
	}
	return ""
}

// Figures runs the solution and returns the figures it drew.
func (d *Differ) Figures(ctx context.Context, sol *program.Program) ([]figure.Snapshot, error) {
	res, err := d.Run(ctx, sol, []string{})
	if err != nil {
		return nil, err
	}
	return res.Figures, nil
}
