package suite

import (
	"context"
	"time"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/grader"
	"github.com/ormasoftchile/grader/pkg/results"
)

// EngineOptions are the engine options the suite itself sets: candidate,
// timeout, seed, step budget and base directory. A non-empty candidate
// overrides the suite's.
func (s *Suite) EngineOptions(candidate string) []grader.Option {
	var opts []grader.Option
	if candidate == "" {
		candidate = s.Resolve(s.Candidate)
	}
	if candidate != "" {
		opts = append(opts, grader.WithCandidate(candidate))
	}
	if s.Timeout > 0 {
		opts = append(opts, grader.WithTimeout(time.Duration(s.Timeout)))
	}
	if s.Seed != 0 {
		opts = append(opts, grader.WithSeed(s.Seed))
	}
	if s.MaxSteps != 0 {
		opts = append(opts, grader.WithMaxSteps(s.MaxSteps))
	}
	if dir := s.Dir(); dir != "" {
		opts = append(opts, grader.WithBaseDir(dir))
	}
	return opts
}

// Run executes the suite against e: execute_script first unless the suite
// disables it or lists it itself, then every test in order. A usage error
// from Dispatch stops the run and is returned with the summary so far.
func Run(ctx context.Context, e *grader.Engine, s *Suite) (results.Summary, error) {
	label := s.Name
	if label == "" {
		label = s.Path
	}
	e.BeginRun(label)

	if s.ShouldExecute() && !listsExecute(s) {
		e.ExecuteScript(ctx, s.Variables)
	}
	for i, t := range s.Tests {
		if err := ctx.Err(); err != nil {
			e.EndRun("aborted")
			return e.Summary(), errors.Wrap(err, errors.Timeout)
		}
		var opts []grader.CheckOption
		if t.Description != "" {
			opts = append(opts, grader.Description(t.Description))
		}
		if _, err := e.Dispatch(ctx, t.Kind, t.Params, opts...); err != nil {
			e.EndRun("failed")
			return e.Summary(), errors.Wrapf(err, errors.CodeOf(err), "tests[%d]: %v", i, err)
		}
	}
	return e.EndRun("completed"), nil
}

func listsExecute(s *Suite) bool {
	for _, t := range s.Tests {
		if t.Kind == "execute_script" {
			return true
		}
	}
	return false
}
