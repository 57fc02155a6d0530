package solution

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/sandbox"
	"github.com/ormasoftchile/grader/pkg/value"
)

func newDiffer() (*Differ, sandbox.Runner) {
	runner := sandbox.NewInProcess(chart.NewBackend(), nil)
	return New(runner, sandbox.Options{Timeout: 5 * time.Second}, nil), runner
}

func runCandidate(t *testing.T, runner sandbox.Runner, src string) *sandbox.Result {
	t.Helper()
	res := runner.Run(context.Background(), sandbox.NewUnit(program.FromSource("candidate.py", src)), sandbox.Options{Timeout: 5 * time.Second})
	if !res.Succeeded() {
		t.Fatalf("candidate failed: %s", res.Outcome.Detail)
	}
	return res
}

func TestCompare_Tolerance(t *testing.T) {
	d, runner := newDiffer()
	cand := runCandidate(t, runner, "total = 100.0000001\n")
	sol := program.FromSource("solution.py", "total = 100\n")

	rep, err := d.Compare(context.Background(), cand, sol, []string{"total"}, compare.Policy{Tolerance: 1e-6}, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !rep.Passed() {
		t.Fatalf("expected match at 1e-6, got %+v", rep.Outcomes)
	}

	rep, err = d.Compare(context.Background(), cand, sol, []string{"total"}, compare.Policy{Tolerance: 1e-9}, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rep.Passed() {
		t.Fatal("expected mismatch at 1e-9")
	}
	o := rep.Outcomes[0]
	if o.Kind != ValueMismatch || !strings.Contains(o.Message, "total") {
		t.Errorf("outcome = %+v", o)
	}
}

func TestCompare_MissingNames(t *testing.T) {
	d, runner := newDiffer()
	cand := runCandidate(t, runner, "a = 1\n")
	sol := program.FromSource("solution.py", "b = 2\n")

	rep, err := d.Compare(context.Background(), cand, sol, []string{"a", "b"}, compare.DefaultPolicy(), false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if rep.Outcomes[0].Kind != MissingInSolution {
		t.Errorf("a: %+v", rep.Outcomes[0])
	}
	if rep.Outcomes[1].Kind != MissingInCandidate {
		t.Errorf("b: %+v", rep.Outcomes[1])
	}
	if rep.Outcomes[1].Message != "Variable 'b' not found in student code" {
		t.Errorf("message = %q", rep.Outcomes[1].Message)
	}
}

func TestCompare_ArrayDifferences(t *testing.T) {
	d, runner := newDiffer()
	cand := runCandidate(t, runner, "xs = np.array([1.0, 2.0, 3.5])\nys = [1, 2]\n")
	sol := program.FromSource("solution.py", "xs = np.array([1.0, 2.0, 3.0])\nys = np.array([1, 2])\n")

	rep, err := d.Compare(context.Background(), cand, sol, []string{"xs", "ys"}, compare.DefaultPolicy(), true)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	xs := rep.Outcomes[0]
	if xs.Kind != ValueMismatch || xs.Message != "'xs' differs at index (2,): got 3.5, expected 3.0" {
		t.Errorf("xs = %+v", xs)
	}
	ys := rep.Outcomes[1]
	if ys.Kind != TypeMismatch || ys.Message != "'ys' is list, expected numpy array" {
		t.Errorf("ys = %+v", ys)
	}
}

func TestCompare_SolutionFails(t *testing.T) {
	d, runner := newDiffer()
	cand := runCandidate(t, runner, "a = 1\n")

	_, err := d.Compare(context.Background(), cand, program.FromSource("solution.py", "a = 1 / 0\n"), []string{"a"}, compare.DefaultPolicy(), false)
	if !errors.Is(err, errors.CandidateRuntime) {
		t.Fatalf("expected CandidateRuntime, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Error executing solution:") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCompareFunction(t *testing.T) {
	d, runner := newDiffer()
	cand := runCandidate(t, runner, `
def area(w, h=1):
    if w < 0:
        fail("negative width")
    return w * h + 0.5
`)
	sol := program.FromSource("solution.py", "def area(w, h=1):\n    return w * h\n")
	fn, ok := cand.Bindings["area"].(value.Function)
	if !ok {
		t.Fatalf("area not captured as a function: %T", cand.Bindings["area"])
	}

	cases, err := d.CompareFunction(context.Background(), fn, sol, "area", []Input{
		{Args: []any{int64(2)}, Kwargs: map[string]any{"h": int64(3)}},
		{Args: []any{int64(-1)}},
	}, compare.Policy{Tolerance: 1})
	if err != nil {
		t.Fatalf("CompareFunction: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("cases = %+v", cases)
	}
	if !cases[0].Passed() {
		t.Errorf("case 0 should pass within tolerance 1: %+v", cases[0])
	}
	if cases[1].Passed() || !strings.Contains(cases[1].Message(), "area test 1 raised") {
		t.Errorf("case 1 = %+v", cases[1])
	}

	_, err = d.CompareFunction(context.Background(), fn, program.FromSource("solution.py", "x = 1\n"), "area", nil, compare.DefaultPolicy())
	if !errors.Is(err, errors.MissingBinding) {
		t.Errorf("expected MissingBinding, got %v", err)
	}
}

func TestFigures(t *testing.T) {
	d, _ := newDiffer()
	figs, err := d.Figures(context.Background(), program.FromSource("solution.py", "plt.plot([1, 2], [3, 4], 'r--')\n"))
	if err != nil {
		t.Fatalf("Figures: %v", err)
	}
	if len(figs) != 1 || len(figs[0].Series) != 1 || figs[0].Series[0].LineStyle != "--" {
		t.Errorf("figures = %+v", figs)
	}
}
