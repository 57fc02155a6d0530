package grader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/metrics"
	"github.com/ormasoftchile/grader/pkg/results"
	"github.com/ormasoftchile/grader/pkg/trace"
)

func newEngine(t *testing.T, src string, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithSource("student.py", src), WithTimeout(5 * time.Second)}, opts...)...)
	require.NoError(t, err)
	return e
}

func executed(t *testing.T, src string, opts ...Option) *Engine {
	t.Helper()
	e := newEngine(t, src, opts...)
	require.True(t, e.ExecuteScript(context.Background(), nil), e.Records())
	return e
}

func last(e *Engine) results.TestRecord {
	recs := e.Records()
	return recs[len(recs)-1]
}

func writeFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestNew_RejectsNonPositiveTimeout(t *testing.T) {
	_, err := New(WithTimeout(0))
	assert.True(t, errors.Is(err, errors.InvalidParam))
}

func TestNew_MissingCandidateIsRecorded(t *testing.T) {
	e, err := New(WithCandidate(filepath.Join(t.TempDir(), "absent.py")))
	require.NoError(t, err)
	recs := e.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "load", recs[0].Kind)
	assert.False(t, recs[0].Passed)

	assert.False(t, e.ExecuteScript(context.Background(), nil))
	assert.Equal(t, "No code to execute", last(e).Message)
}

func TestExecuteScript(t *testing.T) {
	e := newEngine(t, "x = 1\nprint('hi')\n")
	assert.True(t, e.ExecuteScript(context.Background(), nil))
	assert.Equal(t, "Script executed successfully", last(e).Message)
	assert.Equal(t, "hi\n", e.Stdout())
}

func TestExecuteScript_RuntimeError(t *testing.T) {
	e := newEngine(t, "zero = 0\nx = 1 // zero\n")
	assert.False(t, e.ExecuteScript(context.Background(), nil))
	assert.True(t, strings.HasPrefix(last(e).Message, "Execution failed: ZeroDivisionError"), last(e).Message)
}

func TestExecuteScript_Timeout(t *testing.T) {
	e := newEngine(t, "while True:\n    pass\n", WithTimeout(2*time.Second))
	start := time.Now()
	assert.False(t, e.ExecuteScript(context.Background(), nil))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 4*time.Second)
	assert.Equal(t, "Execution timed out after 2s", last(e).Message)
	assert.Equal(t, "timed_out", last(e).Observed)
}

func TestExecuteScript_NamesRestrictVariables(t *testing.T) {
	e := newEngine(t, "a = 1\nb = 2\n")
	require.True(t, e.ExecuteScript(context.Background(), []string{"a"}))
	assert.True(t, e.CheckVariableValue("a", 1, 0))
	assert.False(t, e.CheckVariableValue("b", 2, 0))
	assert.Equal(t, "Variable 'b' not found", last(e).Message)
}

func TestChecksBeforeExecution(t *testing.T) {
	e := newEngine(t, "x = 1\n")
	assert.False(t, e.CheckVariableValue("x", 1, 0))
	assert.Equal(t, "Cannot check 'x': script not executed", last(e).Message)
	assert.True(t, errors.Is(e.Err(), errors.NotExecuted))

	assert.False(t, e.CheckPlotCreated())
	assert.Equal(t, "Cannot check plot: script not executed", last(e).Message)

	require.True(t, e.ExecuteScript(context.Background(), nil))
	assert.NoError(t, e.Err())
}

func TestCheckVariableValue(t *testing.T) {
	e := executed(t, "total = 100.0000001\nitems = [1, 2, 3]\nnothing = None\n")

	assert.True(t, e.CheckVariableValue("total", 100, 1e-6))
	assert.Contains(t, last(e).Message, "'total' = 100.0000001")
	assert.False(t, e.CheckVariableValue("total", 100, 1e-9))
	assert.Contains(t, last(e).Message, "total")

	assert.True(t, e.CheckVariableValue("items", []any{1, 2, 3}, 0))
	assert.Equal(t, "'items' matches expected", last(e).Message)
	assert.True(t, e.CheckVariableValue("nothing", nil, 0))
	assert.False(t, e.CheckVariableValue("missing", 1, 0))
}

func TestCheckVariableType(t *testing.T) {
	e := executed(t, "n = 3\nf = 2.5\ns = 'a'\nflag = True\nxs = np.array([1.0])\ndef g():\n    pass\n")
	assert.True(t, e.CheckVariableType("n", "int"))
	assert.True(t, e.CheckVariableType("f", "number"))
	assert.True(t, e.CheckVariableType("flag", "int"))
	assert.True(t, e.CheckVariableType("xs", "ndarray"))
	assert.True(t, e.CheckVariableType("g", "function"))
	assert.False(t, e.CheckVariableType("s", "int"))
	assert.Equal(t, "'s' is str, expected int", last(e).Message)
}

func TestCheckArraySize(t *testing.T) {
	e := executed(t, "xs = [1, 2, 3, 4]\n")
	lo, hi, exact := 2, 3, 4

	assert.True(t, e.CheckArraySize("xs", nil, nil, &exact))
	n := len(e.Records())
	assert.False(t, e.CheckArraySize("xs", &lo, &hi, nil))
	recs := e.Records()[n:]
	require.Len(t, recs, 2, "one record per bound")
	assert.True(t, recs[0].Passed)
	assert.False(t, recs[1].Passed)
}

func TestCheckArrayValuesInRange(t *testing.T) {
	e := executed(t, "xs = [1, 5, 9]\n")
	lo, hi := 0.0, 10.0
	assert.True(t, e.CheckArrayValuesInRange("xs", &lo, &hi))
	hi = 8
	assert.False(t, e.CheckArrayValuesInRange("xs", nil, &hi))
}

func TestCheckListEquals_Unordered(t *testing.T) {
	e := executed(t, "a = [2, 1, 1]\n")
	assert.True(t, e.CheckListEquals("a", []any{1, 1, 2}, false, 1e-6))
	assert.False(t, e.CheckListEquals("a", []any{1, 2, 2}, false, 1e-6))
	assert.False(t, e.CheckListEquals("a", []any{1, 1, 2}, true, 1e-6))
}

func TestCheckArrayEquals_Shape(t *testing.T) {
	e := executed(t, "m = np.array([[1, 2, 3]])\nv = np.array([1, 2, 3])\n")
	assert.False(t, e.CheckArrayEquals("m", []any{1, 2, 3}, 1e-6))
	assert.True(t, e.CheckArrayEquals("v", []any{1, 2, 3}, 1e-6))
}

func TestCheckVariableRelationship(t *testing.T) {
	e := executed(t, "xs = [1, 2, 3]\nys = [2, 4, 6]\nr = 2\narea = 3.141592653589793 * 4\n")
	assert.True(t, e.CheckVariableRelationship("xs", "ys", "2 * x", 1e-6, ""))
	assert.Equal(t, "Relationship verified: ys = f(xs)", last(e).Message)
	assert.True(t, e.CheckVariableRelationship("r", "area", "pi * x ** 2", 1e-6, "area of a circle"))
	assert.False(t, e.CheckVariableRelationship("xs", "ys", "3 * x", 1e-6, ""))
	assert.False(t, e.CheckVariableRelationship("xs", "ys", "2 *", 1e-6, ""))
	assert.True(t, strings.HasPrefix(last(e).Message, "Error checking relationship"))
}

func TestCountLoopIterations(t *testing.T) {
	e := executed(t, "count = 0\nfor i in range(10):\n    count += 1\n")
	want := 10
	n, ok := e.CountLoopIterations("count", &want, 0)
	assert.True(t, ok)
	assert.Equal(t, 10, n)
	want = 12
	_, ok = e.CountLoopIterations("count", &want, 1)
	assert.False(t, ok)
	assert.Equal(t, "Loop ran 10 times, expected 12", last(e).Message)
}

func TestInstrumentLoops(t *testing.T) {
	e := newEngine(t, "total = 0\nfor i in range(3):\n    for j in range(4):\n        total += 1\n")
	assert.True(t, e.InstrumentLoops(context.Background(), map[string]int64{"loop_0": 3, "loop_1": 12}))
	assert.Equal(t, "Loop counters: loop_0=3, loop_1=12", last(e).Message)
	assert.Equal(t, map[string]int64{"loop_0": 3, "loop_1": 12}, e.LoopCounts())

	assert.False(t, e.InstrumentLoops(context.Background(), map[string]int64{"loop_0": 4}))
	assert.Contains(t, last(e).Message, "loop_0 ran 3 times, expected 4")
}

func TestStructuralChecks(t *testing.T) {
	src := `
def area(r):
    return 3.14 * r * r

total = 0
for i in range(3):
    if i % 2 == 0:
        total += area(i)
print(total)
`
	e := newEngine(t, src)
	assert.True(t, e.CheckFunctionExists("area"))
	assert.False(t, e.CheckFunctionExists("volume"))
	assert.True(t, e.CheckFunctionCalled("print", false))
	assert.True(t, e.CheckFunctionNotCalled("input", false))
	assert.True(t, e.CheckForLoopUsed())
	assert.False(t, e.CheckWhileLoopUsed())
	assert.True(t, e.CheckIfStatementUsed())
	assert.True(t, e.CheckOperatorUsed("%"))
	assert.False(t, e.CheckOperatorUsed("//"))
	assert.True(t, e.CheckCodeContains("AREA", false))
	assert.False(t, e.CheckCodeContains("AREA", true))
}

func TestCheckOperatorUsed_UnknownOperatorSearchesText(t *testing.T) {
	e := newEngine(t, "x = 1\n# a <=> b\n")
	assert.True(t, e.CheckOperatorUsed("<=>"))
	require.Len(t, e.Records(), 1)
	assert.Equal(t, "operator_used", last(e).Kind)
	assert.Equal(t, "Code contains '<=>'", last(e).Message)

	assert.False(t, e.CheckOperatorUsed(":="))
	require.Len(t, e.Records(), 2)
	assert.Equal(t, "Code does not contain ':='", last(e).Message)
	assert.NoError(t, e.Err())
}

func TestDispatch_UnknownOperatorRejected(t *testing.T) {
	e := newEngine(t, "x = 1\n")
	_, err := e.Dispatch(context.Background(), "operator_used", map[string]any{"operator": "<=>"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.InvalidParam))
	assert.Empty(t, e.Records())
}

func TestCompareWithSolution(t *testing.T) {
	sol := writeFile(t, "solution.py", "total = 100\nname = 'x'\n")
	e := executed(t, "total = 100.0000001\nname = 'x'\n")

	assert.True(t, e.CompareWithSolution(context.Background(), sol, []string{"total", "name"}, 1e-6, false))
	assert.Len(t, e.Records(), 3, "one record per variable")
	assert.False(t, e.CompareWithSolution(context.Background(), sol, []string{"total"}, 1e-9, false))
	assert.Contains(t, last(e).Message, "total")

	assert.False(t, e.CompareWithSolution(context.Background(), sol+".missing", []string{"total"}, 1e-6, false))
	assert.True(t, strings.HasPrefix(last(e).Message, "Solution file not found"))
}

func TestTestFunction(t *testing.T) {
	e := executed(t, "def add(a, b=0):\n    return a + b\n\ndef boom():\n    return 1 // 0\n")
	cases := []FunctionCase{
		{Args: []any{1, 2}, Expected: 3},
		{Args: []any{1}, Kwargs: map[string]any{"b": 5}, Expected: 6},
		{Args: []any{1, 1}, Expected: 3},
	}
	n := len(e.Records())
	assert.False(t, e.TestFunction(context.Background(), "add", cases))
	recs := e.Records()[n:]
	require.Len(t, recs, 3)
	assert.Equal(t, "add(1, 2) = 3", recs[0].Message)
	assert.True(t, recs[1].Passed)
	assert.False(t, recs[2].Passed)

	assert.False(t, e.TestFunction(context.Background(), "boom", []FunctionCase{{Expected: 1}}))
	assert.Contains(t, last(e).Message, "raised")
	assert.False(t, e.TestFunction(context.Background(), "nope", cases))
	assert.Equal(t, "Function 'nope' not found", last(e).Message)
}

func TestFeedbackReplacesMessage(t *testing.T) {
	e := executed(t, "x = 2\n")
	e.CheckVariableValue("x", 2, 0, PassFeedback("well done"))
	assert.Equal(t, "well done", last(e).Message)
	assert.Equal(t, "'x' = 2", last(e).DefaultMessage)

	e.CheckVariableValue("x", 3, 0, PassFeedback("well done"), FailFeedback("try again"))
	assert.Equal(t, "try again", last(e).Message)
}

func TestSummaryAndOutput(t *testing.T) {
	var out bytes.Buffer
	e := newEngine(t, "x = 1\n", WithOutput(&out))
	e.ExecuteScript(context.Background(), nil)
	e.CheckVariableValue("x", 1, 0)
	e.CheckVariableValue("x", 2, 0)

	s := e.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, "2/3", s.Score)
	assert.Contains(t, out.String(), "✓ PASS: Script executed successfully")
	assert.Contains(t, out.String(), "✗ FAIL: ")
}

func TestTraceAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	tw := trace.NewWriter(&buf, "")
	m := metrics.New()

	e := newEngine(t, "x = 1\n", WithTrace(tw), WithMetrics(m))
	e.BeginRun("suite.yaml")
	e.ExecuteScript(context.Background(), nil)
	e.CheckVariableValue("x", 1, 0)
	e.EndRun("completed")

	res, err := trace.Verify(&buf)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	// run_start, execution, 2 checks, summary, run_complete
	assert.Equal(t, 6, res.EventCount)
}
