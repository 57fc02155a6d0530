package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/value"
)

func runSource(t *testing.T, src string, opts Options) *Result {
	t.Helper()
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	r := NewInProcess(chart.NewBackend(), nil)
	return r.Run(context.Background(), NewUnit(program.FromSource("prog.py", src)), opts)
}

func TestRunCapturesBindings(t *testing.T) {
	res := runSource(t, `
import numpy as np
total = 0
for i in range(5):
    total += i
xs = np.array([1, 2, 3])
_hidden = 1
print("done", total)
`, Options{})
	require.True(t, res.Succeeded(), res.Outcome.Detail)
	assert.Equal(t, int64(10), res.Bindings["total"])
	assert.Equal(t, value.Array{Shape: []int{3}, Data: []float64{1, 2, 3}}, res.Bindings["xs"])
	assert.NotContains(t, res.Bindings, "_hidden")
	assert.NotContains(t, res.Bindings, "np")
	assert.Equal(t, "done 10\n", res.Stdout)
}

func TestRunCapturesRequestedSubset(t *testing.T) {
	res := runSource(t, "a = 1\nb = 2\n", Options{Capture: []string{"a", "missing"}})
	require.True(t, res.Succeeded())
	assert.Equal(t, map[string]any{"a": int64(1)}, res.Bindings)
}

func TestRunReportsRuntimeError(t *testing.T) {
	res := runSource(t, "x = 1\ny = x // 0\n", Options{})
	assert.Equal(t, RaisedError, res.Outcome.Kind)
	assert.True(t, strings.HasPrefix(res.Outcome.Detail, "ZeroDivisionError:"), res.Outcome.Detail)
	assert.Equal(t, int64(1), res.Bindings["x"], "bindings made before the error are kept")
}

func TestRunReportsSyntaxError(t *testing.T) {
	res := runSource(t, "def f(:\n    pass\n", Options{})
	assert.Equal(t, RaisedError, res.Outcome.Kind)
	assert.True(t, strings.HasPrefix(res.Outcome.Detail, "SyntaxError:"), res.Outcome.Detail)
}

func TestRunReportsUndefinedName(t *testing.T) {
	res := runSource(t, "y = undefined_thing + 1\n", Options{})
	assert.Equal(t, RaisedError, res.Outcome.Kind)
	assert.Contains(t, res.Outcome.Detail, "NameError")
}

func TestUnknownImportFails(t *testing.T) {
	res := runSource(t, "import os\n", Options{})
	assert.Equal(t, RaisedError, res.Outcome.Kind)
}

func TestImportAliases(t *testing.T) {
	res := runSource(t, `
import numpy as numeric
from matplotlib import pyplot as p
import math as m
v = numeric.sqrt(m.floor(16.5))
p.plot([1, 2], [3, 4])
`, Options{})
	require.True(t, res.Succeeded(), res.Outcome.Detail)
	assert.Equal(t, 4.0, res.Bindings["v"])
	require.Len(t, res.Figures, 1)
	assert.Len(t, res.Figures[0].Series, 1)
}

func TestTimeoutReturnsWithinBudget(t *testing.T) {
	budget := 2 * time.Second
	start := time.Now()
	res := runSource(t, "while True:\n    pass\n", Options{Timeout: budget})
	waited := time.Since(start)

	assert.Equal(t, TimedOut, res.Outcome.Kind)
	assert.False(t, res.Succeeded())
	assert.Less(t, waited, budget+500*time.Millisecond)
	assert.Equal(t, "Execution timed out after 2s", res.Outcome.Detail)
}

func TestAbandonedRunCannotTouchNextFigures(t *testing.T) {
	backend := chart.NewBackend()
	r := NewInProcess(backend, nil)
	slow := program.FromSource("slow.py", `
import matplotlib.pyplot as plt
while True:
    plt.plot([1], [1])
`)
	res := r.Run(context.Background(), NewUnit(slow), Options{Timeout: 200 * time.Millisecond})
	require.Equal(t, TimedOut, res.Outcome.Kind)

	next := r.Run(context.Background(), NewUnit(program.FromSource("next.py", "x = 1\n")), Options{Timeout: time.Second})
	require.True(t, next.Succeeded())
	assert.Empty(t, next.Figures)
}

func TestStepBudget(t *testing.T) {
	res := runSource(t, "n = 0\nwhile True:\n    n += 1\n", Options{MaxSteps: 10000})
	assert.Equal(t, RaisedError, res.Outcome.Kind)
	assert.Equal(t, stepBudgetDetail, res.Outcome.Detail)
}

func TestSeededRandomIsDeterministic(t *testing.T) {
	src := "import random\nv = [random.randint(1, 100) for _ in range(5)]\n"
	a := runSource(t, src, Options{Seed: 7})
	b := runSource(t, src, Options{Seed: 7})
	require.True(t, a.Succeeded())
	assert.Equal(t, a.Bindings["v"], b.Bindings["v"])
}

func TestCallCapturedFunction(t *testing.T) {
	res := runSource(t, "def area(w, h=2):\n    return w * h\n", Options{})
	require.True(t, res.Succeeded())
	fn, ok := res.Bindings["area"].(value.Function)
	require.True(t, ok)

	got, outcome := Call(context.Background(), fn, []any{int64(3)}, map[string]any{"h": int64(4)}, Options{Timeout: time.Second})
	require.Equal(t, Succeeded, outcome.Kind, outcome.Detail)
	assert.Equal(t, int64(12), got)

	_, outcome = Call(context.Background(), fn, []any{"x", "y"}, nil, Options{Timeout: time.Second})
	assert.Equal(t, RaisedError, outcome.Kind)
}

func TestCallTimesOut(t *testing.T) {
	res := runSource(t, "def spin():\n    while True:\n        pass\n", Options{})
	require.True(t, res.Succeeded())
	_, outcome := Call(context.Background(), res.Bindings["spin"].(value.Function), nil, nil, Options{Timeout: 100 * time.Millisecond})
	assert.Equal(t, TimedOut, outcome.Kind)
}

func TestBoundedBufferTruncates(t *testing.T) {
	b := newBoundedBuffer(5)
	b.WriteString("abc")
	b.WriteString("defgh")
	b.WriteString("ignored")
	assert.Equal(t, "abcde"+truncatedMarker, b.String())
}

func TestServeWorkerRoundTrip(t *testing.T) {
	req := WorkerRequest{
		ID:         "req-1",
		Name:       "prog.py",
		Source:     "import numpy as np\nx = np.linspace(0, 1, 3)\nname = 'ok'\ndef f():\n    return 1\n",
		CaptureAll: true,
		TimeoutMS:  5000,
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = ServeWorker(context.Background(), bytes.NewReader(payload), &out, func(p *program.Program, _ bool) (*Unit, error) {
		return NewUnit(p), nil
	})
	require.NoError(t, err)

	var resp WorkerResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.ID)
	res, err := decodeResult(resp)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "ok", res.Bindings["name"])
	assert.Equal(t, value.Array{Shape: []int{3}, Data: []float64{0, 0.5, 1}}, res.Bindings["x"])
	fn, ok := res.Bindings["f"].(value.Function)
	require.True(t, ok)
	assert.Nil(t, fn.Callable, "functions cross the boundary as descriptors")
}

func TestCapabilitiesAreEnumerable(t *testing.T) {
	caps := Capabilities()
	for _, want := range []string{"len", "range", "sum", "round", "np", "plt", "math", "random", "json"} {
		assert.Contains(t, caps, want)
	}
	assert.NotContains(t, caps, "open")
}
