package instrument

import (
	"context"
	"testing"
	"time"

	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/chart"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/sandbox"
)

func run(t *testing.T, src string) *sandbox.Result {
	t.Helper()
	u, err := Instrument(program.FromSource("prog.py", src))
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	res := sandbox.NewInProcess(chart.NewBackend(), nil).Run(context.Background(), u, sandbox.Options{Timeout: 5 * time.Second})
	if !res.Succeeded() {
		t.Fatalf("run failed: %s", res.Outcome.Detail)
	}
	return res
}

func TestNestedLoopCounts(t *testing.T) {
	res := run(t, `
total = 0
for i in range(3):
    for j in range(4):
        total += 1
`)
	want := map[string]int64{"loop_0": 3, "loop_1": 12}
	if len(res.Counters) != len(want) {
		t.Fatalf("counters = %v, want %v", res.Counters, want)
	}
	for id, n := range want {
		if res.Counters[id] != n {
			t.Errorf("%s = %d, want %d", id, res.Counters[id], n)
		}
	}
	if res.Bindings["total"] != int64(12) {
		t.Errorf("behavior changed: total = %v", res.Bindings["total"])
	}
}

func TestWhileAndFunctionLoops(t *testing.T) {
	res := run(t, `
def never():
    for x in range(10):
        pass

n = 0
while n < 5:
    n += 1
    if n == 2:
        for k in [1, 2]:
            pass
`)
	want := map[string]int64{"loop_0": 0, "loop_1": 5, "loop_2": 2}
	for id, count := range want {
		got, ok := res.Counters[id]
		if !ok {
			t.Errorf("%s missing from counters %v", id, res.Counters)
			continue
		}
		if got != count {
			t.Errorf("%s = %d, want %d", id, got, count)
		}
	}
}

func TestCounterIsNotCaptured(t *testing.T) {
	res := run(t, "for i in range(2):\n    pass\n")
	if _, ok := res.Bindings[sandbox.TickBuiltin]; ok {
		t.Error("counter builtin leaked into bindings")
	}
}

func TestLoopsOrder(t *testing.T) {
	f, err := program.FromSource("p.py", `
for a in range(1):
    while False:
        pass
def g():
    for b in range(1):
        pass
`).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	loops := Loops(f)
	wantKinds := []string{"for", "while", "for"}
	if len(loops) != len(wantKinds) {
		t.Fatalf("loops = %+v", loops)
	}
	for i, l := range loops {
		if l.Kind != wantKinds[i] {
			t.Errorf("loop %d kind = %s, want %s", i, l.Kind, wantKinds[i])
		}
	}
	if loops[2].ID != "loop_2" || loops[2].Line != 6 {
		t.Errorf("last loop = %+v", loops[2])
	}
}

func TestRewriteLeavesOriginalTree(t *testing.T) {
	f, err := program.FromSource("p.py", "for i in range(2):\n    x = i\n").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	orig := f.Stmts[0].(*syntax.ForStmt)
	out := Rewrite(f)
	if len(orig.Body) != 1 {
		t.Errorf("original body changed: %d statements", len(orig.Body))
	}
	if got := len(out.Stmts[0].(*syntax.ForStmt).Body); got != 2 {
		t.Errorf("rewritten body has %d statements, want 2", got)
	}
}

func TestParseFailure(t *testing.T) {
	_, err := Instrument(program.FromSource("bad.py", "for i in:\n"))
	if !errors.Is(err, errors.ParseFailed) {
		t.Fatalf("expected ParseFailed, got %v", err)
	}
}
