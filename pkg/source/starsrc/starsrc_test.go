package starsrc

import (
	"testing"

	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/source"
)

const sample = `import numpy as np

def mean_of(xs):
    total = 0
    for x in xs:
        total += x
    return total / len(xs)

values = np.array([1, 2, 3])
m = mean_of(values.tolist())
n = 0
while n < 3 and not m in [1, 2]:
    n += 1
if n == 3:
    print(np.linalg.norm(values))
elif n > 3:
    pass
flags = 3 & ~1
`

func parse(t *testing.T, src string) *Model {
	t.Helper()
	m, err := Parse(program.FromSource("sample.py", src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return m
}

func TestCalls(t *testing.T) {
	m := parse(t, sample)
	var names []string
	for _, c := range m.Calls() {
		names = append(names, c.Name())
	}
	want := []string{"len", "np.array", "mean_of", "values.tolist", "print", "np.linalg.norm"}
	if len(names) != len(want) {
		t.Fatalf("calls = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestStructure(t *testing.T) {
	m := parse(t, sample)
	if got := m.FunctionDefs(); len(got) != 1 || got[0].Name != "mean_of" || got[0].Line != 3 {
		t.Errorf("defs = %+v", got)
	}
	loops := m.Loops()
	if len(loops) != 2 || loops[0].Kind != "for" || loops[1].Kind != "while" {
		t.Errorf("loops = %+v", loops)
	}
	if got := len(m.Branches()); got != 2 {
		t.Errorf("branches = %d, want 2 (if and elif)", got)
	}
}

func TestOperators(t *testing.T) {
	m := parse(t, sample)
	has := func(token string, kind source.OperatorKind) bool {
		for _, o := range m.Operators() {
			if o.Token == token && o.Kind == kind {
				return true
			}
		}
		return false
	}
	cases := []struct {
		token string
		kind  source.OperatorKind
	}{
		{"+=", source.Augmented},
		{"/", source.Binary},
		{"<", source.Comparison},
		{"==", source.Comparison},
		{"and", source.Boolean},
		{"not", source.Unary},
		{"in", source.Membership},
		{"&", source.Bitwise},
		{"~", source.Bitwise},
	}
	for _, c := range cases {
		if !has(c.token, c.kind) {
			t.Errorf("operator %q (%s) not recorded", c.token, c.kind)
		}
	}
	if has("+", source.Binary) {
		t.Error("augmented += must not be recorded as binary +")
	}
}

func TestOperatorInStringIgnored(t *testing.T) {
	m := parse(t, "s = 'a + b'\n")
	if len(m.Operators()) != 0 {
		t.Errorf("operators = %+v", m.Operators())
	}
}

func TestParseError(t *testing.T) {
	if _, err := Parse(program.FromSource("bad.py", "def f(:\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWhileOnlyProgram(t *testing.T) {
	m := parse(t, "i = 0\nwhile i < 3:\n    i += 1\n")
	loops := m.Loops()
	if len(loops) != 1 || loops[0].Kind != "while" || loops[0].Line != 2 {
		t.Errorf("loops = %+v", loops)
	}
}

func TestWalkReachesNestedExpressions(t *testing.T) {
	src := `def outer(xs):
    while len(xs) > 0:
        xs = xs[a(1):b(2):c(3)]
    return {d(k): e(v) for k, v in f(xs).items() if g(k)}

h = lambda y: i(y) if j(y) else k(y)
l = [m(z) for z in (n(1), o(2))]
`
	m := parse(t, src)
	got := map[string]bool{}
	for _, c := range m.Calls() {
		got[c.Name()] = true
	}
	for _, name := range []string{"len", "a", "b", "c", "d", "e", "f", "g", "i", "j", "k", "m", "n", "o"} {
		if !got[name] {
			t.Errorf("call %q not found in %v", name, got)
		}
	}
	if loops := m.Loops(); len(loops) != 1 || loops[0].Kind != "while" {
		t.Errorf("loops = %+v", loops)
	}
}
