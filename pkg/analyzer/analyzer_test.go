package analyzer

import (
	"context"
	"testing"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/program"
)

const candidate = `import numpy as np

def compute_mean(values):
    return np.mean(values)

def helper():
    def inner():
        pass
    return inner

data = np.linspace(0, 1, 5)
result = compute_mean(data)
s = sorted([3, 1, 2])
note = "x + y"  # a - b
count = 0
while count < 3:
    count += 1
`

func analyze(src string) *Analyzer {
	return New(context.Background(), program.FromSource("candidate.py", src))
}

func TestDefinesFunction(t *testing.T) {
	a := analyze(candidate)
	for name, want := range map[string]bool{
		"compute_mean": true,
		"inner":        true,
		"compute":      false,
		"mean":         false,
	} {
		got, err := a.DefinesFunction(name)
		if err != nil {
			t.Fatalf("DefinesFunction(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("DefinesFunction(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCallsFunction(t *testing.T) {
	a := analyze(candidate)
	tests := []struct {
		name      string
		anyPrefix bool
		found     bool
		match     string
	}{
		{"np.mean", false, true, "np.mean"},
		{"mean", false, true, "np.mean"},
		{"numpy.mean", false, false, ""},
		{"numpy.mean", true, true, "np.mean"},
		{"linspace", true, true, "np.linspace"},
		{"sorted", false, true, "sorted"},
		{"np.sorted", false, false, ""},
		{"sum", false, false, ""},
	}
	for _, tt := range tests {
		got, err := a.CallsFunction(tt.name, tt.anyPrefix)
		if err != nil {
			t.Fatalf("CallsFunction(%q): %v", tt.name, err)
		}
		if got.Found != tt.found || got.Name != tt.match {
			t.Errorf("CallsFunction(%q, %v) = %+v, want found=%v name=%q", tt.name, tt.anyPrefix, got, tt.found, tt.match)
		}
	}
}

func TestControlStructures(t *testing.T) {
	a := analyze(candidate)
	if ok, _ := a.UsesLoopKind("while"); !ok {
		t.Error("while loop not detected")
	}
	if ok, _ := a.UsesLoopKind("for"); ok {
		t.Error("for loop reported but none exists")
	}
	if ok, _ := a.UsesBranch(); ok {
		t.Error("branch reported but none exists")
	}
	if _, err := a.UsesLoopKind("until"); !errors.Is(err, errors.InvalidParam) {
		t.Errorf("unknown loop kind: got %v", err)
	}
}

func TestUsesOperator(t *testing.T) {
	a := analyze(candidate)
	tests := []struct {
		token string
		want  bool
	}{
		{"+=", true},
		{"<", true},
		{"+", false}, // only inside a string and as part of +=
		{"-", false}, // only inside a comment
		{"==", false},
	}
	for _, tt := range tests {
		got, err := a.UsesOperator(tt.token)
		if err != nil {
			t.Fatalf("UsesOperator(%q): %v", tt.token, err)
		}
		if got != tt.want {
			t.Errorf("UsesOperator(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
	if _, err := a.UsesOperator("<=>"); !errors.Is(err, errors.InvalidParam) {
		t.Errorf("unknown operator: got %v", err)
	}
}

func TestPythonFallback(t *testing.T) {
	a := analyze("x = 2 ** 10\nif x is not None:\n    print(x)\n")
	if a.ParseError() == nil {
		t.Fatal("expected the Starlark parser to reject **")
	}
	if a.Model() == nil || a.Model().Language() != "python" {
		t.Fatalf("expected python model, got %v", a.Model())
	}
	if ok, err := a.UsesOperator("**"); err != nil || !ok {
		t.Errorf("UsesOperator(**) = %v, %v", ok, err)
	}
	if ok, err := a.UsesOperator("is not"); err != nil || !ok {
		t.Errorf("UsesOperator(is not) = %v, %v", ok, err)
	}
	if ok, _ := a.UsesBranch(); !ok {
		t.Error("branch not detected through fallback")
	}
}

func TestSyntaxUnavailable(t *testing.T) {
	a := analyze("def broken(:\n    return\n")
	if _, err := a.DefinesFunction("broken"); !errors.Is(err, errors.SyntaxUnavailable) {
		t.Errorf("DefinesFunction: got %v", err)
	}
	if _, err := a.CallsFunction("print", false); !errors.Is(err, errors.SyntaxUnavailable) {
		t.Errorf("CallsFunction: got %v", err)
	}
	if _, err := a.UsesBranch(); !errors.Is(err, errors.SyntaxUnavailable) {
		t.Errorf("UsesBranch: got %v", err)
	}
	if !a.ContainsPhrase("def broken", true) {
		t.Error("ContainsPhrase must work on unparsable source")
	}
}

func TestContainsPhrase(t *testing.T) {
	a := analyze(candidate)
	if !a.ContainsPhrase("np.linspace", true) {
		t.Error("phrase not found")
	}
	if a.ContainsPhrase("NP.LINSPACE", true) {
		t.Error("case-sensitive search matched different case")
	}
	if !a.ContainsPhrase("NP.LINSPACE", false) {
		t.Error("case-insensitive search failed")
	}
}

func TestFacts(t *testing.T) {
	f := analyze(candidate).Facts()
	if f.Language != "starlark" || len(f.FunctionDefs) != 3 || len(f.Loops) != 1 {
		t.Errorf("facts = %+v", f)
	}
}
