package builtins

import (
	"testing"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

func exec(t *testing.T, src string) starlark.StringDict {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{TopLevelControl: true, GlobalReassign: true}, thread, "t.star", src, Extra())
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	return globals
}

func TestExtraBuiltins(t *testing.T) {
	g := exec(t, `
a = round(2.5)
b = round(3.14159, 2)
c = sum([1, 2, 3])
d = sum([0.5, 0.25], 1)
e = pow(2, 10)
f = pow(2.0, -1)
g = divmod(7, 2)
h = map(lambda x: x * 2, [1, 2, 3])
i = filter(lambda x: x > 1, [1, 2, 3])
j = isinstance(True, int)
k = isinstance("s", (int, float))
l = filter(None, [0, 1, "", "x"])
m = map(lambda x, y: x + y, [1, 2], [10, 20, 30])
`)
	cases := []struct {
		name string
		want string
	}{
		{"a", "2"},
		{"b", "3.14"},
		{"c", "6"},
		{"d", "1.75"},
		{"e", "1024"},
		{"f", "0.5"},
		{"g", "(3, 1)"},
		{"h", "[2, 4, 6]"},
		{"i", "[2, 3]"},
		{"j", "True"},
		{"k", "False"},
		{"l", `[1, "x"]`},
		{"m", "[11, 22]"},
	}
	for _, tc := range cases {
		if got := g[tc.name].String(); got != tc.want {
			t.Errorf("%s = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIsinstanceRejectsNonTypes(t *testing.T) {
	thread := &starlark.Thread{Name: "test"}
	_, err := starlark.ExecFile(thread, "t.star", `isinstance(1, 2)`, Extra())
	if err == nil {
		t.Fatal("expected error for non-type second argument")
	}
}
