package random

import (
	"testing"

	"go.starlark.net/starlark"
)

func draw(t *testing.T, seed int64) starlark.StringDict {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	globals, err := starlark.ExecFile(thread, "t.star", `
a = random.randint(1, 6)
b = random.random()
c = random.choice(["x", "y", "z"])
d = [1, 2, 3, 4, 5]
random.shuffle(d)
e = random.sample(range(10), 3)
`, starlark.StringDict{"random": New(seed).Module()})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	return globals
}

func TestSameSeedSameDraws(t *testing.T) {
	first := draw(t, 42)
	second := draw(t, 42)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		if first[name].String() != second[name].String() {
			t.Errorf("%s differs: %s vs %s", name, first[name], second[name])
		}
	}
}

func TestRandintBounds(t *testing.T) {
	src := New(7)
	thread := &starlark.Thread{Name: "test"}
	for i := 0; i < 200; i++ {
		v, err := starlark.Call(thread, src.Module().Members["randint"], starlark.Tuple{starlark.MakeInt(1), starlark.MakeInt(3)}, nil)
		if err != nil {
			t.Fatalf("randint: %v", err)
		}
		var n int
		if err := starlark.AsInt(v, &n); err != nil || n < 1 || n > 3 {
			t.Fatalf("randint out of range: %s", v)
		}
	}
}

func TestReseed(t *testing.T) {
	src := New(1)
	a := src.Float64()
	src.Seed(1)
	if b := src.Float64(); a != b {
		t.Errorf("reseed did not restart the stream: %v vs %v", a, b)
	}
}

func TestEmptyChoice(t *testing.T) {
	thread := &starlark.Thread{Name: "test"}
	_, err := starlark.ExecFile(thread, "t.star", `random.choice([])`,
		starlark.StringDict{"random": New(0).Module()})
	if err == nil {
		t.Fatal("expected error choosing from an empty list")
	}
}
