package chart

import (
	"strings"
	"testing"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/figure"
)

func run(t *testing.T, s *Session, src string) error {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	predeclared := starlark.StringDict{"plt": s.Module()}
	_, err := starlark.ExecFileOptions(&syntax.FileOptions{TopLevelControl: true}, thread, "prog.star", src, predeclared)
	return err
}

func TestPlotCapturesSeries(t *testing.T) {
	b := NewBackend()
	s := b.Acquire()
	err := run(t, s, `
plt.plot([0, 1, 2], [0, 1, 4], 'r--', label='sq')
plt.title('Squares')
plt.xlabel('x')
plt.ylabel('y')
plt.legend()
plt.grid(True)
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	snaps := s.Release()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 figure, got %d", len(snaps))
	}
	f := snaps[0]
	if f.Number != 1 || f.Title != "Squares" || f.XLabel != "x" || f.YLabel != "y" {
		t.Errorf("unexpected labels: %+v", f)
	}
	if !f.Legend || !f.Grid {
		t.Errorf("expected legend and grid, got legend=%v grid=%v", f.Legend, f.Grid)
	}
	if len(f.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(f.Series))
	}
	line := f.Series[0]
	if line.Color != "#ff0000" || line.LineStyle != "--" || line.Marker != figure.NoneStyle {
		t.Errorf("unexpected style: %+v", line)
	}
	if line.Label != "sq" || line.LineWidth != figure.DefaultLineWidth {
		t.Errorf("unexpected props: %+v", line)
	}
	if got := line.Y; len(got) != 3 || got[2] != 4 {
		t.Errorf("unexpected y data: %v", got)
	}
}

func TestPlotSingleArgumentUsesIndexes(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `plt.plot([5, 6, 7])`); err != nil {
		t.Fatalf("run: %v", err)
	}
	line := s.Release()[0].Series[0]
	if line.X[0] != 0 || line.X[2] != 2 {
		t.Errorf("x = %v, want indexes", line.X)
	}
}

func TestColorCycle(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `
plt.plot([1, 2], [1, 2])
plt.plot([1, 2], [2, 3])
plt.plot([1, 2], [3, 4], color='green')
`); err != nil {
		t.Fatalf("run: %v", err)
	}
	series := s.Release()[0].Series
	if series[0].Color != figure.DefaultCycle[0] || series[1].Color != figure.DefaultCycle[1] {
		t.Errorf("cycle colors = %s, %s", series[0].Color, series[1].Color)
	}
	if series[2].Color != "#008000" || series[2].ColorSpec != "green" {
		t.Errorf("explicit color = %s (%s)", series[2].Color, series[2].ColorSpec)
	}
}

func TestKeywordsOverrideFormat(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `plt.plot([1, 2], [1, 2], 'b-o', color='red', lw=3, ms=9, linestyle=':')`); err != nil {
		t.Fatalf("run: %v", err)
	}
	line := s.Release()[0].Series[0]
	if line.Color != "#ff0000" || line.LineStyle != ":" || line.Marker != "o" {
		t.Errorf("unexpected style: %+v", line)
	}
	if line.LineWidth != 3 || line.MarkerSize != 9 {
		t.Errorf("width=%v size=%v", line.LineWidth, line.MarkerSize)
	}
}

func TestPlotLengthMismatch(t *testing.T) {
	s := NewBackend().Acquire()
	err := run(t, s, `plt.plot([1, 2, 3], [1, 2])`)
	if err == nil || !strings.Contains(err.Error(), "same first dimension") {
		t.Fatalf("expected dimension error, got %v", err)
	}
}

func TestScatterAndBar(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `
plt.scatter([1, 2], [3, 4], s=16)
plt.figure()
plt.bar(['a', 'b', 'c'], [1, 2, 3])
`); err != nil {
		t.Fatalf("run: %v", err)
	}
	snaps := s.Release()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 figures, got %d", len(snaps))
	}
	sc := snaps[0].Series[0]
	if sc.Kind != figure.KindScatter || sc.MarkerSize != 4 || sc.Marker != "o" || sc.LineStyle != figure.NoneStyle {
		t.Errorf("unexpected scatter: %+v", sc)
	}
	bar := snaps[1].Series[0]
	if bar.Kind != figure.KindBar || len(bar.X) != 3 || bar.X[2] != 2 {
		t.Errorf("unexpected bar: %+v", bar)
	}
}

func TestSubplotsAxes(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `
fig, ax = plt.subplots()
ax.plot([1, 2], [1, 2])
ax.set_title('T')
ax.legend(['only'])
n = fig.number
`); err != nil {
		t.Fatalf("run: %v", err)
	}
	f := s.Release()[0]
	if f.Title != "T" || !f.Legend || f.Series[0].Label != "only" {
		t.Errorf("unexpected figure: %+v", f)
	}
}

func TestFigureNumbersAndClose(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `
plt.figure(3)
plt.plot([1], [1])
plt.figure()
plt.plot([1], [1])
plt.close(3)
nums = plt.get_fignums()
if nums != [4]:
    fail("fignums %s" % nums)
`); err != nil {
		t.Fatalf("run: %v", err)
	}
	snaps := s.Release()
	if len(snaps) != 1 || snaps[0].Number != 4 {
		t.Fatalf("unexpected figures: %+v", snaps)
	}
}

func TestGridToggle(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `
plt.plot([1], [1])
plt.grid()
plt.grid()
`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.Release()[0].Grid {
		t.Error("grid toggled twice should be off")
	}
}

func TestStaleSessionWritesDropped(t *testing.T) {
	b := NewBackend()
	old := b.Acquire()
	fresh := b.Acquire()

	if err := run(t, old, `plt.plot([1, 2], [1, 2])`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if snaps := fresh.Release(); len(snaps) != 0 {
		t.Fatalf("stale session leaked %d figures", len(snaps))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	b := NewBackend()
	s := b.Acquire()
	if err := run(t, s, `plt.plot([1], [1])`); err != nil {
		t.Fatalf("run: %v", err)
	}
	first := s.Release()
	if err := run(t, s, `plt.plot([2], [2])`); err != nil {
		t.Fatalf("run after release: %v", err)
	}
	second := s.Release()
	if len(first) != 1 || len(second) != 1 || len(second[0].Series) != 1 {
		t.Fatalf("release not stable: %+v vs %+v", first, second)
	}
	if next := b.Acquire().Release(); len(next) != 0 {
		t.Fatalf("registry not reset: %+v", next)
	}
}

func TestRGBTupleColor(t *testing.T) {
	s := NewBackend().Acquire()
	if err := run(t, s, `plt.plot([1], [1], color=(1.0, 0.5, 0.0))`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if c := s.Release()[0].Series[0].Color; c != "#ff8000" {
		t.Errorf("color = %s", c)
	}
}
