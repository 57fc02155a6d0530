package grader

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/figure"
	"github.com/ormasoftchile/grader/pkg/value"
)

func (e *Engine) figures(c *check) (*figure.Introspector, bool) {
	if !e.requireExecution(c, "Cannot check plot: script not executed") {
		return nil, false
	}
	return figure.New(e.result.Figures), true
}

// figure returns figure n, recording "Figure n not found".
func (e *Engine) figure(c *check, n int) (figure.Snapshot, bool) {
	in, ok := e.figures(c)
	if !ok {
		return figure.Snapshot{}, false
	}
	fig, err := in.Figure(n)
	if err != nil {
		e.record(c, false, err.Error(), n, in.Numbers())
		return figure.Snapshot{}, false
	}
	return fig, true
}

// series returns series idx of figure n, recording what is missing.
func (e *Engine) series(c *check, n, idx int) (figure.Series, bool) {
	fig, ok := e.figure(c, n)
	if !ok {
		return figure.Series{}, false
	}
	s, err := fig.SeriesAt(idx)
	if err != nil {
		e.record(c, false, err.Error(), idx, len(fig.Series))
		return figure.Series{}, false
	}
	return s, true
}

// CheckPlotCreated checks that the candidate drew at least one figure.
func (e *Engine) CheckPlotCreated(opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_created", opts)
	in, ok := e.figures(c)
	if !ok {
		return false
	}
	if in.Any() {
		return e.record(c, true, "Plot created", nil, in.Numbers())
	}
	return e.record(c, false, "No plot created", nil, nil)
}

// CheckPlotHasTitle checks for a non-blank title.
func (e *Engine) CheckPlotHasTitle(figNum int, opts ...CheckOption) bool {
	return e.hasText("plot_has_title", figNum, "title", func(f figure.Snapshot) string { return f.Title }, opts)
}

// CheckPlotHasXLabel checks for a non-blank x-axis label.
func (e *Engine) CheckPlotHasXLabel(figNum int, opts ...CheckOption) bool {
	return e.hasText("plot_has_xlabel", figNum, "x-axis label", func(f figure.Snapshot) string { return f.XLabel }, opts)
}

// CheckPlotHasYLabel checks for a non-blank y-axis label.
func (e *Engine) CheckPlotHasYLabel(figNum int, opts ...CheckOption) bool {
	return e.hasText("plot_has_ylabel", figNum, "y-axis label", func(f figure.Snapshot) string { return f.YLabel }, opts)
}

func (e *Engine) hasText(kind string, figNum int, what string, get func(figure.Snapshot) string, opts []CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck(kind, opts)
	fig, ok := e.figure(c, figNum)
	if !ok {
		return false
	}
	text := get(fig)
	if strings.TrimSpace(text) != "" {
		return e.record(c, true, fmt.Sprintf("Plot has %s: '%s'", what, text), nil, text)
	}
	return e.record(c, false, "Plot is missing "+what, nil, text)
}

// PlotProperties are the optional expectations of CheckPlotProperties.
type PlotProperties struct {
	Title     *string
	XLabel    *string
	YLabel    *string
	HasLegend *bool
	HasGrid   *bool
}

// CheckPlotProperties checks each supplied property of a figure. Every
// property appends its own record.
func (e *Engine) CheckPlotProperties(props PlotProperties, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_properties", opts)
	fig, ok := e.figure(c, figNum)
	if !ok {
		return false
	}
	passed := true
	text := func(want *string, got, label string) {
		if want == nil {
			return
		}
		if got == *want {
			e.record(c, true, fmt.Sprintf("%s: '%s'", label, *want), *want, got)
			return
		}
		e.record(c, false, fmt.Sprintf("%s is '%s', expected '%s'", label, got, *want), *want, got)
		passed = false
	}
	flag := func(want *bool, got bool, what string) {
		if want == nil {
			return
		}
		if got == *want {
			verb := "has"
			if !*want {
				verb = "does not have"
			}
			e.record(c, true, fmt.Sprintf("Plot %s %s", verb, what), *want, got)
			return
		}
		verb := "should have"
		if !*want {
			verb = "should not have"
		}
		e.record(c, false, fmt.Sprintf("Plot %s %s", verb, what), *want, got)
		passed = false
	}
	text(props.Title, fig.Title, "Plot title")
	text(props.XLabel, fig.XLabel, "X-axis label")
	text(props.YLabel, fig.YLabel, "Y-axis label")
	flag(props.HasLegend, fig.Legend, "legend")
	flag(props.HasGrid, fig.Grid, "grid")
	return passed
}

// CheckPlotData compares the data of one series. Each supplied axis
// appends its own record.
func (e *Engine) CheckPlotData(expectedX, expectedY []any, lineIndex, figNum int, tolerance float64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_data", opts)
	s, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	passed := true
	axis := func(label string, want []any, got []float64) {
		if want == nil {
			return
		}
		if same, err := compare.Close(got, want, tolerance); err == nil && same {
			e.record(c, true, fmt.Sprintf("%s data matches (line %d)", label, lineIndex), want, got)
			return
		}
		e.record(c, false, fmt.Sprintf("%s data does not match (line %d)", label, lineIndex), want, got)
		passed = false
	}
	axis("X-axis", expectedX, s.X)
	axis("Y-axis", expectedY, s.Y)
	return passed
}

// CheckPlotDataLength checks the point count of one series. exactLength
// wins over the bounds; otherwise each bound appends its own record.
func (e *Engine) CheckPlotDataLength(minLength, maxLength, exactLength *int, lineIndex, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_data_length", opts)
	s, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	n := len(s.X)
	if exactLength != nil {
		if n != *exactLength {
			return e.record(c, false, fmt.Sprintf("Line has %d points, expected %d", n, *exactLength), *exactLength, n)
		}
		return e.record(c, true, fmt.Sprintf("Line has exactly %d data points", *exactLength), *exactLength, n)
	}
	passed := true
	if minLength != nil {
		if n < *minLength {
			e.record(c, false, fmt.Sprintf("Line has %d points, minimum is %d", n, *minLength), *minLength, n)
			passed = false
		} else {
			e.record(c, true, fmt.Sprintf("Line has at least %d data points", *minLength), *minLength, n)
		}
	}
	if maxLength != nil {
		if n > *maxLength {
			e.record(c, false, fmt.Sprintf("Line has %d points, maximum is %d", n, *maxLength), *maxLength, n)
			passed = false
		} else {
			e.record(c, true, fmt.Sprintf("Line has at most %d data points", *maxLength), *maxLength, n)
		}
	}
	return passed
}

// CheckPlotColor compares the color of one series within 0.01 per RGB
// channel.
func (e *Engine) CheckPlotColor(color string, lineIndex, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_color", opts)
	s, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	same, err := figure.SameColor(s.Color, color)
	if err != nil {
		return e.record(c, false, "Could not compare colors", color, s.Color)
	}
	if same {
		return e.record(c, true, fmt.Sprintf("Line color is %s", color), color, s.Color)
	}
	return e.record(c, false, "Line color mismatch", color, s.Color)
}

// CheckPlotLineStyle checks one series against a format string such as
// "r--" or "bo". Each mismatching property appends its own record; a
// match appends one.
func (e *Engine) CheckPlotLineStyle(style string, lineIndex, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_line_style", opts)
	s, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	problems, err := figure.MatchStyle(s, style, lineIndex)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Invalid line style '%s': %v", style, err), style, nil)
	}
	for _, p := range problems {
		e.record(c, false, p, style, nil)
	}
	if len(problems) > 0 {
		return false
	}
	return e.record(c, true, fmt.Sprintf("Line %d has correct style '%s'", lineIndex, style), style, nil)
}

// CheckPlotHasLineStyle checks that any series of the figure matches the
// format string.
func (e *Engine) CheckPlotHasLineStyle(style string, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_has_line_style", opts)
	fig, ok := e.figure(c, figNum)
	if !ok {
		return false
	}
	if len(fig.Series) == 0 {
		return e.record(c, false, "No lines found", style, nil)
	}
	for i, s := range fig.Series {
		problems, err := figure.MatchStyle(s, style, i)
		if err != nil {
			return e.record(c, false, fmt.Sprintf("Invalid line style '%s': %v", style, err), style, nil)
		}
		if len(problems) == 0 {
			return e.record(c, true, fmt.Sprintf("Found line with style '%s'", style), style, i)
		}
	}
	return e.record(c, false, fmt.Sprintf("No line found with style '%s'", style), style, nil)
}

// CheckPlotLineWidth compares the width of one series within tolerance.
func (e *Engine) CheckPlotLineWidth(width float64, lineIndex int, tolerance float64, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_line_width", opts)
	s, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	got := value.FormatFloat(s.LineWidth)
	if math.Abs(s.LineWidth-width) <= tolerance {
		return e.record(c, true, fmt.Sprintf("Line %d width is %s", lineIndex, got), width, s.LineWidth)
	}
	return e.record(c, false, fmt.Sprintf("Line %d width is %s, expected %s", lineIndex, got, value.FormatFloat(width)), width, s.LineWidth)
}

// CheckPlotMarkerSize compares the marker size of one series within
// tolerance.
func (e *Engine) CheckPlotMarkerSize(size float64, lineIndex int, tolerance float64, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("plot_marker_size", opts)
	s, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	got := value.FormatFloat(s.MarkerSize)
	if math.Abs(s.MarkerSize-size) <= tolerance {
		return e.record(c, true, fmt.Sprintf("Line %d marker size is %s", lineIndex, got), size, s.MarkerSize)
	}
	return e.record(c, false, fmt.Sprintf("Line %d marker size is %s, expected %s", lineIndex, got, value.FormatFloat(size)), size, s.MarkerSize)
}

// CheckMultipleLines checks that the figure has at least minLines series.
func (e *Engine) CheckMultipleLines(minLines, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("multiple_lines", opts)
	fig, ok := e.figure(c, figNum)
	if !ok {
		return false
	}
	n := len(fig.Series)
	if n >= minLines {
		return e.record(c, true, fmt.Sprintf("Plot has %d lines (minimum: %d)", n, minLines), minLines, n)
	}
	return e.record(c, false, fmt.Sprintf("Plot has %d lines, expected at least %d", n, minLines), minLines, n)
}

// CheckFunctionAnyLine checks whether any series with at least minLength
// points satisfies y = f(x) for the expression f over x.
func (e *Engine) CheckFunctionAnyLine(function string, minLength int, tolerance float64, figNum int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("function_any_line", opts)
	fig, ok := e.figure(c, figNum)
	if !ok {
		return false
	}
	fn, err := compileExpression(function)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Error evaluating function: %v", err), function, nil)
	}
	for i, s := range fig.Series {
		if len(s.X) < minLength {
			continue
		}
		want, err := fn.apply(value.Array{Shape: []int{len(s.X)}, Data: s.X})
		if err != nil {
			continue
		}
		if same, err := compare.Close(s.Y, want, tolerance); err == nil && same {
			return e.record(c, true, fmt.Sprintf("Line %d matches expected function", i), function, i)
		}
	}
	return e.record(c, false, "No line matches expected function", function, nil)
}

// SolutionPlotChecks selects the properties ComparePlotWithSolution
// compares.
type SolutionPlotChecks struct {
	Color               bool
	LineStyle           bool
	LineWidth           bool
	Marker              bool
	MarkerSize          bool
	LineWidthTolerance  float64
	MarkerSizeTolerance float64
}

// DefaultSolutionPlotChecks compares every property.
func DefaultSolutionPlotChecks() SolutionPlotChecks {
	return SolutionPlotChecks{
		Color:               true,
		LineStyle:           true,
		LineWidth:           true,
		Marker:              true,
		MarkerSize:          true,
		LineWidthTolerance:  0.1,
		MarkerSizeTolerance: 0.5,
	}
}

// ComparePlotWithSolution compares one series of the candidate's figure
// with the same series of the first figure the solution draws. Each
// differing property appends its own record; a match appends one.
func (e *Engine) ComparePlotWithSolution(ctx context.Context, solutionPath string, lineIndex, figNum int, checks SolutionPlotChecks, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("compare_plot_with_solution", opts)
	got, ok := e.series(c, figNum, lineIndex)
	if !ok {
		return false
	}
	sol, ok := e.loadSolution(c, solutionPath, "Solution file not found")
	if !ok {
		return false
	}
	snaps, err := e.differ.Figures(ctx, sol)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Error comparing with solution: %v", err), nil, nil)
	}
	first, err := figure.New(snaps).First()
	if err != nil {
		return e.record(c, false, "Solution did not create a plot", nil, nil)
	}
	want, err := first.SeriesAt(lineIndex)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Line %d not found in solution", lineIndex), nil, nil)
	}

	var problems []string
	if checks.Color {
		if same, err := figure.SameColor(got.Color, want.Color); err == nil && !same {
			problems = append(problems, "Line color differs from solution")
		}
	}
	if checks.LineStyle {
		a, _ := figure.NormalizeLineStyle(got.LineStyle)
		b, _ := figure.NormalizeLineStyle(want.LineStyle)
		if a != b {
			problems = append(problems, "Line style differs from solution")
		}
	}
	if checks.LineWidth && math.Abs(got.LineWidth-want.LineWidth) > checks.LineWidthTolerance {
		problems = append(problems, "Line width differs from solution")
	}
	if checks.Marker && got.Marker != want.Marker {
		problems = append(problems, "Marker style differs from solution")
	}
	if checks.MarkerSize && math.Abs(got.MarkerSize-want.MarkerSize) > checks.MarkerSizeTolerance {
		problems = append(problems, "Marker size differs from solution")
	}
	for _, p := range problems {
		e.record(c, false, p, want, got)
	}
	if len(problems) > 0 {
		return false
	}
	return e.record(c, true, fmt.Sprintf("Line %d properties match solution", lineIndex), want, got)
}
