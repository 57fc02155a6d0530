package grader

import (
	"context"
	"sort"
	"strings"

	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/figure"
	"github.com/ormasoftchile/grader/pkg/solution"
)

// Parameter types of ParamSpec.Type.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeList    = "list"
	TypeMapping = "mapping"
	TypeAny     = "any"
)

// ParamSpec describes one dispatch parameter.
type ParamSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// KindSpec describes one check kind reachable through Dispatch.
type KindSpec struct {
	Name        string      `json:"name"`
	Params      []ParamSpec `json:"params"`
	Description string      `json:"description"`

	// bind decodes parameters into a call. Decoding problems are collected
	// on p and the call is never made when there are any.
	bind func(p *params) checkCall
}

// Param looks up a parameter by name.
func (k KindSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range k.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Accepts reports whether name is a parameter of the kind, including the
// feedback parameters every kind takes.
func (k KindSpec) Accepts(name string) bool {
	if name == "pass_feedback" || name == "fail_feedback" {
		return true
	}
	_, ok := k.Param(name)
	return ok
}

// Check validates a parameter set without running anything.
func (k KindSpec) Check(raw map[string]any) error {
	p := &params{kind: k.Name, raw: raw}
	var unknown []string
	for name := range raw {
		if !k.Accepts(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		p.fail("unknown parameter %q", name)
	}
	for _, ps := range k.Params {
		if !ps.Required {
			continue
		}
		if v, ok := raw[ps.Name]; !ok || (v == nil && ps.Type != TypeAny) {
			p.fail("missing required parameter %q", ps.Name)
		}
	}
	p.str("pass_feedback", "")
	p.str("fail_feedback", "")
	if err := p.err(); err != nil {
		return err
	}
	k.bind(p)
	return p.err()
}

func req(name, typ string) ParamSpec { return ParamSpec{Name: name, Type: typ, Required: true} }

func opt(name, typ string, def any) ParamSpec { return ParamSpec{Name: name, Type: typ, Default: def} }

var (
	figNumParam    = opt("fig_num", TypeInteger, 1)
	lineIndexParam = opt("line_index", TypeInteger, 0)
	toleranceParam = opt("tolerance", TypeNumber, compare.DefaultTolerance)
)

type checkCall = func(ctx context.Context, e *Engine, opts []CheckOption) bool

var registry = []KindSpec{
	{
		Name:        "execute_script",
		Description: "Run the candidate once and capture its state",
		Params:      []ParamSpec{opt("variables", TypeList, nil)},
		bind: func(p *params) checkCall {
			names := p.names("variables")
			return func(ctx context.Context, e *Engine, opts []CheckOption) bool {
				return e.ExecuteScript(ctx, names, opts...)
			}
		},
	},
	{
		Name:        "variable_value",
		Description: "Compare a variable against an expected value",
		Params:      []ParamSpec{req("name", TypeString), req("expected", TypeAny), toleranceParam},
		bind: func(p *params) checkCall {
			name, expected, tol := p.str("name", ""), p.get("expected"), p.float("tolerance", compare.DefaultTolerance)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckVariableValue(name, expected, tol, opts...)
			}
		},
	},
	{
		Name:        "variable_type",
		Description: "Check the type of a variable",
		Params:      []ParamSpec{req("name", TypeString), req("type", TypeString)},
		bind: func(p *params) checkCall {
			name, typ := p.str("name", ""), p.str("type", "")
			if p.has("type") && !knownType(typ) {
				p.fail("type must be one of %s, got %q", strings.Join(typeNames, ", "), typ)
			}
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckVariableType(name, typ, opts...)
			}
		},
	},
	{
		Name:        "array_size",
		Description: "Check the element count of an array or list",
		Params: []ParamSpec{
			req("name", TypeString),
			opt("min_size", TypeInteger, nil),
			opt("max_size", TypeInteger, nil),
			opt("exact_size", TypeInteger, nil),
		},
		bind: func(p *params) checkCall {
			name := p.str("name", "")
			lo, hi, exact := p.optInt("min_size"), p.optInt("max_size"), p.optInt("exact_size")
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckArraySize(name, lo, hi, exact, opts...)
			}
		},
	},
	{
		Name:        "array_values_in_range",
		Description: "Check that every element lies within bounds",
		Params: []ParamSpec{
			req("name", TypeString),
			opt("min_value", TypeNumber, nil),
			opt("max_value", TypeNumber, nil),
		},
		bind: func(p *params) checkCall {
			name, lo, hi := p.str("name", ""), p.optFloat("min_value"), p.optFloat("max_value")
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckArrayValuesInRange(name, lo, hi, opts...)
			}
		},
	},
	{
		Name:        "list_equals",
		Description: "Compare a list element by element, optionally ignoring order",
		Params: []ParamSpec{
			req("name", TypeString),
			req("expected", TypeList),
			opt("order_matters", TypeBoolean, true),
			toleranceParam,
		},
		bind: func(p *params) checkCall {
			name, expected := p.str("name", ""), p.list("expected")
			ordered, tol := p.boolean("order_matters", true), p.float("tolerance", compare.DefaultTolerance)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckListEquals(name, expected, ordered, tol, opts...)
			}
		},
	},
	{
		Name:        "array_equals",
		Description: "Compare an array by shape and values",
		Params:      []ParamSpec{req("name", TypeString), req("expected", TypeAny), toleranceParam},
		bind: func(p *params) checkCall {
			name, expected, tol := p.str("name", ""), p.get("expected"), p.float("tolerance", compare.DefaultTolerance)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckArrayEquals(name, expected, tol, opts...)
			}
		},
	},
	{
		Name:        "compare_solution",
		Description: "Run a reference solution and compare variables",
		Params: []ParamSpec{
			req("solution", TypeString),
			req("variables", TypeList),
			toleranceParam,
			opt("require_same_type", TypeBoolean, false),
		},
		bind: func(p *params) checkCall {
			path, names := p.str("solution", ""), p.names("variables")
			tol, same := p.float("tolerance", compare.DefaultTolerance), p.boolean("require_same_type", false)
			return func(ctx context.Context, e *Engine, opts []CheckOption) bool {
				return e.CompareWithSolution(ctx, path, names, tol, same, opts...)
			}
		},
	},
	{
		Name:        "function_exists",
		Description: "Check that a function is defined",
		Params:      []ParamSpec{req("name", TypeString)},
		bind: func(p *params) checkCall {
			name := p.str("name", "")
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckFunctionExists(name, opts...)
			}
		},
	},
	{
		Name:        "function_called",
		Description: "Check that a function is called",
		Params:      []ParamSpec{req("name", TypeString), opt("match_any_prefix", TypeBoolean, false)},
		bind: func(p *params) checkCall {
			name, prefix := p.str("name", ""), p.boolean("match_any_prefix", false)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckFunctionCalled(name, prefix, opts...)
			}
		},
	},
	{
		Name:        "function_not_called",
		Description: "Check that a function is never called",
		Params:      []ParamSpec{req("name", TypeString), opt("match_any_prefix", TypeBoolean, false)},
		bind: func(p *params) checkCall {
			name, prefix := p.str("name", ""), p.boolean("match_any_prefix", false)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckFunctionNotCalled(name, prefix, opts...)
			}
		},
	},
	{
		Name:        "test_function",
		Description: "Call a function with test cases",
		Params:      []ParamSpec{req("name", TypeString), req("cases", TypeList)},
		bind: func(p *params) checkCall {
			name := p.str("name", "")
			var cases []FunctionCase
			for i, entry := range p.entries("cases") {
				args, kwargs := p.call("cases", i, entry)
				fc := FunctionCase{Args: args, Kwargs: kwargs, Expected: entry["expected"]}
				if raw, ok := entry["tolerance"]; ok && raw != nil {
					sub := &params{kind: p.kind, raw: map[string]any{"tolerance": raw}}
					tol := sub.float("tolerance", compare.DefaultTolerance)
					for _, msg := range sub.errs {
						p.fail("cases[%d].%s", i, msg)
					}
					fc.Tolerance = &tol
				}
				cases = append(cases, fc)
			}
			return func(ctx context.Context, e *Engine, opts []CheckOption) bool {
				return e.TestFunction(ctx, name, cases, opts...)
			}
		},
	},
	{
		Name:        "test_function_with_solution",
		Description: "Compare a function with the solution's on the same inputs",
		Params: []ParamSpec{
			req("name", TypeString),
			req("solution", TypeString),
			req("inputs", TypeList),
			toleranceParam,
		},
		bind: func(p *params) checkCall {
			name, path := p.str("name", ""), p.str("solution", "")
			var inputs []solution.Input
			for i, entry := range p.entries("inputs") {
				args, kwargs := p.call("inputs", i, entry)
				inputs = append(inputs, solution.Input{Args: args, Kwargs: kwargs})
			}
			tol := p.float("tolerance", compare.DefaultTolerance)
			return func(ctx context.Context, e *Engine, opts []CheckOption) bool {
				return e.TestFunctionWithSolution(ctx, name, path, inputs, tol, opts...)
			}
		},
	},
	{
		Name:        "variable_relationship",
		Description: "Check var2 = f(var1) for an expression over x",
		Params: []ParamSpec{
			req("var1", TypeString),
			req("var2", TypeString),
			req("relationship", TypeString),
			toleranceParam,
			opt("description", TypeString, nil),
		},
		bind: func(p *params) checkCall {
			v1, v2, rel := p.str("var1", ""), p.str("var2", ""), p.str("relationship", "")
			tol, desc := p.float("tolerance", compare.DefaultTolerance), p.str("description", "")
			p.expression("relationship", rel)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckVariableRelationship(v1, v2, rel, tol, desc, opts...)
			}
		},
	},
	structureKind("for_loop_used", "Check that a for loop is used", (*Engine).CheckForLoopUsed),
	structureKind("while_loop_used", "Check that a while loop is used", (*Engine).CheckWhileLoopUsed),
	structureKind("if_statement_used", "Check that an if statement is used", (*Engine).CheckIfStatementUsed),
	{
		Name:        "operator_used",
		Description: "Check that an operator token appears in the code",
		Params:      []ParamSpec{req("operator", TypeString)},
		bind: func(p *params) checkCall {
			op := p.str("operator", "")
			if p.has("operator") {
				if err := validOperator(op); err != nil {
					p.fail("%v", err)
				}
			}
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckOperatorUsed(op, opts...)
			}
		},
	},
	{
		Name:        "code_contains",
		Description: "Check that the source text contains a phrase",
		Params:      []ParamSpec{req("phrase", TypeString), opt("case_sensitive", TypeBoolean, true)},
		bind: func(p *params) checkCall {
			phrase, cs := p.str("phrase", ""), p.boolean("case_sensitive", true)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckCodeContains(phrase, cs, opts...)
			}
		},
	},
	{
		Name:        "plot_created",
		Description: "Check that at least one figure was drawn",
		bind: func(*params) checkCall {
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotCreated(opts...)
			}
		},
	},
	figureKind("plot_has_title", "Check that the figure has a title", (*Engine).CheckPlotHasTitle),
	figureKind("plot_has_xlabel", "Check that the figure has an x-axis label", (*Engine).CheckPlotHasXLabel),
	figureKind("plot_has_ylabel", "Check that the figure has a y-axis label", (*Engine).CheckPlotHasYLabel),
	{
		Name:        "plot_properties",
		Description: "Check title, labels, legend and grid of a figure",
		Params: []ParamSpec{
			opt("title", TypeString, nil),
			opt("xlabel", TypeString, nil),
			opt("ylabel", TypeString, nil),
			opt("has_legend", TypeBoolean, nil),
			opt("has_grid", TypeBoolean, nil),
			figNumParam,
		},
		bind: func(p *params) checkCall {
			props := PlotProperties{
				Title:     p.optStr("title"),
				XLabel:    p.optStr("xlabel"),
				YLabel:    p.optStr("ylabel"),
				HasLegend: p.optBool("has_legend"),
				HasGrid:   p.optBool("has_grid"),
			}
			fig := p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotProperties(props, fig, opts...)
			}
		},
	},
	{
		Name:        "plot_data",
		Description: "Compare the data of one line",
		Params: []ParamSpec{
			opt("expected_x", TypeList, nil),
			opt("expected_y", TypeList, nil),
			lineIndexParam,
			figNumParam,
			toleranceParam,
		},
		bind: func(p *params) checkCall {
			xs, ys := p.list("expected_x"), p.list("expected_y")
			line, fig := p.integer("line_index", 0), p.integer("fig_num", 1)
			tol := p.float("tolerance", compare.DefaultTolerance)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotData(xs, ys, line, fig, tol, opts...)
			}
		},
	},
	{
		Name:        "plot_data_length",
		Description: "Check the point count of one line",
		Params: []ParamSpec{
			opt("min_length", TypeInteger, nil),
			opt("max_length", TypeInteger, nil),
			opt("exact_length", TypeInteger, nil),
			lineIndexParam,
			figNumParam,
		},
		bind: func(p *params) checkCall {
			lo, hi, exact := p.optInt("min_length"), p.optInt("max_length"), p.optInt("exact_length")
			line, fig := p.integer("line_index", 0), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotDataLength(lo, hi, exact, line, fig, opts...)
			}
		},
	},
	{
		Name:        "plot_color",
		Description: "Check the color of one line",
		Params:      []ParamSpec{req("color", TypeString), lineIndexParam, figNumParam},
		bind: func(p *params) checkCall {
			color := p.str("color", "")
			line, fig := p.integer("line_index", 0), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotColor(color, line, fig, opts...)
			}
		},
	},
	{
		Name:        "plot_line_style",
		Description: "Check one line against a format string such as 'r--'",
		Params:      []ParamSpec{req("style", TypeString), lineIndexParam, figNumParam},
		bind: func(p *params) checkCall {
			style := p.style("style")
			line, fig := p.integer("line_index", 0), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotLineStyle(style, line, fig, opts...)
			}
		},
	},
	{
		Name:        "plot_has_line_style",
		Description: "Check that any line matches a format string",
		Params:      []ParamSpec{req("style", TypeString), figNumParam},
		bind: func(p *params) checkCall {
			style, fig := p.style("style"), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotHasLineStyle(style, fig, opts...)
			}
		},
	},
	{
		Name:        "plot_line_width",
		Description: "Check the width of one line",
		Params:      []ParamSpec{req("width", TypeNumber), lineIndexParam, opt("tolerance", TypeNumber, 0.1), figNumParam},
		bind: func(p *params) checkCall {
			width, line := p.float("width", 0), p.integer("line_index", 0)
			tol, fig := p.float("tolerance", 0.1), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotLineWidth(width, line, tol, fig, opts...)
			}
		},
	},
	{
		Name:        "plot_marker_size",
		Description: "Check the marker size of one line",
		Params:      []ParamSpec{req("size", TypeNumber), lineIndexParam, opt("tolerance", TypeNumber, 0.5), figNumParam},
		bind: func(p *params) checkCall {
			size, line := p.float("size", 0), p.integer("line_index", 0)
			tol, fig := p.float("tolerance", 0.5), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckPlotMarkerSize(size, line, tol, fig, opts...)
			}
		},
	},
	{
		Name:        "multiple_lines",
		Description: "Check that a figure has at least min_lines lines",
		Params:      []ParamSpec{opt("min_lines", TypeInteger, 1), figNumParam},
		bind: func(p *params) checkCall {
			n, fig := p.integer("min_lines", 1), p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckMultipleLines(n, fig, opts...)
			}
		},
	},
	{
		Name:        "function_any_line",
		Description: "Check that some line satisfies y = f(x)",
		Params: []ParamSpec{
			req("function", TypeString),
			opt("min_length", TypeInteger, 1),
			toleranceParam,
			figNumParam,
		},
		bind: func(p *params) checkCall {
			fn, n := p.str("function", ""), p.integer("min_length", 1)
			tol, fig := p.float("tolerance", compare.DefaultTolerance), p.integer("fig_num", 1)
			p.expression("function", fn)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return e.CheckFunctionAnyLine(fn, n, tol, fig, opts...)
			}
		},
	},
	{
		Name:        "compare_plot_with_solution",
		Description: "Compare the style of one line with the solution's plot",
		Params: []ParamSpec{
			req("solution", TypeString),
			lineIndexParam,
			opt("check_color", TypeBoolean, true),
			opt("check_linestyle", TypeBoolean, true),
			opt("check_linewidth", TypeBoolean, true),
			opt("check_marker", TypeBoolean, true),
			opt("check_markersize", TypeBoolean, true),
			opt("linewidth_tolerance", TypeNumber, 0.1),
			opt("markersize_tolerance", TypeNumber, 0.5),
			figNumParam,
		},
		bind: func(p *params) checkCall {
			path, line, fig := p.str("solution", ""), p.integer("line_index", 0), p.integer("fig_num", 1)
			d := DefaultSolutionPlotChecks()
			checks := SolutionPlotChecks{
				Color:               p.boolean("check_color", d.Color),
				LineStyle:           p.boolean("check_linestyle", d.LineStyle),
				LineWidth:           p.boolean("check_linewidth", d.LineWidth),
				Marker:              p.boolean("check_marker", d.Marker),
				MarkerSize:          p.boolean("check_markersize", d.MarkerSize),
				LineWidthTolerance:  p.float("linewidth_tolerance", d.LineWidthTolerance),
				MarkerSizeTolerance: p.float("markersize_tolerance", d.MarkerSizeTolerance),
			}
			return func(ctx context.Context, e *Engine, opts []CheckOption) bool {
				return e.ComparePlotWithSolution(ctx, path, line, fig, checks, opts...)
			}
		},
	},
	{
		Name:        "count_loop_iterations",
		Description: "Check a loop counter variable kept by the candidate",
		Params:      []ParamSpec{req("variable", TypeString), opt("expected", TypeInteger, nil), opt("tolerance", TypeInteger, 0)},
		bind: func(p *params) checkCall {
			name, want, tol := p.str("variable", ""), p.optInt("expected"), p.integer("tolerance", 0)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				_, ok := e.CountLoopIterations(name, want, tol, opts...)
				return ok
			}
		},
	},
	{
		Name:        "instrument_loops",
		Description: "Count loop iterations by running an instrumented copy",
		Params:      []ParamSpec{opt("expected", TypeMapping, nil)},
		bind: func(p *params) checkCall {
			want := p.counts("expected")
			return func(ctx context.Context, e *Engine, opts []CheckOption) bool {
				return e.InstrumentLoops(ctx, want, opts...)
			}
		},
	},
}

func structureKind(name, desc string, fn func(*Engine, ...CheckOption) bool) KindSpec {
	return KindSpec{
		Name:        name,
		Description: desc,
		bind: func(*params) checkCall {
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return fn(e, opts...)
			}
		},
	}
}

func figureKind(name, desc string, fn func(*Engine, int, ...CheckOption) bool) KindSpec {
	return KindSpec{
		Name:        name,
		Description: desc,
		Params:      []ParamSpec{figNumParam},
		bind: func(p *params) checkCall {
			fig := p.integer("fig_num", 1)
			return func(_ context.Context, e *Engine, opts []CheckOption) bool {
				return fn(e, fig, opts...)
			}
		},
	}
}

var byName = func() map[string]KindSpec {
	m := make(map[string]KindSpec, len(registry))
	for _, k := range registry {
		m[k.Name] = k
	}
	return m
}()

// Kinds lists every dispatchable check kind in registry order.
func Kinds() []KindSpec {
	out := make([]KindSpec, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the spec of kind.
func Lookup(kind string) (KindSpec, bool) {
	k, ok := byName[kind]
	return k, ok
}

// Dispatch runs the check named kind with params. An unknown kind or a bad
// parameter is returned as an error and appends no record; everything the
// candidate does wrong is a failed record.
func (e *Engine) Dispatch(ctx context.Context, kind string, raw map[string]any, opts ...CheckOption) (bool, error) {
	spec, ok := Lookup(kind)
	if !ok {
		return false, errors.Newf(errors.UnknownKind, "unknown check kind %q", kind).WithDetail("kind", kind)
	}
	if err := spec.Check(raw); err != nil {
		return false, err
	}
	p := &params{kind: kind, raw: raw}
	run := spec.bind(p)
	if err := p.err(); err != nil {
		return false, err
	}
	if msg := p.str("pass_feedback", ""); msg != "" {
		opts = append(opts, PassFeedback(msg))
	}
	if msg := p.str("fail_feedback", ""); msg != "" {
		opts = append(opts, FailFeedback(msg))
	}
	return run(ctx, e, opts), nil
}

func knownType(name string) bool {
	for _, t := range typeNames {
		if t == name {
			return true
		}
	}
	return false
}

// expression fails p when src does not compile.
func (p *params) expression(name, src string) {
	if src == "" {
		return
	}
	if _, err := compileExpression(src); err != nil {
		p.fail("%s: %v", name, err)
	}
}

// style reads a format string and fails p when it does not parse.
func (p *params) style(name string) string {
	s := p.str(name, "")
	if s == "" {
		return s
	}
	if _, err := figure.ParseFormat(s); err != nil {
		p.fail("%s: %v", name, err)
	}
	return s
}
