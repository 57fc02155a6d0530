package grader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/grader/pkg/errors"
)

func TestKindsRegistry(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds() {
		assert.False(t, seen[k.Name], "duplicate kind %s", k.Name)
		seen[k.Name] = true
		assert.NotNil(t, k.bind, k.Name)
		assert.NotEmpty(t, k.Description, k.Name)
	}
	for _, name := range []string{
		"execute_script", "variable_value", "variable_type", "array_size", "array_values_in_range",
		"list_equals", "array_equals", "compare_solution", "function_exists", "function_called",
		"function_not_called", "test_function", "test_function_with_solution", "variable_relationship",
		"for_loop_used", "while_loop_used", "if_statement_used", "operator_used", "code_contains",
		"plot_created", "plot_has_title", "plot_has_xlabel", "plot_has_ylabel", "plot_properties",
		"plot_data", "plot_data_length", "plot_color", "plot_line_style", "plot_has_line_style",
		"plot_line_width", "plot_marker_size", "multiple_lines", "function_any_line",
		"compare_plot_with_solution", "count_loop_iterations", "instrument_loops",
	} {
		assert.True(t, seen[name], "missing kind %s", name)
	}
}

func TestDispatch_UsageErrors(t *testing.T) {
	e := executed(t, "x = 1\n")
	n := len(e.Records())
	ctx := context.Background()

	tests := []struct {
		name   string
		kind   string
		params map[string]any
		code   errors.ErrorCode
	}{
		{"unknown kind", "variable_colour", nil, errors.UnknownKind},
		{"missing required", "variable_value", map[string]any{"name": "x"}, errors.InvalidParam},
		{"unknown param", "variable_value", map[string]any{"name": "x", "expected": 1, "tol": 1}, errors.InvalidParam},
		{"wrong type", "variable_value", map[string]any{"name": 3, "expected": 1}, errors.InvalidParam},
		{"bad type name", "variable_type", map[string]any{"name": "x", "type": "integer"}, errors.InvalidParam},
		{"bad operator", "operator_used", map[string]any{"operator": "<=>"}, errors.InvalidParam},
		{"bad expression", "function_any_line", map[string]any{"function": "x *"}, errors.InvalidParam},
		{"bad style", "plot_line_style", map[string]any{"style": "zz"}, errors.InvalidParam},
		{"fractional integer", "multiple_lines", map[string]any{"min_lines": 1.5}, errors.InvalidParam},
		{"bad case", "test_function", map[string]any{"name": "f", "cases": []any{1}}, errors.InvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := e.Dispatch(ctx, tt.kind, tt.params)
			assert.False(t, ok)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
	assert.Len(t, e.Records(), n, "usage errors append no record")
}

func TestDispatch_RunsChecks(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, `
def square(n):
    return n * n

values = [3, 1, 2]
count = 0
for v in values:
    count += 1
`)
	run := func(kind string, params map[string]any) bool {
		t.Helper()
		ok, err := e.Dispatch(ctx, kind, params)
		require.NoError(t, err, kind)
		return ok
	}

	assert.True(t, run("execute_script", nil))
	assert.True(t, run("variable_value", map[string]any{"name": "count", "expected": 3}))
	assert.True(t, run("variable_type", map[string]any{"name": "values", "type": "list"}))
	assert.True(t, run("list_equals", map[string]any{"name": "values", "expected": []any{1, 2, 3}, "order_matters": false}))
	assert.True(t, run("array_size", map[string]any{"name": "values", "exact_size": 3}))
	assert.True(t, run("function_exists", map[string]any{"name": "square"}))
	assert.True(t, run("for_loop_used", nil))
	assert.True(t, run("count_loop_iterations", map[string]any{"variable": "count", "expected": 3}))
	assert.True(t, run("instrument_loops", map[string]any{"expected": map[string]any{"loop_0": 3}}))
	assert.True(t, run("test_function", map[string]any{
		"name": "square",
		"cases": []any{
			map[string]any{"args": []any{2}, "expected": 4},
			map[string]any{"args": []any{1.5}, "expected": 2.25, "tolerance": 0.001},
		},
	}))
	assert.True(t, run("variable_relationship", map[string]any{"var1": "count", "var2": "count", "relationship": "x"}))
	assert.False(t, run("plot_created", nil))
}

func TestDispatch_Feedback(t *testing.T) {
	e := executed(t, "x = 1\n")
	ok, err := e.Dispatch(context.Background(), "variable_value", map[string]any{
		"name":          "x",
		"expected":      2,
		"fail_feedback": "x should be 2",
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "x should be 2", last(e).Message)
}

func TestDispatch_NullExpected(t *testing.T) {
	e := executed(t, "x = None\n")
	ok, err := e.Dispatch(context.Background(), "variable_value", map[string]any{"name": "x", "expected": nil})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNormalize(t *testing.T) {
	in := map[any]any{"a": 1, "b": []any{int32(2), map[string]any{"c": 3}}}
	assert.Equal(t, map[string]any{
		"a": int64(1),
		"b": []any{int64(2), map[string]any{"c": int64(3)}},
	}, Normalize(in))
}
