package grader

import (
	"fmt"
	"strconv"

	"github.com/ormasoftchile/grader/pkg/compare"
	"github.com/ormasoftchile/grader/pkg/value"
)

// CheckVariableValue compares a captured variable against expected.
// Numbers match within tolerance; containers are compared element by
// element with the same tolerance.
func (e *Engine) CheckVariableValue(name string, expected any, tolerance float64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("variable_value", opts)

	actual, ok := e.variable(c, name)
	if !ok {
		return false
	}
	if actual == nil && expected == nil {
		return e.record(c, true, fmt.Sprintf("'%s' is None as expected", name), expected, actual)
	}
	out := compare.Equal(actual, expected, compare.Policy{Tolerance: tolerance})
	if !out.Equal {
		return e.record(c, false, out.Failure.Describe(name), expected, actual)
	}
	msg := fmt.Sprintf("'%s' = %s", name, value.Repr(actual))
	if value.IsSequence(actual) {
		msg = fmt.Sprintf("'%s' matches expected", name)
	}
	return e.record(c, true, msg, expected, actual)
}

// Type names accepted by CheckVariableType.
var typeNames = []string{"int", "float", "str", "bool", "list", "tuple", "dict", "set", "ndarray", "function", "none", "number"}

// CheckVariableType checks the type of a captured variable. As with
// isinstance, a bool is also an int and a number.
func (e *Engine) CheckVariableType(name, typeName string, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("variable_type", opts)

	actual, ok := e.variable(c, name)
	if !ok {
		return false
	}
	if isType(actual, typeName) {
		return e.record(c, true, fmt.Sprintf("'%s' is of type %s", name, typeName), typeName, value.TypeName(actual))
	}
	return e.record(c, false, fmt.Sprintf("'%s' is %s, expected %s", name, value.TypeName(actual), typeName), typeName, value.TypeName(actual))
}

func isType(v any, typeName string) bool {
	actual := value.TypeName(v)
	switch typeName {
	case "int":
		return actual == "int" || actual == "bool"
	case "number":
		return actual == "int" || actual == "float" || actual == "bool"
	case "none":
		return v == nil
	}
	return actual == typeName
}

// CheckArraySize checks the element count of an array, list or tuple.
// exactSize wins over the bounds; otherwise each supplied bound appends its
// own record.
func (e *Engine) CheckArraySize(name string, minSize, maxSize, exactSize *int, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("array_size", opts)

	actual, ok := e.variable(c, name)
	if !ok {
		return false
	}
	size, err := compare.Size(actual)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("'%s' is not an array or list", name), nil, value.TypeName(actual))
	}
	if exactSize != nil {
		if size != *exactSize {
			return e.record(c, false, fmt.Sprintf("'%s' has %d elements, expected exactly %d", name, size, *exactSize), *exactSize, size)
		}
		return e.record(c, true, fmt.Sprintf("'%s' has exactly %d elements", name, *exactSize), *exactSize, size)
	}
	passed := true
	if minSize != nil {
		if size < *minSize {
			e.record(c, false, fmt.Sprintf("'%s' has %d elements, expected at least %d", name, size, *minSize), *minSize, size)
			passed = false
		} else {
			e.record(c, true, fmt.Sprintf("'%s' has at least %d elements (%d)", name, *minSize, size), *minSize, size)
		}
	}
	if maxSize != nil {
		if size > *maxSize {
			e.record(c, false, fmt.Sprintf("'%s' has %d elements, expected at most %d", name, size, *maxSize), *maxSize, size)
			passed = false
		} else {
			e.record(c, true, fmt.Sprintf("'%s' has at most %d elements (%d)", name, *maxSize, size), *maxSize, size)
		}
	}
	return passed
}

// CheckArrayValuesInRange checks that every element lies within the
// supplied bounds. Each bound appends its own record.
func (e *Engine) CheckArrayValuesInRange(name string, minValue, maxValue *float64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("array_values_in_range", opts)

	actual, ok := e.variable(c, name)
	if !ok {
		return false
	}
	b, err := compare.Range(actual)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("'%s' %v", name, err), nil, value.TypeName(actual))
	}
	below, above := b.Within(minValue, maxValue)
	passed := true
	if minValue != nil {
		if below {
			e.record(c, false, fmt.Sprintf("'%s' has values below %s (min: %s)", name, num(*minValue), num(b.Min)), *minValue, b.Min)
			passed = false
		} else {
			e.record(c, true, fmt.Sprintf("'%s' values >= %s", name, num(*minValue)), *minValue, b.Min)
		}
	}
	if maxValue != nil {
		if above {
			e.record(c, false, fmt.Sprintf("'%s' has values above %s (max: %s)", name, num(*maxValue), num(b.Max)), *maxValue, b.Max)
			passed = false
		} else {
			e.record(c, true, fmt.Sprintf("'%s' values <= %s", name, num(*maxValue)), *maxValue, b.Max)
		}
	}
	return passed
}

// CheckListEquals compares a sequence against expected, optionally as a
// multiset.
func (e *Engine) CheckListEquals(name string, expected []any, orderMatters bool, tolerance float64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("list_equals", opts)

	actual, ok := e.variable(c, name)
	if !ok {
		return false
	}
	if !value.IsSequence(actual) {
		return e.record(c, false, fmt.Sprintf("'%s' is not a list/array", name), expected, value.TypeName(actual))
	}
	out := compare.Equal(actual, expected, compare.Policy{Tolerance: tolerance, Unordered: !orderMatters})
	if orderMatters {
		if out.Equal {
			return e.record(c, true, fmt.Sprintf("'%s' equals expected list", name), expected, actual)
		}
		return e.record(c, false, fmt.Sprintf("'%s' does not equal expected list", name), expected, actual)
	}
	if out.Equal {
		return e.record(c, true, fmt.Sprintf("'%s' contains expected elements", name), expected, actual)
	}
	return e.record(c, false, fmt.Sprintf("'%s' does not contain expected elements", name), expected, actual)
}

// CheckArrayEquals compares an array or nested list against expected:
// shapes first, then every element with numpy.allclose semantics.
func (e *Engine) CheckArrayEquals(name string, expected any, tolerance float64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("array_equals", opts)

	actual, ok := e.variable(c, name)
	if !ok {
		return false
	}
	switch actual.(type) {
	case value.Array, []any, value.Tuple:
	default:
		return e.record(c, false, fmt.Sprintf("'%s' is not a list or array", name), expected, value.TypeName(actual))
	}
	got, ok := value.ToArray(actual)
	if !ok {
		return e.record(c, false, fmt.Sprintf("'%s' could not be converted for comparison", name), expected, actual)
	}
	want, ok := value.ToArray(expected)
	if !ok {
		return e.record(c, false, fmt.Sprintf("expected value for '%s' is not a rectangular numeric array", name), expected, actual)
	}
	if got.ShapeString() != want.ShapeString() {
		return e.record(c, false, fmt.Sprintf("'%s' shape %s != expected %s", name, got.ShapeString(), want.ShapeString()), expected, actual)
	}
	if same, _ := compare.Close(got, want, tolerance); same {
		return e.record(c, true, fmt.Sprintf("'%s' array equals expected", name), expected, actual)
	}
	return e.record(c, false, fmt.Sprintf("'%s' array does not equal expected", name), expected, actual)
}

// CheckVariableRelationship evaluates relationship with x bound to var1
// and compares the result against var2. Over a sequence the expression is
// applied element by element.
func (e *Engine) CheckVariableRelationship(var1, var2, relationship string, tolerance float64, description string, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("variable_relationship", opts)

	if !e.requireExecution(c, "Cannot check relationship: script not executed") {
		return false
	}
	x, ok := e.binding(var1)
	if !ok {
		return e.record(c, false, fmt.Sprintf("Variable '%s' not found", var1), nil, nil)
	}
	y, ok := e.binding(var2)
	if !ok {
		return e.record(c, false, fmt.Sprintf("Variable '%s' not found", var2), nil, nil)
	}
	rel, err := compileExpression(relationship)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Error checking relationship: %v", err), nil, y)
	}
	want, err := rel.apply(x)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Error checking relationship: %v", err), nil, y)
	}
	desc := description
	if desc == "" {
		desc = fmt.Sprintf("%s = f(%s)", var2, var1)
	}
	if matches(y, want, tolerance) {
		return e.record(c, true, "Relationship verified: "+desc, want, y)
	}
	return e.record(c, false, "Relationship failed: "+desc, want, y)
}

// matches uses allclose when either side is a sequence and the comparator
// otherwise.
func matches(got, want any, tolerance float64) bool {
	if value.IsSequence(got) || value.IsSequence(want) {
		ok, err := compare.Close(got, want, tolerance)
		return err == nil && ok
	}
	return compare.Equal(got, want, compare.Policy{Tolerance: tolerance}).Equal
}

// CountLoopIterations reads a counter variable maintained by the candidate
// and, when expected is set, checks it within tolerance. The count is
// returned alongside the verdict.
func (e *Engine) CountLoopIterations(variable string, expected *int, tolerance int, opts ...CheckOption) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("count_loop_iterations", opts)

	if !e.requireExecution(c, "Cannot count iterations: script not executed") {
		return 0, false
	}
	v, ok := e.binding(variable)
	if !ok {
		return 0, e.record(c, false, fmt.Sprintf("Loop counter '%s' not found", variable), expected, nil)
	}
	f, ok := value.AsFloat(v)
	if !ok {
		return 0, e.record(c, false, fmt.Sprintf("Variable '%s' is not a number", variable), expected, v)
	}
	count := int(f)
	if expected == nil {
		return count, e.record(c, true, fmt.Sprintf("Loop counter '%s' = %d", variable, count), nil, count)
	}
	diff := count - *expected
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		return count, e.record(c, true, fmt.Sprintf("Loop ran %d times", count), *expected, count)
	}
	return count, e.record(c, false, fmt.Sprintf("Loop ran %d times, expected %d", count, *expected), *expected, count)
}

// num renders a bound the way it was most likely written: integral values
// without a fractional part.
func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
