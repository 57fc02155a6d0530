// Package value is the native model for values captured from a sandbox run.
//
// Scalars map to int64, float64, string, bool and nil. Lists become []any,
// tuples Tuple, dicts map[string]any, sets Set, ndarrays Array and callables
// Function. Anything else is kept as an Opaque description.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
)

// Tuple is an immutable sequence.
type Tuple []any

// Set holds the elements of a set in iteration order.
type Set []any

// Array is a dense numeric n-dimensional array in row-major order.
type Array struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Function is a captured callable. Callable is nil when the value crossed
// a process boundary.
type Function struct {
	Name     string            `json:"name"`
	Callable starlark.Callable `json:"-"`
}

// Opaque describes a value with no native counterpart (modules, builtins).
type Opaque struct {
	Type string `json:"type"`
	Repr string `json:"repr"`
}

// Size is the total element count.
func (a Array) Size() int {
	if len(a.Shape) == 0 {
		return len(a.Data)
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Nested converts the array back to nested []any of float64.
func (a Array) Nested() any {
	if len(a.Shape) <= 1 {
		out := make([]any, len(a.Data))
		for i, f := range a.Data {
			out[i] = f
		}
		return out
	}
	if a.Shape[0] <= 0 {
		return []any{}
	}
	stride := len(a.Data) / a.Shape[0]
	out := make([]any, a.Shape[0])
	for i := range out {
		sub := Array{Shape: a.Shape[1:], Data: a.Data[i*stride : (i+1)*stride]}
		out[i] = sub.Nested()
	}
	return out
}

// ShapeString renders the shape as a Python tuple, e.g. (1, 3) or (3,).
func (a Array) ShapeString() string {
	return ShapeString(a.Shape)
}

// ShapeString renders dims as a Python tuple.
func ShapeString(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// AsFloat returns v as a float64 when it is numeric. Booleans are not numeric.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// IsNumber reports whether v is numeric.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

// AsSlice returns the elements of any sequence-like value: []any, Tuple,
// Set, a 1-D Array, or a typed Go slice of numbers or strings.
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case Tuple:
		return []any(s), true
	case Set:
		return []any(s), true
	case Array:
		nested, _ := s.Nested().([]any)
		return nested, true
	case []float64:
		out := make([]any, len(s))
		for i, f := range s {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]any, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i, str := range s {
			out[i] = str
		}
		return out, true
	}
	return nil, false
}

// IsSequence reports whether v is list-like (not a mapping, not a string).
func IsSequence(v any) bool {
	_, ok := AsSlice(v)
	return ok
}

// ToArray interprets v as a rectangular numeric array. Scalars yield a
// zero-dimensional array. Ragged or non-numeric input returns false.
func ToArray(v any) (Array, bool) {
	if a, ok := v.(Array); ok {
		return a, true
	}
	if f, ok := AsFloat(v); ok {
		return Array{Shape: []int{}, Data: []float64{f}}, true
	}
	items, ok := AsSlice(v)
	if !ok {
		return Array{}, false
	}
	if len(items) == 0 {
		return Array{Shape: []int{0}}, true
	}
	var shape []int
	var data []float64
	for i, item := range items {
		sub, ok := ToArray(item)
		if !ok {
			return Array{}, false
		}
		if i == 0 {
			shape = append([]int{len(items)}, sub.Shape...)
		} else if !sameShape(shape[1:], sub.Shape) {
			return Array{}, false
		}
		data = append(data, sub.Data...)
	}
	return Array{Shape: shape, Data: data}, true
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TypeName returns the Python type name of a native value.
func TypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case Tuple:
		return "tuple"
	case map[string]any:
		return "dict"
	case Set:
		return "set"
	case Array:
		return "ndarray"
	case Function:
		return "function"
	case Opaque:
		return t.Type
	}
	return fmt.Sprintf("%T", v)
}

// Repr renders v the way Python's repr would, for display in messages.
func Repr(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case string:
		return "'" + strings.ReplaceAll(t, "'", `\'`) + "'"
	case float32:
		return FormatFloat(float64(t))
	case float64:
		return FormatFloat(t)
	case []any:
		return "[" + joinRepr(t) + "]"
	case Tuple:
		if len(t) == 1 {
			return "(" + Repr(t[0]) + ",)"
		}
		return "(" + joinRepr(t) + ")"
	case Set:
		if len(t) == 0 {
			return "set()"
		}
		return "{" + joinRepr(t) + "}"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = Repr(k) + ": " + Repr(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Array:
		return "array(" + Repr(t.Nested()) + ")"
	case Function:
		return "<function " + t.Name + ">"
	case Opaque:
		return t.Repr
	}
	return fmt.Sprint(v)
}

// Str renders v the way Python's str would: strings are unquoted.
func Str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}

func joinRepr(items []any) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = Repr(it)
	}
	return strings.Join(parts, ", ")
}

// FormatFloat renders f like Python: shortest round-trip form, always with
// a decimal point or exponent.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	var s string
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
