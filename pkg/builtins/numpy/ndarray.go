// Package numpy is a small numeric array module exposed to programs as np.
// Arrays are dense float64 in row-major order.
package numpy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/value"
)

// NDArray is the program-visible ndarray.
type NDArray struct {
	shape  []int
	data   []float64
	frozen bool
}

var (
	_ value.ArrayLike      = (*NDArray)(nil)
	_ starlark.HasBinary   = (*NDArray)(nil)
	_ starlark.HasUnary    = (*NDArray)(nil)
	_ starlark.HasSetIndex = (*NDArray)(nil)
	_ starlark.Sliceable   = (*NDArray)(nil)
	_ starlark.Iterable    = (*NDArray)(nil)
	_ starlark.HasAttrs    = (*NDArray)(nil)
)

// New returns an array over data with the given shape. data is not copied.
func New(shape []int, data []float64) *NDArray {
	return &NDArray{shape: shape, data: data}
}

func vector(data []float64) *NDArray {
	return New([]int{len(data)}, data)
}

func (a *NDArray) ArrayShape() []int    { return a.shape }
func (a *NDArray) ArrayData() []float64 { return a.data }

func (a *NDArray) Type() string         { return "ndarray" }
func (a *NDArray) Freeze()              { a.frozen = true }
func (a *NDArray) Truth() starlark.Bool { return len(a.data) > 0 }

func (a *NDArray) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: ndarray")
}

func (a *NDArray) String() string {
	var b strings.Builder
	a.format(&b, a.shape, a.data)
	return b.String()
}

func (a *NDArray) format(b *strings.Builder, shape []int, data []float64) {
	if len(shape) == 0 {
		b.WriteString(formatElem(data[0]))
		return
	}
	b.WriteByte('[')
	if len(shape) == 1 {
		for i, f := range data {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(formatElem(f))
		}
	} else {
		stride := 1
		for _, d := range shape[1:] {
			stride *= d
		}
		for i := 0; i < shape[0]; i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			a.format(b, shape[1:], data[i*stride:(i+1)*stride])
		}
	}
	b.WriteByte(']')
}

func formatElem(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', -1, 64) + "."
	}
	return strconv.FormatFloat(f, 'g', 8, 64)
}

func (a *NDArray) size() int { return len(a.data) }

// stride is the number of elements spanned by one step along axis 0.
func (a *NDArray) stride() int {
	n := 1
	for _, d := range a.shape[1:] {
		n *= d
	}
	return n
}

func (a *NDArray) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

func (a *NDArray) Index(i int) starlark.Value {
	if len(a.shape) == 1 {
		return starlark.Float(a.data[i])
	}
	s := a.stride()
	row := append([]float64(nil), a.data[i*s:(i+1)*s]...)
	return New(append([]int(nil), a.shape[1:]...), row)
}

func (a *NDArray) SetIndex(i int, v starlark.Value) error {
	if a.frozen {
		return fmt.Errorf("cannot assign to element of frozen ndarray")
	}
	s := a.stride()
	if len(a.shape) == 1 {
		f, ok := starlark.AsFloat(v)
		if !ok {
			return fmt.Errorf("ndarray element must be a number, got %s", v.Type())
		}
		a.data[i] = f
		return nil
	}
	src, err := asArray(v)
	if err != nil {
		return err
	}
	switch {
	case src.size() == 1:
		for j := i * s; j < (i+1)*s; j++ {
			a.data[j] = src.data[0]
		}
	case src.size() == s:
		copy(a.data[i*s:(i+1)*s], src.data)
	default:
		return fmt.Errorf("could not broadcast input array from shape %s into shape %s",
			value.ShapeString(src.shape), value.ShapeString(a.shape[1:]))
	}
	return nil
}

func (a *NDArray) Slice(start, end, step int) starlark.Value {
	s := a.stride()
	var data []float64
	n := 0
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		data = append(data, a.data[i*s:(i+1)*s]...)
		n++
	}
	shape := append([]int{n}, a.shape[1:]...)
	if data == nil {
		data = []float64{}
	}
	return New(shape, data)
}

func (a *NDArray) Iterate() starlark.Iterator {
	return &iterator{a: a}
}

type iterator struct {
	a *NDArray
	i int
}

func (it *iterator) Next(p *starlark.Value) bool {
	if it.i >= it.a.Len() {
		return false
	}
	*p = it.a.Index(it.i)
	it.i++
	return true
}

func (it *iterator) Done() {}

func (a *NDArray) Unary(op syntax.Token) (starlark.Value, error) {
	switch op {
	case syntax.MINUS:
		return a.apply(func(f float64) float64 { return -f }), nil
	case syntax.PLUS:
		return a.apply(func(f float64) float64 { return f }), nil
	}
	return nil, nil
}

func (a *NDArray) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	fn, ok := binaryOps[op]
	if !ok {
		return nil, nil
	}
	other, err := asArray(y)
	if err != nil {
		return nil, nil
	}
	left, right := a, other
	if side == starlark.Right {
		left, right = other, a
	}
	return broadcast(left, right, fn)
}

var binaryOps = map[syntax.Token]func(x, y float64) float64{
	syntax.PLUS:  func(x, y float64) float64 { return x + y },
	syntax.MINUS: func(x, y float64) float64 { return x - y },
	syntax.STAR:  func(x, y float64) float64 { return x * y },
	syntax.SLASH: func(x, y float64) float64 { return x / y },
	syntax.SLASHSLASH: func(x, y float64) float64 {
		return math.Floor(x / y)
	},
	syntax.PERCENT: pymod,
}

// pymod takes the sign of the divisor.
func pymod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}

func (a *NDArray) apply(fn func(float64) float64) *NDArray {
	out := make([]float64, len(a.data))
	for i, f := range a.data {
		out[i] = fn(f)
	}
	return New(append([]int(nil), a.shape...), out)
}

// broadcast applies fn elementwise. Equal shapes, a single element on
// either side, or a trailing-dimension match are supported.
func broadcast(x, y *NDArray, fn func(a, b float64) float64) (*NDArray, error) {
	switch {
	case sameShape(x.shape, y.shape):
		out := make([]float64, len(x.data))
		for i := range out {
			out[i] = fn(x.data[i], y.data[i])
		}
		return New(append([]int(nil), x.shape...), out), nil
	case y.size() == 1:
		return x.apply(func(f float64) float64 { return fn(f, y.data[0]) }), nil
	case x.size() == 1:
		return y.apply(func(f float64) float64 { return fn(x.data[0], f) }), nil
	case len(x.shape) > len(y.shape) && sameShape(x.shape[len(x.shape)-len(y.shape):], y.shape):
		out := make([]float64, len(x.data))
		for i := range out {
			out[i] = fn(x.data[i], y.data[i%len(y.data)])
		}
		return New(append([]int(nil), x.shape...), out), nil
	case len(y.shape) > len(x.shape) && sameShape(y.shape[len(y.shape)-len(x.shape):], x.shape):
		out := make([]float64, len(y.data))
		for i := range out {
			out[i] = fn(x.data[i%len(x.data)], y.data[i])
		}
		return New(append([]int(nil), y.shape...), out), nil
	}
	return nil, fmt.Errorf("operands could not be broadcast together with shapes %s %s",
		value.ShapeString(x.shape), value.ShapeString(y.shape))
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

// asArray converts an ndarray, number or rectangular nested sequence.
func asArray(v starlark.Value) (*NDArray, error) {
	if a, ok := v.(*NDArray); ok {
		return a, nil
	}
	if _, isBool := v.(starlark.Bool); isBool {
		if v.Truth() {
			return New([]int{}, []float64{1}), nil
		}
		return New([]int{}, []float64{0}), nil
	}
	arr, ok := value.ToArray(value.FromStarlark(v))
	if !ok {
		return nil, fmt.Errorf("cannot convert %s to ndarray", v.Type())
	}
	if arr.Data == nil {
		arr.Data = []float64{}
	}
	return New(arr.Shape, append([]float64(nil), arr.Data...)), nil
}

var arrayAttrs = []string{
	"T", "argmax", "argmin", "copy", "cumsum", "dtype", "flatten", "max", "mean",
	"min", "ndim", "reshape", "shape", "size", "std", "sum", "tolist",
}

func (a *NDArray) AttrNames() []string { return arrayAttrs }

func (a *NDArray) Attr(name string) (starlark.Value, error) {
	switch name {
	case "shape":
		dims := make(starlark.Tuple, len(a.shape))
		for i, d := range a.shape {
			dims[i] = starlark.MakeInt(d)
		}
		return dims, nil
	case "size":
		return starlark.MakeInt(a.size()), nil
	case "ndim":
		return starlark.MakeInt(len(a.shape)), nil
	case "dtype":
		return starlark.String("float64"), nil
	case "T":
		return transpose(a), nil
	case "tolist":
		return method(name, func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
			return value.ToStarlark(value.Array{Shape: a.shape, Data: a.data}.Nested())
		}), nil
	case "copy", "flatten":
		return method(name, func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
			data := append([]float64(nil), a.data...)
			if name == "flatten" {
				return vector(data), nil
			}
			return New(append([]int(nil), a.shape...), data), nil
		}), nil
	case "reshape":
		return method(name, func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			if len(args) == 1 {
				if t, ok := args[0].(starlark.Tuple); ok {
					args = t
				}
			}
			return reshape(a, args)
		}), nil
	case "sum", "mean", "max", "min", "std", "argmax", "argmin", "cumsum":
		red := reductions[name]
		return method(name, func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			return red(thread, fn, append(starlark.Tuple{a}, args...), kwargs)
		}), nil
	}
	return nil, nil
}

func method(name string, fn func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, fn)
}

func transpose(a *NDArray) *NDArray {
	if len(a.shape) != 2 {
		return New(append([]int(nil), a.shape...), append([]float64(nil), a.data...))
	}
	r, c := a.shape[0], a.shape[1]
	out := make([]float64, len(a.data))
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j*r+i] = a.data[i*c+j]
		}
	}
	return New([]int{c, r}, out)
}

func reshape(a *NDArray, dims starlark.Tuple) (*NDArray, error) {
	shape := make([]int, len(dims))
	unknown := -1
	known := 1
	for i, d := range dims {
		if err := starlark.AsInt(d, &shape[i]); err != nil {
			return nil, fmt.Errorf("reshape: dimensions must be integers")
		}
		if shape[i] == -1 {
			if unknown >= 0 {
				return nil, fmt.Errorf("reshape: can only specify one unknown dimension")
			}
			unknown = i
			continue
		}
		known *= shape[i]
	}
	if unknown >= 0 && known > 0 {
		shape[unknown] = a.size() / known
		known *= shape[unknown]
	}
	if known != a.size() {
		return nil, fmt.Errorf("cannot reshape array of size %d into shape %s", a.size(), value.ShapeString(shape))
	}
	return New(shape, append([]float64(nil), a.data...)), nil
}
