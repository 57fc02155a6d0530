package numpy

import (
	"fmt"
	"math"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/ormasoftchile/grader/pkg/value"
)

// Source supplies random numbers to np.random.
type Source interface {
	Float64() float64
	NormFloat64() float64
	IntN(n int) int
	Seed(seed int64)
}

// Module returns the np module. rng backs np.random and may be nil, in which
// case np.random is absent.
func Module(rng Source) *starlarkstruct.Module {
	members := starlark.StringDict{
		"pi":          starlark.Float(math.Pi),
		"e":           starlark.Float(math.E),
		"inf":         starlark.Float(math.Inf(1)),
		"nan":         starlark.Float(math.NaN()),
		"array":       starlark.NewBuiltin("array", array),
		"asarray":     starlark.NewBuiltin("asarray", array),
		"linspace":    starlark.NewBuiltin("linspace", linspace),
		"arange":      starlark.NewBuiltin("arange", arange),
		"zeros":       starlark.NewBuiltin("zeros", filled(0)),
		"ones":        starlark.NewBuiltin("ones", filled(1)),
		"full":        starlark.NewBuiltin("full", full),
		"reshape":     starlark.NewBuiltin("reshape", reshapeFn),
		"transpose":   starlark.NewBuiltin("transpose", transposeFn),
		"concatenate": starlark.NewBuiltin("concatenate", concatenate),
		"dot":         starlark.NewBuiltin("dot", dot),
		"power":       starlark.NewBuiltin("power", binaryFn(math.Pow)),
		"maximum":     starlark.NewBuiltin("maximum", binaryFn(math.Max)),
		"minimum":     starlark.NewBuiltin("minimum", binaryFn(math.Min)),
		"allclose":    starlark.NewBuiltin("allclose", allclose),
		"sort":        starlark.NewBuiltin("sort", sortFn),
		"round":       starlark.NewBuiltin("round", roundFn),
	}
	for name, fn := range elementwise {
		members[name] = starlark.NewBuiltin(name, unaryFn(fn))
	}
	for name, fn := range reductions {
		members[name] = starlark.NewBuiltin(name, fn)
	}
	if rng != nil {
		members["random"] = randomModule(rng)
	}
	return &starlarkstruct.Module{Name: "numpy", Members: members}
}

var elementwise = map[string]func(float64) float64{
	"sqrt":   math.Sqrt,
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"arcsin": math.Asin,
	"arccos": math.Acos,
	"arctan": math.Atan,
	"exp":    math.Exp,
	"log":    math.Log,
	"log10":  math.Log10,
	"log2":   math.Log2,
	"abs":    math.Abs,
	"floor":  math.Floor,
	"ceil":   math.Ceil,
	"square": func(f float64) float64 { return f * f },
}

func array(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj, dtype starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "object", &obj, "dtype?", &dtype); err != nil {
		return nil, err
	}
	a, err := asArray(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	return New(append([]int(nil), a.shape...), append([]float64(nil), a.data...)), nil
}

func linspace(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop number
	num := 50
	endpoint := true
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "start", &start, "stop", &stop, "num?", &num, "endpoint?", &endpoint); err != nil {
		return nil, err
	}
	if num < 0 {
		return nil, fmt.Errorf("%s: number of samples, %d, must be non-negative", fn.Name(), num)
	}
	out := make([]float64, num)
	div := num
	if endpoint {
		div = num - 1
	}
	for i := range out {
		if div == 0 {
			out[i] = float64(start)
			continue
		}
		out[i] = float64(start) + float64(i)*float64(stop-start)/float64(div)
	}
	if endpoint && num > 1 {
		out[num-1] = float64(stop)
	}
	return vector(out), nil
}

func arange(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, b, step starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "start", &a, "stop?", &b, "step?", &step); err != nil {
		return nil, err
	}
	nums := make([]float64, 0, 3)
	for _, v := range []starlark.Value{a, b, step} {
		if v == nil || v == starlark.None {
			nums = append(nums, math.NaN())
			continue
		}
		f, ok := starlark.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("%s: arguments must be numbers", fn.Name())
		}
		nums = append(nums, f)
	}
	start, stop, inc := 0.0, nums[0], 1.0
	if !math.IsNaN(nums[1]) {
		start, stop = nums[0], nums[1]
	}
	if !math.IsNaN(nums[2]) {
		inc = nums[2]
	}
	if inc == 0 {
		return nil, fmt.Errorf("%s: step must not be zero", fn.Name())
	}
	n := int(math.Ceil((stop - start) / inc))
	if n < 0 {
		n = 0
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*inc
	}
	return vector(out), nil
}

func shapeArg(v starlark.Value) ([]int, error) {
	if t, ok := v.(starlark.Tuple); ok {
		shape := make([]int, len(t))
		for i, d := range t {
			if err := starlark.AsInt(d, &shape[i]); err != nil {
				return nil, fmt.Errorf("shape must be integers")
			}
		}
		return shape, nil
	}
	var n int
	if err := starlark.AsInt(v, &n); err != nil {
		return nil, fmt.Errorf("shape must be an int or tuple of ints")
	}
	return []int{n}, nil
}

func fill(shape []int, f float64) (*NDArray, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimensions are not allowed")
		}
		n *= d
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = f
	}
	return New(shape, data), nil
}

func filled(f float64) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var shape, dtype starlark.Value
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "shape", &shape, "dtype?", &dtype); err != nil {
			return nil, err
		}
		dims, err := shapeArg(shape)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		a, err := fill(dims, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		return a, nil
	}
}

func full(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var shape starlark.Value
	var f number
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "shape", &shape, "fill_value", &f); err != nil {
		return nil, err
	}
	dims, err := shapeArg(shape)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	a, err := fill(dims, float64(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	return a, nil
}

func reshapeFn(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj, shape starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "a", &obj, "newshape", &shape); err != nil {
		return nil, err
	}
	a, err := asArray(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	dims, ok := shape.(starlark.Tuple)
	if !ok {
		dims = starlark.Tuple{shape}
	}
	return reshape(a, dims)
}

func transposeFn(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "a", &obj); err != nil {
		return nil, err
	}
	a, err := asArray(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	return transpose(a), nil
}

func concatenate(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Iterable
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "arrays", &seq); err != nil {
		return nil, err
	}
	var out []float64
	var tail []int
	rows := 0
	iter := seq.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		a, err := asArray(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		if len(a.shape) == 0 {
			return nil, fmt.Errorf("%s: zero-dimensional arrays cannot be concatenated", fn.Name())
		}
		if tail == nil {
			tail = a.shape[1:]
		} else if !sameShape(tail, a.shape[1:]) {
			return nil, fmt.Errorf("%s: all the input array dimensions except for the concatenation axis must match exactly", fn.Name())
		}
		rows += a.shape[0]
		out = append(out, a.data...)
	}
	if out == nil {
		out = []float64{}
	}
	return New(append([]int{rows}, tail...), out), nil
}

func dot(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, y starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "a", &x, "b", &y); err != nil {
		return nil, err
	}
	a, err := asArray(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	b, err := asArray(y)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	switch {
	case len(a.shape) == 1 && len(b.shape) == 1:
		if a.shape[0] != b.shape[0] {
			return nil, fmt.Errorf("%s: shapes %s and %s not aligned", fn.Name(), shapeStr(a), shapeStr(b))
		}
		var s float64
		for i := range a.data {
			s += a.data[i] * b.data[i]
		}
		return starlark.Float(s), nil
	case len(a.shape) == 2 && len(b.shape) >= 1 && len(b.shape) <= 2:
		n, m := a.shape[0], a.shape[1]
		if b.shape[0] != m {
			return nil, fmt.Errorf("%s: shapes %s and %s not aligned", fn.Name(), shapeStr(a), shapeStr(b))
		}
		p := 1
		if len(b.shape) == 2 {
			p = b.shape[1]
		}
		out := make([]float64, n*p)
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				var s float64
				for k := 0; k < m; k++ {
					s += a.data[i*m+k] * b.data[k*p+j]
				}
				out[i*p+j] = s
			}
		}
		if len(b.shape) == 1 {
			return vector(out), nil
		}
		return New([]int{n, p}, out), nil
	}
	return nil, fmt.Errorf("%s: unsupported shapes %s and %s", fn.Name(), shapeStr(a), shapeStr(b))
}

func unaryFn(f func(float64) float64) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x starlark.Value
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &x); err != nil {
			return nil, err
		}
		if n, ok := starlark.AsFloat(x); ok {
			return starlark.Float(f(n)), nil
		}
		a, err := asArray(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		return a.apply(f), nil
	}
}

func binaryFn(f func(x, y float64) float64) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x, y starlark.Value
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &x, &y); err != nil {
			return nil, err
		}
		fx, okX := starlark.AsFloat(x)
		fy, okY := starlark.AsFloat(y)
		if okX && okY {
			return starlark.Float(f(fx, fy)), nil
		}
		a, err := asArray(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		b, err := asArray(y)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		out, err := broadcast(a, b, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		return out, nil
	}
}

func allclose(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, y starlark.Value
	var rtol, atol number = 1e-5, 1e-8
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "a", &x, "b", &y, "rtol?", &rtol, "atol?", &atol); err != nil {
		return nil, err
	}
	a, err := asArray(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	b, err := asArray(y)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	diff, err := broadcast(a, b, func(p, q float64) float64 {
		if math.Abs(p-q) <= float64(atol)+float64(rtol)*math.Abs(q) {
			return 1
		}
		return 0
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	for _, ok := range diff.data {
		if ok == 0 {
			return starlark.False, nil
		}
	}
	return starlark.True, nil
}

func roundFn(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	decimals := 0
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "a", &x, "decimals?", &decimals); err != nil {
		return nil, err
	}
	scale := math.Pow(10, float64(decimals))
	round := func(f float64) float64 { return math.RoundToEven(f*scale) / scale }
	if f, ok := starlark.AsFloat(x); ok {
		return starlark.Float(round(f)), nil
	}
	a, err := asArray(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	return a.apply(round), nil
}

func sortFn(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "a", &x); err != nil {
		return nil, err
	}
	a, err := asArray(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	if len(a.shape) != 1 {
		return nil, fmt.Errorf("%s: only one-dimensional arrays are supported", fn.Name())
	}
	out := append([]float64(nil), a.data...)
	sort.Float64s(out)
	return vector(out), nil
}

// number unpacks an int or float argument.
type number float64

func (n *number) Unpack(v starlark.Value) error {
	f, ok := starlark.AsFloat(v)
	if !ok {
		return fmt.Errorf("got %s, want number", v.Type())
	}
	*n = number(f)
	return nil
}

func shapeStr(a *NDArray) string {
	return value.ShapeString(a.shape)
}
