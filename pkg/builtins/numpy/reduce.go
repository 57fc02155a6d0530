package numpy

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

var reductions map[string]builtinFunc

func init() {
	reductions = map[string]builtinFunc{
		"sum":    reducer(sum),
		"mean":   reducer(mean),
		"max":    reducer(maxOf),
		"min":    reducer(minOf),
		"std":    reducer(std),
		"argmax": reducer(argmax),
		"argmin": reducer(argmin),
		"cumsum": cumsum,
	}
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return sum(xs) / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		if x > m || math.IsNaN(x) {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, x := range xs {
		if x < m || math.IsNaN(x) {
			m = x
		}
	}
	return m
}

// std is the population standard deviation.
func std(xs []float64) float64 {
	mu := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - mu) * (x - mu)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func argmax(xs []float64) float64 {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return float64(best)
}

func argmin(xs []float64) float64 {
	best := 0
	for i, x := range xs {
		if x < xs[best] {
			best = i
		}
	}
	return float64(best)
}

var emptyReduction = map[string]bool{"max": true, "min": true, "argmax": true, "argmin": true}

// reducer builds np.<name>(a, axis=None). Without an axis the whole array
// reduces to a scalar; axis 0 or 1 reduces a 2-D array along that axis.
func reducer(fn func([]float64) float64) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var obj, axis starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "a", &obj, "axis?", &axis); err != nil {
			return nil, err
		}
		a, err := asArray(obj)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", b.Name(), err)
		}
		if axis == nil || axis == starlark.None {
			if len(a.data) == 0 && emptyReduction[b.Name()] {
				return nil, fmt.Errorf("%s: zero-size array has no identity", b.Name())
			}
			return result(b.Name(), fn(a.data)), nil
		}
		var ax int
		if err := starlark.AsInt(axis, &ax); err != nil {
			return nil, fmt.Errorf("%s: axis must be an int", b.Name())
		}
		if len(a.shape) == 1 && (ax == 0 || ax == -1) {
			return result(b.Name(), fn(a.data)), nil
		}
		if len(a.shape) != 2 {
			return nil, fmt.Errorf("%s: axis is only supported for 1-D and 2-D arrays", b.Name())
		}
		if ax < 0 {
			ax += 2
		}
		rows, cols := a.shape[0], a.shape[1]
		var out []float64
		switch ax {
		case 0:
			col := make([]float64, rows)
			for j := 0; j < cols; j++ {
				for i := 0; i < rows; i++ {
					col[i] = a.data[i*cols+j]
				}
				out = append(out, fn(col))
			}
		case 1:
			for i := 0; i < rows; i++ {
				out = append(out, fn(a.data[i*cols:(i+1)*cols]))
			}
		default:
			return nil, fmt.Errorf("%s: axis %d is out of bounds for array of dimension 2", b.Name(), ax)
		}
		return vector(out), nil
	}
}

func result(name string, f float64) starlark.Value {
	if name == "argmax" || name == "argmin" {
		return starlark.MakeInt(int(f))
	}
	return starlark.Float(f)
}

func cumsum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "a", &obj); err != nil {
		return nil, err
	}
	a, err := asArray(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", b.Name(), err)
	}
	out := make([]float64, len(a.data))
	var s float64
	for i, x := range a.data {
		s += x
		out[i] = s
	}
	return vector(out), nil
}

// randomModule is np.random over the run's shared source.
func randomModule(rng Source) *starlarkstruct.Module {
	sized := func(name string, draw func() float64) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var size starlark.Value = starlark.None
			if len(args) > 0 {
				size = args[0]
			}
			if v, ok := kwargValue(kwargs, "size"); ok {
				size = v
			}
			return drawN(b.Name(), size, draw)
		})
	}
	return &starlarkstruct.Module{
		Name: "random",
		Members: starlark.StringDict{
			"seed": starlark.NewBuiltin("seed", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var seed int64
				if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &seed); err != nil {
					return nil, err
				}
				rng.Seed(seed)
				return starlark.None, nil
			}),
			"rand":  sized("rand", rng.Float64),
			"randn": sized("randn", rng.NormFloat64),
			"uniform": starlark.NewBuiltin("uniform", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var lo, hi number = 0, 1
				var size starlark.Value = starlark.None
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "low?", &lo, "high?", &hi, "size?", &size); err != nil {
					return nil, err
				}
				return drawN(b.Name(), size, func() float64 { return float64(lo) + rng.Float64()*float64(hi-lo) })
			}),
			"normal": starlark.NewBuiltin("normal", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var loc, scale number = 0, 1
				var size starlark.Value = starlark.None
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "loc?", &loc, "scale?", &scale, "size?", &size); err != nil {
					return nil, err
				}
				return drawN(b.Name(), size, func() float64 { return float64(loc) + rng.NormFloat64()*float64(scale) })
			}),
			"randint": starlark.NewBuiltin("randint", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var lo int
				var hi, size starlark.Value = starlark.None, starlark.None
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "low", &lo, "high?", &hi, "size?", &size); err != nil {
					return nil, err
				}
				from, to := 0, lo
				if hi != starlark.None {
					from = lo
					if err := starlark.AsInt(hi, &to); err != nil {
						return nil, fmt.Errorf("%s: high must be an int", b.Name())
					}
				}
				if to <= from {
					return nil, fmt.Errorf("%s: low >= high", b.Name())
				}
				draw := func() float64 { return float64(from + rng.IntN(to-from)) }
				if size == starlark.None {
					return starlark.MakeInt(int(draw())), nil
				}
				return drawN(b.Name(), size, draw)
			}),
		},
	}
}

func kwargValue(kwargs []starlark.Tuple, name string) (starlark.Value, bool) {
	for _, kv := range kwargs {
		if k, _ := starlark.AsString(kv[0]); k == name {
			return kv[1], true
		}
	}
	return nil, false
}

func drawN(name string, size starlark.Value, draw func() float64) (starlark.Value, error) {
	if size == nil || size == starlark.None {
		return starlark.Float(draw()), nil
	}
	dims, err := shapeArg(size)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	a, err := fill(dims, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	for i := range a.data {
		a.data[i] = draw()
	}
	return a, nil
}
