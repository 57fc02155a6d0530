package grader

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ormasoftchile/grader/pkg/value"
)

// expression is a compiled expr-lang formula over x. scalar is set when
// the formula type-checks with a numeric x and is then mapped over
// sequences element by element; whole sees x as a list.
type expression struct {
	src    string
	scalar *vm.Program
	whole  *vm.Program
}

var mathFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"exp":   math.Exp,
	"log":   math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
}

func exprOptions(x any) []expr.Option {
	opts := []expr.Option{expr.Env(env(x))}
	for name, fn := range mathFuncs {
		fn := fn
		name := name
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%s takes exactly one argument", name)
			}
			f, ok := value.AsFloat(params[0])
			if !ok {
				return nil, fmt.Errorf("%s: argument is not a number", name)
			}
			return fn(f), nil
		}))
	}
	opts = append(opts, expr.Function("pow", func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("pow takes exactly two arguments")
		}
		a, ok1 := value.AsFloat(params[0])
		b, ok2 := value.AsFloat(params[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("pow: arguments must be numbers")
		}
		return math.Pow(a, b), nil
	}))
	return opts
}

func env(x any) map[string]any {
	return map[string]any{"x": x, "pi": math.Pi, "e": math.E}
}

// compileExpression compiles src. It fails only when src is valid for
// neither a numeric x nor a list x.
func compileExpression(src string) (*expression, error) {
	ex := &expression{src: src}
	scalar, serr := expr.Compile(src, exprOptions(0.0)...)
	if serr == nil {
		ex.scalar = scalar
	}
	whole, werr := expr.Compile(src, exprOptions([]any{})...)
	if werr == nil {
		ex.whole = whole
	}
	if ex.scalar == nil && ex.whole == nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, serr)
	}
	return ex, nil
}

// apply evaluates the expression for x. A numeric array maps to an array
// of the same shape, a list to a list.
func (ex *expression) apply(x any) (any, error) {
	if ex.scalar != nil {
		if f, ok := value.AsFloat(x); ok {
			return ex.run(ex.scalar, f)
		}
		if a, ok := x.(value.Array); ok {
			out := value.Array{Shape: append([]int(nil), a.Shape...), Data: make([]float64, len(a.Data))}
			for i, f := range a.Data {
				r, err := ex.run(ex.scalar, f)
				if err != nil {
					return nil, err
				}
				rf, ok := value.AsFloat(r)
				if !ok {
					return nil, fmt.Errorf("%s returned %s for x = %s", ex.src, value.TypeName(r), value.FormatFloat(f))
				}
				out.Data[i] = rf
			}
			return out, nil
		}
		if items, ok := value.AsSlice(x); ok && allNumbers(items) {
			out := make([]any, len(items))
			for i, item := range items {
				f, _ := value.AsFloat(item)
				r, err := ex.run(ex.scalar, f)
				if err != nil {
					return nil, err
				}
				out[i] = r
			}
			return out, nil
		}
	}
	if ex.whole == nil {
		return nil, fmt.Errorf("%s cannot be applied to %s", ex.src, value.TypeName(x))
	}
	arg := x
	if items, ok := value.AsSlice(x); ok {
		arg = items
	}
	return ex.run(ex.whole, arg)
}

func (ex *expression) run(p *vm.Program, x any) (any, error) {
	out, err := expr.Run(p, env(x))
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", ex.src, err)
	}
	return Normalize(out), nil
}

func allNumbers(items []any) bool {
	for _, it := range items {
		if _, ok := value.AsFloat(it); !ok {
			return false
		}
	}
	return true
}
