// Package builtins holds the functions programs commonly expect that the
// Starlark universe does not provide.
package builtins

import (
	"fmt"
	"math"
	"math/big"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Extra returns the additional predeclared functions.
func Extra() starlark.StringDict {
	return starlark.StringDict{
		"round":      starlark.NewBuiltin("round", round),
		"sum":        starlark.NewBuiltin("sum", sum),
		"pow":        starlark.NewBuiltin("pow", pow),
		"divmod":     starlark.NewBuiltin("divmod", divmod),
		"map":        starlark.NewBuiltin("map", mapFn),
		"filter":     starlark.NewBuiltin("filter", filter),
		"isinstance": starlark.NewBuiltin("isinstance", isinstance),
	}
}

// round rounds half to even. Without ndigits the result is an int.
func round(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x, ndigits starlark.Value = nil, starlark.None
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "number", &x, "ndigits?", &ndigits); err != nil {
		return nil, err
	}
	if i, ok := x.(starlark.Int); ok && ndigits == starlark.None {
		return i, nil
	}
	f, ok := starlark.AsFloat(x)
	if !ok {
		return nil, fmt.Errorf("%s: type %s doesn't define __round__", fn.Name(), x.Type())
	}
	if ndigits == starlark.None {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%s: cannot convert %v to integer", fn.Name(), f)
		}
		return starlark.NumberToInt(starlark.Float(math.RoundToEven(f)))
	}
	var n int
	if err := starlark.AsInt(ndigits, &n); err != nil {
		return nil, fmt.Errorf("%s: ndigits must be an int", fn.Name())
	}
	scale := math.Pow(10, float64(n))
	r := math.RoundToEven(f*scale) / scale
	if _, isInt := x.(starlark.Int); isInt {
		return starlark.NumberToInt(starlark.Float(r))
	}
	return starlark.Float(r), nil
}

func sum(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iterable starlark.Iterable
	var start starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "iterable", &iterable, "start?", &start); err != nil {
		return nil, err
	}
	acc := start
	iter := iterable.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		next, err := starlark.Binary(syntax.PLUS, acc, x)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		acc = next
	}
	return acc, nil
}

func pow(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var base, exp starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &base, &exp); err != nil {
		return nil, err
	}
	bi, baseInt := base.(starlark.Int)
	ei, expInt := exp.(starlark.Int)
	if baseInt && expInt && ei.Sign() >= 0 && ei.BigInt().BitLen() <= 16 {
		return starlark.MakeBigInt(new(big.Int).Exp(bi.BigInt(), ei.BigInt(), nil)), nil
	}
	if h, ok := base.(starlark.HasBinary); ok && !baseInt {
		if _, isFloat := base.(starlark.Float); !isFloat {
			return powArray(fn, h, exp)
		}
	}
	b, okB := starlark.AsFloat(base)
	e, okE := starlark.AsFloat(exp)
	if !okB || !okE {
		return nil, fmt.Errorf("%s: unsupported operand types %s and %s", fn.Name(), base.Type(), exp.Type())
	}
	if b == 0 && e < 0 {
		return nil, fmt.Errorf("%s: 0.0 cannot be raised to a negative power", fn.Name())
	}
	return starlark.Float(math.Pow(b, e)), nil
}

// powArray raises each element of an array-like value by repeated
// multiplication for small integer exponents.
func powArray(fn *starlark.Builtin, base starlark.HasBinary, exp starlark.Value) (starlark.Value, error) {
	var n int
	if err := starlark.AsInt(exp, &n); err != nil || n < 1 || n > 64 {
		return nil, fmt.Errorf("%s: array exponent must be a small positive int; use np.power", fn.Name())
	}
	var acc starlark.Value = base
	for i := 1; i < n; i++ {
		next, err := starlark.Binary(syntax.STAR, acc, base)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		acc = next
	}
	return acc, nil
}

func divmod(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, b starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &a, &b); err != nil {
		return nil, err
	}
	q, err := starlark.Binary(syntax.SLASHSLASH, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	r, err := starlark.Binary(syntax.PERCENT, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	return starlark.Tuple{q, r}, nil
}

// mapFn applies fn across one or more iterables and returns a list,
// stopping at the shortest.
func mapFn(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: need a function and at least one iterable", fn.Name())
	}
	iters := make([]starlark.Iterator, len(args)-1)
	for i, a := range args[1:] {
		it := starlark.Iterate(a)
		if it == nil {
			return nil, fmt.Errorf("%s: %s is not iterable", fn.Name(), a.Type())
		}
		defer it.Done()
		iters[i] = it
	}
	var out []starlark.Value
	for {
		call := make(starlark.Tuple, len(iters))
		for i, it := range iters {
			if !it.Next(&call[i]) {
				return starlark.NewList(out), nil
			}
		}
		v, err := starlark.Call(thread, args[0], call, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func filter(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pred starlark.Value
	var iterable starlark.Iterable
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &pred, &iterable); err != nil {
		return nil, err
	}
	iter := iterable.Iterate()
	defer iter.Done()
	var out []starlark.Value
	var x starlark.Value
	for iter.Next(&x) {
		keep := x.Truth()
		if pred != starlark.None {
			v, err := starlark.Call(thread, pred, starlark.Tuple{x}, nil)
			if err != nil {
				return nil, err
			}
			keep = v.Truth()
		}
		if keep {
			out = append(out, x)
		}
	}
	return starlark.NewList(out), nil
}

// typeNames maps the universe's type constructors to the Type() strings of
// their instances.
var typeNames = map[string][]string{
	"int":   {"int", "bool"},
	"float": {"float"},
	"str":   {"string"},
	"bool":  {"bool"},
	"list":  {"list"},
	"dict":  {"dict"},
	"tuple": {"tuple"},
	"set":   {"set"},
	"bytes": {"bytes"},
}

func isinstance(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var obj, classes starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &obj, &classes); err != nil {
		return nil, err
	}
	candidates, ok := classes.(starlark.Tuple)
	if !ok {
		candidates = starlark.Tuple{classes}
	}
	for _, c := range candidates {
		b, ok := c.(*starlark.Builtin)
		if !ok {
			return nil, fmt.Errorf("%s: arg 2 must be a type or tuple of types, got %s", fn.Name(), c.Type())
		}
		names, known := typeNames[b.Name()]
		if !known {
			return nil, fmt.Errorf("%s: arg 2 must be a type or tuple of types, got %s", fn.Name(), b.Name())
		}
		for _, n := range names {
			if obj.Type() == n {
				return starlark.True, nil
			}
		}
	}
	return starlark.False, nil
}
