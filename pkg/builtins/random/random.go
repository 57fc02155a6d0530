// Package random provides the seeded random module. One Source backs both
// random and np.random within a run so that results depend only on the seed.
package random

import (
	"fmt"
	"math/rand/v2"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// Source is a reseedable generator.
type Source struct {
	pcg *rand.PCG
	r   *rand.Rand
}

// New returns a source seeded with seed.
func New(seed int64) *Source {
	pcg := rand.NewPCG(uint64(seed), uint64(seed))
	return &Source{pcg: pcg, r: rand.New(pcg)}
}

// Seed resets the generator.
func (s *Source) Seed(seed int64) { s.pcg.Seed(uint64(seed), uint64(seed)) }

func (s *Source) Float64() float64     { return s.r.Float64() }
func (s *Source) NormFloat64() float64 { return s.r.NormFloat64() }
func (s *Source) IntN(n int) int       { return s.r.IntN(n) }

// Module returns the random module bound to s.
func (s *Source) Module() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "random",
		Members: starlark.StringDict{
			"seed":    starlark.NewBuiltin("seed", s.seed),
			"random":  starlark.NewBuiltin("random", s.random),
			"randint": starlark.NewBuiltin("randint", s.randint),
			"uniform": starlark.NewBuiltin("uniform", s.uniform),
			"gauss":   starlark.NewBuiltin("gauss", s.gauss),
			"choice":  starlark.NewBuiltin("choice", s.choice),
			"shuffle": starlark.NewBuiltin("shuffle", s.shuffle),
			"sample":  starlark.NewBuiltin("sample", s.sample),
		},
	}
}

func (s *Source) seed(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seed int64
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0, &seed); err != nil {
		return nil, err
	}
	s.Seed(seed)
	return starlark.None, nil
}

func (s *Source) random(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.Float(s.r.Float64()), nil
}

// randint returns an int in [a, b], both ends inclusive.
func (s *Source) randint(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, b int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &a, &b); err != nil {
		return nil, err
	}
	if b < a {
		return nil, fmt.Errorf("%s: empty range for randint(%d, %d)", fn.Name(), a, b)
	}
	return starlark.MakeInt(a + s.r.IntN(b-a+1)), nil
}

func (s *Source) uniform(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var a, b starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &a, &b); err != nil {
		return nil, err
	}
	lo, okA := starlark.AsFloat(a)
	hi, okB := starlark.AsFloat(b)
	if !okA || !okB {
		return nil, fmt.Errorf("%s: bounds must be numbers", fn.Name())
	}
	return starlark.Float(lo + (hi-lo)*s.r.Float64()), nil
}

func (s *Source) gauss(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	mu, sigma := starlark.Value(starlark.Float(0)), starlark.Value(starlark.Float(1))
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "mu?", &mu, "sigma?", &sigma); err != nil {
		return nil, err
	}
	m, okM := starlark.AsFloat(mu)
	sd, okS := starlark.AsFloat(sigma)
	if !okM || !okS {
		return nil, fmt.Errorf("%s: mu and sigma must be numbers", fn.Name())
	}
	return starlark.Float(m + sd*s.r.NormFloat64()), nil
}

func (s *Source) choice(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Indexable
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &seq); err != nil {
		return nil, err
	}
	if seq.Len() == 0 {
		return nil, fmt.Errorf("%s: cannot choose from an empty sequence", fn.Name())
	}
	return seq.Index(s.r.IntN(seq.Len())), nil
}

// shuffle permutes a list in place.
func (s *Source) shuffle(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var list *starlark.List
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &list); err != nil {
		return nil, err
	}
	for i := list.Len() - 1; i > 0; i-- {
		j := s.r.IntN(i + 1)
		a, b := list.Index(i), list.Index(j)
		if err := list.SetIndex(i, b); err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
		if err := list.SetIndex(j, a); err != nil {
			return nil, fmt.Errorf("%s: %v", fn.Name(), err)
		}
	}
	return starlark.None, nil
}

func (s *Source) sample(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Indexable
	var k int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &seq, &k); err != nil {
		return nil, err
	}
	n := seq.Len()
	if k < 0 || k > n {
		return nil, fmt.Errorf("%s: sample larger than population or is negative", fn.Name())
	}
	perm := s.r.Perm(n)[:k]
	out := make([]starlark.Value, k)
	for i, idx := range perm {
		out[i] = seq.Index(idx)
	}
	return starlark.NewList(out), nil
}
