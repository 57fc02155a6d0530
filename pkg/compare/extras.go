package compare

import (
	"math"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/value"
)

// Relative tolerance used by Close, matching numpy.allclose.
const closeRTol = 1e-5

// Size is the element count of an array or the length of a list or tuple.
// Other values yield a TypeMismatch error.
func Size(v any) (int, error) {
	switch t := v.(type) {
	case value.Array:
		return t.Size(), nil
	case []any:
		return len(t), nil
	case value.Tuple:
		return len(t), nil
	}
	return 0, errors.Newf(errors.TypeMismatch, "is not an array or list")
}

// Bounds are the extremes of a flattened numeric value.
type Bounds struct {
	Min float64
	Max float64
}

// Range flattens v and returns its smallest and largest element. v must be
// an array, list or tuple of numbers and must not be empty.
func Range(v any) (Bounds, error) {
	switch v.(type) {
	case value.Array, []any, value.Tuple:
	default:
		return Bounds{}, errors.Newf(errors.TypeMismatch, "is not an array or list")
	}
	a, ok := value.ToArray(v)
	if !ok {
		return Bounds{}, errors.Newf(errors.TypeMismatch, "does not hold rectangular numeric data")
	}
	if len(a.Data) == 0 {
		return Bounds{}, errors.Newf(errors.LengthMismatch, "is empty")
	}
	b := Bounds{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, f := range a.Data {
		b.Min = math.Min(b.Min, f)
		b.Max = math.Max(b.Max, f)
	}
	return b, nil
}

// Within checks the bounds against optional limits. Each nil limit is
// skipped. belowMin and aboveMax report the violated sides.
func (b Bounds) Within(min, max *float64) (belowMin, aboveMax bool) {
	if min != nil && b.Min < *min {
		belowMin = true
	}
	if max != nil && b.Max > *max {
		aboveMax = true
	}
	return belowMin, aboveMax
}

// Close is numpy.allclose with atol = tol: every element pair satisfies
// |a - b| <= tol + 1e-5 * |b|. A scalar on either side broadcasts. Shapes
// that cannot broadcast return a ShapeMismatch error.
func Close(a, b any, tol float64) (bool, error) {
	aa, ok := value.ToArray(a)
	if !ok {
		return false, errors.Newf(errors.TypeMismatch, "%s is not numeric", value.Repr(a))
	}
	ba, ok := value.ToArray(b)
	if !ok {
		return false, errors.Newf(errors.TypeMismatch, "%s is not numeric", value.Repr(b))
	}
	n := len(aa.Data)
	switch {
	case len(aa.Data) == 1 && len(aa.Shape) <= 1:
		n = len(ba.Data)
	case len(ba.Data) == 1 && len(ba.Shape) <= 1:
	case !sameShape(aa.Shape, ba.Shape):
		return false, errors.Newf(errors.ShapeMismatch, "shapes %s and %s do not broadcast", aa.ShapeString(), ba.ShapeString())
	}
	at := func(x value.Array, i int) float64 {
		if len(x.Data) == 1 {
			return x.Data[0]
		}
		return x.Data[i]
	}
	for i := 0; i < n; i++ {
		x, y := at(aa, i), at(ba, i)
		if math.IsNaN(x) || math.IsNaN(y) {
			return false, nil
		}
		if math.IsInf(x, 0) || math.IsInf(y, 0) {
			if x != y {
				return false, nil
			}
			continue
		}
		if math.Abs(x-y) > tol+closeRTol*math.Abs(y) {
			return false, nil
		}
	}
	return true, nil
}
