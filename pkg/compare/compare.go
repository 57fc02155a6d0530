// Package compare decides whether an observed value matches an expected one
// under a tolerance policy, and explains the first difference when it does
// not.
package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/value"
)

// DefaultTolerance is the absolute tolerance used when none is given.
const DefaultTolerance = 1e-6

// FailureKind classifies why two values differ.
type FailureKind string

const (
	KindType      FailureKind = "type"
	KindTolerance FailureKind = "tolerance"
	KindLength    FailureKind = "length"
	KindShape     FailureKind = "shape"
	KindKey       FailureKind = "key"
	KindValue     FailureKind = "value"
)

// Code maps the kind onto the error taxonomy.
func (k FailureKind) Code() errors.ErrorCode {
	switch k {
	case KindType:
		return errors.TypeMismatch
	case KindTolerance:
		return errors.ToleranceExceeded
	case KindLength:
		return errors.LengthMismatch
	case KindShape:
		return errors.ShapeMismatch
	case KindKey:
		return errors.KeyMismatch
	}
	return errors.CandidateRuntime
}

// Policy controls a comparison.
type Policy struct {
	// Tolerance is the absolute tolerance for numeric scalars and array
	// elements.
	Tolerance float64
	// Unordered compares sequences as multisets: both sides are sorted by
	// SortKey before the elementwise pass.
	Unordered bool
}

// DefaultPolicy is ordered with DefaultTolerance.
func DefaultPolicy() Policy {
	return Policy{Tolerance: DefaultTolerance}
}

// Failure describes the first difference found.
type Failure struct {
	Kind     FailureKind `json:"kind"`
	Path     string      `json:"path,omitempty"`
	Index    []int       `json:"index,omitempty"`
	Message  string      `json:"message"`
	Observed any         `json:"-"`
	Expected any         `json:"-"`
}

// Describe renders the failure for the named variable, e.g.
// "'total' = 3, expected 4".
func (f *Failure) Describe(name string) string {
	return "'" + name + "'" + f.Path + " " + f.Message
}

// Err converts the failure into a coded error.
func (f *Failure) Err(name string) error {
	return errors.Newf(f.Kind.Code(), "%s", f.Describe(name))
}

// Outcome is the result of Equal. MaxDiff is the largest absolute numeric
// difference seen, used for reporting.
type Outcome struct {
	Equal   bool     `json:"equal"`
	MaxDiff float64  `json:"max_diff"`
	Failure *Failure `json:"failure,omitempty"`
}

// Equal compares observed against expected. Dispatch is by the shape of
// expected: numbers compare within tolerance, sequences by length then
// element, n-dimensional arrays by shape then element, mappings by key set
// then value. Everything else compares by exact equality.
func Equal(observed, expected any, p Policy) Outcome {
	c := &comparer{policy: p}
	f := c.compare(observed, expected, "")
	return Outcome{Equal: f == nil, MaxDiff: c.maxDiff, Failure: f}
}

type comparer struct {
	policy  Policy
	maxDiff float64
}

func (c *comparer) compare(obs, exp any, path string) *Failure {
	if exp == nil {
		if obs == nil {
			return nil
		}
		return typeFailure(obs, exp, path)
	}

	if ef, ok := value.AsFloat(exp); ok {
		of, ok := value.AsFloat(obs)
		if !ok {
			return typeFailure(obs, exp, path)
		}
		return c.number(of, ef, obs, exp, path)
	}

	if isArrayShaped(obs) || isArrayShaped(exp) {
		if f, handled := c.array(obs, exp, path); handled {
			return f
		}
	}

	switch e := exp.(type) {
	case map[string]any:
		o, ok := obs.(map[string]any)
		if !ok {
			return typeFailure(obs, exp, path)
		}
		return c.mapping(o, e, path)
	case value.Set:
		o, ok := value.AsSlice(obs)
		if !ok {
			return typeFailure(obs, exp, path)
		}
		return c.sequence(o, e, path, true)
	}

	if e, ok := value.AsSlice(exp); ok {
		o, ok := value.AsSlice(obs)
		if !ok || isString(obs) {
			return typeFailure(obs, exp, path)
		}
		_, isSet := obs.(value.Set)
		return c.sequence(o, e, path, c.policy.Unordered || isSet)
	}

	return scalar(obs, exp, path)
}

func (c *comparer) number(o, e float64, obs, exp any, path string) *Failure {
	if o == e || math.IsNaN(o) && math.IsNaN(e) {
		return nil
	}
	d := math.Abs(o - e)
	if d > c.maxDiff || math.IsNaN(d) {
		c.maxDiff = d
	}
	if d <= c.policy.Tolerance {
		return nil
	}
	return &Failure{
		Kind:     KindTolerance,
		Path:     path,
		Message:  fmt.Sprintf("= %s, expected %s", value.Repr(obs), value.Repr(exp)),
		Observed: obs,
		Expected: exp,
	}
}

// array compares two rectangular numeric values. handled is false when
// either side is not numeric and rectangular, so that the generic
// sequence comparison can report the difference instead.
func (c *comparer) array(obs, exp any, path string) (*Failure, bool) {
	oa, ok := value.ToArray(obs)
	if !ok {
		if _, isArr := exp.(value.Array); isArr && !value.IsSequence(obs) {
			return typeFailure(obs, exp, path), true
		}
		return nil, false
	}
	ea, ok := value.ToArray(exp)
	if !ok {
		return nil, false
	}
	if !sameShape(oa.Shape, ea.Shape) {
		return &Failure{
			Kind:     KindShape,
			Path:     path,
			Message:  fmt.Sprintf("shape %s != expected %s", oa.ShapeString(), ea.ShapeString()),
			Observed: obs,
			Expected: exp,
		}, true
	}
	for i := range ea.Data {
		o, e := oa.Data[i], ea.Data[i]
		if o == e || math.IsNaN(o) && math.IsNaN(e) {
			continue
		}
		d := math.Abs(o - e)
		if d > c.maxDiff || math.IsNaN(d) {
			c.maxDiff = d
		}
		if d <= c.policy.Tolerance {
			continue
		}
		idx := unravel(i, ea.Shape)
		return &Failure{
			Kind:     KindTolerance,
			Path:     path,
			Index:    idx,
			Message:  fmt.Sprintf("differs at index %s: got %s, expected %s", indexString(idx), value.FormatFloat(o), value.FormatFloat(e)),
			Observed: o,
			Expected: e,
		}, true
	}
	return nil, true
}

func (c *comparer) sequence(obs, exp []any, path string, unordered bool) *Failure {
	if len(obs) != len(exp) {
		return &Failure{
			Kind:     KindLength,
			Path:     path,
			Message:  fmt.Sprintf("has %d elements, expected %d", len(obs), len(exp)),
			Observed: obs,
			Expected: exp,
		}
	}
	if unordered {
		obs, exp = Sorted(obs), Sorted(exp)
	}
	for i := range exp {
		if f := c.compare(obs[i], exp[i], fmt.Sprintf("%s[%d]", path, i)); f != nil {
			if unordered && f.Kind != KindType {
				return &Failure{
					Kind:     KindValue,
					Path:     path,
					Message:  fmt.Sprintf("does not contain expected elements: got %s, expected %s", value.Repr(obs), value.Repr(exp)),
					Observed: obs,
					Expected: exp,
				}
			}
			return f
		}
	}
	return nil
}

func (c *comparer) mapping(obs, exp map[string]any, path string) *Failure {
	var missing, extra []string
	for k := range exp {
		if _, ok := obs[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range obs {
		if _, ok := exp[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing keys "+quoteAll(missing))
		}
		if len(extra) > 0 {
			parts = append(parts, "unexpected keys "+quoteAll(extra))
		}
		return &Failure{
			Kind:     KindKey,
			Path:     path,
			Message:  "has " + strings.Join(parts, " and "),
			Observed: obs,
			Expected: exp,
		}
	}
	keys := make([]string, 0, len(exp))
	for k := range exp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f := c.compare(obs[k], exp[k], path+"["+value.Repr(k)+"]"); f != nil {
			return f
		}
	}
	return nil
}

func scalar(obs, exp any, path string) *Failure {
	if value.TypeName(obs) != value.TypeName(exp) {
		return typeFailure(obs, exp, path)
	}
	if value.Repr(obs) == value.Repr(exp) {
		return nil
	}
	return &Failure{
		Kind:     KindValue,
		Path:     path,
		Message:  fmt.Sprintf("= %s, expected %s", value.Repr(obs), value.Repr(exp)),
		Observed: obs,
		Expected: exp,
	}
}

func typeFailure(obs, exp any, path string) *Failure {
	return &Failure{
		Kind:     KindType,
		Path:     path,
		Message:  fmt.Sprintf("is %s, expected %s", value.TypeName(obs), value.TypeName(exp)),
		Observed: obs,
		Expected: exp,
	}
}

// isArrayShaped reports whether v is an ndarray or a nested rectangular
// numeric list of two or more dimensions.
func isArrayShaped(v any) bool {
	if _, ok := v.(value.Array); ok {
		return true
	}
	if !value.IsSequence(v) {
		return false
	}
	a, ok := value.ToArray(v)
	return ok && len(a.Shape) >= 2
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
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

// unravel converts a flat row-major offset into a multi-index.
func unravel(i int, shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	idx := make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		if shape[d] == 0 {
			continue
		}
		idx[d] = i % shape[d]
		i /= shape[d]
	}
	return idx
}

func indexString(idx []int) string {
	return value.ShapeString(idx)
}

func quoteAll(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = value.Repr(k)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
