package grader

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/value"
)

// Normalize turns decoded YAML, JSON and expr-lang values into the value
// model: integers become int64, keyed maps become map[string]any.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case uint:
		return int64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = int64(n)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	}
	return v
}

// params reads dispatch parameters. Getters never fail; the first problem
// is kept and reported by err.
type params struct {
	kind string
	raw  map[string]any
	errs []string
}

func (p *params) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Sprintf(format, args...))
}

func (p *params) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return errors.Newf(errors.InvalidParam, "%s: %s", p.kind, strings.Join(p.errs, "; ")).WithDetail("kind", p.kind)
}

func (p *params) has(name string) bool {
	v, ok := p.raw[name]
	return ok && v != nil
}

func (p *params) get(name string) any {
	return Normalize(p.raw[name])
}

func (p *params) str(name, def string) string {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		p.fail("%s must be a string, got %s", name, value.TypeName(Normalize(v)))
		return def
	}
	return s
}

func (p *params) boolean(name string, def bool) bool {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		p.fail("%s must be a boolean, got %s", name, value.TypeName(Normalize(v)))
		return def
	}
	return b
}

func (p *params) optBool(name string) *bool {
	if !p.has(name) {
		return nil
	}
	b := p.boolean(name, false)
	return &b
}

func (p *params) optStr(name string) *string {
	if !p.has(name) {
		return nil
	}
	s := p.str(name, "")
	return &s
}

func (p *params) float(name string, def float64) float64 {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	f, ok := value.AsFloat(v)
	if !ok {
		p.fail("%s must be a number, got %s", name, value.TypeName(Normalize(v)))
		return def
	}
	return f
}

func (p *params) optFloat(name string) *float64 {
	if !p.has(name) {
		return nil
	}
	f := p.float(name, 0)
	return &f
}

func (p *params) integer(name string, def int) int {
	v, ok := p.raw[name]
	if !ok || v == nil {
		return def
	}
	f, ok := value.AsFloat(v)
	if !ok || f != math.Trunc(f) {
		p.fail("%s must be an integer, got %s", name, value.Repr(Normalize(v)))
		return def
	}
	return int(f)
}

func (p *params) optInt(name string) *int {
	if !p.has(name) {
		return nil
	}
	n := p.integer(name, 0)
	return &n
}

func (p *params) list(name string) []any {
	if !p.has(name) {
		return nil
	}
	items, ok := value.AsSlice(p.get(name))
	if !ok {
		p.fail("%s must be a list, got %s", name, value.TypeName(p.get(name)))
		return nil
	}
	return items
}

func (p *params) names(name string) []string {
	items := p.list(name)
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			p.fail("%s must contain strings, got %s", name, value.Repr(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (p *params) mapping(name string) map[string]any {
	if !p.has(name) {
		return nil
	}
	m, ok := p.get(name).(map[string]any)
	if !ok {
		p.fail("%s must be a mapping, got %s", name, value.TypeName(p.get(name)))
		return nil
	}
	return m
}

// counts decodes a mapping of loop id to expected count.
func (p *params) counts(name string) map[string]int64 {
	m := p.mapping(name)
	if m == nil {
		return nil
	}
	out := make(map[string]int64, len(m))
	for _, k := range sortedNames(m) {
		f, ok := value.AsFloat(m[k])
		if !ok || f != math.Trunc(f) {
			p.fail("%s.%s must be an integer, got %s", name, k, value.Repr(m[k]))
			continue
		}
		out[k] = int64(f)
	}
	return out
}

// call decodes an {args, kwargs} entry of a case or input list.
func (p *params) call(field string, i int, entry map[string]any) ([]any, map[string]any) {
	var args []any
	if raw, ok := entry["args"]; ok && raw != nil {
		items, ok := value.AsSlice(raw)
		if !ok {
			p.fail("%s[%d].args must be a list", field, i)
		}
		args = items
	}
	var kwargs map[string]any
	if raw, ok := entry["kwargs"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			p.fail("%s[%d].kwargs must be a mapping", field, i)
		}
		kwargs = m
	}
	return args, kwargs
}

func (p *params) entries(name string) []map[string]any {
	items := p.list(name)
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			p.fail("%s[%d] must be a mapping", name, i)
			continue
		}
		out = append(out, m)
	}
	return out
}

func sortedNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
