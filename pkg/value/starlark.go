package value

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// ArrayLike is implemented by Starlark values backed by an ndarray.
type ArrayLike interface {
	starlark.Value
	ArrayShape() []int
	ArrayData() []float64
}

// MaxDepth bounds the container nesting FromStarlark descends into.
// Deeper values are replaced by an Opaque marker.
const MaxDepth = 256

// FromStarlark converts a Starlark value into the native model. A
// container that contains itself is cut at the point of re-entry with an
// Opaque marker rendered the way Python prints it, such as [...].
func FromStarlark(v starlark.Value) any {
	c := converter{active: make(map[starlark.Value]bool)}
	return c.convert(v, 0)
}

type converter struct {
	// active holds the containers on the current descent path.
	active map[starlark.Value]bool
}

func (c *converter) enter(v starlark.Value) bool {
	if c.active[v] {
		return false
	}
	c.active[v] = true
	return true
}

func (c *converter) leave(v starlark.Value) { delete(c.active, v) }

func (c *converter) convert(v starlark.Value, depth int) any {
	switch t := v.(type) {
	case nil, starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(t)
	case starlark.Int:
		if n, ok := t.Int64(); ok {
			return n
		}
		f := t.Float()
		return float64(f)
	case starlark.Float:
		return float64(t)
	case starlark.String:
		return string(t)
	case ArrayLike:
		shape := append([]int(nil), t.ArrayShape()...)
		data := append([]float64(nil), t.ArrayData()...)
		return Array{Shape: shape, Data: data}
	}
	if depth >= MaxDepth {
		return Opaque{Type: v.Type(), Repr: "..."}
	}
	switch t := v.(type) {
	case *starlark.List:
		if !c.enter(t) {
			return Opaque{Type: "list", Repr: "[...]"}
		}
		defer c.leave(t)
		out := make([]any, t.Len())
		for i := range out {
			out[i] = c.convert(t.Index(i), depth+1)
		}
		return out
	case starlark.Tuple:
		out := make(Tuple, len(t))
		for i, e := range t {
			out[i] = c.convert(e, depth+1)
		}
		return out
	case *starlark.Dict:
		if !c.enter(t) {
			return Opaque{Type: "dict", Repr: "{...}"}
		}
		defer c.leave(t)
		out := make(map[string]any, t.Len())
		for _, kv := range t.Items() {
			key, ok := starlark.AsString(kv[0])
			if !ok {
				key = kv[0].String()
			}
			out[key] = c.convert(kv[1], depth+1)
		}
		return out
	case *starlark.Set:
		out := make(Set, 0, t.Len())
		it := t.Iterate()
		defer it.Done()
		var e starlark.Value
		for it.Next(&e) {
			out = append(out, c.convert(e, depth+1))
		}
		return out
	case starlark.Callable:
		return Function{Name: t.Name(), Callable: t}
	}
	return Opaque{Type: v.Type(), Repr: v.String()}
}

// ToStarlark converts a native value, typically decoded from YAML or JSON
// test parameters, into a Starlark value.
func ToStarlark(v any) (starlark.Value, error) {
	switch t := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(t), nil
	case string:
		return starlark.String(t), nil
	case float32:
		return starlark.Float(t), nil
	case float64:
		return starlark.Float(t), nil
	case int:
		return starlark.MakeInt(t), nil
	case int64:
		return starlark.MakeInt64(t), nil
	case int32:
		return starlark.MakeInt64(int64(t)), nil
	case uint64:
		return starlark.MakeUint64(t), nil
	case []any:
		elems, err := toStarlarkSlice(t)
		if err != nil {
			return nil, err
		}
		return starlark.NewList(elems), nil
	case Tuple:
		elems, err := toStarlarkSlice(t)
		if err != nil {
			return nil, err
		}
		return starlark.Tuple(elems), nil
	case Set:
		s := starlark.NewSet(len(t))
		for _, e := range t {
			sv, err := ToStarlark(e)
			if err != nil {
				return nil, err
			}
			if err := s.Insert(sv); err != nil {
				return nil, err
			}
		}
		return s, nil
	case Array:
		return ToStarlark(t.Nested())
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := starlark.NewDict(len(t))
		for _, k := range keys {
			sv, err := ToStarlark(t[k])
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = e
		}
		return ToStarlark(m)
	case Function:
		if t.Callable == nil {
			return nil, fmt.Errorf("function %s is not callable here", t.Name)
		}
		return t.Callable, nil
	case starlark.Value:
		return t, nil
	}
	if items, ok := AsSlice(v); ok {
		return ToStarlark(items)
	}
	return nil, fmt.Errorf("cannot convert %T to a program value", v)
}

func toStarlarkSlice(items []any) ([]starlark.Value, error) {
	out := make([]starlark.Value, len(items))
	for i, e := range items {
		sv, err := ToStarlark(e)
		if err != nil {
			return nil, err
		}
		out[i] = sv
	}
	return out, nil
}

// IsInternal reports whether a binding name follows the internal naming
// convention and must be excluded from capture.
func IsInternal(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

// Capture converts globals into the native model. With names nil every
// non-internal binding is captured; otherwise only the listed names that
// exist are.
func Capture(globals starlark.StringDict, names []string) map[string]any {
	out := make(map[string]any)
	if names == nil {
		for name, v := range globals {
			if IsInternal(name) {
				continue
			}
			out[name] = FromStarlark(v)
		}
		return out
	}
	for _, name := range names {
		if IsInternal(name) {
			continue
		}
		if v, ok := globals[name]; ok {
			out[name] = FromStarlark(v)
		}
	}
	return out
}
