package value

import (
	"math"
	"testing"

	"go.starlark.net/starlark"
)

func TestToArray_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		shape string
		ok    bool
	}{
		{"flat", []any{int64(1), int64(2), int64(3)}, "(3,)", true},
		{"row", []any{[]any{1, 2, 3}}, "(1, 3)", true},
		{"matrix", []any{[]any{1.0, 2.0}, []any{3.0, 4.0}}, "(2, 2)", true},
		{"ragged", []any{[]any{1, 2}, []any{3}}, "", false},
		{"strings", []any{"a", "b"}, "", false},
		{"empty", []any{}, "(0,)", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arr, ok := ToArray(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && arr.ShapeString() != tt.shape {
				t.Errorf("shape = %s, want %s", arr.ShapeString(), tt.shape)
			}
		})
	}
}

func TestArray_Nested(t *testing.T) {
	arr := Array{Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}}
	got := Repr(arr.Nested())
	if got != "[[1.0, 2.0], [3.0, 4.0]]" {
		t.Errorf("nested = %s", got)
	}
	if arr.Size() != 4 {
		t.Errorf("size = %d", arr.Size())
	}
}

func TestArray_NestedZeroDimensions(t *testing.T) {
	tests := []struct {
		shape []int
		want  string
	}{
		{[]int{0, 3}, "[]"},
		{[]int{2, 0}, "[[], []]"},
		{[]int{0}, "[]"},
		{[]int{0, 0, 2}, "[]"},
	}
	for _, tt := range tests {
		arr := Array{Shape: tt.shape}
		if got := Repr(arr.Nested()); got != tt.want {
			t.Errorf("shape %v: nested = %s, want %s", tt.shape, got, tt.want)
		}
		if got := Repr(arr); got == "" {
			t.Errorf("shape %v: empty repr", tt.shape)
		}
	}
}

func TestRepr(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "None"},
		{true, "True"},
		{int64(3), "3"},
		{100.0, "100.0"},
		{100.0000001, "100.0000001"},
		{1e-7, "1e-07"},
		{123456789.0, "123456789.0"},
		{"hi", "'hi'"},
		{[]any{int64(1), "a"}, "[1, 'a']"},
		{Tuple{int64(1)}, "(1,)"},
		{map[string]any{"b": int64(2), "a": int64(1)}, "{'a': 1, 'b': 2}"},
		{Set{}, "set()"},
		{math.Inf(1), "inf"},
	}
	for _, tt := range tests {
		if got := Repr(tt.in); got != tt.want {
			t.Errorf("Repr(%#v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestAsFloat_BoolIsNotNumeric(t *testing.T) {
	if _, ok := AsFloat(true); ok {
		t.Error("bool must not be numeric")
	}
	if f, ok := AsFloat(int64(4)); !ok || f != 4 {
		t.Errorf("AsFloat(4) = %v, %v", f, ok)
	}
}

func TestFromStarlark(t *testing.T) {
	d := starlark.NewDict(2)
	d.SetKey(starlark.String("k"), starlark.MakeInt(1))
	d.SetKey(starlark.MakeInt(2), starlark.Float(0.5))

	got := FromStarlark(d).(map[string]any)
	if got["k"] != int64(1) {
		t.Errorf("k = %#v", got["k"])
	}
	if got["2"] != 0.5 {
		t.Errorf("2 = %#v", got["2"])
	}

	list := starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.Tuple{starlark.String("a")}})
	items := FromStarlark(list).([]any)
	if _, ok := items[1].(Tuple); !ok {
		t.Errorf("tuple lost: %#v", items[1])
	}
	if FromStarlark(starlark.None) != nil {
		t.Error("None should be nil")
	}
}

func TestFromStarlark_SelfReference(t *testing.T) {
	list := starlark.NewList(nil)
	if err := list.Append(list); err != nil {
		t.Fatal(err)
	}
	items := FromStarlark(list).([]any)
	if len(items) != 1 {
		t.Fatalf("items = %#v", items)
	}
	if got := items[0]; got != (Opaque{Type: "list", Repr: "[...]"}) {
		t.Errorf("cycle marker = %#v", got)
	}
	if got := Repr(items); got != "[[...]]" {
		t.Errorf("repr = %s", got)
	}

	d := starlark.NewDict(1)
	d.SetKey(starlark.String("self"), d)
	m := FromStarlark(d).(map[string]any)
	if got := m["self"]; got != (Opaque{Type: "dict", Repr: "{...}"}) {
		t.Errorf("dict cycle marker = %#v", got)
	}
}

func TestFromStarlark_SharedIsNotACycle(t *testing.T) {
	inner := starlark.NewList([]starlark.Value{starlark.MakeInt(1)})
	outer := starlark.NewList([]starlark.Value{inner, inner})
	items := FromStarlark(outer).([]any)
	for i, e := range items {
		if _, ok := e.([]any); !ok {
			t.Errorf("items[%d] = %#v", i, e)
		}
	}
}

func TestFromStarlark_DepthLimit(t *testing.T) {
	var v starlark.Value = starlark.MakeInt(0)
	for i := 0; i < MaxDepth+10; i++ {
		v = starlark.NewList([]starlark.Value{v})
	}
	cur := FromStarlark(v)
	depth := 0
	for {
		items, ok := cur.([]any)
		if !ok {
			break
		}
		cur = items[0]
		depth++
	}
	if depth != MaxDepth {
		t.Errorf("depth = %d, want %d", depth, MaxDepth)
	}
	if _, ok := cur.(Opaque); !ok {
		t.Errorf("leaf = %#v, want Opaque", cur)
	}
}

func TestToStarlark_RoundTrip(t *testing.T) {
	in := map[string]any{"xs": []any{1, 2.5, "s"}, "flag": true}
	sv, err := ToStarlark(in)
	if err != nil {
		t.Fatal(err)
	}
	back := FromStarlark(sv).(map[string]any)
	xs := back["xs"].([]any)
	if xs[0] != int64(1) || xs[1] != 2.5 || xs[2] != "s" {
		t.Errorf("xs = %#v", xs)
	}
	if back["flag"] != true {
		t.Errorf("flag = %#v", back["flag"])
	}
}

func TestCapture_ExcludesInternal(t *testing.T) {
	globals := starlark.StringDict{
		"total":     starlark.MakeInt(10),
		"_hidden":   starlark.MakeInt(1),
		"__dunder":  starlark.MakeInt(2),
		"remaining": starlark.String("x"),
	}
	all := Capture(globals, nil)
	if len(all) != 2 {
		t.Errorf("captured = %v", all)
	}
	some := Capture(globals, []string{"total", "missing", "_hidden"})
	if len(some) != 1 || some["total"] != int64(10) {
		t.Errorf("captured subset = %v", some)
	}
}

func TestWire_PreservesKinds(t *testing.T) {
	in := map[string]any{
		"arr":   Array{Shape: []int{1, 2}, Data: []float64{1, math.Inf(1)}},
		"tup":   Tuple{int64(1), "a"},
		"set":   Set{int64(3)},
		"fn":    Function{Name: "f"},
		"float": 2.5,
		"none":  nil,
	}
	out, err := DecodeMap(EncodeMap(in))
	if err != nil {
		t.Fatal(err)
	}
	arr := out["arr"].(Array)
	if arr.ShapeString() != "(1, 2)" || !math.IsInf(arr.Data[1], 1) {
		t.Errorf("arr = %#v", arr)
	}
	if _, ok := out["tup"].(Tuple); !ok {
		t.Errorf("tup = %#v", out["tup"])
	}
	if _, ok := out["set"].(Set); !ok {
		t.Errorf("set = %#v", out["set"])
	}
	if fn := out["fn"].(Function); fn.Name != "f" || fn.Callable != nil {
		t.Errorf("fn = %#v", fn)
	}
	if out["float"] != 2.5 || out["none"] != nil {
		t.Errorf("scalars = %#v %#v", out["float"], out["none"])
	}
}
