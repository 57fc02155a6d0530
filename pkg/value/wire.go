package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Wire is the tagged JSON form of a native value, used to carry captured
// bindings across the sandbox worker's process boundary without losing the
// distinction between lists, tuples, sets and arrays.
type Wire struct {
	T     string          `json:"t"`
	V     json.RawMessage `json:"v,omitempty"`
	Items []Wire          `json:"items,omitempty"`
	Keys  []string        `json:"keys,omitempty"`
	Shape []int           `json:"shape,omitempty"`
}

// Encode converts a native value to its wire form.
func Encode(v any) Wire {
	switch t := v.(type) {
	case nil:
		return Wire{T: "none"}
	case bool:
		return Wire{T: "bool", V: mustJSON(t)}
	case string:
		return Wire{T: "str", V: mustJSON(t)}
	case []any:
		return Wire{T: "list", Items: encodeItems(t)}
	case Tuple:
		return Wire{T: "tuple", Items: encodeItems(t)}
	case Set:
		return Wire{T: "set", Items: encodeItems(t)}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]Wire, len(keys))
		for i, k := range keys {
			items[i] = Encode(t[k])
		}
		return Wire{T: "dict", Keys: keys, Items: items}
	case Array:
		items := make([]Wire, len(t.Data))
		for i, f := range t.Data {
			items[i] = encodeFloat(f)
		}
		return Wire{T: "ndarray", Shape: t.Shape, Items: items}
	case Function:
		return Wire{T: "function", V: mustJSON(t.Name)}
	case Opaque:
		return Wire{T: "opaque", V: mustJSON(t)}
	case int64:
		return Wire{T: "int", V: mustJSON(t)}
	case float64:
		return encodeFloat(t)
	}
	if f, ok := AsFloat(v); ok {
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return Wire{T: "int", V: mustJSON(int64(f))}
		}
		return encodeFloat(f)
	}
	return Wire{T: "opaque", V: mustJSON(Opaque{Type: fmt.Sprintf("%T", v), Repr: fmt.Sprint(v)})}
}

// Decode converts a wire value back to the native model. Functions come back
// without a callable.
func Decode(w Wire) (any, error) {
	switch w.T {
	case "none":
		return nil, nil
	case "bool":
		var b bool
		err := json.Unmarshal(w.V, &b)
		return b, err
	case "str":
		var s string
		err := json.Unmarshal(w.V, &s)
		return s, err
	case "int":
		var n int64
		err := json.Unmarshal(w.V, &n)
		return n, err
	case "float":
		return decodeFloat(w)
	case "list":
		return decodeItems(w.Items)
	case "tuple":
		items, err := decodeItems(w.Items)
		return Tuple(items), err
	case "set":
		items, err := decodeItems(w.Items)
		return Set(items), err
	case "dict":
		if len(w.Keys) != len(w.Items) {
			return nil, fmt.Errorf("dict wire value has %d keys and %d items", len(w.Keys), len(w.Items))
		}
		out := make(map[string]any, len(w.Keys))
		for i, k := range w.Keys {
			v, err := Decode(w.Items[i])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case "ndarray":
		data := make([]float64, len(w.Items))
		for i, it := range w.Items {
			f, err := decodeFloat(it)
			if err != nil {
				return nil, err
			}
			data[i] = f
		}
		return Array{Shape: w.Shape, Data: data}, nil
	case "function":
		var name string
		err := json.Unmarshal(w.V, &name)
		return Function{Name: name}, err
	case "opaque":
		var o Opaque
		err := json.Unmarshal(w.V, &o)
		return o, err
	}
	return nil, fmt.Errorf("unknown wire tag %q", w.T)
}

// EncodeMap encodes every binding of m.
func EncodeMap(m map[string]any) map[string]Wire {
	out := make(map[string]Wire, len(m))
	for k, v := range m {
		out[k] = Encode(v)
	}
	return out
}

// DecodeMap decodes every binding of m.
func DecodeMap(m map[string]Wire) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, w := range m {
		v, err := Decode(w)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func encodeItems(items []any) []Wire {
	out := make([]Wire, len(items))
	for i, it := range items {
		out[i] = Encode(it)
	}
	return out
}

func decodeItems(items []Wire) ([]any, error) {
	out := make([]any, len(items))
	for i, it := range items {
		v, err := Decode(it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// encodeFloat stores non-finite values as strings since JSON has no
// representation for them.
func encodeFloat(f float64) Wire {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Wire{T: "float", V: mustJSON(strconv.FormatFloat(f, 'g', -1, 64))}
	}
	return Wire{T: "float", V: mustJSON(f)}
}

func decodeFloat(w Wire) (float64, error) {
	var f float64
	if err := json.Unmarshal(w.V, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(w.V, &s); err != nil {
		return 0, fmt.Errorf("float wire value: %w", err)
	}
	return strconv.ParseFloat(s, 64)
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}
