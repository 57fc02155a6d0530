package compare

import (
	"sort"

	"github.com/ormasoftchile/grader/pkg/value"
)

// Type ranks for SortKey. Values of different ranks never interleave.
const (
	rankNone = iota
	rankBool
	rankNumber
	rankString
	rankSequence
	rankOther
)

// Key is the total-order key used for unordered comparison.
type Key struct {
	Rank   int
	Number float64
	Text   string
}

// SortKey returns the ordering key of v: type rank, then numeric value,
// then string form. Non-orderable values fall back to their repr, so the
// order is total and deterministic for any input.
func SortKey(v any) Key {
	switch t := v.(type) {
	case nil:
		return Key{Rank: rankNone}
	case bool:
		n := 0.0
		if t {
			n = 1
		}
		return Key{Rank: rankBool, Number: n}
	case string:
		return Key{Rank: rankString, Text: t}
	}
	if f, ok := value.AsFloat(v); ok {
		return Key{Rank: rankNumber, Number: f}
	}
	if value.IsSequence(v) {
		return Key{Rank: rankSequence, Text: value.Repr(v)}
	}
	return Key{Rank: rankOther, Text: value.Repr(v)}
}

// Less orders keys.
func (k Key) Less(o Key) bool {
	if k.Rank != o.Rank {
		return k.Rank < o.Rank
	}
	if k.Number != o.Number {
		// NaN sorts last.
		if k.Number != k.Number {
			return false
		}
		if o.Number != o.Number {
			return true
		}
		return k.Number < o.Number
	}
	return k.Text < o.Text
}

// Sorted returns a copy of items ordered by SortKey. Equal keys keep their
// relative order.
func Sorted(items []any) []any {
	type keyed struct {
		key Key
		v   any
	}
	ks := make([]keyed, len(items))
	for i, v := range items {
		ks[i] = keyed{SortKey(v), v}
	}
	sort.SliceStable(ks, func(a, b int) bool { return ks[a].key.Less(ks[b].key) })
	out := make([]any, len(ks))
	for i, k := range ks {
		out[i] = k.v
	}
	return out
}
