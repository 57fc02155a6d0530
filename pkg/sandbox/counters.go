package sandbox

import (
	"fmt"
	"sync/atomic"

	"go.starlark.net/starlark"
)

// counters holds one counter per loop id. The id set is fixed up front so
// the map itself is never written during a run.
type counters struct {
	ids    []string
	counts map[string]*atomic.Int64
}

func newCounters(ids []string) *counters {
	c := &counters{ids: ids, counts: make(map[string]*atomic.Int64, len(ids))}
	for _, id := range ids {
		c.counts[id] = new(atomic.Int64)
	}
	return c
}

func (c *counters) builtin() *starlark.Builtin {
	return starlark.NewBuiltin(TickBuiltin, func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &id); err != nil {
			return nil, err
		}
		n, ok := c.counts[id]
		if !ok {
			return nil, fmt.Errorf("%s: unknown loop %q", fn.Name(), id)
		}
		n.Add(1)
		return starlark.None, nil
	})
}

// snapshot copies the current counts. It returns nil when no loops are
// tracked.
func (c *counters) snapshot() map[string]int64 {
	if len(c.ids) == 0 {
		return nil
	}
	out := make(map[string]int64, len(c.ids))
	for _, id := range c.ids {
		out[id] = c.counts[id].Load()
	}
	return out
}
