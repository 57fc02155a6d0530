package grader

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ormasoftchile/grader/pkg/instrument"
	"github.com/ormasoftchile/grader/pkg/sandbox"
)

// ExecuteScript runs the candidate once and keeps the snapshot for every
// later value and figure check. names restricts which variables those
// checks can see; nil exposes them all. Functions are always visible.
func (e *Engine) ExecuteScript(ctx context.Context, names []string, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("execute_script", opts)

	e.executed = false
	e.result = nil
	if e.prog == nil {
		return e.record(c, false, "No code to execute", nil, nil)
	}

	res := e.exec.Run(ctx, sandbox.NewUnit(e.prog), e.sandboxOptions(nil))
	e.result = res
	e.captured = nil
	if names != nil {
		e.captured = make(map[string]bool, len(names))
		for _, n := range names {
			e.captured[n] = true
		}
	}

	switch res.Outcome.Kind {
	case sandbox.Succeeded:
		e.executed = true
		e.err = nil
		return e.record(c, true, "Script executed successfully", nil, nil)
	case sandbox.TimedOut:
		return e.record(c, false, res.Outcome.Detail, nil, string(res.Outcome.Kind))
	}
	return e.record(c, false, "Execution failed: "+res.Outcome.Detail, nil, string(res.Outcome.Kind))
}

// Stdout is what the executed candidate printed.
func (e *Engine) Stdout() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return ""
	}
	return e.result.Stdout
}

// InstrumentLoops runs an instrumented copy of the candidate and records
// its loop counters. With expected set, every listed loop must have run
// exactly that many times.
func (e *Engine) InstrumentLoops(ctx context.Context, expected map[string]int64, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("instrument_loops", opts)

	if e.prog == nil {
		return e.record(c, false, "No code to execute", expected, nil)
	}
	unit, err := instrument.Instrument(e.prog)
	if err != nil {
		return e.record(c, false, fmt.Sprintf("Cannot instrument loops: %v", err), expected, nil)
	}
	res := e.exec.Run(ctx, unit, e.sandboxOptions([]string{}))
	if !res.Succeeded() {
		return e.record(c, false, fmt.Sprintf("Instrumented execution failed: %s", res.Outcome.Detail), expected, res.Counters)
	}
	e.loops = res.Counters

	var problems []string
	for _, id := range sortedKeys(expected) {
		got, ok := res.Counters[id]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s not found", id))
		case got != expected[id]:
			problems = append(problems, fmt.Sprintf("%s ran %d times, expected %d", id, got, expected[id]))
		}
	}
	if len(problems) > 0 {
		return e.record(c, false, "Loop counters differ: "+strings.Join(problems, "; "), expected, res.Counters)
	}
	return e.record(c, true, "Loop counters: "+formatCounters(res.Counters), expected, res.Counters)
}

// LoopCounts returns the counters of the last InstrumentLoops run.
func (e *Engine) LoopCounts() map[string]int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]int64, len(e.loops))
	for k, v := range e.loops {
		out[k] = v
	}
	return out
}

func formatCounters(counters map[string]int64) string {
	if len(counters) == 0 {
		return "no loops"
	}
	parts := make([]string, 0, len(counters))
	for _, id := range sortedKeys(counters) {
		parts = append(parts, fmt.Sprintf("%s=%d", id, counters[id]))
	}
	return strings.Join(parts, ", ")
}

// sortedKeys orders loop ids numerically, so loop_10 follows loop_9.
func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
