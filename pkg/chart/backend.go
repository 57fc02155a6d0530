// Package chart is the figure registry behind the plt module. The registry
// is owned by whoever constructs the Backend and is only reachable through a
// Session obtained from Acquire.
package chart

import (
	"sort"
	"sync"

	"github.com/ormasoftchile/grader/pkg/figure"
)

// Backend holds the figure registry shared by successive runs.
type Backend struct {
	mu      sync.Mutex
	gen     uint64
	figs    map[int]*figureState
	current int
}

type figureState struct {
	snap       figure.Snapshot
	cycleIndex int
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{figs: make(map[int]*figureState)}
}

// Session is a scoped hold on the registry for one run. Writes made through
// a session after it is released, or after a newer session was acquired,
// are dropped.
type Session struct {
	b        *Backend
	gen      uint64
	once     sync.Once
	captured []figure.Snapshot
}

// Acquire clears the registry and starts a new generation.
func (b *Backend) Acquire() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.figs = make(map[int]*figureState)
	b.current = 0
	return &Session{b: b, gen: b.gen}
}

// Release captures the registry and ends the session. It is safe to call
// more than once; later calls return the first capture.
func (s *Session) Release() []figure.Snapshot {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		if s.b.gen == s.gen {
			s.captured = s.b.snapshotLocked()
			s.b.gen++
		}
	})
	return s.captured
}

// Snapshot returns the figures captured by Release, or nil before it.
func (s *Session) Snapshot() []figure.Snapshot {
	return s.captured
}

// update runs fn under the registry lock if the session is still current.
func (s *Session) update(fn func(b *Backend)) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.b.gen != s.gen {
		return
	}
	fn(s.b)
}

func (b *Backend) snapshotLocked() []figure.Snapshot {
	nums := make([]int, 0, len(b.figs))
	for n := range b.figs {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	out := make([]figure.Snapshot, 0, len(nums))
	for _, n := range nums {
		snap := b.figs[n].snap
		snap.Series = append([]figure.Series(nil), snap.Series...)
		out = append(out, snap)
	}
	return out
}

// figureLocked switches to figure num, creating it if needed. num <= 0
// creates a new figure numbered one past the highest existing.
func (b *Backend) figureLocked(num int) *figureState {
	if num <= 0 {
		num = 1
		for n := range b.figs {
			if n >= num {
				num = n + 1
			}
		}
	}
	f, ok := b.figs[num]
	if !ok {
		f = &figureState{snap: figure.Snapshot{Number: num}}
		b.figs[num] = f
	}
	b.current = num
	return f
}

// currentLocked returns the current figure, creating figure 1 if none.
func (b *Backend) currentLocked() *figureState {
	if f, ok := b.figs[b.current]; ok {
		return f
	}
	return b.figureLocked(0)
}

func (b *Backend) closeLocked(num int) {
	delete(b.figs, num)
	if b.current == num {
		b.current = 0
		best := 0
		for n := range b.figs {
			if n > best {
				best = n
			}
		}
		b.current = best
	}
}

func (f *figureState) nextCycleColor() string {
	c := figure.DefaultCycle[f.cycleIndex%len(figure.DefaultCycle)]
	f.cycleIndex++
	return c
}
