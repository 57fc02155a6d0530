package figure

import (
	"sort"

	"github.com/ormasoftchile/grader/pkg/errors"
)

// Introspector answers queries over the figures captured by one run.
type Introspector struct {
	figs map[int]Snapshot
}

// New indexes snapshots by figure number.
func New(snaps []Snapshot) *Introspector {
	figs := make(map[int]Snapshot, len(snaps))
	for _, s := range snaps {
		figs[s.Number] = s
	}
	return &Introspector{figs: figs}
}

// Numbers lists figure numbers in ascending order.
func (in *Introspector) Numbers() []int {
	nums := make([]int, 0, len(in.figs))
	for n := range in.figs {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Any reports whether at least one figure exists.
func (in *Introspector) Any() bool {
	return len(in.figs) > 0
}

// Figure returns the snapshot of figure n.
func (in *Introspector) Figure(n int) (Snapshot, error) {
	s, ok := in.figs[n]
	if !ok {
		return Snapshot{}, errors.Newf(errors.FigureNotFound, "Figure %d not found", n).WithDetail("figure", n)
	}
	return s, nil
}

// First returns the lowest-numbered figure.
func (in *Introspector) First() (Snapshot, error) {
	nums := in.Numbers()
	if len(nums) == 0 {
		return Snapshot{}, errors.Newf(errors.FigureNotFound, "No plot created")
	}
	return in.figs[nums[0]], nil
}

// Series returns series idx of figure n.
func (in *Introspector) Series(n, idx int) (Series, error) {
	s, err := in.Figure(n)
	if err != nil {
		return Series{}, err
	}
	return s.SeriesAt(idx)
}

// SeriesAt returns series idx of the snapshot.
func (s Snapshot) SeriesAt(idx int) (Series, error) {
	if idx < 0 || idx >= len(s.Series) {
		return Series{}, errors.Newf(errors.SeriesIndex, "Line %d not found", idx).
			WithDetail("figure", s.Number).WithDetail("line_index", idx)
	}
	return s.Series[idx], nil
}
