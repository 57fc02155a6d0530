package chart

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"

	"github.com/ormasoftchile/grader/pkg/figure"
)

// axes is the single axes of a figure. fig == current follows the current
// figure, which is how the module-level functions behave.
type axes struct {
	s   *Session
	fig int
}

var axesMethods = []string{"bar", "grid", "legend", "plot", "scatter", "set_title", "set_xlabel", "set_xlim", "set_ylabel", "set_ylim"}

func (a *axes) String() string        { return "<Axes>" }
func (a *axes) Type() string          { return "Axes" }
func (a *axes) Freeze()               {}
func (a *axes) Truth() starlark.Bool  { return starlark.True }
func (a *axes) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: Axes") }
func (a *axes) AttrNames() []string   { return axesMethods }

func (a *axes) Attr(name string) (starlark.Value, error) {
	switch name {
	case "plot":
		return starlark.NewBuiltin(name, a.plot), nil
	case "scatter":
		return starlark.NewBuiltin(name, a.scatter), nil
	case "bar":
		return starlark.NewBuiltin(name, a.bar), nil
	case "set_title":
		return starlark.NewBuiltin(name, a.setTitle), nil
	case "set_xlabel":
		return starlark.NewBuiltin(name, a.setXLabel), nil
	case "set_ylabel":
		return starlark.NewBuiltin(name, a.setYLabel), nil
	case "legend":
		return starlark.NewBuiltin(name, a.legend), nil
	case "grid":
		return starlark.NewBuiltin(name, a.grid), nil
	case "set_xlim", "set_ylim":
		return noop(name), nil
	}
	return nil, nil
}

// figureValue is what figure() and subplots() hand back.
type figureValue struct {
	s   *Session
	num int
}

func (f *figureValue) String() string        { return fmt.Sprintf("<Figure %d>", f.num) }
func (f *figureValue) Type() string          { return "Figure" }
func (f *figureValue) Freeze()               {}
func (f *figureValue) Truth() starlark.Bool  { return starlark.True }
func (f *figureValue) Hash() (uint32, error) { return uint32(f.num), nil }
func (f *figureValue) AttrNames() []string {
	return []string{"add_subplot", "gca", "number", "savefig", "suptitle", "tight_layout"}
}

func (f *figureValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "number":
		return starlark.MakeInt(f.num), nil
	case "gca", "add_subplot":
		return starlark.NewBuiltin(name, func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
			return &axes{s: f.s, fig: f.num}, nil
		}), nil
	case "savefig", "suptitle", "tight_layout":
		return noop(name), nil
	}
	return nil, nil
}

func (a *axes) plot(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return starlark.NewList(nil), nil
	}
	props, err := readProps(fn.Name(), kwargs)
	if err != nil {
		return nil, err
	}
	var pending []figure.Series
	for _, group := range splitPlotArgs(args) {
		var format figure.Format
		if str, ok := group[len(group)-1].(starlark.String); ok {
			format, err = figure.ParseFormat(string(str))
			if err != nil {
				return nil, fmt.Errorf("%s: %v", fn.Name(), err)
			}
			group = group[:len(group)-1]
		}
		var x, y []float64
		switch len(group) {
		case 1:
			if y, err = toFloats(group[0]); err != nil {
				return nil, fmt.Errorf("%s: %v", fn.Name(), err)
			}
			x = indexes(len(y))
		case 2:
			if x, err = toFloats(group[0]); err != nil {
				return nil, fmt.Errorf("%s: %v", fn.Name(), err)
			}
			if y, err = toFloats(group[1]); err != nil {
				return nil, fmt.Errorf("%s: %v", fn.Name(), err)
			}
		default:
			return nil, fmt.Errorf("%s: missing data", fn.Name())
		}
		if len(x) != len(y) {
			return nil, fmt.Errorf("%s: x and y must have same first dimension, but have shapes (%d,) and (%d,)", fn.Name(), len(x), len(y))
		}
		ls, marker := format.Resolve()
		series := figure.Series{
			Kind:       figure.KindLine,
			X:          x,
			Y:          y,
			LineStyle:  ls,
			LineWidth:  figure.DefaultLineWidth,
			Marker:     marker,
			MarkerSize: figure.DefaultMarkerSize,
			Label:      props.label,
		}
		if format.Color != "" {
			hex, err := figure.NormalizeColor(format.Color)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", fn.Name(), err)
			}
			series.ColorSpec, series.Color = format.Color, hex
		}
		props.apply(&series)
		pending = append(pending, series)
	}

	a.s.update(func(b *Backend) {
		f := b.target(a.fig)
		for _, series := range pending {
			if series.Color == "" {
				series.Color = f.nextCycleColor()
				series.ColorSpec = series.Color
			}
			f.snap.Series = append(f.snap.Series, series)
		}
	})
	handles := make([]starlark.Value, len(pending))
	for i := range handles {
		handles[i] = handle{kind: "Line2D"}
	}
	return starlark.NewList(handles), nil
}

func (p lineProps) apply(s *figure.Series) {
	if p.color != "" {
		s.ColorSpec, s.Color = p.colorSpec, p.color
	}
	if p.lineStyle != "" {
		s.LineStyle = p.lineStyle
	}
	if p.hasWidth {
		s.LineWidth = p.lineWidth
	}
	if p.marker != "" {
		s.Marker = p.marker
	}
	if p.hasSize {
		s.MarkerSize = p.markerSize
	}
	if p.label != "" {
		s.Label = p.label
	}
}

func (a *axes) scatter(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	xv, okX := argOrKwarg(args, 0, kwargs, "x")
	yv, okY := argOrKwarg(args, 1, kwargs, "y")
	if !okX || !okY {
		return nil, fmt.Errorf("%s: missing x or y", fn.Name())
	}
	x, err := toFloats(xv)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	y, err := toFloats(yv)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%s: x and y must be the same size", fn.Name())
	}
	props, err := readProps(fn.Name(), kwargs)
	if err != nil {
		return nil, err
	}
	series := figure.Series{
		Kind:       figure.KindScatter,
		X:          x,
		Y:          y,
		LineStyle:  figure.NoneStyle,
		LineWidth:  figure.DefaultLineWidth,
		Marker:     "o",
		MarkerSize: figure.DefaultMarkerSize,
		Label:      props.label,
	}
	if v, ok := argOrKwarg(args, 2, kwargs, "s"); ok && v != starlark.None {
		area, ok := starlark.AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("%s: s must be a number", fn.Name())
		}
		series.MarkerSize = math.Sqrt(area)
	}
	props.apply(&series)
	a.s.update(func(b *Backend) {
		f := b.target(a.fig)
		if series.Color == "" {
			series.Color = f.nextCycleColor()
			series.ColorSpec = series.Color
		}
		f.snap.Series = append(f.snap.Series, series)
	})
	return handle{kind: "PathCollection"}, nil
}

func (a *axes) bar(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	xv, okX := argOrKwarg(args, 0, kwargs, "x")
	hv, okH := argOrKwarg(args, 1, kwargs, "height")
	if !okX || !okH {
		return nil, fmt.Errorf("%s: missing x or height", fn.Name())
	}
	var x []float64
	var err error
	if labels, ok := stringSeq(xv); ok {
		x = indexes(len(labels))
	} else if x, err = toFloats(xv); err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	h, err := toFloats(hv)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fn.Name(), err)
	}
	if len(h) == 1 && len(x) > 1 {
		for len(h) < len(x) {
			h = append(h, h[0])
		}
	}
	if len(x) != len(h) {
		return nil, fmt.Errorf("%s: shape mismatch: objects cannot be broadcast to a single shape", fn.Name())
	}
	props, err := readProps(fn.Name(), kwargs)
	if err != nil {
		return nil, err
	}
	series := figure.Series{
		Kind:      figure.KindBar,
		X:         x,
		Y:         h,
		LineStyle: figure.NoneStyle,
		Marker:    figure.NoneStyle,
		Label:     props.label,
	}
	props.apply(&series)
	a.s.update(func(b *Backend) {
		f := b.target(a.fig)
		if series.Color == "" {
			series.Color = f.nextCycleColor()
			series.ColorSpec = series.Color
		}
		f.snap.Series = append(f.snap.Series, series)
	})
	return handle{kind: "BarContainer"}, nil
}

func stringSeq(v starlark.Value) ([]string, bool) {
	iter := starlark.Iterate(v)
	if iter == nil {
		return nil, false
	}
	defer iter.Done()
	var out []string
	var x starlark.Value
	for iter.Next(&x) {
		s, ok := x.(starlark.String)
		if !ok {
			return nil, false
		}
		out = append(out, string(s))
	}
	return out, len(out) > 0
}

func (a *axes) setLabel(fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, set func(*figure.Snapshot, string)) (starlark.Value, error) {
	v, ok := argOrKwarg(args, 0, kwargs, "label", "xlabel", "ylabel")
	if !ok {
		return nil, fmt.Errorf("%s: missing label", fn.Name())
	}
	label := text(v)
	a.s.update(func(b *Backend) {
		set(&b.target(a.fig).snap, label)
	})
	return starlark.None, nil
}

func (a *axes) setTitle(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return a.setLabel(fn, args, kwargs, func(s *figure.Snapshot, l string) { s.Title = l })
}

func (a *axes) setXLabel(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return a.setLabel(fn, args, kwargs, func(s *figure.Snapshot, l string) { s.XLabel = l })
}

func (a *axes) setYLabel(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return a.setLabel(fn, args, kwargs, func(s *figure.Snapshot, l string) { s.YLabel = l })
}

// legend marks the legend present. A list of labels, if given, is applied
// to the series in order.
func (a *axes) legend(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var labels []string
	if v, ok := argOrKwarg(args, 0, kwargs, "labels"); ok {
		labels, _ = stringSeq(v)
	}
	a.s.update(func(b *Backend) {
		f := b.target(a.fig)
		f.snap.Legend = true
		for i, l := range labels {
			if i < len(f.snap.Series) {
				f.snap.Series[i].Label = l
			}
		}
	})
	return handle{kind: "Legend"}, nil
}

// grid with no arguments toggles; grid(False) hides; any styling keyword
// turns it on.
func (a *axes) grid(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	v, explicit := argOrKwarg(args, 0, kwargs, "visible", "b")
	a.s.update(func(b *Backend) {
		f := b.target(a.fig)
		switch {
		case explicit && v != starlark.None:
			f.snap.Grid = bool(v.Truth())
		case len(kwargs) > 0:
			f.snap.Grid = true
		default:
			f.snap.Grid = !f.snap.Grid
		}
	})
	return starlark.None, nil
}
