package chart

import (
	"fmt"
	"math"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/ormasoftchile/grader/pkg/figure"
	"github.com/ormasoftchile/grader/pkg/value"
)

// current targets whatever figure is current when the call happens.
const current = 0

// Module returns the plt module bound to this session.
func (s *Session) Module() *starlarkstruct.Module {
	ax := &axes{s: s, fig: current}
	return &starlarkstruct.Module{
		Name: "plt",
		Members: starlark.StringDict{
			"figure":       starlark.NewBuiltin("figure", s.figure),
			"subplots":     starlark.NewBuiltin("subplots", s.subplots),
			"gcf":          starlark.NewBuiltin("gcf", s.gcf),
			"gca":          starlark.NewBuiltin("gca", s.gca),
			"close":        starlark.NewBuiltin("close", s.close),
			"get_fignums":  starlark.NewBuiltin("get_fignums", s.getFignums),
			"plot":         starlark.NewBuiltin("plot", ax.plot),
			"scatter":      starlark.NewBuiltin("scatter", ax.scatter),
			"bar":          starlark.NewBuiltin("bar", ax.bar),
			"title":        starlark.NewBuiltin("title", ax.setTitle),
			"xlabel":       starlark.NewBuiltin("xlabel", ax.setXLabel),
			"ylabel":       starlark.NewBuiltin("ylabel", ax.setYLabel),
			"legend":       starlark.NewBuiltin("legend", ax.legend),
			"grid":         starlark.NewBuiltin("grid", ax.grid),
			"show":         noop("show"),
			"savefig":      noop("savefig"),
			"tight_layout": noop("tight_layout"),
			"xlim":         noop("xlim"),
			"ylim":         noop("ylim"),
			"xticks":       noop("xticks"),
			"yticks":       noop("yticks"),
			"axis":         noop("axis"),
			"text":         noop("text"),
			"axhline":      noop("axhline"),
			"axvline":      noop("axvline"),
			"suptitle":     noop("suptitle"),
		},
	}
}

func noop(name string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return starlark.None, nil
	})
}

// kwarg returns the first keyword argument matching any of names.
func kwarg(kwargs []starlark.Tuple, names ...string) (starlark.Value, bool) {
	for _, kv := range kwargs {
		k, _ := starlark.AsString(kv[0])
		for _, n := range names {
			if k == n {
				return kv[1], true
			}
		}
	}
	return nil, false
}

// argOrKwarg returns positional argument i or the named keyword argument.
func argOrKwarg(args starlark.Tuple, i int, kwargs []starlark.Tuple, names ...string) (starlark.Value, bool) {
	if i < len(args) {
		return args[i], true
	}
	return kwarg(kwargs, names...)
}

func text(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

func (s *Session) figure(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	num := 0
	if v, ok := argOrKwarg(args, 0, kwargs, "num"); ok && v != starlark.None {
		if err := starlark.AsInt(v, &num); err != nil {
			return nil, fmt.Errorf("%s: num must be an int", fn.Name())
		}
		if num <= 0 {
			return nil, fmt.Errorf("%s: num must be positive", fn.Name())
		}
	}
	var chosen int
	s.update(func(b *Backend) {
		chosen = b.figureLocked(num).snap.Number
	})
	return &figureValue{s: s, num: chosen}, nil
}

func (s *Session) subplots(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	rows, cols := 1, 1
	if v, ok := argOrKwarg(args, 0, kwargs, "nrows"); ok {
		if err := starlark.AsInt(v, &rows); err != nil {
			return nil, fmt.Errorf("%s: nrows must be an int", fn.Name())
		}
	}
	if v, ok := argOrKwarg(args, 1, kwargs, "ncols"); ok {
		if err := starlark.AsInt(v, &cols); err != nil {
			return nil, fmt.Errorf("%s: ncols must be an int", fn.Name())
		}
	}
	if rows*cols != 1 {
		return nil, fmt.Errorf("%s: only a single axes is supported, got %dx%d", fn.Name(), rows, cols)
	}
	var num int
	s.update(func(b *Backend) {
		num = b.figureLocked(0).snap.Number
	})
	return starlark.Tuple{&figureValue{s: s, num: num}, &axes{s: s, fig: num}}, nil
}

func (s *Session) gcf(_ *starlark.Thread, _ *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	var num int
	s.update(func(b *Backend) {
		num = b.currentLocked().snap.Number
	})
	return &figureValue{s: s, num: num}, nil
}

func (s *Session) gca(_ *starlark.Thread, _ *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	var num int
	s.update(func(b *Backend) {
		num = b.currentLocked().snap.Number
	})
	return &axes{s: s, fig: num}, nil
}

func (s *Session) close(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	v, ok := argOrKwarg(args, 0, kwargs, "fig")
	switch {
	case !ok || v == starlark.None:
		s.update(func(b *Backend) { b.closeLocked(b.current) })
	case v == starlark.String("all"):
		s.update(func(b *Backend) {
			b.figs = make(map[int]*figureState)
			b.current = 0
		})
	default:
		var num int
		if f, isFig := v.(*figureValue); isFig {
			num = f.num
		} else if err := starlark.AsInt(v, &num); err != nil {
			return nil, fmt.Errorf("%s: unrecognized argument %s", fn.Name(), v.Type())
		}
		s.update(func(b *Backend) { b.closeLocked(num) })
	}
	return starlark.None, nil
}

func (s *Session) getFignums(_ *starlark.Thread, _ *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
	var nums []int
	s.update(func(b *Backend) {
		for n := range b.figs {
			nums = append(nums, n)
		}
	})
	sort.Ints(nums)
	elems := make([]starlark.Value, len(nums))
	for i, n := range nums {
		elems[i] = starlark.MakeInt(n)
	}
	return starlark.NewList(elems), nil
}

// target resolves the figure an axes operation writes to.
func (b *Backend) target(fig int) *figureState {
	if fig == current {
		return b.currentLocked()
	}
	if f, ok := b.figs[fig]; ok {
		return f
	}
	return b.figureLocked(fig)
}

// toFloats converts an ndarray, list, tuple or range into float64 values.
func toFloats(v starlark.Value) ([]float64, error) {
	if arr, ok := v.(value.ArrayLike); ok {
		return append([]float64(nil), arr.ArrayData()...), nil
	}
	if f, ok := starlark.AsFloat(v); ok {
		return []float64{f}, nil
	}
	iter := starlark.Iterate(v)
	if iter == nil {
		return nil, fmt.Errorf("expected a sequence of numbers, got %s", v.Type())
	}
	defer iter.Done()
	var out []float64
	var x starlark.Value
	for iter.Next(&x) {
		f, ok := starlark.AsFloat(x)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %s", x.Type())
		}
		out = append(out, f)
	}
	return out, nil
}

func indexes(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// colorSpec reads a color given as a string or an (r, g, b) tuple.
func colorSpec(v starlark.Value) (spec, hex string, err error) {
	if str, ok := starlark.AsString(v); ok {
		hex, err = figure.NormalizeColor(str)
		return str, hex, err
	}
	rgb, err := toFloats(v)
	if err != nil || len(rgb) < 3 {
		return "", "", fmt.Errorf("invalid color %s", v.String())
	}
	for _, c := range rgb[:3] {
		if c < 0 || c > 1 || math.IsNaN(c) {
			return "", "", fmt.Errorf("RGB values must be in the 0-1 range: %s", v.String())
		}
	}
	hex = fmt.Sprintf("#%02x%02x%02x", int(math.Round(rgb[0]*255)), int(math.Round(rgb[1]*255)), int(math.Round(rgb[2]*255)))
	return v.String(), hex, nil
}

// lineProps are keyword overrides shared by plot, scatter and bar.
type lineProps struct {
	colorSpec, color string
	lineStyle        string
	lineWidth        float64
	hasWidth         bool
	marker           string
	markerSize       float64
	hasSize          bool
	label            string
}

func readProps(fnName string, kwargs []starlark.Tuple) (lineProps, error) {
	var p lineProps
	if v, ok := kwarg(kwargs, "color", "c"); ok && v != starlark.None {
		spec, hex, err := colorSpec(v)
		if err != nil {
			return p, fmt.Errorf("%s: %v", fnName, err)
		}
		p.colorSpec, p.color = spec, hex
	}
	if v, ok := kwarg(kwargs, "linestyle", "ls"); ok {
		ls, valid := figure.NormalizeLineStyle(text(v))
		if !valid {
			return p, fmt.Errorf("%s: %s is not a valid value for linestyle", fnName, v.String())
		}
		p.lineStyle = ls
	}
	if v, ok := kwarg(kwargs, "linewidth", "lw"); ok {
		f, ok := starlark.AsFloat(v)
		if !ok {
			return p, fmt.Errorf("%s: linewidth must be a number", fnName)
		}
		p.lineWidth, p.hasWidth = f, true
	}
	if v, ok := kwarg(kwargs, "marker"); ok && v != starlark.None {
		m := text(v)
		if m != figure.NoneStyle && m != "" && !figure.IsMarker(m) {
			return p, fmt.Errorf("%s: unrecognized marker style %s", fnName, v.String())
		}
		if m == "" {
			m = figure.NoneStyle
		}
		p.marker = m
	}
	if v, ok := kwarg(kwargs, "markersize", "ms"); ok {
		f, ok := starlark.AsFloat(v)
		if !ok {
			return p, fmt.Errorf("%s: markersize must be a number", fnName)
		}
		p.markerSize, p.hasSize = f, true
	}
	if v, ok := kwarg(kwargs, "label"); ok && v != starlark.None {
		p.label = text(v)
	}
	return p, nil
}

// splitPlotArgs groups plot arguments into (x, y, fmt) triples.
func splitPlotArgs(args starlark.Tuple) [][]starlark.Value {
	var groups [][]starlark.Value
	rest := []starlark.Value(args)
	for len(rest) > 0 {
		n := 2
		if n > len(rest) {
			n = len(rest)
		}
		this := append([]starlark.Value(nil), rest[:n]...)
		rest = rest[n:]
		if len(rest) > 0 {
			if _, ok := rest[0].(starlark.String); ok {
				this = append(this, rest[0])
				rest = rest[1:]
			}
		}
		groups = append(groups, this)
	}
	return groups
}

// Line2D and friends are returned to the program as opaque handles.
type handle struct {
	kind string
}

func (h handle) String() string        { return "<" + h.kind + ">" }
func (h handle) Type() string          { return h.kind }
func (h handle) Freeze()               {}
func (h handle) Truth() starlark.Bool  { return starlark.True }
func (h handle) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", h.kind) }
