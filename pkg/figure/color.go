package figure

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ColorTolerance is the per-channel tolerance used when comparing colors.
const ColorTolerance = 0.01

// DefaultCycle is the default property cycle, referenced as C0..C9.
var DefaultCycle = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

var baseColors = map[string]string{
	"b": "#0000ff",
	"g": "#008000",
	"r": "#ff0000",
	"c": "#00bfbf",
	"m": "#bf00bf",
	"y": "#bfbf00",
	"k": "#000000",
	"w": "#ffffff",
}

var tableauColors = map[string]string{
	"tab:blue":   "#1f77b4",
	"tab:orange": "#ff7f0e",
	"tab:green":  "#2ca02c",
	"tab:red":    "#d62728",
	"tab:purple": "#9467bd",
	"tab:brown":  "#8c564b",
	"tab:pink":   "#e377c2",
	"tab:gray":   "#7f7f7f",
	"tab:grey":   "#7f7f7f",
	"tab:olive":  "#bcbd22",
	"tab:cyan":   "#17becf",
}

// ParseColor resolves a color specification: a single-letter code, a CSS
// name, a tab: name, C0..C9, #rgb or #rrggbb, or a gray level in [0, 1].
func ParseColor(spec string) (colorful.Color, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return colorful.Color{}, fmt.Errorf("empty color")
	}
	if hex, ok := baseColors[s]; ok {
		return colorful.Hex(hex)
	}
	if hex, ok := tableauColors[s]; ok {
		return colorful.Hex(hex)
	}
	if hex, ok := cssColors[s]; ok {
		return colorful.Hex(hex)
	}
	if len(s) == 2 && s[0] == 'c' && s[1] >= '0' && s[1] <= '9' {
		return colorful.Hex(DefaultCycle[s[1]-'0'])
	}
	if strings.HasPrefix(s, "#") {
		if len(s) == 9 {
			s = s[:7]
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("invalid color %q", spec)
		}
		return c, nil
	}
	if g, err := strconv.ParseFloat(s, 64); err == nil && g >= 0 && g <= 1 {
		return colorful.Color{R: g, G: g, B: g}, nil
	}
	return colorful.Color{}, fmt.Errorf("invalid color %q", spec)
}

// IsColor reports whether spec parses as a color.
func IsColor(spec string) bool {
	_, err := ParseColor(spec)
	return err == nil
}

// NormalizeColor returns the #rrggbb form of spec.
func NormalizeColor(spec string) (string, error) {
	c, err := ParseColor(spec)
	if err != nil {
		return "", err
	}
	return c.Clamped().Hex(), nil
}

// SameColor reports whether two specifications resolve to the same RGB
// within ColorTolerance per channel.
func SameColor(a, b string) (bool, error) {
	ca, err := ParseColor(a)
	if err != nil {
		return false, err
	}
	cb, err := ParseColor(b)
	if err != nil {
		return false, err
	}
	return math.Abs(ca.R-cb.R) < ColorTolerance &&
		math.Abs(ca.G-cb.G) < ColorTolerance &&
		math.Abs(ca.B-cb.B) < ColorTolerance, nil
}
