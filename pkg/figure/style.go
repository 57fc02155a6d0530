package figure

import (
	"fmt"
	"strings"
)

// Default line properties.
const (
	DefaultLineWidth  = 1.5
	DefaultMarkerSize = 6.0
	NoneStyle         = "None"
)

var lineStyleNames = map[string]string{
	"-":       "-",
	"--":      "--",
	"-.":      "-.",
	":":       ":",
	"solid":   "-",
	"dashed":  "--",
	"dashdot": "-.",
	"dotted":  ":",
	"None":    NoneStyle,
	"none":    NoneStyle,
	" ":       NoneStyle,
	"":        NoneStyle,
}

// markerCodes are the single-character marker codes accepted in format strings.
const markerCodes = ".,ov^<>1234sp*hH+xXDd|_"

// NormalizeLineStyle maps long and short style names to the short form.
func NormalizeLineStyle(s string) (string, bool) {
	v, ok := lineStyleNames[s]
	return v, ok
}

// IsMarker reports whether m is a known marker code.
func IsMarker(m string) bool {
	return len(m) == 1 && strings.Contains(markerCodes, m)
}

// Format is a parsed format string such as "r--o". Empty fields were not
// specified.
type Format struct {
	Color     string
	LineStyle string
	Marker    string
}

// ParseFormat parses a plot format string the way the plotting library
// does: an optional color, line style and marker in any order.
func ParseFormat(s string) (Format, error) {
	var f Format
	if s == "" {
		return f, nil
	}
	// A whole color name (e.g. "green") is accepted as the format.
	if len(s) > 1 && !strings.HasPrefix(s, "C") && IsColor(s) {
		f.Color = s
		return f, nil
	}
	for i := 0; i < len(s); {
		rest := s[i:]
		switch {
		case strings.HasPrefix(rest, "--") || strings.HasPrefix(rest, "-."):
			if f.LineStyle != "" {
				return Format{}, fmt.Errorf("illegal format string %q; two linestyle symbols", s)
			}
			f.LineStyle = rest[:2]
			i += 2
		case rest[0] == '-' || rest[0] == ':':
			if f.LineStyle != "" {
				return Format{}, fmt.Errorf("illegal format string %q; two linestyle symbols", s)
			}
			f.LineStyle = rest[:1]
			i++
		case rest[0] == 'C' && len(rest) > 1 && rest[1] >= '0' && rest[1] <= '9':
			if f.Color != "" {
				return Format{}, fmt.Errorf("illegal format string %q; two color symbols", s)
			}
			f.Color = rest[:2]
			i += 2
		case strings.ContainsRune("bgrcmykw", rune(rest[0])):
			if f.Color != "" {
				return Format{}, fmt.Errorf("illegal format string %q; two color symbols", s)
			}
			f.Color = rest[:1]
			i++
		case IsMarker(rest[:1]):
			if f.Marker != "" {
				return Format{}, fmt.Errorf("illegal format string %q; two marker symbols", s)
			}
			f.Marker = rest[:1]
			i++
		default:
			return Format{}, fmt.Errorf("unrecognized character %c in format string %q", rest[0], s)
		}
	}
	return f, nil
}

// Resolve fills defaults the way a plotted line does: with a marker and no
// line style the line is not drawn; with neither the line is solid.
func (f Format) Resolve() (lineStyle, marker string) {
	lineStyle, marker = f.LineStyle, f.Marker
	if lineStyle == "" && marker == "" {
		lineStyle = "-"
	}
	if lineStyle == "" {
		lineStyle = NoneStyle
	}
	if marker == "" {
		marker = NoneStyle
	}
	return lineStyle, marker
}

// MatchStyle checks a series against an expected format string and returns
// the mismatches, one message per property. An empty result means the
// series matches.
func MatchStyle(s Series, expected string, lineIndex int) ([]string, error) {
	f, err := ParseFormat(expected)
	if err != nil {
		return nil, err
	}
	var problems []string
	if f.Color != "" {
		same, err := SameColor(s.Color, f.Color)
		if err == nil && !same {
			problems = append(problems, fmt.Sprintf("Line %d color mismatch", lineIndex))
		}
	}
	if f.LineStyle != "" {
		actual, _ := NormalizeLineStyle(s.LineStyle)
		if actual != f.LineStyle {
			problems = append(problems, fmt.Sprintf("Line %d style is '%s', expected '%s'", lineIndex, s.LineStyle, f.LineStyle))
		}
	}
	if f.Marker != "" {
		switch {
		case !s.HasMarker():
			problems = append(problems, fmt.Sprintf("Line %d has no marker, expected '%s'", lineIndex, f.Marker))
		case s.Marker != f.Marker:
			problems = append(problems, fmt.Sprintf("Line %d marker is '%s', expected '%s'", lineIndex, s.Marker, f.Marker))
		}
	}
	return problems, nil
}
