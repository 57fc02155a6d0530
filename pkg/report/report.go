// Package report renders a results summary for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/grader/pkg/results"
)

// Format selects a renderer.
type Format string

const (
	Text     Format = "text"
	Color    Format = "color"
	JSON     Format = "json"
	Markdown Format = "markdown"
)

// Formats lists the accepted format names.
func Formats() []string {
	return []string{string(Text), string(Color), string(JSON), string(Markdown)}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, Color, JSON, Markdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(Formats(), ", "))
}

// Meta identifies the graded run in machine-readable output.
type Meta struct {
	Suite     string `json:"suite,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// Write renders s to w in format f.
func Write(w io.Writer, f Format, meta Meta, s results.Summary) error {
	switch f {
	case Color:
		return WriteColor(w, s)
	case JSON:
		return WriteJSON(w, meta, s)
	case Markdown:
		return WriteMarkdown(w, meta, s, true)
	}
	return WriteText(w, s)
}

// WriteText prints one line per record and the summary block.
func WriteText(w io.Writer, s results.Summary) error {
	var b strings.Builder
	for _, r := range s.Records {
		b.WriteString(r.Line())
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(s.Format())
	_, err := io.WriteString(w, b.String())
	return err
}

type document struct {
	Meta
	results.Summary
}

// WriteJSON writes the summary and records as indented JSON.
func WriteJSON(w io.Writer, meta Meta, s results.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Meta: meta, Summary: s})
}

// WriteColor prints records with colored glyphs and an aligned kind column.
// Colors degrade to plain text when w is not a terminal.
func WriteColor(w io.Writer, s results.Summary) error {
	r := lipgloss.NewRenderer(w)
	pass := r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	fail := r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dim := r.NewStyle().Foreground(lipgloss.Color("240"))
	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))

	width := 0
	for _, rec := range s.Records {
		if n := runewidth.StringWidth(rec.Kind); n > width {
			width = n
		}
	}

	var b strings.Builder
	for _, rec := range s.Records {
		glyph, style := "✓ PASS", pass
		if !rec.Passed {
			glyph, style = "✗ FAIL", fail
		}
		kind := runewidth.FillRight(rec.Kind, width)
		fmt.Fprintf(&b, "%s  %s  %s\n", style.Render(glyph), dim.Render(kind), rec.Message)
	}
	b.WriteString("\n")
	b.WriteString(header.Render("AUTOGRADER SUMMARY"))
	b.WriteString("\n")
	rate := pass
	if s.Failed > 0 {
		rate = fail
	}
	fmt.Fprintf(&b, "Score: %s   Passed: %d   Failed: %d   Success Rate: %s\n",
		s.Score, s.Passed, s.Failed, rate.Render(fmt.Sprintf("%.1f%%", s.SuccessRate)))
	_, err := io.WriteString(w, b.String())
	return err
}

// MarkdownSource builds the Markdown document for s.
func MarkdownSource(meta Meta, s results.Summary) string {
	var b strings.Builder
	b.WriteString("# Autograder report\n\n")
	if meta.Candidate != "" {
		fmt.Fprintf(&b, "**Candidate:** `%s`  \n", meta.Candidate)
	}
	if meta.Suite != "" {
		fmt.Fprintf(&b, "**Suite:** `%s`  \n", meta.Suite)
	}
	fmt.Fprintf(&b, "**Score:** %s (%.1f%%)\n\n", s.Score, s.SuccessRate)
	b.WriteString("| | Check | Message |\n")
	b.WriteString("|---|---|---|\n")
	for _, r := range s.Records {
		glyph := "✓"
		if !r.Passed {
			glyph = "✗"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", glyph, r.Kind, escapeCell(r.Message))
	}
	return b.String()
}

// WriteMarkdown writes the Markdown report, rendered for the terminal with
// glamour when render is set. Rendering failures fall back to the source.
func WriteMarkdown(w io.Writer, meta Meta, s results.Summary, render bool) error {
	md := MarkdownSource(meta, s)
	if render {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			if out, err := r.Render(md); err == nil {
				md = out
			}
		}
	}
	_, err := io.WriteString(w, md)
	return err
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
