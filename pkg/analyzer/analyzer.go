// Package analyzer answers structural questions about a program without
// running it.
package analyzer

import (
	"context"
	"strings"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/source"
	"github.com/ormasoftchile/grader/pkg/source/pysrc"
	"github.com/ormasoftchile/grader/pkg/source/starsrc"
)

// Analyzer holds the source model of one program. When neither parser
// accepts the program, only ContainsPhrase answers; every structural query
// returns a SyntaxUnavailable error.
type Analyzer struct {
	prog     *program.Program
	model    source.Model
	parseErr error
}

// New parses p with the Starlark parser and falls back to the Python
// grammar when that fails. It never returns an error; parse failures are
// reported by the queries.
func New(ctx context.Context, p *program.Program) *Analyzer {
	a := &Analyzer{prog: p}
	m, err := starsrc.Parse(p)
	if err == nil {
		a.model = m
		return a
	}
	a.parseErr = err
	if pm, perr := pysrc.Parse(ctx, p.Name(), p.Source()); perr == nil {
		a.model = pm
	}
	return a
}

// FromModel wraps an existing model.
func FromModel(p *program.Program, m source.Model) *Analyzer {
	return &Analyzer{prog: p, model: m}
}

// Model returns the model in use, nil when the program did not parse.
func (a *Analyzer) Model() source.Model { return a.model }

// ParseError is the Starlark parse error, if any. It is set even when the
// Python fallback succeeded.
func (a *Analyzer) ParseError() error { return a.parseErr }

func (a *Analyzer) available() (source.Model, error) {
	if a.model != nil {
		return a.model, nil
	}
	return nil, errors.Wrapf(a.parseErr, errors.SyntaxUnavailable, "AST not available").
		WithDetail("program", a.prog.Name())
}

// DefinesFunction reports whether a function with exactly this name is
// defined at any scope.
func (a *Analyzer) DefinesFunction(name string) (bool, error) {
	m, err := a.available()
	if err != nil {
		return false, err
	}
	for _, d := range m.FunctionDefs() {
		if d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CallMatch is the outcome of CallsFunction. Name is the full chain of the
// first matching call.
type CallMatch struct {
	Found bool
	Name  string
	Line  int
}

// CallsFunction looks for a call to name. A dotted name must match a call
// chain exactly. A bare name matches any chain ending in it. With
// anyPrefix, a dotted name also matches on its final segment alone.
func (a *Analyzer) CallsFunction(name string, anyPrefix bool) (CallMatch, error) {
	m, err := a.available()
	if err != nil {
		return CallMatch{}, err
	}
	final := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		final = name[i+1:]
	}
	dotted := final != name
	for _, c := range m.Calls() {
		full := c.Name()
		switch {
		case full == name,
			!dotted && c.Final() == name,
			anyPrefix && c.Final() == final:
			return CallMatch{Found: true, Name: full, Line: c.Line}, nil
		}
	}
	return CallMatch{}, nil
}

// UsesLoopKind reports whether a loop of kind "for" or "while" exists.
func (a *Analyzer) UsesLoopKind(kind string) (bool, error) {
	if kind != "for" && kind != "while" {
		return false, errors.Newf(errors.InvalidParam, "unknown loop kind %q", kind)
	}
	m, err := a.available()
	if err != nil {
		return false, err
	}
	for _, l := range m.Loops() {
		if l.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

// UsesBranch reports whether an if statement exists.
func (a *Analyzer) UsesBranch() (bool, error) {
	m, err := a.available()
	if err != nil {
		return false, err
	}
	return len(m.Branches()) > 0, nil
}

// UsesOperator reports whether token occurs as an operator in the node
// kind it belongs to. Occurrences inside strings and comments never count.
func (a *Analyzer) UsesOperator(token string) (bool, error) {
	kind, ok := source.Classify(token)
	if !ok {
		return false, errors.Newf(errors.InvalidParam, "unknown operator %q", token).
			WithDetail("known", source.OperatorTokens())
	}
	m, err := a.available()
	if err != nil {
		return false, err
	}
	for _, o := range m.Operators() {
		if o.Token == token && o.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

// ContainsPhrase searches the raw submitted text. It works whether or not
// the program parses.
func (a *Analyzer) ContainsPhrase(phrase string, caseSensitive bool) bool {
	text := a.prog.Source()
	if !caseSensitive {
		text, phrase = strings.ToLower(text), strings.ToLower(phrase)
	}
	return strings.Contains(text, phrase)
}

// Facts is a serializable digest of the model, used by the analyze command.
type Facts struct {
	Program      string               `json:"program"`
	Language     string               `json:"language,omitempty"`
	ParseError   string               `json:"parse_error,omitempty"`
	Calls        []source.Call        `json:"calls,omitempty"`
	Operators    []source.Operator    `json:"operators,omitempty"`
	Loops        []source.Loop        `json:"loops,omitempty"`
	FunctionDefs []source.FunctionDef `json:"function_defs,omitempty"`
	Branches     []source.Branch      `json:"branches,omitempty"`
}

// Facts collects everything the model knows.
func (a *Analyzer) Facts() Facts {
	f := Facts{Program: a.prog.Identity()}
	if a.parseErr != nil {
		f.ParseError = a.parseErr.Error()
	}
	if a.model == nil {
		return f
	}
	f.Language = a.model.Language()
	f.Calls = a.model.Calls()
	f.Operators = a.model.Operators()
	f.Loops = a.model.Loops()
	f.FunctionDefs = a.model.FunctionDefs()
	f.Branches = a.model.Branches()
	return f
}
