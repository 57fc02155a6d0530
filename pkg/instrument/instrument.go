// Package instrument rewrites programs so that every loop reports how many
// times its body ran.
package instrument

import (
	"fmt"
	"strconv"

	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/sandbox"
)

// Loop describes one instrumented loop.
type Loop struct {
	ID   string `json:"id"`
	Kind string `json:"kind"` // "for" or "while"
	Line int    `json:"line"`
}

// Instrument parses p and returns a unit whose loops are counted when it
// runs. A program that does not parse yields a ParseFailed error.
func Instrument(p *program.Program) (*sandbox.Unit, error) {
	f, err := p.Parse()
	if err != nil {
		return nil, err
	}
	loops := Loops(f)
	ids := make([]string, len(loops))
	for i, l := range loops {
		ids[i] = l.ID
	}
	return sandbox.NewInstrumentedUnit(p, ids, Rewrite), nil
}

// Loops lists the loops of f in the order their ids are assigned:
// depth first, pre-order, in source order, function bodies included.
func Loops(f *syntax.File) []Loop {
	r := &rewriter{}
	r.stmts(f.Stmts)
	return r.loops
}

// Rewrite returns a copy of f in which the body of every loop starts with a
// call to the counter builtin. Statement lists along the way are copied, so
// f itself keeps its shape.
func Rewrite(f *syntax.File) *syntax.File {
	r := &rewriter{}
	out := *f
	out.Stmts = r.stmts(f.Stmts)
	return &out
}

type rewriter struct {
	loops []Loop
}

func (r *rewriter) next(kind string, pos syntax.Position) string {
	id := fmt.Sprintf("loop_%d", len(r.loops))
	r.loops = append(r.loops, Loop{ID: id, Kind: kind, Line: int(pos.Line)})
	return id
}

func (r *rewriter) stmts(list []syntax.Stmt) []syntax.Stmt {
	if list == nil {
		return nil
	}
	out := make([]syntax.Stmt, len(list))
	for i, s := range list {
		out[i] = r.stmt(s)
	}
	return out
}

func (r *rewriter) stmt(s syntax.Stmt) syntax.Stmt {
	switch s := s.(type) {
	case *syntax.ForStmt:
		id := r.next("for", s.For)
		c := *s
		c.Body = append([]syntax.Stmt{tick(id, s.For)}, r.stmts(s.Body)...)
		return &c
	case *syntax.WhileStmt:
		id := r.next("while", s.While)
		c := *s
		c.Body = append([]syntax.Stmt{tick(id, s.While)}, r.stmts(s.Body)...)
		return &c
	case *syntax.IfStmt:
		c := *s
		c.True = r.stmts(s.True)
		c.False = r.stmts(s.False)
		return &c
	case *syntax.DefStmt:
		c := *s
		c.Body = r.stmts(s.Body)
		return &c
	}
	return s
}

// tick builds `_loop_tick("loop_N")` positioned at the loop keyword.
func tick(id string, pos syntax.Position) syntax.Stmt {
	return &syntax.ExprStmt{X: &syntax.CallExpr{
		Fn:     &syntax.Ident{NamePos: pos, Name: sandbox.TickBuiltin},
		Lparen: pos,
		Args: []syntax.Expr{&syntax.Literal{
			Token:    syntax.STRING,
			TokenPos: pos,
			Raw:      strconv.Quote(id),
			Value:    id,
		}},
		Rparen: pos,
	}}
}

// BuildUnit is the sandbox.UnitBuilder of worker processes: the program as
// is, or its instrumented copy.
func BuildUnit(p *program.Program, instrumented bool) (*sandbox.Unit, error) {
	if instrumented {
		return Instrument(p)
	}
	return sandbox.NewUnit(p), nil
}
