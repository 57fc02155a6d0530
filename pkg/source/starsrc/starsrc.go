// Package starsrc builds a source.Model from the Starlark syntax tree.
package starsrc

import (
	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/program"
	"github.com/ormasoftchile/grader/pkg/source"
)

// Model is the Starlark-backed source model.
type Model struct {
	calls    []source.Call
	ops      []source.Operator
	loops    []source.Loop
	defs     []source.FunctionDef
	branches []source.Branch
}

var _ source.Model = (*Model)(nil)

// Parse parses p and collects its structural facts. A syntax error is
// returned as the ParseFailed error from program.Parse.
func Parse(p *program.Program) (*Model, error) {
	f, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return FromFile(f), nil
}

// FromFile collects facts from an already parsed tree. The tree is only
// read.
func FromFile(f *syntax.File) *Model {
	m := &Model{}
	walk(f, m.visit)
	return m
}

func (m *Model) Language() string                   { return "starlark" }
func (m *Model) Calls() []source.Call               { return m.calls }
func (m *Model) Operators() []source.Operator       { return m.ops }
func (m *Model) Loops() []source.Loop               { return m.loops }
func (m *Model) FunctionDefs() []source.FunctionDef { return m.defs }
func (m *Model) Branches() []source.Branch          { return m.branches }

func (m *Model) visit(n syntax.Node) bool {
	switch n := n.(type) {
	case *syntax.CallExpr:
		m.calls = append(m.calls, source.Call{Chain: chain(n.Fn), Line: line(n.Lparen)})
	case *syntax.DefStmt:
		m.defs = append(m.defs, source.FunctionDef{Name: n.Name.Name, Line: line(n.Def)})
	case *syntax.ForStmt:
		m.loops = append(m.loops, source.Loop{Kind: "for", Line: line(n.For)})
	case *syntax.WhileStmt:
		m.loops = append(m.loops, source.Loop{Kind: "while", Line: line(n.While)})
	case *syntax.IfStmt:
		m.branches = append(m.branches, source.Branch{Line: line(n.If)})
	case *syntax.AssignStmt:
		if n.Op != syntax.EQ {
			m.op(n.Op.String(), source.Augmented, n.OpPos)
		}
	case *syntax.BinaryExpr:
		m.op(n.Op.String(), binaryCategory(n.Op), n.OpPos)
	case *syntax.UnaryExpr:
		if n.Op != syntax.STAR {
			m.op(n.Op.String(), source.Unary, n.OpPos)
		}
	}
	return true
}

func (m *Model) op(token string, category source.OperatorKind, pos syntax.Position) {
	m.ops = append(m.ops, source.Operator{
		Token: token,
		Kind:  source.KindOf(token, category),
		Line:  line(pos),
	})
}

func binaryCategory(op syntax.Token) source.OperatorKind {
	switch op {
	case syntax.EQL, syntax.NEQ, syntax.LT, syntax.LE, syntax.GT, syntax.GE:
		return source.Comparison
	case syntax.AND, syntax.OR:
		return source.Boolean
	case syntax.IN, syntax.NOT_IN:
		return source.Membership
	}
	return source.Binary
}

// chain flattens a callee expression into its dotted path.
func chain(e syntax.Expr) []string {
	switch e := e.(type) {
	case *syntax.Ident:
		return []string{e.Name}
	case *syntax.DotExpr:
		return append(chain(e.X), e.Name.Name)
	case *syntax.ParenExpr:
		return chain(e.X)
	}
	return []string{"?"}
}

func line(p syntax.Position) int { return int(p.Line) }
