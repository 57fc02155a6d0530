// Package pysrc builds a source.Model from a tree-sitter Python parse. It
// answers structural queries for submissions written in plain Python that
// the interpreter's dialect rejects, such as those using ** or is.
package pysrc

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/source"
)

// Model is the tree-sitter backed source model.
type Model struct {
	calls    []source.Call
	ops      []source.Operator
	loops    []source.Loop
	defs     []source.FunctionDef
	branches []source.Branch
}

var _ source.Model = (*Model)(nil)

// Parse parses src as Python. A tree containing ERROR nodes is rejected
// with ParseFailed so callers never reason over a partial tree.
func Parse(ctx context.Context, name, src string) (*Model, error) {
	content := []byte(src)

	// A parser per call; tree-sitter parsers are not safe to share.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, errors.Wrap(err, errors.ParseFailed).WithDetail("program", name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, errors.Newf(errors.ParseFailed, "tree-sitter returned no root node").WithDetail("program", name)
	}
	if root.HasError() {
		return nil, errors.Newf(errors.ParseFailed, "source contains syntax errors").WithDetail("program", name)
	}

	m := &Model{}
	m.walk(root, content)
	return m, nil
}

func (m *Model) Language() string                   { return "python" }
func (m *Model) Calls() []source.Call               { return m.calls }
func (m *Model) Operators() []source.Operator       { return m.ops }
func (m *Model) Loops() []source.Loop               { return m.loops }
func (m *Model) FunctionDefs() []source.FunctionDef { return m.defs }
func (m *Model) Branches() []source.Branch          { return m.branches }

func (m *Model) walk(n *sitter.Node, content []byte) {
	ln := int(n.StartPoint().Row + 1)
	switch n.Type() {
	case "call":
		m.calls = append(m.calls, source.Call{Chain: chain(n.ChildByFieldName("function"), content), Line: ln})
	case "function_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			m.defs = append(m.defs, source.FunctionDef{Name: name.Content(content), Line: ln})
		}
	case "for_statement":
		m.loops = append(m.loops, source.Loop{Kind: "for", Line: ln})
	case "while_statement":
		m.loops = append(m.loops, source.Loop{Kind: "while", Line: ln})
	case "if_statement", "elif_clause":
		m.branches = append(m.branches, source.Branch{Line: ln})
	case "augmented_assignment":
		m.fieldOp(n, source.Augmented, content)
	case "binary_operator":
		m.fieldOp(n, source.Binary, content)
	case "boolean_operator":
		m.fieldOp(n, source.Boolean, content)
	case "unary_operator":
		m.fieldOp(n, source.Unary, content)
	case "not_operator":
		m.add("not", source.Unary, ln)
	case "comparison_operator":
		// Operators are the anonymous children between operands.
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c.IsNamed() {
				continue
			}
			tok := c.Type()
			m.add(tok, comparisonCategory(tok), int(c.StartPoint().Row+1))
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		m.walk(n.Child(i), content)
	}
}

func (m *Model) fieldOp(n *sitter.Node, category source.OperatorKind, content []byte) {
	op := n.ChildByFieldName("operator")
	if op == nil {
		return
	}
	m.add(op.Type(), category, int(op.StartPoint().Row+1))
}

func (m *Model) add(token string, category source.OperatorKind, ln int) {
	m.ops = append(m.ops, source.Operator{Token: token, Kind: source.KindOf(token, category), Line: ln})
}

func comparisonCategory(tok string) source.OperatorKind {
	switch tok {
	case "in", "not in":
		return source.Membership
	case "is", "is not":
		return source.Identity
	}
	return source.Comparison
}

func chain(n *sitter.Node, content []byte) []string {
	if n == nil {
		return []string{"?"}
	}
	switch n.Type() {
	case "identifier":
		return []string{n.Content(content)}
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return []string{"?"}
		}
		return append(chain(n.ChildByFieldName("object"), content), attr.Content(content))
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return chain(n.NamedChild(0), content)
		}
	}
	return []string{"?"}
}
