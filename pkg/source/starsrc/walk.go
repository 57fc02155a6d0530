package starsrc

import "go.starlark.net/syntax"

// walk visits n and its descendants in depth-first source order, stopping
// descent wherever fn returns false. It covers every statement and
// expression kind the parser produces, while loops included.
func walk(n syntax.Node, fn func(syntax.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *syntax.File:
		walkStmts(n.Stmts, fn)

	case *syntax.AssignStmt:
		walkExpr(n.LHS, fn)
		walkExpr(n.RHS, fn)
	case *syntax.DefStmt:
		walkExprs(n.Params, fn)
		walkStmts(n.Body, fn)
	case *syntax.ExprStmt:
		walkExpr(n.X, fn)
	case *syntax.ForStmt:
		walkExpr(n.Vars, fn)
		walkExpr(n.X, fn)
		walkStmts(n.Body, fn)
	case *syntax.WhileStmt:
		walkExpr(n.Cond, fn)
		walkStmts(n.Body, fn)
	case *syntax.IfStmt:
		walkExpr(n.Cond, fn)
		walkStmts(n.True, fn)
		walkStmts(n.False, fn)
	case *syntax.ReturnStmt:
		walkExpr(n.Result, fn)
	case *syntax.LoadStmt:
		walkExpr(n.Module, fn)
		for i := range n.From {
			walkExpr(n.From[i], fn)
			walkExpr(n.To[i], fn)
		}
	case *syntax.BranchStmt:

	case *syntax.BinaryExpr:
		walkExpr(n.X, fn)
		walkExpr(n.Y, fn)
	case *syntax.UnaryExpr:
		walkExpr(n.X, fn)
	case *syntax.CallExpr:
		walkExpr(n.Fn, fn)
		walkExprs(n.Args, fn)
	case *syntax.Comprehension:
		walkExpr(n.Body, fn)
		for _, c := range n.Clauses {
			walk(c, fn)
		}
	case *syntax.ForClause:
		walkExpr(n.Vars, fn)
		walkExpr(n.X, fn)
	case *syntax.IfClause:
		walkExpr(n.Cond, fn)
	case *syntax.CondExpr:
		walkExpr(n.Cond, fn)
		walkExpr(n.True, fn)
		walkExpr(n.False, fn)
	case *syntax.DictEntry:
		walkExpr(n.Key, fn)
		walkExpr(n.Value, fn)
	case *syntax.DictExpr:
		walkExprs(n.List, fn)
	case *syntax.DotExpr:
		walkExpr(n.X, fn)
		walkExpr(n.Name, fn)
	case *syntax.IndexExpr:
		walkExpr(n.X, fn)
		walkExpr(n.Y, fn)
	case *syntax.LambdaExpr:
		walkExprs(n.Params, fn)
		walkExpr(n.Body, fn)
	case *syntax.ListExpr:
		walkExprs(n.List, fn)
	case *syntax.ParenExpr:
		walkExpr(n.X, fn)
	case *syntax.SliceExpr:
		walkExpr(n.X, fn)
		walkExpr(n.Lo, fn)
		walkExpr(n.Hi, fn)
		walkExpr(n.Step, fn)
	case *syntax.TupleExpr:
		walkExprs(n.List, fn)
	case *syntax.Ident, *syntax.Literal:
	}
}

func walkStmts(stmts []syntax.Stmt, fn func(syntax.Node) bool) {
	for _, s := range stmts {
		walk(s, fn)
	}
}

func walkExprs(exprs []syntax.Expr, fn func(syntax.Node) bool) {
	for _, e := range exprs {
		walkExpr(e, fn)
	}
}

// walkExpr skips absent optional expressions, such as a bare return or an
// open slice bound.
func walkExpr(e syntax.Expr, fn func(syntax.Node) bool) {
	if e == nil {
		return
	}
	walk(e, fn)
}
