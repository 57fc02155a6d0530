// Package source defines the structural model the static analyzer queries.
// A model is built by a language-specific parser and holds only facts about
// the program text; nothing is executed.
package source

import "strings"

// Model enumerates the structural facts of one parsed program.
type Model interface {
	// Language names the parser that produced the model.
	Language() string
	Calls() []Call
	Operators() []Operator
	Loops() []Loop
	FunctionDefs() []FunctionDef
	Branches() []Branch
}

// Call is one call expression. Chain is the dotted callee path, such as
// ["np", "mean"]. Callees that are not plain names or attribute chains
// (subscripts, call results) end the chain with "?".
type Call struct {
	Chain []string `json:"chain"`
	Line  int      `json:"line"`
}

// Name is the chain joined with dots.
func (c Call) Name() string { return strings.Join(c.Chain, ".") }

// Final is the last segment of the chain.
func (c Call) Final() string {
	if len(c.Chain) == 0 {
		return ""
	}
	return c.Chain[len(c.Chain)-1]
}

// Operator is one operator occurrence.
type Operator struct {
	Token string       `json:"token"`
	Kind  OperatorKind `json:"kind"`
	Line  int          `json:"line"`
}

// Loop is one loop statement. Comprehension clauses are not loops.
type Loop struct {
	Kind string `json:"kind"` // "for" or "while"
	Line int    `json:"line"`
}

// FunctionDef is one function definition at any scope.
type FunctionDef struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// Branch is one if statement. elif arms are branches of their own.
type Branch struct {
	Line int `json:"line"`
}
