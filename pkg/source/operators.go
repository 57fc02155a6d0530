package source

import "sort"

// OperatorKind is the syntactic category an operator occurs in.
type OperatorKind string

const (
	Augmented  OperatorKind = "augmented-assignment"
	Binary     OperatorKind = "binary"
	Comparison OperatorKind = "comparison"
	Boolean    OperatorKind = "boolean"
	Membership OperatorKind = "membership"
	Identity   OperatorKind = "identity"
	Bitwise    OperatorKind = "bitwise"
	Unary      OperatorKind = "unary"
)

var operatorKinds = map[string]OperatorKind{
	"+=": Augmented, "-=": Augmented, "*=": Augmented, "/=": Augmented,
	"//=": Augmented, "%=": Augmented, "**=": Augmented, "@=": Augmented,
	"&=": Augmented, "|=": Augmented, "^=": Augmented, "<<=": Augmented, ">>=": Augmented,

	"+": Binary, "-": Binary, "*": Binary, "/": Binary,
	"//": Binary, "%": Binary, "**": Binary, "@": Binary,

	"==": Comparison, "!=": Comparison, "<": Comparison,
	"<=": Comparison, ">": Comparison, ">=": Comparison,

	"and": Boolean, "or": Boolean,
	"in": Membership, "not in": Membership,
	"is": Identity, "is not": Identity,

	"&": Bitwise, "|": Bitwise, "^": Bitwise, "<<": Bitwise, ">>": Bitwise, "~": Bitwise,

	"not": Unary,
}

// Classify returns the kind a query token is matched against. The minus
// sign is classified as binary subtraction; negation is recorded with kind
// Unary and does not match it.
func Classify(token string) (OperatorKind, bool) {
	k, ok := operatorKinds[token]
	return k, ok
}

// OperatorTokens lists every token Classify accepts, sorted.
func OperatorTokens() []string {
	out := make([]string, 0, len(operatorKinds))
	for t := range operatorKinds {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// KindOf returns the kind recorded for token appearing in a node of the
// given category. Bitwise tokens are bitwise whatever node carries them.
func KindOf(token string, category OperatorKind) OperatorKind {
	if operatorKinds[token] == Bitwise {
		return Bitwise
	}
	return category
}
