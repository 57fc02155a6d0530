package sandbox

import (
	stderrors "errors"
	"fmt"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	stepBudgetDetail = "execution step budget exceeded"
	cancelPrefix     = "Starlark computation cancelled: "
)

// errorKinds maps interpreter message fragments to the exception name
// shown to students. The first match wins.
var errorKinds = []struct {
	fragment, kind string
}{
	{"division by zero", "ZeroDivisionError"},
	{"modulo by zero", "ZeroDivisionError"},
	{"out of range", "IndexError"},
	{"key ", "KeyError"},
	{"undefined:", "NameError"},
	{"referenced before assignment", "UnboundLocalError"},
	{"has no ", "AttributeError"},
	{"unknown binary op", "TypeError"},
	{"unsupported", "TypeError"},
	{"not callable", "TypeError"},
	{"want ", "TypeError"},
	{"missing argument", "TypeError"},
	{"unexpected keyword", "TypeError"},
	{"invalid literal", "ValueError"},
	{"could not be broadcast", "ValueError"},
	{"cannot reshape", "ValueError"},
	{"empty", "ValueError"},
	{"recursion", "RecursionError"},
}

// describe renders err as "Kind: message".
func describe(err error) string {
	var synErr syntax.Error
	if stderrors.As(err, &synErr) {
		return fmt.Sprintf("SyntaxError: %s (line %d)", synErr.Msg, synErr.Pos.Line)
	}
	var resErr resolve.ErrorList
	if stderrors.As(err, &resErr) {
		first := resErr[0]
		return fmt.Sprintf("%s: %s (line %d)", classify(first.Msg), first.Msg, first.Pos.Line)
	}
	msg := err.Error()
	var evalErr *starlark.EvalError
	if stderrors.As(err, &evalErr) {
		msg = evalErr.Msg
	}
	if strings.HasPrefix(msg, cancelPrefix) {
		reason := strings.TrimPrefix(msg, cancelPrefix)
		if reason == "too many steps" {
			return stepBudgetDetail
		}
		return "Cancelled: " + reason
	}
	if strings.HasPrefix(msg, "fail: ") {
		return "Exception: " + strings.TrimPrefix(msg, "fail: ")
	}
	return classify(msg) + ": " + msg
}

func classify(msg string) string {
	for _, k := range errorKinds {
		if strings.Contains(msg, k.fragment) {
			return k.kind
		}
	}
	return "Error"
}
