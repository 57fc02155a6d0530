package grader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ormasoftchile/grader/pkg/errors"
	"github.com/ormasoftchile/grader/pkg/source"
)

// structural runs a query against the analyzer, recording "AST not
// available" when the candidate did not parse.
func (e *Engine) structural(c *check) bool {
	if e.analyzer == nil || e.analyzer.Model() == nil {
		e.record(c, false, "AST not available", nil, nil)
		return false
	}
	return true
}

// CheckFunctionExists checks that a function with this exact name is
// defined at any scope.
func (e *Engine) CheckFunctionExists(name string, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("function_exists", opts)
	if !e.structural(c) {
		return false
	}
	found, _ := e.analyzer.DefinesFunction(name)
	if found {
		return e.record(c, true, fmt.Sprintf("Function '%s' is defined", name), name, nil)
	}
	return e.record(c, false, fmt.Sprintf("Function '%s' not found", name), name, nil)
}

// CheckFunctionCalled checks that a call to name appears in the source.
func (e *Engine) CheckFunctionCalled(name string, matchAnyPrefix bool, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("function_called", opts)
	if !e.structural(c) {
		return false
	}
	m, _ := e.analyzer.CallsFunction(name, matchAnyPrefix)
	if !m.Found {
		return e.record(c, false, fmt.Sprintf("Function '%s' is not called", name), name, nil)
	}
	shown := name
	if matchAnyPrefix {
		shown = m.Name
	}
	return e.record(c, true, fmt.Sprintf("Function '%s' is called", shown), name, m.Name)
}

// CheckFunctionNotCalled checks that no call to name appears.
func (e *Engine) CheckFunctionNotCalled(name string, matchAnyPrefix bool, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("function_not_called", opts)
	if !e.structural(c) {
		return false
	}
	m, _ := e.analyzer.CallsFunction(name, matchAnyPrefix)
	if m.Found {
		shown := name
		if matchAnyPrefix {
			shown = m.Name
		}
		return e.record(c, false, fmt.Sprintf("Function '%s' should NOT be called", shown), name, m.Name)
	}
	return e.record(c, true, fmt.Sprintf("Function '%s' is correctly not used", name), name, nil)
}

// CheckForLoopUsed checks for a for loop.
func (e *Engine) CheckForLoopUsed(opts ...CheckOption) bool {
	return e.loopUsed("for_loop_used", "for", "For loop", opts)
}

// CheckWhileLoopUsed checks for a while loop.
func (e *Engine) CheckWhileLoopUsed(opts ...CheckOption) bool {
	return e.loopUsed("while_loop_used", "while", "While loop", opts)
}

func (e *Engine) loopUsed(kind, loop, label string, opts []CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck(kind, opts)
	if !e.structural(c) {
		return false
	}
	used, _ := e.analyzer.UsesLoopKind(loop)
	if used {
		return e.record(c, true, label+" is used", nil, nil)
	}
	return e.record(c, false, label+" is not used", nil, nil)
}

// CheckIfStatementUsed checks for an if statement.
func (e *Engine) CheckIfStatementUsed(opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("if_statement_used", opts)
	if !e.structural(c) {
		return false
	}
	used, _ := e.analyzer.UsesBranch()
	if used {
		return e.record(c, true, "If statement is used", nil, nil)
	}
	return e.record(c, false, "If statement is not used", nil, nil)
}

// CheckOperatorUsed checks that an operator occurs in the syntax tree.
// A token outside the operator table is searched for in the source text
// instead, case-sensitively, and that outcome is recorded. Suites reject
// such tokens before they get here.
func (e *Engine) CheckOperatorUsed(operator string, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("operator_used", opts)
	if validOperator(operator) != nil {
		e.logger.Debug("operator not in table, searching source text", zap.String("operator", operator))
		if e.analyzer == nil {
			return e.record(c, false, "No code content available", operator, nil)
		}
		if e.analyzer.ContainsPhrase(operator, true) {
			return e.record(c, true, fmt.Sprintf("Code contains '%s'", operator), operator, nil)
		}
		return e.record(c, false, fmt.Sprintf("Code does not contain '%s'", operator), operator, nil)
	}
	if !e.structural(c) {
		return false
	}
	used, err := e.analyzer.UsesOperator(operator)
	if err != nil {
		e.err = err
		return false
	}
	if used {
		return e.record(c, true, fmt.Sprintf("Operator '%s' is used", operator), operator, nil)
	}
	return e.record(c, false, fmt.Sprintf("Operator '%s' is not used", operator), operator, nil)
}

// CheckCodeContains searches the raw source text. It works whether or not
// the candidate parses.
func (e *Engine) CheckCodeContains(phrase string, caseSensitive bool, opts ...CheckOption) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := newCheck("code_contains", opts)
	if e.analyzer == nil {
		return e.record(c, false, "No code content available", phrase, nil)
	}
	if e.analyzer.ContainsPhrase(phrase, caseSensitive) {
		return e.record(c, true, fmt.Sprintf("Code contains '%s'", phrase), phrase, nil)
	}
	return e.record(c, false, fmt.Sprintf("Code does not contain '%s'", phrase), phrase, nil)
}

func validOperator(op string) error {
	if _, ok := source.Classify(op); !ok {
		return errors.Newf(errors.InvalidParam, "unknown operator %q", op).
			WithDetail("known", source.OperatorTokens())
	}
	return nil
}
