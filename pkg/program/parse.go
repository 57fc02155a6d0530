package program

import (
	"go.starlark.net/syntax"

	"github.com/ormasoftchile/grader/pkg/errors"
)

// FileOptions are the dialect options programs are parsed with. Top-level
// control flow, while loops, sets, recursion and global reassignment are
// all enabled.
func FileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}

// Parse returns a fresh syntax tree of the executable text. Each call
// returns a new tree. A syntax error is a ParseFailed error that wraps the
// underlying syntax.Error.
func (p *Program) Parse() (*syntax.File, error) {
	f, err := FileOptions().Parse(p.name, p.executable, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.ParseFailed).WithDetail("program", p.name)
	}
	return f, nil
}
