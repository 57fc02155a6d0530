package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/grader/pkg/grader"
)

func newShell(t *testing.T, src string) (*Shell, *bytes.Buffer) {
	t.Helper()
	e, err := grader.New(grader.WithSource("prog.py", src))
	require.NoError(t, err)
	var out bytes.Buffer
	s := New(e)
	s.SetOutput(&out)
	return s, &out
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams([]string{"name=xs", "expected=[1,", "2,", "3]", "order_matters=false", "tolerance=0.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":          "xs",
		"expected":      []any{int64(1), int64(2), int64(3)},
		"order_matters": false,
		"tolerance":     0.5,
	}, params)

	_, err = ParseParams([]string{"novalue"})
	assert.Error(t, err)
}

func TestExec(t *testing.T) {
	s, out := newShell(t, "xs = [3, 1, 2]\nprint('hello')\n")
	ctx := context.Background()

	assert.False(t, s.Exec(ctx, "vars"))
	assert.Contains(t, out.String(), "Type 'run' first")

	out.Reset()
	s.Exec(ctx, "run")
	assert.Contains(t, out.String(), "✓ PASS: Script executed successfully")

	out.Reset()
	s.Exec(ctx, "check list_equals name=xs expected=[1, 2, 3] order_matters=false")
	assert.Contains(t, out.String(), "✓ PASS")

	out.Reset()
	s.Exec(ctx, "check no_such_kind")
	assert.True(t, strings.HasPrefix(out.String(), "Error: "))

	out.Reset()
	s.Exec(ctx, "print xs")
	assert.Equal(t, "[3, 1, 2]\n", out.String())

	out.Reset()
	s.Exec(ctx, "stdout")
	assert.Equal(t, "hello\n", out.String())

	out.Reset()
	s.Exec(ctx, "bogus")
	assert.Contains(t, out.String(), "Unknown command")

	assert.Equal(t, "grader[2/2]> ", s.prompt())
	assert.True(t, s.Exec(ctx, "quit"))
}
