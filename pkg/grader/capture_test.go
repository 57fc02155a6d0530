package grader

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhileLoopProgram(t *testing.T) {
	e := newEngine(t, "i = 0\nwhile i < 3:\n    i += 1\n")
	assert.True(t, e.CheckWhileLoopUsed())
	assert.False(t, e.CheckForLoopUsed())
	assert.True(t, e.CheckOperatorUsed("+="))
	require.True(t, e.ExecuteScript(context.Background(), nil), e.Records())
	assert.True(t, e.CheckVariableValue("i", 3, 0))
}

// Every check must append exactly one record and never panic, whatever
// the program leaves behind in its globals.
func TestUnusualCapturedValues(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected []any
		listOK   bool
	}{
		{
			name:     "self-referential list",
			src:      "v = []\nv.append(v)\n\ndef make():\n    a = [1]\n    a.append(a)\n    return a\n",
			expected: []any{[]any{}},
		},
		{
			name:     "self-referential dict",
			src:      "v = {}\nv[\"self\"] = v\n\ndef make():\n    d = {\"k\": 1}\n    d[\"again\"] = d\n    return d\n",
			expected: []any{},
		},
		{
			name:     "zero rows",
			src:      "import numpy as np\nv = np.zeros((0, 3))\n\ndef make():\n    return np.zeros((0, 3))\n",
			expected: []any{},
		},
		{
			name:     "zero columns",
			src:      "import numpy as np\nv = np.zeros((2, 0))\n\ndef make():\n    return np.ones((2, 0))\n",
			expected: []any{1.0},
		},
		{
			name:     "huge ints",
			src:      "v = [1 << 100, (1 << 500) * (1 << 500) * (1 << 500)]\n\ndef make():\n    return (1 << 500) * (1 << 500) * (1 << 500)\n",
			expected: []any{math.Ldexp(1, 100), math.Inf(1)},
			listOK:   true,
		},
		{
			name:     "nan in unordered list",
			src:      "v = [3.0, float(\"nan\"), 1.0]\n\ndef make():\n    return [float(\"nan\"), 2.0]\n",
			expected: []any{1.0, math.NaN(), 3.0},
			listOK:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t, tt.src)
			step := func(check func() bool) bool {
				t.Helper()
				before := len(e.Records())
				var ok bool
				require.NotPanics(t, func() { ok = check() })
				assert.Len(t, e.Records(), before+1)
				return ok
			}

			require.True(t, step(func() bool { return e.ExecuteScript(ctx, nil) }), last(e).Message)
			step(func() bool { return e.CheckVariableValue("v", tt.expected, 1e-6) })
			listOK := step(func() bool { return e.CheckListEquals("v", tt.expected, false, 1e-6) })
			assert.Equal(t, tt.listOK, listOK, last(e).Message)
			step(func() bool {
				return e.TestFunction(ctx, "make", []FunctionCase{{Args: []any{}, Expected: tt.expected}})
			})
			assert.NotEmpty(t, last(e).Message)
		})
	}
}
