package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aegis/internal/lang"
)

func mustParse(t *testing.T, src string) *lang.Program {
	t.Helper()
	prog, err := lang.Parse(src)
	require.NoError(t, err)
	return prog
}

func runProgram(t *testing.T, src string) (*Context, *Monitor, error) {
	t.Helper()
	prog := mustParse(t, src)
	ctx := NewContext("test-identity", ModeInterpreted)
	monitor := NewMonitor(0)
	monitor.Start(ctx)
	err := NewInterpreter(monitor, 0).Run(prog, ctx)
	return ctx, monitor, err
}

func TestInterpreter_BasicRun(t *testing.T) {
	ctx, monitor, err := runProgram(t, "x = 10\ny = x + 5\nprint y\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"15"}, ctx.Output())
	assert.Equal(t, map[string]int64{"x": 10, "y": 15}, ctx.Variables())
	assert.Empty(t, monitor.Check())
}

func TestInterpreter_LastWriteWins(t *testing.T) {
	ctx, _, err := runProgram(t, "x = 1\nx = 2\nprint x\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, ctx.Output())
	assert.Equal(t, map[string]int64{"x": 2}, ctx.Variables())
}

func TestInterpreter_TruncatingDivision(t *testing.T) {
	ctx, _, err := runProgram(t, "a = 7 / 2\nb = -7 / 2\nprint a\nprint b\n")
	require.NoError(t, err)

	// Division truncates toward zero.
	assert.Equal(t, []string{"3", "-3"}, ctx.Output())
}

func TestInterpreter_DivisionByZero(t *testing.T) {
	ctx, monitor, err := runProgram(t, "x = 10\ny = 0\nresult = x / y\n")
	require.Error(t, err)

	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, KindDivisionByZero, v.Kind)
	assert.Equal(t, "test-identity", v.Identity)
	assert.Equal(t, map[string]int64{"x": 10, "y": 0}, v.Snapshot,
		"violation carries the variable snapshot")

	// The failing assignment must not commit.
	_, bound := ctx.Get("result")
	assert.False(t, bound)
	assert.Len(t, monitor.Check(), 1)
}

func TestInterpreter_DivisorExpressionEvaluatesToZero(t *testing.T) {
	_, _, err := runProgram(t, "x = 5\ny = x - 5\nz = 1 / y\n")
	require.Error(t, err)

	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, KindDivisionByZero, v.Kind)
}

func TestInterpreter_UndefinedVariableFailsSafely(t *testing.T) {
	// The analyzer should reject this program; the interpreter still
	// fails with a violation rather than crashing.
	_, monitor, err := runProgram(t, "print ghost\n")
	require.Error(t, err)

	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, KindUndefinedVariable, v.Kind)
	assert.Len(t, monitor.Check(), 1)
}

func TestInterpreter_InstructionCeiling(t *testing.T) {
	prog := mustParse(t, "x = 1\nx = 2\nx = 3\nx = 4\n")
	ctx := NewContext("id", ModeInterpreted)
	monitor := NewMonitor(3)
	monitor.Start(ctx)

	err := NewInterpreter(monitor, 0).Run(prog, ctx)
	require.Error(t, err)

	v, ok := AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, KindResourceExceeded, v.Kind)
	assert.True(t, v.Security())

	// The fourth assignment tripped the ceiling before committing.
	assert.Equal(t, int64(3), ctx.Variables()["x"])
}

func TestApply_Arithmetic(t *testing.T) {
	cases := []struct {
		op          lang.Op
		left, right int64
		want        int64
	}{
		{lang.OpAdd, 10, 5, 15},
		{lang.OpSub, 10, 5, 5},
		{lang.OpMul, 10, 5, 50},
		{lang.OpDiv, 10, 5, 2},
		{lang.OpDiv, 7, 2, 3},
		{lang.OpDiv, -7, 2, -3},
		{lang.OpMul, -3, 4, -12},
	}
	for _, tc := range cases {
		got, fault := Apply(tc.op, tc.left, tc.right, DefaultValueBound)
		require.Nil(t, fault, "%d %s %d", tc.left, tc.op, tc.right)
		assert.Equal(t, tc.want, got, "%d %s %d", tc.left, tc.op, tc.right)
	}
}

func TestApply_Overflow(t *testing.T) {
	cases := []struct {
		op          lang.Op
		left, right int64
	}{
		{lang.OpAdd, DefaultValueBound, DefaultValueBound},
		{lang.OpSub, -DefaultValueBound, DefaultValueBound},
		{lang.OpMul, DefaultValueBound, 2},
		{lang.OpAdd, DefaultValueBound, 1},
	}
	for _, tc := range cases {
		_, fault := Apply(tc.op, tc.left, tc.right, DefaultValueBound)
		require.NotNil(t, fault, "%d %s %d", tc.left, tc.op, tc.right)
		assert.Equal(t, KindArithmeticOverflow, fault.Kind)
	}
}

func TestApply_MagnitudeBoundIsConfigurable(t *testing.T) {
	_, fault := Apply(lang.OpAdd, 90, 20, 100)
	require.NotNil(t, fault)
	assert.Equal(t, KindArithmeticOverflow, fault.Kind)

	got, fault := Apply(lang.OpAdd, 90, 10, 100)
	require.Nil(t, fault)
	assert.Equal(t, int64(100), got, "the bound itself is still legal")
}

func TestApply_NoWrapAtInt64Extremes(t *testing.T) {
	// Even with the widest bound, native overflow is detected rather
	// than wrapped.
	_, fault := Apply(lang.OpSub, minInt64, 1, 1<<62)
	require.NotNil(t, fault)
	assert.Equal(t, KindArithmeticOverflow, fault.Kind)

	_, fault = Apply(lang.OpDiv, minInt64, -1, 1<<62)
	require.NotNil(t, fault)
	assert.Equal(t, KindArithmeticOverflow, fault.Kind)
}

func TestContext_IsolationBetweenRuns(t *testing.T) {
	ctx1, _, err := runProgram(t, "x = 42\n")
	require.NoError(t, err)
	assert.Equal(t, int64(42), ctx1.Variables()["x"])

	// A second run of a different program sees none of the first run's
	// bindings.
	ctx2, _, err := runProgram(t, "y = 1\n")
	require.NoError(t, err)
	_, bound := ctx2.Get("x")
	assert.False(t, bound)
}
