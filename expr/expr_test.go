package expr

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Comcast/fcurve/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = []string{"time", "x", "y"}

func eval(t *testing.T, src string, ps ...float64) (float64, core.ExprStatus) {
	t.Helper()
	e, err := NewCompiler().CompileExpression(src, params)
	require.NoError(t, err, src)
	return e.Eval(ps)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"x + y", 5},
		{"x - y * 2", -4},
		{"(x - y) * 2", -2},
		{"-x", -2},
		{"+y", 3},
		{"x ** y", 8},
		{"y % x", 1},
		{"time / 4", 2.5},
		{"x < y", 1},
		{"x >= y", 0},
		{"x == 2", 1},
		{"x != 2", 0},
		{"x === 2", 1},
		{"!x", 0},
		{"x && y", 3},
		{"0 || y", 3},
		{"x > y ? x : y", 3},
		{"pi", math.Pi},
		{"Math.PI * 2", 2 * math.Pi},
		{"True + True", 2},
		{"true", 1},
		{"1.5e1", 15},
	}

	for _, tt := range tests {
		got, status := eval(t, tt.src, 10, 2, 3)
		assert.Equal(t, core.ExprSuccess, status, tt.src)
		assert.InDelta(t, tt.want, got, 1e-12, tt.src)
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"sin(0)", 0},
		{"Math.cos(0)", 1},
		{"sqrt(x * 8)", 4},
		{"abs(-y)", 3},
		{"floor(2.7) + ceil(2.1)", 5},
		{"round(2.5)", 3},
		{"int(-2.7)", -2},
		{"min(x, y, 1)", 1},
		{"max(x, y, 1)", 3},
		{"median(5, 1, 3)", 3},
		{"median(4, 1, 3, 2)", 2.5},
		{"pow(x, 3)", 8},
		{"fmod(7, y)", 1},
		{"log(exp(2))", 2},
		{"log(8, 2)", 3},
		{"atan2(1, 1)", math.Pi / 4},
		{"radians(180)", math.Pi},
		{"degrees(pi)", 180},
		{"lerp(0, 10, 0.25)", 2.5},
		{"clamp(1.5)", 1},
		{"clamp(x, 0, 1)", 1},
		{"smoothstep(0, 1, 0.5)", 0.5},
		{"sign(-x)", -1},
		{"copysign(3, -1)", -3},
	}

	for _, tt := range tests {
		got, status := eval(t, tt.src, 0, 2, 3)
		assert.Equal(t, core.ExprSuccess, status, tt.src)
		assert.InDelta(t, tt.want, got, 1e-9, tt.src)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src  string
		want core.ExprStatus
	}{
		{"x / 0", core.ExprDivByZero},
		{"1 / 0", core.ExprDivByZero},
		{"x % (y - 3)", core.ExprDivByZero},
		{"fmod(x, 0)", core.ExprDivByZero},
		{"pow(0, -1)", core.ExprDivByZero},
		{"sqrt(-x)", core.ExprMathError},
		{"log(0)", core.ExprMathError},
		{"asin(x)", core.ExprMathError},
		{"acos(-y)", core.ExprMathError},
	}

	for _, tt := range tests {
		got, status := eval(t, tt.src, 0, 2, 3)
		assert.Equal(t, tt.want, status, tt.src)
		assert.Zero(t, got, tt.src)
	}
}

func TestUnsupported(t *testing.T) {
	for _, src := range []string{
		"z + 1",
		"frobnicate(x)",
		"x = 3",
		"x++",
		"'hello'",
		"x; y",
		"obj.prop",
		"Math.foo(x)",
		"sin(1, 2)",
		"min()",
		"[1, 2]",
		"x +",
	} {
		_, err := NewCompiler().Compile(src, params)
		assert.Error(t, err, src)
	}

	_, err := NewCompiler().Compile("frobnicate(x)", params)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestUsesParam(t *testing.T) {
	e, err := NewCompiler().CompileExpression("x * 2 + pi", params)
	require.NoError(t, err)
	assert.False(t, e.UsesParam(0))
	assert.True(t, e.UsesParam(1))
	assert.False(t, e.UsesParam(2))
	assert.False(t, e.UsesParam(7))

	e, err = NewCompiler().CompileExpression("sin(time)", params)
	require.NoError(t, err)
	assert.True(t, e.UsesParam(0))
}

func TestShortParams(t *testing.T) {
	e, err := NewCompiler().CompileExpression("x", params)
	require.NoError(t, err)
	_, status := e.Eval([]float64{1})
	assert.Equal(t, core.ExprFailure, status)
}

func TestFolding(t *testing.T) {
	for _, fold := range []bool{true, false} {
		c := &Compiler{NoFold: !fold}
		e, err := c.CompileExpression("2 * pi * radians(90) + x", params)
		require.NoError(t, err)
		got, status := e.Eval([]float64{0, 1, 0})
		assert.Equal(t, core.ExprSuccess, status)
		assert.InDelta(t, math.Pi*math.Pi+1, got, 1e-12)
	}
}

// TestDriver runs expressions through a core.Evaluator.
func TestDriver(t *testing.T) {
	var (
		e = &core.Evaluator{
			Compiler:     NewCompiler(),
			Interpreters: core.InterpretersMap{},
		}
		d = &core.Driver{
			Type:       core.DriverExpression,
			Expression: "time * 2 + 1",
		}
		ctx = context.Background()
	)

	assert.Equal(t, 21.0, e.EvaluateDriver(ctx, d, 10))
	assert.True(t, e.DriverDependsOnTime(d))

	d.SetExpression("1 / 0")
	assert.Equal(t, 0.0, e.EvaluateDriver(ctx, d, 10))
	assert.True(t, d.Invalid())

	d.SetExpression("3")
	assert.False(t, d.Invalid())
	assert.Equal(t, 3.0, e.EvaluateDriver(ctx, d, 10))
	assert.False(t, e.DriverDependsOnTime(d))
}
