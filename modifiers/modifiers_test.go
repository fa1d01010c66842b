package modifiers

import (
	"context"
	"math"
	"testing"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/expr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ramp makes a linear curve from (0,0) to (10,10).
func ramp(ms ...Modifier) *core.Curve {
	k0 := core.NewControlPoint(0, 0)
	k0.Interp = core.Linear
	k1 := core.NewControlPoint(10, 10)
	k1.Interp = core.Linear
	c := core.NewCurve("ramp", k0, k1)
	if len(ms) > 0 {
		c.Modifiers = NewStack(ms...)
	}
	return c
}

func f(x float64) *float64 {
	return &x
}

func checkAt(t *testing.T, c *core.Curve, tests map[float64]float64) {
	t.Helper()
	for at, want := range tests {
		assert.InDelta(t, want, c.EvaluateWithoutDriver(at), 1e-9, "at %v", at)
	}
}

func TestCycles(t *testing.T) {
	t.Run("repeat", func(t *testing.T) {
		checkAt(t, ramp(NewCycles()), map[float64]float64{
			5:   5,
			15:  5,
			25:  5,
			-5:  5,
			-12: 8,
		})
	})

	t.Run("offset", func(t *testing.T) {
		m := NewCycles()
		m.Before, m.After = CycleRepeatOffset, CycleRepeatOffset
		checkAt(t, ramp(m), map[float64]float64{
			15: 15,
			20: 20,
			25: 25,
			-5: -5,
		})
	})

	t.Run("mirror", func(t *testing.T) {
		m := NewCycles()
		m.After = CycleMirror
		checkAt(t, ramp(m), map[float64]float64{
			12: 8,
			18: 2,
			25: 5,
		})
	})

	t.Run("counted", func(t *testing.T) {
		m := NewCycles()
		m.AfterCycles = 1
		checkAt(t, ramp(m), map[float64]float64{
			15: 5,
			25: 10,
		})
	})

	t.Run("none", func(t *testing.T) {
		m := NewCycles()
		m.Before = CycleNone
		checkAt(t, ramp(m), map[float64]float64{
			-5: 0,
			15: 5,
		})
	})

	t.Run("not first", func(t *testing.T) {
		checkAt(t, ramp(&Limits{}, NewCycles()), map[float64]float64{
			15: 10,
		})
	})
}

func TestGenerator(t *testing.T) {
	g := NewGenerator()
	g.Coefficients = []float64{1, 2}

	c := &core.Curve{Modifiers: NewStack(g)}
	require.False(t, c.IsEmpty())
	assert.InDelta(t, 7, c.EvaluateWithoutDriver(3), 1e-9)

	g.Mode = PolyFactorised
	g.Order = 2
	g.Coefficients = []float64{1, 1, 1, -1}
	assert.InDelta(t, 8, c.EvaluateWithoutDriver(3), 1e-9)

	g = NewGenerator()
	g.Coefficients = []float64{1, 2}
	g.Additive = true
	checkAt(t, ramp(g), map[float64]float64{
		5: 16,
	})

	g.Order = 0
	checkAt(t, ramp(g), map[float64]float64{
		5: 5,
	})
}

func TestVerify(t *testing.T) {
	g := &Generator{Order: 2, Coefficients: []float64{1}}
	g.Verify()
	assert.Equal(t, []float64{1, 0, 0}, g.Coefficients)

	g.Mode = PolyFactorised
	g.Verify()
	assert.Len(t, g.Coefficients, 4)
}

func TestFnGenerator(t *testing.T) {
	tests := []struct {
		fn   Fn
		at   float64
		want float64
	}{
		{FnSin, math.Pi / 2, 2},
		{FnCos, 0, 2},
		{FnSinc, 0, 2},
		{FnSqrt, 4, 4},
		{FnSqrt, -1, 0},
		{FnLn, math.E, 2},
		{FnLn, 0, 0},
		{FnTan, math.Pi / 4, 2},
		{FnTan, math.Pi / 2, 0},
	}

	for _, tt := range tests {
		m := NewFnGenerator(tt.fn)
		m.Amplitude = 2
		c := &core.Curve{Modifiers: NewStack(m)}
		assert.InDelta(t, tt.want, c.EvaluateWithoutDriver(tt.at), 1e-9, "%s(%v)", tt.fn, tt.at)
	}

	m := NewFnGenerator(FnSqrt)
	m.Additive = true
	m.ValueOffset = 1
	checkAt(t, ramp(m), map[float64]float64{
		4:  4 + 2 + 1,
		-1: 0,
	})
}

func TestEnvelope(t *testing.T) {
	m := NewEnvelope()
	m.AddPoint(EnvelopePoint{Time: 10, Min: -4, Max: 4})
	m.AddPoint(EnvelopePoint{Time: 0, Min: -2, Max: 2})

	checkAt(t, ramp(m), map[float64]float64{
		// fac = (5 - -1)/2 = 3, range at 5 is -3..3
		5: 15,
		// Before the first point.
		-1: -2 + (0+1)/2.0*4,
	})

	m.Max = m.Min
	checkAt(t, ramp(m), map[float64]float64{
		5: 5,
	})
}

func TestEnvelopePoints(t *testing.T) {
	m := NewEnvelope()
	for _, x := range []float64{10, 0, 5, 7, 5.001} {
		m.AddPoint(EnvelopePoint{Time: x})
	}

	var times []float64
	for _, p := range m.Points {
		times = append(times, p.Time)
	}
	assert.Equal(t, []float64{0, 5.001, 7, 10}, times)

	i, found := m.FindPoint(7)
	assert.True(t, found)
	assert.Equal(t, 2, i)

	i, found = m.FindPoint(6)
	assert.False(t, found)
	assert.Equal(t, 2, i)

	i, found = m.FindPoint(11)
	assert.False(t, found)
	assert.Equal(t, 4, i)

	m.DeletePoint(0)
	m.DeletePoint(10)
	assert.Len(t, m.Points, 3)
}

func TestLimits(t *testing.T) {
	checkAt(t, ramp(&Limits{MaxValue: f(4)}), map[float64]float64{
		2: 2,
		7: 4,
	})
	checkAt(t, ramp(&Limits{MinTime: f(2), MaxTime: f(6)}), map[float64]float64{
		0: 2,
		4: 4,
		9: 6,
	})
}

func TestStepped(t *testing.T) {
	m := NewStepped()
	checkAt(t, ramp(m), map[float64]float64{
		5.5: 4,
		6:   6,
	})

	m.Offset = 1
	checkAt(t, ramp(m), map[float64]float64{
		5.5: 5,
	})

	m.NoAfter = true
	m.EndFrame = 5
	checkAt(t, ramp(m), map[float64]float64{
		5.5: 5.5,
		4.5: 3,
	})
}

func TestInfluence(t *testing.T) {
	m := &Limits{MaxValue: f(4)}
	m.UseInfluence = true
	m.Influence = 0.5
	checkAt(t, ramp(m), map[float64]float64{
		8: 6,
	})

	m.Muted = true
	checkAt(t, ramp(m), map[float64]float64{
		8: 8,
	})
}

func TestRestrict(t *testing.T) {
	g := NewGenerator()
	g.Coefficients = []float64{100, 0}
	g.Restrict = true
	g.From, g.To = 0, 10
	g.BlendIn, g.BlendOut = 2, 2

	checkAt(t, ramp(g), map[float64]float64{
		1:  0.5*100 + 0.5*1,
		5:  100,
		9:  0.5*100 + 0.5*9,
		20: 10,
	})

	s := NewStack(g)
	assert.True(t, s.Excludes(11))
	assert.False(t, s.Excludes(5))

	g.Muted = true
	assert.True(t, s.Excludes(11))
}

func TestDriverPassThrough(t *testing.T) {
	g := NewGenerator()
	g.Coefficients = []float64{1, 0}
	g.Additive = true
	g.Restrict = true
	g.From, g.To = 0, 10

	var (
		e = &core.Evaluator{Compiler: expr.NewCompiler()}
		c = &core.Curve{
			Driver: &core.Driver{
				Type:       core.DriverExpression,
				Expression: "time",
			},
			Modifiers: NewStack(g),
		}
		ctx = context.Background()
	)

	assert.InDelta(t, 6, e.EvaluateCurve(ctx, c, 5), 1e-9)
	assert.InDelta(t, 0, e.EvaluateCurve(ctx, c, 20), 1e-9)

	c.ModifiersOff = true
	assert.InDelta(t, 20, e.EvaluateCurve(ctx, c, 20), 1e-9)
}

func TestStackQueries(t *testing.T) {
	additive := NewGenerator()
	additive.Additive = true

	muted := &Limits{}
	muted.Muted = true

	offset := NewCycles()
	offset.After = CycleRepeatOffset

	restricted := NewCycles()
	restricted.Restrict = true

	tests := []struct {
		name      string
		mods      []Modifier
		generates bool
		usable    bool
		cycle     core.CycleType
		storage   int
	}{
		{"empty", nil, false, true, core.CycleNone, 0},
		{"cycles", []Modifier{NewCycles()}, false, true, core.CyclePerfect, 1},
		{"offset", []Modifier{offset}, false, true, core.CycleOffset, 1},
		{"restricted", []Modifier{restricted}, false, true, core.CycleNone, 1},
		{"late cycles", []Modifier{NewStepped(), NewCycles()}, true, true, core.CycleNone, 1},
		{"generator", []Modifier{NewGenerator()}, true, false, core.CycleNone, 0},
		{"additive", []Modifier{additive}, true, true, core.CycleNone, 0},
		{"envelope", []Modifier{NewEnvelope()}, false, false, core.CycleNone, 0},
		{"muted", []Modifier{muted}, false, true, core.CycleNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStack(tt.mods...)
			assert.Equal(t, tt.generates, s.GeneratesCurve())
			assert.Equal(t, tt.usable, s.KeyframesUsable())
			assert.Equal(t, tt.cycle, s.CycleType())
			assert.Equal(t, tt.storage, s.StorageSize())
		})
	}
}

func TestCyclicHandles(t *testing.T) {
	wave := func() *core.Curve {
		var keys []core.ControlPoint
		for _, p := range [][2]float64{{0, 0}, {10, 10}, {20, 0}} {
			cp := core.NewControlPoint(p[0], p[1])
			cp.HandleLeft, cp.HandleRight = core.HandleAuto, core.HandleAuto
			keys = append(keys, cp)
		}
		c := core.NewCurve("wave", keys...)
		c.Extend = core.ExtendLinear
		return c
	}

	c := wave()
	c.RecalcHandles()
	assert.Greater(t, c.Keys[0].Right[1], 0.0)

	c = wave()
	c.Modifiers = NewStack(NewCycles())
	require.True(t, c.IsCyclic())
	c.RecalcHandles()
	assert.InDelta(t, 0, c.Keys[0].Right[1], 1e-9)
	assert.InDelta(t, 0, c.Keys[2].Left[1], 1e-9)
}

func TestCodec(t *testing.T) {
	m := NewCycles()
	m.After = CycleMirror
	m.Name = "loop"

	x, err := Encode(m)
	require.NoError(t, err)
	assert.Equal(t, "cycles", x["type"])
	assert.Equal(t, "mirror", x["after"])
	assert.Equal(t, "loop", x["name"])

	y, err := Decode(x)
	require.NoError(t, err)
	assert.Equal(t, m, y)

	g, err := Decode(map[string]interface{}{
		"type":  "generator",
		"order": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, g.(*Generator).Coefficients)

	_, err = Decode(map[string]interface{}{"type": "noise"})
	assert.Error(t, err)

	_, err = Decode(map[string]interface{}{})
	assert.Error(t, err)

	_, err = DecodeStack([]interface{}{"cycles"})
	assert.Error(t, err)

	s, err := DecodeStack([]interface{}{
		map[string]interface{}{"type": "cycles"},
		map[string]interface{}{"type": "limits", "maxValue": 3.0},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 3.0, *s.Find(KindLimits).(*Limits).MaxValue)

	xs, err := EncodeStack(s)
	require.NoError(t, err)
	assert.Len(t, xs, 2)
}

func TestCopy(t *testing.T) {
	s := NewStack(NewCycles(), &Limits{MaxValue: f(3)})
	d, err := s.Copy()
	require.NoError(t, err)

	*d.Modifiers[1].(*Limits).MaxValue = 5
	d.Modifiers[0].Head().Muted = true

	assert.Equal(t, 3.0, *s.Modifiers[1].(*Limits).MaxValue)
	assert.False(t, s.Modifiers[0].Head().Muted)

	assert.True(t, d.Remove(0))
	assert.False(t, d.Remove(3))
	assert.Nil(t, d.Find(KindCycles))
}

func TestBake(t *testing.T) {
	c := ramp(NewCycles())
	require.NoError(t, Bake(c, 0, 20))
	assert.Nil(t, c.Modifiers)
	assert.Empty(t, c.Keys)
	require.Len(t, c.Samples, 21)
	assert.InDelta(t, 5, c.Samples[15].Value, 1e-9)
	assert.InDelta(t, 5, c.EvaluateWithoutDriver(15), 1e-9)

	assert.ErrorIs(t, Bake(ramp(), 0, 10), ErrNoModifiers)
}
