package core

import (
	"math"
	"testing"

	. "github.com/Comcast/fcurve/util/testutil"
)

func linearKey(t, v float64) ControlPoint {
	cp := NewControlPoint(t, v)
	cp.Interp = Linear
	return cp
}

func TestCurveLinearScenario(t *testing.T) {
	c := NewCurve("location", linearKey(0, 0), linearKey(10, 100))

	CheckNear(t, "mid", c.EvaluateWithoutDriver(5), 50)

	t.Run("constant", func(t *testing.T) {
		c.Extend = ExtendConstant
		CheckNear(t, "before", c.EvaluateWithoutDriver(-5), 0)
		CheckNear(t, "after", c.EvaluateWithoutDriver(15), 100)
	})

	t.Run("linear", func(t *testing.T) {
		c.Extend = ExtendLinear
		CheckNear(t, "before", c.EvaluateWithoutDriver(-5), -50)
		CheckNear(t, "after", c.EvaluateWithoutDriver(15), 150)
	})

	if c.Last() != 150 {
		t.Fatal(c.Last())
	}
}

func TestCurveEmpty(t *testing.T) {
	c := &Curve{}
	if !c.IsEmpty() {
		t.Fatal("should be empty")
	}
	if v := c.EvaluateWithoutDriver(3); v != 0 {
		t.Fatal(v)
	}
}

func TestCurveExactKeys(t *testing.T) {
	keys := []ControlPoint{
		NewControlPoint(0, 1),
		NewControlPoint(3, -2),
		NewControlPoint(4.5, 7),
		NewControlPoint(10, 0.25),
	}
	c := NewCurve("x", keys...)
	c.RecalcHandles()

	for _, interp := range []Interpolation{Bezier, Linear, Constant, Sine, Bounce} {
		for i := range c.Keys {
			c.Keys[i].Interp = interp
		}
		for _, cp := range c.Keys {
			if v := c.EvaluateWithoutDriver(cp.Time); v != cp.Value {
				t.Fatalf("%s at %v: got %v, wanted %v", interp, cp.Time, v, cp.Value)
			}
		}
	}
}

func TestCurveContinuity(t *testing.T) {
	c := NewCurve("x",
		NewControlPoint(0, 0),
		NewControlPoint(5, 10),
		NewControlPoint(12, -3),
		NewControlPoint(20, 4))
	c.RecalcHandles()
	c.Keys[1].Interp = Quad
	c.Keys[2].Interp = Linear

	const d = 1e-7
	for _, cp := range c.Keys[1 : len(c.Keys)-1] {
		var (
			left  = c.EvaluateWithoutDriver(cp.Time - d)
			right = c.EvaluateWithoutDriver(cp.Time + d)
		)
		if !Near(left, cp.Value, 1e-4) || !Near(right, cp.Value, 1e-4) {
			t.Fatalf("discontinuity at %v: %v %v %v", cp.Time, left, cp.Value, right)
		}
	}
}

func TestCurveAffineTime(t *testing.T) {
	var (
		c = NewCurve("x", linearKey(1, 3), linearKey(4, 9), linearKey(6, -1))
		s = NewCurve("x", linearKey(2.5, 3), linearKey(10, 9), linearKey(15, -1))
	)
	for _, x := range []float64{1.2, 2, 3.9, 4.1, 5, 5.99} {
		CheckNear(t, "scaled", s.EvaluateWithoutDriver(x*2.5), c.EvaluateWithoutDriver(x))
	}
}

func TestCurveExtrapolationLocality(t *testing.T) {
	make := func(v float64) *Curve {
		c := NewCurve("x",
			linearKey(0, 0),
			linearKey(1, 2),
			linearKey(2, v),
			linearKey(3, 1),
			linearKey(4, 5))
		c.Extend = ExtendLinear
		return c
	}
	a, b := make(100), make(-100)
	for _, x := range []float64{-10, -1, 5, 12} {
		if a.EvaluateWithoutDriver(x) != b.EvaluateWithoutDriver(x) {
			t.Fatalf("extrapolation at %v depends on an interior key", x)
		}
	}
}

func TestCurveBezierExtrapolation(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(10, 10))
	c.Extend = ExtendLinear
	c.Keys[1].Left = Vec2{8, 9}
	c.Keys[1].Right = Vec2{12, 11}
	c.Keys[1].HandleLeft = HandleFree
	c.Keys[1].HandleRight = HandleFree

	CheckNear(t, "after", c.EvaluateWithoutDriver(14), 12)
}

func TestCurveFlatBezier(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 3), NewControlPoint(10, 3))
	c.RecalcHandles()
	for x := 0.0; x <= 10; x += 0.5 {
		if v := c.EvaluateWithoutDriver(x); v != 3 {
			t.Fatalf("at %v: %v", x, v)
		}
	}
}

func TestCurveBezierMonotone(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(10, 10))
	c.RecalcHandles()
	last := math.Inf(-1)
	for x := 0.0; x <= 10; x += 0.25 {
		v := c.EvaluateWithoutDriver(x)
		if v < last {
			t.Fatalf("not monotone at %v", x)
		}
		last = v
	}
	CheckNear(t, "symmetric", c.EvaluateWithoutDriver(5), 5)
}

func TestCurveDiscreteAndInteger(t *testing.T) {
	c := NewCurve("x", linearKey(0, 0), linearKey(10, 10))

	c.IntegerValues = true
	CheckNear(t, "integer", c.EvaluateWithoutDriver(2.6), 3)
	CheckNear(t, "integer", c.EvaluateWithoutDriver(2.4), 2)

	c.IntegerValues = false
	c.DiscreteValues = true
	CheckNear(t, "discrete", c.EvaluateWithoutDriver(9.9), 0)
}

func TestCurveSamples(t *testing.T) {
	c := &Curve{
		Samples: []Sample{{2, 10}, {3, 20}, {4, 40}},
	}
	CheckNear(t, "before", c.EvaluateWithoutDriver(0), 10)
	CheckNear(t, "on", c.EvaluateWithoutDriver(3), 20)
	CheckNear(t, "between", c.EvaluateWithoutDriver(3.5), 30)
	CheckNear(t, "after", c.EvaluateWithoutDriver(9), 40)
}

func TestCurveSamplesNegativeFrames(t *testing.T) {
	c := &Curve{}
	for f := -5; f <= -1; f++ {
		c.Samples = append(c.Samples, Sample{float64(f), float64(f)})
	}
	for _, x := range []float64{-5, -4.75, -3.5, -3, -2.25, -1.5, -1} {
		CheckNear(t, "sample", c.EvaluateWithoutDriver(x), x)
	}
	CheckNear(t, "before", c.EvaluateWithoutDriver(-9), -5)
	CheckNear(t, "after", c.EvaluateWithoutDriver(3), -1)

	// Straddling zero.
	c.Samples = []Sample{{-1, 10}, {0, 20}, {1, 40}}
	CheckNear(t, "below zero", c.EvaluateWithoutDriver(-0.5), 15)
	CheckNear(t, "above zero", c.EvaluateWithoutDriver(0.5), 30)
}

func TestCurveCopy(t *testing.T) {
	c := NewCurve("x", linearKey(0, 0), linearKey(1, 1))
	c.Driver = &Driver{Type: DriverSum}
	c.Driver.AddVariable(VarSingleProp)

	d := c.Copy()
	d.Keys[0].Value = 5
	d.Driver.Variables[0].Name = "other"

	if c.Keys[0].Value != 0 {
		t.Fatal("keys shared")
	}
	if c.Driver.Variables[0].Name != "var" {
		t.Fatal("variables shared")
	}
}

func TestEasingEndpoints(t *testing.T) {
	for i := range easings {
		for _, e := range []Easing{EaseIn, EaseOut, EaseInOut} {
			f, ok := EasingFunc(i, e)
			if !ok {
				t.Fatal(i)
			}
			p := EaseParams{Begin: 2, Change: 6, Duration: 4, Back: DefaultBack}
			if v := f(p); !Near(v, 2, 1e-3) {
				t.Fatalf("%s %s start: %v", i, e, v)
			}
			p.Time = 4
			if v := f(p); !Near(v, 8, 1e-3) {
				t.Fatalf("%s %s end: %v", i, e, v)
			}
		}
	}
}

func TestEasingDefaults(t *testing.T) {
	p := EaseParams{Time: 1, Change: 1, Duration: 4}
	f, _ := EasingFunc(Quad, EaseAuto)
	CheckNear(t, "quad in", f(p), quadIn(p))
	f, _ = EasingFunc(Bounce, EaseAuto)
	CheckNear(t, "bounce out", f(p), bounceOut(p))
	if _, ok := EasingFunc(Linear, EaseIn); ok {
		t.Fatal("linear isn't an easing")
	}
}
