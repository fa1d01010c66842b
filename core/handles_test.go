package core

import (
	"math"
	"testing"

	. "github.com/Comcast/fcurve/util/testutil"
)

func TestHandlesClampedExtreme(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(5, 10), NewControlPoint(10, 0))
	c.RecalcHandles()

	top := c.Keys[1]
	if top.Left[1] != 10 || top.Right[1] != 10 {
		t.Fatalf("extreme not flat: %s", JS(top))
	}

	// Constant extension flattens the ends.
	for _, i := range []int{0, 2} {
		cp := c.Keys[i]
		if cp.Left[1] != cp.Value || cp.Right[1] != cp.Value {
			t.Fatalf("end %d not flat: %s", i, JS(cp))
		}
	}

	// Nothing overshoots.
	for x := 0.0; x <= 10; x += 0.1 {
		if v := c.EvaluateWithoutDriver(x); v > 10+1e-9 || v < -1e-9 {
			t.Fatalf("overshoot at %v: %v", x, v)
		}
	}
}

func TestHandlesStraightLine(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(5, 5), NewControlPoint(10, 10))
	c.RecalcHandles()

	mid := c.Keys[1]
	if slope := handleSlope(&mid, mid.Right); !Near(slope, 1, 1e-9) {
		t.Fatal(slope)
	}
	if slope := handleSlope(&mid, mid.Left); !Near(slope, 1, 1e-9) {
		t.Fatal(slope)
	}
	if mid.Left[0] >= 5 || mid.Right[0] <= 5 {
		t.Fatal(JS(mid))
	}
}

func TestHandlesVector(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(3, 6), NewControlPoint(9, 0))
	c.Keys[1].HandleLeft = HandleVector
	c.Keys[1].HandleRight = HandleVector
	c.RecalcHandles()

	cp := c.Keys[1]
	if cp.Left != (Vec2{2, 4}) || cp.Right != (Vec2{5, 4}) {
		t.Fatal(JS(cp))
	}
}

func TestHandlesAligned(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(5, 5), NewControlPoint(10, 0))
	cp := &c.Keys[1]
	cp.HandleLeft = HandleAligned
	cp.HandleRight = HandleFree
	cp.Right = Vec2{6, 7}
	c.RecalcHandles()

	var (
		l = Vec2{cp.Left[0] - cp.Time, cp.Left[1] - cp.Value}
		r = Vec2{cp.Right[0] - cp.Time, cp.Right[1] - cp.Value}
	)
	if cross := l[0]*r[1] - l[1]*r[0]; !Near(cross, 0, 1e-9) {
		t.Fatalf("not aligned: %s", JS(cp))
	}
	if l[0]*r[0]+l[1]*r[1] >= 0 {
		t.Fatalf("same side: %s", JS(cp))
	}
	if cp.Right != (Vec2{6, 7}) {
		t.Fatal("free handle moved")
	}
}

func TestHandlesFreeUntouched(t *testing.T) {
	c := NewCurve("x", NewControlPoint(0, 0), NewControlPoint(5, 5))
	for i := range c.Keys {
		c.Keys[i].HandleLeft = HandleFree
		c.Keys[i].HandleRight = HandleFree
	}
	c.Keys[1].Left = Vec2{4, 1}
	c.RecalcHandles()
	if c.Keys[1].Left != (Vec2{4, 1}) {
		t.Fatal(JS(c.Keys[1]))
	}
}

func TestContinuousSmootherLine(t *testing.T) {
	c := NewCurve("x",
		NewControlPoint(0, 0),
		NewControlPoint(2, 2),
		NewControlPoint(3, 3),
		NewControlPoint(7, 7))
	c.Extend = ExtendLinear
	c.AutoSmoothing = SmoothContinuousAcceleration
	c.RecalcHandles()

	for i := range c.Keys {
		cp := &c.Keys[i]
		if s := handleSlope(cp, cp.Right); !Near(s, 1, 1e-9) {
			t.Fatalf("key %d slope %v", i, s)
		}
	}
	for x := 0.0; x <= 7; x += 0.5 {
		CheckNear(t, "line", c.EvaluateWithoutDriver(x), x)
	}
}

func TestHandlesDuplicateTimeLocked(t *testing.T) {
	c := NewCurve("x",
		NewControlPoint(0, 0),
		NewControlPoint(5, 2),
		NewControlPoint(5, 8),
		NewControlPoint(10, 10))
	c.Extend = ExtendLinear
	c.AutoSmoothing = SmoothContinuousAcceleration
	c.RecalcHandles()

	if !c.Keys[1].AutoLocked || !c.Keys[2].AutoLocked {
		t.Fatalf("duplicates not locked: %s", JS(c.Keys))
	}

	for i, cp := range c.Keys {
		for _, x := range []float64{cp.Left[0], cp.Left[1], cp.Right[0], cp.Right[1]} {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Fatalf("key %d: %s", i, JS(cp))
			}
		}
	}

	for x := -1.0; x <= 11; x += 0.25 {
		v := c.EvaluateWithoutDriver(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%v: %v", x, v)
		}
	}
	CheckNear(t, "start", c.EvaluateWithoutDriver(0), 0)
	CheckNear(t, "end", c.EvaluateWithoutDriver(10), 10)
}

func TestSolveTridiagonal(t *testing.T) {
	// [2 1 0; 1 2 1; 0 1 2] x = [4 8 8] => x = [1 2 3]
	x, ok := solveTridiagonal(
		[]float64{0, 1, 1},
		[]float64{2, 2, 2},
		[]float64{1, 1, 0},
		[]float64{4, 8, 8})
	if !ok {
		t.Fatal("singular")
	}
	for i, w := range []float64{1, 2, 3} {
		CheckNear(t, "x", x[i], w)
	}
}
