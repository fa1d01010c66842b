/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import "math"

const (
	// autoHandleScale is the magic divisor that gives auto handles
	// their length.
	autoHandleScale = 2.5614

	// alignEpsilon is the shortest handle that aligned handles
	// will follow.
	alignEpsilon = 1e-5
)

// Smoother adjusts auto handles over a whole curve after each key's
// handles have been computed.
type Smoother interface {
	// Smooth adjusts the handles of keys whose handles are both
	// auto and that aren't AutoLocked.
	Smooth(keys []ControlPoint, cyclic bool)
}

// DefaultSmoother is used by RecalcHandles when the curve asks for
// smoothing.
var DefaultSmoother Smoother = ContinuousSmoother{}

// CycleType returns the kind of cycling the curve's modifier stack
// imposes.
func (c *Curve) CycleType() CycleType {
	if c.Modifiers == nil {
		return CycleNone
	}
	return c.Modifiers.CycleType()
}

// IsCyclic reports whether the curve repeats.
func (c *Curve) IsCyclic() bool {
	return c.CycleType() != CycleNone
}

// cycleOffset returns a copy of cp moved by the time and value
// offset from key "from" to key "to".
func cycleOffset(cp, from, to *ControlPoint) *ControlPoint {
	dt := to.Time - from.Time
	dv := to.Value - from.Value
	out := *cp
	out.Time += dt
	out.Value += dv
	out.Left[0] += dt
	out.Left[1] += dv
	out.Right[0] += dt
	out.Right[1] += dv
	return &out
}

// RecalcHandles recomputes the handles of the curve's keys using
// DefaultSmoother.  See RecalcHandlesWith.
func (c *Curve) RecalcHandles() {
	c.RecalcHandlesWith(DefaultSmoother)
}

// RecalcHandlesWith recomputes the handles of the curve's keys.
// Call it after adding, removing or moving keys.
//
// Auto and vector handles are computed from the neighboring keys.
// Free handles are left alone, and aligned handles keep their
// length while following the opposite handle.  A cyclic curve whose
// end keys have auto handles is treated as a ring.
//
// The smoother runs only if the curve's AutoSmoothing asks for it.
// A nil smoother skips that pass.
func (c *Curve) RecalcHandlesWith(s Smoother) {
	keys := c.Keys
	n := len(keys)
	if n < 2 {
		return
	}

	var (
		first  = &keys[0]
		last   = &keys[n-1]
		cyclic = c.IsCyclic() && first.IsAuto() && last.IsAuto()
		prev   *ControlPoint
		next   *ControlPoint
	)

	if cyclic {
		prev = cycleOffset(&keys[n-2], last, first)
	}

	for i := range keys {
		cp := &keys[i]

		if i+1 < n {
			next = &keys[i+1]
		} else if cyclic {
			next = cycleOffset(&keys[1], first, last)
		} else {
			next = nil
		}

		if cp.Left[0] > cp.Time {
			cp.Left[0] = cp.Time
		}
		if cp.Right[0] < cp.Time {
			cp.Right[0] = cp.Time
		}

		calcHandle(cp, prev, next, c.AutoSmoothing)

		if cp.IsAuto() && !cyclic && (i == 0 || i == n-1) {
			if c.extend() == ExtendConstant {
				cp.Left[1] = cp.Value
				cp.Right[1] = cp.Value
				cp.AutoLocked = true
			}
		}

		if prev != nil && prev.Time >= cp.Time-DuplicateThreshold {
			prev.AutoLocked = true
			cp.AutoLocked = true
		}

		prev = cp
	}

	if cyclic && (first.AutoLocked || last.AutoLocked) {
		first.Left[1], first.Right[1] = first.Value, first.Value
		last.Left[1], last.Right[1] = last.Value, last.Value
		first.AutoLocked = true
		last.AutoLocked = true
	}

	if c.AutoSmoothing != SmoothNone && s != nil {
		s.Smooth(keys, cyclic)
	}
}

// calcHandle computes the handles of cp given its neighbors.  Either
// neighbor can be nil, but not both.
func calcHandle(cp, prev, next *ControlPoint, smoothing Smoothing) {
	cp.AutoLocked = false

	if cp.HandleLeft == HandleFree && cp.HandleRight == HandleFree {
		return
	}
	if prev == nil && next == nil {
		return
	}

	var (
		p2     = cp.point()
		p1, p3 Vec2
	)

	if prev == nil {
		p3 = next.point()
		p1 = Vec2{2*p2[0] - p3[0], 2*p2[1] - p3[1]}
	} else {
		p1 = prev.point()
	}
	if next == nil {
		p3 = Vec2{2*p2[0] - p1[0], 2*p2[1] - p1[1]}
	} else {
		p3 = next.point()
	}

	var (
		dA   = Vec2{p2[0] - p1[0], p2[1] - p1[1]}
		dB   = Vec2{p3[0] - p2[0], p3[1] - p2[1]}
		lenA = dA[0]
		lenB = dB[0]
	)
	if lenA == 0 {
		lenA = 1
	}
	if lenB == 0 {
		lenB = 1
	}

	if cp.HandleLeft.IsAuto() || cp.HandleRight.IsAuto() {
		tv := Vec2{dB[0]/lenB + dA[0]/lenA, dB[1]/lenB + dA[1]/lenA}

		var l float64
		if smoothing != SmoothNone {
			// Makes the time component of the segment linear.
			l = 6 / autoHandleScale
		} else {
			l = tv[0]
		}
		l *= autoHandleScale

		if l != 0 {
			var leftViolate, rightViolate bool

			if smoothing == SmoothNone {
				if lenA > 5*lenB {
					lenA = 5 * lenB
				}
				if lenB > 5*lenA {
					lenB = 5 * lenA
				}
			}

			if cp.HandleLeft.IsAuto() {
				a := lenA / l
				cp.Left = Vec2{p2[0] - tv[0]*a, p2[1] - tv[1]*a}
				if clamped(cp.HandleLeft) && prev != nil && next != nil {
					leftViolate = clampHandle(cp, &cp.Left, prev, next, prev)
				}
			}
			if cp.HandleRight.IsAuto() {
				b := lenB / l
				cp.Right = Vec2{p2[0] + tv[0]*b, p2[1] + tv[1]*b}
				if clamped(cp.HandleRight) && prev != nil && next != nil {
					rightViolate = clampHandle(cp, &cp.Right, prev, next, next)
				}
			}

			if leftViolate || rightViolate {
				h1x := cp.Left[0] - p2[0]
				h2x := p2[0] - cp.Right[0]
				if leftViolate {
					cp.Right[1] = p2[1] + ((p2[1]-cp.Left[1])/h1x)*h2x
				} else {
					cp.Left[1] = p2[1] + ((p2[1]-cp.Right[1])/h2x)*h1x
				}
			}
		}
	}

	if cp.HandleLeft == HandleVector {
		cp.Left = Vec2{p2[0] - dA[0]/3, p2[1] - dA[1]/3}
	}
	if cp.HandleRight == HandleVector {
		cp.Right = Vec2{p2[0] + dB[0]/3, p2[1] + dB[1]/3}
	}

	alignHandles(cp)
}

func clamped(h HandleType) bool {
	return h == HandleAutoClamped || h == ""
}

// clampHandle keeps an auto-clamped handle from overshooting.  At
// an extreme the handle is flattened and the key is locked.
// Otherwise the handle's value is clamped to the neighbor on its
// side.  Returns true if the handle was clamped.
func clampHandle(cp *ControlPoint, h *Vec2, prev, next, side *ControlPoint) bool {
	d1 := prev.Value - cp.Value
	d2 := next.Value - cp.Value

	if (d1 <= 0 && d2 <= 0) || (d1 >= 0 && d2 >= 0) {
		h[1] = cp.Value
		cp.AutoLocked = true
		return false
	}

	// For the left handle, prev is rising toward cp when d1 <= 0.
	// For the right handle, the same test says next is above cp.
	rising := d1 <= 0
	if side == prev {
		if rising && side.Value > h[1] || !rising && side.Value < h[1] {
			h[1] = side.Value
			return true
		}
		return false
	}
	if rising && side.Value < h[1] || !rising && side.Value > h[1] {
		h[1] = side.Value
		return true
	}
	return false
}

// alignHandles makes aligned handles collinear with the opposite
// handle.  A selected key's left handle leads.
func alignHandles(cp *ControlPoint) {
	if cp.HandleLeft != HandleAligned && cp.HandleRight != HandleAligned {
		return
	}

	p := cp.point()
	lenA := math.Hypot(cp.Left[0]-p[0], cp.Left[1]-p[1])
	lenB := math.Hypot(cp.Right[0]-p[0], cp.Right[1]-p[1])
	if lenA == 0 {
		lenA = 1
	}
	if lenB == 0 {
		lenB = 1
	}
	ratio := lenA / lenB

	alignRight := func() {
		if cp.HandleRight == HandleAligned && lenA > alignEpsilon {
			f := 1 / ratio
			cp.Right = Vec2{p[0] + f*(p[0]-cp.Left[0]), p[1] + f*(p[1]-cp.Left[1])}
		}
	}
	alignLeft := func() {
		if cp.HandleLeft == HandleAligned && lenB > alignEpsilon {
			f := ratio
			cp.Left = Vec2{p[0] + f*(p[0]-cp.Right[0]), p[1] + f*(p[1]-cp.Right[1])}
		}
	}

	if cp.Selected {
		alignRight()
		alignLeft()
	} else {
		alignLeft()
		alignRight()
	}
}

// ContinuousSmoother makes the second derivative continuous across
// runs of unlocked auto keys.
//
// Within a run, each key's slope is unknown.  Keys that bound a run
// keep their slopes, and a run that reaches the end of a non-cyclic
// curve gets a zero second derivative there.  Handles are placed at
// a third of each interval, so segments are cubic Hermite splines and
// the conditions form a tridiagonal system.
type ContinuousSmoother struct{}

func (ContinuousSmoother) Smooth(keys []ControlPoint, cyclic bool) {
	n := len(keys)
	if n < 2 {
		return
	}

	free := func(i int) bool {
		cp := &keys[i]
		return cp.IsAuto() && !cp.AutoLocked
	}

	for i := 0; i < n; {
		if !free(i) {
			i++
			continue
		}
		j := i
		for j+1 < n && free(j+1) {
			j++
		}
		smoothRun(keys, i, j, cyclic)
		i = j + 1
	}
}

func handleSlope(cp *ControlPoint, h Vec2) float64 {
	dx := h[0] - cp.Time
	if dx == 0 {
		return 0
	}
	return (h[1] - cp.Value) / dx
}

// smoothRun solves for the slopes of keys lo..hi (inclusive).
func smoothRun(keys []ControlPoint, lo, hi int, cyclic bool) {
	var (
		n = len(keys)
		m = hi - lo + 1
		a = make([]float64, m) // sub-diagonal
		b = make([]float64, m) // diagonal
		c = make([]float64, m) // super-diagonal
		d = make([]float64, m) // right-hand side
	)

	inv := func(k int) float64 {
		// 1/h for the interval from key k to k+1.
		h := keys[k+1].Time - keys[k].Time
		if h <= 0 {
			return 0
		}
		return 1 / h
	}
	secant := func(k int) float64 {
		h := keys[k+1].Time - keys[k].Time
		if h <= 0 {
			return 0
		}
		return (keys[k+1].Value - keys[k].Value) / h
	}

	for r := 0; r < m; r++ {
		k := lo + r

		switch {
		case k == 0 && !cyclic:
			// Natural end: 2 m0 + m1 = 3 d0.
			b[r], c[r], d[r] = 2, 1, 3*secant(0)
		case k == n-1 && !cyclic:
			a[r], b[r], d[r] = 1, 2, 3*secant(n-2)
		case k == 0 || k == n-1:
			// Cyclic ends keep the slopes from the ring pass.
			b[r], d[r] = 1, handleSlope(&keys[k], keys[k].Right)
		default:
			il, ir := inv(k-1), inv(k)
			a[r] = il
			b[r] = 2 * (il + ir)
			c[r] = ir
			d[r] = 3 * (secant(k-1)*il + secant(k)*ir)
		}

		// Known neighbors move to the right-hand side.
		if r == 0 && 0 < k {
			d[r] -= a[r] * handleSlope(&keys[k-1], keys[k-1].Right)
			a[r] = 0
		}
		if r == m-1 && k < n-1 {
			d[r] -= c[r] * handleSlope(&keys[k+1], keys[k+1].Left)
			c[r] = 0
		}
	}

	slopes, ok := solveTridiagonal(a, b, c, d)
	if !ok {
		return
	}

	for r, s := range slopes {
		k := lo + r
		cp := &keys[k]
		if 0 < k {
			h := (cp.Time - keys[k-1].Time) / 3
			cp.Left = Vec2{cp.Time - h, cp.Value - s*h}
		}
		if k+1 < n {
			h := (keys[k+1].Time - cp.Time) / 3
			cp.Right = Vec2{cp.Time + h, cp.Value + s*h}
		}
	}
}

// solveTridiagonal solves the system with sub-diagonal a,
// diagonal b, super-diagonal c and right-hand side d using the
// Thomas algorithm.  Returns false if the system is singular.
func solveTridiagonal(a, b, c, d []float64) ([]float64, bool) {
	n := len(d)
	if n == 0 {
		return nil, true
	}

	cp := make([]float64, n)
	dp := make([]float64, n)

	if b[0] == 0 {
		return nil, false
	}
	cp[0] = c[0] / b[0]
	dp[0] = d[0] / b[0]

	for i := 1; i < n; i++ {
		den := b[i] - a[i]*cp[i-1]
		if den == 0 {
			return nil, false
		}
		cp[i] = c[i] / den
		dp[i] = (d[i] - a[i]*dp[i-1]) / den
	}

	x := make([]float64, n)
	x[n-1] = dp[n-1]
	for i := n - 2; 0 <= i; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}

	return x, true
}
