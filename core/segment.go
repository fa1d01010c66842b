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

import (
	"math"

	"github.com/Comcast/fcurve/util"
)

const (
	// onKeyEpsilon catches times that the binary search missed
	// but that are still on a key.
	onKeyEpsilon = 1e-8

	// flatEpsilon is the tolerance for the flat-segment shortcut.
	flatEpsilon = 1.1920929e-07
)

// EvaluateKeys computes the value of the keyed curve at time t.
//
// Times at or outside the first and last keys are extrapolated.
// The curve must have at least one key.
func (c *Curve) EvaluateKeys(t float64) float64 {
	keys := c.Keys
	if t <= keys[0].Time {
		return c.extrapolate(t, 0, 1)
	}
	if n := len(keys); keys[n-1].Time <= t {
		return c.extrapolate(t, n-1, -1)
	}
	return c.interpolate(t)
}

// extrapolate computes a value outside the keyed range using the
// key at index end and its neighbor in direction dir.
func (c *Curve) extrapolate(t float64, end, dir int) float64 {
	cp := &c.Keys[end]

	if cp.interp() == Constant || c.extend() == ExtendConstant || c.DiscreteValues {
		return cp.Value
	}

	if cp.interp() == Linear {
		if len(c.Keys) == 1 {
			return cp.Value
		}
		nb := &c.Keys[end+dir]
		dt := cp.Time - t
		span := nb.Time - cp.Time
		if span == 0 {
			return cp.Value
		}
		slope := (nb.Value - cp.Value) / span
		return cp.Value - slope*dt
	}

	// Use the slope of the outer handle.
	h := cp.Left
	if dir < 0 {
		h = cp.Right
	}
	dt := cp.Time - t
	span := cp.Time - h[0]
	if span == 0 {
		return cp.Value
	}
	slope := (cp.Value - h[1]) / span
	return cp.Value - slope*dt
}

// interpolate computes a value strictly inside the keyed range.
func (c *Curve) interpolate(t float64) float64 {
	i, exact := BinarySearchKeyframe(c.Keys, t, EvalThreshold)
	if exact {
		// The key found starts the segment.
		return c.Keys[i].Value
	}

	var (
		next = &c.Keys[i]
		prev = next
	)
	if 0 < i {
		prev = &c.Keys[i-1]
	}

	if math.Abs(next.Time-t) < onKeyEpsilon {
		return next.Value
	}

	if t < prev.Time || next.Time < t {
		util.Logf("core.interpolate: failed eval %s: prev=%f next=%f t=%f", c.Path, prev.Time, next.Time, t)
		return 0
	}

	return c.segment(prev, next, t)
}

// segment evaluates the segment from prev to next at time t.
func (c *Curve) segment(prev, next *ControlPoint, t float64) float64 {
	duration := next.Time - prev.Time
	if prev.interp() == Constant || c.DiscreteValues || duration == 0 {
		return prev.Value
	}

	p := EaseParams{
		Time:      t - prev.Time,
		Begin:     prev.Value,
		Change:    next.Value - prev.Value,
		Duration:  duration,
		Back:      prev.Back,
		Amplitude: prev.Amplitude,
		Period:    prev.Period,
	}

	switch i := prev.interp(); i {
	case Bezier:
		return bezierSegment(prev, next, t)
	case Linear:
		return linearEase(p)
	default:
		if f, is := EasingFunc(i, prev.Easing); is {
			return f(p)
		}
		util.Logf("core.segment: unknown interpolation %q", i)
		return prev.Value
	}
}

// bezierSegment finds the value of a Bezier segment at time t by
// solving for the curve parameter at which the time component is t.
func bezierSegment(prev, next *ControlPoint, t float64) float64 {
	var (
		p0 = prev.point()
		h1 = prev.Right
		h2 = next.Left
		p3 = next.point()
	)

	if math.Abs(p0[1]-p3[1]) < flatEpsilon &&
		math.Abs(h1[1]-h2[1]) < flatEpsilon &&
		math.Abs(h2[1]-p3[1]) < flatEpsilon {
		return p0[1]
	}

	CorrectBezierSegment(p0, &h1, &h2, p3)

	roots, n := FindBezierParam(t, p0[0], h1[0], h2[0], p3[0])
	if n == 0 {
		util.Logf("core.bezierSegment: no root at %f with %f %f %f %f", t, p0[0], h1[0], h2[0], p3[0])
		return 0
	}

	return BezierAt(p0[1], h1[1], h2[1], p3[1], roots[0])
}

// EvaluateSamples computes the value of the sampled curve at time t.
// Samples are assumed to be one frame apart.
func (c *Curve) EvaluateSamples(t float64) float64 {
	var (
		ss    = c.Samples
		first = ss[0]
		last  = ss[len(ss)-1]
	)

	if t <= first.Time {
		return first.Value
	}
	if last.Time <= t {
		return last.Value
	}

	base := math.Floor(t)
	frac := t - base
	i := int(base - first.Time)
	if i < 0 || len(ss) <= i {
		return last.Value
	}

	if frac != 0 && i+1 < len(ss) {
		return ss[i].Value + (ss[i+1].Value-ss[i].Value)*frac
	}

	return ss[i].Value
}
