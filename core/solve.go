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

	"honnef.co/go/curve"
)

const (
	// rootLow and rootHigh bound the parametric roots that
	// SolveCubic accepts.  The window is slightly wider than [0,1]
	// so that roots at the segment ends survive rounding.
	rootLow  = -1.0e-10
	rootHigh = 1.000001
)

// CorrectBezierSegment clamps the handles h1 (right handle of the
// key at p1) and h2 (left handle of the key at p2) so that neither
// reaches past the other key in time.  Each offending handle is
// shortened along its own direction.
//
// A segment with handles that pass each other would have more than
// one value for some times.
func CorrectBezierSegment(p1 Vec2, h1, h2 *Vec2, p2 Vec2) {
	d1 := Vec2{p1[0] - h1[0], p1[1] - h1[1]}
	d2 := Vec2{p2[0] - h2[0], p2[1] - h2[1]}

	span := p2[0] - p1[0]
	len1 := math.Abs(d1[0])
	len2 := math.Abs(d2[0])

	if len1+len2 == 0 {
		return
	}

	if len1 > span {
		f := span / len1
		h1[0] = p1[0] - f*d1[0]
		h1[1] = p1[1] - f*d1[1]
	}
	if len2 > span {
		f := span / len2
		h2[0] = p2[0] - f*d2[0]
		h2[1] = p2[1] - f*d2[1]
	}
}

func accept(r float64) bool {
	return rootLow <= r && r <= rootHigh
}

// SolveCubic finds the real roots of c3 x^3 + c2 x^2 + c1 x + c0 that
// lie in the unit interval (with a little slack).  The roots are
// returned in the first n elements of the array.
//
// Degenerate quadratic, linear and constant equations are handled.
// A constant zero equation reports the single root 0.
func SolveCubic(c0, c1, c2, c3 float64) (roots [3]float64, n int) {
	if c0 == 0 && c1 == 0 && c2 == 0 && c3 == 0 {
		return roots, 1
	}

	all, m := curve.SolveCubic(c0, c1, c2, c3)
	for _, r := range all[:m] {
		if accept(r) {
			roots[n] = r
			n++
		}
	}
	return
}

// bezierCoefficients returns the power-basis coefficients of the
// one-dimensional cubic Bezier with control values q0..q3.
func bezierCoefficients(q0, q1, q2, q3 float64) (c0, c1, c2, c3 float64) {
	c0 = q0
	c1 = 3 * (q1 - q0)
	c2 = 3 * (q0 - 2*q1 + q2)
	c3 = q3 - q0 + 3*(q1-q2)
	return
}

// FindBezierParam returns the parameters at which the cubic Bezier
// with control values q0..q3 equals x.
func FindBezierParam(x, q0, q1, q2, q3 float64) ([3]float64, int) {
	c0, c1, c2, c3 := bezierCoefficients(q0, q1, q2, q3)
	return SolveCubic(c0-x, c1, c2, c3)
}

// BezierAt evaluates the cubic Bezier with control values q0..q3 at
// the parameter t.
func BezierAt(q0, q1, q2, q3, t float64) float64 {
	c0, c1, c2, c3 := bezierCoefficients(q0, q1, q2, q3)
	return c0 + t*c1 + t*t*c2 + t*t*t*c3
}
