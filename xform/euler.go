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

package xform

import (
	"fmt"
	"math"
	"strings"
)

// Order is an Euler rotation order.
type Order int

const (
	XYZ Order = iota + 1
	XZY
	YXZ
	YZX
	ZXY
	ZYX
)

var orderNames = map[Order]string{
	XYZ: "XYZ",
	XZY: "XZY",
	YXZ: "YXZ",
	YZX: "YZX",
	ZXY: "ZXY",
	ZYX: "ZYX",
}

func (o Order) String() string {
	if s, have := orderNames[o]; have {
		return s
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder reads an order name such as "XYZ" (case-insensitive).
func ParseOrder(s string) (Order, error) {
	s = strings.ToUpper(s)
	for o, name := range orderNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown rotation order %q", s)
}

type orderInfo struct {
	axis   [3]int
	parity bool
}

var orderInfos = [...]orderInfo{
	{[3]int{0, 1, 2}, false}, // XYZ
	{[3]int{0, 2, 1}, true},  // XZY
	{[3]int{1, 0, 2}, true},  // YXZ
	{[3]int{1, 2, 0}, false}, // YZX
	{[3]int{2, 0, 1}, false}, // ZXY
	{[3]int{2, 1, 0}, true},  // ZYX
}

func (o Order) info() orderInfo {
	switch {
	case o < XYZ:
		return orderInfos[0]
	case o > ZYX:
		return orderInfos[5]
	}
	return orderInfos[o-1]
}

// Euler is a triple of angles in radians, indexed by axis (X, Y, Z)
// regardless of order.
type Euler [3]float64

// Mat3 builds the rotation matrix for these angles applied in the
// given order.
func (e Euler) Mat3(o Order) Mat3 {
	r := o.info()
	i, j, k := r.axis[0], r.axis[1], r.axis[2]

	ti, tj, th := e[i], e[j], e[k]
	if r.parity {
		ti, tj, th = -ti, -tj, -th
	}

	ci, cj, ch := math.Cos(ti), math.Cos(tj), math.Cos(th)
	si, sj, sh := math.Sin(ti), math.Sin(tj), math.Sin(th)
	cc, cs := ci*ch, ci*sh
	sc, ss := si*ch, si*sh

	var m Mat3
	m[i][i] = cj * ch
	m[j][i] = sj*sc - cs
	m[k][i] = sj*cc + ss
	m[i][j] = cj * sh
	m[j][j] = sj*ss + cc
	m[k][j] = sj*cs - sc
	m[i][k] = -sj
	m[j][k] = cj * si
	m[k][k] = cj * ci
	return m
}

// Quat converts these angles, applied in the given order.
func (e Euler) Quat(o Order) Quat {
	r := o.info()
	i, j, k := r.axis[0], r.axis[1], r.axis[2]

	ti := e[i] * 0.5
	tj := e[j] * 0.5
	if r.parity {
		tj = -tj
	}
	th := e[k] * 0.5

	ci, cj, ch := math.Cos(ti), math.Cos(tj), math.Cos(th)
	si, sj, sh := math.Sin(ti), math.Sin(tj), math.Sin(th)
	cc, cs := ci*ch, ci*sh
	sc, ss := si*ch, si*sh

	var a [3]float64
	a[i] = cj*sc - sj*cs
	a[j] = cj*ss + sj*cc
	a[k] = cj*cs - sj*sc

	q := Quat{cj*cc + sj*ss, a[0], a[1], a[2]}
	if r.parity {
		q[j+1] = -q[j+1]
	}
	return q
}

// eulerPair returns both Euler solutions for a normalized rotation
// matrix.
func eulerPair(m Mat3, o Order) (Euler, Euler) {
	r := o.info()
	i, j, k := r.axis[0], r.axis[1], r.axis[2]

	var e1, e2 Euler
	cy := math.Hypot(m[i][i], m[i][j])

	if cy > 16*epsilon32 {
		e1[i] = math.Atan2(m[j][k], m[k][k])
		e1[j] = math.Atan2(-m[i][k], cy)
		e1[k] = math.Atan2(m[i][j], m[i][i])

		e2[i] = math.Atan2(-m[j][k], -m[k][k])
		e2[j] = math.Atan2(-m[i][k], -cy)
		e2[k] = math.Atan2(-m[i][j], -m[i][i])
	} else {
		e1[i] = math.Atan2(-m[k][j], m[j][j])
		e1[j] = math.Atan2(-m[i][k], cy)
		e1[k] = 0
		e2 = e1
	}

	if r.parity {
		for n := range e1 {
			e1[n], e2[n] = -e1[n], -e2[n]
		}
	}
	return e1, e2
}

// EulerFromMat3 decomposes a rotation matrix, choosing the solution
// with the smallest angles.
func EulerFromMat3(m Mat3, o Order) Euler {
	e1, e2 := eulerPair(m.Normalized(), o)
	d1 := math.Abs(e1[0]) + math.Abs(e1[1]) + math.Abs(e1[2])
	d2 := math.Abs(e2[0]) + math.Abs(e2[1]) + math.Abs(e2[2])
	if d1 > d2 {
		return e2
	}
	return e1
}

// EulerFromMat4 decomposes the rotation of a transform.
func EulerFromMat4(m Mat4, o Order) Euler {
	return EulerFromMat3(m.Mat3(), o)
}

// CompatibleEulerFromMat3 decomposes a rotation matrix, choosing
// the solution closest to old.
func CompatibleEulerFromMat3(m Mat3, old Euler, o Order) Euler {
	e1, e2 := eulerPair(m.Normalized(), o)
	e1 = Compatible(e1, old)
	e2 = Compatible(e2, old)
	d1 := math.Abs(e1[0]-old[0]) + math.Abs(e1[1]-old[1]) + math.Abs(e1[2]-old[2])
	d2 := math.Abs(e2[0]-old[0]) + math.Abs(e2[1]-old[1]) + math.Abs(e2[2]-old[2])
	if d1 > d2 {
		return e2
	}
	return e1
}

// Compatible adjusts e by whole turns so that it stays close to old,
// which avoids flips when angles are recovered from a matrix frame
// after frame.
func Compatible(e, old Euler) Euler {
	const (
		piThresh = 5.1
		pi2      = 2 * math.Pi
	)

	var d Euler
	for i := range e {
		d[i] = e[i] - old[i]
		if d[i] > piThresh {
			e[i] -= math.Floor(d[i]/pi2+0.5) * pi2
			d[i] = e[i] - old[i]
		} else if d[i] < -piThresh {
			e[i] += math.Floor(-d[i]/pi2+0.5) * pi2
			d[i] = e[i] - old[i]
		}
	}

	// A single axis more than half a turn away while the others are
	// close gets one more full turn.
	for i := 0; i < 3; i++ {
		a, b := (i+1)%3, (i+2)%3
		if math.Abs(d[i]) > 3.2 && math.Abs(d[a]) < 1.6 && math.Abs(d[b]) < 1.6 {
			if d[i] > 0 {
				e[i] -= pi2
			} else {
				e[i] += pi2
			}
		}
	}
	return e
}

// epsilon32 is the single-precision machine epsilon, used where a
// threshold was tuned for float32 data.
const epsilon32 = 1.1920928955078125e-07
