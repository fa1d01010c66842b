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

import "math"

// Quat is a quaternion stored as (w, x, y, z).
type Quat [4]float64

// IdentityQuat is the rotation that does nothing.
var IdentityQuat = Quat{1, 0, 0, 0}

// Mul returns the Hamilton product a * b.
func (a Quat) Mul(b Quat) Quat {
	return Quat{
		a[0]*b[0] - a[1]*b[1] - a[2]*b[2] - a[3]*b[3],
		a[0]*b[1] + a[1]*b[0] + a[2]*b[3] - a[3]*b[2],
		a[0]*b[2] + a[2]*b[0] + a[3]*b[1] - a[1]*b[3],
		a[0]*b[3] + a[3]*b[0] + a[1]*b[2] - a[2]*b[1],
	}
}

// Conjugate returns the conjugate, which is the inverse of a unit
// quaternion.
func (a Quat) Conjugate() Quat {
	return Quat{a[0], -a[1], -a[2], -a[3]}
}

// Normalize returns a unit quaternion. A zero quaternion becomes
// (0, 1, 0, 0).
func (a Quat) Normalize() Quat {
	l := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2] + a[3]*a[3])
	if l == 0 {
		return Quat{0, 1, 0, 0}
	}
	return Quat{a[0] / l, a[1] / l, a[2] / l, a[3] / l}
}

// Angle returns the rotation angle of a unit quaternion in [0, 2π].
func (a Quat) Angle() float64 {
	return 2 * SafeAcos(a[0])
}

// AxisAngle decomposes a unit quaternion.
func (a Quat) AxisAngle() (Vec3, float64) {
	ha := SafeAcos(a[0])
	si := math.Sin(ha)
	if math.Abs(si) < 0.0005 {
		si = 1
	}
	axis := Vec3{a[1] / si, a[2] / si, a[3] / si}
	if axis.Len() == 0 {
		axis[1] = 1
	}
	return axis, 2 * ha
}

// Expmap returns the exponential map (axis times angle).
func (a Quat) Expmap() Vec3 {
	axis, angle := a.Normalize().AxisAngle()
	return axis.Scale(angle)
}

// QuatFromMat3 converts a rotation matrix whose columns are unit
// length.
func QuatFromMat3(m Mat3) Quat {
	var q Quat
	trace := m[0][0] + m[1][1] + m[2][2]
	if trace > 0 {
		s := 2 * math.Sqrt(1+trace)
		q[0] = 0.25 * s
		s = 1 / s
		q[1] = (m[1][2] - m[2][1]) * s
		q[2] = (m[2][0] - m[0][2]) * s
		q[3] = (m[0][1] - m[1][0]) * s
	} else {
		switch {
		case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
			s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
			q[1] = 0.25 * s
			s = 1 / s
			q[0] = (m[1][2] - m[2][1]) * s
			q[2] = (m[1][0] + m[0][1]) * s
			q[3] = (m[2][0] + m[0][2]) * s
		case m[1][1] > m[2][2]:
			s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
			q[2] = 0.25 * s
			s = 1 / s
			q[0] = (m[2][0] - m[0][2]) * s
			q[1] = (m[1][0] + m[0][1]) * s
			q[3] = (m[2][1] + m[1][2]) * s
		default:
			s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
			q[3] = 0.25 * s
			s = 1 / s
			q[0] = (m[0][1] - m[1][0]) * s
			q[1] = (m[2][0] + m[0][2]) * s
			q[2] = (m[2][1] + m[1][2]) * s
		}
		if q[0] < 0 {
			q = Quat{-q[0], -q[1], -q[2], -q[3]}
		}
	}
	return q.Normalize()
}

// QuatFromMat4 extracts the rotation of a transform, ignoring scale.
func QuatFromMat4(m Mat4) Quat {
	return QuatFromMat3(m.Mat3().Normalized())
}

// Mat3 converts a unit quaternion to a rotation matrix.
func (a Quat) Mat3() Mat3 {
	q0 := math.Sqrt2 * a[0]
	q1 := math.Sqrt2 * a[1]
	q2 := math.Sqrt2 * a[2]
	q3 := math.Sqrt2 * a[3]

	qda, qdb, qdc := q0*q1, q0*q2, q0*q3
	qaa, qab, qac := q1*q1, q1*q2, q1*q3
	qbb, qbc, qcc := q2*q2, q2*q3, q3*q3

	return Mat3{
		{1 - qbb - qcc, qdc + qab, -qdb + qac},
		{-qdc + qab, 1 - qaa - qcc, qda + qbc},
		{qdb + qac, -qda + qbc, 1 - qaa - qbb},
	}
}

// SplitSwingTwist decomposes q into a swing followed by a twist
// about the given axis (0, 1 or 2). It returns the swing and the
// twist angle.
func SplitSwingTwist(q Quat, axis int) (Quat, float64) {
	if q[0] < 0 {
		q = Quat{-q[0], -q[1], -q[2], -q[3]}
	}

	t := math.Atan2(q[axis+1], q[0])

	inv := Quat{math.Cos(t), 0, 0, 0}
	inv[axis+1] = -math.Sin(t)

	return q.Mul(inv), 2 * t
}

// SafeAcos clamps its argument into [-1, 1] before calling math.Acos.
func SafeAcos(f float64) float64 {
	if f <= -1 {
		return math.Pi
	}
	if f >= 1 {
		return 0
	}
	return math.Acos(f)
}

// SafeAsin clamps its argument into [-1, 1] before calling math.Asin.
func SafeAsin(f float64) float64 {
	if f <= -1 {
		return -math.Pi / 2
	}
	if f >= 1 {
		return math.Pi / 2
	}
	return math.Asin(f)
}
