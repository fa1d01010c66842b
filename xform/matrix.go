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

// Package xform provides the small amount of 3D transform math that
// driver variables need: matrices, quaternions and Euler angles.
//
// Matrices are stored column-major, so m[c][r] is the element at
// column c and row r, and m[3] of a Mat4 is the translation.
package xform

import "math"

// Vec3 is a 3D vector.
type Vec3 [3]float64

// Mat3 is a column-major 3x3 matrix.
type Mat3 [3][3]float64

// Mat4 is a column-major 4x4 affine transform.
type Mat4 [4][4]float64

// Identity4 returns the identity transform.
func Identity4() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Identity3 returns the 3x3 identity.
func Identity3() Mat3 {
	return Mat3{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Scale returns a * f.
func (a Vec3) Scale(f float64) Vec3 {
	return Vec3{a[0] * f, a[1] * f, a[2] * f}
}

// Len returns the Euclidean length.
func (a Vec3) Len() float64 {
	return math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// Mul returns a * b.
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var acc float64
			for k := 0; k < 4; k++ {
				acc += a[k][r] * b[c][k]
			}
			m[c][r] = acc
		}
	}
	return m
}

// MulPoint transforms the point p.
func (a Mat4) MulPoint(p Vec3) Vec3 {
	var v Vec3
	for r := 0; r < 3; r++ {
		v[r] = a[0][r]*p[0] + a[1][r]*p[1] + a[2][r]*p[2] + a[3][r]
	}
	return v
}

// Translation returns the location part of the transform.
func (a Mat4) Translation() Vec3 {
	return Vec3{a[3][0], a[3][1], a[3][2]}
}

// Mat3 returns the upper-left 3x3 block.
func (a Mat4) Mat3() Mat3 {
	var m Mat3
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m[c][r] = a[c][r]
		}
	}
	return m
}

// AxisScale returns the length of column i, which is the scale
// along that local axis.
func (a Mat4) AxisScale(i int) float64 {
	return Vec3{a[i][0], a[i][1], a[i][2]}.Len()
}

// VolumeScale returns the determinant of the 3x3 block.
func (a Mat4) VolumeScale() float64 {
	return a.Mat3().Det()
}

// Invert returns the inverse of an affine transform. The second
// result is false when the matrix is singular.
func (a Mat4) Invert() (Mat4, bool) {
	r, ok := a.Mat3().Invert()
	if !ok {
		return Identity4(), false
	}
	t := a.Translation()
	m := FromMat3(r)
	for i := 0; i < 3; i++ {
		m[3][i] = -(r[0][i]*t[0] + r[1][i]*t[1] + r[2][i]*t[2])
	}
	return m, true
}

// FromMat3 promotes a rotation/scale block to a transform without
// translation.
func FromMat3(r Mat3) Mat4 {
	m := Identity4()
	for c := 0; c < 3; c++ {
		for rr := 0; rr < 3; rr++ {
			m[c][rr] = r[c][rr]
		}
	}
	return m
}

// Compose builds loc * rot * scale.
func Compose(loc Vec3, rot Mat3, scale Vec3) Mat4 {
	m := Identity4()
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m[c][r] = rot[c][r] * scale[c]
		}
	}
	m[3][0], m[3][1], m[3][2] = loc[0], loc[1], loc[2]
	return m
}

// Det returns the determinant.
func (a Mat3) Det() float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[1][0]*(a[0][1]*a[2][2]-a[0][2]*a[2][1]) +
		a[2][0]*(a[0][1]*a[1][2]-a[0][2]*a[1][1])
}

// Invert returns the inverse. The second result is false when the
// matrix is singular.
func (a Mat3) Invert() (Mat3, bool) {
	det := a.Det()
	if det == 0 {
		return Identity3(), false
	}
	var m Mat3
	m[0][0] = (a[1][1]*a[2][2] - a[2][1]*a[1][2]) / det
	m[0][1] = -(a[0][1]*a[2][2] - a[2][1]*a[0][2]) / det
	m[0][2] = (a[0][1]*a[1][2] - a[1][1]*a[0][2]) / det
	m[1][0] = -(a[1][0]*a[2][2] - a[2][0]*a[1][2]) / det
	m[1][1] = (a[0][0]*a[2][2] - a[2][0]*a[0][2]) / det
	m[1][2] = -(a[0][0]*a[1][2] - a[1][0]*a[0][2]) / det
	m[2][0] = (a[1][0]*a[2][1] - a[2][0]*a[1][1]) / det
	m[2][1] = -(a[0][0]*a[2][1] - a[2][0]*a[0][1]) / det
	m[2][2] = (a[0][0]*a[1][1] - a[1][0]*a[0][1]) / det
	return m, true
}

// Normalized returns the matrix with unit-length columns. Zero
// columns are left alone.
func (a Mat3) Normalized() Mat3 {
	m := a
	for c := 0; c < 3; c++ {
		l := Vec3(m[c]).Len()
		if l != 0 {
			for r := 0; r < 3; r++ {
				m[c][r] /= l
			}
		}
	}
	return m
}
