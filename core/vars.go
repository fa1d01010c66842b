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
	"github.com/Comcast/fcurve/xform"
)

// evalVariable computes the current value of a driver variable,
// which is also cached in the variable.
func (e *Evaluator) evalVariable(d *Driver, v *Variable) float64 {
	var x float64
	switch v.Type {
	case VarSingleProp:
		x = e.singleProp(d, v)
	case VarRotationDiff:
		x = e.rotDiff(d, v)
	case VarLocationDiff:
		x = e.locDiff(d, v)
	case VarTransformChannel:
		x = e.transChan(d, v)
	default:
		util.Logf("driver variable %q has unknown type %q", v.Name, v.Type)
	}
	v.setLast(x)
	return x
}

// object returns the target's object, marking the target invalid
// if it's missing.
func (e *Evaluator) object(t *Target) Object {
	if e.Props == nil || t.ID == "" {
		t.invalid.Store(true)
		return nil
	}
	ob, err := e.Props.Object(t.ID)
	if err != nil || ob == nil {
		t.invalid.Store(true)
		return nil
	}
	t.invalid.Store(false)
	return ob
}

// validTargets counts the targets the variable uses that have an
// object.  A missing object also invalidates the driver.
func (e *Evaluator) validTargets(d *Driver, v *Variable) int {
	n := 0
	for _, t := range v.used() {
		if e.object(t) == nil {
			d.markInvalid()
			continue
		}
		n++
	}
	return n
}

func (e *Evaluator) singleProp(d *Driver, v *Variable) float64 {
	ts := v.used()
	if len(ts) == 0 {
		d.markInvalid()
		return 0
	}
	t := ts[0]

	fail := func(err error) float64 {
		util.Logf("driver variable %q: %v", v.Name, err)
		t.invalid.Store(true)
		d.markInvalid()
		return 0
	}

	if e.Props == nil {
		return fail(&UnresolvedTarget{ID: t.ID, Path: t.Path, Err: ErrNoObject})
	}

	p, index, err := e.Props.Resolve(t.ID, t.Path)
	if err != nil {
		return fail(&UnresolvedTarget{ID: t.ID, Path: t.Path, Err: err})
	}

	if n := p.Len(); n > 0 {
		if index < 0 || n <= index {
			return fail(&IndexOutOfRange{Path: t.Path, Index: index, Len: n})
		}
	}

	x, err := p.Float(index)
	if err != nil {
		return fail(&UnresolvedTarget{ID: t.ID, Path: t.Path, Err: err})
	}

	t.invalid.Store(false)
	t.curval.Store(math.Float64bits(x))
	return x
}

// worldMatrix is the pose matrix for a bone and the world matrix for
// an object.
func worldMatrix(ob Object, t *Target) xform.Mat4 {
	if t.Bone != "" {
		if b := ob.Bone(t.Bone); b != nil {
			return b.Matrix()
		}
	}
	return ob.Matrix()
}

func (e *Evaluator) rotDiff(d *Driver, v *Variable) float64 {
	if e.validTargets(d, v) != 2 {
		return 0
	}
	ts := v.used()

	var ms [2]xform.Mat4
	for i, t := range ts {
		ob := e.object(t)
		ms[i] = worldMatrix(ob, t)
	}

	q1 := xform.QuatFromMat4(ms[0])
	q2 := xform.QuatFromMat4(ms[1])
	q := q1.Conjugate().Mul(q2)

	angle := math.Abs(2 * xform.SafeAcos(q[0]))
	if angle > math.Pi {
		angle = 2*math.Pi - angle
	}
	return angle
}

// convert is SpaceConverter.ConvertSpace or identity when there's no
// SpaceConverter.
func (e *Evaluator) convert(ob Object, bone string, m xform.Mat4, from, to Space) xform.Mat4 {
	if e.Space == nil {
		return m
	}
	return e.Space.ConvertSpace(ob, bone, m, from, to)
}

// targetMatrix is the target's matrix in its space.  For bones in
// world space, that's the object's matrix times the pose matrix.
func (e *Evaluator) targetMatrix(ob Object, t *Target) xform.Mat4 {
	if t.Bone != "" {
		if b := ob.Bone(t.Bone); b != nil {
			switch t.space() {
			case SpaceTransform:
				return b.Local()
			case SpaceLocalTarget:
				return e.convert(ob, t.Bone, b.Matrix(), SpacePose, SpaceLocal)
			}
			return ob.Matrix().Mul(b.Matrix())
		}
	}
	switch t.space() {
	case SpaceTransform:
		return ob.Local()
	case SpaceLocalTarget:
		return e.convert(ob, "", ob.Matrix(), SpaceWorld, SpaceLocal)
	}
	return ob.Matrix()
}

// transformable is the bone named by the target if any, else the
// object.
func transformable(ob Object, t *Target) Transformable {
	if t.Bone != "" {
		if b := ob.Bone(t.Bone); b != nil {
			return b
		}
	}
	return ob
}

func (e *Evaluator) locDiff(d *Driver, v *Variable) float64 {
	ts := v.used()
	if e.validTargets(d, v) < len(ts) || len(ts) < 2 {
		return 0
	}

	var locs [2]xform.Vec3
	for i, t := range ts[:2] {
		ob := e.object(t)
		if t.space() == SpaceTransform {
			locs[i] = transformable(ob, t).Location()
			continue
		}
		locs[i] = e.targetMatrix(ob, t).Translation()
	}

	return xform.Distance(locs[0], locs[1])
}

func (e *Evaluator) transChan(d *Driver, v *Variable) float64 {
	if e.validTargets(d, v) != 1 {
		return 0
	}
	t := v.used()[0]
	ob := e.object(t)
	tr := transformable(ob, t)

	oldEul, order, useEulers := tr.Euler()
	if order == 0 {
		order = xform.XYZ
	}

	m := e.targetMatrix(ob, t)

	switch t.Channel {
	case ScaleAvg:
		return math.Cbrt(m.VolumeScale())
	case ScaleX:
		return m.AxisScale(0)
	case ScaleY:
		return m.AxisScale(1)
	case ScaleZ:
		return m.AxisScale(2)
	case LocX:
		return m.Translation()[0]
	case LocY:
		return m.Translation()[1]
	case LocZ:
		return m.Translation()[2]
	}

	var index int
	switch t.Channel {
	case RotW:
		index = 0
	case RotX:
		index = 1
	case RotY:
		index = 2
	case RotZ:
		index = 3
	default:
		util.Logf("driver variable %q has unknown channel %q", v.Name, t.Channel)
		t.invalid.Store(true)
		d.markInvalid()
		return 0
	}

	// buf is w, x, y, z.  For Euler angles, w is unused.
	var buf [4]float64

	mode := t.RotationMode
	if mode == "" {
		mode = RotAuto
	}

	switch mode {
	case RotQuaternion:
		q := xform.QuatFromMat4(m)
		if t.QuatAngles {
			buf[0] = 2 * xform.SafeAcos(q[0])
			for i := 1; i < 4; i++ {
				buf[i] = 2 * xform.SafeAsin(q[i])
			}
		} else {
			buf = q
		}
	case RotSwingTwistX, RotSwingTwistY, RotSwingTwistZ:
		axis := int(mode[len(mode)-1] - 'x')
		q := xform.QuatFromMat4(m)
		swing, twist := xform.SplitSwingTwist(q, axis)
		eul := swing.Expmap()
		eul[axis] = twist
		copy(buf[1:], eul[:])
	default:
		o := order
		if mode != RotAuto {
			var err error
			if o, err = xform.ParseOrder(string(mode)); err != nil {
				util.Logf("driver variable %q: %v", v.Name, err)
				o = xform.XYZ
			}
		}
		eul := xform.EulerFromMat4(m, o)
		if useEulers && mode == RotAuto {
			eul = xform.Compatible(eul, oldEul)
		}
		copy(buf[1:], eul[:])
	}

	return buf[index]
}
