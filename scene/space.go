package scene

import (
	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/util"
	"github.com/Comcast/fcurve/xform"
)

// basis is the matrix that takes space sp to world space.
func (o *Object) basis(bone string, sp core.Space) xform.Mat4 {
	switch sp {
	case core.SpaceWorld:
		return xform.Identity4()
	case core.SpacePose:
		return o.Matrix()
	case core.SpaceLocal:
		if bone == "" {
			return o.parentMatrix(0)
		}
		if b := o.bone(bone); b != nil {
			return o.Matrix().Mul(b.parentMatrix(0)).Mul(b.rest())
		}
		return o.Matrix()
	}
	util.Logf("scene: unknown space %q", sp)
	return xform.Identity4()
}

// ConvertSpace implements core.SpaceConverter.
//
// Local space for an object is its parent's space.  For a bone, it's
// the bone's rest position under its posed parent.  Pose space is the
// armature object's space.
func (s *Scene) ConvertSpace(ob core.Object, bone string, m xform.Mat4, from, to core.Space) xform.Mat4 {
	if from == to {
		return m
	}
	o, is := ob.(*Object)
	if !is {
		return m
	}

	s.RLock()
	defer s.RUnlock()

	inv, ok := o.basis(bone, to).Invert()
	if !ok {
		util.Logf("scene: can't invert %s space of %s", to, o.ID)
		return m
	}
	return inv.Mul(o.basis(bone, from)).Mul(m)
}
