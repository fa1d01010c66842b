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

import "github.com/Comcast/fcurve/xform"

// PropertyKind is the type of a property's elements.
type PropertyKind int

const (
	PropFloat PropertyKind = iota
	PropInt
	PropBool
	PropEnum
)

func (k PropertyKind) String() string {
	switch k {
	case PropInt:
		return "int"
	case PropBool:
		return "bool"
	case PropEnum:
		return "enum"
	}
	return "float"
}

// Property is a resolved property.
type Property interface {
	Kind() PropertyKind

	// Len is the array length, which is zero for a scalar.
	Len() int

	// Float reads element i as a float64.  Booleans are 0 or 1,
	// and enums are their integer values.  For a scalar, i is
	// ignored.
	Float(i int) (float64, error)
}

// PropertyAccessor finds the scene data that driver targets read.
type PropertyAccessor interface {
	// Resolve finds the property at path on the object with the
	// given id.  A path can end with an index like "[2]", which
	// is returned separately.  The index is -1 when the path has
	// none.
	//
	// A path that doesn't resolve gives ErrPropertyNotFound.  A
	// property that can't be read as a number gives
	// ErrPropertyType.  A missing object gives ErrNoObject.
	Resolve(id, path string) (Property, int, error)

	// Object returns the object with the given id or ErrNoObject.
	Object(id string) (Object, error)
}

// Transformable is something with a transform: an object or a
// bone.
type Transformable interface {
	// Matrix is the evaluated matrix.  For an object, that's its
	// world matrix.  For a bone, it's the pose matrix, which is
	// relative to the armature object.
	Matrix() xform.Mat4

	// Local is the matrix made from the raw location, rotation
	// and scale channels.
	Local() xform.Mat4

	// Location is the raw location channel.
	Location() xform.Vec3

	// Euler returns the raw rotation channel and its order when
	// the rotation is stored as Euler angles.  Otherwise ok is
	// false.
	Euler() (e xform.Euler, order xform.Order, ok bool)
}

// Object is a scene object.
type Object interface {
	Transformable

	// Bone returns the named bone or nil.
	Bone(name string) Transformable
}

// Space is a coordinate space for SpaceConverter.
type Space string

const (
	// SpaceWorld is the scene's space.
	SpaceWorld Space = "world"

	// SpacePose is the armature's space (for bones).
	SpacePose Space = "pose"

	// SpaceLocal is relative to the parent (and for bones, the
	// rest pose).
	SpaceLocal Space = "local"
)

// SpaceConverter converts matrices between spaces the way
// constraints do.
type SpaceConverter interface {
	// ConvertSpace converts m from one space to another.  bone
	// is empty for the object itself.
	ConvertSpace(ob Object, bone string, m xform.Mat4, from, to Space) xform.Mat4
}
