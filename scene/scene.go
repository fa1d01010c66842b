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

// Package scene is an in-memory scene that drivers can read.
//
// A Scene implements core.PropertyAccessor and core.SpaceConverter.
// Objects have transforms, optional parents, optional bones and a
// map of custom properties.
package scene

import (
	"fmt"
	"sync"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/xform"
)

// QuaternionMode is the RotationMode for quaternion rotations.
const QuaternionMode = "quaternion"

// maxDepth limits parent chains.
const maxDepth = 64

// Transform is a location, a rotation and a scale.
type Transform struct {
	Location xform.Vec3 `json:"location" yaml:"location"`

	// Rotation is in radians.  It's used unless RotationMode is
	// QuaternionMode.
	Rotation xform.Euler `json:"rotation" yaml:"rotation"`

	// RotationMode is an Euler order like "XYZ" (the default) or
	// "quaternion".
	RotationMode string `json:"rotationMode,omitempty" yaml:"rotationMode,omitempty"`

	// Quaternion is (w, x, y, z).
	Quaternion xform.Quat `json:"quaternion" yaml:"quaternion"`

	// Scale of zero is treated as one.
	Scale xform.Vec3 `json:"scale" yaml:"scale"`
}

// NewTransform makes an identity transform.
func NewTransform() Transform {
	return Transform{
		Quaternion: xform.Quat{1, 0, 0, 0},
		Scale:      xform.Vec3{1, 1, 1},
	}
}

func (t *Transform) order() (xform.Order, bool) {
	if t.RotationMode == QuaternionMode {
		return 0, false
	}
	if t.RotationMode == "" {
		return xform.XYZ, true
	}
	o, err := xform.ParseOrder(t.RotationMode)
	if err != nil {
		return xform.XYZ, true
	}
	return o, true
}

func (t *Transform) scale() xform.Vec3 {
	s := t.Scale
	if s == (xform.Vec3{}) {
		return xform.Vec3{1, 1, 1}
	}
	return s
}

func (t *Transform) rotation() xform.Mat3 {
	if o, ok := t.order(); ok {
		return t.Rotation.Mat3(o)
	}
	q := t.Quaternion
	if q == (xform.Quat{}) {
		return xform.Identity3()
	}
	return q.Normalize().Mat3()
}

// Local is location * rotation * scale.
func (t *Transform) Local() xform.Mat4 {
	return xform.Compose(t.Location, t.rotation(), t.scale())
}

// Euler returns the rotation channel when the rotation is Euler
// angles.
func (t *Transform) Euler() (xform.Euler, xform.Order, bool) {
	o, ok := t.order()
	if !ok {
		return xform.Euler{}, 0, false
	}
	return t.Rotation, o, true
}

// Bone is a bone in an armature object.
type Bone struct {
	Name string `json:"name" yaml:"name"`

	// Parent is the name of the parent bone, if any.
	Parent string `json:"parent,omitempty" yaml:",omitempty"`

	// Head is the rest position of the bone relative to its
	// parent (or to the armature).
	Head xform.Vec3 `json:"head" yaml:"head"`

	// Pose is the posed transform relative to the rest position.
	Pose Transform `json:"pose" yaml:"pose"`

	ob *Object
}

func (b *Bone) rest() xform.Mat4 {
	return xform.Compose(b.Head, xform.Identity3(), xform.Vec3{1, 1, 1})
}

// parentMatrix is the pose matrix of the bone's parent, or identity.
func (b *Bone) parentMatrix(depth int) xform.Mat4 {
	if b.Parent == "" || b.ob == nil || maxDepth < depth {
		return xform.Identity4()
	}
	p := b.ob.bone(b.Parent)
	if p == nil {
		return xform.Identity4()
	}
	return p.poseMatrix(depth + 1)
}

func (b *Bone) poseMatrix(depth int) xform.Mat4 {
	return b.parentMatrix(depth).Mul(b.rest()).Mul(b.Pose.Local())
}

// Matrix is the pose matrix, which is relative to the armature
// object.
func (b *Bone) Matrix() xform.Mat4 {
	return b.poseMatrix(0)
}

func (b *Bone) Local() xform.Mat4 {
	return b.Pose.Local()
}

func (b *Bone) Location() xform.Vec3 {
	return b.Pose.Location
}

func (b *Bone) Euler() (xform.Euler, xform.Order, bool) {
	return b.Pose.Euler()
}

// Object is a scene object.  It implements core.Object.
type Object struct {
	ID string `json:"id" yaml:"id"`

	// Parent is the ID of the parent object, if any.
	Parent string `json:"parent,omitempty" yaml:",omitempty"`

	Transform `yaml:",inline"`

	// Props are custom properties.  Values can be numbers,
	// booleans, numeric strings, Enums, arrays of those, or maps
	// (which are reached with dotted paths).
	Props map[string]interface{} `json:"props,omitempty" yaml:",omitempty"`

	Bones []*Bone `json:"bones,omitempty" yaml:",omitempty"`

	scene *Scene
}

// NewObject makes an object with an identity transform.
func NewObject(id string) *Object {
	return &Object{
		ID:        id,
		Transform: NewTransform(),
		Props:     make(map[string]interface{}),
	}
}

// AddBone adds a bone with an identity pose.
func (o *Object) AddBone(name, parent string, head xform.Vec3) *Bone {
	b := &Bone{
		Name:   name,
		Parent: parent,
		Head:   head,
		Pose:   NewTransform(),
		ob:     o,
	}
	o.Bones = append(o.Bones, b)
	return b
}

func (o *Object) bone(name string) *Bone {
	for _, b := range o.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Bone returns the named bone or nil.
func (o *Object) Bone(name string) core.Transformable {
	if b := o.bone(name); b != nil {
		return b
	}
	return nil
}

func (o *Object) parentMatrix(depth int) xform.Mat4 {
	if o.Parent == "" || o.scene == nil || maxDepth < depth {
		return xform.Identity4()
	}
	p := o.scene.object(o.Parent)
	if p == nil {
		return xform.Identity4()
	}
	return p.worldMatrix(depth + 1)
}

func (o *Object) worldMatrix(depth int) xform.Mat4 {
	return o.parentMatrix(depth).Mul(o.Transform.Local())
}

// Matrix is the world matrix.
func (o *Object) Matrix() xform.Mat4 {
	return o.worldMatrix(0)
}

// Location is the raw location channel.
func (o *Object) Location() xform.Vec3 {
	return o.Transform.Location
}

// Scene is a set of objects.
//
// Reads (Resolve, Object, ConvertSpace) can happen concurrently
// with each other.  Use Update to change the scene while drivers
// are evaluated.
type Scene struct {
	sync.RWMutex

	objects map[string]*Object
}

var (
	_ core.PropertyAccessor = (*Scene)(nil)
	_ core.SpaceConverter   = (*Scene)(nil)
	_ core.Object           = (*Object)(nil)
)

// NewScene makes an empty scene.
func NewScene() *Scene {
	return &Scene{
		objects: make(map[string]*Object),
	}
}

// Add adds (or replaces) an object.
func (s *Scene) Add(o *Object) error {
	if o.ID == "" {
		return fmt.Errorf("object has no id")
	}
	s.Lock()
	defer s.Unlock()
	o.scene = s
	for _, b := range o.Bones {
		b.ob = o
	}
	if o.Props == nil {
		o.Props = make(map[string]interface{})
	}
	s.objects[o.ID] = o
	return nil
}

// Remove deletes an object.
func (s *Scene) Remove(id string) {
	s.Lock()
	delete(s.objects, id)
	s.Unlock()
}

// Update calls f while holding the scene's write lock.
func (s *Scene) Update(f func(s *Scene) error) error {
	s.Lock()
	defer s.Unlock()
	return f(s)
}

// Get returns an object for editing inside Update.
func (s *Scene) Get(id string) *Object {
	return s.object(id)
}

// IDs returns the IDs of the objects.
func (s *Scene) IDs() []string {
	s.RLock()
	defer s.RUnlock()
	acc := make([]string, 0, len(s.objects))
	for id := range s.objects {
		acc = append(acc, id)
	}
	return acc
}

func (s *Scene) object(id string) *Object {
	return s.objects[id]
}

// Object implements core.PropertyAccessor.
func (s *Scene) Object(id string) (core.Object, error) {
	s.RLock()
	defer s.RUnlock()
	o := s.object(id)
	if o == nil {
		return nil, core.ErrNoObject
	}
	return o, nil
}
