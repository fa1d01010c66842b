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

package scene

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/Comcast/fcurve/core"

	"github.com/spf13/cast"
)

// Enum is an enumerated property.  Its numeric value is the index
// of Value in Items.
type Enum struct {
	Items []string `json:"items" yaml:"items"`
	Value string   `json:"value" yaml:"value"`
}

func (e Enum) index() (int, error) {
	for i, s := range e.Items {
		if s == e.Value {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: enum value %q isn't one of %v", core.ErrPropertyType, e.Value, e.Items)
}

// property implements core.Property.
type property struct {
	kind  core.PropertyKind
	vals  []interface{}
	array bool
}

func (p *property) Kind() core.PropertyKind {
	return p.kind
}

func (p *property) Len() int {
	if !p.array {
		return 0
	}
	return len(p.vals)
}

func (p *property) Float(i int) (float64, error) {
	if !p.array {
		i = 0
	}
	if i < 0 || len(p.vals) <= i {
		return 0, &core.IndexOutOfRange{Index: i, Len: len(p.vals)}
	}
	return toFloat(p.vals[i])
}

func toFloat(v interface{}) (float64, error) {
	if e, is := v.(Enum); is {
		i, err := e.index()
		return float64(i), err
	}
	x, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrPropertyType, err)
	}
	return x, nil
}

func kindOf(v interface{}) (core.PropertyKind, error) {
	switch vv := v.(type) {
	case bool:
		return core.PropBool, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return core.PropInt, nil
	case float32, float64:
		return core.PropFloat, nil
	case Enum:
		return core.PropEnum, nil
	case string:
		if _, err := cast.ToFloat64E(vv); err == nil {
			return core.PropFloat, nil
		}
	}
	return 0, fmt.Errorf("%w: %T", core.ErrPropertyType, v)
}

// makeProperty wraps a value, which can be a slice.
func makeProperty(v interface{}) (*property, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		k, err := kindOf(v)
		if err != nil {
			return nil, err
		}
		return &property{kind: k, vals: []interface{}{v}}, nil
	}

	n := rv.Len()
	p := &property{
		kind:  core.PropFloat,
		vals:  make([]interface{}, n),
		array: true,
	}
	for i := 0; i < n; i++ {
		x := rv.Index(i).Interface()
		k, err := kindOf(x)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			p.kind = k
		}
		p.vals[i] = x
	}
	return p, nil
}

var (
	indexed = regexp.MustCompile(`^(.*)\[(-?[0-9]+)\]$`)
	boneRef = regexp.MustCompile(`^pose\.bones\["([^"]+)"\]\.(.+)$`)
	quoted  = regexp.MustCompile(`^\["([^"]+)"\]$`)
)

// splitIndex separates a trailing "[n]" from a path.
func splitIndex(path string) (string, int) {
	m := indexed.FindStringSubmatch(path)
	if m == nil {
		return path, -1
	}
	i, err := strconv.Atoi(m[2])
	if err != nil {
		return path, -1
	}
	return m[1], i
}

// channel returns a copy of a transform channel.
func channel(t *Transform, name string) ([]float64, bool) {
	var xs []float64
	switch name {
	case "location":
		xs = t.Location[:]
	case "rotation", "rotation_euler":
		xs = t.Rotation[:]
	case "quaternion", "rotation_quaternion":
		xs = t.Quaternion[:]
	case "scale":
		s := t.scale()
		return s[:], true
	default:
		return nil, false
	}
	return append([]float64(nil), xs...), true
}

// lookup follows a dotted path through nested maps.
func lookup(props map[string]interface{}, path string) (interface{}, bool) {
	if m := quoted.FindStringSubmatch(path); m != nil {
		path = m[1]
	}
	if v, have := props[path]; have {
		return v, true
	}
	var (
		parts = strings.Split(path, ".")
		v     interface{}
		have  bool
	)
	for i, part := range parts {
		if v, have = props[part]; !have {
			return nil, false
		}
		if i == len(parts)-1 {
			break
		}
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, false
		}
		props = m
	}
	return v, true
}

// Resolve implements core.PropertyAccessor.
//
// Paths are transform channels ("location", "rotation_euler",
// "rotation_quaternion", "scale"), bone channels like
// `pose.bones["arm"].location`, or custom properties like "gain",
// `["gain"]` or "settings.gain".  A path can end with an index like
// "[1]".
func (s *Scene) Resolve(id, path string) (core.Property, int, error) {
	s.RLock()
	defer s.RUnlock()

	o := s.object(id)
	if o == nil {
		return nil, -1, core.ErrNoObject
	}

	path, index := splitIndex(path)

	if m := boneRef.FindStringSubmatch(path); m != nil {
		b := o.bone(m[1])
		if b == nil {
			return nil, -1, fmt.Errorf("%w: no bone %q", core.ErrPropertyNotFound, m[1])
		}
		xs, ok := channel(&b.Pose, m[2])
		if !ok {
			return nil, -1, core.ErrPropertyNotFound
		}
		p, err := makeProperty(xs)
		return p, index, err
	}

	if xs, ok := channel(&o.Transform, path); ok {
		p, err := makeProperty(xs)
		return p, index, err
	}

	v, have := lookup(o.Props, path)
	if !have {
		return nil, -1, core.ErrPropertyNotFound
	}
	p, err := makeProperty(v)
	if err != nil {
		return nil, -1, err
	}
	return p, index, nil
}

// Set writes x to the property at path, which Resolve would read.  A
// missing custom property is created.
func (s *Scene) Set(id, path string, x float64) error {
	s.Lock()
	defer s.Unlock()

	o := s.object(id)
	if o == nil {
		return core.ErrNoObject
	}

	path, index := splitIndex(path)

	t := &o.Transform
	if m := boneRef.FindStringSubmatch(path); m != nil {
		b := o.bone(m[1])
		if b == nil {
			return fmt.Errorf("%w: no bone %q", core.ErrPropertyNotFound, m[1])
		}
		t, path = &b.Pose, m[2]
	}

	set := func(xs []float64) error {
		if index < 0 || len(xs) <= index {
			return &core.IndexOutOfRange{Path: path, Index: index, Len: len(xs)}
		}
		xs[index] = x
		return nil
	}

	switch path {
	case "location":
		return set(t.Location[:])
	case "rotation", "rotation_euler":
		return set(t.Rotation[:])
	case "quaternion", "rotation_quaternion":
		return set(t.Quaternion[:])
	case "scale":
		t.Scale = t.scale()
		return set(t.Scale[:])
	}

	if m := quoted.FindStringSubmatch(path); m != nil {
		path = m[1]
	}
	if index < 0 {
		o.Props[path] = x
		return nil
	}
	v, have := o.Props[path]
	if !have {
		return core.ErrPropertyNotFound
	}
	if fs, is := v.([]float64); is {
		return set(fs)
	}
	xs, err := cast.ToSliceE(v)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPropertyType, err)
	}
	if len(xs) <= index {
		return &core.IndexOutOfRange{Path: path, Index: index, Len: len(xs)}
	}
	xs[index] = x
	o.Props[path] = xs
	return nil
}
