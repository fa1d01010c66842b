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
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"unicode"
)

// DriverType is a driver's combination policy.
type DriverType string

const (
	DriverSum        DriverType = "sum"
	DriverAverage    DriverType = "average"
	DriverMin        DriverType = "min"
	DriverMax        DriverType = "max"
	DriverExpression DriverType = "expression"
)

// VarType is the kind of a driver variable.
type VarType string

const (
	// VarSingleProp reads one property.
	VarSingleProp VarType = "single_prop"

	// VarRotationDiff is the angle between the orientations of
	// two objects or bones.
	VarRotationDiff VarType = "rotation_diff"

	// VarLocationDiff is the distance between two objects or
	// bones.
	VarLocationDiff VarType = "loc_diff"

	// VarTransformChannel reads one channel of an object's or
	// bone's transform.
	VarTransformChannel VarType = "transform_chan"
)

// MaxTargets is the number of target slots a variable has.
const MaxTargets = 8

// TargetsUsed returns how many targets a variable kind reads.
func TargetsUsed(t VarType) int {
	switch t {
	case VarRotationDiff, VarLocationDiff:
		return 2
	case VarSingleProp, VarTransformChannel:
		return 1
	}
	return 0
}

// TargetSpace selects the space in which a target's transform is
// read.
type TargetSpace string

const (
	// SpaceWorldTarget is the final world-space transform.  This
	// is the default.
	SpaceWorldTarget TargetSpace = "world"

	// SpaceTransform reads the raw transform channels.
	SpaceTransform TargetSpace = "transform"

	// SpaceLocalTarget is the final transform in local space
	// (including constraints).
	SpaceLocalTarget TargetSpace = "local"
)

// TransformChannel selects what a transform-channel variable reads.
type TransformChannel string

const (
	LocX     TransformChannel = "loc_x"
	LocY     TransformChannel = "loc_y"
	LocZ     TransformChannel = "loc_z"
	RotW     TransformChannel = "rot_w"
	RotX     TransformChannel = "rot_x"
	RotY     TransformChannel = "rot_y"
	RotZ     TransformChannel = "rot_z"
	ScaleX   TransformChannel = "scale_x"
	ScaleY   TransformChannel = "scale_y"
	ScaleZ   TransformChannel = "scale_z"
	ScaleAvg TransformChannel = "scale_avg"
)

// RotationMode says how a rotation channel is decoded.
type RotationMode string

const (
	// RotAuto uses Euler angles in the target's own order.
	RotAuto RotationMode = "auto"

	RotXYZ RotationMode = "xyz"
	RotXZY RotationMode = "xzy"
	RotYXZ RotationMode = "yxz"
	RotYZX RotationMode = "yzx"
	RotZXY RotationMode = "zxy"
	RotZYX RotationMode = "zyx"

	// RotQuaternion reads quaternion components.
	RotQuaternion RotationMode = "quaternion"

	// RotSwingTwistX (and friends) reads the twist about the axis
	// for that axis's channel and the swing's exponential map for
	// the others.
	RotSwingTwistX RotationMode = "swing_twist_x"
	RotSwingTwistY RotationMode = "swing_twist_y"
	RotSwingTwistZ RotationMode = "swing_twist_z"
)

// NameFlags records problems with a variable name.
type NameFlags uint8

const (
	NameEmpty NameFlags = 1 << iota
	NameStartsWithNumber
	NameStartsWithSpecial
	NameHasSpace
	NameHasDot
	NameHasSpecial
	NameReserved
)

var nameProblems = []struct {
	flag NameFlags
	msg  string
}{
	{NameEmpty, "cannot be blank"},
	{NameStartsWithNumber, "cannot start with a number"},
	{NameStartsWithSpecial, "cannot start with a special character or underscore"},
	{NameHasSpace, "cannot contain spaces"},
	{NameHasDot, "cannot contain dots"},
	{NameHasSpecial, "cannot contain special characters"},
	{NameReserved, "cannot be a reserved word"},
}

// Problems describes the flags.
func (f NameFlags) Problems() []string {
	var acc []string
	for _, p := range nameProblems {
		if f&p.flag != 0 {
			acc = append(acc, p.msg)
		}
	}
	return acc
}

// nameSpecials are rejected anywhere in a variable name.
const nameSpecials = "~`!@#$%^&*+=-/\\?:;<>{}[]|\t\n\r"

// ReservedNames can't be variable names.  "time" is the first
// expression parameter.
var ReservedNames = map[string]bool{
	"time": true,

	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "let": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "undefined": true,
	"NaN": true, "Infinity": true,
}

// ValidateVariableName checks a name.  Zero means the name is fine.
func ValidateVariableName(name string) NameFlags {
	var f NameFlags

	if name == "" {
		return NameEmpty
	}

	first := []rune(name)[0]
	switch {
	case unicode.IsDigit(first):
		f |= NameStartsWithNumber
	case first == '_':
		f |= NameStartsWithSpecial
	case strings.ContainsRune(nameSpecials+" .", first):
		f |= NameStartsWithSpecial
	}

	for i, r := range name {
		if i == 0 {
			continue
		}
		switch {
		case r == ' ':
			f |= NameHasSpace
		case r == '.':
			f |= NameHasDot
		case strings.ContainsRune(nameSpecials, r):
			f |= NameHasSpecial
		}
	}

	if ReservedNames[name] {
		f |= NameReserved
	}

	return f
}

// Target is one thing a driver variable reads.
type Target struct {
	// ID names the object.
	ID string `json:"id,omitempty" yaml:",omitempty"`

	// Bone optionally names a bone of the object.
	Bone string `json:"bone,omitempty" yaml:",omitempty"`

	// Path is the property path for single-property variables.
	Path string `json:"path,omitempty" yaml:",omitempty"`

	Channel      TransformChannel `json:"channel,omitempty" yaml:",omitempty"`
	RotationMode RotationMode     `json:"rotationMode,omitempty" yaml:"rotationMode,omitempty"`
	Space        TargetSpace      `json:"space,omitempty" yaml:",omitempty"`

	// QuatAngles converts quaternion components to pseudo-angles
	// (for RotQuaternion).
	QuatAngles bool `json:"quatAngles,omitempty" yaml:"quatAngles,omitempty"`

	invalid atomic.Bool
	curval  atomic.Uint64
}

// Invalid reports whether the last read of this target failed.
func (t *Target) Invalid() bool {
	return t.invalid.Load()
}

// Last returns the value of the last successful read.
func (t *Target) Last() float64 {
	return math.Float64frombits(t.curval.Load())
}

func (t *Target) copy() *Target {
	return &Target{
		ID:           t.ID,
		Bone:         t.Bone,
		Path:         t.Path,
		Channel:      t.Channel,
		RotationMode: t.RotationMode,
		Space:        t.Space,
		QuatAngles:   t.QuatAngles,
	}
}

func (t *Target) space() TargetSpace {
	if t.Space == "" {
		return SpaceWorldTarget
	}
	return t.Space
}

// Variable is a named input to a Driver.
type Variable struct {
	Name    string    `json:"name" yaml:"name"`
	Type    VarType   `json:"type" yaml:"type"`
	Targets []*Target `json:"targets,omitempty" yaml:",omitempty"`

	// Flags is set by ValidateName when the variable is edited or
	// loaded.  Evaluation never writes it.
	Flags NameFlags `json:"-" yaml:"-"`

	curval atomic.Uint64
}

// Last returns the most recently computed value.
func (v *Variable) Last() float64 {
	return math.Float64frombits(v.curval.Load())
}

func (v *Variable) setLast(x float64) {
	v.curval.Store(math.Float64bits(x))
}

// ValidateName checks the variable's name and updates its Flags.
// Returns true if the name is fine.
func (v *Variable) ValidateName() bool {
	v.Flags = ValidateVariableName(v.Name)
	return v.Flags == 0
}

// SetType changes the kind of the variable, making sure it has
// enough targets.
func (v *Variable) SetType(t VarType) {
	v.Type = t
	for len(v.Targets) < TargetsUsed(t) {
		v.Targets = append(v.Targets, &Target{})
	}
}

// used returns the targets this variable's kind reads.
func (v *Variable) used() []*Target {
	n := TargetsUsed(v.Type)
	if n > MaxTargets {
		n = MaxTargets
	}
	if len(v.Targets) < n {
		n = len(v.Targets)
	}
	return v.Targets[:n]
}

func (v *Variable) copy() *Variable {
	w := &Variable{
		Name:  v.Name,
		Type:  v.Type,
		Flags: v.Flags,
	}
	for _, t := range v.Targets {
		w.Targets = append(w.Targets, t.copy())
	}
	return w
}

// Driver computes a curve's input from scene properties.
type Driver struct {
	Type DriverType `json:"type" yaml:"type"`

	// Expression is used by DriverExpression drivers.
	Expression string `json:"expr,omitempty" yaml:"expr,omitempty"`

	// Interpreter names the scripting fallback for expressions
	// the fast compiler can't handle.  Empty means
	// DefaultInterpreter.
	Interpreter string `json:"interpreter,omitempty" yaml:",omitempty"`

	Variables []*Variable `json:"vars,omitempty" yaml:"vars,omitempty"`

	// compiled is the fast expression handle.  Nil means not yet
	// compiled.
	compiled atomic.Pointer[compiledHandle]

	invalid atomic.Bool
	curval  atomic.Uint64
}

// Invalid reports whether the driver has been disabled by an error.
// An invalid driver evaluates to zero.
func (d *Driver) Invalid() bool {
	return d.invalid.Load()
}

// ClearInvalid re-enables the driver.
func (d *Driver) ClearInvalid() {
	d.invalid.Store(false)
}

func (d *Driver) markInvalid() {
	d.invalid.Store(true)
}

// Last returns the most recently computed value.
func (d *Driver) Last() float64 {
	return math.Float64frombits(d.curval.Load())
}

func (d *Driver) setLast(x float64) {
	d.curval.Store(math.Float64bits(x))
}

// Copy makes a deep copy without the compiled expression.
func (d *Driver) Copy() *Driver {
	e := &Driver{
		Type:        d.Type,
		Expression:  d.Expression,
		Interpreter: d.Interpreter,
	}
	for _, v := range d.Variables {
		e.Variables = append(e.Variables, v.copy())
	}
	e.invalid.Store(d.invalid.Load())
	return e
}

// SetExpression changes the expression and invalidates the compiled
// expression.
func (d *Driver) SetExpression(expr string) {
	d.Expression = expr
	d.InvalidateExpression(true, false)
}

// UniqueVariableName returns base if no variable other than
// skip has that name.  Otherwise a numeric suffix is added.
func (d *Driver) UniqueVariableName(base string, skip *Variable) string {
	taken := func(name string) bool {
		for _, v := range d.Variables {
			if v != skip && v.Name == name {
				return true
			}
		}
		return false
	}
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%03d", base, i)
		if !taken(name) {
			return name
		}
	}
}

// AddVariable appends a new variable of the given kind with a
// unique name ("var", "var_001", ...).
func (d *Driver) AddVariable(t VarType) *Variable {
	v := &Variable{}
	d.Variables = append(d.Variables, v)
	v.Name = d.UniqueVariableName("var", v)
	v.SetType(t)
	d.InvalidateExpression(false, true)
	return v
}

// RemoveVariable removes the variable at index i.
func (d *Driver) RemoveVariable(i int) {
	if i < 0 || len(d.Variables) <= i {
		return
	}
	d.Variables = append(d.Variables[:i], d.Variables[i+1:]...)
	d.InvalidateExpression(false, true)
}

// RenameVariable changes the name of the variable at index i.  The
// new name is made unique and validated.  Returns the name used.
func (d *Driver) RenameVariable(i int, name string) string {
	v := d.Variables[i]
	v.Name = d.UniqueVariableName(name, v)
	v.ValidateName()
	d.InvalidateExpression(false, true)
	return v.Name
}

// paramNames returns the names of the expression parameters:
// "time" and then the variable names.
func (d *Driver) paramNames() []string {
	acc := make([]string, 0, len(d.Variables)+1)
	acc = append(acc, "time")
	for _, v := range d.Variables {
		acc = append(acc, v.Name)
	}
	return acc
}
