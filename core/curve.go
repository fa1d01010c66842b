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
	"sync/atomic"
)

// Interpolation says how a segment gets from its first key to the
// next one.  The interpolation of a segment is the interpolation of
// its first (left) key.
type Interpolation string

const (
	Constant Interpolation = "constant"
	Linear   Interpolation = "linear"
	Bezier   Interpolation = "bezier"

	// The easing families.  Each has in, out and in-out forms.  See
	// Easing.
	Back    Interpolation = "back"
	Bounce  Interpolation = "bounce"
	Circ    Interpolation = "circ"
	Cubic   Interpolation = "cubic"
	Elastic Interpolation = "elastic"
	Expo    Interpolation = "expo"
	Quad    Interpolation = "quad"
	Quart   Interpolation = "quart"
	Quint   Interpolation = "quint"
	Sine    Interpolation = "sine"
)

// Easing selects the form of an easing Interpolation.
type Easing string

const (
	// EaseAuto picks the family's natural form: out for back,
	// bounce and elastic, in for everything else.
	EaseAuto  Easing = ""
	EaseIn    Easing = "in"
	EaseOut   Easing = "out"
	EaseInOut Easing = "inout"
)

// HandleType controls how the TangentSolver treats a handle.
type HandleType string

const (
	// HandleFree handles are left as authored.
	HandleFree HandleType = "free"

	// HandleAligned handles stay collinear with the opposite
	// handle.
	HandleAligned HandleType = "aligned"

	// HandleVector handles point at the neighboring key.
	HandleVector HandleType = "vector"

	// HandleAuto handles are computed from the neighbors.
	HandleAuto HandleType = "auto"

	// HandleAutoClamped handles are auto handles that never
	// overshoot the neighboring values.  This type is the
	// default.
	HandleAutoClamped HandleType = "auto_clamped"
)

// IsAuto reports whether the handle is computed from neighbors.
func (h HandleType) IsAuto() bool {
	switch h {
	case HandleAuto, HandleAutoClamped, "":
		return true
	}
	return false
}

// Extend is a curve's extrapolation policy outside the keyed range.
//
// Cyclic extrapolation is the job of a cycles modifier.
type Extend string

const (
	ExtendConstant Extend = "constant"
	ExtendLinear   Extend = "linear"
)

// Smoothing selects the global handle smoothing pass.
type Smoothing string

const (
	SmoothNone Smoothing = ""

	// SmoothContinuousAcceleration adjusts auto handles so that
	// the second derivative is continuous across keys.
	SmoothContinuousAcceleration Smoothing = "cont_accel"
)

// Vec2 is a (time, value) pair.
type Vec2 [2]float64

// DefaultBack is the overshoot used by back easing when a key is
// created by NewControlPoint.
const DefaultBack = 1.70158

// ControlPoint is a keyframe: a (time, value) anchor and its two
// tangent handles.
type ControlPoint struct {
	Time  float64 `json:"time" yaml:"time"`
	Value float64 `json:"value" yaml:"value"`

	// Left is the handle that shapes the segment ending at this
	// key.
	Left Vec2 `json:"left" yaml:"left"`

	// Right is the handle that shapes the segment starting at
	// this key.
	Right Vec2 `json:"right" yaml:"right"`

	// Interp is the interpolation of the segment that starts at
	// this key.  Empty means Bezier.
	Interp Interpolation `json:"interp,omitempty" yaml:",omitempty"`

	Easing Easing `json:"easing,omitempty" yaml:",omitempty"`

	// HandleLeft and HandleRight are the handle types.  Empty
	// means HandleAutoClamped.
	HandleLeft  HandleType `json:"handleLeft,omitempty" yaml:"handleLeft,omitempty"`
	HandleRight HandleType `json:"handleRight,omitempty" yaml:"handleRight,omitempty"`

	// Back is the overshoot for back easing.
	Back float64 `json:"back,omitempty" yaml:",omitempty"`

	// Amplitude and Period shape elastic easing.  Zero means
	// automatic.
	Amplitude float64 `json:"amplitude,omitempty" yaml:",omitempty"`
	Period    float64 `json:"period,omitempty" yaml:",omitempty"`

	Selected bool `json:"selected,omitempty" yaml:",omitempty"`

	// AutoLocked is set by the TangentSolver on keys whose
	// handles must not be moved by the smoothing pass.
	AutoLocked bool `json:"-" yaml:"-"`
}

// NewControlPoint makes a key at (t, v) with flat handles one third
// of a frame away, Bezier interpolation and auto-clamped handles.
func NewControlPoint(t, v float64) ControlPoint {
	return ControlPoint{
		Time:        t,
		Value:       v,
		Left:        Vec2{t - 1.0/3, v},
		Right:       Vec2{t + 1.0/3, v},
		Interp:      Bezier,
		HandleLeft:  HandleAutoClamped,
		HandleRight: HandleAutoClamped,
		Back:        DefaultBack,
	}
}

func (cp *ControlPoint) interp() Interpolation {
	if cp.Interp == "" {
		return Bezier
	}
	return cp.Interp
}

// IsAuto reports whether both handles are auto handles.
func (cp *ControlPoint) IsAuto() bool {
	return cp.HandleLeft.IsAuto() && cp.HandleRight.IsAuto()
}

// point returns the key as a Vec2.
func (cp *ControlPoint) point() Vec2 {
	return Vec2{cp.Time, cp.Value}
}

// Sample is one point of baked data.
type Sample struct {
	Time  float64 `json:"time" yaml:"time"`
	Value float64 `json:"value" yaml:"value"`
}

// Curve is an animation curve.  It holds either keys or samples
// (never both, possibly neither), an optional Driver and an optional
// ModifierStack.
//
// A Curve can be evaluated concurrently.  Editing operations are not
// synchronized.
type Curve struct {
	// Path names the property this curve animates.  This package
	// does not interpret it.
	Path string `json:"path,omitempty" yaml:",omitempty"`

	// Index is the array index of the animated property.
	Index int `json:"index,omitempty" yaml:",omitempty"`

	// Doc is optional documentation in Markdown.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	Keys    []ControlPoint `json:"keys,omitempty" yaml:",omitempty"`
	Samples []Sample       `json:"samples,omitempty" yaml:",omitempty"`

	Extend Extend `json:"extend,omitempty" yaml:",omitempty"`

	// DiscreteValues forces constant interpolation and
	// extrapolation.
	DiscreteValues bool `json:"discrete,omitempty" yaml:"discrete,omitempty"`

	// IntegerValues rounds results to the nearest integer.
	IntegerValues bool `json:"integer,omitempty" yaml:"integer,omitempty"`

	// ModifiersOff bypasses the modifier stack without removing
	// it.
	ModifiersOff bool `json:"modifiersOff,omitempty" yaml:"modifiersOff,omitempty"`

	// AutoSmoothing selects the smoothing pass of the
	// TangentSolver.
	AutoSmoothing Smoothing `json:"autoSmoothing,omitempty" yaml:"autoSmoothing,omitempty"`

	Driver *Driver `json:"driver,omitempty" yaml:",omitempty"`

	// Modifiers is the (optional) modifier stack.
	Modifiers ModifierStack `json:"-" yaml:"-"`

	// active is the index of the active key plus one.
	active int

	// curval is the last evaluated value (as float64 bits).  For
	// display only.
	curval atomic.Uint64
}

// NewCurve makes a Curve for the given property path with the given
// keys, which are sorted.
func NewCurve(path string, keys ...ControlPoint) *Curve {
	c := &Curve{
		Path: path,
		Keys: keys,
	}
	c.Sort()
	return c
}

// Last returns the most recently evaluated value.
//
// Concurrent evaluations race to set this value, so it is only good
// for display.
func (c *Curve) Last() float64 {
	return math.Float64frombits(c.curval.Load())
}

func (c *Curve) setLast(v float64) {
	c.curval.Store(math.Float64bits(v))
}

func (c *Curve) extend() Extend {
	if c.Extend == "" {
		return ExtendConstant
	}
	return c.Extend
}

// Len returns the number of keys or samples.
func (c *Curve) Len() int {
	if len(c.Keys) > 0 {
		return len(c.Keys)
	}
	return len(c.Samples)
}

// HasModifiers reports whether a non-empty modifier stack is
// attached.
func (c *Curve) HasModifiers() bool {
	return c.Modifiers != nil && c.Modifiers.Len() > 0
}

// modifiersActive reports whether the modifier stack should run.
func (c *Curve) modifiersActive() bool {
	return !c.ModifiersOff && c.HasModifiers()
}

// Copy makes a deep copy.  The copy shares the ModifierStack, has
// no cached value, and has a Driver copy without a compiled
// expression.
func (c *Curve) Copy() *Curve {
	d := &Curve{
		Path:           c.Path,
		Index:          c.Index,
		Doc:            c.Doc,
		Extend:         c.Extend,
		DiscreteValues: c.DiscreteValues,
		IntegerValues:  c.IntegerValues,
		ModifiersOff:   c.ModifiersOff,
		AutoSmoothing:  c.AutoSmoothing,
		Modifiers:      c.Modifiers,
		active:         c.active,
	}
	if c.Keys != nil {
		d.Keys = append([]ControlPoint(nil), c.Keys...)
	}
	if c.Samples != nil {
		d.Samples = append([]Sample(nil), c.Samples...)
	}
	if c.Driver != nil {
		d.Driver = c.Driver.Copy()
	}
	return d
}
