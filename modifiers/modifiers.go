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

// Package modifiers has a modifier stack for core.Curve.
//
// A modifier changes the time at which a curve is evaluated, the
// value that comes out, or both.  A Stack runs the time passes from
// last to first and then the value passes from first to last.  Each
// pass is blended with the unmodified result by the modifier's
// influence.
package modifiers

import (
	"github.com/Comcast/fcurve/core"
)

// Kind names a type of modifier.
type Kind string

const (
	KindCycles      Kind = "cycles"
	KindGenerator   Kind = "generator"
	KindFnGenerator Kind = "fn_generator"
	KindEnvelope    Kind = "envelope"
	KindLimits      Kind = "limits"
	KindStepped     Kind = "stepped"
)

// Header has the settings every modifier has.
type Header struct {
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Muted modifiers are skipped.
	Muted bool `json:"muted,omitempty" yaml:",omitempty"`

	// Disabled modifiers are skipped too.  A Cycles modifier that
	// isn't first in its stack is treated as disabled.
	Disabled bool `json:"disabled,omitempty" yaml:",omitempty"`

	// Restrict limits the modifier to frames From through To.
	// BlendIn and BlendOut ramp the influence at the edges of
	// that range.
	Restrict bool    `json:"restrict,omitempty" yaml:",omitempty"`
	From     float64 `json:"from,omitempty" yaml:",omitempty"`
	To       float64 `json:"to,omitempty" yaml:",omitempty"`
	BlendIn  float64 `json:"blendIn,omitempty" yaml:"blendIn,omitempty"`
	BlendOut float64 `json:"blendOut,omitempty" yaml:"blendOut,omitempty"`

	// UseInfluence enables Influence.  Otherwise the influence
	// is one.
	UseInfluence bool    `json:"useInfluence,omitempty" yaml:"useInfluence,omitempty"`
	Influence    float64 `json:"influence,omitempty" yaml:",omitempty"`
}

// Head returns the header itself.  Embedding a Header gives a
// modifier this method.
func (h *Header) Head() *Header {
	return h
}

// Active reports whether the modifier isn't muted or disabled.
func (h *Header) Active() bool {
	return !h.Muted && !h.Disabled
}

// InRange reports whether the header's frame range includes t.
// Without Restrict, every t is in range.
func (h *Header) InRange(t float64) bool {
	return !h.Restrict || (h.From <= t && t <= h.To)
}

// influence computes the blend factor at t.
func (h *Header) influence(t float64) float64 {
	influence := 1.0
	if h.UseInfluence {
		influence = h.Influence
	}

	if !h.Restrict {
		return influence
	}

	if t < h.From || h.To < t {
		return 0
	}
	if h.BlendIn != 0 && t <= h.From+h.BlendIn {
		return influence * (t - h.From) / h.BlendIn
	}
	if h.BlendOut != 0 && h.To-h.BlendOut <= t {
		return influence * (h.To - t) / h.BlendOut
	}

	return influence
}

// Modifier is one entry in a Stack.
//
// A modifier also implements timeRemapper, valueRemapper or both.
type Modifier interface {
	Head() *Header
	Kind() Kind
}

// env is what a modifier sees during one evaluation.
type env struct {
	curve *core.Curve

	// storage is this modifier's slice of the stack's scratch
	// storage.
	storage []float64

	// first is true for the first modifier in the stack.
	first bool
}

type timeRemapper interface {
	remapTime(e *env, cvalue, t float64) float64
}

type valueRemapper interface {
	remapValue(e *env, v, t float64) float64
}

// storer is implemented by modifiers that need scratch storage
// between the time pass and the value pass.
type storer interface {
	storageSize() int
}

// generator is implemented by modifiers that can make a curve from
// nothing.
type generator interface {
	// additive reports whether the generated value is added to
	// the curve rather than replacing it.
	additive() bool
}

// interpf blends from origin toward target by fac.
func interpf(target, origin, fac float64) float64 {
	return fac*target + (1-fac)*origin
}
