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

package modifiers

import (
	"math"

	"github.com/Comcast/fcurve/util"
)

// PolyMode is the form of a Generator's polynomial.
type PolyMode string

const (
	// PolyExpanded is c[0] + c[1]*t + c[2]*t^2 + ...
	PolyExpanded PolyMode = "expanded"

	// PolyFactorised is (c[0]*t + c[1]) * (c[2]*t + c[3]) * ...
	PolyFactorised PolyMode = "factorised"
)

// Generator computes a polynomial of time.
type Generator struct {
	Header

	Mode PolyMode `json:"mode,omitempty" yaml:",omitempty"`

	// Order is the polynomial's order.  Order zero generates
	// nothing.
	Order int `json:"order" yaml:"order"`

	// Coefficients has Order+1 entries for PolyExpanded and
	// 2*Order for PolyFactorised.  See Verify.
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`

	// Additive adds the polynomial to the curve instead of
	// replacing it.
	Additive bool `json:"additive,omitempty" yaml:",omitempty"`
}

// NewGenerator makes the generator y = t.
func NewGenerator() *Generator {
	return &Generator{
		Mode:         PolyExpanded,
		Order:        1,
		Coefficients: []float64{0, 1},
	}
}

func (m *Generator) Kind() Kind {
	return KindGenerator
}

func (m *Generator) additive() bool {
	return m.Additive
}

// Verify resizes Coefficients to fit Order and Mode.  New
// coefficients are zero.
func (m *Generator) Verify() {
	if m.Order < 0 {
		m.Order = 0
	}
	want := m.Order + 1
	if m.Mode == PolyFactorised {
		want = 2 * m.Order
	}
	if len(m.Coefficients) == want {
		return
	}
	cs := make([]float64, want)
	copy(cs, m.Coefficients)
	m.Coefficients = cs
}

func (m *Generator) remapValue(e *env, v, t float64) float64 {
	if m.Order == 0 {
		return v
	}

	var x float64
	switch m.Mode {
	case PolyFactorised:
		x = 1
		for i := 0; i < m.Order && 2*i+1 < len(m.Coefficients); i++ {
			x *= m.Coefficients[2*i]*t + m.Coefficients[2*i+1]
		}
	default:
		pow := 1.0
		for _, c := range m.Coefficients {
			x += c * pow
			pow *= t
		}
	}

	if m.Additive {
		return v + x
	}
	return x
}

// Fn is the function an FnGenerator uses.
type Fn string

const (
	FnSin  Fn = "sin"
	FnCos  Fn = "cos"
	FnTan  Fn = "tan"
	FnSqrt Fn = "sqrt"
	FnLn   Fn = "ln"

	// FnSinc is the normalized sinc: sin(πx)/(πx).
	FnSinc Fn = "sinc"
)

// FnGenerator computes
//
//	Amplitude * Fn(PhaseMultiplier * t + PhaseOffset) + ValueOffset
type FnGenerator struct {
	Header

	Fn              Fn      `json:"fn" yaml:"fn"`
	Amplitude       float64 `json:"amplitude" yaml:"amplitude"`
	PhaseMultiplier float64 `json:"phaseMultiplier" yaml:"phaseMultiplier"`
	PhaseOffset     float64 `json:"phaseOffset,omitempty" yaml:"phaseOffset,omitempty"`
	ValueOffset     float64 `json:"valueOffset,omitempty" yaml:"valueOffset,omitempty"`
	Additive        bool    `json:"additive,omitempty" yaml:",omitempty"`
}

// NewFnGenerator makes a generator with unit amplitude and phase
// multiplier.
func NewFnGenerator(fn Fn) *FnGenerator {
	return &FnGenerator{
		Fn:              fn,
		Amplitude:       1,
		PhaseMultiplier: 1,
	}
}

func (m *FnGenerator) Kind() Kind {
	return KindFnGenerator
}

func (m *FnGenerator) additive() bool {
	return m.Additive
}

func sinc(x float64) float64 {
	if math.Abs(x) < 0.0001 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func (m *FnGenerator) remapValue(e *env, v, t float64) float64 {
	arg := m.PhaseMultiplier*t + m.PhaseOffset

	var fn func(float64) float64

	switch m.Fn {
	case FnSin:
		fn = math.Sin
	case FnCos:
		fn = math.Cos
	case FnSinc:
		fn = sinc
	case FnTan:
		// Poles at π/2 + kπ.
		if math.Abs(math.Remainder(arg-math.Pi/2, math.Pi)) > 1e-9 {
			fn = math.Tan
		}
	case FnLn:
		if arg > 0 {
			fn = math.Log
		}
	case FnSqrt:
		if arg > 0 {
			fn = math.Sqrt
		}
	default:
		util.Logf("modifiers.FnGenerator: unknown function %q", m.Fn)
		return v
	}

	if fn == nil {
		// No value here.
		if m.Additive {
			return v
		}
		return 0
	}

	x := m.Amplitude*fn(arg) + m.ValueOffset
	if m.Additive {
		return v + x
	}
	return x
}

// EnvelopePoint is the range that an Envelope maps its reference
// range to at Time.
type EnvelopePoint struct {
	Time float64 `json:"time" yaml:"time"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

// Envelope rescales values.  The reference range is Reference+Min
// to Reference+Max, and it maps to the range interpolated from the
// Points at the current time.
type Envelope struct {
	Header

	Reference float64 `json:"reference,omitempty" yaml:",omitempty"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`

	// Points are sorted by Time.  See AddPoint.
	Points []EnvelopePoint `json:"points,omitempty" yaml:",omitempty"`
}

// NewEnvelope makes an Envelope with a reference range of -1 to 1
// and no points.
func NewEnvelope() *Envelope {
	return &Envelope{
		Min: -1,
		Max: 1,
	}
}

func (m *Envelope) Kind() Kind {
	return KindEnvelope
}

// EnvelopeThreshold is how close two point times have to be to be
// the same point.
const EnvelopeThreshold = 0.01

// FindPoint returns the index of the point at t, or the index where
// such a point would be inserted.
func (m *Envelope) FindPoint(t float64) (int, bool) {
	ps := m.Points
	n := len(ps)
	if n == 0 {
		return 0, false
	}

	if math.Abs(t-ps[0].Time) < EnvelopeThreshold {
		return 0, true
	}
	if t < ps[0].Time {
		return 0, false
	}
	if math.Abs(t-ps[n-1].Time) < EnvelopeThreshold {
		return n - 1, true
	}
	if t > ps[n-1].Time {
		return n, false
	}

	lo, hi := 0, n-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		x := ps[mid].Time
		switch {
		case math.Abs(t-x) < EnvelopeThreshold:
			return mid, true
		case t > x:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return lo, false
}

// AddPoint adds (or replaces) the point at p.Time.
func (m *Envelope) AddPoint(p EnvelopePoint) int {
	i, exists := m.FindPoint(p.Time)
	if exists {
		m.Points[i] = p
		return i
	}
	m.Points = append(m.Points, EnvelopePoint{})
	copy(m.Points[i+1:], m.Points[i:])
	m.Points[i] = p
	return i
}

// DeletePoint removes the point at index i.
func (m *Envelope) DeletePoint(i int) {
	if i < 0 || len(m.Points) <= i {
		return
	}
	m.Points = append(m.Points[:i], m.Points[i+1:]...)
}

// bounds interpolates the target range at t.
func (m *Envelope) bounds(t float64) (lo, hi float64) {
	var (
		ps   = m.Points
		n    = len(ps)
		prev = ps[0]
		last = ps[n-1]
	)
	if t <= prev.Time {
		return prev.Min, prev.Max
	}
	if last.Time <= t {
		return last.Min, last.Max
	}
	for _, p := range ps[1:] {
		if prev.Time <= t && t <= p.Time {
			d := p.Time - prev.Time
			a := (t - prev.Time) / d
			b := (p.Time - t) / d
			return b*prev.Min + a*p.Min, b*prev.Max + a*p.Max
		}
		prev = p
	}
	return last.Min, last.Max
}

func (m *Envelope) remapValue(e *env, v, t float64) float64 {
	if len(m.Points) == 0 {
		return v
	}
	span := m.Max - m.Min
	if span == 0 {
		return v
	}
	lo, hi := m.bounds(t)
	fac := (v - (m.Reference + m.Min)) / span
	return lo + fac*(hi-lo)
}

// Limits clamps time and value.  A nil bound is no bound.
type Limits struct {
	Header

	MinTime  *float64 `json:"minTime,omitempty" yaml:"minTime,omitempty"`
	MaxTime  *float64 `json:"maxTime,omitempty" yaml:"maxTime,omitempty"`
	MinValue *float64 `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue *float64 `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
}

func (m *Limits) Kind() Kind {
	return KindLimits
}

func (m *Limits) remapTime(e *env, cvalue, t float64) float64 {
	if m.MinTime != nil && t < *m.MinTime {
		return *m.MinTime
	}
	if m.MaxTime != nil && t > *m.MaxTime {
		return *m.MaxTime
	}
	return t
}

func (m *Limits) remapValue(e *env, v, t float64) float64 {
	if m.MinValue != nil && v < *m.MinValue {
		v = *m.MinValue
	}
	if m.MaxValue != nil && v > *m.MaxValue {
		v = *m.MaxValue
	}
	return v
}

// Stepped holds the curve's value for Step frames at a time.
type Stepped struct {
	Header

	Step   float64 `json:"step" yaml:"step"`
	Offset float64 `json:"offset,omitempty" yaml:",omitempty"`

	// NoBefore leaves frames before StartFrame alone, and
	// NoAfter leaves frames after EndFrame alone.
	NoBefore   bool    `json:"noBefore,omitempty" yaml:"noBefore,omitempty"`
	StartFrame float64 `json:"startFrame,omitempty" yaml:"startFrame,omitempty"`
	NoAfter    bool    `json:"noAfter,omitempty" yaml:"noAfter,omitempty"`
	EndFrame   float64 `json:"endFrame,omitempty" yaml:"endFrame,omitempty"`
}

// NewStepped makes a modifier that steps every two frames.
func NewStepped() *Stepped {
	return &Stepped{
		Step: 2,
	}
}

func (m *Stepped) Kind() Kind {
	return KindStepped
}

func (m *Stepped) remapTime(e *env, cvalue, t float64) float64 {
	if m.NoBefore && t < m.StartFrame {
		return t
	}
	if m.NoAfter && t > m.EndFrame {
		return t
	}
	if m.Step == 0 {
		return t
	}
	block := math.Trunc((t - m.Offset) / m.Step)
	return block*m.Step + m.Offset
}
