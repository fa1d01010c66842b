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
	"errors"

	"github.com/Comcast/fcurve/core"
)

// ErrNoModifiers occurs when baking a curve that has no modifiers.
var ErrNoModifiers = errors.New("curve has no modifiers")

var _ core.ModifierStack = (*Stack)(nil)

// Stack is an ordered list of modifiers.  It implements
// core.ModifierStack.
//
// A Stack is safe for concurrent evaluation as long as it isn't
// edited.
type Stack struct {
	Modifiers []Modifier
}

// NewStack makes a Stack with the given modifiers.
func NewStack(ms ...Modifier) *Stack {
	return &Stack{
		Modifiers: ms,
	}
}

// Add appends a modifier.
func (s *Stack) Add(m Modifier) {
	s.Modifiers = append(s.Modifiers, m)
}

// Remove deletes the modifier at index i.
func (s *Stack) Remove(i int) bool {
	if i < 0 || len(s.Modifiers) <= i {
		return false
	}
	s.Modifiers = append(s.Modifiers[:i], s.Modifiers[i+1:]...)
	return true
}

// Find returns the first modifier of the given kind.
func (s *Stack) Find(k Kind) Modifier {
	for _, m := range s.Modifiers {
		if m.Kind() == k {
			return m
		}
	}
	return nil
}

func (s *Stack) Len() int {
	return len(s.Modifiers)
}

// StorageSize is the largest storage any modifier needs.
func (s *Stack) StorageSize() int {
	size := 0
	for _, m := range s.Modifiers {
		if st, is := m.(storer); is {
			if n := st.storageSize(); size < n {
				size = n
			}
		}
	}
	return size
}

func (s *Stack) env(storage []float64, c *core.Curve, i int) *env {
	size := s.StorageSize()
	e := &env{
		curve: c,
		first: i == 0,
	}
	if size > 0 && len(storage) >= (i+1)*size {
		e.storage = storage[i*size : (i+1)*size]
	} else {
		e.storage = make([]float64, size)
	}
	return e
}

// RemapTime runs the time pass from the last modifier to the first.
func (s *Stack) RemapTime(storage []float64, c *core.Curve, cvalue, t float64) float64 {
	for i := len(s.Modifiers) - 1; 0 <= i; i-- {
		m := s.Modifiers[i]
		h := m.Head()
		if !h.Active() || !h.InRange(t) {
			continue
		}
		r, is := m.(timeRemapper)
		if !is {
			continue
		}
		x := r.remapTime(s.env(storage, c, i), cvalue, t)
		t = interpf(x, t, h.influence(t))
	}
	return t
}

// RemapValue runs the value pass from the first modifier to the
// last.
func (s *Stack) RemapValue(storage []float64, c *core.Curve, v, t float64) float64 {
	for i, m := range s.Modifiers {
		h := m.Head()
		if !h.Active() || !h.InRange(t) {
			continue
		}
		r, is := m.(valueRemapper)
		if !is {
			continue
		}
		x := r.remapValue(s.env(storage, c, i), v, t)
		v = interpf(x, v, h.influence(t))
	}
	return v
}

// GeneratesCurve reports whether some active modifier can give a
// curve with no keys a value.
func (s *Stack) GeneratesCurve() bool {
	for _, m := range s.Modifiers {
		if !m.Head().Active() {
			continue
		}
		switch m.Kind() {
		case KindGenerator, KindFnGenerator, KindLimits, KindStepped:
			return true
		}
	}
	return false
}

// Excludes reports whether some modifier's frame range excludes t.
// Muted modifiers count.
func (s *Stack) Excludes(t float64) bool {
	for _, m := range s.Modifiers {
		if !m.Head().InRange(t) {
			return true
		}
	}
	return false
}

// CycleType is determined by a Cycles modifier at the start of the
// stack.
func (s *Stack) CycleType() core.CycleType {
	if len(s.Modifiers) == 0 {
		return core.CycleNone
	}
	m, is := s.Modifiers[0].(*Cycles)
	if !is {
		return core.CycleNone
	}
	return m.cycleType()
}

// KeyframesUsable reports whether the active modifiers leave the
// keyed shape visible.  Generators have to be additive, and
// envelopes and limits hide it.
func (s *Stack) KeyframesUsable() bool {
	for i := len(s.Modifiers) - 1; 0 <= i; i-- {
		m := s.Modifiers[i]
		if !m.Head().Active() {
			continue
		}
		switch m.Kind() {
		case KindCycles, KindStepped:
		case KindGenerator, KindFnGenerator:
			if g, is := m.(generator); !is || !g.additive() {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Copy makes a deep copy.
func (s *Stack) Copy() (*Stack, error) {
	acc := &Stack{
		Modifiers: make([]Modifier, 0, len(s.Modifiers)),
	}
	for _, m := range s.Modifiers {
		x, err := Encode(m)
		if err != nil {
			return nil, err
		}
		mod, err := Decode(x)
		if err != nil {
			return nil, err
		}
		acc.Modifiers = append(acc.Modifiers, mod)
	}
	return acc, nil
}

// Bake replaces the curve's keys with samples of the curve with its
// modifiers from start to end and then removes the modifiers.  The
// driver is ignored while sampling.
func Bake(c *core.Curve, start, end int) error {
	if !c.HasModifiers() {
		return ErrNoModifiers
	}
	sample := func(c *core.Curve, t float64) float64 {
		return c.EvaluateWithoutDriver(t)
	}
	if err := c.Bake(start, end, sample); err != nil {
		return err
	}
	c.Modifiers = nil
	return nil
}
