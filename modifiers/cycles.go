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

	"github.com/Comcast/fcurve/core"
)

// CycleMode is how a Cycles modifier extends a curve on one side.
type CycleMode string

const (
	CycleNone CycleMode = "none"

	// CycleRepeat repeats the keyed range.
	CycleRepeat CycleMode = "repeat"

	// CycleRepeatOffset repeats the keyed range with each repeat
	// shifted so that it starts where the previous one ended.
	CycleRepeatOffset CycleMode = "repeat_offset"

	// CycleMirror alternates forward and backward repeats.
	CycleMirror CycleMode = "mirror"
)

// Cycles repeats the keyed (or sampled) range of a curve before its
// first key and after its last.  It only works as the first modifier
// in a stack.
type Cycles struct {
	Header

	Before CycleMode `json:"before,omitempty" yaml:",omitempty"`
	After  CycleMode `json:"after,omitempty" yaml:",omitempty"`

	// BeforeCycles and AfterCycles limit the number of repeats.
	// Zero means forever.
	BeforeCycles int `json:"beforeCycles,omitempty" yaml:"beforeCycles,omitempty"`
	AfterCycles  int `json:"afterCycles,omitempty" yaml:"afterCycles,omitempty"`
}

// NewCycles makes a Cycles modifier that repeats forever on both
// sides.
func NewCycles() *Cycles {
	return &Cycles{
		Before: CycleRepeat,
		After:  CycleRepeat,
	}
}

func (m *Cycles) Kind() Kind {
	return KindCycles
}

// storageSize is one float64: the value offset for the current
// cycle.
func (m *Cycles) storageSize() int {
	return 1
}

// cycleType reports the core.CycleType this modifier imposes when
// it's the first in its stack.
func (m *Cycles) cycleType() core.CycleType {
	if !m.Active() || m.Restrict || m.UseInfluence {
		return core.CycleNone
	}
	if m.BeforeCycles != 0 || m.AfterCycles != 0 {
		return core.CycleNone
	}
	if m.Before == CycleRepeat && m.After == CycleRepeat {
		return core.CyclePerfect
	}
	repeats := func(mode CycleMode) bool {
		return mode == CycleRepeat || mode == CycleRepeatOffset
	}
	if repeats(m.Before) && repeats(m.After) {
		return core.CycleOffset
	}
	return core.CycleNone
}

// ends returns the first and last keys (or samples).
func ends(c *core.Curve) (first, last core.Vec2, ok bool) {
	switch {
	case c == nil:
	case len(c.Keys) > 0:
		f, l := c.Keys[0], c.Keys[len(c.Keys)-1]
		return core.Vec2{f.Time, f.Value}, core.Vec2{l.Time, l.Value}, true
	case len(c.Samples) > 0:
		f, l := c.Samples[0], c.Samples[len(c.Samples)-1]
		return core.Vec2{f.Time, f.Value}, core.Vec2{l.Time, l.Value}, true
	}
	return first, last, false
}

func (m *Cycles) remapTime(e *env, cvalue, t float64) float64 {
	e.storage[0] = 0

	if !e.first {
		return t
	}

	first, last, ok := ends(e.curve)
	if !ok {
		return t
	}

	var (
		side   float64
		mode   CycleMode
		cycles int
		ofs    float64
	)

	switch {
	case t < first[0]:
		side, mode, cycles, ofs = -1, m.Before, m.BeforeCycles, first[0]
	case t > last[0]:
		side, mode, cycles, ofs = 1, m.After, m.AfterCycles, last[0]
	}
	if side == 0 || mode == "" || mode == CycleNone {
		return t
	}

	var (
		dx = last[0] - first[0]
		dy = last[1] - first[1]
	)
	if dx == 0 {
		return t
	}

	cycle := side * (t - ofs) / dx
	cyct := math.Mod(t-ofs, dx)

	if cycles != 0 && cycle > float64(cycles) {
		return t
	}

	if mode == CycleRepeatOffset {
		var n float64
		if side < 0 {
			n = math.Floor((t - ofs) / dx)
		} else {
			n = math.Ceil((t - ofs) / dx)
		}
		e.storage[0] = n * dy
	}

	switch {
	case cyct == 0:
		if side > 0 {
			t = last[0]
		} else {
			t = first[0]
		}
		if mode == CycleMirror && int(cycle)%2 != 0 {
			if side > 0 {
				t = first[0]
			} else {
				t = last[0]
			}
		}
	case mode == CycleMirror && int(cycle+1)%2 != 0:
		// Odd cycles play backwards.
		if side < 0 {
			t = first[0] - cyct
		} else {
			t = last[0] - cyct
		}
	default:
		t = first[0] + cyct
	}
	if t < first[0] {
		t += dx
	}

	return t
}

func (m *Cycles) remapValue(e *env, v, t float64) float64 {
	return v + e.storage[0]
}
