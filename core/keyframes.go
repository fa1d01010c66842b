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
	"sort"

	"github.com/Comcast/fcurve/util"
)

const (
	// EvalThreshold is the tolerance used by evaluation to decide
	// that a time sits on a key.
	//
	// 1e-3 is too coarse: small driver movements snap to keys.
	// 1e-5 is too fine: float noise selects the wrong segment.
	EvalThreshold = 1e-4

	// InsertThreshold is the tolerance used by InsertKey to
	// decide that a new key replaces an existing one.
	InsertThreshold = 0.01

	// DuplicateThreshold is the tolerance for two keys sharing a
	// time.
	DuplicateThreshold = 1e-10
)

func equalWithin(a, b, threshold float64) bool {
	return math.Abs(a-b) < threshold
}

// BinarySearchKeyframe finds where a key at time t lives or would
// be inserted.  If a key is within threshold of t, its index is
// returned with exact true.  Otherwise the returned index is the
// insertion point.
func BinarySearchKeyframe(keys []ControlPoint, t, threshold float64) (int, bool) {
	n := len(keys)
	if n == 0 {
		util.Logf("core.BinarySearchKeyframe: empty key array")
		return 0, false
	}

	if first := keys[0].Time; equalWithin(t, first, threshold) {
		return 0, true
	} else if t < first {
		return 0, false
	}

	if last := keys[n-1].Time; equalWithin(t, last, threshold) {
		return n - 1, true
	} else if t > last {
		return n, false
	}

	var (
		start, end = 0, n
		maxloop    = 2 * n
		loops      = 0
	)
	for ; start <= end && loops < maxloop; loops++ {
		mid := start + (end-start)/2
		if mid >= n {
			break
		}
		m := keys[mid].Time
		if equalWithin(t, m, threshold) {
			return mid, true
		}
		if t > m {
			start = mid + 1
		} else if t < m {
			end = mid - 1
		} else {
			// NaN or otherwise unordered.
			break
		}
	}

	if loops >= maxloop {
		util.Logf("core.BinarySearchKeyframe: search taking too long (loops=%d start=%d end=%d n=%d)",
			loops, start, end, n)
	}

	return start, false
}

// InsertKey adds a key in time order and returns its index.
//
// When a key already exists within InsertThreshold of the new key's
// time, it's replaced if full is true.  Otherwise only the existing
// key's value changes (and its handles move with it).
//
// Samples are discarded: a curve can't hold both keys and samples.
func (c *Curve) InsertKey(cp ControlPoint, full bool) int {
	c.Samples = nil

	if len(c.Keys) == 0 {
		c.Keys = []ControlPoint{cp}
		return 0
	}

	i, exact := BinarySearchKeyframe(c.Keys, cp.Time, InsertThreshold)
	if exact {
		if full {
			c.Keys[i] = cp
		} else {
			c.MoveKeyValue(i, cp.Value)
		}
		return i
	}

	c.Keys = append(c.Keys, ControlPoint{})
	copy(c.Keys[i+1:], c.Keys[i:])
	c.Keys[i] = cp

	if a := c.active - 1; 0 <= a && i <= a {
		c.active++
	}

	return i
}

// DeleteKey removes the key at index i.  A negative index counts
// from the end.  Out-of-range indexes are ignored.
func (c *Curve) DeleteKey(i int) {
	n := len(c.Keys)
	if i >= n || i < -n {
		return
	}
	if i < 0 {
		i += n
	}

	c.Keys = append(c.Keys[:i], c.Keys[i+1:]...)

	switch a := c.active - 1; {
	case a == i:
		c.active = 0
	case i < a:
		c.active--
	}

	if len(c.Keys) == 0 {
		c.Keys = nil
	}
}

// DeleteSelectedKeys removes every selected key.  Returns true if
// anything was removed.
func (c *Curve) DeleteSelectedKeys() bool {
	if c.Keys == nil {
		return false
	}

	var (
		active  = c.ActiveKey()
		kept    = c.Keys[:0]
		changed bool
	)
	if active >= 0 && c.Keys[active].Selected {
		c.active = 0
		active = -1
	}
	for i, cp := range c.Keys {
		if cp.Selected {
			changed = true
			continue
		}
		if i == active {
			c.active = len(kept) + 1
		}
		kept = append(kept, cp)
	}
	c.Keys = kept
	if len(c.Keys) == 0 {
		c.Keys = nil
	}

	return changed
}

// ClearKeys removes all keys.
func (c *Curve) ClearKeys() {
	c.Keys = nil
	c.active = 0
}

// Sort puts the keys in time order.  Afterwards, handles that are
// both on the wrong side of their key are swapped and handles that
// are individually on the wrong side are clamped to the key's time.
func (c *Curve) Sort() {
	keys := c.Keys
	if keys == nil {
		return
	}

	// A bubble sort is fine.  Keys are usually nearly sorted, and
	// this sort is stable.
	for swapped := true; swapped; {
		swapped = false
		for i := 0; i+1 < len(keys); i++ {
			if keys[i].Time > keys[i+1].Time {
				keys[i], keys[i+1] = keys[i+1], keys[i]
				swapped = true
			}
		}
	}

	for i := range keys {
		cp := &keys[i]
		if cp.Left[0] > cp.Time && cp.Right[0] < cp.Time {
			cp.Left, cp.Right = cp.Right, cp.Left
		} else {
			if cp.Left[0] > cp.Time {
				cp.Left[0] = cp.Time
			}
			if cp.Right[0] < cp.Time {
				cp.Right[0] = cp.Time
			}
		}
	}
}

// IsSorted reports whether keys (or samples) are in time order.
func (c *Curve) IsSorted() bool {
	for i := 0; i+1 < len(c.Keys); i++ {
		if c.Keys[i].Time > c.Keys[i+1].Time {
			return false
		}
	}
	for i := 0; i+1 < len(c.Samples); i++ {
		if c.Samples[i].Time > c.Samples[i+1].Time {
			return false
		}
	}
	return true
}

// endKeys returns the indexes of the first and last keys to use
// when computing extents.
func (c *Curve) endKeys(selectedOnly bool) (first, last int, found bool) {
	if len(c.Keys) == 0 {
		return -1, -1, false
	}
	if !selectedOnly {
		return 0, len(c.Keys) - 1, true
	}
	first, last = -1, -1
	for i := range c.Keys {
		if c.Keys[i].Selected {
			first = i
			break
		}
	}
	for i := len(c.Keys) - 1; 0 <= i; i-- {
		if c.Keys[i].Selected {
			last = i
			break
		}
	}
	return first, last, first >= 0
}

// Bounds computes the time and value extents of the curve.
//
// When nothing is found, the bounds are (0,1) in both directions and
// ok is false.
func (c *Curve) Bounds(selectedOnly, includeHandles bool) (xmin, xmax, ymin, ymax float64, ok bool) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)

	switch {
	case len(c.Keys) > 0:
		if first, last, found := c.endKeys(selectedOnly); found {
			ok = true
			f, l := &c.Keys[first], &c.Keys[last]
			if includeHandles {
				xmin = math.Min(xmin, math.Min(f.Left[0], f.Time))
				xmax = math.Max(xmax, math.Max(l.Time, l.Right[0]))
			} else {
				xmin = math.Min(xmin, f.Time)
				xmax = math.Max(xmax, l.Time)
			}
		}

		for i := range c.Keys {
			cp := &c.Keys[i]
			if selectedOnly && !cp.Selected {
				continue
			}
			ymin = math.Min(ymin, cp.Value)
			ymax = math.Max(ymax, cp.Value)

			if includeHandles {
				// The first key's left handle has no effect.
				if 0 < i && c.Keys[i-1].interp() == Bezier {
					ymin = math.Min(ymin, cp.Left[1])
					ymax = math.Max(ymax, cp.Left[1])
				}
				if cp.interp() == Bezier {
					ymin = math.Min(ymin, cp.Right[1])
					ymax = math.Max(ymax, cp.Right[1])
				}
			}
			ok = true
		}

	case len(c.Samples) > 0:
		xmin = c.Samples[0].Time
		xmax = c.Samples[len(c.Samples)-1].Time
		for _, s := range c.Samples {
			ymin = math.Min(ymin, s.Value)
			ymax = math.Max(ymax, s.Value)
		}
		ok = true
	}

	if !ok {
		util.Logf("core.Bounds: nothing found for %s; assuming unit bounds", c.Path)
		return 0, 1, 0, 1, false
	}

	return
}

// Range computes the time range of the curve.  With minLength, a
// zero-length range is extended to one frame.
func (c *Curve) Range(selectedOnly, minLength bool) (start, end float64, ok bool) {
	switch {
	case len(c.Keys) > 0:
		if first, last, found := c.endKeys(selectedOnly); found {
			start, end, ok = c.Keys[first].Time, c.Keys[last].Time, true
		}
	case len(c.Samples) > 0:
		start, end, ok = c.Samples[0].Time, c.Samples[len(c.Samples)-1].Time, true
	}

	if minLength && start == end {
		end += 1
	}

	return
}

// KeyedFrames returns the distinct key times of all the given
// curves, snapped to multiples of interval and sorted.
func KeyedFrames(interval float64, cs ...*Curve) []float64 {
	if interval < 1e-3 {
		interval = 1e-3
	}

	seen := make(map[int64]bool)
	for _, c := range cs {
		for _, cp := range c.Keys {
			seen[int64(math.Round(cp.Time/interval))] = true
		}
	}

	acc := make([]float64, 0, len(seen))
	for n := range seen {
		acc = append(acc, float64(n)*interval)
	}
	sort.Float64s(acc)

	return acc
}

// SetActiveKey makes the key at index i active.  An out-of-range
// index (including -1) clears the active key.
func (c *Curve) SetActiveKey(i int) {
	if i < 0 || len(c.Keys) <= i {
		c.active = 0
		return
	}
	c.active = i + 1
}

// ActiveKey returns the index of the active key or -1.
//
// An active key that isn't selected isn't active.
func (c *Curve) ActiveKey() int {
	i := c.active - 1
	if i < 0 || len(c.Keys) <= i {
		return -1
	}
	if !c.Keys[i].Selected {
		return -1
	}
	return i
}

// MoveKeyValue sets the value of the key at index i, moving its
// handles by the same amount.
func (c *Curve) MoveKeyValue(i int, v float64) {
	cp := &c.Keys[i]
	d := v - cp.Value
	cp.Left[1] += d
	cp.Value = v
	cp.Right[1] += d
}

func lerp2(a, b Vec2, t float64) Vec2 {
	return Vec2{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// SubdivideSegment inserts a key at time t into the Bezier segment
// that starts at key i, preserving the shape of the segment.  The
// neighbors' inner handles become aligned so that a later handle
// recalculation won't undo the split.
//
// Returns the index of the new key and true, or false if t isn't
// strictly inside the segment.
func (c *Curve) SubdivideSegment(i int, t float64) (int, bool) {
	if i < 0 || len(c.Keys) <= i+1 {
		return -1, false
	}

	prev, next := &c.Keys[i], &c.Keys[i+1]
	if t <= prev.Time || next.Time <= t {
		return -1, false
	}

	p0, p3 := prev.point(), next.point()
	CorrectBezierSegment(p0, &prev.Right, &next.Left, p3)

	roots, n := FindBezierParam(t, p0[0], prev.Right[0], next.Left[0], p3[0])
	if n == 0 {
		return -1, false
	}
	u := roots[0]
	if u <= 0 || 1 <= u {
		return -1, false
	}

	// De Casteljau.
	var (
		a1 = lerp2(p0, prev.Right, u)
		a2 = lerp2(prev.Right, next.Left, u)
		a3 = lerp2(next.Left, p3, u)
		b1 = lerp2(a1, a2, u)
		b2 = lerp2(a2, a3, u)
		m  = lerp2(b1, b2, u)
	)

	prev.Right = a1
	next.Left = a3
	if prev.HandleRight.IsAuto() {
		prev.HandleRight = HandleAligned
	}
	if next.HandleLeft.IsAuto() {
		next.HandleLeft = HandleAligned
	}

	cp := NewControlPoint(m[0], m[1])
	cp.Left = b1
	cp.Right = b2
	cp.Interp = prev.Interp
	cp.HandleLeft = HandleAligned
	cp.HandleRight = HandleAligned

	return c.InsertKey(cp, true), true
}

// SampleFunc computes the value of a curve at a time for Bake.
type SampleFunc func(c *Curve, t float64) float64

// Bake replaces the curve's keys with samples at every frame from
// start to end (inclusive).
func (c *Curve) Bake(start, end int, sample SampleFunc) error {
	if sample == nil {
		return ErrNoSampler
	}
	if start > end {
		return &FrameRangeError{Start: start, End: end}
	}

	acc := make([]Sample, 0, end-start+1)
	for f := start; f <= end; f++ {
		t := float64(f)
		acc = append(acc, Sample{Time: t, Value: sample(c, t)})
	}

	c.Keys = nil
	c.active = 0
	c.Samples = acc

	return nil
}

func unbakedKey(t, v float64) ControlPoint {
	cp := NewControlPoint(t, v)
	cp.Selected = true
	cp.Interp = Linear
	cp.HandleLeft = HandleAuto
	cp.HandleRight = HandleAuto
	return cp
}

// Unbake converts samples back to linear keys, one per frame from
// start up to (but not including) end.  Frames outside the sampled
// range hold the nearest sample's value.
func (c *Curve) Unbake(start, end int) error {
	if start > end {
		return &FrameRangeError{Start: start, End: end}
	}
	if len(c.Samples) == 0 {
		return ErrNoSamples
	}

	var (
		samples = c.Samples
		keys    = make([]ControlPoint, 0, end-start)
		f       = start
	)

	for len(samples) > 0 && samples[0].Time < float64(start) {
		samples = samples[1:]
	}

	if len(samples) == 0 {
		// Everything was before the range.
		last := c.Samples[len(c.Samples)-1]
		for ; f < end; f++ {
			keys = append(keys, unbakedKey(float64(f), last.Value))
		}
	} else {
		for ; f < end && float64(f) < samples[0].Time; f++ {
			keys = append(keys, unbakedKey(float64(f), samples[0].Value))
		}
		for ; f < end && len(samples) > 0; f++ {
			keys = append(keys, unbakedKey(samples[0].Time, samples[0].Value))
			samples = samples[1:]
		}
		last := c.Samples[len(c.Samples)-1]
		for ; f < end; f++ {
			keys = append(keys, unbakedKey(float64(f), last.Value))
		}
	}

	c.Samples = nil
	c.Keys = keys
	c.RecalcHandles()

	return nil
}

// KeyframesUsable reports whether keys on this curve would have a
// visible effect.  A curve with samples can't take keys, and some
// modifiers replace the keyed shape entirely.
func (c *Curve) KeyframesUsable() bool {
	if len(c.Samples) > 0 {
		return false
	}
	if c.Modifiers == nil {
		return true
	}
	return c.Modifiers.KeyframesUsable()
}

// Editable reports whether the curve stores keys (rather than
// samples).
func (c *Curve) Editable() bool {
	return len(c.Samples) == 0
}
