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

// CycleType describes how a curve repeats.
type CycleType int

const (
	CycleNone CycleType = iota

	// CyclePerfect curves repeat exactly.
	CyclePerfect

	// CycleOffset curves repeat with each cycle shifted by the
	// difference between the first and last values.
	CycleOffset
)

func (t CycleType) String() string {
	switch t {
	case CyclePerfect:
		return "perfect"
	case CycleOffset:
		return "offset"
	}
	return "none"
}

// ModifierStack is an ordered list of modifiers that change a
// curve's time and value.
//
// Evaluation calls RemapTime before computing the curve's value and
// RemapValue afterwards.  Both get the same scratch storage, which
// the evaluator allocates with StorageSize() float64s per modifier.
// RemapTime can leave information there for RemapValue.
type ModifierStack interface {
	// Len returns the number of modifiers.
	Len() int

	// StorageSize is the number of float64s of scratch storage
	// each modifier needs during one evaluation.
	StorageSize() int

	// RemapTime returns the time at which the curve should be
	// evaluated.  cvalue is the value computed so far, which is
	// the driver's output for a driver curve with no keys.
	RemapTime(storage []float64, c *Curve, cvalue, t float64) float64

	// RemapValue adjusts the curve's value at the (remapped) time.
	RemapValue(storage []float64, c *Curve, v, t float64) float64

	// GeneratesCurve reports whether an active modifier computes
	// a value from nothing.
	GeneratesCurve() bool

	// Excludes reports whether some modifier restricts its
	// frame range in a way that excludes t.
	Excludes(t float64) bool

	// CycleType reports how the stack makes the curve repeat.
	CycleType() CycleType

	// KeyframesUsable reports whether the active modifiers leave
	// the keyed shape visible.
	KeyframesUsable() bool
}

// storageFor allocates scratch storage for one evaluation.
func storageFor(ms ModifierStack) []float64 {
	n := ms.Len() * ms.StorageSize()
	if n == 0 {
		return nil
	}
	return make([]float64, n)
}
