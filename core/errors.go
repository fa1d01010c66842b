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
	"errors"
	"fmt"
)

// UnresolvedTarget occurs when a driver target's object or property
// can't be found.
type UnresolvedTarget struct {
	ID   string
	Path string
	Err  error
}

func (e *UnresolvedTarget) Error() string {
	return `target "` + e.ID + `" path "` + e.Path + `" unresolved: ` + e.Err.Error()
}

func (e *UnresolvedTarget) Unwrap() error {
	return e.Err
}

// IndexOutOfRange occurs when a target's array index isn't valid
// for its property.
type IndexOutOfRange struct {
	Path  string
	Index int
	Len   int
}

func (e *IndexOutOfRange) Error() string {
	return fmt.Sprintf(`index %d out of range for "%s" (length %d)`, e.Index, e.Path, e.Len)
}

// ExpressionError reports a problem compiling or evaluating a
// driver expression.
type ExpressionError struct {
	Expr string
	Msg  string
}

func (e *ExpressionError) Error() string {
	return `expression "` + e.Expr + `": ` + e.Msg
}

// UnknownDriverType occurs when a Driver's Type isn't one we know.
type UnknownDriverType struct {
	Type DriverType
}

func (e *UnknownDriverType) Error() string {
	return `unknown driver type "` + string(e.Type) + `"`
}

// FrameRangeError occurs when a frame range ends before it starts.
type FrameRangeError struct {
	Start, End int
}

func (e *FrameRangeError) Error() string {
	return fmt.Sprintf("bad frame range %d..%d", e.Start, e.End)
}

var (
	// ErrPropertyNotFound is returned by a PropertyAccessor when
	// a path doesn't resolve.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrPropertyType is returned by a PropertyAccessor when a
	// property exists but can't be read as a number.
	ErrPropertyType = errors.New("property has the wrong type")

	// ErrNoObject is returned when a target has no object.
	ErrNoObject = errors.New("no object")

	// ErrNoFallback occurs when an expression needs the scripting
	// fallback but there isn't one.
	ErrNoFallback = errors.New("no scripting fallback")

	// ErrNoSamples occurs when unbaking a curve with no samples.
	ErrNoSamples = errors.New("curve has no samples")

	// ErrNoSampler occurs when baking without a SampleFunc.
	ErrNoSampler = errors.New("no sampler")
)
