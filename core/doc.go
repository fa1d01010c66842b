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

// Package core provides the core gear for evaluating animation
// curves.
//
// The primary type is Curve, which maps a time to a value.  A Curve
// has keys (ControlPoints with Bezier handles), or baked Samples,
// or neither.  Between two keys, the value follows the left key's
// interpolation: constant, linear, a cubic Bezier, or one of the
// easing families.  Outside the keys, the curve is extrapolated.
//
// A Curve can have a Driver, which computes the curve's input from
// properties of other objects.  A Driver combines its Variables by
// summing, averaging, taking the min or max, or by evaluating an
// expression.  Expressions are compiled once (by an
// ExpressionCompiler) and then evaluated without locks.  Expressions
// the compiler can't handle go to an Interpreter, and only one
// Interpreter runs at a time (see ScriptLock).
//
// A Curve can also have a ModifierStack, which remaps the time
// before evaluation and the value afterwards.  See the modifiers
// package.
//
// To evaluate a curve, make an Evaluator with a PropertyAccessor
// that knows your scene, and call EvaluateCurve().  Curves and
// drivers can be evaluated concurrently.  Errors during evaluation
// are logged (see util.Logging), and a driver that fails is marked
// Invalid and evaluates to zero until it's changed.
//
// Curves are edited with methods like InsertKey(), DeleteKey(), and
// RecalcHandles().  Editing isn't synchronized.
package core
