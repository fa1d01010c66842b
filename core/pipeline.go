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
	"context"
	"math"

	"github.com/Comcast/fcurve/util"
)

// Evaluator has what's needed to evaluate curves with drivers.
//
// An Evaluator can be used concurrently.  The zero value evaluates
// curves without drivers and drivers that don't read properties.
type Evaluator struct {
	// Compiler compiles driver expressions.  When nil, every
	// expression goes to the scripting fallback.
	Compiler ExpressionCompiler

	// Interpreters are the scripting fallbacks.  When nil,
	// DefaultInterpreters is used.
	Interpreters InterpretersMap

	// Props resolves driver targets.
	Props PropertyAccessor

	// Space converts transforms to local space.  When nil, no
	// conversion is done.
	Space SpaceConverter
}

func (e *Evaluator) interpreters() InterpretersMap {
	if e.Interpreters == nil {
		return DefaultInterpreters
	}
	return e.Interpreters
}

// IsEmpty reports whether the curve has nothing to evaluate: no
// keys, no samples, no driver and no generating modifier.
func (c *Curve) IsEmpty() bool {
	if len(c.Keys) > 0 || len(c.Samples) > 0 || c.Driver != nil {
		return false
	}
	if c.modifiersActive() && c.Modifiers.GeneratesCurve() {
		return false
	}
	return true
}

// evaluate runs the modifiers and the keys (or samples).  cvalue is
// the value before the keys, which is the driver's output when the
// curve has a driver.
func (c *Curve) evaluate(t, cvalue float64) float64 {
	var (
		mods    = c.modifiersActive()
		storage []float64
		devalt  = t
	)

	if mods {
		storage = storageFor(c.Modifiers)
		devalt = c.Modifiers.RemapTime(storage, c, cvalue, t)
	}

	switch {
	case len(c.Keys) > 0:
		cvalue = c.EvaluateKeys(devalt)
	case len(c.Samples) > 0:
		cvalue = c.EvaluateSamples(devalt)
	}

	if mods {
		cvalue = c.Modifiers.RemapValue(storage, c, cvalue, devalt)
	}

	if c.IntegerValues {
		cvalue = math.Floor(cvalue + 0.5)
	}

	return cvalue
}

// EvaluateWithoutDriver computes the curve's value at t, ignoring
// any driver.  The curve's last value is updated.
func (c *Curve) EvaluateWithoutDriver(t float64) float64 {
	v := 0.0
	if !c.IsEmpty() {
		v = c.evaluate(t, 0)
	}
	c.setLast(v)
	return v
}

// EvaluateCurveWithoutDriver is the same as
// Curve.EvaluateWithoutDriver.
func (e *Evaluator) EvaluateCurveWithoutDriver(c *Curve, t float64) float64 {
	return c.EvaluateWithoutDriver(t)
}

// EvaluateCurve computes the curve's value at t.
//
// A driven curve is evaluated at the driver's output instead of t.
// A driven curve with no keys or samples passes the driver's output
// through (as modified by the modifiers), unless a modifier's frame
// range excludes it.
func (e *Evaluator) EvaluateCurve(ctx context.Context, c *Curve, t float64) float64 {
	if c.IsEmpty() {
		c.setLast(0)
		return 0
	}

	if c.Driver == nil {
		return c.EvaluateWithoutDriver(t)
	}

	evaltime := e.EvaluateDriver(ctx, c.Driver, t)

	cvalue := 0.0
	if len(c.Keys) == 0 && len(c.Samples) == 0 {
		if !c.modifiersActive() || !c.Modifiers.Excludes(evaltime) {
			cvalue = evaltime
		}
	}

	v := c.evaluate(evaltime, cvalue)
	c.setLast(v)
	return v
}

// EvaluateDriver computes the driver's output at t.  The result is
// also cached in the driver.
//
// Errors don't propagate.  They are logged, the driver is marked
// invalid, and the result is zero.
func (e *Evaluator) EvaluateDriver(ctx context.Context, d *Driver, t float64) float64 {
	v := e.evalDriver(ctx, d, t)
	d.setLast(v)
	return v
}

func (e *Evaluator) evalDriver(ctx context.Context, d *Driver, t float64) float64 {
	if d.Invalid() {
		return 0
	}

	switch d.Type {
	case DriverSum, DriverAverage:
		if len(d.Variables) == 0 {
			return 0
		}
		if len(d.Variables) == 1 {
			return e.evalVariable(d, d.Variables[0])
		}
		var sum float64
		for _, v := range d.Variables {
			sum += e.evalVariable(d, v)
		}
		if d.Type == DriverAverage {
			return sum / float64(len(d.Variables))
		}
		return sum

	case DriverMin, DriverMax:
		var acc float64
		for i, v := range d.Variables {
			x := e.evalVariable(d, v)
			switch {
			case i == 0:
				acc = x
			case d.Type == DriverMin && x < acc:
				acc = x
			case d.Type == DriverMax && x > acc:
				acc = x
			}
		}
		return acc

	case DriverExpression:
		if d.Expression == "" {
			return 0
		}
		for _, v := range d.Variables {
			e.evalVariable(d, v)
		}
		if v, handled := d.evalCompiled(e.Compiler, t); handled {
			return v
		}
		return e.evalFallback(ctx, d, t)
	}

	util.Logf("%v", &UnknownDriverType{Type: d.Type})
	d.markInvalid()
	return 0
}

// evalFallback runs the expression in the driver's interpreter.
// Only one fallback runs at a time in the process.
func (e *Evaluator) evalFallback(ctx context.Context, d *Driver, t float64) float64 {
	name := d.Interpreter
	if name == "" {
		name = DefaultInterpreter
	}
	i := e.interpreters().Find(name)
	if i == nil {
		util.Logf("driver expression '%s': %v (%v %q)", d.Expression, ErrNoFallback, InterpreterNotFound, name)
		d.markInvalid()
		return 0
	}

	bs := Bindings{"time": t}
	for _, v := range d.Variables {
		// Flags belong to editing; evaluation only reads the verdict.
		if f := ValidateVariableName(v.Name); f != 0 {
			util.Logf("driver variable %q has an invalid name: %v", v.Name, f.Problems())
			d.markInvalid()
			return 0
		}
		bs[v.Name] = v.Last()
	}

	env := &ScriptEnv{
		Expr:     d.Expression,
		Driver:   d,
		Props:    e.Props,
		Time:     t,
		Bindings: bs,
	}

	x, err := execScript(ctx, i, env)
	if err != nil {
		util.Logf("%v", &ExpressionError{Expr: d.Expression, Msg: err.Error()})
		d.markInvalid()
		return 0
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// DriverDependsOnTime reports whether the driver's output can change
// when only the time changes.
func (e *Evaluator) DriverDependsOnTime(d *Driver) bool {
	return d.dependsOnTime(e.Compiler)
}

// InvalidateDriverCache drops the driver's compiled expression when
// its expression or a variable name has changed.
func (e *Evaluator) InvalidateDriverCache(d *Driver, exprChanged, varnameChanged bool) {
	d.InvalidateExpression(exprChanged, varnameChanged)
}
