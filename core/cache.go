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
	"strings"

	"github.com/Comcast/fcurve/util"
)

// ExprStatus is the outcome of evaluating a CompiledExpression.
type ExprStatus int

const (
	ExprSuccess ExprStatus = iota
	ExprDivByZero
	ExprMathError
	ExprFailure
)

func (s ExprStatus) String() string {
	switch s {
	case ExprSuccess:
		return "success"
	case ExprDivByZero:
		return "division by zero"
	case ExprMathError:
		return "math domain error"
	}
	return "failure"
}

// ExpressionCompiler turns driver expression source into something
// fast to evaluate.
type ExpressionCompiler interface {
	// Compile compiles src with the given parameter names.  An
	// error means the expression isn't supported, and the
	// scripting fallback will handle it.
	Compile(src string, params []string) (CompiledExpression, error)
}

// CompiledExpression is the result of a successful Compile.
//
// Eval must be safe for concurrent use.
type CompiledExpression interface {
	// Valid reports whether Eval can be used.
	Valid() bool

	// UsesParam reports whether the expression reads parameter i.
	UsesParam(i int) bool

	// Eval computes the expression with the given parameter
	// values, which are in the order of the names given to
	// Compile.
	Eval(params []float64) (float64, ExprStatus)
}

// compiledHandle is stored in a Driver once its expression has been
// compiled.  expr is nil when compilation failed.
type compiledHandle struct {
	expr CompiledExpression
}

func (h *compiledHandle) valid() bool {
	return h != nil && h.expr != nil && h.expr.Valid()
}

// compiled returns the driver's compiled expression, compiling it at
// most once.
//
// Concurrent callers may each compile, but only the first to publish
// its handle wins.  The others drop their work and use the winner's.
func (d *Driver) compiledExpr(c ExpressionCompiler) *compiledHandle {
	if h := d.compiled.Load(); h != nil {
		return h
	}
	if c == nil || d.Type != DriverExpression {
		return nil
	}

	h := &compiledHandle{}
	expr, err := c.Compile(d.Expression, d.paramNames())
	if err != nil {
		util.Logf("driver expression %q not compiled: %v", d.Expression, err)
	} else {
		h.expr = expr
	}

	if d.compiled.CompareAndSwap(nil, h) {
		return h
	}
	return d.compiled.Load()
}

// InvalidateExpression drops the compiled expression if the
// expression or a variable name changed.  The driver's invalid flag
// is cleared so that the new expression gets a chance.
func (d *Driver) InvalidateExpression(exprChanged, varnameChanged bool) {
	if !exprChanged && !varnameChanged {
		return
	}
	d.compiled.Store(nil)
	d.ClearInvalid()
}

// evalCompiled tries the fast path.  handled is false when the
// expression needs the scripting fallback.
func (d *Driver) evalCompiled(c ExpressionCompiler, t float64) (v float64, handled bool) {
	h := d.compiledExpr(c)
	if !h.valid() {
		return 0, false
	}

	params := make([]float64, 0, len(d.Variables)+1)
	params = append(params, t)
	for _, v := range d.Variables {
		params = append(params, v.Last())
	}

	x, status := h.expr.Eval(params)
	switch status {
	case ExprSuccess:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		return x, true
	case ExprDivByZero:
		util.Logf("Division by Zero in Driver: '%s'", d.Expression)
		d.markInvalid()
		return 0, true
	case ExprMathError:
		util.Logf("Math Domain Error in Driver: '%s'", d.Expression)
		d.markInvalid()
		return 0, true
	}

	util.Logf("driver expression '%s' failed; trying the scripting fallback", d.Expression)
	return 0, false
}

// dependsOnTime reports whether the driver's value can change with
// time alone.
func (d *Driver) dependsOnTime(c ExpressionCompiler) bool {
	if d.Type != DriverExpression {
		return false
	}
	if h := d.compiledExpr(c); h.valid() {
		return h.expr.UsesParam(0)
	}
	if d.Expression == "" {
		return false
	}
	// Can't tell what a function call does.
	if strings.Contains(d.Expression, "(") {
		return true
	}
	return strings.Contains(d.Expression, "time")
}
