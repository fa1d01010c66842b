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
	"errors"
	"sync"
)

var (
	// InterpreterNotFound occurs when a Driver names an
	// interpreter that isn't in the given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used by an Evaluator with nil
	// Interpreters.
	DefaultInterpreters = NewInterpretersMap()

	// DefaultInterpreter is the name of the interpreter used for
	// a Driver with no Interpreter.
	DefaultInterpreter = "goja"

	// ScriptLock serializes every call to an Interpreter in the
	// process.  Interpreters don't need to be safe for
	// concurrent use.
	//
	// Replace it (before evaluating anything) to use another
	// policy.
	ScriptLock sync.Locker = &sync.Mutex{}
)

// Bindings maps driver variable names (and "time") to values.
type Bindings map[string]float64

// Copy makes a shallow copy.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for p, v := range bs {
		acc[p] = v
	}
	return acc
}

// ScriptEnv is what an Interpreter sees when it executes a driver
// expression.
type ScriptEnv struct {
	// Expr is the driver's expression.
	Expr string

	// Driver is the driver being evaluated.  Interpreters should
	// treat it as read-only.
	Driver *Driver

	// Props can be used to read other properties.  Might be nil.
	Props PropertyAccessor

	// Time is the evaluation time.
	Time float64

	// Bindings has the values of the driver's variables and
	// "time".
	Bindings Bindings
}

// Interpreter can optionally compile and execute driver expressions
// that the fast expression compiler can't handle.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code string) (interface{}, error)

	// Exec evaluates the expression.  The result of previous
	// Compile() might be provided.
	Exec(ctx context.Context, env *ScriptEnv, compiled interface{}) (float64, error)
}

// InterpretersMap maps interpreter names to interpreters.
type InterpretersMap map[string]Interpreter

// NewInterpretersMap makes an empty map.
func NewInterpretersMap() InterpretersMap {
	return make(InterpretersMap)
}

// Find returns the named interpreter or nil.
func (m InterpretersMap) Find(name string) Interpreter {
	if m == nil {
		return nil
	}
	return m[name]
}

// execScript is the only way to run an Interpreter.  It holds
// ScriptLock for the duration.
func execScript(ctx context.Context, i Interpreter, env *ScriptEnv) (float64, error) {
	ScriptLock.Lock()
	defer ScriptLock.Unlock()

	compiled, err := i.Compile(ctx, env.Expr)
	if err != nil {
		return 0, err
	}

	return i.Exec(ctx, env, compiled)
}
