// Package noop has a scripting fallback that doesn't run anything.
package noop

import (
	"context"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/util"
)

// Interpreter is a core.Interpreter that ignores the expression and
// returns Value.
type Interpreter struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool

	// Value is what every expression evaluates to.
	Value float64
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, env *core.ScriptEnv, compiled interface{}) (float64, error) {
	if !i.Silent {
		util.Warnf("noop interpreter ignoring '%s'", env.Expr)
	}
	return i.Value, nil
}
