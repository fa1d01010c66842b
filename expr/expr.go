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

// Package expr is a small, fast compiler for driver expressions.
//
// An expression is a single ECMAScript expression over numbers:
// arithmetic, comparisons, logical operators, the conditional
// operator, and calls to a fixed set of math functions (which can
// also be written with a "Math." prefix).  The goja parser does the
// parsing, and the syntax tree is compiled into closures.
//
// Anything else (strings, objects, assignments, unknown functions)
// makes Compile fail, and the driver falls back to a full
// interpreter.
package expr

import (
	"errors"
	"fmt"
	"math"

	"github.com/Comcast/fcurve/core"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/token"
)

// ErrUnsupported is wrapped by every Compile error caused by syntax
// this package doesn't handle.
var ErrUnsupported = errors.New("unsupported expression")

// Compiler implements core.ExpressionCompiler.
type Compiler struct {
	// NoFold disables constant folding.
	NoFold bool
}

// NewCompiler makes a Compiler with the default settings.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// state is the per-evaluation scratch.  The first error wins.
type state struct {
	params []float64
	status core.ExprStatus
}

func (s *state) fail(st core.ExprStatus) float64 {
	if s.status == core.ExprSuccess {
		s.status = st
	}
	return 0
}

// node is a compiled subexpression.
type node func(s *state) float64

// Expression is a compiled expression.  It's safe for concurrent
// use.
type Expression struct {
	Source string
	Params []string

	root node
	uses []bool
}

// Valid reports whether the expression compiled.
func (e *Expression) Valid() bool {
	return e != nil && e.root != nil
}

// UsesParam reports whether parameter i appears in the expression.
func (e *Expression) UsesParam(i int) bool {
	if e == nil || i < 0 || len(e.uses) <= i {
		return false
	}
	return e.uses[i]
}

// Eval computes the expression.  params must have a value for each
// parameter name given to Compile.
func (e *Expression) Eval(params []float64) (float64, core.ExprStatus) {
	if !e.Valid() {
		return 0, core.ExprFailure
	}
	if len(params) < len(e.Params) {
		return 0, core.ExprFailure
	}
	s := &state{params: params}
	x := e.root(s)
	if s.status != core.ExprSuccess {
		return 0, s.status
	}
	if math.IsNaN(x) {
		return 0, core.ExprMathError
	}
	return x, core.ExprSuccess
}

// Compile implements core.ExpressionCompiler.
func (c *Compiler) Compile(src string, params []string) (core.CompiledExpression, error) {
	e, err := c.CompileExpression(src, params)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CompileExpression parses and compiles src.
func (c *Compiler) CompileExpression(src string, params []string) (*Expression, error) {
	prog, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return nil, &core.ExpressionError{Expr: src, Msg: err.Error()}
	}
	if len(prog.Body) != 1 {
		return nil, unsupported(src, "want exactly one expression")
	}
	stmt, is := prog.Body[0].(*ast.ExpressionStatement)
	if !is {
		return nil, unsupported(src, "not an expression")
	}

	b := &builder{
		src:    src,
		params: make(map[string]int, len(params)),
		uses:   make([]bool, len(params)),
		fold:   !c.NoFold,
	}
	for i, p := range params {
		if _, have := b.params[p]; !have {
			b.params[p] = i
		}
	}

	n, _, err := b.build(stmt.Expression)
	if err != nil {
		return nil, err
	}

	return &Expression{
		Source: src,
		Params: append([]string(nil), params...),
		root:   n,
		uses:   b.uses,
	}, nil
}

type unsupportedError struct {
	src, msg string
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("%v: %s in %q", ErrUnsupported, e.msg, e.src)
}

func (e *unsupportedError) Unwrap() error {
	return ErrUnsupported
}

func unsupported(src, format string, args ...interface{}) error {
	return &unsupportedError{src: src, msg: fmt.Sprintf(format, args...)}
}

// constants are the names that aren't parameters.  Parameters shadow
// them.
var constants = map[string]float64{
	"pi":       math.Pi,
	"PI":       math.Pi,
	"True":     1,
	"False":    0,
	"Infinity": math.Inf(1),
}

type builder struct {
	src    string
	params map[string]int
	uses   []bool
	fold   bool
}

func constant(x float64) node {
	return func(*state) float64 { return x }
}

// folded evaluates a node without parameters at compile time.  A node
// that fails isn't folded, so that the error shows up at run time.
func (b *builder) folded(n node, isConst bool) (node, bool) {
	if !b.fold || !isConst {
		return n, isConst
	}
	s := &state{}
	x := n(s)
	if s.status != core.ExprSuccess {
		return n, true
	}
	return constant(x), true
}

// build compiles x.  The second result is true when the node doesn't
// depend on any parameter.
func (b *builder) build(x ast.Expression) (node, bool, error) {
	switch vv := x.(type) {
	case *ast.NumberLiteral:
		switch v := vv.Value.(type) {
		case int64:
			return constant(float64(v)), true, nil
		case float64:
			return constant(v), true, nil
		}
		return nil, false, unsupported(b.src, "number %q", vv.Literal)

	case *ast.BooleanLiteral:
		if vv.Value {
			return constant(1), true, nil
		}
		return constant(0), true, nil

	case *ast.Identifier:
		name := string(vv.Name)
		if i, have := b.params[name]; have {
			b.uses[i] = true
			return func(s *state) float64 { return s.params[i] }, false, nil
		}
		if v, have := constants[name]; have {
			return constant(v), true, nil
		}
		return nil, false, unsupported(b.src, "unknown name %q", name)

	case *ast.UnaryExpression:
		return b.unary(vv)

	case *ast.BinaryExpression:
		return b.binary(vv)

	case *ast.ConditionalExpression:
		test, c1, err := b.build(vv.Test)
		if err != nil {
			return nil, false, err
		}
		yes, c2, err := b.build(vv.Consequent)
		if err != nil {
			return nil, false, err
		}
		no, c3, err := b.build(vv.Alternate)
		if err != nil {
			return nil, false, err
		}
		n := func(s *state) float64 {
			if test(s) != 0 {
				return yes(s)
			}
			return no(s)
		}
		n, c := b.folded(n, c1 && c2 && c3)
		return n, c, nil

	case *ast.CallExpression:
		return b.call(vv)

	case *ast.DotExpression:
		if name, ok := mathMember(vv); ok {
			if v, have := mathConstants[name]; have {
				return constant(v), true, nil
			}
		}
		return nil, false, unsupported(b.src, "member access")
	}

	return nil, false, unsupported(b.src, "%T", x)
}

func (b *builder) unary(x *ast.UnaryExpression) (node, bool, error) {
	if x.Postfix {
		return nil, false, unsupported(b.src, "postfix %s", x.Operator)
	}
	arg, c, err := b.build(x.Operand)
	if err != nil {
		return nil, false, err
	}

	var n node
	switch x.Operator {
	case token.MINUS:
		n = func(s *state) float64 { return -arg(s) }
	case token.PLUS:
		n = arg
	case token.NOT:
		n = func(s *state) float64 { return truth(arg(s) == 0) }
	default:
		return nil, false, unsupported(b.src, "operator %s", x.Operator)
	}

	n, c = b.folded(n, c)
	return n, c, nil
}

func truth(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (b *builder) binary(x *ast.BinaryExpression) (node, bool, error) {
	l, c1, err := b.build(x.Left)
	if err != nil {
		return nil, false, err
	}
	r, c2, err := b.build(x.Right)
	if err != nil {
		return nil, false, err
	}

	var n node
	switch x.Operator {
	case token.PLUS:
		n = func(s *state) float64 { return l(s) + r(s) }
	case token.MINUS:
		n = func(s *state) float64 { return l(s) - r(s) }
	case token.MULTIPLY:
		n = func(s *state) float64 { return l(s) * r(s) }
	case token.SLASH:
		n = func(s *state) float64 {
			a, d := l(s), r(s)
			if d == 0 {
				return s.fail(core.ExprDivByZero)
			}
			return a / d
		}
	case token.REMAINDER:
		n = func(s *state) float64 {
			a, d := l(s), r(s)
			if d == 0 {
				return s.fail(core.ExprDivByZero)
			}
			return math.Mod(a, d)
		}
	case token.EXPONENT:
		n = func(s *state) float64 { return pow(s, l(s), r(s)) }
	case token.LESS:
		n = func(s *state) float64 { return truth(l(s) < r(s)) }
	case token.LESS_OR_EQUAL:
		n = func(s *state) float64 { return truth(l(s) <= r(s)) }
	case token.GREATER:
		n = func(s *state) float64 { return truth(l(s) > r(s)) }
	case token.GREATER_OR_EQUAL:
		n = func(s *state) float64 { return truth(l(s) >= r(s)) }
	case token.EQUAL, token.STRICT_EQUAL:
		n = func(s *state) float64 { return truth(l(s) == r(s)) }
	case token.NOT_EQUAL, token.STRICT_NOT_EQUAL:
		n = func(s *state) float64 { return truth(l(s) != r(s)) }
	case token.LOGICAL_AND:
		n = func(s *state) float64 {
			if a := l(s); a == 0 {
				return a
			}
			return r(s)
		}
	case token.LOGICAL_OR:
		n = func(s *state) float64 {
			if a := l(s); a != 0 {
				return a
			}
			return r(s)
		}
	default:
		return nil, false, unsupported(b.src, "operator %s", x.Operator)
	}

	n, c := b.folded(n, c1 && c2)
	return n, c, nil
}

// mathMember returns the name in Math.name.
func mathMember(x *ast.DotExpression) (string, bool) {
	id, is := x.Left.(*ast.Identifier)
	if !is || string(id.Name) != "Math" {
		return "", false
	}
	return string(x.Identifier.Name), true
}

func (b *builder) call(x *ast.CallExpression) (node, bool, error) {
	var name string
	switch callee := x.Callee.(type) {
	case *ast.Identifier:
		name = string(callee.Name)
	case *ast.DotExpression:
		var ok bool
		if name, ok = mathMember(callee); !ok {
			return nil, false, unsupported(b.src, "method call")
		}
	default:
		return nil, false, unsupported(b.src, "callee %T", x.Callee)
	}

	f, have := functions[name]
	if !have {
		return nil, false, unsupported(b.src, "unknown function %q", name)
	}
	if len(x.ArgumentList) < f.min || (f.max >= 0 && f.max < len(x.ArgumentList)) {
		return nil, false, unsupported(b.src, "%s() with %d arguments", name, len(x.ArgumentList))
	}

	var (
		args    = make([]node, len(x.ArgumentList))
		isConst = true
	)
	for i, a := range x.ArgumentList {
		n, c, err := b.build(a)
		if err != nil {
			return nil, false, err
		}
		args[i] = n
		isConst = isConst && c
	}

	impl := f.f
	n := func(s *state) float64 {
		var buf [4]float64
		vs := buf[:0]
		for _, a := range args {
			vs = append(vs, a(s))
		}
		return impl(s, vs)
	}

	n, c := b.folded(n, isConst)
	return n, c, nil
}
