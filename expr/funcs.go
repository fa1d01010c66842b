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

package expr

import (
	"math"
	"sort"

	"github.com/Comcast/fcurve/core"
)

type function struct {
	// min and max are the number of arguments.  A negative max
	// means any number.
	min, max int
	f        func(s *state, args []float64) float64
}

// domain returns x unless it's NaN, which is a math domain error.
func domain(s *state, x float64) float64 {
	if math.IsNaN(x) {
		return s.fail(core.ExprMathError)
	}
	return x
}

func unary(f func(float64) float64) function {
	return function{1, 1, func(s *state, args []float64) float64 {
		return domain(s, f(args[0]))
	}}
}

func binary(f func(float64, float64) float64) function {
	return function{2, 2, func(s *state, args []float64) float64 {
		return domain(s, f(args[0], args[1]))
	}}
}

func pow(s *state, x, y float64) float64 {
	if x == 0 && y < 0 {
		return s.fail(core.ExprDivByZero)
	}
	return domain(s, math.Pow(x, y))
}

func smoothstep(a, b, x float64) float64 {
	if x <= a {
		return 0
	}
	if x >= b {
		return 1
	}
	t := (x - a) / (b - a)
	return t * t * (3 - 2*t)
}

var mathConstants = map[string]float64{
	"PI":      math.Pi,
	"E":       math.E,
	"LN2":     math.Ln2,
	"LN10":    math.Ln10,
	"SQRT2":   math.Sqrt2,
	"SQRT1_2": math.Sqrt2 / 2,
}

var functions = map[string]function{
	"abs":   unary(math.Abs),
	"fabs":  unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"trunc": unary(math.Trunc),
	"int":   unary(math.Trunc),
	"round": unary(math.Round),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"exp":   unary(math.Exp),
	"sqrt":  unary(math.Sqrt),
	"cbrt":  unary(math.Cbrt),
	"sign": unary(func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return x
	}),
	"radians": unary(func(x float64) float64 { return x * math.Pi / 180 }),
	"degrees": unary(func(x float64) float64 { return x * 180 / math.Pi }),

	"atan2":    binary(math.Atan2),
	"hypot":    binary(math.Hypot),
	"copysign": binary(math.Copysign),

	"log": {1, 2, func(s *state, args []float64) float64 {
		x := args[0]
		if x <= 0 {
			return s.fail(core.ExprMathError)
		}
		if len(args) == 1 {
			return math.Log(x)
		}
		base := args[1]
		if base <= 0 {
			return s.fail(core.ExprMathError)
		}
		lb := math.Log(base)
		if lb == 0 {
			return s.fail(core.ExprDivByZero)
		}
		return math.Log(x) / lb
	}},
	"pow": {2, 2, func(s *state, args []float64) float64 {
		return pow(s, args[0], args[1])
	}},
	"fmod": {2, 2, func(s *state, args []float64) float64 {
		if args[1] == 0 {
			return s.fail(core.ExprDivByZero)
		}
		return math.Mod(args[0], args[1])
	}},
	"min": {1, -1, func(s *state, args []float64) float64 {
		acc := args[0]
		for _, x := range args[1:] {
			acc = math.Min(acc, x)
		}
		return acc
	}},
	"max": {1, -1, func(s *state, args []float64) float64 {
		acc := args[0]
		for _, x := range args[1:] {
			acc = math.Max(acc, x)
		}
		return acc
	}},
	"median": {1, -1, func(s *state, args []float64) float64 {
		vs := append([]float64(nil), args...)
		sort.Float64s(vs)
		n := len(vs)
		if n%2 == 1 {
			return vs[n/2]
		}
		return (vs[n/2-1] + vs[n/2]) / 2
	}},
	"lerp": {3, 3, func(s *state, args []float64) float64 {
		a, b, t := args[0], args[1], args[2]
		return a + (b-a)*t
	}},
	"clamp": {1, 3, func(s *state, args []float64) float64 {
		lo, hi := 0.0, 1.0
		if len(args) == 3 {
			lo, hi = args[1], args[2]
		} else if len(args) == 2 {
			return s.fail(core.ExprFailure)
		}
		return math.Max(lo, math.Min(hi, args[0]))
	}},
	"smoothstep": {3, 3, func(s *state, args []float64) float64 {
		return smoothstep(args[0], args[1], args[2])
	}},
}
