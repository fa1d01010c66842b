package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Comcast/fcurve/xform"
	. "github.com/Comcast/fcurve/util/testutil"
)

type fakeProp []float64

func (p fakeProp) Kind() PropertyKind { return PropFloat }

func (p fakeProp) Len() int {
	if len(p) == 1 {
		return 0
	}
	return len(p)
}

func (p fakeProp) Float(i int) (float64, error) {
	if len(p) == 1 {
		return p[0], nil
	}
	return p[i], nil
}

type fakeBone struct {
	pose  xform.Mat4
	local xform.Mat4
}

func (b *fakeBone) Matrix() xform.Mat4  { return b.pose }
func (b *fakeBone) Local() xform.Mat4   { return b.local }
func (b *fakeBone) Location() xform.Vec3 { return b.local.Translation() }
func (b *fakeBone) Euler() (xform.Euler, xform.Order, bool) {
	return xform.Euler{}, 0, false
}

type fakeObject struct {
	world xform.Mat4
	bones map[string]*fakeBone
}

func (o *fakeObject) Matrix() xform.Mat4  { return o.world }
func (o *fakeObject) Local() xform.Mat4   { return o.world }
func (o *fakeObject) Location() xform.Vec3 { return o.world.Translation() }
func (o *fakeObject) Euler() (xform.Euler, xform.Order, bool) {
	return xform.EulerFromMat4(o.world, xform.XYZ), xform.XYZ, true
}

func (o *fakeObject) Bone(name string) Transformable {
	if b, have := o.bones[name]; have {
		return b
	}
	return nil
}

type fakeScene struct {
	objects map[string]*fakeObject
	props   map[string]fakeProp
}

var indexed = regexp.MustCompile(`^(.*)\[(\d+)\]$`)

func (s *fakeScene) Resolve(id, path string) (Property, int, error) {
	index := -1
	if m := indexed.FindStringSubmatch(path); m != nil {
		path = m[1]
		index, _ = strconv.Atoi(m[2])
	}
	p, have := s.props[id+"."+path]
	if !have {
		return nil, -1, ErrPropertyNotFound
	}
	return p, index, nil
}

func (s *fakeScene) Object(id string) (Object, error) {
	if o, have := s.objects[id]; have {
		return o, nil
	}
	return nil, ErrNoObject
}

func propVar(name, id, path string) *Variable {
	return &Variable{
		Name:    name,
		Type:    VarSingleProp,
		Targets: []*Target{{ID: id, Path: path}},
	}
}

func rotZ(a float64) xform.Mat4 {
	return xform.FromMat3(xform.Euler{0, 0, a}.Mat3(xform.XYZ))
}

func newScene() *fakeScene {
	return &fakeScene{
		objects: map[string]*fakeObject{
			"a": {world: xform.Identity4()},
			"b": {world: xform.Identity4()},
			"c": {world: rotZ(math.Pi / 2)},
			"d": {world: xform.Compose(xform.Vec3{3, 4, 0}, xform.Identity3(), xform.Vec3{1, 1, 1})},
			"e": {world: xform.Compose(xform.Vec3{1, 2, 3}, xform.Euler{0, 0, math.Pi / 4}.Mat3(xform.XYZ), xform.Vec3{2, 2, 2})},
			"rig": {
				world: xform.Compose(xform.Vec3{0, 0, 1}, xform.Identity3(), xform.Vec3{1, 1, 1}),
				bones: map[string]*fakeBone{
					"arm": {
						pose:  xform.Compose(xform.Vec3{0, 2, 0}, xform.Identity3(), xform.Vec3{1, 1, 1}),
						local: xform.Identity4(),
					},
				},
			},
		},
		props: map[string]fakeProp{
			"a.four": {4},
			"b.six":  {6},
			"a.arr":  {1, 2, 3},
		},
	}
}

type fakeExpr struct {
	usesTime bool
	f        func(ps []float64) (float64, ExprStatus)
}

func (e *fakeExpr) Valid() bool          { return true }
func (e *fakeExpr) UsesParam(i int) bool { return i != 0 || e.usesTime }
func (e *fakeExpr) Eval(ps []float64) (float64, ExprStatus) {
	return e.f(ps)
}

type fakeCompiler struct {
	exprs    map[string]*fakeExpr
	compiles atomic.Int32
}

func (c *fakeCompiler) Compile(src string, params []string) (CompiledExpression, error) {
	c.compiles.Add(1)
	if e, have := c.exprs[src]; have {
		return e, nil
	}
	return nil, fmt.Errorf("unsupported: %s", src)
}

func newCompiler() *fakeCompiler {
	return &fakeCompiler{
		exprs: map[string]*fakeExpr{
			"x + y": {f: func(ps []float64) (float64, ExprStatus) {
				return ps[1] + ps[2], ExprSuccess
			}},
			"time * 2": {usesTime: true, f: func(ps []float64) (float64, ExprStatus) {
				return ps[0] * 2, ExprSuccess
			}},
			"x / 0": {f: func(ps []float64) (float64, ExprStatus) {
				return 0, ExprDivByZero
			}},
			"sqrt(-x)": {f: func(ps []float64) (float64, ExprStatus) {
				return 0, ExprMathError
			}},
		},
	}
}

type fakeInterpreter struct {
	calls int
	last  Bindings
	err   error
}

func (i *fakeInterpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	return code, nil
}

func (i *fakeInterpreter) Exec(ctx context.Context, env *ScriptEnv, compiled interface{}) (float64, error) {
	i.calls++
	i.last = env.Bindings.Copy()
	if i.err != nil {
		return 0, i.err
	}
	return env.Bindings["x"] * 10, nil
}

func TestDriverAverageScenario(t *testing.T) {
	e := &Evaluator{Props: newScene()}
	d := &Driver{
		Type: DriverAverage,
		Variables: []*Variable{
			propVar("x", "a", "four"),
			propVar("y", "b", "six"),
		},
	}

	ctx := context.Background()
	for _, x := range []float64{-3, 0, 100} {
		CheckNear(t, "average", e.EvaluateDriver(ctx, d, x), 5)
	}
	if d.Last() != 5 || d.Variables[1].Last() != 6 {
		t.Fatal(d.Last(), d.Variables[1].Last())
	}
	if e.DriverDependsOnTime(d) {
		t.Fatal("average depends on time?")
	}
}

func TestDriverCombinations(t *testing.T) {
	var (
		ctx = context.Background()
		e   = &Evaluator{Props: newScene()}
		vs  = func(paths ...string) []*Variable {
			acc := make([]*Variable, len(paths))
			for i, p := range paths {
				acc[i] = propVar(fmt.Sprintf("v%d", i), "a", p)
			}
			return acc
		}
	)

	tests := []struct {
		typ  DriverType
		vars []*Variable
		want float64
	}{
		{DriverSum, vs("four", "four", "four"), 12},
		{DriverAverage, vs("four", "four", "four"), 4},
		{DriverAverage, nil, 0},
		{DriverMin, vs("four"), 4},
		{DriverMax, vs("four"), 4},
		{DriverMin, vs("arr[2]", "four", "arr[0]"), 1},
		{DriverMax, vs("arr[0]", "four", "arr[2]"), 4},
		{DriverSum, vs("arr[1]"), 2},
	}

	for _, tt := range tests {
		d := &Driver{Type: tt.typ, Variables: tt.vars}
		if got := e.EvaluateDriver(ctx, d, 0); got != tt.want {
			t.Fatalf("%s: got %v, wanted %v", tt.typ, got, tt.want)
		}
	}
}

func TestDriverUnresolvedTarget(t *testing.T) {
	var (
		ctx = context.Background()
		e   = &Evaluator{Props: newScene()}
		d   = &Driver{
			Type:      DriverSum,
			Variables: []*Variable{propVar("x", "a", "nope"), propVar("y", "a", "four")},
		}
	)

	if v := e.EvaluateDriver(ctx, d, 0); v != 4 {
		t.Fatal(v)
	}
	if !d.Invalid() || !d.Variables[0].Targets[0].Invalid() {
		t.Fatal("not invalid")
	}

	// Invalid drivers short-circuit.
	if v := e.EvaluateDriver(ctx, d, 0); v != 0 {
		t.Fatal(v)
	}

	d.Variables[0].Targets[0].Path = "four"
	d.ClearInvalid()
	if v := e.EvaluateDriver(ctx, d, 0); v != 8 {
		t.Fatal(v)
	}
	if d.Variables[0].Targets[0].Invalid() {
		t.Fatal("still invalid")
	}
}

func TestDriverIndexOutOfRange(t *testing.T) {
	e := &Evaluator{Props: newScene()}
	for _, path := range []string{"arr[3]", "arr"} {
		d := &Driver{Type: DriverSum, Variables: []*Variable{propVar("x", "a", path)}}
		if v := e.EvaluateDriver(context.Background(), d, 0); v != 0 || !d.Invalid() {
			t.Fatalf("%s: %v %v", path, v, d.Invalid())
		}
	}
}

func TestDriverRotationDiff(t *testing.T) {
	e := &Evaluator{Props: newScene()}
	v := &Variable{
		Name:    "r",
		Type:    VarRotationDiff,
		Targets: []*Target{{ID: "a"}, {ID: "b"}},
	}
	d := &Driver{Type: DriverSum, Variables: []*Variable{v}}

	ctx := context.Background()
	CheckNear(t, "same", e.EvaluateDriver(ctx, d, 0), 0)

	v.Targets[1].ID = "c"
	CheckNear(t, "quarter", e.EvaluateDriver(ctx, d, 0), math.Pi/2)

	v.Targets[1].ID = "missing"
	if x := e.EvaluateDriver(ctx, d, 0); x != 0 || !d.Invalid() {
		t.Fatal(x)
	}
}

func TestDriverLocationDiff(t *testing.T) {
	e := &Evaluator{Props: newScene()}
	v := &Variable{
		Name:    "l",
		Type:    VarLocationDiff,
		Targets: []*Target{{ID: "a"}, {ID: "d"}},
	}
	d := &Driver{Type: DriverSum, Variables: []*Variable{v}}
	ctx := context.Background()

	CheckNear(t, "objects", e.EvaluateDriver(ctx, d, 0), 5)

	// The bone's world position is (0, 2, 1).
	v.Targets[1] = &Target{ID: "rig", Bone: "arm"}
	CheckNear(t, "bone", e.EvaluateDriver(ctx, d, 0), math.Sqrt(5))
}

func TestDriverTransformChannel(t *testing.T) {
	e := &Evaluator{Props: newScene()}
	ctx := context.Background()

	tests := []struct {
		target *Target
		want   float64
	}{
		{&Target{ID: "e", Channel: LocX}, 1},
		{&Target{ID: "e", Channel: LocZ}, 3},
		{&Target{ID: "e", Channel: ScaleAvg}, 2},
		{&Target{ID: "e", Channel: ScaleY}, 2},
		{&Target{ID: "e", Channel: RotZ}, math.Pi / 4},
		{&Target{ID: "e", Channel: RotZ, RotationMode: RotZYX}, math.Pi / 4},
		{&Target{ID: "e", Channel: RotW, RotationMode: RotQuaternion}, math.Cos(math.Pi / 8)},
		{&Target{ID: "e", Channel: RotW, RotationMode: RotQuaternion, QuatAngles: true}, math.Pi / 4},
		{&Target{ID: "e", Channel: RotZ, RotationMode: RotSwingTwistZ}, math.Pi / 4},
		{&Target{ID: "e", Channel: LocX, Space: SpaceTransform}, 1},
		{&Target{ID: "rig", Bone: "arm", Channel: LocY}, 2},
		{&Target{ID: "rig", Bone: "arm", Channel: LocZ}, 1},
	}

	for _, tt := range tests {
		d := &Driver{
			Type: DriverSum,
			Variables: []*Variable{{
				Name:    "t",
				Type:    VarTransformChannel,
				Targets: []*Target{tt.target},
			}},
		}
		if got := e.EvaluateDriver(ctx, d, 0); !Near(got, tt.want, 1e-6) {
			t.Fatalf("%s: got %v, wanted %v", JS(tt.target), got, tt.want)
		}
	}
}

func TestDriverExpressionFastPath(t *testing.T) {
	var (
		ctx  = context.Background()
		comp = newCompiler()
		in   = &fakeInterpreter{}
		e    = &Evaluator{
			Props:        newScene(),
			Compiler:     comp,
			Interpreters: InterpretersMap{"fake": in},
		}
		d = &Driver{
			Type:        DriverExpression,
			Expression:  "x + y",
			Interpreter: "fake",
			Variables:   []*Variable{propVar("x", "a", "four"), propVar("y", "b", "six")},
		}
	)

	CheckNear(t, "fast", e.EvaluateDriver(ctx, d, 0), 10)
	CheckNear(t, "fast again", e.EvaluateDriver(ctx, d, 1), 10)
	if n := comp.compiles.Load(); n != 1 {
		t.Fatalf("compiled %d times", n)
	}
	if in.calls != 0 {
		t.Fatal("fallback used")
	}
	if e.DriverDependsOnTime(d) {
		t.Fatal("depends on time")
	}

	d.SetExpression("time * 2")
	CheckNear(t, "time", e.EvaluateDriver(ctx, d, 21), 42)
	if !e.DriverDependsOnTime(d) {
		t.Fatal("doesn't depend on time")
	}
	if n := comp.compiles.Load(); n != 2 {
		t.Fatalf("compiled %d times", n)
	}
}

func TestDriverExpressionMathErrors(t *testing.T) {
	ctx := context.Background()
	e := &Evaluator{Props: newScene(), Compiler: newCompiler()}

	for _, src := range []string{"x / 0", "sqrt(-x)"} {
		d := &Driver{
			Type:       DriverExpression,
			Expression: src,
			Variables:  []*Variable{propVar("x", "a", "four")},
		}
		if v := e.EvaluateDriver(ctx, d, 0); v != 0 || !d.Invalid() {
			t.Fatalf("%s: %v %v", src, v, d.Invalid())
		}

		e.InvalidateDriverCache(d, false, false)
		if !d.Invalid() {
			t.Fatal("nothing changed but cleared")
		}
		e.InvalidateDriverCache(d, false, true)
		if d.Invalid() {
			t.Fatal("still invalid")
		}
	}
}

func TestDriverExpressionFallback(t *testing.T) {
	var (
		ctx = context.Background()
		in  = &fakeInterpreter{}
		e   = &Evaluator{
			Props:        newScene(),
			Compiler:     newCompiler(),
			Interpreters: InterpretersMap{DefaultInterpreter: in},
		}
		d = &Driver{
			Type:       DriverExpression,
			Expression: "frobnicate(x)",
			Variables:  []*Variable{propVar("x", "a", "four")},
		}
	)

	CheckNear(t, "fallback", e.EvaluateDriver(ctx, d, 7), 40)
	if in.calls != 1 || in.last["time"] != 7 || in.last["x"] != 4 {
		t.Fatal(in.calls, in.last)
	}
	if !e.DriverDependsOnTime(d) {
		t.Fatal("function call should depend on time")
	}

	in.err = errors.New("boom")
	if v := e.EvaluateDriver(ctx, d, 7); v != 0 || !d.Invalid() {
		t.Fatal(v)
	}

	// No interpreter at all.
	e.Interpreters = InterpretersMap{}
	d.ClearInvalid()
	if v := e.EvaluateDriver(ctx, d, 7); v != 0 {
		t.Fatal(v)
	}

	// Bad variable names can't be bound.
	e.Interpreters = InterpretersMap{DefaultInterpreter: in}
	in.err = nil
	d.Variables[0].Name = "1x"
	d.InvalidateExpression(false, true)
	if v := e.EvaluateDriver(ctx, d, 7); v != 0 || !d.Invalid() {
		t.Fatal(v)
	}
}

func TestDriverDependsOnTimeHeuristic(t *testing.T) {
	e := &Evaluator{}
	tests := []struct {
		expr string
		want bool
	}{
		{"", false},
		{"x + y", false},
		{"time + 1", true},
		{"sin(x)", true},
	}
	for _, tt := range tests {
		d := &Driver{Type: DriverExpression, Expression: tt.expr}
		if got := e.DriverDependsOnTime(d); got != tt.want {
			t.Fatalf("%q: %v", tt.expr, got)
		}
	}
	if e.DriverDependsOnTime(&Driver{Type: DriverSum, Expression: "time"}) {
		t.Fatal("sum drivers don't depend on time")
	}
}

func TestDriverConcurrentCompile(t *testing.T) {
	var (
		ctx = context.Background()
		e   = &Evaluator{Props: newScene(), Compiler: newCompiler()}
		d   = &Driver{
			Type:       DriverExpression,
			Expression: "x + y",
			Variables:  []*Variable{propVar("x", "a", "four"), propVar("y", "b", "six")},
		}
		wg      sync.WaitGroup
		results = make([]float64, 32)
		handles = make([]*compiledHandle, len(results))
		start   = make(chan struct{})
	)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = e.EvaluateDriver(ctx, d, float64(i))
			handles[i] = d.compiled.Load()
		}(i)
	}
	close(start)
	wg.Wait()

	h := d.compiled.Load()
	if h == nil || !h.valid() {
		t.Fatal("no handle")
	}
	for i := range results {
		if results[i] != 10 {
			t.Fatalf("result %d: %v", i, results[i])
		}
		if handles[i] != h {
			t.Fatalf("goroutine %d saw another handle", i)
		}
	}
}

func TestDriverConcurrentFallback(t *testing.T) {
	var (
		ctx = context.Background()
		in  = &fakeInterpreter{}
		e   = &Evaluator{
			Props:        newScene(),
			Compiler:     newCompiler(),
			Interpreters: InterpretersMap{DefaultInterpreter: in},
		}
		d = &Driver{
			Type:       DriverExpression,
			Expression: "frobnicate(x)",
			Variables:  []*Variable{propVar("x", "a", "four")},
		}
		wg      sync.WaitGroup
		results = make([]float64, 8)
		start   = make(chan struct{})
	)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = e.EvaluateDriver(ctx, d, float64(i))
		}(i)
	}
	close(start)
	wg.Wait()

	for i, x := range results {
		if x != 40 {
			t.Fatalf("result %d: %v", i, x)
		}
	}
	if in.calls != len(results) {
		t.Fatal(in.calls)
	}

	// A bad name is refused without touching the variable.
	v := d.Variables[0]
	v.Name = "1x"
	d.InvalidateExpression(false, true)
	if x := e.EvaluateDriver(ctx, d, 0); x != 0 || !d.Invalid() {
		t.Fatal(x)
	}
	if v.Flags != 0 {
		t.Fatal(v.Flags)
	}
	if v.ValidateName() || v.Flags&NameStartsWithNumber == 0 {
		t.Fatal(v.Flags.Problems())
	}
}

func TestDriverCurvePassThrough(t *testing.T) {
	ctx := context.Background()
	e := &Evaluator{Props: newScene()}
	c := &Curve{
		Path: "x",
		Driver: &Driver{
			Type:      DriverSum,
			Variables: []*Variable{propVar("x", "a", "four")},
		},
	}

	if v := e.EvaluateCurve(ctx, c, 99); v != 4 {
		t.Fatal(v)
	}

	c.Modifiers = &fakeStack{exclude: true}
	if v := e.EvaluateCurve(ctx, c, 99); v != 0 {
		t.Fatal(v)
	}

	c.ModifiersOff = true
	if v := e.EvaluateCurve(ctx, c, 99); v != 4 {
		t.Fatal(v)
	}

	// With keys, the driver's output is the time.
	c.Keys = []ControlPoint{linearKey(0, 0), linearKey(10, 100)}
	CheckNear(t, "driven", e.EvaluateCurve(ctx, c, 99), 40)
	CheckNear(t, "undriven", e.EvaluateCurveWithoutDriver(c, 5), 50)
}

type fakeStack struct {
	exclude bool
}

func (s *fakeStack) Len() int                                                  { return 1 }
func (s *fakeStack) StorageSize() int                                          { return 1 }
func (s *fakeStack) RemapTime(st []float64, c *Curve, cvalue, t float64) float64 { return t }
func (s *fakeStack) RemapValue(st []float64, c *Curve, v, t float64) float64    { return v }
func (s *fakeStack) GeneratesCurve() bool                                      { return false }
func (s *fakeStack) Excludes(t float64) bool                                   { return s.exclude }
func (s *fakeStack) CycleType() CycleType                                      { return CycleNone }
func (s *fakeStack) KeyframesUsable() bool                                     { return true }

func TestVariableNames(t *testing.T) {
	tests := []struct {
		name string
		want NameFlags
	}{
		{"x", 0},
		{"arm_y2", 0},
		{"", NameEmpty},
		{"2x", NameStartsWithNumber},
		{"_x", NameStartsWithSpecial},
		{"$x", NameStartsWithSpecial},
		{"a b", NameHasSpace},
		{"a.b", NameHasDot},
		{"a-b", NameHasSpecial},
		{"time", NameReserved},
		{"while", NameReserved},
	}
	for _, tt := range tests {
		if got := ValidateVariableName(tt.name); got != tt.want {
			t.Fatalf("%q: got %b (%v), wanted %b", tt.name, got, got.Problems(), tt.want)
		}
	}
}

func TestDriverVariables(t *testing.T) {
	d := &Driver{Type: DriverExpression}
	d.compiled.Store(&compiledHandle{})
	d.markInvalid()

	a := d.AddVariable(VarSingleProp)
	b := d.AddVariable(VarLocationDiff)
	c := d.AddVariable(VarSingleProp)

	if a.Name != "var" || b.Name != "var_001" || c.Name != "var_002" {
		t.Fatal(a.Name, b.Name, c.Name)
	}
	if len(b.Targets) != 2 || len(a.Targets) != 1 {
		t.Fatal(len(a.Targets), len(b.Targets))
	}
	if d.compiled.Load() != nil || d.Invalid() {
		t.Fatal("cache not invalidated")
	}

	if name := d.RenameVariable(2, "var_001"); name != "var_001_001" {
		t.Fatal(name)
	}

	d.compiled.Store(&compiledHandle{})
	d.RemoveVariable(0)
	if len(d.Variables) != 2 || d.Variables[0] != b || d.compiled.Load() != nil {
		t.Fatal("not removed")
	}

	d.compiled.Store(&compiledHandle{})
	e := d.Copy()
	if e.compiled.Load() != nil || e.Variables[0] == b || e.Variables[0].Name != b.Name {
		t.Fatal("bad copy")
	}

	if TargetsUsed(VarRotationDiff) != 2 || TargetsUsed(VarTransformChannel) != 1 {
		t.Fatal("targets used")
	}
}
