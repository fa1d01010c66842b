package goja

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/fcurve/core"
)

type prop float64

func (p prop) Kind() core.PropertyKind       { return core.PropFloat }
func (p prop) Len() int                      { return 0 }
func (p prop) Float(i int) (float64, error) { return float64(p), nil }

type props map[string]float64

func (ps props) Resolve(id, path string) (core.Property, int, error) {
	x, have := ps[id+"."+path]
	if !have {
		return nil, -1, core.ErrPropertyNotFound
	}
	return prop(x), -1, nil
}

func (ps props) Object(id string) (core.Object, error) {
	return nil, core.ErrNoObject
}

func run(t *testing.T, i *Interpreter, code string, bs core.Bindings) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	env := &core.ScriptEnv{
		Expr:     code,
		Bindings: bs,
		Props:    props{"cube.size": 2.5},
	}
	return i.Exec(ctx, env, compiled)
}

func TestExecExpression(t *testing.T) {
	tests := []struct {
		code string
		want float64
	}{
		{`x * 2`, 6},
		{`Math.max(x, time)`, 10},
		{`x > 1`, 1},
		{`[1, 2, x].length`, 3},
		{`"abc".length + x;`, 6},
		{`var y = x + 1; y * y`, 16},
		{`if (x > 2) { return 1; } return -1;`, 1},
		{`_.bindings.x + _.bindings.time`, 13},
		{`prop("cube", "size") * x`, 7.5},
	}

	i := NewInterpreter()
	for _, tt := range tests {
		got, err := run(t, i, tt.code, core.Bindings{"time": 10, "x": 3})
		if err != nil {
			t.Fatalf("%s: %v", tt.code, err)
		}
		if got != tt.want {
			t.Fatalf("%s: got %v, wanted %v", tt.code, got, tt.want)
		}
	}
}

func TestExecErrors(t *testing.T) {
	i := NewInterpreter()
	for _, code := range []string{
		`likes + tacos`,
		`"chips"`,
		`var x = 1;`,
		`prop("cube", "nope")`,
		`throw "no"`,
	} {
		if _, err := run(t, i, code, core.Bindings{"time": 0}); err == nil {
			t.Fatalf("%s: didn't protest", code)
		}
	}
}

func TestCompileError(t *testing.T) {
	i := NewInterpreter()
	if _, err := i.Compile(context.Background(), `x +`); err == nil {
		t.Fatal("compiled")
	}
}

func TestCompileCached(t *testing.T) {
	i := NewInterpreter()
	ctx := context.Background()
	p1, err := i.Compile(ctx, `time * 3`)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := i.Compile(ctx, `time * 3`)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatal("not cached")
	}
}

func TestExecTimeout(t *testing.T) {
	code := `for (;;) { sleep(10); } 0;`

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	i := NewInterpreter()
	i.Testing = true
	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}

	env := &core.ScriptEnv{Expr: code}
	if _, err = i.Exec(ctx, env, compiled); err == nil {
		t.Fatal("didn't timeout")
	}
	if msg := err.Error(); msg != InterruptedMessage {
		t.Fatalf("surprised by \"%s\"", msg)
	}
}

func TestRequires(t *testing.T) {
	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{
		"ease": `function ease(t) { return t * t * (3 - 2 * t); }`,
		"half": `function half(x) { return x / 2; }`,
	})
	i.Requires = []string{"half"}

	got, err := run(t, i, `require("ease"); half(ease(x))`, core.Bindings{"x": 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.25 {
		t.Fatal(got)
	}

	i.Requires = []string{"missing"}
	if _, err := i.Compile(context.Background(), `1`); err == nil {
		t.Fatal("missing library didn't protest")
	}
}

func TestInlineRequires(t *testing.T) {
	provider := func(ctx context.Context, name string) (string, error) {
		return fmt.Sprintf("var %s = 1;", name), nil
	}
	got, err := InlineRequires(context.Background(), `require("a"); require("b"); a + b`, provider)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "var a = 1;") || !strings.Contains(got, "var b = 1;") || strings.Contains(got, "require") {
		t.Fatal(got)
	}
	if !strings.HasSuffix(got, "a + b") {
		t.Fatal(got)
	}

	if _, err = InlineRequires(context.Background(), `require(x)`, provider); err == nil {
		t.Fatal("bad arg didn't protest")
	}
}

func TestFileLibraryProvider(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lib.js" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `function twice(x) { return 2 * x; }`)
	}))
	defer ts.Close()

	p := MakeFileLibraryProvider(".")
	ctx := context.Background()

	src, err := p(ctx, nil, ts.URL+"/lib.js")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "twice") {
		t.Fatal(src)
	}

	if _, err = p(ctx, nil, ts.URL+"/nope.js"); err == nil {
		t.Fatal("404 didn't protest")
	}
	if _, err = p(ctx, nil, "nope"); err == nil {
		t.Fatal("bad link didn't protest")
	}
	if _, err = p(ctx, nil, "gopher://x"); err == nil {
		t.Fatal("bad protocol didn't protest")
	}
}

func TestDefaultInterpreter(t *testing.T) {
	if _, is := core.DefaultInterpreters[core.DefaultInterpreter].(*Interpreter); !is {
		t.Fatal("not registered")
	}

	e := &core.Evaluator{}
	d := &core.Driver{
		Type:       core.DriverExpression,
		Expression: `Math.floor(time / 2)`,
	}
	if x := e.EvaluateDriver(context.Background(), d, 7); x != 3 {
		t.Fatal(x)
	}
}
