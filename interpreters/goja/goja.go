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

// Package goja is a scripting fallback for driver expressions that
// the expression compiler can't handle.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Comcast/fcurve/core"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
	"github.com/patrickmn/go-cache"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// ProgramTTL is how long a compiled program stays in an
	// Interpreter's cache after its last use.
	ProgramTTL = 10 * time.Minute
)

// init adds a Interpreter as one of the DefaultInterpreters
func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// Interpreter implements core.Interpreter using Goja, which is a
// Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// Requires names libraries that are prepended to every
	// expression.  Expressions can also start with
	// require("name") statements.
	Requires []string

	// LibraryProvider resolves library names.  When nil,
	// DefaultLibraryProvider is used.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)

	programs *cache.Cache
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		programs: cache.New(ProgramTTL, 2*ProgramTTL),
	}
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a library provider that supports
// (barely) names that are URLs with protocols of "file", "http",
// and "https". File names are relative to dir.  There currently is
// no additional control when using HTTP/HTTPS.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			// ToDo: Maybe protest any ".."?
			bs, err := ioutil.ReadFile(dir + "/" + parts[1])
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequest("GET", name, nil)
			if err != nil {
				return "", err
			}
			resp, err := http.DefaultClient.Do(req.WithContext(ctx))
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("library fetch status %s %d",
					resp.Status, resp.StatusCode)
			}
			bs, err := ioutil.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

// MakeMapLibraryProvider makes a library provider backed by a map.
func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

// wrapSrc makes a program whose value is the value of the driver
// code.  Code that parses as a script is used as is, and its value is
// the value of its last statement.  Anything else (code with a
// top-level return) becomes a function body.
func wrapSrc(src string) string {
	if _, err := parser.ParseFile(nil, "", src, 0); err == nil {
		return src
	}
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile inlines require()d libraries, prepends the interpreter's
// Requires, and calls goja.Compile.  Programs are cached by code.
//
// This method can block if the interpreter's library Provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, code string) (interface{}, error) {
	if i.programs != nil {
		if p, have := i.programs.Get(code); have {
			return p, nil
		}
	}

	body, err := InlineRequires(ctx, code, i.ProvideLibrary)
	if err != nil {
		return nil, err
	}

	var libsSrc string
	for _, lib := range i.Requires {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	src := libsSrc + wrapSrc(body)

	p, err := goja.Compile("", src, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + src)
	}

	if i.programs != nil {
		i.programs.Set(code, p, cache.DefaultExpiration)
	}

	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// Exec implements the Interpreter method of the same name.
//
// Each binding (every driver variable and "time") is a global
// variable.  The following are also available:
//
//    _.bindings: the map of the current bindings.
//    _.expr: the driver's expression.
//    prop(id, path): read a property from the scene.
//    log(x): log the given value.
//
// For testing only:
//
//    sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
//
// The code must evaluate to a number or a boolean.
func (i *Interpreter) Exec(ctx context.Context, env *core.ScriptEnv, compiled interface{}) (float64, error) {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, env.Expr); err != nil {
			return 0, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return 0, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	o := goja.New()

	bs := make(map[string]interface{}, len(env.Bindings))
	for name, x := range env.Bindings {
		bs[name] = x
		if err := o.Set(name, x); err != nil {
			return 0, err
		}
	}

	o.Set("_", map[string]interface{}{
		"bindings": bs,
		"expr":     env.Expr,
	})

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	o.Set("prop", func(id, path string) float64 {
		if env.Props == nil {
			protest(o, "no properties")
		}
		prop, index, err := env.Props.Resolve(id, path)
		if err != nil {
			protest(o, err.Error())
		}
		if index < 0 {
			index = 0
		}
		x, err := prop.Float(index)
		if err != nil {
			protest(o, err.Error())
		}
		return x
	})

	o.Set("log", func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			log.Println("goja.log (can't marshal: " + err.Error() + ")")
		} else {
			log.Println(string(js))
		}
		return x
	})

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return 0, Interrupted
		}
		return 0, err
	}

	switch vv := v.Export().(type) {
	case int64:
		return float64(vv), nil
	case float64:
		return vv, nil
	case bool:
		if vv {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, errors.New("expression has no value")
	default:
		return 0, fmt.Errorf("%#v (%T) isn't a number", vv, vv)
	}
}
