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

// Package library loads documents that hold a scene and the curves
// that animate it.
//
// A document is YAML (or JSON):
//
//	name: bounce
//	start: 1
//	end: 48
//	objects:
//	  - id: ball
//	    location: [0, 0, 1]
//	    props: {gain: 0.5}
//	curves:
//	  - name: height
//	    path: location
//	    index: 2
//	    keys:
//	      - {time: 1, value: 0}
//	      - {time: 24, value: 3}
//	    modifiers:
//	      - {type: cycles}
//	    driver:
//	      type: expression
//	      expr: gain * 2
//	      vars:
//	        - name: gain
//	          type: single_prop
//	          targets: [{id: ball, path: gain}]
//
// Documents are parsed with a YAML decoder that produces
// map[string]interface{}, and then decoded like JSON, so the JSON
// struct tags of core and scene apply.
package library

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/expr"
	"github.com/Comcast/fcurve/interpreters"
	"github.com/Comcast/fcurve/modifiers"
	"github.com/Comcast/fcurve/scene"

	"github.com/jsccast/yaml"
)

// Entry is a named curve in a Library.
type Entry struct {
	Name  string
	Curve *core.Curve
}

// entry is the document form of an Entry.  The curve's properties
// sit next to the name and the modifiers.
type entry struct {
	Name      string        `json:"name,omitempty"`
	Modifiers []interface{} `json:"modifiers,omitempty"`
}

func (e *Entry) UnmarshalJSON(bs []byte) error {
	var x entry
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	c := &core.Curve{}
	if err := json.Unmarshal(bs, c); err != nil {
		return err
	}
	if x.Modifiers != nil {
		s, err := modifiers.DecodeStack(x.Modifiers)
		if err != nil {
			return fmt.Errorf("curve %q: %w", x.Name, err)
		}
		c.Modifiers = s
	}
	e.Name, e.Curve = x.Name, c
	return nil
}

func (e *Entry) MarshalJSON() ([]byte, error) {
	js, err := json.Marshal(e.Curve)
	if err != nil {
		return nil, err
	}
	var x map[string]interface{}
	if err = json.Unmarshal(js, &x); err != nil {
		return nil, err
	}
	if e.Name != "" {
		x["name"] = e.Name
	}
	if s, is := e.Curve.Modifiers.(*modifiers.Stack); is && s.Len() > 0 {
		if x["modifiers"], err = modifiers.EncodeStack(s); err != nil {
			return nil, err
		}
	}
	return json.Marshal(x)
}

// Library is a scene plus the curves that animate it.
type Library struct {
	Name string `json:"name,omitempty"`
	Doc  string `json:"doc,omitempty"`

	// Start and End are the frame range for playback and
	// baking.  When both are zero, Range uses the keyed range of
	// the curves.
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`

	// FPS is frames per second for playback.
	FPS float64 `json:"fps,omitempty"`

	Objects []*scene.Object `json:"objects,omitempty"`
	Curves  []*Entry        `json:"curves,omitempty"`

	// Scene holds the Objects once the library is compiled.
	Scene *scene.Scene `json:"-"`

	// Evaluator reads from Scene.  Compile makes one with the
	// standard expression compiler and interpreters.
	Evaluator *core.Evaluator `json:"-"`

	names map[string]*core.Curve
}

// DefaultFPS is used when a document doesn't say.
const DefaultFPS = 24

// Parse reads and compiles a document.
func Parse(bs []byte) (*Library, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	js, err := json.Marshal(stringKeys(x))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	var l Library
	if err = json.Unmarshal(js, &l); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err = l.Compile(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Load reads and compiles the document in the given file.
func Load(filename string) (*Library, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	l, err := Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return l, nil
}

// name returns the name for a curve: its given name, or its path
// (with an index when it isn't zero).
func (e *Entry) name() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Curve.Index == 0 {
		return e.Curve.Path
	}
	return fmt.Sprintf("%s[%d]", e.Curve.Path, e.Curve.Index)
}

// Compile builds the scene, sorts keys, computes handles and checks
// driver variable names.  Parse calls Compile.
func (l *Library) Compile() error {
	l.Scene = scene.NewScene()
	for i, o := range l.Objects {
		if o == nil {
			return fmt.Errorf("object %d is empty", i)
		}
		for k, v := range o.Props {
			o.Props[k] = enums(v)
		}
		if err := l.Scene.Add(o); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}

	l.names = make(map[string]*core.Curve, len(l.Curves))
	for i, e := range l.Curves {
		if e == nil || e.Curve == nil {
			return fmt.Errorf("curve %d is empty", i)
		}
		name := e.name()
		if name == "" {
			return fmt.Errorf("curve %d has no name or path", i)
		}
		if _, have := l.names[name]; have {
			return fmt.Errorf("duplicate curve %q", name)
		}
		e.Name = name
		l.names[name] = e.Curve

		c := e.Curve
		c.Sort()
		c.RecalcHandles()
		if d := c.Driver; d != nil {
			for _, v := range d.Variables {
				v.ValidateName()
			}
		}
	}

	if l.Evaluator == nil {
		l.Evaluator = &core.Evaluator{
			Compiler:     expr.NewCompiler(),
			Interpreters: interpreters.Standard(),
		}
	}
	l.Evaluator.Props = l.Scene
	l.Evaluator.Space = l.Scene

	return nil
}

// Find returns the named curve or nil.
func (l *Library) Find(name string) *core.Curve {
	return l.names[name]
}

// Names returns the curve names in document order.
func (l *Library) Names() []string {
	acc := make([]string, 0, len(l.Curves))
	for _, e := range l.Curves {
		acc = append(acc, e.Name)
	}
	return acc
}

// Add adds a curve.
func (l *Library) Add(name string, c *core.Curve) error {
	e := &Entry{Name: name, Curve: c}
	name = e.name()
	if l.names == nil {
		l.names = make(map[string]*core.Curve)
	}
	if _, have := l.names[name]; have {
		return fmt.Errorf("duplicate curve %q", name)
	}
	e.Name = name
	l.names[name] = c
	l.Curves = append(l.Curves, e)
	return nil
}

// Eval evaluates the named curve at the given frame.
func (l *Library) Eval(ctx context.Context, name string, frame float64) (float64, error) {
	c := l.Find(name)
	if c == nil {
		return 0, fmt.Errorf("no curve %q", name)
	}
	return l.Evaluator.EvaluateCurve(ctx, c, frame), nil
}

// Range returns the frame range: Start and End when given, or else
// the range covered by the curves' keys and samples.
func (l *Library) Range() (start, end float64) {
	if l.Start != 0 || l.End != 0 {
		return l.Start, l.End
	}
	start, end = math.Inf(1), math.Inf(-1)
	for _, e := range l.Curves {
		s, t, ok := e.Curve.Range(false, false)
		if !ok {
			continue
		}
		start, end = math.Min(start, s), math.Max(end, t)
	}
	if end < start {
		return 0, 0
	}
	return start, end
}

// Rate returns FPS or DefaultFPS.
func (l *Library) Rate() float64 {
	if l.FPS <= 0 {
		return DefaultFPS
	}
	return l.FPS
}

// Frames evaluates every curve at a frame.
func (l *Library) Frames(ctx context.Context, frame float64) map[string]float64 {
	acc := make(map[string]float64, len(l.Curves))
	for _, e := range l.Curves {
		acc[e.Name] = l.Evaluator.EvaluateCurve(ctx, e.Curve, frame)
	}
	return acc
}

// Marshal renders the library as YAML.
func (l *Library) Marshal() ([]byte, error) {
	js, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	var x interface{}
	if err = json.Unmarshal(js, &x); err != nil {
		return nil, err
	}
	return yaml.Marshal(x)
}

// stringKeys replaces map[interface{}]interface{}, which JSON can't
// encode, with map[string]interface{}.
func stringKeys(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[fmt.Sprintf("%v", k)] = stringKeys(v)
		}
		return m
	case map[string]interface{}:
		for k, v := range vv {
			vv[k] = stringKeys(v)
		}
	case []interface{}:
		for i, v := range vv {
			vv[i] = stringKeys(v)
		}
	}
	return x
}

// enums makes maps with "items" and "value" (and nothing else) into
// scene.Enums.
func enums(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[string]interface{}:
		if e, ok := enum(vv); ok {
			return e
		}
		for k, v := range vv {
			vv[k] = enums(v)
		}
	case []interface{}:
		for i, v := range vv {
			vv[i] = enums(v)
		}
	}
	return x
}

func enum(m map[string]interface{}) (scene.Enum, bool) {
	if len(m) != 2 {
		return scene.Enum{}, false
	}
	items, is := m["items"].([]interface{})
	if !is {
		return scene.Enum{}, false
	}
	val, is := m["value"].(string)
	if !is {
		return scene.Enum{}, false
	}
	e := scene.Enum{Value: val}
	for _, x := range items {
		s, is := x.(string)
		if !is {
			return scene.Enum{}, false
		}
		e.Items = append(e.Items, s)
	}
	return e, true
}
