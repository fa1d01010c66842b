/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package tools has utilities for working with curve libraries:
// analysis, graphs, HTML reports and inlined documents.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/library"
)

// Analysis reports problems and statistics for a library.
type Analysis struct {
	lib *library.Library

	Errors []string

	Curves   int
	Keyed    int
	Sampled  int
	Driven   int
	Modified int

	// Empty curves evaluate to zero everywhere.
	Empty []string

	Unsorted []string
	Cyclic   []string

	// TimeDependent curves have drivers that read the time.
	TimeDependent []string

	// Scripted curves have expressions that need a scripting
	// fallback.
	Scripted []string

	// BadNames are driver variables with invalid names.
	BadNames []string

	// MissingTargets are driver targets that don't resolve.
	MissingTargets []string

	// Unused objects aren't read by any driver.
	Unused []string

	// Interpreters are the scripting fallbacks that are
	// requested.
	Interpreters []string
}

// Analyze looks at every curve in the library.
func Analyze(l *library.Library) (*Analysis, error) {
	if l.Scene == nil || l.Evaluator == nil {
		return nil, fmt.Errorf("library isn't compiled")
	}

	a := Analysis{
		lib:    l,
		Curves: len(l.Curves),
		Errors: make([]string, 0, 8),
	}

	var (
		read         = make(map[string]bool)
		interpreters = make(map[string]bool)
		missing      = make(map[string]bool)
	)

	for _, e := range l.Curves {
		name, c := e.Name, e.Curve

		switch {
		case len(c.Keys) > 0:
			a.Keyed++
		case len(c.Samples) > 0:
			a.Sampled++
		}
		if len(c.Keys) > 0 && len(c.Samples) > 0 {
			a.Errors = append(a.Errors, name+": has both keys and samples")
		}
		if c.HasModifiers() {
			a.Modified++
		}
		if c.IsEmpty() {
			a.Empty = append(a.Empty, name)
		}
		if !c.IsSorted() {
			a.Unsorted = append(a.Unsorted, name)
		}
		if c.IsCyclic() {
			a.Cyclic = append(a.Cyclic, name)
		}

		d := c.Driver
		if d == nil {
			continue
		}
		a.Driven++

		if l.Evaluator.DriverDependsOnTime(d) {
			a.TimeDependent = append(a.TimeDependent, name)
		}

		switch d.Type {
		case core.DriverSum, core.DriverAverage, core.DriverMin, core.DriverMax:
		case core.DriverExpression:
			if a.scripted(d) {
				a.Scripted = append(a.Scripted, name)
				i := d.Interpreter
				if i == "" {
					i = core.DefaultInterpreter
				}
				interpreters[i] = true
				is := l.Evaluator.Interpreters
				if is == nil {
					is = core.DefaultInterpreters
				}
				if is.Find(i) == nil {
					a.Errors = append(a.Errors, fmt.Sprintf("%s: no interpreter %q", name, i))
				}
			}
		default:
			a.Errors = append(a.Errors, fmt.Sprintf("%s: %v", name, &core.UnknownDriverType{Type: d.Type}))
		}

		for _, v := range d.Variables {
			if f := core.ValidateVariableName(v.Name); f != 0 {
				a.BadNames = append(a.BadNames,
					fmt.Sprintf("%s: %q %s", name, v.Name, strings.Join(f.Problems(), ", ")))
			}
			n := core.TargetsUsed(v.Type)
			if len(v.Targets) < n {
				a.Errors = append(a.Errors,
					fmt.Sprintf("%s: variable %s needs %d targets", name, v.Name, n))
				n = len(v.Targets)
			}
			for _, t := range v.Targets[:n] {
				read[t.ID] = true
				if problem := a.target(v, t); problem != "" {
					missing[fmt.Sprintf("%s: %s: %s", name, v.Name, problem)] = true
				}
			}
		}
	}

	sort.Strings(a.BadNames)
	a.MissingTargets = keysToStringSlice(missing)
	a.Unused = keysToStringSlice(diffKeys(l.Scene.IDs(), read))
	a.Interpreters = keysToStringSlice(interpreters, "none")

	return &a, nil
}

// scripted reports whether the expression can't be compiled.
func (a *Analysis) scripted(d *core.Driver) bool {
	c := a.lib.Evaluator.Compiler
	if c == nil {
		return true
	}
	params := []string{"time"}
	for _, v := range d.Variables {
		params = append(params, v.Name)
	}
	x, err := c.Compile(d.Expression, params)
	return err != nil || !x.Valid()
}

// target describes what's wrong with a target, if anything.
func (a *Analysis) target(v *core.Variable, t *core.Target) string {
	if t.ID == "" {
		return "target has no id"
	}
	ob, err := a.lib.Scene.Object(t.ID)
	if err != nil {
		return fmt.Sprintf("%s %v", t.ID, err)
	}
	if t.Bone != "" && ob.Bone(t.Bone) == nil {
		return fmt.Sprintf("%s has no bone %q", t.ID, t.Bone)
	}
	if v.Type != core.VarSingleProp {
		return ""
	}
	p, index, err := a.lib.Scene.Resolve(t.ID, t.Path)
	if err != nil {
		return fmt.Sprintf("%s %s: %v", t.ID, t.Path, err)
	}
	if index >= 0 && p.Len() <= index {
		return (&core.IndexOutOfRange{Path: t.Path, Index: index, Len: p.Len()}).Error()
	}
	return ""
}

// OK reports whether the analysis found no errors or missing
// targets.
func (a *Analysis) OK() bool {
	return len(a.Errors) == 0 && len(a.MissingTargets) == 0 && len(a.BadNames) == 0
}

// keysToStringSlice returns the sorted keys of the map, or the
// default value when the map is empty.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}

// diffKeys returns the IDs that aren't used.
func diffKeys(all []string, used map[string]bool) map[string]bool {
	diff := make(map[string]bool)
	for _, key := range all {
		if !used[key] {
			diff[key] = true
		}
	}
	return diff
}
