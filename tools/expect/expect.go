/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package expect is a tool for testing curve libraries.
//
// You construct a Session, which has a list of Checks.  Each Check
// names a curve and a frame and says what value should come out.
// Then check the session against a library in this process, or run
// a player (like fcplay) as a subprocess and check what it prints.
//
// Specifying what's expected can be simple, as in a literal value
// with a tolerance, or fairly fancy, as in a guard expression that
// computes some property of the value.
//
// See ../../cmd/curvetool for command-line use.
package expect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/sio"
	"github.com/Comcast/fcurve/tools"
	. "github.com/Comcast/fcurve/util/testutil"

	"github.com/jsccast/yaml"
)

// DefaultTolerance is used when neither a Check nor its Session
// gives one.
var DefaultTolerance = 1e-4

// Check describes a value that's expected.
type Check struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Curve is the name of a curve in the library.
	Curve string `json:"curve" yaml:"curve"`

	// Frame is where to evaluate the curve.
	Frame float64 `json:"frame" yaml:"frame"`

	// Want is the optional expected value.
	Want *float64 `json:"want,omitempty" yaml:"want,omitempty"`

	// Tolerance for Want.  Zero means Session.DefaultTolerance.
	Tolerance float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`

	// Min and Max optionally bound the value.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	// Guard is an optional expression that's executed by an
	// interpreter with "value" and "frame" bound.  A result of
	// zero fails the check.
	Guard string `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Interpreter names the guard's interpreter.  Empty means
	// core.DefaultInterpreter.
	Interpreter string `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`

	// Inverted means that a passing check is a failure.
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`

	// Got is written during processing.  Just for diagnostics.
	Got *float64 `json:"got,omitempty" yaml:"got,omitempty"`
}

// Session is mostly a list of Checks.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Library is the optional filename of the library to check.
	Library string `json:"library,omitempty" yaml:"library,omitempty"`

	// Checks are what the session will verify.
	Checks []*Check `json:"checks" yaml:"checks"`

	// Interpreters are used (if necessary) to execute guards.
	Interpreters core.InterpretersMap `json:"-" yaml:"-"`

	// DefaultTolerance is the default tolerance for each Check.
	DefaultTolerance float64 `json:"defaultTolerance,omitempty" yaml:"defaultTolerance,omitempty"`

	// Timeout bounds a Run.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ShowStderr controls whether the subprocess's stderr is
	// logged.
	ShowStderr bool `json:"showStderr,omitempty" yaml:"showStderr,omitempty"`

	// ShowStdout controls whether the subprocess's stdout is
	// logged.
	ShowStdout bool `json:"showStdout,omitempty" yaml:"showStdout,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// ParseSession reads a session from YAML (or JSON).
func ParseSession(bs []byte) (*Session, error) {
	var s Session
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	for i, c := range s.Checks {
		if c == nil || c.Curve == "" {
			return nil, fmt.Errorf("check %d has no curve", i)
		}
	}
	return &s, nil
}

// LoadSession reads a session from a file.
func LoadSession(filename string) (*Session, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	s, err := ParseSession(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

// Failure reports a Check that didn't pass.
type Failure struct {
	Check  *Check `json:"check"`
	Reason string `json:"reason"`
}

// Report is the result of checking a Session.
type Report struct {
	Passed   int        `json:"passed"`
	Failures []*Failure `json:"failures,omitempty"`
}

// OK reports whether every Check passed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err returns nil or an error that summarizes the failures.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	acc := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		acc = append(acc, fmt.Sprintf("%s@%g: %s", f.Check.Curve, f.Check.Frame, f.Reason))
	}
	return fmt.Errorf("%d failed: %s", len(r.Failures), strings.Join(acc, "; "))
}

func (s *Session) tolerance(c *Check) float64 {
	if 0 < c.Tolerance {
		return c.Tolerance
	}
	if 0 < s.DefaultTolerance {
		return s.DefaultTolerance
	}
	return DefaultTolerance
}

// verify returns a reason the value fails the check or "".
func (s *Session) verify(ctx context.Context, c *Check, x float64) (string, error) {
	c.Got = &x

	reason := ""
	switch {
	case math.IsNaN(x):
		reason = "NaN"
	case c.Want != nil && !Near(x, *c.Want, s.tolerance(c)):
		reason = fmt.Sprintf("got %v, wanted %v", x, *c.Want)
	case c.Min != nil && x < *c.Min:
		reason = fmt.Sprintf("got %v < %v", x, *c.Min)
	case c.Max != nil && *c.Max < x:
		reason = fmt.Sprintf("got %v > %v", x, *c.Max)
	case c.Guard != "":
		ok, err := s.guard(ctx, c, x)
		if err != nil {
			return "", err
		}
		if !ok {
			reason = fmt.Sprintf("guard failed for %v", x)
		}
	}

	if c.Inverted {
		if reason == "" {
			return fmt.Sprintf("undesired %v", x), nil
		}
		return "", nil
	}
	return reason, nil
}

func (s *Session) guard(ctx context.Context, c *Check, x float64) (bool, error) {
	name := c.Interpreter
	if name == "" {
		name = core.DefaultInterpreter
	}
	interpreters := s.Interpreters
	if interpreters == nil {
		interpreters = core.DefaultInterpreters
	}
	i := interpreters.Find(name)
	if i == nil {
		return false, fmt.Errorf("guard for %s: %w: %s", c.Curve, core.InterpreterNotFound, name)
	}

	compiled, err := i.Compile(ctx, c.Guard)
	if err != nil {
		return false, err
	}
	env := &core.ScriptEnv{
		Expr: c.Guard,
		Time: c.Frame,
		Bindings: core.Bindings{
			"value": x,
			"frame": c.Frame,
		},
	}
	y, err := i.Exec(ctx, env, compiled)
	if err != nil {
		return false, fmt.Errorf("guard for %s: %w", c.Curve, err)
	}
	return y != 0, nil
}

// Check evaluates every Check against the library in this process.
//
// An error means the session itself is broken (say, a guard that
// won't compile).  Failed checks are in the Report.
func (s *Session) Check(ctx context.Context, l *library.Library) (*Report, error) {
	r := &Report{}
	for _, c := range s.Checks {
		x, err := l.Eval(ctx, c.Curve, c.Frame)
		if err != nil {
			r.Failures = append(r.Failures, &Failure{c, err.Error()})
			continue
		}
		reason, err := s.verify(ctx, c, x)
		if err != nil {
			return nil, err
		}
		if s.Verbose {
			log.Printf("check %s@%g: %v %s", c.Curve, c.Frame, x, reason)
		}
		if reason != "" {
			r.Failures = append(r.Failures, &Failure{c, reason})
			continue
		}
		r.Passed++
	}
	return r, nil
}

// parseSample finds a sample in a line of output.  Tags and
// timestamps before the JSON are ignored.
func parseSample(line []byte) (*sio.Sample, bool) {
	i := bytes.IndexByte(line, '{')
	if i < 0 {
		return nil, false
	}
	var x sio.Sample
	if err := json.Unmarshal(bytes.TrimSpace(line[i:]), &x); err != nil {
		return nil, false
	}
	if x.Curve == "" {
		return nil, false
	}
	return &x, true
}

// Run checks the samples that a subprocess writes to stdout, one
// JSON object per line.
//
// The subprocess is given by the args. The first arg is the
// executable.  Example args:
//
//	"fcplay", "-fps", "1000", "specs/bounce.yaml"
//
// The subprocess runs in 'dir' if that's not empty.  Its stdin is
// closed right away.  Run stops the subprocess once every Check has
// seen its frame.  A Check whose frame never appears fails.
func (s *Session) Run(ctx context.Context, dir string, args ...string) (*Report, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("need a command (and optional args) (for expect.Session.Run)")
	}

	if 0 < s.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	// Log subprocess's stderr.
	go func() {
		out := bufio.NewReader(stderr)
		for {
			line, err := out.ReadBytes('\n')
			if err != nil {
				if err != io.EOF && !strings.Contains(err.Error(), "already closed") {
					log.Printf("stderr error %s", err)
				}
				return
			}
			if s.ShowStderr {
				log.Printf("stderr %s", line)
			}
		}
	}()

	var (
		r       = &Report{}
		pending = make(map[*Check]bool, len(s.Checks))
		out     = bufio.NewReader(stdout)
	)
	for _, c := range s.Checks {
		pending[c] = true
	}

	for 0 < len(pending) {
		line, err := out.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("stdout error %s", err)
			}
			break
		}
		if s.ShowStdout {
			log.Printf("out %s", line)
		}
		x, ok := parseSample(line)
		if !ok {
			if s.Verbose {
				log.Printf("ignoring '%s'", bytes.TrimSpace(line))
			}
			continue
		}
		for _, c := range s.Checks {
			if !pending[c] || c.Curve != x.Curve || !Near(c.Frame, x.Frame, 1e-6) {
				continue
			}
			delete(pending, c)
			reason, err := s.verify(ctx, c, x.Value)
			if err != nil {
				cmd.Process.Kill()
				cmd.Wait()
				return nil, err
			}
			if reason != "" {
				r.Failures = append(r.Failures, &Failure{c, reason})
				continue
			}
			r.Passed++
		}
	}

	// Every check has an answer (or the output ended), so the
	// player can go.
	cmd.Process.Kill()
	cmd.Wait()

	if err := ctx.Err(); err != nil && 0 < len(pending) {
		return nil, fmt.Errorf("expect: %w", err)
	}

	for _, c := range s.Checks {
		if pending[c] {
			r.Failures = append(r.Failures, &Failure{c, "frame never played"})
		}
	}

	return r, nil
}

// ErrNoLibrary is returned by CheckFile for a Session without a
// Library.
var ErrNoLibrary = errors.New("session has no library")

// CheckFile loads the session's Library, relative to dir, and checks
// it.
func (s *Session) CheckFile(ctx context.Context, dir string) (*Report, error) {
	if s.Library == "" {
		return nil, ErrNoLibrary
	}
	filename := s.Library
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(dir, filename)
	}
	l, err := tools.LoadLibrary(filename)
	if err != nil {
		return nil, err
	}
	return s.Check(ctx, l)
}
