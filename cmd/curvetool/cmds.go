package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/interpreters"
	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/modifiers"
	"github.com/Comcast/fcurve/tools"
	"github.com/Comcast/fcurve/tools/expect"

	"github.com/jsccast/yaml"
)

// Out is where subcommands write.
var Out io.Writer = os.Stdout

var Cmds = map[string]Cmd{
	"eval":    &Evaler{},
	"bake":    &Baker{},
	"lint":    &Linter{},
	"dot":     &Grapher{},
	"mermaid": &Mermaider{},
	"html":    &Pager{},
	"check":   &Checker{},
}

var (
	LintFailed  = errors.New("lint failed")
	NoSuchCurve = errors.New("no such curve")
)

// Cmd is a subcommand.
//
// Flags returns a fresh FlagSet bound to the Cmd's fields.
type Cmd interface {
	F(ctx context.Context, l *library.Library, args []string) error
	Doc() string
	Flags() *flag.FlagSet
	NeedsLibrary() bool
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

type Evaler struct {
	Frame float64
	Curve string
}

func (m *Evaler) F(ctx context.Context, l *library.Library, args []string) error {
	if m.Curve != "" {
		x, err := l.Eval(ctx, m.Curve, m.Frame)
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "%v\n", x)
		return nil
	}
	js, err := json.Marshal(l.Frames(ctx, m.Frame))
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s\n", js)
	return nil
}

func (m *Evaler) Doc() string {
	return "Evaluate one curve (or all of them as a JSON map) at a frame."
}

func (m *Evaler) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.Float64Var(&m.Frame, "f", 1, "frame")
	fs.StringVar(&m.Curve, "c", "", "curve name (default all)")
	return fs
}

func (m *Evaler) NeedsLibrary() bool { return true }

// Baker replaces keys with samples and writes the library as YAML.
type Baker struct {
	Curve      string
	Start, End int
}

func (m *Baker) F(ctx context.Context, l *library.Library, args []string) error {
	start, end := m.Start, m.End
	if start == 0 && end == 0 {
		s, e := l.Range()
		start, end = int(math.Floor(s)), int(math.Ceil(e))
	}

	baked := 0
	for _, e := range l.Curves {
		if m.Curve != "" && e.Name != m.Curve {
			continue
		}
		c := e.Curve
		if c.Driver != nil || c.IsEmpty() {
			// Baking ignores drivers, so a driven curve would
			// lose its meaning.
			continue
		}
		var err error
		if c.HasModifiers() {
			err = modifiers.Bake(c, start, end)
		} else {
			err = c.Bake(start, end, func(c *core.Curve, t float64) float64 {
				return c.EvaluateWithoutDriver(t)
			})
		}
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
		baked++
	}
	if m.Curve != "" && baked == 0 {
		return fmt.Errorf("%w (or it can't be baked): %s", NoSuchCurve, m.Curve)
	}

	bs, err := l.Marshal()
	if err != nil {
		return err
	}
	_, err = Out.Write(bs)
	return err
}

func (m *Baker) Doc() string {
	return "Bake keyed curves (with their modifiers) to one sample per frame and write the library."
}

func (m *Baker) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("bake", flag.ContinueOnError)
	fs.StringVar(&m.Curve, "c", "", "curve name (default all undriven curves)")
	fs.IntVar(&m.Start, "start", 0, "first frame (default from the library's range)")
	fs.IntVar(&m.End, "end", 0, "last frame")
	return fs
}

func (m *Baker) NeedsLibrary() bool { return true }

type Linter struct {
}

func (m *Linter) F(ctx context.Context, l *library.Library, args []string) error {
	a, err := tools.Analyze(l)
	if err != nil {
		return err
	}
	bs, err := yaml.Marshal(&a)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s\n", bs)
	if !a.OK() {
		return LintFailed
	}
	return nil
}

func (m *Linter) Doc() string {
	return "Report problems and statistics.  Exits with an error if there are problems."
}

func (m *Linter) Flags() *flag.FlagSet {
	return flag.NewFlagSet("lint", flag.ContinueOnError)
}

func (m *Linter) NeedsLibrary() bool { return true }

type Grapher struct {
	Basename  string
	Highlight string
}

func (m *Grapher) F(ctx context.Context, l *library.Library, args []string) error {
	if m.Basename == "" {
		return tools.Dot(l, nopCloser{Out}, m.Highlight)
	}
	filename, err := tools.PNG(l, m.Basename, m.Highlight)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s\n", filename)
	return nil
}

func (m *Grapher) Doc() string {
	return "Write a Graphviz graph of drivers (or render a PNG with -o)."
}

func (m *Grapher) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("dot", flag.ContinueOnError)
	fs.StringVar(&m.Basename, "o", "", "write BASENAME.dot and BASENAME.png")
	fs.StringVar(&m.Highlight, "highlight", "", "curve to highlight")
	return fs
}

func (m *Grapher) NeedsLibrary() bool { return true }

type Mermaider struct {
	tools.MermaidOpts
	NoExpressions bool
}

func (m *Mermaider) F(ctx context.Context, l *library.Library, args []string) error {
	opts := m.MermaidOpts
	opts.ShowExpressions = !m.NoExpressions
	return tools.Mermaid(l, nopCloser{Out}, &opts)
}

func (m *Mermaider) Doc() string {
	return "Write a Mermaid graph of drivers."
}

func (m *Mermaider) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("mermaid", flag.ContinueOnError)
	fs.BoolVar(&m.ShowPaths, "paths", true, "label edges with property paths")
	fs.StringVar(&m.DrivenFill, "fill", "#bcf2db", "fill color for driven curves")
	fs.StringVar(&m.DrivenClass, "class", "", "CSS class for driven curves (instead of -fill)")
	fs.BoolVar(&m.NoExpressions, "no-exprs", false, "leave driver expressions out")
	return fs
}

func (m *Mermaider) NeedsLibrary() bool { return true }

// Pager renders HTML.  Scripted drivers aren't run.
type Pager struct {
	CSS   string
	Graph bool
}

func (m *Pager) F(ctx context.Context, l *library.Library, args []string) error {
	var css []string
	if m.CSS != "" {
		css = strings.Split(m.CSS, ",")
	}
	if 0 < len(args) {
		return tools.ReadAndRenderLibraryPage(args[0], css, Out, m.Graph)
	}
	l, err := readLibrary()
	if err != nil {
		return err
	}
	tools.Quiet(l)
	return tools.RenderLibraryPage(l, Out, css, m.Graph)
}

func (m *Pager) Doc() string {
	return "Render the library as an HTML page."
}

func (m *Pager) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("html", flag.ContinueOnError)
	fs.StringVar(&m.CSS, "css", "", "comma-separated stylesheet URLs")
	fs.BoolVar(&m.Graph, "graph", false, "include a Mermaid graph")
	return fs
}

func (m *Pager) NeedsLibrary() bool { return false }

// Checker runs an expectation session.
type Checker struct {
	Session string
	Exec    bool
	Pretty  bool
}

func (m *Checker) F(ctx context.Context, _ *library.Library, args []string) error {
	if m.Session == "" {
		return fmt.Errorf("need -s SESSION")
	}
	s, err := expect.LoadSession(m.Session)
	if err != nil {
		return err
	}
	s.Interpreters = interpreters.Standard()

	var r *expect.Report
	switch {
	case m.Exec:
		r, err = s.Run(ctx, "", args...)
	case 0 < len(args):
		var l *library.Library
		if l, err = tools.LoadLibrary(args[0]); err == nil {
			r, err = s.Check(ctx, l)
		}
	default:
		r, err = s.CheckFile(ctx, filepath.Dir(m.Session))
	}
	if err != nil {
		return err
	}

	var js []byte
	if m.Pretty {
		js, err = json.MarshalIndent(r, "", "  ")
	} else {
		js, err = json.Marshal(r)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s\n", js)

	return r.Err()
}

func (m *Checker) Doc() string {
	return `Check a session's expectations against a library.  With -exec, the
  arguments are a player command (like "fcplay -fps 1000 -lib x.yaml") whose
  output is checked.`
}

func (m *Checker) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&m.Session, "s", "", "session filename")
	fs.BoolVar(&m.Exec, "exec", false, "run the arguments as a player")
	fs.BoolVar(&m.Pretty, "p", false, "pretty-print the report")
	return fs
}

func (m *Checker) NeedsLibrary() bool { return false }
