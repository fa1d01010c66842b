package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/interpreters/noop"
	. "github.com/Comcast/fcurve/util/testutil"

	md "github.com/russross/blackfriday/v2"
)

// RenderLibraryHTML writes HTML for the library's documentation,
// objects and curves.  Doc strings are Markdown.  Each curve shows
// its values at the ends of the library's frame range.
func RenderLibraryHTML(l *library.Library, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="libraryDoc doc">%s</div>`, md.Run([]byte(l.Doc)))

	var (
		ctx        = context.Background()
		start, end = l.Range()
	)

	if 0 < len(l.Objects) { // Objects
		f(`<div class="objects"><table>`)
		for _, o := range l.Objects {
			f(`<tr class="object"><td><span id="ob-%s" class="objectName">%s</span></td>`, o.ID, html.EscapeString(o.ID))
			f(`<td><code>location %v rotation %v scale %v</code>`, o.Transform.Location, o.Transform.Rotation, o.Transform.Scale)
			if len(o.Props) > 0 {
				f(`<div class="props"><code>%s</code></div>`, html.EscapeString(JS(o.Props)))
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	{ // Curves
		f(`<div class="curves"><table>`)
		for _, e := range l.Curves {
			c := e.Curve
			f(`<tr class="curve"><td><span id="fc-%s" class="curveName">%s</span></td><td>`, e.Name, html.EscapeString(e.Name))

			if c.Doc != "" {
				f(`<div class="curveDoc doc">%s</div>`, md.Run([]byte(c.Doc)))
			}
			f(`<div class="summary">%s</div>`, html.EscapeString(summary(c)))
			f(`<div class="values">%g: %g, %g: %g</div>`,
				start, l.Evaluator.EvaluateCurve(ctx, c, start),
				end, l.Evaluator.EvaluateCurve(ctx, c, end))
			if src := modifiersYAML(c); src != "" {
				f(`<div class="modifiers"><pre>%s</pre></div>`, html.EscapeString(src))
			}
			if d := c.Driver; d != nil {
				f(`<div class="driver">type: <span class="driverType">%s</span></div>`, d.Type)
				if d.Type == core.DriverExpression {
					f(`<div class="code"><pre>%s</pre></div>`, html.EscapeString(d.Expression))
				}
				f(`<table class="vars">`)
				for _, v := range d.Variables {
					f(`<tr><td><code>%s</code></td><td>%s</td><td>`, html.EscapeString(v.Name), v.Type)
					for _, t := range v.Targets {
						ref := t.Path
						if ref == "" {
							ref = string(t.Channel)
						}
						f(`<a href="#ob-%s"><code>%s</code></a> <code>%s</code><br/>`, t.ID, html.EscapeString(t.ID), html.EscapeString(ref))
					}
					if problems := v.Flags.Problems(); len(problems) > 0 {
						f(`<div class="problems">%s</div>`, html.EscapeString(strings.Join(problems, ", ")))
					}
					f(`</td></tr>`)
				}
				f(`</table>`)
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	return nil
}

// RenderLibraryPage writes a complete HTML page.  With includeGraph,
// the page gets the library as JSON for client-side graphing.
func RenderLibraryPage(l *library.Library, out io.Writer, cssFiles []string, includeGraph bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/library-html.css"}
	}

	js, err := json.Marshal(l)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(l.Name))

	if includeGraph {
		fmt.Fprintf(out, `
  <script src="https://cdnjs.cloudflare.com/ajax/libs/cytoscape/3.2.8/cytoscape.min.js"></script>
  <script src="/static/library-html.js"></script>
  <script>
  var thisLibrary = %s;
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(l.Name))

	if includeGraph {
		fmt.Fprintf(out, `<div id="graph"></div>`)
	}

	if err = RenderLibraryHTML(l, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderLibraryPage loads a library (with inlines) and
// renders it.  Scripted drivers get a silent noop interpreter, so
// rendering never runs scripts.
func ReadAndRenderLibraryPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	l, err := LoadLibrary(filename)
	if err != nil {
		return err
	}

	Quiet(l)

	return RenderLibraryPage(l, out, cssFiles, includeGraph)
}

// Quiet replaces the library's interpreters with a silent noop
// interpreter.
func Quiet(l *library.Library) {
	quiet := noop.NewInterpreter()
	quiet.Silent = true
	is := core.NewInterpretersMap()
	is[core.DefaultInterpreter] = quiet
	l.Evaluator.Interpreters = is
}
