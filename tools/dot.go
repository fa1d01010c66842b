package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/modifiers"
	"github.com/Comcast/fcurve/util"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given library.  Objects are
// boxes.  Curves are notes.  An edge goes from each object that a
// driver reads to the driven curve.
//
// The optional highlight is the name of a curve to draw in red.
func Dot(l *library.Library, w io.WriteCloser, highlight string) error {

	util.Logf("processing %d curves", len(l.Curves))

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	seen := make(map[string]bool)
	object := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		fillcolor := "#2d93ad"
		if _, err := l.Scene.Object(id); err != nil {
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  %q [shape=\"box\", style=\"filled\", fillcolor=\"%s\", label=<%s> ]\n",
			"ob:"+id, fillcolor, esc(id))
	}

	ids := l.Scene.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		object(id)
	}

	for _, e := range l.Curves {
		name, c := e.Name, e.Curve

		label := esc(name)
		if c.Doc != "" {
			label += "<BR/><FONT POINT-SIZE='8'>" + esc(firstSentence(c.Doc)) + "</FONT>"
		}
		label += fmt.Sprintf(`<BR/><FONT POINT-SIZE="8">%s</FONT>`, esc(summary(c)))
		if c.Driver != nil && c.Driver.Type == core.DriverExpression {
			label += `<FONT POINT-SIZE="8"><BR/>` + esc(c.Driver.Expression) + `</FONT>`
		}
		if src := modifiersYAML(c); src != "" {
			label += `<FONT POINT-SIZE="6"><BR/>` +
				strings.Replace(esc(src), "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		color, fillcolor, style := "black", "#99ddc8", "filled"
		if c.Driver != nil {
			fillcolor = "#52aa5e"
		}
		if c.IsEmpty() {
			style += ",dashed"
		}
		if name == highlight {
			color, fillcolor = "red", "#f98b8b"
		}
		fmt.Fprintf(w, "  %q [shape=\"note\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			"fc:"+name, style, color, fillcolor, label)

		if c.Driver == nil {
			continue
		}
		for _, v := range c.Driver.Variables {
			n := core.TargetsUsed(v.Type)
			if len(v.Targets) < n {
				n = len(v.Targets)
			}
			for i, t := range v.Targets[:n] {
				object(t.ID)
				label := v.Name
				if t.Path != "" {
					label += ": " + t.Path
				} else if t.Channel != "" {
					label += ": " + string(t.Channel)
				}
				if t.Bone != "" {
					label = t.Bone + " " + label
				}
				if 1 < n {
					label = fmt.Sprintf("%d/%d %s", i+1, n, label)
				}
				fmt.Fprintf(w, "  %q -> %q [ label = <%s> ]\n",
					"ob:"+t.ID, "fc:"+name, esc(label))
			}
		}
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(l *library.Library, basename string, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(l, dotfile, highlight); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// summary describes the curve's data in a few words.
func summary(c *core.Curve) string {
	var acc []string
	switch {
	case len(c.Keys) > 0:
		acc = append(acc, fmt.Sprintf("%d keys", len(c.Keys)))
	case len(c.Samples) > 0:
		acc = append(acc, fmt.Sprintf("%d samples", len(c.Samples)))
	}
	if c.Driver != nil {
		acc = append(acc, string(c.Driver.Type))
	}
	if c.Extend == core.ExtendLinear {
		acc = append(acc, "linear extend")
	}
	if c.IsCyclic() {
		acc = append(acc, "cyclic")
	}
	return strings.Join(acc, ", ")
}

// modifiersYAML renders the curve's modifiers.
func modifiersYAML(c *core.Curve) string {
	s, is := c.Modifiers.(*modifiers.Stack)
	if !is || s.Len() == 0 {
		return ""
	}
	xs, err := modifiers.EncodeStack(s)
	if err != nil {
		return err.Error()
	}
	bs, err := yaml.Marshal(xs)
	if err != nil {
		return err.Error()
	}
	return string(bs)
}

func firstSentence(doc string) string {
	if 40 < len(doc) {
		if period := strings.Index(doc, ". "); 0 < period {
			return doc[0 : period+1]
		}
	}
	return doc
}

// esc escapes text for a Graphviz HTML label.
func esc(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	return s
}
