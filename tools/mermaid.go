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

package tools

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Comcast/fcurve/core"
	"github.com/Comcast/fcurve/library"
	"github.com/Comcast/fcurve/util"
)

type MermaidOpts struct {
	// ShowPaths labels edges with the variable name and the
	// target's property path.
	ShowPaths bool `json:"showPaths"`

	// DrivenFill is the fill color of driven curves.  Does not
	// apply if DrivenClass is set.
	DrivenFill string `json:"drivenFill,omitempty"`

	// DrivenClass will be the CSS class for driven curves.
	DrivenClass string `json:"drivenClass,omitempty"`

	// ShowExpressions adds driver expressions to curve labels.
	ShowExpressions bool `json:"showExpressions,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the library's driver graph.
func Mermaid(l *library.Library, w io.WriteCloser, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowPaths:       true,
			DrivenFill:      "#bcf2db",
			ShowExpressions: true,
		}
	}

	util.Logf("processing %d curves", len(l.Curves))

	fmt.Fprintf(w, "graph LR\n")

	nids := make(map[string]string)
	num := 0

	id := func(key string) (string, bool) {
		if nid, already := nids[key]; already {
			return nid, false
		}
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[key] = nid
		return nid, true
	}

	object := func(name string) string {
		nid, fresh := id("ob:" + name)
		if fresh {
			fmt.Fprintf(w, "  %s[(\"%s\")]\n", nid, quote(name))
		}
		return nid
	}

	ids := l.Scene.IDs()
	sort.Strings(ids)
	for _, name := range ids {
		object(name)
	}

	for _, e := range l.Curves {
		c := e.Curve
		nid, _ := id("fc:" + e.Name)

		if c.Driver == nil {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, quote(e.Name))
			continue
		}

		label := e.Name
		if opts.ShowExpressions && c.Driver.Type == core.DriverExpression {
			label += "<br/><code>" + c.Driver.Expression + "</code>"
		}
		fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, quote(label))
		switch {
		case opts.DrivenClass != "":
			fmt.Fprintf(w, "  class %s %s\n", nid, opts.DrivenClass)
		case opts.DrivenFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.DrivenFill)
		}

		for _, v := range c.Driver.Variables {
			n := core.TargetsUsed(v.Type)
			if len(v.Targets) < n {
				n = len(v.Targets)
			}
			for _, t := range v.Targets[:n] {
				from := object(t.ID)
				label := ""
				if opts.ShowPaths {
					s := v.Name
					if t.Path != "" {
						s += ": " + t.Path
					}
					label = fmt.Sprintf(`-- "%s"`, quote(s))
				}
				fmt.Fprintf(w, "  %s %s --> %s\n", from, label, nid)
			}
		}
	}

	fmt.Fprintf(w, "\n")
	util.Logf("mermaid gen done")

	return w.Close()
}

func quote(s string) string {
	return strings.Replace(s, `"`, `'`, -1)
}
