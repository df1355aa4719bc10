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

package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/skillets/core"

	"gopkg.in/yaml.v2"
)

// DotOpts controls Dot.
type DotOpts struct {
	// ShowParams adds each snippet's parameters (as YAML) to its
	// label.
	ShowParams bool

	// Highlight is the name of a snippet to draw in red.
	Highlight string
}

func escapeHTML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// Dot makes a Graphviz dot file showing how data flows among a
// compiled skillet's snippets.
func Dot(s *core.Skillet, w io.Writer, opts *DotOpts) error {
	if !s.Compiled() {
		return core.NotCompiled
	}
	if opts == nil {
		opts = &DotOpts{}
	}

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	ids := make(map[string]string, len(s.Snippets))
	for i, sn := range s.Snippets {
		id := fmt.Sprintf("s%d", i)
		ids[sn.Name] = id

		label := escapeHTML(sn.Name)
		if sn.Label != "" && sn.Label != sn.Name {
			label += `<BR/><FONT POINT-SIZE="8">` + escapeHTML(sn.Label) + `</FONT>`
		}
		if opts.ShowParams && 0 < len(sn.Params) {
			bs, err := yaml.Marshal(sn.Params)
			if err != nil {
				bs = []byte(err.Error())
			}
			label += `<FONT POINT-SIZE="6"><BR/>` +
				strings.Replace(escapeHTML(string(bs)), "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		var (
			shape     = "record"
			style     = "filled"
			color     = "black"
			fillcolor = "#99ddc8"
		)
		if sn.Validates() {
			shape = "note"
			fillcolor = "#52aa5e"
		}
		if sn.When != "" {
			style += ",dashed"
		}
		if sn.Name == opts.Highlight {
			color = "red"
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			id, shape, style, color, fillcolor, label)
	}

	vars := make(map[string]string)
	for _, e := range Flow(s) {
		from := ids[e.From]
		if e.From == "" {
			if from = vars[e.Variable]; from == "" {
				from = fmt.Sprintf("v%d", len(vars))
				vars[e.Variable] = from
				fmt.Fprintf(w, "  %s [shape=\"ellipse\", style=\"filled\", fillcolor=\"#2d93ad\", label=<%s> ]\n",
					from, escapeHTML(e.Variable))
			}
		}
		fmt.Fprintf(w, "  %s -> %s [ label = <%s> ]\n", from, ids[e.To], escapeHTML(e.Variable))
	}

	fmt.Fprintf(w, "}\n")
	return nil
}
