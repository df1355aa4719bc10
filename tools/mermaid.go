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

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/skillets/core"
)

type MermaidOpts struct {
	// ValidationFill is the fill color for validation snippets.
	ValidationFill string `json:"validationFill,omitempty"`

	// VariableFill is the fill color for declared variables.
	VariableFill string `json:"variableFill,omitempty"`
}

func mermaidText(s string) string {
	return strings.Replace(s, `"`, "#quot;", -1)
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// showing how data flows among a compiled skillet's snippets.
func Mermaid(s *core.Skillet, w io.Writer, opts *MermaidOpts) error {
	if !s.Compiled() {
		return core.NotCompiled
	}
	if opts == nil {
		opts = &MermaidOpts{
			ValidationFill: "#bcf2db",
			VariableFill:   "#d6e6f2",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	ids := make(map[string]string, len(s.Snippets))
	for i, sn := range s.Snippets {
		id := fmt.Sprintf("n%d", i+1)
		ids[sn.Name] = id
		if sn.Validates() {
			fmt.Fprintf(w, "  %s{{\"%s\"}}\n", id, mermaidText(sn.Name))
			if opts.ValidationFill != "" {
				fmt.Fprintf(w, "  style %s fill:%s\n", id, opts.ValidationFill)
			}
		} else {
			fmt.Fprintf(w, "  %s[\"%s\"]\n", id, mermaidText(sn.Name))
		}
	}

	vars := make(map[string]string)
	for _, e := range Flow(s) {
		from := ids[e.From]
		if e.From == "" {
			if from = vars[e.Variable]; from == "" {
				from = fmt.Sprintf("v%d", len(vars)+1)
				vars[e.Variable] = from
				fmt.Fprintf(w, "  %s((\"%s\"))\n", from, mermaidText(e.Variable))
				if opts.VariableFill != "" {
					fmt.Fprintf(w, "  style %s fill:%s\n", from, opts.VariableFill)
				}
			}
		}
		fmt.Fprintf(w, "  %s -->|%s| %s\n", from, mermaidText(e.Variable), ids[e.To])
	}

	return nil
}
