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
	"io"
	"sort"

	"github.com/Comcast/skillets/core"

	"gopkg.in/yaml.v2"
)

var (
	skilletKeys  = []string{"name", "label", "description", "type", "labels", "output_template"}
	variableKeys = []string{"name", "description", "default", "type_hint"}
	snippetKeys  = []string{
		"name", "label", "when", "cmd", "output_type", "test",
		"pass_message", "fail_message", "severity", "documentation_link",
		"tag", "meta", "outputs",
	}
)

// ordered makes a MapSlice with the given keys first (when present)
// and then the rest sorted.
func ordered(m map[string]interface{}, first []string) yaml.MapSlice {
	acc := make(yaml.MapSlice, 0, len(m))
	done := make(map[string]bool, len(first))
	for _, k := range first {
		if v, have := m[k]; have {
			acc = append(acc, yaml.MapItem{Key: k, Value: v})
			done[k] = true
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !done[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		acc = append(acc, yaml.MapItem{Key: k, Value: m[k]})
	}
	return acc
}

// Ordered returns the skillet's definition as a MapSlice with keys
// in a conventional order.  Variables and snippets come from the
// Skillet itself, so a composed skillet gives its composed
// definition.
func Ordered(s *core.Skillet) yaml.MapSlice {
	top := map[string]interface{}{
		"name": s.Name,
		"type": s.Type,
	}
	if s.Label != "" {
		top["label"] = s.Label
	}
	if s.Description != "" {
		top["description"] = s.Description
	}
	if len(s.Labels) != 0 {
		top["labels"] = s.Labels
	}
	if s.OutputTemplate != "" {
		top["output_template"] = s.OutputTemplate
	}
	acc := ordered(top, skilletKeys)

	vars := make([]yaml.MapSlice, len(s.Variables))
	for i, v := range s.Variables {
		attrs := v.Attrs
		if attrs == nil {
			attrs = map[string]interface{}{
				"name":      v.Name,
				"default":   v.Default,
				"type_hint": v.TypeHint,
			}
		}
		vars[i] = ordered(attrs, variableKeys)
	}
	acc = append(acc, yaml.MapItem{Key: "variables", Value: vars})

	snippets := make([]yaml.MapSlice, len(s.Snippets))
	for i, sn := range s.Snippets {
		snippets[i] = ordered(sn.Def, snippetKeys)
	}
	acc = append(acc, yaml.MapItem{Key: "snippets", Value: snippets})

	return acc
}

// DumpYAML writes the skillet's (Ordered) definition as YAML.
func DumpYAML(s *core.Skillet, w io.Writer) error {
	bs, err := yaml.Marshal(Ordered(s))
	if err != nil {
		return err
	}
	_, err = w.Write(bs)
	return err
}
