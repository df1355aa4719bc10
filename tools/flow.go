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
	"github.com/Comcast/skillets/core"
)

// Edge is a data dependency: snippet To reads Variable, which comes
// from snippet From.  From is empty when Variable is a declared
// variable (or an input).
type Edge struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to"`
	Variable string `json:"variable"`
}

// Flow returns the data dependencies among a compiled skillet's
// snippets in snippet order.  A read resolves to the most recent
// earlier capture.  Reads that resolve to nothing are omitted.
func Flow(s *core.Skillet) []Edge {
	declared := make(map[string]bool, len(s.Variables))
	for _, name := range s.Variables.Names() {
		declared[name] = true
	}

	var (
		acc    = make([]Edge, 0, len(s.Snippets))
		source = make(map[string]string)
	)
	for _, sn := range s.Snippets {
		for _, name := range sn.Variables() {
			if from, have := source[name]; have {
				acc = append(acc, Edge{From: from, To: sn.Name, Variable: name})
			} else if declared[name] {
				acc = append(acc, Edge{To: sn.Name, Variable: name})
			}
		}
		for _, name := range sn.Captures() {
			source[name] = sn.Name
		}
	}
	return acc
}
