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

// Package tools has utilities for examining skillets and rendering
// their results.
package tools

import (
	"sort"

	"github.com/Comcast/skillets/core"
)

// SnippetAnalysis reports the variables a snippet reads and writes.
type SnippetAnalysis struct {
	Name     string   `json:"name"`
	Kind     string   `json:"cmd"`
	Reads    []string `json:"reads,omitempty"`
	Captures []string `json:"captures,omitempty"`

	// Undeclared are names read that aren't declared variables,
	// earlier captures, or given inputs.
	Undeclared []string `json:"undeclared,omitempty"`

	// Late are names read that only a later snippet captures.
	Late []string `json:"late,omitempty"`
}

// Analysis summarizes a compiled skillet.
type Analysis struct {
	Skillet      string             `json:"skillet"`
	Type         string             `json:"type"`
	SnippetCount int                `json:"snippets"`
	Validations  int                `json:"validations"`
	Guards       int                `json:"guards"`
	Captures     int                `json:"captures"`
	Kinds        []string           `json:"kinds"`
	Snippets     []*SnippetAnalysis `json:"details"`

	// Undeclared is the union of the snippets' Undeclared.
	Undeclared []string `json:"undeclared,omitempty"`

	// Unused are declared variables that no snippet reads.
	Unused []string `json:"unused,omitempty"`

	// Overwritten are variables captured by more than one
	// snippet.
	Overwritten []string `json:"overwritten,omitempty"`
}

// Analyze examines a compiled skillet.  Names in inputs (typically
// "config") are treated as declared.
func Analyze(s *core.Skillet, inputs ...string) (*Analysis, error) {
	if !s.Compiled() {
		return nil, core.NotCompiled
	}

	a := &Analysis{
		Skillet:      s.Name,
		Type:         s.Type,
		SnippetCount: len(s.Snippets),
		Snippets:     make([]*SnippetAnalysis, 0, len(s.Snippets)),
	}

	declared := make(map[string]bool, len(s.Variables)+len(inputs))
	for _, name := range s.Variables.Names() {
		declared[name] = true
	}
	for _, name := range inputs {
		declared[name] = true
	}

	capturedBy := make(map[string]int)
	for i, sn := range s.Snippets {
		for _, name := range sn.Captures() {
			if _, have := capturedBy[name]; !have {
				capturedBy[name] = i
			}
		}
	}

	var (
		kinds       = make(map[string]bool)
		undeclared  = make(map[string]bool)
		read        = make(map[string]bool)
		seen        = make(map[string]bool)
		overwritten = make(map[string]bool)
	)

	for i, sn := range s.Snippets {
		kinds[sn.Kind] = true
		if sn.Validates() {
			a.Validations++
		}
		if sn.When != "" {
			a.Guards++
		}

		sa := &SnippetAnalysis{
			Name:     sn.Name,
			Kind:     sn.Kind,
			Reads:    sn.Variables(),
			Captures: sn.Captures(),
		}
		a.Captures += len(sa.Captures)

		for _, name := range sa.Reads {
			read[name] = true
			if declared[name] {
				continue
			}
			j, captured := capturedBy[name]
			switch {
			case !captured:
				sa.Undeclared = append(sa.Undeclared, name)
				undeclared[name] = true
			case i < j:
				sa.Late = append(sa.Late, name)
			}
		}

		for _, name := range sa.Captures {
			if seen[name] {
				overwritten[name] = true
			}
			seen[name] = true
		}

		a.Snippets = append(a.Snippets, sa)
	}

	for _, name := range s.Variables.Names() {
		if !read[name] {
			a.Unused = append(a.Unused, name)
		}
	}

	a.Kinds = sortedKeys(kinds)
	a.Undeclared = sortedKeys(undeclared)
	a.Overwritten = sortedKeys(overwritten)

	return a, nil
}

// OK reports whether the analysis found nothing suspicious.
func (a *Analysis) OK() bool {
	if len(a.Undeclared) != 0 {
		return false
	}
	for _, sa := range a.Snippets {
		if len(sa.Late) != 0 {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
