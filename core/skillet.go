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

package core

import (
	"context"

	"github.com/Comcast/skillets/capture"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/filters"
)

// TypeDefaults gives snippet defaults by skillet type.
var TypeDefaults = map[string]Defaults{
	"pan_validation": {Kind: "validate", OutputType: capture.XML, Severity: "low"},
	"validation":     {Kind: "validate", OutputType: capture.XML, Severity: "low"},
	"panos":          {Kind: "noop", OutputType: capture.XML},
	"template":       {Kind: "template", OutputType: capture.Text},
	"rest":           {Kind: "rest", OutputType: capture.JSON},
	"workflow":       {Kind: "workflow", OutputType: capture.JSON},
	"javascript":     {Kind: "javascript", OutputType: capture.JSON},
}

// Skillet is an ordered list of snippets along with the variables
// they use.
//
// A Skillet should be Composed (if it includes other skillets) and
// Compiled before it's executed.  Execution doesn't modify a
// compiled Skillet, so a Skillet can be executed concurrently.
type Skillet struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`

	// Type selects snippet defaults and the shape of results.
	Type string `json:"type"`

	Labels map[string]interface{} `json:"labels,omitempty"`

	Variables Variables `json:"variables"`

	Snippets []*Snippet `json:"snippets"`

	// OutputTemplate is an optional template for a report about
	// an execution.  See ExecutionResult.TemplateData.
	OutputTemplate string `json:"output_template,omitempty"`

	// Path is the directory the definition came from (if any).
	Path string `json:"-"`

	// Tracing turns on Traces in ExecutionResults.
	Tracing bool `json:"-"`

	// Def is the (normalized) definition.
	Def map[string]interface{} `json:"-"`

	env      *expr.Env
	compiled bool
}

// NewSkillet makes a Skillet from its definition, filling in
// defaults for missing fields.
func NewSkillet(m map[string]interface{}) (*Skillet, error) {
	def := copyMap(m)
	s := &Skillet{
		Def: def,
	}

	str := func(key, dflt string) (string, error) {
		v, err := stringField(s.Name, def, key)
		if err != nil {
			return "", err
		}
		if v == "" {
			v = dflt
			def[key] = v
		}
		return v, nil
	}

	var err error
	if s.Name, err = str("name", "Unknown Skillet"); err != nil {
		return nil, err
	}
	if s.Label, err = str("label", "Unknown Skillet"); err != nil {
		return nil, err
	}
	if s.Type, err = str("type", "template"); err != nil {
		return nil, err
	}
	if s.Description, err = str("description", s.Type+" skillet"); err != nil {
		return nil, err
	}
	if s.OutputTemplate, err = stringField(s.Name, def, "output_template"); err != nil {
		return nil, err
	}
	s.Path, _ = def["snippet_path"].(string)

	labels, _ := def["labels"].(map[string]interface{})
	s.Labels = copyMap(labels)
	switch vv := s.Labels["collection"].(type) {
	case string:
		s.Labels["collection"] = []interface{}{vv}
	case []interface{}:
	default:
		if s.Type != "app" {
			s.Labels["collection"] = []interface{}{"Unknown"}
		}
	}
	def["labels"] = s.Labels

	if vs, is := def["variables"].([]interface{}); is {
		for _, x := range vs {
			m, is := x.(map[string]interface{})
			if !is {
				// Invalid variable definitions are ignored.
				continue
			}
			v, err := NewVariable(m)
			if err != nil {
				return nil, err
			}
			s.Variables = append(s.Variables, v)
		}
	}

	defaults := TypeDefaults[s.Type]
	if xs, is := def["snippets"].([]interface{}); is {
		for _, x := range xs {
			m, is := x.(map[string]interface{})
			if !is {
				return nil, &BadDefinition{s.Name, "", "bad snippet definition"}
			}
			sn, err := NewSnippet(s.Name, m, defaults)
			if err != nil {
				return nil, err
			}
			s.Snippets = append(s.Snippets, sn)
		}
	}

	if err = s.checkNames(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Skillet) checkNames() error {
	seen := make(map[string]bool, len(s.Snippets))
	for _, sn := range s.Snippets {
		if sn.Include != nil {
			continue
		}
		if seen[sn.Name] {
			return &BadDefinition{s.Name, sn.Name, "duplicate snippet name"}
		}
		seen[sn.Name] = true
	}
	return nil
}

// Copy makes an uncompiled copy of the Skillet.
func (s *Skillet) Copy() *Skillet {
	vs := make(Variables, len(s.Variables))
	for i, v := range s.Variables {
		vs[i] = v.Copy()
	}
	sns := make([]*Snippet, len(s.Snippets))
	for i, sn := range s.Snippets {
		sns[i] = sn.Copy()
	}
	return &Skillet{
		Name:           s.Name,
		Label:          s.Label,
		Description:    s.Description,
		Type:           s.Type,
		Labels:         copyMap(s.Labels),
		Variables:      vs,
		Snippets:       sns,
		OutputTemplate: s.OutputTemplate,
		Path:           s.Path,
		Tracing:        s.Tracing,
		Def:            copyMap(s.Def),
	}
}

// Snippet returns the snippet with the given name (if any).
func (s *Skillet) Snippet(name string) (*Snippet, bool) {
	for _, sn := range s.Snippets {
		if sn.Name == name && sn.Include == nil {
			return sn, true
		}
	}
	return nil, false
}

// Includes returns the includes that Compose hasn't resolved.
func (s *Skillet) Includes() []*Include {
	var acc []*Include
	for _, sn := range s.Snippets {
		if sn.Include != nil {
			acc = append(acc, sn.Include)
		}
	}
	return acc
}

// Compile compiles every snippet's expressions and templates and
// finds each snippet's Operation.
//
// The env defaults to filters.NewEnv() and the operations default to
// DefaultOperations.
func (s *Skillet) Compile(ctx context.Context, env *expr.Env, ops OperationsMap) error {
	if env == nil {
		env = filters.NewEnv()
	}
	if ops == nil {
		ops = DefaultOperations
	}
	for _, sn := range s.Snippets {
		if err := sn.Compile(ctx, env, ops); err != nil {
			if bad, is := err.(*BadDefinition); is {
				bad.Skillet = s.Name
			}
			return err
		}
	}
	s.env = env
	s.compiled = true
	return nil
}

// Compiled reports whether Compile has succeeded.
func (s *Skillet) Compiled() bool {
	return s.compiled
}

// Env returns the expression environment given to Compile.
func (s *Skillet) Env() *expr.Env {
	return s.env
}

// Validation reports whether the Skillet's results have the
// validation shape.
func (s *Skillet) Validation() bool {
	return s.Type == "pan_validation" || s.Type == "validation"
}
