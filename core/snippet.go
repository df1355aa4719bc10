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
)

// DefaultValidationMessage is the pass and fail message of a
// validation snippet that doesn't give its own.
const DefaultValidationMessage = `Snippet Validation results were {{ "True" if result else "False" }}`

// reserved are the snippet keys the engine interprets itself.  All
// other keys are operation parameters.
var reserved = map[string]bool{
	"name":               true,
	"label":              true,
	"when":               true,
	"cmd":                true,
	"output_type":        true,
	"outputs":            true,
	"test":               true,
	"pass_message":       true,
	"fail_message":       true,
	"severity":           true,
	"documentation_link": true,
	"tag":                true,
	"meta":               true,
}

// Include is a snippet entry that pulls snippets and variables from
// another skillet.  See Compose.
type Include struct {
	// Skillet is the name of the included skillet.
	Skillet string `json:"include"`

	// Snippets, if not nil, lists the included snippets (by
	// "name") along with any overriding fields.  A nil Snippets
	// includes every snippet.
	Snippets []map[string]interface{} `json:"include_snippets,omitempty"`

	// AllVariables includes all of the target's variables.
	AllVariables bool `json:"-"`

	// Variables lists included variables (by "name") with any
	// overriding attributes.
	Variables []map[string]interface{} `json:"include_variables,omitempty"`
}

// Snippet is a single named unit of work in a Skillet.
type Snippet struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`

	// When is an optional guard expression.  The snippet is
	// skipped when it's false.
	When string `json:"when,omitempty"`

	// Kind selects the Operation.
	Kind string `json:"cmd"`

	// OutputType says how to interpret the operation's result for
	// captures: xml, json, text, manual, or validation.
	OutputType string `json:"output_type"`

	// Test is the expression a validation snippet evaluates.
	Test string `json:"test,omitempty"`

	PassMessage       string `json:"pass_message,omitempty"`
	FailMessage       string `json:"fail_message,omitempty"`
	Severity          string `json:"severity,omitempty"`
	DocumentationLink string `json:"documentation_link,omitempty"`

	Tags []string `json:"tag,omitempty"`

	// Meta is opaque metadata passed through to the result.
	Meta map[string]interface{} `json:"meta,omitempty"`

	Outputs []*capture.Directive `json:"outputs,omitempty"`

	// Params are the operation parameters: all of the
	// definition's other keys.  String values (at any depth) are
	// templates.
	Params map[string]interface{} `json:"-"`

	// Include is not nil for an include entry, which Compose
	// replaces with the included snippets.
	Include *Include `json:"-"`

	// Def is the definition with defaults filled in.
	Def map[string]interface{} `json:"-"`

	when     *expr.Expr
	test     *expr.Expr
	label    *expr.Template
	pass     *expr.Template
	fail     *expr.Template
	params   map[string]interface{}
	op       Operation
	compiled interface{}
}

// Defaults gives the snippet defaults for a type of skillet.
type Defaults struct {
	Kind       string
	OutputType string
	Severity   string
}

func stringField(skillet string, m map[string]interface{}, key string) (string, error) {
	x, have := m[key]
	if !have || x == nil {
		return "", nil
	}
	switch vv := x.(type) {
	case string:
		return vv, nil
	case bool, int, int64, float64:
		return expr.Stringify(vv), nil
	}
	name, _ := m["name"].(string)
	return "", &BadDefinition{skillet, name, key + " must be a string"}
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	acc := make(map[string]interface{}, len(m))
	for k, v := range m {
		acc[k] = v
	}
	return acc
}

func newInclude(skillet string, m map[string]interface{}) (*Include, error) {
	inc := &Include{}
	inc.Skillet, _ = m["include"].(string)
	if inc.Skillet == "" {
		return nil, &BadDefinition{skillet, "", "include must name a skillet"}
	}

	entries := func(key string, x interface{}) ([]map[string]interface{}, error) {
		xs, is := x.([]interface{})
		if !is {
			return nil, &BadDefinition{skillet, "", key + " must be a list"}
		}
		acc := make([]map[string]interface{}, 0, len(xs))
		for _, x := range xs {
			switch vv := x.(type) {
			case string:
				acc = append(acc, map[string]interface{}{"name": vv})
			case map[string]interface{}:
				if name, _ := vv["name"].(string); name == "" {
					return nil, &BadDefinition{skillet, "", key + " entry without a name"}
				}
				acc = append(acc, vv)
			default:
				return nil, &BadDefinition{skillet, "", "bad " + key + " entry"}
			}
		}
		return acc, nil
	}

	var err error
	if x, have := m["include_snippets"]; have && x != nil {
		if inc.Snippets, err = entries("include_snippets", x); err != nil {
			return nil, err
		}
	}
	if x, have := m["include_variables"]; have && x != nil {
		if s, is := x.(string); is {
			if s != "all" {
				return nil, &BadDefinition{skillet, "", `include_variables must be "all" or a list`}
			}
			inc.AllVariables = true
		} else if inc.Variables, err = entries("include_variables", x); err != nil {
			return nil, err
		}
	}
	return inc, nil
}

// NewSnippet makes a Snippet from its definition.
func NewSnippet(skillet string, m map[string]interface{}, defaults Defaults) (*Snippet, error) {
	def := copyMap(m)

	if _, have := def["include"]; have {
		inc, err := newInclude(skillet, def)
		if err != nil {
			return nil, err
		}
		name, _ := def["name"].(string)
		if name == "" {
			name = "include " + inc.Skillet
		}
		return &Snippet{
			Name:    name,
			Include: inc,
			Def:     def,
		}, nil
	}

	sn := &Snippet{
		Params: make(map[string]interface{}),
		Def:    def,
	}

	var err error
	for key, dst := range map[string]*string{
		"name":               &sn.Name,
		"label":              &sn.Label,
		"when":               &sn.When,
		"cmd":                &sn.Kind,
		"output_type":        &sn.OutputType,
		"test":               &sn.Test,
		"pass_message":       &sn.PassMessage,
		"fail_message":       &sn.FailMessage,
		"severity":           &sn.Severity,
		"documentation_link": &sn.DocumentationLink,
	} {
		if *dst, err = stringField(skillet, def, key); err != nil {
			return nil, err
		}
	}
	if sn.Name == "" {
		return nil, &BadDefinition{skillet, "", "snippet without a name"}
	}

	if sn.Kind == "" {
		sn.Kind = defaults.Kind
	}
	if sn.Kind == "" {
		sn.Kind = "noop"
	}
	def["cmd"] = sn.Kind

	switch sn.Kind {
	case "validate":
		if sn.Test == "" {
			return nil, &BadDefinition{skillet, sn.Name, "validate requires a test"}
		}
		sn.OutputType = capture.Validation
	case "validate_xml":
		if sn.OutputType == "" {
			sn.OutputType = capture.Validation
		}
	}
	if sn.OutputType == "" {
		sn.OutputType = defaults.OutputType
	}
	if sn.OutputType == "" {
		sn.OutputType = capture.Text
	}
	def["output_type"] = sn.OutputType

	if sn.Validates() {
		if sn.Severity == "" && defaults.Severity != "" {
			sn.Severity = defaults.Severity
			def["severity"] = sn.Severity
		}
		if sn.PassMessage == "" {
			sn.PassMessage = DefaultValidationMessage
		}
		if sn.FailMessage == "" {
			sn.FailMessage = DefaultValidationMessage
		}
	}

	switch vv := def["tag"].(type) {
	case string:
		sn.Tags = []string{vv}
	case []interface{}:
		for _, x := range vv {
			if s, is := x.(string); is {
				sn.Tags = append(sn.Tags, s)
			}
		}
	}

	if meta, is := def["meta"].(map[string]interface{}); is {
		sn.Meta = meta
	}

	if x, have := def["outputs"]; have && x != nil {
		xs, is := x.([]interface{})
		if !is {
			return nil, &BadDefinition{skillet, sn.Name, "outputs must be a list"}
		}
		for _, x := range xs {
			m, is := x.(map[string]interface{})
			if !is {
				return nil, &BadDefinition{skillet, sn.Name, "bad output"}
			}
			d, err := capture.NewDirective(m)
			if err != nil {
				return nil, &BadDefinition{skillet, sn.Name, err.Error()}
			}
			sn.Outputs = append(sn.Outputs, d)
		}
	}

	for k, v := range def {
		if !reserved[k] {
			sn.Params[k] = v
		}
	}

	return sn, nil
}

// Validates reports whether the snippet is a validation, which
// passes or fails.
func (sn *Snippet) Validates() bool {
	return sn.OutputType == capture.Validation
}

// HasTag reports whether the snippet has the given tag.
func (sn *Snippet) HasTag(tag string) bool {
	for _, t := range sn.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Copy makes an uncompiled copy of the snippet.
func (sn *Snippet) Copy() *Snippet {
	c, err := sn.With(nil)
	if err != nil {
		// Can't happen: the definition was good before.
		panic(err)
	}
	return c
}

// With makes an uncompiled copy of the snippet with the given fields
// replacing the definition's.  Fields are replaced, not merged.
func (sn *Snippet) With(overrides map[string]interface{}) (*Snippet, error) {
	def := copyMap(sn.Def)
	for k, v := range overrides {
		def[k] = v
	}
	return NewSnippet("", def, Defaults{})
}

// Compile parses the snippet's expressions and templates and finds
// its Operation.
func (sn *Snippet) Compile(ctx context.Context, env *expr.Env, ops OperationsMap) error {
	if sn.Include != nil {
		return &BadDefinition{"", sn.Name, `unresolved include of "` + sn.Include.Skillet + `"`}
	}

	bad := func(field string, err error) error {
		return &BadDefinition{"", sn.Name, field + ": " + err.Error()}
	}

	var err error
	if sn.When != "" {
		if sn.when, err = env.Compile(sn.When); err != nil {
			return bad("when", err)
		}
	}
	if sn.Test != "" {
		if sn.test, err = env.Compile(sn.Test); err != nil {
			return bad("test", err)
		}
	}
	for _, t := range []struct {
		field string
		src   string
		dst   **expr.Template
	}{
		{"label", sn.Label, &sn.label},
		{"pass_message", sn.PassMessage, &sn.pass},
		{"fail_message", sn.FailMessage, &sn.fail},
	} {
		if *t.dst, err = env.ParseTemplate(t.src); err != nil {
			return bad(t.field, err)
		}
	}

	params, err := compileValue(env, sn.Params)
	if err != nil {
		return bad("parameters", err)
	}
	sn.params = params.(map[string]interface{})

	for _, d := range sn.Outputs {
		if err = d.Compile(env); err != nil {
			return bad("outputs", err)
		}
	}

	op, have := ops[sn.Kind]
	if !have {
		return &OperationError{sn.Name, sn.Kind, OperationNotFound}
	}
	if sn.compiled, err = op.Compile(ctx, sn); err != nil {
		return &OperationError{sn.Name, sn.Kind, err}
	}
	sn.op = op

	return nil
}

// compileValue replaces every string in a parameter value with its
// template.
func compileValue(env *expr.Env, x interface{}) (interface{}, error) {
	switch vv := x.(type) {
	case string:
		return env.ParseTemplate(vv)
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			c, err := compileValue(env, v)
			if err != nil {
				return nil, err
			}
			acc[k] = c
		}
		return acc, nil
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			c, err := compileValue(env, v)
			if err != nil {
				return nil, err
			}
			acc[i] = c
		}
		return acc, nil
	default:
		return x, nil
	}
}

// renderValue is the inverse of compileValue.
func renderValue(ns expr.Namespace, x interface{}) (interface{}, error) {
	switch vv := x.(type) {
	case *expr.Template:
		return vv.Render(ns)
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			r, err := renderValue(ns, v)
			if err != nil {
				return nil, err
			}
			acc[k] = r
		}
		return acc, nil
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			r, err := renderValue(ns, v)
			if err != nil {
				return nil, err
			}
			acc[i] = r
		}
		return acc, nil
	default:
		return x, nil
	}
}

func valueVariables(x interface{}, acc map[string]bool) {
	switch vv := x.(type) {
	case *expr.Template:
		for _, v := range vv.Variables() {
			acc[v] = true
		}
	case map[string]interface{}:
		for _, v := range vv {
			valueVariables(v, acc)
		}
	case []interface{}:
		for _, v := range vv {
			valueVariables(v, acc)
		}
	}
}

// Variables returns the names a compiled snippet reads: free
// variables of its guard, test, messages, parameters, and captures.
func (sn *Snippet) Variables() []string {
	acc := make(map[string]bool)
	for _, x := range []*expr.Expr{sn.when, sn.test} {
		if x != nil {
			for _, v := range x.Variables() {
				acc[v] = true
			}
		}
	}
	for _, t := range []*expr.Template{sn.label, sn.pass, sn.fail} {
		if t != nil {
			valueVariables(t, acc)
		}
	}
	delete(acc, "result")
	valueVariables(sn.params, acc)
	for _, d := range sn.Outputs {
		for _, v := range d.Variables() {
			acc[v] = true
		}
	}
	return sortedNames(acc)
}

// Captures returns the names the snippet's outputs write.
func (sn *Snippet) Captures() []string {
	acc := make([]string, len(sn.Outputs))
	for i, d := range sn.Outputs {
		acc[i] = d.Name
	}
	return acc
}
