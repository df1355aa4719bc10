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

// Package capture extracts named values from operation results.
//
// A Directive names a variable and says how to compute its value:
// the whole object at a path, the first match of a path or regular
// expression, all matches, a filtered copy of an existing list, a
// rendered template, or an expression.  Every directive produces a
// value, using nil or an empty list when nothing is found, so a
// missing datum never removes a variable.
package capture

import (
	"regexp"
	"sort"

	"github.com/Comcast/skillets/document"
	"github.com/Comcast/skillets/expr"
)

// Mode is a directive's extraction strategy.
type Mode string

const (
	Object     Mode = "capture_object"
	First      Mode = "capture_value"
	All        Mode = "capture_list"
	Variable   Mode = "capture_variable"
	Expression Mode = "capture_expression"
	Filtered   Mode = "capture_from"
)

// Directive is an output capture directive.
type Directive struct {
	// Name is the variable the directive writes.
	Name string `json:"name" yaml:"name"`

	// CaptureObject is a path.  The whole object(s) found there
	// are captured.
	CaptureObject string `json:"capture_object,omitempty" yaml:"capture_object,omitempty"`

	// CaptureValue is a path for structured output.  For text
	// output it's a regular expression.
	CaptureValue string `json:"capture_value,omitempty" yaml:"capture_value,omitempty"`

	// CapturePattern is a synonym for CaptureValue.
	CapturePattern string `json:"capture_pattern,omitempty" yaml:"capture_pattern,omitempty"`

	// CaptureList is like CaptureValue but captures all matches.
	CaptureList string `json:"capture_list,omitempty" yaml:"capture_list,omitempty"`

	// CaptureVariable is a template rendered against the current
	// bindings.
	CaptureVariable string `json:"capture_variable,omitempty" yaml:"capture_variable,omitempty"`

	// CaptureExpression is an expression evaluated against the
	// current bindings.  Unlike CaptureVariable, the result keeps
	// its type.
	CaptureExpression string `json:"capture_expression,omitempty" yaml:"capture_expression,omitempty"`

	// CaptureFrom names an existing list-valued variable that
	// FilterItems filters.
	CaptureFrom string `json:"capture_from,omitempty" yaml:"capture_from,omitempty"`

	// Regex optionally applies a regular expression to the text
	// selected by a path.
	Regex string `json:"regex,omitempty" yaml:"regex,omitempty"`

	// FilterItems is an expression evaluated for each item of a
	// list capture with "item" bound to the item.  Only items for
	// which it's true are kept.
	FilterItems string `json:"filter_items,omitempty" yaml:"filter_items,omitempty"`

	mode   Mode
	source *expr.Template
	regex  *expr.Template
	filter *expr.Expr
	eval   *expr.Expr
}

func str(m map[string]interface{}, key string) (string, error) {
	x, have := m[key]
	if !have || x == nil {
		return "", nil
	}
	s, is := x.(string)
	if !is {
		return "", &BadDirective{Name: expr.Stringify(m["name"]), Reason: key + " must be a string"}
	}
	return s, nil
}

// NewDirective makes a Directive from its definition.
func NewDirective(m map[string]interface{}) (*Directive, error) {
	d := &Directive{}
	for key, dst := range map[string]*string{
		"name":               &d.Name,
		"capture_object":     &d.CaptureObject,
		"capture_value":      &d.CaptureValue,
		"capture_pattern":    &d.CapturePattern,
		"capture_list":       &d.CaptureList,
		"capture_variable":   &d.CaptureVariable,
		"capture_expression": &d.CaptureExpression,
		"capture_from":       &d.CaptureFrom,
		"regex":              &d.Regex,
		"filter_items":       &d.FilterItems,
	} {
		s, err := str(m, key)
		if err != nil {
			return nil, err
		}
		*dst = s
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return d, nil
}

// check determines the mode and verifies there's exactly one.
func (d *Directive) check() error {
	if d.Name == "" {
		return &BadDirective{Reason: "missing name"}
	}
	var modes []Mode
	for mode, s := range map[Mode]string{
		Object:     d.CaptureObject,
		First:      d.CaptureValue + d.CapturePattern,
		All:        d.CaptureList,
		Variable:   d.CaptureVariable,
		Expression: d.CaptureExpression,
		Filtered:   d.CaptureFrom,
	} {
		if s != "" {
			modes = append(modes, mode)
		}
	}
	if d.CaptureValue != "" && d.CapturePattern != "" {
		return &BadDirective{d.Name, "capture_value and capture_pattern are exclusive"}
	}
	switch len(modes) {
	case 0:
		return &BadDirective{d.Name, "no capture mode"}
	case 1:
		d.mode = modes[0]
	default:
		return &BadDirective{d.Name, "more than one capture mode"}
	}
	if d.mode == Filtered && d.FilterItems == "" {
		return &BadDirective{d.Name, "capture_from requires filter_items"}
	}
	return nil
}

// Mode returns the directive's extraction strategy.
func (d *Directive) Mode() Mode {
	if d.mode == "" {
		d.check()
	}
	return d.mode
}

func (d *Directive) sourceText() string {
	switch d.mode {
	case Object:
		return d.CaptureObject
	case First:
		return d.CaptureValue + d.CapturePattern
	case All:
		return d.CaptureList
	case Variable:
		return d.CaptureVariable
	}
	return ""
}

// Compile parses the directive's templates and expressions.
func (d *Directive) Compile(env *expr.Env) error {
	if err := d.check(); err != nil {
		return err
	}
	var err error
	if s := d.sourceText(); s != "" {
		if d.source, err = env.ParseTemplate(s); err != nil {
			return &BadDirective{d.Name, err.Error()}
		}
	}
	if d.Regex != "" {
		if d.regex, err = env.ParseTemplate(d.Regex); err != nil {
			return &BadDirective{d.Name, err.Error()}
		}
	}
	if d.FilterItems != "" {
		if d.filter, err = env.Compile(d.FilterItems); err != nil {
			return &BadDirective{d.Name, err.Error()}
		}
	}
	if d.CaptureExpression != "" {
		if d.eval, err = env.Compile(d.CaptureExpression); err != nil {
			return &BadDirective{d.Name, err.Error()}
		}
	}
	return nil
}

// Variables returns the free variables of the directive's templates
// and expressions, excluding "item" in the filter.
func (d *Directive) Variables() []string {
	acc := make(map[string]bool)
	for _, t := range []*expr.Template{d.source, d.regex} {
		if t != nil {
			for _, v := range t.Variables() {
				acc[v] = true
			}
		}
	}
	if d.filter != nil {
		for _, v := range d.filter.Variables() {
			if v != "item" {
				acc[v] = true
			}
		}
	}
	if d.eval != nil {
		for _, v := range d.eval.Variables() {
			acc[v] = true
		}
	}
	if d.CaptureFrom != "" {
		acc[d.CaptureFrom] = true
	}
	names := make([]string, 0, len(acc))
	for v := range acc {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// NotFound returns the value a directive writes when nothing is
// captured: an empty list for list modes and nil otherwise.
func (d *Directive) NotFound() interface{} {
	switch d.Mode() {
	case All, Filtered:
		return []interface{}{}
	}
	return nil
}

// Capture computes the directive's value.
//
// The returned value is always what should be written, even when
// there's an error: on error it's the NotFound value.
func (d *Directive) Capture(in *Input, ns expr.Namespace) (interface{}, error) {
	if d.source == nil && d.eval == nil && d.filter == nil {
		return d.NotFound(), &BadDirective{d.Name, "not compiled"}
	}

	v, err := d.capture(in, ns)
	if err != nil {
		return d.NotFound(), err
	}
	if v == nil {
		return d.NotFound(), nil
	}

	if d.filter != nil && d.mode != Filtered {
		xs, is := expr.AsList(v)
		if !is {
			return v, nil
		}
		if v, err = d.filterItems(xs, ns); err != nil {
			return d.NotFound(), err
		}
	}
	return v, nil
}

func (d *Directive) capture(in *Input, ns expr.Namespace) (interface{}, error) {
	switch d.mode {
	case Variable:
		return d.source.Render(ns)
	case Expression:
		return d.eval.Eval(ns)
	case Filtered:
		return d.filtered(ns)
	}

	if in != nil {
		switch in.OutputType {
		case Manual:
			// capture_value is the value itself.
			if d.mode != First {
				return nil, &Unsupported{d.Name, d.mode, in.OutputType}
			}
			return d.source.Render(ns)
		case Validation:
			return nil, &Unsupported{d.Name, d.mode, in.OutputType}
		}
	}

	if in == nil || in.Empty() {
		return nil, nil
	}

	path, err := d.source.Render(ns)
	if err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if d.regex != nil {
		s, err := d.regex.Render(ns)
		if err != nil {
			return nil, err
		}
		if re, err = regexp.Compile(s); err != nil {
			return nil, &BadDirective{d.Name, err.Error()}
		}
	}

	switch in.OutputType {
	case XML:
		return d.captureXML(in, path, re)
	case JSON:
		return d.captureJSON(in, path, re)
	case Text, "":
		if d.mode == Object {
			return nil, &Unsupported{d.Name, d.mode, in.OutputType}
		}
		re, err := regexp.Compile(path)
		if err != nil {
			return nil, &BadDirective{d.Name, err.Error()}
		}
		if d.mode == First {
			return firstMatch(re, in.Text()), nil
		}
		return allMatches(re, in.Text()), nil
	}
	return nil, &Unsupported{d.Name, d.mode, in.OutputType}
}

// groups returns the first group when there is exactly one, the
// whole match when there are none, and all the groups otherwise.
func groups(m []string) interface{} {
	switch len(m) {
	case 1:
		return m[0]
	case 2:
		return m[1]
	}
	acc := make([]interface{}, len(m)-1)
	for i, s := range m[1:] {
		acc[i] = s
	}
	return acc
}

func firstMatch(re *regexp.Regexp, s string) interface{} {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return groups(m)
}

func allMatches(re *regexp.Regexp, s string) []interface{} {
	acc := make([]interface{}, 0)
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		acc = append(acc, groups(m))
	}
	return acc
}

// item renders a node for a list: the text of a plain leaf, and the
// node's document form otherwise.
func item(n *document.Node) interface{} {
	if n.IsLeaf() && len(n.Attrs) == 0 {
		return document.ToPrimitive(n)
	}
	return document.Document(n)
}

func (d *Directive) captureXML(in *Input, path string, re *regexp.Regexp) (interface{}, error) {
	root, err := in.Node()
	if err != nil {
		return nil, err
	}
	p, err := document.ParsePath(path)
	if err != nil {
		return nil, err
	}

	if d.mode == Object && p.Terminal() == document.ElementStep {
		ns := document.Resolve(root, p)
		switch len(ns) {
		case 0:
			return nil, nil
		case 1:
			return document.Document(ns[0]), nil
		}
		acc := make([]interface{}, len(ns))
		for i, n := range ns {
			acc[i] = item(n)
		}
		return acc, nil
	}

	if d.mode == All && p.Terminal() == document.ElementStep && re == nil {
		ns := document.Resolve(root, p)
		acc := make([]interface{}, len(ns))
		for i, n := range ns {
			acc[i] = item(n)
		}
		return acc, nil
	}

	texts := document.Texts(root, p)
	return d.fromTexts(texts, re), nil
}

// fromTexts applies the optional regex to selected texts.
func (d *Directive) fromTexts(texts []string, re *regexp.Regexp) interface{} {
	if d.mode == All {
		acc := make([]interface{}, 0, len(texts))
		for _, s := range texts {
			if re == nil {
				acc = append(acc, s)
				continue
			}
			acc = append(acc, allMatches(re, s)...)
		}
		return acc
	}

	for _, s := range texts {
		if re == nil {
			if d.mode == Object && 1 < len(texts) {
				acc := make([]interface{}, len(texts))
				for i, t := range texts {
					acc[i] = t
				}
				return acc
			}
			return s
		}
		if m := firstMatch(re, s); m != nil {
			return m
		}
	}
	return nil
}

func (d *Directive) captureJSON(in *Input, path string, re *regexp.Regexp) (interface{}, error) {
	root, err := in.Primitive()
	if err != nil {
		return nil, err
	}
	v, found, err := document.Lookup(root, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	switch d.mode {
	case All:
		xs, is := expr.AsList(v)
		if !is {
			xs = []interface{}{v}
		}
		if re == nil {
			return xs, nil
		}
		texts := make([]string, len(xs))
		for i, x := range xs {
			texts[i] = expr.Stringify(x)
		}
		return d.fromTexts(texts, re), nil
	case First:
		if re != nil {
			return firstMatch(re, expr.Stringify(v)), nil
		}
	}
	return v, nil
}

func (d *Directive) filtered(ns expr.Namespace) (interface{}, error) {
	src, have := ns.Lookup(d.CaptureFrom)
	if !have {
		return nil, &UndefinedSourceVariableError{d.Name, d.CaptureFrom, "is not defined"}
	}
	xs, is := expr.AsList(src)
	if !is {
		return nil, &UndefinedSourceVariableError{d.Name, d.CaptureFrom, "is not a list"}
	}
	return d.filterItems(xs, ns)
}

func (d *Directive) filterItems(xs []interface{}, ns expr.Namespace) ([]interface{}, error) {
	acc := make([]interface{}, 0, len(xs))
	for _, x := range xs {
		keep, err := d.filter.EvalBool(expr.Bind(ns, "item", x))
		if err != nil {
			return nil, err
		}
		if keep {
			acc = append(acc, x)
		}
	}
	return acc, nil
}
