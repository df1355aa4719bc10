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

// Package expr implements a small expression and template language
// with Jinja-like syntax.
//
// Expressions reference variables in a Namespace, access members with
// "." and "[]", pipe values through registered filters ("x |
// tag_present('a.b')"), apply tests ("x is not none"), and combine
// values with comparisons and boolean connectives.  Templates
// interpolate expressions in "{{ }}" and support "{% if %}" and "{%
// for %}" blocks.
//
// Filters and tests live in an Env, so new ones are added by
// registration.  The grammar doesn't change.
package expr

import (
	"sort"
	"strings"
)

// Namespace is what an expression sees.
type Namespace interface {
	Lookup(name string) (interface{}, bool)
}

// Vars is the simplest Namespace.
type Vars map[string]interface{}

func (vs Vars) Lookup(name string) (interface{}, bool) {
	v, have := vs[name]
	return v, have
}

type binding struct {
	parent Namespace
	name   string
	value  interface{}
}

func (b *binding) Lookup(name string) (interface{}, bool) {
	if name == b.name {
		return b.value, true
	}
	if b.parent == nil {
		return nil, false
	}
	return b.parent.Lookup(name)
}

// Bind returns a Namespace with one additional (or shadowing)
// binding.  The parent isn't modified.
func Bind(parent Namespace, name string, value interface{}) Namespace {
	return &binding{
		parent: parent,
		name:   name,
		value:  value,
	}
}

// Filter transforms a subject given some arguments.
type Filter func(subject interface{}, args ...interface{}) (interface{}, error)

// Test is a predicate used with "is".
type Test func(x interface{}, args ...interface{}) (bool, error)

// Env holds the filters and tests that expressions can use.
//
// An Env should not be modified once expressions have been compiled
// against it.  Evaluation doesn't modify it, so one Env can serve
// concurrent evaluations.
type Env struct {
	Filters map[string]Filter
	Tests   map[string]Test
}

// NewEnv makes an Env with the standard tests and the "default"
// filter.
func NewEnv() *Env {
	env := &Env{
		Filters: make(map[string]Filter),
		Tests:   make(map[string]Test),
	}
	for name, t := range standardTests {
		env.Tests[name] = t
	}
	return env
}

// Copy returns a shallow copy that can be extended independently.
func (e *Env) Copy() *Env {
	acc := &Env{
		Filters: make(map[string]Filter, len(e.Filters)),
		Tests:   make(map[string]Test, len(e.Tests)),
	}
	for name, f := range e.Filters {
		acc.Filters[name] = f
	}
	for name, t := range e.Tests {
		acc.Tests[name] = t
	}
	return acc
}

// FilterNames returns the sorted names of the registered filters.
func (e *Env) FilterNames() []string {
	acc := make([]string, 0, len(e.Filters))
	for name := range e.Filters {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Expr is a compiled expression.
type Expr struct {
	Source string

	env  *Env
	root node
}

// Compile parses an expression.
//
// The expression may optionally be wrapped in "{{ }}", which is how
// guards and tests are often written.
func (e *Env) Compile(src string) (*Expr, error) {
	root, err := parseExpression(e, unwrap(src))
	if err != nil {
		return nil, err
	}
	return &Expr{
		Source: src,
		env:    e,
		root:   root,
	}, nil
}

// MustCompile is Compile that panics.
func (e *Env) MustCompile(src string) *Expr {
	x, err := e.Compile(src)
	if err != nil {
		panic(err)
	}
	return x
}

// unwrap removes a single enclosing "{{ }}".
func unwrap(src string) string {
	s := strings.TrimSpace(src)
	if len(s) < 4 || s[:2] != "{{" || s[len(s)-2:] != "}}" {
		return src
	}
	inner := s[2 : len(s)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return src
	}
	return inner
}

// Eval evaluates the expression.  A result that is an unbound
// reference is an UnresolvedVariableError.
func (x *Expr) Eval(ns Namespace) (interface{}, error) {
	if ns == nil {
		ns = Vars{}
	}
	v, err := x.root.eval(x.env, ns)
	if err != nil {
		return nil, err
	}
	if err = defined(v); err != nil {
		return nil, err
	}
	return v, nil
}

// EvalBool evaluates the expression and coerces the result with
// Truthy.
func (x *Expr) EvalBool(ns Namespace) (bool, error) {
	v, err := x.Eval(ns)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Variables returns the sorted names of the free variables of the
// expression.
func (x *Expr) Variables() []string {
	acc := make(map[string]bool)
	x.root.names(acc)
	return sortedSet(acc)
}

func sortedSet(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for name := range m {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Eval compiles and evaluates an expression.
func (e *Env) Eval(src string, ns Namespace) (interface{}, error) {
	x, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	return x.Eval(ns)
}

// EvalBool compiles and evaluates an expression as a boolean.
func (e *Env) EvalBool(src string, ns Namespace) (bool, error) {
	x, err := e.Compile(src)
	if err != nil {
		return false, err
	}
	return x.EvalBool(ns)
}

// Render parses and renders a template.
func (e *Env) Render(src string, ns Namespace) (string, error) {
	t, err := e.ParseTemplate(src)
	if err != nil {
		return "", err
	}
	return t.Render(ns)
}
