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
	"reflect"
)

// Variable is a skillet's declaration of an input variable.
//
// The engine only uses a Variable's Default, which seeds the
// Bindings when the caller doesn't supply a value.  The other
// attributes (TypeHint, dd_list, help_text, ...) are for whatever
// presents the skillet to a user.
type Variable struct {
	Name string `json:"name" yaml:"name"`

	Description string `json:"description,omitempty" yaml:",omitempty"`

	// Default is the value used when the input doesn't have one.
	Default interface{} `json:"default" yaml:"default"`

	// TypeHint is (for now) any string.  Defaults to "text".
	TypeHint string `json:"type_hint" yaml:"type_hint"`

	// Attrs has the attributes as declared, before defaults are
	// filled in.  Composition merges Variables attribute by
	// attribute using Attrs.
	Attrs map[string]interface{} `json:"-" yaml:"-"`
}

// listKeys maps type hints to the attribute that gives their
// key/value options.
var listKeys = map[string]string{
	"dropdown": "dd_list",
	"radio":    "rad_list",
	"checkbox": "cbx_list",
}

// NewVariable makes a Variable from its definition.
//
// A default given as an option's key rather than its value is
// replaced by that option's value.
func NewVariable(m map[string]interface{}) (*Variable, error) {
	attrs := make(map[string]interface{}, len(m))
	for k, v := range m {
		attrs[k] = v
	}

	v := &Variable{
		Attrs: attrs,
	}

	name, is := attrs["name"].(string)
	if !is || name == "" {
		name = "Unknown variable"
	}
	v.Name = name

	if s, is := attrs["type_hint"].(string); is && s != "" {
		v.TypeHint = s
	} else {
		v.TypeHint = "text"
	}

	if s, is := attrs["description"].(string); is {
		v.Description = s
	}

	def, have := attrs["default"]
	if !have || def == nil {
		def = ""
	}

	if key, is := listKeys[v.TypeHint]; is {
		if items, is := attrs[key].([]interface{}); is {
			for _, x := range items {
				item, is := x.(map[string]interface{})
				if !is {
					continue
				}
				k, haveKey := item["key"]
				val, haveVal := item["value"]
				if haveKey && haveVal && reflect.DeepEqual(k, def) && !reflect.DeepEqual(val, def) {
					def = val
				}
			}
		}
	}
	v.Default = def

	return v, nil
}

// Copy makes a copy with its own Attrs map.
func (v *Variable) Copy() *Variable {
	attrs := make(map[string]interface{}, len(v.Attrs))
	for k, x := range v.Attrs {
		attrs[k] = x
	}
	return &Variable{
		Name:        v.Name,
		Description: v.Description,
		Default:     v.Default,
		TypeHint:    v.TypeHint,
		Attrs:       attrs,
	}
}

// Merge returns a new Variable with the given attributes on top of
// the receiver's.  Attributes not given keep the receiver's values.
func (v *Variable) Merge(m map[string]interface{}) (*Variable, error) {
	acc := make(map[string]interface{}, len(v.Attrs)+len(m))
	for k, x := range v.Attrs {
		acc[k] = x
	}
	for k, x := range m {
		acc[k] = x
	}
	return NewVariable(acc)
}

// Variables is an ordered list of declarations.
type Variables []*Variable

// Get returns the Variable with the given name (if any).
func (vs Variables) Get(name string) (*Variable, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Defaults returns the default value of every variable.
func (vs Variables) Defaults() Bindings {
	bs := make(Bindings, len(vs))
	for _, v := range vs {
		bs[v.Name] = v.Default
	}
	return bs
}

// Names returns the names of the variables in order.
func (vs Variables) Names() []string {
	acc := make([]string, len(vs))
	for i, v := range vs {
		acc[i] = v.Name
	}
	return acc
}
