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

	"github.com/Comcast/skillets/expr"
)

var (
	// DefaultOperations will be used in Skillet.Compile if given
	// nil operations.
	DefaultOperations = Builtins()
)

// Op is what an Operation gets to run: the snippet's rendered
// parameters and a read-only view of the current Bindings.
type Op struct {
	Kind    string
	Snippet *Snippet

	// Params are the snippet's parameters with all templates
	// rendered.
	Params map[string]interface{}

	// Vars must not be modified.  An Operation that wants to
	// write variables returns Outputs.
	Vars Bindings

	// Compiled is whatever the Operation's Compile returned for
	// this snippet.
	Compiled interface{}
}

// Param returns the named parameter as a string.
func (op *Op) Param(name string) (string, bool) {
	x, have := op.Params[name]
	if !have || x == nil {
		return "", false
	}
	return expr.Stringify(x), true
}

// Outputs is an operation result whose entries are written directly
// into the Bindings (and the captured outputs) before any of the
// snippet's output directives run.
type Outputs map[string]interface{}

// Operation executes snippets of some kind.
//
// An Operation is the boundary between the engine and the outside
// world: it might issue a command, call an API, or just reflect a
// variable back for parsing.  The engine only needs a raw result or
// an error.  Any error stops the skillet's execution.
type Operation interface {
	// Compile can make something that helps when Run()ing the
	// snippet later.
	Compile(ctx context.Context, sn *Snippet) (interface{}, error)

	// Run performs the operation.  The result's interpretation
	// depends on the snippet's output type.
	Run(ctx context.Context, op *Op) (interface{}, error)
}

// FuncOperation wraps a Go function as an Operation that needs no
// compilation.
type FuncOperation struct {
	F func(context.Context, *Op) (interface{}, error) `json:"-" yaml:"-"`
}

func (o *FuncOperation) Compile(ctx context.Context, sn *Snippet) (interface{}, error) {
	return nil, nil
}

func (o *FuncOperation) Run(ctx context.Context, op *Op) (interface{}, error) {
	if o == nil || o.F == nil {
		return nil, nil
	}
	return o.F(ctx, op)
}

// OperationsMap maps snippet kinds to Operations.
type OperationsMap map[string]Operation

// Copy makes a shallow copy.
func (m OperationsMap) Copy() OperationsMap {
	acc := make(OperationsMap, len(m))
	for kind, op := range m {
		acc[kind] = op
	}
	return acc
}

// Kinds returns the kinds in the map.
func (m OperationsMap) Kinds() []string {
	acc := make(map[string]bool, len(m))
	for kind := range m {
		acc[kind] = true
	}
	return sortedNames(acc)
}

// Builtins returns the operations every skillet can use:
//
//	noop      returns an empty result.
//	validate  returns nothing; the snippet's test decides.
//	parse     returns the variable named by the "variable" parameter.
//	template  returns the rendered "element" parameter.
func Builtins() OperationsMap {
	return OperationsMap{
		"noop": &FuncOperation{
			F: func(ctx context.Context, op *Op) (interface{}, error) {
				return "", nil
			},
		},
		"validate": &FuncOperation{
			F: func(ctx context.Context, op *Op) (interface{}, error) {
				return nil, nil
			},
		},
		"parse": &FuncOperation{
			F: func(ctx context.Context, op *Op) (interface{}, error) {
				name, _ := op.Param("variable")
				x, have := op.Vars[name]
				if !have {
					return "", nil
				}
				return x, nil
			},
		},
		"template": &FuncOperation{
			F: func(ctx context.Context, op *Op) (interface{}, error) {
				s, _ := op.Param("element")
				return s, nil
			},
		},
	}
}
