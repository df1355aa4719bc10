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

// These errors are user errors, not internal errors.

import (
	"errors"
)

var (
	// OperationNotFound occurs when you try to Compile a Skillet
	// with a snippet whose kind isn't in the given map of
	// operations.
	OperationNotFound = errors.New("operation not found")

	// NotCompiled occurs when a Skillet is executed before it has
	// been Compile()ed.
	NotCompiled = errors.New("skillet not compiled")
)

// OperationError occurs when an operation fails.  An OperationError
// stops the execution of a skillet.
type OperationError struct {
	Snippet string
	Kind    string
	Err     error
}

func (e *OperationError) Error() string {
	return `operation "` + e.Kind + `" failed at snippet "` + e.Snippet + `": ` + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// RenderError occurs when a non-validation snippet's parameters (or
// label) can't be rendered.  Such a snippet can't run, so this error
// also stops execution.
type RenderError struct {
	Snippet string
	Field   string
	Err     error
}

func (e *RenderError) Error() string {
	return `can't render "` + e.Field + `" at snippet "` + e.Snippet + `": ` + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// SnippetError is a failure local to one snippet: a guard, capture,
// or test that couldn't be evaluated.  It is recorded in the
// snippet's result and never stops execution.
type SnippetError struct {
	Snippet string
	Stage   string
	Err     error
}

func (e *SnippetError) Error() string {
	return `snippet "` + e.Snippet + `" ` + e.Stage + `: ` + e.Err.Error()
}

func (e *SnippetError) Unwrap() error {
	return e.Err
}

// UnknownIncludeTargetError occurs during composition when an include
// names a skillet, snippet, or variable that doesn't exist.
type UnknownIncludeTargetError struct {
	Host   string
	Target string

	// Kind is "skillet", "snippet", or "variable".
	Kind string

	// Name is the missing snippet or variable (if any).
	Name string
}

func (e *UnknownIncludeTargetError) Error() string {
	switch e.Kind {
	case "snippet", "variable":
		return `skillet "` + e.Host + `" includes unknown ` + e.Kind + ` "` + e.Name + `" from "` + e.Target + `"`
	}
	return `skillet "` + e.Host + `" includes unknown skillet "` + e.Target + `"`
}

// IncludeCycle occurs when skillets include each other.
type IncludeCycle struct {
	Path []string
}

func (e *IncludeCycle) Error() string {
	s := "include cycle:"
	for _, name := range e.Path {
		s += " " + name
	}
	return s
}

// BadDefinition occurs when a skillet, snippet, or variable
// definition is malformed.
type BadDefinition struct {
	Skillet string
	Snippet string
	Reason  string
}

func (e *BadDefinition) Error() string {
	s := `bad definition in skillet "` + e.Skillet + `"`
	if e.Snippet != "" {
		s += ` snippet "` + e.Snippet + `"`
	}
	return s + ": " + e.Reason
}
