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

package expr

import (
	"strconv"
	"strings"
)

// SyntaxError reports a problem parsing an expression or template.
type SyntaxError struct {
	Source string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return "syntax error at " + strconv.Itoa(e.Offset) + " in " + strconv.Quote(e.Source) + ": " + e.Msg
}

// UnresolvedVariableError occurs when an expression uses a name that
// isn't bound, other than in a presence check ("x is defined", "x is
// not none", "x | default(...)").
type UnresolvedVariableError struct {
	Name string
}

func (e *UnresolvedVariableError) Error() string {
	return `variable "` + e.Name + `" is undefined`
}

// TypeError occurs when an operation gets values it can't handle.
type TypeError struct {
	Op   string
	Msg  string
	Args []interface{}
}

func (e *TypeError) Error() string {
	if len(e.Args) == 0 {
		return e.Op + ": " + e.Msg
	}
	types := make([]string, len(e.Args))
	for i, x := range e.Args {
		types[i] = TypeName(x)
	}
	return e.Op + ": " + e.Msg + " (" + strings.Join(types, ", ") + ")"
}

// UnknownFilter occurs at compile time when an expression pipes into
// a filter the Env doesn't have.
type UnknownFilter struct {
	Name string
}

func (e *UnknownFilter) Error() string {
	return `unknown filter "` + e.Name + `"`
}

// UnknownTest is UnknownFilter for "is" tests.
type UnknownTest struct {
	Name string
}

func (e *UnknownTest) Error() string {
	return `unknown test "` + e.Name + `"`
}

// FilterError wraps an error returned by a filter.
type FilterError struct {
	Filter string
	Err    error
}

func (e *FilterError) Error() string {
	return "filter " + e.Filter + ": " + e.Err.Error()
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
