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

package capture

// UndefinedSourceVariableError occurs when a filtered capture names a
// source variable that is missing or isn't a list.
type UndefinedSourceVariableError struct {
	Directive string
	Source    string
	Reason    string
}

func (e *UndefinedSourceVariableError) Error() string {
	return `capture "` + e.Directive + `": source variable "` + e.Source + `" ` + e.Reason
}

// BadDirective occurs when a capture directive is malformed.
type BadDirective struct {
	Name   string
	Reason string
}

func (e *BadDirective) Error() string {
	return `bad capture directive "` + e.Name + `": ` + e.Reason
}

// Unsupported occurs when a directive's mode doesn't apply to a
// snippet's output type.
type Unsupported struct {
	Directive  string
	Mode       Mode
	OutputType string
}

func (e *Unsupported) Error() string {
	return `capture "` + e.Directive + `": ` + string(e.Mode) + ` isn't supported for output type "` + e.OutputType + `"`
}
