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

// Package operations provides the standard Operations that skillet
// snippets can use beyond the core built-ins.
package operations

import (
	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/operations/goja"
	"github.com/Comcast/skillets/operations/rest"
	"github.com/Comcast/skillets/operations/ws"
)

// Standard returns the core built-ins plus validate_xml, javascript,
// rest, ws, and workflow.
//
// The workflow operation finds skillets in the given catalog (which
// can be nil if no skillet uses workflow), and its nested skillets
// are compiled with the returned operations.
func Standard(catalog core.Catalog) core.OperationsMap {
	ops := core.Builtins()

	ops["validate_xml"] = NewValidateXML()
	ops["javascript"] = goja.NewOperation()
	ops["rest"] = rest.NewOperation()
	ops["ws"] = ws.NewOperation()

	wf := NewWorkflow(catalog)
	wf.Operations = ops
	ops["workflow"] = wf

	return ops
}
