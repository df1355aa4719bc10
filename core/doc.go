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


// Package core provides the engine for skillets: declarative,
// ordered lists of snippets that get data from somewhere, capture
// named values from it, and optionally test those values.
//
// The primary type is Skillet, and the primary method is Execute().
// A Skillet has Variables and Snippets.  Executing a Skillet binds the
// Variables' defaults and the caller's input into Bindings (a
// map[string]interface{}), and then considers each Snippet in order.
// A Snippet's guard ("when") can skip it.  Otherwise its Operation
// runs, its output directives capture variables from the operation's
// result, and (for a validation) its test decides whether it passed.
// Later snippets see everything earlier snippets captured.
//
// A Snippet's kind selects an Operation from an OperationsMap.  An
// Operation is the engine's only contact with the outside world:
// issuing a command, calling an API, or reflecting a variable back
// for parsing.  Package operations has the standard set.
//
// Skillets can include other skillets.  Compose() resolves includes
// into a flat Skillet before it's compiled.
//
// To use this package, make a Skillet with NewSkillet.  Compose() it
// if it has includes.  Then Compile() it, and then Execute() it as
// many times as you like.
package core
