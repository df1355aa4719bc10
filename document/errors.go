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

package document

import "strconv"

// MalformedDocumentError occurs when raw markup cannot be parsed.
type MalformedDocumentError struct {
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return "malformed document: " + e.Reason
}

// PathNotFoundError occurs when a value is required at a path but
// nothing is there.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return `path "` + e.Path + `" not found`
}

// BadPath occurs when a path string can't be parsed.
type BadPath struct {
	Path   string
	Offset int
	Reason string
}

func (e *BadPath) Error() string {
	return `bad path "` + e.Path + `" at ` + strconv.Itoa(e.Offset) + ": " + e.Reason
}
