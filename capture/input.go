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

import (
	"encoding/json"
	"strings"

	"github.com/Comcast/skillets/document"
)

// Output types.
const (
	XML        = "xml"
	JSON       = "json"
	Text       = "text"
	Manual     = "manual"
	Validation = "validation"
)

// Input is an operation's raw result together with its declared
// output type.  Parsing happens at most once, on demand, so a snippet
// whose directives don't need structure never pays for it (or fails
// on it).
type Input struct {
	OutputType string
	Raw        interface{}

	parsed bool
	node   *document.Node
	prim   interface{}
	err    error
}

func NewInput(outputType string, raw interface{}) *Input {
	return &Input{
		OutputType: outputType,
		Raw:        raw,
	}
}

// Text returns the raw result as text.
func (in *Input) Text() string {
	switch vv := in.Raw.(type) {
	case nil:
		return ""
	case string:
		return vv
	case []byte:
		return string(vv)
	case *document.Node:
		return vv.String()
	default:
		js, err := json.Marshal(vv)
		if err != nil {
			return ""
		}
		return string(js)
	}
}

// Empty reports whether there's no raw result at all.
func (in *Input) Empty() bool {
	switch vv := in.Raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(vv) == ""
	case []byte:
		return len(vv) == 0
	}
	return false
}

func (in *Input) parse() {
	if in.parsed {
		return
	}
	in.parsed = true

	switch in.OutputType {
	case XML:
		if n, is := in.Raw.(*document.Node); is {
			in.node = n
		} else {
			in.node, in.err = document.Parse(in.Text())
		}
		if in.err == nil {
			in.prim = document.Document(in.node)
		}
	case JSON:
		switch vv := in.Raw.(type) {
		case string, []byte:
			var x interface{}
			if err := json.Unmarshal([]byte(in.Text()), &x); err != nil {
				in.err = &document.MalformedDocumentError{Reason: err.Error()}
			}
			in.prim = x
		default:
			in.prim = document.Primitive(vv)
		}
	default:
		in.prim = in.Raw
	}
}

// Node returns the parsed document of an XML result.
func (in *Input) Node() (*document.Node, error) {
	in.parse()
	return in.node, in.err
}

// Primitive returns the result in primitive form.
func (in *Input) Primitive() (interface{}, error) {
	in.parse()
	return in.prim, in.err
}
