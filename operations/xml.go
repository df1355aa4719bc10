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

package operations

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/document"
	"github.com/Comcast/skillets/util"

	"github.com/k14s/difflib"
)

// ConfigVariable is the variable that holds the configuration that
// validate_xml checks.
var ConfigVariable = "config"

// NoConfig occurs when validate_xml runs without a configuration.
var NoConfig = errors.New(`validate_xml requires a "config" variable`)

// ValidateXML is the validate_xml operation: it reports whether the
// configuration element at the snippet's "xpath" parameter is the
// same as its "element" parameter.
//
// Elements are compared structurally, so attribute order,
// indentation, and the like don't matter.  An empty element or an
// xpath that selects nothing is a mismatch.
type ValidateXML struct {
	// Silent, if false, logs a diff when an element doesn't
	// match.
	Silent bool
}

func NewValidateXML() *ValidateXML {
	return &ValidateXML{}
}

func (o *ValidateXML) Compile(ctx context.Context, sn *core.Snippet) (interface{}, error) {
	x, have := sn.Params["xpath"]
	if !have || x == nil {
		return nil, &core.BadDefinition{Snippet: sn.Name, Reason: "validate_xml requires an xpath"}
	}
	if _, have := sn.Params["element"]; !have {
		return nil, &core.BadDefinition{Snippet: sn.Name, Reason: "validate_xml requires an element"}
	}
	return nil, nil
}

func (o *ValidateXML) Run(ctx context.Context, op *core.Op) (interface{}, error) {
	var root *document.Node
	switch vv := op.Vars[ConfigVariable].(type) {
	case nil:
		return nil, NoConfig
	case *document.Node:
		root = vv
	case string:
		n, err := document.Parse(vv)
		if err != nil {
			return nil, err
		}
		root = n
	default:
		return nil, NoConfig
	}

	xpath, _ := op.Param("xpath")
	element, _ := op.Param("element")

	same, diff, err := CompareElement(root, xpath, element)
	if err != nil {
		return nil, err
	}
	if !same && !o.Silent {
		util.Logf("validate_xml %s: %s differs:\n%s", op.Snippet.Name, xpath, diff)
	}
	return same, nil
}

// CompareElement compares the element at the given path with the
// given markup.  When they differ, the diff is a line diff of their
// primitive forms.
func CompareElement(root *document.Node, xpath, element string) (bool, string, error) {
	p, err := document.ParsePath(xpath)
	if err != nil {
		return false, "", err
	}

	if strings.TrimSpace(element) == "" {
		return false, "empty element", nil
	}
	want, err := document.Parse(element)
	if err != nil {
		return false, "", err
	}

	found := document.Resolve(root, p)
	if len(found) == 0 {
		return false, "nothing at " + xpath, nil
	}

	w, err := lines(document.Document(want))
	if err != nil {
		return false, "", err
	}
	g, err := lines(document.Document(found[0]))
	if err != nil {
		return false, "", err
	}

	if strings.Join(w, "\n") == strings.Join(g, "\n") {
		return true, "", nil
	}
	return false, difflib.PPDiff(w, g), nil
}

func lines(x interface{}) ([]string, error) {
	js, err := json.MarshalIndent(&x, "", "  ")
	if err != nil {
		return nil, err
	}
	return strings.Split(string(js), "\n"), nil
}
