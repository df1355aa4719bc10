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
	"errors"
	"testing"

	"github.com/Comcast/skillets/capture"
	. "github.com/Comcast/skillets/util/testutil"
)

func skillet(t *testing.T, js string) *Skillet {
	m, is := Dwimjs(js).(map[string]interface{})
	if !is {
		t.Fatalf("bad skillet %s", js)
	}
	s, err := NewSkillet(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func compiled(t *testing.T, js string, ops OperationsMap) *Skillet {
	s := skillet(t, js)
	if err := s.Compile(context.Background(), nil, ops); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSkilletDefaults(t *testing.T) {
	s := skillet(t, `{"snippets":[{"name":"a","element":"x"}],
                          "variables":[{"name":"v"},"junk",{"name":"w","type_hint":"dropdown","default":"k1",
                                       "dd_list":[{"key":"k1","value":"v1"},{"key":"k2","value":"v2"}]}],
                          "labels":{"collection":"Mine"}}`)

	if s.Name != "Unknown Skillet" || s.Type != "template" || s.Label != "Unknown Skillet" {
		t.Fatal(JS(s))
	}
	if JS(s.Labels["collection"]) != `["Mine"]` {
		t.Fatal(JS(s.Labels))
	}
	if len(s.Variables) != 2 {
		t.Fatal(JS(s.Variables))
	}
	if v := s.Variables[0]; v.TypeHint != "text" || v.Default != "" {
		t.Fatal(JS(v))
	}
	if v := s.Variables[1]; v.Default != "v1" {
		t.Fatal(JS(v))
	}
	if _, have := s.Variables[1].Attrs["type_hint"]; !have {
		t.Fatal("declared attribute missing")
	}
	if _, have := s.Variables[0].Attrs["type_hint"]; have {
		t.Fatal("defaulted attribute recorded as declared")
	}

	sn, have := s.Snippet("a")
	if !have {
		t.Fatal("no snippet a")
	}
	if sn.Kind != "template" || sn.OutputType != capture.Text {
		t.Fatal(JS(sn))
	}
	if sn.Params["element"] != "x" {
		t.Fatal(JS(sn.Params))
	}
}

func TestValidationDefaults(t *testing.T) {
	s := skillet(t, `{"name":"v","type":"pan_validation",
                          "snippets":[{"name":"a","test":"true"},
                                      {"name":"b","cmd":"parse","variable":"config"}]}`)
	a, _ := s.Snippet("a")
	if a.Kind != "validate" || !a.Validates() || a.Severity != "low" || a.PassMessage == "" {
		t.Fatal(JS(a))
	}
	b, _ := s.Snippet("b")
	if b.Validates() || b.OutputType != capture.XML {
		t.Fatal(JS(b))
	}
}

func TestBadDefinitions(t *testing.T) {
	for _, js := range []string{
		`{"snippets":[{"name":"a"},{"name":"a"}]}`,
		`{"snippets":[{"label":"no name"}]}`,
		`{"type":"pan_validation","snippets":[{"name":"a","cmd":"validate"}]}`,
		`{"snippets":[{"name":"a","outputs":"x"}]}`,
		`{"snippets":[{"name":"a","outputs":[{"name":"x"}]}]}`,
		`{"snippets":["a"]}`,
		`{"name":["a"]}`,
		`{"snippets":[{"include":"x","include_variables":"some"}]}`,
	} {
		m := Dwimjs(js).(map[string]interface{})
		if _, err := NewSkillet(m); err == nil {
			t.Fatalf("%s should be rejected", js)
		} else {
			var bad *BadDefinition
			if !errors.As(err, &bad) {
				t.Fatalf("%s: %T %s", js, err, err)
			}
		}
	}
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	s := skillet(t, `{"snippets":[{"name":"a","cmd":"teleport"}]}`)
	err := s.Compile(ctx, nil, nil)
	if !errors.Is(err, OperationNotFound) {
		t.Fatal(err)
	}
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Snippet != "a" {
		t.Fatal(err)
	}

	s = skillet(t, `{"snippets":[{"name":"a","when":"x ==","cmd":"noop"}]}`)
	if err = s.Compile(ctx, nil, nil); err == nil {
		t.Fatal("expected an error")
	}

	s = skillet(t, `{"snippets":[{"include":"other"}]}`)
	if err = s.Compile(ctx, nil, nil); err == nil {
		t.Fatal("compiled an unresolved include")
	}

	if _, err = s.Execute(ctx, nil); err != NotCompiled {
		t.Fatal(err)
	}
}

func TestVariableMerge(t *testing.T) {
	v, err := NewVariable(map[string]interface{}{
		"name":        "zone",
		"description": "Zone",
		"default":     "trust",
	})
	if err != nil {
		t.Fatal(err)
	}
	w, err := v.Merge(map[string]interface{}{
		"name":    "zone",
		"default": "untrust",
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.Default != "untrust" || w.Description != "Zone" {
		t.Fatal(JS(w))
	}
	if v.Default != "trust" {
		t.Fatal("merge modified its receiver")
	}
}
