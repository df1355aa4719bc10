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

	. "github.com/Comcast/skillets/util/testutil"
)

func library(t *testing.T) CatalogMap {
	return CatalogMap{
		"base": skillet(t, `{"name":"base","type":"pan_validation",
              "variables":[{"name":"min_version","default":"9.0","description":"Minimum version","type_hint":"text"},
                           {"name":"zone","default":"trust"}],
              "snippets":[{"name":"X","label":"original","test":"min_version != ''","severity":"high"},
                          {"name":"Y","test":"zone == 'trust'"},
                          {"name":"Z","test":"true"}]}`),
		"other": skillet(t, `{"name":"other","type":"pan_validation",
              "variables":[{"name":"min_version","default":"10.1"}],
              "snippets":[{"name":"W","test":"min_version is defined"}]}`),
		"loop_a": skillet(t, `{"name":"loop_a","snippets":[{"name":"i","include":"loop_b"}]}`),
		"loop_b": skillet(t, `{"name":"loop_b","snippets":[{"name":"i","include":"loop_a"}]}`),
	}
}

func TestComposeOverrides(t *testing.T) {
	host := skillet(t, `{"name":"host","type":"pan_validation",
             "snippets":[{"name":"first","test":"true"},
                         {"name":"inc","include":"base",
                          "include_snippets":[{"name":"Z"},{"name":"X","label":"override"}]},
                         {"name":"last","test":"true"}]}`)

	s, err := Compose(host, library(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(host.Snippets) != 3 || host.Snippets[1].Include == nil {
		t.Fatal("host was modified")
	}

	names := make([]string, len(s.Snippets))
	for i, sn := range s.Snippets {
		names[i] = sn.Name
	}
	if JS(names) != `["first","Z","X","last"]` {
		t.Fatal(JS(names))
	}

	x, _ := s.Snippet("X")
	if x.Label != "override" || x.Test != "min_version != ''" || x.Severity != "high" || x.Kind != "validate" {
		t.Fatal(JS(x))
	}

	// The catalog's copy is untouched.
	orig, _ := library(t)["base"].Snippet("X")
	if orig.Label != "original" {
		t.Fatal(orig.Label)
	}

	// Variables weren't requested.
	if len(s.Variables) != 0 {
		t.Fatal(JS(s.Variables))
	}

	// min_version is undefined, so X can't be evaluated.
	if err = s.Compile(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	r, err := s.Execute(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if sr, _ := r.Get("X"); sr.State != Failed || sr.Label != "override" {
		t.Fatal(JS(sr))
	}
	if sr, _ := r.Get("Z"); sr.State != Passed {
		t.Fatal(JS(sr))
	}
}

func TestComposeAll(t *testing.T) {
	host := skillet(t, `{"name":"host","type":"pan_validation",
             "snippets":[{"name":"inc","include":"base"}]}`)
	s, err := Compose(host, library(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Snippets) != 3 {
		t.Fatal(JS(s.Snippets))
	}
	if len(s.Variables) != 0 {
		t.Fatal(JS(s.Variables))
	}
}

func TestComposeVariableMerge(t *testing.T) {
	host := skillet(t, `{"name":"host","type":"pan_validation",
             "snippets":[{"name":"inc_base","include":"base","include_snippets":["X"],"include_variables":"all"},
                         {"name":"inc_other","include":"other","include_variables":"all"}]}`)
	s, err := Compose(host, library(t))
	if err != nil {
		t.Fatal(err)
	}

	if JS(s.Variables.Names()) != `["min_version","zone"]` {
		t.Fatal(JS(s.Variables.Names()))
	}
	v, _ := s.Variables.Get("min_version")
	if v.Default != "10.1" {
		t.Fatal(JS(v))
	}
	if v.Description != "Minimum version" {
		t.Fatal(JS(v))
	}

	if err = s.Compile(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	r, err := s.Execute(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != Success || len(r.Results) != 2 {
		t.Fatal(r.Summary())
	}
}

func TestComposeVariableList(t *testing.T) {
	host := skillet(t, `{"name":"host","type":"pan_validation",
             "variables":[{"name":"zone","default":"dmz","description":"Zone to check"}],
             "snippets":[{"name":"inc","include":"base","include_snippets":["Y"],
                          "include_variables":[{"name":"zone","default":"untrust"}]}]}`)
	s, err := Compose(host, library(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Variables) != 1 {
		t.Fatal(JS(s.Variables))
	}
	v := s.Variables[0]
	if v.Default != "untrust" || v.Description != "Zone to check" {
		t.Fatal(JS(v))
	}
}

func TestComposeUnknownTargets(t *testing.T) {
	tests := []struct {
		js   string
		kind string
		name string
	}{
		{`{"name":"h","snippets":[{"name":"i","include":"nope"}]}`, "skillet", ""},
		{`{"name":"h","snippets":[{"name":"i","include":"base","include_snippets":["nope"]}]}`, "snippet", "nope"},
		{`{"name":"h","snippets":[{"name":"i","include":"base","include_variables":["nope"]}]}`, "variable", "nope"},
	}
	for _, test := range tests {
		_, err := Compose(skillet(t, test.js), library(t))
		var ue *UnknownIncludeTargetError
		if !errors.As(err, &ue) {
			t.Fatalf("%s: %v", test.js, err)
		}
		if ue.Kind != test.kind || ue.Name != test.name || ue.Host != "h" {
			t.Fatalf("%s: %#v", test.js, ue)
		}
	}
}

func TestComposeCycle(t *testing.T) {
	lib := library(t)
	_, err := Compose(lib["loop_a"], lib)
	var cycle *IncludeCycle
	if !errors.As(err, &cycle) {
		t.Fatal(err)
	}
	if JS(cycle.Path) != `["loop_a","loop_b","loop_a"]` {
		t.Fatal(JS(cycle.Path))
	}
}

func TestComposeDuplicates(t *testing.T) {
	host := skillet(t, `{"name":"host","type":"pan_validation",
             "snippets":[{"name":"X","test":"true"},
                         {"name":"inc","include":"base","include_snippets":["X"]}]}`)
	_, err := Compose(host, library(t))
	var bad *BadDefinition
	if !errors.As(err, &bad) {
		t.Fatal(err)
	}
}
