/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package match

import (
	"math/rand"
	"testing"

	"github.com/Comcast/skillets/util/testutil"
	fuzz "github.com/google/gofuzz"
)

func TestMatchBasics(t *testing.T) {
	tests := []struct {
		pattern string
		fact    string
		n       int
		want    string
	}{
		{`1`, `1`, 1, `{}`},
		{`"a"`, `"b"`, 0, ``},
		{`"?x"`, `{"a":1}`, 1, `{"?x":{"a":1}}`},
		{`{"a":"?x"}`, `{"a":1,"b":2}`, 1, `{"?x":1}`},
		{`{"a":"?x","c":"?y"}`, `{"a":1,"b":2}`, 0, ``},
		{`{"a":"?x","c":"??y"}`, `{"a":1,"b":2}`, 1, `{"?x":1}`},
		{`{"a":"?x","b":"?x"}`, `{"a":1,"b":2}`, 0, ``},
		{`{"a":"?","b":"?"}`, `{"a":1,"b":2}`, 1, `{}`},
		{`["b","a"]`, `["a","b","c"]`, 1, `{}`},
		{`["a","a"]`, `["a","b"]`, 0, ``},
		{`["?x"]`, `["a","b"]`, 2, ``},
		{`[{"name":"?n","flood":null}]`, `[{"name":"zp1"},{"name":"zp2","flood":null}]`, 1, `{"?n":"zp2"}`},
		{`null`, `null`, 1, `{}`},
		{`true`, `false`, 0, ``},
	}

	for _, test := range tests {
		bss, err := Matches(testutil.Dwimjs(test.pattern), testutil.Dwimjs(test.fact))
		if err != nil {
			t.Fatalf("%s %s: %s", test.pattern, test.fact, err)
		}
		if len(bss) != test.n {
			t.Fatalf("%s %s: got %s", test.pattern, test.fact, testutil.JS(bss))
		}
		if test.want != "" && testutil.JS(bss[0]) != test.want {
			t.Fatalf("%s %s: got %s", test.pattern, test.fact, testutil.JS(bss[0]))
		}
	}
}

func TestMatchInitialBindings(t *testing.T) {
	bs := NewBindings().Extend("?x", 1.0)
	bss, err := Match(map[string]interface{}{"a": "?x"}, map[string]interface{}{"a": 1}, bs)
	if err != nil {
		t.Fatal(err)
	}
	if len(bss) != 1 {
		t.Fatal(bss)
	}
	if len(bs) != 1 {
		t.Fatal("initial bindings modified")
	}
	if s := bss[0].Strip(); s["x"] != 1.0 {
		t.Fatal(s)
	}
}

func TestMatchYAMLShapes(t *testing.T) {
	pattern := map[interface{}]interface{}{"members": []string{"?m"}}
	fact := map[string]interface{}{"members": []interface{}{"a"}}
	bss, err := Matches(pattern, fact)
	if err != nil || len(bss) != 1 || bss[0]["?m"] != "a" {
		t.Fatal(bss, err)
	}
}

func TestMatchUnknownPatternType(t *testing.T) {
	if _, err := Matches(struct{}{}, 1); err == nil {
		t.Fatal("expected an error")
	}
}

// TestMatchSelf checks that any variable-free value matches itself
// with no bindings.
func TestMatchSelf(t *testing.T) {
	var gen func(c fuzz.Continue, depth int) interface{}
	gen = func(c fuzz.Continue, depth int) interface{} {
		switch k := c.Intn(6); {
		case k == 0:
			return nil
		case k == 1:
			return c.RandBool()
		case k == 2:
			return float64(c.Intn(10))
		case k == 3 || depth == 0:
			return string(rune('a' + c.Intn(5)))
		case k == 4:
			xs := make([]interface{}, c.Intn(4))
			for i := range xs {
				xs[i] = gen(c, depth-1)
			}
			return xs
		default:
			m := make(map[string]interface{})
			for i := c.Intn(4); 0 < i; i-- {
				m[string(rune('a'+c.Intn(5)))] = gen(c, depth-1)
			}
			return m
		}
	}

	type sample struct {
		X interface{}
	}
	f := fuzz.New().RandSource(rand.NewSource(42)).Funcs(func(s *sample, c fuzz.Continue) {
		s.X = gen(c, 3)
	})

	for i := 0; i < 1000; i++ {
		var s sample
		f.Fuzz(&s)
		bss, err := Matches(s.X, s.X)
		if err != nil {
			t.Fatal(err)
		}
		if len(bss) == 0 {
			t.Fatalf("%s didn't match itself", testutil.JS(s.X))
		}
		for _, bs := range bss {
			if len(bs) != 0 {
				t.Fatalf("%s: unexpected bindings %s", testutil.JS(s.X), testutil.JS(bs))
			}
		}
	}
}
