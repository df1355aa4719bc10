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

package testutil

import (
	"strings"
	"testing"
)

func TestJS(t *testing.T) {
	if got := JS(map[string]interface{}{"b": 2, "a": []string{"x"}}); got != `{"a":["x"],"b":2}` {
		t.Fatal(got)
	}
	if got := JS(nil); got != "null" {
		t.Fatal(got)
	}
	// Can't marshal a func, so JS falls back to %#v.
	if got := JS(func() {}); !strings.HasPrefix(got, "(func())") {
		t.Fatal(got)
	}
}

func TestDwimjs(t *testing.T) {
	m, is := Dwimjs(`{"zone":"trust"}`).(map[string]interface{})
	if !is || m["zone"] != "trust" {
		t.Fatalf("%#v", m)
	}
	if x := Dwimjs([]byte(`[1]`)); JS(x) != "[1]" {
		t.Fatal(JS(x))
	}
	if x := Dwimjs(42); x != 42 {
		t.Fatal(x)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("didn't panic")
		}
	}()
	Dwimjs("{not json")
}

func TestSame(t *testing.T) {
	if diff, same := Same(`{"a":1,"b":[true]}`, map[string]interface{}{"b": []interface{}{true}, "a": 1}); !same {
		t.Fatal(diff)
	}
	diff, same := Same(`{"a":1}`, `{"a":2}`)
	if same {
		t.Fatal("not the same")
	}
	if !strings.Contains(diff, "1") || !strings.Contains(diff, "2") {
		t.Fatal(diff)
	}
}
