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

package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/Comcast/skillets/document"
)

func testEnv() *Env {
	env := NewEnv()
	env.Filters["upper"] = func(x interface{}, args ...interface{}) (interface{}, error) {
		return strings.ToUpper(Stringify(x)), nil
	}
	env.Filters["fail"] = func(x interface{}, args ...interface{}) (interface{}, error) {
		return nil, &document.PathNotFoundError{Path: "a.b"}
	}
	return env
}

func TestEvalBool(t *testing.T) {
	env := testEnv()
	vs := Vars{
		"s":     "hello",
		"empty": "",
		"n":     3,
		"zero":  0.0,
		"xs":    []interface{}{"a", "b"},
		"m":     map[string]interface{}{"k": "v", "inner": map[string]interface{}{"x": 1}},
		"ym":    map[interface{}]interface{}{"k": "v"},
		"t":     true,
	}

	tests := []struct {
		src  string
		want bool
	}{
		{"s", true},
		{"empty", false},
		{"n", true},
		{"zero", false},
		{"xs", true},
		{"[]", false},
		{"{}", false},
		{"none", false},
		{"t", true},
		{"not t", false},
		{"n == 3", true},
		{"n == 3.0", true},
		{"n != 3", false},
		{"n > 2 and n < 4", true},
		{"n > 5 or s == 'hello'", true},
		{"'a' in xs", true},
		{"'c' not in xs", true},
		{"'ell' in s", true},
		{"'k' in m", true},
		{"m.k == 'v'", true},
		{"m['k'] == 'v'", true},
		{"m.inner.x == 1", true},
		{"ym.k == 'v'", true},
		{"xs[0] == 'a'", true},
		{"xs[-1] == 'b'", true},
		{"xs | upper == '[\"A\",\"B\"]'", true},
		{"s | upper == 'HELLO'", true},
		{"missing is not none", false},
		{"missing is none", true},
		{"missing is defined", false},
		{"missing is undefined", true},
		{"none is not none", false},
		{"s is not none", true},
		{"m.nope is defined", false},
		{"(missing | default('x')) == 'x'", true},
		{"(empty | default('x', true)) == 'x'", true},
		{"'a' ~ n == 'a3'", true},
		{"1 + 2 * 3 == 7", true},
		{"7 // 2 == 3", true},
		{"7 % 4 == 3", true},
		{"-n == -3", true},
		{"'yes' if t else 'no'", true},
		{"n is number and s is string and xs is sequence and m is mapping", true},
		{"[1, 2] == [1.0, 2.0]", true},
		{"{'a': 1} == {'a': 1}", true},
		{"{{ s == 'hello' }}", true},
		{"True and not False and None is none", true},
		{"n is divisibleby(3)", true},
		{"n is odd", true},
	}

	for _, test := range tests {
		x, err := env.Compile(test.src)
		if err != nil {
			t.Fatalf("%s: %s", test.src, err)
		}
		got, err := x.EvalBool(vs)
		if err != nil {
			t.Fatalf("%s: %s", test.src, err)
		}
		if got != test.want {
			t.Fatalf("%s: got %v", test.src, got)
		}
	}
}

func TestUnresolved(t *testing.T) {
	env := testEnv()
	vs := Vars{
		"m": map[string]interface{}{},
	}
	for _, src := range []string{
		"missing",
		"missing == 1",
		"missing.x",
		"m.x",
		"m.x == 'y'",
		"not missing",
		"missing | upper",
		"'a' in missing",
		"[missing]",
		"missing is string",
	} {
		_, err := env.EvalBool(src, vs)
		var unresolved *UnresolvedVariableError
		if !errors.As(err, &unresolved) {
			t.Fatalf("%s: expected UnresolvedVariableError, got %v", src, err)
		}
	}
}

func TestFilterErrorUnwraps(t *testing.T) {
	_, err := testEnv().Eval("1 | fail", nil)
	var missing *document.PathNotFoundError
	if !errors.As(err, &missing) {
		t.Fatal(err)
	}
}

func TestSyntaxErrors(t *testing.T) {
	env := testEnv()
	for _, src := range []string{
		"",
		"a ==",
		"(a",
		"a b",
		"'open",
		"x | nope",
		"x is nope",
		"f(x)",
		"a $ b",
		"[1, 2",
	} {
		if _, err := env.Compile(src); err == nil {
			t.Fatalf("%q should not compile", src)
		}
	}
}

func TestRender(t *testing.T) {
	env := testEnv()
	vs := Vars{
		"name":  "fw1",
		"n":     2,
		"xs":    []interface{}{"a", "b", "c"},
		"m":     map[string]interface{}{"b": 2, "a": 1},
		"flag":  false,
		"nil":   nil,
		"ratio": 0.5,
		"node":  document.MustParse(`<a x="1">t</a>`),
	}

	tests := []struct {
		src  string
		want string
	}{
		{"plain text", "plain text"},
		{"hello {{ name }}!", "hello fw1!"},
		{"{{name|upper}}", "FW1"},
		{"{{ n + 1 }} {{ ratio }}", "3 0.5"},
		{"{{ xs }}", `["a","b","c"]`},
		{"[{{ nil }}]", "[]"},
		{"{{ flag }}", "false"},
		{"{{ node }}", `<a x="1">t</a>`},
		{"{{ '}}' }}", "}}"},
		{"a {# note #}b", "a b"},
		{"a   {{- name -}}   b", "afw1b"},
		{"{% if flag %}yes{% elif n == 2 %}two{% else %}no{% endif %}", "two"},
		{"{% for x in xs %}{{ loop.index }}{{ x }}{% if not loop.last %},{% endif %}{% endfor %}", "1a,2b,3c"},
		{"{% for k, v in m %}{{ k }}={{ v }};{% endfor %}", "a=1;b=2;"},
		{"{% for x in [] %}x{% else %}empty{% endfor %}", "empty"},
		{"{ not a template }", "{ not a template }"},
	}

	for _, test := range tests {
		got, err := env.Render(test.src, vs)
		if err != nil {
			t.Fatalf("%s: %s", test.src, err)
		}
		if got != test.want {
			t.Fatalf("%s: got %q, wanted %q", test.src, got, test.want)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	env := testEnv()
	for _, src := range []string{
		"{{ name",
		"{% if x %}",
		"{% for x %}{% endfor %}",
		"{% while x %}",
		"{% endif %}",
	} {
		if _, err := env.ParseTemplate(src); err == nil {
			t.Fatalf("%q should not parse", src)
		}
	}

	_, err := env.Render("{{ missing }}", nil)
	var unresolved *UnresolvedVariableError
	if !errors.As(err, &unresolved) || unresolved.Name != "missing" {
		t.Fatal(err)
	}

	if s, err := env.Render("{{ missing | default('d') }}", nil); err != nil || s != "d" {
		t.Fatal(s, err)
	}
}

func TestVariables(t *testing.T) {
	env := testEnv()
	x := env.MustCompile("a.b == c[d] and e | upper == 'E' and f is defined")
	if got := strings.Join(x.Variables(), ","); got != "a,c,d,e,f" {
		t.Fatal(got)
	}

	tmpl := env.MustParseTemplate("{{ host }} {% for i in items %}{{ i }}{{ loop.index }}{{ other }}{% endfor %}")
	if got := strings.Join(tmpl.Variables(), ","); got != "host,items,other" {
		t.Fatal(got)
	}
	if tmpl.IsStatic() || !env.MustParseTemplate("static").IsStatic() {
		t.Fatal("IsStatic")
	}
}

func TestBindShadows(t *testing.T) {
	env := testEnv()
	ns := Bind(Vars{"item": 1, "other": 2}, "item", 3)
	b, err := env.EvalBool("item == 3 and other == 2", ns)
	if err != nil || !b {
		t.Fatal(b, err)
	}
}
