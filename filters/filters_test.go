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

package filters

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/Comcast/skillets/document"
	"github.com/Comcast/skillets/expr"
	fuzz "github.com/google/gofuzz"
)

const system = `<config><devices><entry name="localhost.localdomain"><deviceconfig><system>
  <hostname>fw1</hostname>
  <dns-setting><servers><primary>8.8.8.8</primary></servers></dns-setting>
  <update-schedule><statistics-service><application-reports>yes</application-reports></statistics-service></update-schedule>
  <permitted-ip><entry name="10.0.0.0/8"/><entry name="192.168.1.0/24"/></permitted-ip>
  <login-banner/>
</system></deviceconfig></entry></devices></config>`

func vars() expr.Vars {
	root := document.MustParse(system)
	sys := document.Resolve(root, document.MustParsePath("//system"))[0]
	return expr.Vars{
		"config":      root,
		"raw":         system,
		"system":      document.Document(sys),
		"update":      document.Document(document.Resolve(root, document.MustParsePath("//update-schedule"))[0]),
		"members":     []interface{}{"a", "b", "c"},
		"profiles":    []interface{}{map[string]interface{}{"name": "p1", "rules": []interface{}{"r1", "r2"}}, map[string]interface{}{"name": "p2"}},
		"version":     "10.1.3",
		"nothing":     nil,
		"emptyString": "",
	}
}

func TestPathFilters(t *testing.T) {
	env := NewEnv()
	vs := vars()

	tests := []struct {
		src  string
		want bool
	}{
		{"system | tag_present('system.hostname')", true},
		{"system | tag_present('hostname')", true},
		{"system | tag_present('system/dns-setting/servers/primary')", true},
		{"system | tag_present('system.ntp-servers')", false},
		{"system | tag_absent('system.ntp-servers')", true},
		{"system | tag_present('system.login-banner')", true},
		{"config | tag_present('devices.entry.deviceconfig.system.hostname')", true},
		{"raw | tag_present('devices.entry.deviceconfig.system.hostname')", true},
		{"update | tag_present('update-schedule.statistics-service')", true},
		{"update | tag_present('statistics-service.application-reports')", true},
		{"system | attribute_present('system.permitted-ip.entry', 'name', '10.0.0.0/8')", true},
		{"system | attribute_present('system.permitted-ip.entry', '@name', '192.168.1.0/24')", true},
		{"system | attribute_present('system.permitted-ip.entry', 'name', '172.16.0.0/12')", false},
		{"system | attribute_absent('system.permitted-ip.entry', 'name', '172.16.0.0/12')", true},
		{"config | attribute_present('devices.entry', 'name', 'localhost.localdomain')", true},
		{"system | attribute_present('system.nope', 'name', 'x')", false},
		{"(system | element_value('system.hostname')) == 'fw1'", true},
		{"(system | element_value('system.dns-setting.servers.primary')) == '8.8.8.8'", true},
		{"system | element_value_contains('system.hostname', 'fw1')", true},
		{"system | element_value_contains('system.hostname', 'fw2')", false},
		{"system | element_value_contains('system.nope', 'fw1')", false},
		{"system | element_value_contains('system.permitted-ip.entry.@name', '10.0.0.0/8')", true},
		{"(system | element_list('system.permitted-ip.entry')) | length == 2", true},
		{"(system | element_list('system.nope')) | length == 0", true},
		{"['a', 'c'] | items_present(members)", true},
		{"['a', 'd'] | items_present(members)", false},
		{"['d', 'e'] | items_absent(members)", true},
		{"['r2'] | items_present(profiles, 'rules')", true},
		{"['p2'] | items_present(profiles, 'name')", true},
		{"['p3'] | items_present(profiles, 'name')", false},
		{"'b' | item_present(members)", true},
		{"members | difference(['a']) == ['b', 'c']", true},
		{"nothing | listify == []", true},
		{"'x' | listify == ['x']", true},
		{"members | join(',') == 'a,b,c'", true},
		{"members | first == 'a' and members | last == 'c'", true},
		{"'3' | int == 3", true},
		{"' A ' | trim | lower == 'a'", true},
		{"'a b' | split == ['a', 'b']", true},
		{"['b', 'a', 'b'] | unique | sort == ['a', 'b']", true},
		{"'uptime 12 days' | regex_search('uptime (\\\\d+)') == '12'", true},
		{"version | version_compare('10.1.0', '>=')", true},
		{"version | version_compare('>= 9.1, < 10.1')", false},
		{"'10.1.2.3' | in_network(['10.0.0.0/8'])", true},
		{"'11.1.2.3' | in_network('10.0.0.0/8')", false},
		{"profiles | matches([{'name': '?n', 'rules': ['r1']}])", true},
		{"(profiles | match_bindings([{'name': '?n', 'rules': ['r1']}])).n == 'p1'", true},
		{"('2024-01-01T00:00:00Z' | cron_next('0 12 * * *')) == '2024-01-01T12:00:00Z'", true},
		{"'host' | append_uuid | length == 41", true},
	}

	for _, test := range tests {
		got, err := env.EvalBool(test.src, vs)
		if err != nil {
			t.Fatalf("%s: %s", test.src, err)
		}
		if got != test.want {
			t.Fatalf("%s: got %v", test.src, got)
		}
	}
}

func TestElementValueMissing(t *testing.T) {
	_, err := NewEnv().Eval("system | element_value('system.nope')", vars())
	var missing *document.PathNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}

	// Guarding with a presence check avoids the error.
	src := "system | tag_present('system.nope') and (system | element_value('system.nope')) == 'x'"
	b, err := NewEnv().EvalBool(src, vars())
	if err != nil || b {
		t.Fatal(b, err)
	}
}

func TestBadArgs(t *testing.T) {
	env := NewEnv()
	for _, src := range []string{
		"system | tag_present",
		"system | tag_present(1)",
		"system | attribute_present('a')",
		"system | tag_present('a[')",
		"'<broken' | tag_present('a')",
	} {
		if _, err := env.Eval(src, vars()); err == nil {
			t.Fatalf("%s: expected an error", src)
		}
	}
}

// TestNegations checks that the absent filters are the exact
// negations of the present filters over random documents and paths.
func TestNegations(t *testing.T) {
	var (
		tags  = []string{"a", "b", "entry"}
		names = []string{"x", "y"}
		env   = NewEnv()
	)

	var gen func(c fuzz.Continue, depth int) string
	gen = func(c fuzz.Continue, depth int) string {
		tag := tags[c.Intn(len(tags))]
		attrs := ""
		if c.Intn(2) == 0 {
			attrs = ` name="` + names[c.Intn(len(names))] + `"`
		}
		if depth == 0 || c.Intn(3) == 0 {
			return "<" + tag + attrs + ">" + names[c.Intn(len(names))] + "</" + tag + ">"
		}
		var b strings.Builder
		b.WriteString("<" + tag + attrs + ">")
		for i := c.Intn(4); 0 < i; i-- {
			b.WriteString(gen(c, depth-1))
		}
		b.WriteString("</" + tag + ">")
		return b.String()
	}

	type sample struct {
		Doc  string
		Path string
		Name string
	}
	f := fuzz.New().RandSource(rand.NewSource(7)).Funcs(func(s *sample, c fuzz.Continue) {
		s.Doc = gen(c, 4)
		var parts []string
		for i := 1 + c.Intn(4); 0 < i; i-- {
			parts = append(parts, tags[c.Intn(len(tags))])
		}
		s.Path = strings.Join(parts, ".")
		s.Name = names[c.Intn(len(names))]
	})

	for i := 0; i < 500; i++ {
		var s sample
		f.Fuzz(&s)
		vs := expr.Vars{
			"doc":  document.Document(document.MustParse(s.Doc)),
			"path": s.Path,
			"name": s.Name,
		}
		for _, pair := range [][2]string{
			{"doc | tag_present(path)", "doc | tag_absent(path)"},
			{"doc | attribute_present(path, 'name', name)", "doc | attribute_absent(path, 'name', name)"},
		} {
			yes, err := env.EvalBool(pair[0], vs)
			if err != nil {
				t.Fatal(err)
			}
			no, err := env.EvalBool(pair[1], vs)
			if err != nil {
				t.Fatal(err)
			}
			if yes == no {
				t.Fatalf("%s and %s agree on %s with %s", pair[0], pair[1], s.Doc, s.Path)
			}
		}
	}
}
