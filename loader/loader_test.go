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

package loader

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/skillets/core"
	. "github.com/Comcast/skillets/util/testutil"
)

func write(t *testing.T, dir, name, content string) {
	filename := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const base = `
name: base_checks
label: Base checks
type: pan_validation
labels:
  collection: Validation
variables:
  - name: min_zones
    default: 1
    type_hint: number
snippets:
  - name: parse
    cmd: parse
    variable: config
    output_type: xml
    outputs:
      - name: zones
        capture_list: //zone/entry/@name
  - name: enough_zones
    label: At least {{ min_zones }} zones
    test: zones | length >= min_zones
`

const host = `
name: host_checks
type: pan_validation
snippets:
  - name: base
    include: base_checks
    include_variables: all
  - name: has_trust
    test: "'trust' in zones"
`

const tmpl = `
name: banner
type: template
variables:
  - name: who
    default: world
snippets:
  - name: body
    file: banner.txt
`

func library(t *testing.T) string {
	dir := t.TempDir()
	write(t, dir, "base/.meta-cnc.yaml", base)
	write(t, dir, "nested/host/.skillet.yaml", host)
	write(t, dir, "nested/host/deeper/.meta-cnc.yaml", "name: hidden\n")
	write(t, dir, "banner/.meta-cnc.yml", tmpl)
	write(t, dir, "banner/banner.txt", "Hello, {{ who }}!")
	write(t, dir, ".git/.meta-cnc.yaml", "name: git\n")
	write(t, dir, "broken/.meta-cnc.yaml", "name: [oops\n")
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := library(t)
	l := NewLoader()
	ss, err := l.LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 3 {
		t.Fatal(len(ss))
	}
	if JS(l.Names()) != `["banner","base_checks","host_checks"]` {
		t.Fatal(JS(l.Names()))
	}
	if len(l.Errors) != 1 {
		t.Fatal(JS(l.Errors))
	}

	s, have := l.Find("base_checks")
	if !have {
		t.Fatal("no base_checks")
	}
	if s.Path != filepath.Join(dir, "base") {
		t.Fatal(s.Path)
	}
	if JS(s.Labels["collection"]) != `["Validation"]` {
		t.Fatal(JS(s.Labels))
	}
}

func TestSnippetFile(t *testing.T) {
	dir := library(t)
	s, err := LoadFile(filepath.Join(dir, "banner"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err = s.Compile(ctx, nil, nil); err != nil {
		t.Fatal(err)
	}
	r, err := s.Execute(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Template != "Hello, world!" {
		t.Fatal(r.Template)
	}

	write(t, dir, "missing/.meta-cnc.yaml", "name: m\nsnippets:\n  - name: x\n    file: nope.txt\n")
	if _, err = LoadFile(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestCompiledIncludes(t *testing.T) {
	l := NewLoader()
	if _, err := l.LoadDir(library(t)); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	s, err := l.Compiled(ctx, "host_checks", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if JS(s.Variables.Names()) != `["min_zones"]` {
		t.Fatal(JS(s.Variables.Names()))
	}

	r, err := s.Execute(ctx, map[string]interface{}{
		"config": `<config><zone><entry name="trust"/><entry name="untrust"/></zone></config>`,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"enough_zones", "has_trust"} {
		if sr, _ := r.Get(name); sr.State != core.Passed {
			t.Fatalf("%s: %s", name, JS(sr))
		}
	}
	if sr, _ := r.Get("enough_zones"); sr.Label != "At least 1 zones" {
		t.Fatal(sr.Label)
	}

	if _, err = l.ResolveIncludes("nope"); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestDuplicates(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a/.meta-cnc.yaml", "name: same\n")
	write(t, dir, "b/.meta-cnc.yaml", "name: same\n")
	_, err := NewLoader().LoadDir(dir)
	var dup *DuplicateSkillet
	if !errors.As(err, &dup) || dup.Name != "same" {
		t.Fatal(err)
	}
}

func TestReadContext(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "c.json", `{"zone":"trust","n":2}`)
	write(t, dir, "c.yaml", "zone: trust\nn: 2\nnested:\n  a: b\n")
	write(t, dir, "c.toml", "zone = \"trust\"\nn = 2\n[nested]\na = \"b\"\n")
	write(t, dir, "c.txt", "zone")

	for _, name := range []string{"c.json", "c.yaml", "c.toml"} {
		m, err := ReadContext(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if m["zone"] != "trust" || JS(m["n"]) != "2" {
			t.Fatalf("%s: %s", name, JS(m))
		}
	}

	m, _ := ReadContext(filepath.Join(dir, "c.yaml"))
	if nested, is := m["nested"].(map[string]interface{}); !is || nested["a"] != "b" {
		t.Fatal(JS(m))
	}

	if _, err := ReadContext(filepath.Join(dir, "c.txt")); err == nil {
		t.Fatal("didn't protest")
	}

	m, err := ParseContext([]byte(""), ".yaml")
	if err != nil || m == nil || len(m) != 0 {
		t.Fatal(m, err)
	}
}
