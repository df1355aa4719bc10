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

package main

import (
	"context"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/storage/bolt"
	. "github.com/Comcast/skillets/util/testutil"
)

const hostname = `
name: hostname_check
label: Check the hostname
type: pan_validation
variables:
  - name: expected_hostname
    default: ""
snippets:
  - name: parse_config
    cmd: parse
    variable: config
    output_type: xml
    outputs:
      - name: hostname
        capture_value: //deviceconfig/system/hostname
  - name: hostname_expected
    tag: [naming]
    test: hostname == expected_hostname
`

func setup(t *testing.T) string {
	dir := t.TempDir()
	sub := filepath.Join(dir, "hostname")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(sub, ".meta-cnc.yaml"), []byte(hostname), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := `config = "<config><deviceconfig><system><hostname>fw1</hostname></system></deviceconfig></config>"`
	if err := ioutil.WriteFile(filepath.Join(dir, "fw1.toml"), []byte(ctx), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestInputContext(t *testing.T) {
	var in Input
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	in.bind(fs)
	err := fs.Parse([]string{
		"-i", `{"a":1,"b":"x"}`,
		"-set", "b=y",
		"-set", "c=z=w",
		"-tags", "naming, other",
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := in.Context()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"__filter_snippets":{"include_by_tag":["naming","other"]},"a":1,"b":"y","c":"z=w"}`
	if JS(m) != want {
		t.Fatal(JS(m))
	}

	if err = fs.Parse([]string{"-set", "nope"}); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	dir := setup(t)

	src := &Source{Dir: dir}
	s, _, err := src.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "hostname_check" || !s.Compiled() {
		t.Fatal(s.Name)
	}

	src = &Source{Dir: dir, Name: "missing"}
	if _, _, err = src.Load(ctx); err == nil {
		t.Fatal("didn't protest")
	}

	src = &Source{File: filepath.Join(dir, "hostname"), Trace: true}
	if s, _, err = src.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.Tracing {
		t.Fatal("not tracing")
	}

	src = &Source{}
	if _, _, err = src.Load(ctx); err != NoSkillet {
		t.Fatal(err)
	}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	dir := setup(t)

	src := &Source{Dir: dir}
	s, _, err := src.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}

	in := &Input{ContextFile: filepath.Join(dir, "fw1.toml"), Vars: assignments{"expected_hostname": "fw2"}}
	input, err := in.Context()
	if err != nil {
		t.Fatal(err)
	}

	r, err := s.Execute(ctx, input)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != core.Failure {
		t.Fatal(r.Summary())
	}

	db := filepath.Join(dir, "runs.db")
	sinks := &Sinks{DB: db}
	pubs, closer, err := sinks.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = pubs.Publish(ctx, r); err != nil {
		t.Fatal(err)
	}
	closer()

	store, err := bolt.NewStorage(db)
	if err != nil {
		t.Fatal(err)
	}
	if err = store.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer store.Close(ctx)

	rs, err := store.List(ctx, "hostname_check")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].Id != r.Id {
		t.Fatal(JS(rs))
	}
	if line := historyLine(rs[0]); !strings.HasPrefix(line, r.Id+" ") || !strings.Contains(line, "failure") {
		t.Fatal(line)
	}
}

func TestCmdFlags(t *testing.T) {
	for name, cmd := range Cmds {
		if cmd.Flags() == nil || cmd.Doc() == "" {
			t.Fatal(name)
		}
	}
}
