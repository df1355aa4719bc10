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

package expect

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/skillets/core"
)

const session = `
doc: hostname checks
skillet: hostname_check
default_timeout: 5s
cases:
  - doc: named
    input_file: fw1.json
    expect:
      - doc: status
        pattern:
          status: failure
          failures: ["update_schedule_configured"]
      - doc: message
        pattern:
          pan_validation:
            hostname_configured:
              output_message: "?msg"
        guard: "msg == 'Hostname is fw1'"
      - doc: not a success
        pattern:
          status: success
        inverted: true
      - doc: wrong
        pattern:
          snippets:
            update_schedule_configured: true
  - doc: expected
    input_file: fw1.json
    input:
      expected_hostname: fw2
    expect:
      - pattern:
          snippets:
            hostname_expected: false
      - pattern:
          outputs:
            hostname: "?h"
        guard: "h == 'fw2'"
`

func TestSession(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	config := `{"config":"<config><deviceconfig><system><hostname>fw1</hostname></system></deviceconfig></config>"}`
	if err := ioutil.WriteFile(filepath.Join(dir, "fw1.json"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(dir, "session.yaml")
	if err := ioutil.WriteFile(filename, []byte(session), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := ReadSession(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Cases) != 2 || s.Skillet != "hostname_check" {
		t.Fatal(len(s.Cases), s.Skillet)
	}

	skillet, err := core.HostnameSkillet(ctx)
	if err != nil {
		t.Fatal(err)
	}

	r, err := s.Run(ctx, skillet, dir)
	if err != nil {
		t.Fatal(err)
	}
	if r.Passed != 4 || r.Failed != 2 || r.OK() {
		t.Fatalf("%#v", r)
	}

	if f := r.Failures[0]; f.Case != 0 || f.Expectation != 3 || f.Doc != "wrong" {
		t.Fatal(f)
	}
	if f := r.Failures[1]; f.Case != 1 || f.Expectation != 1 || !strings.HasPrefix(f.Reason, "no match") {
		t.Fatal(f)
	}

	if bs := s.Cases[0].Expect[1].Bindingss; len(bs) != 1 || bs[0]["?msg"] != "Hostname is fw1" {
		t.Fatal(bs)
	}
}

func TestBadSession(t *testing.T) {
	ctx := context.Background()
	skillet, err := core.HostnameSkillet(ctx)
	if err != nil {
		t.Fatal(err)
	}

	s := &Session{
		Cases: []*Case{{InputFile: "missing.json"}},
	}
	if _, err = s.Run(ctx, skillet, t.TempDir()); err == nil {
		t.Fatal("didn't protest")
	}

	s = &Session{
		Cases: []*Case{{Timeout: "soon"}},
	}
	if _, err = s.Run(ctx, skillet, ""); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestNoPattern(t *testing.T) {
	ctx := context.Background()
	skillet, err := core.HostnameSkillet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	s := &Session{
		Cases: []*Case{{
			Input: map[string]interface{}{"config": "<config/>"},
			Expect: []*Expectation{
				{Guard: "true"},
				{Inverted: true},
			},
		}},
	}
	r, err := s.Run(ctx, skillet, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Passed != 1 || r.Failed != 1 {
		t.Fatalf("%#v", r)
	}
}
