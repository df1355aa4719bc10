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

package sio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Comcast/skillets/core"
)

const config = `{"config":"<config><deviceconfig><system><hostname>fw1</hostname></system></deviceconfig></config>"}`

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestStdioLoop(t *testing.T) {
	ctx := context.Background()
	s, err := core.HostnameSkillet(ctx)
	if err != nil {
		t.Fatal(err)
	}

	in := "# comment\n\n" + config + "\nnot json\n" + config + "\nquit\n" + config + "\n"
	var out bytes.Buffer
	io := &Stdio{
		In:   strings.NewReader(in),
		Out:  &out,
		Tags: true,
	}

	if err = io.Loop(ctx, SkilletExecutor(s), io); err != nil {
		t.Fatal(err)
	}

	ls := lines(out.String())
	if len(ls) != 3 {
		t.Fatal(out.String())
	}
	if !strings.HasPrefix(ls[1], "error bad input") {
		t.Fatal(ls[1])
	}
	for _, i := range []int{0, 2} {
		if !strings.HasPrefix(ls[i], "result ") {
			t.Fatal(ls[i])
		}
		var m Message
		if err := json.Unmarshal([]byte(strings.TrimPrefix(ls[i], "result ")), &m); err != nil {
			t.Fatal(err)
		}
		if m.Skillet != "hostname_check" || m.Status != core.Failure {
			t.Fatal(ls[i])
		}
		snippets, is := m.Results["snippets"].(map[string]interface{})
		if !is || len(snippets) == 0 {
			t.Fatal(ls[i])
		}
	}
}

func TestStdioEcho(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	io := &Stdio{
		In:         strings.NewReader(`{"x":1}`),
		Out:        &out,
		Tags:       true,
		PadTags:    true,
		EchoInput:  true,
		Timestamps: true,
	}

	exec := func(ctx context.Context, input map[string]interface{}) (*core.ExecutionResult, error) {
		return nil, errors.New("broken")
	}

	if err := io.Loop(ctx, exec, io); err != nil {
		t.Fatal(err)
	}

	ls := lines(out.String())
	if len(ls) != 2 {
		t.Fatal(out.String())
	}
	if !strings.Contains(ls[0], "     input {\"x\":1}") {
		t.Fatal(ls[0])
	}
	if !strings.Contains(ls[1], "     error broken") {
		t.Fatal(ls[1])
	}
}

type counter struct {
	n   int
	err error
}

func (c *counter) Publish(ctx context.Context, r *core.ExecutionResult) error {
	c.n++
	return c.err
}

func TestPublishers(t *testing.T) {
	ctx := context.Background()
	r := &core.ExecutionResult{Skillet: "x", Status: core.Success}

	a, b := &counter{}, &counter{}
	if err := (Publishers{a, b}).Publish(ctx, r); err != nil {
		t.Fatal(err)
	}
	if a.n != 1 || b.n != 1 {
		t.Fatal(a.n, b.n)
	}

	a.err = errors.New("down")
	if err := (Publishers{a, b}).Publish(ctx, r); err != a.err {
		t.Fatal(err)
	}
	if b.n != 1 {
		t.Fatal(b.n)
	}
}

func TestFull(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	io := &Stdio{Out: &out, Full: true}
	r := &core.ExecutionResult{Id: "r1", Skillet: "x", Status: core.Success, Order: []string{}}
	if err := io.Publish(ctx, r); err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if _, have := m["order"]; !have {
		t.Fatal(out.String())
	}
}
