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
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/skillets/sio"
	"github.com/Comcast/skillets/storage"

	"github.com/gorilla/websocket"
)

const hostname = `
name: hostname_check
label: Check the hostname
type: pan_validation
snippets:
  - name: parse_config
    cmd: parse
    variable: config
    output_type: xml
    outputs:
      - name: hostname
        capture_value: //deviceconfig/system/hostname
  - name: hostname_configured
    test: hostname is not none
`

const input = `{"config":"<config><deviceconfig><system><hostname>fw1</hostname></system></deviceconfig></config>"}`

func write(t *testing.T, dir, name, content string) {
	filename := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filename, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T) (*Service, *httptest.Server, string) {
	dir := t.TempDir()
	write(t, dir, "hostname/.meta-cnc.yaml", hostname)

	s := NewService(dir, storage.NewMemStorage())
	if err := s.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(s.Router())
	t.Cleanup(server.Close)
	return s, server, dir
}

func get(t *testing.T, url string, code int, x interface{}) {
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != code {
		t.Fatalf("%s: %d", url, resp.StatusCode)
	}
	if x != nil {
		if err = json.NewDecoder(resp.Body).Decode(x); err != nil {
			t.Fatal(err)
		}
	}
}

func post(t *testing.T, url, body string, code int) []byte {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	bs, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != code {
		t.Fatalf("%s: %d %s", url, resp.StatusCode, bs)
	}
	return bs
}

func TestAPI(t *testing.T) {
	_, server, _ := setup(t)

	var list struct {
		Skillets []*Summary `json:"skillets"`
	}
	get(t, server.URL+"/skillets", http.StatusOK, &list)
	if len(list.Skillets) != 1 || list.Skillets[0].Name != "hostname_check" || list.Skillets[0].Type != "pan_validation" {
		t.Fatalf("%#v", list)
	}

	var one struct {
		Skillet  *Summary `json:"skillet"`
		Snippets []string `json:"snippets"`
	}
	get(t, server.URL+"/skillets/hostname_check", http.StatusOK, &one)
	if one.Skillet.Label != "Check the hostname" || len(one.Snippets) != 2 {
		t.Fatalf("%#v", one)
	}
	get(t, server.URL+"/skillets/nope", http.StatusNotFound, nil)

	var m sio.Message
	bs := post(t, server.URL+"/skillets/hostname_check/execute", input, http.StatusOK)
	if err := json.Unmarshal(bs, &m); err != nil {
		t.Fatal(err)
	}
	if m.Status != "success" || m.Skillet != "hostname_check" {
		t.Fatal(string(bs))
	}

	post(t, server.URL+"/skillets/hostname_check/execute", "not json", http.StatusBadRequest)
	post(t, server.URL+"/skillets/nope/execute", input, http.StatusNotFound)

	html := post(t, server.URL+"/skillets/hostname_check/execute?format=html", input, http.StatusOK)
	if !bytes.Contains(html, []byte("<h1>hostname_check</h1>")) {
		t.Fatal(string(html))
	}

	var runs struct {
		Runs []*storage.Run `json:"runs"`
	}
	get(t, server.URL+"/skillets/hostname_check/runs", http.StatusOK, &runs)
	if len(runs.Runs) != 2 || runs.Runs[0].Results != nil {
		t.Fatalf("%#v", runs)
	}

	var run storage.Run
	get(t, server.URL+"/skillets/hostname_check/runs/"+m.Id, http.StatusOK, &run)
	if run.Id != m.Id || run.Results == nil {
		t.Fatalf("%#v", run)
	}
	get(t, server.URL+"/skillets/hostname_check/runs/nope", http.StatusNotFound, nil)
}

func TestReload(t *testing.T) {
	s, server, dir := setup(t)

	old, _ := s.Find("hostname_check")
	before := old.Skillet()

	write(t, dir, "other/.meta-cnc.yaml", strings.Replace(hostname, "hostname_check", "other_check", 1))
	write(t, dir, "broken/.meta-cnc.yaml", "name: broken\nsnippets:\n  - name: x\n    when: 'a ==='\n")

	var health struct {
		Problems []string `json:"problems"`
	}
	post(t, server.URL+"/reload", "", http.StatusOK)
	get(t, server.URL+"/health", http.StatusOK, &health)
	if len(health.Problems) != 1 || !strings.Contains(health.Problems[0], "broken") {
		t.Fatalf("%#v", health)
	}

	if _, have := s.Find("other_check"); !have {
		t.Fatal("other_check missing")
	}
	now, _ := s.Find("hostname_check")
	if now != old || now.Skillet() == before {
		t.Fatal("hostname_check wasn't updated in place")
	}
}

func TestFirehose(t *testing.T) {
	s, server, _ := setup(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/results/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for i := 0; s.Firehose.Clients() == 0; i++ {
		if 100 < i {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	post(t, server.URL+"/skillets/hostname_check/execute", input, http.StatusOK)

	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, bs, err := c.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var m sio.Message
	if err = json.Unmarshal(bs, &m); err != nil {
		t.Fatal(err)
	}
	if m.Skillet != "hostname_check" {
		t.Fatal(string(bs))
	}
}
