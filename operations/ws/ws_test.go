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

package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/skillets/core"
	. "github.com/Comcast/skillets/util/testutil"

	"github.com/gorilla/websocket"
)

// echo replies to each message with the message and then its
// upper-case version.
func echo(t *testing.T) *httptest.Server {
	var upgrader = websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			mt, bs, err := c.ReadMessage()
			if err != nil {
				return
			}
			c.WriteMessage(mt, []byte(`{"said":"`+string(bs)+`"}`))
			c.WriteMessage(mt, []byte(strings.ToUpper(string(bs))))
		}
	}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func compile(t *testing.T, o *Operation, js string) *core.Skillet {
	s, err := core.NewSkillet(Dwimjs(js).(map[string]interface{}))
	if err != nil {
		t.Fatal(err)
	}
	ops := core.Builtins()
	ops["ws"] = o
	if err = s.Compile(context.Background(), nil, ops); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestExchange(t *testing.T) {
	ts := echo(t)
	defer ts.Close()

	s := compile(t, NewOperation(), `{"name":"w","type":"panos",
        "snippets":[{"name":"one","cmd":"ws","url":"{{ url }}","element":"hi {{ who }}","output_type":"json",
                     "outputs":[{"name":"said","capture_value":"said"}]},
                    {"name":"two","cmd":"ws","url":"{{ url }}","element":"bye","responses":2,"output_type":"text",
                     "outputs":[{"name":"replies","capture_list":"(.+)"}]}]}`)

	r, err := s.Execute(context.Background(), map[string]interface{}{
		"url": wsURL(ts),
		"who": "there",
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Outputs["said"] != "hi there" {
		t.Fatal(JS(r.Outputs))
	}
	sr, _ := r.Get("two")
	if JS(sr.Raw) != `["{\"said\":\"bye\"}","BYE"]` {
		t.Fatal(JS(sr.Raw))
	}
}

func TestTimeout(t *testing.T) {
	ts := echo(t)
	defer ts.Close()

	o := NewOperation()
	o.Timeout = 50 * time.Millisecond

	// Nothing is sent, so nothing comes back.
	s := compile(t, o, `{"name":"w","type":"panos",
        "snippets":[{"name":"quiet","cmd":"ws","url":"`+wsURL(ts)+`"}]}`)
	_, err := s.Execute(context.Background(), nil)
	var oe *core.OperationError
	if !errors.As(err, &oe) || oe.Snippet != "quiet" {
		t.Fatal(err)
	}
}

func TestNoURL(t *testing.T) {
	s, err := core.NewSkillet(Dwimjs(`{"name":"w","snippets":[{"name":"x","cmd":"ws"}]}`).(map[string]interface{}))
	if err != nil {
		t.Fatal(err)
	}
	ops := core.Builtins()
	ops["ws"] = NewOperation()
	err = s.Compile(context.Background(), nil, ops)
	var nu *NoURL
	if !errors.As(err, &nu) {
		t.Fatal(err)
	}
}
