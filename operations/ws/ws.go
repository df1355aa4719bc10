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

// Package ws provides the ws Operation, which sends a message over a
// WebSocket and returns the replies.
package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/util"

	"github.com/gorilla/websocket"
)

// NoURL occurs when a ws snippet has no "url".
type NoURL struct {
	Snippet string
}

func (e *NoURL) Error() string {
	return `ws snippet "` + e.Snippet + `" requires a url`
}

// Operation implements core.Operation for ws snippets.
//
// Parameters:
//
//	url        the WebSocket URL (required)
//	element    the text message to send (optional)
//	headers    a mapping of handshake headers
//	responses  how many messages to read (default 1)
//
// With one response, the result is that message.  Otherwise the
// result is a list of messages.
type Operation struct {
	Dialer *websocket.Dialer

	// Timeout limits the whole exchange.
	Timeout time.Duration
}

func NewOperation() *Operation {
	return &Operation{
		Dialer:  websocket.DefaultDialer,
		Timeout: 10 * time.Second,
	}
}

func (o *Operation) Compile(ctx context.Context, sn *core.Snippet) (interface{}, error) {
	if u, _ := sn.Params["url"].(string); u == "" {
		return nil, &NoURL{sn.Name}
	}
	return nil, nil
}

func (o *Operation) Run(ctx context.Context, op *core.Op) (interface{}, error) {
	u, _ := op.Param("url")

	n := 1
	if s, have := op.Param("responses"); have {
		var err error
		if n, err = strconv.Atoi(s); err != nil {
			return nil, err
		}
	}

	if 0 < o.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	headers := make(http.Header)
	if hs, is := op.Params["headers"].(map[string]interface{}); is {
		for k, v := range hs {
			if s, is := v.(string); is {
				headers.Set(k, s)
			}
		}
	}

	util.Logf("ws %s: connecting to %s", op.Snippet.Name, u)
	conn, _, err := o.Dialer.DialContext(ctx, u, headers)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, have := ctx.Deadline(); have {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	if msg, have := op.Param("element"); have && msg != "" {
		if err = conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return nil, err
		}
	}

	acc := make([]interface{}, 0, n)
	for len(acc) < n {
		_, bs, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		acc = append(acc, string(bs))
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	if n == 1 {
		return acc[0], nil
	}
	return acc, nil
}
