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
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/sio"

	"github.com/gorilla/websocket"
)

// Firehose is a sio.Publisher that sends every result to every
// websocket client.
//
// A client that can't keep up misses results.
type Firehose struct {
	upgrader websocket.Upgrader
	conns    sync.Map // id -> chan *sio.Message
}

func NewFirehose() *Firehose {
	return &Firehose{}
}

// Publish implements sio.Publisher.
func (f *Firehose) Publish(ctx context.Context, r *core.ExecutionResult) error {
	m := sio.NewMessage(r)
	f.conns.Range(func(k, v interface{}) bool {
		c := v.(chan *sio.Message)
		select {
		case c <- m:
		default:
			log.Printf("%v firehose blocked", k)
		}
		return true
	})
	return nil
}

// ServeHTTP upgrades the connection and then writes results until
// the client goes away.
func (f *Firehose) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade error", err)
		return
	}
	defer c.Close()

	ms := make(chan *sio.Message, 32)
	id := core.Gensym(8)
	f.conns.Store(id, ms)
	defer f.conns.Delete(id)

	// Reading detects the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case m := <-ms:
			js, err := json.Marshal(m)
			if err != nil {
				log.Printf("firehose Marshal error %v", err)
				continue
			}
			if err = c.WriteMessage(websocket.TextMessage, js); err != nil {
				log.Println("firehose write:", err)
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (f *Firehose) Clients() int {
	n := 0
	f.conns.Range(func(k, v interface{}) bool {
		n++
		return true
	})
	return n
}
