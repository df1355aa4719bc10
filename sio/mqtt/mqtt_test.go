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

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/sio"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type token struct {
	mqtt.Token
	done bool
	err  error
}

func (t *token) Wait() bool {
	return t.done
}

func (t *token) WaitTimeout(time.Duration) bool {
	return t.done
}

func (t *token) Error() error {
	return t.err
}

type publication struct {
	topic   string
	qos     byte
	payload []byte
}

type client struct {
	connected bool
	pubs      []publication
	tok       *token
}

func (c *client) Connect() mqtt.Token {
	c.connected = true
	return c.tok
}

func (c *client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.pubs = append(c.pubs, publication{topic, qos, payload.([]byte)})
	return c.tok
}

func (c *client) Disconnect(quiesce uint) {
	c.connected = false
}

func result() *core.ExecutionResult {
	return &core.ExecutionResult{
		Id:      "r1",
		Skillet: "hostname_check",
		Status:  core.Failure,
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	c := &client{tok: &token{done: true}}
	p := &Publisher{
		Config: DefaultConfig(),
		Client: c,
	}
	p.Config.Topic = "skillets/{skillet}/{status}"

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.connected {
		t.Fatal("not connected")
	}

	var pub sio.Publisher = p
	if err := pub.Publish(ctx, result()); err != nil {
		t.Fatal(err)
	}
	if len(c.pubs) != 1 {
		t.Fatal(len(c.pubs))
	}
	if c.pubs[0].topic != "skillets/hostname_check/failure" || c.pubs[0].qos != 1 {
		t.Fatal(c.pubs[0])
	}
	var m sio.Message
	if err := json.Unmarshal(c.pubs[0].payload, &m); err != nil {
		t.Fatal(err)
	}
	if m.Id != "r1" || m.Status != core.Failure {
		t.Fatal(string(c.pubs[0].payload))
	}

	if err := p.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if c.connected {
		t.Fatal("still connected")
	}
}

func TestPublishErrors(t *testing.T) {
	ctx := context.Background()
	c := &client{tok: &token{done: false}}
	p := &Publisher{
		Config: DefaultConfig(),
		Client: c,
	}
	if err := p.Publish(ctx, result()); err != TimedOut {
		t.Fatal(err)
	}

	broken := errors.New("broken")
	c.tok = &token{done: true, err: broken}
	if err := p.Start(ctx); !errors.Is(err, broken) {
		t.Fatal(err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClientId = "skillet"
	cfg.WillTopic = "skillets/gone"

	if _, err := cfg.ClientOptions(); err != WillPayload {
		t.Fatal(err)
	}

	cfg.WillPayload = "bye"
	opts, err := cfg.ClientOptions()
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].Host != "localhost:1883" {
		t.Fatal(opts.Servers)
	}
	if opts.ClientID != "skillet" || !opts.WillEnabled || string(opts.WillPayload) != "bye" {
		t.Fatal(opts)
	}
	if opts.TLSConfig != nil {
		t.Fatal("unexpected TLS")
	}

	cfg.Broker = "ssl://localhost:8883"
	cfg.Insecure = true
	if opts, err = cfg.ClientOptions(); err != nil {
		t.Fatal(err)
	}
	if opts.TLSConfig == nil || !opts.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected TLS")
	}

	cfg.CAFile = "/does/not/exist"
	if _, err = cfg.ClientOptions(); err == nil {
		t.Fatal("expected an error")
	}

	cfg.Broker = ""
	if _, err = cfg.ClientOptions(); err != NoBroker {
		t.Fatal(err)
	}
}

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if p.Client == nil {
		t.Fatal("no client")
	}
}
