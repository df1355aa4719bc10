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

// Package mqtt publishes execution results to an MQTT broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/sio"
	"github.com/Comcast/skillets/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	TimedOut    = errors.New("timed out")
	NoBroker    = errors.New("no broker")
	WillPayload = errors.New("will topic without payload")
)

// Config follows mosquitto_pub's options where that makes sense.
type Config struct {
	Broker    string
	ClientId  string
	KeepAlive time.Duration
	Username  string
	Password  string
	Reconnect bool
	Clean     bool

	WillTopic   string
	WillPayload string
	WillQoS     byte
	WillRetain  bool

	CertFile string
	KeyFile  string
	CAFile   string
	Insecure bool

	// Topic is the topic for results.  "{skillet}" and
	// "{status}" are replaced by the result's skillet name and
	// status.
	Topic  string
	QoS    byte
	Retain bool

	// Timeout bounds connecting and publishing.
	Timeout time.Duration

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint
}

func DefaultConfig() *Config {
	return &Config{
		Broker:    "tcp://localhost:1883",
		KeepAlive: 600 * time.Second,
		Clean:     true,
		WillQoS:   1,
		Topic:     "skillets/{skillet}/results",
		QoS:       1,
		Timeout:   10 * time.Second,
		Quiesce:   100,
	}
}

// TLSConfig makes a tls.Config based on the CA, cert, and key files.
func (c *Config) TLSConfig() (*tls.Config, error) {
	var rootCAs *x509.CertPool
	if rootCAs, _ = x509.SystemCertPool(); rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}
	if c.CAFile != "" {
		certs, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read '%s': %w", c.CAFile, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			util.Logf("no certs appended from %s", c.CAFile)
		}
	}

	conf := &tls.Config{
		InsecureSkipVerify: c.Insecure,
		RootCAs:            rootCAs,
	}

	if c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, err
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	return conf, nil
}

// ClientOptions makes the paho options for this Config.
func (c *Config) ClientOptions() (*mqtt.ClientOptions, error) {
	if c.Broker == "" {
		return nil, NoBroker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.Broker)
	opts.SetClientID(c.ClientId)
	opts.SetKeepAlive(c.KeepAlive)
	opts.SetPingTimeout(10 * time.Second)

	opts.Username = c.Username
	opts.Password = c.Password
	opts.AutoReconnect = c.Reconnect
	opts.CleanSession = c.Clean

	if c.WillTopic != "" {
		if c.WillPayload == "" {
			return nil, WillPayload
		}
		opts.WillEnabled = true
		opts.WillTopic = c.WillTopic
		opts.WillPayload = []byte(c.WillPayload)
		opts.WillRetained = c.WillRetain
		opts.WillQos = c.WillQoS
	}

	if strings.HasPrefix(c.Broker, "ssl:") || strings.HasPrefix(c.Broker, "tls:") ||
		strings.HasPrefix(c.Broker, "wss:") || c.CAFile != "" || c.KeyFile != "" {
		conf, err := c.TLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(conf)
	}

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		util.Logf("MQTT connection lost: %v", err)
	}

	return opts, nil
}

// Client is the part of mqtt.Client a Publisher needs.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher is a sio.Publisher that sends sio.Messages to a broker.
type Publisher struct {
	*Config
	Client Client
}

var _ sio.Publisher = &Publisher{}

func init() {
	mqtt.ERROR = log.New(os.Stderr, "mqtt.error ", 0)
}

// NewPublisher makes a Publisher with a paho client.  Call Start to
// connect.
func NewPublisher(cfg *Config) (*Publisher, error) {
	opts, err := cfg.ClientOptions()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		Config: cfg,
		Client: mqtt.NewClient(opts),
	}, nil
}

func (p *Publisher) wait(ctx context.Context, t mqtt.Token) error {
	timeout := p.Timeout
	if deadline, have := ctx.Deadline(); have {
		if d := time.Until(deadline); d < timeout || timeout <= 0 {
			timeout = d
		}
	}
	if timeout <= 0 {
		t.Wait()
	} else if !t.WaitTimeout(timeout) {
		return TimedOut
	}
	return t.Error()
}

// Start connects to the broker.
func (p *Publisher) Start(ctx context.Context) error {
	util.Logf("MQTT connecting to %s", p.Broker)
	if err := p.wait(ctx, p.Client.Connect()); err != nil {
		return fmt.Errorf("MQTT connection failed: %w", err)
	}
	return nil
}

// Topic returns the topic for the given result.
func (p *Publisher) Topic(r *core.ExecutionResult) string {
	return strings.NewReplacer(
		"{skillet}", r.Skillet,
		"{status}", string(r.Status),
	).Replace(p.Config.Topic)
}

// Publish implements sio.Publisher.
func (p *Publisher) Publish(ctx context.Context, r *core.ExecutionResult) error {
	js, err := json.Marshal(sio.NewMessage(r))
	if err != nil {
		return err
	}
	topic := p.Topic(r)
	util.Logf("MQTT publishing %s to %s", r.Id, topic)
	return p.wait(ctx, p.Client.Publish(topic, p.QoS, p.Retain, js))
}

// Close disconnects.
func (p *Publisher) Close(ctx context.Context) error {
	p.Client.Disconnect(p.Quiesce)
	return nil
}
