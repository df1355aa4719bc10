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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/filters"
	"github.com/Comcast/skillets/loader"
	"github.com/Comcast/skillets/operations"
	"github.com/Comcast/skillets/sio"
	"github.com/Comcast/skillets/sio/mqtt"
	"github.com/Comcast/skillets/storage"
	"github.com/Comcast/skillets/storage/bolt"
	"github.com/Comcast/skillets/util"
)

var NoSkillet = errors.New("no skillet specified")

// Source says where to find a skillet.
type Source struct {
	Dir   string
	File  string
	Name  string
	Trace bool
}

func (s *Source) bind(fs *flag.FlagSet) {
	fs.StringVar(&s.Dir, "d", "", "directory of skillets (for includes and workflows)")
	fs.StringVar(&s.File, "f", "", "skillet definition file (or its directory)")
	fs.StringVar(&s.Name, "s", "", "skillet name")
	fs.BoolVar(&s.Trace, "trace", false, "include traces in results")
	fs.BoolVar(&util.Logging, "v", util.Logging, "verbose logging")
}

func (s *Source) loader() (*loader.Loader, error) {
	l := loader.NewLoader()
	if s.Dir != "" {
		if _, err := l.LoadDir(s.Dir); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Load finds, composes, and compiles the skillet.
func (s *Source) Load(ctx context.Context) (*core.Skillet, *loader.Loader, error) {
	l, err := s.loader()
	if err != nil {
		return nil, nil, err
	}
	for _, e := range l.Errors {
		log.Printf("warning: %s", e)
	}

	name := s.Name
	if s.File != "" {
		sk, err := loader.LoadFile(s.File)
		if err != nil {
			return nil, nil, err
		}
		l.Add(sk)
		if name == "" {
			name = sk.Name
		}
	}
	if name == "" {
		if names := l.Names(); len(names) == 1 {
			name = names[0]
		} else {
			return nil, nil, NoSkillet
		}
	}

	sk, err := l.Compiled(ctx, name, filters.NewEnv(), operations.Standard(l))
	if err != nil {
		return nil, nil, err
	}
	sk.Tracing = s.Trace
	return sk, l, nil
}

// assignments is a flag.Value for repeated NAME=VALUE flags.
type assignments map[string]interface{}

func (as assignments) String() string {
	acc := make([]string, 0, len(as))
	for k, v := range as {
		acc = append(acc, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(acc, ",")
}

func (as assignments) Set(s string) error {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("bad assignment %q (want NAME=VALUE)", s)
	}
	as[parts[0]] = parts[1]
	return nil
}

// Input is the input context given on the command line.
type Input struct {
	ContextFile string
	JSON        string
	Vars        assignments
	Tags        string
}

func (in *Input) bind(fs *flag.FlagSet) {
	in.Vars = make(assignments)
	fs.StringVar(&in.ContextFile, "c", "", "context file (JSON, YAML, or TOML)")
	fs.StringVar(&in.JSON, "i", "", "context as JSON")
	fs.Var(in.Vars, "set", "NAME=VALUE (repeatable)")
	fs.StringVar(&in.Tags, "tags", "", "only run snippets with these (comma-separated) tags")
}

// Context assembles the input: the file, then the JSON, then the
// assignments, then the tag filter.
func (in *Input) Context() (map[string]interface{}, error) {
	acc := make(map[string]interface{})
	if in.ContextFile != "" {
		m, err := loader.ReadContext(in.ContextFile)
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			acc[k] = v
		}
	}
	if in.JSON != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(in.JSON), &m); err != nil {
			return nil, err
		}
		for k, v := range m {
			acc[k] = v
		}
	}
	for k, v := range in.Vars {
		acc[k] = v
	}
	if in.Tags != "" {
		tags := make([]interface{}, 0, 4)
		for _, tag := range strings.Split(in.Tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		acc[core.FilterKey] = map[string]interface{}{
			"include_by_tag": tags,
		}
	}
	return acc, nil
}

// Sinks are where results go besides stdout.
type Sinks struct {
	DB      string
	Broker  string
	Topic   string
	Timeout string
}

func (s *Sinks) bind(fs *flag.FlagSet) {
	fs.StringVar(&s.DB, "db", "", "optional bolt database for recording runs")
	fs.StringVar(&s.Broker, "mqtt", "", "optional MQTT broker (like tcp://localhost:1883) for publishing results")
	fs.StringVar(&s.Topic, "topic", "", "MQTT topic ({skillet} and {status} are replaced)")
	fs.StringVar(&s.Timeout, "mqtt-timeout", "", "MQTT timeout (like 10s)")
}

// recorder is a sio.Publisher that stores runs.
type recorder struct {
	storage.Storage
}

func (r *recorder) Publish(ctx context.Context, x *core.ExecutionResult) error {
	return r.Put(ctx, storage.NewRun(x))
}

// Open returns the sinks as Publishers along with a function to
// close them.
func (s *Sinks) Open(ctx context.Context) (sio.Publishers, func(), error) {
	var (
		acc    sio.Publishers
		closes []func()
		closer = func() {
			for _, f := range closes {
				f()
			}
		}
	)

	if s.DB != "" {
		db, err := bolt.NewStorage(s.DB)
		if err != nil {
			return nil, nil, err
		}
		if err = db.Open(ctx); err != nil {
			return nil, nil, err
		}
		acc = append(acc, &recorder{db})
		closes = append(closes, func() {
			if err := db.Close(ctx); err != nil {
				log.Printf("warning: %s", err)
			}
		})
	}

	if s.Broker != "" {
		cfg := mqtt.DefaultConfig()
		cfg.Broker = s.Broker
		if s.Topic != "" {
			cfg.Topic = s.Topic
		}
		if s.Timeout != "" {
			d, err := time.ParseDuration(s.Timeout)
			if err != nil {
				closer()
				return nil, nil, err
			}
			cfg.Timeout = d
		}
		p, err := mqtt.NewPublisher(cfg)
		if err != nil {
			closer()
			return nil, nil, err
		}
		if err = p.Start(ctx); err != nil {
			closer()
			return nil, nil, err
		}
		acc = append(acc, p)
		closes = append(closes, func() {
			p.Close(ctx)
		})
	}

	return acc, closer, nil
}

func printJSON(x interface{}) error {
	bs, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", bs)
	return err
}
