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
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/filters"
	"github.com/Comcast/skillets/loader"
	"github.com/Comcast/skillets/operations"
	"github.com/Comcast/skillets/sio"
	"github.com/Comcast/skillets/storage"
)

// Service holds compiled skillets from a directory and executes them.
type Service struct {
	sync.RWMutex

	Dir     string
	Env     *expr.Env
	Storage storage.Storage

	// Firehose gets every result.
	Firehose *Firehose

	// Timeout limits each execution.  Zero means no limit.
	Timeout time.Duration

	loader   *loader.Loader
	skillets map[string]*core.UpdatableSkillet

	// problems has definitions that couldn't be loaded or
	// compiled by the last Reload.
	problems []string
}

func NewService(dir string, store storage.Storage) *Service {
	return &Service{
		Dir:      dir,
		Env:      filters.NewEnv(),
		Storage:  store,
		Firehose: NewFirehose(),
		loader:   loader.NewLoader(),
		skillets: make(map[string]*core.UpdatableSkillet, 32),
	}
}

// Reload reads and compiles the skillets in Dir.
//
// A skillet that's already known is updated in place, so executions
// in progress finish with the old definition.  A skillet that fails
// to compile is reported in Problems and keeps its old definition
// (if any).
func (s *Service) Reload(ctx context.Context) error {
	l := loader.NewLoader()
	loaded, err := l.LoadDir(s.Dir)
	if err != nil {
		return err
	}

	var problems []string
	for _, e := range l.Errors {
		problems = append(problems, e.Error())
	}

	var (
		ops      = operations.Standard(l)
		compiled = make(map[string]*core.Skillet, len(loaded))
		failed   = make(map[string]bool)
	)
	for _, name := range l.Names() {
		sk, err := l.Compiled(ctx, name, s.Env, ops)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %s", name, err))
			failed[name] = true
			continue
		}
		compiled[name] = sk
	}

	s.Lock()
	defer s.Unlock()

	skillets := make(map[string]*core.UpdatableSkillet, len(compiled))
	for name, sk := range compiled {
		if u, have := s.skillets[name]; have {
			if err := u.SetSkillet(sk); err != nil {
				return err
			}
			skillets[name] = u
		} else {
			skillets[name] = core.NewUpdatableSkillet(sk)
		}
	}
	for name := range failed {
		if u, have := s.skillets[name]; have {
			skillets[name] = u
		}
	}

	s.loader = l
	s.skillets = skillets
	s.problems = problems

	log.Printf("loaded %d skillets (%d problems)", len(skillets), len(problems))

	return nil
}

// ReloadEvery calls Reload periodically until the context is done.
func (s *Service) ReloadEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				log.Printf("reload error: %s", err)
			}
		}
	}
}

// Problems returns what the last Reload couldn't handle.
func (s *Service) Problems() []string {
	s.RLock()
	defer s.RUnlock()
	return s.problems
}

// Find returns the named skillet.
func (s *Service) Find(name string) (core.Skilleter, bool) {
	s.RLock()
	u, have := s.skillets[name]
	s.RUnlock()
	if !have {
		return nil, false
	}
	return u, true
}

// Skillets returns the current skillets sorted by name.
func (s *Service) Skillets() []*core.Skillet {
	s.RLock()
	l := s.loader
	acc := make([]*core.Skillet, 0, len(s.skillets))
	for _, name := range l.Names() {
		if u, have := s.skillets[name]; have {
			acc = append(acc, u.Skillet())
		}
	}
	s.RUnlock()
	return acc
}

// Execute runs the named skillet, records the run, and publishes the
// result.
func (s *Service) Execute(ctx context.Context, name string, input map[string]interface{}) (*core.ExecutionResult, error) {
	sk, have := s.Find(name)
	if !have {
		return nil, &NotFound{name}
	}

	if 0 < s.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	r, err := sio.SkilletExecutor(sk)(ctx, input)
	if r == nil {
		return nil, err
	}

	// Recording and publishing shouldn't depend on the request.
	bg := context.Background()
	if perr := s.Storage.Put(bg, storage.NewRun(r)); perr != nil {
		log.Printf("storage error %s", perr)
	}
	if perr := s.Firehose.Publish(bg, r); perr != nil {
		log.Printf("firehose error %s", perr)
	}

	return r, err
}

// NotFound means there's no skillet with that name.
type NotFound struct {
	Name string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf(`no skillet named "%s"`, e.Name)
}
