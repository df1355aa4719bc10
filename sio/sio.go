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

// Package sio connects skillet executions to the outside world:
// inputs come in and results go out.
package sio

import (
	"context"

	"github.com/Comcast/skillets/core"
)

// Publisher sends an ExecutionResult somewhere.
type Publisher interface {
	Publish(ctx context.Context, r *core.ExecutionResult) error
}

// Publishers publishes to each Publisher in turn.  The first error
// stops publication.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, r *core.ExecutionResult) error {
	for _, p := range ps {
		if err := p.Publish(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Executor runs a skillet against an input context.
type Executor func(ctx context.Context, input map[string]interface{}) (*core.ExecutionResult, error)

// SkilletExecutor makes an Executor for the Skilleter's current
// skillet.
func SkilletExecutor(s core.Skilleter) Executor {
	return func(ctx context.Context, input map[string]interface{}) (*core.ExecutionResult, error) {
		return s.Skillet().Execute(ctx, input)
	}
}

// Message is what publishers send: the result's summary and shape.
type Message struct {
	Id       string                 `json:"id"`
	Skillet  string                 `json:"skillet"`
	Status   core.Status            `json:"status"`
	Summary  string                 `json:"summary"`
	Error    string                 `json:"error,omitempty"`
	Started  string                 `json:"started"`
	Finished string                 `json:"finished,omitempty"`
	Results  map[string]interface{} `json:"results"`
}

func NewMessage(r *core.ExecutionResult) *Message {
	return &Message{
		Id:       r.Id,
		Skillet:  r.Skillet,
		Status:   r.Status,
		Summary:  r.Summary(),
		Error:    r.Error,
		Started:  r.Started,
		Finished: r.Finished,
		Results:  r.Shape(),
	}
}
