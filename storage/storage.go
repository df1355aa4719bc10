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

// Package storage defines how execution history is kept.
package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Comcast/skillets/core"
)

// NotFound occurs when Get can't find a run.
var NotFound = errors.New("run not found")

// Run is the stored summary of an execution.
type Run struct {
	Id       string      `json:"id"`
	Skillet  string      `json:"skillet"`
	Status   core.Status `json:"status"`
	Started  string      `json:"started"`
	Finished string      `json:"finished,omitempty"`
	Summary  string      `json:"summary"`
	Error    string      `json:"error,omitempty"`

	// Failures lists failed and errored snippets.
	Failures []string `json:"failures,omitempty"`

	// Results is the shaped result.
	Results map[string]interface{} `json:"results"`
}

// NewRun summarizes an ExecutionResult.
func NewRun(r *core.ExecutionResult) *Run {
	return &Run{
		Id:       r.Id,
		Skillet:  r.Skillet,
		Status:   r.Status,
		Started:  r.Started,
		Finished: r.Finished,
		Summary:  r.Summary(),
		Error:    r.Error,
		Failures: r.Failures(),
		Results:  r.Shape(),
	}
}

// Storage is a persistence interface for execution history.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	// Put stores the run.
	Put(ctx context.Context, r *Run) error

	// List returns the skillet's runs, oldest first.
	List(ctx context.Context, skillet string) ([]*Run, error)

	// Get returns NotFound if there's no such run.
	Get(ctx context.Context, skillet, id string) (*Run, error)
}

// SortRuns orders runs by their start times.
func SortRuns(rs []*Run) {
	t := func(s string) time.Time {
		x, _ := time.Parse(time.RFC3339Nano, s)
		return x
	}
	sort.SliceStable(rs, func(i, j int) bool {
		ti, tj := t(rs[i].Started), t(rs[j].Started)
		if ti.Equal(tj) {
			return rs[i].Id < rs[j].Id
		}
		return ti.Before(tj)
	})
}

// MemStorage is an in-memory Storage.
type MemStorage struct {
	sync.RWMutex
	runs map[string]map[string]*Run
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		runs: make(map[string]map[string]*Run),
	}
}

func (s *MemStorage) Open(ctx context.Context) error {
	return nil
}

func (s *MemStorage) Close(ctx context.Context) error {
	return nil
}

func (s *MemStorage) Put(ctx context.Context, r *Run) error {
	s.Lock()
	defer s.Unlock()
	rs, have := s.runs[r.Skillet]
	if !have {
		rs = make(map[string]*Run)
		s.runs[r.Skillet] = rs
	}
	rs[r.Id] = r
	return nil
}

func (s *MemStorage) List(ctx context.Context, skillet string) ([]*Run, error) {
	s.RLock()
	acc := make([]*Run, 0, len(s.runs[skillet]))
	for _, r := range s.runs[skillet] {
		acc = append(acc, r)
	}
	s.RUnlock()
	SortRuns(acc)
	return acc, nil
}

func (s *MemStorage) Get(ctx context.Context, skillet, id string) (*Run, error) {
	s.RLock()
	defer s.RUnlock()
	r, have := s.runs[skillet][id]
	if !have {
		return nil, NotFound
	}
	return r, nil
}
