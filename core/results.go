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

package core

import (
	"strconv"
	"strings"
)

var (
	// TracesInitialCap is the initial capacity for Traces buffers.
	TracesInitialCap = 16
)

// State is a snippet's state in an execution.
type State string

const (
	Pending State = "pending"
	Skipped State = "skipped"
	Running State = "running"
	Ran     State = "ran"
	Passed  State = "passed"
	Failed  State = "failed"

	// Errored is the state of a non-validation snippet with a
	// capture that failed.
	Errored State = "errored"
)

// Status is the overall outcome of an execution.
type Status string

const (
	Success Status = "success"
	Failure Status = "failure"
)

// UnevaluatedPrefix starts the message of a validation that failed
// because it couldn't be evaluated, which distinguishes it from a
// validation that evaluated to false.
const UnevaluatedPrefix = "Unable to evaluate snippet: "

// Traces holds trace messages.
type Traces struct {
	Messages []interface{} `json:"messages,omitempty" yaml:",omitempty"`
}

// NewTraces creates an initialized Traces.
//
// The Messages array has TracesInitialCap initial capacity.
func NewTraces() *Traces {
	return &Traces{
		Messages: make([]interface{}, 0, TracesInitialCap),
	}
}

func (ts *Traces) Add(xs ...interface{}) {
	ts.Messages = append(ts.Messages, xs...)
}

// SnippetResult records what happened to a snippet.
type SnippetResult struct {
	Name  string `json:"name"`
	Kind  string `json:"cmd"`
	State State  `json:"state"`

	// Label is the rendered label.
	Label string `json:"label,omitempty"`

	// Reason says why a snippet was skipped: "when" or
	// "filtered".
	Reason string `json:"reason,omitempty"`

	// Passed is the outcome of a validation.
	Passed bool `json:"passed"`

	// Message is a validation's rendered pass or fail message.
	Message string `json:"output_message,omitempty"`

	Severity          string                 `json:"severity,omitempty"`
	DocumentationLink string                 `json:"documentation_link,omitempty"`
	Test              string                 `json:"test,omitempty"`
	Meta              map[string]interface{} `json:"meta,omitempty"`

	// Captured lists the variables the snippet wrote.
	Captured []string `json:"captured,omitempty"`

	Error string `json:"error,omitempty"`

	// Err is the error (if any), which is usually a
	// *SnippetError.
	Err error `json:"-"`

	// Raw is the operation's result.
	Raw interface{} `json:"-"`
}

func (sr *SnippetResult) setErr(err error) {
	sr.Err = err
	sr.Error = err.Error()
}

// unevaluated records a validation that couldn't be evaluated.
func (sr *SnippetResult) unevaluated(err error) {
	sr.State = Failed
	sr.Passed = false
	sr.Message = UnevaluatedPrefix + err.Error()
	sr.setErr(err)
}

// Record is what's bound to the snippet's name after the snippet
// runs.
func (sr *SnippetResult) Record(validation bool) map[string]interface{} {
	if validation {
		return map[string]interface{}{
			"results":            sr.Passed,
			"label":              sr.Label,
			"severity":           sr.Severity,
			"documentation_link": sr.DocumentationLink,
			"test":               sr.Test,
			"output_message":     sr.Message,
		}
	}
	results := "success"
	if sr.State == Errored {
		results = "error"
	}
	return map[string]interface{}{
		"results": results,
		"raw":     sr.Raw,
	}
}

// ExecutionResult is the outcome of Skillet.Execute.
type ExecutionResult struct {
	Id      string `json:"id"`
	Skillet string `json:"skillet"`
	Type    string `json:"type"`
	Status  Status `json:"status"`

	// Error is the fatal error (if any) that stopped the
	// execution.
	Error string `json:"error,omitempty"`

	// Outputs has every captured variable.
	Outputs Bindings `json:"outputs"`

	// Results has the result of every snippet that was
	// considered.
	Results map[string]*SnippetResult `json:"results"`

	// Order is the order in which snippets were considered.
	Order []string `json:"order"`

	Started  string `json:"started"`
	Finished string `json:"finished,omitempty"`

	Traces *Traces `json:"traces,omitempty"`

	// Input is what was given to Execute.
	Input map[string]interface{} `json:"-"`

	// Context is the final Bindings.
	Context Bindings `json:"-"`

	// Validation means the skillet's results have the validation
	// shape.
	Validation bool `json:"validation,omitempty"`

	// Template is the concatenated output of template snippets.
	Template string `json:"template,omitempty"`
}

func newExecutionResult(s *Skillet, input map[string]interface{}) *ExecutionResult {
	r := &ExecutionResult{
		Id:         Gensym(16),
		Skillet:    s.Name,
		Type:       s.Type,
		Status:     Success,
		Outputs:    NewBindings(),
		Results:    make(map[string]*SnippetResult, len(s.Snippets)),
		Order:      make([]string, 0, len(s.Snippets)),
		Started:    Timestamp(),
		Input:      input,
		Validation: s.Validation(),
	}
	if s.Tracing {
		r.Traces = NewTraces()
	}
	return r
}

func (r *ExecutionResult) trace(sn *Snippet, event string, more ...interface{}) {
	if r.Traces == nil {
		return
	}
	t := map[string]interface{}{
		"snippet": sn.Name,
		"event":   event,
	}
	for i := 0; i+1 < len(more); i += 2 {
		if k, is := more[i].(string); is {
			t[k] = more[i+1]
		}
	}
	r.Traces.Add(t)
}

func (r *ExecutionResult) add(sr *SnippetResult) {
	r.Results[sr.Name] = sr
	r.Order = append(r.Order, sr.Name)
	switch sr.State {
	case Failed, Errored:
		r.Status = Failure
	}
}

// Get returns the result for the named snippet (if any).
func (r *ExecutionResult) Get(name string) (*SnippetResult, bool) {
	sr, have := r.Results[name]
	return sr, have
}

// Count returns the number of results in each state.
func (r *ExecutionResult) Count() map[State]int {
	acc := make(map[State]int, 4)
	for _, sr := range r.Results {
		acc[sr.State]++
	}
	return acc
}

// Shape returns the results in the form appropriate to the skillet's
// type.
//
// Validation skillets give
//
//	{"snippets": {NAME: PASSED},
//	 "pan_validation": {NAME: {"results", "label", "severity",
//	                           "documentation_link", "test",
//	                           "output_message"}},
//	 "outputs": OUTPUTS}
//
// Other skillets give
//
//	{"snippets": {NAME: {"results": STATE}}, "outputs": OUTPUTS}
//
// plus "template" (the rendered template) for template skillets.
func (r *ExecutionResult) Shape() map[string]interface{} {
	snippets := make(map[string]interface{}, len(r.Results))
	shape := map[string]interface{}{
		"snippets": snippets,
		"outputs":  map[string]interface{}(r.Outputs),
		"result":   string(r.Status),
	}
	if r.Validation {
		validations := make(map[string]interface{}, len(r.Results))
		for _, name := range r.Order {
			sr := r.Results[name]
			if sr.State != Passed && sr.State != Failed {
				continue
			}
			snippets[name] = sr.Passed
			validations[name] = sr.Record(true)
		}
		shape["pan_validation"] = validations
		return shape
	}
	for _, name := range r.Order {
		snippets[name] = map[string]interface{}{
			"results": string(r.Results[name].State),
		}
	}
	if r.Type == "template" {
		shape["template"] = r.Template
	}
	return shape
}

// TemplateData is the data given to a skillet's output template:
// the outputs, the shaped results, the input, and the final
// context.
func (r *ExecutionResult) TemplateData() map[string]interface{} {
	return map[string]interface{}{
		"outputs":       map[string]interface{}(r.Outputs),
		"results":       r.Shape(),
		"input_context": r.Input,
		"context":       map[string]interface{}(r.Context),
		"skillet":       r.Skillet,
		"status":        string(r.Status),
	}
}

// Failures returns the names of failed or errored snippets in
// execution order.
func (r *ExecutionResult) Failures() []string {
	var acc []string
	for _, name := range r.Order {
		switch r.Results[name].State {
		case Failed, Errored:
			acc = append(acc, name)
		}
	}
	return acc
}

// Summary is a one-line description of the result.
func (r *ExecutionResult) Summary() string {
	var b strings.Builder
	b.WriteString(r.Skillet + ": " + string(r.Status))
	counts := r.Count()
	for _, st := range []State{Passed, Failed, Ran, Errored, Skipped} {
		if n := counts[st]; 0 < n {
			b.WriteString(" " + string(st) + "=" + strconv.Itoa(n))
		}
	}
	if r.Error != "" {
		b.WriteString(" error: " + r.Error)
	}
	return b.String()
}
