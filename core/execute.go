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
	"context"

	"github.com/Comcast/skillets/capture"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/util"
)

// Execute runs the skillet's snippets in order against the given
// input.
//
// The Bindings start with the variables' defaults overlaid with the
// input.  Each snippet is considered in turn:
//
//  1. A snippet excluded by FilterKey, or whose guard is false, is
//     skipped.
//  2. Its parameters are rendered and its Operation runs.
//  3. Its output directives capture variables, in order, from the
//     operation's result.
//  4. A validation snippet then evaluates its test and renders its
//     pass or fail message.
//
// Failures local to a snippet are recorded in its SnippetResult and
// execution continues.  An operation failure (or a non-validation
// snippet whose parameters can't be rendered) stops the execution:
// Execute returns the partial result, with status Failure, and the
// error.
func (s *Skillet) Execute(ctx context.Context, input map[string]interface{}) (*ExecutionResult, error) {
	if !s.compiled {
		return nil, NotCompiled
	}

	bs := s.Variables.Defaults()
	bs.Update(input)

	r := newExecutionResult(s, input)
	f := newSnippetFilter(bs)

	util.Logf("executing skillet %s (%d snippets)", s.Name, len(s.Snippets))

	for _, sn := range s.Snippets {
		sr, err := s.step(ctx, sn, bs, f, r)
		if err != nil {
			util.Logf("skillet %s stopped at snippet %s: %s", s.Name, sn.Name, err)
			r.trace(sn, "fatal", "error", err.Error())
			r.Status = Failure
			r.Error = err.Error()
			r.Context = bs
			r.Finished = Timestamp()
			return r, err
		}
		util.Logf("snippet %s: %s", sn.Name, sr.State)
		r.add(sr)
	}

	r.Context = bs
	r.Finished = Timestamp()

	return r, nil
}

// step considers one snippet.  A non-nil error is fatal.
func (s *Skillet) step(ctx context.Context, sn *Snippet, bs Bindings, f snippetFilter, r *ExecutionResult) (*SnippetResult, error) {
	sr := &SnippetResult{
		Name:              sn.Name,
		Kind:              sn.Kind,
		State:             Pending,
		Label:             sn.Label,
		Severity:          sn.Severity,
		DocumentationLink: sn.DocumentationLink,
		Test:              sn.Test,
		Meta:              sn.Meta,
	}

	if f.Excludes(sn) {
		sr.State = Skipped
		sr.Reason = "filtered"
		r.trace(sn, "skipped", "reason", sr.Reason)
		return sr, nil
	}

	if sn.when != nil {
		ok, err := sn.when.EvalBool(bs)
		if err != nil {
			// An unevaluable guard doesn't let the snippet run.
			sr.setErr(&SnippetError{sn.Name, "when", err})
		}
		r.trace(sn, "when", "result", ok)
		if !ok {
			sr.State = Skipped
			sr.Reason = "when"
			return sr, nil
		}
	}

	sr.State = Running

	if label, err := sn.label.Render(bs); err == nil {
		sr.Label = label
	}

	params, err := renderValue(bs, sn.params)
	if err != nil {
		if sn.Validates() {
			sr.unevaluated(&SnippetError{sn.Name, "parameters", err})
			bs[sn.Name] = sr.Record(true)
			return sr, nil
		}
		return nil, &RenderError{sn.Name, "parameters", err}
	}

	op := &Op{
		Kind:     sn.Kind,
		Snippet:  sn,
		Params:   params.(map[string]interface{}),
		Vars:     bs,
		Compiled: sn.compiled,
	}
	r.trace(sn, "run", "cmd", sn.Kind)
	raw, err := sn.op.Run(ctx, op)
	if err != nil {
		return nil, &OperationError{sn.Name, sn.Kind, err}
	}

	if outs, is := raw.(Outputs); is {
		for _, k := range sortedKeys(outs) {
			v := outs[k]
			bs[k] = v
			r.Outputs[k] = v
			sr.Captured = append(sr.Captured, k)
		}
		raw = map[string]interface{}(outs)
	}
	sr.Raw = raw

	if s.Type == "template" && sn.Kind == "template" {
		if t, is := raw.(string); is {
			r.Template += t
		}
	}

	var captureErr error
	in := capture.NewInput(sn.OutputType, raw)
	for _, d := range sn.Outputs {
		v, err := d.Capture(in, bs)
		bs[d.Name] = v
		r.Outputs[d.Name] = v
		sr.Captured = append(sr.Captured, d.Name)
		r.trace(sn, "captured", "name", d.Name, "value", v)
		if err != nil && captureErr == nil {
			captureErr = &SnippetError{sn.Name, "capture " + d.Name, err}
		}
	}

	if !sn.Validates() {
		sr.State = Ran
		if captureErr != nil {
			sr.State = Errored
			sr.setErr(captureErr)
		}
		bs[sn.Name] = sr.Record(false)
		return sr, nil
	}

	s.validate(sn, sr, bs, raw, captureErr)
	r.trace(sn, "validated", "passed", sr.Passed)
	bs[sn.Name] = sr.Record(true)

	return sr, nil
}

// validate evaluates a validation snippet's test and renders its
// message.
//
// Without a test, the operation's result decides.
func (s *Skillet) validate(sn *Snippet, sr *SnippetResult, bs Bindings, raw interface{}, captureErr error) {
	if captureErr != nil {
		sr.unevaluated(captureErr)
		return
	}

	passed := expr.Truthy(raw)
	if sn.test != nil {
		ok, err := sn.test.EvalBool(bs)
		if err != nil {
			sr.unevaluated(&SnippetError{sn.Name, "test", err})
			return
		}
		passed = ok
	}

	sr.Passed = passed
	sr.State = Failed
	msg, src := sn.fail, sn.FailMessage
	if passed {
		sr.State = Passed
		msg, src = sn.pass, sn.PassMessage
	}

	m, err := msg.Render(expr.Bind(bs, "result", passed))
	if err != nil {
		util.Logf("snippet %s: can't render message: %s", sn.Name, err)
		m = src
	}
	sr.Message = m
}
