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

// Package expect is a tool for testing skillets.
//
// You construct a Session, which has cases.  Each case has an input
// context and expectations about the execution result.  Then run the
// session to see if the expectations held.
//
// An expectation is a pattern (see package match) that's matched
// against the result's shape along with "status", "failures", and
// "summary".  An optional guard expression can then check the
// pattern's bindings (without their '?' prefixes).
//
// See ../../cmd/skillet for command-line use.
package expect

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/filters"
	"github.com/Comcast/skillets/loader"
	"github.com/Comcast/skillets/match"
	"github.com/Comcast/skillets/util"

	"github.com/jsccast/yaml"
)

// Expectation describes an expected result.
type Expectation struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Pattern must match the result.
	Pattern interface{} `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Guard is an optional expression evaluated with the
	// pattern's bindings.  One set of bindings must satisfy it.
	Guard string `json:"guard,omitempty" yaml:"guard,omitempty"`

	// Inverted means that a matching result isn't desired!
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`

	// Bindingss, which is the result of a match (and optional
	// guard), is written during processing.  Just for
	// diagnostics.
	Bindingss []match.Bindings `json:"bs,omitempty" yaml:"bs,omitempty"`
}

// Case is an input context and its expectations.
type Case struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Input is the input context.
	Input map[string]interface{} `json:"input,omitempty" yaml:"input,omitempty"`

	// InputFile, relative to the session's directory, is read
	// (see loader.ReadContext) and then updated with Input.
	InputFile string `json:"input_file,omitempty" yaml:"input_file,omitempty"`

	Expect []*Expectation `json:"expect" yaml:"expect"`

	// Timeout is the optional timeout (like "5s") for this
	// case.  Session.DefaultTimeout is the default value.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Session is mostly a sequence of Cases.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Skillet optionally names the skillet under test.
	Skillet string `json:"skillet,omitempty" yaml:"skillet,omitempty"`

	Cases []*Case `json:"cases" yaml:"cases"`

	// DefaultTimeout is the default timeout for each Case.
	DefaultTimeout string `json:"default_timeout,omitempty" yaml:"default_timeout,omitempty"`

	// Env is used to evaluate guards.  Defaults to
	// filters.NewEnv().
	Env *expr.Env `json:"-" yaml:"-"`
}

// Failure describes an unmet expectation.
type Failure struct {
	Case        int    `json:"case"`
	Expectation int    `json:"expectation"`
	Doc         string `json:"doc,omitempty"`
	Reason      string `json:"reason"`
}

func (f *Failure) String() string {
	s := fmt.Sprintf("case %d expectation %d: %s", f.Case, f.Expectation, f.Reason)
	if f.Doc != "" {
		s += " (" + f.Doc + ")"
	}
	return s
}

// Report is the outcome of Session.Run.
type Report struct {
	Passed   int        `json:"passed"`
	Failed   int        `json:"failed"`
	Failures []*Failure `json:"failures,omitempty"`
}

// OK reports whether every expectation held.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// ReadSession parses a session from a YAML (or JSON) file.
func ReadSession(filename string) (*Session, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var s Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Subject is what an expectation's pattern is matched against.
func Subject(r *core.ExecutionResult) (interface{}, error) {
	shape := r.Shape()
	shape["status"] = string(r.Status)
	shape["summary"] = r.Summary()
	failures := r.Failures()
	if failures == nil {
		failures = []string{}
	}
	shape["failures"] = failures
	return core.Canonicalize(shape)
}

func timeout(s string, def string) (time.Duration, error) {
	if s == "" {
		s = def
	}
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Run executes the skillet for each case and checks the case's
// expectations.  The dir is the directory for InputFiles.
//
// An error is returned only for a bad session.  Execution errors are
// reported as failures.
func (s *Session) Run(ctx context.Context, skillet core.Skilleter, dir string) (*Report, error) {
	env := s.Env
	if env == nil {
		env = filters.NewEnv()
	}

	report := &Report{}
	fail := func(i, j int, doc, format string, args ...interface{}) {
		report.Failed++
		report.Failures = append(report.Failures, &Failure{
			Case:        i,
			Expectation: j,
			Doc:         doc,
			Reason:      fmt.Sprintf(format, args...),
		})
	}

	for i, c := range s.Cases {
		input, err := s.input(c, dir)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}

		d, err := timeout(c.Timeout, s.DefaultTimeout)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}

		cctx, cancel := ctx, func() {}
		if 0 < d {
			cctx, cancel = context.WithTimeout(ctx, d)
		}
		util.Logf("expect case %d: %s", i, c.Doc)
		r, err := skillet.Skillet().Execute(cctx, input)
		cancel()
		if err != nil {
			fail(i, -1, c.Doc, "execution error: %s", err)
			continue
		}

		subject, err := Subject(r)
		if err != nil {
			return nil, err
		}

		for j, e := range c.Expect {
			ok, err := e.check(env, subject)
			if err != nil {
				fail(i, j, e.Doc, "%s", err)
				continue
			}
			switch {
			case ok && e.Inverted:
				fail(i, j, e.Doc, "unwanted match (%s)", r.Summary())
			case !ok && !e.Inverted:
				fail(i, j, e.Doc, "no match (%s)", r.Summary())
			default:
				report.Passed++
			}
		}
	}

	return report, nil
}

func (s *Session) input(c *Case, dir string) (map[string]interface{}, error) {
	input := make(map[string]interface{}, len(c.Input))
	if c.InputFile != "" {
		m, err := loader.ReadContext(filepath.Join(dir, c.InputFile))
		if err != nil {
			return nil, err
		}
		for k, v := range m {
			input[k] = v
		}
	}
	x, err := core.StringMaps(map[string]interface{}(c.Input))
	if err != nil {
		return nil, err
	}
	m, _ := x.(map[string]interface{})
	for k, v := range m {
		input[k] = v
	}
	return input, nil
}

func (e *Expectation) check(env *expr.Env, subject interface{}) (bool, error) {
	pattern, err := core.StringMaps(e.Pattern)
	if err != nil {
		return false, err
	}
	if pattern, err = core.Canonicalize(pattern); err != nil {
		return false, err
	}

	bss := []match.Bindings{match.NewBindings()}
	if pattern != nil {
		if bss, err = match.Match(pattern, subject, match.NewBindings()); err != nil {
			return false, err
		}
	}

	if e.Guard == "" {
		e.Bindingss = bss
		return 0 < len(bss), nil
	}

	e.Bindingss = nil
	for _, bs := range bss {
		ok, err := env.EvalBool(e.Guard, expr.Vars(bs.Strip()))
		if err != nil {
			return false, err
		}
		if ok {
			e.Bindingss = append(e.Bindingss, bs)
		}
	}
	return 0 < len(e.Bindingss), nil
}
