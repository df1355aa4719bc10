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

package operations

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/util"
)

var (
	// MaxWorkflowDepth limits how deeply workflows can nest.
	MaxWorkflowDepth = 8

	// TooDeep occurs when nested workflows exceed
	// MaxWorkflowDepth.
	TooDeep = errors.New("workflows nested too deeply")
)

// UnknownSkilletError occurs when a workflow step names a skillet
// that the catalog doesn't have.
type UnknownSkilletError struct {
	Name string
}

func (e *UnknownSkilletError) Error() string {
	return `workflow: unknown skillet "` + e.Name + `"`
}

// StepFailed occurs when a workflow step's skillet failed and the
// step asked to stop on failure.
type StepFailed struct {
	Skillet string
	Summary string
}

func (e *StepFailed) Error() string {
	return `workflow step "` + e.Skillet + `" failed: ` + e.Summary
}

type depthKey struct{}

// Workflow is the workflow operation: each snippet runs another
// skillet (named by the "skillet" parameter or else by the snippet's
// name) against the current variables.
//
// The nested skillet's outputs are returned as core.Outputs, so
// they're available to later snippets.  The nested result's shape is
// accumulated under the key "skillets".  With a true "stop_on_failure"
// parameter, a nested failure is an error.
type Workflow struct {
	Catalog    core.Catalog
	Operations core.OperationsMap
	Env        *expr.Env

	sync.Mutex
	compiled map[*core.Skillet]*core.Skillet
}

func NewWorkflow(catalog core.Catalog) *Workflow {
	return &Workflow{
		Catalog:  catalog,
		compiled: make(map[*core.Skillet]*core.Skillet),
	}
}

func skilletName(sn *core.Snippet) string {
	if s, is := sn.Params["skillet"].(string); is && s != "" {
		return s
	}
	return sn.Name
}

func (o *Workflow) Compile(ctx context.Context, sn *core.Snippet) (interface{}, error) {
	name := skilletName(sn)
	if o.Catalog == nil {
		return nil, &UnknownSkilletError{name}
	}
	if _, have := o.Catalog.Find(name); !have {
		return nil, &UnknownSkilletError{name}
	}
	return name, nil
}

// target finds and (if necessary) compiles the named skillet.
func (o *Workflow) target(ctx context.Context, name string) (*core.Skillet, error) {
	s, have := o.Catalog.Find(name)
	if !have {
		return nil, &UnknownSkilletError{name}
	}
	if s.Compiled() {
		return s, nil
	}

	o.Lock()
	defer o.Unlock()

	if c, have := o.compiled[s]; have {
		return c, nil
	}
	c := s.Copy()
	if err := c.Compile(ctx, o.Env, o.Operations); err != nil {
		return nil, err
	}
	o.compiled[s] = c
	return c, nil
}

func (o *Workflow) Run(ctx context.Context, op *core.Op) (interface{}, error) {
	depth, _ := ctx.Value(depthKey{}).(int)
	if MaxWorkflowDepth <= depth {
		return nil, TooDeep
	}
	ctx = context.WithValue(ctx, depthKey{}, depth+1)

	name, is := op.Compiled.(string)
	if !is {
		name = skilletName(op.Snippet)
	}

	s, err := o.target(ctx, name)
	if err != nil {
		return nil, err
	}

	util.Logf("workflow %s: running %s", op.Snippet.Name, name)

	r, err := s.Execute(ctx, op.Vars.Copy())
	if err != nil {
		return nil, err
	}

	if r.Status == core.Failure && stopOnFailure(op) {
		return nil, &StepFailed{name, r.Summary()}
	}

	outs := make(core.Outputs, len(r.Outputs)+1)
	for k, v := range r.Outputs {
		outs[k] = v
	}
	shapes := make(map[string]interface{})
	if prev, is := op.Vars["skillets"].(map[string]interface{}); is {
		for k, v := range prev {
			shapes[k] = v
		}
	}
	shapes[name] = r.Shape()
	outs["skillets"] = shapes

	return outs, nil
}

func stopOnFailure(op *core.Op) bool {
	s, have := op.Param("stop_on_failure")
	if !have {
		return false
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
