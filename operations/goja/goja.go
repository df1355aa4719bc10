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

// Package goja provides the javascript Operation using Goja, which is
// a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/match"
	"github.com/Comcast/skillets/util"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Run if the script is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)

	// NoScript occurs when a javascript snippet has no "script"
	// parameter.
	NoScript = errors.New(`javascript snippet requires a "script"`)
)

// Operation implements core.Operation for javascript snippets.
//
// A snippet's "script" parameter is either the code itself or a
// mapping with "code" and "requires" (a library name or a list of
// them).  The code is the body of a function, and what it returns is
// the snippet's raw result.  (With the default json output type, a
// string result is JSON text.)
//
// Scripts aren't rendered as templates.  Instead, the runtime
// provides the current variables and the snippet's rendered
// parameters at _.vars and _.params.
type Operation struct {

	// Testing exposes sleep() to scripts.
	Testing bool

	// Timeout, if not zero, limits a script's running time.
	Timeout time.Duration

	// Libraries resolves the names in "requires".  Nil means
	// LibraryDir{Dir: "."}.
	Libraries Libraries
}

// NewOperation makes a new Operation.
func NewOperation() *Operation {
	return &Operation{
		Timeout: 10 * time.Second,
	}
}

// Libraries resolves library names into source code.
type Libraries interface {
	Library(ctx context.Context, name string) (string, error)
}

// LibraryError reports a library that couldn't be obtained.
type LibraryError struct {
	Name    string
	Problem string
}

func (e *LibraryError) Error() string {
	return "javascript library " + e.Name + ": " + e.Problem
}

// LibraryMap is a fixed set of libraries.
type LibraryMap map[string]string

func (m LibraryMap) Library(ctx context.Context, name string) (string, error) {
	src, have := m[name]
	if !have {
		return "", &LibraryError{name, "undefined"}
	}
	return src, nil
}

// LibraryDir resolves http and https URLs by fetching them and any
// other name as a file under Dir.  A file name can't escape Dir.
type LibraryDir struct {
	Dir string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (l LibraryDir) Library(ctx context.Context, name string) (string, error) {
	u, err := url.Parse(name)
	if err != nil {
		return "", &LibraryError{name, err.Error()}
	}
	switch u.Scheme {
	case "http", "https":
		return l.fetch(ctx, name)
	case "", "file":
		filename := name
		if u.Scheme == "file" {
			filename = u.Host + u.Path
		}
		bs, err := ioutil.ReadFile(filepath.Join(l.Dir, filepath.Clean("/"+filename)))
		if err != nil {
			return "", &LibraryError{name, err.Error()}
		}
		return string(bs), nil
	}
	return "", &LibraryError{name, "unsupported scheme " + u.Scheme}
}

func (l LibraryDir) fetch(ctx context.Context, name string) (string, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
	if err != nil {
		return "", &LibraryError{name, err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &LibraryError{name, err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &LibraryError{name, resp.Status}
	}
	bs, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", &LibraryError{name, err.Error()}
	}
	return string(bs), nil
}

func (o *Operation) libraries() Libraries {
	if o.Libraries == nil {
		return LibraryDir{Dir: "."}
	}
	return o.Libraries
}

// script is a parsed "script" parameter.
type script struct {
	Code     string
	Requires []string
}

func newScript(x interface{}) (*script, error) {
	if code, is := x.(string); is {
		return &script{Code: code}, nil
	}
	m, is := x.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("bad javascript source (%T)", x)
	}
	sc := &script{}
	if sc.Code, is = m["code"].(string); !is {
		return nil, errors.New("bad javascript code")
	}
	switch vv := m["requires"].(type) {
	case nil:
	case string:
		sc.Requires = []string{vv}
	case []interface{}:
		for _, r := range vv {
			name, is := r.(string)
			if !is {
				return nil, fmt.Errorf("bad library %v", r)
			}
			sc.Requires = append(sc.Requires, name)
		}
	default:
		return nil, fmt.Errorf("bad requires (%T)", vv)
	}
	return sc, nil
}

// source is the libraries followed by the code wrapped in a
// function.
func (sc *script) source(ctx context.Context, libs Libraries) (string, error) {
	var b strings.Builder
	for _, name := range sc.Requires {
		src, err := libs.Library(ctx, name)
		if err != nil {
			return "", err
		}
		b.WriteString(src)
		b.WriteString("\n")
	}
	b.WriteString("(function() {\n")
	b.WriteString(sc.Code)
	b.WriteString("\n}());\n")
	return b.String(), nil
}

// Compile compiles the snippet's script after prepending any required
// libraries, which might mean fetching them.
func (o *Operation) Compile(ctx context.Context, sn *core.Snippet) (interface{}, error) {
	x, have := sn.Params["script"]
	if !have {
		return nil, NoScript
	}
	sc, err := newScript(x)
	if err != nil {
		return nil, err
	}
	src, err := sc.source(ctx, o.libraries())
	if err != nil {
		return nil, err
	}
	return goja.Compile(sn.Name, src, true)
}

func protest(rt *goja.Runtime, x interface{}) {
	panic(rt.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Run implements the core.Operation method of the same name.
//
// The following properties are available from the runtime at _.
//
//	vars: a copy of the current variables.
//	params: the snippet's rendered parameters.
//
// Some useful utilities:
//
//	gensym(): generate a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(s): the next time for the given cron expression.
//	match(pat, obj[, bindings]): run the pattern matcher.
//	log(x): log x (if logging is enabled).
//
// For testing only (see the Testing flag):
//
//	sleep(ms): sleep for the given number of milliseconds.
func (o *Operation) Run(ctx context.Context, op *core.Op) (interface{}, error) {
	p, is := op.Compiled.(*goja.Program)
	if !is {
		return nil, fmt.Errorf("javascript bad compilation: %T", op.Compiled)
	}

	vars, err := canonicalize(map[string]interface{}(op.Vars))
	if err != nil {
		return nil, err
	}
	params, err := canonicalize(op.Params)
	if err != nil {
		return nil, err
	}

	env := map[string]interface{}{
		"vars":   vars,
		"params": params,
	}

	rt := goja.New()
	rt.Set("_", env)

	if o.Testing {
		rt.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["gensym"] = func() interface{} {
		return core.Gensym(32)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		cronExpr, is := export(x).(string)
		if !is {
			protest(rt, "not a string")
		}
		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(rt, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(rt, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			util.Logf("javascript %s log (can't marshal: %s)", op.Snippet.Name, err)
		} else {
			util.Logf("javascript %s log %s", op.Snippet.Name, js)
		}
		return x
	}

	env["match"] = func(pat, fact, bs goja.Value) interface{} {
		bindings := match.NewBindings()
		if bs != nil && !goja.IsUndefined(bs) && !goja.IsNull(bs) {
			x, err := canonicalize(bs.Export())
			if err != nil {
				protest(rt, err.Error())
			}
			m, is := x.(map[string]interface{})
			if !is {
				protest(rt, "bad bindings")
			}
			bindings = match.Bindings(m)
		}

		p, err := canonicalize(pat.Export())
		if err != nil {
			protest(rt, err.Error())
		}
		m, err := canonicalize(fact.Export())
		if err != nil {
			protest(rt, err.Error())
		}

		bss, err := match.Match(p, m, bindings)
		if err != nil {
			protest(rt, err.Error())
		}

		x, err := canonicalize(bss)
		if err != nil {
			protest(rt, err.Error())
		}
		return x
	}

	if 0 < o.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	// Make sure the following goroutine terminates as soon as
	// possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If Run calls cancel() after RunProgram returns,
		// the interrupt is harmless.
		rt.Interrupt(InterruptedMessage)
	}()

	v, err := rt.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}

	return canonicalize(v.Export())
}

// canonicalize makes a JSON-like value out of whatever the runtime
// gives us.
func canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}
