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

// Package rest provides the rest Operation, which makes an HTTP
// request and returns the response body.
package rest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/filters"
	"github.com/Comcast/skillets/util"

	"golang.org/x/net/publicsuffix"
)

// StatusError occurs when a response's status isn't 2xx.
type StatusError struct {
	Snippet string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return `rest snippet "` + e.Snippet + `": status ` + strconv.Itoa(e.Code)
}

// NoPath occurs when a rest snippet has no "path".
type NoPath struct {
	Snippet string
}

func (e *NoPath) Error() string {
	return `rest snippet "` + e.Snippet + `" requires a path`
}

// Operation implements core.Operation for rest snippets.
//
// Parameters:
//
//	path          the URL (required)
//	operation     the HTTP method (default "get")
//	element       the request body (or else "payload")
//	headers       a mapping of request headers
//	content_type  the Content-Type header
//	accepts_type  the Accept header
//
// String variables used in the path are escaped.  A form
// content_type makes the payload (JSON) a form.
//
// All snippets using the same Operation share a cookie jar, so a
// login snippet can establish a session for later snippets.
type Operation struct {
	Client *http.Client

	// Env is used to compile paths.  Defaults to
	// filters.NewEnv().
	Env *expr.Env

	// MaxBody limits how much of a response is read.
	MaxBody int64
}

// NewOperation makes an Operation with a cookie jar and a 30-second
// timeout.
func NewOperation() *Operation {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		// Can't happen.
		panic(err)
	}
	return &Operation{
		Client: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
		MaxBody: 64 << 20,
	}
}

// Insecure skips verification of servers' certificates, which is
// often necessary for devices with self-signed certificates.
func (o *Operation) Insecure() *Operation {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	o.Client.Transport = t
	return o
}

func (o *Operation) Compile(ctx context.Context, sn *core.Snippet) (interface{}, error) {
	src, _ := sn.Params["path"].(string)
	src = strings.TrimSpace(strings.Replace(src, "\n", "", -1))
	if src == "" {
		return nil, &NoPath{sn.Name}
	}
	env := o.Env
	if env == nil {
		env = filters.NewEnv()
	}
	return env.ParseTemplate(src)
}

// escaped is a Namespace that escapes string values for use in a
// URL path.  Slashes and colons are kept so that a variable can hold
// a base URL.
type escaped core.Bindings

func (bs escaped) Lookup(name string) (interface{}, bool) {
	x, have := bs[name]
	if s, is := x.(string); is {
		return (&url.URL{Path: s}).EscapedPath(), have
	}
	return x, have
}

func (o *Operation) request(ctx context.Context, op *core.Op) (*http.Request, error) {
	path, is := op.Compiled.(*expr.Template)
	if !is {
		return nil, fmt.Errorf("rest bad compilation: %T", op.Compiled)
	}
	u, err := path.Render(escaped(op.Vars))
	if err != nil {
		return nil, err
	}

	method := "GET"
	if m, have := op.Param("operation"); have && m != "" {
		method = strings.ToUpper(m)
	}

	headers := make(http.Header)
	if hs, is := op.Params["headers"].(map[string]interface{}); is {
		for k, v := range hs {
			headers.Set(k, expr.Stringify(v))
		}
	}
	if ct, _ := op.Param("content_type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	if at, _ := op.Param("accepts_type"); at != "" {
		headers.Set("Accept", at)
	}

	var body string
	if method != "GET" {
		payload, have := op.Param("element")
		if !have {
			payload, _ = op.Param("payload")
		}
		body = payload
		if strings.Contains(headers.Get("Content-Type"), "form") {
			if body, err = form(payload); err != nil {
				return nil, err
			}
		}
	}

	var req *http.Request
	if body == "" {
		req, err = http.NewRequest(method, u, nil)
	} else {
		req, err = http.NewRequest(method, u, strings.NewReader(body))
	}
	if err != nil {
		return nil, err
	}
	req.Header = headers
	return req.WithContext(ctx), nil
}

// form converts a JSON object to a URL-encoded form.
func form(payload string) (string, error) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return "", err
	}
	vals := make(url.Values, len(m))
	for k, v := range m {
		vals.Set(k, expr.Stringify(v))
	}
	return vals.Encode(), nil
}

func (o *Operation) Run(ctx context.Context, op *core.Op) (interface{}, error) {
	req, err := o.request(ctx, op)
	if err != nil {
		return nil, err
	}

	util.Logf("rest %s: %s %s", op.Snippet.Name, req.Method, req.URL.Redacted())

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bs, err := ioutil.ReadAll(&io.LimitedReader{R: resp.Body, N: o.MaxBody})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		return nil, &StatusError{
			Snippet: op.Snippet.Name,
			Code:    resp.StatusCode,
			Body:    string(bs),
		}
	}

	return string(bs), nil
}
