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

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/util"
)

// Stdio reads input contexts (one JSON object per line) from In and
// writes results (as JSON) to Out.
type Stdio struct {
	In  io.Reader
	Out io.Writer

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "result", "error").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// Full writes the entire ExecutionResult rather than a
	// Message.
	Full bool

	sync.Mutex
}

// NewStdio creates a new Stdio using os.Stdin and os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{
		In:  os.Stdin,
		Out: os.Stdout,
	}
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.PadTags {
		tag = fmt.Sprintf("% 10s", tag)
	}
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}

	s.Lock()
	fmt.Fprintf(s.Out, format, args...)
	s.Unlock()
}

// Publish implements Publisher.
func (s *Stdio) Publish(ctx context.Context, r *core.ExecutionResult) error {
	var x interface{} = NewMessage(r)
	if s.Full {
		x = r
	}
	js, err := json.Marshal(x)
	if err != nil {
		return err
	}
	s.printf("result", "%s\n", js)
	return nil
}

// Loop executes each input line and publishes each result until EOF,
// a "quit" line, or the context is done.
//
// Lines that are empty or start with "#" are ignored.  Bad input and
// failed executions are reported (tagged "error") without stopping
// the loop.
func (s *Stdio) Loop(ctx context.Context, exec Executor, pub Publisher) error {
	in := bufio.NewReader(s.In)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		eof := err == io.EOF

		trimmed := strings.TrimSpace(line)
		if trimmed == "quit" {
			return nil
		}
		if s.EchoInput && trimmed != "" {
			s.printf("input", "%s\n", trimmed)
		}

		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			s.do(ctx, trimmed, exec, pub)
		}

		if eof {
			return nil
		}
	}
}

func (s *Stdio) do(ctx context.Context, line string, exec Executor, pub Publisher) {
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(line), &input); err != nil {
		s.printf("error", "bad input: %s\n", err)
		return
	}

	r, err := exec(ctx, input)
	if err != nil {
		s.printf("error", "%s\n", err)
		util.Logf("execution error %s", err)
		if r == nil {
			return
		}
	}

	if err = pub.Publish(ctx, r); err != nil {
		s.printf("error", "publish: %s\n", err)
	}
}
