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

package storage

import (
	"context"
	"testing"

	"github.com/Comcast/skillets/core"
	. "github.com/Comcast/skillets/util/testutil"
)

func TestMemStorage(t *testing.T) {
	var s Storage = NewMemStorage()
	ctx := context.Background()
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	runs := []*Run{
		{Id: "b", Skillet: "x", Started: "2020-01-01T00:00:01Z"},
		{Id: "a", Skillet: "x", Started: "2020-01-01T00:00:00.5Z"},
		{Id: "c", Skillet: "x", Started: "2020-01-01T00:00:01Z"},
		{Id: "d", Skillet: "y", Started: "2020-01-01T00:00:00Z"},
	}
	for _, r := range runs {
		if err := s.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	rs, err := s.List(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.Id
	}
	if JS(ids) != `["a","b","c"]` {
		t.Fatal(JS(ids))
	}

	if _, err = s.Get(ctx, "y", "a"); err != NotFound {
		t.Fatal(err)
	}
	if r, err := s.Get(ctx, "y", "d"); err != nil || r != runs[3] {
		t.Fatal(r, err)
	}
}

func TestNewRun(t *testing.T) {
	ctx := context.Background()
	s, err := core.HostnameSkillet(ctx)
	if err != nil {
		t.Fatal(err)
	}
	r, err := s.Execute(ctx, map[string]interface{}{
		"config": "<config><deviceconfig><system><hostname>fw1</hostname></system></deviceconfig></config>",
	})
	if err != nil {
		t.Fatal(err)
	}
	run := NewRun(r)
	if run.Id != r.Id || run.Skillet != "hostname_check" || run.Status != core.Failure {
		t.Fatal(JS(run))
	}
	if JS(run.Failures) != `["update_schedule_configured"]` {
		t.Fatal(JS(run.Failures))
	}
	if _, have := run.Results["pan_validation"]; !have {
		t.Fatal(JS(run.Results))
	}
}
