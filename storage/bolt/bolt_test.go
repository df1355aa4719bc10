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

package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/storage"
	. "github.com/Comcast/skillets/util/testutil"
)

func TestImpl(t *testing.T) {
	var _ storage.Storage = &Storage{}
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewStorage(filename)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}

	sk, err := core.HostnameSkillet(ctx)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, host := range []string{"fw1", "fw2"} {
		r, err := sk.Execute(ctx, map[string]interface{}{
			"config":            "<config><deviceconfig><system><hostname>fw1</hostname></system></deviceconfig></config>",
			"expected_hostname": host,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err = s.Put(ctx, storage.NewRun(r)); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.Id)
	}

	rs, err := s.List(ctx, sk.Name)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 2 {
		t.Fatal(JS(rs))
	}
	got := map[string]bool{rs[0].Id: true, rs[1].Id: true}
	if !got[ids[0]] || !got[ids[1]] {
		t.Fatal(JS(rs))
	}

	r, err := s.Get(ctx, sk.Name, ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != core.Failure || JS(r.Failures) != `["hostname_expected","update_schedule_configured"]` {
		t.Fatal(JS(r))
	}

	if _, err = s.Get(ctx, sk.Name, "nope"); err != storage.NotFound {
		t.Fatal(err)
	}
	if _, err = s.Get(ctx, "nope", ids[0]); err != storage.NotFound {
		t.Fatal(err)
	}
	if rs, err = s.List(ctx, "nope"); err != nil || len(rs) != 0 {
		t.Fatal(rs, err)
	}

	// Runs survive a reopen.
	if err = s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err = s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)
	if rs, err = s.List(ctx, sk.Name); err != nil || len(rs) != 2 {
		t.Fatal(rs, err)
	}
}
