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

package loader

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestInline(t *testing.T) {
	f := func(name string) ([]byte, error) {
		return []byte("<" + name + ">"), nil
	}
	bs, err := Inline([]byte(`a %inline("x") b %inline ("y")`), f)
	if err != nil {
		t.Fatal(err)
	}
	if string(bs) != "a <x> b <y>" {
		t.Fatal(string(bs))
	}
}

func TestInlineContext(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "running.xml", `<config><zone><entry name="trust"/></zone></config>`)
	write(t, dir, "c.toml", "config = '''\n%inline(\"running.xml\")\n'''\n")

	m, err := ReadContext(filepath.Join(dir, "c.toml"))
	if err != nil {
		t.Fatal(err)
	}
	config, _ := m["config"].(string)
	if !strings.HasPrefix(config, `<config><zone>`) {
		t.Fatal(config)
	}

	write(t, dir, "d.toml", "config = '''\n%inline(\"missing.xml\")\n'''\n")
	if _, err = ReadContext(filepath.Join(dir, "d.toml")); err == nil {
		t.Fatal("didn't protest")
	}
}
