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

// Package loader reads skillet definitions from YAML files and
// directories.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Comcast/skillets/core"
	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/util"

	"github.com/BurntSushi/toml"
	"github.com/jsccast/yaml"
)

// MetaFiles are the names of skillet definition files.
var MetaFiles = []string{
	".meta-cnc.yaml",
	".meta-cnc.yml",
	"meta-cnc.yaml",
	"meta-cnc.yml",
	".skillet.yaml",
	".skillet.yml",
}

// SkipDirs are directories that LoadDir doesn't search.
var SkipDirs = []string{".git", ".venv", ".terraform"}

// LoadError records a definition file that couldn't be loaded.
type LoadError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e *LoadError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DuplicateSkillet occurs when two definitions have the same name.
type DuplicateSkillet struct {
	Name  string
	Paths []string
}

func (e *DuplicateSkillet) Error() string {
	return `duplicate skillet "` + e.Name + `" in ` + strings.Join(e.Paths, " and ")
}

// Parse makes a Skillet from YAML (or JSON).
//
// Relative snippet files are found in dir, which is also the
// skillet's snippet_path.
func Parse(bs []byte, dir string) (*core.Skillet, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	x, err := core.StringMaps(x)
	if err != nil {
		return nil, err
	}
	m, is := x.(map[string]interface{})
	if !is {
		return nil, fmt.Errorf("skillet definition is a %T, not a mapping", x)
	}
	if dir != "" {
		m["snippet_path"] = dir
		if err = readSnippetFiles(m, dir); err != nil {
			return nil, err
		}
	}
	return core.NewSkillet(m)
}

// readSnippetFiles loads each snippet's "file" (or a rest post's
// "payload") into its "element".
func readSnippetFiles(m map[string]interface{}, dir string) error {
	sns, is := m["snippets"].([]interface{})
	if !is {
		return nil
	}
	for _, x := range sns {
		sn, is := x.(map[string]interface{})
		if !is {
			continue
		}
		if _, have := sn["element"]; have {
			continue
		}
		filename, _ := sn["file"].(string)
		if filename == "" && sn["operation"] == "post" {
			filename, _ = sn["payload"].(string)
		}
		if filename == "" {
			continue
		}
		bs, err := ioutil.ReadFile(filepath.Join(dir, filepath.Clean("/"+filename)))
		if err != nil {
			return err
		}
		sn["element"] = string(bs)
	}
	return nil
}

// LoadFile reads a skillet definition file, which can also be a
// directory that contains one of MetaFiles.
func LoadFile(filename string) (*core.Skillet, error) {
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		found := ""
		for _, name := range MetaFiles {
			candidate := filepath.Join(filename, name)
			if _, err := os.Stat(candidate); err == nil {
				found = candidate
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("no skillet definition in %s", filename)
		}
		filename = found
	}

	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return nil, err
	}
	s, err := Parse(bs, dir)
	if err != nil {
		return nil, &LoadError{filename, err}
	}
	return s, nil
}

func isMetaFile(name string) bool {
	for _, m := range MetaFiles {
		if name == m {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	for _, s := range SkipDirs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// Loader holds skillets by name.  A Loader is a core.Catalog.
type Loader struct {
	sync.RWMutex

	skillets map[string]*core.Skillet

	// Errors has the files that the last LoadDir couldn't load.
	Errors []*LoadError
}

func NewLoader() *Loader {
	return &Loader{
		skillets: make(map[string]*core.Skillet, 32),
	}
}

// Add adds (or replaces) a skillet.
func (l *Loader) Add(s *core.Skillet) {
	l.Lock()
	l.skillets[s.Name] = s
	l.Unlock()
}

// Find implements core.Catalog.
func (l *Loader) Find(name string) (*core.Skillet, bool) {
	l.RLock()
	s, have := l.skillets[name]
	l.RUnlock()
	return s, have
}

// Names returns the names of the skillets in order.
func (l *Loader) Names() []string {
	l.RLock()
	acc := make([]string, 0, len(l.skillets))
	for name := range l.skillets {
		acc = append(acc, name)
	}
	l.RUnlock()
	sort.Strings(acc)
	return acc
}

// LoadDir searches the directory for skillet definitions and adds
// them.
//
// A directory that has a definition file isn't searched further.
// Files that can't be loaded are recorded in Errors and otherwise
// ignored.  Two definitions with the same name result in a
// DuplicateSkillet error.
func (l *Loader) LoadDir(dir string) ([]*core.Skillet, error) {
	l.Errors = nil
	acc, err := l.checkDir(dir, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(acc))
	for _, s := range acc {
		if p, have := seen[s.Name]; have {
			return nil, &DuplicateSkillet{s.Name, []string{p, s.Path}}
		}
		seen[s.Name] = s.Path
	}

	for _, s := range acc {
		l.Add(s)
	}
	util.Logf("loaded %d skillets from %s (%d errors)", len(acc), dir, len(l.Errors))

	return acc, nil
}

func (l *Loader) checkDir(dir string, acc []*core.Skillet) ([]*core.Skillet, error) {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	found := false
	for _, fi := range files {
		if fi.IsDir() || !isMetaFile(fi.Name()) {
			continue
		}
		filename := filepath.Join(dir, fi.Name())
		s, err := LoadFile(filename)
		if err != nil {
			le, is := err.(*LoadError)
			if !is {
				le = &LoadError{filename, err}
			}
			l.Errors = append(l.Errors, le)
			util.Logf("can't load %s: %s", filename, err)
			found = true
			continue
		}
		acc = append(acc, s)
		found = true
	}
	if found {
		return acc, nil
	}

	for _, fi := range files {
		if !fi.IsDir() || skipDir(fi.Name()) {
			continue
		}
		if acc, err = l.checkDir(filepath.Join(dir, fi.Name()), acc); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// ResolveIncludes composes the named skillet with the skillets it
// includes.
func (l *Loader) ResolveIncludes(name string) (*core.Skillet, error) {
	s, have := l.Find(name)
	if !have {
		return nil, fmt.Errorf(`couldn't find skillet named "%s"`, name)
	}
	return core.Compose(s, l)
}

// Compiled returns the named skillet composed and compiled.
func (l *Loader) Compiled(ctx context.Context, name string, env *expr.Env, ops core.OperationsMap) (*core.Skillet, error) {
	s, err := l.ResolveIncludes(name)
	if err != nil {
		return nil, err
	}
	if err = s.Compile(ctx, env, ops); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadContext reads an input context from a JSON, YAML, or TOML file
// (by extension).  A '%inline("NAME")' is replaced by the contents of
// NAME, which is handy for a large configuration.
func ReadContext(filename string) (map[string]interface{}, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	return ParseContext(bs, filepath.Ext(filename))
}

// ParseContext parses an input context given the format's file
// extension.
func ParseContext(bs []byte, ext string) (map[string]interface{}, error) {
	var m map[string]interface{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(bs, &m); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		var x interface{}
		if err := yaml.Unmarshal(bs, &x); err != nil {
			return nil, err
		}
		x, err := core.StringMaps(x)
		if err != nil {
			return nil, err
		}
		var is bool
		if m, is = x.(map[string]interface{}); !is && x != nil {
			return nil, fmt.Errorf("context is a %T, not a mapping", x)
		}
	case ".toml":
		if _, err := toml.Decode(string(bs), &m); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown context format %q", ext)
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	return m, nil
}
