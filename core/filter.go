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
	"regexp"

	"github.com/Comcast/skillets/util"
)

// FilterKey is the reserved input variable that restricts which
// snippets run.
//
// Its value is a mapping with any of the rules include_by_name,
// include_by_tag, include_by_regex, exclude_by_name, exclude_by_tag,
// and exclude_by_regex.  Each rule's value is a string or a list of
// strings.  Rules are considered in that order, and the first rule
// that matches a snippet decides.  When a filter is present, a
// snippet that no rule matches doesn't run.
const FilterKey = "__filter_snippets"

var filterRules = []string{
	"include_by_name",
	"include_by_tag",
	"include_by_regex",
	"exclude_by_name",
	"exclude_by_tag",
	"exclude_by_regex",
}

type snippetFilter map[string][]string

// newSnippetFilter returns nil if the Bindings have no (well-formed)
// filter.
func newSnippetFilter(bs Bindings) snippetFilter {
	x, have := bs[FilterKey]
	if !have {
		return nil
	}
	m, is := x.(map[string]interface{})
	if !is {
		util.Logf("ignoring malformed %s", FilterKey)
		return nil
	}
	f := make(snippetFilter, len(m))
	for _, rule := range filterRules {
		switch vv := m[rule].(type) {
		case string:
			f[rule] = []string{vv}
		case []interface{}:
			for _, x := range vv {
				if s, is := x.(string); is {
					f[rule] = append(f[rule], s)
				}
			}
		case []string:
			f[rule] = vv
		}
	}
	return f
}

func (f snippetFilter) matches(rule, item string, sn *Snippet) bool {
	switch rule {
	case "include_by_name", "exclude_by_name":
		return sn.Name == item
	case "include_by_tag", "exclude_by_tag":
		return sn.HasTag(item)
	default:
		re, err := regexp.Compile(item)
		if err != nil {
			util.Logf("%s: bad regexp %q: %s", FilterKey, item, err)
			return false
		}
		// Anchored at the start of the name.
		loc := re.FindStringIndex(sn.Name)
		return loc != nil && loc[0] == 0
	}
}

// Excludes reports whether the filter keeps the snippet from running.
func (f snippetFilter) Excludes(sn *Snippet) bool {
	if f == nil {
		return false
	}
	for _, rule := range filterRules {
		for _, item := range f[rule] {
			if f.matches(rule, item, sn) {
				return rule[:7] == "exclude"
			}
		}
	}
	return true
}
