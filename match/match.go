/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package match implements a structural pattern matcher for
// configuration data.
//
// A pattern is a primitive tree (the shape produced by decoding JSON
// or YAML, or by document.ToPrimitive).  Strings that start with '?'
// are variables.  A mapping pattern matches a mapping that has at
// least the pattern's keys.  A list pattern is treated as a set: each
// element must match a distinct element of the fact, in any order.
//
// Matching returns every set of Bindings that works, so callers can
// see all the ways a pattern fits.
package match

import (
	"strings"
)

// Bindings is a map from variables (strings starting with a '?') to
// their values.
type Bindings map[string]interface{}

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend adds the property; modifies and returns the Bindings.
func (bs Bindings) Extend(p string, v interface{}) Bindings {
	bs[p] = v
	return bs
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// Strip returns a copy of the Bindings with the leading '?' removed
// from each variable, which is friendlier in templates.
func (bs Bindings) Strip() map[string]interface{} {
	acc := make(map[string]interface{}, len(bs))
	for k, v := range bs {
		acc[strings.TrimPrefix(k, "?")] = v
	}
	return acc
}

// IsVariable reports if the string represents a pattern variable.
//
// All pattern variables start with a '?'.
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

// IsOptionalVariable reports if x is a variable starting with "??".
// A mapping pattern value that is an optional variable matches even
// when the fact lacks the key.
func IsOptionalVariable(x interface{}) bool {
	if s, is := x.(string); is {
		return strings.HasPrefix(s, "??")
	}
	return false
}

// IsAnonymousVariable detects a variable of the form '?'.  A binding
// for an anonymous variable never makes it into bindings.
func IsAnonymousVariable(s string) bool {
	return s == "?"
}

// fudge is a hack to cast numbers to float64s and YAML-style maps to
// map[string]interface{}.
func fudge(x interface{}) interface{} {
	switch vv := x.(type) {
	case float64:
		return vv
	case float32:
		return float64(vv)
	case int64:
		return float64(vv)
	case int32:
		return float64(vv)
	case int:
		return float64(vv)
	case map[interface{}]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			if s, is := k.(string); is {
				acc[s] = v
			}
		}
		return acc
	case []string:
		acc := make([]interface{}, len(vv))
		for i, s := range vv {
			acc[i] = s
		}
		return acc
	default:
		return x
	}
}

// Matches attempts to match the given fact with the given pattern.
func Matches(pattern interface{}, fact interface{}) ([]Bindings, error) {
	return Match(pattern, fact, NewBindings())
}

// Match is a version of 'Matches' that takes initial bindings.
//
// Those initial bindings are not modified.
func Match(pattern interface{}, fact interface{}, bindings Bindings) ([]Bindings, error) {
	if bindings == nil {
		bindings = NewBindings()
	}
	return match(pattern, fact, bindings.Copy())
}

// match can modify the given bindings.
func match(pattern interface{}, fact interface{}, bs Bindings) ([]Bindings, error) {
	pattern = fudge(pattern)
	fact = fudge(fact)

	switch vv := pattern.(type) {
	case nil:
		if fact == nil {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case bool:
		if y, is := fact.(bool); is && y == vv {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case float64:
		if y, is := fact.(float64); is && y == vv {
			return []Bindings{bs}, nil
		}
		return nil, nil

	case string:
		if !IsVariable(vv) {
			if y, is := fact.(string); is && y == vv {
				return []Bindings{bs}, nil
			}
			return nil, nil
		}
		if IsAnonymousVariable(vv) {
			return []Bindings{bs}, nil
		}
		if binding, found := bs[vv]; found {
			return match(binding, fact, bs)
		}
		bs[vv] = fact
		return []Bindings{bs}, nil

	case map[string]interface{}:
		fm, is := fact.(map[string]interface{})
		if !is {
			return nil, nil
		}
		bss := []Bindings{bs}
		for k, v := range vv {
			fv, found := fm[k]
			if !found {
				if IsOptionalVariable(v) {
					continue
				}
				return nil, nil
			}
			var acc []Bindings
			for _, bs := range bss {
				got, err := match(v, fv, bs.Copy())
				if err != nil {
					return nil, err
				}
				acc = append(acc, got...)
			}
			if len(acc) == 0 {
				return nil, nil
			}
			bss = acc
		}
		return bss, nil

	case []interface{}:
		fa, is := fact.([]interface{})
		if !is {
			return nil, nil
		}
		return matchSet(vv, fa, make([]bool, len(fa)), bs)

	default:
		return nil, &UnknownPatternType{pattern}
	}
}

// matchSet matches each pattern element against a distinct unused
// fact element, backtracking over the choices.
func matchSet(ps []interface{}, fs []interface{}, used []bool, bs Bindings) ([]Bindings, error) {
	if len(ps) == 0 {
		return []Bindings{bs}, nil
	}
	var acc []Bindings
	for i, f := range fs {
		if used[i] {
			continue
		}
		got, err := match(ps[0], f, bs.Copy())
		if err != nil {
			return nil, err
		}
		if len(got) == 0 {
			continue
		}
		used[i] = true
		for _, bs := range got {
			more, err := matchSet(ps[1:], fs, used, bs)
			if err != nil {
				used[i] = false
				return nil, err
			}
			acc = append(acc, more...)
		}
		used[i] = false
	}
	return acc, nil
}

// UnknownPatternType is an error that includes the thing that's
// causing the trouble.
type UnknownPatternType struct {
	Pattern interface{}
}

func (e *UnknownPatternType) Error() string {
	return "unknown pattern type"
}
