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

// Package filters provides the standard filters for skillet
// expressions.
//
// The path filters (tag_present, attribute_present, element_value,
// and friends) inspect configuration documents in primitive form:
// their subject can be a *document.Node, raw markup, or the result
// of document.ToPrimitive or document.Document.  Paths use '.' or '/'
// separators and may carry predicates (see document.Lookup).
package filters

import (
	"errors"
	"strings"

	"github.com/Comcast/skillets/document"
	"github.com/Comcast/skillets/expr"
)

// BadArgs occurs when a filter gets the wrong number or kind of
// arguments.
type BadArgs struct {
	Filter string
	Want   string
}

func (e *BadArgs) Error() string {
	return e.Filter + " wants " + e.Want
}

// Standard returns the standard filters.
func Standard() map[string]expr.Filter {
	return map[string]expr.Filter{
		"tag_present":            tagPresent,
		"tag_absent":             tagAbsent,
		"node_present":           tagPresent,
		"node_absent":            tagAbsent,
		"attribute_present":      attributePresent,
		"attribute_absent":       attributeAbsent,
		"element_value":          elementValue,
		"node_value":             elementValue,
		"element_value_contains": elementValueContains,
		"node_value_contains":    elementValueContains,
		"element_list":           elementList,
		"items_present":          itemsPresent,
		"items_absent":           itemsAbsent,
		"item_present":           itemPresent,
		"listify":                listify,
		"difference":             difference,
		"append_uuid":            appendUUID,

		"length":          length,
		"count":           length,
		"lower":           lower,
		"upper":           upper,
		"trim":            trim,
		"join":            join,
		"first":           first,
		"last":            last,
		"string":          toString,
		"int":             toInt,
		"float":           toFloat,
		"tojson":          toJSON,
		"replace":         replace,
		"split":           split,
		"unique":          unique,
		"sort":            sortFilter,
		"keys":            keys,
		"regex_search":    regexSearch,
		"matches":         matches,
		"match_bindings":  matchBindings,
		"version_compare": versionCompare,
		"cron_next":       cronNext,
		"in_network":      inNetwork,
	}
}

// NewEnv returns an expr.Env with the standard tests and filters.
func NewEnv() *expr.Env {
	env := expr.NewEnv()
	for name, f := range Standard() {
		env.Filters[name] = f
	}
	return env
}

// subject converts a filter subject to primitive form.  Raw markup is
// parsed.
func subject(x interface{}) (interface{}, error) {
	if s, is := x.(string); is && strings.HasPrefix(strings.TrimSpace(s), "<") {
		n, err := document.Parse(s)
		if err != nil {
			return nil, err
		}
		return document.Document(n), nil
	}
	return document.Primitive(x), nil
}

func stringArg(filter string, args []interface{}, i int) (string, error) {
	if len(args) <= i {
		return "", &BadArgs{filter, "at least " + itoa(i+1) + " argument(s)"}
	}
	s, is := args[i].(string)
	if !is {
		return "", &BadArgs{filter, "a string for argument " + itoa(i+1)}
	}
	return s, nil
}

func itoa(n int) string {
	return expr.Stringify(n)
}

// lookup finds the value at the path.  A bad path is an error, but a
// missing value isn't.
func lookup(filter string, x interface{}, args []interface{}) (interface{}, bool, error) {
	path, err := stringArg(filter, args, 0)
	if err != nil {
		return nil, false, err
	}
	if x, err = subject(x); err != nil {
		return nil, false, err
	}
	return document.Lookup(x, path)
}

func tagPresent(x interface{}, args ...interface{}) (interface{}, error) {
	_, found, err := lookup("tag_present", x, args)
	if err != nil {
		return nil, err
	}
	return found, nil
}

func tagAbsent(x interface{}, args ...interface{}) (interface{}, error) {
	present, err := tagPresent(x, args...)
	if err != nil {
		return nil, err
	}
	return !present.(bool), nil
}

// items returns a list for lists and a singleton list for a mapping.
func items(x interface{}) []interface{} {
	if xs, is := expr.AsList(x); is {
		return xs
	}
	if x == nil {
		return nil
	}
	return []interface{}{x}
}

func attributePresent(x interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 3 {
		return nil, &BadArgs{"attribute_present", "(path, attribute name, attribute value)"}
	}
	v, found, err := lookup("attribute_present", x, args)
	if err != nil || !found {
		return false, err
	}
	name, err := stringArg("attribute_present", args, 1)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(name, document.AttrPrefix) {
		name = document.AttrPrefix + name
	}
	want := document.Stringify(args[2])
	for _, item := range items(v) {
		m, is := expr.AsMap(item)
		if !is {
			continue
		}
		if got, have := m[name]; have && document.Stringify(got) == want {
			return true, nil
		}
	}
	return false, nil
}

func attributeAbsent(x interface{}, args ...interface{}) (interface{}, error) {
	present, err := attributePresent(x, args...)
	if err != nil {
		return nil, err
	}
	return !present.(bool), nil
}

func elementValue(x interface{}, args ...interface{}) (interface{}, error) {
	v, found, err := lookup("element_value", x, args)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &document.PathNotFoundError{Path: args[0].(string)}
	}
	return v, nil
}

// same compares scalars by their string forms and anything else
// structurally.
func same(x, y interface{}) bool {
	if expr.Equal(x, y) {
		return true
	}
	if isScalar(x) && isScalar(y) {
		return document.Stringify(x) == document.Stringify(y)
	}
	return false
}

func isScalar(x interface{}) bool {
	if x == nil {
		return false
	}
	if _, is := expr.AsList(x); is {
		return false
	}
	if _, is := expr.AsMap(x); is {
		return false
	}
	return true
}

func elementValueContains(x interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, &BadArgs{"element_value_contains", "(path, member)"}
	}
	v, found, err := lookup("element_value_contains", x, args)
	if err != nil || !found {
		return false, err
	}
	member := args[1]
	if xs, is := expr.AsList(v); is {
		for _, y := range xs {
			if same(y, member) {
				return true, nil
			}
		}
		return false, nil
	}
	if m, is := expr.AsMap(v); is {
		_, have := m[document.Stringify(member)]
		return have, nil
	}
	return same(v, member), nil
}

func elementList(x interface{}, args ...interface{}) (interface{}, error) {
	v, found, err := lookup("element_list", x, args)
	if err != nil {
		return nil, err
	}
	if !found {
		return []interface{}{}, nil
	}
	return listify(v)
}

// present reports whether needle appears in any of the haystack's
// items, either as the item itself or, when a path is given, at that
// path within the item.  A list value counts when it has the needle
// as an element.
func present(needle interface{}, haystack []interface{}, path string) (bool, error) {
	for _, item := range haystack {
		v := item
		if path != "" && path != "." {
			var found bool
			var err error
			if v, found, err = document.Lookup(item, path); err != nil {
				return false, err
			} else if !found {
				continue
			}
		}
		if same(v, needle) {
			return true, nil
		}
		if xs, is := expr.AsList(v); is {
			for _, y := range xs {
				if same(y, needle) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func haystackArgs(filter string, args []interface{}) ([]interface{}, string, error) {
	if len(args) < 1 || 2 < len(args) {
		return nil, "", &BadArgs{filter, "(haystack[, path])"}
	}
	haystack, err := subject(args[0])
	if err != nil {
		return nil, "", err
	}
	var path string
	if len(args) == 2 && args[1] != nil {
		if path, err = stringArg(filter, args, 1); err != nil {
			return nil, "", err
		}
	}
	return items(haystack), path, nil
}

func itemsPresent(x interface{}, args ...interface{}) (interface{}, error) {
	haystack, path, err := haystackArgs("items_present", args)
	if err != nil {
		return nil, err
	}
	for _, needle := range items(x) {
		found, err := present(needle, haystack, path)
		if err != nil {
			return nil, err
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// itemsAbsent is true when none of the needles is present.
func itemsAbsent(x interface{}, args ...interface{}) (interface{}, error) {
	haystack, path, err := haystackArgs("items_absent", args)
	if err != nil {
		return nil, err
	}
	for _, needle := range items(x) {
		found, err := present(needle, haystack, path)
		if err != nil {
			return nil, err
		}
		if found {
			return false, nil
		}
	}
	return true, nil
}

func itemPresent(x interface{}, args ...interface{}) (interface{}, error) {
	haystack, path, err := haystackArgs("item_present", args)
	if err != nil {
		return nil, err
	}
	return present(x, haystack, path)
}

func listify(x interface{}, args ...interface{}) (interface{}, error) {
	if x == nil {
		return []interface{}{}, nil
	}
	if xs, is := expr.AsList(x); is {
		return xs, nil
	}
	return []interface{}{x}, nil
}

func difference(x interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgs{"difference", "(other list)"}
	}
	others := items(args[0])
	acc := make([]interface{}, 0)
	for _, y := range items(x) {
		found := false
		for _, z := range others {
			if same(y, z) {
				found = true
				break
			}
		}
		if !found {
			acc = append(acc, y)
		}
	}
	return acc, nil
}

var errNotAList = errors.New("subject is not a list")
