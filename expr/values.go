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

package expr

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/Comcast/skillets/document"
)

// Truthy coerces a value to a boolean: false, nil, zero, and empty
// strings, lists, and mappings are false.  Everything else is true.
func Truthy(x interface{}) bool {
	switch vv := x.(type) {
	case nil:
		return false
	case *undefined:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	case []interface{}:
		return 0 < len(vv)
	case []string:
		return 0 < len(vv)
	case map[string]interface{}:
		return 0 < len(vv)
	case map[interface{}]interface{}:
		return 0 < len(vv)
	case []*document.Node:
		return 0 < len(vv)
	case *document.Node:
		return vv != nil
	}
	if f, ok := ToNumber(x); ok {
		return f != 0
	}
	return true
}

// ToNumber converts Go's numeric types to a float64.  Booleans and
// strings aren't numbers.
func ToNumber(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int8:
		return float64(vv), true
	case int16:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint8:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case json.Number:
		f, err := vv.Float64()
		return f, err == nil
	}
	return 0, false
}

// AsList returns the elements of a list-like value.
func AsList(x interface{}) ([]interface{}, bool) {
	switch vv := x.(type) {
	case []interface{}:
		return vv, true
	case []string:
		acc := make([]interface{}, len(vv))
		for i, s := range vv {
			acc[i] = s
		}
		return acc, true
	case []map[string]interface{}:
		acc := make([]interface{}, len(vv))
		for i, m := range vv {
			acc[i] = m
		}
		return acc, true
	case []*document.Node:
		return document.Primitive(vv).([]interface{}), true
	}
	return nil, false
}

// AsMap returns a mapping with string keys for mapping-like values.
func AsMap(x interface{}) (map[string]interface{}, bool) {
	switch vv := x.(type) {
	case map[string]interface{}:
		return vv, true
	case map[interface{}]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			acc[Stringify(k)] = v
		}
		return acc, true
	case *document.Node:
		return document.Document(vv), true
	}
	return nil, false
}

// Equal compares values structurally.  Numbers of different Go types
// are equal when their values are.
func Equal(x, y interface{}) bool {
	if a, ok := ToNumber(x); ok {
		b, ok := ToNumber(y)
		return ok && a == b
	}
	switch xv := x.(type) {
	case nil:
		return y == nil
	case string:
		s, is := y.(string)
		return is && xv == s
	case bool:
		b, is := y.(bool)
		return is && xv == b
	}
	if xs, is := AsList(x); is {
		ys, is := AsList(y)
		if !is || len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !Equal(xs[i], ys[i]) {
				return false
			}
		}
		return true
	}
	if xm, is := AsMap(x); is {
		ym, is := AsMap(y)
		if !is || len(xm) != len(ym) {
			return false
		}
		for k, v := range xm {
			w, have := ym[k]
			if !have || !Equal(v, w) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(x, y)
}

// Compare orders two numbers or two strings.
func Compare(x, y interface{}) (int, error) {
	if a, ok := ToNumber(x); ok {
		if b, ok := ToNumber(y); ok {
			switch {
			case a < b:
				return -1, nil
			case b < a:
				return 1, nil
			}
			return 0, nil
		}
	}
	if a, is := x.(string); is {
		if b, is := y.(string); is {
			return strings.Compare(a, b), nil
		}
	}
	return 0, &TypeError{"compare", "can only compare two numbers or two strings", []interface{}{x, y}}
}

// Stringify renders a value for template output.  Nil renders as the
// empty string, numbers without trailing zeros, document nodes as
// markup, and lists and mappings as JSON.
func Stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case *document.Node:
		return vv.String()
	case *undefined:
		return ""
	}
	if f, ok := ToNumber(x); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if xs, is := AsList(x); is {
		return toJSON(xs)
	}
	if m, is := AsMap(x); is {
		return toJSON(m)
	}
	return fmt.Sprintf("%v", x)
}

func toJSON(x interface{}) string {
	js, err := json.Marshal(jsonable(x))
	if err != nil {
		return fmt.Sprintf("%v", x)
	}
	return string(js)
}

// jsonable converts map[interface{}]interface{} (which YAML
// decoders like to produce) so encoding/json can handle it.
func jsonable(x interface{}) interface{} {
	if xs, is := AsList(x); is {
		acc := make([]interface{}, len(xs))
		for i, y := range xs {
			acc[i] = jsonable(y)
		}
		return acc
	}
	if m, is := AsMap(x); is {
		acc := make(map[string]interface{}, len(m))
		for k, v := range m {
			acc[k] = jsonable(v)
		}
		return acc
	}
	return x
}

// TypeName names the type of a value in the vocabulary of
// expressions.
func TypeName(x interface{}) string {
	switch x.(type) {
	case nil:
		return "none"
	case *undefined:
		return "undefined"
	case string:
		return "string"
	case bool:
		return "boolean"
	case *document.Node:
		return "node"
	}
	if _, ok := ToNumber(x); ok {
		return "number"
	}
	if _, is := AsList(x); is {
		return "list"
	}
	if _, is := AsMap(x); is {
		return "mapping"
	}
	return fmt.Sprintf("%T", x)
}

// SortedKeys returns a mapping's keys in order.
func SortedKeys(m map[string]interface{}) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}
