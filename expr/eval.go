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
	"math"
	"strconv"
	"strings"

	"github.com/Comcast/skillets/document"
)

// undefined is the value of a reference to an unbound name.  It
// carries the reference for error messages.
type undefined struct {
	name string
}

func isUndefined(x interface{}) bool {
	_, is := x.(*undefined)
	return is
}

// defined returns an UnresolvedVariableError when x is undefined.
func defined(x interface{}) error {
	if u, is := x.(*undefined); is {
		return &UnresolvedVariableError{u.name}
	}
	return nil
}

func describeRef(x node) string {
	switch vv := x.(type) {
	case *nameRef:
		return vv.name
	case *attrRef:
		return describeRef(vv.x) + "." + vv.attr
	case *indexRef:
		return describeRef(vv.x) + "[...]"
	default:
		return "expression"
	}
}

func (x *literal) eval(env *Env, ns Namespace) (interface{}, error) {
	return x.v, nil
}

func (x *literal) names(acc map[string]bool) {}

func (x *nameRef) eval(env *Env, ns Namespace) (interface{}, error) {
	if v, have := ns.Lookup(x.name); have {
		return v, nil
	}
	return &undefined{x.name}, nil
}

func (x *nameRef) names(acc map[string]bool) {
	acc[x.name] = true
}

func (x *attrRef) eval(env *Env, ns Namespace) (interface{}, error) {
	v, err := x.x.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if isUndefined(v) {
		return &undefined{describeRef(x)}, nil
	}
	if got, have := Get(v, x.attr); have {
		return got, nil
	}
	return &undefined{describeRef(x)}, nil
}

func (x *attrRef) names(acc map[string]bool) {
	x.x.names(acc)
}

func (x *indexRef) eval(env *Env, ns Namespace) (interface{}, error) {
	v, err := x.x.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if isUndefined(v) {
		return &undefined{describeRef(x)}, nil
	}
	i, err := x.index.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if err = defined(i); err != nil {
		return nil, err
	}
	if got, have := Get(v, i); have {
		return got, nil
	}
	return &undefined{describeRef(x)}, nil
}

func (x *indexRef) names(acc map[string]bool) {
	x.x.names(acc)
	x.index.names(acc)
}

func (x *listLit) eval(env *Env, ns Namespace) (interface{}, error) {
	acc := make([]interface{}, len(x.elems))
	for i, e := range x.elems {
		v, err := e.eval(env, ns)
		if err != nil {
			return nil, err
		}
		if err = defined(v); err != nil {
			return nil, err
		}
		acc[i] = v
	}
	return acc, nil
}

func (x *listLit) names(acc map[string]bool) {
	for _, e := range x.elems {
		e.names(acc)
	}
}

func (x *mapLit) eval(env *Env, ns Namespace) (interface{}, error) {
	acc := make(map[string]interface{}, len(x.keys))
	for i := range x.keys {
		k, err := x.keys[i].eval(env, ns)
		if err != nil {
			return nil, err
		}
		if err = defined(k); err != nil {
			return nil, err
		}
		v, err := x.vals[i].eval(env, ns)
		if err != nil {
			return nil, err
		}
		if err = defined(v); err != nil {
			return nil, err
		}
		acc[Stringify(k)] = v
	}
	return acc, nil
}

func (x *mapLit) names(acc map[string]bool) {
	for i := range x.keys {
		x.keys[i].names(acc)
		x.vals[i].names(acc)
	}
}

func evalArgs(env *Env, ns Namespace, args []node) ([]interface{}, error) {
	acc := make([]interface{}, len(args))
	for i, a := range args {
		v, err := a.eval(env, ns)
		if err != nil {
			return nil, err
		}
		if err = defined(v); err != nil {
			return nil, err
		}
		acc[i] = v
	}
	return acc, nil
}

func (x *filterCall) eval(env *Env, ns Namespace) (interface{}, error) {
	v, err := x.x.eval(env, ns)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(env, ns, x.args)
	if err != nil {
		return nil, err
	}

	if x.name == "default" || x.name == "d" {
		// default(value, boolean): with a true second argument,
		// falsy values are replaced too.
		var fallback interface{} = ""
		if 0 < len(args) {
			fallback = args[0]
		}
		if isUndefined(v) {
			return fallback, nil
		}
		if 1 < len(args) && Truthy(args[1]) && !Truthy(v) {
			return fallback, nil
		}
		return v, nil
	}

	if err = defined(v); err != nil {
		return nil, err
	}
	f, have := env.Filters[x.name]
	if !have {
		return nil, &UnknownFilter{x.name}
	}
	got, err := f(v, args...)
	if err != nil {
		return nil, &FilterError{x.name, err}
	}
	return got, nil
}

func (x *filterCall) names(acc map[string]bool) {
	x.x.names(acc)
	for _, a := range x.args {
		a.names(acc)
	}
}

// presence tests accept undefined subjects.
var presence = map[string]bool{
	"defined":   true,
	"undefined": true,
	"none":      true,
}

func (x *testCall) eval(env *Env, ns Namespace) (interface{}, error) {
	v, err := x.x.eval(env, ns)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(env, ns, x.args)
	if err != nil {
		return nil, err
	}

	var b bool
	if isUndefined(v) {
		if !presence[x.name] {
			return nil, defined(v)
		}
		b = x.name != "defined"
	} else {
		test, have := env.Tests[x.name]
		if !have {
			return nil, &UnknownTest{x.name}
		}
		if b, err = test(v, args...); err != nil {
			return nil, err
		}
	}
	if x.negate {
		b = !b
	}
	return b, nil
}

func (x *testCall) names(acc map[string]bool) {
	x.x.names(acc)
	for _, a := range x.args {
		a.names(acc)
	}
}

func (x *unary) eval(env *Env, ns Namespace) (interface{}, error) {
	v, err := x.x.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if err = defined(v); err != nil {
		return nil, err
	}
	switch x.op {
	case "not":
		return !Truthy(v), nil
	case "-":
		f, ok := ToNumber(v)
		if !ok {
			return nil, &TypeError{"-", "not a number", []interface{}{v}}
		}
		return -f, nil
	}
	return nil, &TypeError{x.op, "unknown operator", nil}
}

func (x *unary) names(acc map[string]bool) {
	x.x.names(acc)
}

func (x *binary) eval(env *Env, ns Namespace) (interface{}, error) {
	l, err := x.l.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if err = defined(l); err != nil {
		return nil, err
	}

	switch x.op {
	case "and":
		if !Truthy(l) {
			return l, nil
		}
		return x.operand(env, ns)
	case "or":
		if Truthy(l) {
			return l, nil
		}
		return x.operand(env, ns)
	}

	r, err := x.operand(env, ns)
	if err != nil {
		return nil, err
	}

	switch x.op {
	case "==":
		return Equal(l, r), nil
	case "!=":
		return !Equal(l, r), nil
	case "<", "<=", ">", ">=":
		c, err := Compare(l, r)
		if err != nil {
			return nil, err
		}
		switch x.op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return 0 < c, nil
		default:
			return 0 <= c, nil
		}
	case "in":
		return Contains(r, l)
	case "not in":
		b, err := Contains(r, l)
		return !b, err
	case "~":
		return Stringify(l) + Stringify(r), nil
	case "+":
		return add(l, r)
	}
	return arith(x.op, l, r)
}

func (x *binary) operand(env *Env, ns Namespace) (interface{}, error) {
	r, err := x.r.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if err = defined(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (x *binary) names(acc map[string]bool) {
	x.l.names(acc)
	x.r.names(acc)
}

func (x *conditional) eval(env *Env, ns Namespace) (interface{}, error) {
	t, err := x.test.eval(env, ns)
	if err != nil {
		return nil, err
	}
	if err = defined(t); err != nil {
		return nil, err
	}
	if Truthy(t) {
		return x.then.eval(env, ns)
	}
	return x.alt.eval(env, ns)
}

func (x *conditional) names(acc map[string]bool) {
	x.then.names(acc)
	x.test.names(acc)
	x.alt.names(acc)
}

func add(l, r interface{}) (interface{}, error) {
	switch lv := l.(type) {
	case string:
		if rv, is := r.(string); is {
			return lv + rv, nil
		}
	case []interface{}:
		if rv, is := r.([]interface{}); is {
			acc := make([]interface{}, 0, len(lv)+len(rv))
			return append(append(acc, lv...), rv...), nil
		}
	}
	return arith("+", l, r)
}

func arith(op string, l, r interface{}) (interface{}, error) {
	a, ok1 := ToNumber(l)
	b, ok2 := ToNumber(r)
	if !ok1 || !ok2 {
		return nil, &TypeError{op, "operands must be numbers", []interface{}{l, r}}
	}
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "//", "%":
		if b == 0 {
			return nil, &TypeError{op, "division by zero", nil}
		}
		switch op {
		case "/":
			return a / b, nil
		case "//":
			return math.Floor(a / b), nil
		default:
			return a - b*math.Floor(a/b), nil
		}
	}
	return nil, &TypeError{op, "unknown operator", nil}
}

// Get returns a member of a mapping (by key), a list or string (by
// integer index, negative from the end), or a document node (via its
// primitive form).
func Get(x interface{}, key interface{}) (interface{}, bool) {
	switch vv := x.(type) {
	case *document.Node, []*document.Node:
		return Get(document.Primitive(x), key)
	case map[string]interface{}:
		v, have := vv[Stringify(key)]
		return v, have
	case map[interface{}]interface{}:
		v, have := vv[key]
		if !have {
			v, have = vv[Stringify(key)]
		}
		return v, have
	case []interface{}:
		if i, ok := index(key, len(vv)); ok {
			return vv[i], true
		}
	case []string:
		if i, ok := index(key, len(vv)); ok {
			return vv[i], true
		}
	case string:
		if i, ok := index(key, len(vv)); ok {
			return vv[i : i+1], true
		}
	}
	return nil, false
}

func index(key interface{}, n int) (int, bool) {
	var f float64
	switch vv := key.(type) {
	case string:
		i, err := strconv.Atoi(vv)
		if err != nil {
			return 0, false
		}
		f = float64(i)
	default:
		var ok bool
		if f, ok = ToNumber(key); !ok {
			return 0, false
		}
	}
	i := int(f)
	if float64(i) != f {
		return 0, false
	}
	if i < 0 {
		i += n
	}
	if i < 0 || n <= i {
		return 0, false
	}
	return i, true
}

// Contains implements "needle in haystack": substring for strings,
// membership (by Equal) for lists, and key presence for mappings.
func Contains(haystack, needle interface{}) (bool, error) {
	switch vv := haystack.(type) {
	case string:
		s, is := needle.(string)
		if !is {
			return false, &TypeError{"in", "left operand must be a string", []interface{}{needle}}
		}
		return strings.Contains(vv, s), nil
	case map[string]interface{}, map[interface{}]interface{}:
		_, have := Get(vv, needle)
		return have, nil
	case *document.Node, []*document.Node:
		return Contains(document.Primitive(haystack), needle)
	}
	if xs, is := AsList(haystack); is {
		for _, x := range xs {
			if Equal(x, needle) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, &TypeError{"in", "right operand isn't a container", []interface{}{haystack}}
}
