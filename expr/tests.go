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
)

var standardTests = map[string]Test{
	// "defined", "undefined" and "none" are also handled directly
	// by the evaluator when the subject is unbound.
	"defined": func(x interface{}, args ...interface{}) (bool, error) {
		return true, nil
	},
	"undefined": func(x interface{}, args ...interface{}) (bool, error) {
		return false, nil
	},
	"none": func(x interface{}, args ...interface{}) (bool, error) {
		return x == nil, nil
	},
	"string": func(x interface{}, args ...interface{}) (bool, error) {
		_, is := x.(string)
		return is, nil
	},
	"number": func(x interface{}, args ...interface{}) (bool, error) {
		_, is := ToNumber(x)
		return is, nil
	},
	"boolean": func(x interface{}, args ...interface{}) (bool, error) {
		_, is := x.(bool)
		return is, nil
	},
	"true": func(x interface{}, args ...interface{}) (bool, error) {
		b, is := x.(bool)
		return is && b, nil
	},
	"false": func(x interface{}, args ...interface{}) (bool, error) {
		b, is := x.(bool)
		return is && !b, nil
	},
	"mapping": func(x interface{}, args ...interface{}) (bool, error) {
		_, is := AsMap(x)
		return is, nil
	},
	"sequence": func(x interface{}, args ...interface{}) (bool, error) {
		_, is := AsList(x)
		return is, nil
	},
	"iterable": func(x interface{}, args ...interface{}) (bool, error) {
		if _, is := AsList(x); is {
			return true, nil
		}
		if _, is := AsMap(x); is {
			return true, nil
		}
		_, is := x.(string)
		return is, nil
	},
	"even": func(x interface{}, args ...interface{}) (bool, error) {
		f, ok := ToNumber(x)
		return ok && math.Mod(f, 2) == 0, nil
	},
	"odd": func(x interface{}, args ...interface{}) (bool, error) {
		f, ok := ToNumber(x)
		return ok && math.Abs(math.Mod(f, 2)) == 1, nil
	},
	"divisibleby": func(x interface{}, args ...interface{}) (bool, error) {
		if len(args) != 1 {
			return false, &TypeError{"divisibleby", "needs one argument", args}
		}
		a, ok1 := ToNumber(x)
		b, ok2 := ToNumber(args[0])
		if !ok1 || !ok2 || b == 0 {
			return false, &TypeError{"divisibleby", "needs nonzero numbers", []interface{}{x, args[0]}}
		}
		return math.Mod(a, b) == 0, nil
	},
	"eq": func(x interface{}, args ...interface{}) (bool, error) {
		if len(args) != 1 {
			return false, &TypeError{"eq", "needs one argument", args}
		}
		return Equal(x, args[0]), nil
	},
	"in": func(x interface{}, args ...interface{}) (bool, error) {
		if len(args) != 1 {
			return false, &TypeError{"in", "needs one argument", args}
		}
		return Contains(args[0], x)
	},
}
