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

package filters

import (
	"encoding/json"
	"net/netip"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/skillets/expr"
	"github.com/Comcast/skillets/match"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"github.com/hashicorp/go-version"
)

func length(x interface{}, args ...interface{}) (interface{}, error) {
	switch vv := x.(type) {
	case string:
		return len(vv), nil
	case nil:
		return 0, nil
	}
	if xs, is := expr.AsList(x); is {
		return len(xs), nil
	}
	if m, is := expr.AsMap(x); is {
		return len(m), nil
	}
	return nil, &BadArgs{"length", "a string, list, or mapping"}
}

func lower(x interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToLower(expr.Stringify(x)), nil
}

func upper(x interface{}, args ...interface{}) (interface{}, error) {
	return strings.ToUpper(expr.Stringify(x)), nil
}

func trim(x interface{}, args ...interface{}) (interface{}, error) {
	return strings.TrimSpace(expr.Stringify(x)), nil
}

func join(x interface{}, args ...interface{}) (interface{}, error) {
	xs, is := expr.AsList(x)
	if !is {
		return nil, errNotAList
	}
	sep := ""
	if 0 < len(args) {
		sep = expr.Stringify(args[0])
	}
	ss := make([]string, len(xs))
	for i, y := range xs {
		ss[i] = expr.Stringify(y)
	}
	return strings.Join(ss, sep), nil
}

func first(x interface{}, args ...interface{}) (interface{}, error) {
	xs, is := expr.AsList(x)
	if !is {
		return nil, errNotAList
	}
	if len(xs) == 0 {
		return nil, nil
	}
	return xs[0], nil
}

func last(x interface{}, args ...interface{}) (interface{}, error) {
	xs, is := expr.AsList(x)
	if !is {
		return nil, errNotAList
	}
	if len(xs) == 0 {
		return nil, nil
	}
	return xs[len(xs)-1], nil
}

func toString(x interface{}, args ...interface{}) (interface{}, error) {
	return expr.Stringify(x), nil
}

func toFloat(x interface{}, args ...interface{}) (interface{}, error) {
	if f, ok := expr.ToNumber(x); ok {
		return f, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(expr.Stringify(x)), 64)
	if err != nil {
		if 0 < len(args) {
			return args[0], nil
		}
		return 0.0, nil
	}
	return f, nil
}

func toInt(x interface{}, args ...interface{}) (interface{}, error) {
	f, err := toFloat(x, args...)
	if err != nil {
		return nil, err
	}
	if n, ok := expr.ToNumber(f); ok {
		return float64(int64(n)), nil
	}
	return f, nil
}

func toJSON(x interface{}, args ...interface{}) (interface{}, error) {
	if _, is := x.(string); is {
		js, err := json.Marshal(x)
		return string(js), err
	}
	return expr.Stringify(x), nil
}

func replace(x interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, &BadArgs{"replace", "(old, new)"}
	}
	return strings.ReplaceAll(expr.Stringify(x), expr.Stringify(args[0]), expr.Stringify(args[1])), nil
}

func split(x interface{}, args ...interface{}) (interface{}, error) {
	s := expr.Stringify(x)
	var parts []string
	if len(args) == 0 {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, expr.Stringify(args[0]))
	}
	acc := make([]interface{}, len(parts))
	for i, p := range parts {
		acc[i] = p
	}
	return acc, nil
}

func unique(x interface{}, args ...interface{}) (interface{}, error) {
	xs, is := expr.AsList(x)
	if !is {
		return nil, errNotAList
	}
	acc := make([]interface{}, 0, len(xs))
	for _, y := range xs {
		dup := false
		for _, z := range acc {
			if expr.Equal(y, z) {
				dup = true
				break
			}
		}
		if !dup {
			acc = append(acc, y)
		}
	}
	return acc, nil
}

func sortFilter(x interface{}, args ...interface{}) (interface{}, error) {
	xs, is := expr.AsList(x)
	if !is {
		return nil, errNotAList
	}
	acc := make([]interface{}, len(xs))
	copy(acc, xs)
	var err error
	sort.SliceStable(acc, func(i, j int) bool {
		c, e := expr.Compare(acc[i], acc[j])
		if e != nil {
			err = e
		}
		return c < 0
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func keys(x interface{}, args ...interface{}) (interface{}, error) {
	m, is := expr.AsMap(x)
	if !is {
		return nil, &BadArgs{"keys", "a mapping"}
	}
	ks := expr.SortedKeys(m)
	acc := make([]interface{}, len(ks))
	for i, k := range ks {
		acc[i] = k
	}
	return acc, nil
}

// regexSearch returns the first group of the first match (or the
// whole match when the pattern has no groups), or nil.
func regexSearch(x interface{}, args ...interface{}) (interface{}, error) {
	pattern, err := stringArg("regex_search", args, 0)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	m := re.FindStringSubmatch(expr.Stringify(x))
	switch {
	case m == nil:
		return nil, nil
	case 1 < len(m):
		return m[1], nil
	default:
		return m[0], nil
	}
}

// matches reports whether the structural pattern matches the
// subject.  See package match.
func matches(x interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgs{"matches", "(pattern)"}
	}
	s, err := subject(x)
	if err != nil {
		return nil, err
	}
	bss, err := match.Matches(args[0], s)
	if err != nil {
		return nil, err
	}
	return 0 < len(bss), nil
}

// matchBindings returns the variables (without their '?') of the
// first match of the pattern, or nil when there's no match.
func matchBindings(x interface{}, args ...interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, &BadArgs{"match_bindings", "(pattern)"}
	}
	s, err := subject(x)
	if err != nil {
		return nil, err
	}
	bss, err := match.Matches(args[0], s)
	if err != nil || len(bss) == 0 {
		return nil, err
	}
	return bss[0].Strip(), nil
}

// versionCompare compares the subject version with another using an
// operator: "==", "!=", "<", "<=", ">", ">=".  With one argument, the
// argument is a constraint like ">= 9.1, < 10.2".
func versionCompare(x interface{}, args ...interface{}) (interface{}, error) {
	v, err := version.NewVersion(expr.Stringify(x))
	if err != nil {
		return nil, err
	}
	constraint, err := stringArg("version_compare", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) == 2 {
		op, err := stringArg("version_compare", args, 1)
		if err != nil {
			return nil, err
		}
		if op == "==" {
			op = "="
		}
		constraint = op + " " + constraint
	}
	cs, err := version.NewConstraint(constraint)
	if err != nil {
		return nil, err
	}
	return cs.Check(v), nil
}

// cronNext returns the next time (RFC3339, UTC) at or after the
// subject (RFC3339, or now when the subject is empty) that matches
// the cron expression argument.
func cronNext(x interface{}, args ...interface{}) (interface{}, error) {
	spec, err := stringArg("cron_next", args, 0)
	if err != nil {
		return nil, err
	}
	e, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, err
	}
	from := time.Now()
	if s := expr.Stringify(x); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return nil, err
		}
	}
	next := e.Next(from)
	if next.IsZero() {
		return nil, nil
	}
	return next.UTC().Format(time.RFC3339), nil
}

// inNetwork reports whether the subject address (or CIDR) lies
// within any of the given networks.
func inNetwork(x interface{}, args ...interface{}) (interface{}, error) {
	s := expr.Stringify(x)
	var addr netip.Addr
	if p, err := netip.ParsePrefix(s); err == nil {
		addr = p.Addr()
	} else if addr, err = netip.ParseAddr(s); err != nil {
		return nil, err
	}
	for _, arg := range args {
		for _, n := range items(arg) {
			p, err := netip.ParsePrefix(expr.Stringify(n))
			if err != nil {
				return nil, err
			}
			if p.Contains(addr) {
				return true, nil
			}
		}
	}
	return false, nil
}

func appendUUID(x interface{}, args ...interface{}) (interface{}, error) {
	return expr.Stringify(x) + "-" + uuid.New().String(), nil
}
