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

package document

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// AttrPrefix marks attribute keys in primitive form.
	AttrPrefix = "@"

	// TextKey holds the character data of an element that also has
	// attributes or children.
	TextKey = "#text"
)

// ToPrimitive converts a node into nested map[string]interface{},
// []interface{} and string values.
//
// An element with only text becomes that text.  An empty element
// becomes nil.  Otherwise the element becomes a map with a key per
// child tag (the value is a list when the tag repeats), a key per
// attribute (prefixed with AttrPrefix), and TextKey for any text.
func ToPrimitive(n *Node) interface{} {
	if n == nil {
		return nil
	}
	if n.IsLeaf() && len(n.Attrs) == 0 {
		if n.Text == "" {
			return nil
		}
		return n.Text
	}

	m := make(map[string]interface{}, len(n.Attrs)+len(n.Children))
	for _, a := range n.Attrs {
		m[AttrPrefix+a.Name] = a.Value
	}
	for _, c := range n.Children {
		v := ToPrimitive(c)
		existing, have := m[c.Tag]
		if !have {
			m[c.Tag] = v
			continue
		}
		// ToPrimitive never returns a list, so a list here is one
		// we built for a repeated tag.
		if repeated, is := existing.([]interface{}); is {
			m[c.Tag] = append(repeated, v)
		} else {
			m[c.Tag] = []interface{}{existing, v}
		}
	}
	if n.Text != "" {
		m[TextKey] = n.Text
	}
	return m
}

// Document is ToPrimitive wrapped in a single-key map keyed by the
// node's tag, which is the shape of a whole parsed document.
func Document(n *Node) map[string]interface{} {
	if n == nil {
		return nil
	}
	return map[string]interface{}{
		n.Tag: ToPrimitive(n),
	}
}

// Primitive converts Nodes (and slices of them) to primitive form and
// returns anything else unchanged.
func Primitive(x interface{}) interface{} {
	switch vv := x.(type) {
	case *Node:
		return Document(vv)
	case []*Node:
		acc := make([]interface{}, len(vv))
		for i, n := range vv {
			acc[i] = Document(n)
		}
		return acc
	default:
		return x
	}
}

// segment is a step of a primitive lookup path.
type segment struct {
	name  string
	index *int
	all   bool
	preds []*Pred
}

// splitPath splits on sep outside of brackets and quotes.
func splitPath(s string, sep byte) []string {
	var (
		acc   []string
		depth int
		quote byte
		start int
	)
	for j := 0; j < len(s); j++ {
		c := s[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case c == sep && depth == 0:
			acc = append(acc, s[start:j])
			start = j + 1
		}
	}
	return append(acc, s[start:])
}

func parseSegments(path string) ([]*segment, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	if path == "" || path == "." {
		return nil, nil
	}

	sep := byte('.')
	if strings.Contains(path, "/") {
		sep = '/'
	}
	path = strings.Trim(path, string(sep))

	var acc []*segment
	for _, part := range splitPath(path, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, &BadPath{path, 0, "empty segment"}
		}
		seg := &segment{
			name: part,
		}
		if k := strings.IndexByte(part, '['); 0 <= k {
			seg.name = part[:k]
			rest := part[k:]
			for rest != "" {
				end := predEnd(rest)
				if rest[0] != '[' || end < 0 {
					return nil, &BadPath{path, 0, "bad predicate in " + part}
				}
				inner := strings.TrimSpace(rest[1:end])
				rest = rest[end+1:]
				if inner == "*" {
					seg.all = true
					continue
				}
				if n, err := strconv.Atoi(inner); err == nil {
					seg.index = &n
					continue
				}
				p, err := parsePred(inner)
				if err != nil {
					return nil, &BadPath{path, 0, err.Error()}
				}
				seg.preds = append(seg.preds, p)
			}
		}
		acc = append(acc, seg)
	}
	return acc, nil
}

// Lookup finds the value at a path in a primitive tree (see
// ToPrimitive), a *Node, or decoded JSON.
//
// Segments are separated by '/' when the path contains one and by '.'
// otherwise.  A leading "$" is ignored so simple JSONPath-like paths
// ("$.return[0].token") work.  A segment is a key optionally followed
// by predicates: "[0]" (a 0-based list index), "[*]", "[@attr='v']"
// (keep mappings whose AttrPrefix+attr key equals v), or
// "[child='v']".  A key segment applied to a list projects over the
// list's mappings.
//
// When the top-level value is a single-key mapping and the first key
// isn't that key, Lookup looks inside it.  That lets a path like
// "deviceconfig.system" work against both {"deviceconfig": ...} and
// {"config": {"deviceconfig": ...}}.
func Lookup(x interface{}, path string) (interface{}, bool, error) {
	segs, err := parseSegments(path)
	if err != nil {
		return nil, false, err
	}

	x = Primitive(x)
	if len(segs) == 0 {
		return x, true, nil
	}

	if m, is := x.(map[string]interface{}); is && segs[0].name != "" {
		if _, have := m[segs[0].name]; !have && len(m) == 1 {
			for _, inner := range m {
				x = inner
			}
		}
	}

	for _, seg := range segs {
		var found bool
		if x, found = seg.apply(x); !found {
			return nil, false, nil
		}
	}
	return x, true, nil
}

// LookupString is Lookup for callers that treat a bad path as
// absence.
func LookupString(x interface{}, path string) (interface{}, bool) {
	v, found, err := Lookup(x, path)
	if err != nil {
		return nil, false
	}
	return v, found
}

func (seg *segment) apply(x interface{}) (interface{}, bool) {
	if seg.name != "" {
		switch vv := x.(type) {
		case map[string]interface{}:
			v, have := vv[seg.name]
			if !have {
				return nil, false
			}
			x = v
		case []interface{}:
			acc := make([]interface{}, 0, len(vv))
			for _, item := range vv {
				if m, is := item.(map[string]interface{}); is {
					if v, have := m[seg.name]; have {
						acc = append(acc, v)
					}
				}
			}
			if len(acc) == 0 {
				return nil, false
			}
			x = acc
		default:
			return nil, false
		}
	}

	if seg.index != nil {
		i := *seg.index
		switch vv := x.(type) {
		case []interface{}:
			if i < 0 {
				i += len(vv)
			}
			if i < 0 || len(vv) <= i {
				return nil, false
			}
			x = vv[i]
		case map[string]interface{}:
			// A single element in XML-derived data isn't a list.
			if i != 0 && i != -1 {
				return nil, false
			}
		default:
			return nil, false
		}
	}

	if seg.all {
		if _, is := x.([]interface{}); !is {
			x = []interface{}{x}
		}
	}

	for _, p := range seg.preds {
		var items []interface{}
		switch vv := x.(type) {
		case []interface{}:
			items = vv
		case map[string]interface{}:
			items = []interface{}{vv}
		default:
			return nil, false
		}
		acc := make([]interface{}, 0, len(items))
		for _, item := range items {
			if m, is := item.(map[string]interface{}); is && p.holdsPrimitive(m) {
				acc = append(acc, item)
			}
		}
		switch len(acc) {
		case 0:
			return nil, false
		case 1:
			x = acc[0]
		default:
			x = acc
		}
	}

	return x, true
}

func (p *Pred) holdsPrimitive(m map[string]interface{}) bool {
	key := p.Child
	if p.Attr != "" {
		key = AttrPrefix + p.Attr
	}
	v, have := m[key]
	if !have {
		return false
	}
	return !p.HasValue || Stringify(v) == p.Value
}

// Stringify renders a scalar for string comparisons.
func Stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
