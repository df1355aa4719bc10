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
	"sort"
	"strconv"
	"strings"
)

// Axis says how a Step finds candidate nodes relative to the current
// ones.
type Axis int

const (
	// Child selects direct children.
	Child Axis = iota

	// Descendant selects all descendants (the "//" separator).
	Descendant
)

// StepKind distinguishes element steps from the terminal attribute
// and text steps.
type StepKind int

const (
	ElementStep StepKind = iota

	// AttrStep is "@name".  It must be the last step.
	AttrStep

	// TextStep is "text()".  It must be the last step.
	TextStep
)

// Pred is a predicate that qualifies a Step.
//
// Exactly one of the forms is used:
//
//	[@attr='value']  Attr and Value with HasValue
//	[@attr]          Attr only
//	[child='value']  Child and Value with HasValue
//	[2]              Index (1-based, like XPath)
type Pred struct {
	Attr     string `json:"attr,omitempty"`
	Child    string `json:"child,omitempty"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"hasValue,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// Step is one segment of a Path.
type Step struct {
	Axis  Axis     `json:"axis,omitempty"`
	Kind  StepKind `json:"kind,omitempty"`
	Name  string   `json:"name"`
	Preds []Pred   `json:"preds,omitempty"`
}

// Path addresses zero or more nodes in a document.
//
// Paths are anchored at the document: the first step is matched
// against the root element itself, so "a/b" and "/a/b" both select
// the "b" children of a root "a".  An empty path (or ".") selects the
// root.
type Path struct {
	Source string
	Steps  []Step
}

func (p *Path) String() string {
	return p.Source
}

// ParsePath parses either the slash syntax ("/a/b[@name='x']/c",
// "//entry", "a/@name", "a/b/text()") or the dotted shorthand
// ("a.b.c").
//
// The dotted shorthand is used only when the string has no '/', '['
// or '@'.
func ParsePath(s string) (*Path, error) {
	p := &Path{
		Source: s,
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "." {
		return p, nil
	}

	if !strings.ContainsAny(trimmed, "/[@") {
		for _, name := range strings.Split(trimmed, ".") {
			if name == "" {
				return nil, &BadPath{s, 0, "empty segment"}
			}
			p.Steps = append(p.Steps, Step{Name: name})
		}
		return p, nil
	}

	var (
		i    = 0
		axis = Child
	)
	if strings.HasPrefix(trimmed, "//") {
		axis = Descendant
		i = 2
	} else if strings.HasPrefix(trimmed, "/") {
		i = 1
	}

	for i < len(trimmed) {
		j, err := stepEnd(s, trimmed, i)
		if err != nil {
			return nil, err
		}
		step, err := parseStep(s, trimmed[i:j], i)
		if err != nil {
			return nil, err
		}
		step.Axis = axis

		if step.Name != "." {
			if 0 < len(p.Steps) && p.Steps[len(p.Steps)-1].Kind != ElementStep {
				return nil, &BadPath{s, i, "attribute or text step must be last"}
			}
			p.Steps = append(p.Steps, *step)
		}

		axis = Child
		i = j
		if i < len(trimmed) {
			// At a '/'.
			i++
			if i < len(trimmed) && trimmed[i] == '/' {
				axis = Descendant
				i++
			}
			if i == len(trimmed) {
				return nil, &BadPath{s, i, "trailing separator"}
			}
		}
	}

	return p, nil
}

// MustParsePath is ParsePath that panics.
func MustParsePath(s string) *Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// stepEnd finds the index of the '/' that ends the step starting at
// i, honoring brackets and quotes.
func stepEnd(src, s string, i int) (int, error) {
	var (
		depth int
		quote byte
	)
	for j := i; j < len(s); j++ {
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
			if depth < 0 {
				return 0, &BadPath{src, j, "unbalanced ']'"}
			}
		case c == '/' && depth == 0:
			if j == i {
				return 0, &BadPath{src, j, "empty step"}
			}
			return j, nil
		}
	}
	if quote != 0 {
		return 0, &BadPath{src, len(s), "unterminated quote"}
	}
	if depth != 0 {
		return 0, &BadPath{src, len(s), "unbalanced '['"}
	}
	return len(s), nil
}

func parseStep(src, s string, offset int) (*Step, error) {
	step := &Step{}

	name := s
	if k := strings.IndexByte(s, '['); 0 <= k {
		name = s[:k]
		rest := s[k:]
		for rest != "" {
			if rest[0] != '[' {
				return nil, &BadPath{src, offset, "expected '['"}
			}
			end := predEnd(rest)
			if end < 0 {
				return nil, &BadPath{src, offset, "unterminated predicate"}
			}
			pred, err := parsePred(rest[1:end])
			if err != nil {
				return nil, &BadPath{src, offset, err.Error()}
			}
			step.Preds = append(step.Preds, *pred)
			rest = rest[end+1:]
		}
	}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, &BadPath{src, offset, "missing name"}
	case name == "text()":
		step.Kind = TextStep
	case strings.HasPrefix(name, "@"):
		step.Kind = AttrStep
		name = name[1:]
		if name == "" {
			return nil, &BadPath{src, offset, "missing attribute name"}
		}
	}
	if step.Kind != ElementStep && 0 < len(step.Preds) {
		return nil, &BadPath{src, offset, "predicates only apply to elements"}
	}
	step.Name = name

	return step, nil
}

func predEnd(s string) int {
	var quote byte
	for j := 1; j < len(s); j++ {
		c := s[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ']':
			return j
		}
	}
	return -1
}

type predError string

func (e predError) Error() string {
	return string(e)
}

func parsePred(s string) (*Pred, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, predError("empty predicate")
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return nil, predError("index must be positive")
		}
		return &Pred{Index: n}, nil
	}

	lhs, rhs := s, ""
	hasValue := false
	if k := strings.IndexByte(s, '='); 0 <= k {
		lhs, rhs = strings.TrimSpace(s[:k]), strings.TrimSpace(s[k+1:])
		hasValue = true
		if len(rhs) < 2 || (rhs[0] != '\'' && rhs[0] != '"') || rhs[len(rhs)-1] != rhs[0] {
			return nil, predError("predicate value must be quoted")
		}
		rhs = rhs[1 : len(rhs)-1]
	}

	p := &Pred{
		Value:    rhs,
		HasValue: hasValue,
	}
	if strings.HasPrefix(lhs, "@") {
		p.Attr = lhs[1:]
		if p.Attr == "" {
			return nil, predError("missing attribute name")
		}
	} else {
		if !hasValue {
			return nil, predError("child predicate needs a value")
		}
		p.Child = lhs
	}
	return p, nil
}

func (p *Pred) holds(n *Node) bool {
	if p.Attr != "" {
		v, have := n.Attr(p.Attr)
		if !have {
			return false
		}
		return !p.HasValue || v == p.Value
	}
	for _, c := range n.Children {
		if c.Tag == p.Child && c.IsLeaf() && c.Text == p.Value {
			return true
		}
	}
	return false
}

func (s *Step) matches(n *Node) bool {
	return s.Name == "*" || s.Name == n.Tag
}

// candidates returns the nodes reached from n by the step's axis and
// name test, in document order, before predicates.
func (s *Step) candidates(n *Node) []*Node {
	var acc []*Node
	switch s.Axis {
	case Descendant:
		var walk func(*Node)
		walk = func(x *Node) {
			for _, c := range x.Children {
				if s.matches(c) {
					acc = append(acc, c)
				}
				walk(c)
			}
		}
		walk(n)
	default:
		for _, c := range n.Children {
			if s.matches(c) {
				acc = append(acc, c)
			}
		}
	}
	return acc
}

func (s *Step) filter(ns []*Node) []*Node {
	for _, p := range s.Preds {
		if 0 < p.Index {
			if p.Index <= len(ns) {
				ns = []*Node{ns[p.Index-1]}
			} else {
				ns = nil
			}
			continue
		}
		acc := make([]*Node, 0, len(ns))
		for _, n := range ns {
			if p.holds(n) {
				acc = append(acc, n)
			}
		}
		ns = acc
	}
	return ns
}

// order gives each node of the tree its preorder position.
func order(root *Node) map[*Node]int {
	acc := make(map[*Node]int)
	var walk func(*Node)
	walk = func(n *Node) {
		acc[n] = len(acc)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return acc
}

// Resolve returns the element nodes selected by the path's element
// steps, in document order and without duplicates.  A trailing
// attribute or text step is ignored here; see Texts.
//
// No match is not an error: the result is then empty.
func Resolve(root *Node, p *Path) []*Node {
	if root == nil {
		return nil
	}
	if p == nil || len(p.Steps) == 0 {
		return []*Node{root}
	}

	if p.Steps[0].Kind != ElementStep {
		return []*Node{root}
	}

	var positions map[*Node]int

	current := []*Node{{Children: []*Node{root}}}
	for _, step := range p.Steps {
		if step.Kind != ElementStep {
			break
		}
		var (
			next []*Node
			seen = make(map[*Node]bool)
		)
		for _, n := range current {
			for _, c := range step.filter(step.candidates(n)) {
				if !seen[c] {
					seen[c] = true
					next = append(next, c)
				}
			}
		}
		if 1 < len(current) {
			if positions == nil {
				positions = order(root)
			}
			sort.SliceStable(next, func(i, j int) bool {
				return positions[next[i]] < positions[next[j]]
			})
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}

	return current
}

// Texts resolves the path and returns the text for each selection:
// the attribute value for a trailing attribute step, the node text
// for a trailing "text()" step, and Node.Value otherwise.
func Texts(root *Node, p *Path) []string {
	ns := Resolve(root, p)
	if len(ns) == 0 {
		return nil
	}
	var last Step
	if p != nil && 0 < len(p.Steps) {
		last = p.Steps[len(p.Steps)-1]
	}
	acc := make([]string, 0, len(ns))
	for _, n := range ns {
		switch last.Kind {
		case AttrStep:
			if v, have := n.Attr(last.Name); have {
				acc = append(acc, v)
			}
		case TextStep:
			acc = append(acc, n.Text)
		default:
			acc = append(acc, n.Value())
		}
	}
	return acc
}

// Terminal reports the kind of the path's last step.
func (p *Path) Terminal() StepKind {
	if p == nil || len(p.Steps) == 0 {
		return ElementStep
	}
	return p.Steps[len(p.Steps)-1].Kind
}
