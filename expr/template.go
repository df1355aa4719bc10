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
	"strings"
)

// Template is a parsed template.
type Template struct {
	Source string

	env  *Env
	body []tnode
}

type tnode interface {
	render(t *Template, b *strings.Builder, ns Namespace) error
	names(acc map[string]bool)
}

type (
	textNode struct {
		text string
	}

	outputNode struct {
		x node
	}

	ifNode struct {
		conds  []node
		bodies [][]tnode
		alt    []tnode
	}

	forNode struct {
		key, value string
		iter       node
		body, alt  []tnode
	}
)

// piece is a lexical chunk of a template: text or the inside of a
// delimiter pair.
type piece struct {
	kind     byte // 't', '{' (output), '%' (statement)
	text     string
	pos      int
	trimPre  bool
	trimPost bool
}

func scanTemplate(src string) ([]piece, error) {
	var (
		acc []piece
		i   = 0
	)
	for i < len(src) {
		j := nextOpen(src, i)
		if j < 0 {
			acc = append(acc, piece{kind: 't', text: src[i:], pos: i})
			break
		}
		if i < j {
			acc = append(acc, piece{kind: 't', text: src[i:j], pos: i})
		}

		open := src[j+1]
		var close string
		switch open {
		case '{':
			close = "}}"
		case '%':
			close = "%}"
		default:
			close = "#}"
		}

		start := j + 2
		p := piece{kind: open, pos: j}
		if start < len(src) && src[start] == '-' {
			p.trimPre = true
			start++
		}
		end := findClose(src, start, close, open != '#')
		if end < 0 {
			return nil, &SyntaxError{src, j, "unclosed " + src[j:j+2]}
		}
		inner := src[start:end]
		if strings.HasSuffix(inner, "-") {
			p.trimPost = true
			inner = inner[:len(inner)-1]
		}
		p.text = strings.TrimSpace(inner)
		i = end + 2

		if open == '#' {
			// Comments only contribute their trimming.
			p.kind = 't'
			p.text = ""
		}
		acc = append(acc, p)
	}

	for k := range acc {
		if acc[k].trimPre && 0 < k && acc[k-1].kind == 't' {
			acc[k-1].text = strings.TrimRight(acc[k-1].text, " \t\r\n")
		}
		if acc[k].trimPost && k+1 < len(acc) && acc[k+1].kind == 't' {
			acc[k+1].text = strings.TrimLeft(acc[k+1].text, " \t\r\n")
		}
	}

	return acc, nil
}

func nextOpen(src string, i int) int {
	for {
		k := strings.IndexByte(src[i:], '{')
		if k < 0 || i+k+1 >= len(src) {
			return -1
		}
		j := i + k
		switch src[j+1] {
		case '{', '%', '#':
			return j
		}
		i = j + 1
	}
}

// findClose finds the closing delimiter, skipping quoted strings when
// quotes is true.
func findClose(src string, i int, close string, quotes bool) int {
	var quote byte
	for j := i; j+1 < len(src); j++ {
		c := src[j]
		if quote != 0 {
			if c == '\\' {
				j++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		if quotes && (c == '\'' || c == '"') {
			quote = c
			continue
		}
		if src[j:j+2] == close {
			return j
		}
	}
	return -1
}

type templateParser struct {
	env    *Env
	src    string
	pieces []piece
	i      int
}

// ParseTemplate parses a template.  Expressions are compiled here, so
// unknown filters and syntax errors are reported before any
// rendering.
func (e *Env) ParseTemplate(src string) (*Template, error) {
	pieces, err := scanTemplate(src)
	if err != nil {
		return nil, err
	}
	p := &templateParser{
		env:    e,
		src:    src,
		pieces: pieces,
	}
	body, stop, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if stop != "" {
		return nil, &SyntaxError{src, p.pieces[p.i-1].pos, "unexpected " + stop}
	}
	return &Template{
		Source: src,
		env:    e,
		body:   body,
	}, nil
}

// MustParseTemplate is ParseTemplate that panics.
func (e *Env) MustParseTemplate(src string) *Template {
	t, err := e.ParseTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

func keyword(stmt string) (string, string) {
	stmt = strings.TrimSpace(stmt)
	if k := strings.IndexAny(stmt, " \t\r\n"); 0 <= k {
		return stmt[:k], strings.TrimSpace(stmt[k:])
	}
	return stmt, ""
}

// parseBody parses pieces until the end of input or a statement that
// closes a block ("elif", "else", "endif", "endfor"), which it
// returns.
func (p *templateParser) parseBody() ([]tnode, string, error) {
	var acc []tnode
	for p.i < len(p.pieces) {
		pc := p.pieces[p.i]
		p.i++
		switch pc.kind {
		case 't':
			if pc.text != "" {
				acc = append(acc, &textNode{pc.text})
			}
		case '{':
			x, err := parseExpression(p.env, pc.text)
			if err != nil {
				return nil, "", err
			}
			acc = append(acc, &outputNode{x})
		case '%':
			kw, rest := keyword(pc.text)
			switch kw {
			case "if":
				n, err := p.parseIf(rest)
				if err != nil {
					return nil, "", err
				}
				acc = append(acc, n)
			case "for":
				n, err := p.parseFor(pc, rest)
				if err != nil {
					return nil, "", err
				}
				acc = append(acc, n)
			case "elif", "else", "endif", "endfor":
				return acc, pc.text, nil
			default:
				return nil, "", &SyntaxError{p.src, pc.pos, "unsupported statement " + kw}
			}
		}
	}
	return acc, "", nil
}

func (p *templateParser) parseIf(cond string) (tnode, error) {
	n := &ifNode{}
	for {
		x, err := parseExpression(p.env, cond)
		if err != nil {
			return nil, err
		}
		body, stop, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		n.conds = append(n.conds, x)
		n.bodies = append(n.bodies, body)

		kw, rest := keyword(stop)
		switch kw {
		case "elif":
			cond = rest
			continue
		case "else":
			alt, stop, err := p.parseBody()
			if err != nil {
				return nil, err
			}
			if stop != "endif" {
				return nil, &SyntaxError{p.src, len(p.src), "expected endif"}
			}
			n.alt = alt
			return n, nil
		case "endif":
			return n, nil
		default:
			return nil, &SyntaxError{p.src, len(p.src), "expected endif"}
		}
	}
}

func (p *templateParser) parseFor(pc piece, spec string) (tnode, error) {
	k := strings.Index(spec, " in ")
	if k < 0 {
		return nil, &SyntaxError{p.src, pc.pos, "expected 'for x in ...'"}
	}
	n := &forNode{}
	vars := strings.Split(spec[:k], ",")
	switch len(vars) {
	case 1:
		n.value = strings.TrimSpace(vars[0])
	case 2:
		n.key = strings.TrimSpace(vars[0])
		n.value = strings.TrimSpace(vars[1])
	default:
		return nil, &SyntaxError{p.src, pc.pos, "too many loop variables"}
	}
	iter, err := parseExpression(p.env, spec[k+4:])
	if err != nil {
		return nil, err
	}
	n.iter = iter

	body, stop, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	n.body = body
	if stop == "else" {
		if n.alt, stop, err = p.parseBody(); err != nil {
			return nil, err
		}
	}
	if stop != "endfor" {
		return nil, &SyntaxError{p.src, pc.pos, "expected endfor"}
	}
	return n, nil
}

// Render renders the template.
func (t *Template) Render(ns Namespace) (string, error) {
	if ns == nil {
		ns = Vars{}
	}
	var b strings.Builder
	if err := renderAll(t, &b, ns, t.body); err != nil {
		return "", err
	}
	return b.String(), nil
}

// IsStatic reports whether the template has no expressions or
// statements.
func (t *Template) IsStatic() bool {
	for _, n := range t.body {
		if _, is := n.(*textNode); !is {
			return false
		}
	}
	return true
}

// Variables returns the sorted free variables of the template.
func (t *Template) Variables() []string {
	acc := make(map[string]bool)
	for _, n := range t.body {
		n.names(acc)
	}
	return sortedSet(acc)
}

func renderAll(t *Template, b *strings.Builder, ns Namespace, body []tnode) error {
	for _, n := range body {
		if err := n.render(t, b, ns); err != nil {
			return err
		}
	}
	return nil
}

func (n *textNode) render(t *Template, b *strings.Builder, ns Namespace) error {
	b.WriteString(n.text)
	return nil
}

func (n *textNode) names(acc map[string]bool) {}

func (n *outputNode) render(t *Template, b *strings.Builder, ns Namespace) error {
	v, err := n.x.eval(t.env, ns)
	if err != nil {
		return err
	}
	if err = defined(v); err != nil {
		return err
	}
	b.WriteString(Stringify(v))
	return nil
}

func (n *outputNode) names(acc map[string]bool) {
	n.x.names(acc)
}

func (n *ifNode) render(t *Template, b *strings.Builder, ns Namespace) error {
	for i, cond := range n.conds {
		v, err := cond.eval(t.env, ns)
		if err != nil {
			return err
		}
		if err = defined(v); err != nil {
			return err
		}
		if Truthy(v) {
			return renderAll(t, b, ns, n.bodies[i])
		}
	}
	return renderAll(t, b, ns, n.alt)
}

func (n *ifNode) names(acc map[string]bool) {
	for i, cond := range n.conds {
		cond.names(acc)
		for _, x := range n.bodies[i] {
			x.names(acc)
		}
	}
	for _, x := range n.alt {
		x.names(acc)
	}
}

func (n *forNode) render(t *Template, b *strings.Builder, ns Namespace) error {
	v, err := n.iter.eval(t.env, ns)
	if err != nil {
		return err
	}
	if err = defined(v); err != nil {
		return err
	}

	var keys, values []interface{}
	if xs, is := AsList(v); is {
		values = xs
	} else if m, is := AsMap(v); is {
		for _, k := range SortedKeys(m) {
			keys = append(keys, k)
			values = append(values, m[k])
		}
		if n.key == "" {
			// Iterating a mapping with one variable gives keys.
			values, keys = keys, nil
		}
	} else if v != nil {
		return &TypeError{"for", "can't iterate", []interface{}{v}}
	}

	if len(values) == 0 {
		return renderAll(t, b, ns, n.alt)
	}

	for i, x := range values {
		inner := Bind(ns, "loop", map[string]interface{}{
			"index":  float64(i + 1),
			"index0": float64(i),
			"first":  i == 0,
			"last":   i == len(values)-1,
			"length": float64(len(values)),
		})
		if n.key != "" {
			var k interface{} = float64(i)
			if keys != nil {
				k = keys[i]
			}
			inner = Bind(inner, n.key, k)
		}
		inner = Bind(inner, n.value, x)
		if err := renderAll(t, b, inner, n.body); err != nil {
			return err
		}
	}
	return nil
}

func (n *forNode) names(acc map[string]bool) {
	n.iter.names(acc)
	inner := make(map[string]bool)
	for _, x := range n.body {
		x.names(inner)
	}
	delete(inner, n.value)
	delete(inner, n.key)
	delete(inner, "loop")
	for name := range inner {
		acc[name] = true
	}
	for _, x := range n.alt {
		x.names(acc)
	}
}
