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
	"strconv"
)

// node is a parsed expression.
type node interface {
	eval(env *Env, ns Namespace) (interface{}, error)

	// names adds the free variables of the node to acc.
	names(acc map[string]bool)
}

type (
	literal struct {
		v interface{}
	}

	nameRef struct {
		name string
	}

	attrRef struct {
		x    node
		attr string
	}

	indexRef struct {
		x, index node
	}

	listLit struct {
		elems []node
	}

	mapLit struct {
		keys, vals []node
	}

	filterCall struct {
		x    node
		name string
		args []node
	}

	testCall struct {
		x      node
		name   string
		args   []node
		negate bool
	}

	unary struct {
		op string
		x  node
	}

	binary struct {
		op   string
		l, r node
	}

	conditional struct {
		then, test, alt node
	}
)

var keywords = map[string]bool{
	"and":   true,
	"or":    true,
	"not":   true,
	"in":    true,
	"is":    true,
	"if":    true,
	"else":  true,
	"true":  true,
	"false": true,
	"none":  true,
	"True":  true,
	"False": true,
	"None":  true,
	"null":  true,
}

type parser struct {
	env  *Env
	src  string
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tPunct && t.text == s
}

func (p *parser) isName(s string) bool {
	t := p.peek()
	return t.kind == tName && t.text == s
}

func (p *parser) errorf(t token, msg string) error {
	return &SyntaxError{p.src, t.pos, msg}
}

func (p *parser) expect(s string) error {
	if !p.isPunct(s) {
		t := p.peek()
		return p.errorf(t, "expected "+strconv.Quote(s)+" but found "+describe(t))
	}
	p.next()
	return nil
}

func describe(t token) string {
	if t.kind == tEOF {
		return "end of expression"
	}
	return strconv.Quote(t.text)
}

// parseExpression parses a whole expression and requires that all
// input is consumed.
func parseExpression(env *Env, src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{
		env:  env,
		src:  src,
		toks: toks,
	}
	if p.peek().kind == tEOF {
		return nil, p.errorf(p.peek(), "empty expression")
	}
	x, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tEOF {
		return nil, p.errorf(t, "unexpected "+describe(t))
	}
	return x, nil
}

func (p *parser) parseConditional() (node, error) {
	x, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.isName("if") {
		return x, nil
	}
	p.next()
	test, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	var alt node = &literal{nil}
	if p.isName("else") {
		p.next()
		if alt, err = p.parseConditional(); err != nil {
			return nil, err
		}
	}
	return &conditional{then: x, test: test, alt: alt}, nil
}

func (p *parser) parseOr() (node, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isName("or") {
		p.next()
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &binary{"or", x, y}
	}
	return x, nil
}

func (p *parser) parseAnd() (node, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isName("and") {
		p.next()
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &binary{"and", x, y}
	}
	return x, nil
}

func (p *parser) parseNot() (node, error) {
	if p.isName("not") {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unary{"not", x}, nil
	}
	return p.parseCompare()
}

var comparisons = map[string]bool{
	"==": true,
	"!=": true,
	"<":  true,
	"<=": true,
	">":  true,
	">=": true,
}

func (p *parser) parseCompare() (node, error) {
	x, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		t := p.peek()
		switch {
		case t.kind == tPunct && comparisons[t.text]:
			p.next()
			op = t.text
		case p.isName("in"):
			p.next()
			op = "in"
		case p.isName("not") && p.toks[p.i+1].kind == tName && p.toks[p.i+1].text == "in":
			p.next()
			p.next()
			op = "not in"
		default:
			return x, nil
		}
		y, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		x = &binary{op, x, y}
	}
}

func (p *parser) parseSum() (node, error) {
	x, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.next().text
		y, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		x = &binary{op, x, y}
	}
	return x, nil
}

func (p *parser) parseConcat() (node, error) {
	x, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.isPunct("~") {
		p.next()
		y, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		x = &binary{"~", x, y}
	}
	return x, nil
}

func (p *parser) parseProduct() (node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("//") || p.isPunct("%") {
		op := p.next().text
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &binary{op, x, y}
	}
	return x, nil
}

func (p *parser) parseUnary() (node, error) {
	switch {
	case p.isPunct("-"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unary{"-", x}, nil
	case p.isPunct("+"):
		p.next()
		return p.parseUnary()
	}
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(x)
}

func (p *parser) parsePostfix(x node) (node, error) {
	for {
		switch {
		case p.isPunct("."):
			p.next()
			t := p.next()
			if t.kind != tName && t.kind != tNumber {
				return nil, p.errorf(t, "expected attribute name after '.'")
			}
			x = &attrRef{x, t.text}
		case p.isPunct("["):
			p.next()
			index, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if err = p.expect("]"); err != nil {
				return nil, err
			}
			x = &indexRef{x, index}
		case p.isPunct("|"):
			p.next()
			t := p.next()
			if t.kind != tName {
				return nil, p.errorf(t, "expected filter name after '|'")
			}
			if _, have := p.env.Filters[t.text]; !have && t.text != "default" && t.text != "d" {
				return nil, &UnknownFilter{t.text}
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &filterCall{x, t.text, args}
		case p.isName("is"):
			p.next()
			negate := false
			if p.isName("not") {
				p.next()
				negate = true
			}
			t := p.next()
			if t.kind != tName {
				return nil, p.errorf(t, "expected test name after 'is'")
			}
			if _, have := p.env.Tests[t.text]; !have {
				return nil, &UnknownTest{t.text}
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &testCall{x, t.text, args, negate}
		case p.isPunct("("):
			return nil, p.errorf(p.peek(), "function calls are not supported; use a filter")
		default:
			return x, nil
		}
	}
}

// parseArgs parses an optional parenthesized argument list.
func (p *parser) parseArgs() ([]node, error) {
	if !p.isPunct("(") {
		return nil, nil
	}
	p.next()
	var args []node
	for !p.isPunct(")") {
		if 0 < len(args) {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		x, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		args = append(args, x)
	}
	p.next()
	return args, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "bad number "+t.text)
		}
		return &literal{f}, nil
	case tString:
		return &literal{t.str}, nil
	case tName:
		switch t.text {
		case "true", "True":
			return &literal{true}, nil
		case "false", "False":
			return &literal{false}, nil
		case "none", "None", "null":
			return &literal{nil}, nil
		}
		if keywords[t.text] {
			return nil, p.errorf(t, "unexpected keyword "+t.text)
		}
		return &nameRef{t.text}, nil
	case tPunct:
		switch t.text {
		case "(":
			x, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			if err = p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			l := &listLit{}
			for !p.isPunct("]") {
				if 0 < len(l.elems) {
					if err := p.expect(","); err != nil {
						return nil, err
					}
					if p.isPunct("]") {
						break
					}
				}
				x, err := p.parseConditional()
				if err != nil {
					return nil, err
				}
				l.elems = append(l.elems, x)
			}
			p.next()
			return l, nil
		case "{":
			m := &mapLit{}
			for !p.isPunct("}") {
				if 0 < len(m.keys) {
					if err := p.expect(","); err != nil {
						return nil, err
					}
				}
				k, err := p.parseConditional()
				if err != nil {
					return nil, err
				}
				if err = p.expect(":"); err != nil {
					return nil, err
				}
				v, err := p.parseConditional()
				if err != nil {
					return nil, err
				}
				m.keys = append(m.keys, k)
				m.vals = append(m.vals, v)
			}
			p.next()
			return m, nil
		}
	}
	return nil, p.errorf(t, "unexpected "+describe(t))
}
