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

type tokenKind int

const (
	tEOF tokenKind = iota
	tName
	tNumber
	tString
	tPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int

	// str is the decoded value of a tString.
	str string
}

var puncts = []string{
	"==", "!=", "<=", ">=", "//", "**",
	"<", ">", "+", "-", "*", "/", "%", "~", "|",
	"(", ")", "[", "]", "{", "}", ",", ".", ":",
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func lex(src string) ([]token, error) {
	var (
		acc []token
		i   = 0
	)
	for {
		for i < len(src) && strings.IndexByte(" \t\r\n", src[i]) >= 0 {
			i++
		}
		if i == len(src) {
			acc = append(acc, token{kind: tEOF, pos: i})
			return acc, nil
		}
		c := src[i]
		start := i
		switch {
		case isNameStart(c):
			for i < len(src) && isNamePart(src[i]) {
				i++
			}
			acc = append(acc, token{kind: tName, text: src[start:i], pos: start})
		case isDigit(c):
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			acc = append(acc, token{kind: tNumber, text: src[start:i], pos: start})
		case c == '\'' || c == '"':
			s, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			i = n
			acc = append(acc, token{kind: tString, text: src[start:i], str: s, pos: start})
		default:
			matched := false
			for _, p := range puncts {
				if strings.HasPrefix(src[i:], p) {
					acc = append(acc, token{kind: tPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, &SyntaxError{src, i, "unexpected character " + string(c)}
			}
		}
	}
}

func lexString(src string, i int) (string, int, error) {
	var (
		quote = src[i]
		b     strings.Builder
	)
	for j := i + 1; j < len(src); j++ {
		c := src[j]
		switch c {
		case quote:
			return b.String(), j + 1, nil
		case '\\':
			j++
			if j == len(src) {
				return "", 0, &SyntaxError{src, i, "unterminated string"}
			}
			switch src[j] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(src[j])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, &SyntaxError{src, i, "unterminated string"}
}
