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

// Package document provides a small, immutable tree model for
// structured markup (XML configuration documents in practice).
//
// A document is parsed once into Nodes.  Nodes can be addressed with
// Paths, and they can be converted to a tree of primitives
// (map[string]interface{}, []interface{}, string, nil) that filters
// and JSON-style inspection operate against.
package document

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Attr is a single attribute of a Node.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is an element of a parsed document.
//
// A Node is either a leaf, which has Text and no Children, or a
// container, which has Children.  Whitespace between child elements
// is discarded.  When a container also has non-whitespace character
// data (mixed content), that data is kept in Text and is exposed as
// "#text" by ToPrimitive.
type Node struct {
	Tag      string  `json:"tag"`
	Attrs    []Attr  `json:"attrs,omitempty"`
	Children []*Node `json:"children,omitempty"`
	Text     string  `json:"text,omitempty"`
}

// IsLeaf reports whether the node has no child elements.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Value returns the text of a leaf node.  For a container, Value
// returns the node's tag, which is what an XPath-style text query of
// a container returned historically.
func (n *Node) Value() string {
	if n.IsLeaf() {
		return n.Text
	}
	return n.Tag
}

// String renders the node back to markup.
func (n *Node) String() string {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.String()
}

func (n *Node) write(buf *bytes.Buffer) {
	buf.WriteString("<" + n.Tag)
	for _, a := range n.Attrs {
		buf.WriteString(" " + a.Name + `="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteString(`"`)
	}
	if n.IsLeaf() && n.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(n.Text))
	for _, c := range n.Children {
		c.write(buf)
	}
	buf.WriteString("</" + n.Tag + ">")
}

// Parse parses raw markup into a Node.
//
// Any markup that is not a single well-formed element (optionally
// preceded by a declaration, comments, or processing instructions)
// results in a *MalformedDocumentError.
func Parse(raw string) (*Node, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &MalformedDocumentError{Reason: "empty document"}
	}

	d := xml.NewDecoder(strings.NewReader(raw))
	d.Strict = true

	var (
		root  *Node
		stack []*Node
		texts []*strings.Builder
	)

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedDocumentError{Reason: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, &MalformedDocumentError{Reason: "multiple root elements"}
			}
			n := &Node{
				Tag: name(t.Name),
			}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{
					Name:  name(a.Name),
					Value: a.Value,
				})
			}
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			texts = append(texts, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			text := texts[len(texts)-1].String()
			n.Text = strings.TrimSpace(text)
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, &MalformedDocumentError{Reason: "text outside of root element"}
				}
				continue
			}
			texts[len(texts)-1].Write(t)
		}
	}

	if root == nil {
		return nil, &MalformedDocumentError{Reason: "no root element"}
	}

	return root, nil
}

// MustParse is Parse that panics on error.  Handy in tests.
func MustParse(raw string) *Node {
	n, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return n
}

func name(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
