// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/sjson"
)

// Attribute names carrying the outcome of a (sub-)command
const (
	StatusAttr  = "STATUS"
	MessageAttr = "MESSAGE"
)

// Attr is a single XML attribute
type Attr struct {
	Name  string
	Value string
}

// Node is a decoded XML element
//
// The root returned by Decode is a document node with an empty Tag whose
// children are the top-level elements of the response. All values are
// kept as strings.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// Attr returns the value of the named attribute and whether it is present
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Walk visits n and its descendants in document order until fn returns false
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first element with the given tag in document order
func (n *Node) Find(tag string) *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if node.Tag == tag {
			found = node
			return false
		}
		return true
	})
	return found
}

// FindAttr returns the value of the first occurrence of the named attribute
// in document order
func (n *Node) FindAttr(name string) (string, bool) {
	var value string
	var ok bool
	n.Walk(func(node *Node) bool {
		value, ok = node.Attr(name)
		return !ok
	})
	return value, ok
}

// Decode parses a raw response into a document node and checks every
// STATUS attribute
//
// Malformed XML fails with ParseError carrying the parser's message. The
// first node in document order whose STATUS is not zero fails with
// RemoteError carrying its MESSAGE.
func Decode(raw []byte) (*Node, error) {
	root, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(root); err != nil {
		return nil, err
	}
	return root, nil
}

// parseDocument builds the node tree without interpreting it
func parseDocument(raw []byte) (*Node, *IloError) {
	root := &Node{}
	stack := []*Node{root}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newError("", ParseError, err.Error(), err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Tag: qualifiedName(t.Name)}
			for _, a := range t.Attr {
				node.Attrs = append(node.Attrs, Attr{Name: qualifiedName(a.Name), Value: a.Value})
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 1 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if len(root.Children) == 0 {
		return nil, newError("", ParseError, "response contains no XML elements", nil)
	}
	root.Walk(func(n *Node) bool {
		n.Text = strings.TrimSpace(n.Text)
		return true
	})
	return root, nil
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// checkStatus returns a RemoteError for the first failing STATUS in document order
func checkStatus(root *Node) *IloError {
	var failed *IloError
	root.Walk(func(n *Node) bool {
		status, ok := n.Attr(StatusAttr)
		if !ok || isSuccessStatus(status) {
			return true
		}
		msg, ok := n.Attr(MessageAttr)
		if !ok || strings.TrimSpace(msg) == "" {
			msg = fmt.Sprintf("status %s", status)
		}
		failed = &IloError{
			Kind:        RemoteError,
			Message:     strings.TrimSpace(msg),
			Status:      status,
			InternalMsg: fmt.Sprintf("element %s reported STATUS=%s", n.Tag, status),
		}
		return false
	})
	return failed
}

// isSuccessStatus reports whether status is the success sentinel (0, 0x0000)
func isSuccessStatus(status string) bool {
	code, err := strconv.ParseUint(strings.TrimSpace(status), 0, 32)
	return err == nil && code == 0
}

// XML serializes the node back to XML. A document node serializes its
// children one after another.
func (n *Node) XML() string {
	var b strings.Builder
	n.writeXML(&b)
	return b.String()
}

func (n *Node) writeXML(b *strings.Builder) {
	if n.Tag == "" {
		for _, child := range n.Children {
			child.writeXML(b)
		}
		return
	}

	b.WriteString("<")
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		writeAttr(b, a.Name, a.Value)
	}
	if len(n.Children) == 0 && n.Text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")
	// strings.Builder writes never fail
	_ = xml.EscapeText(b, []byte(n.Text))
	for _, child := range n.Children {
		child.writeXML(b)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteString(">")
}

// TextKey holds element text in the JSON view
const TextKey = "_text"

// JSON returns a JSON view of the node suitable for gjson queries
//
// Attributes become string fields, child elements become nested objects
// keyed by tag, and repeated tags become arrays. A document node merges the
// children of its top-level elements, so the RIBCL wrappers of several
// concatenated reply documents disappear.
//
// Example:
//
//	<RIBCL VERSION="2.23"><RESPONSE STATUS="0x0000" MESSAGE="No error"/></RIBCL>
//	<RIBCL VERSION="2.23"><GET_NETWORK_SETTINGS><IP_ADDRESS VALUE="10.0.0.5"/></GET_NETWORK_SETTINGS></RIBCL>
//
// becomes
//
//	{"RESPONSE":[{"STATUS":"0x0000","MESSAGE":"No error"}],
//	 "GET_NETWORK_SETTINGS":{"IP_ADDRESS":{"VALUE":"10.0.0.5"}}}
//
// with RESPONSE an array only when it occurs more than once.
func (n *Node) JSON() (string, error) {
	if n == nil {
		return "", nil
	}
	if n.Tag == "" {
		var merged []*Node
		for _, top := range n.Children {
			merged = append(merged, top.Children...)
		}
		return childrenJSON("{}", merged)
	}
	body, err := n.objectJSON()
	if err != nil {
		return "", err
	}
	return sjson.SetRaw("{}", escapePath(n.Tag), body)
}

// objectJSON renders the element's attributes, text and children as an object
func (n *Node) objectJSON() (string, error) {
	var err error
	obj := "{}"
	for _, a := range n.Attrs {
		if obj, err = sjson.Set(obj, escapePath(a.Name), a.Value); err != nil {
			return "", err
		}
	}
	if n.Text != "" {
		if obj, err = sjson.Set(obj, TextKey, n.Text); err != nil {
			return "", err
		}
	}
	return childrenJSON(obj, n.Children)
}

func childrenJSON(obj string, children []*Node) (string, error) {
	counts := make(map[string]int, len(children))
	for _, child := range children {
		counts[child.Tag]++
	}
	for _, child := range children {
		body, err := child.objectJSON()
		if err != nil {
			return "", err
		}
		path := escapePath(child.Tag)
		if counts[child.Tag] > 1 {
			path += ".-1"
		}
		if obj, err = sjson.SetRaw(obj, path, body); err != nil {
			return "", err
		}
	}
	return obj, nil
}

// escapePath escapes gjson/sjson path metacharacters in a key
func escapePath(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
	return b.String()
}
