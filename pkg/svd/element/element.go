// Package element holds the generic tree a hardware description is decoded
// into before any tag-specific interpretation happens.
package element

import (
	"sort"
	"strings"
)

// AttrPrefix marks attribute keys so they never collide with child tags.
const AttrPrefix = "@"

// Element is a node of the decoded description.
// It is either a Leaf holding text or a *Node holding attributes and children.
type Element interface {
	// IsLeaf returns true for text-only elements
	IsLeaf() bool

	// String returns an s-expression rendering of the element
	String() string
}

// alwaysList holds the tags that are sequences even with a single occurrence.
var alwaysList = map[string]bool{
	"fields":           true,
	"enumeratedValues": true,
	"registers":        true,
	"cluster":          true,
	"register":         true,
	"dimArrayIndex":    true,
}

// AlwaysList reports whether children tagged tag are always a sequence.
func AlwaysList(tag string) bool {
	return alwaysList[tag]
}

// Leaf is a childless element, reduced to its trimmed text.
type Leaf string

func (l Leaf) IsLeaf() bool   { return true }
func (l Leaf) String() string { return quote(string(l)) }

// Child is one tagged entry of a Node, in document order.
type Child struct {
	Tag  string
	Elem Element
}

// Node is an element with children.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []Child
}

// NewNode creates an empty node.
func NewNode(tag string) *Node {
	return &Node{Tag: tag, Attrs: make(map[string]string)}
}

func (n *Node) IsLeaf() bool { return false }

// String renders the node as (tag (@attr "v") (child ...) ...). Attributes are
// sorted, children keep document order.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	sb.WriteString("(")
	sb.WriteString(n.Tag)
	for _, key := range sortedKeys(n.Attrs) {
		sb.WriteString(" (")
		sb.WriteString(key)
		sb.WriteString(" ")
		sb.WriteString(quote(n.Attrs[key]))
		sb.WriteString(")")
	}
	for _, c := range n.Children {
		sb.WriteString(" ")
		switch e := c.Elem.(type) {
		case *Node:
			if e.Tag != c.Tag {
				// retagged child, keep the slot name visible
				sb.WriteString("(" + c.Tag + " ")
				e.write(sb)
				sb.WriteString(")")
				continue
			}
			e.write(sb)
		default:
			sb.WriteString("(" + c.Tag + " " + e.String() + ")")
		}
	}
	sb.WriteString(")")
}

// Attr returns the attribute name without its prefix.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.Attrs[AttrPrefix+name]
	return v, ok
}

// SetAttr stores an attribute under its prefixed key.
func (n *Node) SetAttr(name, value string) {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[AttrPrefix+name] = value
}

// Get returns the first child tagged tag.
func (n *Node) Get(tag string) (Element, bool) {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c.Elem, true
		}
	}
	return nil, false
}

// All returns every child tagged tag in document order.
func (n *Node) All(tag string) []Element {
	var out []Element
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c.Elem)
		}
	}
	return out
}

// Nodes returns the children tagged tag that are nodes.
func (n *Node) Nodes(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Tag != tag {
			continue
		}
		if node, ok := c.Elem.(*Node); ok {
			out = append(out, node)
		}
	}
	return out
}

// Child returns the first child node tagged tag.
func (n *Node) Child(tag string) (*Node, bool) {
	nodes := n.Nodes(tag)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

// TextOf returns the text of the first child tagged tag.
func (n *Node) TextOf(tag string) (string, bool) {
	e, ok := n.Get(tag)
	if !ok {
		return "", false
	}
	switch v := e.(type) {
	case Leaf:
		return string(v), true
	case *Node:
		return v.Text, true
	}
	return "", false
}

// Has reports whether any child is tagged tag.
func (n *Node) Has(tag string) bool {
	_, ok := n.Get(tag)
	return ok
}

// IsList reports whether the children tagged tag form a sequence.
func (n *Node) IsList(tag string) bool {
	return AlwaysList(tag) || len(n.All(tag)) > 1
}

// Tags returns the distinct child tags in order of first occurrence.
func (n *Node) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, c := range n.Children {
		if !seen[c.Tag] {
			seen[c.Tag] = true
			tags = append(tags, c.Tag)
		}
	}
	return tags
}

// Append adds a child at the end.
func (n *Node) Append(tag string, e Element) {
	n.Children = append(n.Children, Child{Tag: tag, Elem: e})
}

// Remove drops every child tagged with one of tags.
func (n *Node) Remove(tags ...string) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		drop := false
		for _, t := range tags {
			if c.Tag == t {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	n.Children = kept
}

// Set replaces the children tagged tag with a single child, keeping the
// position of the first one.
func (n *Node) Set(tag string, e Element) {
	for i, c := range n.Children {
		if c.Tag == tag {
			n.Children[i].Elem = e
			rest := n.Children[i+1:]
			kept := n.Children[:i+1]
			for _, r := range rest {
				if r.Tag != tag {
					kept = append(kept, r)
				}
			}
			n.Children = kept
			return
		}
	}
	n.Append(tag, e)
}

// Clone returns a copy of n with its own attribute map and child slice.
// Child elements are shared.
func (n *Node) Clone() *Node {
	c := &Node{
		Tag:      n.Tag,
		Attrs:    make(map[string]string, len(n.Attrs)),
		Text:     n.Text,
		Children: append([]Child(nil), n.Children...),
	}
	for k, v := range n.Attrs {
		c.Attrs[k] = v
	}
	return c
}

// ToMap converts e into plain maps, slices and strings: a Leaf becomes its
// text, a Node a map holding its prefixed attributes and one entry per child
// tag (a slice when IsList holds for that tag).
func ToMap(e Element) any {
	switch v := e.(type) {
	case Leaf:
		return string(v)
	case *Node:
		m := make(map[string]any, len(v.Attrs)+len(v.Children))
		for k, a := range v.Attrs {
			m[k] = a
		}
		if v.Text != "" {
			m["#text"] = v.Text
		}
		for _, tag := range v.Tags() {
			if v.IsList(tag) {
				var items []any
				for _, c := range v.All(tag) {
					items = append(items, ToMap(c))
				}
				m[tag] = items
				continue
			}
			first, _ := v.Get(tag)
			m[tag] = ToMap(first)
		}
		return m
	}
	return nil
}

func quote(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
