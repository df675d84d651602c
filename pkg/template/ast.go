// Package template implements the marker language the generator templates
// are written in.
//
// A template is literal text with four kinds of markers:
//
//	/*% name %*/            scalar, replaced by a caller-supplied value
//	/*! name --->  ...  !*/   block, rendered once per row of name
//	%name% or %name:fmt%    row field, inside a block
//	#file#                  include of a sibling template, inside a block
//
// Block start and end markers occupy whole lines. A format directive is
// [[fill]align][sign][#][0][width][verb], as in "#010x", "<15" or "03b".
package template

import "sort"

// Node is an element of a parsed template.
type Node interface {
	node()
}

// Text is a literal run, copied verbatim.
type Text struct {
	Value string
}

// Field is a scalar marker or, inside a block, a row field.
type Field struct {
	Name   string
	Format string
	Scalar bool
	Line   int
}

// Block repeats Body once per row.
type Block struct {
	Name   string
	Indent string
	Body   []Node
	Line   int
}

// Include renders a sibling template with the current row as its data.
type Include struct {
	Name string
	Line int
}

func (*Text) node()    {}
func (*Field) node()   {}
func (*Block) node()   {}
func (*Include) node() {}

// Template is a parsed template.
type Template struct {
	Name  string
	Nodes []Node
}

// Fields returns the scalar names the template requires, sorted.
func (t *Template) Fields() []string {
	set := make(map[string]bool)
	walk(t.Nodes, func(n Node) {
		if f, ok := n.(*Field); ok && f.Scalar {
			set[f.Name] = true
		}
	})
	return sorted(set)
}

// Blocks returns every block name at any depth, sorted.
func (t *Template) Blocks() []string {
	set := make(map[string]bool)
	walk(t.Nodes, func(n Node) {
		if b, ok := n.(*Block); ok {
			set[b.Name] = true
		}
	})
	return sorted(set)
}

// BlockFields returns the row fields used directly in the named block,
// sorted.
func (t *Template) BlockFields(name string) []string {
	set := make(map[string]bool)
	walk(t.Nodes, func(n Node) {
		b, ok := n.(*Block)
		if !ok || b.Name != name {
			return
		}
		for _, child := range b.Body {
			if f, ok := child.(*Field); ok && !f.Scalar {
				set[f.Name] = true
			}
		}
	})
	return sorted(set)
}

// Includes returns the included template names, sorted.
func (t *Template) Includes() []string {
	set := make(map[string]bool)
	walk(t.Nodes, func(n Node) {
		if inc, ok := n.(*Include); ok {
			set[inc.Name] = true
		}
	})
	return sorted(set)
}

func walk(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		fn(n)
		if b, ok := n.(*Block); ok {
			walk(b.Body, fn)
		}
	}
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
