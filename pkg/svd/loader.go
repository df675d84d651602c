// Package svd loads CMSIS-SVD device descriptions into a normalized generic
// tree and groups their peripherals.
package svd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	xmlx "github.com/jteeuwen/go-pkg-xmlx"

	"github.com/OpenTraceLab/svdgen/pkg/svd/element"
)

// ConflictPolicy decides what happens when two non-derived peripherals of
// one group disagree on their layout.
type ConflictPolicy int

const (
	// ConflictError rejects the description.
	ConflictError ConflictPolicy = iota
	// ConflictFirst keeps the first peripheral in document order and records
	// the conflict on the Document.
	ConflictFirst
)

// ParseConflictPolicy maps "error" and "first" to a policy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(s) {
	case "", "error":
		return ConflictError, nil
	case "first":
		return ConflictFirst, nil
	}
	return 0, fmt.Errorf("svd: unknown group conflict policy %q", s)
}

func (p ConflictPolicy) String() string {
	if p == ConflictFirst {
		return "first"
	}
	return "error"
}

// Options tune loading.
type Options struct {
	GroupConflicts ConflictPolicy
}

// Load reads and normalizes the description at path.
func Load(path string, opts Options) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("svd: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, path)
	}

	x := xmlx.New()
	if err := x.LoadFile(path, nil); err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("svd: open %s: %w", path, err)
		}
		return nil, fmt.Errorf("%s: %w", path, malformedXML(err))
	}

	doc, err := fromXML(x, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse reads a description from r.
func Parse(r io.Reader, opts Options) (*Document, error) {
	x := xmlx.New()
	if err := x.LoadStream(r, nil); err != nil {
		return nil, malformedXML(err)
	}
	return fromXML(x, opts)
}

func malformedXML(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
}

func fromXML(x *xmlx.Document, opts Options) (*Document, error) {
	var top *xmlx.Node
	if x.Root != nil {
		for _, c := range x.Root.Children {
			if c.Type == xmlx.NT_ELEMENT {
				top = c
				break
			}
		}
	}
	if top == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	elem, err := convert(top)
	if err != nil {
		return nil, err
	}
	root, ok := elem.(*element.Node)
	if !ok {
		return nil, Malformed(KindMissingElement, "", "<%s> has no content", top.Name.Local)
	}
	if root.Tag != "device" {
		return nil, Malformed(KindMissingElement, "", "root element is <%s>, want <device>", root.Tag)
	}
	return newDocument(root, opts)
}

// convert walks the DOM post-order into the generic tree, applying the
// tag-specific normalization as each element is completed.
func convert(x *xmlx.Node) (element.Element, error) {
	var children []element.Child
	var text strings.Builder
	for _, c := range x.Children {
		switch c.Type {
		case xmlx.NT_ELEMENT:
			elem, err := convert(c)
			if err != nil {
				return nil, err
			}
			children = append(children, element.Child{Tag: c.Name.Local, Elem: elem})
		case xmlx.NT_TEXT:
			text.WriteString(c.Value)
		}
	}
	if text.Len() == 0 {
		text.WriteString(x.Value)
	}

	value := strings.TrimSpace(text.String())
	if len(children) == 0 {
		return element.Leaf(value), nil
	}

	node := element.NewNode(x.Name.Local)
	node.Text = value
	node.Children = children
	for _, a := range x.Attributes {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		node.SetAttr(a.Name.Local, a.Value)
	}
	if err := normalize(node); err != nil {
		return nil, err
	}
	return node, nil
}

func normalize(n *element.Node) error {
	switch n.Tag {
	case "field":
		return normalizeField(n)
	case "registers":
		keepEntries(n)
	case "cluster":
		nestEntries(n)
	}
	return nil
}

// normalizeField rewrites the three bit range conventions into
// bitOffset/bitWidth leaves.
func normalizeField(n *element.Node) error {
	name, _ := n.TextOf("name")

	conventions := 0
	var offset, width uint64
	var err error

	if n.Has("bitOffset") || n.Has("bitWidth") {
		conventions++
		o, okO := n.TextOf("bitOffset")
		w, okW := n.TextOf("bitWidth")
		if !okO || !okW {
			return Malformed(KindBitRange, name, "bitOffset and bitWidth must appear together")
		}
		if offset, err = ParseNumber(o); err != nil {
			return Malformed(KindNumber, name, "bitOffset %q", o)
		}
		if width, err = ParseNumber(w); err != nil {
			return Malformed(KindNumber, name, "bitWidth %q", w)
		}
	}
	if n.Has("lsb") || n.Has("msb") {
		conventions++
		l, okL := n.TextOf("lsb")
		m, okM := n.TextOf("msb")
		if !okL || !okM {
			return Malformed(KindBitRange, name, "lsb and msb must appear together")
		}
		if offset, width, err = msbLsb(m, l); err != nil {
			return withPath(err, name)
		}
	}
	if r, ok := n.TextOf("bitRange"); ok {
		conventions++
		if offset, width, err = ParseBitRange(r); err != nil {
			return withPath(err, name)
		}
	}

	if conventions != 1 {
		return Malformed(KindBitRange, name, "%d bit range encodings, want exactly one", conventions)
	}

	n.Remove("lsb", "msb", "bitRange")
	n.Set("bitOffset", element.Leaf(strconv.FormatUint(offset, 10)))
	n.Set("bitWidth", element.Leaf(strconv.FormatUint(width, 10)))
	return nil
}

// keepEntries reduces a registers node to its register and cluster children.
func keepEntries(n *element.Node) {
	var kept []element.Child
	for _, c := range n.Children {
		if c.Tag == "register" || c.Tag == "cluster" {
			kept = append(kept, c)
		}
	}
	n.Children = kept
}

// nestEntries moves the register and cluster children of a cluster into a
// registers child, the shape peripherals use.
func nestEntries(n *element.Node) {
	regs := element.NewNode("registers")
	var rest []element.Child
	for _, c := range n.Children {
		if c.Tag == "register" || c.Tag == "cluster" {
			regs.Children = append(regs.Children, c)
			continue
		}
		rest = append(rest, c)
	}
	n.Children = rest
	n.Append("registers", regs)
}

func withPath(err error, path string) error {
	var de *DescriptionError
	if errors.As(err, &de) && de.Path == "" {
		return &DescriptionError{Kind: de.Kind, Path: path, Msg: de.Msg}
	}
	return err
}
