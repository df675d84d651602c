package svd

import (
	"strings"

	"github.com/OpenTraceLab/svdgen/pkg/svd/element"
)

// Document is a loaded description: the normalized tree, its peripherals
// indexed by lowercased name, and the peripheral groups derived from
// groupName and derivedFrom.
type Document struct {
	Path string
	Root *element.Node

	// Peripherals maps lowercased peripheral names to their nodes.
	Peripherals map[string]*element.Node
	// Order lists the lowercased peripheral names in document order.
	Order []string

	// Groups lists the materialized groups in order of first appearance.
	Groups []*Group
	groups map[string]*Group

	// Conflicts collects the group members ignored under ConflictFirst.
	Conflicts []Conflict
}

// Group is one peripheral group before model building.
type Group struct {
	Name string

	// Template is a copy of the first non-derived member with its name
	// replaced by the group name.
	Template *element.Node

	// Instances holds every concrete member, derived or not, in the order
	// they were grouped.
	Instances []*element.Node
}

// Conflict records a group member whose layout differed from the template.
type Conflict struct {
	Group   string
	Kept    string
	Ignored string
}

// Group returns the group with the given name, case-insensitively.
func (d *Document) Group(name string) (*Group, bool) {
	g, ok := d.groups[strings.ToLower(name)]
	return g, ok
}

// PeripheralNames returns the peripheral names as written, in document order.
func (d *Document) PeripheralNames() []string {
	names := make([]string, 0, len(d.Order))
	for _, key := range d.Order {
		name, _ := d.Peripherals[key].TextOf("name")
		names = append(names, name)
	}
	return names
}

func newDocument(root *element.Node, opts Options) (*Document, error) {
	doc := &Document{
		Root:        root,
		Peripherals: make(map[string]*element.Node),
		groups:      make(map[string]*Group),
	}

	if periphs, ok := root.Child("peripherals"); ok {
		for _, p := range periphs.Nodes("peripheral") {
			name, ok := p.TextOf("name")
			if !ok || name == "" {
				return nil, Malformed(KindMissingElement, "", "peripheral without a name")
			}
			key := strings.ToLower(name)
			if _, dup := doc.Peripherals[key]; dup {
				continue
			}
			doc.Peripherals[key] = p
			doc.Order = append(doc.Order, key)
		}
	}

	if err := doc.groupTemplates(opts); err != nil {
		return nil, err
	}
	if err := doc.groupDerived(opts); err != nil {
		return nil, err
	}
	return doc, nil
}

// groupTemplates handles every peripheral without derivedFrom that names a
// group. The first one in document order defines the group.
func (d *Document) groupTemplates(opts Options) error {
	for _, key := range d.Order {
		p := d.Peripherals[key]
		if _, derived := p.Attr("derivedFrom"); derived {
			continue
		}
		groupName, ok := p.TextOf("groupName")
		if !ok || groupName == "" {
			continue
		}

		gkey := strings.ToLower(groupName)
		g, exists := d.groups[gkey]
		if !exists {
			tmpl := p.Clone()
			tmpl.Set("name", element.Leaf(groupName))
			g = &Group{Name: groupName, Template: tmpl}
			d.groups[gkey] = g
			d.Groups = append(d.Groups, g)
		} else if !sameLayout(g.Instances[0], p) {
			kept, _ := g.Instances[0].TextOf("name")
			name, _ := p.TextOf("name")
			if opts.GroupConflicts == ConflictError {
				return Malformed(KindGroupConflict, groupName,
					"%s and %s share the group but not the register layout", kept, name)
			}
			d.Conflicts = append(d.Conflicts, Conflict{Group: groupName, Kept: kept, Ignored: name})
		}
		g.Instances = append(g.Instances, p)
	}
	return nil
}

// groupDerived places every derived peripheral in its source's group. A
// derived peripheral that redeclares registers or addressBlock differently
// from the group falls under the conflict policy.
func (d *Document) groupDerived(opts Options) error {
	for _, key := range d.Order {
		p := d.Peripherals[key]
		if _, derived := p.Attr("derivedFrom"); !derived {
			continue
		}
		g, err := d.sourceGroup(p, make(map[string]bool))
		if err != nil {
			return err
		}
		if !overridesMatch(g.Instances[0], p) {
			kept, _ := g.Instances[0].TextOf("name")
			name, _ := p.TextOf("name")
			if opts.GroupConflicts == ConflictError {
				return Malformed(KindGroupConflict, g.Name,
					"%s derives from the group but overrides its register layout", name)
			}
			d.Conflicts = append(d.Conflicts, Conflict{Group: g.Name, Kept: kept, Ignored: name})
		}
		g.Instances = append(g.Instances, p)
	}
	return nil
}

// sourceGroup follows derivedFrom until it reaches a peripheral with a
// group.
func (d *Document) sourceGroup(p *element.Node, seen map[string]bool) (*Group, error) {
	name, _ := p.TextOf("name")
	from, _ := p.Attr("derivedFrom")
	key := strings.ToLower(from)
	if seen[key] {
		return nil, Malformed(KindDerivation, name, "derivation cycle through %s", from)
	}
	seen[key] = true

	src, ok := d.Peripherals[key]
	if !ok {
		return nil, Malformed(KindDerivation, name, "source peripheral %s not found", from)
	}
	if _, derived := src.Attr("derivedFrom"); derived {
		return d.sourceGroup(src, seen)
	}
	groupName, ok := src.TextOf("groupName")
	if !ok || groupName == "" {
		return nil, Malformed(KindDerivation, name, "source peripheral %s has no groupName", from)
	}
	g, ok := d.groups[strings.ToLower(groupName)]
	if !ok {
		return nil, Malformed(KindDerivation, name, "group %s of %s was not materialized", groupName, from)
	}
	return g, nil
}

func sameLayout(a, b *element.Node) bool {
	for _, tag := range []string{"registers", "addressBlock"} {
		ea, okA := a.Get(tag)
		eb, okB := b.Get(tag)
		if okA != okB {
			return false
		}
		if okA && ea.String() != eb.String() {
			return false
		}
	}
	return true
}

// overridesMatch reports whether the layout elements a derived peripheral
// declares equal those of the group it joins. Elements it omits are
// inherited and never conflict.
func overridesMatch(src, derived *element.Node) bool {
	for _, tag := range []string{"registers", "addressBlock"} {
		ed, ok := derived.Get(tag)
		if !ok {
			continue
		}
		es, ok := src.Get(tag)
		if !ok || es.String() != ed.String() {
			return false
		}
	}
	return true
}
