package svd

import (
	"github.com/OpenTraceLab/svdgen/pkg/svd/element"
)

// The Raw* types are typed views over the generic tree. Values stay as text;
// numeric interpretation and validation belong to the model builder.

// RegisterProps is the inheritable register-properties group.
type RegisterProps struct {
	Size       string
	Access     string
	ResetValue string
}

// Inherit fills empty properties from parent.
func (p RegisterProps) Inherit(parent RegisterProps) RegisterProps {
	if p.Size == "" {
		p.Size = parent.Size
	}
	if p.Access == "" {
		p.Access = parent.Access
	}
	if p.ResetValue == "" {
		p.ResetValue = parent.ResetValue
	}
	return p
}

type RawDevice struct {
	Name        string
	Description string
	Vendor      string
	Version     string
	Props       RegisterProps
}

type RawAddressBlock struct {
	Offset string
	Size   string
	Usage  string
}

type RawInterrupt struct {
	Name        string
	Description string
	Value       string
}

type RawPeripheral struct {
	Name         string
	GroupName    string
	DerivedFrom  string
	Description  string
	BaseAddress  string
	AddressBlock *RawAddressBlock
	Interrupts   []RawInterrupt
	Props        RegisterProps
	Entries      []RawEntry
}

type RawDim struct {
	Dim       string
	Increment string
	Index     string
}

// RawEntry holds exactly one of Register or Cluster.
type RawEntry struct {
	Register *RawRegister
	Cluster  *RawCluster
}

// Name returns the entry name.
func (e RawEntry) Name() string {
	if e.Register != nil {
		return e.Register.Name
	}
	return e.Cluster.Name
}

type RawRegister struct {
	Name          string
	Description   string
	AddressOffset string
	DerivedFrom   string
	Dim           RawDim
	Props         RegisterProps
	Fields        []RawField
}

type RawCluster struct {
	Name          string
	Description   string
	AddressOffset string
	DerivedFrom   string
	Dim           RawDim
	Props         RegisterProps
	Entries       []RawEntry
}

type RawField struct {
	Name        string
	Description string
	BitOffset   string
	BitWidth    string
	Values      []RawEnumValue
}

type RawEnumValue struct {
	Name        string
	Description string
	Value       string
	IsDefault   bool
}

func text(n *element.Node, tag string) string {
	s, _ := n.TextOf(tag)
	return s
}

func props(n *element.Node) RegisterProps {
	return RegisterProps{
		Size:       text(n, "size"),
		Access:     text(n, "access"),
		ResetValue: text(n, "resetValue"),
	}
}

func dim(n *element.Node) RawDim {
	return RawDim{
		Dim:       text(n, "dim"),
		Increment: text(n, "dimIncrement"),
		Index:     text(n, "dimIndex"),
	}
}

// AsDevice projects the device root.
func AsDevice(n *element.Node) RawDevice {
	return RawDevice{
		Name:        text(n, "name"),
		Description: text(n, "description"),
		Vendor:      text(n, "vendor"),
		Version:     text(n, "version"),
		Props:       props(n),
	}
}

// AsPeripheral projects a peripheral node.
func AsPeripheral(n *element.Node) (RawPeripheral, error) {
	p := RawPeripheral{
		Name:        text(n, "name"),
		GroupName:   text(n, "groupName"),
		Description: text(n, "description"),
		BaseAddress: text(n, "baseAddress"),
		Props:       props(n),
	}
	p.DerivedFrom, _ = n.Attr("derivedFrom")

	if ab, ok := n.Child("addressBlock"); ok {
		p.AddressBlock = &RawAddressBlock{
			Offset: text(ab, "offset"),
			Size:   text(ab, "size"),
			Usage:  text(ab, "usage"),
		}
	}
	for _, irq := range n.Nodes("interrupt") {
		p.Interrupts = append(p.Interrupts, RawInterrupt{
			Name:        text(irq, "name"),
			Description: text(irq, "description"),
			Value:       text(irq, "value"),
		})
	}

	entries, err := asEntries(n, p.Name)
	if err != nil {
		return p, err
	}
	p.Entries = entries
	return p, nil
}

// asEntries projects the registers child of a peripheral or cluster.
func asEntries(n *element.Node, path string) ([]RawEntry, error) {
	regs, ok := n.Get("registers")
	if !ok || regs.IsLeaf() {
		return nil, nil
	}
	var out []RawEntry
	for _, c := range regs.(*element.Node).Children {
		entry, err := AsRegisterOrCluster(c, path)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// AsRegisterOrCluster projects one child of a registers node.
func AsRegisterOrCluster(c element.Child, path string) (RawEntry, error) {
	n, ok := c.Elem.(*element.Node)
	if !ok {
		return RawEntry{}, Malformed(KindMissingElement, path, "empty <%s>", c.Tag)
	}
	name := text(n, "name")
	derived, _ := n.Attr("derivedFrom")

	switch c.Tag {
	case "register":
		r := &RawRegister{
			Name:          name,
			Description:   text(n, "description"),
			AddressOffset: text(n, "addressOffset"),
			DerivedFrom:   derived,
			Dim:           dim(n),
			Props:         props(n),
		}
		if fields, ok := n.Child("fields"); ok {
			for _, f := range fields.Nodes("field") {
				r.Fields = append(r.Fields, AsField(f))
			}
		}
		return RawEntry{Register: r}, nil

	case "cluster":
		cl := &RawCluster{
			Name:          name,
			Description:   text(n, "description"),
			AddressOffset: text(n, "addressOffset"),
			DerivedFrom:   derived,
			Dim:           dim(n),
			Props:         props(n),
		}
		entries, err := asEntries(n, path+"."+name)
		if err != nil {
			return RawEntry{}, err
		}
		cl.Entries = entries
		return RawEntry{Cluster: cl}, nil
	}
	return RawEntry{}, Malformed(KindMissingElement, path, "unexpected <%s> among registers", c.Tag)
}

// AsField projects a normalized field node.
func AsField(n *element.Node) RawField {
	f := RawField{
		Name:        text(n, "name"),
		Description: text(n, "description"),
		BitOffset:   text(n, "bitOffset"),
		BitWidth:    text(n, "bitWidth"),
	}
	for _, set := range n.Nodes("enumeratedValues") {
		for _, v := range set.Nodes("enumeratedValue") {
			isDefault := text(v, "isDefault")
			f.Values = append(f.Values, RawEnumValue{
				Name:        text(v, "name"),
				Description: text(v, "description"),
				Value:       text(v, "value"),
				IsDefault:   isDefault == "true" || isDefault == "1",
			})
		}
	}
	return f
}
