package device

import (
	"strings"

	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

// defaultAccess applies when no level of the description names one.
const defaultAccess = "read-write"

// Build turns a loaded description into a Device.
func Build(doc *svd.Document) (*Device, error) {
	raw := svd.AsDevice(doc.Root)
	dev := &Device{
		Name:        raw.Name,
		Description: oneLine(raw.Description),
		Vendor:      raw.Vendor,
		Version:     raw.Version,
		Groups:      make(map[string]*PeripheralGroup),
	}

	b := &builder{props: raw.Props}
	for _, g := range doc.Groups {
		pg, err := b.group(g)
		if err != nil {
			return nil, err
		}
		dev.Groups[strings.ToLower(g.Name)] = pg
	}
	return dev, nil
}

type builder struct {
	props svd.RegisterProps
}

func (b *builder) group(g *svd.Group) (*PeripheralGroup, error) {
	tmpl, err := svd.AsPeripheral(g.Template)
	if err != nil {
		return nil, err
	}

	pg := &PeripheralGroup{
		Name:        g.Name,
		Description: oneLine(tmpl.Description),
		Instances:   make(map[string]Instance),
	}

	if tmpl.AddressBlock == nil {
		return nil, svd.Malformed(svd.KindMissingElement, g.Name, "no addressBlock")
	}
	if pg.AddressBlock, err = addressBlock(g.Name, tmpl.AddressBlock); err != nil {
		return nil, err
	}

	props := tmpl.Props.Inherit(b.props)
	if pg.Registers, err = b.entries(g.Name, tmpl.Entries, props, false); err != nil {
		return nil, err
	}

	for _, node := range g.Instances {
		raw, err := svd.AsPeripheral(node)
		if err != nil {
			return nil, err
		}
		inst, err := instance(raw)
		if err != nil {
			return nil, err
		}
		pg.Instances[inst.Name] = inst
	}
	return pg, nil
}

func addressBlock(path string, raw *svd.RawAddressBlock) (AddressBlock, error) {
	var ab AddressBlock
	var err error
	if raw.Offset != "" {
		if ab.Offset, err = number(path+".addressBlock.offset", raw.Offset); err != nil {
			return ab, err
		}
	}
	if ab.Size, err = number(path+".addressBlock.size", raw.Size); err != nil {
		return ab, err
	}
	ab.Usage = raw.Usage
	return ab, nil
}

func instance(raw svd.RawPeripheral) (Instance, error) {
	inst := Instance{Name: raw.Name, Description: oneLine(raw.Description)}
	var err error
	if inst.BaseAddress, err = number(raw.Name+".baseAddress", raw.BaseAddress); err != nil {
		return inst, err
	}
	for _, irq := range raw.Interrupts {
		v, err := number(raw.Name+".interrupt."+irq.Name, irq.Value)
		if err != nil {
			return inst, err
		}
		inst.Interrupts = append(inst.Interrupts, Interrupt{
			Name:        irq.Name,
			Description: oneLine(irq.Description),
			Value:       v,
		})
	}
	return inst, nil
}

// entries builds the registers and clusters of one scope. Clusters may only
// appear at peripheral level.
func (b *builder) entries(path string, raws []svd.RawEntry, props svd.RegisterProps, inCluster bool) ([]Entry, error) {
	raws, err := resolveDerived(path, raws)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		if raw.Register != nil {
			reg, err := b.register(path, raw.Register, props)
			if err != nil {
				return nil, err
			}
			out = append(out, reg)
			continue
		}

		cpath := path + "." + raw.Cluster.Name
		if inCluster {
			return nil, svd.Malformed(svd.KindNestedCluster, cpath, "clusters inside clusters are not supported")
		}
		cl, err := b.cluster(cpath, raw.Cluster, props)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, nil
}

func (b *builder) register(path string, raw *svd.RawRegister, parent svd.RegisterProps) (*Register, error) {
	path = path + "." + raw.Name
	reg := &Register{}
	var err error
	if reg.Header, err = header(path, raw.Name, raw.Description, raw.AddressOffset, raw.Dim); err != nil {
		return nil, err
	}

	props := raw.Props.Inherit(parent)
	accessText := props.Access
	if accessText == "" {
		accessText = defaultAccess
	}
	if reg.Access, err = ParseAccess(accessText); err != nil {
		return nil, relocate(err, path)
	}
	if props.ResetValue != "" {
		v, err := number(path+".resetValue", props.ResetValue)
		if err != nil {
			return nil, err
		}
		reg.ResetValue = &v
	}

	fields := make([]Field, 0, len(raw.Fields))
	for _, rf := range raw.Fields {
		f, err := field(path, rf)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if reg.Fields, err = FillFields(path, fields); err != nil {
		return nil, err
	}
	return reg, nil
}

func (b *builder) cluster(path string, raw *svd.RawCluster, parent svd.RegisterProps) (*Cluster, error) {
	cl := &Cluster{}
	var err error
	if cl.Header, err = header(path, raw.Name, raw.Description, raw.AddressOffset, raw.Dim); err != nil {
		return nil, err
	}
	if cl.Children, err = b.entries(path, raw.Entries, raw.Props.Inherit(parent), true); err != nil {
		return nil, err
	}
	if len(cl.Children) == 0 {
		return nil, svd.Malformed(svd.KindEmptyCluster, path, "no registers")
	}
	for _, child := range cl.Children {
		if end := EndOffset(child); end > cl.Size {
			cl.Size = end
		}
	}
	return cl, nil
}

func header(path, name, desc, offset string, rd svd.RawDim) (Header, error) {
	h := Header{Name: name, Description: oneLine(desc)}
	var err error
	if h.AddressOffset, err = number(path+".addressOffset", offset); err != nil {
		return h, err
	}
	if h.Dim, err = dimension(path, rd); err != nil {
		return h, err
	}
	return h, nil
}

func dimension(path string, rd svd.RawDim) (*Dim, error) {
	if rd.Dim == "" {
		return nil, nil
	}
	d := &Dim{}
	var err error
	if d.Count, err = number(path+".dim", rd.Dim); err != nil {
		return nil, err
	}
	if d.Increment, err = number(path+".dimIncrement", rd.Increment); err != nil {
		return nil, err
	}
	if d.Count == 0 || d.Increment == 0 {
		return nil, svd.Malformed(svd.KindNumber, path, "dim %d with increment %d", d.Count, d.Increment)
	}
	if rd.Index != "" {
		idx, err := svd.ParseDimIndex(rd.Index)
		if err != nil {
			return nil, relocate(err, path)
		}
		if uint64(len(idx)) != d.Count {
			return nil, svd.Malformed(svd.KindDimIndex, path, "%d names for dim %d", len(idx), d.Count)
		}
		d.Index = idx
	}
	return d, nil
}

func field(path string, raw svd.RawField) (Field, error) {
	path = path + "." + raw.Name
	f := Field{Name: raw.Name, Description: oneLine(raw.Description)}
	var err error
	if f.BitOffset, err = number(path+".bitOffset", raw.BitOffset); err != nil {
		return f, err
	}
	if f.BitWidth, err = number(path+".bitWidth", raw.BitWidth); err != nil {
		return f, err
	}
	for _, rv := range raw.Values {
		if rv.IsDefault || rv.Value == "" {
			continue
		}
		v, err := svd.ParseNumber(rv.Value)
		if err != nil {
			// don't-care patterns such as #1x0 name no single value
			continue
		}
		f.Values = append(f.Values, EnumValue{Name: rv.Name, Description: oneLine(rv.Description), Value: v})
	}
	return f, nil
}

// resolveDerived copies what a derivedFrom register or cluster leaves out
// from the sibling it names.
func resolveDerived(path string, raws []svd.RawEntry) ([]svd.RawEntry, error) {
	byName := make(map[string]svd.RawEntry, len(raws))
	for _, r := range raws {
		byName[r.Name()] = r
	}

	out := make([]svd.RawEntry, len(raws))
	for i, r := range raws {
		resolved, err := derive(path, r, byName, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func derive(path string, r svd.RawEntry, byName map[string]svd.RawEntry, seen map[string]bool) (svd.RawEntry, error) {
	from := derivedFrom(r)
	if from == "" {
		return r, nil
	}
	// only siblings are reachable; a dotted path names the last element
	if i := strings.LastIndex(from, "."); i >= 0 {
		from = from[i+1:]
	}
	if seen[from] {
		return r, svd.Malformed(svd.KindDerivation, path+"."+r.Name(), "derivation cycle through %s", from)
	}
	seen[from] = true

	src, ok := byName[from]
	if !ok || (src.Register == nil) != (r.Register == nil) {
		return r, svd.Malformed(svd.KindDerivation, path+"."+r.Name(), "source %s not found", from)
	}
	src, err := derive(path, src, byName, seen)
	if err != nil {
		return r, err
	}

	if r.Register != nil {
		reg := *r.Register
		s := src.Register
		if reg.Description == "" {
			reg.Description = s.Description
		}
		if reg.Fields == nil {
			reg.Fields = s.Fields
		}
		if reg.Dim.Dim == "" {
			reg.Dim = s.Dim
		}
		reg.Props = reg.Props.Inherit(s.Props)
		reg.DerivedFrom = ""
		return svd.RawEntry{Register: &reg}, nil
	}

	cl := *r.Cluster
	s := src.Cluster
	if cl.Description == "" {
		cl.Description = s.Description
	}
	if cl.Entries == nil {
		cl.Entries = s.Entries
	}
	if cl.Dim.Dim == "" {
		cl.Dim = s.Dim
	}
	cl.Props = cl.Props.Inherit(s.Props)
	cl.DerivedFrom = ""
	return svd.RawEntry{Cluster: &cl}, nil
}

func derivedFrom(r svd.RawEntry) string {
	if r.Register != nil {
		return r.Register.DerivedFrom
	}
	return r.Cluster.DerivedFrom
}

func number(path, s string) (uint64, error) {
	if s == "" {
		return 0, svd.Malformed(svd.KindMissingElement, path, "value missing")
	}
	v, err := svd.ParseNumber(s)
	if err != nil {
		return 0, svd.Malformed(svd.KindNumber, path, "%q", s)
	}
	return v, nil
}

// relocate attaches a path to a DescriptionError raised without one.
func relocate(err error, path string) error {
	de, ok := err.(*svd.DescriptionError)
	if !ok || de.Path != "" {
		return err
	}
	return &svd.DescriptionError{Kind: de.Kind, Path: path, Msg: de.Msg}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
