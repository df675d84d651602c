package emit

import (
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/svdgen/pkg/device"
	"github.com/OpenTraceLab/svdgen/pkg/template"
)

// rustDialect renders one Rust module tree: mod.rs at the root, and per
// group <group>/mod.rs, <group>/registers/mod.rs and one file per cluster
// type under <group>/registers.
type rustDialect struct{}

func (rustDialect) Name() string     { return "rust" }
func (rustDialect) Templates() fs.FS { return subFS("templates/rust") }

func (rustDialect) Naming() Naming {
	return Naming{Keywords: rustKeywords, Prefix: "r#"}
}

func (rustDialect) format(_ string, src []byte) ([]byte, error) { return src, nil }

func (d rustDialect) jobs(u *unit) ([]job, error) {
	var root template.Data
	root.Set("device_name", u.Device.Name)
	root.Rows("groups")
	for _, gp := range u.Groups {
		root.Add("groups", row("module", u.Naming.Escape(gp.Key)))
	}
	jobs := []job{{Path: "mod.rs", Template: "device.rs", Data: root}}

	for _, gp := range u.Groups {
		r := rustGroup{plan: gp, names: u.Naming}
		jobs = append(jobs,
			job{Path: path.Join(gp.Key, "mod.rs"), Template: "peripheral/mod.rs", Data: r.peripheral()},
			job{Path: path.Join(gp.Key, "registers", "mod.rs"), Template: "peripheral/registers.rs", Data: r.registers()},
		)
		for _, cp := range gp.Clusters {
			file := strings.ToLower(cp.Cluster.BaseName()) + ".rs"
			jobs = append(jobs, job{
				Path:     path.Join(gp.Key, "registers", file),
				Template: "peripheral/cluster.rs",
				Data:     r.cluster(cp),
			})
		}
	}
	return jobs, nil
}

type rustGroup struct {
	plan  *groupPlan
	names Naming
}

func (r rustGroup) regType() string { return r.plan.Group.Name + "RegType" }

func clusterType(c *device.Cluster) string { return c.BaseName() + "RegType" }

func (r rustGroup) module(name string) string {
	return r.names.Escape(strings.ToLower(name))
}

func (r rustGroup) peripheral() template.Data {
	g := r.plan.Group
	d := row(
		"module", r.module(r.plan.Key),
		"peripheral_name", g.Name,
		"peripheral_description", describe(g.Description, g.Name+" peripheral"),
		"reg_type", r.regType(),
		"byte_size", hex(g.ByteSize()),
		"backing_size", hex(g.BackingWords()),
		"default_base_address", hex(0),
	)

	d.Rows("base_addresses")
	d.Rows("interrupts")
	for i, name := range g.InstanceNames() {
		inst := g.Instances[name]
		if i == 0 {
			d.Set("default_base_address", hex(inst.BaseAddress))
		}
		d.Add("base_addresses", row(
			"instance", strings.ToUpper(inst.Name),
			"base_address", strconv.FormatUint(inst.BaseAddress, 10),
		))
		for _, irq := range inst.Interrupts {
			d.Add("interrupts", row(
				"name", strings.ToUpper(irq.Name),
				"value", strconv.FormatUint(irq.Value, 10),
			))
		}
	}

	d.Rows("register_getters")
	regs, clusters := split(g.Registers)
	for _, reg := range regs {
		name := reg.BaseName()
		params, call := "", strings.ToUpper(name)
		if reg.Dim != nil {
			params, call = ", n: u8", call+"(n)"
		}
		d.Add("register_getters", getter(r.names.Escape(strings.ToLower(name)), params, call, strings.ToUpper(name)))
	}
	for _, c := range clusters {
		cname := c.BaseName()
		children, _ := split(c.Children)
		for _, reg := range children {
			name := reg.BaseName()
			var params []string
			inner := clusterType(c) + "::" + strings.ToUpper(name)
			if reg.Dim != nil {
				params = append(params, "i: u8")
				inner += "(i)"
			}
			call := cname + "(" + inner + ")"
			if c.Dim != nil {
				params = append([]string{"n: u8"}, params...)
				call = cname + "(n, " + inner + ")"
			}
			p := ""
			if len(params) > 0 {
				p = ", " + strings.Join(params, ", ")
			}
			getterName := r.names.Escape(strings.ToLower(cname) + "_" + strings.ToLower(name))
			d.Add("register_getters", getter(getterName, p, call, r.module(cname)+"::"+strings.ToUpper(name)))
		}
	}
	return d
}

func getter(name, params, call, structName string) template.Data {
	return row(
		"getter", name,
		"ref_params", "&self"+params,
		"mut_params", "&mut self"+params,
		"variant_call", call,
		"struct_name", structName,
	)
}

func (r rustGroup) registers() template.Data {
	g := r.plan.Group
	d := row(
		"peripheral_name", g.Name,
		"reg_type", r.regType(),
		"byte_size", hex(g.ByteSize()),
	)

	d.Rows("cluster_mods")
	for _, cp := range r.plan.Clusters {
		d.Add("cluster_mods", row(
			"module", r.module(cp.Cluster.BaseName()),
			"cluster_type", clusterType(cp.Cluster),
		))
	}

	d.Rows("variants")
	regs, clusters := split(g.Registers)
	for _, reg := range regs {
		variant := strings.ToUpper(reg.BaseName())
		if reg.Dim != nil {
			variant += "(u8)"
		}
		d.Add("variants", row("variant", variant, "description", describe(reg.Description, reg.BaseName())))
	}
	for _, c := range clusters {
		variant := c.BaseName() + "(" + clusterType(c) + ")"
		if c.Dim != nil {
			variant = c.BaseName() + "(u8, " + clusterType(c) + ")"
		}
		d.Add("variants", row("variant", variant, "description", describe(c.Description, c.BaseName())))
	}

	d.Rows("offset_arms")
	for _, rule := range r.plan.Table.Rules {
		d.Add("offset_arms", row("pattern", rustPattern(rule), "result", rustLookup(rule)))
	}

	r.slots(&d, Slots(g.Registers))
	r.registerDefs(&d, regs)
	return d
}

func (r rustGroup) cluster(cp *clusterPlan) template.Data {
	c := cp.Cluster
	d := row(
		"module", strings.ToLower(c.BaseName()),
		"cluster_name", c.BaseName(),
		"cluster_description", describe(c.Description, c.BaseName()+" cluster"),
		"peripheral_name", r.plan.Group.Name,
		"cluster_type", clusterType(c),
		"cluster_size", strconv.FormatUint(c.Size, 10),
	)

	d.Rows("variants")
	regs, _ := split(c.Children)
	for _, reg := range regs {
		variant := strings.ToUpper(reg.BaseName())
		if reg.Dim != nil {
			variant += "(u8)"
		}
		d.Add("variants", row("variant", variant, "description", describe(reg.Description, reg.BaseName())))
	}

	d.Rows("offset_arms")
	for _, rule := range cp.Table.Rules {
		d.Add("offset_arms", row("pattern", rustPattern(rule), "result", rustLookup(rule)))
	}

	r.slots(&d, Slots(c.Children))
	r.registerDefs(&d, regs)
	return d
}

// slots fills the list and metadata blocks shared by the register index and
// cluster files.
func (r rustGroup) slots(d *template.Data, slots []Slot) {
	d.Rows("enumeration")
	d.Rows("info_arms")
	for _, s := range slots {
		reset := "None"
		if s.Register.ResetValue != nil {
			reset = fmt.Sprintf("Some(0x%08x)", *s.Register.ResetValue)
		}
		info := row(
			"pattern", "Self::"+rustSlot(s),
			"offset", strconv.FormatUint(s.Offset, 10),
			"perms", strconv.Itoa(int(s.Register.Access.Bits())),
			"reset", reset,
		)
		d.Add("enumeration", info)
		d.Add("info_arms", info)
	}
}

func (r rustGroup) registerDefs(d *template.Data, regs []*device.Register) {
	d.Rows("register_defs")
	for _, reg := range regs {
		def := row(
			"struct_name", strings.ToUpper(reg.BaseName()),
			"description", describe(reg.Description, reg.BaseName()+" register"),
		)
		def.Rows("fields")
		def.Rows("values")
		for _, f := range reg.Fields {
			if f.Reserved {
				def.Add("fields", row("name", "__", "width", strconv.FormatUint(f.BitWidth, 10), "type", "u32", "description", "reserved"))
				continue
			}
			def.Add("fields", row(
				"name", r.names.Escape(strings.ToLower(f.Name)),
				"width", strconv.FormatUint(f.BitWidth, 10),
				"type", fieldType(f.BitWidth),
				"description", describe(f.Description, f.Name),
			))
			for _, v := range f.Values {
				def.Add("values", row(
					"name", strings.ToUpper(f.Name+"_"+v.Name),
					"value", strconv.FormatUint(v.Value, 10),
					"description", describe(v.Description, v.Name),
				))
			}
		}
		d.Add("register_defs", def)
	}
}

// rustSlot is the enum value naming one slot, without the Self:: prefix.
func rustSlot(s Slot) string {
	v := strings.ToUpper(s.Register.BaseName())
	if s.Index >= 0 {
		v += "(" + strconv.Itoa(s.Index) + ")"
	}
	if s.Cluster == nil {
		return v
	}
	inner := clusterType(s.Cluster) + "::" + v
	if s.ClusterIndex >= 0 {
		return fmt.Sprintf("%s(%d, %s)", s.Cluster.BaseName(), s.ClusterIndex, inner)
	}
	return s.Cluster.BaseName() + "(" + inner + ")"
}

func rustPattern(rule Rule) string {
	if rule.Single() {
		return hexOffset(rule.Lo)
	}
	return hexOffset(rule.Lo) + "..=" + hexOffset(rule.Hi)
}

func rustLookup(rule Rule) string {
	h := device.HeaderOf(rule.Entry)
	switch v := rule.Entry.(type) {
	case *device.Register:
		name := strings.ToUpper(h.BaseName())
		if h.Dim == nil {
			return "Some(Self::" + name + ")"
		}
		return fmt.Sprintf("Some(Self::%s(((offset - %s) / %#x) as u8))", name, hexOffset(rule.Lo), h.Dim.Increment)
	case *device.Cluster:
		lookup := fmt.Sprintf("%s::lookup_offset(offset - %s)", clusterType(v), hexOffset(rule.Lo))
		if rule.Instance < 0 {
			return lookup + ".map(Self::" + v.BaseName() + ")"
		}
		return fmt.Sprintf("%s.map(|reg| Self::%s(%d, reg))", lookup, v.BaseName(), rule.Instance)
	}
	return "None"
}

func row(kv ...string) template.Data {
	var d template.Data
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

func hex(v uint64) string { return fmt.Sprintf("%#x", v) }

func hexOffset(v uint64) string { return fmt.Sprintf("0x%03x", v) }

func describe(desc, fallback string) string {
	if desc == "" {
		return fallback
	}
	return desc
}
