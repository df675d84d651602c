package emit

import (
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/OpenTraceLab/svdgen/pkg/device"
	"github.com/OpenTraceLab/svdgen/pkg/template"
)

// goDialect renders one Go package per group plus an index package at the
// root: peripherals.go, <group>/<group>.go, <group>/registers.go and
// <group>/cluster_<name>.go per cluster type.
type goDialect struct{}

func (goDialect) Name() string     { return "go" }
func (goDialect) Templates() fs.FS { return subFS("templates/go") }

func (goDialect) Naming() Naming {
	return Naming{Keywords: goKeywords, Suffix: "_"}
}

func (goDialect) format(name string, src []byte) ([]byte, error) {
	out, err := imports.Process(name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("emit: goimports %s: %w", name, err)
	}
	return out, nil
}

func (goDialect) jobs(u *unit) ([]job, error) {
	root := row(
		"package", u.Naming.Escape(packageName(u.Device.Name)),
		"device_name", u.Device.Name,
	)
	root.Rows("groups")
	for _, gp := range u.Groups {
		root.Add("groups", row("module", gp.Key))
	}
	jobs := []job{{Path: "peripherals.go", Template: "device.go.tmpl", Data: root}}

	for _, gp := range u.Groups {
		g := goGroup{plan: gp, pkg: u.Naming.Escape(packageName(gp.Key))}
		jobs = append(jobs,
			job{Path: path.Join(gp.Key, gp.Key+".go"), Template: "peripheral/peripheral.go.tmpl", Data: g.peripheral()},
			job{Path: path.Join(gp.Key, "registers.go"), Template: "peripheral/registers.go.tmpl", Data: g.registers()},
		)
		for _, cp := range gp.Clusters {
			jobs = append(jobs, job{
				Path:     path.Join(gp.Key, "cluster_"+strings.ToLower(cp.Cluster.BaseName())+".go"),
				Template: "peripheral/cluster.go.tmpl",
				Data:     g.cluster(cp),
			})
		}
	}
	return jobs, nil
}

// packageName lowercases s and drops characters Go does not allow in
// identifiers.
func packageName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && b.Len() > 0:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "device"
	}
	return b.String()
}

type goGroup struct {
	plan *groupPlan
	pkg  string
}

func (g goGroup) peripheral() template.Data {
	pg := g.plan.Group
	d := row(
		"package", g.pkg,
		"peripheral_name", pg.Name,
		"peripheral_description", describe(pg.Description, pg.Name+" peripheral"),
		"byte_size", hex(pg.ByteSize()),
		"backing_size", hex(pg.BackingWords()),
	)

	d.Rows("base_addresses")
	d.Rows("interrupts")
	for _, name := range pg.InstanceNames() {
		inst := pg.Instances[name]
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
	regs, clusters := split(pg.Registers)
	for _, reg := range regs {
		name := strings.ToUpper(reg.BaseName())
		params, key := "", "Reg{Kind: Kind"+name+"}"
		if reg.Dim != nil {
			params, key = "n uint8", "Reg{Kind: Kind"+name+", N: n}"
		}
		d.Add("register_getters", row("getter", name, "params", params, "reg", key, "struct_name", name))
	}
	for _, c := range clusters {
		cname := c.BaseName()
		children, _ := split(c.Children)
		for _, reg := range children {
			name := strings.ToUpper(reg.BaseName())
			var params, key []string
			key = append(key, "Kind: Kind"+cname)
			if c.Dim != nil {
				params = append(params, "n uint8")
				key = append(key, "N: n")
			}
			key = append(key, "Local: uint8("+cname+"Kind"+name+")")
			if reg.Dim != nil {
				params = append(params, "i uint8")
				key = append(key, "LocalN: i")
			}
			d.Add("register_getters", row(
				"getter", cname+name,
				"params", strings.Join(params, ", "),
				"reg", "Reg{"+strings.Join(key, ", ")+"}",
				"struct_name", cname+name,
			))
		}
	}
	return d
}

func (g goGroup) registers() template.Data {
	pg := g.plan.Group
	d := row(
		"package", g.pkg,
		"peripheral_name", pg.Name,
	)

	d.Rows("kinds")
	regs, clusters := split(pg.Registers)
	index := 0
	for _, reg := range regs {
		d.Add("kinds", row(
			"kind", "Kind"+strings.ToUpper(reg.BaseName()),
			"index", strconv.Itoa(index),
			"description", describe(reg.Description, reg.BaseName()),
		))
		index++
	}
	for _, c := range clusters {
		d.Add("kinds", row(
			"kind", "Kind"+c.BaseName(),
			"index", strconv.Itoa(index),
			"description", describe(c.Description, c.BaseName()),
		))
		index++
	}

	d.Rows("offset_arms")
	for _, rule := range g.plan.Table.Rules {
		d.Add("offset_arms", row("cond", goCond(rule), "result", goLookup(rule)))
	}

	goSlots(&d, Slots(pg.Registers), goKey)
	goRegisterDefs(&d, "", regs)
	return d
}

func (g goGroup) cluster(cp *clusterPlan) template.Data {
	c := cp.Cluster
	name := c.BaseName()
	d := row(
		"package", g.pkg,
		"peripheral_name", g.plan.Group.Name,
		"cluster_name", name,
		"cluster_kind", name+"Kind",
		"cluster_reg", name+"Reg",
		"local_info", strings.ToLower(name)+"Info",
		"cluster_size", strconv.FormatUint(c.Size, 10),
	)

	d.Rows("kinds")
	regs, _ := split(c.Children)
	for i, reg := range regs {
		d.Add("kinds", row(
			"kind", name+"Kind"+strings.ToUpper(reg.BaseName()),
			"index", strconv.Itoa(i),
			"description", describe(reg.Description, reg.BaseName()),
		))
	}

	d.Rows("offset_arms")
	for _, rule := range cp.Table.Rules {
		d.Add("offset_arms", row("cond", goCond(rule), "result", goLocalLookup(name, rule)))
	}

	goSlots(&d, Slots(c.Children), func(s Slot) string { return goLocalKey(name, s) })
	goRegisterDefs(&d, name, regs)
	return d
}

func goSlots(d *template.Data, slots []Slot, key func(Slot) string) {
	d.Rows("enumeration")
	d.Rows("info")
	for _, s := range slots {
		reset, has := uint64(0), false
		if s.Register.ResetValue != nil {
			reset, has = *s.Register.ResetValue, true
		}
		info := row(
			"key", key(s),
			"offset", strconv.FormatUint(s.Offset, 10),
			"perms", strconv.Itoa(int(s.Register.Access.Bits())),
			"reset", strconv.FormatUint(reset, 10),
			"has_reset", strconv.FormatBool(has),
		)
		d.Add("enumeration", info)
		d.Add("info", info)
	}
}

func goRegisterDefs(d *template.Data, prefix string, regs []*device.Register) {
	d.Rows("register_defs")
	for _, reg := range regs {
		def := row(
			"struct_name", prefix+strings.ToUpper(reg.BaseName()),
			"description", describe(reg.Description, reg.BaseName()+" register"),
		)
		def.Rows("fields")
		def.Rows("accessors")
		def.Rows("values")
		for _, f := range reg.Fields {
			offset := strconv.FormatUint(f.BitOffset, 10)
			def.Add("fields", row(
				"name", f.Name,
				"offset", offset,
				"width", strconv.FormatUint(f.BitWidth, 10),
				"reserved", strconv.FormatBool(f.Reserved),
			))
			if f.Reserved {
				continue
			}
			method := strings.ToUpper(f.Name)
			def.Add("accessors", row(
				"method", method,
				"name", f.Name,
				"offset", offset,
				"mask", strconv.FormatUint(f.Mask(), 10),
			))
			for _, v := range f.Values {
				def.Add("values", row(
					"const", method+v.Name,
					"value", strconv.FormatUint(v.Value, 10),
					"description", describe(v.Description, v.Name),
				))
			}
		}
		d.Add("register_defs", def)
	}
}

func goKey(s Slot) string {
	parts := []string{}
	if s.Cluster == nil {
		parts = append(parts, "Kind: Kind"+strings.ToUpper(s.Register.BaseName()))
		if s.Index >= 0 {
			parts = append(parts, "N: "+strconv.Itoa(s.Index))
		}
		return "Reg{" + strings.Join(parts, ", ") + "}"
	}
	cname := s.Cluster.BaseName()
	parts = append(parts, "Kind: Kind"+cname)
	if s.ClusterIndex >= 0 {
		parts = append(parts, "N: "+strconv.Itoa(s.ClusterIndex))
	}
	parts = append(parts, "Local: uint8("+cname+"Kind"+strings.ToUpper(s.Register.BaseName())+")")
	if s.Index >= 0 {
		parts = append(parts, "LocalN: "+strconv.Itoa(s.Index))
	}
	return "Reg{" + strings.Join(parts, ", ") + "}"
}

func goLocalKey(cluster string, s Slot) string {
	key := cluster + "Reg{Kind: " + cluster + "Kind" + strings.ToUpper(s.Register.BaseName())
	if s.Index >= 0 {
		key += ", N: " + strconv.Itoa(s.Index)
	}
	return key + "}"
}

func goCond(rule Rule) string {
	if rule.Single() {
		return "offset == " + hexOffset(rule.Lo)
	}
	return "offset >= " + hexOffset(rule.Lo) + " && offset <= " + hexOffset(rule.Hi)
}

func goLookup(rule Rule) string {
	h := device.HeaderOf(rule.Entry)
	switch v := rule.Entry.(type) {
	case *device.Register:
		name := strings.ToUpper(h.BaseName())
		if h.Dim == nil {
			return "return Reg{Kind: Kind" + name + "}, true"
		}
		return fmt.Sprintf("return Reg{Kind: Kind%s, N: uint8((offset - %s) / %#x)}, true", name, hexOffset(rule.Lo), h.Dim.Increment)
	case *device.Cluster:
		name := v.BaseName()
		n := ""
		if rule.Instance >= 0 {
			n = ", N: " + strconv.Itoa(rule.Instance)
		}
		return fmt.Sprintf("local, ok := Lookup%sOffset(offset - %s)\n\t\treturn Reg{Kind: Kind%s%s, Local: uint8(local.Kind), LocalN: local.N}, ok",
			name, hexOffset(rule.Lo), name, n)
	}
	return "return Reg{}, false"
}

func goLocalLookup(cluster string, rule Rule) string {
	h := device.HeaderOf(rule.Entry)
	kind := cluster + "Kind" + strings.ToUpper(h.BaseName())
	if h.Dim == nil {
		return "return " + cluster + "Reg{Kind: " + kind + "}, true"
	}
	return fmt.Sprintf("return %sReg{Kind: %s, N: uint8((offset - %s) / %#x)}, true", cluster, kind, hexOffset(rule.Lo), h.Dim.Increment)
}
