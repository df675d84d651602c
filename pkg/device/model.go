// Package device builds the canonical, validated device model from a loaded
// description.
package device

import (
	"sort"
	"strings"
)

// RegisterBits is the width every register's field list must cover.
const RegisterBits = 32

// Device is the canonical model of one description. It is built once and
// not modified afterwards.
type Device struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Vendor      string `yaml:"vendor,omitempty" json:"vendor,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`

	// Groups is keyed by lowercased group name.
	Groups map[string]*PeripheralGroup `yaml:"groups" json:"groups"`
}

// GroupNames returns the lowercased group names, sorted.
func (d *Device) GroupNames() []string {
	names := make([]string, 0, len(d.Groups))
	for name := range d.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group looks a group up case-insensitively.
func (d *Device) Group(name string) (*PeripheralGroup, bool) {
	g, ok := d.Groups[strings.ToLower(name)]
	return g, ok
}

// PeripheralGroup is the canonical peripheral shared by its instances.
type PeripheralGroup struct {
	Name         string       `yaml:"name" json:"name"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	AddressBlock AddressBlock `yaml:"addressBlock" json:"addressBlock"`
	Registers    []Entry      `yaml:"registers" json:"registers"`

	// Instances is keyed by instance name as written.
	Instances map[string]Instance `yaml:"instances" json:"instances"`
}

// ByteSize is the address block size.
func (g *PeripheralGroup) ByteSize() uint64 { return g.AddressBlock.Size }

// BackingWords is the number of 32-bit words backing the address block.
// Sizes that are not a multiple of 4 truncate.
func (g *PeripheralGroup) BackingWords() uint64 { return g.AddressBlock.Size / 4 }

// InstanceNames returns the instance names, sorted.
func (g *PeripheralGroup) InstanceNames() []string {
	names := make([]string, 0, len(g.Instances))
	for name := range g.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type AddressBlock struct {
	Offset uint64 `yaml:"offset" json:"offset"`
	Size   uint64 `yaml:"size" json:"size"`
	Usage  string `yaml:"usage,omitempty" json:"usage,omitempty"`
}

// Instance is one concrete peripheral of a group.
type Instance struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	BaseAddress uint64      `yaml:"baseAddress" json:"baseAddress"`
	Interrupts  []Interrupt `yaml:"interrupts,omitempty" json:"interrupts,omitempty"`
}

type Interrupt struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Value       uint64 `yaml:"value" json:"value"`
}

// Dim describes a register or cluster array.
type Dim struct {
	Count     uint64   `yaml:"count" json:"count"`
	Increment uint64   `yaml:"increment" json:"increment"`
	Index     []string `yaml:"index,omitempty" json:"index,omitempty"`
}

// Offsets expands the array into the offsets of its elements.
func (d *Dim) Offsets(base uint64) []uint64 {
	out := make([]uint64, d.Count)
	for i := range out {
		out[i] = base + uint64(i)*d.Increment
	}
	return out
}

// Header holds what registers and clusters have in common.
type Header struct {
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	AddressOffset uint64 `yaml:"addressOffset" json:"addressOffset"`
	Dim           *Dim   `yaml:"dim,omitempty" json:"dim,omitempty"`
}

func (h *Header) header() *Header { return h }

// BaseName strips the array placeholder from the name: EVENTS[%s] is EVENTS.
func (h *Header) BaseName() string {
	name := strings.ReplaceAll(h.Name, "[%s]", "")
	return strings.ReplaceAll(name, "%s", "")
}

// Entry is a *Register or a *Cluster.
type Entry interface {
	header() *Header
}

// HeaderOf returns the shared part of an entry.
func HeaderOf(e Entry) *Header { return e.header() }

// Register is a 32-bit register.
type Register struct {
	Header     `yaml:",inline"`
	Access     Access  `yaml:"access" json:"access"`
	ResetValue *uint64 `yaml:"resetValue,omitempty" json:"resetValue,omitempty"`
	Fields     []Field `yaml:"fields" json:"fields"`
}

// Cluster is an offset-relative group of registers.
type Cluster struct {
	Header   `yaml:",inline"`
	Children []Entry `yaml:"children" json:"children"`
	Size     uint64  `yaml:"size" json:"size"`
}

// Field is a bitfield; Reserved fields are synthesized padding.
type Field struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	BitOffset   uint64      `yaml:"bitOffset" json:"bitOffset"`
	BitWidth    uint64      `yaml:"bitWidth" json:"bitWidth"`
	Reserved    bool        `yaml:"reserved,omitempty" json:"reserved,omitempty"`
	Values      []EnumValue `yaml:"values,omitempty" json:"values,omitempty"`
}

// Mask is the field mask before shifting.
func (f Field) Mask() uint64 { return 1<<f.BitWidth - 1 }

type EnumValue struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Value       uint64 `yaml:"value" json:"value"`
}

// EndOffset is the local end offset of an entry as used for cluster sizing:
// the offset plus the array extent plus 4 for a register, or plus the
// cluster's own size for a cluster.
func EndOffset(e Entry) uint64 {
	h := e.header()
	end := h.AddressOffset
	if h.Dim != nil {
		end += h.Dim.Count * h.Dim.Increment
	}
	switch v := e.(type) {
	case *Register:
		end += 4
	case *Cluster:
		end += v.Size
	}
	return end
}
