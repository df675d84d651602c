package emit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/OpenTraceLab/svdgen/pkg/device"
)

var (
	// ErrOverlappingLayout is returned when two sibling entries claim the
	// same byte offsets. The concrete error is an *OverlapError.
	ErrOverlappingLayout = errors.New("emit: overlapping layout")

	// ErrUnknownPeripheral marks a requested group the device does not have.
	// It only appears in Report.Skipped; it never aborts a run.
	ErrUnknownPeripheral = errors.New("emit: unknown peripheral")
)

// OverlapError names the two rules that collide in a lookup table.
type OverlapError struct {
	Scope  string
	First  string
	Second string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("emit: %s: %s overlaps %s", e.Scope, e.First, e.Second)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingLayout }

// Rule maps an inclusive byte range of a register holder to one entry.
type Rule struct {
	Lo    uint64
	Hi    uint64
	Entry device.Entry

	// Instance is the cluster array element the rule covers, or -1.
	Instance int
}

// Name is the entry name, with the instance for cluster array rules.
func (r Rule) Name() string {
	name := device.HeaderOf(r.Entry).BaseName()
	if r.Instance >= 0 {
		return fmt.Sprintf("%s[%d]", name, r.Instance)
	}
	return name
}

// Single reports whether the rule matches exactly one offset.
func (r Rule) Single() bool { return r.Lo == r.Hi }

// Table is the sorted offset lookup of a peripheral or cluster.
type Table struct {
	Scope string
	Rules []Rule
}

// Plan builds the lookup table of a register holder. A plain register
// matches its own offset, a register array the whole extent of its
// elements, a cluster its size, and each element of a cluster array one
// stride, or its register footprint when that is wider. Overlapping rules
// are an error.
func Plan(scope string, entries []device.Entry) (*Table, error) {
	var rules []Rule
	for _, e := range entries {
		h := device.HeaderOf(e)
		off := h.AddressOffset
		switch v := e.(type) {
		case *device.Register:
			if h.Dim == nil {
				rules = append(rules, Rule{Lo: off, Hi: off, Entry: e, Instance: -1})
				continue
			}
			rules = append(rules, Rule{Lo: off, Hi: off + h.Dim.Count*h.Dim.Increment - 1, Entry: e, Instance: -1})
		case *device.Cluster:
			if h.Dim == nil {
				rules = append(rules, Rule{Lo: off, Hi: off + v.Size - 1, Entry: e, Instance: -1})
				continue
			}
			span := max(h.Dim.Increment, footprint(v))
			for i, base := range h.Dim.Offsets(off) {
				rules = append(rules, Rule{Lo: base, Hi: base + span - 1, Entry: e, Instance: i})
			}
		}
	}

	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Lo < rules[j].Lo })
	for i := 1; i < len(rules); i++ {
		if rules[i].Lo <= rules[i-1].Hi {
			return nil, &OverlapError{Scope: scope, First: rules[i-1].Name(), Second: rules[i].Name()}
		}
	}
	return &Table{Scope: scope, Rules: rules}, nil
}

// footprint is the byte extent of the registers of one cluster element.
func footprint(c *device.Cluster) uint64 {
	var end uint64
	for _, s := range Slots(c.Children) {
		end = max(end, s.Offset+4)
	}
	return end
}

// Lookup finds the rule covering offset.
func (t *Table) Lookup(offset uint64) (Rule, bool) {
	i := sort.Search(len(t.Rules), func(i int) bool { return t.Rules[i].Hi >= offset })
	if i < len(t.Rules) && t.Rules[i].Lo <= offset {
		return t.Rules[i], true
	}
	return Rule{}, false
}

// Slot is one concrete register position: a plain register, one element of
// a register array, or either of those inside one cluster (array element).
type Slot struct {
	Register *device.Register
	Index    int // register array element, or -1

	Cluster      *device.Cluster // nil outside clusters
	ClusterIndex int             // cluster array element, or -1

	// Offset is relative to the holder Slots was called on.
	Offset uint64
}

// Slots expands entries into every concrete register position. Registers
// come first, then clusters, each ordered by offset; cluster arrays expand
// element by element.
func Slots(entries []device.Entry) []Slot {
	regs, clusters := split(entries)
	var out []Slot
	for _, r := range regs {
		out = append(out, registerSlots(r, 0, nil, -1)...)
	}
	for _, c := range clusters {
		children, _ := split(c.Children)
		for i, base := range bases(&c.Header) {
			ci := i
			if c.Dim == nil {
				ci = -1
			}
			for _, r := range children {
				out = append(out, registerSlots(r, base, c, ci)...)
			}
		}
	}
	return out
}

func registerSlots(r *device.Register, base uint64, c *device.Cluster, ci int) []Slot {
	if r.Dim == nil {
		return []Slot{{Register: r, Index: -1, Cluster: c, ClusterIndex: ci, Offset: base + r.AddressOffset}}
	}
	var out []Slot
	for j, off := range r.Dim.Offsets(base + r.AddressOffset) {
		out = append(out, Slot{Register: r, Index: j, Cluster: c, ClusterIndex: ci, Offset: off})
	}
	return out
}

// bases lists the start offset of every element of an entry.
func bases(h *device.Header) []uint64 {
	if h.Dim == nil {
		return []uint64{h.AddressOffset}
	}
	return h.Dim.Offsets(h.AddressOffset)
}

// split separates registers from clusters, each stably sorted by offset.
func split(entries []device.Entry) ([]*device.Register, []*device.Cluster) {
	var regs []*device.Register
	var clusters []*device.Cluster
	for _, e := range entries {
		switch v := e.(type) {
		case *device.Register:
			regs = append(regs, v)
		case *device.Cluster:
			clusters = append(clusters, v)
		}
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].AddressOffset < regs[j].AddressOffset })
	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].AddressOffset < clusters[j].AddressOffset })
	return regs, clusters
}

// clusterTypes returns each distinct cluster type once, by base name.
func clusterTypes(entries []device.Entry) []*device.Cluster {
	_, clusters := split(entries)
	seen := make(map[string]bool)
	var out []*device.Cluster
	for _, c := range clusters {
		name := c.BaseName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, c)
	}
	return out
}
