package emit

import (
	"embed"
	"io/fs"
	"sort"

	"github.com/OpenTraceLab/svdgen/pkg/device"
	"github.com/OpenTraceLab/svdgen/pkg/template"
)

//go:embed templates
var embedded embed.FS

// Dialect turns a device into template jobs for one output language.
type Dialect interface {
	Name() string

	// Templates are the dialect's embedded templates.
	Templates() fs.FS

	// Naming is the default escaping policy of the language.
	Naming() Naming

	jobs(u *unit) ([]job, error)
	format(path string, src []byte) ([]byte, error)
}

var dialects = map[string]Dialect{
	"rust": rustDialect{},
	"go":   goDialect{},
}

// Targets lists the dialect names, sorted.
func Targets() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// job is one output file: a template rendered against data.
type job struct {
	Path     string
	Template string
	Data     template.Data
}

// unit is everything a dialect lays out in one run.
type unit struct {
	Device *device.Device
	Groups []*groupPlan
	Naming Naming
}

// groupPlan is one resolved group with its lookup tables.
type groupPlan struct {
	Key      string
	Group    *device.PeripheralGroup
	Table    *Table
	Clusters []*clusterPlan
}

type clusterPlan struct {
	Cluster *device.Cluster
	Table   *Table
}

func planGroup(key string, g *device.PeripheralGroup) (*groupPlan, error) {
	table, err := Plan(g.Name, g.Registers)
	if err != nil {
		return nil, err
	}
	gp := &groupPlan{Key: key, Group: g, Table: table}
	for _, c := range clusterTypes(g.Registers) {
		ct, err := Plan(g.Name+"."+c.BaseName(), c.Children)
		if err != nil {
			return nil, err
		}
		gp.Clusters = append(gp.Clusters, &clusterPlan{Cluster: c, Table: ct})
	}
	return gp, nil
}

func subFS(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// fieldType is the narrowest unsigned carrier of a bitfield.
func fieldType(width uint64) string {
	switch {
	case width == 1:
		return "bool"
	case width <= 8:
		return "u8"
	case width <= 16:
		return "u16"
	}
	return "u32"
}
