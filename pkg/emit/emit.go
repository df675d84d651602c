package emit

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/svdgen/pkg/device"
)

// File is one rendered output file.
type File struct {
	Path string
	Data []byte
}

// Report summarizes a run.
type Report struct {
	// Groups are the resolved group keys, in request order.
	Groups []string
	// Files are the output paths, in write order.
	Files []string
	// Skipped holds one ErrUnknownPeripheral error per name that did not
	// resolve.
	Skipped []error
}

// Resolve maps requested names onto group keys case-insensitively. No names
// selects every group. Unknown names are returned as errors wrapping
// ErrUnknownPeripheral; repeated names resolve once.
func Resolve(dev *device.Device, names []string) ([]string, []error) {
	if len(names) == 0 {
		return dev.GroupNames(), nil
	}
	var keys []string
	var skipped []error
	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := dev.Groups[key]; !ok {
			skipped = append(skipped, fmt.Errorf("%w: %s", ErrUnknownPeripheral, name))
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, skipped
}

// Render produces the complete output for the requested groups in memory.
// Nothing is written; any error leaves no partial output behind.
func Render(dev *device.Device, names []string, cfg *Config) ([]File, *Report, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	d := cfg.Dialect()

	keys, skipped := Resolve(dev, names)
	report := &Report{Groups: keys, Skipped: skipped}

	u := &unit{Device: dev, Naming: cfg.Naming()}
	for _, key := range keys {
		gp, err := planGroup(key, dev.Groups[key])
		if err != nil {
			return nil, nil, err
		}
		u.Groups = append(u.Groups, gp)
	}

	jobs, err := d.jobs(u)
	if err != nil {
		return nil, nil, err
	}

	set := cfg.TemplateSet()
	files := make([]File, 0, len(jobs))
	for _, j := range jobs {
		out, err := set.Render(j.Template, j.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("emit: %s: %w", j.Path, err)
		}
		src := []byte(out)
		if cfg.Format {
			if src, err = d.format(j.Path, src); err != nil {
				return nil, nil, err
			}
		}
		files = append(files, File{Path: j.Path, Data: src})
		report.Files = append(report.Files, j.Path)
	}
	return files, report, nil
}

// Emit renders the requested groups and writes them to sink. Files reach
// the sink only once every file has rendered.
func Emit(dev *device.Device, names []string, sink Sink, cfg *Config) (*Report, error) {
	files, report, err := Render(dev, names, cfg)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := sink.WriteFile(f.Path, f.Data); err != nil {
			return report, err
		}
	}
	return report, nil
}
