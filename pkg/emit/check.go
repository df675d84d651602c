package emit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/OpenTraceLab/svdgen/pkg/device"
)

// FileDiff describes one output file that does not match what would be
// generated.
type FileDiff struct {
	Path    string
	Missing bool
	// Diff is a line diff from the file on disk to the generated file:
	// "-" lines are only on disk, "+" lines only in the output.
	Diff string
}

// Check renders the requested groups and compares them with the files under
// root. It returns one FileDiff per stale or missing file.
func Check(dev *device.Device, names []string, root string, cfg *Config) ([]FileDiff, *Report, error) {
	files, report, err := Render(dev, names, cfg)
	if err != nil {
		return nil, nil, err
	}

	var diffs []FileDiff
	for _, f := range files {
		current, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
		if errors.Is(err, fs.ErrNotExist) {
			diffs = append(diffs, FileDiff{Path: f.Path, Missing: true})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("emit: check: %w", err)
		}
		if string(current) == string(f.Data) {
			continue
		}
		diffs = append(diffs, FileDiff{Path: f.Path, Diff: LineDiff(string(current), string(f.Data))})
	}
	return diffs, report, nil
}

// LineDiff renders a line-oriented diff of two texts. Unchanged lines are
// prefixed with a space.
func LineDiff(from, to string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}
