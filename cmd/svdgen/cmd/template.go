package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/svdgen/pkg/template"
)

var (
	tplTarget    string
	tplTemplates string
	tplList      bool
)

var templateCmd = &cobra.Command{
	Use:   "template [file]",
	Short: "Inspect a template",
	Long: `Show the scalar fields, blocks with their row fields, and includes a
template uses. The argument is a file on disk or the name of a template of
the target (built-in, or from --templates). --list prints the template
names of the target.

Examples:
  svdgen template --list --target go
  svdgen template peripheral/registers.rs
  svdgen template ./tpl/device.rs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplate,
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringVarP(&tplTarget, "target", "t", "rust", "output language whose templates to use")
	templateCmd.Flags().StringVar(&tplTemplates, "templates", "", "directory of templates overriding the built-in ones")
	templateCmd.Flags().BoolVarP(&tplList, "list", "l", false, "list the template names")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	cfg := settings.Emit()
	if err := cfg.Validate(); err != nil {
		return err
	}
	set := cfg.TemplateSet()
	out := cmd.OutOrStdout()

	if tplList {
		names, err := set.Names()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}
	if len(args) == 0 {
		return errors.New("no template given (use --list to see the names)")
	}

	t, err := openTemplate(set, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Template: %s\n", t.Name)
	fmt.Fprintln(out, "\nFields:")
	for _, f := range t.Fields() {
		fmt.Fprintf(out, "  %s\n", f)
	}
	fmt.Fprintln(out, "\nBlocks:")
	for _, b := range t.Blocks() {
		fmt.Fprintf(out, "  %s\n", b)
		for _, f := range t.BlockFields(b) {
			fmt.Fprintf(out, "    %s\n", f)
		}
	}
	fmt.Fprintln(out, "\nIncludes:")
	for _, inc := range t.Includes() {
		fmt.Fprintf(out, "  %s\n", inc)
	}
	return nil
}

// openTemplate parses a file on disk, falling back to a template of set.
func openTemplate(set *template.Set, name string) (*template.Template, error) {
	src, err := os.ReadFile(name)
	if err == nil {
		return template.Parse(filepath.Base(name), string(src))
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	t, err := set.Lookup(filepath.ToSlash(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no template %q on disk or among the %s templates", name, settings.Target)
	}
	return t, err
}
