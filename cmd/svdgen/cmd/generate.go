package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/svdgen/pkg/emit"
)

var (
	genAll       bool
	genDst       string
	genTarget    string
	genTemplates string
	genFormat    bool
)

var generateCmd = &cobra.Command{
	Use:     "generate <svd-file> [peripheral...]",
	Aliases: []string{"gen"},
	Short:   "Generate register bindings",
	Long: `Generate register binding sources for the named peripheral groups, or
for every group with --all. Names match group names case-insensitively;
unknown names are reported and skipped.

Nothing is written unless every file renders.

Examples:
  svdgen generate nrf52.svd uart timer -d src/pac
  svdgen generate --all --target go nrf52.svd -d pac
  svdgen generate --all --templates ./tpl nrf52.svd -d src/pac`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addOutputFlags(generateCmd, &genAll, &genDst, &genTarget, &genTemplates, &genFormat)
}

// addOutputFlags registers the flags shared by generate and check.
func addOutputFlags(c *cobra.Command, all *bool, dst, target, templates *string, format *bool) {
	c.Flags().BoolVarP(all, "all", "a", false, "select every peripheral group")
	c.Flags().StringVarP(dst, "dst", "d", "", "destination directory (required)")
	c.Flags().StringVarP(target, "target", "t", "rust", fmt.Sprintf("output language (%s)", joinTargets()))
	c.Flags().StringVar(templates, "templates", "", "directory of templates overriding the built-in ones")
	c.Flags().BoolVar(format, "format", true, "format generated sources where the target supports it")
	_ = c.MarkFlagRequired("dst")
}

func joinTargets() string { return strings.Join(emit.Targets(), ", ") }

func runGenerate(cmd *cobra.Command, args []string) error {
	names, err := selection(genAll, args[1:])
	if err != nil {
		return err
	}

	dev, err := loadDevice(args[0])
	if err != nil {
		return err
	}

	cfg := settings.Emit()
	logger.Debug("generating", "target", cfg.Target, "dst", genDst)
	report, err := emit.Emit(dev, names, emit.DirSink{Root: genDst}, cfg)
	if err != nil {
		return err
	}

	for _, skipped := range report.Skipped {
		logger.Warn(skipped.Error())
	}
	for _, f := range report.Files {
		logger.Debug("wrote", "file", f)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d files for %d peripheral group(s) in %s\n",
		len(report.Files), len(report.Groups), genDst)
	return nil
}
