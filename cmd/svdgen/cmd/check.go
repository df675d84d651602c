package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/svdgen/pkg/emit"
)

var (
	checkAll       bool
	checkDst       string
	checkTarget    string
	checkTemplates string
	checkFormat    bool
	checkQuiet     bool
)

var checkCmd = &cobra.Command{
	Use:   "check <svd-file> [peripheral...]",
	Short: "Verify that generated bindings are up to date",
	Long: `Render the selected groups in memory and compare them with the files
under the destination directory. Missing or differing files are listed
with a line diff and the command fails.

Examples:
  svdgen check --all nrf52.svd -d src/pac
  svdgen check -q nrf52.svd uart -d src/pac`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addOutputFlags(checkCmd, &checkAll, &checkDst, &checkTarget, &checkTemplates, &checkFormat)
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "list stale files without diffs")
}

func runCheck(cmd *cobra.Command, args []string) error {
	names, err := selection(checkAll, args[1:])
	if err != nil {
		return err
	}

	dev, err := loadDevice(args[0])
	if err != nil {
		return err
	}

	diffs, report, err := emit.Check(dev, names, checkDst, settings.Emit())
	if err != nil {
		return err
	}
	for _, skipped := range report.Skipped {
		logger.Warn(skipped.Error())
	}

	out := cmd.OutOrStdout()
	if len(diffs) == 0 {
		fmt.Fprintf(out, "%d files up to date in %s\n", len(report.Files), checkDst)
		return nil
	}

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	header := color.New(color.Bold)
	for _, d := range diffs {
		if d.Missing {
			header.Fprintf(out, "missing: %s\n", d.Path)
			continue
		}
		header.Fprintf(out, "stale: %s\n", d.Path)
		if checkQuiet {
			continue
		}
		for _, line := range strings.SplitAfter(d.Diff, "\n") {
			switch {
			case strings.HasPrefix(line, "-"):
				removed.Fprint(out, line)
			case strings.HasPrefix(line, "+"):
				added.Fprint(out, line)
			default:
				fmt.Fprint(out, line)
			}
		}
	}
	return fmt.Errorf("%d of %d files out of date in %s", len(diffs), len(report.Files), checkDst)
}
