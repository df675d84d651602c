package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/svdgen/pkg/dump"
	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

var (
	dumpModel    bool
	dumpEncoding string
)

var dumpCmd = &cobra.Command{
	Use:   "dump <svd-file>",
	Short: "Dump the description tree or device model",
	Long: `Dump the normalized description tree, or with --model the built device
model, as a structured document on stdout.

Examples:
  svdgen dump nrf52.svd
  svdgen dump --model -e json nrf52.svd
  svdgen dump -e cbor nrf52.svd > nrf52.cbor`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().BoolVarP(&dumpModel, "model", "m", false, "dump the device model instead of the raw tree")
	dumpCmd.Flags().StringVarP(&dumpEncoding, "encoding", "e", "yaml",
		fmt.Sprintf("document encoding (%s)", strings.Join(dump.Formats(), ", ")))
}

func runDump(cmd *cobra.Command, args []string) error {
	format, err := dump.ParseFormat(dumpEncoding)
	if err != nil {
		return err
	}

	if dumpModel {
		dev, err := loadDevice(args[0])
		if err != nil {
			return err
		}
		return dump.Model(cmd.OutOrStdout(), dev, format)
	}

	path, err := settings.ResolveInput(args[0])
	if err != nil {
		return err
	}
	doc, err := svd.Load(path, settings.LoadOptions())
	if err != nil {
		return err
	}
	return dump.Raw(cmd.OutOrStdout(), doc, format)
}
