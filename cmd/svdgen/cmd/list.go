package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listInstances bool

var listCmd = &cobra.Command{
	Use:   "list <svd-file>",
	Short: "List the peripheral groups of a description",
	Long: `List the peripheral group names a description defines, one per line.
These are the names generate and check accept.

Examples:
  svdgen list nrf52.svd
  svdgen list --instances nrf52.svd`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&listInstances, "instances", "i", false,
		"show the peripheral instances of each group")
}

func runList(cmd *cobra.Command, args []string) error {
	dev, err := loadDevice(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range dev.GroupNames() {
		if !listInstances {
			fmt.Fprintln(out, name)
			continue
		}
		g := dev.Groups[name]
		var parts []string
		for _, inst := range g.InstanceNames() {
			parts = append(parts, fmt.Sprintf("%s@%#08x", inst, g.Instances[inst].BaseAddress))
		}
		fmt.Fprintf(out, "%-16s %s\n", name, strings.Join(parts, " "))
	}
	return nil
}
