package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/svdgen/internal/config"
	"github.com/OpenTraceLab/svdgen/internal/log"
	"github.com/OpenTraceLab/svdgen/pkg/device"
	"github.com/OpenTraceLab/svdgen/pkg/svd"
)

var (
	// Global flags
	verbose        bool
	noColor        bool
	configFile     string
	groupConflicts string
	svdDir         string

	logger   *slog.Logger
	settings *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "svdgen",
	Short: "Register binding generator for CMSIS-SVD descriptions",
	Long: `svdgen reads a CMSIS-SVD hardware description and generates register
binding sources for its peripherals from templates.

Settings are read from svdgen.yaml (in the current directory or
~/.config/svdgen), SVDGEN_* environment variables and flags.

Examples:
  svdgen list nrf52.svd                          # List peripheral groups
  svdgen generate nrf52.svd uart timer -d out    # Generate two groups
  svdgen generate --all --target go nrf52.svd -d out
  svdgen check --all nrf52.svd -d out            # Verify generated files
  svdgen dump --model -e json nrf52.svd          # Inspect the device model
  svdgen template peripheral/registers.rs        # Inspect a template`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: svdgen.yaml)")
	rootCmd.PersistentFlags().StringVar(&groupConflicts, "group-conflicts", "error",
		"what to do when peripherals of one group differ: error or first")
	rootCmd.PersistentFlags().StringVar(&svdDir, "svd-dir", "",
		"directory searched for relative SVD paths that do not exist")
}

func setup(cmd *cobra.Command, _ []string) error {
	if noColor {
		color.NoColor = true
	}
	logger = log.New(os.Stderr, log.Options{Verbose: verbose, NoColor: noColor})

	var err error
	settings, err = config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if settings.File != "" {
		logger.Debug("loaded config", "file", settings.File)
	}
	return nil
}

// loadDevice reads the description at path and builds its model. Group
// conflicts resolved under the "first" policy are logged as warnings.
func loadDevice(path string) (*device.Device, error) {
	resolved, err := settings.ResolveInput(path)
	if err != nil {
		return nil, err
	}
	if resolved != path {
		logger.Debug("resolved input", "path", resolved)
	}

	doc, err := svd.Load(resolved, settings.LoadOptions())
	if err != nil {
		return nil, err
	}
	for _, c := range doc.Conflicts {
		logger.Warn("group members differ, keeping the first",
			"group", c.Group, "kept", c.Kept, "ignored", c.Ignored)
	}

	dev, err := device.Build(doc)
	if err != nil {
		return nil, err
	}
	logger.Debug("built device", "name", dev.Name, "groups", len(dev.Groups))
	return dev, nil
}

// selection returns the requested names, or nil for every group.
func selection(all bool, names []string) ([]string, error) {
	switch {
	case all && len(names) > 0:
		return nil, errors.New("--all cannot be combined with peripheral names")
	case all:
		return nil, nil
	case len(names) == 0:
		return nil, errors.New("no peripherals given (use --all to select every group)")
	}
	return names, nil
}
