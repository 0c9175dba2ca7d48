// Package cli implements the sei command-line interface on top of the
// pipeline services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/config/file"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sei",
	Short: "Automate the SEI case-management portal",
	Long: `sei drives the SEI web portal without a browser: it signs in,
activates the configured organisational unit, collects the case inbox,
optionally attaches each case's document tree and downloads rendered
case PDFs.

Credentials come from the config file or the SEI_USER, SEI_PASS and
SEI_ORGAO environment variables; the environment wins.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgPath, "config", "", "Config file path (default ~/.sei-cli/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "Enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadSettings reads the config file named by --config (or the default
// location) and applies the environment on top.
func loadSettings() (*file.Settings, error) {
	path := cfgPath
	if path == "" {
		path = file.DefaultPath()
	}
	settings, err := file.Load(path)
	if err != nil {
		return nil, err
	}
	if settings.Debug {
		logger.SetVerbose(true)
	}
	return settings, nil
}
