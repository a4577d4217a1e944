package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/nbody/engine/core"
)

var (
	configPath string // TOML or YAML configuration file
	logLevel   string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "nbody",
	Short: "GPU particle simulation sharing buffers between compute and graphics queues",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return core.SetLogLevel(logLevel)
	},
	SilenceUsage: true,
}

// Execute runs the CLI and exits with a non zero status on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "", "Log level (debug, info, warn, error, fatal)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collateCmd)
}
