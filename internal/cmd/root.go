// Package cmd defines the clv command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/r0tifer/Centralized-Log-Viewer/internal/config"
)

var (
	cfgFile   string
	outputFmt string
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "clv",
	Short: "clv — Centralized Log Viewer",
	Long: `clv tails log files under your configured directories, keeps a bounded
in-memory history per source, and filters it by regex, severity, and time
window. Structured payloads (JSON, XML, CSV) embedded in log lines are
detected and rendered as bounded previews.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "settings file (default: $XDG_CONFIG_HOME/clv/settings.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")
}

// loadConfig reads and validates the settings file named by --config, or the
// standard search path when the flag is empty.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return cfg, nil
}
