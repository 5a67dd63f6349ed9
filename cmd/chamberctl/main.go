package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chamberctl",
	Short: "Mushroom cultivation chamber control tool",
	Long: `Command-line tool for mushroom cultivation chambers over BLE:

- Scan for chambers and inspect their advertisements
- Show live sensor readings, setpoints, and cultivation stage
- Watch the environment and status notification streams
- Update control targets, stage, overrides, and threshold profiles
- Backfill readings missed while disconnected via the HTTP history endpoint

Chambers are found automatically by advertisement; pass --address to pin one.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(overrideCmd)
	rootCmd.AddCommand(thresholdsCmd)
	rootCmd.AddCommand(backfillCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Shorthand for --log-level debug")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringP("address", "a", "", "Chamber BLE address (scans for one when empty)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
