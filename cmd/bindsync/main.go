package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/cmd/bindsync/commands"
	"github.com/ohmree/bindsync/logger"
)

var rootCmd = &cobra.Command{
	Use:   "bindsync",
	Short: "bindsync - Multi-platform FFI binding regeneration and publish pipeline",
	Long: `bindsync regenerates native library bindings for every target platform,
verifies each candidate against the test suite, and publishes verified
artifacts to the wrapper repository mainline.

Runs are idempotent: the same pinned source revision and configuration
always produce the same published state, and re-running after success is
a no-op. Platform sessions are isolated; one platform failing never blocks
the others.

Available commands:
  run      - Execute the full pipeline across the platform matrix
  generate - Generate binding candidates without verifying or publishing
  verify   - Generate and verify candidates without publishing
  publish  - Publish a previously generated artifact
  watch    - Watch the trigger surface and run the pipeline on changes
  pin      - Show or update the pinned source revision
  history  - Show recorded run history
  version  - Show version information

Examples:
  bindsync run                          # Regenerate, verify, publish all platforms
  bindsync run --platform linux         # Single platform
  bindsync generate --out ./out         # Inspect candidates without publishing
  bindsync pin set <revision> <version> # Bump the source pin
  bindsync watch                        # React to pin and config changes`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Structured JSON output")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: ./bindsync.toml)")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.PublishCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.PinCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
