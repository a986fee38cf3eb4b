package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/logger"
)

// RunCmd executes the full pipeline: generate, verify, and publish across
// the configured platform matrix.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Regenerate, verify, and publish bindings for all platforms",
	Long: `Execute the full pipeline across the platform matrix.

Each platform runs as an isolated session: generate a candidate from the
pinned source revision, verify it against the test suite, then publish it
to the wrapper repository mainline. Sessions fail independently; the
command reports mixed outcomes and exits non-zero if any session failed.

Re-running after a fully successful run is a no-op: candidates identical
to the mainline content are never committed.

Examples:
  bindsync run                      # Full matrix
  bindsync run --platform linux     # Single platform
  bindsync run --platform linux --platform darwin
  bindsync run --json               # Machine-readable results`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		platforms, err := selectPlatforms(cmd, cfg)
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if !jsonOutput {
			pterm.DefaultHeader.WithFullWidth().Printf("bindsync run - %d platform(s)", len(platforms))
			pterm.Println()
		}

		results, err := runMatrix(cmd.Context(), cfg, platforms, nil, logger.Logger)
		if err != nil {
			return err
		}

		if err := printResults(cmd, results); err != nil {
			return err
		}
		return exitError(results)
	},
}

func init() {
	RunCmd.Flags().StringSlice("platform", nil, "Limit the run to specific platforms (repeatable)")
}
