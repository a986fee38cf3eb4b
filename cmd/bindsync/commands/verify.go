package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/logger"
)

// VerifyCmd runs generation and the verification gate but discards the
// candidates instead of publishing them.
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Generate and verify candidates without publishing",
	Long: `Run the pipeline through the verification gate and stop there.

Candidates are generated and verified exactly as in a full run, including
the candidate substitution into the wrapper repository worktree, but no
commit is ever created. Useful as a pre-flight before bumping the pin on
the mainline.

Examples:
  bindsync verify
  bindsync verify --platform darwin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		platforms, err := selectPlatforms(cmd, cfg)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); !jsonOutput {
			pterm.DefaultHeader.WithFullWidth().Printf("bindsync verify - %d platform(s)", len(platforms))
			pterm.Println()
		}

		results, err := runMatrix(cmd.Context(), cfg, platforms, discardPublisher{}, logger.Logger)
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
	VerifyCmd.Flags().StringSlice("platform", nil, "Limit verification to specific platforms (repeatable)")
}
