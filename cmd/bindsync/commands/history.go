package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/ledger"
	"github.com/ohmree/bindsync/logger"
)

// HistoryCmd shows recorded run history from the ledger.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded run history",
	Long: `Show the most recent pipeline runs recorded in the ledger, newest
first. Use --run to expand one run into its per-platform sessions.

Examples:
  bindsync history
  bindsync history --limit 5
  bindsync history --run 3f2c9a1e-...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Ledger.Path == "" {
			return errors.New("ledger is disabled: set ledger.path in the configuration")
		}

		store, err := ledger.Open(cfg.Ledger.Path, logger.Logger)
		if err != nil {
			return err
		}
		defer store.Close()

		jsonOutput, _ := cmd.Flags().GetBool("json")

		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			return showSessions(cmd, store, runID, jsonOutput)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.History(limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			out, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		if len(runs) == 0 {
			pterm.Info.Println("No runs recorded yet")
			return nil
		}

		rows := pterm.TableData{{"Run", "Revision", "Started", "Published", "No-ops", "Failed"}}
		for _, r := range runs {
			rows = append(rows, []string{
				shortID(r.RunID), shortID(r.Revision),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				fmt.Sprintf("%d", r.Published),
				fmt.Sprintf("%d", r.NoOps),
				fmt.Sprintf("%d", r.Failed),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func showSessions(cmd *cobra.Command, store *ledger.Store, runID string, jsonOutput bool) error {
	sessions, err := store.SessionsForRun(runID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return errors.Newf("no sessions recorded for run %s", runID)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	rows := pterm.TableData{{"Platform", "Stage", "Outcome", "Commit", "Duration"}}
	for _, s := range sessions {
		outcome := "published"
		switch {
		case s.ErrorKind != "":
			outcome = "failed (" + s.ErrorKind + ")"
		case s.NoOp:
			outcome = "up to date"
		}
		rows = append(rows, []string{
			s.Platform, s.Stage, outcome, shortID(s.CommitID),
			fmt.Sprintf("%dms", s.DurationMS),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	HistoryCmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	HistoryCmd.Flags().String("run", "", "Show per-platform sessions for one run ID")
}
