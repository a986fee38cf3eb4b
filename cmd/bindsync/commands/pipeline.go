package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
	"github.com/ohmree/bindsync/internal/ledger"
	"github.com/ohmree/bindsync/internal/pipeline"
	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/internal/publish"
	"github.com/ohmree/bindsync/internal/source"
	"github.com/ohmree/bindsync/internal/verify"
)

// loadConfig resolves configuration for a command, honoring the --config
// persistent flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// selectPlatforms narrows the configured matrix when --platform was given.
func selectPlatforms(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	selected, _ := cmd.Flags().GetStringSlice("platform")
	if len(selected) == 0 {
		return cfg.Platforms, nil
	}
	configured := map[string]bool{}
	for _, p := range cfg.Platforms {
		configured[p] = true
	}
	for _, p := range selected {
		if !configured[p] {
			return nil, errors.Newf("platform %q is not in the configured matrix %v", p, cfg.Platforms)
		}
	}
	return selected, nil
}

// checkout loads the pin and materializes the pinned source tree.
func checkout(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*source.Tree, *config.Pin, error) {
	pin, err := config.LoadPin(cfg.Source.PinFile)
	if err != nil {
		return nil, nil, err
	}

	provider := source.NewGetterProvider(cfg.Source, log)
	tree, err := provider.Checkout(ctx, pin)
	if err != nil {
		return nil, nil, err
	}
	return tree, pin, nil
}

// discardPublisher satisfies the publish stage without touching any remote.
// Used by verify-only flows, where candidates are gated and then dropped.
type discardPublisher struct{}

func (discardPublisher) Publish(ctx context.Context, artifact *generate.Artifact, path string) (*publish.Result, error) {
	return &publish.Result{Stage: publish.StageDone, NoOp: true}, nil
}

// runMatrix executes the pipeline over the selected platforms. When
// publisher is nil the real git-backed controller is used.
func runMatrix(ctx context.Context, cfg *config.Config, platforms []string, publisher pipeline.Publisher, log *zap.SugaredLogger) ([]*pipeline.Result, error) {
	targets, err := platform.Targets(platforms)
	if err != nil {
		return nil, err
	}

	tree, _, err := checkout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if publisher == nil {
		remote, err := publish.OpenGitRemote(cfg.Publish, log)
		if err != nil {
			return nil, err
		}
		publisher = publish.NewController(cfg.Publish, remote, log)
	}

	runner := verify.NewExecRunner(cfg.Verify, log)
	coord := pipeline.NewCoordinator(targets, tree, pipeline.Deps{
		Generator:    generate.NewExecGenerator(cfg.Generator, log),
		Verifier:     verify.NewGate(cfg.Verify, cfg.Publish.RepoPath, runner, log),
		Publisher:    publisher,
		ArtifactPath: cfg.Publish.ArtifactPath,
		Canonicalize: cfg.Generator.Canonicalize,
	}, log)

	started := time.Now()
	results := coord.Run(ctx)

	if cfg.Ledger.Path != "" {
		store, err := ledger.Open(cfg.Ledger.Path, log)
		if err != nil {
			log.Warnw("Run completed but ledger is unavailable", "error", err)
			return results, nil
		}
		defer store.Close()
		if err := store.RecordRun(tree.Revision, started, results); err != nil {
			log.Warnw("Failed to record run in ledger", "error", err)
		}
	}

	return results, nil
}

// printResults renders per-platform outcomes, either as pterm tables or as
// a JSON document for scripting.
func printResults(cmd *cobra.Command, results []*pipeline.Result) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal results")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	rows := pterm.TableData{{"Platform", "Outcome", "Stage", "Commit", "Duration"}}
	for _, r := range results {
		outcome := "published"
		switch {
		case r.Failed():
			outcome = "failed (" + r.Kind + ")"
		case r.NoOp:
			outcome = "up to date"
		}
		commit := r.CommitID
		if len(commit) > 8 {
			commit = commit[:8]
		}
		rows = append(rows, []string{
			r.Platform, outcome, r.Stage, commit,
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	summary := pipeline.Summarize(results)
	switch {
	case len(summary.Failed) > 0:
		pterm.Error.Printf("%d platform(s) failed: %v\n", len(summary.Failed), summary.Failed)
	case len(summary.Published) == 0:
		pterm.Success.Println("All platforms already up to date")
	default:
		pterm.Success.Printf("Published %d platform(s): %v\n", len(summary.Published), summary.Published)
	}

	for _, r := range results {
		if r.Failed() {
			pterm.Println()
			pterm.Error.Printf("%s: %s\n", r.Platform, r.Error)
		}
	}
	return nil
}

// exitError turns failed sessions into a command error so the process exit
// code reflects the run outcome.
func exitError(results []*pipeline.Result) error {
	summary := pipeline.Summarize(results)
	if len(summary.Failed) > 0 {
		return errors.Newf("%d of %d platform session(s) failed", len(summary.Failed), len(results))
	}
	return nil
}
