package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
	"github.com/ohmree/bindsync/internal/publish"
	"github.com/ohmree/bindsync/logger"
)

// PublishCmd publishes a previously generated artifact for one platform,
// bypassing generation and verification. Intended for re-landing a candidate
// produced by `bindsync generate` after manual inspection.
var PublishCmd = &cobra.Command{
	Use:   "publish <artifact-file>",
	Short: "Publish a previously generated artifact",
	Long: `Publish a single artifact file to the wrapper repository mainline.

The artifact is diffed against the current mainline content at the
platform's path; identical content is a no-op. Under contention with other
writers the push is retried from the new tip, up to the configured retry
budget.

Examples:
  bindsync publish ./out/linux/miniaudio.go --platform linux`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		platformName, _ := cmd.Flags().GetString("platform")
		if platformName == "" {
			return errors.New("--platform is required")
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read artifact %s", args[0])
		}

		pin, err := config.LoadPin(cfg.Source.PinFile)
		if err != nil {
			return err
		}

		log := logger.Logger
		remote, err := publish.OpenGitRemote(cfg.Publish, log)
		if err != nil {
			return err
		}

		artifact := &generate.Artifact{
			Platform: platformName,
			Revision: pin.Revision,
			Bytes:    content,
		}

		controller := publish.NewController(cfg.Publish, remote, log)
		result, err := controller.Publish(cmd.Context(), artifact, cfg.Publish.ArtifactPath(platformName))
		if err != nil {
			return err
		}

		if result.NoOp {
			pterm.Success.Printf("%s: mainline already has this content\n", platformName)
		} else {
			pterm.Success.Printf("%s: published as %s\n", platformName, result.CommitID)
		}
		return nil
	},
}

func init() {
	PublishCmd.Flags().String("platform", "", "Platform the artifact belongs to (required)")
}
