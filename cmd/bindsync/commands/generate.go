package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/logger"
)

// GenerateCmd produces binding candidates without verifying or publishing,
// for inspecting generator output locally.
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate binding candidates without verifying or publishing",
	Long: `Generate canonicalized binding candidates for the selected platforms and
write them under the output directory, one subdirectory per platform.

Nothing is verified or published; this is a local inspection tool. The
output layout mirrors the artifact layout in the wrapper repository.

Examples:
  bindsync generate --out ./out
  bindsync generate --out ./out --platform windows`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		platforms, err := selectPlatforms(cmd, cfg)
		if err != nil {
			return err
		}
		targets, err := platform.Targets(platforms)
		if err != nil {
			return err
		}

		outDir, _ := cmd.Flags().GetString("out")

		log := logger.Logger
		tree, pin, err := checkout(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}

		pterm.Info.Printf("Generating from %s (%s)\n", shortID(pin.Revision), pin.Version)

		generator := generate.NewExecGenerator(cfg.Generator, log)
		for _, target := range targets {
			genCfg, err := platform.Resolve(target, tree.Root)
			if err != nil {
				return err
			}

			raw, err := generator.Generate(cmd.Context(), genCfg, tree)
			if err != nil {
				return err
			}

			artifact := generate.NewArtifact(target, tree.Revision, raw, cfg.Generator.Canonicalize)
			if err := generate.CheckDeterministic(artifact.Bytes); err != nil {
				return err
			}

			dest := filepath.Join(outDir, target.String(), "miniaudio.go")
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return errors.Wrapf(err, "failed to create output directory for %s", target)
			}
			if err := os.WriteFile(dest, artifact.Bytes, 0o644); err != nil {
				return errors.Wrapf(err, "failed to write candidate for %s", target)
			}

			pterm.Success.Printf("%s: %s (%d bytes)\n", target, dest, len(artifact.Bytes))
		}

		return nil
	},
}

func init() {
	GenerateCmd.Flags().String("out", "./out", "Output directory for generated candidates")
	GenerateCmd.Flags().StringSlice("platform", nil, "Limit generation to specific platforms (repeatable)")
}
