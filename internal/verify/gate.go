// Package verify runs the dependent test suite against candidate artifacts.
// Passing the gate is a mandatory precondition to publish.
package verify

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
)

// Runner executes the dependent test suite in a working directory.
type Runner interface {
	Run(ctx context.Context, workdir string) error
}

// Gate stages a candidate artifact into a scratch copy of the wrapper
// repository and runs verification there. Sessions verify concurrently, so
// the shared publish worktree is never touched: each verification gets its
// own copy with only its platform's candidate substituted.
type Gate struct {
	runner    Runner
	typecheck bool
	repoPath  string
	log       *zap.SugaredLogger
}

// NewGate builds a verification gate over the wrapper repository working copy.
func NewGate(cfg config.VerifyConfig, repoPath string, runner Runner, log *zap.SugaredLogger) *Gate {
	return &Gate{
		runner:    runner,
		typecheck: cfg.Typecheck,
		repoPath:  repoPath,
		log:       log,
	}
}

// Verify copies the wrapper repository to a scratch directory, substitutes
// the candidate at artifactPath there, and executes the suite. Any failure
// is a VerificationError; the candidate must then be discarded and nothing
// published for its platform.
func (g *Gate) Verify(ctx context.Context, artifact *generate.Artifact, artifactPath string) error {
	scratch, err := os.MkdirTemp("", "bindsync-verify-"+artifact.Platform+"-*")
	if err != nil {
		return errors.Wrap(err, "failed to create verification workdir")
	}
	defer os.RemoveAll(scratch)

	if err := copyTree(g.repoPath, scratch); err != nil {
		return errors.Wrapf(err, "failed to stage verification copy for %s", artifact.Platform)
	}

	candidatePath := filepath.Join(scratch, artifactPath)
	if err := os.MkdirAll(filepath.Dir(candidatePath), 0755); err != nil {
		return errors.Wrapf(err, "failed to substitute candidate for %s", artifact.Platform)
	}
	if err := os.WriteFile(candidatePath, artifact.Bytes, 0644); err != nil {
		return errors.Wrapf(err, "failed to substitute candidate for %s", artifact.Platform)
	}

	start := time.Now()

	if g.typecheck {
		if err := typecheckDir(filepath.Dir(candidatePath)); err != nil {
			return errors.Wrapf(errors.ErrVerification,
				"candidate for %s does not type-check: %v", artifact.Platform, err)
		}
	}

	if err := g.runner.Run(ctx, scratch); err != nil {
		return errors.Wrapf(errors.ErrVerification,
			"test suite failed for %s: %v", artifact.Platform, err)
	}

	g.log.Infow("Candidate passed verification",
		"platform", artifact.Platform,
		"duration_ms", time.Since(start).Milliseconds())

	return nil
}

// copyTree copies the repository worktree into dst, skipping the .git
// directory. The suite runs against files, not history.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
