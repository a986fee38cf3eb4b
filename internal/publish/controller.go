package publish

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ohmree/bindsync/config"
	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
	"github.com/ohmree/bindsync/logger"
)

// Controller runs the per-platform publish state machine:
// Diffing -> Committing -> Pushing -> (Retrying)* -> Done | Failed.
//
// Publishing is idempotent: a candidate identical to the published artifact
// terminates as a no-op without creating a commit. Under contention the
// controller retries CAS-style pushes within a fixed budget; it never holds
// a lock on the mainline.
type Controller struct {
	remote  Remote
	budget  int
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// Result reports the terminal state of one publish attempt.
type Result struct {
	Stage    Stage
	CommitID CommitID
	NoOp     bool
	Attempts int
}

// NewController builds a publish controller over a mainline remote.
func NewController(cfg config.PublishConfig, remote Remote, log *zap.SugaredLogger) *Controller {
	budget := cfg.RetryBudget
	if budget < 1 {
		budget = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.PushesPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.PushesPerMinute)/60.0), 1)
	}

	return &Controller{
		remote:  remote,
		budget:  budget,
		limiter: limiter,
		log:     log,
	}
}

// Publish lands a verified candidate at its platform-scoped path.
func (c *Controller) Publish(ctx context.Context, artifact *generate.Artifact, artifactPath string) (*Result, error) {
	// Diffing: compare the candidate against the published artifact
	c.log.Debugw("Publish controller entering [diffing]",
		logger.FieldPlatform, artifact.Platform,
		logger.FieldStage, string(StageDiffing),
		logger.FieldArtifact, artifactPath)

	tip, err := c.remote.Fetch(ctx)
	if err != nil {
		return &Result{Stage: StageFailed}, errors.Wrap(err, "failed to fetch mainline tip")
	}

	published, exists, err := c.remote.Artifact(ctx, tip, artifactPath)
	if err != nil {
		return &Result{Stage: StageFailed}, errors.Wrapf(err, "failed to read published artifact %s", artifactPath)
	}

	if exists && bytes.Equal(published, artifact.Bytes) {
		c.log.Infow("Artifact unchanged, nothing to publish",
			logger.FieldPlatform, artifact.Platform,
			logger.FieldArtifact, artifactPath)
		return &Result{Stage: StageDone, CommitID: tip, NoOp: true}, nil
	}

	// Committing: a single-path change labeled with the platform identity
	change := Change{
		Path:    artifactPath,
		Content: artifact.Bytes,
		Message: fmt.Sprintf("bindings(%s): regenerate from %s", artifact.Platform, shortRev(artifact.Revision)),
	}

	c.log.Debugw("Publish controller entering [committing]",
		logger.FieldPlatform, artifact.Platform,
		logger.FieldStage, string(StageCommitting))

	// Pushing with bounded CAS retry
	base := tip
	baseContent := published
	baseExists := exists

	for attempt := 1; attempt <= c.budget; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Result{Stage: StageFailed, Attempts: attempt}, errors.Wrap(err, "publish aborted")
		}

		start := time.Now()
		newTip, err := c.remote.Push(ctx, base, change)
		if err == nil {
			c.log.Infow("Published artifact",
				logger.FieldPlatform, artifact.Platform,
				logger.FieldArtifact, artifactPath,
				logger.FieldCommitID, string(newTip),
				logger.FieldAttempt, attempt,
				logger.FieldDurationMS, time.Since(start).Milliseconds())
			return &Result{Stage: StageDone, CommitID: newTip, Attempts: attempt}, nil
		}

		if !errors.Is(err, ErrTipMoved) {
			return &Result{Stage: StageFailed, Attempts: attempt}, errors.Wrap(err, "push failed")
		}

		// Retrying: a sibling advanced the tip. Re-fetch and rebase the
		// change onto the new tip.
		c.log.Debugw("Push rejected, mainline tip moved [retrying]",
			logger.FieldPlatform, artifact.Platform,
			logger.FieldStage, string(StageRetrying),
			logger.FieldAttempt, attempt)

		base, err = c.remote.Fetch(ctx)
		if err != nil {
			return &Result{Stage: StageFailed, Attempts: attempt}, errors.Wrap(err, "re-fetch after rejected push failed")
		}

		current, currentExists, err := c.remote.Artifact(ctx, base, change.Path)
		if err != nil {
			return &Result{Stage: StageFailed, Attempts: attempt}, errors.Wrap(err, "re-read after rejected push failed")
		}

		// Idempotence under races: someone already landed exactly this
		// content, so there is nothing left to publish.
		if currentExists && bytes.Equal(current, artifact.Bytes) {
			return &Result{Stage: StageDone, CommitID: base, NoOp: true, Attempts: attempt}, nil
		}

		// Disjointness check: our artifact path must be untouched between
		// attempts. Sibling platforms write disjoint paths, so an edit here
		// means overlapping writers and a broken invariant. Hard error.
		if currentExists != baseExists || !bytes.Equal(current, baseContent) {
			return &Result{Stage: StageFailed, Attempts: attempt},
				errors.Wrapf(errors.ErrContentConflict,
					"artifact path %s changed concurrently for platform %s", change.Path, artifact.Platform)
		}
	}

	return &Result{Stage: StageFailed, Attempts: c.budget},
		errors.Wrapf(errors.ErrIntegrationConflict,
			"push for %s still rejected after %d attempts", artifact.Platform, c.budget)
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
