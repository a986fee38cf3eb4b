// Package pipeline fans a binding regeneration run out across the platform
// matrix and collects per-platform results.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ohmree/bindsync/internal/generate"
	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/internal/source"
	"github.com/ohmree/bindsync/logger"
)

// Deps are the injected capabilities a run needs. Modeling the external
// tools as interfaces keeps the coordinator and sessions unit-testable
// without real toolchains or network access.
type Deps struct {
	Generator    generate.Generator
	Verifier     Verifier
	Publisher    Publisher
	ArtifactPath func(platform string) string
	Canonicalize bool
}

// Coordinator launches one Generation Session per platform target in
// parallel. Sessions share only the read-only source tree and the publish
// remote; a failure in one never blocks, cancels, or delays the others.
type Coordinator struct {
	targets []platform.Target
	tree    *source.Tree
	deps    Deps
	log     *zap.SugaredLogger
}

// NewCoordinator builds a coordinator for one run over a pinned source tree.
func NewCoordinator(targets []platform.Target, tree *source.Tree, deps Deps, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{
		targets: targets,
		tree:    tree,
		deps:    deps,
		log:     log,
	}
}

// Run executes the full matrix and returns one result per target, in target
// order. Partial success is expected: some platforms may publish while
// others fail.
func (c *Coordinator) Run(ctx context.Context) []*Result {
	runID := uuid.NewString()

	c.log.Infow("Starting matrix run",
		logger.FieldRunID, runID,
		logger.FieldRevision, c.tree.Revision,
		"platforms", len(c.targets))

	results := make([]*Result, len(c.targets))

	var wg sync.WaitGroup
	for i, target := range c.targets {
		wg.Add(1)
		go func(i int, target platform.Target) {
			defer wg.Done()

			session := &Session{
				runID:        runID,
				target:       target,
				tree:         c.tree,
				generator:    c.deps.Generator,
				verifier:     c.deps.Verifier,
				publisher:    c.deps.Publisher,
				artifactPath: c.deps.ArtifactPath(target.String()),
				canonicalize: c.deps.Canonicalize,
				log:          logger.ForSession(c.log, runID, target.String()),
			}

			results[i] = session.Run(ctx)
		}(i, target)
	}
	wg.Wait()

	summary := Summarize(results)
	c.log.Infow("Matrix run finished",
		logger.FieldRunID, runID,
		"published", len(summary.Published),
		"no_ops", len(summary.NoOps),
		"failed", len(summary.Failed))

	return results
}
