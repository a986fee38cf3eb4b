package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ohmree/bindsync/errors"
	"github.com/ohmree/bindsync/internal/generate"
	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/internal/publish"
	"github.com/ohmree/bindsync/internal/source"
)

// Verifier gates candidates before they may be published.
type Verifier interface {
	Verify(ctx context.Context, artifact *generate.Artifact, artifactPath string) error
}

// Publisher lands verified candidates on the mainline.
type Publisher interface {
	Publish(ctx context.Context, artifact *generate.Artifact, artifactPath string) (*publish.Result, error)
}

// Session is one isolated generate -> verify -> publish attempt for a single
// platform. Sessions share nothing mutable with their siblings; all steps
// are synchronous within the session.
type Session struct {
	runID        string
	target       platform.Target
	tree         *source.Tree
	generator    generate.Generator
	verifier     Verifier
	publisher    Publisher
	artifactPath string
	canonicalize bool
	log          *zap.SugaredLogger
}

// Run drives the session to a terminal state. Every failure is local to
// this session: the returned Result carries the failing stage and error
// kind, and siblings are never affected.
func (s *Session) Run(ctx context.Context) *Result {
	start := time.Now()
	result := &Result{
		RunID:    s.runID,
		Platform: s.target.String(),
		Revision: s.tree.Revision,
	}

	artifact, err := s.generateCandidate(ctx)
	if err != nil {
		return s.fail(result, StageGenerating, err, start)
	}

	s.log.Infow("Candidate generated, entering verification",
		"stage", StageVerifying,
		"artifact_path", s.artifactPath)

	if err := s.verifier.Verify(ctx, artifact, s.artifactPath); err != nil {
		// The candidate is discarded here; it must never reach the
		// publish controller's diffing stage.
		return s.fail(result, StageVerifying, err, start)
	}

	pubResult, err := s.publisher.Publish(ctx, artifact, s.artifactPath)
	if err != nil {
		return s.fail(result, StagePublishing, err, start)
	}

	result.Stage = StageDone
	result.Published = !pubResult.NoOp
	result.NoOp = pubResult.NoOp
	result.CommitID = string(pubResult.CommitID)
	result.Duration = time.Since(start)

	s.log.Infow("Session finished",
		"stage", result.Stage,
		"published", result.Published,
		"no_op", result.NoOp,
		"commit_id", result.CommitID,
		"duration_ms", result.Duration.Milliseconds())

	return result
}

// generateCandidate resolves the platform config, invokes the generator,
// and canonicalizes the output into a candidate artifact.
func (s *Session) generateCandidate(ctx context.Context) (*generate.Artifact, error) {
	cfg, err := platform.Resolve(s.target, s.tree.Root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrGeneration, err.Error())
	}

	s.log.Debugw("Resolved generation config",
		"stage", StageGenerating,
		"defines", len(cfg.Defines),
		"include_paths", len(cfg.IncludePaths))

	raw, err := s.generator.Generate(ctx, cfg, s.tree)
	if err != nil {
		if errors.IsGenerationError(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrGeneration, err.Error())
	}

	artifact := generate.NewArtifact(s.target, s.tree.Revision, raw, s.canonicalize)

	// Unstable output would make every run look like a change and trigger
	// spurious publishes; refuse the candidate instead.
	if err := generate.CheckDeterministic(artifact.Bytes); err != nil {
		return nil, err
	}

	return artifact, nil
}

func (s *Session) fail(result *Result, stage string, err error, start time.Time) *Result {
	result.Stage = stage
	result.Err = err
	result.Error = err.Error()
	result.Kind = errorKind(err)
	result.Duration = time.Since(start)

	s.log.Errorw("Session failed",
		"stage", stage,
		"error_kind", result.Kind,
		"error", err.Error())

	return result
}
