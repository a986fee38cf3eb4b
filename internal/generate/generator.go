// Package generate invokes the external binding generator and shapes its
// output into candidate artifacts.
package generate

import (
	"context"

	"github.com/ohmree/bindsync/internal/platform"
	"github.com/ohmree/bindsync/internal/source"
)

// Generator is the binding generation capability. The header parser itself
// is an external tool; this interface is all the pipeline knows about it.
type Generator interface {
	// Generate produces binding source bytes for one platform config against
	// the pinned source tree. A non-nil error means no candidate exists for
	// that platform.
	Generate(ctx context.Context, cfg *platform.GenConfig, tree *source.Tree) ([]byte, error)
}

// Artifact is a candidate binding: generator output after canonicalization,
// tagged with the platform and source revision that produced it. It is a
// deterministic function of (revision, config).
type Artifact struct {
	Platform string
	Revision string
	Bytes    []byte
}

// NewArtifact canonicalizes raw generator output into a candidate artifact.
func NewArtifact(target platform.Target, revision string, raw []byte, canonicalize bool) *Artifact {
	bytes := raw
	if canonicalize {
		bytes = Canonicalize(raw)
	}
	return &Artifact{
		Platform: target.String(),
		Revision: revision,
		Bytes:    bytes,
	}
}
