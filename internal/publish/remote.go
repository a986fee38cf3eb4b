package publish

import (
	"context"

	"github.com/ohmree/bindsync/errors"
)

// CommitID identifies a mainline commit.
type CommitID string

// Change is a single-path artifact update to land on the mainline. Each
// platform session only ever changes its own artifact path; that
// disjointness is what makes concurrent publishes conflict-free.
type Change struct {
	Path    string
	Content []byte
	Message string
}

// ErrTipMoved is returned by Push when the mainline tip advanced past the
// base the change was built on. The caller re-fetches and retries; this is
// the expected ref-update race between sibling sessions, not a failure.
var ErrTipMoved = errors.New("mainline tip moved")

// Remote is the versioned mainline store. The shared branch mutated by
// concurrent workers is global mutable state; sessions access it only
// through this compare-and-swap surface, never through a held lock.
type Remote interface {
	// Fetch returns the current mainline tip.
	Fetch(ctx context.Context) (CommitID, error)

	// Artifact returns the published content at path as of tip, and whether
	// the path exists at all.
	Artifact(ctx context.Context, tip CommitID, path string) ([]byte, bool, error)

	// Push lands the change on top of base and returns the new tip. If the
	// mainline tip is no longer base, it returns ErrTipMoved and publishes
	// nothing.
	Push(ctx context.Context, base CommitID, change Change) (CommitID, error)
}
