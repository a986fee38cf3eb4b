package pipeline

import (
	"time"

	"github.com/ohmree/bindsync/errors"
)

// Stage names for session reporting. Generation and verification precede
// the publish controller's own state machine.
const (
	StageGenerating = "generating"
	StageVerifying  = "verifying"
	StagePublishing = "publishing"
	StageDone       = "done"
)

// Result is the outcome of one platform session. Sessions fail
// independently; a run's results routinely mix successes and failures.
type Result struct {
	RunID     string        `json:"run_id"`
	Platform  string        `json:"platform"`
	Revision  string        `json:"revision"`
	Stage     string        `json:"stage"` // terminal stage, or the stage that failed
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
	Kind      string        `json:"error_kind,omitempty"`
	Published bool          `json:"published"`
	NoOp      bool          `json:"no_op"`
	CommitID  string        `json:"commit_id,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Failed reports whether the session ended in a failure state.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// errorKind maps an error to its taxonomy name for reporting.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.IsGenerationError(err):
		return "generation"
	case errors.IsVerificationError(err):
		return "verification"
	case errors.IsIntegrationConflictError(err):
		return "integration_conflict"
	case errors.IsContentConflictError(err):
		return "content_conflict"
	default:
		return "internal"
	}
}

// Summary aggregates a run's per-platform results.
type Summary struct {
	Published []string
	NoOps     []string
	Failed    []string
}

// Summarize buckets results by outcome.
func Summarize(results []*Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Failed():
			s.Failed = append(s.Failed, r.Platform)
		case r.NoOp:
			s.NoOps = append(s.NoOps, r.Platform)
		default:
			s.Published = append(s.Published, r.Platform)
		}
	}
	return s
}
