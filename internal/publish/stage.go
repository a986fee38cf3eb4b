// Package publish synchronizes verified candidate artifacts into the shared
// mainline using optimistic concurrency with bounded retry.
package publish

// Stage is the publish controller's per-platform state.
// Transitions: Diffing -> Committing -> Pushing -> (Retrying)* -> Done | Failed.
type Stage string

const (
	StageDiffing    Stage = "diffing"
	StageCommitting Stage = "committing"
	StagePushing    Stage = "pushing"
	StageRetrying   Stage = "retrying"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Terminal reports whether the stage ends the state machine.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
