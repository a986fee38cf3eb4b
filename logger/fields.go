package logger

import "go.uber.org/zap"

// Standard field names for consistent structured logging across bindsync.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID    = "run_id"
	FieldPlatform = "platform"
	FieldRevision = "revision"

	// Pipeline stages
	FieldStage     = "stage"
	FieldAttempt   = "attempt"
	FieldCommitID  = "commit_id"
	FieldArtifact  = "artifact_path"
	FieldComponent = "component"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"
)

// ForSession scopes a logger to one platform session. All entries carry the
// run id and platform identity so concurrent session logs can be untangled
// after the fact.
func ForSession(base *zap.SugaredLogger, runID, platform string) *zap.SugaredLogger {
	return base.With(FieldRunID, runID, FieldPlatform, platform)
}

// ForComponent attaches a component field to a logger.
func ForComponent(base *zap.SugaredLogger, name string) *zap.SugaredLogger {
	return base.With(FieldComponent, name)
}
