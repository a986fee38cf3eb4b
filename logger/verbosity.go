package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// These levels control what categories of output are shown, not just log
// severity. Per-platform session results and errors are always shown.
const (
	VerbosityUser  = 0 // No flags: per-platform outcomes and errors only
	VerbosityInfo  = 1 // -v: + stage transitions, run progress, config summary
	VerbosityDebug = 2 // -vv: + resolved generation configs, diff stats, retry attempts
	VerbosityTrace = 3 // -vvv: + generator/test-runner stdout, git plumbing detail
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
// Mapping:
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel  (+ informational messages)
//	2+ (-vv)  -> DebugLevel (zap has no finer levels; tracked for custom behavior)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case VerbosityUser:
		return zapcore.WarnLevel
	case VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
