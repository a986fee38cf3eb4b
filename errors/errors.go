// Package errors provides error handling for bindsync.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrVerification) {
//	    // handle failed gate
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Pipeline error taxonomy. Every error is local to the platform session that
// produced it; none is ever surfaced to sibling sessions. Wrap these with
// errors.Wrap() to add context while preserving the kind.
var (
	// ErrGeneration indicates the binding generator rejected the config or
	// source tree. Fatal to the platform session; no candidate is produced.
	ErrGeneration = New("binding generation failed")

	// ErrVerification indicates the dependent test suite failed against the
	// candidate artifact. The candidate is discarded, nothing is published.
	ErrVerification = New("candidate verification failed")

	// ErrIntegrationConflict indicates the push race against the mainline was
	// still unresolved after the retry budget ran out. A fresh run is required.
	ErrIntegrationConflict = New("mainline integration conflict")

	// ErrContentConflict indicates overlapping edits were found on a
	// platform's artifact path. This violates the disjointness invariant and
	// is a hard integration error, never resolved automatically.
	ErrContentConflict = New("artifact content conflict")
)

// IsGenerationError checks if an error is or wraps ErrGeneration
func IsGenerationError(err error) bool {
	return err != nil && Is(err, ErrGeneration)
}

// IsVerificationError checks if an error is or wraps ErrVerification
func IsVerificationError(err error) bool {
	return err != nil && Is(err, ErrVerification)
}

// IsIntegrationConflictError checks if an error is or wraps ErrIntegrationConflict
func IsIntegrationConflictError(err error) bool {
	return err != nil && Is(err, ErrIntegrationConflict)
}

// IsContentConflictError checks if an error is or wraps ErrContentConflict
func IsContentConflictError(err error) bool {
	return err != nil && Is(err, ErrContentConflict)
}

// NewGenerationError creates a generation error with a formatted message
func NewGenerationError(format string, args ...interface{}) error {
	return Wrap(ErrGeneration, Newf(format, args...).Error())
}

// NewVerificationError creates a verification error with a formatted message
func NewVerificationError(format string, args ...interface{}) error {
	return Wrap(ErrVerification, Newf(format, args...).Error())
}
