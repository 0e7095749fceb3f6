// Package errs defines the error taxonomy shared across the pipelines.
// Errors are wrapped with fmt.Errorf("...: %w", ...) and checked with
// errors.Is at the call sites that decide propagation.
package errs

import "errors"

var (
	// ErrValidation marks bad input rejected before any side effect.
	ErrValidation = errors.New("validation error")

	// ErrUpstream marks a failed, timed out or malformed response from the
	// embedding/generation service.
	ErrUpstream = errors.New("upstream error")

	// ErrStorage marks an unreachable backing store or a rejected read/write.
	ErrStorage = errors.New("storage error")

	// ErrNotFound marks an operation against an entity that does not exist.
	ErrNotFound = errors.New("not found")
)
