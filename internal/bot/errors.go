package bot

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed invocation (empty question, bad
// persona). Rejected before any provider call; no side effects.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// GenerationError reports a completion-provider failure or a malformed
// forced tool call. Surfaced to the caller; no thread state is committed,
// so the caller may retry the whole turn.
type GenerationError struct {
	Stage string // "query" or "generate"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// CheckpointError reports a checkpoint-store failure. Surfaced: the
// orchestrator never proceeds with a guessed history, and never reports
// success for a turn whose state did not persist.
type CheckpointError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s failed: %v", e.Op, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGeneration reports whether err is a GenerationError.
func IsGeneration(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsCheckpoint reports whether err is a CheckpointError.
func IsCheckpoint(err error) bool {
	var ce *CheckpointError
	return errors.As(err, &ce)
}
