package services

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is; handlers flatten these into static messages.
var (
	// ErrValidation covers malformed input and extraction output that violates its schema.
	ErrValidation = errors.New("validation error")
	// ErrAuth means an identity was presented but could not be resolved to an active account.
	ErrAuth = errors.New("auth error")
	// ErrPersistence covers storage failures, including inserts that return no row.
	ErrPersistence = errors.New("persistence error")
	// ErrUpstream covers failures of the completion service.
	ErrUpstream = errors.New("upstream service error")

	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrNoIdentity         = errors.New("no authenticated identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ErrEntryRequired is returned when a submitted transcript is blank after trimming.
var ErrEntryRequired = fmt.Errorf("%w: journal entry is required", ErrValidation)

// stageError records which pipeline stage produced err.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

// stageOf returns the stage recorded on err, or "" if none.
func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return ""
}
