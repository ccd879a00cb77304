package spi

import (
	"errors"
	"fmt"
)

// UnrecoverableStreamFailure is the pipeline's sole abort signal. The first
// one raised anywhere in the pipeline wins and is the error surfaced from
// Run/RunContext; a later one raised during Close supersedes it.
type UnrecoverableStreamFailure struct {
	Stage string
	Err   error
}

func (e *UnrecoverableStreamFailure) Error() string {
	return fmt.Sprintf("pocketetl: unrecoverable failure in stage %q: %v", e.Stage, e.Err)
}

func (e *UnrecoverableStreamFailure) Unwrap() error { return e.Err }

// Unrecoverable wraps err as an UnrecoverableStreamFailure attributed to
// stage, unless err already is one (in which case its original stage
// attribution is preserved).
func Unrecoverable(stage string, err error) error {
	var existing *UnrecoverableStreamFailure
	if errors.As(err, &existing) {
		return existing
	}
	return &UnrecoverableStreamFailure{Stage: stage, Err: err}
}

// IsUnrecoverable reports whether err is (or wraps) an
// UnrecoverableStreamFailure.
func IsUnrecoverable(err error) bool {
	var u *UnrecoverableStreamFailure
	return errors.As(err, &u)
}

// MisuseError signals a build/run-time API contract violation: adding a
// stage to a terminated chain, running an unterminated chain, or closing a
// consumer more times than it was opened. It is always raised synchronously
// on the calling goroutine, never from a worker.
type MisuseError struct {
	Msg string
}

func (e *MisuseError) Error() string { return "pocketetl: misuse: " + e.Msg }

var (
	// ErrNotTerminated is returned by Run/RunContext when called on a chain
	// whose last stage is not a loader.
	ErrNotTerminated = &MisuseError{Msg: "chain is not terminated: call Load before Run"}
	// ErrAlreadyTerminated is returned by Then/Load when asked to extend a
	// chain that is already terminated.
	ErrAlreadyTerminated = &MisuseError{Msg: "cannot add a stage to a terminated chain"}
	// ErrNoExtractors is returned by Extract when given zero extractors.
	ErrNoExtractors = &MisuseError{Msg: "extract requires at least one extractor"}
	// ErrCombineTooFew is returned by Combine when given fewer than two chains.
	ErrCombineTooFew = &MisuseError{Msg: "combine requires at least two chains"}
	// ErrCloseWithoutOpen is returned by Smart.Close when Close is called
	// more times than Open.
	ErrCloseWithoutOpen = &MisuseError{Msg: "close called without a matching open"}
)
