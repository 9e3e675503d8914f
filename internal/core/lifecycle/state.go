// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"errors"
	"fmt"
)

const (
	// StateCreated indicates the instance exists but Open has not been called.
	StateCreated State = iota
	// StateOpening indicates Open is opening listeners.
	StateOpening
	// StateRunning indicates listeners are open and the run routine was launched.
	StateRunning
	// StateClosing indicates Close is draining the run routine and listeners.
	StateClosing
	// StateClosed is terminal: the instance shut down through Close or a failed Open.
	StateClosed
	// StateAborted is terminal: the instance was torn down through Abort.
	StateAborted
)

var (
	// ErrInvalidState is returned when a State value is not one of the defined lifecycle states.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidTransition is returned when a transition is attempted from the wrong state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

type (
	// State represents the lifecycle state of an instance.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}

	// TransitionError is returned when an operation is invoked in a state
	// that does not allow it. It wraps ErrInvalidTransition.
	TransitionError struct {
		Op      string
		Current State
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Validate returns nil if the State is one of the defined lifecycle states,
// or an error wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateOpening, StateRunning, StateClosing, StateClosed, StateAborted:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal returns true for Closed and Aborted.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateAborted
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=created, 1=opening, 2=running, 3=closing, 4=closed, 5=aborted)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Error implements the error interface for TransitionError.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s instance in state %s", e.Op, e.Current)
}

// Unwrap returns ErrInvalidTransition for errors.Is() compatibility.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
