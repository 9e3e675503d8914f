// SPDX-License-Identifier: MPL-2.0

package listener

import (
	"errors"
	"fmt"
	"sync/atomic"
)

const (
	// StateCreated indicates the listener has not been opened.
	StateCreated State = iota
	// StateOpened indicates the listener is accepting connections.
	StateOpened
	// StateClosed is terminal: the listener was closed or aborted.
	StateClosed
	// StateFaulted is terminal: opening or closing the listener failed.
	StateFaulted
)

var (
	// ErrInvalidListenerState is returned when a State value is not recognized.
	ErrInvalidListenerState = errors.New("invalid listener state")
	// ErrAlreadyOpened is returned by a second Open.
	ErrAlreadyOpened = errors.New("listener already opened")
	// ErrProtocolMismatch is returned when a named endpoint uses a protocol
	// the listener cannot serve.
	ErrProtocolMismatch = errors.New("endpoint protocol does not match listener")
	// ErrHostKey is returned when the SSH host key cannot be read or generated.
	ErrHostKey = errors.New("ssh host key unavailable")
)

type (
	// State is the lifecycle state of a single listener.
	State int32

	// InvalidListenerStateError is returned when a State value is not recognized.
	InvalidListenerStateError struct {
		Value State
	}

	// Base tracks listener state with lock-free transitions. Listener
	// implementations embed it.
	Base struct {
		state atomic.Int32
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateOpened:
		return "opened"
	case StateClosed:
		return "closed"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Validate returns nil if the State is one of the defined listener states.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateOpened, StateClosed, StateFaulted:
		return nil
	default:
		return &InvalidListenerStateError{Value: s}
	}
}

// Error implements the error interface for InvalidListenerStateError.
func (e *InvalidListenerStateError) Error() string {
	return fmt.Sprintf("invalid listener state %d (valid: 0=created, 1=opened, 2=closed, 3=faulted)", e.Value)
}

// Unwrap returns ErrInvalidListenerState for errors.Is() compatibility.
func (e *InvalidListenerStateError) Unwrap() error { return ErrInvalidListenerState }

// State returns the current listener state.
func (b *Base) State() State {
	return State(b.state.Load())
}

// checkOpen fails unless the listener is still Created.
func (b *Base) checkOpen() error {
	if s := b.State(); s != StateCreated {
		return fmt.Errorf("%w (state: %s)", ErrAlreadyOpened, s)
	}
	return nil
}

// markOpened moves Created to Opened.
func (b *Base) markOpened() bool {
	return b.state.CompareAndSwap(int32(StateCreated), int32(StateOpened))
}

// beginClose moves Opened to Closed and reports whether the caller owns
// the teardown. A Created listener is closed without teardown.
func (b *Base) beginClose() bool {
	if b.state.CompareAndSwap(int32(StateCreated), int32(StateClosed)) {
		return false
	}
	return b.state.CompareAndSwap(int32(StateOpened), int32(StateClosed))
}

// markFaulted moves any state to Faulted.
func (b *Base) markFaulted() {
	b.state.Store(int32(StateFaulted))
}
