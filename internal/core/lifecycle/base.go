// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Base holds the lifecycle state of one instance. Controllers embed it and
// drive it through the Begin/Finish helpers below.
//
// A Base is single-use: once Closed or Aborted, create a new instance.
type Base struct {
	// State management (atomic for lock-free reads)
	state atomic.Int32

	// mu protects ctx, cancel and lastErr.
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	lastErr error

	wg       sync.WaitGroup
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewBase creates a Base in StateCreated.
func NewBase() *Base {
	b := &Base{
		doneCh: make(chan struct{}),
	}
	b.state.Store(int32(StateCreated))
	return b
}

// State returns the current state (atomic, lock-free read).
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning returns true if the instance is in the Running state.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// LastError returns the error that ended a failed Open, or nil.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Context returns the instance-scoped context. It is created by BeginOpen,
// derives from context.Background rather than the caller's context, and is
// cancelled by BeginClose, FailOpen and CancelContext. Returns nil before
// BeginOpen.
func (b *Base) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// Done is closed when the instance reaches a terminal state.
func (b *Base) Done() <-chan struct{} {
	return b.doneCh
}

// --- Transition helpers ---

// BeginOpen moves Created to Opening and creates the instance context.
// A ctx that is already cancelled moves the instance straight to Closed and
// returns an error. Any state other than Created returns a *TransitionError.
func (b *Base) BeginOpen(ctx context.Context) error {
	// Check for an already-cancelled ctx before touching state so a caller
	// that gave up never observes Opening.
	select {
	case <-ctx.Done():
		err := fmt.Errorf("context cancelled before open: %w", ctx.Err())
		if b.state.CompareAndSwap(int32(StateCreated), int32(StateClosed)) {
			b.setLastErr(err)
			b.markDone()
		}
		return err
	default:
	}

	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateOpening)) {
		return &TransitionError{Op: "open", Current: b.State()}
	}

	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	return nil
}

// FinishOpen moves Opening to Running.
// It returns false if the instance left Opening in the meantime, which
// only happens when Abort completed first.
func (b *Base) FinishOpen() bool {
	if !b.state.CompareAndSwap(int32(StateOpening), int32(StateRunning)) {
		return false
	}
	return true
}

// FailOpen records err, cancels the instance context and moves Opening to
// Closed. If Abort already completed the state stays Aborted.
func (b *Base) FailOpen(err error) {
	b.setLastErr(err)
	b.CancelContext()
	if b.state.CompareAndSwap(int32(StateOpening), int32(StateClosed)) {
		b.markDone()
	}
}

// BeginClose moves Opening or Running to Closing and cancels the instance
// context. It returns true only for the caller that performed the
// transition. Closing a Created instance moves it directly to Closed and
// returns false.
func (b *Base) BeginClose() bool {
	for {
		current := State(b.state.Load())
		switch current {
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateClosed)) {
				b.markDone()
				return false
			}
		case StateOpening, StateRunning:
			if b.state.CompareAndSwap(int32(current), int32(StateClosing)) {
				b.CancelContext()
				return true
			}
		default:
			return false
		}
	}
}

// FinishClose moves Closing to Closed. It returns false when Abort reached
// a terminal state first.
func (b *Base) FinishClose() bool {
	if b.state.CompareAndSwap(int32(StateClosing), int32(StateClosed)) {
		b.markDone()
		return true
	}
	return false
}

// FinishAbort moves any non-terminal state to Aborted and returns the state
// it replaced. It returns false if the instance was already terminal.
func (b *Base) FinishAbort() (State, bool) {
	for {
		current := State(b.state.Load())
		if current.IsTerminal() {
			return current, false
		}
		if b.state.CompareAndSwap(int32(current), int32(StateAborted)) {
			b.CancelContext()
			b.markDone()
			return current, true
		}
	}
}

// CancelContext cancels the instance context if it exists.
func (b *Base) CancelContext() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// --- Goroutine tracking ---

// Go runs fn on a goroutine tracked by WaitForShutdown.
func (b *Base) Go(fn func()) {
	b.wg.Go(fn)
}

// WaitForShutdown blocks until every goroutine started with Go has returned.
func (b *Base) WaitForShutdown() {
	b.wg.Wait()
}

// WaitForTerminal blocks until the instance is terminal or ctx is done.
func (b *Base) WaitForTerminal(ctx context.Context) error {
	select {
	case <-b.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for instance shutdown: %w", ctx.Err())
	}
}

func (b *Base) setLastErr(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}

func (b *Base) markDone() {
	b.doneOnce.Do(func() { close(b.doneCh) })
}
