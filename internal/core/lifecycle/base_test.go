// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func mustOpen(t *testing.T, b *Base) {
	t.Helper()
	if err := b.BeginOpen(context.Background()); err != nil {
		t.Fatalf("BeginOpen failed: %v", err)
	}
	if !b.FinishOpen() {
		t.Fatal("FinishOpen returned false")
	}
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	t.Run("Created to Opening to Running to Closing to Closed", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		if b.State() != StateCreated {
			t.Errorf("expected StateCreated, got %s", b.State())
		}

		if err := b.BeginOpen(context.Background()); err != nil {
			t.Fatalf("BeginOpen failed: %v", err)
		}
		if b.State() != StateOpening {
			t.Errorf("expected StateOpening, got %s", b.State())
		}

		if !b.FinishOpen() {
			t.Fatal("FinishOpen returned false")
		}
		if !b.IsRunning() {
			t.Errorf("expected StateRunning, got %s", b.State())
		}

		if !b.BeginClose() {
			t.Fatal("BeginClose should return true")
		}
		if b.State() != StateClosing {
			t.Errorf("expected StateClosing, got %s", b.State())
		}

		if !b.FinishClose() {
			t.Fatal("FinishClose should return true")
		}
		if b.State() != StateClosed {
			t.Errorf("expected StateClosed, got %s", b.State())
		}
		select {
		case <-b.Done():
		default:
			t.Error("done channel should be closed")
		}
	})

	t.Run("Opening to Closed on failure", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		if err := b.BeginOpen(context.Background()); err != nil {
			t.Fatalf("BeginOpen failed: %v", err)
		}

		openErr := errors.New("listener refused")
		b.FailOpen(openErr)

		if b.State() != StateClosed {
			t.Errorf("expected StateClosed, got %s", b.State())
		}
		if !errors.Is(b.LastError(), openErr) {
			t.Errorf("LastError() = %v, want %v", b.LastError(), openErr)
		}
		if b.Context().Err() == nil {
			t.Error("instance context should be cancelled after FailOpen")
		}
	})

	t.Run("Abort from every non-terminal state", func(t *testing.T) {
		t.Parallel()

		setups := map[State]func(*Base){
			StateCreated: func(*Base) {},
			StateOpening: func(b *Base) { _ = b.BeginOpen(context.Background()) },
			StateRunning: func(b *Base) { mustOpen(t, b) },
			StateClosing: func(b *Base) { mustOpen(t, b); b.BeginClose() },
		}

		for want, setup := range setups {
			b := NewBase()
			setup(b)

			prev, ok := b.FinishAbort()
			if !ok {
				t.Errorf("FinishAbort from %s returned false", want)
			}
			if prev != want {
				t.Errorf("FinishAbort replaced %s, want %s", prev, want)
			}
			if b.State() != StateAborted {
				t.Errorf("expected StateAborted, got %s", b.State())
			}
		}
	})
}

func TestAbortWinsOverLateClose(t *testing.T) {
	t.Parallel()

	b := NewBase()
	mustOpen(t, b)

	if !b.BeginClose() {
		t.Fatal("BeginClose should return true")
	}
	if _, ok := b.FinishAbort(); !ok {
		t.Fatal("FinishAbort should succeed while Closing")
	}
	if b.FinishClose() {
		t.Error("FinishClose should not override Aborted")
	}
	if b.State() != StateAborted {
		t.Errorf("expected StateAborted, got %s", b.State())
	}
}

func TestCloseWinsOverLateAbort(t *testing.T) {
	t.Parallel()

	b := NewBase()
	mustOpen(t, b)
	b.BeginClose()
	b.FinishClose()

	if prev, ok := b.FinishAbort(); ok {
		t.Errorf("FinishAbort after Closed should return false (prev=%s)", prev)
	}
	if b.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", b.State())
	}
}

func TestFinishOpenAfterAbort(t *testing.T) {
	t.Parallel()

	b := NewBase()
	if err := b.BeginOpen(context.Background()); err != nil {
		t.Fatalf("BeginOpen failed: %v", err)
	}
	b.FinishAbort()

	if b.FinishOpen() {
		t.Error("FinishOpen should fail once aborted")
	}
	b.FailOpen(errors.New("late"))
	if b.State() != StateAborted {
		t.Errorf("expected StateAborted, got %s", b.State())
	}
}

func TestRaceConditions(t *testing.T) {
	t.Parallel()

	t.Run("concurrent state reads during transitions", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		var wg sync.WaitGroup
		for range 10 {
			wg.Go(func() {
				for range 100 {
					_ = b.State()
					_ = b.IsRunning()
				}
			})
		}

		mustOpen(t, b)
		b.BeginClose()
		b.FinishClose()
		wg.Wait()
	})

	t.Run("concurrent Close and Abort", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		mustOpen(t, b)

		var closers atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Go(func() {
				if b.BeginClose() {
					closers.Add(1)
					b.FinishClose()
				}
			})
			wg.Go(func() {
				b.FinishAbort()
			})
		}
		wg.Wait()

		if n := closers.Load(); n > 1 {
			t.Errorf("BeginClose succeeded %d times, want at most 1", n)
		}
		if !b.State().IsTerminal() {
			t.Errorf("expected terminal state, got %s", b.State())
		}
	})
}

func TestIdempotency(t *testing.T) {
	t.Parallel()

	t.Run("double Open returns error", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		if err := b.BeginOpen(context.Background()); err != nil {
			t.Fatalf("first BeginOpen failed: %v", err)
		}
		err := b.BeginOpen(context.Background())
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("second BeginOpen error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("double Close is safe", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		mustOpen(t, b)
		if !b.BeginClose() {
			t.Error("first BeginClose should return true")
		}
		b.FinishClose()
		if b.BeginClose() {
			t.Error("second BeginClose should return false")
		}
		if b.State() != StateClosed {
			t.Errorf("expected StateClosed, got %s", b.State())
		}
	})

	t.Run("Close without Open is safe", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		if b.BeginClose() {
			t.Error("BeginClose from Created should return false")
		}
		if b.State() != StateClosed {
			t.Errorf("expected StateClosed, got %s", b.State())
		}
	})

	t.Run("double Abort is safe", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		mustOpen(t, b)
		if _, ok := b.FinishAbort(); !ok {
			t.Error("first FinishAbort should return true")
		}
		if _, ok := b.FinishAbort(); ok {
			t.Error("second FinishAbort should return false")
		}
	})
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	t.Run("Open with already cancelled context fails immediately", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := b.BeginOpen(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("BeginOpen error = %v, want context.Canceled", err)
		}
		if b.State() != StateClosed {
			t.Errorf("expected StateClosed, got %s", b.State())
		}
	})

	t.Run("instance context outlives the open context", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		openCtx, cancel := context.WithCancel(context.Background())
		if err := b.BeginOpen(openCtx); err != nil {
			t.Fatalf("BeginOpen failed: %v", err)
		}
		cancel()

		if b.Context().Err() != nil {
			t.Error("instance context must not follow the open context")
		}
		b.BeginClose()
		if b.Context().Err() == nil {
			t.Error("instance context should be cancelled by BeginClose")
		}
	})

	t.Run("WaitForTerminal respects context cancellation", func(t *testing.T) {
		t.Parallel()

		b := NewBase()
		mustOpen(t, b)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := b.WaitForTerminal(ctx); err == nil {
			t.Error("expected timeout error")
		}
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    State
		expected string
	}{
		{StateCreated, "created"},
		{StateOpening, "opening"},
		{StateRunning, "running"},
		{StateClosing, "closing"},
		{StateClosed, "closed"},
		{StateAborted, "aborted"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.expected)
			}
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state      State
		isTerminal bool
	}{
		{StateCreated, false},
		{StateOpening, false},
		{StateRunning, false},
		{StateClosing, false},
		{StateClosed, true},
		{StateAborted, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			t.Parallel()
			if got := tt.state.IsTerminal(); got != tt.isTerminal {
				t.Errorf("State(%d).IsTerminal() = %v, want %v", tt.state, got, tt.isTerminal)
			}
		})
	}
}

func TestState_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state   State
		wantErr bool
	}{
		{StateCreated, false},
		{StateAborted, false},
		{State(99), true},
		{State(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			t.Parallel()
			err := tt.state.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("State(%d).Validate() error = %v, wantErr %v", tt.state, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidState) {
				t.Errorf("error should wrap ErrInvalidState, got: %v", err)
			}
		})
	}
}

func TestGoroutineTracking(t *testing.T) {
	t.Parallel()

	b := NewBase()
	var counter atomic.Int32
	for range 5 {
		b.Go(func() { counter.Add(1) })
	}
	b.WaitForShutdown()

	if got := counter.Load(); got != 5 {
		t.Errorf("expected counter=5, got %d", got)
	}
}
