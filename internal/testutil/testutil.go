// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"io"
	"testing"
	"time"
)

// pollInterval is how often Eventually re-evaluates its condition.
const pollInterval = 5 * time.Millisecond

// ShutdownCloser is implemented by instances and listeners whose Close
// takes a context.
type ShutdownCloser interface {
	Close(ctx context.Context) error
}

// DeferClose returns a cleanup function that closes the given io.Closer,
// logging any errors. Useful for defer statements in tests.
func DeferClose(t testing.TB, c io.Closer) func() {
	t.Helper()
	return func() {
		t.Helper()
		if err := c.Close(); err != nil {
			t.Logf("warning: close returned error: %v", err)
		}
	}
}

// DeferShutdown returns a cleanup function that closes s with a bounded
// context, logging any errors.
func DeferShutdown(t testing.TB, s ShutdownCloser) func() {
	t.Helper()
	return func() {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(ctx); err != nil {
			t.Logf("warning: shutdown returned error: %v", err)
		}
	}
}

// Eventually polls cond until it returns true or timeout elapses.
// The test fails with msg if the condition never holds.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", timeout, msg)
		}
		time.Sleep(pollInterval)
	}
}
