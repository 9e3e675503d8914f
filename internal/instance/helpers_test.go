// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/svchost/internal/clock"
	"github.com/invowk/svchost/internal/listener"
	"github.com/invowk/svchost/internal/report"
)

type (
	// events records listener calls across every fake in a test.
	events struct {
		mu   sync.Mutex
		list []string
	}

	fakeListener struct {
		name        string
		ev          *events
		openErr     error
		closeErr    error
		abortErr    error
		abortPanics bool
		// blockClose makes Close wait for its ctx to end.
		blockClose bool
		// onOpen runs inside Open before it returns.
		onOpen func()
	}

	panicSink struct{}
)

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, s)
}

func (e *events) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.list)
}

func (f *fakeListener) Open(context.Context) (string, error) {
	f.ev.add("open:" + f.name)
	if f.onOpen != nil {
		f.onOpen()
	}
	if f.openErr != nil {
		return "", f.openErr
	}
	return "fake://+:" + f.name, nil
}

func (f *fakeListener) Close(ctx context.Context) error {
	f.ev.add("close:" + f.name)
	if f.blockClose {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.closeErr
}

func (f *fakeListener) Abort() error {
	f.ev.add("abort:" + f.name)
	if f.abortPanics {
		panic("abort exploded")
	}
	return f.abortErr
}

func (panicSink) ReportFault(report.FaultKind) error   { panic("sink exploded") }
func (panicSink) ReportHealth(report.HealthInfo) error { panic("sink exploded") }

func fixed(l listener.Listener) listener.Factory {
	return func(listener.ServiceContext) (listener.Listener, error) { return l, nil }
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// untilCancelled is a well-behaved run routine.
func untilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// ignoring returns a run routine that only exits once release is closed.
func ignoring(release <-chan struct{}) RunFunc {
	return func(context.Context) error {
		<-release
		return nil
	}
}

func newTestInstance(t *testing.T, run RunFunc, factories []listener.Factory, opts ...Option) (*Instance, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Time{})
	base := []Option{WithLogger(quietLogger()), WithClock(fc)}
	inst, err := New("orders", run, factories, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return inst, fc
}

var errBoom = errors.New("boom")
