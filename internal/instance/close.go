// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"

	"github.com/invowk/svchost/internal/listener"
	"github.com/invowk/svchost/internal/report"
)

// Close cancels the run routine, waits for it to exit and closes the
// listeners in reverse order with ctx. An Abort during Close ends the wait,
// takes over the listeners not yet closed and cancels the ctx handed to the
// listener being closed.
//
// While the run routine is slow to exit, Close emits a warning health
// report after the grace period and again every warning interval. If ctx
// ends first, a background watcher keeps warning until the routine exits
// (see Wait) and Close moves on to the listeners.
//
// Run-routine errors are never returned; only listener close errors are,
// and only when Close rather than Abort ends the instance.
// Closing a Created instance marks it Closed. Closing an instance that is
// already closing or terminal waits for that shutdown and returns nil.
func (i *Instance) Close(ctx context.Context) error {
	if !i.base.BeginClose() {
		i.releaseIdle()
		if err := i.base.WaitForTerminal(ctx); err != nil {
			i.logger.Debug("close: shutdown still in flight", "error", err)
		}
		return nil
	}

	start := i.clock.Now()
	i.logger.Info("closing")

	i.seal(ErrClosedDuringOpen)
	i.awaitRun(ctx, start)

	closeCtx, cancel := i.abortable(ctx)
	defer cancel()
	err := i.closeListeners(closeCtx)

	if !i.base.FinishClose() {
		// Abort-time failures are discarded like Abort's own.
		i.logger.Debug("abort completed before close", "state", i.State(), "error", err)
		return nil
	}
	i.logger.Info("instance closed")
	_ = i.reporter().ReportHealth(i.health(report.SeverityOK, report.CategoryLifecycle, "instance closed"))
	return err
}

// Abort cancels the run routine without waiting for it and aborts every
// opened listener in reverse order, including those an in-flight Close has
// not closed yet. It never fails: listener errors and panics are logged and
// discarded one listener at a time.
func (i *Instance) Abort() {
	prev, ok := i.base.FinishAbort()
	if !ok {
		return
	}
	i.logger.Warn("aborting", "from", prev)

	i.seal(ErrAborted)
	owned := i.takeAll()
	close(i.aborted)
	i.abortAll(owned)
}

// abortable returns a child of ctx that is also cancelled by Abort.
func (i *Instance) abortable(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-i.aborted:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// closeListeners closes the opened listeners in reverse order, taking them
// one at a time so that a concurrent Abort gets whichever are left. Every
// listener is attempted.
func (i *Instance) closeListeners(ctx context.Context) error {
	var errs []error
	for {
		l, idx, ok := i.takeLast()
		if !ok {
			break
		}
		var pc panics.Catcher
		var err error
		pc.Try(func() { err = l.Close(ctx) })
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}
		if err != nil {
			i.logger.Warn("listener close failed", "listener", idx, "error", err)
			errs = append(errs, fmt.Errorf("closing listener %d: %w", idx, err))
		}
	}
	return errors.Join(errs...)
}

// abortAll aborts ls in reverse order.
func (i *Instance) abortAll(ls []listener.Listener) {
	for idx := len(ls) - 1; idx >= 0; idx-- {
		i.abortListener(ls[idx])
	}
}

// abortListener aborts l, discarding any error or panic.
func (i *Instance) abortListener(l listener.Listener) {
	var pc panics.Catcher
	var err error
	pc.Try(func() { err = l.Abort() })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		i.logger.Debug("listener abort failed", "error", err)
	}
}
