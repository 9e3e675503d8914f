// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/svchost/internal/core/lifecycle"
	"github.com/invowk/svchost/internal/report"
)

// Open opens every listener in declaration order, launches the run routine
// and moves the instance to Running. It returns the listener addresses in
// declaration order; with no listeners the slice is empty.
//
// The run routine gets a context scoped to the instance, not ctx, so it
// keeps running after Open returns. If any listener fails to build or open,
// the listeners already opened are closed in reverse order, the instance
// becomes Closed and the error is returned. Reports go to sink through a
// guard, so a failing sink never affects the lifecycle.
func (i *Instance) Open(ctx context.Context, sink report.Sink) ([]string, error) {
	if err := i.base.BeginOpen(ctx); err != nil {
		i.releaseIdle()
		return nil, fmt.Errorf("open %s: %w", i.name, err)
	}

	if sink == nil {
		sink = report.Discard
	}
	guarded := report.Guard(report.Tee(i.recorder, sink), i.logger, i.reportTimeout)
	i.mu.Lock()
	i.sink = guarded
	i.mu.Unlock()

	i.logger.Debug("opening", "slots", len(i.factories))

	sc := i.serviceContext()
	addresses := make([]string, 0, len(i.factories))
	for idx, factory := range i.factories {
		if factory == nil {
			continue
		}
		l, err := factory(sc)
		if err != nil {
			return nil, i.failOpen(ctx, fmt.Errorf("building listener %d: %w", idx, err))
		}
		if l == nil {
			continue
		}
		addr, err := l.Open(ctx)
		if err != nil {
			return nil, i.failOpen(ctx, fmt.Errorf("opening listener %d: %w", idx, err))
		}
		if err := i.track(l); err != nil {
			i.abortListener(l)
			return nil, i.failOpen(ctx, err)
		}
		i.logger.Debug("listener opened", "listener", idx, "address", addr)
		addresses = append(addresses, addr)
	}

	runCtx := i.base.Context()

	i.mu.Lock()
	if i.sealedBy != nil {
		err := i.sealedBy
		i.mu.Unlock()
		return nil, i.failOpen(ctx, err)
	}
	if !i.base.FinishOpen() {
		i.mu.Unlock()
		return nil, i.failOpen(ctx, i.interruption())
	}
	i.launched = true
	i.addresses = addresses
	i.openedAt = i.clock.Now()
	i.mu.Unlock()

	i.launch(runCtx)

	i.logger.Info("instance opened", "addresses", addresses)
	_ = guarded.ReportHealth(i.health(report.SeverityOK, report.CategoryLifecycle, "instance opened"))

	return slices.Clone(addresses), nil
}

// failOpen rolls back the listeners opened so far and ends the instance.
// After Abort the listeners are aborted; otherwise they are closed in
// reverse order, bounded by the rollback timeout.
func (i *Instance) failOpen(ctx context.Context, cause error) error {
	i.seal(cause)

	err := cause
	if errors.Is(cause, ErrAborted) {
		i.abortAll(i.takeAll())
	} else {
		timeoutCtx, cancelTimeout := context.WithTimeout(context.WithoutCancel(ctx), i.rollbackTimeout)
		defer cancelTimeout()
		rollbackCtx, cancel := i.abortable(timeoutCtx)
		defer cancel()
		if closeErr := i.closeListeners(rollbackCtx); closeErr != nil {
			err = errors.Join(cause, fmt.Errorf("rolling back listeners: %w", closeErr))
		}
	}

	i.base.FailOpen(err)
	i.logger.Error("open failed", "error", err, "state", i.State())
	return fmt.Errorf("open %s: %w", i.name, err)
}

// interruption names whichever of Close or Abort moved the instance out of
// Opening.
func (i *Instance) interruption() error {
	if i.State() == lifecycle.StateAborted {
		return ErrAborted
	}
	return ErrClosedDuringOpen
}

// releaseIdle releases Done for an instance whose run routine can no
// longer be launched.
func (i *Instance) releaseIdle() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.launched {
		i.releaseRunDone()
	}
}
