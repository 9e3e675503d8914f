// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/invowk/svchost/internal/report"
)

// launch starts the run routine under supervision and returns once the
// goroutine is running.
func (i *Instance) launch(ctx context.Context) {
	started := make(chan struct{})
	i.base.Go(func() {
		defer i.releaseRunDone()
		close(started)
		i.observe(ctx, i.invoke(ctx))
	})
	<-started
}

// invoke calls the run routine, converting a panic into an error.
func (i *Instance) invoke(ctx context.Context) error {
	var pc panics.Catcher
	var err error
	pc.Try(func() { err = i.run(ctx) })
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}

// observe classifies how the run routine ended. Only application errors
// are reported: one transient fault and one error health report.
func (i *Instance) observe(ctx context.Context, err error) {
	switch {
	case err == nil:
		i.logger.Debug("run routine exited")
	case isCancellation(ctx, err):
		i.logger.Debug("run routine cancelled", "error", err)
	default:
		i.logger.Error("run routine failed", "error", err)
		sink := i.reporter()
		_ = sink.ReportFault(report.FaultTransient)
		_ = sink.ReportHealth(i.health(report.SeverityError, report.CategoryRun,
			"unhandled error in run routine: "+err.Error()))
	}
}

// isCancellation reports whether err is the routine acknowledging that its
// own context was cancelled.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// awaitRun waits for the run routine to exit or for Abort. If ctx ends
// first, watching continues on a tracked goroutine so warnings keep flowing.
func (i *Instance) awaitRun(ctx context.Context, start time.Time) {
	next, exited := i.watchRun(ctx, start, i.clock.After(i.gracePeriod))
	if exited {
		return
	}
	i.logger.Warn("close deadline reached before run routine exited", "error", ctx.Err())
	i.base.Go(func() {
		i.watchRun(context.Background(), start, next)
	})
}

// watchRun blocks until the run routine exits, Abort runs or ctx ends,
// warning each time next fires. It returns the pending timer when ctx ends
// first. After Abort nothing is waited for or reported any more.
func (i *Instance) watchRun(ctx context.Context, start time.Time, next <-chan time.Time) (<-chan time.Time, bool) {
	select {
	case <-i.runDone:
		return nil, true
	default:
	}

	for {
		select {
		case <-i.runDone:
			return nil, true
		case <-i.aborted:
			i.logger.Debug("abort ended the wait for the run routine")
			return nil, true
		case <-next:
			i.warnSlow(start)
			next = i.clock.After(i.warningInterval)
		case <-ctx.Done():
			return next, false
		}
	}
}

func (i *Instance) warnSlow(start time.Time) {
	elapsed := i.clock.Since(start)
	i.logger.Warn("slow cancellation", "elapsed", elapsed)
	_ = i.reporter().ReportHealth(i.health(report.SeverityWarning, report.CategoryRun,
		fmt.Sprintf("slow cancellation: run routine has not exited %s after cancellation", elapsed)))
}
