// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sourcegraph/conc/panics"
)

// DefaultTimeout bounds a single guarded report call when Guard is given a
// non-positive timeout.
const DefaultTimeout = 5 * time.Second

// ErrReportTimeout is logged when a sink call outlives the guard timeout.
var ErrReportTimeout = errors.New("report call timed out")

type guarded struct {
	sink    Sink
	logger  *log.Logger
	timeout time.Duration
}

// Guard wraps sink so that its calls never fail, panic, or block the caller
// for longer than timeout. Failures are logged through logger and dropped.
// A nil sink discards everything; a nil logger discards log output.
func Guard(sink Sink, logger *log.Logger, timeout time.Duration) Sink {
	if sink == nil {
		sink = Discard
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &guarded{sink: sink, logger: logger, timeout: timeout}
}

// ReportFault forwards the fault and always returns nil.
func (g *guarded) ReportFault(kind FaultKind) error {
	g.call("fault", kind.String(), func() error { return g.sink.ReportFault(kind) })
	return nil
}

// ReportHealth forwards the health signal and always returns nil.
func (g *guarded) ReportHealth(info HealthInfo) error {
	g.call("health", info.Category, func() error { return g.sink.ReportHealth(info) })
	return nil
}

// call runs fn on its own goroutine so a stuck sink cannot hold the caller
// past the timeout. The goroutine is left to finish on its own.
func (g *guarded) call(op, detail string, fn func() error) {
	done := make(chan error, 1)
	go func() {
		var pc panics.Catcher
		var err error
		pc.Try(func() { err = fn() })
		if r := pc.Recovered(); r != nil {
			err = r.AsError()
		}
		done <- err
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			g.logger.Warn("report failed", "op", op, "detail", detail, "error", err)
		}
	case <-timer.C:
		g.logger.Warn("report abandoned", "op", op, "detail", detail, "error", ErrReportTimeout, "timeout", g.timeout)
	}
}
