// SPDX-License-Identifier: MPL-2.0

package instance

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/svchost/internal/clock"
	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/internal/report"
)

const (
	// DefaultGracePeriod is how long Close waits for the run routine before
	// the first slow-cancellation warning.
	DefaultGracePeriod = 5 * time.Second
	// DefaultWarningInterval separates repeated slow-cancellation warnings.
	DefaultWarningInterval = 10 * time.Second
	// DefaultRollbackTimeout bounds closing listeners after a failed Open.
	DefaultRollbackTimeout = 10 * time.Second
)

// Option configures an Instance.
type Option func(*Instance)

// WithLogger sets the logger. The default logs to stderr with the service
// name as prefix.
func WithLogger(logger *log.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithClock sets the clock driving the slow-cancellation watchdog.
func WithClock(c clock.Clock) Option {
	return func(i *Instance) {
		if c != nil {
			i.clock = c
		}
	}
}

// WithGracePeriod sets the delay before the first slow-cancellation warning.
func WithGracePeriod(d time.Duration) Option {
	return func(i *Instance) {
		if d > 0 {
			i.gracePeriod = d
		}
	}
}

// WithWarningInterval sets the delay between repeated slow-cancellation warnings.
func WithWarningInterval(d time.Duration) Option {
	return func(i *Instance) {
		if d > 0 {
			i.warningInterval = d
		}
	}
}

// WithReportTimeout bounds each call into the report sink.
func WithReportTimeout(d time.Duration) Option {
	return func(i *Instance) {
		if d > 0 {
			i.reportTimeout = d
		}
	}
}

// WithRollbackTimeout bounds closing already-opened listeners after Open fails.
func WithRollbackTimeout(d time.Duration) Option {
	return func(i *Instance) {
		if d > 0 {
			i.rollbackTimeout = d
		}
	}
}

// WithCatalog sets the endpoint catalog handed to listener factories.
func WithCatalog(c endpoint.Catalog) Option {
	return func(i *Instance) {
		i.catalog = c
	}
}

// WithRecorder sets the recorder that backs Status. Every report the
// instance emits is also written to it. Sharing the recorder with the run
// routine's own sink makes those reports visible in Status too.
func WithRecorder(r *report.Recorder) Option {
	return func(i *Instance) {
		if r != nil {
			i.recorder = r
		}
	}
}
