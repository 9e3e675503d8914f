// SPDX-License-Identifier: MPL-2.0

// Package workload provides the run routines svchost can host out of the box.
package workload

import (
	"context"
	"time"

	"github.com/invowk/svchost/internal/clock"
	"github.com/invowk/svchost/internal/report"
)

// DefaultHeartbeatInterval is used when Heartbeat is given a non-positive interval.
const DefaultHeartbeatInterval = 30 * time.Second

// Heartbeat returns a run routine that reports {OK, heartbeat, "alive"} to
// sink every interval until its context is cancelled, then returns
// ctx.Err(). Sink errors are ignored; the instance guards its own sink but
// callers should pass a guarded sink here as well.
func Heartbeat(interval time.Duration, clk clock.Clock, sink report.Sink) func(ctx context.Context) error {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if sink == nil {
		sink = report.Discard
	}

	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(interval):
				_ = sink.ReportHealth(report.HealthInfo{
					Severity:    report.SeverityOK,
					Category:    report.CategoryHeartbeat,
					Description: "alive",
					Time:        clk.Now(),
				})
			}
		}
	}
}

// Idle is a run routine that does nothing until its context is cancelled.
func Idle(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
