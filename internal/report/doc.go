// SPDX-License-Identifier: MPL-2.0

// Package report defines the health and fault reporting contract used by the
// instance lifecycle controller, plus the sinks svchost ships with.
//
// Reporting is best-effort telemetry. Callers wrap sinks with Guard so that a
// failing, panicking or stuck sink is logged and ignored instead of affecting
// lifecycle control flow.
package report
