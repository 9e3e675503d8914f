// SPDX-License-Identifier: MPL-2.0

// Package lifecycle provides the state machine behind a hosted service
// instance: atomic state reads, CAS transitions, an instance-scoped context
// that outlives the caller of Open, and goroutine tracking.
//
// The state graph is
//
//	Created -> Opening -> Running -> Closing -> Closed
//
// with Aborted reachable from every non-terminal state. Closed and Aborted
// are terminal; no state is ever revisited.
package lifecycle
