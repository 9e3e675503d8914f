// SPDX-License-Identifier: MPL-2.0

// Package instance hosts one stateless service instance.
//
// An Instance opens its listeners in declaration order, launches the run
// routine on its own goroutine and moves to Running. Close cancels the run
// routine, waits for it (warning through the report sink while it is slow
// to exit) and closes the listeners in reverse order. Abort tears
// everything down without waiting and never fails.
//
// Faults raised by the run routine are reported, never returned: Close only
// surfaces listener close errors.
package instance
