// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include resource cleanup (DeferClose), lifecycle
// shutdown (DeferShutdown) and polling (Eventually).
package testutil
