// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the svchost CLI: run the hosted instance, inspect
// and initialize its configuration, and list the endpoint catalog.
package cmd
