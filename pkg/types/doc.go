// SPDX-License-Identifier: MPL-2.0

// Package types defines cross-cutting value types shared by the endpoint,
// listener, instance, and config packages. Each type carries its own
// validation and returns typed errors that wrap a package-level sentinel.
//
// This package is a leaf dependency: it imports only the standard library.
package types
