// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggestions for the operator. Issue is a catalog of Markdown guides rendered
// with glamour for the failures an operator is most likely to hit.
package issue
