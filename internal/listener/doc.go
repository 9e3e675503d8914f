// SPDX-License-Identifier: MPL-2.0

// Package listener defines the contract between an instance and the network
// listeners it opens, and provides the HTTP and SSH status listeners used by
// svchost.
package listener
