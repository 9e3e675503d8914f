// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidServiceName is the sentinel error wrapped by InvalidServiceNameError.
var ErrInvalidServiceName = errors.New("invalid service name")

type (
	// ServiceName is the human-readable name of a hosted service.
	// A valid name must be non-empty and not whitespace-only.
	ServiceName string

	// InvalidServiceNameError is returned when a ServiceName value is
	// empty or whitespace-only.
	InvalidServiceNameError struct {
		Value ServiceName
	}
)

// String returns the string representation of the ServiceName.
func (n ServiceName) String() string { return string(n) }

// Validate returns nil if the ServiceName is valid, or an error wrapping
// ErrInvalidServiceName if it is not.
//
//goplint:nonzero
func (n ServiceName) Validate() error {
	if strings.TrimSpace(string(n)) == "" {
		return &InvalidServiceNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidServiceNameError.
func (e *InvalidServiceNameError) Error() string {
	return fmt.Sprintf("invalid service name %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidServiceName for errors.Is() compatibility.
func (e *InvalidServiceNameError) Unwrap() error { return ErrInvalidServiceName }
