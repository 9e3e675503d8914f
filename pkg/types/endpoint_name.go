// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEndpointName is the sentinel error wrapped by InvalidEndpointNameError.
var ErrInvalidEndpointName = errors.New("invalid endpoint name")

type (
	// EndpointName identifies an endpoint definition in the hosting
	// environment's catalog. A valid name must be non-empty, not
	// whitespace-only, and must not contain whitespace.
	EndpointName string

	// InvalidEndpointNameError is returned when an EndpointName value is
	// empty or contains whitespace.
	InvalidEndpointNameError struct {
		Value EndpointName
	}
)

// String returns the string representation of the EndpointName.
func (n EndpointName) String() string { return string(n) }

// Validate returns nil if the EndpointName is valid, or an error wrapping
// ErrInvalidEndpointName if it is not.
//
//goplint:nonzero
func (n EndpointName) Validate() error {
	if strings.TrimSpace(string(n)) == "" || strings.ContainsAny(string(n), " \t\r\n") {
		return &InvalidEndpointNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidEndpointNameError.
func (e *InvalidEndpointNameError) Error() string {
	return fmt.Sprintf("invalid endpoint name %q: must be non-empty and contain no whitespace", e.Value)
}

// Unwrap returns ErrInvalidEndpointName for errors.Is() compatibility.
func (e *InvalidEndpointNameError) Unwrap() error { return ErrInvalidEndpointName }
