// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ProtocolHTTP serves plain HTTP.
	ProtocolHTTP EndpointProtocol = "http"
	// ProtocolHTTPS serves HTTP over TLS.
	ProtocolHTTPS EndpointProtocol = "https"
	// ProtocolTCP is a raw TCP endpoint (used by the SSH status listener).
	ProtocolTCP EndpointProtocol = "tcp"
)

// ErrInvalidEndpointProtocol is the sentinel error wrapped by InvalidEndpointProtocolError.
var ErrInvalidEndpointProtocol = errors.New("invalid endpoint protocol")

type (
	// EndpointProtocol is the protocol an endpoint definition declares.
	// Comparison is case-insensitive; Normalize lower-cases the value.
	EndpointProtocol string

	// InvalidEndpointProtocolError is returned when an EndpointProtocol is
	// not one of the supported protocols.
	InvalidEndpointProtocolError struct {
		Value EndpointProtocol
	}
)

// String returns the string representation of the EndpointProtocol.
func (p EndpointProtocol) String() string { return string(p) }

// Normalize returns the lower-cased, trimmed protocol.
func (p EndpointProtocol) Normalize() EndpointProtocol {
	return EndpointProtocol(strings.ToLower(strings.TrimSpace(string(p))))
}

// Validate returns nil if the protocol (after normalization) is supported.
func (p EndpointProtocol) Validate() error {
	switch p.Normalize() {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolTCP:
		return nil
	default:
		return &InvalidEndpointProtocolError{Value: p}
	}
}

// Error implements the error interface for InvalidEndpointProtocolError.
func (e *InvalidEndpointProtocolError) Error() string {
	return fmt.Sprintf("invalid endpoint protocol %q (valid: http, https, tcp)", e.Value)
}

// Unwrap returns ErrInvalidEndpointProtocol for errors.Is() compatibility.
func (e *InvalidEndpointProtocolError) Unwrap() error { return ErrInvalidEndpointProtocol }
