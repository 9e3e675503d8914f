// SPDX-License-Identifier: MPL-2.0

// Package endpoint resolves the network endpoints a listener binds to.
//
// The hosting environment publishes a catalog of named endpoint definitions
// (protocol plus port). A listener either names one of those definitions or
// falls back to the default: HTTP on an ephemeral port. Resolution failures
// are configuration errors and are meant to surface before any listener is
// opened.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/invowk/svchost/pkg/types"
)

// DefaultProtocol is used by listeners that do not name an endpoint.
const DefaultProtocol = types.ProtocolHTTP

var (
	// ErrEndpointNotFound is returned when a named endpoint is absent from the catalog.
	ErrEndpointNotFound = errors.New("endpoint not found")
	// ErrEmptyEndpointName is returned when an endpoint name is explicitly supplied but empty.
	ErrEmptyEndpointName = errors.New("endpoint name is empty")
	// ErrDuplicateEndpoint is returned when a catalog defines the same name twice.
	ErrDuplicateEndpoint = errors.New("duplicate endpoint")
)

type (
	// Endpoint is a resolved endpoint definition.
	Endpoint struct {
		Name     types.EndpointName
		Protocol types.EndpointProtocol
		Port     types.ListenPort
	}

	// Catalog looks up endpoint definitions by name.
	Catalog interface {
		Lookup(name types.EndpointName) (Endpoint, error)
	}

	// MapCatalog is an in-memory Catalog built from configuration.
	MapCatalog struct {
		byName map[types.EndpointName]Endpoint
		order  []types.EndpointName
	}

	// NotFoundError reports a lookup of an unknown endpoint name.
	// It wraps ErrEndpointNotFound for errors.Is() compatibility.
	NotFoundError struct {
		Name      types.EndpointName
		Available []types.EndpointName
	}
)

// Default returns the endpoint used by listeners that do not name one.
func Default() Endpoint {
	return Endpoint{Protocol: DefaultProtocol, Port: 0}
}

// Validate checks the endpoint's protocol and port.
func (e Endpoint) Validate() error {
	var errs []error
	if e.Name != "" {
		if err := e.Name.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.Protocol.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := e.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// URL returns the listen URL in the form <protocol>://+:<port>, with the
// protocol lower-cased. Port 0 means the operating system picks the port.
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://+:%d", e.Protocol.Normalize(), int(e.Port))
}

// BindAddress returns host:port suitable for net.Listen.
func (e Endpoint) BindAddress(host string) string {
	return net.JoinHostPort(host, e.Port.String())
}

// WithPort returns a copy of the endpoint bound to port. Listeners use it
// to report the actual port after an ephemeral bind.
func (e Endpoint) WithPort(port types.ListenPort) Endpoint {
	e.Port = port
	return e
}

// NewMapCatalog builds a catalog from endpoint definitions. Every entry
// must be named, valid and unique.
func NewMapCatalog(endpoints ...Endpoint) (*MapCatalog, error) {
	c := &MapCatalog{byName: make(map[types.EndpointName]Endpoint, len(endpoints))}
	for i, ep := range endpoints {
		if err := ep.Name.Validate(); err != nil {
			return nil, fmt.Errorf("endpoints[%d]: %w", i, err)
		}
		if err := ep.Validate(); err != nil {
			return nil, fmt.Errorf("endpoints[%d] (%s): %w", i, ep.Name, err)
		}
		if _, exists := c.byName[ep.Name]; exists {
			return nil, fmt.Errorf("endpoints[%d]: %w: %q", i, ErrDuplicateEndpoint, ep.Name)
		}
		ep.Protocol = ep.Protocol.Normalize()
		c.byName[ep.Name] = ep
		c.order = append(c.order, ep.Name)
	}
	return c, nil
}

// Lookup returns the endpoint named name, or a *NotFoundError.
func (c *MapCatalog) Lookup(name types.EndpointName) (Endpoint, error) {
	if c != nil {
		if ep, ok := c.byName[name]; ok {
			return ep, nil
		}
	}
	return Endpoint{}, &NotFoundError{Name: name, Available: c.Names()}
}

// Names returns the endpoint names in definition order.
func (c *MapCatalog) Names() []types.EndpointName {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}

// Endpoints returns the endpoint definitions in definition order.
func (c *MapCatalog) Endpoints() []Endpoint {
	if c == nil {
		return nil
	}
	out := make([]Endpoint, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Resolve looks up a named endpoint. An empty name is rejected with
// ErrEmptyEndpointName; a nil catalog behaves like an empty one.
func Resolve(c Catalog, name types.EndpointName) (Endpoint, error) {
	if strings.TrimSpace(string(name)) == "" {
		return Endpoint{}, ErrEmptyEndpointName
	}
	if c == nil {
		return Endpoint{}, &NotFoundError{Name: name}
	}
	return c.Lookup(name)
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("endpoint %q not found: catalog is empty", e.Name)
	}
	names := make([]string, len(e.Available))
	for i, n := range e.Available {
		names[i] = n.String()
	}
	return fmt.Sprintf("endpoint %q not found (available: %s)", e.Name, strings.Join(names, ", "))
}

// Unwrap returns ErrEndpointNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrEndpointNotFound }
