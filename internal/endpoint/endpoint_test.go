// SPDX-License-Identifier: MPL-2.0

package endpoint

import (
	"errors"
	"strings"
	"testing"

	"github.com/invowk/svchost/pkg/types"
)

func TestEndpointURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ep   Endpoint
		want string
	}{
		{"default", Default(), "http://+:0"},
		{"upper-case protocol", Endpoint{Protocol: "HTTPS", Port: 8443}, "https://+:8443"},
		{"tcp", Endpoint{Protocol: types.ProtocolTCP, Port: 2222}, "tcp://+:2222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.ep.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpointBindAddress(t *testing.T) {
	t.Parallel()

	ep := Endpoint{Protocol: types.ProtocolHTTP, Port: 8080}
	if got := ep.BindAddress("127.0.0.1"); got != "127.0.0.1:8080" {
		t.Errorf("BindAddress() = %q", got)
	}
	if got := ep.BindAddress(""); got != ":8080" {
		t.Errorf("BindAddress(\"\") = %q", got)
	}
	if got := ep.WithPort(9090).Port; got != 9090 {
		t.Errorf("WithPort(9090).Port = %d", got)
	}
}

func TestNewMapCatalog(t *testing.T) {
	t.Parallel()

	t.Run("valid entries keep order and normalize protocol", func(t *testing.T) {
		t.Parallel()

		c, err := NewMapCatalog(
			Endpoint{Name: "status", Protocol: "HTTP", Port: 8080},
			Endpoint{Name: "admin", Protocol: "tcp", Port: 2222},
		)
		if err != nil {
			t.Fatalf("NewMapCatalog() error = %v", err)
		}

		names := c.Names()
		if len(names) != 2 || names[0] != "status" || names[1] != "admin" {
			t.Errorf("Names() = %v", names)
		}
		ep, err := c.Lookup("status")
		if err != nil {
			t.Fatalf("Lookup(status) error = %v", err)
		}
		if ep.Protocol != types.ProtocolHTTP {
			t.Errorf("Protocol = %q, want http", ep.Protocol)
		}
	})

	tests := []struct {
		name    string
		entries []Endpoint
		wantErr error
	}{
		{"unnamed entry", []Endpoint{{Protocol: "http"}}, types.ErrInvalidEndpointName},
		{"bad protocol", []Endpoint{{Name: "x", Protocol: "udp"}}, types.ErrInvalidEndpointProtocol},
		{"bad port", []Endpoint{{Name: "x", Protocol: "http", Port: 70000}}, types.ErrInvalidListenPort},
		{"duplicate", []Endpoint{{Name: "x", Protocol: "http"}, {Name: "x", Protocol: "tcp"}}, ErrDuplicateEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewMapCatalog(tt.entries...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewMapCatalog() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	c, err := NewMapCatalog(Endpoint{Name: "status", Protocol: "http", Port: 8080})
	if err != nil {
		t.Fatalf("NewMapCatalog() error = %v", err)
	}

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		ep, err := Resolve(c, "status")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if ep.Port != 8080 {
			t.Errorf("Port = %d, want 8080", ep.Port)
		}
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		_, err := Resolve(c, "ServiceEndpoint")
		if !errors.Is(err, ErrEndpointNotFound) {
			t.Fatalf("Resolve() error = %v, want ErrEndpointNotFound", err)
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("error should be *NotFoundError, got %T", err)
		}
		if !strings.Contains(err.Error(), "status") {
			t.Errorf("error should list available endpoints: %v", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		if _, err := Resolve(c, ""); !errors.Is(err, ErrEmptyEndpointName) {
			t.Errorf("Resolve(\"\") error = %v, want ErrEmptyEndpointName", err)
		}
		if _, err := Resolve(c, "   "); !errors.Is(err, ErrEmptyEndpointName) {
			t.Errorf("Resolve(blank) error = %v, want ErrEmptyEndpointName", err)
		}
	})

	t.Run("nil catalog", func(t *testing.T) {
		t.Parallel()
		if _, err := Resolve(nil, "status"); !errors.Is(err, ErrEndpointNotFound) {
			t.Errorf("Resolve(nil) error = %v, want ErrEndpointNotFound", err)
		}
	})
}
