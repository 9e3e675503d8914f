// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestEndpointName_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   EndpointName
		wantErr bool
	}{
		{"simple", "ServiceEndpoint", false},
		{"dashed", "status-http", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"embedded space", "service endpoint", true},
		{"trailing newline", "svc\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.value.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("EndpointName(%q).Validate() error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEndpointName) {
				t.Errorf("error should wrap ErrInvalidEndpointName, got: %v", err)
			}
		})
	}
}

func TestEndpointProtocol_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   EndpointProtocol
		want EndpointProtocol
	}{
		{"HTTP", ProtocolHTTP},
		{" Https ", ProtocolHTTPS},
		{"tcp", ProtocolTCP},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			t.Parallel()
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("EndpointProtocol(%q).Normalize() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEndpointProtocol_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   EndpointProtocol
		wantErr bool
	}{
		{"http", false},
		{"HTTP", false},
		{"https", false},
		{"tcp", false},
		{"udp", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			t.Parallel()
			err := tt.value.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("EndpointProtocol(%q).Validate() error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEndpointProtocol) {
				t.Errorf("error should wrap ErrInvalidEndpointProtocol, got: %v", err)
			}
		})
	}
}

func TestServiceName_Validate(t *testing.T) {
	t.Parallel()

	if err := ServiceName("orders").Validate(); err != nil {
		t.Errorf("ServiceName(orders).Validate() = %v, want nil", err)
	}

	err := ServiceName("  ").Validate()
	if !errors.Is(err, ErrInvalidServiceName) {
		t.Errorf("ServiceName(blank).Validate() = %v, want ErrInvalidServiceName", err)
	}
	var snErr *InvalidServiceNameError
	if !errors.As(err, &snErr) {
		t.Errorf("error should be *InvalidServiceNameError, got: %T", err)
	}
}
