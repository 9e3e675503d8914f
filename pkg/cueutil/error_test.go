// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()

		err := FormatError(nil, "test.cue")
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non-CUE error is wrapped with filepath", func(t *testing.T) {
		t.Parallel()

		originalErr := errors.New("some error")
		err := FormatError(originalErr, "test.cue")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "test.cue") {
			t.Errorf("error should contain filepath, got: %v", err)
		}
		if !strings.Contains(err.Error(), "some error") {
			t.Errorf("error should contain original message, got: %v", err)
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     []string
		expected string
	}{
		{
			name:     "empty path",
			path:     []string{},
			expected: "",
		},
		{
			name:     "single element",
			path:     []string{"name"},
			expected: "name",
		},
		{
			name:     "nested path",
			path:     []string{"lifecycle", "grace_period"},
			expected: "lifecycle.grace_period",
		},
		{
			name:     "array index",
			path:     []string{"endpoints", "0", "port"},
			expected: "endpoints[0].port",
		},
		{
			name:     "multiple array indices",
			path:     []string{"services", "0", "endpoints", "2", "port"},
			expected: "services[0].endpoints[2].port",
		},
		{
			name:     "nested arrays",
			path:     []string{"items", "0", "values", "1"},
			expected: "items[0].values[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := formatPath(tt.path)
			if result != tt.expected {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	t.Run("data within limit returns nil", func(t *testing.T) {
		t.Parallel()

		data := []byte("hello world")
		err := CheckFileSize(data, 100, "test.cue")
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("data at exact limit returns nil", func(t *testing.T) {
		t.Parallel()

		data := make([]byte, 100)
		err := CheckFileSize(data, 100, "test.cue")
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("data exceeding limit returns error", func(t *testing.T) {
		t.Parallel()

		data := make([]byte, 101)
		err := CheckFileSize(data, 100, "test.cue")
		if err == nil {
			t.Error("expected error")
		}
		if !strings.Contains(err.Error(), "test.cue") {
			t.Errorf("error should contain filename, got: %v", err)
		}
		if !strings.Contains(err.Error(), "101") {
			t.Errorf("error should contain actual size, got: %v", err)
		}
		if !strings.Contains(err.Error(), "100") {
			t.Errorf("error should contain max size, got: %v", err)
		}
	})

	t.Run("empty data returns nil", func(t *testing.T) {
		t.Parallel()

		err := CheckFileSize([]byte{}, 100, "test.cue")
		if err != nil {
			t.Errorf("expected nil for empty data, got %v", err)
		}
	})
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "with path",
			err:  &ValidationError{FilePath: "config.cue", CUEPath: "endpoints[0].port", Message: "expected int, got string"},
			want: "config.cue: endpoints[0].port: expected int, got string",
		},
		{
			name: "without path",
			err:  &ValidationError{FilePath: "config.cue", Message: "syntax error"},
			want: "config.cue: syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	single := &ValidationErrors{
		FilePath: "config.cue",
		Errors:   []*ValidationError{{FilePath: "config.cue", CUEPath: "log_level", Message: "conflicting values"}},
	}
	if got, want := single.Error(), "config.cue: log_level: conflicting values"; got != want {
		t.Errorf("single Error() = %q, want %q", got, want)
	}

	multi := &ValidationErrors{
		FilePath: "config.cue",
		Errors: []*ValidationError{
			{FilePath: "config.cue", CUEPath: "log_level", Message: "conflicting values"},
			{FilePath: "config.cue", Message: "incomplete value"},
		},
	}
	msg := multi.Error()
	for _, want := range []string{"config.cue: validation failed", "log_level: conflicting values", "incomplete value"} {
		if !strings.Contains(msg, want) {
			t.Errorf("multi Error() = %q, missing %q", msg, want)
		}
	}

	if !errors.Is(multi, ErrValidation) {
		t.Error("errors.Is(ValidationErrors, ErrValidation) = false")
	}
}
