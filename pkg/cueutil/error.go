// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrValidation is wrapped by the errors FormatError builds from CUE errors.
var ErrValidation = errors.New("cue validation failed")

type (
	// ValidationError is one CUE error located in a file.
	ValidationError struct {
		// FilePath is the file being validated.
		FilePath string
		// CUEPath is the JSON path to the invalid value, e.g. "endpoints[0].port".
		CUEPath string
		// Message is the CUE error message without the path prefix.
		Message string
	}

	// ValidationErrors collects every CUE error reported for one file.
	// It wraps ErrValidation for errors.Is() compatibility.
	ValidationErrors struct {
		FilePath string
		Errors   []*ValidationError
	}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.CUEPath != "" {
		return fmt.Sprintf("%s: %s: %s", e.FilePath, e.CUEPath, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	lines := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		if ve.CUEPath != "" {
			lines = append(lines, ve.CUEPath+": "+ve.Message)
		} else {
			lines = append(lines, ve.Message)
		}
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrValidation for errors.Is() compatibility.
func (e *ValidationErrors) Unwrap() error { return ErrValidation }

// FormatError turns a CUE error into *ValidationErrors whose messages are
// prefixed with the file and the JSON path of the offending field:
//
//	config.cue: lifecycle.grace_period: invalid value "soon"
//	config.cue: endpoints[1].port: invalid value 70000 (out of bound <=65535)
//
// Errors that carry no CUE detail are wrapped with the file path as-is.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	out := &ValidationErrors{FilePath: filePath}
	for _, e := range cueErrs {
		path := formatPath(cueerrors.Path(e))
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		out.Errors = append(out.Errors, &ValidationError{FilePath: filePath, CUEPath: path, Message: msg})
	}
	return out
}

// formatPath converts a CUE error path such as ["endpoints", "0", "port"]
// to JSON-path notation: "endpoints[0].port".
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error if data is larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
