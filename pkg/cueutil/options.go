// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize caps CUE inputs at 1 MiB.
const DefaultMaxFileSize int64 = 1 << 20

type (
	// Option configures ParseAndDecode.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithFilename names the input in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides DefaultMaxFileSize. Non-positive values are ignored.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxFileSize = n
		}
	}
}

// WithConcrete controls whether every field must be concrete after
// unification. Disable it for documents whose fields are optional and
// filled from defaults elsewhere.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}
