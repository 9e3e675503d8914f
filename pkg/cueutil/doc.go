// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles CUE documents against an embedded schema.
//
// Every CUE input goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema's root definition
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schema string
//
//	res, err := cueutil.ParseAndDecodeString[map[string]any](
//	    schema, data, "#Config",
//	    cueutil.WithFilename("config.cue"),
//	    cueutil.WithConcrete(false),
//	)
//	if err != nil {
//	    return err // names the offending field, e.g. config.cue: lifecycle.grace_period: ...
//	}
package cueutil
