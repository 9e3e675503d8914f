// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrScriptFailed is the sentinel error wrapped by ScriptExitError.
var ErrScriptFailed = errors.New("script failed")

type (
	// ScriptConfig describes a POSIX shell script hosted as a run routine.
	ScriptConfig struct {
		// Source is the script text.
		Source string
		// Dir is the working directory. Empty uses the process's.
		Dir string
		// Env replaces the environment when non-nil.
		Env []string
		// Stdout and Stderr default to io.Discard.
		Stdout io.Writer
		Stderr io.Writer
	}

	// ScriptExitError is returned when the script exits with a non-zero status.
	// It wraps ErrScriptFailed for errors.Is() compatibility.
	ScriptExitError struct {
		Status uint8
	}
)

// Script parses cfg.Source and returns a run routine that interprets it in
// process with mvdan/sh. Syntax errors surface here, before the instance
// is opened.
//
// The script is interrupted when the routine's context is cancelled; the
// routine then returns ctx.Err() whatever the script's exit status was.
func Script(cfg ScriptConfig) (func(ctx context.Context) error, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(cfg.Source), "run")
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}

	return func(ctx context.Context) error {
		opts := []interp.RunnerOption{
			interp.StdIO(nil, cfg.Stdout, cfg.Stderr),
		}
		if cfg.Dir != "" {
			opts = append(opts, interp.Dir(cfg.Dir))
		}
		if cfg.Env != nil {
			opts = append(opts, interp.Env(expand.ListEnviron(cfg.Env...)))
		}

		runner, err := interp.New(opts...)
		if err != nil {
			return fmt.Errorf("failed to create interpreter: %w", err)
		}

		err = runner.Run(ctx, prog)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			var status interp.ExitStatus
			if errors.As(err, &status) {
				return &ScriptExitError{Status: uint8(status)}
			}
			return fmt.Errorf("script execution failed: %w", err)
		}
		return nil
	}, nil
}

// Error implements the error interface for ScriptExitError.
func (e *ScriptExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Status)
}

// Unwrap returns ErrScriptFailed for errors.Is() compatibility.
func (e *ScriptExitError) Unwrap() error { return ErrScriptFailed }
