// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/svchost/internal/config"
)

const (
	formatCUE  = "cue"
	formatTOML = "toml"
)

var errUnknownFormat = errors.New("unknown output format")

// newConfigCommand creates the `svchost config` command tree.
func newConfigCommand(app *App, opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage svchost configuration",
		Long: `Manage svchost configuration.

Configuration is stored in:
  - Linux: ~/.config/svchost/config.cue
  - macOS: ~/Library/Application Support/svchost/config.cue
  - Windows: %APPDATA%\svchost\config.cue

Environment variables prefixed with SVCHOST_ override file values,
e.g. SVCHOST_LIFECYCLE_GRACE_PERIOD=10s.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		defaults bool
		format   string
	)
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: withErrorDetails(app, opts, func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd.Context(), opts, defaults, format)
		}),
	}
	showCmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead")
	showCmd.Flags().StringVar(&format, "format", formatCUE, "output format (cue, toml)")
	cfgCmd.AddCommand(showCmd)

	var (
		dir   string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: withErrorDetails(app, opts, func(cmd *cobra.Command, _ []string) error {
			return app.initConfig(dir, force)
		}),
	}
	initCmd.Flags().StringVar(&dir, "dir", "", "directory to write config.cue to (default is the platform config directory)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.showConfigPath()
		},
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, opts *rootOptions, defaults bool, format string) error {
	var comment string
	switch format {
	case formatCUE:
		comment = "//"
	case formatTOML:
		comment = "#"
	default:
		return fmt.Errorf("%w: %q (valid: %s, %s)", errUnknownFormat, format, formatCUE, formatTOML)
	}

	cfg := config.DefaultConfig()
	if !defaults {
		loaded, source, err := a.loadConfig(ctx, opts)
		if err != nil {
			return err
		}
		if source == "" {
			source = "(built-in defaults)"
		}
		cfg = loaded
		fmt.Fprintf(a.stdout, "%s source: %s\n", comment, source)
	}

	if format == formatTOML {
		out, err := config.GenerateTOML(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(a.stdout, out)
		return nil
	}
	fmt.Fprint(a.stdout, config.GenerateCUE(cfg))
	return nil
}

func (a *App) initConfig(dir string, force bool) error {
	path, err := config.CreateDefaultConfig(dir, force)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(a.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
	return nil
}

func (a *App) showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(a.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}
