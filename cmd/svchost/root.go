// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the svchost command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "svchost",
		Short: "Host a stateless service instance",
		Long: TitleStyle.Render("svchost") + SubtitleStyle.Render(" - host a stateless service instance") + `

svchost opens the configured status listeners, runs the service's run
routine, and shuts everything down in order when interrupted. A second
interrupt aborts immediately.

` + SubtitleStyle.Render("Examples:") + `
  svchost run                  Host the instance until interrupted
  svchost endpoints            List the endpoint catalog
  svchost config show          Show the effective configuration
  svchost config init          Write a default configuration file`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $HOME/.config/svchost/config.cue)")

	rootCmd.AddCommand(newRunCommand(app, opts))
	rootCmd.AddCommand(newConfigCommand(app, opts))
	rootCmd.AddCommand(newEndpointsCommand(app, opts))

	return rootCmd
}

// withErrorDetails prints the suggestions of a failed command below fang's
// error message.
func withErrorDetails(app *App, opts *rootOptions, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err != nil {
			if details := errorDetails(err, opts.verbose); details != "" {
				fmt.Fprintln(app.stderr, WarningStyle.Render(details))
			}
		}
		return err
	}
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
// Signals are not routed through fang: 'run' handles them itself so that a
// second interrupt can abort.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
	); err != nil {
		os.Exit(1)
	}
}
