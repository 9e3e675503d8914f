// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/invowk/svchost/internal/config"
	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/internal/issue"
	"github.com/invowk/svchost/internal/listener"
)

type (
	// App wires CLI services and shared dependencies. Every cobra handler
	// receives the App and reaches configuration, output and signals through it.
	App struct {
		Config  ConfigProvider
		stdout  io.Writer
		stderr  io.Writer
		signals SignalSource
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Stdout  io.Writer
		Stderr  io.Writer
		Signals SignalSource
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		LoadWithSource(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// SignalSource subscribes to shutdown signals. The returned stop
	// function releases the subscription.
	SignalSource func() (signals <-chan os.Signal, stop func())

	// rootOptions holds the persistent flags.
	rootOptions struct {
		configPath string
		verbose    bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Signals == nil {
		deps.Signals = notifySignals
	}

	return &App{
		Config:  deps.Config,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		signals: deps.Signals,
	}
}

// notifySignals subscribes to SIGINT and SIGTERM. The buffer holds two
// signals so a quick second interrupt is not lost while Close starts.
func notifySignals() (<-chan os.Signal, func()) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	return c, func() { signal.Stop(c) }
}

// loadConfig loads the configuration named by --config, or the default
// lookup chain. Failures print the matching issue guide to stderr.
func (a *App) loadConfig(ctx context.Context, opts *rootOptions) (*config.Config, string, error) {
	cfg, source, err := a.Config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: opts.configPath})
	if err != nil {
		a.renderIssue(configIssue(err))
		return nil, "", err
	}
	return cfg, source, nil
}

// logger builds the process logger. --verbose wins over log_level.
func (a *App) logger(cfg *config.Config, verbose bool) *log.Logger {
	level := cfg.LogLevel.Level()
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          cfg.ServiceName.String(),
		Level:           level,
		ReportTimestamp: true,
	})
}

func (a *App) renderIssue(id issue.Id) {
	is := issue.Get(id)
	if is == nil {
		return
	}
	rendered, err := is.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(a.stderr, rendered)
}

func configIssue(err error) issue.Id {
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return issue.ConfigNotFoundId
	case errors.Is(err, endpoint.ErrEndpointNotFound), errors.Is(err, config.ErrInvalidListenerEndpoint):
		return issue.EndpointNotFoundId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigInvalidId
	default:
		return issue.ConfigLoadFailedId
	}
}

func openIssue(err error) issue.Id {
	switch {
	case errors.Is(err, endpoint.ErrEndpointNotFound), errors.Is(err, endpoint.ErrEmptyEndpointName):
		return issue.EndpointNotFoundId
	case errors.Is(err, syscall.EADDRINUSE):
		return issue.PortInUseId
	case errors.Is(err, listener.ErrHostKey):
		return issue.HostKeyFailedId
	default:
		return issue.ListenerOpenFailedId
	}
}

// errorDetails returns the suggestions of an ActionableError, plus the
// error chain in verbose mode. fang prints the error message itself.
func errorDetails(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return ""
	}
	full := ae.Format(verbose)
	_, details, _ := strings.Cut(full, ae.Error())
	return strings.TrimLeft(details, "\n")
}
