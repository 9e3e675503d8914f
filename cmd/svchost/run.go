// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/invowk/svchost/internal/clock"
	"github.com/invowk/svchost/internal/config"
	"github.com/invowk/svchost/internal/instance"
	"github.com/invowk/svchost/internal/issue"
	"github.com/invowk/svchost/internal/listener"
	"github.com/invowk/svchost/internal/report"
	"github.com/invowk/svchost/internal/workload"
)

func newRunCommand(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Host the instance until interrupted",
		Long: `Open the configured listeners, start the run routine and block until
SIGINT or SIGTERM. The first signal closes the instance gracefully within
lifecycle.close_timeout; a second signal aborts it.`,
		Args: cobra.NoArgs,
		RunE: withErrorDetails(app, opts, func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd.Context(), opts)
		}),
	}
}

// run hosts one instance built from the configuration until a signal arrives.
func (a *App) run(ctx context.Context, opts *rootOptions) error {
	cfg, source, err := a.loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	logger := a.logger(cfg, opts.verbose)
	if source != "" {
		logger.Debug("configuration loaded", "path", source)
	} else {
		logger.Debug("no configuration file found, using defaults")
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	recorder := report.NewRecorder()
	logSink := report.NewLogSink(logger.WithPrefix("report"))
	workloadSink := report.Guard(report.Tee(recorder, logSink), logger, cfg.Lifecycle.ReportTimeout)

	routine, err := runRoutine(cfg, workloadSink, a.stdout, a.stderr)
	if err != nil {
		return err
	}

	inst, err := instance.New(cfg.ServiceName, routine, listenerFactories(cfg),
		instance.WithLogger(logger),
		instance.WithCatalog(catalog),
		instance.WithRecorder(recorder),
		instance.WithGracePeriod(cfg.Lifecycle.GracePeriod),
		instance.WithWarningInterval(cfg.Lifecycle.WarningInterval),
		instance.WithReportTimeout(cfg.Lifecycle.ReportTimeout),
	)
	if err != nil {
		return err
	}

	signals, stop := a.signals()
	defer stop()

	addrs, err := inst.Open(ctx, logSink)
	if err != nil {
		a.renderIssue(openIssue(err))
		return issue.NewErrorContext().
			WithOperation("open instance").
			WithResource(cfg.ServiceName.String()).
			WithSuggestion("Run 'svchost endpoints' to check the endpoint catalog").
			WithSuggestion("Re-run with --verbose to see which listener failed").
			Wrap(err).
			BuildError()
	}

	fmt.Fprintf(a.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), TitleStyle.Render(cfg.ServiceName.String()), SubtitleStyle.Render(inst.ID().String()))
	for _, addr := range addrs {
		fmt.Fprintf(a.stdout, "  %s %s\n", SubtitleStyle.Render("listening on"), CmdStyle.Render(addr))
	}

	select {
	case sig := <-signals:
		logger.Info("shutting down", "signal", sig)
	case <-ctx.Done():
		logger.Info("shutting down", "error", ctx.Err())
	}

	err = shutdown(ctx, inst, signals, cfg.Lifecycle.CloseTimeout, logger)
	inst.Wait()

	if recorder.FaultCount(report.FaultTransient) > 0 {
		a.renderIssue(issue.RunRoutineFailedId)
	}
	if recorder.CountHealth(report.SeverityWarning, report.CategoryRun) > 0 {
		a.renderIssue(issue.SlowShutdownId)
	}

	fmt.Fprintf(a.stdout, "%s %s %s\n", SuccessStyle.Render("✓"), TitleStyle.Render(cfg.ServiceName.String()), SubtitleStyle.Render(inst.State().String()))
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("close instance").
			WithResource(cfg.ServiceName.String()).
			WithSuggestion("Increase lifecycle.close_timeout if listeners need more time to drain").
			Wrap(err).
			BuildError()
	}
	return nil
}

// shutdown closes inst within timeout. A further signal aborts it; Close
// then returns as soon as its own steps finish.
func shutdown(ctx context.Context, inst *instance.Instance, signals <-chan os.Signal, timeout time.Duration, logger *log.Logger) error {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	closed := make(chan error, 1)
	go func() { closed <- inst.Close(closeCtx) }()

	select {
	case err := <-closed:
		return err
	case sig := <-signals:
		logger.Warn("second signal, aborting", "signal", sig)
		inst.Abort()
		return <-closed
	}
}

// runRoutine returns the run routine selected by the configuration: the
// script and the heartbeat run side by side, and Idle stands in when neither
// is configured.
func runRoutine(cfg *config.Config, sink report.Sink, stdout, stderr io.Writer) (instance.RunFunc, error) {
	var routines []func(context.Context) error
	if cfg.Script.Source != "" {
		script, err := workload.Script(workload.ScriptConfig{
			Source: cfg.Script.Source,
			Dir:    cfg.Script.Dir,
			Stdout: stdout,
			Stderr: stderr,
		})
		if err != nil {
			return nil, err
		}
		routines = append(routines, script)
	}
	if cfg.Heartbeat.Enabled {
		routines = append(routines, workload.Heartbeat(cfg.Heartbeat.Interval, clock.Real{}, sink))
	}

	switch len(routines) {
	case 0:
		return workload.Idle, nil
	case 1:
		return routines[0], nil
	default:
		return workload.All(routines...), nil
	}
}

// listenerFactories returns the factories of the enabled listeners. A
// disabled listener leaves an empty slot.
func listenerFactories(cfg *config.Config) []listener.Factory {
	factories := make([]listener.Factory, 2)
	if cfg.HTTP.Enabled {
		factories[0] = listener.HTTP(listener.HTTPConfig{
			Endpoint: config.EndpointRef(cfg.HTTP.Endpoint),
			Host:     cfg.HTTP.Host,
		})
	}
	if cfg.SSH.Enabled {
		factories[1] = listener.SSH(listener.SSHConfig{
			Endpoint:    config.EndpointRef(cfg.SSH.Endpoint),
			Host:        cfg.SSH.Host,
			HostKeyPath: cfg.SSH.HostKeyPath,
		})
	}
	return factories
}
