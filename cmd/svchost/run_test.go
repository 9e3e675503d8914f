// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/invowk/svchost/internal/config"
	"github.com/invowk/svchost/internal/issue"
	"github.com/invowk/svchost/internal/report"
	"github.com/invowk/svchost/internal/testutil"
)

const loopbackConfig = `
service_name: "orders"
endpoints: [{name: "status", protocol: "http", port: 0}]
http: {endpoint: "status", host: "127.0.0.1"}
heartbeat: interval: "10ms"
`

func TestRun_ClosesOnSignal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		signals []os.Signal
		content string
	}{
		{
			name:    "one signal closes",
			signals: []os.Signal{os.Interrupt},
			content: loopbackConfig,
		},
		{
			name:    "second signal aborts",
			signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
			content: loopbackConfig,
		},
		{
			name:    "script alongside the heartbeat",
			signals: []os.Signal{os.Interrupt},
			content: loopbackConfig + `script: source: "while true; do sleep 1; done"`,
		},
		{
			name:    "idle routine without listeners",
			signals: []os.Signal{os.Interrupt},
			content: `
http: enabled: false
heartbeat: enabled: false
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, stdout, stderr := newTestApp(t, queuedSignals(tt.signals...))
			path := writeTestConfig(t, tt.content)

			if err := execute(t, app, "run", "--config", path); err != nil {
				t.Fatalf("run error = %v\nstderr:\n%s", err, stderr.String())
			}

			out := stdout.String()
			if !strings.Contains(out, "✓") {
				t.Errorf("stdout should report the instance, got:\n%s", out)
			}
			if strings.Contains(tt.content, "127.0.0.1") && !strings.Contains(out, "listening on http://+:") {
				t.Errorf("stdout should list the HTTP address, got:\n%s", out)
			}
			if !strings.Contains(out, "closed") && !strings.Contains(out, "aborted") {
				t.Errorf("stdout should report the final state, got:\n%s", out)
			}
		})
	}
}

func TestRun_FailingScriptIsReported(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, `
http: enabled: false
heartbeat: enabled: false
script: source: "exit 3"
`)
	app, stdout, stderr := newTestApp(t, delayedSignal(200*time.Millisecond, os.Interrupt))

	if err := execute(t, app, "run", "--config", path); err != nil {
		t.Fatalf("run error = %v, want nil: Close never returns run routine errors", err)
	}
	if !strings.Contains(stderr.String(), "script exited with status 3") {
		t.Errorf("stderr should log the run routine failure, got:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "closed") {
		t.Errorf("stdout should report the closed instance, got:\n%s", stdout.String())
	}
}

func TestRunRoutine_ScriptSyntaxError(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Script.Source = "echo ("
	if _, err := runRoutine(cfg, report.Discard, io.Discard, io.Discard); err == nil {
		t.Fatal("runRoutine() should reject a script that does not parse")
	}
}

func TestRun_PortInUse(t *testing.T) {
	t.Parallel()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(testutil.DeferClose(t, busy))
	port := busy.Addr().(*net.TCPAddr).Port

	path := writeTestConfig(t, fmt.Sprintf(`
endpoints: [{name: "status", protocol: "http", port: %d}]
http: {endpoint: "status", host: "127.0.0.1"}
`, port))

	app, stdout, stderr := newTestApp(t, queuedSignals())
	err = execute(t, app, "run", "--config", path)
	if !errors.Is(err, syscall.EADDRINUSE) {
		t.Fatalf("run error = %v, want EADDRINUSE", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Operation != "open instance" {
		t.Errorf("error should be an ActionableError for 'open instance', got %T: %v", err, err)
	}
	if stderr.String() == "" {
		t.Error("stderr should carry the issue guide and suggestions")
	}
	if strings.Contains(stdout.String(), "listening on") {
		t.Error("nothing should be listening after a failed open")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, `http: endpoint: "missing"`)
	app, _, stderr := newTestApp(t, queuedSignals())

	err := execute(t, app, "run", "--config", path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the endpoint, got %v", err)
	}
	if !strings.Contains(stderr.String(), "•") {
		t.Errorf("stderr should list suggestions, got:\n%s", stderr.String())
	}
}

func TestOpenIssue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"port in use", fmt.Errorf("listen: %w", syscall.EADDRINUSE), issue.PortInUseId},
		{"other", errors.New("boom"), issue.ListenerOpenFailedId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := openIssue(tt.err); got != tt.want {
				t.Errorf("openIssue(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
