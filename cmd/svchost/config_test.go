// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/svchost/internal/config"
	"github.com/invowk/svchost/internal/issue"
)

func TestConfigShow(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, `service_name: "billing"`)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "defaults",
			args: []string{"config", "show", "--defaults"},
			want: []string{`service_name: "svchost"`, `grace_period: "5s"`},
		},
		{
			name: "effective",
			args: []string{"config", "show", "--config", path},
			want: []string{"// source: " + path, `service_name: "billing"`, `close_timeout: "30s"`},
		},
		{
			name: "toml",
			args: []string{"config", "show", "--config", path, "--format", "toml"},
			want: []string{"# source: " + path, "service_name = ", "billing", "[[endpoints]]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, stdout, _ := newTestApp(t, queuedSignals())
			if err := execute(t, app, tt.args...); err != nil {
				t.Fatalf("execute(%v) error = %v", tt.args, err)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("output missing %q:\n%s", want, stdout.String())
				}
			}
		})
	}
}

func TestConfigShow_UnknownFormat(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t, queuedSignals())
	err := execute(t, app, "config", "show", "--defaults", "--format", "yaml")
	if !errors.Is(err, errUnknownFormat) {
		t.Fatalf("error = %v, want errUnknownFormat", err)
	}
}

func TestConfigShow_MissingFile(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp(t, queuedSignals())
	err := execute(t, app, "config", "show", "--config", filepath.Join(t.TempDir(), "absent.cue"))
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Fatalf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestConfigInit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	app, stdout, _ := newTestApp(t, queuedSignals())
	if err := execute(t, app, "config", "init", "--dir", dir); err != nil {
		t.Fatalf("config init error = %v", err)
	}

	path := filepath.Join(dir, "config.cue")
	if !strings.Contains(stdout.String(), path) {
		t.Errorf("output should name %s, got:\n%s", path, stdout.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read generated config: %v", err)
	}
	if string(data) != config.GenerateCUE(config.DefaultConfig()) {
		t.Error("generated file should hold the default configuration")
	}

	// The generated file must load back cleanly.
	if err := execute(t, app, "config", "show", "--config", path); err != nil {
		t.Errorf("config show on generated file error = %v", err)
	}
}

func TestEndpoints(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, `
endpoints: [
	{name: "status", protocol: "http", port: 8080},
	{name: "console", protocol: "tcp", port: 2222},
]
ssh: enabled: true
`)

	app, stdout, _ := newTestApp(t, queuedSignals())
	if err := execute(t, app, "endpoints", "--config", path); err != nil {
		t.Fatalf("endpoints error = %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"status", "http://+:8080", "console", "tcp://+:2222", "ssh"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigIssue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"not found", config.ErrConfigNotFound, issue.ConfigNotFoundId},
		{"undeclared endpoint", config.ErrInvalidListenerEndpoint, issue.EndpointNotFoundId},
		{"invalid", config.ErrInvalidConfig, issue.ConfigInvalidId},
		{"other", errors.New("syntax"), issue.ConfigLoadFailedId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := configIssue(tt.err); got != tt.want {
				t.Errorf("configIssue(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
