// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

type (
	tomlDocument struct {
		ServiceName string         `toml:"service_name"`
		LogLevel    string         `toml:"log_level"`
		Lifecycle   tomlLifecycle  `toml:"lifecycle"`
		HTTP        tomlListener   `toml:"http"`
		SSH         tomlListener   `toml:"ssh"`
		Heartbeat   tomlHeartbeat  `toml:"heartbeat"`
		Script      *ScriptConfig  `toml:"script,omitempty"`
		Endpoints   []tomlEndpoint `toml:"endpoints"`
	}

	tomlLifecycle struct {
		GracePeriod     string `toml:"grace_period"`
		WarningInterval string `toml:"warning_interval"`
		ReportTimeout   string `toml:"report_timeout"`
		CloseTimeout    string `toml:"close_timeout"`
	}

	tomlListener struct {
		Enabled     bool   `toml:"enabled"`
		Endpoint    string `toml:"endpoint"`
		Host        string `toml:"host"`
		HostKeyPath string `toml:"host_key_path,omitempty"`
	}

	tomlHeartbeat struct {
		Enabled  bool   `toml:"enabled"`
		Interval string `toml:"interval"`
	}

	tomlEndpoint struct {
		Name     string `toml:"name"`
		Protocol string `toml:"protocol"`
		Port     int    `toml:"port"`
	}
)

// GenerateTOML renders the configuration as TOML. Durations are written as
// Go duration strings, matching the CUE form.
func GenerateTOML(cfg *Config) (string, error) {
	doc := tomlDocument{
		ServiceName: cfg.ServiceName.String(),
		LogLevel:    cfg.LogLevel.String(),
		Lifecycle: tomlLifecycle{
			GracePeriod:     cfg.Lifecycle.GracePeriod.String(),
			WarningInterval: cfg.Lifecycle.WarningInterval.String(),
			ReportTimeout:   cfg.Lifecycle.ReportTimeout.String(),
			CloseTimeout:    cfg.Lifecycle.CloseTimeout.String(),
		},
		HTTP: tomlListener{
			Enabled:  cfg.HTTP.Enabled,
			Endpoint: cfg.HTTP.Endpoint.String(),
			Host:     cfg.HTTP.Host,
		},
		SSH: tomlListener{
			Enabled:     cfg.SSH.Enabled,
			Endpoint:    cfg.SSH.Endpoint.String(),
			Host:        cfg.SSH.Host,
			HostKeyPath: cfg.SSH.HostKeyPath,
		},
		Heartbeat: tomlHeartbeat{
			Enabled:  cfg.Heartbeat.Enabled,
			Interval: cfg.Heartbeat.Interval.String(),
		},
		Endpoints: make([]tomlEndpoint, len(cfg.Endpoints)),
	}
	if cfg.Script.Source != "" {
		script := cfg.Script
		doc.Script = &script
	}
	for i, e := range cfg.Endpoints {
		doc.Endpoints[i] = tomlEndpoint{Name: e.Name.String(), Protocol: e.Protocol.String(), Port: int(e.Port)}
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode TOML: %w", err)
	}
	return string(out), nil
}
