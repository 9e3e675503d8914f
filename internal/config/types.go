// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/svchost/internal/endpoint"
	"github.com/invowk/svchost/pkg/types"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// DefaultServiceName names the service when the configuration does not.
	DefaultServiceName types.ServiceName = "svchost"
	// DefaultStatusEndpoint is the endpoint the HTTP status listener binds to.
	DefaultStatusEndpoint types.EndpointName = "status"
	// DefaultConsoleEndpoint is the endpoint the SSH status listener binds to.
	DefaultConsoleEndpoint types.EndpointName = "console"

	// LogLevelInfo is the default log level.
	LogLevelInfo LogLevel = "info"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidDuration is returned when a configured duration is out of range.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidListenerEndpoint is returned when a listener names an undeclared endpoint.
	ErrInvalidListenerEndpoint = errors.New("listener endpoint not declared")
	// ErrInvalidScript is returned when the run script does not parse.
	ErrInvalidScript = errors.New("invalid run script")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is a charmbracelet/log level name.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidDurationError is returned when a duration field is out of range.
	InvalidDurationError struct {
		Field string
		Value time.Duration
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig and every collected field error.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the root svchost configuration.
	Config struct {
		ServiceName types.ServiceName `json:"service_name" mapstructure:"service_name"`
		LogLevel    LogLevel          `json:"log_level"    mapstructure:"log_level"`
		Lifecycle   LifecycleConfig   `json:"lifecycle"    mapstructure:"lifecycle"`
		Endpoints   []EndpointConfig  `json:"endpoints"    mapstructure:"endpoints"`
		HTTP        HTTPConfig        `json:"http"         mapstructure:"http"`
		SSH         SSHConfig         `json:"ssh"          mapstructure:"ssh"`
		Heartbeat   HeartbeatConfig   `json:"heartbeat"    mapstructure:"heartbeat"`
		Script      ScriptConfig      `json:"script"       mapstructure:"script"`
	}

	// LifecycleConfig tunes the instance controller.
	LifecycleConfig struct {
		// GracePeriod is how long Close waits for the run routine before the
		// first slow-cancellation warning.
		GracePeriod time.Duration `json:"grace_period" mapstructure:"grace_period"`
		// WarningInterval spaces the repeated slow-cancellation warnings.
		WarningInterval time.Duration `json:"warning_interval" mapstructure:"warning_interval"`
		// ReportTimeout bounds each call into the report sink.
		ReportTimeout time.Duration `json:"report_timeout" mapstructure:"report_timeout"`
		// CloseTimeout bounds the graceful Close issued on shutdown.
		CloseTimeout time.Duration `json:"close_timeout" mapstructure:"close_timeout"`
	}

	// EndpointConfig declares one named endpoint of the catalog.
	EndpointConfig struct {
		Name     types.EndpointName     `json:"name"     mapstructure:"name"`
		Protocol types.EndpointProtocol `json:"protocol" mapstructure:"protocol"`
		Port     types.ListenPort       `json:"port"     mapstructure:"port"`
	}

	// HTTPConfig configures the HTTP status listener.
	HTTPConfig struct {
		Enabled  bool               `json:"enabled"  mapstructure:"enabled"`
		Endpoint types.EndpointName `json:"endpoint" mapstructure:"endpoint"`
		Host     string             `json:"host"     mapstructure:"host"`
	}

	// SSHConfig configures the SSH status listener.
	SSHConfig struct {
		Enabled  bool               `json:"enabled"  mapstructure:"enabled"`
		Endpoint types.EndpointName `json:"endpoint" mapstructure:"endpoint"`
		Host     string             `json:"host"     mapstructure:"host"`
		// HostKeyPath is generated when missing. Empty means an in-memory key.
		HostKeyPath string `json:"host_key_path" mapstructure:"host_key_path"`
	}

	// HeartbeatConfig configures the heartbeat run routine.
	HeartbeatConfig struct {
		Enabled  bool          `json:"enabled"  mapstructure:"enabled"`
		Interval time.Duration `json:"interval" mapstructure:"interval"`
	}

	// ScriptConfig configures a shell script run routine. An empty Source
	// disables it.
	ScriptConfig struct {
		Source string `json:"source" mapstructure:"source" toml:"source"`
		Dir    string `json:"dir"    mapstructure:"dir"    toml:"dir,omitempty"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: DefaultServiceName,
		LogLevel:    LogLevelInfo,
		Lifecycle: LifecycleConfig{
			GracePeriod:     5 * time.Second,
			WarningInterval: 10 * time.Second,
			ReportTimeout:   5 * time.Second,
			CloseTimeout:    30 * time.Second,
		},
		Endpoints: []EndpointConfig{
			{Name: DefaultStatusEndpoint, Protocol: types.ProtocolHTTP, Port: 8080},
			{Name: DefaultConsoleEndpoint, Protocol: types.ProtocolTCP, Port: 2222},
		},
		HTTP: HTTPConfig{
			Enabled:  true,
			Endpoint: DefaultStatusEndpoint,
			Host:     "0.0.0.0",
		},
		SSH: SSHConfig{
			Enabled:  false,
			Endpoint: DefaultConsoleEndpoint,
			Host:     "0.0.0.0",
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
	}
}

// Catalog builds the endpoint catalog declared by the configuration.
func (c Config) Catalog() (*endpoint.MapCatalog, error) {
	eps := make([]endpoint.Endpoint, len(c.Endpoints))
	for i, e := range c.Endpoints {
		eps[i] = endpoint.Endpoint{Name: e.Name, Protocol: e.Protocol, Port: e.Port}
	}
	return endpoint.NewMapCatalog(eps...)
}

// Validate returns nil if the Config is consistent, or an *InvalidConfigError
// collecting every field error.
func (c Config) Validate() error {
	var errs []error
	if err := c.ServiceName.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LogLevel.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.Lifecycle.validate()...)
	if c.Heartbeat.Enabled && c.Heartbeat.Interval <= 0 {
		errs = append(errs, &InvalidDurationError{Field: "heartbeat.interval", Value: c.Heartbeat.Interval})
	}

	if c.Script.Source != "" {
		if _, err := syntax.NewParser().Parse(strings.NewReader(c.Script.Source), "script.source"); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidScript, err))
		}
	}

	catalog, err := c.Catalog()
	if err != nil {
		errs = append(errs, err)
	} else {
		if c.HTTP.Enabled {
			errs = append(errs, checkListenerEndpoint(catalog, "http.endpoint", c.HTTP.Endpoint)...)
		}
		if c.SSH.Enabled {
			errs = append(errs, checkListenerEndpoint(catalog, "ssh.endpoint", c.SSH.Endpoint)...)
		}
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// EndpointRef returns nil for an empty name, selecting the default endpoint.
func EndpointRef(name types.EndpointName) *types.EndpointName {
	if name == "" {
		return nil
	}
	return &name
}

func checkListenerEndpoint(catalog *endpoint.MapCatalog, field string, name types.EndpointName) []error {
	if name == "" {
		return nil
	}
	if _, err := catalog.Lookup(name); err != nil {
		return []error{fmt.Errorf("%s: %w: %w", field, ErrInvalidListenerEndpoint, err)}
	}
	return nil
}

func (l LifecycleConfig) validate() []error {
	var errs []error
	for _, f := range []struct {
		name  string
		value time.Duration
	}{
		{"lifecycle.grace_period", l.GracePeriod},
		{"lifecycle.warning_interval", l.WarningInterval},
		{"lifecycle.report_timeout", l.ReportTimeout},
		{"lifecycle.close_timeout", l.CloseTimeout},
	} {
		if f.value < 0 {
			errs = append(errs, &InvalidDurationError{Field: f.name, Value: f.value})
		}
	}
	return errs
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by every field error, so
// errors.Is matches both the sentinel and the individual causes.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Level returns the charmbracelet/log level, defaulting to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Validate returns nil if the LogLevel is recognized by charmbracelet/log.
func (l LogLevel) Validate() error {
	if _, err := log.ParseLevel(string(l)); err != nil {
		return &InvalidLogLevelError{Value: l}
	}
	return nil
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error, fatal)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface for InvalidDurationError.
func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("%s: invalid duration %s", e.Field, e.Value)
}

// Unwrap returns ErrInvalidDuration for errors.Is() compatibility.
func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }
