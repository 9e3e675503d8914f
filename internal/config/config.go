// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/svchost/internal/issue"
	"github.com/invowk/svchost/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "svchost"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. SVCHOST_LOG_LEVEL.
	EnvPrefix = "SVCHOST"
)

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the svchost configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the file it was read from
// ("" when only defaults and the environment apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'svchost config init' to write a default configuration").
				Wrap(ErrConfigNotFound).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'svchost config show --defaults' to compare with the defaults").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	for i := range cfg.Endpoints {
		cfg.Endpoints[i].Protocol = cfg.Endpoints[i].Protocol.Normalize()
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Declare every endpoint a listener refers to under 'endpoints'").
			WithSuggestion("Use Go duration strings such as \"5s\" or \"1m30s\"").
			WithSuggestion("Check script.source with 'sh -n' if the run script is rejected").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// newViper returns a viper instance holding the defaults and bound to the
// SVCHOST_* environment.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("service_name", defaults.ServiceName.String())
	v.SetDefault("log_level", defaults.LogLevel.String())
	v.SetDefault("lifecycle.grace_period", defaults.Lifecycle.GracePeriod)
	v.SetDefault("lifecycle.warning_interval", defaults.Lifecycle.WarningInterval)
	v.SetDefault("lifecycle.report_timeout", defaults.Lifecycle.ReportTimeout)
	v.SetDefault("lifecycle.close_timeout", defaults.Lifecycle.CloseTimeout)
	v.SetDefault("endpoints", endpointMaps(defaults.Endpoints))
	v.SetDefault("http.enabled", defaults.HTTP.Enabled)
	v.SetDefault("http.endpoint", defaults.HTTP.Endpoint.String())
	v.SetDefault("http.host", defaults.HTTP.Host)
	v.SetDefault("ssh.enabled", defaults.SSH.Enabled)
	v.SetDefault("ssh.endpoint", defaults.SSH.Endpoint.String())
	v.SetDefault("ssh.host", defaults.SSH.Host)
	v.SetDefault("ssh.host_key_path", defaults.SSH.HostKeyPath)
	v.SetDefault("heartbeat.enabled", defaults.Heartbeat.Enabled)
	v.SetDefault("heartbeat.interval", defaults.Heartbeat.Interval)
	v.SetDefault("script.source", defaults.Script.Source)
	v.SetDefault("script.dir", defaults.Script.Dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func endpointMaps(eps []EndpointConfig) []map[string]any {
	out := make([]map[string]any, len(eps))
	for i, e := range eps {
		out[i] = map[string]any{
			"name":     e.Name.String(),
			"protocol": e.Protocol.String(),
			"port":     int(e.Port),
		}
	}
	return out
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates the CUE file at path against #Config and merges
// its contents into v. Fields are optional, so the document decodes into a
// map that only carries what the file sets.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecodeString[map[string]any](configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to dir/config.cue,
// or to ConfigDir() when dir is empty. An existing file is left untouched
// unless force is set. It returns the path of the config file.
func CreateDefaultConfig(dir string, force bool) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if !force && fileExists(cfgPath) {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration that
// validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// svchost configuration file\n")
	sb.WriteString("// Environment variables prefixed with SVCHOST_ override these values.\n\n")

	fmt.Fprintf(&sb, "service_name: %q\n", cfg.ServiceName)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)

	sb.WriteString("\nlifecycle: {\n")
	fmt.Fprintf(&sb, "\tgrace_period: %q\n", cfg.Lifecycle.GracePeriod.String())
	fmt.Fprintf(&sb, "\twarning_interval: %q\n", cfg.Lifecycle.WarningInterval.String())
	fmt.Fprintf(&sb, "\treport_timeout: %q\n", cfg.Lifecycle.ReportTimeout.String())
	fmt.Fprintf(&sb, "\tclose_timeout: %q\n", cfg.Lifecycle.CloseTimeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\nendpoints: [\n")
	for _, e := range cfg.Endpoints {
		fmt.Fprintf(&sb, "\t{name: %q, protocol: %q, port: %d},\n", e.Name, e.Protocol, int(e.Port))
	}
	sb.WriteString("]\n")

	sb.WriteString("\nhttp: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.HTTP.Enabled)
	fmt.Fprintf(&sb, "\tendpoint: %q\n", cfg.HTTP.Endpoint)
	fmt.Fprintf(&sb, "\thost: %q\n", cfg.HTTP.Host)
	sb.WriteString("}\n")

	sb.WriteString("\nssh: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.SSH.Enabled)
	fmt.Fprintf(&sb, "\tendpoint: %q\n", cfg.SSH.Endpoint)
	fmt.Fprintf(&sb, "\thost: %q\n", cfg.SSH.Host)
	if cfg.SSH.HostKeyPath != "" {
		fmt.Fprintf(&sb, "\thost_key_path: %q\n", cfg.SSH.HostKeyPath)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nheartbeat: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Heartbeat.Enabled)
	fmt.Fprintf(&sb, "\tinterval: %q\n", cfg.Heartbeat.Interval.String())
	sb.WriteString("}\n")

	if cfg.Script.Source != "" {
		sb.WriteString("\nscript: {\n")
		fmt.Fprintf(&sb, "\tsource: %q\n", cfg.Script.Source)
		if cfg.Script.Dir != "" {
			fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Script.Dir)
		}
		sb.WriteString("}\n")
	}

	return sb.String()
}
