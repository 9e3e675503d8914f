// SPDX-License-Identifier: MPL-2.0

// Package config handles svchost configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/svchost/config.cue (or the XDG
// equivalent on Linux, ~/Library/Application Support/svchost/config.cue on
// macOS, %APPDATA%\svchost\config.cue on Windows), falling back to
// ./config.cue. The file is validated against the embedded CUE schema
// (config_schema.cue), merged over the built-in defaults, and finally
// overridden by SVCHOST_* environment variables, e.g.
// SVCHOST_LIFECYCLE_GRACE_PERIOD=10s.
package config
