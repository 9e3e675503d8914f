// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces ConfigDir() when set. os.UserHomeDir() does not
// reliably honor HOME on every platform, so tests pin the directory here.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride sets a custom config directory path.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
