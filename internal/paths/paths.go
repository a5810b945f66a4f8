// Package paths resolves the on-disk locations beacon reads and writes.
// All functions here are pure derivations — no I/O.
package paths

import (
	"os"
	"path/filepath"

	"github.com/justapithecus/beacon/internal/env"
)

// SettingsHome returns ANDROID_SDK_HOME when non-empty, else
// <user-home>/.android. The env var name is a holdover from the
// desktop-tool installation layout this core was modeled on.
func SettingsHome() string {
	if v := env.Get(env.ANDROIDSDKHomeVar); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".android")
}

// SpoolDirectory returns <settings-home>/metrics/spool.
func SpoolDirectory() string {
	return filepath.Join(SettingsHome(), "metrics", "spool")
}

// SettingsFile returns <settings-home>/analytics.settings.
func SettingsFile() string {
	return filepath.Join(SettingsHome(), "analytics.settings")
}

// LegacyUIDFile returns <settings-home>/uid.txt.
func LegacyUIDFile() string {
	return filepath.Join(SettingsHome(), "uid.txt")
}
