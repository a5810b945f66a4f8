// Package env provides an overridable indirection over process
// environment variables, so tests can inject values without mutating
// the real process environment.
package env

import "os"

// Lookup is the indirection point. Tests may replace it wholesale to
// simulate a host environment without touching os.Setenv/os.Unsetenv.
var Lookup = os.LookupEnv

// Get returns the value of name, or "" if unset.
func Get(name string) string {
	v, _ := Lookup(name)
	return v
}

// ANDROIDSDKHomeVar is the environment variable that overrides the
// settings-home root (named for compatibility with the original
// desktop-tool installation this core was modeled on).
const ANDROIDSDKHomeVar = "ANDROID_SDK_HOME"

// ProcessorArchiteW6432Var is consulted by host environment-classification
// helpers on Windows to detect a 64-bit host under a 32-bit runtime.
// beacon's core never reads it directly; it is documented here as part
// of the narrow external-environment surface callers may inspect.
const ProcessorArchiteW6432Var = "PROCESSOR_ARCHITEW6432"

// HostTypeVar is the Linux analog of ProcessorArchiteW6432Var.
const HostTypeVar = "HOSTTYPE"
