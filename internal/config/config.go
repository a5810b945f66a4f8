// Package config loads beacon's host-side deployment configuration —
// server URL, publish interval, log level, and the like — a YAML file
// distinct from the persisted Settings record, which holds per-user
// identity and opt-in state instead.
package config

import (
	"fmt"
	"time"
)

// Config is the shape of beacon.yaml. All fields are optional. LogLevel
// is parsed but not applied: the CLI's logger writes every severity,
// and no CLI flag overrides a config file value.
type Config struct {
	ServerURL              string   `yaml:"server_url"`
	PublishInterval        Duration `yaml:"publish_interval"`
	SpoolDir               string   `yaml:"spool_dir"`
	LogLevel               string   `yaml:"log_level"`
	DebugDisablePublishing bool     `yaml:"debug_disable_publishing"`
	MetricsAddr            string   `yaml:"metrics_addr"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10m" or "1h30m".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
