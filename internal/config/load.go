package config

import (
	"bytes"
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/beacon/internal/errs"
)

// Load reads a YAML config file, expands environment variables, and
// unmarshals into a Config. Unknown keys are rejected to catch typos
// early. A missing file is not an error — it returns a zero-value
// Config so callers can layer CLI flags and built-in defaults over it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errs.New(errs.KindConfig, "read config file", err)
	}

	expanded := ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.New(errs.KindConfig, "parse config file", err)
	}

	return &cfg, nil
}
