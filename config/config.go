// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the runtime's and analyzer's configuration.
//
// Configuration is optional. If the D2_CONFIG environment variable
// names a TOML file, it is loaded; otherwise D2_REPOSITORY alone can
// point the runtime at a repository. With neither set, the runtime
// stays dormant until the client calls SetLogRepository itself.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Environment variables consulted by FromEnv.
const (
	EnvConfig     = "D2_CONFIG"
	EnvRepository = "D2_REPOSITORY"
)

// DefaultMaxStackDepth bounds captured call stacks when the
// configuration does not say otherwise.
const DefaultMaxStackDepth = 64

// A Config carries the tunable settings of the logging runtime and
// the analyzer.
type Config struct {
	// Repository is the event repository path. Empty means no
	// repository: the runtime logs nothing.
	Repository string `toml:"repository"`

	// Enabled starts event logging immediately once the
	// repository is set.
	Enabled bool `toml:"enabled"`

	// MaxStackDepth bounds the call stacks captured on acquire
	// notifications. Zero means DefaultMaxStackDepth.
	MaxStackDepth int `toml:"max_stack_depth"`

	// LogLevel is the runtime's own diagnostic verbosity, one of
	// the logrus level names ("error", "debug", ...). Empty means
	// "error".
	LogLevel string `toml:"log_level"`
}

// Load reads a TOML configuration file.
func Load(path string) (*Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("config: %v", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undec[0].String(), path)
	}
	if c.MaxStackDepth < 0 {
		return nil, fmt.Errorf("config: negative max_stack_depth in %s", path)
	}
	return &c, nil
}

// FromEnv builds a configuration from the environment. It returns nil
// when the environment requests nothing.
func FromEnv() (*Config, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return Load(path)
	}
	if dir := os.Getenv(EnvRepository); dir != "" {
		return &Config{Repository: dir, Enabled: true}, nil
	}
	return nil, nil
}
