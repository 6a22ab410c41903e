// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "d2.toml")
	if err := os.WriteFile(path, []byte(body), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
repository = "/tmp/events"
enabled = true
max_stack_depth = 32
log_level = "debug"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Repository != "/tmp/events" || !c.Enabled || c.MaxStackDepth != 32 || c.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", c)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, `repositry = "/tmp/events"`)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a misspelled key")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvRepository, "")
	c, err := FromEnv()
	if err != nil || c != nil {
		t.Fatalf("empty environment: got %+v, %v", c, err)
	}

	t.Setenv(EnvRepository, "/tmp/r")
	c, err = FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.Repository != "/tmp/r" || !c.Enabled {
		t.Errorf("D2_REPOSITORY config = %+v", c)
	}

	path := writeConfig(t, `repository = "/tmp/other"`)
	t.Setenv(EnvConfig, path)
	c, err = FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.Repository != "/tmp/other" {
		t.Errorf("D2_CONFIG should win over D2_REPOSITORY: %+v", c)
	}
}
