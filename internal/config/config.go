// Copyright (c) Edgeless Systems GmbH.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config holds the installer configuration.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultSocket is where OpenVPN Access Server places its local XML-RPC socket.
const DefaultSocket = "/usr/local/openvpn_as/etc/sock/sagent.localroot"

// Mode decides how certificate material is handed to the server.
type Mode string

const (
	// ModeContent reads the certificate files and sends their contents.
	ModeContent Mode = "content"
	// ModePathOnly sends the file paths. The server must be able to read
	// the files at these paths, also later while it restarts.
	ModePathOnly Mode = "path-only"
)

// Config configures an installer. It is copied by value and not changed afterwards.
type Config struct {
	// Socket is the filesystem path of the server's XML-RPC socket.
	Socket string `yaml:"socket"`
	// Mode is the deployment mode.
	Mode Mode `yaml:"mode"`
	// Timeout bounds each RPC connection. Zero means no deadline.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Socket: DefaultSocket,
		Mode:   ModeContent,
	}
}

// Load reads a YAML configuration file and applies it on top of the defaults.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Socket == "" {
		return errors.New("socket path must not be empty")
	}
	switch c.Mode {
	case ModeContent, ModePathOnly:
	default:
		return fmt.Errorf("unknown deployment mode %q, expected %q or %q", c.Mode, ModeContent, ModePathOnly)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// PathOnly reports whether certificate paths are sent instead of their contents.
func (c Config) PathOnly() bool {
	return c.Mode == ModePathOnly
}
