// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package config loads static server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Settings holds all server configuration, read from SHELLGATE_* variables.
type Settings struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Shell is the executable spawned for every session.
	Shell string `envconfig:"SHELL" default:"/bin/bash"`
	// RootDir restricts session working directories.
	RootDir string `envconfig:"ROOT_DIR" default:"/"`

	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"30m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"2m"`
	MaxSessions    int           `envconfig:"MAX_SESSIONS" default:"50"`
	// ScrollbackSize bounds the per-session replay buffer in bytes.
	ScrollbackSize int `envconfig:"SCROLLBACK_SIZE" default:"262144"`

	QuickAccessDirs    []string `envconfig:"QUICK_ACCESS_DIRS" default:""`
	CannedCommandsFile string   `envconfig:"CANNED_COMMANDS_FILE" default:""`

	AuthEnabled bool `envconfig:"AUTH_ENABLED" default:"false"`
	// AuthTokens maps identity to credential, e.g. "alice:s3cret,bob:hunter2".
	AuthTokens map[string]string `envconfig:"AUTH_TOKENS" default:""`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

// Load reads settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := envconfig.Process("SHELLGATE", &s); err != nil {
		return Settings{}, fmt.Errorf("load config: %w", err)
	}
	return s, nil
}

// CannedCommand is one entry of the canned command list served to clients.
type CannedCommand struct {
	Name    string `yaml:"name" json:"name"`
	Command string `yaml:"command" json:"command"`
}

// LoadCannedCommands parses the YAML command list at path. An empty path
// yields an empty list.
func LoadCannedCommands(path string) ([]CannedCommand, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read canned commands: %w", err)
	}
	var cmds []CannedCommand
	if err := yaml.Unmarshal(raw, &cmds); err != nil {
		return nil, fmt.Errorf("parse canned commands: %w", err)
	}
	return cmds, nil
}
