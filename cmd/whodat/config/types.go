// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type WhodatConfig struct {
	// Server: HTTP listener and the browser origins allowed to call it
	Server ServerConfig `yaml:"server"`

	// Engine: guessing behavior knobs
	Engine EngineConfig `yaml:"engine"`

	// Session: lifetime of idle games
	Session SessionConfig `yaml:"session"`

	// Storage: where session state lives between requests
	Storage StorageConfig `yaml:"storage"`

	// Data: optional replacements for the embedded datasets
	Data DataConfig `yaml:"data"`

	// Observability: tracing endpoint and metrics toggle
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`         // e.g. 8080
	CORSOrigins []string `yaml:"cors_origins"` // e.g. ["http://localhost:3000"]
}

type EngineConfig struct {
	MarginThreshold float64 `yaml:"margin_threshold"` // score lead that triggers a guess
	MaxTurns        int     `yaml:"max_turns"`        // questions asked before guessing anyway
	TopN            int     `yaml:"top_n"`            // candidates reported with a finished game
	SelectorWindow  int     `yaml:"selector_window"`  // leaders considered when picking a question
}

type SessionConfig struct {
	TTL           Duration `yaml:"ttl"`            // e.g. 1h
	SweepInterval Duration `yaml:"sweep_interval"` // e.g. 1m
}

type StorageConfig struct {
	Path       string `yaml:"path"` // badger directory, ignored when in_memory is true
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

type DataConfig struct {
	CharactersPath string `yaml:"characters_path"` // empty means the embedded roster
	QuestionsPath  string `yaml:"questions_path"`  // empty means the embedded questions
}

type ObservabilityConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"` // e.g. localhost:4317, empty disables tracing
	Metrics      bool   `yaml:"metrics"`       // expose prometheus metrics on /metrics
}

// Duration accepts human-friendly YAML values like "90s" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func DefaultConfig() WhodatConfig {
	// Keep session state next to the rest of the aleutian dotfiles unless
	// the host has no resolvable home directory.
	storagePath := "whodat-sessions"
	if home, err := os.UserHomeDir(); err == nil {
		storagePath = filepath.Join(home, ".aleutian", "whodat", "sessions")
	}
	return WhodatConfig{
		Server: ServerConfig{
			Port: 8080,
			CORSOrigins: []string{
				"https://whodatdev-tau.vercel.app",
				"http://localhost:3000",
			},
		},
		Engine: EngineConfig{
			MarginThreshold: 2.0,
			MaxTurns:        15,
			TopN:            5,
			SelectorWindow:  10,
		},
		Session: SessionConfig{
			TTL:           Duration(1 * time.Hour),
			SweepInterval: Duration(1 * time.Minute),
		},
		Storage: StorageConfig{
			Path:       storagePath,
			InMemory:   false,
			SyncWrites: true,
		},
		Data: DataConfig{},
		Observability: ObservabilityConfig{
			OTLPEndpoint: "",
			Metrics:      true,
		},
	}
}
