// Package config loads the application configuration: named backend
// targets plus executor and pager tuning. Profiles come out validated;
// credentials live here only for the lifetime of the process.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/dbcore/pkg/adapter"
)

// Config is the root configuration document.
type Config struct {
	Log      LogConfig               `yaml:"log"`
	Executor ExecutorConfig          `yaml:"executor"`
	Pager    PagerConfig             `yaml:"pager"`
	Targets  map[string]TargetConfig `yaml:"targets"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	File       string `yaml:"file"`        // empty disables the file sink
	MaxSizeMB  int    `yaml:"max_size_mb"` // rotation threshold
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Console    bool   `yaml:"console"`
}

// ExecutorConfig tunes query execution.
type ExecutorConfig struct {
	FetchSize      int `yaml:"fetch_size"`
	QueryTimeoutMS int `yaml:"query_timeout_ms"` // zero disables the timeout
}

// PagerConfig tunes result paging.
type PagerConfig struct {
	PageSize int `yaml:"page_size"`
	MaxPages int `yaml:"max_pages"`
}

// TargetConfig is one named backend target.
type TargetConfig struct {
	Kind     string         `yaml:"kind"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	Username string         `yaml:"username"`
	Password string         `yaml:"password"`
	Database string         `yaml:"database"`
	Schema   string         `yaml:"schema"`
	Options  map[string]any `yaml:"options"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 7,
			Console:    true,
		},
		Executor: ExecutorConfig{
			FetchSize: 100,
		},
		Pager: PagerConfig{
			PageSize: 100,
			MaxPages: 50,
		},
		Targets: map[string]TargetConfig{},
	}
}

// Load reads and validates a yaml configuration file, layered over the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks sizes and that every target resolves to a known
// backend kind.
func (c *Config) Validate() error {
	if c.Executor.FetchSize < 0 {
		return fmt.Errorf("executor.fetch_size must not be negative")
	}
	if c.Pager.PageSize < 0 || c.Pager.MaxPages < 0 {
		return fmt.Errorf("pager sizes must not be negative")
	}
	for name, target := range c.Targets {
		kind, err := adapter.ParseKind(target.Kind)
		if err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}
		if target.Host == "" && kind != adapter.SQLite {
			return fmt.Errorf("target %q: host is required", name)
		}
	}
	return nil
}

// Profile builds the validated connection profile for a named target.
func (c *Config) Profile(name string) (*adapter.Profile, error) {
	target, ok := c.Targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}
	kind, err := adapter.ParseKind(target.Kind)
	if err != nil {
		return nil, fmt.Errorf("target %q: %w", name, err)
	}
	return &adapter.Profile{
		Name:     name,
		Kind:     kind,
		Host:     target.Host,
		Port:     target.Port,
		Username: target.Username,
		Password: target.Password,
		Database: target.Database,
		Schema:   target.Schema,
		Options:  target.Options,
	}, nil
}
