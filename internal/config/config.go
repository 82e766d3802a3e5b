// Package config loads the YAML service configuration and builds the
// runtime objects it describes.
//
// Example:
//
//	server:
//	  addr: ":8080"
//	state:
//	  backend: sqlite
//	  path: states.db
//	pools:
//	  - name: suggestions
//	    rules: [rules/suggestions]
//	    functions: [std]
//	    capacity: 4
//	    preload: 2
//	    reason_limit: 10
//	    suggest:
//	      properties: [user, intent]
//	      assert_as_multiple: [intent]
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/pool"
)

// DefaultAddr is the listen address used when server.addr is empty.
const DefaultAddr = ":8080"

// State store backends.
const (
	BackendNone   = ""
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config is the service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	State  StateConfig  `yaml:"state"`
	Pools  []PoolConfig `yaml:"pools"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// Metrics exposes GET /metrics when true.
	Metrics *bool `yaml:"metrics,omitempty"`
}

// MetricsEnabled reports whether /metrics is served. Defaults to true.
func (s ServerConfig) MetricsEnabled() bool {
	return s.Metrics == nil || *s.Metrics
}

// StateConfig selects where pooled engines persist working memory.
type StateConfig struct {
	// Backend is "sqlite", "file" or empty for no persistence.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file or the state directory.
	Path string `yaml:"path"`
}

// PoolConfig describes one named engine pool.
type PoolConfig struct {
	Name string `yaml:"name"`

	// Rules lists CUE rule directories, merged in order.
	Rules []string `yaml:"rules"`

	// Functions lists function namespaces available to directives.
	Functions []string `yaml:"functions,omitempty"`

	// Capacity bounds checked-out engines. Omitted or -1 means unbounded.
	Capacity *int `yaml:"capacity,omitempty"`

	Preload     int `yaml:"preload,omitempty"`
	ReasonLimit int `yaml:"reason_limit,omitempty"`

	// MaxFires bounds rule firings per cycle. Omitted or -1 means unbounded.
	MaxFires *int `yaml:"max_fires,omitempty"`

	Suggest *SuggestConfig `yaml:"suggest,omitempty"`
}

// SuggestConfig enables intent suggestions on a pool.
type SuggestConfig struct {
	// Properties lists the context properties read for each user.
	Properties []string `yaml:"properties"`

	AssertAsMultiple []string `yaml:"assert_as_multiple,omitempty"`

	// SuggestionName overrides the slot name scored intents are read from.
	SuggestionName string `yaml:"suggestion_name,omitempty"`
}

// CapacityOrDefault returns the configured capacity or pool.Unbounded.
func (p PoolConfig) CapacityOrDefault() int {
	if p.Capacity == nil {
		return pool.Unbounded
	}
	return *p.Capacity
}

// ReasonLimitOrDefault returns the configured cycle limit or
// engine.DefaultReasonLimit.
func (p PoolConfig) ReasonLimitOrDefault() int {
	if p.ReasonLimit == 0 {
		return engine.DefaultReasonLimit
	}
	return p.ReasonLimit
}

// MaxFiresOrDefault returns the configured firing bound or -1.
func (p PoolConfig) MaxFiresOrDefault() int {
	if p.MaxFires == nil {
		return -1
	}
	return *p.MaxFires
}

// Load reads and validates a configuration file. Relative rule and state
// paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes a configuration document and applies defaults. Unknown
// fields are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(base string) {
	if base == "" {
		return
	}
	for i := range c.Pools {
		for j, dir := range c.Pools[i].Rules {
			if !filepath.IsAbs(dir) {
				c.Pools[i].Rules[j] = filepath.Join(base, dir)
			}
		}
	}
	if c.State.Path != "" && !filepath.IsAbs(c.State.Path) {
		c.State.Path = filepath.Join(base, c.State.Path)
	}
}

// Validate checks required fields and value ranges. Rule directories are
// not compiled here; Build reports their errors.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case BackendNone:
	case BackendSQLite, BackendFile:
		if c.State.Path == "" {
			return fmt.Errorf("state: path is required for backend %q", c.State.Backend)
		}
	default:
		return fmt.Errorf("state: unknown backend %q", c.State.Backend)
	}

	if len(c.Pools) == 0 {
		return fmt.Errorf("pools list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		if p.Name == "" {
			return fmt.Errorf("pools[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("pools[%d]: duplicate pool name %q", i, p.Name)
		}
		seen[p.Name] = true

		if len(p.Rules) == 0 {
			return fmt.Errorf("pools[%d]: rules list is required and must be non-empty", i)
		}
		if p.Capacity != nil && (*p.Capacity == 0 || *p.Capacity < pool.Unbounded) {
			return fmt.Errorf("pools[%d]: capacity must be positive or -1", i)
		}
		if p.Preload < 0 {
			return fmt.Errorf("pools[%d]: preload must be non-negative", i)
		}
		if p.ReasonLimit < 0 {
			return fmt.Errorf("pools[%d]: reason_limit must be positive", i)
		}
		if p.MaxFires != nil && *p.MaxFires < -1 {
			return fmt.Errorf("pools[%d]: max_fires must be non-negative or -1", i)
		}
		if p.Suggest != nil && len(p.Suggest.Properties) == 0 {
			return fmt.Errorf("pools[%d].suggest: properties list is required", i)
		}
	}
	return nil
}

// Pool returns the configuration of the named pool.
func (c *Config) Pool(name string) (PoolConfig, bool) {
	for _, p := range c.Pools {
		if p.Name == name {
			return p, true
		}
	}
	return PoolConfig{}, false
}
