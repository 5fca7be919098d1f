// Package config provides configuration loading and access for the swarm core.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all swarm configuration parameters.
type Config struct {
	Swarm      SwarmConfig      `yaml:"swarm"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// SwarmConfig holds particle ownership and escape parameters.
type SwarmConfig struct {
	ParticleEscape bool `yaml:"particle_escape"` // Cull out-of-domain particles instead of failing
	EscapeBacklog  int  `yaml:"escape_backlog"`  // Pending removals before storage is compacted
}

// CheckpointConfig holds coordinate save/load parameters.
type CheckpointConfig struct {
	ChunkRows int `yaml:"chunk_rows"` // Rows read per chunk during a collective load
}

// TelemetryConfig holds telemetry output parameters.
type TelemetryConfig struct {
	OutputDir string `yaml:"output_dir"` // Directory for CSV logs (empty = disabled)
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.Swarm.EscapeBacklog <= 0 {
		return nil, fmt.Errorf("swarm.escape_backlog must be positive, got %d", cfg.Swarm.EscapeBacklog)
	}
	if cfg.Checkpoint.ChunkRows <= 0 {
		return nil, fmt.Errorf("checkpoint.chunk_rows must be positive, got %d", cfg.Checkpoint.ChunkRows)
	}

	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
