package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/pkg/export"
)

// Config holds all configuration for pgraph
type Config struct {
	// Output locations. NodesFile and EdgesFile name the tables when a single
	// unit is built; otherwise tables are named after each unit.
	OutputDir  string `yaml:"output_dir" env:"PGRAPH_OUTPUT_DIR"`
	NodesFile  string `yaml:"nodes_file" env:"PGRAPH_NODES_FILE"`
	EdgesFile  string `yaml:"edges_file" env:"PGRAPH_EDGES_FILE"`
	LabelsFile string `yaml:"labels_file" env:"PGRAPH_LABELS_FILE"`

	// Table format
	Delimiter string `yaml:"delimiter" env:"PGRAPH_DELIMITER"`
	Header    bool   `yaml:"header" env:"PGRAPH_HEADER"`

	// SQLitePath enables the database export when set.
	SQLitePath string `yaml:"sqlite_path" env:"PGRAPH_SQLITE_PATH"`

	// Table cache
	CacheDir     string `yaml:"cache_dir" env:"PGRAPH_CACHE_DIR"`
	CacheEnabled bool   `yaml:"cache_enabled" env:"PGRAPH_CACHE_ENABLED"`

	// Workers bounds the units built in parallel. 0 means one per CPU.
	Workers int `yaml:"workers" env:"PGRAPH_WORKERS"`

	// Input selection
	Extensions []string `yaml:"extensions" env:"PGRAPH_EXTENSIONS"`
	IgnoreFile string   `yaml:"ignore_file" env:"PGRAPH_IGNORE_FILE"`

	// Logging
	LogLevel string `yaml:"log_level" env:"PGRAPH_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"PGRAPH_JSON_LOGS"`
	Verbose  bool   `yaml:"verbose" env:"PGRAPH_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:    "pgraph-out",
		NodesFile:    "nodes.csv",
		EdgesFile:    "edges.csv",
		LabelsFile:   "collated.json",
		Delimiter:    ",",
		Header:       false,
		SQLitePath:   "",
		CacheDir:     filepath.Join(".pgraph", "cache"),
		CacheEnabled: true,
		Workers:      0,
		Extensions:   []string{".cpp", ".cc", ".cxx", ".c++"},
		IgnoreFile:   ".pgraphignore",
		LogLevel:     "info",
		JSONLogs:     false,
		Verbose:      false,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.pgraph/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pgraph", "config.yaml")
	}
	return filepath.Join(home, ".pgraph", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.pgraph/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".pgraph", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.pgraph/config.yaml)
// 3. Global config (~/.pgraph/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		if err := mergeFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PGRAPH_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PGRAPH_NODES_FILE"); v != "" {
		cfg.NodesFile = v
	}
	if v := os.Getenv("PGRAPH_EDGES_FILE"); v != "" {
		cfg.EdgesFile = v
	}
	if v := os.Getenv("PGRAPH_LABELS_FILE"); v != "" {
		cfg.LabelsFile = v
	}
	if v := os.Getenv("PGRAPH_DELIMITER"); v != "" {
		cfg.Delimiter = v
	}
	if v := os.Getenv("PGRAPH_HEADER"); v != "" {
		cfg.Header = parseBool(v)
	}
	if v := os.Getenv("PGRAPH_SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("PGRAPH_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("PGRAPH_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("PGRAPH_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("PGRAPH_EXTENSIONS"); v != "" {
		cfg.Extensions = splitList(v)
	}
	if v := os.Getenv("PGRAPH_IGNORE_FILE"); v != "" {
		cfg.IgnoreFile = v
	}
	if v := os.Getenv("PGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PGRAPH_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("PGRAPH_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.NodesFile == "" || c.EdgesFile == "" {
		return fmt.Errorf("nodes_file and edges_file are required")
	}
	if _, err := export.ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("delimiter: %w", err)
	}
	if c.CacheEnabled && c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required when cache_enabled is true")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid extension %q (must start with '.')", ext)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// EffectiveWorkers returns the worker count to use.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// EffectiveLogLevel returns the configured level, raised to debug when
// verbose is set.
func (c *Config) EffectiveLogLevel() log.Level {
	if c.Verbose {
		return log.DebugLevel
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "yes"
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
