package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/l3aro/pgraph/internal/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"OutputDir", cfg.OutputDir, "pgraph-out"},
		{"NodesFile", cfg.NodesFile, "nodes.csv"},
		{"EdgesFile", cfg.EdgesFile, "edges.csv"},
		{"LabelsFile", cfg.LabelsFile, "collated.json"},
		{"Delimiter", cfg.Delimiter, ","},
		{"Header", cfg.Header, false},
		{"SQLitePath", cfg.SQLitePath, ""},
		{"CacheEnabled", cfg.CacheEnabled, true},
		{"Workers", cfg.Workers, 0},
		{"IgnoreFile", cfg.IgnoreFile, ".pgraphignore"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "tab delimiter", mutate: func(c *Config) { c.Delimiter = "tab" }},
		{
			name:        "empty output dir",
			mutate:      func(c *Config) { c.OutputDir = "" },
			wantErr:     true,
			errContains: "output_dir",
		},
		{
			name:        "multi-character delimiter",
			mutate:      func(c *Config) { c.Delimiter = "::" },
			wantErr:     true,
			errContains: "delimiter",
		},
		{
			name:        "cache without dir",
			mutate:      func(c *Config) { c.CacheDir = "" },
			wantErr:     true,
			errContains: "cache_dir",
		},
		{
			name:   "cache disabled without dir",
			mutate: func(c *Config) { c.CacheDir = ""; c.CacheEnabled = false },
		},
		{
			name:        "negative workers",
			mutate:      func(c *Config) { c.Workers = -1 },
			wantErr:     true,
			errContains: "workers",
		},
		{
			name:        "extension without dot",
			mutate:      func(c *Config) { c.Extensions = []string{"cpp"} },
			wantErr:     true,
			errContains: "extension",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errContains: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() = nil, want error containing %q", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Validate() = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `output_dir: build/graph
delimiter: ";"
header: true
workers: 4
extensions: [".cpp", ".cc"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.OutputDir != "build/graph" {
		t.Errorf("OutputDir = %q, want build/graph", cfg.OutputDir)
	}
	if cfg.Delimiter != ";" || !cfg.Header {
		t.Errorf("Delimiter/Header = %q/%v, want ;/true", cfg.Delimiter, cfg.Header)
	}
	if cfg.EffectiveWorkers() != 4 {
		t.Errorf("EffectiveWorkers() = %d, want 4", cfg.EffectiveWorkers())
	}
	if !reflect.DeepEqual(cfg.Extensions, []string{".cpp", ".cc"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	// untouched keys keep their defaults
	if cfg.NodesFile != "nodes.csv" {
		t.Errorf("NodesFile = %q, want nodes.csv", cfg.NodesFile)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFromFile(missing) = nil error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("workers: [1, 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("LoadFromFile(bad yaml) = nil error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(invalid); err == nil {
		t.Error("LoadFromFile(invalid level) = nil error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PGRAPH_OUTPUT_DIR", "/tmp/out")
	t.Setenv("PGRAPH_HEADER", "yes")
	t.Setenv("PGRAPH_CACHE_ENABLED", "false")
	t.Setenv("PGRAPH_WORKERS", "3")
	t.Setenv("PGRAPH_EXTENSIONS", ".cpp, .cxx")
	t.Setenv("PGRAPH_VERBOSE", "1")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if !cfg.Header {
		t.Error("Header = false, want true")
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled = true, want false")
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if !reflect.DeepEqual(cfg.Extensions, []string{".cpp", ".cxx"}) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.EffectiveLogLevel() != log.DebugLevel {
		t.Errorf("EffectiveLogLevel() = %v, want debug", cfg.EffectiveLogLevel())
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	global := &Config{}
	*global = *DefaultConfig()
	global.OutputDir = "global-out"
	global.Workers = 2
	if err := global.Save(filepath.Join(home, ".pgraph", "config.yaml")); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(".pgraph", 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ProjectConfigFilePath(), []byte("output_dir: project-out\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OutputDir != "project-out" {
		t.Errorf("OutputDir = %q, want project-out", cfg.OutputDir)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2 from the global file", cfg.Workers)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.SQLitePath = "graph.db"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.SQLitePath != "graph.db" {
		t.Errorf("SQLitePath = %q, want graph.db", loaded.SQLitePath)
	}
}
