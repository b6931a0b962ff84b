// Package config loads and validates ragcore configuration.
//
// All core calls receive an explicit *Config constructed once at process
// start; nothing in the core reads ambient process state after that. This
// replaces the original system's reliance on framework session variables
// for persist paths and admin flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "ragcore.yaml"

// Config is the complete ragcore configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Paths    PathsConfig    `yaml:"paths"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Registry RegistryConfig `yaml:"registry"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PathsConfig configures where documents come from and where the chunk
// store lives.
type PathsConfig struct {
	// SourceDir is the directory scanned for source documents.
	SourceDir string `yaml:"source_dir"`

	// PersistRoot is the root directory for chunk store generations,
	// the CURRENT pointer, and the readiness marker.
	PersistRoot string `yaml:"persist_root"`
}

// IndexConfig configures chunking and build parallelism.
type IndexConfig struct {
	// ChunkSize is the sliding window size in runes.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive windows in runes.
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Workers is the number of concurrent chunking workers (0 = NumCPU).
	Workers int `yaml:"workers"`

	// KeepGenerations is how many superseded generations to keep on disk
	// for in-flight readers before garbage collection (default: 1).
	KeepGenerations int `yaml:"keep_generations"`
}

// SearchConfig configures the retrieval engine.
type SearchConfig struct {
	// DefaultTopK is the hit count used when the caller does not specify one.
	DefaultTopK int `yaml:"default_top_k"`
}

// RegistryConfig configures the release registry collaborator.
type RegistryConfig struct {
	// Owner is the GitHub owner of the release repository.
	Owner string `yaml:"owner"`

	// Repo is the GitHub repository that stores index archives.
	Repo string `yaml:"repo"`

	// Token is the API token. Usually left empty in the file and supplied
	// via RAGCORE_REGISTRY_TOKEN.
	Token string `yaml:"token"`

	// Timeout bounds a single registry call.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}

	return &Config{
		Version: 1,
		Paths: PathsConfig{
			SourceDir:   "knowledge",
			PersistRoot: filepath.Join(home, ".ragcore", "persist"),
		},
		Index: IndexConfig{
			ChunkSize:       1200,
			ChunkOverlap:    150,
			Workers:         0,
			KeepGenerations: 1,
		},
		Search: SearchConfig{
			DefaultTopK: 5,
		},
		Registry: RegistryConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist. Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults + env only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies RAGCORE_* environment overrides. Env always wins over
// the file so deployments can inject credentials without editing it.
func (c *Config) applyEnv() {
	if v := os.Getenv("RAGCORE_PERSIST_ROOT"); v != "" {
		c.Paths.PersistRoot = v
	}
	if v := os.Getenv("RAGCORE_SOURCE_DIR"); v != "" {
		c.Paths.SourceDir = v
	}
	if v := os.Getenv("RAGCORE_REGISTRY_OWNER"); v != "" {
		c.Registry.Owner = v
	}
	if v := os.Getenv("RAGCORE_REGISTRY_REPO"); v != "" {
		c.Registry.Repo = v
	}
	if v := os.Getenv("RAGCORE_REGISTRY_TOKEN"); v != "" {
		c.Registry.Token = v
	}
	if v := os.Getenv("RAGCORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks invariants the rest of the core depends on.
func (c *Config) Validate() error {
	if c.Paths.PersistRoot == "" {
		return fmt.Errorf("paths.persist_root must not be empty")
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 {
		return fmt.Errorf("index.chunk_overlap must not be negative, got %d", c.Index.ChunkOverlap)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)",
			c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	if c.Index.KeepGenerations < 0 {
		return fmt.Errorf("index.keep_generations must not be negative, got %d", c.Index.KeepGenerations)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("search.default_top_k must be positive, got %d", c.Search.DefaultTopK)
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("registry.timeout must be positive, got %s", c.Registry.Timeout)
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
