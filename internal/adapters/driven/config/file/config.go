// Package file loads Workbench configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

// DefaultFileName is the config file name under the config directory.
const DefaultFileName = "config.toml"

// Config is the on-disk configuration for the workspace runtime.
type Config struct {
	Workspace WorkspaceConfig     `toml:"workspace"`
	Embedding EmbeddingConfig     `toml:"embedding"`
	Vector    VectorConfig        `toml:"vector"`
	Toolkits  domain.PolicyConfig `toml:"toolkits"`
}

// WorkspaceConfig configures the sandboxed file surface.
type WorkspaceConfig struct {
	// RootDir is the host directory the workspace is confined to.
	RootDir string `toml:"root_dir"`

	// ExecDir is the root for sandboxed command working directories.
	// Defaults to RootDir.
	ExecDir string `toml:"exec_dir"`

	// Watch enables the fsnotify watcher that keeps the index in sync.
	Watch bool `toml:"watch"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "ollama", "openai", or "" to disable vector search.
	Provider string `toml:"provider"`

	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
}

// VectorConfig selects the vector store backing.
type VectorConfig struct {
	// Store is "memory" (default) or "sqlite".
	Store string `toml:"store"`

	// Path is the sqlite database file, for the sqlite store.
	Path string `toml:"path"`
}

// DefaultDir returns the default config directory (~/.workbench).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".workbench"), nil
}

// Default returns the configuration used when no file exists: a
// workspace under the config dir, no embedding provider, in-memory
// vectors, and the default tool policies.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{RootDir: ""},
		Vector:    VectorConfig{Store: "memory"},
	}
}

// Load reads the config file at path. A missing file yields defaults,
// not an error; a malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Workspace.ExecDir == "" {
		cfg.Workspace.ExecDir = cfg.Workspace.RootDir
	}
	if cfg.Vector.Store == "" {
		cfg.Vector.Store = "memory"
	}
	return cfg, nil
}

// Save writes the config to path, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
