// Package config provides configuration loading and structs for the Kensaku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Index    IndexConfig    `yaml:"index"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Search   SearchConfig   `yaml:"search"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CorpusConfig describes the document tree to index.
type CorpusConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
}

// IndexConfig holds paths and limits for the segment index and document store.
type IndexConfig struct {
	Dir          string `yaml:"dir"`
	DatabasePath string `yaml:"database_path"`
	// BatchSize is the number of documents committed per segment during a rebuild.
	BatchSize int `yaml:"batch_size"`
	// MaxDocuments caps how many documents the index will hold. The whole term
	// dictionary and all postings are kept in memory, so this bounds resident
	// memory; 0 means unlimited.
	MaxDocuments int `yaml:"max_documents"`
}

// AnalysisConfig holds text analysis settings.
type AnalysisConfig struct {
	Stopwords      []string `yaml:"stopwords"`
	MinTokenLength int      `yaml:"min_token_length"`
}

// SearchConfig holds query-time settings.
type SearchConfig struct {
	// Scorer selects the term-weighting formula: "tfidf" (default) or "bm25".
	Scorer        string `yaml:"scorer"`
	SnippetWindow int    `yaml:"snippet_window"`
	DefaultLimit  int    `yaml:"default_limit"`
	MaxLimit      int    `yaml:"max_limit"`
}

// WatchConfig holds corpus watch settings. When enabled, file changes under the
// corpus root schedule a debounced full rebuild.
type WatchConfig struct {
	Enabled        bool `yaml:"enabled"`
	RebuildDelayMS int  `yaml:"rebuild_delay_ms"`
}

// Load reads and parses the config file at path, applies defaults, and expands
// relative paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Corpus.Root = expandPath(cfg.Corpus.Root, configDir)
	cfg.Index.Dir = expandPath(cfg.Index.Dir, configDir)
	cfg.Index.DatabasePath = expandPath(cfg.Index.DatabasePath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
