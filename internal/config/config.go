// Package config provides configuration loading and structs for the Cémantix solver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Solver    SolverConfig    `yaml:"solver"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
}

// OracleConfig holds settings for the remote scoring service.
type OracleConfig struct {
	BaseURL   string `yaml:"base_url"`
	DelayMs   int    `yaml:"delay_ms"`   // pause enforced between two calls
	TimeoutMs int    `yaml:"timeout_ms"` // per-call timeout; a stuck call counts as unknown
}

// Delay returns the inter-call pause.
func (o *OracleConfig) Delay() time.Duration {
	return time.Duration(o.DelayMs) * time.Millisecond
}

// Timeout returns the per-call timeout.
func (o *OracleConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}

// SolverConfig holds the search controller's tunables.
type SolverConfig struct {
	CandidateBatchSize  int      `yaml:"candidate_batch_size"`
	InitialBatchSize    int      `yaml:"initial_batch_size"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	MaxIterations       int      `yaml:"max_iterations"`
	MinProbes           int      `yaml:"min_probes"`
	SimilarityFloor     *float64 `yaml:"similarity_floor"`
	MaxEmptyBatches     int      `yaml:"max_empty_batches"`
	MaxCalls            int      `yaml:"max_calls"`       // 0 = unlimited
	MaxDurationMs       int      `yaml:"max_duration_ms"` // 0 = unlimited
	Seeds               []string `yaml:"seeds"`
}

// Threshold returns the minimum predicted similarity for a candidate. An unset threshold is
// the default 0.1; an explicit 0 is kept.
func (s *SolverConfig) Threshold() float64 {
	if s.SimilarityThreshold == nil {
		return DefaultSimilarityThreshold
	}
	return *s.SimilarityThreshold
}

// Floor returns the similarity a probe must exceed to be used in reconstruction.
func (s *SolverConfig) Floor() float64 {
	if s.SimilarityFloor == nil {
		return DefaultSimilarityFloor
	}
	return *s.SimilarityFloor
}

// Float returns a pointer to v, for setting the optional float fields.
func Float(v float64) *float64 {
	return &v
}

// MaxDuration returns the wall-clock budget, zero when unlimited.
func (s *SolverConfig) MaxDuration() time.Duration {
	return time.Duration(s.MaxDurationMs) * time.Millisecond
}

// EmbeddingConfig locates the local word vectors. The vocabulary must come from the same
// model the oracle scores with.
type EmbeddingConfig struct {
	ModelPath    string `yaml:"model_path"`
	Format       string `yaml:"format"`        // word2vec-bin or word2vec-text
	SnapshotPath string `yaml:"snapshot_path"` // fast-load snapshot written by "cemantix convert"
	Limit        int    `yaml:"limit"`         // 0 = whole vocabulary
}

// StorageConfig holds the session archive path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig controls model hot reload in server mode.
type WatchConfig struct {
	Model bool `yaml:"model"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
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
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Embedding.SnapshotPath != "" {
		cfg.Embedding.SnapshotPath = expandPath(cfg.Embedding.SnapshotPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
