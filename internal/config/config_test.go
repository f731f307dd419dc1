package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
oracle:
  base_url: "http://127.0.0.1:9000"
  delay_ms: 50
solver:
  candidate_batch_size: 150
  similarity_threshold: 0.2
  seeds: ["chat", "ciel"]
storage:
  database_path: "sessions.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000", cfg.Oracle.BaseURL)
	assert.Equal(t, 50*time.Millisecond, cfg.Oracle.Delay())
	assert.Equal(t, 10*time.Second, cfg.Oracle.Timeout())
	assert.Equal(t, 150, cfg.Solver.CandidateBatchSize)
	assert.Equal(t, 150, cfg.Solver.InitialBatchSize, "initial batch follows candidate batch when unset")
	assert.Equal(t, 0.2, cfg.Solver.Threshold())
	assert.Equal(t, []string{"chat", "ciel"}, cfg.Solver.Seeds)
	assert.NotEmpty(t, cfg.Storage.DatabasePath)
	assert.False(t, cfg.Debug, "debug should default to false when unset")
}

func TestLoad_explicitZeroFloatsAreKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
solver:
  similarity_threshold: 0
  similarity_floor: 0
  max_duration_ms: 1500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Solver.Threshold())
	assert.Equal(t, 0.0, cfg.Solver.Floor())
	assert.Equal(t, 1500*time.Millisecond, cfg.Solver.MaxDuration())

	ApplySolverDefaults(&cfg.Solver)
	assert.Equal(t, 0.0, cfg.Solver.Threshold(), "defaults must not overwrite an explicit zero")
	assert.Equal(t, 0.0, cfg.Solver.Floor())
}

func TestSolverConfig_unsetFloatsUseDefaults(t *testing.T) {
	s := &SolverConfig{}
	assert.Equal(t, DefaultSimilarityThreshold, s.Threshold())
	assert.Equal(t, DefaultSimilarityFloor, s.Floor())
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  model_path: "./models/frwac.bin"
  snapshot_path: "./models/frwac.snap"
storage:
  database_path: "./data/sessions.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "models", "frwac.bin"), cfg.Embedding.ModelPath)
	assert.Equal(t, filepath.Join(dir, "models", "frwac.snap"), cfg.Embedding.SnapshotPath)
	assert.Equal(t, filepath.Join(dir, "data", "sessions.db"), cfg.Storage.DatabasePath)
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver: [unclosed"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "https://cemantix.certitudes.org", cfg.Oracle.BaseURL)
	assert.Equal(t, 200, cfg.Oracle.DelayMs)
	assert.Equal(t, 10000, cfg.Oracle.TimeoutMs)
	assert.Equal(t, 100, cfg.Solver.CandidateBatchSize)
	assert.Equal(t, 100, cfg.Solver.InitialBatchSize)
	assert.Equal(t, 0.1, cfg.Solver.Threshold())
	assert.Equal(t, 20, cfg.Solver.MaxIterations)
	assert.Equal(t, 5, cfg.Solver.MinProbes)
	assert.Equal(t, -0.5, cfg.Solver.Floor())
	assert.Equal(t, 2, cfg.Solver.MaxEmptyBatches)
	assert.Zero(t, cfg.Solver.MaxCalls)
	assert.Zero(t, cfg.Solver.MaxDuration())
	assert.Len(t, cfg.Solver.Seeds, len(DefaultSeeds))
	assert.Equal(t, "word2vec-bin", cfg.Embedding.Format)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestApplySolverDefaults_keepsExplicitValues(t *testing.T) {
	s := &SolverConfig{CandidateBatchSize: 50, InitialBatchSize: 300, MaxIterations: 3, Seeds: []string{}}
	ApplySolverDefaults(s)
	assert.Equal(t, 50, s.CandidateBatchSize)
	assert.Equal(t, 300, s.InitialBatchSize)
	assert.Equal(t, 3, s.MaxIterations)
	assert.Empty(t, s.Seeds, "an explicit empty seed list is kept")
}

func TestApplySolverDefaults_seedsAreCopied(t *testing.T) {
	s := &SolverConfig{}
	ApplySolverDefaults(s)
	s.Seeds[0] = "changed"
	assert.Equal(t, "vie", DefaultSeeds[0])
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/sessions.db"},
		Solver:  SolverConfig{MaxIterations: 7},
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, loaded.Server.Port)
	assert.Equal(t, 7, loaded.Solver.MaxIterations)
}
