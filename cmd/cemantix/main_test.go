package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ucli "github.com/urfave/cli/v2"
)

const testModel = `7 3
chien 1 0 0
chat 0.62 0.7846 0
ciel 0.05 0 0.99875
mer 0 0 1
voiture 0 -1 0
nuit -1 0 0
arbre 0 0 -1
`

const testConfig = `embedding:
  model_path: ./model.txt
  format: word2vec-text
  snapshot_path: ./space.snap
storage:
  database_path: ./sessions.db
solver:
  seeds: [chat, ciel]
  min_probes: 2
`

func writeWorkspace(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.txt"), []byte(testModel), 0600))
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0600))
	return dir, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"cemantix"}, args...))
	return out.String(), err
}

func TestSolveSimulated(t *testing.T) {
	dir, cfgPath := writeWorkspace(t)

	out, err := run(t, "--config", cfgPath, "solve", "--simulate", "chien", "--puzzle", "1459", "--save", "--output", "json")
	require.NoError(t, err)

	var report struct {
		Found     bool           `json:"found"`
		Word      string         `json:"word"`
		Puzzle    string         `json:"puzzle"`
		CallCount int            `json:"call_count"`
		Probes    []models.Probe `json:"probes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.True(t, report.Found)
	assert.Equal(t, "chien", report.Word)
	assert.Equal(t, "1459", report.Puzzle)
	assert.Equal(t, 3, report.CallCount)
	assert.FileExists(t, filepath.Join(dir, "sessions.db"))

	out, err = run(t, "--config", cfgPath, "history", "--output", "json")
	require.NoError(t, err)
	var history struct {
		Sessions []models.Session `json:"sessions"`
		Total    int64            `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &history), out)
	require.Len(t, history.Sessions, 1)
	assert.Equal(t, int64(1), history.Total)
	assert.Equal(t, "1459", history.Sessions[0].Puzzle)
	require.NotNil(t, history.Sessions[0].Result)
	assert.Equal(t, "chien", history.Sessions[0].Result.Word)
}

func TestSolveUnknownSimulatedTarget(t *testing.T) {
	_, cfgPath := writeWorkspace(t)
	_, err := run(t, "--config", cfgPath, "solve", "--simulate", "licorne", "--puzzle", "1")
	assert.Error(t, err)
}

func TestSolveBadOutput(t *testing.T) {
	_, cfgPath := writeWorkspace(t)
	_, err := run(t, "--config", cfgPath, "solve", "--simulate", "chien", "--output", "xml")
	assert.Error(t, err)
}

func TestConvertAndStatus(t *testing.T) {
	dir, cfgPath := writeWorkspace(t)
	snap := filepath.Join(dir, "space.snap")

	out, err := run(t, "--config", cfgPath, "convert",
		"--in", filepath.Join(dir, "model.txt"), "--out", snap, "--format", vector.FormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 7 words")

	space, err := vector.Open(context.Background(), vector.Source{SnapshotPath: snap})
	require.NoError(t, err)
	assert.Equal(t, 7, space.Size())
	assert.Equal(t, 3, space.Dimensions())

	out, err = run(t, "--config", cfgPath, "status", "--output", "json")
	require.NoError(t, err)
	var st struct {
		Sessions       int64 `json:"sessions"`
		Vocabulary     int   `json:"vocabulary"`
		Dimensions     int   `json:"dimensions"`
		DiskUsageBytes int64 `json:"disk_usage_bytes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st), out)
	assert.Equal(t, int64(0), st.Sessions)
	assert.Equal(t, 7, st.Vocabulary)
	assert.Equal(t, 3, st.Dimensions)
	assert.Positive(t, st.DiskUsageBytes)
}

func TestConvertRequiresPaths(t *testing.T) {
	_, cfgPath := writeWorkspace(t)
	_, err := run(t, "--config", cfgPath, "convert", "--out", "x.snap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cemantix version")
}

func TestSolveFlagDefaults(t *testing.T) {
	var solve *ucli.Command
	for _, cmd := range newApp().Commands {
		if cmd.Name == "solve" {
			solve = cmd
		}
	}
	require.NotNil(t, solve)
	for _, flag := range solve.Flags {
		switch f := flag.(type) {
		case *ucli.BoolFlag:
			if f.Name == "hints" {
				assert.True(t, f.Value, "hints are on by default")
			}
			if f.Name == "save" {
				assert.False(t, f.Value)
			}
		case *ucli.StringFlag:
			if f.Name == "puzzle" {
				assert.Empty(t, f.Value, "empty puzzle means today's")
			}
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		dir, cfgPath := writeWorkspace(t)
		cfg, resolved, err := loadConfig(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, cfgPath, resolved)
		assert.Equal(t, filepath.Join(dir, "model.txt"), cfg.Embedding.ModelPath)
		assert.Equal(t, []string{"chat", "ciel"}, cfg.Solver.Seeds)
		assert.Equal(t, 100, cfg.Solver.CandidateBatchSize)
	})

	t.Run("missing explicit path", func(t *testing.T) {
		_, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("default path prefers working directory", func(t *testing.T) {
		dir, _ := writeWorkspace(t)
		oldwd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { _ = os.Chdir(oldwd) })
		_, resolved, err := loadConfig(defaultConfigPath)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "config.yaml"), resolved)
	})
}

func TestReloadSource(t *testing.T) {
	dir, cfgPath := writeWorkspace(t)
	cfg, _, err := loadConfig(cfgPath)
	require.NoError(t, err)

	src := reloadSource(cfg, filepath.Join(dir, "space.snap"))
	assert.Equal(t, filepath.Join(dir, "space.snap"), src.SnapshotPath, "snapshot change reloads the snapshot")

	src = reloadSource(cfg, filepath.Join(dir, "model.txt"))
	assert.Empty(t, src.SnapshotPath, "model change bypasses the stale snapshot")
	assert.Equal(t, filepath.Join(dir, "model.txt"), src.ModelPath)
	assert.Equal(t, vector.FormatText, src.Format)
}
