package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBenchmarkConfigBasic(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
metadata:
  benchmark_id: bench1
  judge_model: gpt2
  rounds_per_game: 3
  master_seed: abc123

expansion:
  num_maps_per_game: 2
  text_generator: JUDGE
  max_story_tokens: 256

players:
  - id: p1
    type: openai
    options:
      model: gpt-4o-mini

games:
  - name: condense
    source: games/condense.xdl
    presentation_source: games/condense.go
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := LoadBenchmarkConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "bench1", cfg.Metadata.BenchmarkID)
	assert.Equal(t, 3, cfg.Metadata.RoundsPerGame)
	assert.Len(t, cfg.Players, 1)
	assert.Len(t, cfg.Games, 1)
	assert.Equal(t, "gpt-4o-mini", cfg.Players[0].Options["model"])
}

func TestLoadBenchmarkConfigMissingRequired(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("metadata:\n  benchmark_id: x\n"), 0o644))

	_, err := LoadBenchmarkConfig(configPath)
	assert.Error(t, err)
}

func TestValidateDuplicatePlayerID(t *testing.T) {
	cfg := &BenchmarkConfig{
		Metadata: Metadata{BenchmarkID: "b", JudgeModel: "m", RoundsPerGame: 1, MasterSeed: "s"},
		Players: []PlayerConfig{
			{ID: "p1", Type: "openai"},
			{ID: "p1", Type: "bedrock"},
		},
		Games: []GameConfig{{Name: "g", Source: "s", PresentationSource: "p"}},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "duplicate player id")
}

func TestValidateCommunityArchiveRequiresDir(t *testing.T) {
	cfg := &BenchmarkConfig{
		Metadata:  Metadata{BenchmarkID: "b", JudgeModel: "m", RoundsPerGame: 1, MasterSeed: "s"},
		Expansion: ExpansionConfig{NumMapsPerGame: 1, TextGenerator: "COMMUNITY_ARCHIVE"},
		Players:   []PlayerConfig{{ID: "p1", Type: "openai"}},
		Games:     []GameConfig{{Name: "g", Source: "s", PresentationSource: "p"}},
	}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "archive_dir")
}

func TestEnvVarInterpolation(t *testing.T) {
	t.Setenv("XENT_TEST_API_KEY", "secret123")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	yamlContent := `
metadata:
  benchmark_id: b
  judge_model: gpt2
  rounds_per_game: 1
  master_seed: s

expansion:
  num_maps_per_game: 1
  text_generator: JUDGE

players:
  - id: p1
    type: openai
    options:
      api_key: "${XENT_TEST_API_KEY}"

games:
  - name: g
    source: s
    presentation_source: p
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))
	cfg, err := LoadBenchmarkConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Players[0].Options["api_key"])
}

func TestLoadBenchmarkConfigEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	yamlContent := `
metadata:
  benchmark_id: bench1
  judge_model: gpt2
  rounds_per_game: 2
  master_seed: seedval

expansion:
  num_maps_per_game: 1
  text_generator: JUDGE

players:
  - id: p1
    type: testgen

games:
  - name: g1
    source: s
    presentation_source: p
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))
	t.Setenv("XENT_METADATA__MASTER_SEED", "overridden")

	cfg, err := LoadBenchmarkConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "overridden", cfg.Metadata.MasterSeed)
}
