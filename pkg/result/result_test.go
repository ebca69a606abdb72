package result

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomicAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trial.json")

	r := TrialResult{
		Game:          "condense",
		MapSeed:       "seed-1",
		PlayerID:      "p1",
		Rounds:        []RoundSummary{{Index: 0, Score: 1.5, Arms: 1, Iterations: 1}},
		HeadlineScore: 1.5,
		Status:        StatusOK,
	}
	require.NoError(t, WriteAtomic(path, r))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Game, got.Game)
	assert.Equal(t, r.HeadlineScore, got.HeadlineScore)
	assert.True(t, IsComplete(path))
}

func TestIsCompleteMissingFile(t *testing.T) {
	assert.False(t, IsComplete(filepath.Join(t.TempDir(), "nope.json")))
}

func TestAggregate(t *testing.T) {
	dir := t.TempDir()
	benchDir := filepath.Join(dir, "bench1")

	results := []TrialResult{
		{Game: "g1", PlayerID: "p1", MapSeed: "s1", HeadlineScore: 2.0, Status: StatusOK,
			Rounds: []RoundSummary{{Index: 0, Score: 1.0}, {Index: 1, Score: 2.0}}},
		{Game: "g1", PlayerID: "p1", MapSeed: "s2", HeadlineScore: 4.0, Status: StatusOK,
			Rounds: []RoundSummary{{Index: 0, Score: 4.0}}},
		{Game: "g2", PlayerID: "p1", MapSeed: "s1", HeadlineScore: 6.0, Status: StatusOK,
			Rounds: []RoundSummary{{Index: 0, Score: 6.0}}},
	}
	for _, r := range results {
		require.NoError(t, WriteAtomic(Path(dir, "bench1", r.Game, r.PlayerID, r.MapSeed), r))
	}

	agg, err := Aggregate(dir, "bench1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, agg.GamePlayer["g1"]["p1"], 1e-9)
	assert.InDelta(t, 6.0, agg.GamePlayer["g2"]["p1"], 1e-9)
	assert.InDelta(t, 4.5, agg.PlayerOverall["p1"], 1e-9)
	assert.ElementsMatch(t, []float64{2.0, 4.0}, agg.GamePlayerIter["g1"]["p1"], "per-map headline scores")
	assert.ElementsMatch(t, []float64{1.0, 2.0, 4.0}, agg.GamePlayerRounds["g1"]["p1"], "every round's score across both of g1's maps")
	assert.ElementsMatch(t, []float64{6.0}, agg.GamePlayerRounds["g2"]["p1"])
	_ = benchDir
}
