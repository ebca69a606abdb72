package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/interp"
	"github.com/xentlabs/xent/pkg/metrics"
	"github.com/xentlabs/xent/pkg/result"
	"github.com/xentlabs/xent/pkg/trial"
	"github.com/xentlabs/xent/pkg/xdl"
	"github.com/xentlabs/xent/pkg/xent"
)

type fakeJudge struct{ bitsPerToken float64 }

func (f fakeJudge) Xent(ctx context.Context, text, context_ string) (xent.TokenXent, error) {
	return xent.New([]string{text}, []float64{f.bitsPerToken}), nil
}

func (f fakeJudge) XentDiff(ctx context.Context, text, context1, context2 string) (xent.TokenXent, error) {
	return xent.New([]string{text}, []float64{0}), nil
}

func (f fakeJudge) Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error) {
	return "story", nil
}

type scriptedElicitor struct{ response string }

func (s scriptedElicitor) Elicit(ctx context.Context, snapshot map[string]string, since, full event.Log, varName string, maxTokens int) (string, error) {
	return s.response, nil
}

func TestDeriveMapSeedsDeterministic(t *testing.T) {
	a := DeriveMapSeeds("master1", "condense", 3)
	b := DeriveMapSeeds("master1", "condense", 3)
	assert.Equal(t, a, b)

	other := DeriveMapSeeds("master2", "condense", 3)
	assert.NotEqual(t, a, other)
}

func TestExpandCartesianProduct(t *testing.T) {
	prog, err := xdl.Parse("elicit(x, 8)\nreward(xed(x))\n")
	require.NoError(t, err)
	games := []trial.Game{{Name: "g1", Program: prog, RoundStart: 0}}
	players := []PlayerSpec{{ID: "p1"}, {ID: "p2"}}

	units := Expand(games, players, "seed", 2)
	assert.Len(t, units, 4) // 1 game * 2 seeds * 2 players
}

func TestSchedulerRunWritesResultsAndSkipsComplete(t *testing.T) {
	prog, err := xdl.Parse("elicit(x, 8)\nreward(xed(x))\n")
	require.NoError(t, err)
	games := []trial.Game{{Name: "g1", Program: prog, RoundStart: 0}}
	players := []PlayerSpec{{ID: "p1"}}
	units := Expand(games, players, "seed", 1)
	require.Len(t, units, 1)

	resultsDir := t.TempDir()
	mapsDir := t.TempDir()
	sched := New(Options{
		Concurrency:  2,
		MaxRounds:    1,
		MaxEnsureCap: 1,
		ResultsDir:   resultsDir,
		BenchmarkID:  "b1",
		MapsDir:      mapsDir,
	})

	elicitorFor := func(playerID string) (interp.Elicitor, error) {
		return scriptedElicitor{response: "hi"}, nil
	}
	judgeFor := func(game string) (interp.EvalContext, error) {
		return interp.EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}}, nil
	}

	err = sched.Run(context.Background(), units, elicitorFor, judgeFor, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sched.completed)

	path := result.Path(resultsDir, "b1", "g1", "p1", units[0].MapSeed)
	assert.True(t, result.IsComplete(path))

	// Second run over the same units should skip the now-complete trial.
	sched2 := New(Options{Concurrency: 2, MaxRounds: 1, MaxEnsureCap: 1, ResultsDir: resultsDir, BenchmarkID: "b1", MapsDir: mapsDir})
	err = sched2.Run(context.Background(), units, elicitorFor, judgeFor, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sched2.skipped)
	assert.EqualValues(t, 0, sched2.completed)
}

func TestSchedulerRunRecordsMetrics(t *testing.T) {
	prog, err := xdl.Parse("elicit(x, 8)\nreward(xed(x))\n")
	require.NoError(t, err)
	games := []trial.Game{{Name: "g1", Program: prog, RoundStart: 0}}
	players := []PlayerSpec{{ID: "p1"}}
	units := Expand(games, players, "seed", 1)

	m := &metrics.Metrics{}
	sched := New(Options{
		Concurrency:  1,
		MaxRounds:    1,
		MaxEnsureCap: 1,
		ResultsDir:   t.TempDir(),
		BenchmarkID:  "b1",
		MapsDir:      t.TempDir(),
		Metrics:      m,
	})

	elicitorFor := func(playerID string) (interp.Elicitor, error) {
		return scriptedElicitor{response: "hi"}, nil
	}
	judgeFor := func(game string) (interp.EvalContext, error) {
		return interp.EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}}, nil
	}

	require.NoError(t, sched.Run(context.Background(), units, elicitorFor, judgeFor, nil))

	assert.EqualValues(t, 1, m.TrialsTotal)
	assert.EqualValues(t, 1, m.TrialsOK)
	assert.EqualValues(t, 1, m.RoundsPlayed)
	assert.EqualValues(t, 0, m.EnsureRetries)
	assert.EqualValues(t, 1, m.TokensConsumed) // one reward event, one scored token
}

func TestAggregateAfterSchedulerRun(t *testing.T) {
	prog, err := xdl.Parse("elicit(x, 8)\nreward(xed(x))\n")
	require.NoError(t, err)
	games := []trial.Game{{Name: "g1", Program: prog, RoundStart: 0}}
	players := []PlayerSpec{{ID: "p1"}}
	units := Expand(games, players, "seed", 1)

	resultsDir := t.TempDir()
	mapsDir := t.TempDir()
	sched := New(Options{Concurrency: 1, MaxRounds: 1, MaxEnsureCap: 1, ResultsDir: resultsDir, BenchmarkID: "b1", MapsDir: mapsDir})

	elicitorFor := func(playerID string) (interp.Elicitor, error) {
		return scriptedElicitor{response: "hi"}, nil
	}
	judgeFor := func(game string) (interp.EvalContext, error) {
		return interp.EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}}, nil
	}

	require.NoError(t, sched.Run(context.Background(), units, elicitorFor, judgeFor, nil))

	agg, err := Aggregate(resultsDir, "b1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, agg.PlayerOverall["p1"], 1e-9)
}
