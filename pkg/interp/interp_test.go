package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/xdl"
	"github.com/xentlabs/xent/pkg/xent"
)

type fakeJudge struct {
	bitsPerToken float64
}

func (f fakeJudge) Xent(ctx context.Context, text, context_ string) (xent.TokenXent, error) {
	return xent.New([]string{text}, []float64{f.bitsPerToken}), nil
}

func (f fakeJudge) XentDiff(ctx context.Context, text, context1, context2 string) (xent.TokenXent, error) {
	return xent.New([]string{text}, []float64{0}), nil
}

type scriptedElicitor struct {
	responses []string
	i         int
	calls     int
}

func (s *scriptedElicitor) Elicit(ctx context.Context, snapshot map[string]string, since, full event.Log, varName string, maxTokens int) (string, error) {
	s.calls++
	r := s.responses[s.i%len(s.responses)]
	s.i++
	return r, nil
}

func mustParse(t *testing.T, src string) *xdl.Program {
	t.Helper()
	prog, err := xdl.Parse(src)
	require.NoError(t, err)
	return prog
}

func TestSingleRoundRewardFlow(t *testing.T) {
	prog := mustParse(t, `
elicit(x, 16)
reward(xed(x))
`)
	in := New(prog, 0, nil, 1, 3, &scriptedElicitor{responses: []string{"hello"}}, EvalContext{Judge: fakeJudge{bitsPerToken: 2.0}})

	results, err := in.RunTrial(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeCompleted, results[0].Outcome)
	assert.Equal(t, 1, results[0].Arms)
	assert.InDelta(t, 2.0, results[0].Total, 1e-9)
}

func TestEnsureRollbackThenSucceeds(t *testing.T) {
	prog := mustParse(t, `
beacon()
elicit(x, 16)
ensure(x == "yes")
reward(xed(x))
`)
	in := New(prog, 0, nil, 1, 5, &scriptedElicitor{responses: []string{"no", "no", "yes"}}, EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}})

	results, err := in.RunTrial(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeCompleted, results[0].Outcome)

	failedCount := results[0].Events.CountKind(event.KindFailedEnsure)
	assert.Equal(t, 2, failedCount)
	assert.InDelta(t, 1.0, results[0].Total, 1e-9)
}

func TestEnsureExceedsCapMarksStuck(t *testing.T) {
	prog := mustParse(t, `
beacon()
elicit(x, 16)
ensure(x == "yes")
reward(xed(x))
`)
	in := New(prog, 0, nil, 1, 2, &scriptedElicitor{responses: []string{"no"}}, EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}})

	results, err := in.RunTrial(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeStuck, results[0].Outcome)
	assert.Equal(t, 0.0, results[0].Total)
}

func TestMapPrefixBindingsPersistAcrossRounds(t *testing.T) {
	prog := mustParse(t, `
reveal(s)
elicit(x, 16)
reward(xed(x))
`)
	in := New(prog, 0, map[string]string{"s": "frozen story"}, 2, 3, &scriptedElicitor{responses: []string{"a", "b"}}, EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}})

	results, err := in.RunTrial(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		reveal, ok := r.Events[1].(event.Reveal)
		require.True(t, ok)
		assert.Equal(t, "frozen story", reveal.Values[0].Text)
	}
}

func TestElicitZeroMaxTokensSkipsElicitorAndBindsEmpty(t *testing.T) {
	prog := mustParse(t, `
elicit(x, 0)
reward(xed(x))
`)
	elicitor := &scriptedElicitor{responses: []string{"should never be used"}}
	in := New(prog, 0, nil, 1, 3, elicitor, EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}})

	results, err := in.RunTrial(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, elicitor.calls, "max_tokens=0 must never reach the player back-end")

	for _, e := range results[0].Events {
		if resp, ok := e.(event.ElicitResponse); ok {
			assert.Equal(t, "", resp.ResponseText)
		}
	}
}

func TestHeadlineScoreIsRoundMax(t *testing.T) {
	prog := mustParse(t, `
elicit(x, 16)
reward(xed(x))
`)
	in := New(prog, 0, nil, 3, 3, &scriptedElicitor{responses: []string{"a"}}, EvalContext{Judge: fakeJudge{bitsPerToken: 1.0}})
	results, err := in.RunTrial(context.Background())
	require.NoError(t, err)

	max := results[0].Total
	maxIdx := 0
	for _, r := range results {
		if r.Total > max {
			max = r.Total
			maxIdx = r.Index
		}
	}
	assert.InDelta(t, 1.0, max, 1e-9)
	assert.Equal(t, 0, maxIdx)
}
