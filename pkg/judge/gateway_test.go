package judge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xentlabs/xent/pkg/retry"
)

// wordTokenizer splits on whitespace; good enough to exercise alignment
// logic without pulling in the real BPE tables in a test.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) ([]int, []string, error) {
	if text == "" {
		return nil, nil, nil
	}
	words := strings.Fields(text)
	ids := make([]int, len(words))
	for i := range words {
		ids[i] = i
	}
	return ids, words, nil
}

// constBackend returns a fixed bits-per-token value, one call per Score.
type constBackend struct {
	bitsPerToken float64
	calls        int
	failN        int // fail this many times before succeeding
}

func (b *constBackend) Score(ctx context.Context, tokens []int, contextLen int) ([]float64, error) {
	b.calls++
	if b.calls <= b.failN {
		return nil, assertErr
	}
	n := len(tokens) - contextLen
	out := make([]float64, n)
	for i := range out {
		out[i] = b.bitsPerToken
	}
	return out, nil
}

func (b *constBackend) Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error) {
	return "generated", nil
}

var assertErr = errTransient{}

type errTransient struct{}

func (errTransient) Error() string { return "transient backend error" }

func fastRetry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestGatewayXent(t *testing.T) {
	backend := &constBackend{bitsPerToken: 2.0}
	gw := New(wordTokenizer{}, backend, fastRetry(), 4)

	tx, err := gw.Xent(context.Background(), "a brave knight", "once upon a time")
	require.NoError(t, err)
	assert.Equal(t, "a brave knight", tx.Surface())
	assert.InDelta(t, 6.0, tx.Total(), 1e-9)
}

func TestGatewayXentCached(t *testing.T) {
	backend := &constBackend{bitsPerToken: 1.0}
	gw := New(wordTokenizer{}, backend, fastRetry(), 4).(*gateway)

	_, err := gw.Xent(context.Background(), "hello world", "ctx")
	require.NoError(t, err)
	callsAfterFirst := backend.calls

	_, err = gw.Xent(context.Background(), "hello world", "ctx")
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, backend.calls, "second identical call should hit the cache")
}

func TestGatewayXentDiff(t *testing.T) {
	backend := &constBackend{bitsPerToken: 3.0}
	gw := New(wordTokenizer{}, backend, fastRetry(), 4)

	diff, err := gw.XentDiff(context.Background(), "knight", "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, diff.Total(), 1e-9)
}

func TestGatewayRetriesThenSucceeds(t *testing.T) {
	backend := &constBackend{bitsPerToken: 1.5, failN: 2}
	cfg := fastRetry()
	cfg.MaxAttempts = 5
	gw := New(wordTokenizer{}, backend, cfg, 4)

	tx, err := gw.Xent(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, tx.Total(), 1e-9)
}

func TestGatewayJudgeUnavailableAfterExhaustion(t *testing.T) {
	backend := &constBackend{bitsPerToken: 1.0, failN: 100}
	cfg := fastRetry()
	cfg.MaxAttempts = 2
	gw := New(wordTokenizer{}, backend, cfg, 4)

	_, err := gw.Xent(context.Background(), "hi", "")
	require.Error(t, err)
}

func TestGatewayGenerate(t *testing.T) {
	gw := New(wordTokenizer{}, &constBackend{}, fastRetry(), 4)
	text, err := gw.Generate(context.Background(), "prompt", 16, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "generated", text)
}
