// Package scripted provides a judge.ScoringBackend test double: fixed
// per-token bits and canned generations, for exercising pkg/interp and
// pkg/trial without a live model.
package scripted

import (
	"context"
	"fmt"
)

// Backend is a ScoringBackend that returns a constant bits-per-token
// score for every call, and cycles through a configured list of
// generations.
type Backend struct {
	BitsPerToken float64
	Generations  []string

	calls int
}

// New creates a Backend that scores every token at bitsPerToken and
// returns generations in order, cycling once exhausted. An empty
// generations list falls back to echoing the prompt.
func New(bitsPerToken float64, generations ...string) *Backend {
	return &Backend{BitsPerToken: bitsPerToken, Generations: generations}
}

// Score returns bitsPerToken for every token of the scored tail.
func (b *Backend) Score(_ context.Context, promptTokens []int, contextLen int) ([]float64, error) {
	if contextLen < 0 || contextLen > len(promptTokens) {
		return nil, fmt.Errorf("scripted: invalid contextLen %d for %d prompt tokens", contextLen, len(promptTokens))
	}
	bits := make([]float64, len(promptTokens)-contextLen)
	for i := range bits {
		bits[i] = b.BitsPerToken
	}
	return bits, nil
}

// Generate returns the next canned generation, or echoes the prompt if
// none were configured.
func (b *Backend) Generate(_ context.Context, prompt string, _ int, _ int64, _ map[string]any) (string, error) {
	if len(b.Generations) == 0 {
		return prompt, nil
	}
	g := b.Generations[b.calls%len(b.Generations)]
	b.calls++
	return g, nil
}
