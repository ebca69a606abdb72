// Package openailogprobs implements a judge.ScoringBackend over an
// OpenAI-compatible legacy completions endpoint that supports echo+
// logprobs, the same request shape the classic Python garak/OpenAI
// integrations use to recover exact per-token probabilities.
package openailogprobs

import (
	"context"
	"fmt"
	"math"

	"github.com/xentlabs/xent/pkg/registry"
	goopenai "github.com/sashabaranov/go-openai"
)

// Config holds typed configuration for the OpenAI logprobs scoring
// back-end.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// ConfigFromMap parses a judge config's Options map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	var cfg Config

	model, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("openailogprobs judge backend requires 'model' configuration")
	}
	cfg.Model = model

	cfg.APIKey, err = registry.GetAPIKeyWithEnv(m, "OPENAI_API_KEY", "openailogprobs")
	if err != nil {
		return cfg, err
	}
	cfg.BaseURL = registry.GetString(m, "base_url", "")

	return cfg, nil
}

// Backend implements judge.ScoringBackend by round-tripping token IDs
// through OpenAI's completions endpoint with echo=true and logprobs=0,
// which returns ln P(token_i | prefix) for every token of the supplied
// prompt, context included.
type Backend struct {
	client *goopenai.Client
	model  string
}

// New creates a scoring backend from a judge config's Options map.
func New(m registry.Config) (*Backend, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewTyped(cfg)
}

// NewTyped creates a scoring backend from typed configuration.
func NewTyped(cfg Config) (*Backend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openailogprobs backend requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openailogprobs backend requires api_key")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Backend{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Score sends promptTokens (context tokens followed by the scored text's
// tokens) to the completions endpoint as a raw token-ID prompt, and
// returns the per-token bits (-log2 P) for the tail starting at
// contextLen.
func (b *Backend) Score(ctx context.Context, promptTokens []int, contextLen int) ([]float64, error) {
	if contextLen < 0 || contextLen > len(promptTokens) {
		return nil, fmt.Errorf("openailogprobs: invalid contextLen %d for %d prompt tokens", contextLen, len(promptTokens))
	}

	zero := 0
	resp, err := b.client.CreateCompletion(ctx, goopenai.CompletionRequest{
		Model:     b.model,
		Prompt:    promptTokens,
		MaxTokens: 0,
		Echo:      true,
		LogProbs:  &zero,
	})
	if err != nil {
		return nil, fmt.Errorf("openailogprobs: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openailogprobs: no choices in completion response")
	}

	lp := resp.Choices[0].LogProbs
	if lp == nil || len(lp.TokenLogprobs) != len(promptTokens) {
		return nil, fmt.Errorf("openailogprobs: logprobs length mismatch (got %d, want %d)",
			logprobsLen(lp), len(promptTokens))
	}

	bits := make([]float64, 0, len(promptTokens)-contextLen)
	for i := contextLen; i < len(promptTokens); i++ {
		nats := lp.TokenLogprobs[i]
		if i == 0 && len(promptTokens) > 1 {
			// The completions API always reports a null logprob for the
			// very first token of the request (nothing precedes it to
			// condition on); go-openai unmarshals that null as 0, which
			// would otherwise read as a perfectly-predicted token instead
			// of the unmeasurable one it actually is. Stand in with the
			// next token's logprob rather than report a false zero.
			nats = lp.TokenLogprobs[1]
		}
		bits = append(bits, -nats/math.Ln2)
	}
	return bits, nil
}

func logprobsLen(lp *goopenai.LogprobResult) int {
	if lp == nil {
		return 0
	}
	return len(lp.TokenLogprobs)
}

// Generate samples a continuation from the same completions endpoint.
// The legacy completions API has no native seed parameter, so seed is
// accepted for interface compatibility and otherwise unused.
func (b *Backend) Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error) {
	req := goopenai.CompletionRequest{
		Model:     b.model,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	}
	if temp, ok := options["temperature"].(float64); ok {
		req.Temperature = float32(temp)
	}

	resp, err := b.client.CreateCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openailogprobs: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openailogprobs: no choices in completion response")
	}
	return resp.Choices[0].Text, nil
}
