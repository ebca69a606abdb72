// Package replicate implements a player back-end over Replicate's model
// hosting platform, for public models ("owner/model-name") and private
// deployments alike.
package replicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/ratelimit"
	"github.com/xentlabs/xent/pkg/registry"
	replicatego "github.com/replicate/replicate-go"
)

func init() {
	generators.Register("replicate", NewReplicate)
}

// Replicate is a generator that wraps the Replicate API.
type Replicate struct {
	client *replicatego.Client
	model  string

	temperature       float32
	topP              float32
	repetitionPenalty float32
	maxTokens         int
	seed              int

	limiter *ratelimit.Limiter
}

// NewReplicate creates a new Replicate generator from a player config's
// Options map.
func NewReplicate(m registry.Config) (generators.Generator, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewReplicateTyped(cfg)
}

// NewReplicateTyped creates a new Replicate generator from typed
// configuration.
func NewReplicateTyped(cfg Config) (*Replicate, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("replicate generator requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("replicate generator requires api_key")
	}

	g := &Replicate{
		model:             cfg.Model,
		temperature:       cfg.Temperature,
		topP:              cfg.TopP,
		repetitionPenalty: cfg.RepetitionPenalty,
		maxTokens:         cfg.MaxTokens,
		seed:              cfg.Seed,
	}
	if cfg.RateLimitRPS > 0 {
		g.limiter = ratelimit.NewLimiter(float64(cfg.RateLimitRPS), float64(cfg.RateLimitRPS))
	}

	opts := []replicatego.ClientOption{
		replicatego.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: failed to create client: %w", err)
	}
	g.client = client

	return g, nil
}

// NewReplicateWithOptions builds a Replicate generator from functional
// options.
func NewReplicateWithOptions(opts ...Option) (*Replicate, error) {
	cfg := ApplyOptions(DefaultConfig(), opts...)
	return NewReplicateTyped(cfg)
}

// Generate sends the conversation's last prompt to Replicate and returns
// n candidate moves. Replicate doesn't support batch generation, so n
// means n separate predictions.
func (g *Replicate) Generate(ctx context.Context, conv *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		return []chat.Message{}, nil
	}

	prompt := conv.LastPrompt()
	if prompt == "" {
		return nil, fmt.Errorf("replicate: conversation has no prompts")
	}

	input := replicatego.PredictionInput{
		"prompt":             prompt,
		"temperature":        float64(g.temperature),
		"top_p":              float64(g.topP),
		"repetition_penalty": float64(g.repetitionPenalty),
		"seed":               g.seed,
	}
	if g.maxTokens > 0 {
		input["max_length"] = g.maxTokens
	}

	responses := make([]chat.Message, 0, n)
	for i := 0; i < n; i++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("replicate: rate limit wait: %w", err)
			}
		}
		output, err := g.client.Run(ctx, g.model, input, nil)
		if err != nil {
			return nil, g.wrapError(err)
		}

		text := g.extractText(output)
		responses = append(responses, chat.NewAssistantMessage(text))
	}

	return responses, nil
}

// extractText converts Replicate output (string, []string, or []any) to
// a single string.
func (g *Replicate) extractText(output replicatego.PredictionOutput) string {
	switch v := output.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "")
	case []any:
		var parts []string
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprintf("%v", output)
	}
}

func (g *Replicate) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(*replicatego.APIError); ok {
		return fmt.Errorf("replicate: API error (status %d): %w", apiErr.Status, err)
	}

	return fmt.Errorf("replicate: %w", err)
}

// Name returns the generator's registry name.
func (g *Replicate) Name() string {
	return "replicate"
}
