// Package openai implements a player back-end over OpenAI's chat
// completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/ratelimit"
	"github.com/xentlabs/xent/pkg/registry"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	generators.Register("openai", NewOpenAI)
}

// OpenAI is a Generator that wraps the OpenAI chat completions API.
type OpenAI struct {
	client *goopenai.Client
	model  string

	temperature      float32
	maxTokens        int
	topP             float32
	frequencyPenalty float32
	presencePenalty  float32
	stop             []string

	limiter *ratelimit.Limiter
}

// NewOpenAI creates a new OpenAI generator from a player config's Options
// map; this is the entry point the generators registry calls.
func NewOpenAI(m registry.Config) (generators.Generator, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewOpenAITyped(cfg)
}

// NewOpenAITyped creates a new OpenAI generator from typed configuration.
func NewOpenAITyped(cfg Config) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai generator requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai generator requires api_key")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	g := &OpenAI{
		client:           goopenai.NewClientWithConfig(clientCfg),
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		topP:             cfg.TopP,
		frequencyPenalty: cfg.FrequencyPenalty,
		presencePenalty:  cfg.PresencePenalty,
		stop:             cfg.Stop,
	}
	if cfg.RateLimitRPS > 0 {
		g.limiter = ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitRPS)
	}
	return g, nil
}

// NewOpenAIWithOptions builds an OpenAI generator from functional options.
func NewOpenAIWithOptions(opts ...Option) (*OpenAI, error) {
	cfg := ApplyOptions(DefaultConfig(), opts...)
	return NewOpenAITyped(cfg)
}

// Generate sends conv to OpenAI and returns n candidate moves.
func (g *OpenAI) Generate(ctx context.Context, conv *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		return []chat.Message{}, nil
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("openai: rate limit wait: %w", err)
		}
	}

	req := goopenai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toOpenAIMessages(conv),
		N:        n,
	}
	if g.temperature != 0 {
		req.Temperature = g.temperature
	}
	if g.maxTokens > 0 {
		req.MaxTokens = g.maxTokens
	}
	if g.topP != 0 {
		req.TopP = g.topP
	}
	if g.frequencyPenalty != 0 {
		req.FrequencyPenalty = g.frequencyPenalty
	}
	if g.presencePenalty != 0 {
		req.PresencePenalty = g.presencePenalty
	}
	if len(g.stop) > 0 {
		req.Stop = g.stop
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	responses := make([]chat.Message, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		responses = append(responses, chat.NewAssistantMessage(choice.Message.Content))
	}
	return responses, nil
}

// Name returns the generator's registry name.
func (g *OpenAI) Name() string { return "openai" }

func toOpenAIMessages(conv *chat.Conversation) []goopenai.ChatCompletionMessage {
	msgs := conv.ToMessages()
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		var role string
		switch m.Role {
		case chat.RoleUser:
			role = goopenai.ChatMessageRoleUser
		case chat.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		case chat.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		default:
			role = string(m.Role)
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
