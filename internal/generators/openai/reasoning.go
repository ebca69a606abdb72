package openai

import (
	"context"
	"fmt"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/registry"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	generators.Register("openai-reasoning", NewOpenAIReasoning)
}

// OpenAIReasoning is a generator for OpenAI's o1/o3-family reasoning
// models, which reject n>1 and temperature and use
// max_completion_tokens in place of max_tokens.
type OpenAIReasoning struct {
	client *goopenai.Client
	model  string

	maxCompletionTokens int
	topP                float32
	frequencyPenalty    float32
	presencePenalty     float32
	stop                []string
}

// NewOpenAIReasoning creates a reasoning generator from a player config's
// Options map.
func NewOpenAIReasoning(m registry.Config) (generators.Generator, error) {
	cfg, err := ReasoningConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewOpenAIReasoningTyped(cfg)
}

// NewOpenAIReasoningTyped creates a reasoning generator from typed config.
func NewOpenAIReasoningTyped(cfg ReasoningConfig) (*OpenAIReasoning, error) {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIReasoning{
		client:              goopenai.NewClientWithConfig(clientCfg),
		model:               cfg.Model,
		maxCompletionTokens: cfg.MaxCompletionTokens,
		topP:                cfg.TopP,
		frequencyPenalty:    cfg.FrequencyPenalty,
		presencePenalty:     cfg.PresencePenalty,
		stop:                cfg.Stop,
	}, nil
}

// Name returns the generator's registry name.
func (g *OpenAIReasoning) Name() string { return "openai-reasoning" }

// Generate produces a single completion; reasoning models do not support
// n>1.
func (g *OpenAIReasoning) Generate(ctx context.Context, conv *chat.Conversation, n int) ([]chat.Message, error) {
	if n > 1 {
		return nil, fmt.Errorf("openai reasoning models do not support multiple generations (n>1)")
	}

	req := goopenai.ChatCompletionRequest{
		Model:    g.model,
		Messages: toOpenAIMessages(conv),
		TopP:     g.topP,
	}
	if g.maxCompletionTokens > 0 {
		req.MaxCompletionTokens = g.maxCompletionTokens
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
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: reasoning API returned no choices")
	}

	result := make([]chat.Message, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		result = append(result, chat.NewAssistantMessage(choice.Message.Content))
	}
	return result, nil
}
