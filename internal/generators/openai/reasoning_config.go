package openai

import (
	"fmt"

	"github.com/xentlabs/xent/pkg/registry"
)

// ReasoningConfig holds typed configuration for the OpenAI reasoning
// generator (o1/o3-family models), which take max_completion_tokens
// instead of max_tokens and reject temperature/n>1.
type ReasoningConfig struct {
	Model  string
	APIKey string

	MaxCompletionTokens int
	TopP                float32
	FrequencyPenalty    float32
	PresencePenalty     float32
	Stop                []string
	BaseURL             string
}

// DefaultReasoningConfig returns a ReasoningConfig with sensible defaults.
func DefaultReasoningConfig() ReasoningConfig {
	return ReasoningConfig{
		MaxCompletionTokens: 1500,
		TopP:                1.0,
	}
}

// ReasoningConfigFromMap parses a player config's Options map into a
// typed ReasoningConfig.
func ReasoningConfigFromMap(m registry.Config) (ReasoningConfig, error) {
	cfg := DefaultReasoningConfig()

	model, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("openai reasoning generator requires 'model' configuration")
	}
	cfg.Model = model

	cfg.APIKey, err = registry.GetAPIKeyWithEnv(m, "OPENAI_API_KEY", "openai reasoning")
	if err != nil {
		return cfg, err
	}

	cfg.BaseURL = registry.GetString(m, "base_url", "")
	cfg.MaxCompletionTokens = registry.GetInt(m, "max_completion_tokens", cfg.MaxCompletionTokens)
	cfg.TopP = registry.GetFloat32(m, "top_p", cfg.TopP)
	cfg.FrequencyPenalty = registry.GetFloat32(m, "frequency_penalty", cfg.FrequencyPenalty)
	cfg.PresencePenalty = registry.GetFloat32(m, "presence_penalty", cfg.PresencePenalty)
	cfg.Stop = registry.GetStringSlice(m, "stop", cfg.Stop)

	return cfg, nil
}
