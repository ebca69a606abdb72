package openai

import (
	"context"
	"testing"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIReasoningTyped(t *testing.T) {
	gen, err := NewOpenAIReasoningTyped(ReasoningConfig{
		Model:               "o3-mini",
		APIKey:              "sk-test",
		MaxCompletionTokens: 1500,
		TopP:                1.0,
	})
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "openai-reasoning", gen.Name())
}

func TestNewOpenAIReasoningFromConfig(t *testing.T) {
	cfgMap := registry.Config{
		"model":   "o3-mini",
		"api_key": "sk-test",
	}

	gen, err := NewOpenAIReasoning(cfgMap)
	require.NoError(t, err)
	require.NotNil(t, gen)
}

func TestOpenAIReasoningGenerateRejectsN(t *testing.T) {
	gen, err := NewOpenAIReasoningTyped(ReasoningConfig{Model: "o3-mini", APIKey: "sk-test"})
	require.NoError(t, err)

	conv := chat.NewConversation()
	conv.AddPrompt(chat.NewUserMessage("play your move"))

	_, err = gen.Generate(context.Background(), conv, 2)
	require.Error(t, err)
}

func TestOpenAIReasoningGenerate(t *testing.T) {
	srv := newMockServer(t, "reasoned move", 1)
	defer srv.Close()

	gen, err := NewOpenAIReasoningTyped(ReasoningConfig{
		Model:   "o3-mini",
		APIKey:  "sk-test",
		BaseURL: srv.URL,
	})
	require.NoError(t, err)

	conv := chat.NewConversation()
	conv.AddPrompt(chat.NewUserMessage("play your move"))

	msgs, err := gen.Generate(context.Background(), conv, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "reasoned move", msgs[0].Content)
}
