// Package bedrock implements a player back-end over AWS Bedrock's
// InvokeModel API, supporting Claude (Anthropic), Titan (Amazon), and
// Llama (Meta) models via a single generator.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/ratelimit"
	"github.com/xentlabs/xent/pkg/registry"
)

func init() {
	generators.Register("bedrock", NewBedrock)
}

const (
	defaultMaxTokens   = 150
	defaultTemperature = 0.7
)

// Bedrock is a generator that wraps the AWS Bedrock Runtime API.
type Bedrock struct {
	client    *bedrockruntime.Client
	modelID   string
	region    string
	maxTokens int

	temperature float64
	topP        float64

	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewBedrock creates a new Bedrock generator from a player config's
// Options map.
func NewBedrock(m registry.Config) (generators.Generator, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, fmt.Errorf("bedrock generator: %w", err)
	}
	return NewBedrockTyped(cfg)
}

// NewBedrockTyped creates a new Bedrock generator from typed
// configuration.
func NewBedrockTyped(cfg Config) (*Bedrock, error) {
	g := &Bedrock{
		modelID:     cfg.Model,
		region:      cfg.Region,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}
	if cfg.RateLimitRPS > 0 {
		g.limiter = ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitRPS)
	}

	ctx := context.Background()
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(g.region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)

	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	if g.httpClient != nil {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.HTTPClient = g.httpClient
		})
	}

	g.client = bedrockruntime.NewFromConfig(awsCfg, clientOpts...)

	return g, nil
}

// Generate sends the conversation to Bedrock and returns n candidate
// moves. Bedrock doesn't support multiple completions in a single call,
// so n>1 means n separate API calls.
func (g *Bedrock) Generate(ctx context.Context, conv *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		return []chat.Message{}, nil
	}

	responses := make([]chat.Message, 0, n)

	for i := 0; i < n; i++ {
		resp, err := g.generateOne(ctx, conv)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

func (g *Bedrock) generateOne(ctx context.Context, conv *chat.Conversation) (chat.Message, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return chat.Message{}, fmt.Errorf("bedrock: rate limit wait: %w", err)
		}
	}

	var requestBody []byte
	var err error

	switch {
	case strings.HasPrefix(g.modelID, "anthropic.claude"):
		requestBody, err = g.buildClaudeRequest(conv)
	case strings.HasPrefix(g.modelID, "amazon.titan"):
		requestBody, err = g.buildTitanRequest(conv)
	case strings.HasPrefix(g.modelID, "meta.llama"):
		requestBody, err = g.buildLlamaRequest(conv)
	default:
		return chat.Message{}, fmt.Errorf("bedrock: unsupported model family: %s", g.modelID)
	}

	if err != nil {
		return chat.Message{}, fmt.Errorf("bedrock: failed to build request: %w", err)
	}

	output, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.modelID),
		Body:        requestBody,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return chat.Message{}, g.handleError(err)
	}

	var text string
	switch {
	case strings.HasPrefix(g.modelID, "anthropic.claude"):
		text, err = g.parseClaudeResponse(output.Body)
	case strings.HasPrefix(g.modelID, "amazon.titan"):
		text, err = g.parseTitanResponse(output.Body)
	case strings.HasPrefix(g.modelID, "meta.llama"):
		text, err = g.parseLlamaResponse(output.Body)
	}
	if err != nil {
		return chat.Message{}, fmt.Errorf("bedrock: failed to parse response: %w", err)
	}

	return chat.NewAssistantMessage(text), nil
}

func (g *Bedrock) buildClaudeRequest(conv *chat.Conversation) ([]byte, error) {
	messages := make([]map[string]string, 0)

	for _, turn := range conv.Turns {
		messages = append(messages, map[string]string{
			"role":    "user",
			"content": turn.Prompt.Content,
		})
		if turn.Response != nil {
			messages = append(messages, map[string]string{
				"role":    "assistant",
				"content": turn.Response.Content,
			})
		}
	}

	req := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        g.maxTokens,
		"messages":          messages,
		"temperature":       g.temperature,
	}

	if conv.System != nil {
		req["system"] = conv.System.Content
	}
	if g.topP > 0 {
		req["top_p"] = g.topP
	}

	return json.Marshal(req)
}

func (g *Bedrock) parseClaudeResponse(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}

	var text string
	for _, content := range resp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	return text, nil
}

func (g *Bedrock) buildTitanRequest(conv *chat.Conversation) ([]byte, error) {
	var prompt string
	if conv.System != nil {
		prompt += conv.System.Content + "\n\n"
	}
	for _, turn := range conv.Turns {
		prompt += "User: " + turn.Prompt.Content + "\n"
		if turn.Response != nil {
			prompt += "Assistant: " + turn.Response.Content + "\n"
		}
	}
	if !strings.HasSuffix(prompt, "Assistant:") {
		prompt += "Assistant:"
	}

	req := map[string]any{
		"inputText": prompt,
		"textGenerationConfig": map[string]any{
			"maxTokenCount": g.maxTokens,
			"temperature":   g.temperature,
		},
	}

	if g.topP > 0 {
		req["textGenerationConfig"].(map[string]any)["topP"] = g.topP
	}

	return json.Marshal(req)
}

func (g *Bedrock) parseTitanResponse(body []byte) (string, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}

	if len(resp.Results) == 0 {
		return "", fmt.Errorf("no results in Titan response")
	}

	return resp.Results[0].OutputText, nil
}

func (g *Bedrock) buildLlamaRequest(conv *chat.Conversation) ([]byte, error) {
	var prompt string
	if conv.System != nil {
		prompt += fmt.Sprintf("<s>[INST] <<SYS>>\n%s\n<</SYS>>\n\n", conv.System.Content)
	} else {
		prompt += "<s>[INST] "
	}

	for i, turn := range conv.Turns {
		if i > 0 && turn.Response != nil {
			prompt += "<s>[INST] "
		}
		prompt += turn.Prompt.Content
		if turn.Response != nil {
			prompt += fmt.Sprintf(" [/INST] %s </s>", turn.Response.Content)
		} else {
			prompt += " [/INST]"
		}
	}

	req := map[string]any{
		"prompt":      prompt,
		"max_gen_len": g.maxTokens,
		"temperature": g.temperature,
	}

	if g.topP > 0 {
		req["top_p"] = g.topP
	}

	return json.Marshal(req)
}

func (g *Bedrock) parseLlamaResponse(body []byte) (string, error) {
	var resp struct {
		Generation string `json:"generation"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}

	return resp.Generation, nil
}

func (g *Bedrock) handleError(err error) error {
	errStr := err.Error()

	if strings.Contains(errStr, "ThrottlingException") || strings.Contains(errStr, "TooManyRequestsException") {
		return fmt.Errorf("bedrock: rate limit exceeded: %w", err)
	}
	if strings.Contains(errStr, "AccessDeniedException") || strings.Contains(errStr, "UnauthorizedException") {
		return fmt.Errorf("bedrock: authentication error: %w", err)
	}
	if strings.Contains(errStr, "ValidationException") {
		return fmt.Errorf("bedrock: invalid request: %w", err)
	}
	if strings.Contains(errStr, "ServiceUnavailableException") || strings.Contains(errStr, "InternalServerException") {
		return fmt.Errorf("bedrock: service error: %w", err)
	}

	return fmt.Errorf("bedrock: API error: %w", err)
}

// Name returns the generator's registry name.
func (g *Bedrock) Name() string {
	return "bedrock"
}
