// Package agents provides the LLM-backed regime classifier, sentiment
// analyzer and trade journaler.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	apperrors "crypto-scalper/internal/errors"
)

// ModelTier selects a model by cost and capability.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierBalanced ModelTier = "balanced"
)

// LLMClient completes a system + user prompt pair.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, tier ModelTier, systemPrompt, userPrompt string) (string, error)
}

// OpenAIClient implements LLMClient using OpenAI API.
type OpenAIClient struct {
	client    *openai.Client
	models    map[ModelTier]string
	maxTokens int
}

// NewOpenAIClient creates a new OpenAI LLM client. An empty baseURL uses the
// OpenAI default.
func NewOpenAIClient(apiKey, baseURL, fastModel, balancedModel string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		models: map[ModelTier]string{
			TierFast:     fastModel,
			TierBalanced: balancedModel,
		},
		maxTokens: 512,
	}
}

// CompleteWithSystem sends a prompt with system message to the LLM.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, tier ModelTier, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.Model(tier),
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the model name for tier.
func (c *OpenAIClient) Model(tier ModelTier) string {
	if m, ok := c.models[tier]; ok && m != "" {
		return m
	}
	return c.models[TierFast]
}

// CompleteJSON completes the prompt and decodes the reply into out, tolerating
// markdown code fences around the JSON.
func CompleteJSON(ctx context.Context, llm LLMClient, tier ModelTier, systemPrompt, userPrompt string, out interface{}) error {
	raw, err := llm.CompleteWithSystem(ctx, tier, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return fmt.Errorf("empty reply: %w", apperrors.ErrInvalidLLMResponse)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("decoding %q: %v: %w", truncate(cleaned, 200), err, apperrors.ErrInvalidLLMResponse)
	}
	return nil
}

// StripCodeFences removes ```json and ``` markers.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
