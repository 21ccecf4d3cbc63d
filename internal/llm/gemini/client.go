package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"prepmate/interview/internal/llm"
)

// Client represents a Gemini LLM client

type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: "gemini",
			Code:     llm.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// Complete runs a single-prompt completion against the channel's model.
func (c *Client) Complete(ctx context.Context, channel llm.Channel, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.ModelFor(string(channel)),
		genai.Text(prompt),
		nil,
	)
	if err != nil {
		return "", classifyError(err, "Failed to generate completion")
	}
	return extractText(result)
}

// Chat runs a completion over conversation history with a system instruction.
func (c *Client) Chat(ctx context.Context, channel llm.Channel, system string, history []llm.ChatMessage) (string, error) {
	contents, cfg := buildRequest(system, history)
	result, err := c.client.Models.GenerateContent(
		ctx,
		c.config.ModelFor(string(channel)),
		contents,
		cfg,
	)
	if err != nil {
		return "", classifyError(err, "Failed to generate chat completion")
	}
	return extractText(result)
}

// ChatStream streams a chat completion. The returned channel is closed after
// the final chunk; a failed stream delivers one chunk carrying Err.
func (c *Client) ChatStream(ctx context.Context, channel llm.Channel, system string, history []llm.ChatMessage) (<-chan llm.StreamChunk, error) {
	contents, cfg := buildRequest(system, history)
	stream := c.client.Models.GenerateContentStream(
		ctx,
		c.config.ModelFor(string(channel)),
		contents,
		cfg,
	)

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		for resp, err := range stream {
			if err != nil {
				out <- llm.StreamChunk{Err: classifyError(err, "Stream interrupted")}
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			select {
			case out <- llm.StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) GetProviderName() string {
	return "gemini"
}

// buildRequest converts neutral chat history into Gemini contents plus a
// generation config carrying the system instruction.
func buildRequest(system string, history []llm.ChatMessage) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			// Gemini uses "model" instead of "assistant"
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
		}
	}
	return contents, cfg
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil {
		return "", &llm.ProviderError{
			Provider: "gemini",
			Code:     llm.ErrCodeInvalidInput,
			Message:  "No response generated",
		}
	}
	text := responseText(result)
	if text == "" {
		return "", &llm.ProviderError{
			Provider: "gemini",
			Code:     llm.ErrCodeInvalidInput,
			Message:  "Empty response generated",
		}
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			builder.WriteString(part.Text)
		}
	}
	return builder.String()
}

// classifyError maps transport and API failures onto provider error codes.
func classifyError(err error, message string) error {
	code := llm.ErrCodeServiceDown

	if errors.Is(err, context.DeadlineExceeded) {
		code = llm.ErrCodeTimeout
	} else {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Code == 401 || apiErr.Code == 403:
				code = llm.ErrCodeAPIKey
			case apiErr.Code == 429 && apiErr.Status == "RESOURCE_EXHAUSTED":
				code = llm.ErrCodeQuota
			case apiErr.Code == 429:
				code = llm.ErrCodeRateLimit
			case apiErr.Code == 400:
				code = llm.ErrCodeInvalidInput
			}
		}
	}

	return &llm.ProviderError{
		Provider: "gemini",
		Code:     code,
		Message:  message,
		Err:      err,
	}
}
