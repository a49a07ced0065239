// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bhiv/core/shared/logger"
)

// GroqOptions configures the Groq chat-completions client.
type GroqOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// GroqClient calls Groq's OpenAI-compatible chat completions API. Transient
// failures are retried with a linearly increasing delay; after the retry
// budget is exhausted the client reports not-ok rather than erroring.
type GroqClient struct {
	opts   GroqOptions
	client *http.Client
	log    *logger.Logger
}

// NewGroqClient builds a Groq client. Zero-valued options get production
// defaults.
func NewGroqClient(opts GroqOptions) *GroqClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.groq.com/openai/v1"
	}
	if opts.Model == "" {
		opts.Model = "llama-3.1-8b-instant"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &GroqClient{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    logger.New("llm.groq"),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends one chat turn and returns the model's reply.
func (c *GroqClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, bool) {
	body := chatRequest{
		Model:       c.opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		text, err := c.complete(ctx, body)
		if err == nil {
			return text, true
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.opts.MaxRetries {
			delay := time.Duration(attempt) * c.opts.RetryDelay
			c.log.Warn("", "groq call failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   err.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	c.log.ErrorWithErr("", "groq generation failed", lastErr, map[string]interface{}{
		"model":   c.opts.Model,
		"retries": c.opts.MaxRetries,
	})
	return "", false
}

func (c *GroqClient) complete(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.opts.BaseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("groq error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("groq returned empty content")
	}
	return text, nil
}
