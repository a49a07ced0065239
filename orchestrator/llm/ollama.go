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

// OllamaClient generates text against a local Ollama instance. It is the
// fallback backend when no hosted API key is configured; a single attempt,
// no retries, since the endpoint is either up or not.
type OllamaClient struct {
	endpoint string
	model    string
	client   *http.Client
	log      *logger.Logger
}

// NewOllamaClient builds a client for the given endpoint and model.
func NewOllamaClient(endpoint, model string, timeout time.Duration) *OllamaClient {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		client:   &http.Client{Timeout: timeout},
		log:      logger.New("llm.ollama"),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate runs one non-streaming completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, bool) {
	text, err := c.complete(ctx, prompt, maxTokens, temperature)
	if err != nil {
		c.log.ErrorWithErr("", "ollama generation failed", err, map[string]interface{}{
			"model": c.model,
		})
		return "", false
	}
	return text, true
}

func (c *OllamaClient) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  maxTokens,
			Temperature: temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}

	text := strings.TrimSpace(parsed.Response)
	if text == "" {
		return "", fmt.Errorf("ollama returned empty response")
	}
	return text, nil
}
