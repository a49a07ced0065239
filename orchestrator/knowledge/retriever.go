// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

// Package knowledge provides retrieval against the external knowledge base
// API. Retrieval failure is an error; an empty result set is not.
package knowledge

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

// Chunk is one retrieved piece of knowledge.
type Chunk struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// Retriever fetches the top-k most relevant chunks for a query.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]Chunk, error)
}

// HTTPRetriever talks to the retrieval service over HTTP.
type HTTPRetriever struct {
	apiURL string
	client *http.Client
	log    *logger.Logger
}

// NewHTTPRetriever builds a retriever for the given API endpoint.
func NewHTTPRetriever(apiURL string, timeout time.Duration) *HTTPRetriever {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRetriever{
		apiURL: apiURL,
		client: &http.Client{Timeout: timeout},
		log:    logger.New("knowledge.retriever"),
	}
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Results []Chunk `json:"results"`
	Error   string  `json:"error,omitempty"`
}

// Query posts the query and returns the retrieved chunks.
func (r *HTTPRetriever) Query(ctx context.Context, text string, topK int) ([]Chunk, error) {
	if topK <= 0 {
		topK = 5
	}

	payload, err := json.Marshal(queryRequest{Query: text, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieval request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieval service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed queryResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("retrieval service error: %s", parsed.Error)
	}

	return parsed.Results, nil
}

// StaticRetriever serves a fixed chunk set; used in tests and offline runs.
type StaticRetriever struct {
	Chunks []Chunk
	Err    error
}

func (r *StaticRetriever) Query(_ context.Context, _ string, topK int) ([]Chunk, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if topK > 0 && topK < len(r.Chunks) {
		return r.Chunks[:topK], nil
	}
	return r.Chunks, nil
}
