// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "an answer\n"})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1", 0)

	text, ok := client.Generate(context.Background(), "a prompt", 128, 0.7)

	require.True(t, ok)
	assert.Equal(t, "an answer", text)
	assert.Equal(t, "llama3.1", gotReq.Model)
	assert.Equal(t, "a prompt", gotReq.Prompt)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, 128, gotReq.Options.NumPredict)
}

func TestOllamaErrorResponseNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "missing-model", 0)

	_, ok := client.Generate(context.Background(), "a prompt", 128, 0.7)
	assert.False(t, ok)
}

func TestOllamaUnreachableNotOK(t *testing.T) {
	client := NewOllamaClient("http://127.0.0.1:1", "llama3.1", 0)

	_, ok := client.Generate(context.Background(), "a prompt", 128, 0.7)
	assert.False(t, ok)
}
