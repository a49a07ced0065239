// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groqServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGroqGenerate(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	srv := groqServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "  qna,0.9  "}}},
		})
	})

	client := NewGroqClient(GroqOptions{APIKey: "gsk_test", BaseURL: srv.URL, Model: "test-model"})

	text, ok := client.Generate(context.Background(), "classify this", 50, 0.3)

	require.True(t, ok)
	assert.Equal(t, "qna,0.9", text, "response content is trimmed")
	assert.Equal(t, "Bearer gsk_test", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, 50, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "classify this", gotReq.Messages[0].Content)
}

func TestGroqRetriesTransientFailure(t *testing.T) {
	var calls int32

	srv := groqServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Content: "recovered"}}},
		})
	})

	client := NewGroqClient(GroqOptions{
		APIKey:     "gsk_test",
		BaseURL:    srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	text, ok := client.Generate(context.Background(), "prompt", 10, 0.5)

	require.True(t, ok)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGroqExhaustsRetryBudget(t *testing.T) {
	var calls int32

	srv := groqServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewGroqClient(GroqOptions{
		APIKey:     "gsk_test",
		BaseURL:    srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	_, ok := client.Generate(context.Background(), "prompt", 10, 0.5)

	assert.False(t, ok)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGroqEmptyChoicesNotOK(t *testing.T) {
	srv := groqServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	})

	client := NewGroqClient(GroqOptions{
		APIKey:     "gsk_test",
		BaseURL:    srv.URL,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	_, ok := client.Generate(context.Background(), "prompt", 10, 0.5)
	assert.False(t, ok)
}

func TestGroqCancelledContextStopsRetrying(t *testing.T) {
	var calls int32

	srv := groqServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewGroqClient(GroqOptions{
		APIKey:     "gsk_test",
		BaseURL:    srv.URL,
		MaxRetries: 5,
		RetryDelay: time.Millisecond,
	})

	_, ok := client.Generate(ctx, "prompt", 10, 0.5)

	assert.False(t, ok)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(1), "no retries after cancellation")
}
