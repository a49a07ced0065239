// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryTaskLog) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.RegistryPath = writeRegistryFile(t, `
agents:
  - id: edumentor_agent
    tags: [education, general]
  - id: summarizer_agent
    tags: [summarization]
  - id: qna_agent
    tags: [qna]
`)
	cfg.RL.UseRL = false

	taskLog := NewMemoryTaskLog()
	svc, err := NewService(cfg, ServiceOptions{
		TaskLogs: []TaskLog{taskLog},
		Handlers: HandlerMap{
			"summarizer_agent": &stubHandler{id: "summarizer_agent", output: HandlerOutput{
				Status: 200,
				Texts:  []string{"a short summary"},
			}},
		},
	})
	require.NoError(t, err)
	return svc, taskLog
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleTaskEndpoint(t *testing.T) {
	svc, taskLog := newTestService(t)
	routes := svc.Routes()

	rec := postJSON(t, routes, "/handle_task", HandleTaskRequest{
		Query: "Summarize this document for me",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result RouteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "summarizer_agent", result.Agent)
	assert.Equal(t, IntentSummarization, result.DetectedIntent)
	assert.NotEmpty(t, result.TaskID)
	require.NotNil(t, result.Response)
	assert.Equal(t, []string{"a short summary"}, result.Response.Texts)

	assert.Len(t, taskLog.Decisions(), 1)
	assert.Len(t, taskLog.Rewards(), 1)
}

func TestHandleTaskRequiresQuery(t *testing.T) {
	svc, _ := newTestService(t)

	rec := postJSON(t, svc.Routes(), "/handle_task", HandleTaskRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTaskRejectsMalformedBody(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodPost, "/handle_task", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	svc.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTaskDispatchFailureReturns500(t *testing.T) {
	svc, _ := newTestService(t)

	// qna_agent has no injected handler override and no retrieval
	// backend; routing succeeds but dispatch fails.
	rec := postJSON(t, svc.Routes(), "/handle_task", HandleTaskRequest{
		Query: "what is the meaning of this word",
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var result RouteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "qna_agent", result.Agent)
}

func TestHealthEndpoint(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	svc.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "bhiv-core-orchestrator", health["service"])
}

func TestAgentEndpoints(t *testing.T) {
	svc, _ := newTestService(t)
	routes := svc.Routes()

	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Agents []AgentRegistration `json:"agents"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, 3, listing.Count)

	rec = postJSON(t, routes, "/agents", AgentRegistration{ID: "wellness_agent", Tags: []string{"wellness"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.True(t, svc.Registry().Has("wellness_agent"))
}

func TestRegisterAgentRequiresID(t *testing.T) {
	svc, _ := newTestService(t)

	rec := postJSON(t, svc.Routes(), "/agents", AgentRegistration{Tags: []string{"orphan"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpointExposed(t *testing.T) {
	svc, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	svc.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bhiv_orchestrator")
}
