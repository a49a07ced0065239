// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(fn func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer log.SetOutput(log.Writer())
	fn()
	return buf.String()
}

func TestNew(t *testing.T) {
	l := New("router")
	assert.Equal(t, "router", l.Component)
	assert.NotEmpty(t, l.InstanceID)
	assert.NotEmpty(t, l.Container)
}

func TestLogProducesJSON(t *testing.T) {
	l := New("router")

	out := captureOutput(func() {
		l.Info("task-123", "decision recorded", map[string]interface{}{
			"agent": "edumentor_agent",
		})
	})

	// One JSON object per line
	line := strings.TrimSpace(out)
	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(line), &entry))

	assert.Equal(t, INFO, entry.Level)
	assert.Equal(t, "router", entry.Component)
	assert.Equal(t, "task-123", entry.TaskID)
	assert.Equal(t, "decision recorded", entry.Message)
	assert.Equal(t, "edumentor_agent", entry.Fields["agent"])
	assert.NotEmpty(t, entry.Timestamp)
}

func TestTaskIDOmittedWhenEmpty(t *testing.T) {
	l := New("lifecycle")

	out := captureOutput(func() {
		l.Info("", "service started", nil)
	})

	assert.NotContains(t, out, "task_id")
}

func TestErrorWithErr(t *testing.T) {
	l := New("dispatch")

	out := captureOutput(func() {
		l.ErrorWithErr("task-9", "handler failed", assert.AnError, nil)
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &entry))
	assert.Equal(t, ERROR, entry.Level)
	assert.Equal(t, assert.AnError.Error(), entry.Fields["error"])
}

func TestInfoWithDuration(t *testing.T) {
	l := New("router")

	out := captureOutput(func() {
		l.InfoWithDuration("task-7", "dispatch complete", 42.5, nil)
	})

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &entry))
	assert.Equal(t, 42.5, entry.Fields["duration_ms"])
}
