// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryLoadFromFile(t *testing.T) {
	path := writeRegistryFile(t, `
agents:
  - id: edumentor_agent
    tags: [education, general]
    weight: 1.0
  - id: knowledge_agent
    tags: [semantic_search, vedabase]
    weight: 0.8
`)

	registry := NewAgentRegistry()
	require.NoError(t, registry.LoadFromFile(path))

	assert.True(t, registry.Has("edumentor_agent"))
	assert.True(t, registry.Has("knowledge_agent"))
	assert.False(t, registry.Has("ghost_agent"))

	reg, ok := registry.Get("knowledge_agent")
	require.True(t, ok)
	assert.Equal(t, []string{"semantic_search", "vedabase"}, reg.Tags)
	assert.Equal(t, 0.8, reg.Weight)

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "edumentor_agent", list[0].ID, "list preserves declaration order")
}

func TestRegistryLoadRejectsDuplicates(t *testing.T) {
	path := writeRegistryFile(t, `
agents:
  - id: edumentor_agent
  - id: edumentor_agent
`)

	registry := NewAgentRegistry()
	err := registry.LoadFromFile(path)
	assert.ErrorContains(t, err, "duplicate agent id")
}

func TestRegistryLoadRejectsMissingID(t *testing.T) {
	path := writeRegistryFile(t, `
agents:
  - tags: [orphan]
`)

	registry := NewAgentRegistry()
	err := registry.LoadFromFile(path)
	assert.ErrorContains(t, err, "missing id")
}

func TestRegistryLoadMissingFile(t *testing.T) {
	registry := NewAgentRegistry()
	assert.Error(t, registry.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, registry.LoadFromFile(""))
}

func TestRegistryReloadReplacesAtomically(t *testing.T) {
	registry := NewAgentRegistry()
	require.NoError(t, registry.LoadFromFile(writeRegistryFile(t, "agents:\n  - id: old_agent\n")))
	require.True(t, registry.Has("old_agent"))

	require.NoError(t, registry.LoadFromFile(writeRegistryFile(t, "agents:\n  - id: new_agent\n")))

	assert.False(t, registry.Has("old_agent"), "reload replaces the whole set")
	assert.True(t, registry.Has("new_agent"))
	assert.Equal(t, int64(2), registry.Stats().LoadCount)
}

func TestRegistryRegisterPreservesPosition(t *testing.T) {
	registry := NewAgentRegistry()
	require.NoError(t, registry.Register(AgentRegistration{ID: "a"}))
	require.NoError(t, registry.Register(AgentRegistration{ID: "b"}))
	require.NoError(t, registry.Register(AgentRegistration{ID: "a", Tags: []string{"updated"}}))

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID, "updating keeps the original position")
	assert.Equal(t, []string{"updated"}, list[0].Tags)
}

func TestRegistryRegisterRequiresID(t *testing.T) {
	registry := NewAgentRegistry()
	assert.Error(t, registry.Register(AgentRegistration{}))
}

func TestRegistryFirstWithAnyTag(t *testing.T) {
	registry := NewAgentRegistry()
	require.NoError(t, registry.Register(AgentRegistration{ID: "a", Tags: []string{"text"}}))
	require.NoError(t, registry.Register(AgentRegistration{ID: "b", Tags: []string{"vision", "text"}}))

	reg, ok := registry.FirstWithAnyTag([]string{"vision"})
	require.True(t, ok)
	assert.Equal(t, "b", reg.ID)

	reg, ok = registry.FirstWithAnyTag([]string{"text"})
	require.True(t, ok)
	assert.Equal(t, "a", reg.ID, "scan runs in declaration order")

	_, ok = registry.FirstWithAnyTag([]string{"audio"})
	assert.False(t, ok)
}

func TestRegistryIsEmpty(t *testing.T) {
	registry := NewAgentRegistry()
	assert.True(t, registry.IsEmpty())

	require.NoError(t, registry.Register(AgentRegistration{ID: "a"}))
	assert.False(t, registry.IsEmpty())
}
