// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// AgentRegistry holds the known handler registrations with thread-safe
// access. Reads vastly outnumber writes: every routing decision consults the
// registry, while registration is a rare administrative operation, so an
// RWMutex keeps the request path from blocking on writers.
//
// Declaration order is preserved and observable: the tag fallback in the
// selection policy scans registrations in the order they were loaded.
type AgentRegistry struct {
	agents     map[string]AgentRegistration
	order      []string
	configPath string
	mu         sync.RWMutex
	lastReload time.Time
	loadCount  int64
}

// registryFile is the on-disk YAML shape of the registry.
type registryFile struct {
	Agents []AgentRegistration `yaml:"agents"`
}

// RegistryStats provides statistics about the registry
type RegistryStats struct {
	AgentCount int       `json:"agent_count"`
	ConfigPath string    `json:"config_path"`
	LastReload time.Time `json:"last_reload"`
	LoadCount  int64     `json:"load_count"`
}

// NewAgentRegistry creates an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		agents: make(map[string]AgentRegistration),
	}
}

// LoadFromFile loads agent registrations from a YAML file, replacing the
// current set atomically.
func (r *AgentRegistry) LoadFromFile(path string) error {
	if path == "" {
		return fmt.Errorf("registry config path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry config %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse registry config %s: %w", path, err)
	}

	newAgents := make(map[string]AgentRegistration, len(file.Agents))
	newOrder := make([]string, 0, len(file.Agents))
	for _, reg := range file.Agents {
		if reg.ID == "" {
			return fmt.Errorf("registry config %s: registration missing id", path)
		}
		if _, exists := newAgents[reg.ID]; exists {
			return fmt.Errorf("registry config %s: duplicate agent id %q", path, reg.ID)
		}
		newAgents[reg.ID] = reg
		newOrder = append(newOrder, reg.ID)
	}

	// Atomic swap
	r.mu.Lock()
	r.agents = newAgents
	r.order = newOrder
	r.configPath = path
	r.lastReload = time.Now()
	atomic.AddInt64(&r.loadCount, 1)
	r.mu.Unlock()

	return nil
}

// Register adds or updates a registration. Insertion order is preserved for
// new agents; updating an existing agent keeps its original position.
func (r *AgentRegistry) Register(reg AgentRegistration) error {
	if reg.ID == "" {
		return fmt.Errorf("agent registration requires an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[reg.ID]; !exists {
		r.order = append(r.order, reg.ID)
	}
	r.agents[reg.ID] = reg
	atomic.AddInt64(&r.loadCount, 1)

	return nil
}

// Get returns a registration by agent id.
func (r *AgentRegistry) Get(id string) (AgentRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.agents[id]
	return reg, exists
}

// Has reports whether an agent id is registered.
func (r *AgentRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.agents[id]
	return exists
}

// List returns all registrations in declaration order.
func (r *AgentRegistry) List() []AgentRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentRegistration, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// FirstWithAnyTag scans registrations in declaration order and returns the
// first whose capability tags intersect the given tags.
func (r *AgentRegistry) FirstWithAnyTag(tags []string) (AgentRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		reg := r.agents[id]
		for _, tag := range tags {
			if reg.HasTag(tag) {
				return reg, true
			}
		}
	}
	return AgentRegistration{}, false
}

// IsEmpty reports whether the registry has no registrations.
func (r *AgentRegistry) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents) == 0
}

// Stats returns current registry statistics.
func (r *AgentRegistry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistryStats{
		AgentCount: len(r.agents),
		ConfigPath: r.configPath,
		LastReload: r.lastReload,
		LoadCount:  atomic.LoadInt64(&r.loadCount),
	}
}
