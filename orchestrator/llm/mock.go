// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"sync"
)

// MockGenerator is a deterministic Generator for tests. When Fail is set it
// always declines; otherwise it returns Response verbatim.
type MockGenerator struct {
	Response string
	Fail     bool

	mu      sync.Mutex
	prompts []string
}

func (m *MockGenerator) Generate(_ context.Context, prompt string, _ int, _ float64) (string, bool) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Fail {
		return "", false
	}
	return m.Response, true
}

// Prompts returns every prompt seen so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
