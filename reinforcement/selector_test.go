// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package reinforcement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhiv/core/orchestrator"
)

func observe(t *testing.T, s *AverageRewardSelector, agent string, rewards ...float64) {
	t.Helper()
	for _, r := range rewards {
		s.Observe(context.Background(), orchestrator.RewardRecord{
			TaskID:  "t",
			AgentID: agent,
			Reward:  r,
		})
	}
}

func TestSelectorColdStartOffersNothing(t *testing.T) {
	selector := NewAverageRewardSelector(NewMemoryBuffer(100), 1)

	_, ok := selector.Suggest(context.Background(), orchestrator.TaskContext{TaskID: "t1"})
	assert.False(t, ok)
}

func TestSelectorPicksHighestAverage(t *testing.T) {
	selector := NewAverageRewardSelector(NewMemoryBuffer(100), 1)

	observe(t, selector, "qna_agent", 1.0, 1.2)
	observe(t, selector, "summarizer_agent", 1.8, 1.6)

	suggestion, ok := selector.Suggest(context.Background(), orchestrator.TaskContext{TaskID: "t1"})

	require.True(t, ok)
	assert.Equal(t, "summarizer_agent", suggestion.AgentID)
	assert.InDelta(t, 1.7, suggestion.Score, 1e-9)
}

func TestSelectorMinSamplesGate(t *testing.T) {
	selector := NewAverageRewardSelector(NewMemoryBuffer(100), 3)

	observe(t, selector, "qna_agent", 2.0, 2.0)
	observe(t, selector, "summarizer_agent", 1.0, 1.0, 1.0)

	suggestion, ok := selector.Suggest(context.Background(), orchestrator.TaskContext{TaskID: "t1"})

	require.True(t, ok)
	// qna averages higher but has too few observations to trust.
	assert.Equal(t, "summarizer_agent", suggestion.AgentID)
}

func TestSelectorTieKeepsFirstObservedAgent(t *testing.T) {
	selector := NewAverageRewardSelector(NewMemoryBuffer(100), 1)

	observe(t, selector, "first_agent", 1.5)
	observe(t, selector, "second_agent", 1.5)

	suggestion, ok := selector.Suggest(context.Background(), orchestrator.TaskContext{TaskID: "t1"})

	require.True(t, ok)
	assert.Equal(t, "first_agent", suggestion.AgentID)
}

func TestSelectorAveragesReflectEviction(t *testing.T) {
	// Capacity 2: only the latest two rewards survive.
	selector := NewAverageRewardSelector(NewMemoryBuffer(2), 1)

	observe(t, selector, "qna_agent", 0.1, 1.0, 2.0)

	suggestion, ok := selector.Suggest(context.Background(), orchestrator.TaskContext{TaskID: "t1"})

	require.True(t, ok)
	assert.InDelta(t, 1.5, suggestion.Score, 1e-9)
}
