// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package reinforcement

import (
	"context"

	"bhiv/core/orchestrator"
	"bhiv/core/shared/logger"
)

// AverageRewardSelector suggests the agent with the highest running average
// reward in the replay buffer. It offers nothing until at least minSamples
// rewards have been observed for some agent, so cold starts fall through to
// the router's deterministic fallbacks.
type AverageRewardSelector struct {
	buffer     Buffer
	minSamples int
	log        *logger.Logger
}

// NewAverageRewardSelector builds a selector over the given buffer.
// minSamples below 1 is treated as 1.
func NewAverageRewardSelector(buffer Buffer, minSamples int) *AverageRewardSelector {
	if minSamples < 1 {
		minSamples = 1
	}
	return &AverageRewardSelector{
		buffer:     buffer,
		minSamples: minSamples,
		log:        logger.New("rl.selector"),
	}
}

// Suggest returns the best-performing agent so far. Ties keep the agent
// observed first.
func (s *AverageRewardSelector) Suggest(ctx context.Context, task orchestrator.TaskContext) (orchestrator.RLSuggestion, bool) {
	records, err := s.buffer.Records(ctx)
	if err != nil {
		s.log.ErrorWithErr(task.TaskID, "failed to read reward history", err, nil)
		return orchestrator.RLSuggestion{}, false
	}
	if len(records) == 0 {
		return orchestrator.RLSuggestion{}, false
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, rec := range records {
		if rec.AgentID == "" {
			continue
		}
		if _, seen := counts[rec.AgentID]; !seen {
			order = append(order, rec.AgentID)
		}
		sums[rec.AgentID] += rec.Reward
		counts[rec.AgentID]++
	}

	best := ""
	bestAvg := 0.0
	for _, agent := range order {
		if counts[agent] < s.minSamples {
			continue
		}
		avg := sums[agent] / float64(counts[agent])
		if best == "" || avg > bestAvg {
			best = agent
			bestAvg = avg
		}
	}
	if best == "" {
		return orchestrator.RLSuggestion{}, false
	}

	return orchestrator.RLSuggestion{AgentID: best, Score: bestAvg}, true
}

// Observe appends the reward to the replay buffer. Persistence failures are
// logged and swallowed; reward feedback must never fail a task.
func (s *AverageRewardSelector) Observe(ctx context.Context, record orchestrator.RewardRecord) {
	if err := s.buffer.Append(ctx, record); err != nil {
		s.log.ErrorWithErr(record.TaskID, "failed to persist reward record", err, nil)
	}
}
