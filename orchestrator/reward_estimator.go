// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"fmt"

	"bhiv/core/shared/logger"
)

const (
	clarityWeight = 0.5
	tagWeight     = 0.1
	clarityWords  = 100.0
)

// RewardEstimator computes a scalar quality reward from a handler's output.
// Estimation is best-effort: it never propagates a failure to the caller,
// mapping any internal panic to reward 0.0 with an error annotation.
//
// The tag term is deliberately uncapped: a long source list pushes the
// reward past the nominal range. Downstream consumers comparing reward
// magnitudes across agents should account for this.
type RewardEstimator struct {
	log *logger.Logger
}

// NewRewardEstimator creates a reward estimator.
func NewRewardEstimator() *RewardEstimator {
	return &RewardEstimator{log: logger.New("reward_estimator")}
}

// Estimate computes the reward and its metrics breakdown for an output.
//
//	base    = 1.0 when status is 200, else 0.0
//	clarity = min(word_count / 100, 1.0), weighted at 0.5
//	tags    = 0.1 per source/keyword, uncapped
func (e *RewardEstimator) Estimate(taskID string, output HandlerOutput) (reward float64, metrics RewardMetrics) {
	defer func() {
		if r := recover(); r != nil {
			status := output.Status
			if status == 0 {
				status = 500
			}
			reward = 0.0
			metrics = RewardMetrics{
				Status: status,
				Error:  fmt.Sprintf("reward computation failed: %v", r),
			}
			e.log.Error(taskID, "reward computation failed", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()

	if output.Status == 200 {
		reward = 1.0
	}

	clarity := 0.0
	if wordCount := output.WordCount(); wordCount > 0 {
		clarity = float64(wordCount) / clarityWords
		if clarity > 1.0 {
			clarity = 1.0
		}
		reward += clarity * clarityWeight
	}

	tagCount := len(output.Sources)
	reward += float64(tagCount) * tagWeight

	metrics = RewardMetrics{
		ClarityScore: clarity,
		TagCount:     tagCount,
		Status:       output.Status,
	}

	e.log.Info(taskID, "computed reward", map[string]interface{}{
		"reward":        reward,
		"clarity_score": clarity,
		"tag_count":     tagCount,
		"status":        output.Status,
	})

	return reward, metrics
}
