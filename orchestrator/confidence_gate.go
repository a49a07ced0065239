// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"

	"bhiv/core/shared/logger"
)

// ConfidenceThresholds are the ordered cut points mapping a raw confidence
// to a discrete level. Invariant: High > Medium > Low >= 0.
type ConfidenceThresholds struct {
	High   float64 `yaml:"high" json:"high"`
	Medium float64 `yaml:"medium" json:"medium"`
	Low    float64 `yaml:"low" json:"low"`
}

// DefaultConfidenceThresholds mirrors the production defaults.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{High: 0.8, Medium: 0.6, Low: 0.4}
}

// Validate enforces the ordering invariant.
func (t ConfidenceThresholds) Validate() error {
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low >= 0) {
		return fmt.Errorf("confidence thresholds must satisfy high > medium > low >= 0, got high=%v medium=%v low=%v",
			t.High, t.Medium, t.Low)
	}
	return nil
}

// GateDecision is the resolved classification after the gate has arbitrated
// between the pattern scorer and the LLM fallback. Scores is always the
// original, unmodified pattern vector so the low-confidence fallback path
// can consult it.
type GateDecision struct {
	Intent      IntentCategory
	Confidence  float64
	Scores      *ScoreVector
	LLMOverride bool
}

// ConfidenceGate decides whether the pattern result can be trusted or the
// LLM fallback classifier must be consulted.
type ConfidenceGate struct {
	thresholds ConfidenceThresholds
	classifier *LLMIntentClassifier
	log        *logger.Logger
}

// NewConfidenceGate fails fast on a violated threshold ordering; a
// misconfigured gate must never reach first use.
func NewConfidenceGate(thresholds ConfidenceThresholds, classifier *LLMIntentClassifier) (*ConfidenceGate, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &ConfidenceGate{
		thresholds: thresholds,
		classifier: classifier,
		log:        logger.New("confidence_gate"),
	}, nil
}

// Decide resolves the final (intent, confidence) for a scored query. The LLM
// fallback fires only below the medium threshold, and its answer wins only
// when strictly more confident than the pattern result; ties keep the
// pattern pick.
func (g *ConfidenceGate) Decide(ctx context.Context, taskID, query string, scores *ScoreVector) GateDecision {
	best, confidence := scores.ArgMax()

	decision := GateDecision{
		Intent:     best,
		Confidence: confidence,
		Scores:     scores,
	}

	if confidence < g.thresholds.Medium && g.classifier != nil {
		promLLMFallbacksTotal.Inc()
		llmIntent, llmConfidence, _ := g.classifier.Classify(ctx, query)
		if llmConfidence > confidence {
			promLLMOverridesTotal.Inc()
			decision.Intent = llmIntent
			decision.Confidence = llmConfidence
			decision.LLMOverride = true
			g.log.Info(taskID, "LLM override of pattern classification", map[string]interface{}{
				"intent":             string(llmIntent),
				"llm_confidence":     llmConfidence,
				"pattern_confidence": confidence,
			})
		}
	}

	return decision
}

// Level maps a confidence score to its discrete level.
func (g *ConfidenceGate) Level(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= g.thresholds.High:
		return ConfidenceHigh
	case confidence >= g.thresholds.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Thresholds returns the configured thresholds.
func (g *ConfidenceGate) Thresholds() ConfidenceThresholds {
	return g.thresholds
}
