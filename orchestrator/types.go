// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"time"
)

// IntentCategory is the coarse category of what a user's query is asking for.
// The set is closed: extending it means adding a pattern group and a handler
// mapping, not inventing categories at runtime.
type IntentCategory string

const (
	IntentSummarization IntentCategory = "summarization"
	IntentPlanning      IntentCategory = "planning"
	IntentFileSearch    IntentCategory = "file_search"
	IntentQnA           IntentCategory = "qna"
)

// AllIntentCategories lists the known categories in declaration order.
func AllIntentCategories() []IntentCategory {
	return []IntentCategory{IntentSummarization, IntentPlanning, IntentFileSearch, IntentQnA}
}

// ConfidenceLevel is derived from a confidence score against the configured
// thresholds. It is never stored, only computed.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// DecisionReason identifies which selection branch produced a routing
// decision. The taxonomy is part of the external contract: downstream
// tooling keys off these exact strings.
type DecisionReason string

const (
	ReasonUserRequested         DecisionReason = "user_requested"
	ReasonRLSelected            DecisionReason = "rl_selected"
	ReasonRLOverrideExploration DecisionReason = "rl_override_exploration"
	ReasonTagFallback           DecisionReason = "tag_fallback"
	ReasonTypeFallback          DecisionReason = "type_fallback"
)

// ScoreVector maps each known IntentCategory to a confidence in [0,1].
// Iteration order is category declaration order; it is produced fresh per
// query and never mutated after construction.
type ScoreVector struct {
	categories []IntentCategory
	scores     map[IntentCategory]float64
}

// NewScoreVector builds a vector over the given categories with all scores
// initialized to zero. The category slice fixes iteration order.
func NewScoreVector(categories []IntentCategory) *ScoreVector {
	scores := make(map[IntentCategory]float64, len(categories))
	for _, c := range categories {
		scores[c] = 0
	}
	return &ScoreVector{
		categories: append([]IntentCategory(nil), categories...),
		scores:     scores,
	}
}

func (v *ScoreVector) set(category IntentCategory, score float64) {
	v.scores[category] = score
}

// Get returns the score for a category (zero for unknown categories).
func (v *ScoreVector) Get(category IntentCategory) float64 {
	return v.scores[category]
}

// Categories returns the categories in declaration order.
func (v *ScoreVector) Categories() []IntentCategory {
	return append([]IntentCategory(nil), v.categories...)
}

// ArgMax returns the best-scoring category and its score. On exact ties the
// first category in declaration order wins; this is the deterministic
// tie-break contract relied on by callers.
func (v *ScoreVector) ArgMax() (IntentCategory, float64) {
	if len(v.categories) == 0 {
		return "", 0
	}
	best := v.categories[0]
	bestScore := v.scores[best]
	for _, c := range v.categories[1:] {
		if v.scores[c] > bestScore {
			best = c
			bestScore = v.scores[c]
		}
	}
	return best, bestScore
}

// SecondBest returns the runner-up category among those scored strictly
// above zero. ok is false when fewer than two categories scored.
func (v *ScoreVector) SecondBest() (IntentCategory, float64, bool) {
	best, _ := v.ArgMax()
	var second IntentCategory
	secondScore := 0.0
	found := false
	for _, c := range v.categories {
		if c == best {
			continue
		}
		s := v.scores[c]
		if s > 0 && (!found || s > secondScore) {
			second = c
			secondScore = s
			found = true
		}
	}
	return second, secondScore, found
}

// ToMap returns a copy of the scores keyed by category name, for logging.
func (v *ScoreVector) ToMap() map[string]float64 {
	out := make(map[string]float64, len(v.categories))
	for _, c := range v.categories {
		out[string(c)] = v.scores[c]
	}
	return out
}

// TaskContext is the ephemeral per-query context. It is created at request
// entry, never mutated, and discarded once the routing decision and handler
// call complete. Its TaskID survives into logs.
type TaskContext struct {
	TaskID         string    `json:"task_id"`
	Query          string    `json:"query"`
	RequestedAgent string    `json:"requested_agent,omitempty"`
	InputType      string    `json:"input_type"`
	Tags           []string  `json:"tags,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// AgentRegistration describes one known handler. Loaded from the config
// store at startup; mutable only through an explicit Register call.
type AgentRegistration struct {
	ID     string   `json:"id" yaml:"id"`
	Tags   []string `json:"capability_tags" yaml:"tags"`
	Weight float64  `json:"weight" yaml:"weight"`
}

// HasTag reports whether the registration carries the given capability tag.
func (r AgentRegistration) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RLSuggestion is the ephemeral output of the RL suggestion source. The core
// only reads it and logs the decision that resulted.
type RLSuggestion struct {
	AgentID string  `json:"agent_id"`
	Score   float64 `json:"score"`
}

// RoutingDecision is the immutable record of which agent was chosen for a
// task and why. Field names are stable: the task-log and replay tooling
// depend on these exact shapes.
type RoutingDecision struct {
	TaskID          string          `json:"task_id"`
	FinalAgentID    string          `json:"final_agent_id"`
	DetectedIntent  IntentCategory  `json:"detected_intent"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	DecisionReason  DecisionReason  `json:"decision_reason"`
	Timestamp       time.Time       `json:"timestamp"`
}

// RewardMetrics is the metrics breakdown attached to a RewardRecord.
type RewardMetrics struct {
	ClarityScore float64 `json:"clarity_score"`
	TagCount     int     `json:"tag_count"`
	Status       int     `json:"status"`
	Error        string  `json:"error,omitempty"`
}

// RewardRecord is written once per completed handler invocation and read by
// the RL suggestion source for future decisions.
type RewardRecord struct {
	TaskID  string        `json:"task_id"`
	AgentID string        `json:"agent_id"`
	Reward  float64       `json:"reward"`
	Metrics RewardMetrics `json:"metrics"`
}

// HandlerOutput is what a dispatched handler capability returns. Status uses
// HTTP-style codes: 200 is success, anything else is a failure the reward
// function treats as zero base reward.
type HandlerOutput struct {
	Agent   string   `json:"agent,omitempty"`
	Status  int      `json:"status"`
	Texts   []string `json:"response,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// WordCount totals whitespace-separated words across all response texts.
func (o HandlerOutput) WordCount() int {
	n := 0
	for _, t := range o.Texts {
		n += len(splitWords(t))
	}
	return n
}

// RouteResult is the single synchronous result returned to external callers
// by RouteAndDispatch. Callers always receive a well-formed result with a
// status field, never an unhandled failure.
type RouteResult struct {
	TaskID          string          `json:"task_id"`
	Agent           string          `json:"agent"`
	DetectedIntent  IntentCategory  `json:"detected_intent"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Response        *HandlerOutput  `json:"response_payload,omitempty"`
	Status          string          `json:"status"`
	Error           string          `json:"error,omitempty"`

	// DecisionReason is surfaced for metrics and logging only; it is not
	// part of the wire response.
	DecisionReason DecisionReason `json:"-"`
}
