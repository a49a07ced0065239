// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"bhiv/core/shared/logger"
)

// ErrNoAgentResolvable is returned when no agent can be resolved at all:
// the registry is empty and no default agent is configured. This is a fatal
// configuration error, never papered over with an arbitrary pick.
var ErrNoAgentResolvable = errors.New("no agent resolvable: registry empty and no default agent configured")

// SuggestionSource produces RL-based agent suggestions and consumes the
// rewards that train them. The routing core treats it as an external
// collaborator: it only reads suggestions and logs the decision that
// resulted.
type SuggestionSource interface {
	// Suggest returns an agent suggestion for the task context. ok is
	// false when the source has nothing to offer.
	Suggest(ctx context.Context, task TaskContext) (RLSuggestion, bool)

	// Observe feeds a completed reward record back into the source.
	Observe(ctx context.Context, record RewardRecord)
}

// DefaultInputTypeMapping routes non-text input to specialized agents when
// the desired agent is the generic default.
func DefaultInputTypeMapping() map[string]string {
	return map[string]string{
		"pdf":             "archive_agent",
		"image":           "image_agent",
		"audio":           "audio_agent",
		"semantic_search": "knowledge_agent",
		"vedabase":        "knowledge_agent",
	}
}

// SelectionPolicyOptions configures an AgentSelectionPolicy.
type SelectionPolicyOptions struct {
	UseRL           bool
	ExplorationRate float64
	DefaultAgent    string
	TypeMapping     map[string]string

	// RNG drives the exploration draw. Injected so tests can seed it;
	// nil means the caller must not rely on reproducible draws.
	RNG *rand.Rand
}

// AgentSelectionPolicy arbitrates between an explicit user request, an
// RL-based suggestion, and deterministic tag/type fallback. The precedence
// order implemented in Select is the core business rule of the router and
// must not be reordered.
type AgentSelectionPolicy struct {
	registry  *AgentRegistry
	suggester SuggestionSource
	opts      SelectionPolicyOptions
	log       *logger.Logger

	// rand.Rand is not safe for concurrent use.
	rngMu sync.Mutex
}

// NewAgentSelectionPolicy validates the options and builds a policy.
func NewAgentSelectionPolicy(registry *AgentRegistry, suggester SuggestionSource, opts SelectionPolicyOptions) (*AgentSelectionPolicy, error) {
	if registry == nil {
		return nil, fmt.Errorf("selection policy requires a registry")
	}
	if opts.ExplorationRate < 0 || opts.ExplorationRate > 1 {
		return nil, fmt.Errorf("exploration rate must be in [0,1], got %v", opts.ExplorationRate)
	}
	if opts.TypeMapping == nil {
		opts.TypeMapping = DefaultInputTypeMapping()
	}
	return &AgentSelectionPolicy{
		registry:  registry,
		suggester: suggester,
		opts:      opts,
		log:       logger.New("selection_policy"),
	}, nil
}

// Select resolves the final handler identity for a task.
//
// Precedence, evaluated in this exact order:
//  1. An explicit user request only counts when the agent is registered.
//  2. An RL suggestion only counts when RL is enabled and the suggested
//     agent is registered.
//  3. User request and RL suggestion present and differing: one uniform
//     draw decides; below the exploration rate the RL pick wins.
//  4. RL suggestion alone wins outright.
//  5. User request alone wins outright.
//  6. Deterministic fallback: tag intersection in declaration order, then
//     input-type mapping against the generic default.
//
// desired is the agent the caller would route to absent any override
// (typically the handler mapped from the detected intent); it feeds only the
// type fallback branch.
func (p *AgentSelectionPolicy) Select(ctx context.Context, task TaskContext, desired string) (string, DecisionReason, error) {
	userRequested := task.RequestedAgent != "" && p.registry.Has(task.RequestedAgent)

	var suggestion *RLSuggestion
	if p.opts.UseRL && p.suggester != nil {
		if s, ok := p.suggester.Suggest(ctx, task); ok {
			// An unregistered suggestion is treated as absent.
			if p.registry.Has(s.AgentID) {
				suggestion = &s
			}
		}
	}

	switch {
	case userRequested && suggestion != nil && suggestion.AgentID != task.RequestedAgent:
		// The only place randomness is permitted: exactly one draw per
		// decision, never retried.
		if p.drawOnce() < p.opts.ExplorationRate {
			p.log.Info(task.TaskID, "RL exploration override of user request", map[string]interface{}{
				"requested_agent": task.RequestedAgent,
				"rl_agent":        suggestion.AgentID,
			})
			return suggestion.AgentID, ReasonRLOverrideExploration, nil
		}
		return task.RequestedAgent, ReasonUserRequested, nil

	case suggestion != nil && !userRequested:
		return suggestion.AgentID, ReasonRLSelected, nil

	case userRequested:
		return task.RequestedAgent, ReasonUserRequested, nil
	}

	return p.fallback(task, desired)
}

// fallback is the deterministic path when neither a user request nor a
// usable RL suggestion exists.
func (p *AgentSelectionPolicy) fallback(task TaskContext, desired string) (string, DecisionReason, error) {
	if len(task.Tags) > 0 {
		if reg, ok := p.registry.FirstWithAnyTag(task.Tags); ok {
			return reg.ID, ReasonTagFallback, nil
		}
	}

	if desired == "" {
		desired = p.opts.DefaultAgent
	}

	if desired == p.opts.DefaultAgent && task.InputType != "" && task.InputType != "text" {
		if mapped, ok := p.opts.TypeMapping[task.InputType]; ok {
			desired = mapped
		}
	}

	if desired == "" {
		return "", "", ErrNoAgentResolvable
	}

	return desired, ReasonTypeFallback, nil
}

func (p *AgentSelectionPolicy) drawOnce() float64 {
	p.rngMu.Lock()
	defer p.rngMu.Unlock()
	if p.opts.RNG != nil {
		return p.opts.RNG.Float64()
	}
	return rand.Float64()
}
