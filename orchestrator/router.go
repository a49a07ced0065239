// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bhiv/core/shared/logger"
)

// RouteOptions is the caller-supplied context for one query.
type RouteOptions struct {
	TaskID         string   `json:"task_id,omitempty"`
	RequestedAgent string   `json:"requested_agent,omitempty"`
	InputType      string   `json:"input_type,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Router ties the classification, gating, selection, dispatch and reward
// stages together. One query flows synchronously through the pipeline; the
// only shared mutable state across concurrent requests lives behind the
// registry's lock and the append-only sinks.
type Router struct {
	cfg       Config
	scorer    *PatternIntentScorer
	gate      *ConfidenceGate
	policy    *AgentSelectionPolicy
	registry  *AgentRegistry
	handlers  HandlerMap
	suggester SuggestionSource
	estimator *RewardEstimator
	taskLog   TaskLog
	log       *logger.Logger
}

// RouterDeps collects the router's collaborators.
type RouterDeps struct {
	Scorer    *PatternIntentScorer
	Gate      *ConfidenceGate
	Policy    *AgentSelectionPolicy
	Registry  *AgentRegistry
	Handlers  HandlerMap
	Suggester SuggestionSource
	Estimator *RewardEstimator
	TaskLog   TaskLog
}

// NewRouter builds a router. All dependencies are injected explicitly so
// tests can wire isolated registries and sinks.
func NewRouter(cfg Config, deps RouterDeps) (*Router, error) {
	if deps.Scorer == nil || deps.Gate == nil || deps.Policy == nil || deps.Registry == nil {
		return nil, fmt.Errorf("router requires scorer, gate, policy and registry")
	}
	if deps.Estimator == nil {
		deps.Estimator = NewRewardEstimator()
	}
	if deps.TaskLog == nil {
		deps.TaskLog = NewMemoryTaskLog()
	}
	if deps.Handlers == nil {
		deps.Handlers = HandlerMap{}
	}
	return &Router{
		cfg:       cfg,
		scorer:    deps.Scorer,
		gate:      deps.Gate,
		policy:    deps.Policy,
		registry:  deps.Registry,
		handlers:  deps.Handlers,
		suggester: deps.Suggester,
		estimator: deps.Estimator,
		taskLog:   deps.TaskLog,
		log:       logger.New("router"),
	}, nil
}

// Route classifies the query and resolves the handler. The returned
// decision is complete and logged even if the handler subsequently fails:
// handler failure is the dispatch boundary's concern, not the router's.
func (r *Router) Route(ctx context.Context, task TaskContext) (RoutingDecision, error) {
	scores := r.scorer.Score(task.Query)
	gateDecision := r.gate.Decide(ctx, task.TaskID, task.Query, scores)
	level := r.gate.Level(gateDecision.Confidence)

	routedIntent := gateDecision.Intent
	if level == ConfidenceLow {
		// Fallback re-route: try the runner-up from the original pattern
		// vector, not the LLM-overridden pick. With nothing else scored,
		// the broadest category takes the query.
		if second, _, ok := gateDecision.Scores.SecondBest(); ok {
			routedIntent = second
		} else {
			routedIntent = fallbackIntent
		}
		r.log.Warn(task.TaskID, "low classification confidence, re-routing", map[string]interface{}{
			"original_intent": string(gateDecision.Intent),
			"routed_intent":   string(routedIntent),
			"confidence":      gateDecision.Confidence,
		})
	}

	desired := r.cfg.IntentAgents[routedIntent]
	if desired == "" {
		desired = r.cfg.DefaultAgent
	}

	agentID, reason, err := r.policy.Select(ctx, task, desired)
	if err != nil {
		return RoutingDecision{}, err
	}

	decision := RoutingDecision{
		TaskID:          task.TaskID,
		FinalAgentID:    agentID,
		DetectedIntent:  routedIntent,
		Confidence:      gateDecision.Confidence,
		ConfidenceLevel: level,
		DecisionReason:  reason,
		Timestamp:       time.Now().UTC(),
	}

	if err := r.taskLog.LogDecision(ctx, decision); err != nil {
		r.log.ErrorWithErr(task.TaskID, "failed to log routing decision", err, nil)
	}

	r.log.Info(task.TaskID, "routing decision", map[string]interface{}{
		"agent":            decision.FinalAgentID,
		"detected_intent":  string(decision.DetectedIntent),
		"confidence":       decision.Confidence,
		"confidence_level": string(decision.ConfidenceLevel),
		"decision_reason":  string(decision.DecisionReason),
		"llm_override":     gateDecision.LLMOverride,
		"scores":           gateDecision.Scores.ToMap(),
	})

	return decision, nil
}

// Dispatch invokes the resolved handler under the per-input-type budget.
// Any failure of the handler capability is caught here and converted into a
// structured error output; it never surfaces as an error to the caller.
func (r *Router) Dispatch(ctx context.Context, task TaskContext, decision RoutingDecision) HandlerOutput {
	handler, ok := r.handlers[decision.FinalAgentID]
	if !ok {
		return HandlerOutput{
			Agent:  decision.FinalAgentID,
			Status: 500,
			Error:  fmt.Sprintf("no handler registered for agent %q", decision.FinalAgentID),
		}
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeouts.ForInputType(task.InputType))
	defer cancel()

	output, err := r.invoke(dispatchCtx, handler, task)
	if err != nil {
		r.log.ErrorWithErr(task.TaskID, "handler dispatch failed", err, map[string]interface{}{
			"agent": decision.FinalAgentID,
		})
		return HandlerOutput{
			Agent:  decision.FinalAgentID,
			Status: 500,
			Error:  err.Error(),
		}
	}

	if output.Agent == "" {
		output.Agent = decision.FinalAgentID
	}
	return output
}

// invoke shields the router from a panicking handler.
func (r *Router) invoke(ctx context.Context, handler Handler, task TaskContext) (output HandlerOutput, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return handler.Handle(ctx, task)
}

// RecordReward computes and persists the reward for a completed dispatch
// and feeds it to the RL suggestion source. The record carries the same
// task_id as the decision; that correlation key is the contract.
func (r *Router) RecordReward(ctx context.Context, decision RoutingDecision, output HandlerOutput) RewardRecord {
	reward, metrics := r.estimator.Estimate(decision.TaskID, output)
	promRewards.Observe(reward)

	record := RewardRecord{
		TaskID:  decision.TaskID,
		AgentID: decision.FinalAgentID,
		Reward:  reward,
		Metrics: metrics,
	}

	if err := r.taskLog.LogReward(ctx, record); err != nil {
		r.log.ErrorWithErr(decision.TaskID, "failed to log reward record", err, nil)
	}

	if r.suggester != nil {
		r.suggester.Observe(ctx, record)
	}

	return record
}

// RouteAndDispatch is the single synchronous entry point: classify, gate,
// select, dispatch, reward. The caller always receives a well-formed result
// with a status field.
func (r *Router) RouteAndDispatch(ctx context.Context, query string, opts RouteOptions) RouteResult {
	task := TaskContext{
		TaskID:         opts.TaskID,
		Query:          query,
		RequestedAgent: opts.RequestedAgent,
		InputType:      opts.InputType,
		Tags:           opts.Tags,
		Timestamp:      time.Now().UTC(),
	}
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	if task.InputType == "" {
		task.InputType = "text"
	}

	decision, err := r.Route(ctx, task)
	if err != nil {
		if errors.Is(err, ErrNoAgentResolvable) {
			r.log.ErrorWithErr(task.TaskID, "selection failed", err, nil)
		}
		return RouteResult{
			TaskID: task.TaskID,
			Status: "error",
			Error:  err.Error(),
		}
	}

	output := r.Dispatch(ctx, task, decision)
	r.RecordReward(ctx, decision, output)

	status := "success"
	if output.Status != 200 {
		status = "error"
	}

	return RouteResult{
		TaskID:          task.TaskID,
		Agent:           decision.FinalAgentID,
		DetectedIntent:  decision.DetectedIntent,
		Confidence:      decision.Confidence,
		ConfidenceLevel: decision.ConfidenceLevel,
		Response:        &output,
		Status:          status,
		Error:           output.Error,
		DecisionReason:  decision.DecisionReason,
	}
}
