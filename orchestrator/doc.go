// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

/*
Package orchestrator implements the BHIV Core routing pipeline: intent
classification, confidence gating, agent selection, dispatch and reward
feedback.

A task flows through the pipeline in a fixed order. The pattern scorer
produces a confidence per intent category; the confidence gate escalates
weak results to an LLM fallback classifier; the selection policy arbitrates
between an explicit user request, a reinforcement-learned suggestion and
deterministic tag/type fallbacks; the resolved handler runs under a
per-input-type timeout; and a reward computed from the handler's output is
fed back to the suggestion source.

Every routing decision and reward record is written to the configured
task-log sinks under a single task_id, which is the correlation key across
the system.

The HTTP surface (Service) exposes POST /handle_task for task intake,
GET/POST /agents for registry management, GET /health and Prometheus
metrics on /metrics.
*/
package orchestrator
