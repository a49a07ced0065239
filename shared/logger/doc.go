// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

/*
Package logger provides structured JSON logging for BHIV Core components.

# Overview

The logger package outputs one JSON object per line to stdout, making logs
easily consumable by log aggregation systems.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (orchestrator, llm, reinforcement, etc.)
  - Instance ID and container name
  - Task ID (the correlation key threading one query through
    classification, selection, dispatch and reward)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("orchestrator")

Log messages with task context:

	log.Info(taskID, "routing decision recorded", map[string]interface{}{
		"agent":  "edumentor_agent",
		"reason": "rl_selected",
	})
*/
package logger
