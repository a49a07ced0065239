// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

/*
Command orchestrator runs the BHIV Core orchestrator service.

The orchestrator classifies incoming queries by intent, routes each task to
the best-suited agent, and learns from reward feedback over time.

# Usage

	orchestrator [flags]

# Environment Variables

Optional:
  - PORT: HTTP server port (default: 8080)
  - CONFIG_PATH: path to a YAML configuration file
  - AGENT_CONFIG_PATH: path to the agent registry YAML (default: config/agents.yaml)
  - GROQ_API_KEY: Groq API key for hosted LLM generation
  - OLLAMA_ENDPOINT: local Ollama endpoint (fallback backend)
  - RAG_API_URL: knowledge retrieval service endpoint
  - MONGO_URI: MongoDB connection string for task logs
  - DATABASE_URL: PostgreSQL connection string for the audit log
  - REDIS_URL: Redis connection string for the shared reward buffer
  - USE_RL: enable reinforcement-based agent selection (default: true)
  - RL_EXPLORATION_RATE: exploration probability in [0,1] (default: 0.2)

# Example

	export GROQ_API_KEY="gsk_..."
	export MONGO_URI="mongodb://localhost:27017"
	./orchestrator
*/
package main
