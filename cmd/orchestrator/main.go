// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the BHIV Core orchestrator service.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"bhiv/core/orchestrator"
	"bhiv/core/reinforcement"
)

func main() {
	// Optional .env for local development; environment wins in production.
	_ = godotenv.Load()

	cfg, err := orchestrator.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var suggester orchestrator.SuggestionSource
	if cfg.RL.UseRL {
		var buffer reinforcement.Buffer
		if cfg.RedisURL != "" {
			redisBuffer, err := reinforcement.NewRedisBuffer(context.Background(), cfg.RedisURL, cfg.RL.MemorySize)
			if err != nil {
				log.Printf("redis reward buffer unavailable, using in-memory buffer: %v", err)
			} else {
				defer func() { _ = redisBuffer.Close() }()
				buffer = redisBuffer
			}
		}
		if buffer == nil {
			buffer = reinforcement.NewMemoryBuffer(cfg.RL.MemorySize)
		}
		suggester = reinforcement.NewAverageRewardSelector(buffer, 3)
	}

	orchestrator.Run(cfg, orchestrator.ServiceOptions{Suggester: suggester})
}
