// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package reinforcement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"bhiv/core/orchestrator"
)

// Buffer is a bounded store of recent reward records. Oldest records are
// evicted once capacity is reached.
type Buffer interface {
	Append(ctx context.Context, record orchestrator.RewardRecord) error
	Records(ctx context.Context) ([]orchestrator.RewardRecord, error)
}

// MemoryBuffer is an in-process ring buffer.
type MemoryBuffer struct {
	mu       sync.Mutex
	records  []orchestrator.RewardRecord
	capacity int
}

// NewMemoryBuffer creates a ring buffer holding at most capacity records.
func NewMemoryBuffer(capacity int) *MemoryBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryBuffer{capacity: capacity}
}

func (b *MemoryBuffer) Append(_ context.Context, record orchestrator.RewardRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, record)
	if len(b.records) > b.capacity {
		b.records = b.records[len(b.records)-b.capacity:]
	}
	return nil
}

func (b *MemoryBuffer) Records(_ context.Context) ([]orchestrator.RewardRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]orchestrator.RewardRecord, len(b.records))
	copy(out, b.records)
	return out, nil
}

// redisBufferKey holds the shared reward history list.
const redisBufferKey = "bhiv:rl:rewards"

// RedisBuffer shares reward history across orchestrator replicas via a
// capped Redis list. Records are JSON, newest first.
type RedisBuffer struct {
	client   *redis.Client
	capacity int
}

// NewRedisBuffer connects to Redis and verifies the connection.
func NewRedisBuffer(ctx context.Context, redisURL string, capacity int) (*RedisBuffer, error) {
	if capacity <= 0 {
		capacity = 1000
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisBuffer{client: client, capacity: capacity}, nil
}

// NewRedisBufferWithClient wraps an existing client; used by tests.
func NewRedisBufferWithClient(client *redis.Client, capacity int) *RedisBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RedisBuffer{client: client, capacity: capacity}
}

func (b *RedisBuffer) Append(ctx context.Context, record orchestrator.RewardRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode reward record: %w", err)
	}
	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, redisBufferKey, data)
	pipe.LTrim(ctx, redisBufferKey, 0, int64(b.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append reward record: %w", err)
	}
	return nil
}

func (b *RedisBuffer) Records(ctx context.Context) ([]orchestrator.RewardRecord, error) {
	raw, err := b.client.LRange(ctx, redisBufferKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reward records: %w", err)
	}
	records := make([]orchestrator.RewardRecord, 0, len(raw))
	// LRange returns newest first; reverse to chronological order.
	for i := len(raw) - 1; i >= 0; i-- {
		var rec orchestrator.RewardRecord
		if err := json.Unmarshal([]byte(raw[i]), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the Redis connection.
func (b *RedisBuffer) Close() error {
	return b.client.Close()
}
