// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package reinforcement

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhiv/core/orchestrator"
)

func newTestRedisBuffer(t *testing.T, capacity int) *RedisBuffer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBufferWithClient(client, capacity)
}

func TestMemoryBufferEvictsOldest(t *testing.T) {
	buffer := NewMemoryBuffer(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Append(ctx, orchestrator.RewardRecord{
			TaskID: fmt.Sprintf("t%d", i),
			Reward: float64(i),
		}))
	}

	records, err := buffer.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "t2", records[0].TaskID, "oldest surviving record first")
	assert.Equal(t, "t4", records[2].TaskID)
}

func TestRedisBufferRoundTrip(t *testing.T) {
	buffer := newTestRedisBuffer(t, 100)
	ctx := context.Background()

	require.NoError(t, buffer.Append(ctx, orchestrator.RewardRecord{
		TaskID:  "t1",
		AgentID: "qna_agent",
		Reward:  1.3,
		Metrics: orchestrator.RewardMetrics{ClarityScore: 0.6, TagCount: 1, Status: 200},
	}))
	require.NoError(t, buffer.Append(ctx, orchestrator.RewardRecord{
		TaskID:  "t2",
		AgentID: "summarizer_agent",
		Reward:  1.8,
	}))

	records, err := buffer.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t1", records[0].TaskID, "records come back in chronological order")
	assert.Equal(t, "qna_agent", records[0].AgentID)
	assert.InDelta(t, 1.3, records[0].Reward, 1e-9)
	assert.Equal(t, 200, records[0].Metrics.Status)
	assert.Equal(t, "t2", records[1].TaskID)
}

func TestRedisBufferTrimsToCapacity(t *testing.T) {
	buffer := newTestRedisBuffer(t, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, buffer.Append(ctx, orchestrator.RewardRecord{
			TaskID: fmt.Sprintf("t%d", i),
		}))
	}

	records, err := buffer.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "t3", records[0].TaskID)
	assert.Equal(t, "t4", records[1].TaskID)
}

func TestRedisBufferSharedAcrossSelectors(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = clientA.Close(); _ = clientB.Close() })

	writer := NewAverageRewardSelector(NewRedisBufferWithClient(clientA, 100), 1)
	reader := NewAverageRewardSelector(NewRedisBufferWithClient(clientB, 100), 1)

	writer.Observe(ctx, orchestrator.RewardRecord{TaskID: "t1", AgentID: "qna_agent", Reward: 1.4})

	suggestion, ok := reader.Suggest(ctx, orchestrator.TaskContext{TaskID: "t2"})
	require.True(t, ok, "a second replica sees rewards written by the first")
	assert.Equal(t, "qna_agent", suggestion.AgentID)
}

func TestNewRedisBufferRejectsBadURL(t *testing.T) {
	_, err := NewRedisBuffer(context.Background(), "not-a-url", 10)
	assert.Error(t, err)
}
