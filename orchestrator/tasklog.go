// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// TaskLog is the append-only sink for routing decisions and reward records.
// Writes are all-or-nothing per record: a failed write never leaves a
// partial entry behind.
type TaskLog interface {
	LogDecision(ctx context.Context, decision RoutingDecision) error
	LogReward(ctx context.Context, record RewardRecord) error
}

// MemoryTaskLog keeps records in memory. Used in tests and in deployments
// without a MongoDB instance.
type MemoryTaskLog struct {
	mu        sync.Mutex
	decisions []RoutingDecision
	rewards   []RewardRecord
}

// NewMemoryTaskLog creates an empty in-memory task log.
func NewMemoryTaskLog() *MemoryTaskLog {
	return &MemoryTaskLog{}
}

// LogDecision appends a routing decision.
func (l *MemoryTaskLog) LogDecision(_ context.Context, decision RoutingDecision) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decisions = append(l.decisions, decision)
	return nil
}

// LogReward appends a reward record.
func (l *MemoryTaskLog) LogReward(_ context.Context, record RewardRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rewards = append(l.rewards, record)
	return nil
}

// Decisions returns a copy of the recorded decisions.
func (l *MemoryTaskLog) Decisions() []RoutingDecision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RoutingDecision(nil), l.decisions...)
}

// Rewards returns a copy of the recorded reward records.
func (l *MemoryTaskLog) Rewards() []RewardRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RewardRecord(nil), l.rewards...)
}

const (
	mongoConnectTimeout = 10 * time.Second
	mongoWriteTimeout   = 5 * time.Second
)

// MongoTaskLog persists decisions and rewards to the task_logs collection.
// Each record is one document; the insert either succeeds whole or fails
// whole, matching the all-or-nothing contract.
type MongoTaskLog struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoTaskLog connects to MongoDB and verifies the connection.
func NewMongoTaskLog(ctx context.Context, uri, database, collection string) (*MongoTaskLog, error) {
	if database == "" {
		database = "bhiv_core"
	}
	if collection == "" {
		collection = "task_logs"
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoTaskLog{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// LogDecision writes one routing decision document.
func (l *MongoTaskLog) LogDecision(ctx context.Context, decision RoutingDecision) error {
	writeCtx, cancel := context.WithTimeout(ctx, mongoWriteTimeout)
	defer cancel()

	doc := bson.M{
		"kind":             "routing_decision",
		"task_id":          decision.TaskID,
		"final_agent_id":   decision.FinalAgentID,
		"detected_intent":  string(decision.DetectedIntent),
		"confidence":       decision.Confidence,
		"confidence_level": string(decision.ConfidenceLevel),
		"decision_reason":  string(decision.DecisionReason),
		"timestamp":        decision.Timestamp,
	}

	if _, err := l.collection.InsertOne(writeCtx, doc); err != nil {
		return fmt.Errorf("failed to write routing decision: %w", err)
	}
	return nil
}

// LogReward writes one reward record document.
func (l *MongoTaskLog) LogReward(ctx context.Context, record RewardRecord) error {
	writeCtx, cancel := context.WithTimeout(ctx, mongoWriteTimeout)
	defer cancel()

	doc := bson.M{
		"kind":     "reward",
		"task_id":  record.TaskID,
		"agent_id": record.AgentID,
		"reward":   record.Reward,
		"metrics": bson.M{
			"clarity_score": record.Metrics.ClarityScore,
			"tag_count":     record.Metrics.TagCount,
			"status":        record.Metrics.Status,
			"error":         record.Metrics.Error,
		},
		"timestamp": time.Now().UTC(),
	}

	if _, err := l.collection.InsertOne(writeCtx, doc); err != nil {
		return fmt.Errorf("failed to write reward record: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (l *MongoTaskLog) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

// MultiTaskLog fans writes out to several sinks. A failed sink is reported
// but does not prevent the remaining sinks from receiving the record.
type MultiTaskLog struct {
	sinks []TaskLog
}

// NewMultiTaskLog combines sinks into one TaskLog.
func NewMultiTaskLog(sinks ...TaskLog) *MultiTaskLog {
	return &MultiTaskLog{sinks: sinks}
}

// LogDecision writes to every sink, returning the first error encountered.
func (l *MultiTaskLog) LogDecision(ctx context.Context, decision RoutingDecision) error {
	var firstErr error
	for _, sink := range l.sinks {
		if err := sink.LogDecision(ctx, decision); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LogReward writes to every sink, returning the first error encountered.
func (l *MultiTaskLog) LogReward(ctx context.Context, record RewardRecord) error {
	var firstErr error
	for _, sink := range l.sinks {
		if err := sink.LogReward(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
