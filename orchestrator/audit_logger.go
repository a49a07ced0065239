// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"bhiv/core/shared/logger"
)

const (
	auditQueueSize     = 10000
	auditBatchSize     = 100
	auditFlushInterval = 5 * time.Second
)

// AuditLogger keeps a durable audit trail of routing decisions and reward
// records in Postgres. Entries are queued and written in batches so the
// request path never blocks on the database; on shutdown the queue is
// drained before the connection closes.
type AuditLogger struct {
	db           *sql.DB
	queue        chan auditEntry
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdown     chan struct{}
	log          *logger.Logger
}

type auditEntry struct {
	decision *RoutingDecision
	reward   *RewardRecord
}

// NewAuditLogger opens the database, ensures the audit tables exist, and
// starts the background batch writer.
func NewAuditLogger(databaseURL string) (*AuditLogger, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := createAuditTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit tables: %w", err)
	}

	l := &AuditLogger{
		db:       db,
		queue:    make(chan auditEntry, auditQueueSize),
		shutdown: make(chan struct{}),
		log:      logger.New("audit_logger"),
	}

	l.wg.Add(1)
	go l.processQueue()

	return l, nil
}

// newAuditLoggerWithDB wires an existing database handle; used by tests.
func newAuditLoggerWithDB(db *sql.DB) *AuditLogger {
	l := &AuditLogger{
		db:       db,
		queue:    make(chan auditEntry, auditQueueSize),
		shutdown: make(chan struct{}),
		log:      logger.New("audit_logger"),
	}
	l.wg.Add(1)
	go l.processQueue()
	return l
}

func createAuditTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS routing_decisions (
		id BIGSERIAL PRIMARY KEY,
		task_id TEXT NOT NULL,
		final_agent_id TEXT NOT NULL,
		detected_intent TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		confidence_level TEXT NOT NULL,
		decision_reason TEXT NOT NULL,
		decided_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_routing_decisions_task ON routing_decisions(task_id);

	CREATE TABLE IF NOT EXISTS reward_records (
		id BIGSERIAL PRIMARY KEY,
		task_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		reward DOUBLE PRECISION NOT NULL,
		clarity_score DOUBLE PRECISION NOT NULL,
		tag_count INT NOT NULL,
		status INT NOT NULL,
		error TEXT,
		recorded_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reward_records_agent ON reward_records(agent_id);
	`
	_, err := db.Exec(schema)
	return err
}

// LogDecision enqueues a routing decision for the batch writer. A full
// queue drops the entry rather than blocking the request path.
func (l *AuditLogger) LogDecision(_ context.Context, decision RoutingDecision) error {
	select {
	case l.queue <- auditEntry{decision: &decision}:
		return nil
	default:
		l.log.Warn(decision.TaskID, "audit queue full, dropping routing decision", nil)
		return fmt.Errorf("audit queue full")
	}
}

// LogReward enqueues a reward record for the batch writer.
func (l *AuditLogger) LogReward(_ context.Context, record RewardRecord) error {
	select {
	case l.queue <- auditEntry{reward: &record}:
		return nil
	default:
		l.log.Warn(record.TaskID, "audit queue full, dropping reward record", nil)
		return fmt.Errorf("audit queue full")
	}
}

// processQueue batches queued entries and flushes them on size or interval.
func (l *AuditLogger) processQueue() {
	defer l.wg.Done()

	batch := make([]auditEntry, 0, auditBatchSize)
	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := l.writeBatch(batch); err != nil {
			l.log.ErrorWithErr("", "audit batch write failed", err, map[string]interface{}{
				"batch_size": len(batch),
			})
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-l.queue:
			batch = append(batch, entry)
			if len(batch) >= auditBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-l.shutdown:
			// Drain whatever is left before exiting.
			for {
				select {
				case entry := <-l.queue:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// writeBatch inserts a batch inside one transaction.
func (l *AuditLogger) writeBatch(batch []auditEntry) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer tx.Rollback()

	decisionStmt, err := tx.Prepare(`
		INSERT INTO routing_decisions
		(task_id, final_agent_id, detected_intent, confidence, confidence_level, decision_reason, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("failed to prepare decision insert: %w", err)
	}
	defer decisionStmt.Close()

	rewardStmt, err := tx.Prepare(`
		INSERT INTO reward_records
		(task_id, agent_id, reward, clarity_score, tag_count, status, error, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare reward insert: %w", err)
	}
	defer rewardStmt.Close()

	for _, entry := range batch {
		switch {
		case entry.decision != nil:
			d := entry.decision
			if _, err := decisionStmt.Exec(d.TaskID, d.FinalAgentID, string(d.DetectedIntent),
				d.Confidence, string(d.ConfidenceLevel), string(d.DecisionReason), d.Timestamp); err != nil {
				return fmt.Errorf("failed to insert routing decision: %w", err)
			}
		case entry.reward != nil:
			r := entry.reward
			if _, err := rewardStmt.Exec(r.TaskID, r.AgentID, r.Reward, r.Metrics.ClarityScore,
				r.Metrics.TagCount, r.Metrics.Status, r.Metrics.Error, time.Now().UTC()); err != nil {
				return fmt.Errorf("failed to insert reward record: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Close drains the queue and releases the database connection.
func (l *AuditLogger) Close() error {
	l.shutdownOnce.Do(func() {
		close(l.shutdown)
	})
	l.wg.Wait()
	return l.db.Close()
}
