package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/protrack-gov/protrack/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditAppend persists one audit ledger entry.
	TaskAuditAppend = "audit:append"
	// TaskAuditRetention purges ledger entries past the retention window.
	TaskAuditRetention = "audit:retention"
)

// RetentionPayload carries the retention window for a purge run.
type RetentionPayload struct {
	Days int `json:"days"`
}

// NewAuditAppendTask constructs an Asynq task from a ledger entry.
func NewAuditAppendTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditAppend, data, asynq.MaxRetry(5)), nil
}

// NewAuditRetentionTask constructs the scheduled purge task.
func NewAuditRetentionTask(days int) (*asynq.Task, error) {
	data, err := json.Marshal(RetentionPayload{Days: days})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// Append implements the audit appender contract by enqueueing the entry.
// The ledger treats an enqueue failure like any other storage failure.
func (c *Client) Append(ctx context.Context, entry audit.Entry) error {
	task, err := NewAuditAppendTask(entry)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ audit.Appender = (*Client)(nil)
