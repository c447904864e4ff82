package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/protrack-gov/protrack/internal/audit"
	jobmetrics "github.com/protrack-gov/protrack/internal/jobs"
)

// AuditStore is the repository surface the worker-side handlers need.
type AuditStore interface {
	Append(ctx context.Context, entry audit.Entry) error
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// AuditTaskHandlers processes audit queue tasks against PostgreSQL.
type AuditTaskHandlers struct {
	store   AuditStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAuditTaskHandlers constructs the handler set.
func NewAuditTaskHandlers(store AuditStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditTaskHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditTaskHandlers{store: store, logger: logger, metrics: metrics}
}

// HandleAppend persists a queued ledger entry. A malformed payload is
// dropped rather than retried; storage errors go back to Asynq for retry.
func (h *AuditTaskHandlers) HandleAppend(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("audit_append")
	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		h.logger.Error("audit append task malformed", slog.Any("error", err))
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if err := h.store.Append(ctx, entry); err != nil {
		h.logger.Warn("audit append task failed",
			slog.String("entity", entry.Entity),
			slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}

// HandleRetention purges entries older than the configured window.
func (h *AuditTaskHandlers) HandleRetention(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track("audit_retention")
	var payload RetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if payload.Days < 1 {
		_ = tracker.End(nil)
		return asynq.SkipRetry
	}
	cutoff := time.Now().AddDate(0, 0, -payload.Days)
	purged, err := h.store.Purge(ctx, cutoff)
	if err != nil {
		return tracker.End(err)
	}
	h.logger.Info("audit retention run",
		slog.Int64("purged", purged),
		slog.Time("cutoff", cutoff))
	return tracker.End(nil)
}
