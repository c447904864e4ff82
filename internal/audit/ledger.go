package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Failure kinds surfaced to operational logs and metrics, never to callers.
const (
	FailureStorageUnavailable = "storage_unavailable"
	FailureInvalidEntry       = "invalid_entry"
	FailureTimeout            = "timeout"
)

const appendTimeout = 5 * time.Second

// Appender persists one entry. Implemented by the PostgreSQL repository for
// synchronous writes and by the job queue enqueuer for offloaded writes.
type Appender interface {
	Append(ctx context.Context, entry Entry) error
}

// Metrics receives operational signals about failed audit writes.
type Metrics interface {
	AuditWriteFailure(kind string)
}

// Ledger is the single entry point for audit capture. Record never reports
// failure to its caller: losing an audit entry is preferable to failing a
// user-visible operation that already succeeded, so every failure is
// classified, logged, counted, and swallowed here rather than at call sites.
type Ledger struct {
	appender Appender
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
}

// NewLedger constructs a Ledger. metrics may be nil.
func NewLedger(appender Appender, logger *slog.Logger, metrics Metrics) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{appender: appender, logger: logger, metrics: metrics, now: time.Now}
}

// Record captures the entry. The timestamp is assigned here at write time.
// The write runs detached from the request's cancellation under its own
// deadline, so a client disconnect still gets a best-effort entry while a
// hung store cannot hold the goroutine indefinitely.
func (l *Ledger) Record(ctx context.Context, entry Entry) {
	if l == nil || l.appender == nil {
		return
	}
	if entry.At.IsZero() {
		entry.At = l.now().UTC()
	}
	if err := validateEntry(entry); err != nil {
		l.fail(FailureInvalidEntry, entry, err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()
	if err := l.appender.Append(writeCtx, entry); err != nil {
		l.fail(classifyFailure(err), entry, err)
	}
}

func (l *Ledger) fail(kind string, entry Entry, err error) {
	l.logger.Error("audit append failed",
		slog.String("failure", kind),
		slog.String("entity", entry.Entity),
		slog.String("action", string(entry.Action)),
		slog.Int64("actor_id", entry.ActorID),
		slog.Any("error", err))
	if l.metrics != nil {
		l.metrics.AuditWriteFailure(kind)
	}
}

func validateEntry(entry Entry) error {
	if entry.Entity == "" {
		return fmt.Errorf("audit: entry requires entity")
	}
	if !ValidActionKind(entry.Action) {
		return fmt.Errorf("audit: unknown action kind %q", entry.Action)
	}
	if !ValidOutcome(entry.Outcome) {
		return fmt.Errorf("audit: unknown outcome %q", entry.Outcome)
	}
	return nil
}

func classifyFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTimeout
	}
	return FailureStorageUnavailable
}
