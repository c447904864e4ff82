package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/protrack-gov/protrack/internal/audit"
	_ "github.com/protrack-gov/protrack/testing"
)

type stubAppender struct {
	entries     []audit.Entry
	err         error
	ctxErr      error
	hadDeadline bool
	deadline    time.Time
}

func (s *stubAppender) Append(ctx context.Context, entry audit.Entry) error {
	s.ctxErr = ctx.Err()
	s.deadline, s.hadDeadline = ctx.Deadline()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type countingMetrics struct {
	kinds map[string]int
}

func (c *countingMetrics) AuditWriteFailure(kind string) {
	if c.kinds == nil {
		c.kinds = make(map[string]int)
	}
	c.kinds[kind]++
}

func validEntry() audit.Entry {
	return audit.Entry{
		ActorID: 1,
		Entity:  "project",
		Action:  audit.ActionUpdate,
		Outcome: audit.OutcomeSuccess,
	}
}

func TestRecordAppendsWithTimestamp(t *testing.T) {
	appender := &stubAppender{}
	ledger := audit.NewLedger(appender, nil, nil)

	ledger.Record(context.Background(), validEntry())

	if len(appender.entries) != 1 {
		t.Fatalf("expected one stored entry, got %d", len(appender.entries))
	}
	if appender.entries[0].At.IsZero() {
		t.Fatal("ledger must assign the write timestamp")
	}
}

func TestRecordNeverFailsCaller(t *testing.T) {
	metrics := &countingMetrics{}
	ledger := audit.NewLedger(&stubAppender{err: errors.New("connection refused")}, nil, metrics)

	// Record has no error return; the assertion is that it does not panic
	// and that the failure is classified and counted.
	ledger.Record(context.Background(), validEntry())

	if metrics.kinds[audit.FailureStorageUnavailable] != 1 {
		t.Fatalf("expected storage_unavailable failure, got %v", metrics.kinds)
	}
}

func TestRecordClassifiesTimeout(t *testing.T) {
	metrics := &countingMetrics{}
	ledger := audit.NewLedger(&stubAppender{err: context.DeadlineExceeded}, nil, metrics)

	ledger.Record(context.Background(), validEntry())

	if metrics.kinds[audit.FailureTimeout] != 1 {
		t.Fatalf("expected timeout failure, got %v", metrics.kinds)
	}
}

func TestRecordRejectsInvalidEntryWithoutWrite(t *testing.T) {
	appender := &stubAppender{}
	metrics := &countingMetrics{}
	ledger := audit.NewLedger(appender, nil, metrics)

	ledger.Record(context.Background(), audit.Entry{Action: audit.ActionUpdate, Outcome: audit.OutcomeSuccess})
	ledger.Record(context.Background(), audit.Entry{Entity: "project", Action: "teleport", Outcome: audit.OutcomeSuccess})
	ledger.Record(context.Background(), audit.Entry{Entity: "project", Action: audit.ActionUpdate, Outcome: "mixed"})

	if len(appender.entries) != 0 {
		t.Fatal("invalid entries must not reach storage")
	}
	if metrics.kinds[audit.FailureInvalidEntry] != 3 {
		t.Fatalf("expected 3 invalid_entry failures, got %v", metrics.kinds)
	}
}

func TestRecordSurvivesCancelledRequestContext(t *testing.T) {
	appender := &stubAppender{}
	ledger := audit.NewLedger(appender, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger.Record(ctx, validEntry())

	if len(appender.entries) != 1 {
		t.Fatal("write must proceed after the request context is cancelled")
	}
	if appender.ctxErr != nil {
		t.Fatalf("appender must receive a live context, got %v", appender.ctxErr)
	}
	if !appender.hadDeadline {
		t.Fatal("detached write must still carry its own deadline")
	}
	if time.Until(appender.deadline) > 6*time.Second {
		t.Fatalf("write deadline too far out: %v", appender.deadline)
	}
}
