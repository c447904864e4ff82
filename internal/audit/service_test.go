package audit_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/protrack-gov/protrack/internal/audit"
)

type stubLister struct {
	entries     []audit.Entry
	lastFilters audit.Filters
}

func (s *stubLister) List(ctx context.Context, filters audit.Filters) ([]audit.Entry, error) {
	s.lastFilters = filters
	limit := filters.Limit
	offset := filters.Offset
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}

func (s *stubLister) Get(ctx context.Context, id int64) (audit.Entry, error) {
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return audit.Entry{}, audit.ErrNotFound
}

func manyEntries(n int) []audit.Entry {
	entries := make([]audit.Entry, n)
	for i := range entries {
		entries[i] = audit.Entry{
			ID:      int64(i + 1),
			Entity:  "project",
			Action:  audit.ActionUpdate,
			Outcome: audit.OutcomeSuccess,
			At:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
	}
	return entries
}

func TestTimelineDetectsNextPage(t *testing.T) {
	repo := &stubLister{entries: manyEntries(25)}
	service := audit.NewService(repo)

	result, err := service.Timeline(context.Background(), audit.TimelineFilters{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page, got %+v", result.Paging)
	}
	if result.Paging.PrevPage != 0 {
		t.Fatalf("first page has no previous, got %+v", result.Paging)
	}
	if repo.lastFilters.Limit != 21 {
		t.Fatalf("expected limit pageSize+1, got %d", repo.lastFilters.Limit)
	}
}

func TestTimelineLastPage(t *testing.T) {
	repo := &stubLister{entries: manyEntries(25)}
	service := audit.NewService(repo)

	result, err := service.Timeline(context.Background(), audit.TimelineFilters{Page: 2, PageSize: 20})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(result.Rows))
	}
	if result.Paging.HasNext {
		t.Fatal("last page must not advertise a next page")
	}
	if result.Paging.PrevPage != 1 {
		t.Fatalf("expected previous page 1, got %+v", result.Paging)
	}
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubLister{entries: manyEntries(120)}
	service := audit.NewService(repo)

	result, err := service.Timeline(context.Background(), audit.TimelineFilters{Page: 1, PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 50 {
		t.Fatalf("page size should clamp to 50, got %d rows", len(result.Rows))
	}
}

func TestExportIsCapped(t *testing.T) {
	repo := &stubLister{entries: manyEntries(3)}
	service := audit.NewService(repo)

	if _, err := service.Export(context.Background(), audit.TimelineFilters{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if repo.lastFilters.Limit != 10000 {
		t.Fatalf("export must carry the cap, got %d", repo.lastFilters.Limit)
	}
	if repo.lastFilters.Offset != 0 {
		t.Fatalf("export does not page, got offset %d", repo.lastFilters.Offset)
	}
}

func TestWriteCSVExcludesSnapshots(t *testing.T) {
	entries := []audit.Entry{{
		ActorName:   "Ada",
		ActorRole:   "contractor",
		Entity:      "project",
		EntityID:    "12",
		Action:      audit.ActionUpdate,
		Outcome:     audit.OutcomeSuccess,
		Description: "updated project LAG-001",
		Before:      map[string]any{"secret": "before"},
		At:          time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
	}}

	data, err := audit.WriteCSV(entries)
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "occurred_at,actor,role,action,outcome,entity,entity_id,description,ip") {
		t.Fatalf("missing header: %s", out)
	}
	if !strings.Contains(out, "2026-08-15T09:30:00Z,Ada,contractor,update,success,project,12,updated project LAG-001,") {
		t.Fatalf("missing row: %s", out)
	}
	if strings.Contains(out, "before") {
		t.Fatal("snapshots must not leak into the export")
	}
}
