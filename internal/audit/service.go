package audit

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	exportCap       = 10000
)

// TimelineFilters carries the query parameters for the audit timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Query    string
	Page     int
	PageSize int
}

// PagingInfo describes the window a Timeline call returned.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result bundles timeline rows with paging metadata.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}

// Lister is the read contract the query service needs.
type Lister interface {
	List(ctx context.Context, filters Filters) ([]Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Lister
}

// NewService constructs the query service.
func NewService(repo Lister) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of entries, newest first. It fetches one row
// beyond the page to learn whether a next page exists.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.List(ctx, Filters{
		From:   filters.From,
		To:     filters.To,
		Actor:  filters.Actor,
		Entity: filters.Entity,
		Action: filters.Action,
		Query:  filters.Query,
		Limit:  pageSize + 1,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Detail returns one entry including its snapshots.
func (s *Service) Detail(ctx context.Context, id int64) (Entry, error) {
	if s.repo == nil {
		return Entry{}, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Get(ctx, id)
}

// Export returns all matching entries without paging, capped so a broad
// filter cannot stream the whole table.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.List(ctx, Filters{
		From:   filters.From,
		To:     filters.To,
		Actor:  filters.Actor,
		Entity: filters.Entity,
		Action: filters.Action,
		Query:  filters.Query,
		Limit:  exportCap,
	})
}
