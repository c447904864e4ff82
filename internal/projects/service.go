package projects

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/authz"
)

// RepositoryPort defines data access methods for projects.
type RepositoryPort interface {
	List(ctx context.Context, f Filters) ([]Project, error)
	Get(ctx context.Context, id int64) (Project, error)
	Create(ctx context.Context, p Project) (Project, error)
	Update(ctx context.Context, p Project) (Project, error)
	SetStatus(ctx context.Context, id int64, status Status) (Project, error)
	Delete(ctx context.Context, id int64) error
}

// Recorder captures audit entries for project mutations.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// ClientMeta carries request client metadata for audit capture.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Draft holds the editable fields of a project.
type Draft struct {
	Code         string
	Title        string
	Description  string
	MDA          string
	ContractorID int64
	BudgetNGN    int64
	StartDate    string
	EndDate      string
}

// Service implements the project workflow. Contractors see and edit only
// their own projects; approvals and rejections belong to reviewers. Every
// mutation is audited and the audit write never affects the result.
type Service struct {
	repo   RepositoryPort
	ledger Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, ledger Recorder) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// List returns projects visible to the actor. Contractors are scoped to
// their own projects regardless of the requested filter.
func (s *Service) List(ctx context.Context, actor authz.Identity, f Filters) ([]Project, error) {
	if actor.Role == authz.RoleContractor {
		f.ContractorID = actor.ID
	}
	return s.repo.List(ctx, f)
}

// Get returns one project, enforcing contractor scoping.
func (s *Service) Get(ctx context.Context, actor authz.Identity, id int64) (Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if actor.Role == authz.RoleContractor && p.ContractorID != actor.ID {
		return Project{}, ErrNotOwner
	}
	return p, nil
}

// Create registers a new project in draft status.
func (s *Service) Create(ctx context.Context, actor authz.Identity, meta ClientMeta, d Draft) (Project, error) {
	p, err := draftToProject(d)
	if err != nil {
		return Project{}, err
	}
	p.Status = StatusDraft
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Project{}, err
	}
	s.record(ctx, actor, meta, audit.ActionCreate, created.ID, nil, audit.Snapshot(created), "created project "+created.Code)
	return created, nil
}

// Update edits a project. A rejected project edited by its assigned
// contractor re-enters review as submitted; the caller does not request
// that transition, the workflow applies it.
func (s *Service) Update(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64, d Draft) (Project, error) {
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return Project{}, err
	}
	p, err := draftToProject(d)
	if err != nil {
		return Project{}, err
	}
	p.ID = before.ID
	p.Code = before.Code
	p.ContractorID = before.ContractorID
	p.Status = before.Status
	if before.Status == StatusRejected && actor.Role == authz.RoleContractor {
		p.Status = StatusSubmitted
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Project{}, err
	}
	s.record(ctx, actor, meta, audit.ActionUpdate, updated.ID, audit.Snapshot(before), audit.Snapshot(updated), "updated project "+updated.Code)
	return updated, nil
}

// Submit moves a draft into review.
func (s *Service) Submit(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64) (Project, error) {
	return s.transition(ctx, actor, meta, id, StatusSubmitted, "submitted project for review")
}

// Approve accepts a submitted project.
func (s *Service) Approve(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64) (Project, error) {
	return s.transition(ctx, actor, meta, id, StatusApproved, "approved project")
}

// Reject returns a submitted project to its contractor.
func (s *Service) Reject(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64) (Project, error) {
	return s.transition(ctx, actor, meta, id, StatusRejected, "rejected project")
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64) error {
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, meta, audit.ActionDelete, id, audit.Snapshot(before), nil, "deleted project "+before.Code)
	return nil
}

func (s *Service) transition(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64, to Status, description string) (Project, error) {
	before, err := s.Get(ctx, actor, id)
	if err != nil {
		return Project{}, err
	}
	if !canTransition(before.Status, to) {
		return Project{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, before.Status, to)
	}
	updated, err := s.repo.SetStatus(ctx, id, to)
	if err != nil {
		return Project{}, err
	}
	s.record(ctx, actor, meta, audit.ActionUpdate, updated.ID, audit.Snapshot(before), audit.Snapshot(updated), description)
	return updated, nil
}

func (s *Service) record(ctx context.Context, actor authz.Identity, meta ClientMeta, action audit.ActionKind, entityID int64, before, after map[string]any, description string) {
	if s.ledger == nil {
		return
	}
	s.ledger.Record(ctx, audit.Entry{
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorRole:   string(actor.Role),
		Entity:      "project",
		EntityID:    strconv.FormatInt(entityID, 10),
		Action:      action,
		Outcome:     audit.OutcomeSuccess,
		Description: description,
		Before:      before,
		After:       after,
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
	})
}

func draftToProject(d Draft) (Project, error) {
	p := Project{
		Code:         strings.TrimSpace(strings.ToUpper(d.Code)),
		Title:        strings.TrimSpace(d.Title),
		Description:  strings.TrimSpace(d.Description),
		MDA:          strings.TrimSpace(d.MDA),
		ContractorID: d.ContractorID,
		BudgetNGN:    d.BudgetNGN,
	}
	var err error
	if p.StartDate, err = parseDate(d.StartDate); err != nil {
		return Project{}, fmt.Errorf("projects: start_date: %w", err)
	}
	if p.EndDate, err = parseDate(d.EndDate); err != nil {
		return Project{}, fmt.Errorf("projects: end_date: %w", err)
	}
	if !p.EndDate.IsZero() && !p.StartDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return Project{}, fmt.Errorf("projects: end_date precedes start_date")
	}
	return p, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
