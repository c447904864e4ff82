package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/authz"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string, role authz.Role) (User, error)
	UpdateUser(ctx context.Context, id int64, name string, role authz.Role, isActive bool) (User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Recorder captures audit entries for account mutations.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// ClientMeta carries per-request client metadata into the service layer for
// audit capture.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Service handles user account business logic. Every mutation is audited
// with before/after snapshots; the audit write never affects the result.
type Service struct {
	repo   RepositoryPort
	ledger Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, ledger Recorder) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser creates an account and audits the creation. A creation has no
// before snapshot.
func (s *Service) CreateUser(ctx context.Context, actor authz.Identity, meta ClientMeta, email, name, password string, role authz.Role) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if !authz.ValidRole(role) {
		return User{}, fmt.Errorf("%w: %q", authz.ErrUnknownRole, role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, email, name, string(hash), role)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, meta, audit.ActionCreate, user.ID, nil, audit.Snapshot(user), "created user "+user.Email)
	return user, nil
}

// UpdateUser updates account fields and audits the change with before and
// after snapshots.
func (s *Service) UpdateUser(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64, name string, role authz.Role, isActive bool) (User, error) {
	if !authz.ValidRole(role) {
		return User{}, fmt.Errorf("%w: %q", authz.ErrUnknownRole, role)
	}
	before, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.UpdateUser(ctx, id, strings.TrimSpace(name), role, isActive)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, meta, audit.ActionUpdate, user.ID, audit.Snapshot(before), audit.Snapshot(user), "updated user "+user.Email)
	return user, nil
}

// DeleteUser removes an account. A deletion has no after snapshot.
func (s *Service) DeleteUser(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64) error {
	before, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, meta, audit.ActionDelete, id, audit.Snapshot(before), nil, "deleted user "+before.Email)
	return nil
}

func (s *Service) record(ctx context.Context, actor authz.Identity, meta ClientMeta, action audit.ActionKind, entityID int64, before, after map[string]any, description string) {
	if s.ledger == nil {
		return
	}
	s.ledger.Record(ctx, audit.Entry{
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ActorRole:   string(actor.Role),
		Entity:      "user",
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
