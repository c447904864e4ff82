package users_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/shared"
	"github.com/protrack-gov/protrack/internal/users"
	_ "github.com/protrack-gov/protrack/testing"
)

type stubRepo struct {
	accounts map[int64]users.User
	hashes   map[int64]string
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{accounts: map[int64]users.User{}, hashes: map[int64]string{}, nextID: 1}
}

func (r *stubRepo) ListUsers(ctx context.Context) ([]users.User, error) {
	out := make([]users.User, 0, len(r.accounts))
	for _, u := range r.accounts {
		out = append(out, u)
	}
	return out, nil
}

func (r *stubRepo) GetUser(ctx context.Context, id int64) (users.User, error) {
	u, ok := r.accounts[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *stubRepo) CreateUser(ctx context.Context, email, name, passwordHash string, role authz.Role) (users.User, error) {
	u := users.User{ID: r.nextID, Email: email, Name: name, Role: role, IsActive: true}
	r.accounts[u.ID] = u
	r.hashes[u.ID] = passwordHash
	r.nextID++
	return u, nil
}

func (r *stubRepo) UpdateUser(ctx context.Context, id int64, name string, role authz.Role, isActive bool) (users.User, error) {
	u, ok := r.accounts[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	u.Name = name
	u.Role = role
	u.IsActive = isActive
	r.accounts[id] = u
	return u, nil
}

func (r *stubRepo) DeleteUser(ctx context.Context, id int64) error {
	delete(r.accounts, id)
	return nil
}

type stubRecorder struct {
	entries []audit.Entry
}

func (s *stubRecorder) Record(ctx context.Context, entry audit.Entry) {
	s.entries = append(s.entries, entry)
}

var admin = authz.Identity{ID: 1, Name: "Root", Role: authz.RoleAdministrator}

func TestCreateUserNormalizesAndHashes(t *testing.T) {
	repo := newStubRepo()
	recorder := &stubRecorder{}
	service := users.NewService(repo, recorder)

	user, err := service.CreateUser(context.Background(), admin, users.ClientMeta{IP: "10.0.0.9"},
		"  Ada@ProTrack.gov.NG ", " Ada ", "s3cret-pass", authz.RoleContractor)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "ada@protrack.gov.ng" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Name != "Ada" {
		t.Fatalf("name not trimmed: %q", user.Name)
	}
	hash := repo.hashes[user.ID]
	if hash == "s3cret-pass" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	repo := newStubRepo()
	service := users.NewService(repo, &stubRecorder{})

	_, err := service.CreateUser(context.Background(), admin, users.ClientMeta{},
		"ada@protrack.gov.ng", "Ada", "s3cret-pass", authz.Role("astronaut"))
	if !errors.Is(err, authz.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if len(repo.accounts) != 0 {
		t.Fatal("account must not be created for an unknown role")
	}
}

func TestCreateUserAuditsWithoutBeforeSnapshot(t *testing.T) {
	recorder := &stubRecorder{}
	service := users.NewService(newStubRepo(), recorder)

	if _, err := service.CreateUser(context.Background(), admin, users.ClientMeta{IP: "10.0.0.9", UserAgent: "curl"},
		"ada@protrack.gov.ng", "Ada", "s3cret-pass", authz.RoleContractor); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Action != audit.ActionCreate || entry.Entity != "user" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Before != nil {
		t.Fatal("creation must not carry a before snapshot")
	}
	if entry.After["email"] != "ada@protrack.gov.ng" {
		t.Fatalf("after snapshot missing email: %v", entry.After)
	}
	if entry.ActorID != admin.ID || entry.IP != "10.0.0.9" {
		t.Fatalf("actor metadata not captured: %+v", entry)
	}
}

func TestUpdateUserAuditsBothSnapshots(t *testing.T) {
	repo := newStubRepo()
	recorder := &stubRecorder{}
	service := users.NewService(repo, recorder)

	created, err := service.CreateUser(context.Background(), admin, users.ClientMeta{},
		"ada@protrack.gov.ng", "Ada", "s3cret-pass", authz.RoleContractor)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	recorder.entries = nil

	if _, err := service.UpdateUser(context.Background(), admin, users.ClientMeta{},
		created.ID, "Ada Obi", authz.RoleProjectManager, true); err != nil {
		t.Fatalf("update user: %v", err)
	}
	if len(recorder.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorder.entries))
	}
	entry := recorder.entries[0]
	if entry.Before["name"] != "Ada" || entry.After["name"] != "Ada Obi" {
		t.Fatalf("snapshots should show the name change: before=%v after=%v", entry.Before, entry.After)
	}
	if entry.Before["role"] != "contractor" || entry.After["role"] != "project_manager" {
		t.Fatalf("snapshots should show the role change: before=%v after=%v", entry.Before, entry.After)
	}
}

func TestDeleteUserAuditsBeforeOnly(t *testing.T) {
	repo := newStubRepo()
	recorder := &stubRecorder{}
	service := users.NewService(repo, recorder)

	created, err := service.CreateUser(context.Background(), admin, users.ClientMeta{},
		"ada@protrack.gov.ng", "Ada", "s3cret-pass", authz.RoleContractor)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	recorder.entries = nil

	if err := service.DeleteUser(context.Background(), admin, users.ClientMeta{}, created.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, ok := repo.accounts[created.ID]; ok {
		t.Fatal("account still present after delete")
	}
	entry := recorder.entries[0]
	if entry.Action != audit.ActionDelete {
		t.Fatalf("unexpected action: %s", entry.Action)
	}
	if entry.Before == nil || entry.After != nil {
		t.Fatalf("deletion carries before only: before=%v after=%v", entry.Before, entry.After)
	}
}
