package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/protrack-gov/protrack/internal/auth"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/shared"
	_ "github.com/protrack-gov/protrack/testing"
)

type stubRepo struct {
	users    map[string]*auth.User
	byID     map[int64]*auth.User
	sessions map[string]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:    map[string]*auth.User{},
		byID:     map[int64]*auth.User{},
		sessions: map[string]int64{},
	}
}

func (r *stubRepo) add(user *auth.User) {
	r.users[user.Email] = user
	r.byID[user.ID] = user
}

func (r *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = userID
	return nil
}

func (r *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newStubRepo()
	repo.add(&auth.User{
		ID:           5,
		Email:        "ada@protrack.gov.ng",
		Name:         "Ada",
		PasswordHash: hashPassword(t, "s3cret-pass"),
		Role:         authz.RoleContractor,
		IsActive:     true,
	})
	service := auth.NewService(repo)

	user, err := service.Authenticate(context.Background(), "ada@protrack.gov.ng", "s3cret-pass")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if user.ID != 5 {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newStubRepo()
	repo.add(&auth.User{
		ID:           5,
		Email:        "ada@protrack.gov.ng",
		PasswordHash: hashPassword(t, "s3cret-pass"),
		IsActive:     true,
	})
	service := auth.NewService(repo)

	if _, err := service.Authenticate(context.Background(), "ada@protrack.gov.ng", "wrong"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	service := auth.NewService(newStubRepo())

	if _, err := service.Authenticate(context.Background(), "nobody@protrack.gov.ng", "whatever"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateInactiveAccountLooksLikeBadCredentials(t *testing.T) {
	repo := newStubRepo()
	repo.add(&auth.User{
		ID:           5,
		Email:        "ada@protrack.gov.ng",
		PasswordHash: hashPassword(t, "s3cret-pass"),
		IsActive:     false,
	})
	service := auth.NewService(repo)

	// Correct password on a deactivated account must be indistinguishable
	// from a wrong password.
	if _, err := service.Authenticate(context.Background(), "ada@protrack.gov.ng", "s3cret-pass"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
