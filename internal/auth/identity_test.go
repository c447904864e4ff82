package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/protrack-gov/protrack/internal/auth"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/shared"
)

func requestWithSession(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/projects", nil)
	sess := &shared.Session{}
	sess.SetUser(userID)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestResolveActiveUser(t *testing.T) {
	repo := newStubRepo()
	repo.add(&auth.User{
		ID:       12,
		Email:    "ngozi@protrack.gov.ng",
		Name:     "Ngozi",
		Role:     authz.RoleProjectManager,
		IsActive: true,
	})
	resolver := auth.NewIdentityResolver(repo)

	r := requestWithSession("12")
	identity, err := resolver.Resolve(r.Context(), r)
	if err != nil {
		t.Fatalf("expected identity, got %v", err)
	}
	if identity.ID != 12 || identity.Role != authz.RoleProjectManager {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestResolveWithoutSession(t *testing.T) {
	resolver := auth.NewIdentityResolver(newStubRepo())

	r := httptest.NewRequest(http.MethodGet, "/projects", nil)
	if _, err := resolver.Resolve(r.Context(), r); !errors.Is(err, authz.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestResolveFailuresCollapse(t *testing.T) {
	repo := newStubRepo()
	repo.add(&auth.User{ID: 12, IsActive: false})
	resolver := auth.NewIdentityResolver(repo)

	cases := []struct {
		name   string
		userID string
	}{
		{name: "empty user id", userID: ""},
		{name: "malformed user id", userID: "not-a-number"},
		{name: "unknown user", userID: "999"},
		{name: "deactivated user", userID: "12"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := requestWithSession(tc.userID)
			if _, err := resolver.Resolve(r.Context(), r); !errors.Is(err, authz.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}
