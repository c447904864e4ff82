package authz_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/protrack-gov/protrack/internal/authz"
)

type stubIdentities struct {
	identity authz.Identity
	err      error
}

func (s *stubIdentities) Resolve(ctx context.Context, r *http.Request) (authz.Identity, error) {
	if s.err != nil {
		return authz.Identity{}, s.err
	}
	return s.identity, nil
}

func newGate(identities authz.IdentityResolver, policies map[authz.Role]map[authz.CapabilityKey]bool, overrides map[int64]map[authz.CapabilityKey]bool) *authz.Gate {
	resolver, _, _ := newResolver(policies, overrides)
	return authz.NewGate(resolver, identities, nil)
}

func serveThrough(gate *authz.Gate, keys ...authz.CapabilityKey) (*httptest.ResponseRecorder, bool) {
	reached := false
	handler := gate.RequireAny(keys...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return rr, reached
}

func TestGateUnauthenticatedShortCircuits(t *testing.T) {
	gate := newGate(&stubIdentities{err: authz.ErrUnauthenticated}, nil, nil)

	rr, reached := serveThrough(gate, authz.CapViewProject)

	if reached {
		t.Fatal("handler must not run for unauthenticated requests")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	// The 401 body stays generic: no capability names, no reason detail.
	if _, ok := payload["required_capabilities"]; ok {
		t.Fatal("401 response must not name capabilities")
	}
}

func TestGateIdentityStoreFailureAlsoUnauthenticated(t *testing.T) {
	gate := newGate(&stubIdentities{err: errors.New("session store down")}, nil, nil)

	rr, reached := serveThrough(gate, authz.CapViewProject)

	if reached {
		t.Fatal("handler must not run when identity cannot be resolved")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGateForbiddenNamesRequiredCapabilities(t *testing.T) {
	gate := newGate(&stubIdentities{identity: contractor}, nil, nil)

	rr, reached := serveThrough(gate, authz.CapApproveProject, authz.CapDeleteProject)

	if reached {
		t.Fatal("handler must not run for forbidden requests")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	var payload struct {
		RequiredCapabilities []string `json:"required_capabilities"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(payload.RequiredCapabilities) != 2 {
		t.Fatalf("expected both required capabilities, got %v", payload.RequiredCapabilities)
	}
}

func TestGateAllowsAndInstallsIdentity(t *testing.T) {
	policies := map[authz.Role]map[authz.CapabilityKey]bool{
		authz.RoleContractor: {authz.CapViewProject: true},
	}
	gate := newGate(&stubIdentities{identity: contractor}, policies, nil)

	var got authz.Identity
	handler := gate.RequireAny(authz.CapViewProject)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = authz.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rr.Code)
	}
	if got.ID != contractor.ID {
		t.Fatalf("identity not installed in context: %+v", got)
	}
}

func TestGateResolutionFailureDenies(t *testing.T) {
	resolver := authz.NewResolver(
		&stubPolicyStore{err: errors.New("query timeout")},
		&stubOverrideStore{},
	)
	gate := authz.NewGate(resolver, &stubIdentities{identity: contractor}, nil)

	rr, reached := serveThrough(gate, authz.CapViewProject)

	if reached {
		t.Fatal("handler must not run when resolution fails")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("store failure should deny with 403, got %d", rr.Code)
	}
}

func TestGateNoKeysRequiresOnlyIdentity(t *testing.T) {
	gate := newGate(&stubIdentities{identity: contractor}, nil, nil)

	rr, reached := serveThrough(gate)

	if !reached || rr.Code != http.StatusNoContent {
		t.Fatalf("identity-only gate should pass, got %d", rr.Code)
	}
}
