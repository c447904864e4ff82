package authz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/authz"
)

// validatingPolicyStore mimics the PostgreSQL store: writes are checked
// against the registry and rejected whole, reads are total over it.
type validatingPolicyStore struct {
	registry *authz.Registry
	grants   map[authz.Role]map[authz.CapabilityKey]bool
	sets     int
}

func (s *validatingPolicyStore) Get(ctx context.Context, role authz.Role) (map[authz.CapabilityKey]bool, error) {
	if !authz.ValidRole(role) {
		return nil, authz.ErrUnknownRole
	}
	full := make(map[authz.CapabilityKey]bool, len(s.registry.AllKeys()))
	for _, key := range s.registry.AllKeys() {
		full[key] = s.grants[role][key]
	}
	return full, nil
}

func (s *validatingPolicyStore) Set(ctx context.Context, role authz.Role, grants map[authz.CapabilityKey]bool) error {
	keys := make([]authz.CapabilityKey, 0, len(grants))
	for key := range grants {
		keys = append(keys, key)
	}
	if err := s.registry.ValidateKeys(keys); err != nil {
		return err
	}
	if s.grants == nil {
		s.grants = make(map[authz.Role]map[authz.CapabilityKey]bool)
	}
	s.grants[role] = grants
	s.sets++
	return nil
}

type validatingOverrideStore struct {
	registry  *authz.Registry
	overrides map[int64]map[authz.CapabilityKey]bool
	sets      int
}

func (s *validatingOverrideStore) Get(ctx context.Context, userID int64) (map[authz.CapabilityKey]bool, error) {
	if _, ok := s.overrides[userID]; !ok {
		return nil, authz.ErrUnknownUser
	}
	return s.overrides[userID], nil
}

func (s *validatingOverrideStore) Set(ctx context.Context, userID int64, overrides map[authz.CapabilityKey]bool) error {
	keys := make([]authz.CapabilityKey, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	if err := s.registry.ValidateKeys(keys); err != nil {
		return err
	}
	if _, ok := s.overrides[userID]; !ok {
		return authz.ErrUnknownUser
	}
	s.overrides[userID] = overrides
	s.sets++
	return nil
}

type stubDirectory struct {
	identities map[int64]authz.Identity
}

func (s *stubDirectory) Identity(ctx context.Context, userID int64) (authz.Identity, error) {
	identity, ok := s.identities[userID]
	if !ok {
		return authz.Identity{}, authz.ErrUnknownUser
	}
	return identity, nil
}

type stubRecorder struct {
	entries []audit.Entry
}

func (s *stubRecorder) Record(ctx context.Context, entry audit.Entry) {
	s.entries = append(s.entries, entry)
}

type adminFixture struct {
	router    chi.Router
	policies  *validatingPolicyStore
	overrides *validatingOverrideStore
	recorder  *stubRecorder
}

var admin = authz.Identity{ID: 1, Name: "Root", Role: authz.RoleAdministrator}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	registry, err := authz.DefaultRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	policies := &validatingPolicyStore{
		registry: registry,
		grants: map[authz.Role]map[authz.CapabilityKey]bool{
			authz.RoleAdministrator: {authz.CapViewRole: true, authz.CapEditRole: true},
			authz.RoleContractor:    {authz.CapViewProject: true, authz.CapEditProject: true},
		},
	}
	overrides := &validatingOverrideStore{
		registry: registry,
		overrides: map[int64]map[authz.CapabilityKey]bool{
			admin.ID: {},
			7:        {authz.CapEditProject: false},
		},
	}
	directory := &stubDirectory{identities: map[int64]authz.Identity{
		admin.ID: admin,
		7:        {ID: 7, Name: "Ada", Role: authz.RoleContractor},
	}}
	recorder := &stubRecorder{}

	resolver := authz.NewResolver(policies, overrides)
	gate := authz.NewGate(resolver, &stubIdentities{identity: admin}, nil)
	handler := authz.NewHandler(nil, registry, policies, overrides, directory, recorder)

	router := chi.NewRouter()
	handler.MountRoutes(router, gate)
	return &adminFixture{router: router, policies: policies, overrides: overrides, recorder: recorder}
}

func (f *adminFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestListCapabilitiesGroupedByModule(t *testing.T) {
	f := newAdminFixture(t)

	rr := f.do(t, http.MethodGet, "/capabilities", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload struct {
		Modules []struct {
			Module string   `json:"module"`
			Keys   []string `json:"keys"`
		} `json:"modules"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Modules) == 0 {
		t.Fatal("expected grouped modules")
	}
	for _, group := range payload.Modules {
		for _, key := range group.Keys {
			if !strings.HasSuffix(key, "_"+group.Module) {
				t.Fatalf("key %s filed under wrong module %s", key, group.Module)
			}
		}
	}
}

func TestPutRolePolicyRejectsUnknownKeysAtomically(t *testing.T) {
	f := newAdminFixture(t)

	body := `{"grants":{"view_project":true,"delete_moon":true}}`
	rr := f.do(t, http.MethodPut, "/roles/contractor/policy", body)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	var payload struct {
		InvalidKeys []string `json:"invalid_keys"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.InvalidKeys) != 1 || payload.InvalidKeys[0] != "delete_moon" {
		t.Fatalf("response must name delete_moon, got %v", payload.InvalidKeys)
	}
	if f.policies.sets != 0 {
		t.Fatal("invalid write must not touch the store")
	}
	if len(f.recorder.entries) != 0 {
		t.Fatal("rejected write must not be audited as an update")
	}
}

func TestPutRolePolicyReplacesAndAudits(t *testing.T) {
	f := newAdminFixture(t)

	body := `{"grants":{"view_project":true,"approve_project":true}}`
	rr := f.do(t, http.MethodPut, "/roles/contractor/policy", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Grants map[string]bool `json:"grants"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Full replace: edit_project was granted before and is now gone.
	if payload.Grants["edit_project"] {
		t.Fatal("replaced policy must drop grants absent from the request")
	}
	if !payload.Grants["approve_project"] {
		t.Fatal("new grant missing from response")
	}
	if len(f.recorder.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(f.recorder.entries))
	}
	entry := f.recorder.entries[0]
	if entry.Entity != "role_policy" || entry.EntityID != "contractor" {
		t.Fatalf("unexpected audit target: %s/%s", entry.Entity, entry.EntityID)
	}
	if entry.Before == nil || entry.After == nil {
		t.Fatal("policy edit must capture before and after snapshots")
	}
}

func TestGetRolePolicyUnknownRole(t *testing.T) {
	f := newAdminFixture(t)

	rr := f.do(t, http.MethodGet, "/roles/chancellor/policy", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetUserOverridesMarksInheritedAndOverridden(t *testing.T) {
	f := newAdminFixture(t)

	rr := f.do(t, http.MethodGet, "/users/7/overrides", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload struct {
		Role      string `json:"role"`
		Effective []struct {
			Key        string `json:"key"`
			Effective  bool   `json:"effective"`
			Overridden bool   `json:"overridden"`
		} `json:"effective"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Role != "contractor" {
		t.Fatalf("expected contractor role, got %s", payload.Role)
	}
	byKey := make(map[string]struct{ effective, overridden bool })
	for _, e := range payload.Effective {
		byKey[e.Key] = struct{ effective, overridden bool }{e.Effective, e.Overridden}
	}
	// edit_project: role grants it, override revokes it.
	if got := byKey["edit_project"]; got.effective || !got.overridden {
		t.Fatalf("edit_project should be overridden to false, got %+v", got)
	}
	// view_project: inherited from the role, no override.
	if got := byKey["view_project"]; !got.effective || got.overridden {
		t.Fatalf("view_project should be inherited true, got %+v", got)
	}
	// delete_project: fully ungranted.
	if got := byKey["delete_project"]; got.effective || got.overridden {
		t.Fatalf("delete_project should be false and not overridden, got %+v", got)
	}
}

func TestPutUserOverridesUnknownUser(t *testing.T) {
	f := newAdminFixture(t)

	rr := f.do(t, http.MethodPut, "/users/999/overrides", `{"overrides":{}}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPutUserOverridesRejectsUnknownKeysAtomically(t *testing.T) {
	f := newAdminFixture(t)

	rr := f.do(t, http.MethodPut, "/users/7/overrides", `{"overrides":{"view_project":true,"fly_spaceship":true}}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if f.overrides.sets != 0 {
		t.Fatal("invalid override write must not apply")
	}
}
