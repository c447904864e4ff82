package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/platform/httpx"
)

// Directory resolves a user's identity for the override editor, which needs
// the role to show which values are inherited.
type Directory interface {
	Identity(ctx context.Context, userID int64) (Identity, error)
}

// Recorder captures audit entries for policy edits.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Handler is the policy administration surface: capability listing grouped
// by module, role policy read/replace, and per-user override read/replace.
type Handler struct {
	logger    *slog.Logger
	registry  *Registry
	policies  RolePolicyStore
	overrides UserOverrideStore
	directory Directory
	ledger    Recorder
}

// NewHandler constructs the administration handler.
func NewHandler(logger *slog.Logger, registry *Registry, policies RolePolicyStore, overrides UserOverrideStore, directory Directory, ledger Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		registry:  registry,
		policies:  policies,
		overrides: overrides,
		directory: directory,
		ledger:    ledger,
	}
}

// MountRoutes registers the administration endpoints. Reads require the
// view_role capability, writes edit_role; there is no further check on who
// may edit policy.
func (h *Handler) MountRoutes(r chi.Router, gate *Gate) {
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(CapViewRole))
		gr.Get("/capabilities", h.listCapabilities)
		gr.Get("/roles", h.listRoles)
		gr.Get("/roles/{role}/policy", h.getRolePolicy)
		gr.Get("/users/{userID}/overrides", h.getUserOverrides)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(CapEditRole))
		gr.Put("/roles/{role}/policy", h.putRolePolicy)
		gr.Put("/users/{userID}/overrides", h.putUserOverrides)
	})
}

func (h *Handler) listCapabilities(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": h.registry.Modules()})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": AllRoles()})
}

type rolePolicyResponse struct {
	Role   Role                   `json:"role"`
	Grants map[CapabilityKey]bool `json:"grants"`
}

func (h *Handler) getRolePolicy(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	grants, err := h.policies.Get(r.Context(), role)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rolePolicyResponse{Role: role, Grants: grants})
}

type rolePolicyRequest struct {
	Grants map[CapabilityKey]bool `json:"grants"`
}

func (h *Handler) putRolePolicy(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	var req rolePolicyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if req.Grants == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "grants map is required")
		return
	}

	before, err := h.policies.Get(r.Context(), role)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if err := h.policies.Set(r.Context(), role, req.Grants); err != nil {
		h.respondStoreError(w, err)
		return
	}
	after, err := h.policies.Get(r.Context(), role)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.recordEdit(r, "role_policy", string(role), audit.Snapshot(before), audit.Snapshot(after), "replaced role policy")
	httpx.JSON(w, http.StatusOK, rolePolicyResponse{Role: role, Grants: after})
}

// effectiveEntry marks, per capability, whether the value comes from the
// role default or an explicit override. Only overrides are persisted; the
// inherited values are computed for display.
type effectiveEntry struct {
	Key        CapabilityKey `json:"key"`
	Module     string        `json:"module"`
	Effective  bool          `json:"effective"`
	Overridden bool          `json:"overridden"`
}

type userOverridesResponse struct {
	UserID    int64                  `json:"user_id"`
	Role      Role                   `json:"role"`
	Overrides map[CapabilityKey]bool `json:"overrides"`
	Effective []effectiveEntry       `json:"effective"`
}

func (h *Handler) getUserOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	identity, err := h.directory.Identity(r.Context(), userID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	overrides, err := h.overrides.Get(r.Context(), userID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	policy, err := h.policies.Get(r.Context(), identity.Role)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	effective := make([]effectiveEntry, 0, len(h.registry.keys))
	for _, key := range h.registry.AllKeys() {
		module, _ := h.registry.ModuleOf(key)
		entry := effectiveEntry{Key: key, Module: module, Effective: policy[key]}
		if value, ok := overrides[key]; ok {
			entry.Effective = value
			entry.Overridden = true
		}
		effective = append(effective, entry)
	}
	httpx.JSON(w, http.StatusOK, userOverridesResponse{
		UserID:    userID,
		Role:      identity.Role,
		Overrides: overrides,
		Effective: effective,
	})
}

type userOverridesRequest struct {
	Overrides map[CapabilityKey]bool `json:"overrides"`
}

func (h *Handler) putUserOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req userOverridesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if req.Overrides == nil {
		req.Overrides = make(map[CapabilityKey]bool)
	}

	before, err := h.overrides.Get(r.Context(), userID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if err := h.overrides.Set(r.Context(), userID, req.Overrides); err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.recordEdit(r, "user_override", strconv.FormatInt(userID, 10), audit.Snapshot(before), audit.Snapshot(req.Overrides), "replaced user overrides")
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "overrides": req.Overrides})
}

func (h *Handler) recordEdit(r *http.Request, entity, entityID string, before, after map[string]any, description string) {
	if h.ledger == nil {
		return
	}
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		return
	}
	ip, agent := audit.ClientMeta(r)
	h.ledger.Record(r.Context(), audit.Entry{
		ActorID:     identity.ID,
		ActorName:   identity.Name,
		ActorRole:   string(identity.Role),
		Entity:      entity,
		EntityID:    entityID,
		Action:      audit.ActionUpdate,
		Outcome:     audit.OutcomeSuccess,
		Description: description,
		Before:      before,
		After:       after,
		IP:          ip,
		UserAgent:   agent,
	})
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	var invalid *KeyValidationError
	switch {
	case errors.As(err, &invalid):
		httpx.InvalidKeysProblem(w, invalid.Keys)
	case errors.Is(err, ErrUnknownRole):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnknownUser):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("policy store", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
