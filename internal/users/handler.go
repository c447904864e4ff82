package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/platform/httpx"
	"github.com/protrack-gov/protrack/internal/shared"
)

// Handler exposes user management over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user management routes behind the gate.
func (h *Handler) MountRoutes(r chi.Router, gate *authz.Gate) {
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapViewUser))
		gr.Get("/users", h.handleList)
		gr.Get("/users/{userID}", h.handleGet)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapCreateUser))
		gr.Post("/users", h.handleCreate)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapEditUser))
		gr.Put("/users/{userID}", h.handleUpdate)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapDeleteUser))
		gr.Delete("/users/{userID}", h.handleDelete)
	})
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

type updateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Role     string `json:"role" validate:"required"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actor, _ := authz.IdentityFromContext(r.Context())
	user, err := h.service.CreateUser(r.Context(), actor, clientMeta(r), req.Email, req.Name, req.Password, authz.Role(req.Role))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actor, _ := authz.IdentityFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), actor, clientMeta(r), id, req.Name, authz.Role(req.Role), req.IsActive)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.IdentityFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), actor, clientMeta(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "email already in use")
	case errors.Is(err, authz.ErrUnknownRole):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
	default:
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("user operation failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return 0, false
	}
	return id, true
}

func clientMeta(r *http.Request) ClientMeta {
	ip, agent := audit.ClientMeta(r)
	return ClientMeta{IP: ip, UserAgent: agent}
}
