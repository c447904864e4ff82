package projects

import (
	"context"
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

// Handler exposes the project workflow over HTTP.
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

// MountRoutes registers project routes behind the gate. Approvals and
// rejections sit behind the dedicated approve capability so a project
// manager without it can edit but never accept.
func (h *Handler) MountRoutes(r chi.Router, gate *authz.Gate) {
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapViewProject))
		gr.Get("/projects", h.handleList)
		gr.Get("/projects/{projectID}", h.handleGet)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapCreateProject))
		gr.Post("/projects", h.handleCreate)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapEditProject))
		gr.Put("/projects/{projectID}", h.handleUpdate)
		gr.Post("/projects/{projectID}/submit", h.handleSubmit)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapApproveProject))
		gr.Post("/projects/{projectID}/approve", h.handleApprove)
		gr.Post("/projects/{projectID}/reject", h.handleReject)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapDeleteProject))
		gr.Delete("/projects/{projectID}", h.handleDelete)
	})
}

type projectRequest struct {
	Code         string `json:"code" validate:"required,min=3,max=32"`
	Title        string `json:"title" validate:"required,min=3,max=200"`
	Description  string `json:"description" validate:"max=4000"`
	MDA          string `json:"mda" validate:"required,min=2,max=120"`
	ContractorID int64  `json:"contractor_id" validate:"required,gt=0"`
	BudgetNGN    int64  `json:"budget_ngn" validate:"gte=0"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.IdentityFromContext(r.Context())
	f := Filters{
		MDA:    r.URL.Query().Get("mda"),
		Status: Status(r.URL.Query().Get("status")),
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
		return
	}
	list, err := h.service.List(r.Context(), actor, f)
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.IdentityFromContext(r.Context())
	p, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	actor, _ := authz.IdentityFromContext(r.Context())
	p, err := h.service.Create(r.Context(), actor, clientMeta(r), draftFromRequest(req))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	actor, _ := authz.IdentityFromContext(r.Context())
	p, err := h.service.Update(r.Context(), actor, clientMeta(r), id, draftFromRequest(req))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Submit)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Reject)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, clientMeta(r), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type transitionFunc func(ctx context.Context, actor authz.Identity, meta ClientMeta, id int64) (Project, error)

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := authz.IdentityFromContext(r.Context())
	p, err := fn(r.Context(), actor, clientMeta(r), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (projectRequest, bool) {
	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
	case errors.Is(err, ErrNotOwner):
		// Contractors learn nothing about projects outside their scope.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "project not found")
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "project code already in use")
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error("project operation failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid project id")
		return 0, false
	}
	return id, true
}

func draftFromRequest(req projectRequest) Draft {
	return Draft{
		Code:         req.Code,
		Title:        req.Title,
		Description:  req.Description,
		MDA:          req.MDA,
		ContractorID: req.ContractorID,
		BudgetNGN:    req.BudgetNGN,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}
}

func clientMeta(r *http.Request) ClientMeta {
	ip, agent := audit.ClientMeta(r)
	return ClientMeta{IP: ip, UserAgent: agent}
}
