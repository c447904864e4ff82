package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/platform/httpx"
	"github.com/protrack-gov/protrack/internal/shared"
)

const loginRateLimit = 10
const loginRateWindow = time.Minute

// Recorder captures audit entries for authentication attempts.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	ledger         Recorder
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, ledger Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		ledger:         ledger,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(loginRateLimit, loginRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		gr.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	ip, agent := audit.ClientMeta(r)
	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		// Failed attempts are audited with the attempted email as the
		// actor snapshot; no account id exists to reference.
		h.ledger.Record(r.Context(), audit.Entry{
			ActorName:   req.Email,
			Entity:      "session",
			Action:      audit.ActionLogin,
			Outcome:     audit.OutcomeFailed,
			Description: "login rejected",
			IP:          ip,
			UserAgent:   agent,
		})
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, ip, agent); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	h.ledger.Record(r.Context(), audit.Entry{
		ActorID:     user.ID,
		ActorName:   user.Name,
		ActorRole:   string(user.Role),
		Entity:      "session",
		EntityID:    sess.ID,
		Action:      audit.ActionLogin,
		Outcome:     audit.OutcomeSuccess,
		Description: "signed in",
		IP:          ip,
		UserAgent:   agent,
	})

	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   string(user.Role),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
		return
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}

	ip, agent := audit.ClientMeta(r)
	if userID, err := strconv.ParseInt(sess.User(), 10, 64); err == nil {
		entry := audit.Entry{
			ActorID:     userID,
			Entity:      "session",
			EntityID:    sess.ID,
			Action:      audit.ActionLogout,
			Outcome:     audit.OutcomeSuccess,
			Description: "signed out",
			IP:          ip,
			UserAgent:   agent,
		}
		// Snapshot the actor's current name and role so a later rename or
		// deletion cannot corrupt this entry.
		if user, err := h.service.UserByID(r.Context(), userID); err == nil {
			entry.ActorName = user.Name
			entry.ActorRole = string(user.Role)
		}
		h.ledger.Record(r.Context(), entry)
	}
	h.sessionManager.Destroy(sess)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
