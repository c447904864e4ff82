package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/protrack-gov/protrack/internal/audit/http"
	"github.com/protrack-gov/protrack/internal/auth"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/observability"
	"github.com/protrack-gov/protrack/internal/platform/httpx"
	"github.com/protrack-gov/protrack/internal/projects"
	"github.com/protrack-gov/protrack/internal/shared"
	"github.com/protrack-gov/protrack/internal/users"
	"github.com/protrack-gov/protrack/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Gate           *authz.Gate

	AuthHandler     *auth.Handler
	AuthzHandler    *authz.Handler
	UsersHandler    *users.Handler
	ProjectsHandler *projects.Handler
	AuditHandler    *audithttp.Handler
	JobsHandler     *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with ProTrack defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Clients fetch the token once per session and send it back in the
	// X-CSRF-Token header on every mutating request.
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Error("issue csrf token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.AuthzHandler != nil {
		r.Route("/admin", func(ar chi.Router) {
			params.AuthzHandler.MountRoutes(ar, params.Gate)
		})
	}
	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r, params.Gate)
	}
	if params.ProjectsHandler != nil {
		params.ProjectsHandler.MountRoutes(r, params.Gate)
	}
	if params.AuditHandler != nil {
		params.AuditHandler.MountRoutes(r, params.Gate)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
