package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/protrack-gov/protrack/internal/authz"
)

const exportRateLimit = 10
const exportRateWindow = time.Minute

// MountRoutes registers the audit endpoints. Every route goes through the
// gate; the CSV export additionally carries a per-user rate limit.
func (h *Handler) MountRoutes(r chi.Router, gate *authz.Gate) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapViewAuditLog))
		gr.Get("/audit", h.handleTimeline)
		gr.Get("/audit/{id}", h.handleDetail)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(gate.RequireAny(authz.CapExportAuditLog))
		gr.Use(limiter)
		gr.Get("/audit/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if identity, ok := authz.IdentityFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(identity.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
