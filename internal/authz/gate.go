package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/protrack-gov/protrack/internal/platform/httpx"
)

// IdentityResolver resolves the calling actor from an inbound request.
// Implementations return ErrUnauthenticated when no valid identity exists;
// any other error (including a store timeout) is treated the same way
// rather than retried, so a slow identity lookup cannot hold the client.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (Identity, error)
}

// Gate is the single request-time enforcement point. Every protected route
// goes through it identically: resolve identity, evaluate the required
// capability set, then either short-circuit or hand control to the wrapped
// handler exactly once with the identity in context.
type Gate struct {
	resolver   *Resolver
	identities IdentityResolver
	logger     *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(resolver *Resolver, identities IdentityResolver, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{resolver: resolver, identities: identities, logger: logger}
}

// RequireAny returns chi middleware enforcing that the caller holds at least
// one of the given capabilities. With no keys it only requires a resolved
// identity.
func (g *Gate) RequireAny(keys ...CapabilityKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := g.Check(r, keys...)
			if err != nil {
				RespondDenial(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// Check performs the authorization sequence for handlers that need the
// identity inline instead of through middleware. It returns the identity on
// success, ErrUnauthenticated when no identity resolves, or a DenialError
// when every required capability is missing.
func (g *Gate) Check(r *http.Request, keys ...CapabilityKey) (Identity, error) {
	identity, err := g.identities.Resolve(r.Context(), r)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			g.logger.Warn("identity resolution failed", slog.Any("error", err))
		}
		return Identity{}, ErrUnauthenticated
	}
	if len(keys) == 0 {
		return identity, nil
	}
	allowed, err := g.resolver.EffectiveAny(r.Context(), identity, keys)
	if err != nil {
		// A store failure or timeout is a resolution failure, not a retry.
		g.logger.Error("capability resolution failed",
			slog.Int64("user_id", identity.ID),
			slog.Any("error", err))
		return Identity{}, &DenialError{Required: keys}
	}
	if !allowed {
		return Identity{}, &DenialError{Required: keys}
	}
	return identity, nil
}

type denialPayload struct {
	Title                string          `json:"title"`
	Status               int             `json:"status"`
	Detail               string          `json:"detail,omitempty"`
	RequiredCapabilities []CapabilityKey `json:"required_capabilities,omitempty"`
}

// RespondDenial writes the HTTP response for a failed Check. Unauthenticated
// callers get a deliberately generic 401 that does not distinguish missing
// from expired credentials; forbidden callers get a 403 naming the
// capability set that would have sufficed.
func RespondDenial(w http.ResponseWriter, err error) {
	var denial *DenialError
	if errors.As(err, &denial) {
		httpx.JSON(w, http.StatusForbidden, denialPayload{
			Title:                "Forbidden",
			Status:               http.StatusForbidden,
			Detail:               "you do not hold a capability required for this operation",
			RequiredCapabilities: denial.Required,
		})
		return
	}
	if errors.Is(err, ErrForbidden) {
		httpx.JSON(w, http.StatusForbidden, denialPayload{
			Title:  "Forbidden",
			Status: http.StatusForbidden,
		})
		return
	}
	httpx.JSON(w, http.StatusUnauthorized, denialPayload{
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: "please sign in",
	})
}
