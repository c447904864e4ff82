package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/shared"
)

// IdentityResolver turns the request session into an authz.Identity. It is
// the external identity collaborator the gate depends on: session lookup and
// token issuance stay here, the gate only sees the resolved actor.
type IdentityResolver struct {
	repo Repository
}

// NewIdentityResolver constructs the resolver.
func NewIdentityResolver(repo Repository) *IdentityResolver {
	return &IdentityResolver{repo: repo}
}

// Resolve loads the actor behind the request session. Any failure mode
// (no session, no user id, unknown or deactivated account, store timeout)
// collapses into ErrUnauthenticated; the distinction is logged upstream,
// never surfaced.
func (ir *IdentityResolver) Resolve(ctx context.Context, r *http.Request) (authz.Identity, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	user, err := ir.repo.FindByID(ctx, id)
	if err != nil {
		return authz.Identity{}, fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)
	}
	if !user.IsActive {
		return authz.Identity{}, authz.ErrUnauthenticated
	}
	return user.Identity(), nil
}

var _ authz.IdentityResolver = (*IdentityResolver)(nil)
