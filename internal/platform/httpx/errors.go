package httpx

import (
	"errors"
	"net/http"

	"github.com/protrack-gov/protrack/internal/shared"
)

// RespondError writes the RFC7807 response for the cross-cutting sentinel
// errors. Handlers translate their domain-specific sentinels first and fall
// through to this for everything else; unknown errors render as an opaque
// 500 so internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
