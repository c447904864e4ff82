package httpx_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/protrack-gov/protrack/internal/platform/httpx"
	"github.com/protrack-gov/protrack/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: shared.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("load user: %w", shared.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "invalid credentials", err: shared.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "unknown error", err: errors.New("connection refused"), wantStatus: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			httpx.RespondError(rr, tc.err)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rr.Code)
			}
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	httpx.RespondError(rr, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	if strings.Contains(rr.Body.String(), "10.0.0.5") {
		t.Fatal("internal error detail must not leak to the client")
	}
}
