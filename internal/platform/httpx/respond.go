// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ProblemDetail represents RFC7807 problem details. InvalidKeys carries the
// full set of rejected capability keys on policy write failures, so a single
// response names every offender instead of failing on the first.
type ProblemDetail struct {
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title"`
	Status      int      `json:"status"`
	Detail      string   `json:"detail,omitempty"`
	InvalidKeys []string `json:"invalid_keys,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// InvalidKeysProblem rejects a policy write that referenced unknown
// capability keys, enumerating all of them.
func InvalidKeysProblem(w http.ResponseWriter, keys []string) {
	JSON(w, http.StatusUnprocessableEntity, ProblemDetail{
		Title:       "Validation Failed",
		Status:      http.StatusUnprocessableEntity,
		Detail:      "request referenced capability keys outside the registry",
		InvalidKeys: keys,
	})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
