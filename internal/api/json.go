package api

import (
	"encoding/json"
	"net/http"
)

// Problem is the RFC7807 error body every handler returns on failure.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Problem type URIs, relative to the service root. Clients switch on
// these instead of the human-readable title.
const (
	problemInvalidRequest = "/problems/invalid-request"
	problemUnauthorized   = "/problems/unauthorized"
	problemForbidden      = "/problems/forbidden"
	problemNotFound       = "/problems/not-found"
	problemRateLimited    = "/problems/rate-limited"
	problemNotReady       = "/problems/not-ready"
)

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return problemInvalidRequest
	case http.StatusUnauthorized:
		return problemUnauthorized
	case http.StatusForbidden:
		return problemForbidden
	case http.StatusNotFound:
		return problemNotFound
	case http.StatusTooManyRequests:
		return problemRateLimited
	case http.StatusServiceUnavailable:
		return problemNotReady
	default:
		return "about:blank"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     problemType(status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}
