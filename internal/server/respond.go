package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gityap/gityap/internal/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

// mapDomainError converts the domain taxonomy into a status, a stable
// error code and a short human-readable message.
func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "handle not found"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "session invalid or expired"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED",
			"upstream rate limit exceeded; try again later or configure an API token"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT", "operation timed out"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
