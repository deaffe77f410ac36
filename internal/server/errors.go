package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sozercan/disclosure-ui/internal/session"
	"github.com/sozercan/disclosure-ui/internal/shell"
	"github.com/sozercan/disclosure-ui/internal/workspace"
)

// APIError is the JSON body of every non-2xx API response.
type APIError struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	writeJSON(w, status, APIError{Error: message, Details: details})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shell.ErrCategoriesLoading), errors.Is(err, workspace.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, shell.ErrUnknownQuestion), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrNoQuestion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error(), nil)
}
