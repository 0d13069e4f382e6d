package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dinehall/ordering/internal/backend"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleBackendError maps a restaurant backend failure onto the gateway's
// response. Client errors pass through with their detail; everything else is
// a bad gateway.
func handleBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		respondError(w, http.StatusBadGateway, "backend_unavailable", "restaurant backend unavailable")
		return
	}

	switch {
	case apiErr.Status == http.StatusNotFound:
		respondError(w, http.StatusNotFound, "not_found", apiErr.Detail)
	case apiErr.Status >= 400 && apiErr.Status < 500:
		respondError(w, http.StatusBadRequest, "backend_rejected", apiErr.Detail)
	default:
		respondError(w, http.StatusBadGateway, "backend_error", apiErr.Detail)
	}
}
