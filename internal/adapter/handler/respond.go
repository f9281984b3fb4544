package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a store or serialization failure: logged
// with context, surfaced opaquely.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
