package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/services"
)

type TimeslotHandler struct {
	timeslots *services.TimeslotService
}

func NewTimeslotHandler(timeslots *services.TimeslotService) *TimeslotHandler {
	return &TimeslotHandler{timeslots: timeslots}
}

type createTimeslotRequest struct {
	TimeSlots    []domain.TimeSlot `json:"timeSlots"`
	SpecialNotes string            `json:"specialNotes"`
}

// Handle serves /timeslots/{date} for all four verbs.
func (h *TimeslotHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	date := strings.TrimPrefix(r.URL.Path, "/timeslots/")
	if !domain.ValidDate(date) {
		writeJSONError(w, http.StatusBadRequest, "date must be in format YYYY-MM-DD")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := h.timeslots.Get(r.Context(), date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case http.MethodPost:
		// An empty body seeds the default business-hours grid.
		var req createTimeslotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, "invalid request format")
			return
		}
		doc, err := h.timeslots.CreateForDate(r.Context(), date, req.TimeSlots, req.SpecialNotes)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)

	case http.MethodPut:
		var edits services.TimeslotEdits
		if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request format")
			return
		}
		doc, err := h.timeslots.Update(r.Context(), date, edits)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)

	case http.MethodDelete:
		if err := h.timeslots.Delete(r.Context(), date); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		writeMethodNotAllowed(w)
	}
}
