package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/justloccit/booking-backend/internal/core/services"
)

type ReservationHandler struct {
	reservations  *services.ReservationService
	confirmations *services.ConfirmationService
}

func NewReservationHandler(reservations *services.ReservationService, confirmations *services.ConfirmationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, confirmations: confirmations}
}

// Lock accepts either the single-service or the multi-service body; the two
// are told apart by the presence of subServiceId at the top level.
func (h *ReservationHandler) Lock(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeJSONError(w, http.StatusBadRequest, "request body cannot be empty")
		return
	}

	var single services.LockSingleRequest
	if err := json.Unmarshal(body, &single); err == nil && single.SubServiceID != "" {
		resp, err := h.reservations.LockSingle(r.Context(), single)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var multi services.LockMultipleRequest
	if err := json.Unmarshal(body, &multi); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if len(multi.SubServices) == 0 {
		writeJSONError(w, http.StatusBadRequest, "missing subServices array or it's empty")
		return
	}

	resp, err := h.reservations.LockMultiple(r.Context(), multi)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type releaseRequest struct {
	BookingID string `json:"bookingId"`
	Date      string `json:"date"`
}

type releaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *ReservationHandler) Release(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	released, err := h.reservations.Release(r.Context(), req.BookingID, req.Date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := releaseResponse{Success: released, Message: "reservation released"}
	if !released {
		resp.Message = "no matching reservation to release"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req services.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	resp, err := h.confirmations.Confirm(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
