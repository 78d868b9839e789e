package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agendei/agendei-server/pkg/logging"
)

// Handler exposes appointment queries and cancellation over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ListForUser handles GET /appointments?client={userID}.
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("client")
	if userID == "" {
		http.Error(w, "client parameter required", http.StatusBadRequest)
		return
	}

	appts, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list appointments", "user_id", userID, "error", err)
		http.Error(w, "Failed to list appointments", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	h.writeJSON(w, http.StatusOK, appts)
}

// ListForProvider handles GET /providers/{providerID}/appointments.
func (h *Handler) ListForProvider(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	appts, err := h.service.ListForProvider(r.Context(), providerID)
	if err != nil {
		h.logger.Error("failed to list provider appointments", "provider_id", providerID, "error", err)
		http.Error(w, "Failed to list appointments", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	h.writeJSON(w, http.StatusOK, appts)
}

// Cancel handles POST /appointments/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			http.Error(w, "Appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to cancel appointment", "appointment_id", id, "error", err)
		http.Error(w, "Failed to cancel appointment", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": StatusCancelled})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
