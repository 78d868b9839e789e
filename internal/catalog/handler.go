package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agendei/agendei-server/pkg/logging"
)

// Handler exposes the provider catalog over HTTP.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListProviders handles GET /providers.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		http.Error(w, "Failed to list providers", http.StatusInternalServerError)
		return
	}
	if providers == nil {
		providers = []*Provider{}
	}
	h.writeJSON(w, http.StatusOK, providers)
}

// GetProvider handles GET /providers/{slug}.
func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	provider, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			http.Error(w, "Provider not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load provider", "slug", slug, "error", err)
		http.Error(w, "Failed to load provider", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, provider)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
