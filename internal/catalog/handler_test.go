package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newHandlerRouter(t *testing.T) (*InMemoryRepository, *chi.Mux) {
	t.Helper()
	repo := NewSeededRepository()
	handler := NewHandler(repo, nil)

	r := chi.NewRouter()
	r.Get("/providers", handler.ListProviders)
	r.Get("/providers/{slug}", handler.GetProvider)
	return repo, r
}

func TestListProvidersEndpoint(t *testing.T) {
	_, router := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var providers []*Provider
	if err := json.Unmarshal(rec.Body.Bytes(), &providers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(providers) != 1 || providers[0].Slug != "barbearia-vintage" {
		t.Errorf("unexpected providers: %+v", providers)
	}
}

func TestGetProviderEndpoint(t *testing.T) {
	_, router := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/providers/barbearia-vintage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var provider Provider
	if err := json.Unmarshal(rec.Body.Bytes(), &provider); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(provider.Services) != 2 || provider.Services[0].Name != "Corte de Cabelo" {
		t.Errorf("unexpected services: %+v", provider.Services)
	}
}

func TestGetProviderNotFound(t *testing.T) {
	_, router := newHandlerRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/providers/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
