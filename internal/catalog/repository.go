package catalog

import (
	"context"
	"sync"
)

// Repository defines read access to providers and their offerings.
type Repository interface {
	GetBySlug(ctx context.Context, slug string) (*Provider, error)
	GetByID(ctx context.Context, id string) (*Provider, error)
	List(ctx context.Context) ([]*Provider, error)
}

// InMemoryRepository serves providers from memory. Used for local development
// and tests when no database is configured.
type InMemoryRepository struct {
	mu        sync.RWMutex
	bySlug    map[string]*Provider
	byID      map[string]*Provider
	insertion []string
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bySlug: make(map[string]*Provider),
		byID:   make(map[string]*Provider),
	}
}

// NewSeededRepository creates an in-memory repository preloaded with the demo
// provider used by local development environments.
func NewSeededRepository() *InMemoryRepository {
	r := NewInMemoryRepository()
	r.Put(demoProvider())
	return r
}

// Put inserts or replaces a provider.
func (r *InMemoryRepository) Put(p *Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[p.ID]; !exists {
		r.insertion = append(r.insertion, p.ID)
	}
	r.byID[p.ID] = p
	r.bySlug[p.Slug] = p
}

// GetBySlug returns the provider with the given URL slug.
func (r *InMemoryRepository) GetBySlug(ctx context.Context, slug string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySlug[slug]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// GetByID returns the provider with the given identifier.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// List returns all providers in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Provider, 0, len(r.insertion))
	for _, id := range r.insertion {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func demoProvider() *Provider {
	return &Provider{
		ID:       "p1",
		Name:     "Barbearia Vintage & Estilo",
		Slug:     "barbearia-vintage",
		Category: "Barbearia",
		Bio:      "Especialistas em barbas clássicas e cortes modernos. No mercado desde 2015 proporcionando a melhor experiência.",
		Services: []Service{
			{ID: "s1", Name: "Corte de Cabelo", Price: 50, DurationMinutes: 45, Description: "Corte completo com lavagem."},
			{ID: "s2", Name: "Barba Terapia", Price: 40, DurationMinutes: 30, Description: "Toalha quente e óleos."},
		},
		AvailableSlots: []string{"2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z"},
	}
}
