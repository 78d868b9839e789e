package appointments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for appointment storage
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]*Appointment, error)
	ListByProvider(ctx context.Context, providerID string) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// InMemoryRepository is an in-memory Repository for development and tests.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[string]*Appointment),
	}
}

// Create stores a new appointment
func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	if err := appt.Validate(); err != nil {
		return err
	}
	cp := *appt
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.appointments[cp.ID] = &cp
	r.mu.Unlock()

	appt.CreatedAt = cp.CreatedAt
	return nil
}

// GetByID retrieves an appointment by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

// ListByUser returns the appointments booked by a user, newest first.
func (r *InMemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.UserID == userID }), nil
}

// ListByProvider returns the appointments held with a provider, newest first.
func (r *InMemoryRepository) ListByProvider(ctx context.Context, providerID string) ([]*Appointment, error) {
	return r.list(func(a *Appointment) bool { return a.ProviderID == providerID }), nil
}

// UpdateStatus changes the status of an existing appointment.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id, status string) error {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
	default:
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.Status = status
	return nil
}

func (r *InMemoryRepository) list(match func(*Appointment) bool) []*Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Appointment, 0)
	for _, appt := range r.appointments {
		if match(appt) {
			cp := *appt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
