package appointments

import (
	"strings"
	"time"
)

// Status values an appointment can hold.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Appointment is a finalized booking produced by a dialogue session.
type Appointment struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	ServiceName  string    `json:"service_name"`
	ClientName   string    `json:"client_name"`
	StartTime    string    `json:"start_time"`
	Status       string    `json:"status"`
	Price        float64   `json:"price"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the fields required before persisting.
func (a *Appointment) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(a.ProviderID) == "" {
		return ErrMissingProvider
	}
	if strings.TrimSpace(a.ServiceName) == "" {
		return ErrMissingService
	}
	if strings.TrimSpace(a.ClientName) == "" {
		return ErrMissingClientName
	}
	switch a.Status {
	case StatusPending, StatusConfirmed, StatusCancelled:
	default:
		return ErrInvalidStatus
	}
	return nil
}
