package appointments

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agendei/agendei-server/pkg/logging"
)

var appointmentsTracer = otel.Tracer("agendei.internal.appointments")

// Service records appointments produced by confirmed dialogue sessions.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs an appointments service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Record persists a finalized appointment. actingUserID is the identity of
// the booking user when known; it is always passed explicitly by the caller,
// never read from ambient state.
func (s *Service) Record(ctx context.Context, appt *Appointment, actingUserID string) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.record")
	defer span.End()
	span.SetAttributes(
		attribute.String("agendei.provider_id", appt.ProviderID),
		attribute.String("agendei.service_name", appt.ServiceName),
	)

	appt.UserID = actingUserID
	if err := s.repo.Create(ctx, appt); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment recorded",
		"appointment_id", appt.ID,
		"provider_id", appt.ProviderID,
		"service", appt.ServiceName,
		"start_time", appt.StartTime,
	)
	return nil
}

// Cancel marks an appointment cancelled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel")
	defer span.End()

	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}

// ListForUser returns the appointments booked by a user.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Appointment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListForProvider returns the appointments held with a provider.
func (s *Service) ListForProvider(ctx context.Context, providerID string) ([]*Appointment, error) {
	return s.repo.ListByProvider(ctx, providerID)
}
