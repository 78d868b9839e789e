package appointments

import "errors"

var (
	// ErrMissingID is returned when an appointment has no identifier.
	ErrMissingID = errors.New("appointment id is required")

	// ErrMissingProvider is returned when the provider reference is empty.
	ErrMissingProvider = errors.New("provider id is required")

	// ErrMissingService is returned when the service name is empty.
	ErrMissingService = errors.New("service name is required")

	// ErrMissingClientName is returned when the client name is empty.
	ErrMissingClientName = errors.New("client name is required")

	// ErrInvalidStatus is returned for statuses outside the known set.
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrAppointmentNotFound is returned when an appointment is not found.
	ErrAppointmentNotFound = errors.New("appointment not found")
)
