package catalog

import "errors"

var (
	// ErrProviderNotFound is returned when no provider matches the lookup.
	ErrProviderNotFound = errors.New("provider not found")
)
