package model

import "errors"

var (
	// ErrUnknownProvider is returned when configuration names a provider that does not exist
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidConfig marks configuration that cannot be used to build a component
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCapabilityUnavailable is returned when an optional subsystem is not configured
	ErrCapabilityUnavailable = errors.New("capability unavailable")
)
