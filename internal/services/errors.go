// Package services defines the business logic for guardian profiles, child
// profiles, screenings, and the flat result cache. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrPatientNotFound indicates that the requested child profile does not
	// exist or does not belong to the current user.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrUserNotFound indicates that the requested user row does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrScreeningNotFound indicates that the requested screening does not
	// exist or does not belong to the current user.
	ErrScreeningNotFound = errors.New("screening not found")

	// ErrResultNotFound indicates that the requested result record does not
	// exist or does not belong to the current user.
	ErrResultNotFound = errors.New("result not found")

	// ErrInvalidInput is wrapped by validation failures; the message carries
	// the field-level detail.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownScreeningType is returned when a run is requested for a
	// screening type outside the catalog.
	ErrUnknownScreeningType = errors.New("unknown screening type")
)
