package domain

import "errors"

var (
	// Order lifecycle
	ErrInvalidPlan       = errors.New("plan does not exist or is not active")
	ErrInvalidTransition = errors.New("order is not in a state eligible for this transition")
	ErrUnauthorized      = errors.New("sender is not authorized for this action")
	ErrNoEligibleOrder   = errors.New("no eligible order found")

	// Collaborators
	ErrTransportFailure   = errors.New("messaging transport call failed")
	ErrPersistenceFailure = errors.New("storage call failed")

	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
