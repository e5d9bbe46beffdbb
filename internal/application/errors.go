package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned when login credentials do not match an account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when the account exists but has been disabled.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when an auth token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when an auth token has been revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrHallInUse is returned when a hall removal would strand sessions and no
	// migration target was provided.
	ErrHallInUse = errors.New("application: hall still referenced by sessions")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// PlacementConflictError reports that a grid cell is already occupied.
// Placement collisions are hard failures; the existing session stays in place.
type PlacementConflictError struct {
	DayID      string
	StageID    string
	TimeSlotID string
	ExistingID string
}

// Error implements the error interface.
func (e *PlacementConflictError) Error() string {
	return fmt.Sprintf("placement conflict: day %s stage %s slot %s already holds session %s",
		e.DayID, e.StageID, e.TimeSlotID, e.ExistingID)
}
