package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for errors.Is checks. The structured types below wrap
// these and carry the context callers need to decide their next action:
// retry, escalate to another role, or correct the input. A bare
// "operation failed" is never returned.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidState      = errors.New("transition not allowed from current status")
	ErrInvalidTimeWindow = errors.New("proposed time window is invalid")
	ErrDoubleBooking     = errors.New("overlapping appointment exists")
	ErrConflict          = errors.New("concurrent modification detected")
)

// PermissionDeniedError names who must act instead, so the caller can
// render an escalation path rather than a bare failure.
type PermissionDeniedError struct {
	Operation     string
	Reason        string
	RequiredActor string // display name of the principal who may act, if known
}

func (e *PermissionDeniedError) Error() string {
	if e.RequiredActor != "" {
		return fmt.Sprintf("permission denied for %s: %s (requires %s)", e.Operation, e.Reason, e.RequiredActor)
	}
	return fmt.Sprintf("permission denied for %s: %s", e.Operation, e.Reason)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// InvalidStateError reports a transition rejected by the status table.
type InvalidStateError struct {
	From      string
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.Attempted)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// DoubleBookingError identifies the appointment occupying the window so the
// caller can pick another slot.
type DoubleBookingError struct {
	PsychologistID           uuid.UUID
	ConflictingAppointmentID uuid.UUID
}

func (e *DoubleBookingError) Error() string {
	return fmt.Sprintf("psychologist %s already has appointment %s in that window",
		e.PsychologistID, e.ConflictingAppointmentID)
}

func (e *DoubleBookingError) Unwrap() error { return ErrDoubleBooking }

// ConflictError reports an optimistic-concurrency loss. The caller must
// reload and may retry once with fresh state; the system never auto-retries.
type ConflictError struct {
	CurrentState string
	Suggestion   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: entity changed concurrently (current state: %s); %s", e.CurrentState, e.Suggestion)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func NewConflict(currentState string) *ConflictError {
	return &ConflictError{CurrentState: currentState, Suggestion: "reload and retry"}
}
