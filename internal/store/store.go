// Package store persists appointments and payments. Implementations must
// provide two guarantees the services build on: per-entity optimistic
// concurrency (writes carry the version they read; a stale version fails
// with ErrVersionMismatch) and atomic double-booking enforcement (the
// overlap check and the write happen under the same serialization point, so
// two simultaneous bookings for one slot resolve to one winner).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/domain"
)

// ErrVersionMismatch is returned when a write's expected version no longer
// matches the stored row. Services translate it into a Conflict carrying
// the entity's current state.
var ErrVersionMismatch = errors.New("store: version mismatch")

type AppointmentFilter struct {
	PsychologistID *uuid.UUID
	PatientID      *uuid.UUID
	ClinicID       *uuid.UUID
	Status         *domain.AppointmentStatus
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// PaymentFilter scopes ledger reads for the financial aggregator. The
// window is closed: [From, To].
type PaymentFilter struct {
	ClinicID       *uuid.UUID
	PsychologistID *uuid.UUID
	From           *time.Time
	To             *time.Time
}

type Store interface {
	// CreateAppointment inserts a new appointment. It fails with a
	// DoubleBookingError if the psychologist already holds a non-cancelled
	// appointment overlapping the window.
	CreateAppointment(ctx context.Context, a *domain.Appointment) error

	// CreateAppointmentWithPayment inserts an appointment and its linked
	// payment atomically: if either insert fails, neither row persists. The
	// double-booking check runs under the same serialization point as
	// CreateAppointment.
	CreateAppointmentWithPayment(ctx context.Context, a *domain.Appointment, p *domain.Payment) error

	GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)

	// UpdateAppointment writes a full appointment row if the stored version
	// still equals expectedVersion, bumping a.Version on success. The
	// double-booking check runs inside the same critical section, excluding
	// the appointment itself.
	UpdateAppointment(ctx context.Context, a *domain.Appointment, expectedVersion int64) error

	ListAppointments(ctx context.Context, f AppointmentFilter) ([]*domain.Appointment, error)

	CreatePayment(ctx context.Context, p *domain.Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetPaymentByAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, p *domain.Payment, expectedVersion int64) error
	ListPayments(ctx context.Context, f PaymentFilter) ([]*domain.Payment, error)
}
