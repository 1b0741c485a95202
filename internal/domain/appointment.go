package domain

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending              AppointmentStatus = "pending"
	AppointmentScheduled            AppointmentStatus = "scheduled"
	AppointmentAwaitingPatient      AppointmentStatus = "awaiting_patient"
	AppointmentAwaitingPsychologist AppointmentStatus = "awaiting_psychologist"
	AppointmentConfirmed            AppointmentStatus = "confirmed"
	AppointmentCompleted            AppointmentStatus = "completed"
	AppointmentCancelled            AppointmentStatus = "cancelled"
	AppointmentNoShow               AppointmentStatus = "no_show"
)

type Modality string

const (
	ModalityOnline   Modality = "online"
	ModalityInPerson Modality = "in_person"
)

const DefaultDurationMinutes = 50

// appointmentTransitions is the status table. Absent source means terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:              {AppointmentAwaitingPatient, AppointmentAwaitingPsychologist, AppointmentConfirmed, AppointmentCancelled},
	AppointmentScheduled:            {AppointmentAwaitingPatient, AppointmentAwaitingPsychologist, AppointmentConfirmed, AppointmentCancelled},
	AppointmentAwaitingPatient:      {AppointmentConfirmed, AppointmentCancelled, AppointmentAwaitingPsychologist},
	AppointmentAwaitingPsychologist: {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed:            {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

func (s AppointmentStatus) IsTerminal() bool {
	_, ok := appointmentTransitions[s]
	return !ok
}

func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	for _, t := range appointmentTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentScheduled, AppointmentAwaitingPatient,
		AppointmentAwaitingPsychologist, AppointmentConfirmed,
		AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

// Appointment is the scheduling aggregate. Version backs the optimistic
// concurrency check: every successful write bumps it, and writers racing on
// a stale version lose with a Conflict.
type Appointment struct {
	ID              uuid.UUID
	PsychologistID  uuid.UUID
	PatientID       uuid.UUID
	ClinicID        *uuid.UUID // nil for direct psychologist-patient relationships
	ScheduledAt     time.Time
	DurationMinutes int
	Modality        Modality
	Status          AppointmentStatus
	Notes           *string
	PaymentID       *uuid.UUID
	// ClinicManaged is the delegation flag: true when the owning
	// psychologist allows clinic staff to mutate status and time.
	ClinicManaged bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a *Appointment) Window() (start, end time.Time) {
	return a.ScheduledAt, a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two half-open [start, end) windows intersect.
func (a *Appointment) Overlaps(other *Appointment) bool {
	aStart, aEnd := a.Window()
	bStart, bEnd := other.Window()
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OccupiesSlot reports whether the appointment counts for double-booking:
// cancelled appointments release their window, everything else holds it.
func (a *Appointment) OccupiesSlot() bool {
	return a.Status != AppointmentCancelled
}

func (a *Appointment) IsTerminal() bool { return a.Status.IsTerminal() }
