// Package appointment owns the appointment lifecycle: booking, reschedule,
// field edits, status transitions and cancellation, plus the pending payment
// each billable appointment starts with.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acolhe/clinicd_backend/config"
	"github.com/acolhe/clinicd_backend/internal/directory"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/domain/permit"
	"github.com/acolhe/clinicd_backend/internal/events"
	"github.com/acolhe/clinicd_backend/internal/store"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	PsychologistID  uuid.UUID
	PatientID       uuid.UUID
	ClinicID        *uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int // 0 means the configured default
	Modality        domain.Modality
	Notes           *string
	ClinicManaged   bool

	// Pricing for the payment created alongside the appointment.
	FinalValue         decimal.Decimal
	ClinicSharePercent decimal.Decimal
}

type UpdateFieldsRequest struct {
	Modality       *domain.Modality
	Notes          *string
	PsychologistID *uuid.UUID
}

type ListRequest struct {
	PsychologistID *uuid.UUID
	PatientID      *uuid.UUID
	ClinicID       *uuid.UUID
	Status         *domain.AppointmentStatus
	From           *time.Time
	To             *time.Time
	Page           int
	PerPage        int
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Create(ctx context.Context, actor domain.Actor, req CreateRequest) (*domain.Appointment, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Appointment, error)
	List(ctx context.Context, actor domain.Actor, req ListRequest) ([]*domain.Appointment, error)
	Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, newTime time.Time, durationMinutes *int) (*domain.Appointment, error)
	UpdateFields(ctx context.Context, actor domain.Actor, id uuid.UUID, req UpdateFieldsRequest) (*domain.Appointment, error)
	TransitionStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.AppointmentStatus) (*domain.Appointment, error)
	Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason *string) (*domain.Appointment, error)
	// PatientRespond applies a patient's accept or decline to an
	// awaiting_patient appointment. A decline cancels outright or hands the
	// appointment back to the psychologist, depending on configuration.
	PatientRespond(ctx context.Context, actor domain.Actor, id uuid.UUID, accept bool) (*domain.Appointment, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type appointmentService struct {
	db    store.Store
	pub   events.Publisher
	dir   directory.Directory
	clock domain.Clock
	cfg   config.AppointmentsConfig
}

func New(db store.Store, pub events.Publisher, dir directory.Directory, clock domain.Clock, cfg config.AppointmentsConfig) Service {
	return &appointmentService{db: db, pub: pub, dir: dir, clock: clock, cfg: cfg}
}

func (s *appointmentService) Create(ctx context.Context, actor domain.Actor, req CreateRequest) (*domain.Appointment, error) {
	switch actor.Role {
	case domain.RolePsychologist:
		if actor.ID != req.PsychologistID {
			return nil, s.denied(ctx, permit.DenyRequiring("psychologists may only book their own appointments", req.PsychologistID), "create appointment")
		}
	case domain.RoleClinic:
		if req.ClinicID == nil || !actor.ActsForClinic(*req.ClinicID) {
			return nil, s.denied(ctx, permit.Deny("clinic staff may only book within their own clinic"), "create appointment")
		}
	default:
		return nil, s.denied(ctx, permit.Deny("patients cannot book appointments directly"), "create appointment")
	}

	now := s.clock.Now()
	if !req.ScheduledAt.After(now) {
		return nil, fmt.Errorf("scheduled time %s is not in the future: %w", req.ScheduledAt.Format(time.RFC3339), domain.ErrInvalidTimeWindow)
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.defaultDuration()
	}
	if duration < 0 {
		return nil, fmt.Errorf("duration must be positive: %w", domain.ErrInvalidTimeWindow)
	}

	appt := &domain.Appointment{
		ID:              uuid.New(),
		PsychologistID:  req.PsychologistID,
		PatientID:       req.PatientID,
		ClinicID:        req.ClinicID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: duration,
		Modality:        req.Modality,
		Status:          domain.AppointmentPending,
		Notes:           req.Notes,
		ClinicManaged:   req.ClinicManaged,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	payment := domain.NewPayment(appt, req.FinalValue, req.ClinicSharePercent, now)
	appt.PaymentID = &payment.ID

	// One atomic write: a booking must never persist without its payment.
	if err := s.db.CreateAppointmentWithPayment(ctx, appt, payment); err != nil {
		return nil, err
	}

	s.pub.Publish(events.AppointmentCreated, appt.ID)
	s.pub.Publish(events.PaymentCreated, payment.ID)
	return appt, nil
}

func (s *appointmentService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Appointment, error) {
	appt, err := s.db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckAppointment(actor, permit.OpReadAppointment, appt, nil); !d.Allowed {
		return nil, s.denied(ctx, d, "read appointment")
	}
	return appt, nil
}

func (s *appointmentService) List(ctx context.Context, actor domain.Actor, req ListRequest) ([]*domain.Appointment, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}

	f := store.AppointmentFilter{
		PsychologistID: req.PsychologistID,
		PatientID:      req.PatientID,
		ClinicID:       req.ClinicID,
		Status:         req.Status,
		From:           req.From,
		To:             req.To,
		Limit:          req.PerPage,
		Offset:         (req.Page - 1) * req.PerPage,
	}

	// Listings are scoped to the caller regardless of requested filters.
	switch actor.Role {
	case domain.RolePsychologist:
		f.PsychologistID = &actor.ID
	case domain.RolePatient:
		f.PatientID = &actor.ID
	case domain.RoleClinic:
		if actor.ClinicID == nil {
			return nil, s.denied(ctx, permit.Deny("clinic actor has no clinic scope"), "list appointments")
		}
		f.ClinicID = actor.ClinicID
	}

	return s.db.ListAppointments(ctx, f)
}

func (s *appointmentService) Reschedule(ctx context.Context, actor domain.Actor, id uuid.UUID, newTime time.Time, durationMinutes *int) (*domain.Appointment, error) {
	appt, err := s.db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckAppointment(actor, permit.OpRescheduleAppointment, appt, nil); !d.Allowed {
		return nil, s.denied(ctx, d, "reschedule appointment")
	}
	if appt.IsTerminal() {
		return nil, &domain.InvalidStateError{From: string(appt.Status), Attempted: "reschedule"}
	}
	if !newTime.After(s.clock.Now()) {
		return nil, fmt.Errorf("new time %s is not in the future: %w", newTime.Format(time.RFC3339), domain.ErrInvalidTimeWindow)
	}

	appt.ScheduledAt = newTime
	if durationMinutes != nil {
		if *durationMinutes <= 0 {
			return nil, fmt.Errorf("duration must be positive: %w", domain.ErrInvalidTimeWindow)
		}
		appt.DurationMinutes = *durationMinutes
	}
	appt.UpdatedAt = s.clock.Now()

	// The linked payment reflects pricing, not scheduling. It stays put.
	if err := s.write(ctx, appt); err != nil {
		return nil, err
	}

	s.pub.Publish(events.AppointmentRescheduled, appt.ID)
	return appt, nil
}

func (s *appointmentService) UpdateFields(ctx context.Context, actor domain.Actor, id uuid.UUID, req UpdateFieldsRequest) (*domain.Appointment, error) {
	appt, err := s.db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckAppointment(actor, permit.OpUpdateFields, appt, nil); !d.Allowed {
		return nil, s.denied(ctx, d, "update appointment")
	}
	if appt.IsTerminal() {
		return nil, &domain.InvalidStateError{From: string(appt.Status), Attempted: "update fields"}
	}

	if req.Modality != nil {
		appt.Modality = *req.Modality
	}
	if req.Notes != nil {
		appt.Notes = req.Notes
	}
	if req.PsychologistID != nil {
		// Reassignment re-validates double-booking against the new
		// psychologist inside the store's critical section.
		appt.PsychologistID = *req.PsychologistID
	}
	appt.UpdatedAt = s.clock.Now()

	if err := s.write(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *appointmentService) TransitionStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.AppointmentStatus) (*domain.Appointment, error) {
	if !target.Valid() {
		return nil, &domain.InvalidStateError{From: "unknown", Attempted: string(target)}
	}

	appt, err := s.db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckAppointment(actor, permit.OpTransitionStatus, appt, &target); !d.Allowed {
		return nil, s.denied(ctx, d, "transition appointment")
	}
	if !appt.Status.CanTransitionTo(target) {
		return nil, &domain.InvalidStateError{From: string(appt.Status), Attempted: string(target)}
	}

	appt.Status = target
	appt.UpdatedAt = s.clock.Now()

	if err := s.write(ctx, appt); err != nil {
		return nil, err
	}

	s.publishTransition(appt)
	return appt, nil
}

func (s *appointmentService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason *string) (*domain.Appointment, error) {
	appt, err := s.db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckAppointment(actor, permit.OpCancelAppointment, appt, nil); !d.Allowed {
		return nil, s.denied(ctx, d, "cancel appointment")
	}

	// Repeat cancellation is a no-op success.
	if appt.Status == domain.AppointmentCancelled {
		return appt, nil
	}
	if appt.IsTerminal() {
		return nil, &domain.InvalidStateError{From: string(appt.Status), Attempted: string(domain.AppointmentCancelled)}
	}

	appt.Status = domain.AppointmentCancelled
	if reason != nil {
		appt.Notes = mergeCancelReason(appt.Notes, *reason)
	}
	appt.UpdatedAt = s.clock.Now()

	if err := s.write(ctx, appt); err != nil {
		return nil, err
	}

	s.pub.Publish(events.AppointmentCancelled, appt.ID)
	return appt, nil
}

func (s *appointmentService) PatientRespond(ctx context.Context, actor domain.Actor, id uuid.UUID, accept bool) (*domain.Appointment, error) {
	if !accept && s.cfg.AutoCancelOnPatientDecline {
		return s.declineCancel(ctx, actor, id)
	}
	target := domain.AppointmentConfirmed
	if !accept {
		target = domain.AppointmentAwaitingPsychologist
	}
	return s.TransitionStatus(ctx, actor, id, target)
}

// declineCancel cancels an awaited appointment on the patient's decline when
// the clinic policy says so. The transition guard never lets patients request
// cancellation directly, so the respond flow carries its own checks.
func (s *appointmentService) declineCancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Appointment, error) {
	appt, err := s.db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RolePatient || actor.ID != appt.PatientID {
		return nil, s.denied(ctx, permit.DenyRequiring("only the awaited patient may respond", appt.PatientID), "respond to appointment")
	}
	if appt.Status != domain.AppointmentAwaitingPatient {
		return nil, &domain.InvalidStateError{From: string(appt.Status), Attempted: string(domain.AppointmentCancelled)}
	}

	appt.Status = domain.AppointmentCancelled
	appt.UpdatedAt = s.clock.Now()

	if err := s.write(ctx, appt); err != nil {
		return nil, err
	}

	s.pub.Publish(events.AppointmentCancelled, appt.ID)
	return appt, nil
}

// write persists an updated appointment, translating a lost optimistic race
// into a Conflict carrying the entity's current state.
func (s *appointmentService) write(ctx context.Context, appt *domain.Appointment) error {
	err := s.db.UpdateAppointment(ctx, appt, appt.Version)
	if errors.Is(err, store.ErrVersionMismatch) {
		current, getErr := s.db.GetAppointment(ctx, appt.ID)
		if getErr != nil {
			return domain.NewConflict("unknown")
		}
		return domain.NewConflict(string(current.Status))
	}
	return err
}

func (s *appointmentService) publishTransition(appt *domain.Appointment) {
	switch appt.Status {
	case domain.AppointmentConfirmed:
		s.pub.Publish(events.AppointmentConfirmed, appt.ID)
	case domain.AppointmentCancelled:
		s.pub.Publish(events.AppointmentCancelled, appt.ID)
	case domain.AppointmentCompleted:
		s.pub.Publish(events.AppointmentCompleted, appt.ID)
	case domain.AppointmentNoShow:
		s.pub.Publish(events.AppointmentNoShow, appt.ID)
	}
}

// denied turns a guard decision into a PermissionDeniedError, resolving the
// required actor's display name when the directory knows it.
func (s *appointmentService) denied(ctx context.Context, d permit.Decision, op string) error {
	e := &domain.PermissionDeniedError{Operation: op, Reason: d.Reason}
	if d.RequiredActorID != uuid.Nil {
		name, err := s.dir.DisplayName(ctx, d.RequiredActorID)
		if err != nil || name == "" {
			name = d.RequiredActorID.String()
		}
		e.RequiredActor = name
	}
	return e
}

func (s *appointmentService) defaultDuration() int {
	if s.cfg.DefaultDurationMinutes > 0 {
		return s.cfg.DefaultDurationMinutes
	}
	return domain.DefaultDurationMinutes
}

func mergeCancelReason(notes *string, reason string) *string {
	if reason == "" {
		return notes
	}
	text := "cancelled: " + reason
	if notes != nil && *notes != "" {
		text = *notes + "\n" + text
	}
	return &text
}
