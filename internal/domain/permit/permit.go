// Package permit decides which actor may perform which transition on which
// entity. It is a pure capability lookup over (role, operation, entity
// snapshot): no storage, no clock, fully unit-testable. Route-level RBAC
// (pkg/authorize) gates the coarse surface; this package owns the
// role-conditioned transition rules.
package permit

import (
	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/domain"
)

type Operation string

const (
	OpReadAppointment       Operation = "appointment.read"
	OpRescheduleAppointment Operation = "appointment.reschedule"
	OpUpdateFields          Operation = "appointment.update_fields"
	OpTransitionStatus      Operation = "appointment.transition_status"
	OpCancelAppointment     Operation = "appointment.cancel"

	OpReadPayment     Operation = "payment.read"
	OpRegisterMethod  Operation = "payment.register_method"
	OpConfirmPayment  Operation = "payment.confirm"
	OpCancelPayment   Operation = "payment.cancel"
	OpRefundPayment   Operation = "payment.refund"
	OpReadSummary     Operation = "finance.read_summary"
)

// Decision is Allow, or Deny with a reason and (when known) the principal
// who is authorized instead. The denial is structured so callers can render
// a next step, never a silent no-op.
type Decision struct {
	Allowed         bool
	Reason          string
	RequiredActorID uuid.UUID
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

func DenyRequiring(reason string, required uuid.UUID) Decision {
	return Decision{Reason: reason, RequiredActorID: required}
}

// CheckAppointment authorizes op for actor against the current appointment
// snapshot. target is the requested status for OpTransitionStatus and nil
// otherwise.
func CheckAppointment(actor domain.Actor, op Operation, appt *domain.Appointment, target *domain.AppointmentStatus) Decision {
	switch actor.Role {
	case domain.RolePsychologist:
		if actor.ID != appt.PsychologistID {
			return DenyRequiring("appointment belongs to another psychologist", appt.PsychologistID)
		}
		// Confirming an appointment the patient is awaited on is the
		// patient's move; cross-role confirmation is denied, not absorbed.
		if op == OpTransitionStatus && target != nil &&
			*target == domain.AppointmentConfirmed && appt.Status == domain.AppointmentAwaitingPatient {
			return DenyRequiring("awaiting patient confirmation", appt.PatientID)
		}
		return Allow()

	case domain.RoleClinic:
		if appt.ClinicID == nil || !actor.ActsForClinic(*appt.ClinicID) {
			return Deny("appointment is not managed by this clinic")
		}
		switch op {
		case OpReadAppointment, OpUpdateFields:
			// Reassignment and field edits stay within clinic powers.
			return Allow()
		case OpRescheduleAppointment, OpTransitionStatus, OpCancelAppointment:
			if !appt.ClinicManaged {
				return DenyRequiring("psychologist has not delegated appointment management", appt.PsychologistID)
			}
			if op == OpTransitionStatus && target != nil &&
				*target == domain.AppointmentConfirmed && appt.Status == domain.AppointmentAwaitingPatient {
				return DenyRequiring("awaiting patient confirmation", appt.PatientID)
			}
			return Allow()
		}
		return Deny("operation not available to clinic staff")

	case domain.RolePatient:
		if actor.ID != appt.PatientID {
			return Deny("appointment belongs to another patient")
		}
		if op == OpReadAppointment {
			return Allow()
		}
		// Patients only accept or hand back while their response is awaited.
		// Cancellation is never a direct patient transition: the respond flow
		// applies the clinic's decline policy itself.
		if op == OpTransitionStatus && appt.Status == domain.AppointmentAwaitingPatient && target != nil {
			switch *target {
			case domain.AppointmentConfirmed, domain.AppointmentAwaitingPsychologist:
				return Allow()
			}
		}
		return DenyRequiring("patients may only accept or decline a pending request", appt.PsychologistID)
	}
	return Deny("unknown actor role")
}

// CheckPayment authorizes op for actor against the payment snapshot.
func CheckPayment(actor domain.Actor, op Operation, p *domain.Payment) Decision {
	switch actor.Role {
	case domain.RolePsychologist:
		if actor.ID != p.PsychologistID {
			return DenyRequiring("payment belongs to another psychologist", p.PsychologistID)
		}
		switch op {
		case OpReadPayment, OpRegisterMethod, OpCancelPayment:
			return Allow()
		case OpConfirmPayment, OpRefundPayment:
			// Clinic-affiliated payments are confirmed by clinic staff once
			// awaiting confirmation; independent ones by the psychologist.
			if p.ClinicAffiliated() {
				return DenyRequiring("clinic confirmation required for clinic-affiliated payments", *p.ClinicID)
			}
			return Allow()
		}
		return Deny("operation not available to psychologists")

	case domain.RoleClinic:
		if !p.ClinicAffiliated() || !actor.ActsForClinic(*p.ClinicID) {
			return DenyRequiring("payment is not managed by this clinic", p.PsychologistID)
		}
		switch op {
		case OpReadPayment, OpRegisterMethod, OpConfirmPayment, OpCancelPayment, OpRefundPayment:
			return Allow()
		}
		return Deny("operation not available to clinic staff")

	case domain.RolePatient:
		if op == OpReadPayment && actor.ID == p.PatientID {
			return Allow()
		}
		return DenyRequiring("patients cannot mutate payments", p.PsychologistID)
	}
	return Deny("unknown actor role")
}

// CheckSummary authorizes a financial summary read for a clinic or
// psychologist scope.
func CheckSummary(actor domain.Actor, clinicID, psychologistID *uuid.UUID) Decision {
	switch actor.Role {
	case domain.RoleClinic:
		if clinicID != nil && actor.ActsForClinic(*clinicID) {
			return Allow()
		}
		return Deny("summary scope is outside this clinic")
	case domain.RolePsychologist:
		if psychologistID != nil && *psychologistID == actor.ID && clinicID == nil {
			return Allow()
		}
		return Deny("psychologists may only read their own summary")
	}
	return Deny("financial summaries are not available to patients")
}
