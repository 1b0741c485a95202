package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending              PaymentStatus = "pending"
	PaymentAwaitingConfirmation PaymentStatus = "awaiting_confirmation"
	PaymentConfirmed            PaymentStatus = "confirmed"
	PaymentCancelled            PaymentStatus = "cancelled"
	PaymentRefunded             PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodPix          PaymentMethod = "pix"
	MethodCash         PaymentMethod = "cash"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPix, MethodCash, MethodCreditCard, MethodDebitCard, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:              {PaymentAwaitingConfirmation, PaymentCancelled},
	PaymentAwaitingConfirmation: {PaymentConfirmed, PaymentCancelled},
	PaymentConfirmed:            {PaymentRefunded},
}

func (s PaymentStatus) IsTerminal() bool {
	_, ok := paymentTransitions[s]
	return !ok
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, t := range paymentTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Payment mirrors one appointment (1:1). The split is computed once at
// creation and both shares are stored; they are never re-derived from
// aggregates or rounded independently.
type Payment struct {
	ID                 uuid.UUID
	AppointmentID      uuid.UUID
	PatientID          uuid.UUID
	PsychologistID     uuid.UUID
	ClinicID           *uuid.UUID // absent when the psychologist has no clinic affiliation
	FinalValue         decimal.Decimal
	ClinicAmount       decimal.Decimal
	PsychologistAmount decimal.Decimal
	ClinicSharePercent decimal.Decimal // stored at creation, 0 when no clinic
	Status             PaymentStatus
	Method             *PaymentMethod // set when status first leaves pending
	CancelReason       *string
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ComputeSplit divides finalValue between clinic and psychologist. The
// clinic amount is rounded to cents and the psychologist amount is the
// remainder by subtraction, so the two always sum to finalValue exactly.
func ComputeSplit(finalValue, clinicSharePercent decimal.Decimal) (clinicAmount, psychologistAmount decimal.Decimal) {
	clinicAmount = finalValue.Mul(clinicSharePercent).Div(decimal.NewFromInt(100)).Round(2)
	psychologistAmount = finalValue.Sub(clinicAmount)
	return clinicAmount, psychologistAmount
}

// NewPayment builds the pending payment for a billable appointment.
// When clinicID is nil the psychologist keeps the full value.
func NewPayment(appt *Appointment, finalValue, clinicSharePercent decimal.Decimal, now time.Time) *Payment {
	p := &Payment{
		ID:             uuid.New(),
		AppointmentID:  appt.ID,
		PatientID:      appt.PatientID,
		PsychologistID: appt.PsychologistID,
		ClinicID:       appt.ClinicID,
		FinalValue:     finalValue,
		Status:         PaymentPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if appt.ClinicID != nil {
		p.ClinicSharePercent = clinicSharePercent
		p.ClinicAmount, p.PsychologistAmount = ComputeSplit(finalValue, clinicSharePercent)
	} else {
		p.ClinicSharePercent = decimal.Zero
		p.ClinicAmount = decimal.Zero
		p.PsychologistAmount = finalValue
	}
	return p
}

// ClinicAffiliated reports whether confirmation is reserved for clinic staff.
func (p *Payment) ClinicAffiliated() bool { return p.ClinicID != nil }
