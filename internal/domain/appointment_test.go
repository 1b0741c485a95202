package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	tests := []struct {
		from AppointmentStatus
		to   AppointmentStatus
		want bool
	}{
		{AppointmentPending, AppointmentAwaitingPatient, true},
		{AppointmentPending, AppointmentConfirmed, true},
		{AppointmentPending, AppointmentCancelled, true},
		{AppointmentPending, AppointmentCompleted, false},
		{AppointmentScheduled, AppointmentConfirmed, true},
		{AppointmentAwaitingPatient, AppointmentConfirmed, true},
		{AppointmentAwaitingPatient, AppointmentAwaitingPsychologist, true},
		{AppointmentAwaitingPatient, AppointmentCompleted, false},
		{AppointmentAwaitingPsychologist, AppointmentConfirmed, true},
		{AppointmentAwaitingPsychologist, AppointmentAwaitingPatient, false},
		{AppointmentConfirmed, AppointmentCompleted, true},
		{AppointmentConfirmed, AppointmentNoShow, true},
		{AppointmentConfirmed, AppointmentCancelled, true},
		{AppointmentConfirmed, AppointmentPending, false},
		{AppointmentCompleted, AppointmentCancelled, false},
		{AppointmentCancelled, AppointmentPending, false},
		{AppointmentNoShow, AppointmentConfirmed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAppointmentStatusIsTerminal(t *testing.T) {
	terminal := []AppointmentStatus{AppointmentCompleted, AppointmentCancelled, AppointmentNoShow}
	active := []AppointmentStatus{
		AppointmentPending, AppointmentScheduled, AppointmentAwaitingPatient,
		AppointmentAwaitingPsychologist, AppointmentConfirmed,
	}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestAppointmentOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	mk := func(start time.Time, minutes int) *Appointment {
		return &Appointment{ID: uuid.New(), ScheduledAt: start, DurationMinutes: minutes}
	}

	tests := []struct {
		name string
		a    *Appointment
		b    *Appointment
		want bool
	}{
		{"identical windows", mk(base, 50), mk(base, 50), true},
		{"partial overlap", mk(base, 50), mk(base.Add(30*time.Minute), 50), true},
		{"contained window", mk(base, 60), mk(base.Add(10*time.Minute), 20), true},
		{"back to back", mk(base, 50), mk(base.Add(50*time.Minute), 50), false},
		{"disjoint", mk(base, 50), mk(base.Add(2*time.Hour), 50), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("reverse Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppointmentOccupiesSlot(t *testing.T) {
	for _, s := range []AppointmentStatus{
		AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentNoShow,
	} {
		a := &Appointment{Status: s}
		if !a.OccupiesSlot() {
			t.Errorf("%s should occupy its slot", s)
		}
	}

	cancelled := &Appointment{Status: AppointmentCancelled}
	if cancelled.OccupiesSlot() {
		t.Error("cancelled appointment should release its slot")
	}
}
