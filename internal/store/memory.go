package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/domain"
)

// Memory is an in-memory Store for tests and local development. A single
// mutex makes the overlap check and the write one critical section, which
// is the same guarantee the Postgres implementation gets from its
// per-psychologist advisory lock.
type Memory struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*domain.Appointment
	payments     map[uuid.UUID]*domain.Payment
}

func NewMemory() *Memory {
	return &Memory{
		appointments: make(map[uuid.UUID]*domain.Appointment),
		payments:     make(map[uuid.UUID]*domain.Payment),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateAppointment(_ context.Context, a *domain.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.OccupiesSlot() {
		if conflict := m.overlappingLocked(a); conflict != nil {
			return &domain.DoubleBookingError{
				PsychologistID:           a.PsychologistID,
				ConflictingAppointmentID: conflict.ID,
			}
		}
	}

	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *Memory) CreateAppointmentWithPayment(_ context.Context, a *domain.Appointment, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.OccupiesSlot() {
		if conflict := m.overlappingLocked(a); conflict != nil {
			return &domain.DoubleBookingError{
				PsychologistID:           a.PsychologistID,
				ConflictingAppointmentID: conflict.ID,
			}
		}
	}
	// Validate both inserts before applying either, the in-memory stand-in
	// for a transaction.
	if _, exists := m.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	if _, exists := m.appointments[a.ID]; exists {
		return fmt.Errorf("appointment %s already exists", a.ID)
	}

	ca := *a
	cp := *p
	m.appointments[a.ID] = &ca
	m.payments[p.ID] = &cp
	return nil
}

func (m *Memory) GetAppointment(_ context.Context, id uuid.UUID) (*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) UpdateAppointment(_ context.Context, a *domain.Appointment, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.appointments[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionMismatch
	}

	if a.OccupiesSlot() {
		if conflict := m.overlappingLocked(a); conflict != nil {
			return &domain.DoubleBookingError{
				PsychologistID:           a.PsychologistID,
				ConflictingAppointmentID: conflict.ID,
			}
		}
	}

	a.Version = expectedVersion + 1
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

// overlappingLocked returns a non-cancelled appointment of the same
// psychologist whose window intersects a's, excluding a itself.
func (m *Memory) overlappingLocked(a *domain.Appointment) *domain.Appointment {
	for _, other := range m.appointments {
		if other.ID == a.ID || other.PsychologistID != a.PsychologistID {
			continue
		}
		if other.OccupiesSlot() && other.Overlaps(a) {
			return other
		}
	}
	return nil
}

func (m *Memory) ListAppointments(_ context.Context, f AppointmentFilter) ([]*domain.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Appointment
	for _, a := range m.appointments {
		if !matchAppointment(a, f) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchAppointment(a *domain.Appointment, f AppointmentFilter) bool {
	if f.PsychologistID != nil && a.PsychologistID != *f.PsychologistID {
		return false
	}
	if f.PatientID != nil && a.PatientID != *f.PatientID {
		return false
	}
	if f.ClinicID != nil && (a.ClinicID == nil || *a.ClinicID != *f.ClinicID) {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.From != nil && a.ScheduledAt.Before(*f.From) {
		return false
	}
	if f.To != nil && a.ScheduledAt.After(*f.To) {
		return false
	}
	return true
}

func (m *Memory) CreatePayment(_ context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) GetPaymentByAppointment(_ context.Context, appointmentID uuid.UUID) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.payments {
		if p.AppointmentID == appointmentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) UpdatePayment(_ context.Context, p *domain.Payment, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.payments[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionMismatch
	}

	p.Version = expectedVersion + 1
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *Memory) ListPayments(_ context.Context, f PaymentFilter) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Payment
	for _, p := range m.payments {
		if !matchPayment(p, f) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matchPayment(p *domain.Payment, f PaymentFilter) bool {
	if f.ClinicID != nil && (p.ClinicID == nil || *p.ClinicID != *f.ClinicID) {
		return false
	}
	if f.PsychologistID != nil && p.PsychologistID != *f.PsychologistID {
		return false
	}
	if f.From != nil && p.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && p.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
