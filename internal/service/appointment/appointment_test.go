package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acolhe/clinicd_backend/config"
	"github.com/acolhe/clinicd_backend/internal/directory"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/events"
	"github.com/acolhe/clinicd_backend/internal/store"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(e events.Event, _ uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *capturePublisher) has(e events.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, got := range p.events {
		if got == e {
			return true
		}
	}
	return false
}

type fixture struct {
	svc   Service
	db    *store.Memory
	pub   *capturePublisher
	now   time.Time
	psych domain.Actor
}

func newFixture(t *testing.T, cfg config.AppointmentsConfig) *fixture {
	t.Helper()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	db := store.NewMemory()
	pub := &capturePublisher{}
	svc := New(db, pub, directory.NewStatic(nil), domain.FixedClock{T: now}, cfg)
	return &fixture{
		svc:   svc,
		db:    db,
		pub:   pub,
		now:   now,
		psych: domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist},
	}
}

func (f *fixture) createRequest() CreateRequest {
	return CreateRequest{
		PsychologistID: f.psych.ID,
		PatientID:      uuid.New(),
		ScheduledAt:    f.now.Add(24 * time.Hour),
		Modality:       domain.ModalityOnline,
		FinalValue:     decimal.NewFromInt(150),
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates appointment with linked pending payment", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, err := f.svc.Create(ctx, f.psych, f.createRequest())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if appt.Status != domain.AppointmentPending {
			t.Errorf("status = %s, want pending", appt.Status)
		}
		if appt.DurationMinutes != domain.DefaultDurationMinutes {
			t.Errorf("duration = %d, want default %d", appt.DurationMinutes, domain.DefaultDurationMinutes)
		}
		if appt.PaymentID == nil {
			t.Fatal("no linked payment")
		}
		p, err := f.db.GetPayment(ctx, *appt.PaymentID)
		if err != nil {
			t.Fatalf("linked payment not stored: %v", err)
		}
		if p.Status != domain.PaymentPending {
			t.Errorf("payment status = %s, want pending", p.Status)
		}
		if !f.pub.has(events.AppointmentCreated) || !f.pub.has(events.PaymentCreated) {
			t.Error("creation events not published")
		}
	})

	t.Run("rejects past time", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		req := f.createRequest()
		req.ScheduledAt = f.now.Add(-time.Hour)
		if _, err := f.svc.Create(ctx, f.psych, req); !errors.Is(err, domain.ErrInvalidTimeWindow) {
			t.Errorf("error = %v, want ErrInvalidTimeWindow", err)
		}
	})

	t.Run("rejects present time", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		req := f.createRequest()
		req.ScheduledAt = f.now
		if _, err := f.svc.Create(ctx, f.psych, req); !errors.Is(err, domain.ErrInvalidTimeWindow) {
			t.Errorf("error = %v, want ErrInvalidTimeWindow", err)
		}
	})

	t.Run("psychologist cannot book for someone else", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		req := f.createRequest()
		req.PsychologistID = uuid.New()
		if _, err := f.svc.Create(ctx, f.psych, req); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("patient cannot book", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		patient := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
		if _, err := f.svc.Create(ctx, patient, f.createRequest()); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("overlapping slot reports the conflicting appointment", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		first, err := f.svc.Create(ctx, f.psych, f.createRequest())
		if err != nil {
			t.Fatalf("create first: %v", err)
		}
		req := f.createRequest()
		req.ScheduledAt = first.ScheduledAt.Add(20 * time.Minute)

		var dbe *domain.DoubleBookingError
		_, err = f.svc.Create(ctx, f.psych, req)
		if !errors.As(err, &dbe) {
			t.Fatalf("error = %v, want DoubleBookingError", err)
		}
		if dbe.ConflictingAppointmentID != first.ID {
			t.Errorf("conflicting id = %s, want %s", dbe.ConflictingAppointmentID, first.ID)
		}
	})
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the window", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		newTime := appt.ScheduledAt.Add(2 * time.Hour)
		got, err := f.svc.Reschedule(ctx, f.psych, appt.ID, newTime, nil)
		if err != nil {
			t.Fatalf("reschedule: %v", err)
		}
		if !got.ScheduledAt.Equal(newTime) {
			t.Errorf("scheduled at = %s, want %s", got.ScheduledAt, newTime)
		}
		if !f.pub.has(events.AppointmentRescheduled) {
			t.Error("reschedule event not published")
		}
	})

	t.Run("small shift does not collide with itself", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		if _, err := f.svc.Reschedule(ctx, f.psych, appt.ID, appt.ScheduledAt.Add(10*time.Minute), nil); err != nil {
			t.Fatalf("reschedule into own window: %v", err)
		}
	})

	t.Run("terminal appointment cannot move", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())
		if _, err := f.svc.Cancel(ctx, f.psych, appt.ID, nil); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		_, err := f.svc.Reschedule(ctx, f.psych, appt.ID, appt.ScheduledAt.Add(time.Hour), nil)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("denial names the owning psychologist", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		dir := directory.NewStatic(map[uuid.UUID]string{f.psych.ID: "Alice Souza"})
		svc := New(f.db, f.pub, dir, domain.FixedClock{T: f.now}, config.AppointmentsConfig{})
		appt, err := svc.Create(ctx, f.psych, f.createRequest())
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		stranger := domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist}
		var pde *domain.PermissionDeniedError
		_, err = svc.Reschedule(ctx, stranger, appt.ID, appt.ScheduledAt.Add(time.Hour), nil)
		if !errors.As(err, &pde) {
			t.Fatalf("error = %v, want PermissionDeniedError", err)
		}
		if pde.RequiredActor != "Alice Souza" {
			t.Errorf("required actor = %q, want the directory display name", pde.RequiredActor)
		}
	})

	t.Run("permission is checked before state", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())
		f.svc.Cancel(ctx, f.psych, appt.ID, nil)

		// A foreign actor on a terminal appointment sees the denial,
		// not the state error.
		stranger := domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist}
		_, err := f.svc.Reschedule(ctx, stranger, appt.ID, appt.ScheduledAt.Add(time.Hour), nil)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})
}

func TestTransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("valid chain to completed", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		for _, target := range []domain.AppointmentStatus{domain.AppointmentConfirmed, domain.AppointmentCompleted} {
			got, err := f.svc.TransitionStatus(ctx, f.psych, appt.ID, target)
			if err != nil {
				t.Fatalf("transition to %s: %v", target, err)
			}
			if got.Status != target {
				t.Errorf("status = %s, want %s", got.Status, target)
			}
		}
		if !f.pub.has(events.AppointmentCompleted) {
			t.Error("completion event not published")
		}
	})

	t.Run("illegal transition names both states", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		var ise *domain.InvalidStateError
		_, err := f.svc.TransitionStatus(ctx, f.psych, appt.ID, domain.AppointmentCompleted)
		if !errors.As(err, &ise) {
			t.Fatalf("error = %v, want InvalidStateError", err)
		}
		if ise.From != string(domain.AppointmentPending) || ise.Attempted != string(domain.AppointmentCompleted) {
			t.Errorf("got %s -> %s in error", ise.From, ise.Attempted)
		}
	})

	t.Run("stale writer gets conflict with current state", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		racing := &racingStore{Memory: f.db}
		svc := New(racing, f.pub, directory.NewStatic(nil), domain.FixedClock{T: f.now}, config.AppointmentsConfig{})

		var conflict *domain.ConflictError
		_, err := svc.TransitionStatus(ctx, f.psych, appt.ID, domain.AppointmentConfirmed)
		if !errors.As(err, &conflict) {
			t.Fatalf("error = %v, want ConflictError", err)
		}
		if conflict.CurrentState != string(domain.AppointmentPending) {
			t.Errorf("current state = %s, want pending", conflict.CurrentState)
		}
		if conflict.Suggestion != "reload and retry" {
			t.Errorf("suggestion = %q", conflict.Suggestion)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel then repeat is a no-op success", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		first, err := f.svc.Cancel(ctx, f.psych, appt.ID, strPtr("patient sick"))
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if first.Status != domain.AppointmentCancelled {
			t.Errorf("status = %s, want cancelled", first.Status)
		}

		second, err := f.svc.Cancel(ctx, f.psych, appt.ID, strPtr("again"))
		if err != nil {
			t.Fatalf("repeat cancel: %v", err)
		}
		if second.Version != first.Version {
			t.Errorf("repeat cancel bumped version %d -> %d", first.Version, second.Version)
		}
	})

	t.Run("completed appointment cannot be cancelled", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())
		f.svc.TransitionStatus(ctx, f.psych, appt.ID, domain.AppointmentConfirmed)
		f.svc.TransitionStatus(ctx, f.psych, appt.ID, domain.AppointmentCompleted)

		if _, err := f.svc.Cancel(ctx, f.psych, appt.ID, nil); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("cancelled slot is bookable again", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		appt, _ := f.svc.Create(ctx, f.psych, f.createRequest())
		f.svc.Cancel(ctx, f.psych, appt.ID, nil)

		req := f.createRequest()
		req.ScheduledAt = appt.ScheduledAt
		if _, err := f.svc.Create(ctx, f.psych, req); err != nil {
			t.Fatalf("rebooking freed slot: %v", err)
		}
	})
}

func TestPatientRespond(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, cfg config.AppointmentsConfig) (*fixture, *domain.Appointment, domain.Actor) {
		t.Helper()
		f := newFixture(t, cfg)
		appt, err := f.svc.Create(ctx, f.psych, f.createRequest())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := f.svc.TransitionStatus(ctx, f.psych, appt.ID, domain.AppointmentAwaitingPatient); err != nil {
			t.Fatalf("to awaiting_patient: %v", err)
		}
		return f, appt, domain.Actor{ID: appt.PatientID, Role: domain.RolePatient}
	}

	t.Run("accept confirms", func(t *testing.T) {
		f, appt, patient := setup(t, config.AppointmentsConfig{})
		got, err := f.svc.PatientRespond(ctx, patient, appt.ID, true)
		if err != nil {
			t.Fatalf("respond: %v", err)
		}
		if got.Status != domain.AppointmentConfirmed {
			t.Errorf("status = %s, want confirmed", got.Status)
		}
	})

	t.Run("decline cancels when auto-cancel is on", func(t *testing.T) {
		f, appt, patient := setup(t, config.AppointmentsConfig{AutoCancelOnPatientDecline: true})
		got, err := f.svc.PatientRespond(ctx, patient, appt.ID, false)
		if err != nil {
			t.Fatalf("respond: %v", err)
		}
		if got.Status != domain.AppointmentCancelled {
			t.Errorf("status = %s, want cancelled", got.Status)
		}
		if !f.pub.has(events.AppointmentCancelled) {
			t.Error("cancellation event not published")
		}
	})

	t.Run("patient cannot cancel through the status endpoint", func(t *testing.T) {
		f, appt, patient := setup(t, config.AppointmentsConfig{})
		_, err := f.svc.TransitionStatus(ctx, patient, appt.ID, domain.AppointmentCancelled)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
		got, _ := f.db.GetAppointment(ctx, appt.ID)
		if got.Status != domain.AppointmentAwaitingPatient {
			t.Errorf("status = %s, the appointment must stay awaited", got.Status)
		}
	})

	t.Run("auto-cancel policy does not open the status endpoint", func(t *testing.T) {
		f, appt, patient := setup(t, config.AppointmentsConfig{AutoCancelOnPatientDecline: true})
		_, err := f.svc.TransitionStatus(ctx, patient, appt.ID, domain.AppointmentCancelled)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("only the awaited patient declines under auto-cancel", func(t *testing.T) {
		f, appt, _ := setup(t, config.AppointmentsConfig{AutoCancelOnPatientDecline: true})
		other := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
		_, err := f.svc.PatientRespond(ctx, other, appt.ID, false)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("decline hands back to psychologist by default", func(t *testing.T) {
		f, appt, patient := setup(t, config.AppointmentsConfig{})
		got, err := f.svc.PatientRespond(ctx, patient, appt.ID, false)
		if err != nil {
			t.Fatalf("respond: %v", err)
		}
		if got.Status != domain.AppointmentAwaitingPsychologist {
			t.Errorf("status = %s, want awaiting_psychologist", got.Status)
		}
	})

	t.Run("psychologist cannot answer for the patient", func(t *testing.T) {
		f, appt, _ := setup(t, config.AppointmentsConfig{})
		_, err := f.svc.PatientRespond(ctx, f.psych, appt.ID, true)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()

	t.Run("psychologist sees only their own", func(t *testing.T) {
		f := newFixture(t, config.AppointmentsConfig{})
		mine, _ := f.svc.Create(ctx, f.psych, f.createRequest())

		other := domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist}
		req := f.createRequest()
		req.PsychologistID = other.ID
		if _, err := f.svc.Create(ctx, other, req); err != nil {
			t.Fatalf("create other: %v", err)
		}

		// Even asking for the other psychologist's listings, the filter is
		// forced back to the caller.
		got, err := f.svc.List(ctx, f.psych, ListRequest{PsychologistID: &other.ID})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != mine.ID {
			t.Errorf("listing leaked appointments outside caller scope")
		}
	})
}

// racingStore loses every appointment write, as if another writer always
// slips in between load and update.
type racingStore struct {
	*store.Memory
}

func (r *racingStore) UpdateAppointment(context.Context, *domain.Appointment, int64) error {
	return store.ErrVersionMismatch
}

func strPtr(s string) *string { return &s }
