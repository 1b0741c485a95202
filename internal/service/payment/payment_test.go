package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acolhe/clinicd_backend/internal/directory"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/events"
	"github.com/acolhe/clinicd_backend/internal/store"
)

type fixture struct {
	svc      Service
	db       *store.Memory
	now      time.Time
	psych    domain.Actor
	patient  domain.Actor
	staff    domain.Actor
	clinicID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	db := store.NewMemory()
	clinicID := uuid.New()
	return &fixture{
		svc:      New(db, events.Nop{}, directory.NewStatic(nil), domain.FixedClock{T: now}),
		db:       db,
		now:      now,
		psych:    domain.Actor{ID: uuid.New(), Role: domain.RolePsychologist},
		patient:  domain.Actor{ID: uuid.New(), Role: domain.RolePatient},
		staff:    domain.Actor{ID: uuid.New(), Role: domain.RoleClinic, ClinicID: &clinicID},
		clinicID: clinicID,
	}
}

// seed stores a payment in the given status. Affiliated payments belong to
// the fixture clinic.
func (f *fixture) seed(t *testing.T, status domain.PaymentStatus, affiliated bool) *domain.Payment {
	t.Helper()
	p := &domain.Payment{
		ID:                 uuid.New(),
		AppointmentID:      uuid.New(),
		PatientID:          f.patient.ID,
		PsychologistID:     f.psych.ID,
		FinalValue:         decimal.NewFromInt(150),
		PsychologistAmount: decimal.NewFromInt(150),
		Status:             status,
		Version:            1,
		CreatedAt:          f.now,
		UpdatedAt:          f.now,
	}
	if affiliated {
		p.ClinicID = &f.clinicID
		p.ClinicSharePercent = decimal.NewFromInt(30)
		p.ClinicAmount, p.PsychologistAmount = domain.ComputeSplit(p.FinalValue, p.ClinicSharePercent)
	}
	if err := f.db.CreatePayment(context.Background(), p); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func TestRegisterMethod(t *testing.T) {
	ctx := context.Background()

	t.Run("pending advances to awaiting confirmation", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)

		got, err := f.svc.RegisterMethod(ctx, f.psych, p.ID, domain.MethodPix)
		if err != nil {
			t.Fatalf("register method: %v", err)
		}
		if got.Status != domain.PaymentAwaitingConfirmation {
			t.Errorf("status = %s, want awaiting_confirmation", got.Status)
		}
		if got.Method == nil || *got.Method != domain.MethodPix {
			t.Errorf("method not recorded")
		}
	})

	t.Run("rejected once past pending", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentConfirmed, false)
		if _, err := f.svc.RegisterMethod(ctx, f.psych, p.ID, domain.MethodCash); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)
		if _, err := f.svc.RegisterMethod(ctx, f.psych, p.ID, "barter"); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("independent psychologist confirms", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentAwaitingConfirmation, false)

		got, err := f.svc.Confirm(ctx, f.psych, p.ID)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if got.Status != domain.PaymentConfirmed {
			t.Errorf("status = %s, want confirmed", got.Status)
		}
	})

	t.Run("repeat confirm is a no-op success", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentAwaitingConfirmation, false)

		first, err := f.svc.Confirm(ctx, f.psych, p.ID)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		second, err := f.svc.Confirm(ctx, f.psych, p.ID)
		if err != nil {
			t.Fatalf("repeat confirm: %v", err)
		}
		if second.Version != first.Version {
			t.Errorf("repeat confirm bumped version %d -> %d", first.Version, second.Version)
		}
	})

	t.Run("clinic-affiliated payment needs clinic staff", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentAwaitingConfirmation, true)

		_, err := f.svc.Confirm(ctx, f.psych, p.ID)
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("psychologist confirm error = %v, want ErrPermissionDenied", err)
		}

		got, err := f.svc.Confirm(ctx, f.staff, p.ID)
		if err != nil {
			t.Fatalf("staff confirm: %v", err)
		}
		if got.Status != domain.PaymentConfirmed {
			t.Errorf("status = %s, want confirmed", got.Status)
		}
	})

	t.Run("pending cannot be confirmed directly", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)
		if _, err := f.svc.Confirm(ctx, f.psych, p.ID); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})
}

func TestCancelAndRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel from pending with reason", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)

		reason := "session cancelled"
		got, err := f.svc.Cancel(ctx, f.psych, p.ID, &reason)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != domain.PaymentCancelled {
			t.Errorf("status = %s, want cancelled", got.Status)
		}
		if got.CancelReason == nil || *got.CancelReason != reason {
			t.Error("cancel reason not recorded")
		}

		// Idempotent on repeat.
		if _, err := f.svc.Cancel(ctx, f.psych, p.ID, nil); err != nil {
			t.Fatalf("repeat cancel: %v", err)
		}
	})

	t.Run("confirmed cannot be cancelled", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentConfirmed, false)
		if _, err := f.svc.Cancel(ctx, f.psych, p.ID, nil); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("refund only from confirmed", func(t *testing.T) {
		f := newFixture(t)
		confirmed := f.seed(t, domain.PaymentConfirmed, false)
		pending := f.seed(t, domain.PaymentPending, false)

		got, err := f.svc.Refund(ctx, f.psych, confirmed.ID)
		if err != nil {
			t.Fatalf("refund: %v", err)
		}
		if got.Status != domain.PaymentRefunded {
			t.Errorf("status = %s, want refunded", got.Status)
		}

		if _, err := f.svc.Refund(ctx, f.psych, pending.ID); !errors.Is(err, domain.ErrInvalidState) {
			t.Errorf("refund pending error = %v, want ErrInvalidState", err)
		}
	})
}

func TestConfirmBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("partial failure confirms the valid rest", func(t *testing.T) {
		f := newFixture(t)
		a := f.seed(t, domain.PaymentAwaitingConfirmation, false)
		b := f.seed(t, domain.PaymentCancelled, false)
		c := f.seed(t, domain.PaymentAwaitingConfirmation, false)

		res, err := f.svc.ConfirmBatch(ctx, f.psych, []uuid.UUID{a.ID, b.ID, c.ID})
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		if len(res.Confirmed) != 2 {
			t.Fatalf("confirmed = %d, want 2", len(res.Confirmed))
		}
		if len(res.Failed) != 1 {
			t.Fatalf("failed = %d, want 1", len(res.Failed))
		}
		if res.Failed[0].ID != b.ID {
			t.Errorf("failed id = %s, want %s", res.Failed[0].ID, b.ID)
		}
		if res.Failed[0].Reason == "" {
			t.Error("failure carries no reason")
		}

		for _, id := range []uuid.UUID{a.ID, c.ID} {
			got, _ := f.db.GetPayment(ctx, id)
			if got.Status != domain.PaymentConfirmed {
				t.Errorf("payment %s status = %s, want confirmed", id, got.Status)
			}
		}
	})

	t.Run("unknown id fails without touching siblings", func(t *testing.T) {
		f := newFixture(t)
		a := f.seed(t, domain.PaymentAwaitingConfirmation, false)
		ghost := uuid.New()

		res, err := f.svc.ConfirmBatch(ctx, f.psych, []uuid.UUID{a.ID, ghost})
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		if len(res.Confirmed) != 1 || res.Confirmed[0] != a.ID {
			t.Errorf("confirmed = %v, want [%s]", res.Confirmed, a.ID)
		}
		if len(res.Failed) != 1 || res.Failed[0].ID != ghost {
			t.Errorf("failed = %v, want ghost id", res.Failed)
		}
	})

	t.Run("empty batch yields empty result", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.ConfirmBatch(ctx, f.psych, nil)
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		if len(res.Confirmed) != 0 || len(res.Failed) != 0 {
			t.Errorf("result not empty: %+v", res)
		}
	})

	t.Run("result ordering is deterministic", func(t *testing.T) {
		f := newFixture(t)
		var ids []uuid.UUID
		for i := 0; i < 6; i++ {
			ids = append(ids, f.seed(t, domain.PaymentAwaitingConfirmation, false).ID)
		}

		res, err := f.svc.ConfirmBatch(ctx, f.psych, ids)
		if err != nil {
			t.Fatalf("batch: %v", err)
		}
		for i := 1; i < len(res.Confirmed); i++ {
			if res.Confirmed[i-1].String() > res.Confirmed[i].String() {
				t.Fatal("confirmed ids not sorted")
			}
		}
	})
}

func TestReadScoping(t *testing.T) {
	ctx := context.Background()

	t.Run("patient reads own payment", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)

		got, err := f.svc.Get(ctx, f.patient, p.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ID != p.ID {
			t.Errorf("id = %s, want %s", got.ID, p.ID)
		}
	})

	t.Run("foreign patient denied", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)

		stranger := domain.Actor{ID: uuid.New(), Role: domain.RolePatient}
		if _, err := f.svc.Get(ctx, stranger, p.ID); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("error = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("lookup by appointment", func(t *testing.T) {
		f := newFixture(t)
		p := f.seed(t, domain.PaymentPending, false)

		got, err := f.svc.GetByAppointment(ctx, f.psych, p.AppointmentID)
		if err != nil {
			t.Fatalf("get by appointment: %v", err)
		}
		if got.ID != p.ID {
			t.Errorf("id = %s, want %s", got.ID, p.ID)
		}
	})

	t.Run("unknown payment is not found", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Get(ctx, f.psych, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}
