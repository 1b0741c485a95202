// Package payment owns the payment lifecycle: method registration,
// confirmation (single and batch), cancellation and refunds.
package payment

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/acolhe/clinicd_backend/internal/directory"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/domain/permit"
	"github.com/acolhe/clinicd_backend/internal/events"
	"github.com/acolhe/clinicd_backend/internal/store"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// BatchResult reports per-id outcomes of a batch confirmation. The batch is
// deliberately non-atomic: every independently-valid payment ends up
// confirmed no matter what happens to its siblings.
type BatchResult struct {
	Confirmed []uuid.UUID   `json:"confirmed"`
	Failed    []BatchFailed `json:"failed"`
}

type BatchFailed struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error)
	GetByAppointment(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID) (*domain.Payment, error)
	// RegisterMethod sets the payment method and advances pending to
	// awaiting_confirmation.
	RegisterMethod(ctx context.Context, actor domain.Actor, id uuid.UUID, method domain.PaymentMethod) (*domain.Payment, error)
	// Confirm advances awaiting_confirmation to confirmed. Confirming an
	// already-confirmed payment is a no-op success.
	Confirm(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error)
	// Cancel is valid from pending or awaiting_confirmation and idempotent
	// on repeat cancel.
	Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason *string) (*domain.Payment, error)
	Refund(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error)
	// ConfirmBatch confirms each id independently and concurrently; one
	// failure never blocks or rolls back the others.
	ConfirmBatch(ctx context.Context, actor domain.Actor, ids []uuid.UUID) (*BatchResult, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type paymentService struct {
	db    store.Store
	pub   events.Publisher
	dir   directory.Directory
	clock domain.Clock
}

func New(db store.Store, pub events.Publisher, dir directory.Directory, clock domain.Clock) Service {
	return &paymentService{db: db, pub: pub, dir: dir, clock: clock}
}

func (s *paymentService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.db.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckPayment(actor, permit.OpReadPayment, p); !d.Allowed {
		return nil, s.denied(ctx, d, "read payment")
	}
	return p, nil
}

func (s *paymentService) GetByAppointment(ctx context.Context, actor domain.Actor, appointmentID uuid.UUID) (*domain.Payment, error) {
	p, err := s.db.GetPaymentByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckPayment(actor, permit.OpReadPayment, p); !d.Allowed {
		return nil, s.denied(ctx, d, "read payment")
	}
	return p, nil
}

func (s *paymentService) RegisterMethod(ctx context.Context, actor domain.Actor, id uuid.UUID, method domain.PaymentMethod) (*domain.Payment, error) {
	if !method.Valid() {
		return nil, &domain.InvalidStateError{From: "method", Attempted: string(method)}
	}

	p, err := s.db.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckPayment(actor, permit.OpRegisterMethod, p); !d.Allowed {
		return nil, s.denied(ctx, d, "register payment method")
	}
	if p.Status != domain.PaymentPending {
		return nil, &domain.InvalidStateError{From: string(p.Status), Attempted: string(domain.PaymentAwaitingConfirmation)}
	}

	p.Method = &method
	p.Status = domain.PaymentAwaitingConfirmation

	if err := s.write(ctx, p); err != nil {
		return nil, err
	}

	s.pub.Publish(events.PaymentMethodRegistered, p.ID)
	return p, nil
}

func (s *paymentService) Confirm(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.db.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckPayment(actor, permit.OpConfirmPayment, p); !d.Allowed {
		return nil, s.denied(ctx, d, "confirm payment")
	}

	// Re-submitting a confirm is a no-op success.
	if p.Status == domain.PaymentConfirmed {
		return p, nil
	}
	if p.Status != domain.PaymentAwaitingConfirmation {
		return nil, &domain.InvalidStateError{From: string(p.Status), Attempted: string(domain.PaymentConfirmed)}
	}

	p.Status = domain.PaymentConfirmed

	if err := s.write(ctx, p); err != nil {
		return nil, err
	}

	s.pub.Publish(events.PaymentConfirmed, p.ID)
	return p, nil
}

func (s *paymentService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID, reason *string) (*domain.Payment, error) {
	p, err := s.db.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckPayment(actor, permit.OpCancelPayment, p); !d.Allowed {
		return nil, s.denied(ctx, d, "cancel payment")
	}

	if p.Status == domain.PaymentCancelled {
		return p, nil
	}
	if !p.Status.CanTransitionTo(domain.PaymentCancelled) {
		return nil, &domain.InvalidStateError{From: string(p.Status), Attempted: string(domain.PaymentCancelled)}
	}

	p.Status = domain.PaymentCancelled
	p.CancelReason = reason

	if err := s.write(ctx, p); err != nil {
		return nil, err
	}

	s.pub.Publish(events.PaymentCancelled, p.ID)
	return p, nil
}

func (s *paymentService) Refund(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.db.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := permit.CheckPayment(actor, permit.OpRefundPayment, p); !d.Allowed {
		return nil, s.denied(ctx, d, "refund payment")
	}

	if p.Status == domain.PaymentRefunded {
		return p, nil
	}
	if p.Status != domain.PaymentConfirmed {
		return nil, &domain.InvalidStateError{From: string(p.Status), Attempted: string(domain.PaymentRefunded)}
	}

	p.Status = domain.PaymentRefunded

	if err := s.write(ctx, p); err != nil {
		return nil, err
	}

	s.pub.Publish(events.PaymentRefunded, p.ID)
	return p, nil
}

func (s *paymentService) ConfirmBatch(ctx context.Context, actor domain.Actor, ids []uuid.UUID) (*BatchResult, error) {
	type outcome struct {
		id  uuid.UUID
		err error
	}

	outcomes := make([]outcome, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, err := s.Confirm(ctx, actor, id)
			outcomes[i] = outcome{id: id, err: err}
		}(i, id)
	}
	wg.Wait()

	res := &BatchResult{Confirmed: []uuid.UUID{}, Failed: []BatchFailed{}}
	for _, o := range outcomes {
		if o.err != nil {
			res.Failed = append(res.Failed, BatchFailed{ID: o.id, Reason: o.err.Error()})
			continue
		}
		res.Confirmed = append(res.Confirmed, o.id)
	}

	sort.Slice(res.Confirmed, func(i, j int) bool {
		return res.Confirmed[i].String() < res.Confirmed[j].String()
	})
	sort.Slice(res.Failed, func(i, j int) bool {
		return res.Failed[i].ID.String() < res.Failed[j].ID.String()
	})
	return res, nil
}

func (s *paymentService) write(ctx context.Context, p *domain.Payment) error {
	p.UpdatedAt = s.clock.Now()
	expected := p.Version
	err := s.db.UpdatePayment(ctx, p, expected)
	if errors.Is(err, store.ErrVersionMismatch) {
		current, getErr := s.db.GetPayment(ctx, p.ID)
		if getErr != nil {
			return domain.NewConflict("unknown")
		}
		return domain.NewConflict(string(current.Status))
	}
	return err
}

func (s *paymentService) denied(ctx context.Context, d permit.Decision, op string) error {
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
