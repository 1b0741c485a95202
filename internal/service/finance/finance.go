// Package finance is the read side of the payment ledger: time-windowed
// summaries with per-status totals and, for clinic scopes, a per-psychologist
// breakdown. It never mutates.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/acolhe/clinicd_backend/config"
	"github.com/acolhe/clinicd_backend/internal/directory"
	"github.com/acolhe/clinicd_backend/internal/domain"
	"github.com/acolhe/clinicd_backend/internal/domain/permit"
	"github.com/acolhe/clinicd_backend/internal/store"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Scope selects whose ledger to aggregate: exactly one of ClinicID or
// PsychologistID is set.
type Scope struct {
	ClinicID       *uuid.UUID
	PsychologistID *uuid.UUID
}

type StatusBucket struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type PsychologistBreakdown struct {
	PsychologistID uuid.UUID       `json:"psychologistId"`
	Name           string          `json:"name"`
	ConfirmedValue decimal.Decimal `json:"confirmedValue"`
	PendingValue   decimal.Decimal `json:"pendingValue"`
	SessionCount   int             `json:"sessionCount"`
}

// Summary is always fully populated: an empty ledger yields zeros, never
// absent fields.
type Summary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	Pending              StatusBucket `json:"pending"`
	AwaitingConfirmation StatusBucket `json:"awaitingConfirmation"`
	Confirmed            StatusBucket `json:"confirmed"`
	Cancelled            StatusBucket `json:"cancelled"`

	// ExpectedEarnings projects confirmed plus not-yet-settled value;
	// cancelled and refunded are excluded.
	ExpectedEarnings decimal.Decimal `json:"expectedEarnings"`

	// Breakdown is populated for clinic scopes only.
	Breakdown []PsychologistBreakdown `json:"breakdown,omitempty"`
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	Summary(ctx context.Context, actor domain.Actor, scope Scope, from, to time.Time) (*Summary, error)
	// InvalidateForPayment drops cached summaries covering the payment's
	// clinic and psychologist scopes. Called by the payment event worker.
	InvalidateForPayment(ctx context.Context, paymentID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type financeService struct {
	db    store.Store
	dir   directory.Directory
	cache *goredis.Client // nil disables caching
	ttl   time.Duration
}

func New(db store.Store, dir directory.Directory, cache *goredis.Client, cfg config.FinanceConfig) Service {
	ttl := time.Duration(cfg.SummaryCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &financeService{db: db, dir: dir, cache: cache, ttl: ttl}
}

func (s *financeService) Summary(ctx context.Context, actor domain.Actor, scope Scope, from, to time.Time) (*Summary, error) {
	if d := permit.CheckSummary(actor, scope.ClinicID, scope.PsychologistID); !d.Allowed {
		return nil, &domain.PermissionDeniedError{Operation: "read financial summary", Reason: d.Reason}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("summary window end precedes start: %w", domain.ErrInvalidTimeWindow)
	}

	key := s.cacheKey(scope, from, to)
	if cached := s.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	payments, err := s.db.ListPayments(ctx, store.PaymentFilter{
		ClinicID:       scope.ClinicID,
		PsychologistID: scope.PsychologistID,
		From:           &from,
		To:             &to,
	})
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	sum := s.aggregate(ctx, scope, from, to, payments)
	s.toCache(ctx, key, sum)
	return sum, nil
}

func (s *financeService) aggregate(ctx context.Context, scope Scope, from, to time.Time, payments []*domain.Payment) *Summary {
	sum := &Summary{
		From:             from,
		To:               to,
		ExpectedEarnings: decimal.Zero,
	}
	sum.Pending.Total = decimal.Zero
	sum.AwaitingConfirmation.Total = decimal.Zero
	sum.Confirmed.Total = decimal.Zero
	sum.Cancelled.Total = decimal.Zero

	perPsych := make(map[uuid.UUID]*PsychologistBreakdown)

	for _, p := range payments {
		switch p.Status {
		case domain.PaymentPending:
			sum.Pending.Count++
			sum.Pending.Total = sum.Pending.Total.Add(p.FinalValue)
		case domain.PaymentAwaitingConfirmation:
			sum.AwaitingConfirmation.Count++
			sum.AwaitingConfirmation.Total = sum.AwaitingConfirmation.Total.Add(p.FinalValue)
		case domain.PaymentConfirmed:
			sum.Confirmed.Count++
			sum.Confirmed.Total = sum.Confirmed.Total.Add(p.FinalValue)
		case domain.PaymentCancelled:
			sum.Cancelled.Count++
			sum.Cancelled.Total = sum.Cancelled.Total.Add(p.FinalValue)
		}

		if scope.ClinicID != nil {
			b, ok := perPsych[p.PsychologistID]
			if !ok {
				b = &PsychologistBreakdown{
					PsychologistID: p.PsychologistID,
					ConfirmedValue: decimal.Zero,
					PendingValue:   decimal.Zero,
				}
				perPsych[p.PsychologistID] = b
			}
			switch p.Status {
			case domain.PaymentConfirmed:
				b.ConfirmedValue = b.ConfirmedValue.Add(p.FinalValue)
				b.SessionCount++
			case domain.PaymentPending, domain.PaymentAwaitingConfirmation:
				b.PendingValue = b.PendingValue.Add(p.FinalValue)
				b.SessionCount++
			}
		}
	}

	sum.ExpectedEarnings = sum.Confirmed.Total.
		Add(sum.Pending.Total).
		Add(sum.AwaitingConfirmation.Total)

	if scope.ClinicID != nil {
		sum.Breakdown = make([]PsychologistBreakdown, 0, len(perPsych))
		for _, b := range perPsych {
			name, err := s.dir.DisplayName(ctx, b.PsychologistID)
			if err == nil && name != "" {
				b.Name = name
			} else {
				b.Name = b.PsychologistID.String()
			}
			sum.Breakdown = append(sum.Breakdown, *b)
		}
		sort.Slice(sum.Breakdown, func(i, j int) bool {
			return sum.Breakdown[i].PsychologistID.String() < sum.Breakdown[j].PsychologistID.String()
		})
	}

	return sum
}

func (s *financeService) InvalidateForPayment(ctx context.Context, paymentID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	p, err := s.db.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	patterns := []string{scopePrefix(Scope{PsychologistID: &p.PsychologistID}) + "*"}
	if p.ClinicID != nil {
		patterns = append(patterns, scopePrefix(Scope{ClinicID: p.ClinicID})+"*")
	}

	for _, pattern := range patterns {
		iter := s.cache.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
				slog.Warn("summary cache invalidation failed", "key", iter.Val(), "error", err)
			}
		}
		if err := iter.Err(); err != nil {
			slog.Warn("summary cache scan failed", "pattern", pattern, "error", err)
		}
	}
	return nil
}

// Cache helpers. A cache outage degrades to recomputation, never to failure.

func (s *financeService) cacheKey(scope Scope, from, to time.Time) string {
	return fmt.Sprintf("%s%d:%d", scopePrefix(scope), from.Unix(), to.Unix())
}

func scopePrefix(scope Scope) string {
	if scope.ClinicID != nil {
		return fmt.Sprintf("finance:summary:clinic:%s:", scope.ClinicID)
	}
	if scope.PsychologistID != nil {
		return fmt.Sprintf("finance:summary:psych:%s:", scope.PsychologistID)
	}
	return "finance:summary:unscoped:"
}

func (s *financeService) fromCache(ctx context.Context, key string) *Summary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var sum Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil
	}
	return &sum
}

func (s *financeService) toCache(ctx context.Context, key string, sum *Summary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		slog.Warn("summary cache write failed", "key", key, "error", err)
	}
}
