package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/acolhe/clinicd_backend/internal/service/finance"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc         fx.Lifecycle
	NC         *nats.Conn
	FinanceSvc finance.Service
}

func RegisterWorkers(p WorkerParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			startFinanceCacheWorker(p.NC, p.FinanceSvc)
			startNotificationWorker(p.NC)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// finance_cache_worker
// ---------------------------------------------------------------------------

// startFinanceCacheWorker drops cached financial summaries whenever a payment
// changes, so reads after a write recompute lazily instead of serving a
// full TTL of stale totals.
func startFinanceCacheWorker(nc *nats.Conn, financeSvc finance.Service) {
	_, err := nc.Subscribe("clinicd.payment.*.*", func(msg *nats.Msg) {
		paymentID, ok := subjectEntityID(msg.Subject)
		if !ok {
			return
		}
		if err := financeSvc.InvalidateForPayment(context.Background(), paymentID); err != nil {
			slog.Warn("finance cache invalidation failed", "payment_id", paymentID, "error", err)
		}
	})
	if err != nil {
		slog.Error("failed to subscribe finance cache worker", "error", err)
	}
}

// ---------------------------------------------------------------------------
// notification_worker
// ---------------------------------------------------------------------------

// startNotificationWorker forwards lifecycle events to the notification
// dispatcher. Dispatch is fire-and-forget: the transition already succeeded,
// a delivery failure only logs.
func startNotificationWorker(nc *nats.Conn) {
	subjects := []string{
		"clinicd.appointment.confirmed.*",
		"clinicd.appointment.cancelled.*",
		"clinicd.appointment.rescheduled.*",
	}
	for _, subject := range subjects {
		_, err := nc.Subscribe(subject, func(msg *nats.Msg) {
			entityID, ok := subjectEntityID(msg.Subject)
			if !ok {
				return
			}
			// Delivery itself belongs to the external dispatcher; here we
			// only record that the counterpart should be informed.
			slog.Info("notification dispatch requested",
				"subject", msg.Subject,
				"entity_id", entityID,
			)
		})
		if err != nil {
			slog.Error("failed to subscribe notification worker", "subject", subject, "error", err)
		}
	}
}

// subjectEntityID extracts the trailing entity id from a subject of the form
// clinicd.<entity>.<action>.<id>.
func subjectEntityID(subject string) (uuid.UUID, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) < 4 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[len(parts)-1])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
