// Package events publishes domain events over NATS. Publishing is
// fire-and-forget: a broker outage never fails the business operation,
// it only logs.
package events

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Event string

const (
	AppointmentCreated     Event = "appointment.created"
	AppointmentConfirmed   Event = "appointment.confirmed"
	AppointmentRescheduled Event = "appointment.rescheduled"
	AppointmentCancelled   Event = "appointment.cancelled"
	AppointmentCompleted   Event = "appointment.completed"
	AppointmentNoShow      Event = "appointment.no_show"

	PaymentCreated          Event = "payment.created"
	PaymentMethodRegistered Event = "payment.method_registered"
	PaymentConfirmed        Event = "payment.confirmed"
	PaymentCancelled        Event = "payment.cancelled"
	PaymentRefunded         Event = "payment.refunded"
)

type Publisher interface {
	Publish(event Event, entityID uuid.UUID)
}

// NatsPublisher emits events on subjects of the form
// clinicd.<entity>.<action>.<entity-id> with the entity id as payload.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(event Event, entityID uuid.UUID) {
	subject := fmt.Sprintf("clinicd.%s.%s", event, entityID)
	if err := p.nc.Publish(subject, []byte(entityID.String())); err != nil {
		slog.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// Nop discards events. Used in tests and when NATS is not configured.
type Nop struct{}

func (Nop) Publish(Event, uuid.UUID) {}
