package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/internal/messaging"
	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// NotificationEvent is the payload published to the notification queue.
// Delivery to end users (email, portal) happens downstream.
type NotificationEvent struct {
	DealID      uuid.UUID        `json:"deal_id"`
	DealRef     string           `json:"deal_ref"`
	Event       string           `json:"event"`
	Audience    models.PartyType `json:"audience,omitempty"`
	Description string           `json:"description"`
}

// Notifier publishes workflow notifications. Publishing is fire and
// forget: a broker failure is counted and logged but never propagated,
// so workflow state changes do not depend on the queue being up.
type Notifier struct {
	bus     messaging.ServiceBusClient
	metrics *metrics.Metrics
}

// NewNotifier creates a new notifier. A nil bus disables publishing,
// which keeps local development working without a broker.
func NewNotifier(bus messaging.ServiceBusClient, m *metrics.Metrics) *Notifier {
	return &Notifier{bus: bus, metrics: m}
}

// Notify publishes a notification event
func (n *Notifier) Notify(ctx context.Context, event NotificationEvent) {
	if n.bus == nil {
		return
	}

	if err := n.bus.SendMessage(ctx, event); err != nil {
		n.metrics.IncrementCounter(metrics.CounterNotificationsFailed)
		log.Warn().Err(err).
			Str("deal_ref", event.DealRef).
			Str("event", event.Event).
			Msg("Failed to publish notification")
	}
}
