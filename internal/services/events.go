package services

import (
	"context"
	"encoding/json"
	"time"

	"pesan/internal/logging"
	"pesan/internal/models"
)

// Routing keys of the events published on the orders exchange.
const (
	EventsExchange = "orders"

	EventOrderCreated       = "order.created"
	EventOrderItemChanged   = "order.item_changed"
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderCanceled      = "order.canceled"
)

// EventPublisher sends a message to the broker. pkg/rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderEvent is the JSON body of every order event.
type OrderEvent struct {
	Type             string    `json:"type"`
	OrderID          string    `json:"order_id"`
	UserID           string    `json:"user_id"`
	Status           string    `json:"status"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Currency         string    `json:"currency"`
	PaymentID        string    `json:"payment_id,omitempty"`
	PaymentStatus    string    `json:"payment_status,omitempty"`
	ActorID          string    `json:"actor_id,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func newOrderEvent(eventType string, order *models.Order, payment *models.Payment, actorID string) OrderEvent {
	ev := OrderEvent{
		Type:             eventType,
		OrderID:          order.ID,
		UserID:           order.UserID,
		Status:           string(order.Status),
		TotalAmountCents: order.TotalAmountCents,
		Currency:         order.Currency,
		ActorID:          actorID,
		OccurredAt:       time.Now().UTC(),
	}
	if payment != nil {
		ev.PaymentID = payment.ID
		ev.PaymentStatus = string(payment.Status)
	}
	return ev
}

// publish is best effort: the order change is already committed, so failures are
// only logged.
func publish(ctx context.Context, publisher EventPublisher, ev OrderEvent) {
	log := logging.FromContext(ctx).With("event", ev.Type, "order_id", ev.OrderID)
	if publisher == nil {
		log.Debug("event publisher not configured, skipping")
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("failed to marshal order event", "error", err)
		return
	}
	if err := publisher.Publish(EventsExchange, ev.Type, body); err != nil {
		log.Warn("failed to publish order event", "error", err)
		return
	}
	log.Debug("order event published")
}
