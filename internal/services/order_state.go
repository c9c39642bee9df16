package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"pesan/internal/logging"
	"pesan/internal/models"
	"pesan/internal/repositories"
)

// orderTransitions lists the statuses each status may move to. DRAFT goes to PAID
// directly because settlement is synchronous.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusDraft:    {models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusCanceled},
	models.OrderStatusPending:  {models.OrderStatusPaid, models.OrderStatusCanceled},
	models.OrderStatusPaid:     {models.OrderStatusCanceled},
	models.OrderStatusCanceled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	return slices.Contains(orderTransitions[from], to)
}

// sourcesOf returns every status that may move to `to`.
func sourcesOf(to models.OrderStatus) []models.OrderStatus {
	var from []models.OrderStatus
	for _, s := range []models.OrderStatus{
		models.OrderStatusDraft, models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusCanceled,
	} {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// OrderStateMachine drives checkout and cancellation.
type OrderStateMachine struct {
	settlement *SettlementEngine
}

// NewOrderStateMachine creates a new OrderStateMachine.
func NewOrderStateMachine(settlement *SettlementEngine) *OrderStateMachine {
	return &OrderStateMachine{settlement: settlement}
}

// Checkout settles a DRAFT or PENDING order with a positive total. The order only
// becomes PAID when the payment succeeds; a failed payment is still committed and
// reported as a *SettlementError.
func (m *OrderStateMachine) Checkout(ctx context.Context, store repositories.Store, orderID, paymentMethodID string) (*models.Order, *models.Payment, error) {
	if paymentMethodID == "" {
		return nil, nil, fmt.Errorf("%w: payment method id is required", ErrInvalidInput)
	}

	var (
		order   *models.Order
		payment *models.Payment
	)
	err := store.Transaction(ctx, func(tx repositories.Store) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == models.OrderStatusPaid {
			// Another checkout settled the order first.
			return fmt.Errorf("%w: order %s is already paid (%w)", ErrConflict, o.ID, ErrInvalidState)
		}
		if !CanTransition(o.Status, models.OrderStatusPaid) {
			return fmt.Errorf("%w: cannot check out order %s in status %s", ErrInvalidState, o.ID, o.Status)
		}
		if o.TotalAmountCents <= 0 {
			return fmt.Errorf("%w (order %s)", ErrEmptyOrder, o.ID)
		}

		p, err := m.settlement.Settle(ctx, tx, o.ID, paymentMethodID, o.TotalAmountCents, o.Currency)
		if err != nil {
			return err
		}
		if p.Status == models.PaymentStatusSucceeded {
			if err := tx.Orders().TransitionStatus(ctx, o.ID, sourcesOf(models.OrderStatusPaid), models.OrderStatusPaid); err != nil {
				return err
			}
			o.Status = models.OrderStatusPaid
			o.UpdatedAt = time.Now()
		}
		order, payment = o, p
		return nil
	})
	if err != nil {
		return nil, nil, translate(err, ErrOrderNotFound)
	}

	log := logging.FromContext(ctx).With("order_id", order.ID, "payment_id", payment.ID)
	if payment.Status != models.PaymentStatusSucceeded {
		log.Warn("checkout declined", "error_code", payment.ErrorCode)
		return order, payment, newSettlementError(payment)
	}
	log.Info("order paid", "amount_cents", payment.AmountCents, "currency", payment.Currency)
	return order, payment, nil
}

// Cancel moves any order to CANCELED and cancels its payment if there is one.
// Canceling a CANCELED order is a no-op. The returned flag reports whether
// anything changed.
func (m *OrderStateMachine) Cancel(ctx context.Context, store repositories.Store, orderID string) (*models.Order, *models.Payment, bool, error) {
	var (
		order   *models.Order
		payment *models.Payment
		changed bool
	)
	err := store.Transaction(ctx, func(tx repositories.Store) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		p, err := m.settlement.FindByOrder(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		order, payment = o, p
		if o.Status == models.OrderStatusCanceled {
			return nil
		}

		if err := tx.Orders().TransitionStatus(ctx, o.ID, sourcesOf(models.OrderStatusCanceled), models.OrderStatusCanceled); err != nil {
			return err
		}
		o.Status = models.OrderStatusCanceled
		changed = true

		if p != nil {
			payment, err = m.settlement.Cancel(ctx, tx, p.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, translate(err, ErrOrderNotFound)
	}
	if changed {
		logging.FromContext(ctx).Info("order canceled", "order_id", order.ID, "had_payment", payment != nil)
	}
	return order, payment, changed, nil
}
