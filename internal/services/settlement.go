package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pesan/internal/logging"
	"pesan/internal/models"
	"pesan/internal/repositories"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Provider authorizes a payment instrument for an amount and returns an opaque
// settlement reference.
type Provider interface {
	Name() string
	Authorize(ctx context.Context, method *models.PaymentMethod, amountCents int64, currency string) (string, error)
}

// MockProvider approves every authorization. It stands in for a real gateway.
type MockProvider struct{}

func (MockProvider) Name() string { return "MOCK" }

func (MockProvider) Authorize(ctx context.Context, method *models.PaymentMethod, amountCents int64, currency string) (string, error) {
	return "mock_" + ulid.Make().String(), nil
}

// SettlementEngine produces the single payment record of an order. It works on
// whichever Store it is given so checkout can run it inside its transaction.
type SettlementEngine struct {
	provider Provider
}

// NewSettlementEngine creates a SettlementEngine. A nil provider means MockProvider.
func NewSettlementEngine(provider Provider) *SettlementEngine {
	if provider == nil {
		provider = MockProvider{}
	}
	return &SettlementEngine{provider: provider}
}

// Settle attempts to charge amountCents against the payment method. A declined
// or failed attempt is a normal return with Status FAILED; the error result is
// reserved for missing methods, conflicts and storage failures.
func (e *SettlementEngine) Settle(ctx context.Context, store repositories.Store, orderID, paymentMethodID string, amountCents int64, currency string) (*models.Payment, error) {
	log := logging.FromContext(ctx).With("order_id", orderID, "payment_method_id", paymentMethodID)

	method, err := store.PaymentMethods().GetByID(ctx, paymentMethodID)
	if err != nil {
		return nil, translate(err, ErrPaymentMethodNotFound)
	}

	payment, err := store.Payments().GetByOrderID(ctx, orderID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		payment = &models.Payment{ID: uuid.New().String(), OrderID: orderID}
	case err != nil:
		return nil, fmt.Errorf("failed to load payment of order %s: %w", orderID, err)
	case payment.Status != models.PaymentStatusFailed:
		return nil, fmt.Errorf("%w: order %s already has a %s payment", ErrConflict, orderID, payment.Status)
	default:
		log.Info("retrying failed settlement", "payment_id", payment.ID)
	}
	retry := err == nil

	payment.PaymentMethodID = method.ID
	payment.Provider = e.provider.Name()
	payment.AmountCents = amountCents
	payment.Currency = currency
	payment.SettlementRef = ""
	payment.ErrorCode = ""
	payment.ErrorMessage = ""

	if !method.Active {
		payment.Status = models.PaymentStatusFailed
		payment.ErrorCode = models.PaymentErrInactiveMethod
		payment.ErrorMessage = fmt.Sprintf("payment method %s is not active", method.ID)
	} else if ref, err := e.authorize(ctx, method, amountCents, currency); err != nil {
		payment.Status = models.PaymentStatusFailed
		payment.ErrorCode = models.PaymentErrProvider
		payment.ErrorMessage = err.Error()
	} else {
		payment.Status = models.PaymentStatusSucceeded
		payment.SettlementRef = ref
	}

	if retry {
		err = store.Payments().Update(ctx, payment)
	} else {
		err = store.Payments().Create(ctx, payment)
	}
	if err != nil {
		return nil, translate(err, ErrPaymentNotFound)
	}

	log.Info("settlement recorded", "payment_id", payment.ID, "status", payment.Status, "error_code", payment.ErrorCode)
	return payment, nil
}

// authorize calls the provider and turns a panic into an error so the attempt is
// still recorded.
func (e *SettlementEngine) authorize(ctx context.Context, method *models.PaymentMethod, amountCents int64, currency string) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", e.provider.Name(), r)
		}
	}()
	ref, err = e.provider.Authorize(ctx, method, amountCents, currency)
	if err == nil && ref == "" {
		err = fmt.Errorf("provider %s returned an empty settlement reference", e.provider.Name())
	}
	return ref, err
}

// Cancel moves a payment to CANCELED. Canceling a canceled payment changes nothing.
func (e *SettlementEngine) Cancel(ctx context.Context, store repositories.Store, paymentID string) (*models.Payment, error) {
	payment, err := store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, translate(err, ErrPaymentNotFound)
	}
	if payment.Status == models.PaymentStatusCanceled {
		return payment, nil
	}
	payment.Status = models.PaymentStatusCanceled
	payment.UpdatedAt = time.Now()
	if err := store.Payments().Update(ctx, payment); err != nil {
		return nil, translate(err, ErrPaymentNotFound)
	}
	logging.FromContext(ctx).Info("payment canceled", "payment_id", payment.ID, "order_id", payment.OrderID)
	return payment, nil
}

// FindByOrder returns the payment of an order, or nil if it has none.
func (e *SettlementEngine) FindByOrder(ctx context.Context, store repositories.Store, orderID string) (*models.Payment, error) {
	payment, err := store.Payments().GetByOrderID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment of order %s: %w", orderID, err)
	}
	return payment, nil
}
