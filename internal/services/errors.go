package services

import (
	"errors"
	"fmt"

	"pesan/internal/authz"
	"pesan/internal/models"
	"pesan/internal/repositories"
)

var (
	// ErrNotFound is the root of every "entity absent" error.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals malformed caller data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState signals an operation the order's current status does not admit.
	ErrInvalidState = errors.New("invalid order state")
	// ErrForbidden signals a role or country scope violation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals a concurrent or duplicate write.
	ErrConflict = errors.New("conflict")
	// ErrSettlementFailed signals a declined or failed payment; see SettlementError.
	ErrSettlementFailed = errors.New("settlement failed")

	ErrOrderNotFound         = fmt.Errorf("order %w", ErrNotFound)
	ErrRestaurantNotFound    = fmt.Errorf("restaurant %w", ErrNotFound)
	ErrMenuItemNotFound      = fmt.Errorf("menu item %w", ErrNotFound)
	ErrPaymentNotFound       = fmt.Errorf("payment %w", ErrNotFound)
	ErrPaymentMethodNotFound = fmt.Errorf("payment method %w", ErrNotFound)
	ErrOrderItemNotFound     = fmt.Errorf("order item %w", ErrNotFound)

	ErrOrderNotDraft = fmt.Errorf("%w: order is not a draft", ErrInvalidState)
	ErrEmptyOrder    = fmt.Errorf("%w: order has no billable items", ErrInvalidState)

	// Menu item preconditions are kept distinct from not-found so callers can tell
	// "does not exist" from "exists but cannot be ordered here".
	ErrMenuItemUnavailable     = errors.New("menu item is not available")
	ErrMenuItemWrongRestaurant = errors.New("menu item belongs to a different restaurant")
)

// SettlementError is returned by checkout when the payment did not succeed. The
// FAILED payment has already been persisted.
type SettlementError struct {
	Payment *models.Payment
	Code    string
	Message string
}

func newSettlementError(p *models.Payment) *SettlementError {
	return &SettlementError{Payment: p, Code: p.ErrorCode, Message: p.ErrorMessage}
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrSettlementFailed, e.Code, e.Message)
}

func (e *SettlementError) Is(target error) bool {
	return target == ErrSettlementFailed
}

// translate maps repository and authz errors onto the service taxonomy, keeping
// the original message in the chain.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%w: %v", notFound, err)
	case errors.Is(err, repositories.ErrDuplicate), errors.Is(err, repositories.ErrStaleState):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, authz.ErrForbidden), errors.Is(err, authz.ErrUnknownRole), errors.Is(err, authz.ErrMissingCountry):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}
