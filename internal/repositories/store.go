package repositories

import (
	"context"
	"errors"

	"pesan/internal/authz"
	"pesan/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrStaleState = errors.New("record state changed concurrently")
)

// ListOptions narrows an order listing beyond the authorization filter.
type ListOptions struct {
	Status models.OrderStatus
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Normalize clamps paging values to sane bounds.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// OrderRepository defines data access for orders and their lines.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	// Get loads an order with its items, constrained by the authorization filter.
	Get(ctx context.Context, id string, filter authz.Filter) (*models.Order, error)
	// GetForUpdate loads an order with its items and locks the row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter authz.Filter, opts ListOptions) ([]models.Order, error)
	// Save persists status, total and timestamps of an existing order.
	Save(ctx context.Context, order *models.Order) error
	// TransitionStatus moves an order to `to` only if its current status is one of `from`.
	TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error

	ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	// UpsertItem inserts a line or, if the (order, menu item) pair exists, replaces
	// its quantity. The stored unit price is never rewritten.
	UpsertItem(ctx context.Context, item *models.OrderItem) error
	// DeleteItem removes a line only if it belongs to the given order.
	DeleteItem(ctx context.Context, orderID, itemID string) error
}

// PaymentRepository defines data access for payments. At most one per order.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
}

// PaymentMethodRepository defines data access for payment methods.
type PaymentMethodRepository interface {
	Create(ctx context.Context, method *models.PaymentMethod) error
	GetByID(ctx context.Context, id string) (*models.PaymentMethod, error)
}

// Store groups the repositories the order core writes through and provides the
// transaction boundary around them.
type Store interface {
	Orders() OrderRepository
	Payments() PaymentRepository
	PaymentMethods() PaymentMethodRepository
	// Transaction runs fn against a transactional view of the store. Returning an
	// error rolls every write inside fn back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
