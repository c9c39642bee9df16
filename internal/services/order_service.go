package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pesan/internal/authz"
	"pesan/internal/logging"
	"pesan/internal/models"
	"pesan/internal/repositories"

	"github.com/google/uuid"
)

// Caller is the authenticated principal together with its resolved scope.
type Caller struct {
	UserID string
	Scope  authz.Scope
}

// OrderService sequences scope checks, the item ledger, the state machine and
// settlement for the order use cases.
type OrderService struct {
	store      repositories.Store
	catalog    CatalogLookup
	ledger     *ItemLedger
	machine    *OrderStateMachine
	settlement *SettlementEngine
	publisher  EventPublisher

	checkouts sync.Map // order id -> struct{}, checkouts in flight in this process
}

// NewOrderService creates a new OrderService. A nil publisher disables events.
func NewOrderService(store repositories.Store, catalog CatalogLookup, provider Provider, publisher EventPublisher) *OrderService {
	settlement := NewSettlementEngine(provider)
	return &OrderService{
		store:      store,
		catalog:    catalog,
		ledger:     NewItemLedger(catalog),
		machine:    NewOrderStateMachine(settlement),
		settlement: settlement,
		publisher:  publisher,
	}
}

// CreateOrder opens a DRAFT order. The order's country is the caller's home
// country while its currency follows the restaurant's country; the two may differ.
func (s *OrderService) CreateOrder(ctx context.Context, caller Caller, restaurantID string) (*models.Order, error) {
	if err := caller.Scope.RequireBuild(); err != nil {
		return nil, translate(err, ErrOrderNotFound)
	}
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return nil, fmt.Errorf("%w: restaurant id is required", ErrInvalidInput)
	}
	if caller.UserID == "" {
		return nil, fmt.Errorf("%w: caller has no user id", ErrInvalidInput)
	}
	if caller.Scope.HomeCountry == "" {
		return nil, fmt.Errorf("%w: caller has no home country", ErrInvalidInput)
	}

	restaurant, err := s.catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	currency, err := models.CurrencyForCountry(restaurant.Country)
	if err != nil {
		return nil, fmt.Errorf("restaurant %s: %w", restaurant.ID, err)
	}

	order := &models.Order{
		ID:           uuid.New().String(),
		UserID:       caller.UserID,
		RestaurantID: restaurant.ID,
		Country:      caller.Scope.HomeCountry,
		Status:       models.OrderStatusDraft,
		Currency:     currency,
	}
	if err := s.store.Orders().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", translate(err, ErrOrderNotFound))
	}

	logging.FromContext(ctx).Info("order created",
		"order_id", order.ID, "restaurant_id", order.RestaurantID,
		"country", order.Country, "currency", order.Currency)
	publish(ctx, s.publisher, newOrderEvent(EventOrderCreated, order, nil, caller.UserID))
	return order, nil
}

// ListOrders returns the orders inside the caller's scope, newest first.
func (s *OrderService) ListOrders(ctx context.Context, caller Caller, opts repositories.ListOptions) ([]models.Order, error) {
	if !caller.Scope.CanRead {
		return nil, fmt.Errorf("%w: role %s cannot read orders", ErrForbidden, caller.Scope.Role)
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, opts.Status)
	}
	orders, err := s.store.Orders().List(ctx, caller.Scope.Filter, opts.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder fetches an order with its items. Orders outside the caller's scope are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, caller Caller, orderID string) (*models.Order, error) {
	if !caller.Scope.CanRead {
		return nil, fmt.Errorf("%w: role %s cannot read orders", ErrForbidden, caller.Scope.Role)
	}
	order, err := s.store.Orders().Get(ctx, orderID, caller.Scope.Filter)
	if err != nil {
		return nil, translate(err, ErrOrderNotFound)
	}
	return order, nil
}

// GetPayment returns the payment of a visible order.
func (s *OrderService) GetPayment(ctx context.Context, caller Caller, orderID string) (*models.Payment, error) {
	order, err := s.GetOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.settlement.FindByOrder(ctx, s.store, order.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: order %s has no payment", ErrPaymentNotFound, order.ID)
	}
	return payment, nil
}

// AddItem adds a menu item to a draft order or replaces its quantity.
func (s *OrderService) AddItem(ctx context.Context, caller Caller, orderID, menuItemID string, quantity int) (*models.Order, error) {
	if err := s.admit(ctx, caller, orderID, caller.Scope.RequireBuild); err != nil {
		return nil, err
	}
	order, err := s.ledger.AddItem(ctx, s.store, orderID, menuItemID, quantity)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order item set",
		"order_id", order.ID, "menu_item_id", menuItemID, "quantity", quantity,
		"total_amount_cents", order.TotalAmountCents)
	publish(ctx, s.publisher, newOrderEvent(EventOrderItemChanged, order, nil, caller.UserID))
	return order, nil
}

// RemoveItem deletes a line from a draft order.
func (s *OrderService) RemoveItem(ctx context.Context, caller Caller, orderID, itemID string) (*models.Order, error) {
	if err := s.admit(ctx, caller, orderID, caller.Scope.RequireBuild); err != nil {
		return nil, err
	}
	order, err := s.ledger.RemoveItem(ctx, s.store, orderID, itemID)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order item removed",
		"order_id", order.ID, "item_id", itemID, "total_amount_cents", order.TotalAmountCents)
	publish(ctx, s.publisher, newOrderEvent(EventOrderItemChanged, order, nil, caller.UserID))
	return order, nil
}

// Checkout settles an order. Only one checkout per order runs at a time in this
// process; a concurrent second call gets ErrConflict. A declined payment returns
// the order, the FAILED payment and a *SettlementError.
func (s *OrderService) Checkout(ctx context.Context, caller Caller, orderID, paymentMethodID string) (*models.Order, *models.Payment, error) {
	if err := s.gate(ctx, caller, orderID, caller.Scope.RequireSettle); err != nil {
		return nil, nil, err
	}
	if _, busy := s.checkouts.LoadOrStore(orderID, struct{}{}); busy {
		return nil, nil, fmt.Errorf("%w: checkout of order %s already in progress", ErrConflict, orderID)
	}
	defer s.checkouts.Delete(orderID)
	if _, err := s.GetOrder(ctx, caller, orderID); err != nil {
		return nil, nil, err
	}

	order, payment, err := s.machine.Checkout(ctx, s.store, orderID, paymentMethodID)
	switch {
	case err == nil:
		publish(ctx, s.publisher, newOrderEvent(EventOrderPaid, order, payment, caller.UserID))
	case payment != nil:
		publish(ctx, s.publisher, newOrderEvent(EventOrderPaymentFailed, order, payment, caller.UserID))
	}
	return order, payment, err
}

// CancelOrder cancels an order in any status together with its payment.
func (s *OrderService) CancelOrder(ctx context.Context, caller Caller, orderID string) (*models.Order, *models.Payment, error) {
	if err := s.admit(ctx, caller, orderID, caller.Scope.RequireSettle); err != nil {
		return nil, nil, err
	}
	order, payment, changed, err := s.machine.Cancel(ctx, s.store, orderID)
	if err != nil {
		return nil, nil, err
	}
	if changed {
		publish(ctx, s.publisher, newOrderEvent(EventOrderCanceled, order, payment, caller.UserID))
	}
	return order, payment, nil
}

// admit runs the role gate and then confirms the order is inside the caller's
// country scope.
func (s *OrderService) admit(ctx context.Context, caller Caller, orderID string, gate func() error) error {
	if err := s.gate(ctx, caller, orderID, gate); err != nil {
		return err
	}
	if _, err := s.GetOrder(ctx, caller, orderID); err != nil {
		return err
	}
	return nil
}

func (s *OrderService) gate(ctx context.Context, caller Caller, orderID string, gate func() error) error {
	if err := gate(); err != nil {
		logging.FromContext(ctx).Warn("order operation rejected", "order_id", orderID, "role", caller.Scope.Role, "error", err)
		return translate(err, ErrOrderNotFound)
	}
	return nil
}
