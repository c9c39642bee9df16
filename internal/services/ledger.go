package services

import (
	"context"
	"errors"
	"fmt"

	"pesan/internal/models"
	"pesan/internal/repositories"
)

// ItemLedger owns the lines of a draft order and keeps the order total equal to
// the sum of its lines.
type ItemLedger struct {
	catalog CatalogLookup
}

// NewItemLedger creates a new ItemLedger.
func NewItemLedger(catalog CatalogLookup) *ItemLedger {
	return &ItemLedger{catalog: catalog}
}

// AddItem inserts a line for menuItemID or replaces the quantity of the existing
// one. New lines snapshot the current catalog price.
func (l *ItemLedger) AddItem(ctx context.Context, store repositories.Store, orderID, menuItemID string, quantity int) (*models.Order, error) {
	if menuItemID == "" {
		return nil, fmt.Errorf("%w: menu item id is required", ErrInvalidInput)
	}
	if quantity <= 0 || quantity > models.MaxItemQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d, got %d", ErrInvalidInput, models.MaxItemQuantity, quantity)
	}

	// Resolved before the transaction so the catalog read never waits on the order lock.
	fact, err := l.catalog.LookupMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = store.Transaction(ctx, func(tx repositories.Store) error {
		o, err := lockDraft(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := checkMenuItem(fact, menuItemID, o.RestaurantID); err != nil {
			return err
		}
		if err := tx.Orders().UpsertItem(ctx, &models.OrderItem{
			OrderID:        o.ID,
			MenuItemID:     menuItemID,
			Quantity:       quantity,
			UnitPriceCents: fact.PriceCents,
		}); err != nil {
			return err
		}
		order, err = recomputeTotal(ctx, tx, o)
		return err
	})
	if err != nil {
		return nil, translate(err, ErrOrderNotFound)
	}
	return order, nil
}

// RemoveItem deletes a line of the order. A line of another order is not found.
func (l *ItemLedger) RemoveItem(ctx context.Context, store repositories.Store, orderID, itemID string) (*models.Order, error) {
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}

	var order *models.Order
	err := store.Transaction(ctx, func(tx repositories.Store) error {
		o, err := lockDraft(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := tx.Orders().DeleteItem(ctx, o.ID, itemID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: %v", ErrOrderItemNotFound, err)
			}
			return err
		}
		order, err = recomputeTotal(ctx, tx, o)
		return err
	})
	if err != nil {
		return nil, translate(err, ErrOrderNotFound)
	}
	return order, nil
}

// Total is the sum of quantity × unit price over the order's lines.
func (l *ItemLedger) Total(order *models.Order) (int64, error) {
	return models.TotalCents(order.Items)
}

func lockDraft(ctx context.Context, tx repositories.Store, orderID string) (*models.Order, error) {
	order, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusDraft {
		return nil, fmt.Errorf("%w (order %s is %s)", ErrOrderNotDraft, order.ID, order.Status)
	}
	return order, nil
}

func checkMenuItem(fact MenuItemFact, menuItemID, restaurantID string) error {
	switch {
	case !fact.Exists:
		return fmt.Errorf("%w: %s", ErrMenuItemNotFound, menuItemID)
	case fact.RestaurantID != restaurantID:
		return fmt.Errorf("%w: %s is not on the menu of restaurant %s", ErrMenuItemWrongRestaurant, menuItemID, restaurantID)
	case !fact.Available:
		return fmt.Errorf("%w: %s", ErrMenuItemUnavailable, menuItemID)
	}
	return nil
}

// recomputeTotal reloads every line and rewrites the total from scratch.
func recomputeTotal(ctx context.Context, tx repositories.Store, order *models.Order) (*models.Order, error) {
	items, err := tx.Orders().ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	total, err := models.TotalCents(items)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s: %v", ErrInvalidInput, order.ID, err)
	}
	order.Items = items
	order.TotalAmountCents = total
	if err := tx.Orders().Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
