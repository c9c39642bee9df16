package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "DRAFT"
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusPaid, OrderStatusCanceled:
		return true
	}
	return false
}

// OrderItem represents a single line within an order.
type OrderItem struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID        string    `json:"order_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_order_items_order_menu_item"`
	MenuItemID     string    `json:"menu_item_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_order_items_order_menu_item"`
	Quantity       int       `json:"quantity" gorm:"not null"`
	UnitPriceCents int64     `json:"unit_price_cents" gorm:"not null"` // Price at the time the line was first added
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MaxItemQuantity caps the quantity of a single order line.
const MaxItemQuantity = 999

// ErrAmountOutOfRange reports a negative amount or one that does not fit in int64 cents.
var ErrAmountOutOfRange = errors.New("amount out of range")

// LineTotalCents is quantity × unit price, rejecting negative or overflowing lines.
func (i OrderItem) LineTotalCents() (int64, error) {
	if i.Quantity < 0 || i.UnitPriceCents < 0 {
		return 0, fmt.Errorf("%w: line %s has quantity %d at %d cents", ErrAmountOutOfRange, i.MenuItemID, i.Quantity, i.UnitPriceCents)
	}
	q := int64(i.Quantity)
	if q != 0 && i.UnitPriceCents > math.MaxInt64/q {
		return 0, fmt.Errorf("%w: line %s overflows (%d x %d cents)", ErrAmountOutOfRange, i.MenuItemID, q, i.UnitPriceCents)
	}
	return q * i.UnitPriceCents, nil
}

// Order represents one shopping/checkout session against one restaurant.
type Order struct {
	ID               string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID           string      `json:"user_id" gorm:"type:varchar(64);not null;index"`
	RestaurantID     string      `json:"restaurant_id" gorm:"type:varchar(36);not null;index"`
	Country          string      `json:"country" gorm:"type:varchar(2);not null;index"`
	Status           OrderStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	TotalAmountCents int64       `json:"total_amount_cents" gorm:"not null"`
	Currency         string      `json:"currency" gorm:"type:varchar(3);not null"`
	Items            []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// TotalCents sums quantity × unit price over the given lines.
func TotalCents(items []OrderItem) (int64, error) {
	var total int64
	for _, item := range items {
		line, err := item.LineTotalCents()
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt64-line {
			return 0, fmt.Errorf("%w: order total overflows", ErrAmountOutOfRange)
		}
		total += line
	}
	return total, nil
}

// OrderView is the JSON shape returned to API callers.
type OrderView struct {
	Order
	Total string `json:"total"`
}

// NewOrderView decorates an order with its formatted total.
func NewOrderView(o Order) OrderView {
	return OrderView{Order: o, Total: FormatMinor(o.TotalAmountCents)}
}
