package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pesan/internal/authz"
	"pesan/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// scoped pushes the authorization filter into the query. Unrestricted filters add
// no country predicate at all.
func scoped(db *gorm.DB, filter authz.Filter) *gorm.DB {
	if filter.All {
		return db
	}
	return db.Where("country = ?", filter.Country)
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// Create inserts a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Get retrieves an order and its items if the filter admits it.
func (r *GORMOrderRepository) Get(ctx context.Context, id string, filter authz.Filter) (*models.Order, error) {
	var order models.Order
	err := scoped(r.db.WithContext(ctx), filter).
		Preload("Items", itemsInOrder).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetForUpdate retrieves an order with a row lock, then its items.
func (r *GORMOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock order %s: %w", id, err)
	}
	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// List retrieves orders admitted by the filter, newest first, without items.
func (r *GORMOrderRepository) List(ctx context.Context, filter authz.Filter, opts ListOptions) ([]models.Order, error) {
	opts = opts.Normalize()
	q := scoped(r.db.WithContext(ctx), filter)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var orders []models.Order
	err := q.Order("created_at DESC, id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Save writes the mutable columns of an order.
func (r *GORMOrderRepository) Save(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status":             order.Status,
			"total_amount_cents": order.TotalAmountCents,
			"updated_at":         order.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s not found for update: %w", order.ID, ErrNotFound)
	}
	return nil
}

// TransitionStatus is a compare-and-set on the status column.
func (r *GORMOrderRepository) TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check order %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("order %s is not in %v: %w", id, from, ErrStaleState)
}

// ListItems returns the lines of an order in insertion order.
func (r *GORMOrderRepository) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := itemsInOrder(r.db.WithContext(ctx)).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items of order %s: %w", orderID, err)
	}
	return items, nil
}

// UpsertItem inserts a line or replaces the quantity of the existing line for the
// same menu item. On conflict only quantity and updated_at change, so the stored
// unit price and line id survive.
func (r *GORMOrderRepository) UpsertItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "menu_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to upsert item for order %s: %w", item.OrderID, err)
	}
	return nil
}

// DeleteItem removes a line, scoped to its owning order.
func (r *GORMOrderRepository) DeleteItem(ctx context.Context, orderID, itemID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Delete(&models.OrderItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item %s on order %s: %w", itemID, orderID, ErrNotFound)
	}
	return nil
}
