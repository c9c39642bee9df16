package repositories

import (
	"context"
	"errors"
	"fmt"

	"pesan/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCatalogRepository is a GORM implementation of CatalogRepository.
type GORMCatalogRepository struct {
	db *gorm.DB
}

// NewGORMCatalogRepository creates a new instance of GORMCatalogRepository.
func NewGORMCatalogRepository(db *gorm.DB) *GORMCatalogRepository {
	return &GORMCatalogRepository{
		db: db,
	}
}

// GetRestaurant retrieves a single restaurant by its ID.
func (r *GORMCatalogRepository) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("restaurant with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get restaurant by ID %s: %w", id, err)
	}
	return &restaurant, nil
}

// GetMenuItem retrieves a single menu item by its ID.
func (r *GORMCatalogRepository) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("menu item with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get menu item by ID %s: %w", id, err)
	}
	return &item, nil
}

// CreateRestaurant creates a new restaurant.
func (r *GORMCatalogRepository) CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	if restaurant.ID == "" {
		restaurant.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(restaurant).Error; err != nil {
		return fmt.Errorf("failed to create restaurant: %w", err)
	}
	return nil
}

// CreateMenuItem creates a new menu item.
func (r *GORMCatalogRepository) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}

// UpdateMenuItemPrice changes the catalog price. Existing order lines keep their snapshot.
func (r *GORMCatalogRepository) UpdateMenuItemPrice(ctx context.Context, id string, priceCents int64) error {
	return r.updateMenuItem(ctx, id, "price_cents", priceCents)
}

// SetMenuItemAvailability toggles whether a menu item can be ordered.
func (r *GORMCatalogRepository) SetMenuItemAvailability(ctx context.Context, id string, available bool) error {
	return r.updateMenuItem(ctx, id, "available", available)
}

func (r *GORMCatalogRepository) updateMenuItem(ctx context.Context, id, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to update menu item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("menu item with ID %s not found for update: %w", id, ErrNotFound)
	}
	return nil
}
