package repositories

import (
	"context"

	"pesan/internal/models"
)

// CatalogRepository defines read access to restaurants and menus, plus the writes
// used for seeding.
type CatalogRepository interface {
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
	CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	CreateMenuItem(ctx context.Context, item *models.MenuItem) error
	UpdateMenuItemPrice(ctx context.Context, id string, priceCents int64) error
	SetMenuItemAvailability(ctx context.Context, id string, available bool) error
}
