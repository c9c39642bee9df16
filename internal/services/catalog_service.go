package services

import (
	"context"
	"errors"
	"fmt"

	"pesan/internal/models"
	"pesan/internal/repositories"
)

// MenuItemFact is what the order core needs to know about a menu item at the
// moment a line is added.
type MenuItemFact struct {
	Exists       bool
	Available    bool
	RestaurantID string
	PriceCents   int64
}

// CatalogLookup is the read-only view of the catalog consumed by the order core.
type CatalogLookup interface {
	LookupMenuItem(ctx context.Context, menuItemID string) (MenuItemFact, error)
	GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error)
}

// CatalogService handles restaurant and menu lookups.
type CatalogService struct {
	repo repositories.CatalogRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.CatalogRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// LookupMenuItem resolves a menu item. A missing item is reported through
// Exists=false rather than an error.
func (s *CatalogService) LookupMenuItem(ctx context.Context, menuItemID string) (MenuItemFact, error) {
	item, err := s.repo.GetMenuItem(ctx, menuItemID)
	if errors.Is(err, repositories.ErrNotFound) {
		return MenuItemFact{}, nil
	}
	if err != nil {
		return MenuItemFact{}, fmt.Errorf("failed to look up menu item %s: %w", menuItemID, err)
	}
	return MenuItemFact{
		Exists:       true,
		Available:    item.Available,
		RestaurantID: item.RestaurantID,
		PriceCents:   item.PriceCents,
	}, nil
}

// GetRestaurant retrieves a restaurant by its ID.
func (s *CatalogService) GetRestaurant(ctx context.Context, restaurantID string) (*models.Restaurant, error) {
	restaurant, err := s.repo.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, translate(err, ErrRestaurantNotFound)
	}
	return restaurant, nil
}

// UpdateMenuItemPrice changes the catalog price. Lines already on orders keep
// the price they were added at.
func (s *CatalogService) UpdateMenuItemPrice(ctx context.Context, menuItemID string, priceCents int64) error {
	if priceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return translate(s.repo.UpdateMenuItemPrice(ctx, menuItemID, priceCents), ErrMenuItemNotFound)
}

// SetMenuItemAvailability toggles whether an item can be added to orders.
func (s *CatalogService) SetMenuItemAvailability(ctx context.Context, menuItemID string, available bool) error {
	return translate(s.repo.SetMenuItemAvailability(ctx, menuItemID, available), ErrMenuItemNotFound)
}
