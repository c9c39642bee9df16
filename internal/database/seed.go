package database

import (
	"context"
	"fmt"
	"log/slog"

	"pesan/internal/models"

	"gorm.io/gorm"
)

// Demo identifiers are fixed so the seed can run on every start without duplicating rows.
const (
	DemoRestaurantIN     = "7f6a3c1e-2b7d-4c55-9d8e-0a1b2c3d4e01"
	DemoRestaurantUS     = "7f6a3c1e-2b7d-4c55-9d8e-0a1b2c3d4e02"
	DemoMenuItemThali    = "8a1b2c3d-0000-4000-8000-000000000001"
	DemoMenuItemDosa     = "8a1b2c3d-0000-4000-8000-000000000002"
	DemoMenuItemBurger   = "8a1b2c3d-0000-4000-8000-000000000003"
	DemoMenuItemSoldOut  = "8a1b2c3d-0000-4000-8000-000000000004"
	DemoMethodActiveCard = "9b2c3d4e-0000-4000-8000-000000000001"
	DemoMethodExpired    = "9b2c3d4e-0000-4000-8000-000000000002"
)

// SeedDemoData populates a small catalog and two payment methods. Existing rows are left untouched.
func SeedDemoData(ctx context.Context, db *gorm.DB, log *slog.Logger) error {
	restaurants := []models.Restaurant{
		{ID: DemoRestaurantIN, Name: "Spice Route", Country: "IN"},
		{ID: DemoRestaurantUS, Name: "Liberty Diner", Country: "US"},
	}
	menuItems := []models.MenuItem{
		{ID: DemoMenuItemThali, RestaurantID: DemoRestaurantIN, Name: "Veg Thali", PriceCents: 3500, Available: true},
		{ID: DemoMenuItemDosa, RestaurantID: DemoRestaurantIN, Name: "Masala Dosa", PriceCents: 1800, Available: true},
		{ID: DemoMenuItemBurger, RestaurantID: DemoRestaurantUS, Name: "Classic Burger", PriceCents: 1299, Available: true},
		{ID: DemoMenuItemSoldOut, RestaurantID: DemoRestaurantUS, Name: "Seasonal Pie", PriceCents: 650, Available: false},
	}
	methods := []models.PaymentMethod{
		{ID: DemoMethodActiveCard, Label: "Company card", Brand: "VISA", Active: true, IsDefault: true},
		{ID: DemoMethodExpired, Label: "Expired card", Brand: "MASTERCARD", Active: false},
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range restaurants {
			if err := firstOrCreate(tx, &restaurants[i], restaurants[i].ID); err != nil {
				return err
			}
		}
		for i := range menuItems {
			if err := firstOrCreate(tx, &menuItems[i], menuItems[i].ID); err != nil {
				return err
			}
		}
		for i := range methods {
			if err := firstOrCreate(tx, &methods[i], methods[i].ID); err != nil {
				return err
			}
		}
		log.Info("demo data seeded",
			"restaurants", len(restaurants),
			"menu_items", len(menuItems),
			"payment_methods", len(methods))
		return nil
	})
}

func firstOrCreate(tx *gorm.DB, row any, id string) error {
	if err := tx.Where("id = ?", id).FirstOrCreate(row).Error; err != nil {
		return fmt.Errorf("failed to seed %T %s: %w", row, id, err)
	}
	return nil
}
