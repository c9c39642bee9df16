package models

import "time"

// Restaurant publishes a menu. Country drives the currency of orders placed against it.
type Restaurant struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string     `json:"name" gorm:"type:varchar(100);not null"`
	Country   string     `json:"country" gorm:"type:varchar(2);not null;index"`
	MenuItems []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MenuItem is a priced dish belonging to exactly one restaurant.
type MenuItem struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RestaurantID string    `json:"restaurant_id" gorm:"type:varchar(36);not null;index"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	PriceCents   int64     `json:"price_cents" gorm:"not null"`
	Available    bool      `json:"available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
